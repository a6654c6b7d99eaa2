package attendance

import (
	"context"
	"sort"
	"strconv"
	"time"
)

// StudentReport builds the student attendance page: current-month calendar,
// per-course totals and percentages, and present dates grouped by month.
func (s *Service) StudentReport(ctx context.Context, rollNumber string) (StudentReport, error) {
	st, err := s.store.GetStudent(ctx, rollNumber)
	if err != nil {
		return StudentReport{}, err
	}
	if st == nil {
		return StudentReport{}, ErrStudentNotFound
	}

	recs, err := s.store.ListStudentRecords(ctx, st.ID)
	if err != nil {
		return StudentReport{}, err
	}
	now := s.now()
	report := StudentReport{
		RollNumber: rollNumber,
		Calendar:   buildCalendar(now, recs),
	}

	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return StudentReport{}, err
	}
	for _, c := range courses {
		dates, err := s.store.ListPresentDates(ctx, st.ID, c.ID)
		if err != nil {
			return StudentReport{}, err
		}
		total, err := s.store.CountSessionDates(ctx, c.ID)
		if err != nil {
			return StudentReport{}, err
		}
		report.Courses = append(report.Courses, CourseReport{
			CourseCode: c.Code,
			Total:      total,
			Attended:   len(dates),
			Percentage: percentage(len(dates), total),
			Months:     groupByMonth(dates),
		})
	}
	return report, nil
}

// CourseDashboard builds the teacher roster view: every student's attended
// count and percentage against the course's session total, sorted by roll
// number interpreted numerically.
func (s *Service) CourseDashboard(ctx context.Context, courseCode string) ([]RosterEntry, error) {
	c, err := s.store.GetCourse(ctx, courseCode)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	total, err := s.store.CountSessionDates(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		attended, err := s.store.CountPresent(ctx, st.ID, c.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RosterEntry{
			RollNumber: st.RollNumber,
			Total:      total,
			Attended:   attended,
			Percentage: percentage(attended, total),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rollLess(entries[i].RollNumber, entries[j].RollNumber)
	})
	return entries, nil
}

// CourseDayRoster returns every student's state for one course date,
// numerically sorted. Used by the live QR page and the manual edit form.
func (s *Service) CourseDayRoster(ctx context.Context, courseCode string, date time.Time) ([]DayRosterEntry, error) {
	c, err := s.store.GetCourse(ctx, courseCode)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	entries, err := s.store.DayRoster(ctx, c.ID, dateOnly(date))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rollLess(entries[i].RollNumber, entries[j].RollNumber)
	})
	return entries, nil
}

// percentage guards the zero-session case: no sessions means 0%, never a
// divide by zero.
func percentage(attended, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}

// buildCalendar derives a day status for each day of now's month. A day is
// present if the student was present in any course that day, absent if any
// row exists and none is present, no-class otherwise.
func buildCalendar(now time.Time, recs []Record) CalendarMonth {
	type dayState struct {
		hasRow  bool
		present bool
	}
	byDate := make(map[string]dayState)
	for _, rec := range recs {
		key := rec.Date.Format("2006-01-02")
		st := byDate[key]
		st.hasRow = true
		st.present = st.present || rec.Present
		byDate[key] = st
	}

	month := CalendarMonth{Month: now.Format("January 2006")}
	curr := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for curr.Month() == now.Month() {
		key := curr.Format("2006-01-02")
		status := StatusNoClass
		if st, ok := byDate[key]; ok {
			if st.present {
				status = StatusPresent
			} else {
				status = StatusAbsent
			}
		}
		month.Days = append(month.Days, CalendarDay{Date: key, Day: curr.Day(), Status: status})
		curr = curr.AddDate(0, 0, 1)
	}
	return month
}

// groupByMonth buckets present dates by (year, month) ascending with days
// ascending inside each bucket, labelled "Jan 2006".
func groupByMonth(dates []time.Time) []MonthGroup {
	type ym struct {
		year  int
		month time.Month
	}
	buckets := make(map[ym][]int)
	for _, d := range dates {
		k := ym{d.Year(), d.Month()}
		buckets[k] = append(buckets[k], d.Day())
	}

	keys := make([]ym, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	groups := make([]MonthGroup, 0, len(keys))
	for _, k := range keys {
		days := buckets[k]
		sort.Ints(days)
		label := time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
		groups = append(groups, MonthGroup{Label: label, Days: days})
	}
	return groups
}

// rollLess orders roll numbers numerically; non-numeric rolls sort after
// numeric ones, by plain string compare among themselves.
func rollLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
