package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// mockStore is an in-memory Store for service tests.
type mockStore struct {
	students []Student
	courses  []*Course
	records  map[string]*Record // keyed studentID|courseID|date

	failGetCourse bool
	failUpsert    bool
	replaceCalls  int
}

func newMockStore() *mockStore {
	return &mockStore{records: map[string]*Record{}}
}

func (m *mockStore) addStudent(id, roll string) {
	m.students = append(m.students, Student{ID: id, RollNumber: roll})
}

func (m *mockStore) addCourse(id, code string) *Course {
	c := &Course{ID: id, Code: code}
	m.courses = append(m.courses, c)
	return c
}

func recKey(studentID, courseID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", studentID, courseID, date.Format("2006-01-02"))
}

func (m *mockStore) GetStudent(_ context.Context, roll string) (*Student, error) {
	for i := range m.students {
		if m.students[i].RollNumber == roll {
			s := m.students[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListStudents(_ context.Context) ([]Student, error) {
	out := make([]Student, len(m.students))
	copy(out, m.students)
	return out, nil
}

func (m *mockStore) GetCourse(_ context.Context, code string) (*Course, error) {
	if m.failGetCourse {
		return nil, errors.New("mock store down")
	}
	for _, c := range m.courses {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListCourses(_ context.Context) ([]Course, error) {
	out := make([]Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockStore) SetCourseSession(_ context.Context, courseID, token string, expiry, date time.Time) error {
	for _, c := range m.courses {
		if c.ID == courseID {
			tok, exp, d := token, expiry, date
			c.CurrentQR, c.QRExpiry, c.QRDate = &tok, &exp, &d
			return nil
		}
	}
	return fmt.Errorf("course %s not found", courseID)
}

func (m *mockStore) UpsertPresent(_ context.Context, studentID, courseID string, date, markedAt time.Time) error {
	if m.failUpsert {
		return errors.New("mock store down")
	}
	key := recKey(studentID, courseID, date)
	if rec, ok := m.records[key]; ok {
		rec.Present = true
		at := markedAt
		rec.MarkedAt = &at
		return nil
	}
	at := markedAt
	m.records[key] = &Record{
		ID: key, StudentID: studentID, CourseID: courseID,
		Date: date, Present: true, MarkedAt: &at,
	}
	return nil
}

func (m *mockStore) ListStudentRecords(_ context.Context, studentID string) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *mockStore) ListPresentDates(_ context.Context, studentID, courseID string) ([]time.Time, error) {
	var out []time.Time
	for _, rec := range m.records {
		if rec.StudentID == studentID && rec.CourseID == courseID && rec.Present {
			out = append(out, rec.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *mockStore) CountPresent(_ context.Context, studentID, courseID string) (int, error) {
	n := 0
	for _, rec := range m.records {
		if rec.StudentID == studentID && rec.CourseID == courseID && rec.Present {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CountSessionDates(_ context.Context, courseID string) (int, error) {
	dates := map[string]bool{}
	for _, rec := range m.records {
		if rec.CourseID == courseID && rec.Present {
			dates[rec.Date.Format("2006-01-02")] = true
		}
	}
	return len(dates), nil
}

func (m *mockStore) DayRoster(_ context.Context, courseID string, date time.Time) ([]DayRosterEntry, error) {
	var out []DayRosterEntry
	for _, s := range m.students {
		e := DayRosterEntry{RollNumber: s.RollNumber}
		if rec, ok := m.records[recKey(s.ID, courseID, date)]; ok {
			e.Present = rec.Present
			e.MarkedAt = rec.MarkedAt
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockStore) ReplaceDay(_ context.Context, courseID string, date, markedAt time.Time, marks []DayMark) error {
	m.replaceCalls++
	for key, rec := range m.records {
		if rec.CourseID == courseID && rec.Date.Equal(date) {
			delete(m.records, key)
		}
	}
	for _, mk := range marks {
		at := markedAt
		key := recKey(mk.StudentID, courseID, date)
		m.records[key] = &Record{
			ID: key, StudentID: mk.StudentID, CourseID: courseID,
			Date: date, Present: mk.Present, MarkedAt: &at,
		}
	}
	return nil
}
