package attendance

import "time"

// Student is a seeded enrollee identified by roll number.
type Student struct {
	ID         string `json:"id"`
	RollNumber string `json:"roll_number"`
}

// Course holds at most one active QR session at a time. The three QR fields
// are written together when a session is issued and stay stale until the
// next issue; expiry is checked lazily, never purged.
type Course struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	CurrentQR *string    `json:"current_qr,omitempty"`
	QRExpiry  *time.Time `json:"qr_expiry,omitempty"`
	QRDate    *time.Time `json:"qr_date,omitempty"`
}

// Record is one attendance fact keyed by (student, course, date). A row
// with Present=false is a recorded absence; a missing row means no session
// was held for that student/course/date.
type Record struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	CourseID  string     `json:"course_id"`
	Date      time.Time  `json:"date"`
	Present   bool       `json:"present"`
	MarkedAt  *time.Time `json:"marked_at,omitempty"`
}

// DayStatus distinguishes a recorded absence from a day with no session.
type DayStatus string

const (
	StatusPresent DayStatus = "present"
	StatusAbsent  DayStatus = "absent"
	StatusNoClass DayStatus = "no-class"
)

// SessionInfo describes a freshly issued QR session.
type SessionInfo struct {
	CourseCode string    `json:"course_code"`
	Token      string    `json:"token"`
	Date       time.Time `json:"date"`
	Expiry     time.Time `json:"expiry"`
}

// Mark identifies a committed presence mark, for audit publishing.
type Mark struct {
	RollNumber string    `json:"roll_number"`
	CourseCode string    `json:"course_code"`
	Date       time.Time `json:"date"`
}

// CalendarDay is one cell of a student's month view.
type CalendarDay struct {
	Date   string    `json:"date"`
	Day    int       `json:"day"`
	Status DayStatus `json:"status"`
}

// CalendarMonth is a student's month view.
type CalendarMonth struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// MonthGroup buckets a student's present days within one month.
type MonthGroup struct {
	Label string `json:"label"`
	Days  []int  `json:"days"`
}

// CourseReport is a student's standing in one course.
type CourseReport struct {
	CourseCode string       `json:"course_code"`
	Total      int          `json:"total"`
	Attended   int          `json:"attended"`
	Percentage float64      `json:"percentage"`
	Months     []MonthGroup `json:"months"`
}

// StudentReport is the student-facing attendance page payload.
type StudentReport struct {
	RollNumber string         `json:"roll_number"`
	Calendar   CalendarMonth  `json:"calendar"`
	Courses    []CourseReport `json:"courses"`
}

// RosterEntry is one line of the teacher dashboard, per student.
type RosterEntry struct {
	RollNumber string  `json:"roll_number"`
	Total      int     `json:"total"`
	Attended   int     `json:"attended"`
	Percentage float64 `json:"percentage"`
}

// DayRosterEntry is one student's state for a single course date.
type DayRosterEntry struct {
	RollNumber string     `json:"roll_number"`
	Present    bool       `json:"present"`
	MarkedAt   *time.Time `json:"marked_at,omitempty"`
}
