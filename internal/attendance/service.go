package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"classattend/internal/qrtoken"
)

// Store is the persistence surface the service needs. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	GetStudent(ctx context.Context, rollNumber string) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	GetCourse(ctx context.Context, code string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	SetCourseSession(ctx context.Context, courseID, token string, expiry, date time.Time) error
	UpsertPresent(ctx context.Context, studentID, courseID string, date, markedAt time.Time) error
	ListStudentRecords(ctx context.Context, studentID string) ([]Record, error)
	ListPresentDates(ctx context.Context, studentID, courseID string) ([]time.Time, error)
	CountPresent(ctx context.Context, studentID, courseID string) (int, error)
	CountSessionDates(ctx context.Context, courseID string) (int, error)
	DayRoster(ctx context.Context, courseID string, date time.Time) ([]DayRosterEntry, error)
	ReplaceDay(ctx context.Context, courseID string, date, markedAt time.Time, marks []DayMark) error
}

// Service coordinates QR sessions, submissions, manual edits and reports.
type Service struct {
	store           Store
	defaultValidity time.Duration
	now             func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store Store, defaultValidity time.Duration) *Service {
	if defaultValidity <= 0 {
		defaultValidity = 2 * time.Minute
	}
	return &Service{store: store, defaultValidity: defaultValidity, now: time.Now}
}

// IssueSession opens a time-boxed QR session for a course, replacing any
// prior one. At most one session is active per course.
func (s *Service) IssueSession(ctx context.Context, courseCode string, date time.Time, validity time.Duration, issuerIP string) (SessionInfo, error) {
	c, err := s.store.GetCourse(ctx, courseCode)
	if err != nil {
		return SessionInfo{}, err
	}
	if c == nil {
		return SessionInfo{}, ErrCourseNotFound
	}
	if validity <= 0 {
		validity = s.defaultValidity
	}
	now := s.now()
	expiry := now.Add(validity)
	day := dateOnly(date)

	token := qrtoken.Encode(qrtoken.Session{
		IssuedAt:   now.Unix(),
		IssuerIP:   issuerIP,
		CourseCode: courseCode,
		ExpiresAt:  expiry.Unix(),
	})
	if err := s.store.SetCourseSession(ctx, c.ID, token, expiry, day); err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{CourseCode: courseCode, Token: token, Date: day, Expiry: expiry}, nil
}

// SessionImage renders the course's active session token as a PNG QR code.
// An expired or never-issued session yields a nil image; the stale fields
// stay stored but render nothing.
func (s *Service) SessionImage(ctx context.Context, courseCode string) ([]byte, *Course, error) {
	c, err := s.store.GetCourse(ctx, courseCode)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, ErrCourseNotFound
	}
	if c.CurrentQR == nil || c.QRExpiry == nil || !c.QRExpiry.After(s.now()) {
		return nil, c, nil
	}
	png, err := qrcode.Encode(*c.CurrentQR, qrcode.Medium, 256)
	if err != nil {
		return nil, nil, err
	}
	return png, c, nil
}

// SubmitQR runs the student submission state machine. Outcomes are the
// sentinel errors in errors.go; unexpected failures past token decoding
// collapse into ErrProcessing so the caller never sees a partial commit.
func (s *Service) SubmitQR(ctx context.Context, rollNumber, token, submitterIP string) (Mark, error) {
	st, err := s.store.GetStudent(ctx, rollNumber)
	if err != nil {
		return Mark{}, err
	}
	if st == nil {
		return Mark{}, ErrStudentNotFound
	}

	sess, err := qrtoken.Decode(token)
	if err != nil {
		return Mark{}, ErrInvalidToken
	}
	now := s.now()
	if sess.Expired(now) {
		return Mark{}, ErrTokenExpired
	}
	if !qrtoken.SameLocalNetwork(submitterIP, sess.IssuerIP) {
		return Mark{}, ErrNetworkMismatch
	}

	c, err := s.store.GetCourse(ctx, sess.CourseCode)
	if err != nil {
		return Mark{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	if c == nil {
		return Mark{}, ErrCourseNotFound
	}
	if c.QRDate == nil {
		// Token references a course that never stored a session date.
		return Mark{}, fmt.Errorf("%w: course %s has no session date", ErrProcessing, c.Code)
	}

	day := dateOnly(*c.QRDate)
	if err := s.store.UpsertPresent(ctx, st.ID, c.ID, day, now); err != nil {
		return Mark{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	return Mark{RollNumber: rollNumber, CourseCode: c.Code, Date: day}, nil
}

// SetDayRoster replaces a course's roster for one date with the given set
// of present roll numbers. Every seeded student gets a fresh row; unknown
// rolls in the set are ignored. Returns the marks for the present students.
func (s *Service) SetDayRoster(ctx context.Context, courseCode string, date time.Time, presentRolls []string) ([]Mark, error) {
	c, err := s.store.GetCourse(ctx, courseCode)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(presentRolls))
	for _, roll := range presentRolls {
		present[roll] = true
	}

	day := dateOnly(date)
	now := s.now()
	marks := make([]DayMark, 0, len(students))
	var committed []Mark
	for _, st := range students {
		p := present[st.RollNumber]
		marks = append(marks, DayMark{StudentID: st.ID, Present: p})
		if p {
			committed = append(committed, Mark{RollNumber: st.RollNumber, CourseCode: courseCode, Date: day})
		}
	}
	if err := s.store.ReplaceDay(ctx, c.ID, day, now, marks); err != nil {
		return nil, err
	}
	return committed, nil
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
