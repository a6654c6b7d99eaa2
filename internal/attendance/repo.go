package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists the attendance ledger in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetStudent returns a student by roll number, nil when absent.
func (r *Repository) GetStudent(ctx context.Context, rollNumber string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_number FROM students WHERE roll_number = $1
	`, rollNumber)
	var s Student
	if err := row.Scan(&s.ID, &s.RollNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListStudents returns every seeded student ordered by roll number.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, roll_number FROM students ORDER BY roll_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.RollNumber); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetCourse returns a course by code, nil when absent.
func (r *Repository) GetCourse(ctx context.Context, code string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, current_qr, qr_expiry, qr_date FROM courses WHERE code = $1
	`, code)
	var c Course
	if err := row.Scan(&c.ID, &c.Code, &c.CurrentQR, &c.QRExpiry, &c.QRDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListCourses returns all courses ordered by code.
func (r *Repository) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, current_qr, qr_expiry, qr_date FROM courses ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.CurrentQR, &c.QRExpiry, &c.QRDate); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// SetCourseSession overwrites a course's active QR session. Token, expiry
// and session date always change together; stale values stay until the next
// issue overwrites them.
func (r *Repository) SetCourseSession(ctx context.Context, courseID, token string, expiry, date time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE courses SET current_qr = $2, qr_expiry = $3, qr_date = $4 WHERE id = $1
	`, courseID, token, expiry, date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("course %s not found", courseID)
	}
	return nil
}

// UpsertPresent marks a (student, course, date) triple present. The unique
// constraint on the triple makes concurrent submissions collapse into a
// single row; the second writer refreshes marked_at instead of duplicating.
func (r *Repository) UpsertPresent(ctx context.Context, studentID, courseID string, date, markedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, course_id, date, present, marked_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (student_id, course_id, date) DO UPDATE
		SET present = TRUE, marked_at = EXCLUDED.marked_at
	`, uuid.NewString(), studentID, courseID, date, markedAt)
	return err
}

// ListStudentRecords returns all attendance rows for a student across
// courses, the input for the calendar view.
func (r *Repository) ListStudentRecords(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, course_id, date, present, marked_at
		FROM attendance WHERE student_id = $1 ORDER BY date
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.CourseID, &rec.Date, &rec.Present, &rec.MarkedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListPresentDates returns the dates a student was present in a course,
// ascending.
func (r *Repository) ListPresentDates(ctx context.Context, studentID, courseID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date FROM attendance
		WHERE student_id = $1 AND course_id = $2 AND present = TRUE
		ORDER BY date
	`, studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// CountPresent returns how many sessions of a course a student attended.
func (r *Repository) CountPresent(ctx context.Context, studentID, courseID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE student_id = $1 AND course_id = $2 AND present = TRUE
	`, studentID, courseID).Scan(&n)
	return n, err
}

// CountSessionDates returns how many distinct dates a course held a session
// on, defined as dates where at least one student was present.
func (r *Repository) CountSessionDates(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date) FROM attendance
		WHERE course_id = $1 AND present = TRUE
	`, courseID).Scan(&n)
	return n, err
}

// DayRoster returns every student's state for one course date. Students
// without a row show as absent with no marked time.
func (r *Repository) DayRoster(ctx context.Context, courseID string, date time.Time) ([]DayRosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.roll_number, COALESCE(a.present, FALSE), a.marked_at
		FROM students s
		LEFT JOIN attendance a
			ON a.student_id = s.id AND a.course_id = $1 AND a.date = $2
		ORDER BY s.roll_number
	`, courseID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []DayRosterEntry
	for rows.Next() {
		var e DayRosterEntry
		if err := rows.Scan(&e.RollNumber, &e.Present, &e.MarkedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DayMark pairs a student with a presence flag for ReplaceDay.
type DayMark struct {
	StudentID string
	Present   bool
}

// ReplaceDay rewrites a course's roster for one date: all existing rows for
// (course, date) go, one fresh row per student comes in. Runs in a single
// transaction so readers never observe the emptied intermediate state.
// marked_at is stamped on every row, absences included; only the QR path
// reserves the stamp for presence.
func (r *Repository) ReplaceDay(ctx context.Context, courseID string, date, markedAt time.Time, marks []DayMark) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attendance WHERE course_id = $1 AND date = $2
	`, courseID, date); err != nil {
		return err
	}
	for _, m := range marks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, student_id, course_id, date, present, marked_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), m.StudentID, courseID, date, m.Present, markedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertMarkEvent appends an audit row for a committed mark.
func (r *Repository) InsertMarkEvent(ctx context.Context, rollNumber, courseCode string, date time.Time, source string, occurredAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mark_events (id, roll_number, course_code, date, source, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), rollNumber, courseCode, date, source, occurredAt)
	return err
}
