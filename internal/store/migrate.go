package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// migration is one idempotent schema step. Steps only ever create objects
// if absent or add columns if absent, so replaying them is harmless; the
// schema_migrations table records the high-water mark anyway.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS students (
				id UUID PRIMARY KEY,
				roll_number TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS courses (
				id UUID PRIMARY KEY,
				code TEXT NOT NULL UNIQUE,
				current_qr TEXT,
				qr_expiry TIMESTAMPTZ
			)`,
			`CREATE TABLE IF NOT EXISTS attendance (
				id UUID PRIMARY KEY,
				student_id UUID NOT NULL REFERENCES students(id),
				course_id UUID NOT NULL REFERENCES courses(id),
				date DATE NOT NULL,
				present BOOLEAN NOT NULL DEFAULT FALSE,
				marked_at TIMESTAMPTZ,
				UNIQUE (student_id, course_id, date)
			)`,
		},
	},
	{
		// Older deployments predate the session date column.
		version: 2,
		stmts: []string{
			`ALTER TABLE courses ADD COLUMN IF NOT EXISTS qr_date DATE`,
		},
	},
	{
		version: 3,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS mark_events (
				id UUID PRIMARY KEY,
				roll_number TEXT NOT NULL,
				course_code TEXT NOT NULL,
				date DATE NOT NULL,
				source TEXT NOT NULL,
				occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
}

// Migrate brings the schema up to the current version and seeds reference
// data on an empty database.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.version <= int(current.Int64) {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		log.Printf("applied schema migration %d", m.version)
	}
	return nil
}

// Course and roll fixtures for a fresh install.
var seedCourses = []string{
	"CSBB 251: Computer Architecture and Organization",
	"CSBB 252: Artificial Intelligence",
	"CSBB 254: Software Engineering",
	"HMBB 251: Professional Communication",
	"ECBB 254: Communication Systems",
	"CSPB 200: Project II",
}

// SeedRolls returns the fixed contiguous roll-number range loaded on first boot.
func SeedRolls() []string {
	rolls := make([]string, 0, 33)
	for i := 66; i <= 98; i++ {
		rolls = append(rolls, fmt.Sprintf("2312100%02d", i))
	}
	return rolls
}

// SeedCourses returns the fixed course list loaded on first boot.
func SeedCourses() []string {
	out := make([]string, len(seedCourses))
	copy(out, seedCourses)
	return out
}

// Seed inserts the fixed course and student lists when their tables are
// empty. Existing rows are never touched.
func Seed(ctx context.Context, db *sql.DB, newID func() string) error {
	var courseCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&courseCount); err != nil {
		return fmt.Errorf("count courses: %w", err)
	}
	if courseCount == 0 {
		for _, code := range seedCourses {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO courses (id, code)
				VALUES ($1, $2)
				ON CONFLICT (code) DO NOTHING
			`, newID(), code); err != nil {
				return fmt.Errorf("seed course %q: %w", code, err)
			}
		}
		log.Printf("seeded %d courses", len(seedCourses))
	}

	var studentCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&studentCount); err != nil {
		return fmt.Errorf("count students: %w", err)
	}
	if studentCount == 0 {
		rolls := SeedRolls()
		for _, roll := range rolls {
			if _, err := db.ExecContext(ctx, `
				INSERT INTO students (id, roll_number)
				VALUES ($1, $2)
				ON CONFLICT (roll_number) DO NOTHING
			`, newID(), roll); err != nil {
				return fmt.Errorf("seed student %q: %w", roll, err)
			}
		}
		log.Printf("seeded %d students", len(rolls))
	}
	return nil
}
