package store

import "testing"

func TestSeedRolls(t *testing.T) {
	rolls := SeedRolls()
	if len(rolls) != 33 {
		t.Fatalf("want 33 rolls, got %d", len(rolls))
	}
	if rolls[0] != "231210066" {
		t.Fatalf("first roll = %q", rolls[0])
	}
	if rolls[len(rolls)-1] != "231210098" {
		t.Fatalf("last roll = %q", rolls[len(rolls)-1])
	}
	seen := map[string]bool{}
	for _, r := range rolls {
		if seen[r] {
			t.Fatalf("duplicate roll %q", r)
		}
		seen[r] = true
	}
}

func TestSeedCoursesIsCopy(t *testing.T) {
	a := SeedCourses()
	if len(a) != 6 {
		t.Fatalf("want 6 courses, got %d", len(a))
	}
	a[0] = "mutated"
	if SeedCourses()[0] == "mutated" {
		t.Fatal("SeedCourses must return a copy")
	}
}

func TestMigrationsAreOrdered(t *testing.T) {
	for i, m := range migrations {
		if m.version != i+1 {
			t.Fatalf("migration %d has version %d", i, m.version)
		}
		if len(m.stmts) == 0 {
			t.Fatalf("migration %d has no statements", m.version)
		}
	}
}
