package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	token, exp, err := Issue("231210066", RoleStudent, "classattend", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	claims, err := Parse(token, "secret", "classattend")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "231210066" || claims.Role != RoleStudent {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("CSBB 251", RoleTeacher, "classattend", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(token, "other-secret", "classattend"); err == nil {
		t.Fatal("want error for wrong signing key")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, _, err := Issue("CSBB 251", RoleTeacher, "someone-else", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(token, "secret", "classattend"); err == nil {
		t.Fatal("want error for issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("231210066", RoleStudent, "classattend", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(token, "secret", "classattend"); err == nil {
		t.Fatal("want error for expired token")
	}
}
