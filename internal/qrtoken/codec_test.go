package qrtoken

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Session{
		IssuedAt:   1709280000,
		IssuerIP:   "192.168.1.10",
		CourseCode: "CSBB 252: Artificial Intelligence",
		ExpiresAt:  1709280120,
	}
	token := Encode(in)

	out, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestDecodeRejectsMalformedBase64(t *testing.T) {
	if _, err := Decode("not!!valid@@base64"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte("{'t': 1, broken"))
	if _, err := Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"no course": `{"t":1709280000,"ip":"10.0.0.1","e":1709280120}`,
		"no ip":     `{"t":1709280000,"c":"CSBB 251","e":1709280120}`,
		"no expiry": `{"t":1709280000,"ip":"10.0.0.1","c":"CSBB 251"}`,
		"no issued": `{"ip":"10.0.0.1","c":"CSBB 251","e":1709280120}`,
		"empty":     `{}`,
	}
	for name, payload := range cases {
		token := base64.URLEncoding.EncodeToString([]byte(payload))
		if _, err := Decode(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{IssuedAt: now.Unix() - 60, IssuerIP: "10.0.0.1", CourseCode: "CSBB 251", ExpiresAt: now.Unix() + 60}
	if s.Expired(now) {
		t.Fatal("session should still be valid")
	}
	if !s.Expired(now.Add(2 * time.Minute)) {
		t.Fatal("session should be expired")
	}
	// Expiry boundary: e == now is still valid; only now > e rejects.
	if s.Expired(time.Unix(s.ExpiresAt, 0)) {
		t.Fatal("session at exact expiry second should still be valid")
	}
}
