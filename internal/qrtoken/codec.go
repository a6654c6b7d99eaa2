// Package qrtoken encodes and decodes the short-lived session descriptor
// carried inside a scannable attendance code. Tokens are opaque and
// reversible but carry no signature; they gate convenience, not security.
package qrtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidToken is returned for any token that cannot be decoded into a
// fully populated session. Decoding fails closed: a partially valid payload
// is never returned.
var ErrInvalidToken = errors.New("invalid token")

// Session is the payload embedded in a QR token.
type Session struct {
	IssuedAt   int64  `json:"t"`
	IssuerIP   string `json:"ip"`
	CourseCode string `json:"c"`
	ExpiresAt  int64  `json:"e"`
}

// Expired reports whether the session expiry lies before now.
func (s Session) Expired(now time.Time) bool {
	return now.Unix() > s.ExpiresAt
}

// Encode serializes a session into an opaque URL-safe token.
func Encode(s Session) string {
	raw, err := json.Marshal(s)
	if err != nil {
		// Session has only scalar fields; Marshal cannot fail.
		panic(err)
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// Decode parses a token back into a session. Malformed base64, malformed
// JSON, or a payload missing any required field yields ErrInvalidToken.
func Decode(token string) (Session, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, ErrInvalidToken
	}
	if s.IssuedAt <= 0 || s.ExpiresAt <= 0 || s.IssuerIP == "" || s.CourseCode == "" {
		return Session{}, ErrInvalidToken
	}
	return s, nil
}
