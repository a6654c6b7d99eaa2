package attendance

import "errors"

// Submission outcome taxonomy. Every QR submission terminates in exactly one
// of these (or succeeds); handlers turn them into user-facing messages and
// tests assert on them with errors.Is.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrInvalidToken    = errors.New("invalid qr token")
	ErrTokenExpired    = errors.New("qr token expired")
	ErrNetworkMismatch = errors.New("not on the issuer network")
	ErrProcessing      = errors.New("error processing submission")
)
