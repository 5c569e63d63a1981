package captcha

import "errors"

// Cause says which stage of the challenge check failed.
type Cause int

const (
	Missing Cause = iota + 1
	InsufficientInformation
	Invalid
)

func (c Cause) String() string {
	switch c {
	case Missing:
		return "missing hCaptcha challenge response header"
	case InsufficientInformation:
		return "insufficient information to verify hCaptcha challenge"
	case Invalid:
		return "invalid hCaptcha challenge response header"
	default:
		return "unknown hCaptcha failure"
	}
}

// Error is returned by Verify. Err holds the diagnostic, which is for logs only.
type Error struct {
	Cause Cause
	Err   error
}

func (e *Error) Error() string { return e.Cause.String() }

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrNoClientAddr = errors.New("no client address available")
	ErrRejected     = errors.New("siteverify rejected the response")
)
