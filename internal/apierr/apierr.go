// Package apierr is the closed set of errors a client can observe.
//
// Store and verifier failures are turned into an *Error by Classify exactly
// once, at the HTTP boundary. The client only ever sees Kind's status and
// message; the wrapped cause is kept for server-side logs.
package apierr

import (
	"net/http"

	"askbox/internal/captcha"
)

type Kind int

const (
	InvalidRequest Kind = iota
	NotFound
	Duplicate
	PermissionDenied // reserved
	ChallengeFailure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Duplicate:
		return "duplicate"
	case PermissionDenied:
		return "permission_denied"
	case ChallengeFailure:
		return "challenge_failure"
	default:
		return "invalid_request"
	}
}

func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Duplicate:
		return http.StatusConflict
	case PermissionDenied, ChallengeFailure:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func (k Kind) message() string {
	switch k {
	case NotFound:
		return "request resource not found"
	case Duplicate:
		return "try to create already exists resource"
	case PermissionDenied:
		return "permission is not sufficient to execute request"
	case ChallengeFailure:
		return "captcha challenge failed"
	default:
		return "invalid request"
	}
}

type Error struct {
	Kind Kind
	// Challenge is set for ChallengeFailure only.
	Challenge captcha.Cause
	cause     error
}

func New(kind Kind) *Error { return &Error{Kind: kind} }

func (e *Error) Error() string {
	if e.Kind == ChallengeFailure {
		return e.Kind.message() + ", " + e.Challenge.String()
	}
	return e.Kind.message()
}

func (e *Error) Status() int { return e.Kind.Status() }

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind, so errors.Is(err, apierr.New(apierr.NotFound)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (e.Kind != ChallengeFailure || t.Challenge == 0 || t.Challenge == e.Challenge)
}

// Body is the JSON shape of every classified error response.
type Body struct {
	Err string `json:"err"`
}

func (e *Error) Body() Body { return Body{Err: e.Error()} }
