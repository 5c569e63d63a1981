package auth

import (
	"crypto/subtle"
	"errors"
)

const AdminTokenHeader = "X-TOKEN"

var ErrAdminDenied = errors.New("admin token mismatch")

// AdminGate admits a request when its header value equals the configured
// admin token. The token is fixed for the life of the process.
type AdminGate struct {
	token []byte
}

func NewAdminGate(token string) (*AdminGate, error) {
	if token == "" {
		return nil, errors.New("missing admin token")
	}
	return &AdminGate{token: []byte(token)}, nil
}

func (g *AdminGate) Admit(headerValue string) bool {
	return g.Check(headerValue) == nil
}

// Check compares in constant time. A missing header is just an empty value
// and is denied the same way as a wrong one.
func (g *AdminGate) Check(headerValue string) error {
	if subtle.ConstantTimeCompare([]byte(headerValue), g.token) != 1 {
		return ErrAdminDenied
	}
	return nil
}
