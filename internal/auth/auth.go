package auth

import (
	"context"
	"errors"
)

// Identity is the resolved caller behind a bearer token. Subject is the
// stable user id and the only value used as a rate-limit key.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// ErrInvalidToken covers every resolution failure: malformed tokens,
// expired sessions, and errors reaching the identity provider. Callers
// are never told which.
var ErrInvalidToken = errors.New("invalid or expired token")

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	ResolveIdentity(ctx context.Context, token string) (*Identity, error)
}
