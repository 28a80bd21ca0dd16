package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// JWTAuthenticator verifies Supabase access tokens locally. Supabase
// signs them with HS256 and the project JWT secret, so no round-trip to
// the auth API is needed per request.
type JWTAuthenticator struct {
	secret string
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

func (a *JWTAuthenticator) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		log.Warnf("Token verification failed: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		log.Warn("Invalid token - no user found")
		return nil, ErrInvalidToken
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
