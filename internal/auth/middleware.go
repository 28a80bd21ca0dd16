package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/prompttester/api/internal/httperr"
)

type contextKey string

const identityContextKey contextKey = "identity"

type Middleware struct {
	authenticator Authenticator
}

func NewMiddleware(authenticator Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Authenticate rejects requests without a resolvable bearer token and
// stores the identity in the request context for downstream handlers.
// All failure causes past a missing header collapse to one message.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httperr.Detail(w, http.StatusUnauthorized, "Authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httperr.Detail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		identity, err := m.authenticator.ResolveIdentity(r.Context(), parts[1])
		if err != nil {
			httperr.Detail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok
}
