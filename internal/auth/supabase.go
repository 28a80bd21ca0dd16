package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// SupabaseAuthenticator verifies access tokens by asking the Supabase
// auth API which user they belong to.
type SupabaseAuthenticator struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewSupabaseAuthenticator(baseURL, anonKey string) *SupabaseAuthenticator {
	return &SupabaseAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *SupabaseAuthenticator) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		log.Warnf("Token verification failed: %v", err)
		return nil, ErrInvalidToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.anonKey)

	resp, err := a.client.Do(req)
	if err != nil {
		log.Warnf("Token verification failed: %v", err)
		return nil, ErrInvalidToken
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Token verification failed: status %d", resp.StatusCode)
		return nil, ErrInvalidToken
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		log.Warnf("Token verification failed: %v", err)
		return nil, ErrInvalidToken
	}

	if user.ID == "" {
		log.Warn("Invalid token - no user found")
		return nil, ErrInvalidToken
	}

	return &Identity{Subject: user.ID, Email: user.Email}, nil
}
