package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompttester/api/internal/auth"
	"github.com/prompttester/api/internal/models"
	"github.com/prompttester/api/internal/openai"
	"github.com/prompttester/api/internal/ratelimit"
)

type stubAuthenticator struct {
	identity *auth.Identity
	err      error
}

func (s *stubAuthenticator) ResolveIdentity(ctx context.Context, token string) (*auth.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubGateway struct {
	resp    json.RawMessage
	err     error
	lastReq *openai.Request
	calls   int
}

func (g *stubGateway) Invoke(ctx context.Context, req *openai.Request) (json.RawMessage, error) {
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

// newTestRouter mirrors the wiring in cmd/server.
func newTestRouter(authenticator auth.Authenticator, limiter ratelimit.Limiter, gateway openai.Gateway) *mux.Router {
	router := mux.NewRouter()
	handler := NewHandler(limiter, gateway, nil)
	middleware := auth.NewMiddleware(authenticator)

	router.HandleFunc("/health", Health).Methods("GET")
	router.Handle("/invoke_model",
		middleware.Authenticate(http.HandlerFunc(handler.InvokeModel)),
	).Methods("POST")
	return router
}

func validAuthenticator() *stubAuthenticator {
	return &stubAuthenticator{identity: &auth.Identity{Subject: "user-123", Email: "user@example.com"}}
}

func invokeBody(model string, webSearch bool) string {
	return fmt.Sprintf(`{"prompt":"hello","model":"%s","temperature":0.7,"web_search":%v}`, model, webSearch)
}

func doInvoke(router *mux.Router, body string, withAuth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/invoke_model", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.Header.Set("Authorization", "Bearer token-abc")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInvokeModelMissingAuthorizationHeader(t *testing.T) {
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), &stubGateway{})

	rec := doInvoke(router, invokeBody("gpt-4o", false), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Authorization header missing"}`, rec.Body.String())
}

func TestInvokeModelInvalidToken(t *testing.T) {
	router := newTestRouter(&stubAuthenticator{err: auth.ErrInvalidToken},
		ratelimit.NewMemoryLimiter(10, time.Minute), &stubGateway{})

	rec := doInvoke(router, invokeBody("gpt-4o", false), true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid or expired token"}`, rec.Body.String())
}

func TestInvokeModelUnknownModel(t *testing.T) {
	gateway := &stubGateway{}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("not-a-real-model", false), true)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Detail,
		"Model 'not-a-real-model' is not found in the list of models. Allowed models: "))
	for _, model := range models.AllowedModels {
		assert.Contains(t, body.Detail, model)
	}
	assert.Zero(t, gateway.calls, "upstream must not be called for an unknown model")
}

func TestInvokeModelTemperatureOutOfRange(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(10, time.Minute)
	router := newTestRouter(validAuthenticator(), limiter, &stubGateway{})

	body := `{"prompt":"hello","model":"gpt-4o","temperature":2.5,"web_search":false}`
	rec := doInvoke(router, body, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The malformed attempt must not have consumed quota.
	allowed, err := limiter.Allow(context.Background(), "user-123")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestInvokeModelRateLimited(t *testing.T) {
	gateway := &stubGateway{resp: json.RawMessage(`{"ok":true}`)}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(1, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("gpt-4o", false), true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doInvoke(router, invokeBody("gpt-4o", false), true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"detail":"Rate limit exceeded. Maximum 1 requests per 60 seconds."}`, rec.Body.String())
	assert.Equal(t, 1, gateway.calls)
}

func TestInvokeModelUpstreamFailureIsGeneric(t *testing.T) {
	gateway := &stubGateway{err: errors.New("openai: status 503: secret upstream detail")}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("gpt-4o", false), true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Failed to process request with OpenAI"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret upstream detail")
}

func TestInvokeModelForwardsResponseVerbatim(t *testing.T) {
	upstream := `{"id":"resp_123","model":"gpt-4o","output":[{"type":"message","content":"hi"}]}`
	gateway := &stubGateway{resp: json.RawMessage(upstream)}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("gpt-4o", false), true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upstream, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestInvokeModelWebSearchTools(t *testing.T) {
	gateway := &stubGateway{resp: json.RawMessage(`{"ok":true}`)}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("gpt-4o", true), true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gateway.lastReq)
	require.Len(t, gateway.lastReq.Tools, 1)
	assert.Equal(t, openai.Tool{Type: "web_search_preview"}, gateway.lastReq.Tools[0])

	rec = doInvoke(router, invokeBody("gpt-4o", false), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gateway.lastReq.Tools)
}

func TestInvokeModelPassesPromptAndModelUpstream(t *testing.T) {
	gateway := &stubGateway{resp: json.RawMessage(`{"ok":true}`)}
	router := newTestRouter(validAuthenticator(), ratelimit.NewMemoryLimiter(10, time.Minute), gateway)

	rec := doInvoke(router, invokeBody("o3-mini", false), true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gateway.lastReq)
	assert.Equal(t, "o3-mini", gateway.lastReq.Model)
	assert.Equal(t, "hello", gateway.lastReq.Input)
}

func TestHealthNoAuthRequired(t *testing.T) {
	router := newTestRouter(&stubAuthenticator{err: auth.ErrInvalidToken},
		ratelimit.NewMemoryLimiter(10, time.Minute), &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)

	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err, "timestamp should be ISO-8601")
}
