package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/prompttester/api/internal/auth"
	"github.com/prompttester/api/internal/db"
	"github.com/prompttester/api/internal/httperr"
	"github.com/prompttester/api/internal/models"
	"github.com/prompttester/api/internal/openai"
	"github.com/prompttester/api/internal/ratelimit"
)

// Handler orchestrates /invoke_model: identity from the auth
// middleware, quota check, model validation, then a single pass-through
// call upstream. The limiter and gateway are injected so both can be
// swapped without touching this flow.
type Handler struct {
	limiter    ratelimit.Limiter
	gateway    openai.Gateway
	requestLog *db.DB // optional, nil disables audit records
}

func NewHandler(limiter ratelimit.Limiter, gateway openai.Gateway, requestLog *db.DB) *Handler {
	return &Handler{
		limiter:    limiter,
		gateway:    gateway,
		requestLog: requestLog,
	}
}

func (h *Handler) InvokeModel(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httperr.Detail(w, http.StatusUnauthorized, "Authorization header missing")
		return
	}

	var req models.ModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Payload-shape failures never consume quota.
	if req.Temperature < 0 || req.Temperature > 2 {
		httperr.Detail(w, http.StatusBadRequest, "Temperature must be between 0 and 2")
		return
	}

	allowed, err := h.limiter.Allow(r.Context(), identity.Subject)
	if err != nil {
		log.Errorf("Rate limit check failed: %v", err)
		httperr.Detail(w, http.StatusInternalServerError, "Rate limit check failed")
		return
	}
	if !allowed {
		log.Warnf("Rate limit exceeded for user %s", identity.Email)
		detail := fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %d seconds.",
			h.limiter.Limit(), int(h.limiter.Window().Seconds()))
		httperr.Detail(w, http.StatusTooManyRequests, detail)
		h.record(identity, req.Model, http.StatusTooManyRequests, startTime)
		return
	}

	log.Infof("Model request received from user %s - Model: %s, temperature: %v, web search: %v",
		identity.Email, req.Model, req.Temperature, req.WebSearch)

	if !models.IsAllowedModel(req.Model) {
		detail := fmt.Sprintf("Model '%s' is not found in the list of models. Allowed models: %s",
			req.Model, strings.Join(models.AllowedModels, ", "))
		log.Error(detail)
		httperr.Detail(w, http.StatusBadRequest, detail)
		h.record(identity, req.Model, http.StatusBadRequest, startTime)
		return
	}

	log.Infof("Making OpenAI API call with model: %s", req.Model)

	var tools []openai.Tool
	if req.WebSearch {
		tools = []openai.Tool{{Type: "web_search_preview"}}
	}

	resp, err := h.gateway.Invoke(r.Context(), &openai.Request{
		Model: req.Model,
		Input: req.Prompt,
		Tools: tools,
	})
	if err != nil {
		// The raw upstream error stays in the server log; callers only
		// ever see the generic message.
		log.Errorf("OpenAI API call failed: %v", err)
		httperr.Detail(w, http.StatusInternalServerError, "Failed to process request with OpenAI")
		h.record(identity, req.Model, http.StatusInternalServerError, startTime)
		return
	}

	log.Infof("OpenAI API call successful for model: %s", req.Model)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)

	h.record(identity, req.Model, http.StatusOK, startTime)
}

// Usage returns the caller's most recent audit records. Registered only
// when a database is configured.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httperr.Detail(w, http.StatusUnauthorized, "Authorization header missing")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			httperr.Detail(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	logs, err := h.requestLog.RecentRequests(r.Context(), identity.Subject, limit)
	if err != nil {
		log.Errorf("Usage lookup failed: %v", err)
		httperr.Detail(w, http.StatusInternalServerError, "Failed to load usage history")
		return
	}
	if logs == nil {
		logs = []models.RequestLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

func Health(w http.ResponseWriter, r *http.Request) {
	log.Info("Health check requested")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) record(identity *auth.Identity, model string, statusCode int, startTime time.Time) {
	if h.requestLog == nil {
		return
	}

	entry := &models.RequestLog{
		UserID:         identity.Subject,
		Email:          identity.Email,
		Model:          model,
		StatusCode:     statusCode,
		ResponseTimeMs: int(time.Since(startTime).Milliseconds()),
	}

	go func() {
		if err := h.requestLog.LogRequest(context.Background(), entry); err != nil {
			log.Errorf("Failed to record request log: %v", err)
		}
	}()
}
