package models

import "time"

// AllowedModels is the fixed set of model identifiers accepted by
// /invoke_model. Read-only after startup.
var AllowedModels = []string{
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4.1-nano",
	"gpt-4.5-preview",
	// Reasoning
	"o1-preview",
	"o1-mini",
	"o1",
	"o3-mini",
	"o3",
	"o3-pro",
	"o4-mini",
	"gpt-5",
	"gpt-5-mini",
	"gpt-5-nano",
}

func IsAllowedModel(model string) bool {
	for _, m := range AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// ModelRequest is the /invoke_model payload. Temperature must lie in
// [0, 2]; WebSearch toggles the upstream web-search tool.
type ModelRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	WebSearch   bool    `json:"web_search"`
}

// RequestLog is one audit record per /invoke_model outcome, written to
// Postgres when a database is configured.
type RequestLog struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Model          string    `json:"model"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}
