// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the API server.
package api

import "time"

// TokenResponse is the response body for a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse describes the authenticated caller.
type UserResponse struct {
	Username string `json:"username"`
}

// JobStatusResponse is the response body for upload and status queries.
type JobStatusResponse struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Progress   float64   `json:"progress"`
	PageCount  int       `json:"page_count,omitempty"`
	ResultPath string    `json:"result_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResultMetadata carries provenance for an extracted document.
type ResultMetadata struct {
	CreatedAt  time.Time `json:"created_at"`
	SourcePath string    `json:"source_path"`
	ResultPath string    `json:"result_path"`
	PageCount  int       `json:"page_count,omitempty"`
}

// JobResultResponse is the response body for a completed job's text.
type JobResultResponse struct {
	JobID    string         `json:"job_id"`
	Text     string         `json:"text"`
	Metadata ResultMetadata `json:"metadata"`
}

// MessageResponse is a plain informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for the liveness probe.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the standard error response format.
// Code is a machine-stable reason; Error is the human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Job status values as they appear on the wire.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Stable error reasons returned in ErrorResponse.Code.
const (
	ReasonValidation         = "validation_error"
	ReasonInvalidState       = "invalid_state"
	ReasonAuthentication     = "authentication_error"
	ReasonForbidden          = "forbidden"
	ReasonNotFound           = "not_found"
	ReasonEmptyResult        = "empty_result"
	ReasonPayloadTooLarge    = "payload_too_large"
	ReasonServiceUnavailable = "service_unavailable"
	ReasonInternal           = "internal_error"
)
