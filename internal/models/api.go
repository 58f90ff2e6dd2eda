package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates admin calls. Only the hash of the key is stored.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	KeyHash    string     `json:"-"`
	Name       string     `json:"name"`
	RateLimit  int        `json:"rateLimit"` // requests per minute
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// ===========================================
// Error Response
// ===========================================

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ===========================================
// Health Check Response
// ===========================================

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status   string            `json:"status"`   // "healthy" or "unhealthy"
	Version  string            `json:"version"`  // application version
	Services map[string]string `json:"services"` // dependency health by check name
}
