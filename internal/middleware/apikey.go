// ===========================================
// Package middleware - API Key Authentication
// ===========================================
// Guards the admin endpoints (cache purges).
//
// FLOW:
// 1. Extract API key from request header
// 2. Validate it (the service hashes it, plain keys are never stored)
// 3. If valid, attach key info to request context
// 4. If invalid, return 401 Unauthorized
//
// Never log raw API keys.
// ===========================================

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/models"
)

// apiKeyContextKey is where RequireKey stores the validated key.
const apiKeyContextKey = "api_key"

// KeyValidator resolves a raw API key to its stored record. A nil key
// with a nil error means the key is unknown.
type KeyValidator interface {
	ValidateKey(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// APIKeyAuth is the middleware for API key authentication.
type APIKeyAuth struct {
	validator KeyValidator
	logger    *zap.Logger
}

// NewAPIKeyAuth creates a new API key auth middleware.
func NewAPIKeyAuth(validator KeyValidator, logger *zap.Logger) *APIKeyAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKeyAuth{validator: validator, logger: logger}
}

// RequireKey returns middleware that requires a valid API key.
// Requests without valid keys are rejected with 401.
func (a *APIKeyAuth) RequireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey, err := a.extractAndValidate(c)
		if err != nil {
			if _, ok := err.(APIKeyError); !ok {
				a.logger.Error("api key validation failed", zap.Error(err))
			}
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid or missing API key",
				Code:  models.ErrCodeUnauthorized,
			})
			c.Abort()
			return
		}

		c.Set(apiKeyContextKey, apiKey)
		c.Next()
	}
}

// OptionalKey returns middleware that validates an API key if present.
// Requests without keys are allowed to proceed; a valid key lifts the
// caller onto its own rate limit.
func (a *APIKeyAuth) OptionalKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey, _ := a.extractAndValidate(c)
		if apiKey != nil {
			c.Set(apiKeyContextKey, apiKey)
		}
		c.Next()
	}
}

// extractAndValidate extracts and validates the API key from the request.
// Returns nil if no key is present or key is invalid.
func (a *APIKeyAuth) extractAndValidate(c *gin.Context) (*models.APIKey, error) {
	// Extract key from header
	rawKey := a.extractKey(c)
	if rawKey == "" {
		return nil, ErrMissingAPIKey
	}

	// Validate with timeout
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	apiKey, err := a.validator.ValidateKey(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrInvalidAPIKey
	}

	return apiKey, nil
}

// extractKey gets the API key from the X-API-Key header or an
// "Authorization: Bearer" header. Query parameters are not accepted.
func (a *APIKeyAuth) extractKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}

	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}

	return ""
}

// Error types for API key validation
var (
	ErrMissingAPIKey = APIKeyError{Message: "API key is required"}
	ErrInvalidAPIKey = APIKeyError{Message: "API key is invalid"}
)

// APIKeyError represents an authentication error.
type APIKeyError struct {
	Message string
}

func (e APIKeyError) Error() string {
	return e.Message
}

// ===========================================
// Context Helpers
// ===========================================

// GetAPIKeyFromContext retrieves the validated API key from context.
// Returns nil if no key was validated.
func GetAPIKeyFromContext(c *gin.Context) *models.APIKey {
	if val, exists := c.Get(apiKeyContextKey); exists {
		if key, ok := val.(*models.APIKey); ok {
			return key
		}
	}
	return nil
}
