// ===========================================
// Package middleware - Rate Limiting
// ===========================================
// Location detection fans out to three paid-tier geolocation
// services, so unthrottled clients cost real quota.
//
// ALGORITHM: Fixed Window Counter
// Uses Redis INCR with expiration to count requests per minute.
//
// HOW IT WORKS:
// 1. Key = "ratelimit:{identifier}:{minute}"
// 2. INCR key → get current count
// 3. If count == 1, set expiry to the window size
// 4. If count > limit, reject with 429
// ===========================================

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/database"
	"github.com/user/marketgeo/internal/models"
	"github.com/user/marketgeo/internal/service"
)

// ClientIDHeader carries the front-end's stable client identifier.
const ClientIDHeader = "X-Client-ID"

// RateCounter increments the request counter of a window.
type RateCounter interface {
	IncrementRateLimit(ctx context.Context, key string, windowSize time.Duration) (int64, error)
}

// RateLimiter is the middleware for rate limiting.
type RateLimiter struct {
	counter      RateCounter
	defaultLimit int
	windowSize   time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewRateLimiter creates a new rate limiter middleware.
func NewRateLimiter(counter RateCounter, defaultLimit int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		counter:      counter,
		defaultLimit: defaultLimit,
		windowSize:   time.Minute,
		logger:       logger,
		now:          time.Now,
	}
}

// Middleware returns the Gin middleware handler.
//
// Request flows through: RateLimit → Auth → Handler
// Response flows back:    Handler → Auth → RateLimit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Step 1: Determine rate limit
		limit := rl.defaultLimit
		identifier := ClientKey(c)

		// Keyed callers get their own limit
		if key := GetAPIKeyFromContext(c); key != nil && key.RateLimit > 0 {
			limit = key.RateLimit
			identifier = "key:" + key.ID.String()
		}

		// Step 2: Get current window
		window := rl.now().Truncate(rl.windowSize)
		key := database.RateLimitKey(identifier, window)

		// Step 3: Increment counter
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.counter.IncrementRateLimit(ctx, key, rl.windowSize)
		if err != nil {
			// Fail open
			rl.logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		// Step 4: Set rate limit headers
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max(0, limit-int(count))))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", window.Add(rl.windowSize).Unix()))

		// Step 5: Check if over limit
		if int(count) > limit {
			retryAfter := int((rl.windowSize - rl.now().Sub(window)).Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))

			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "Rate limit exceeded",
				Code:    models.ErrCodeRateLimited,
				Details: fmt.Sprintf("Try again in %d seconds", retryAfter),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ===========================================
// Client Identification
// ===========================================

// ClientIP returns the caller's IP address, honouring X-Forwarded-For
// and X-Real-IP.
//
// SECURITY NOTE:
// X-Forwarded-For can be spoofed! Only trust it behind a trusted proxy.
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		// "client, proxy1, proxy2": the first one is the original client
		ips := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}

	return c.ClientIP()
}

// ClientKey identifies the calling client: its X-Client-ID when usable,
// otherwise its IP. The same key scopes rate limits and stored detections.
func ClientKey(c *gin.Context) string {
	return service.ClientKey(c.GetHeader(ClientIDHeader), ClientIP(c))
}
