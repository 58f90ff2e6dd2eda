// ===========================================
// Package middleware - Security Headers
// ===========================================
// Sets HTTP headers that harden every API response.
// ===========================================

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders returns middleware that sets security headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// No MIME sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// No framing (clickjacking)
		c.Header("X-Frame-Options", "DENY")

		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// An API loads nothing
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only enable HSTS in production with proper HTTPS:
		// c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// The front-end asks for browser geolocation itself; the API never does.
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// Location answers are per client
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
		c.Header("Pragma", "no-cache")

		c.Next()
	}
}

// ===========================================
// CORS Configuration
// ===========================================
// The listing front-end runs on its own origin and calls this API
// from the browser.

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // Preflight cache duration in seconds
}

// DefaultCORSConfig returns the defaults for origins.
func DefaultCORSConfig(origins []string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-API-Key", ClientIDHeader},
		AllowCredentials: false, // never with "*"
		MaxAge:           86400,
	}
}

// CORS returns CORS middleware with the given config.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigin := ""
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == "*" || allowed == origin {
				allowedOrigin = allowed
				break
			}
		}

		if allowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
		}
		c.Header("Vary", "Origin")

		// Preflight
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)

			if cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}

			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
