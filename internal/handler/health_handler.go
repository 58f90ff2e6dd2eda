package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/marketgeo/internal/models"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Health(ctx context.Context) error
}

// DependencyCheck names a dependency as it appears in health payloads.
type DependencyCheck struct {
	Name   string
	Pinger Pinger
}

// Check pairs a dependency with the name it is reported under.
func Check(name string, p Pinger) DependencyCheck {
	return DependencyCheck{Name: name, Pinger: p}
}

// Names the server reports its dependencies under.
const (
	CheckPricingStore   = "pricing_store"   // page types and image plans in Postgres
	CheckPricingCache   = "pricing_cache"   // cached reference data and rate limits in Redis
	CheckDetectionStore = "detection_store" // per-client country detections
)

// HealthHandler serves liveness, readiness and the detailed health report.
// Liveness never touches dependencies.
type HealthHandler struct {
	checks  []DependencyCheck
	version string
}

// NewHealthHandler creates a health handler that runs checks in order.
func NewHealthHandler(version string, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

// run pings every dependency and reports each by name.
func (h *HealthHandler) run(ctx context.Context, detailed bool) (map[string]string, bool) {
	services := make(map[string]string, len(h.checks))
	healthy := true
	for _, check := range h.checks {
		if err := check.Pinger.Health(ctx); err != nil {
			healthy = false
			if detailed {
				services[check.Name] = "error: " + err.Error()
			} else {
				services[check.Name] = "unavailable"
			}
			continue
		}
		services[check.Name] = "ok"
	}
	return services, healthy
}

// ===========================================
// GET /health
// ===========================================
// Response (200 - healthy):
//
//	{
//	  "status": "healthy",
//	  "version": "1.0.0",
//	  "services": {
//	    "pricing_store": "ok",
//	    "pricing_cache": "ok",
//	    "detection_store": "ok"
//	  }
//	}
//
// Response (503): "status": "unhealthy" and the failing dependency
// carries "error: <reason>".
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services, healthy := h.run(ctx, true)
	h.respond(c, services, healthy, "healthy", "unhealthy")
}

// ===========================================
// GET /ready
// ===========================================
// Same shape as /health with "ready"/"not_ready", without error text.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services, healthy := h.run(ctx, false)
	h.respond(c, services, healthy, "ready", "not_ready")
}

// ===========================================
// GET /live
// ===========================================
func (h *HealthHandler) Live(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *HealthHandler) respond(c *gin.Context, services map[string]string, healthy bool, up, down string) {
	response := models.HealthResponse{
		Status:   up,
		Version:  h.version,
		Services: services,
	}
	if !healthy {
		response.Status = down
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
