package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/user/marketgeo/internal/models"
)

// CacheInvalidator drops cached pricing reference data.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// DetectionForgetter drops a client's stored detection.
type DetectionForgetter interface {
	Forget(ctx context.Context, clientKey string) error
}

// AdminHandler serves the API-key protected maintenance endpoints.
type AdminHandler struct {
	pricing   CacheInvalidator
	locations DetectionForgetter
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(pricing CacheInvalidator, locations DetectionForgetter) *AdminHandler {
	return &AdminHandler{pricing: pricing, locations: locations}
}

// ===========================================
// DELETE /api/admin/pricing/cache
// ===========================================
// Response: 204 No Content
func (h *AdminHandler) PurgePricingCache(c *gin.Context) {
	if err := h.pricing.InvalidateCache(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Cache unavailable",
			Code:  models.ErrCodeUnavailable,
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// ===========================================
// DELETE /api/admin/location/cache/:client
// ===========================================
// :client is a client key as the resolver stores it ("cid:<id>" or
// "ip:<address>"). A bare value is taken as a client ID.
//
// Response: 204 No Content
func (h *AdminHandler) PurgeDetection(c *gin.Context) {
	client := strings.TrimSpace(c.Param("client"))
	if client == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Missing client",
			Code:  models.ErrCodeInvalidInput,
		})
		return
	}
	if !strings.HasPrefix(client, "cid:") && !strings.HasPrefix(client, "ip:") {
		client = "cid:" + client
	}

	if err := h.locations.Forget(c.Request.Context(), client); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Detection store unavailable",
			Code:  models.ErrCodeUnavailable,
		})
		return
	}
	c.Status(http.StatusNoContent)
}
