package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/marketgeo/internal/models"
	"github.com/user/marketgeo/internal/service"
)

// PricingQuoter is what the pricing endpoints need from the service layer.
type PricingQuoter interface {
	ListPageTypes(ctx context.Context) ([]models.PageType, error)
	ListImagePlans(ctx context.Context) ([]models.PricingPlan, error)
	Quote(ctx context.Context, req models.QuoteRequest) (*models.CostBreakdown, error)
}

// PricingHandler serves page types, image plans and quotes.
type PricingHandler struct {
	pricing PricingQuoter
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(pricing PricingQuoter) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// ===========================================
// GET /api/pageType
// ===========================================
func (h *PricingHandler) ListPageTypes(c *gin.Context) {
	pageTypes, err := h.pricing.ListPageTypes(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PageTypesResponse{PageTypes: nonNil(pageTypes)})
}

// ===========================================
// GET /api/pagetype/imageprice
// ===========================================
func (h *PricingHandler) ListImagePlans(c *gin.Context) {
	plans, err := h.pricing.ListImagePlans(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ImagePlansResponse{Plans: nonNil(plans)})
}

// ===========================================
// POST /api/pagetype/quote
// ===========================================
// Prices a page.
//
// Request:
//
//	{
//	  "pageTypeId": "3f9b7c1a-8e2d-4b5a-a6c7-1d2e3f4a5b02",
//	  "imageCount": 7,
//	  "location": "Sri Lanka"
//	}
//
// Response (200): a CostBreakdown. Missing image plans still return 200
// with "degraded": true.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Code:    models.ErrCodeInvalidInput,
			Details: err.Error(),
		})
		return
	}

	breakdown, err := h.pricing.Quote(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// ===========================================
// Error Handling
// ===========================================
// Anything that is not a caller mistake is a backend outage here:
// reference data lives in Postgres and Redis.
func (h *PricingHandler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrInvalidPageTypeID):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid page type id",
			Code:    models.ErrCodeInvalidInput,
			Details: "pageTypeId must be a UUID",
		})
	case errors.Is(err, service.ErrPageTypeNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Page type not found",
			Code:  models.ErrCodeNotFound,
		})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads this.
		c.Status(499)
	default:
		// SECURITY: Don't expose internal error details!
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Pricing data unavailable",
			Code:  models.ErrCodeUnavailable,
		})
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
