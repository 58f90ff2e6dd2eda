// ===========================================
// Package handler - HTTP Request Handlers
// ===========================================
// Handlers are the entry point for HTTP requests.
// They are "thin" - minimal logic, mostly:
// 1. Parse request
// 2. Validate input
// 3. Call service
// 4. Format response
// ===========================================

package handler

import (
	"context"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/user/marketgeo/internal/middleware"
	"github.com/user/marketgeo/internal/models"
)

// LocationResolver is what the location endpoints need from the service layer.
type LocationResolver interface {
	Resolve(ctx context.Context, req models.LocationRequest) models.LocationOutcome
	ResolveSlug(input string) models.SlugResponse
	Countries() models.CountriesResponse
}

// CurrencyDeriver maps a free-text location to a currency.
type CurrencyDeriver interface {
	Currency(location string) models.CurrencyConfig
}

// LocationHandler handles country detection requests.
type LocationHandler struct {
	locations  LocationResolver
	currencies CurrencyDeriver
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(locations LocationResolver, currencies CurrencyDeriver) *LocationHandler {
	return &LocationHandler{locations: locations, currencies: currencies}
}

// ===========================================
// GET /api/location?path=&ip=
// ===========================================
// Resolves the caller's country slug. Never fails: when detection is
// impossible the default slug comes back with source "default".
//
// Response (200):
//
//	{
//	  "countrySlug": "australia",
//	  "source": "provider",
//	  "detectedAt": "2025-06-01T10:00:00Z",
//	  "navigateTo": "/australia/viewallads"
//	}
func (h *LocationHandler) Resolve(c *gin.Context) {
	req := models.LocationRequest{
		ClientKey:      middleware.ClientKey(c),
		ClientIP:       lookupIP(c.Query("ip"), middleware.ClientIP(c)),
		CurrentPath:    c.Query("path"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
	}

	c.JSON(http.StatusOK, h.locations.Resolve(c.Request.Context(), req))
}

// ===========================================
// GET /api/location/slug?q=
// ===========================================
// Maps a country name, alias or ISO-2 code onto a supported slug.
func (h *LocationHandler) Slug(c *gin.Context) {
	q, ok := c.GetQuery("q")
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Missing query",
			Code:    models.ErrCodeInvalidInput,
			Details: "q is required",
		})
		return
	}
	c.JSON(http.StatusOK, h.locations.ResolveSlug(q))
}

// ===========================================
// GET /api/location/countries
// ===========================================
func (h *LocationHandler) Countries(c *gin.Context) {
	c.JSON(http.StatusOK, h.locations.Countries())
}

// ===========================================
// GET /api/currency?location=
// ===========================================
// Unknown or missing locations are priced in USD.
func (h *LocationHandler) Currency(c *gin.Context) {
	c.JSON(http.StatusOK, h.currencies.Currency(c.Query("location")))
}

// lookupIP picks the address the providers geolocate. An explicit,
// well-formed ip wins. Private and loopback addresses become "" so the
// providers fall back to the address the request reaches them from.
func lookupIP(explicit, clientIP string) string {
	for _, candidate := range []string{explicit, clientIP} {
		addr, err := netip.ParseAddr(strings.TrimSpace(candidate))
		if err != nil {
			continue
		}
		if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() {
			return ""
		}
		return addr.String()
	}
	return ""
}
