package models

import (
	"time"

	"github.com/google/uuid"
)

// ===========================================
// Pricing Reference Data
// ===========================================
// Page types and image pricing plans are read-only reference data
// owned by the pricing backend. Each carries a PriceTable keyed by
// country code or currency code.

// PriceEntry is one price in one market.
type PriceEntry struct {
	Price   float64 `json:"price"`   // never negative
	Gateway string  `json:"gateway"` // payment gateway identifier, e.g. "stripe"
}

// Plan names recognized by the cost calculator (matched case-insensitively).
const (
	PlanFree  = "Free"
	PlanBasic = "Basic"
	PlanPro   = "Pro"
)

// Reference data status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// PricingPlan is an image pricing tier.
type PricingPlan struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ImageLimit int        `json:"imageLimit"`
	Prices     PriceTable `json:"prices"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PageType is a kind of listing page (ad, offer, business page...) with
// its own creation price.
type PageType struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Prices      PriceTable `json:"prices"`
	Status      string     `json:"status"`
	SortOrder   int        `json:"sortOrder"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CurrencyConfig describes the viewer's currency.
type CurrencyConfig struct {
	Code        string `json:"code"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

// ===========================================
// Cost Breakdown
// ===========================================

// PageTypeCharge is the page-type part of a quote.
type PageTypeCharge struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Cost    float64   `json:"cost"`
	Gateway string    `json:"gateway"`
}

// ImageCharge is the gallery part of a quote.
type ImageCharge struct {
	Count      int     `json:"count"`
	FreeImages int     `json:"freeImages"`
	BasicLimit int     `json:"basicLimit"`
	BasicPrice float64 `json:"basicPrice"`
	ProPrice   float64 `json:"proPrice"` // per image beyond BasicLimit
	Cost       float64 `json:"cost"`
}

// LineItem is one human-readable row of a quote. Order and wording are
// shown to users as-is.
type LineItem struct {
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Display     string  `json:"display"` // Cost formatted in the viewer's currency
}

// CostBreakdown is the full price of creating a page.
//
// Total always equals PageType.Cost + Images.Cost, and IsFree holds
// exactly when Total is zero.
type CostBreakdown struct {
	QuoteID         string         `json:"quoteId"`
	Currency        CurrencyConfig `json:"currency"`
	PageType        PageTypeCharge `json:"pageType"`
	Images          ImageCharge    `json:"images"`
	Breakdown       []LineItem     `json:"breakdown"`
	Subtotal        float64        `json:"subtotal"`
	Tax             float64        `json:"tax"`
	Total           float64        `json:"total"`
	IsFree          bool           `json:"isFree"`
	RequiresPayment bool           `json:"requiresPayment"`
	PrimaryGateway  *string        `json:"primaryGateway"`
	Degraded        bool           `json:"degraded,omitempty"` // image pricing plans were incomplete
}

// ===========================================
// Request DTOs
// ===========================================

// QuoteRequest asks for the cost of a page.
type QuoteRequest struct {
	PageTypeID string `json:"pageTypeId" binding:"required,uuid"`
	ImageCount int    `json:"imageCount" binding:"min=0,max=500"`

	// Location is the free-text country the viewer picked; it selects
	// the currency. CountryCode, when set, overrides the derived
	// currency's country code for price lookup.
	Location    string `json:"location,omitempty" binding:"omitempty,max=100"`
	CountryCode string `json:"countryCode,omitempty" binding:"omitempty,len=2,alpha"`
}

// PageTypesResponse wraps the page type listing.
type PageTypesResponse struct {
	PageTypes []PageType `json:"pageTypes"`
}

// ImagePlansResponse wraps the image pricing plan listing.
type ImagePlansResponse struct {
	Plans []PricingPlan `json:"plans"`
}
