// ===========================================
// Package models - Domain Models
// ===========================================
// Plain data shared between the location resolver, the pricing
// calculator, the repositories and the HTTP layer. Values are
// recomputed per request and treated as immutable once built.
// ===========================================

package models

import "time"

// ===========================================
// Location
// ===========================================

// DetectionResult is the outcome of one IP-geolocation round, either
// freshly detected or loaded back from the detection store.
type DetectionResult struct {
	CountrySlug string    `json:"countrySlug"`
	SourceIP    string    `json:"sourceIp,omitempty"`
	DetectedAt  time.Time `json:"detectedAt"`
	Provider    string    `json:"provider,omitempty"`   // which lookup service won
	RawCountry  string    `json:"rawCountry,omitempty"` // country value before slug resolution
}

// IsFresh reports whether the result is younger than window at now.
func (d *DetectionResult) IsFresh(now time.Time, window time.Duration) bool {
	if d == nil || d.DetectedAt.IsZero() {
		return false
	}
	return now.Sub(d.DetectedAt) < window
}

// ProviderResult is the canonical shape every geolocation provider
// payload is normalized into before selection.
type ProviderResult struct {
	Provider string `json:"provider"`
	IP       string `json:"ip,omitempty"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Err      error  `json:"-"`
}

// Usable reports whether the provider settled successfully with a country.
func (p ProviderResult) Usable() bool {
	return p.Err == nil && p.Country != ""
}

// Location outcome sources.
const (
	SourceCache    = "cache"
	SourceProvider = "provider"
	SourceLanguage = "language"
	SourceDefault  = "default"
	SourceSkipped  = "skipped"
)

// LocationOutcome is what the resolver hands back to the caller: always a
// slug, plus an optional navigation instruction for the routing layer.
type LocationOutcome struct {
	CountrySlug string     `json:"countrySlug"`
	Source      string     `json:"source"`
	DetectedAt  *time.Time `json:"detectedAt,omitempty"`
	NavigateTo  string     `json:"navigateTo,omitempty"`
	Skipped     bool       `json:"skipped,omitempty"`
}

// LocationRequest carries the inputs of one GetOrDetect call.
type LocationRequest struct {
	ClientKey      string // identifies the detection store entry
	ClientIP       string // looked up by providers; empty means the caller's own IP
	CurrentPath    string // current URL path of the client, used for navigation
	AcceptLanguage string // optional language hint
}

// SlugResponse is returned by the slug lookup endpoint.
type SlugResponse struct {
	Input       string `json:"input"`
	CountrySlug string `json:"countrySlug"`
	Supported   bool   `json:"supported"` // input resolved without the default fallback
}

// CountriesResponse lists the supported slugs.
type CountriesResponse struct {
	Countries []string `json:"countries"`
	Default   string   `json:"default"`
}
