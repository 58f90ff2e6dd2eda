package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOCATION_FRESHNESS", "LOCATION_DEFAULT_SLUG", "LOCATION_LANGUAGE_HINT",
		"LOCATION_PROVIDER_TIMEOUT", "PRICING_DEFAULT_GATEWAY", "APP_ENV",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Location.Freshness)
	assert.Equal(t, "sri-lanka", cfg.Location.DefaultSlug)
	assert.Equal(t, 10*time.Second, cfg.Location.ProviderTimeout)
	assert.False(t, cfg.Location.LanguageHint)
	assert.Equal(t, "stripe", cfg.Pricing.DefaultGateway)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCATION_FRESHNESS", "30m")
	t.Setenv("LOCATION_LANGUAGE_HINT", "true")
	t.Setenv("LOCATION_STORE_TTL", "2h")
	t.Setenv("RATE_LIMIT_RPM", "120")
	t.Setenv("PRICING_CACHE_TTL", "1m")
	t.Setenv("APP_ENV", "Production")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Location.Freshness)
	assert.True(t, cfg.Location.LanguageHint)
	assert.Equal(t, 2*time.Hour, cfg.Location.StoreTTL)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.Pricing.CacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("LOCATION_FRESHNESS", "an hour")
	t.Setenv("RATE_LIMIT_RPM", "lots")
	t.Setenv("LOCATION_LANGUAGE_HINT", "maybe")

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.Location.Freshness)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.Location.LanguageHint)
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"*"}, Load().Server.CORSOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://ads.example.lk , ,https://ads.example.com")
	assert.Equal(t, []string{"https://ads.example.lk", "https://ads.example.com"}, Load().Server.CORSOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")
	assert.Equal(t, []string{"*"}, Load().Server.CORSOrigins)
}
