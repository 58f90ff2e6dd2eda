package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/location"
	"github.com/user/marketgeo/internal/models"
)

// maxClientIDLength bounds the X-Client-ID value used as a store key.
const maxClientIDLength = 128

// LocationService answers "which country is this visitor in".
type LocationService struct {
	resolver *location.Resolver
	logger   *zap.Logger
}

// NewLocationService creates a new location service.
func NewLocationService(resolver *location.Resolver, logger *zap.Logger) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{resolver: resolver, logger: logger}
}

// Resolve returns the country slug for the client and, when the
// client's current path disagrees with it, where to navigate.
func (s *LocationService) Resolve(ctx context.Context, req models.LocationRequest) models.LocationOutcome {
	return s.resolver.GetOrDetect(ctx, req)
}

// ResolveSlug maps free text onto a supported slug.
func (s *LocationService) ResolveSlug(input string) models.SlugResponse {
	slug, matched := location.Lookup(input)
	return models.SlugResponse{
		Input:       input,
		CountrySlug: slug,
		Supported:   matched,
	}
}

// Countries lists the supported slugs.
func (s *LocationService) Countries() models.CountriesResponse {
	return models.CountriesResponse{
		Countries: location.SupportedSlugs(),
		Default:   s.resolver.DefaultSlug(),
	}
}

// Forget drops the stored detection of a client so its next request
// detects again.
func (s *LocationService) Forget(ctx context.Context, clientKey string) error {
	if err := s.resolver.Forget(ctx, clientKey); err != nil {
		return err
	}
	s.logger.Info("stored detection cleared", zap.String("client", clientKey))
	return nil
}

// ClientKey derives the detection store key of a request: the
// X-Client-ID header when the front-end sends a usable one, otherwise
// the client IP.
func ClientKey(clientID, clientIP string) string {
	id := strings.TrimSpace(clientID)
	if id != "" && len(id) <= maxClientIDLength && isPrintableASCII(id) {
		return "cid:" + id
	}
	return "ip:" + clientIP
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
