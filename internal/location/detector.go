package location

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/models"
)

// ErrAllProvidersFailed is returned by Detect when no provider produced a
// usable country.
var ErrAllProvidersFailed = errors.New("all geolocation providers failed")

// Detector fans a lookup out to every provider and picks a winner by
// priority, not by arrival order.
type Detector struct {
	providers []Provider
	logger    *zap.Logger
	now       func() time.Time
}

// NewDetector creates a detector. providers must be given in priority
// order; the first usable result in that order wins.
func NewDetector(providers []Provider, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}
}

// Providers returns the provider names in priority order.
func (d *Detector) Providers() []string {
	names := make([]string, len(d.providers))
	for i, p := range d.providers {
		names[i] = p.Name()
	}
	return names
}

// Detect queries every provider concurrently and waits for all of them
// to settle. A slow high-priority provider still beats a fast
// low-priority one.
func (d *Detector) Detect(ctx context.Context, ip string) (models.DetectionResult, error) {
	results := make([]models.ProviderResult, len(d.providers))

	var wg sync.WaitGroup
	for i, p := range d.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = models.ProviderResult{
						Provider: p.Name(),
						Err:      ErrProviderUnavailable,
					}
				}
			}()
			results[i] = p.Lookup(ctx, ip)
		}(i, p)
	}
	wg.Wait()

	for _, r := range results {
		if !r.Usable() {
			d.logger.Debug("geolocation provider unusable",
				zap.String("provider", r.Provider),
				zap.Error(r.Err),
			)
			continue
		}

		sourceIP := r.IP
		if sourceIP == "" {
			sourceIP = ip
		}
		return models.DetectionResult{
			CountrySlug: ResolveSlug(r.Country),
			SourceIP:    sourceIP,
			DetectedAt:  d.now(),
			Provider:    r.Provider,
			RawCountry:  strings.TrimSpace(r.Country),
		}, nil
	}

	return models.DetectionResult{}, ErrAllProvidersFailed
}
