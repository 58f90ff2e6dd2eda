package location

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/models"
)

// DefaultFreshness is how long a stored detection is trusted.
const DefaultFreshness = time.Hour

// Resolver decides the country slug for a client: from the store when
// the stored detection is fresh, otherwise by running the detector.
// It always produces a slug.
type Resolver struct {
	store        Store
	detector     *Detector
	guard        *Guard
	logger       *zap.Logger
	now          func() time.Time
	freshness    time.Duration
	defaultSlug  string
	languageHint bool
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithFreshness overrides the freshness window.
func WithFreshness(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.freshness = d
		}
	}
}

// WithDefaultSlug overrides the fallback slug. Unsupported slugs are ignored.
func WithDefaultSlug(slug string) ResolverOption {
	return func(r *Resolver) {
		if IsSupported(slug) {
			r.defaultSlug = slug
		}
	}
}

// WithLanguageHint enables the Accept-Language fallback when every
// provider fails.
func WithLanguageHint(enabled bool) ResolverOption {
	return func(r *Resolver) { r.languageHint = enabled }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithGuard shares an in-flight guard between resolvers.
func WithGuard(g *Guard) ResolverOption {
	return func(r *Resolver) {
		if g != nil {
			r.guard = g
		}
	}
}

// NewResolver creates a Resolver. The detector is only read, so one
// Detector may back several resolvers. A nil detector makes every
// detection fall back.
func NewResolver(store Store, detector *Detector, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		store:       store,
		detector:    detector,
		guard:       NewGuard(),
		logger:      logger,
		now:         time.Now,
		freshness:   DefaultFreshness,
		defaultSlug: DefaultSlug,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultSlug returns the slug used when nothing better is known.
func (r *Resolver) DefaultSlug() string {
	return r.defaultSlug
}

// GetOrDetect returns the slug for req.ClientKey and the navigation the
// client should perform, if any.
//
// A fresh stored detection is returned without any network call. A
// stale or missing one triggers detection, unless a detection for the
// same key is already running; that caller gets the stale slug (or the
// default) right away with Skipped set.
func (r *Resolver) GetOrDetect(ctx context.Context, req models.LocationRequest) models.LocationOutcome {
	cached := r.load(ctx, req.ClientKey)
	if cached.IsFresh(r.now(), r.freshness) {
		return r.outcome(req, cached.CountrySlug, models.SourceCache, cached.DetectedAt)
	}

	if !r.guard.TryAcquire(req.ClientKey) {
		r.logger.Debug("detection already in flight, skipping",
			zap.String("client", req.ClientKey),
		)
		out := models.LocationOutcome{
			CountrySlug: r.defaultSlug,
			Source:      models.SourceSkipped,
			Skipped:     true,
		}
		if cached != nil {
			out.CountrySlug = cached.CountrySlug
			at := cached.DetectedAt
			out.DetectedAt = &at
		}
		return out
	}
	defer r.guard.Release(req.ClientKey)

	result, source := r.detect(ctx, req)

	if err := r.store.Save(ctx, req.ClientKey, result); err != nil {
		r.logger.Warn("failed to persist detection",
			zap.String("client", req.ClientKey),
			zap.Error(err),
		)
	}

	return r.outcome(req, result.CountrySlug, source, result.DetectedAt)
}

// Forget drops the stored detection for key so the next call detects again.
func (r *Resolver) Forget(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

func (r *Resolver) load(ctx context.Context, key string) *models.DetectionResult {
	cached, err := r.store.Load(ctx, key)
	if err != nil {
		r.logger.Warn("failed to read stored detection",
			zap.String("client", key),
			zap.Error(err),
		)
		return nil
	}
	if cached != nil && !IsSupported(cached.CountrySlug) {
		return nil
	}
	return cached
}

func (r *Resolver) detect(ctx context.Context, req models.LocationRequest) (models.DetectionResult, string) {
	var (
		result models.DetectionResult
		err    = ErrAllProvidersFailed
	)
	if r.detector != nil {
		result, err = r.detector.Detect(ctx, req.ClientIP)
	}
	if err == nil {
		result.DetectedAt = r.now()
		r.logger.Info("country detected",
			zap.String("client", req.ClientKey),
			zap.String("provider", result.Provider),
			zap.String("country", result.RawCountry),
			zap.String("slug", result.CountrySlug),
		)
		return result, models.SourceProvider
	}

	if !errors.Is(err, ErrAllProvidersFailed) {
		r.logger.Error("unexpected detection error", zap.Error(err))
	} else {
		r.logger.Warn("all geolocation providers failed, using fallback",
			zap.String("client", req.ClientKey),
		)
	}

	fallback := models.DetectionResult{
		CountrySlug: r.defaultSlug,
		SourceIP:    req.ClientIP,
		DetectedAt:  r.now(),
	}
	if r.languageHint {
		if slug, ok := SlugFromAcceptLanguage(req.AcceptLanguage); ok {
			fallback.CountrySlug = slug
			return fallback, models.SourceLanguage
		}
	}
	return fallback, models.SourceDefault
}

func (r *Resolver) outcome(req models.LocationRequest, slug, source string, detectedAt time.Time) models.LocationOutcome {
	out := models.LocationOutcome{
		CountrySlug: slug,
		Source:      source,
		NavigateTo:  NavigationTarget(req.CurrentPath, slug),
	}
	if !detectedAt.IsZero() {
		out.DetectedAt = &detectedAt
	}
	return out
}
