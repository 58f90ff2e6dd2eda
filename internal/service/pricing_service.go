// ===========================================
// Package service - Business Logic Layer
// ===========================================
// Services orchestrate repositories, caches and the pure domain
// packages (location, pricing). Handlers stay thin: HTTP in, HTTP out.
//
// SINGLE RESPONSIBILITY:
// PricingService quotes pages, LocationService resolves countries,
// APIKeyService authenticates admin callers.
// ===========================================

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/database"
	"github.com/user/marketgeo/internal/models"
	"github.com/user/marketgeo/internal/pricing"
	"github.com/user/marketgeo/internal/repository"
)

// Service errors
var (
	ErrPageTypeNotFound  = errors.New("page type not found")
	ErrInvalidPageTypeID = errors.New("invalid page type id")
)

// PricingStore is the read side of the pricing repository.
type PricingStore interface {
	ListPageTypes(ctx context.Context) ([]models.PageType, error)
	GetPageType(ctx context.Context, id uuid.UUID) (*models.PageType, error)
	ListImagePricingPlans(ctx context.Context) ([]models.PricingPlan, error)
}

// JSONCache is the subset of database.RedisDB the services cache through.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PricingService serves pricing reference data and quotes.
type PricingService struct {
	repo       PricingStore
	cache      JSONCache
	calculator *pricing.Calculator
	ttl        time.Duration
	logger     *zap.Logger
}

// NewPricingService creates a new pricing service. cache may be nil, in
// which case every call reads the repository.
func NewPricingService(
	repo PricingStore,
	cache JSONCache,
	calculator *pricing.Calculator,
	ttl time.Duration,
	logger *zap.Logger,
) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calculator == nil {
		calculator = pricing.NewCalculator(logger)
	}
	return &PricingService{
		repo:       repo,
		cache:      cache,
		calculator: calculator,
		ttl:        ttl,
		logger:     logger,
	}
}

// ===========================================
// Reference Data
// ===========================================

// ListPageTypes returns the active page types, cache first.
func (s *PricingService) ListPageTypes(ctx context.Context) ([]models.PageType, error) {
	var pageTypes []models.PageType
	if s.fromCache(ctx, database.PageTypesCacheKey, &pageTypes) {
		return pageTypes, nil
	}

	pageTypes, err := s.repo.ListPageTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load page types: %w", err)
	}
	s.toCache(ctx, database.PageTypesCacheKey, pageTypes)
	return pageTypes, nil
}

// ListImagePlans returns the active image pricing plans, cache first.
func (s *PricingService) ListImagePlans(ctx context.Context) ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	if s.fromCache(ctx, database.ImagePlansCacheKey, &plans) {
		return plans, nil
	}

	plans, err := s.repo.ListImagePricingPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load image pricing plans: %w", err)
	}
	s.toCache(ctx, database.ImagePlansCacheKey, plans)
	return plans, nil
}

// GetPageType looks a page type up by ID, preferring the cached listing.
func (s *PricingService) GetPageType(ctx context.Context, rawID string) (*models.PageType, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, ErrInvalidPageTypeID
	}

	var cached []models.PageType
	if s.fromCache(ctx, database.PageTypesCacheKey, &cached) {
		for i := range cached {
			if cached[i].ID == id {
				return &cached[i], nil
			}
		}
	}

	pt, err := s.repo.GetPageType(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPageTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page type: %w", err)
	}
	return pt, nil
}

// ===========================================
// Quotes
// ===========================================

// Quote prices a page. Only an unknown page type (or a failure to load
// it) is an error; missing image plans degrade the quote instead.
//
// FLOW:
// 1. Resolve the page type
// 2. Load image plans (failure = degraded quote)
// 3. Derive the viewer's currency (country code wins over location text)
// 4. Run the calculator
func (s *PricingService) Quote(ctx context.Context, req models.QuoteRequest) (*models.CostBreakdown, error) {
	pageType, err := s.GetPageType(ctx, req.PageTypeID)
	if err != nil {
		return nil, err
	}

	plans, err := s.ListImagePlans(ctx)
	if err != nil {
		s.logger.Warn("image pricing plans unavailable, quoting degraded",
			zap.Error(err),
		)
		plans = nil
	}

	currency := pricing.DeriveCurrency(req.Location)
	if strings.TrimSpace(req.CountryCode) != "" {
		currency = pricing.CurrencyForCountry(req.CountryCode)
	}

	breakdown := s.calculator.CalculateTotalCost(*pageType, req.ImageCount, plans, currency)
	s.logger.Debug("quote calculated",
		zap.String("quoteId", breakdown.QuoteID),
		zap.String("pageType", pageType.Name),
		zap.Int("images", req.ImageCount),
		zap.String("currency", currency.Code),
		zap.Float64("total", breakdown.Total),
		zap.Bool("degraded", breakdown.Degraded),
	)
	return &breakdown, nil
}

// Currency derives the currency for a free-text location.
func (s *PricingService) Currency(location string) models.CurrencyConfig {
	return pricing.DeriveCurrency(location)
}

// ===========================================
// Cache Maintenance
// ===========================================

// InvalidateCache drops the cached reference data.
func (s *PricingService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, database.PageTypesCacheKey, database.ImagePlansCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate pricing cache: %w", err)
	}
	return nil
}

// Warm reloads page types and image plans from the repository and
// replaces the cached copies. Used by the background refresh job.
func (s *PricingService) Warm(ctx context.Context) error {
	pageTypes, err := s.repo.ListPageTypes(ctx)
	if err != nil {
		return fmt.Errorf("warm page types: %w", err)
	}
	plans, err := s.repo.ListImagePricingPlans(ctx)
	if err != nil {
		return fmt.Errorf("warm image plans: %w", err)
	}

	s.toCache(ctx, database.PageTypesCacheKey, pageTypes)
	s.toCache(ctx, database.ImagePlansCacheKey, plans)
	s.logger.Debug("pricing cache warmed",
		zap.Int("pageTypes", len(pageTypes)),
		zap.Int("plans", len(plans)),
	)
	return nil
}

// fromCache reports a hit. Cache errors are logged and treated as misses.
func (s *PricingService) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.Warn("pricing cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

// toCache stores value. Failures only cost a cache miss later.
func (s *PricingService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.cache.SetJSON(cacheCtx, key, value, s.ttl); err != nil {
		s.logger.Warn("pricing cache write failed", zap.String("key", key), zap.Error(err))
	}
}
