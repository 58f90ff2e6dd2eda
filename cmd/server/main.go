// ===========================================
// Market Geo - Main Entry Point
// ===========================================
// Country detection and page pricing API for the listing front-end.
//
// RESPONSIBILITY:
// 1. Load configuration
// 2. Initialize dependencies (DB, Redis, geolocation providers)
// 3. Set up HTTP server with middleware
// 4. Start background jobs
// 5. Handle graceful shutdown
//
// DESIGN PRINCIPLE: "Fail Fast at Startup"
// If any critical dependency fails, crash immediately.
// ===========================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/config"
	"github.com/user/marketgeo/internal/database"
	"github.com/user/marketgeo/internal/handler"
	"github.com/user/marketgeo/internal/location"
	"github.com/user/marketgeo/internal/logging"
	"github.com/user/marketgeo/internal/middleware"
	"github.com/user/marketgeo/internal/pricing"
	"github.com/user/marketgeo/internal/repository"
	"github.com/user/marketgeo/internal/service"
)

// Version is set at build time using ldflags.
// go build -ldflags "-X main.Version=1.0.0"
var Version = ""

func main() {
	createKey := flag.String("create-api-key", "", "create an admin API key with this name, print it and exit")
	keyLimit := flag.Int("api-key-rpm", 600, "requests per minute for the key created by -create-api-key")
	flag.Parse()

	// ===========================================
	// Step 0: Load .env File
	// ===========================================
	// Silently ignored if .env doesn't exist (production).
	_ = godotenv.Load()

	// ===========================================
	// Step 1: Load Configuration and Logger
	// ===========================================
	cfg := config.Load()
	if Version == "" {
		Version = cfg.Server.Version
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting market geo",
		zap.String("version", Version),
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Environment),
	)

	// ===========================================
	// Step 2: Initialize PostgreSQL
	// ===========================================
	// If we can't connect within 30 seconds, something is wrong.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	postgres, err := database.NewPostgresDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer postgres.Close()
	logger.Info("postgres connected")

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(ctx, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// ===========================================
	// Step 3: Initialize Redis
	// ===========================================
	redis, err := database.NewRedisDB(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("redis connected")

	// ===========================================
	// Step 4: Initialize Repositories
	// ===========================================
	pricingRepo := repository.NewPricingRepository(postgres.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(postgres.Pool)

	// ===========================================
	// Step 5: Initialize Services
	// ===========================================
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, logger.Named("apikey"))

	if *createKey != "" {
		raw, key, err := apiKeyService.GenerateKey(ctx, *createKey, *keyLimit)
		if err != nil {
			logger.Fatal("failed to create api key", zap.Error(err))
		}
		logger.Info("api key created", zap.String("name", key.Name), zap.String("id", key.ID.String()))
		// Shown once; only the hash is stored.
		fmt.Println(raw)
		return
	}

	calculator := pricing.NewCalculator(logger.Named("pricing"),
		pricing.WithDefaultGateway(cfg.Pricing.DefaultGateway),
	)
	pricingService := service.NewPricingService(pricingRepo, redis, calculator, cfg.Pricing.CacheTTL, logger.Named("pricing"))

	detector := location.NewDetector(
		location.DefaultProviders(
			cfg.Location.IPAPIURL,
			cfg.Location.IPWhoIsURL,
			cfg.Location.IPAPIComURL,
			cfg.Location.ProviderTimeout,
		),
		logger.Named("detector"),
	)
	detectionStore := database.NewDetectionStore(redis.Client, cfg.Location.StoreTTL)
	resolver := location.NewResolver(
		detectionStore,
		detector,
		logger.Named("location"),
		location.WithFreshness(cfg.Location.Freshness),
		location.WithDefaultSlug(cfg.Location.DefaultSlug),
		location.WithLanguageHint(cfg.Location.LanguageHint),
	)
	locationService := service.NewLocationService(resolver, logger.Named("location"))
	logger.Info("location providers ready", zap.Strings("providers", detector.Providers()))

	// ===========================================
	// Step 6: Initialize Handlers
	// ===========================================
	locationHandler := handler.NewLocationHandler(locationService, pricingService)
	pricingHandler := handler.NewPricingHandler(pricingService)
	adminHandler := handler.NewAdminHandler(pricingService, locationService)
	healthHandler := handler.NewHealthHandler(Version,
		handler.Check(handler.CheckPricingStore, postgres),
		handler.Check(handler.CheckPricingCache, redis),
		handler.Check(handler.CheckDetectionStore, detectionStore),
	)

	// ===========================================
	// Step 7: Initialize Middleware
	// ===========================================
	rateLimiter := middleware.NewRateLimiter(redis, cfg.RateLimit.RequestsPerMinute, logger.Named("ratelimit"))
	apiKeyAuth := middleware.NewAPIKeyAuth(apiKeyService, logger.Named("auth"))

	// ===========================================
	// Step 8: Set Up Gin Router
	// ===========================================
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Order matters! Middleware runs in order of addition.
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)))

	// Health checks (no auth, no rate limit)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)

	// Public API (rate limited; a valid key lifts the limit)
	api := router.Group("/api")
	api.Use(apiKeyAuth.OptionalKey())
	api.Use(rateLimiter.Middleware())
	{
		api.GET("/location", locationHandler.Resolve)
		api.GET("/location/slug", locationHandler.Slug)
		api.GET("/location/countries", locationHandler.Countries)
		api.GET("/currency", locationHandler.Currency)

		api.GET("/pageType", pricingHandler.ListPageTypes)
		api.GET("/pagetype/imageprice", pricingHandler.ListImagePlans)
		api.POST("/pagetype/quote", pricingHandler.Quote)
	}

	// Admin API (key required)
	admin := router.Group("/api/admin")
	admin.Use(apiKeyAuth.RequireKey())
	admin.Use(rateLimiter.Middleware())
	{
		admin.DELETE("/pricing/cache", adminHandler.PurgePricingCache)
		admin.DELETE("/location/cache/:client", adminHandler.PurgeDetection)
	}

	// ===========================================
	// Step 9: Create HTTP Server
	// ===========================================
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// ===========================================
	// Step 10: Start Background Jobs
	// ===========================================
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if cfg.Pricing.WarmInterval > 0 {
		go runPricingWarmJob(bgCtx, pricingService, cfg.Pricing.WarmInterval, logger.Named("warm"))
	}

	// ===========================================
	// Step 11: Start Server (non-blocking)
	// ===========================================
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// ===========================================
	// Step 12: Wait for Shutdown Signal
	// ===========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	bgCancel()
	logger.Info("server stopped")
}

// ===========================================
// Background Jobs
// ===========================================

// cacheWarmer refreshes cached reference data.
type cacheWarmer interface {
	Warm(ctx context.Context) error
}

// runPricingWarmJob keeps the pricing cache populated so quotes rarely
// hit Postgres. Runs once immediately, then every interval until ctx is
// cancelled.
func runPricingWarmJob(ctx context.Context, warmer cacheWarmer, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	warm := func() {
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := warmer.Warm(warmCtx); err != nil && ctx.Err() == nil {
			logger.Warn("pricing cache warm failed", zap.Error(err))
		}
	}

	warm()
	for {
		select {
		case <-ctx.Done():
			logger.Info("pricing warm job stopped")
			return
		case <-ticker.C:
			warm()
		}
	}
}
