// ===========================================
// Package database - Redis Connection
// ===========================================
// Redis holds everything short-lived:
// 1. Cached pricing reference data (page types, image plans)
// 2. Rate limiting counters
// 3. Per-client country detections (see detection_store.go)
//
// CACHE STRATEGY: Cache-Aside (Lazy Loading)
// 1. Check cache first
// 2. If miss, query database
// 3. Store result in cache
// 4. Return result
// ===========================================

package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/marketgeo/internal/config"
)

// Cache keys for pricing reference data.
const (
	PageTypesCacheKey  = "pricing:page_types"
	ImagePlansCacheKey = "pricing:image_plans"
)

// RedisDB wraps the Redis client with application-specific methods.
type RedisDB struct {
	Client   *redis.Client
	CacheTTL time.Duration
}

// NewRedisDB creates a new Redis connection.
// It validates the connection before returning.
func NewRedisDB(ctx context.Context, cfg config.RedisConfig) (*RedisDB, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Apply additional configuration (only if set, don't overwrite URL values)
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opt.MinIdleConns = cfg.MinIdleConns
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisDB{
		Client:   client,
		CacheTTL: cfg.CacheTTL,
	}, nil
}

// Close gracefully shuts down the Redis connection.
func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Health checks if Redis is responsive.
func (r *RedisDB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.Client.Ping(ctx).Err()
}

// ===========================================
// CACHE OPERATIONS
// ===========================================

// RateLimitKey generates a key for rate limiting.
// Pattern: "ratelimit:{identifier}:{window}"
//
// Identifier can be a client ID, IP address or API key ID.
// Window is the minute (for requests-per-minute limiting).
func RateLimitKey(identifier string, window time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", identifier, window.Unix()/60)
}

// Get retrieves a cached value by key.
// Returns nil, nil if key doesn't exist (cache miss).
func (r *RedisDB) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return result, nil
}

// SetWithTTL stores a value with a custom TTL.
func (r *RedisDB) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.Client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes keys from the cache.
func (r *RedisDB) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := r.Client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ===========================================
// RATE LIMITING OPERATIONS
// ===========================================
// Fixed window counter implemented with Redis INCR.
//
// HOW IT WORKS:
// 1. Key = "ratelimit:{client}:{minute}"
// 2. INCR key (atomic increment)
// 3. If first request, SET expiry to the window size
// 4. If count > limit, reject request

// IncrementRateLimit increments the rate limit counter and returns the
// new count.
func (r *RedisDB) IncrementRateLimit(ctx context.Context, key string, windowSize time.Duration) (int64, error) {
	count, err := r.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit incr failed: %w", err)
	}

	// Only the first request of a window sets the expiry.
	if count == 1 {
		if err := r.Client.Expire(ctx, key, windowSize).Err(); err != nil {
			return count, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}

	return count, nil
}

// GetRateLimit returns the current count for a rate limit key.
// Returns 0 if key doesn't exist.
func (r *RedisDB) GetRateLimit(ctx context.Context, key string) (int64, error) {
	count, err := r.Client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limit get failed: %w", err)
	}
	return count, nil
}

// ===========================================
// JSON HELPERS
// ===========================================

// GetJSON retrieves and unmarshals a JSON value.
// The bool reports a cache hit.
func (r *RedisDB) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetJSON marshals and stores a value as JSON. A non-positive ttl
// means the default CacheTTL.
func (r *RedisDB) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.CacheTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.SetWithTTL(ctx, key, data, ttl)
}
