package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/marketgeo/internal/models"
)

// Hash fields of a stored detection.
const (
	FieldDetectedCountry   = "detectedCountry"
	FieldLastDetectionTime = "lastDetectionTime" // epoch milliseconds, decimal string
	FieldDetectedIP        = "detectedIP"
	FieldProvider          = "provider"
)

// DetectionKey returns the hash key of a client's stored detection.
// Pattern: "geo:detection:{client}"
func DetectionKey(client string) string {
	return "geo:detection:" + client
}

// DetectionStore keeps the last country detection per client in a
// Redis hash. There is no locking between writers; the last write wins.
type DetectionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDetectionStore creates a store whose entries expire after ttl
// (0 keeps them forever).
func NewDetectionStore(client *redis.Client, ttl time.Duration) *DetectionStore {
	return &DetectionStore{client: client, ttl: ttl}
}

// Load returns the stored detection for key, or nil when nothing
// usable is stored. Malformed entries are reported as nil, not as errors.
func (s *DetectionStore) Load(ctx context.Context, key string) (*models.DetectionResult, error) {
	fields, err := s.client.HGetAll(ctx, DetectionKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("load detection: %w", err)
	}
	return decodeDetection(fields), nil
}

// Save replaces the stored detection for key with result and refreshes
// the expiry. Fields result does not carry are not kept from an earlier
// detection.
func (s *DetectionStore) Save(ctx context.Context, key string, result models.DetectionResult) error {
	hkey := DetectionKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hkey)
		pipe.HSet(ctx, hkey, encodeDetection(result))
		if s.ttl > 0 {
			pipe.Expire(ctx, hkey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save detection: %w", err)
	}
	return nil
}

// SaveIP records the IP a detection ran for and refreshes the expiry.
// Diagnostic only.
func (s *DetectionStore) SaveIP(ctx context.Context, key, ip string) error {
	hkey := DetectionKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hkey, FieldDetectedIP, ip)
		if s.ttl > 0 {
			pipe.Expire(ctx, hkey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save detected ip: %w", err)
	}
	return nil
}

// Health checks that the backing Redis answers.
func (s *DetectionStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Delete drops the stored detection for key.
func (s *DetectionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, DetectionKey(key)).Err(); err != nil {
		return fmt.Errorf("delete detection: %w", err)
	}
	return nil
}

func encodeDetection(result models.DetectionResult) map[string]any {
	fields := map[string]any{
		FieldDetectedCountry:   result.CountrySlug,
		FieldLastDetectionTime: strconv.FormatInt(result.DetectedAt.UnixMilli(), 10),
	}
	if result.Provider != "" {
		fields[FieldProvider] = result.Provider
	}
	if result.SourceIP != "" {
		fields[FieldDetectedIP] = result.SourceIP
	}
	return fields
}

func decodeDetection(fields map[string]string) *models.DetectionResult {
	slug := fields[FieldDetectedCountry]
	if slug == "" {
		return nil
	}
	ms, err := strconv.ParseInt(fields[FieldLastDetectionTime], 10, 64)
	if err != nil || ms <= 0 {
		return nil
	}
	return &models.DetectionResult{
		CountrySlug: slug,
		SourceIP:    fields[FieldDetectedIP],
		DetectedAt:  time.UnixMilli(ms).UTC(),
		Provider:    fields[FieldProvider],
	}
}
