package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/models"
	"github.com/user/marketgeo/internal/repository"
)

// APIKeyStore is the persistence side of API keys.
type APIKeyStore interface {
	GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error
	Create(ctx context.Context, key *models.APIKey) error
}

// APIKeyService handles API key operations.
type APIKeyService struct {
	repo   APIKeyStore
	logger *zap.Logger
}

// NewAPIKeyService creates a new API key service.
func NewAPIKeyService(repo APIKeyStore, logger *zap.Logger) *APIKeyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKeyService{repo: repo, logger: logger}
}

// ValidateKey checks if an API key is valid.
// Returns the key info if valid, nil otherwise.
//
// SECURITY FLOW:
// 1. Hash the provided key (we never store plain keys)
// 2. Look up hash in database
// 3. Return key info (for rate limit, etc.)
func (s *APIKeyService) ValidateKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	key, err := s.repo.GetByKeyHash(ctx, HashAPIKey(rawKey))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate key: %w", err)
	}

	go func(id uuid.UUID) {
		updateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.repo.UpdateLastUsed(updateCtx, id); err != nil {
			s.logger.Debug("failed to record api key usage", zap.Error(err))
		}
	}(key.ID)

	return key, nil
}

// GenerateKey creates a new API key.
// Returns the raw key (shown once) and saves the hash.
func (s *APIKeyService) GenerateKey(ctx context.Context, name string, rateLimit int) (string, *models.APIKey, error) {
	rawKey, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate key: %w", err)
	}

	key := &models.APIKey{
		KeyHash:   HashAPIKey(rawKey),
		Name:      name,
		RateLimit: rateLimit,
		IsActive:  true,
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to save key: %w", err)
	}

	return rawKey, key, nil
}

// generateAPIKey creates a random API key.
// Format: "sk_live_" + 32 random hex chars
func generateAPIKey() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "sk_live_" + hex.EncodeToString(bytes), nil
}

// HashAPIKey creates the SHA-256 hex digest stored for an API key.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
