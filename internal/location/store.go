package location

import (
	"context"
	"sync"

	"github.com/user/marketgeo/internal/models"
)

// Store persists the last detection per client key. Load returns nil
// with no error when nothing usable is stored; callers treat a missing
// or malformed entry the same way.
type Store interface {
	Load(ctx context.Context, key string) (*models.DetectionResult, error)
	Save(ctx context.Context, key string, result models.DetectionResult) error
	SaveIP(ctx context.Context, key, ip string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store. Last writer wins.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]models.DetectionResult
	ips     map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]models.DetectionResult),
		ips:     make(map[string]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*models.DetectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[key]
	if !ok || result.CountrySlug == "" || result.DetectedAt.IsZero() {
		return nil, nil
	}
	if ip, ok := s.ips[key]; ok {
		result.SourceIP = ip
	}
	return &result, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, result models.DetectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = result
	if result.SourceIP != "" {
		s.ips[key] = result.SourceIP
	} else {
		delete(s.ips, key)
	}
	return nil
}

func (s *MemoryStore) SaveIP(ctx context.Context, key, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ips[key] = ip
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, key)
	delete(s.ips, key)
	return nil
}
