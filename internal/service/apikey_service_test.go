package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/marketgeo/internal/models"
	"github.com/user/marketgeo/internal/repository"
)

type fakeAPIKeyStore struct {
	mu      sync.Mutex
	keys    map[string]*models.APIKey
	used    chan uuid.UUID
	lookErr error
}

func newFakeAPIKeyStore() *fakeAPIKeyStore {
	return &fakeAPIKeyStore{keys: make(map[string]*models.APIKey), used: make(chan uuid.UUID, 4)}
}

func (f *fakeAPIKeyStore) GetByKeyHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookErr != nil {
		return nil, f.lookErr
	}
	key, ok := f.keys[keyHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return key, nil
}

func (f *fakeAPIKeyStore) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	f.used <- id
	return nil
}

func (f *fakeAPIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	f.keys[key.KeyHash] = key
	return nil
}

func TestGenerateAndValidateKey(t *testing.T) {
	store := newFakeAPIKeyStore()
	svc := NewAPIKeyService(store, nil)
	ctx := context.Background()

	raw, key, err := svc.GenerateKey(ctx, "ops", 120)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "sk_live_"))
	assert.Len(t, raw, 40)
	assert.NotEqual(t, raw, key.KeyHash)
	assert.Equal(t, HashAPIKey(raw), key.KeyHash)

	got, err := svc.ValidateKey(ctx, raw)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, key.ID, <-store.used)

	got, err = svc.ValidateKey(ctx, "sk_live_wrong")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidateKeyBackendError(t *testing.T) {
	store := newFakeAPIKeyStore()
	store.lookErr = errors.New("db down")
	_, err := NewAPIKeyService(store, nil).ValidateKey(context.Background(), "sk_live_x")
	assert.Error(t, err)
}
