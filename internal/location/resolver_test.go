package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/marketgeo/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestResolver(store Store, providers []Provider, opts ...ResolverOption) *Resolver {
	opts = append([]ResolverOption{WithClock(fixedClock)}, opts...)
	return NewResolver(store, NewDetector(providers, nil), nil, opts...)
}

func seed(t *testing.T, store Store, key, slug string, at time.Time) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), key, models.DetectionResult{
		CountrySlug: slug,
		DetectedAt:  at,
	}))
}

func TestGetOrDetectUsesFreshCache(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "india", testNow.Add(-59*time.Minute))
	provider := &stubProvider{name: "a", country: "Japan"}

	r := newTestResolver(store, []Provider{provider})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{
		ClientKey:   "client-1",
		CurrentPath: "/india/viewallads",
	})

	assert.Equal(t, "india", out.CountrySlug)
	assert.Equal(t, models.SourceCache, out.Source)
	assert.Empty(t, out.NavigateTo)
	assert.Zero(t, provider.calls.Load(), "fresh cache must not hit the network")
}

func TestGetOrDetectFreshCacheStillNavigates(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "india", testNow.Add(-10*time.Minute))

	r := newTestResolver(store, []Provider{&stubProvider{name: "a", country: "Japan"}})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{
		ClientKey:   "client-1",
		CurrentPath: "/uk/viewallads/",
	})

	assert.Equal(t, "india", out.CountrySlug)
	assert.Equal(t, "/india/viewallads/", out.NavigateTo)
}

func TestGetOrDetectRefreshesStaleCache(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "india", testNow.Add(-61*time.Minute))
	provider := &stubProvider{name: "a", country: "Japan"}

	r := newTestResolver(store, []Provider{provider})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{
		ClientKey:   "client-1",
		ClientIP:    "203.0.113.9",
		CurrentPath: "/",
	})

	assert.Equal(t, "japan", out.CountrySlug)
	assert.Equal(t, models.SourceProvider, out.Source)
	assert.Equal(t, "/japan/viewallads", out.NavigateTo)
	assert.EqualValues(t, 1, provider.calls.Load())

	stored, err := store.Load(context.Background(), "client-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "japan", stored.CountrySlug)
	assert.Equal(t, testNow, stored.DetectedAt)
	assert.Equal(t, "203.0.113.9", stored.SourceIP)
}

func TestGetOrDetectExactlyAtWindowIsStale(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "india", testNow.Add(-time.Hour))
	provider := &stubProvider{name: "a", country: "Canada"}

	r := newTestResolver(store, []Provider{provider})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "client-1"})
	assert.Equal(t, "canada", out.CountrySlug)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestGetOrDetectMalformedCacheIsIgnored(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "atlantis", testNow)

	r := newTestResolver(store, []Provider{&stubProvider{name: "a", country: "Oman"}})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "client-1"})
	assert.Equal(t, "oman", out.CountrySlug)
	assert.Equal(t, models.SourceProvider, out.Source)
}

func TestGetOrDetectAllProvidersFailFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore()
	r := newTestResolver(store, []Provider{
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b", err: errors.New("down")},
		&stubProvider{name: "c", err: errors.New("down")},
	})

	out := r.GetOrDetect(context.Background(), models.LocationRequest{
		ClientKey:   "client-1",
		CurrentPath: "/viewallads",
	})
	assert.Equal(t, DefaultSlug, out.CountrySlug)
	assert.Equal(t, models.SourceDefault, out.Source)
	assert.Equal(t, "/sri-lanka/viewallads", out.NavigateTo)

	stored, err := store.Load(context.Background(), "client-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, DefaultSlug, stored.CountrySlug)
}

func TestGetOrDetectCustomDefault(t *testing.T) {
	r := newTestResolver(NewMemoryStore(),
		[]Provider{&stubProvider{name: "a", err: errors.New("down")}},
		WithDefaultSlug("usa"))

	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})
	assert.Equal(t, "usa", out.CountrySlug)
	assert.Equal(t, "usa", r.DefaultSlug())
}

func TestGetOrDetectLanguageHint(t *testing.T) {
	failing := []Provider{&stubProvider{name: "a", err: errors.New("down")}}
	req := models.LocationRequest{ClientKey: "k", AcceptLanguage: "en-AU,en;q=0.9"}

	off := newTestResolver(NewMemoryStore(), failing)
	assert.Equal(t, DefaultSlug, off.GetOrDetect(context.Background(), req).CountrySlug)

	on := newTestResolver(NewMemoryStore(), failing, WithLanguageHint(true))
	out := on.GetOrDetect(context.Background(), req)
	assert.Equal(t, "australia", out.CountrySlug)
	assert.Equal(t, models.SourceLanguage, out.Source)
}

func TestGetOrDetectSkipsWhileInFlight(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "client-1", "maldives", testNow.Add(-2*time.Hour))

	guard := NewGuard()
	require.True(t, guard.TryAcquire("client-1"))

	provider := &stubProvider{name: "a", country: "Japan"}
	r := newTestResolver(store, []Provider{provider}, WithGuard(guard))

	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "client-1"})
	assert.True(t, out.Skipped)
	assert.Equal(t, models.SourceSkipped, out.Source)
	assert.Equal(t, "maldives", out.CountrySlug)
	assert.Zero(t, provider.calls.Load())

	out = r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "client-2"})
	assert.False(t, out.Skipped, "guard is per client key")
	assert.Equal(t, "japan", out.CountrySlug)
}

func TestGetOrDetectConcurrentCallersDetectOnce(t *testing.T) {
	provider := &stubProvider{name: "a", country: "Qatar", delay: 100 * time.Millisecond}
	r := newTestResolver(NewMemoryStore(), []Provider{provider})

	const callers = 8
	outs := make([]models.LocationOutcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "same"})
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, provider.calls.Load())
	detected := 0
	for _, out := range outs {
		switch out.Source {
		case models.SourceSkipped:
			assert.Equal(t, DefaultSlug, out.CountrySlug)
		case models.SourceProvider:
			detected++
			assert.Equal(t, "qatar", out.CountrySlug)
		default:
			// arrived after the detection was stored
			assert.Equal(t, "qatar", out.CountrySlug)
		}
	}
	assert.Equal(t, 1, detected)
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Load(context.Context, string) (*models.DetectionResult, error) {
	return nil, errors.New("redis: connection refused")
}

func (f *failingStore) Save(context.Context, string, models.DetectionResult) error {
	return errors.New("redis: connection refused")
}

func TestGetOrDetectSurvivesStoreFailures(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	r := newTestResolver(store, []Provider{&stubProvider{name: "a", country: "Kuwait"}})

	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})
	assert.Equal(t, "kuwait", out.CountrySlug)
}

func TestForget(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "k", "india", testNow)
	r := newTestResolver(store, nil)

	require.NoError(t, r.Forget(context.Background(), "k"))
	stored, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestResolversShareDetectorWithOwnClocks(t *testing.T) {
	detector := NewDetector([]Provider{&stubProvider{name: "a", country: "Oman"}}, nil)
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	storeA, storeB := NewMemoryStore(), NewMemoryStore()
	a := NewResolver(storeA, detector, nil, WithClock(func() time.Time { return early }))
	b := NewResolver(storeB, detector, nil, WithClock(func() time.Time { return late }))

	a.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})
	b.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})

	gotA, err := storeA.Load(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, gotA)
	gotB, err := storeB.Load(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, gotB)

	assert.True(t, early.Equal(gotA.DetectedAt))
	assert.True(t, late.Equal(gotB.DetectedAt))
}

func TestGetOrDetectWithoutDetectorFallsBack(t *testing.T) {
	r := NewResolver(NewMemoryStore(), nil, nil, WithClock(fixedClock))

	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})
	assert.Equal(t, DefaultSlug, out.CountrySlug)
	assert.Equal(t, models.SourceDefault, out.Source)
}

func TestFallbackSaveDropsEarlierProviderAndIP(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "k", models.DetectionResult{
		CountrySlug: "india",
		SourceIP:    "203.0.113.5",
		Provider:    "ipapi.co",
		DetectedAt:  testNow.Add(-2 * time.Hour),
	}))

	r := newTestResolver(store, []Provider{&stubProvider{name: "a", err: errors.New("down")}})
	out := r.GetOrDetect(context.Background(), models.LocationRequest{ClientKey: "k"})
	require.Equal(t, DefaultSlug, out.CountrySlug)

	stored, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, DefaultSlug, stored.CountrySlug)
	assert.Empty(t, stored.Provider)
	assert.Empty(t, stored.SourceIP)
	assert.True(t, testNow.Equal(stored.DetectedAt))
}
