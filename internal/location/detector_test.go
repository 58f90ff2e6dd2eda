package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/marketgeo/internal/models"
)

type stubProvider struct {
	name    string
	country string
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Lookup(ctx context.Context, ip string) models.ProviderResult {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return models.ProviderResult{Provider: p.name, Err: ctx.Err()}
		}
	}
	return models.ProviderResult{Provider: p.name, IP: ip, Country: p.country, Err: p.err}
}

func TestDetectPrefersPriorityOverArrival(t *testing.T) {
	slow := &stubProvider{name: "a", country: "India", delay: 50 * time.Millisecond}
	fast := &stubProvider{name: "b", country: "Australia"}
	third := &stubProvider{name: "c", country: "Japan"}

	d := NewDetector([]Provider{slow, fast, third}, nil)
	result, err := d.Detect(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "india", result.CountrySlug)
	assert.Equal(t, "a", result.Provider)
	assert.Equal(t, "India", result.RawCountry)
	assert.Equal(t, "203.0.113.7", result.SourceIP)
	assert.False(t, result.DetectedAt.IsZero())

	assert.EqualValues(t, 1, slow.calls.Load())
	assert.EqualValues(t, 1, fast.calls.Load())
	assert.EqualValues(t, 1, third.calls.Load(), "every provider is queried")
}

func TestDetectSkipsUnusableResults(t *testing.T) {
	failing := &stubProvider{name: "a", err: errors.New("boom")}
	empty := &stubProvider{name: "b"}
	ok := &stubProvider{name: "c", country: "Iraq"}

	d := NewDetector([]Provider{failing, empty, ok}, nil)
	result, err := d.Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "uae", result.CountrySlug)
	assert.Equal(t, "c", result.Provider)
}

func TestDetectUnknownCountryResolvesToDefault(t *testing.T) {
	d := NewDetector([]Provider{&stubProvider{name: "a", country: "Brazil"}}, nil)
	result, err := d.Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSlug, result.CountrySlug)
	assert.Equal(t, "Brazil", result.RawCountry)
}

func TestDetectAllProvidersFailed(t *testing.T) {
	d := NewDetector([]Provider{
		&stubProvider{name: "a", err: errors.New("timeout")},
		&stubProvider{name: "b", err: errors.New("refused")},
		&stubProvider{name: "c"},
	}, nil)

	_, err := d.Detect(context.Background(), "198.51.100.1")
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

type panickyProvider struct{}

func (panickyProvider) Name() string { return "panicky" }
func (panickyProvider) Lookup(context.Context, string) models.ProviderResult {
	panic("decoder bug")
}

func TestDetectRecoversFromProviderPanic(t *testing.T) {
	d := NewDetector([]Provider{panickyProvider{}, &stubProvider{name: "b", country: "LK"}}, nil)
	result, err := d.Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "sri-lanka", result.CountrySlug)
}

// ===========================================
// HTTP provider decoding
// ===========================================

func newJSONServer(t *testing.T, status int, body string, gotPath *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPath != nil {
			*gotPath = r.URL.Path
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIPAPIProvider(t *testing.T) {
	var path string
	srv := newJSONServer(t, http.StatusOK,
		`{"ip":"1.2.3.4","country":"AU","country_name":"Australia","city":"Sydney"}`, &path)

	p := NewIPAPIProvider(srv.URL, srv.Client())
	res := p.Lookup(context.Background(), "1.2.3.4")

	require.NoError(t, res.Err)
	assert.Equal(t, "/1.2.3.4/json/", path)
	assert.Equal(t, "Australia", res.Country)
	assert.Equal(t, "Sydney", res.City)
	assert.Equal(t, ProviderIPAPI, res.Provider)

	p.Lookup(context.Background(), "")
	assert.Equal(t, "/json/", path)
}

func TestIPAPIProviderFallsBackToCountryCode(t *testing.T) {
	srv := newJSONServer(t, http.StatusOK, `{"ip":"1.2.3.4","country":"LK"}`, nil)
	res := NewIPAPIProvider(srv.URL, srv.Client()).Lookup(context.Background(), "1.2.3.4")
	require.NoError(t, res.Err)
	assert.Equal(t, "LK", res.Country)
}

func TestIPAPIProviderErrorPayload(t *testing.T) {
	srv := newJSONServer(t, http.StatusOK, `{"error":true,"reason":"RateLimited"}`, nil)
	res := NewIPAPIProvider(srv.URL, srv.Client()).Lookup(context.Background(), "1.2.3.4")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
	assert.False(t, res.Usable())
}

func TestIPWhoIsProvider(t *testing.T) {
	var path string
	srv := newJSONServer(t, http.StatusOK,
		`{"ip":"5.6.7.8","success":true,"country":"Germany","region":"Berlin","city":"Berlin"}`, &path)

	res := NewIPWhoIsProvider(srv.URL, srv.Client()).Lookup(context.Background(), "5.6.7.8")
	require.NoError(t, res.Err)
	assert.Equal(t, "/5.6.7.8", path)
	assert.Equal(t, "Germany", res.Country)
}

func TestIPWhoIsProviderUnsuccessful(t *testing.T) {
	srv := newJSONServer(t, http.StatusOK, `{"success":false,"message":"Invalid IP address"}`, nil)
	res := NewIPWhoIsProvider(srv.URL, srv.Client()).Lookup(context.Background(), "x")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
}

func TestIPAPIComProvider(t *testing.T) {
	var path string
	srv := newJSONServer(t, http.StatusOK,
		`{"status":"success","country":"Japan","regionName":"Tokyo","city":"Tokyo","query":"9.9.9.9"}`, &path)

	res := NewIPAPIComProvider(srv.URL+"/json", srv.Client()).Lookup(context.Background(), "9.9.9.9")
	require.NoError(t, res.Err)
	assert.Equal(t, "/json/9.9.9.9", path)
	assert.Equal(t, "Japan", res.Country)
	assert.Equal(t, "Tokyo", res.Region)
	assert.Equal(t, "9.9.9.9", res.IP)
}

func TestIPAPIComProviderFailStatus(t *testing.T) {
	srv := newJSONServer(t, http.StatusOK, `{"status":"fail","message":"reserved range"}`, nil)
	res := NewIPAPIComProvider(srv.URL, srv.Client()).Lookup(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
}

func TestHTTPProviderNon2xxAndBadBody(t *testing.T) {
	bad := newJSONServer(t, http.StatusTooManyRequests, `{"country":"India"}`, nil)
	res := NewIPWhoIsProvider(bad.URL, bad.Client()).Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)

	garbled := newJSONServer(t, http.StatusOK, `<html>`, nil)
	res = NewIPWhoIsProvider(garbled.URL, garbled.Client()).Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)

	noCountry := newJSONServer(t, http.StatusOK, `{"success":true}`, nil)
	res = NewIPWhoIsProvider(noCountry.URL, noCountry.Client()).Lookup(context.Background(), "1.1.1.1")
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
}

func TestDetectWithHTTPProviders(t *testing.T) {
	down := newJSONServer(t, http.StatusInternalServerError, `{}`, nil)
	who := newJSONServer(t, http.StatusOK, `{"success":true,"country":"Pakistan","ip":"7.7.7.7"}`, nil)
	com := newJSONServer(t, http.StatusOK, `{"status":"success","country":"Nepal","query":"7.7.7.7"}`, nil)

	d := NewDetector(DefaultProviders(down.URL, who.URL, com.URL, 2*time.Second), nil)
	assert.Equal(t, []string{ProviderIPAPI, ProviderIPWhoIs, ProviderIPAPICom}, d.Providers())

	result, err := d.Detect(context.Background(), "7.7.7.7")
	require.NoError(t, err)
	assert.Equal(t, "pakistan", result.CountrySlug)
	assert.Equal(t, ProviderIPWhoIs, result.Provider)
}
