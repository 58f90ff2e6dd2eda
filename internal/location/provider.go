package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/marketgeo/internal/models"
)

// ErrProviderUnavailable marks a provider that failed or answered
// without a usable country.
var ErrProviderUnavailable = errors.New("geolocation provider unavailable")

// Provider looks up the country of an IP address. An empty ip asks the
// provider about the caller's own address.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) models.ProviderResult
}

// ===========================================
// HTTP Providers
// ===========================================
// Each provider answers with its own JSON shape. The decode functions
// below normalize those shapes into models.ProviderResult so the
// detector only ever sees one type.

// Provider names, in default priority order.
const (
	ProviderIPAPI    = "ipapi.co"
	ProviderIPWhoIs  = "ipwho.is"
	ProviderIPAPICom = "ip-api.com"
)

// Default provider endpoints.
const (
	DefaultIPAPIURL    = "https://ipapi.co"
	DefaultIPWhoIsURL  = "https://ipwho.is"
	DefaultIPAPIComURL = "http://ip-api.com/json"
)

const maxProviderBody = 64 << 10

// HTTPProvider is a Provider backed by an unauthenticated JSON GET.
type HTTPProvider struct {
	name     string
	client   *http.Client
	buildURL func(ip string) string
	decode   func(body []byte) (models.ProviderResult, error)
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string { return p.name }

// Lookup performs the GET and normalizes the payload. It never panics
// and never returns a nil-Err result without a country.
func (p *HTTPProvider) Lookup(ctx context.Context, ip string) models.ProviderResult {
	result, err := p.lookup(ctx, ip)
	result.Provider = p.name
	if err != nil {
		result.Err = fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, p.name, err)
		return result
	}
	if strings.TrimSpace(result.Country) == "" {
		result.Err = fmt.Errorf("%w: %s: no country in response", ErrProviderUnavailable, p.name)
	}
	return result
}

func (p *HTTPProvider) lookup(ctx context.Context, ip string) (models.ProviderResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.buildURL(ip), nil)
	if err != nil {
		return models.ProviderResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.ProviderResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ProviderResult{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return models.ProviderResult{}, err
	}
	return p.decode(body)
}

// NewIPAPIProvider returns the ipapi.co provider rooted at baseURL.
func NewIPAPIProvider(baseURL string, client *http.Client) *HTTPProvider {
	base := strings.TrimRight(baseURL, "/")
	return &HTTPProvider{
		name:   ProviderIPAPI,
		client: client,
		buildURL: func(ip string) string {
			if ip == "" {
				return base + "/json/"
			}
			return base + "/" + url.PathEscape(ip) + "/json/"
		},
		decode: decodeIPAPI,
	}
}

// NewIPWhoIsProvider returns the ipwho.is provider rooted at baseURL.
func NewIPWhoIsProvider(baseURL string, client *http.Client) *HTTPProvider {
	base := strings.TrimRight(baseURL, "/")
	return &HTTPProvider{
		name:   ProviderIPWhoIs,
		client: client,
		buildURL: func(ip string) string {
			return base + "/" + url.PathEscape(ip)
		},
		decode: decodeIPWhoIs,
	}
}

// NewIPAPIComProvider returns the ip-api.com provider rooted at baseURL.
func NewIPAPIComProvider(baseURL string, client *http.Client) *HTTPProvider {
	base := strings.TrimRight(baseURL, "/")
	return &HTTPProvider{
		name:   ProviderIPAPICom,
		client: client,
		buildURL: func(ip string) string {
			return base + "/" + url.PathEscape(ip)
		},
		decode: decodeIPAPICom,
	}
}

// DefaultProviders builds the three providers in priority order.
func DefaultProviders(ipapiURL, ipwhoURL, ipapiComURL string, timeout time.Duration) []Provider {
	client := &http.Client{Timeout: timeout}
	return []Provider{
		NewIPAPIProvider(ipapiURL, client),
		NewIPWhoIsProvider(ipwhoURL, client),
		NewIPAPIComProvider(ipapiComURL, client),
	}
}

// ===========================================
// Payload Decoding
// ===========================================

type ipapiPayload struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

func decodeIPAPI(body []byte) (models.ProviderResult, error) {
	var p ipapiPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.ProviderResult{}, fmt.Errorf("decode: %w", err)
	}
	if p.Error {
		return models.ProviderResult{}, fmt.Errorf("provider error: %s", p.Reason)
	}
	country := p.CountryName
	if country == "" {
		country = p.Country
	}
	return models.ProviderResult{IP: p.IP, Country: country, City: p.City, Region: p.Region}, nil
}

type ipwhoisPayload struct {
	IP      string `json:"ip"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

func decodeIPWhoIs(body []byte) (models.ProviderResult, error) {
	var p ipwhoisPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.ProviderResult{}, fmt.Errorf("decode: %w", err)
	}
	if p.Success != nil && !*p.Success {
		return models.ProviderResult{}, fmt.Errorf("provider error: %s", p.Message)
	}
	return models.ProviderResult{IP: p.IP, Country: p.Country, City: p.City, Region: p.Region}, nil
}

type ipapiComPayload struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	Query      string `json:"query"`
}

func decodeIPAPICom(body []byte) (models.ProviderResult, error) {
	var p ipapiComPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.ProviderResult{}, fmt.Errorf("decode: %w", err)
	}
	if p.Status != "" && p.Status != "success" {
		return models.ProviderResult{}, fmt.Errorf("provider error: %s", p.Message)
	}
	return models.ProviderResult{IP: p.Query, Country: p.Country, City: p.City, Region: p.RegionName}, nil
}
