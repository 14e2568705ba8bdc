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
)

// ProviderResponse is the subset of the ipapi.co payload the detector uses.
type ProviderResponse struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Currency    string  `json:"currency"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	// Set by the provider when it refuses a lookup (rate limits, reserved ranges).
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// ErrLookupRejected marks a lookup the provider refused because of the
// address asked about, such as a reserved range or a malformed request.
// It says nothing about the provider's health.
var ErrLookupRejected = errors.New("lookup rejected by provider")

// Provider resolves an IP address to a country. An empty ip means the
// address the request originates from.
type Provider interface {
	Lookup(ctx context.Context, ip string) (*ProviderResponse, error)
}

// HTTPProvider queries an ipapi.co-compatible endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds a provider rooted at baseURL, e.g. https://ipapi.co.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProvider) endpoint(ip string) string {
	if ip == "" {
		return p.baseURL + "/json/"
	}
	return p.baseURL + "/" + url.PathEscape(ip) + "/json/"
}

func (p *HTTPProvider) Lookup(ctx context.Context, ip string) (*ProviderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(ip), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch geo data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrLookupRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to fetch location data: status %d", resp.StatusCode)
	}

	var geo ProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if geo.Error {
		return nil, fmt.Errorf("%w: %s", ErrLookupRejected, geo.Reason)
	}
	if geo.CountryCode == "" {
		return nil, fmt.Errorf("%w: response has no country_code", ErrLookupRejected)
	}

	return &geo, nil
}
