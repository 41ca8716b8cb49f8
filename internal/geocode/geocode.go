// Package geocode implements the Geocoder interface from spec.md §6: an
// HTTP-backed lookup, rate limited, with a hard disable switch since
// geocoding is explicitly best-effort and optional.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client calls an external geocoding HTTP API (e.g. a Nominatim-compatible
// endpoint) no faster than the configured requests-per-second.
type Client struct {
	baseURL  string
	disabled bool
	limiter  *rate.Limiter
	http     *http.Client
}

func NewClient(baseURL string, disabled bool, rps float64) *Client {
	return &Client{
		baseURL:  baseURL,
		disabled: disabled || baseURL == "",
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResult struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocode resolves place to coordinates. ok=false (with err=nil) means "no
// result", distinct from a transport failure.
func (c *Client) Geocode(ctx context.Context, place string) (lat, lon float64, ok bool, err error) {
	if c.disabled {
		return 0, 0, false, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, false, fmt.Errorf("geocode: rate limit wait: %w", err)
	}
	u := c.baseURL + "?q=" + url.QueryEscape(place)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("geocode: status %d", resp.StatusCode)
	}
	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, false, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}
	return results[0].Lat, results[0].Lon, true, nil
}
