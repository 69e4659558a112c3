// Package geocode provides forward geocoding via the Mapbox API. The match
// engine treats geocoding as an optional collaborator: a failed or absent
// result means "no coordinates available", never a run failure.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jonathan/homematch/internal/types"
)

// DefaultBaseURL is the Mapbox geocoding API root.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultPace is the minimum gap between outbound calls; the provider rate
// limit demands sequential, paced requests.
const DefaultPace = 100 * time.Millisecond

// ErrNoResult indicates the provider returned no features for the query.
var ErrNoResult = fmt.Errorf("geocode: no result")

// Geocoder resolves a free-text location into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (types.Coords, error)
}

// Options configures the Mapbox client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Pace    time.Duration
	// Sleep is injectable for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Pace:    DefaultPace,
	}
}

// Client is a paced Mapbox forward-geocoding client. Calls are serialized;
// at most one request per pace interval goes out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pace       time.Duration
	sleep      func(time.Duration)

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a Mapbox client with the given access token.
func NewClient(token string, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	pace := opts.Pace
	if pace == 0 {
		pace = DefaultPace
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		token:      token,
		pace:       pace,
		sleep:      sleep,
	}
}

// featureCollection is the subset of the Mapbox response we consume.
type featureCollection struct {
	Features []struct {
		Center [2]float64 `json:"center"` // [lng, lat]
	} `json:"features"`
}

// Geocode resolves query to coordinates, pacing outbound calls.
func (c *Client) Geocode(ctx context.Context, query string) (types.Coords, error) {
	if query == "" {
		return types.Coords{}, ErrNoResult
	}

	c.throttle()

	endpoint := fmt.Sprintf("%s/%s.json?access_token=%s&limit=1",
		c.baseURL, url.PathEscape(query), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Coords{}, fmt.Errorf("geocode: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Coords{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Coords{}, fmt.Errorf("geocode: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.Coords{}, fmt.Errorf("geocode: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return types.Coords{}, fmt.Errorf("geocode: failed to decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return types.Coords{}, ErrNoResult
	}

	center := fc.Features[0].Center
	return types.Coords{Latitude: center[1], Longitude: center[0]}, nil
}

// throttle enforces the pace between consecutive calls.
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed := time.Since(c.lastCall); elapsed < c.pace {
		c.sleep(c.pace - elapsed)
	}
	c.lastCall = time.Now()
}
