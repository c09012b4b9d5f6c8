// Package geocode turns postal addresses into coordinates through a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ryanbastic/go-rebuilder/internal/circuitbreaker"
	"github.com/ryanbastic/go-rebuilder/internal/content"
	"github.com/ryanbastic/go-rebuilder/internal/metrics"
)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "HIVConnectCNJ/1.0 (hivconnectcnj.org)"
	DefaultTimeout   = 10 * time.Second
	DefaultInterval  = time.Second

	countryCodes    = "us"
	maxResponseBody = 1 << 20
)

// Config configures a Client.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration

	BreakerMaxFailures int
	BreakerReset       time.Duration
}

// errUpstream marks failures of the geocoder itself. Only these count
// against the breaker; any other error from search (a canceled caller, a
// bad configured URL) passes through circuitbreaker.Ignore.
var errUpstream = errors.New("geocoder upstream failure")

// place is one element of a search reply. Nominatim encodes numbers as
// strings.
type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Client looks up addresses. Geocode never returns an error: every failure
// is logged and reported as "no coordinates".
//
// Client does not pace itself; callers that issue many lookups share a
// Pacer.
type Client struct {
	url        string
	userAgent  string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The configured timeout
// is not applied to a replaced client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBreaker replaces the breaker built from Config.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

// NewClient creates a Client. Zero config fields fall back to the defaults.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = time.Minute
	}

	c := &Client{
		url:        cfg.URL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
	c.breaker = circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerReset,
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			logger.Warn("geocoder circuit state changed", "from", from.String(), "to", to.String())
		}),
	)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode returns the coordinates of the best match for q, or nil when the
// address is blank, nothing matched, or the lookup failed.
func (c *Client) Geocode(ctx context.Context, q content.AddressQuery) *content.Coordinates {
	text := q.Text()
	if text == "" {
		metrics.RecordGeocode(metrics.OutcomeEmpty)
		return nil
	}

	var coords *content.Coordinates
	err := c.breaker.Execute(func() error {
		var err error
		coords, err = c.search(ctx, text)
		if err != nil && !errors.Is(err, errUpstream) {
			return circuitbreaker.Ignore(err)
		}
		return err
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.RecordGeocode(metrics.OutcomeOpen)
		c.logger.Warn("geocoder circuit open, skipping lookup", "address", text)
		return nil
	case err != nil && ctx.Err() != nil:
		metrics.RecordGeocode(metrics.OutcomeError)
		c.logger.Warn("geocoding abandoned by caller", "address", text, "error", err)
		return nil
	case err != nil:
		metrics.RecordGeocode(metrics.OutcomeError)
		c.logger.Error("geocoding failed", "address", text, "error", err)
		return nil
	case coords == nil:
		metrics.RecordGeocode(metrics.OutcomeNoResult)
		c.logger.Warn("no geocoding result", "address", text)
		return nil
	}

	metrics.RecordGeocode(metrics.OutcomeSuccess)
	c.logger.Debug("address geocoded", "address", text, "lat", coords.Lat, "lng", coords.Lng)
	return coords
}

// CircuitState reports the breaker state ("closed", "open", "half-open").
func (c *Client) CircuitState() string {
	return c.breaker.State().String()
}

// search performs one lookup. A reply that parses but has no usable match
// yields (nil, nil) so it does not trip the breaker.
func (c *Client) search(ctx context.Context, text string) (*content.Coordinates, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	params := u.Query()
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", countryCodes)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("geocode request abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", errUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("geocode response abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: read response: %w", errUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", errUpstream, err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lngErr != nil || !validCoordinates(lat, lng) {
		c.logger.Warn("unparsable geocoding result",
			"address", text,
			"lat", places[0].Lat,
			"lon", places[0].Lon,
		)
		return nil, nil
	}
	return &content.Coordinates{Lat: lat, Lng: lng}, nil
}

// validCoordinates rejects NaN, infinities and values off the globe, which
// ParseFloat accepts but JSON cannot encode.
func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
