// Package geocode resolves postal addresses to coordinates.
package geocode

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/placepinapp/placepin-server/internal/domain"
	domainerrors "github.com/placepinapp/placepin-server/internal/errors"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "placepin-server/1.0 (self-hosted)"
)

// Client geocodes addresses against a Nominatim instance.
// Rate limited to 1 request per second per the public instance's usage policy.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a Nominatim client. An empty baseURL targets the public
// openstreetmap.org instance.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:      logger,
	}
}

// nominatimResult is one entry of a Nominatim search response.
// Coordinates come back as strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address to coordinates. An address Nominatim cannot
// resolve is a GeocodeFailed domain error, not a transport error.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Location, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.Location{}, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	searchURL := c.baseURL + "/search?" + params.Encode()

	if c.logger != nil {
		c.logger.Debug("geocoding address",
			"address", address,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return domain.Location{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Location{}, domainerrors.GeocodeFailed("geocoding service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, domainerrors.GeocodeFailed(fmt.Sprintf("geocoding service returned status %d", resp.StatusCode))
	}

	var results []nominatimResult
	if err := json.UnmarshalRead(resp.Body, &results); err != nil {
		return domain.Location{}, fmt.Errorf("parse response: %w", err)
	}

	if len(results) == 0 {
		return domain.Location{}, domainerrors.GeocodeFailed("could not find location for the specified address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Location{}, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}

	return domain.Location{Lat: lat, Lng: lng}, nil
}
