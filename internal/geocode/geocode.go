// Package geocode resolves free-text place names through a Nominatim
// compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// ErrUnexpectedStatus is wrapped by errors for non-200 responses
var ErrUnexpectedStatus = errors.New("geocoder returned unexpected status")

// Place is one geocoded match
type Place struct {
	Location    orb.Point
	DisplayName string

	// BoundingBox is nil when the match carries none or it is malformed
	BoundingBox *orb.Bound
}

// Lat returns the latitude of the match
func (p *Place) Lat() float64 { return p.Location.Lat() }

// Lon returns the longitude of the match
func (p *Place) Lon() float64 { return p.Location.Lon() }

// result is the wire form of one Nominatim match. Coordinates arrive as strings.
type result struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// Client issues place-search requests
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       *zap.Logger
}

// NewClient creates a geocoding client against baseURL (e.g.
// https://nominatim.openstreetmap.org). A nil logger disables logging.
func NewClient(baseURL, userAgent string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// Search asks for at most one match and returns it. An empty result set
// yields (nil, nil). Every call is independent: no retry, no caching.
func (c *Client) Search(ctx context.Context, query string) (*Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")
	endpoint := c.baseURL + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: %w: %d", query, ErrUnexpectedStatus, resp.StatusCode)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocode %q: decoding response: %w", query, err)
	}

	c.log.Debug("geocode",
		zap.String("query", query),
		zap.Int("matches", len(results)),
		zap.Duration("took", time.Since(started)))

	if len(results) == 0 {
		return nil, nil
	}
	return toPlace(results[0])
}

func toPlace(r result) (*Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lon %q: %w", r.Lon, err)
	}

	p := &Place{
		Location:    orb.Point{lon, lat},
		DisplayName: r.DisplayName,
	}
	if len(r.BoundingBox) > 0 {
		if b, err := ParseBoundingBox(r.BoundingBox); err == nil {
			p.BoundingBox = &b
		}
	}
	return p, nil
}

// ParseBoundingBox reads a Nominatim boundingbox, which is ordered
// south, north, west, east.
func ParseBoundingBox(raw []string) (orb.Bound, error) {
	if len(raw) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box needs 4 values, got %d", len(raw))
	}
	var v [4]float64
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounding box value %d: %w", i, err)
		}
		v[i] = f
	}
	south, north, west, east := v[0], v[1], v[2], v[3]
	if south > north {
		return orb.Bound{}, fmt.Errorf("bounding box south %v above north %v", south, north)
	}
	return orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{east, north},
	}, nil
}
