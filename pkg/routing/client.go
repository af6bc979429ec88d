// Package routing geocodes addresses and fetches driving routes from the
// external routing provider, with a straight-line fallback when the
// provider is unavailable.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
)

// Route is a driving route between two points.
type Route struct {
	Polyline        [][2]float64 `json:"polyline"` // [lng, lat] pairs
	DurationMinutes int          `json:"duration_minutes"`
	Fallback        bool         `json:"fallback"`
}

// Client is the HTTP client for the geocoding/routing provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// NewClient creates a routing client. token may be empty; Plan then always
// returns the two-point fallback.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     slog.With("component", "routing"),
	}
}

type geocodeResponse struct {
	Features []struct {
		Center [2]float64 `json:"center"`
	} `json:"features"`
}

// Geocode resolves an address to [lng, lat].
func (c *Client) Geocode(ctx context.Context, address string) ([2]float64, error) {
	if c.token == "" {
		return [2]float64{}, fault.NewUpstreamError("routing", "no token configured", nil)
	}
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?access_token=%s&limit=1",
		c.baseURL, url.PathEscape(address), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return [2]float64{}, fmt.Errorf("create geocode request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return [2]float64{}, fault.NewUpstreamError("routing", "geocode "+address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return [2]float64{}, fault.NewUpstreamError("routing",
			fmt.Sprintf("geocode returned HTTP %d", resp.StatusCode), nil)
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return [2]float64{}, fault.NewUpstreamError("routing", "decode geocode response", err)
	}
	if len(decoded.Features) == 0 {
		return [2]float64{}, fault.NewUpstreamError("routing", "no geocode match for "+address, nil)
	}
	return decoded.Features[0].Center, nil
}

type directionsResponse struct {
	Routes []struct {
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Directions fetches a driving route between two [lng, lat] points.
func (c *Client) Directions(ctx context.Context, from, to [2]float64) (*Route, error) {
	endpoint := fmt.Sprintf(
		"%s/directions/v5/mapbox/driving/%f,%f;%f,%f?access_token=%s&geometries=geojson&overview=full",
		c.baseURL, from[0], from[1], to[0], to[1], url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create directions request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.NewUpstreamError("routing", "directions", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.NewUpstreamError("routing",
			fmt.Sprintf("directions returned HTTP %d", resp.StatusCode), nil)
	}

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fault.NewUpstreamError("routing", "decode directions response", err)
	}
	if len(decoded.Routes) == 0 {
		return nil, fault.NewUpstreamError("routing", "no route found", nil)
	}

	r := decoded.Routes[0]
	return &Route{
		Polyline:        r.Geometry.Coordinates,
		DurationMinutes: int(r.Duration / 60),
	}, nil
}

// Plan geocodes both addresses and fetches a route. Any provider failure
// degrades to a straight two-point polyline with a coarse ETA so transport
// scheduling never blocks on the collaborator.
func (c *Client) Plan(ctx context.Context, pickupAddr, dropoffAddr string) *Route {
	from, err := c.Geocode(ctx, pickupAddr)
	if err == nil {
		var to [2]float64
		to, err = c.Geocode(ctx, dropoffAddr)
		if err == nil {
			var route *Route
			route, err = c.Directions(ctx, from, to)
			if err == nil {
				return route
			}
		}
	}
	c.logger.Warn("Routing provider unavailable, using two-point fallback", "error", err)
	return fallbackRoute(pickupAddr, dropoffAddr)
}

// fallbackRoute builds a deterministic two-point polyline from address
// hashes so repeated calls for the same pair look identical.
func fallbackRoute(pickupAddr, dropoffAddr string) *Route {
	return &Route{
		Polyline: [][2]float64{
			pseudoCoordinate(pickupAddr),
			pseudoCoordinate(dropoffAddr),
		},
		DurationMinutes: 25,
		Fallback:        true,
	}
}

// pseudoCoordinate derives a stable point near San Francisco from an
// address string.
func pseudoCoordinate(address string) [2]float64 {
	var h uint32
	for _, r := range address {
		h = h*31 + uint32(r)
	}
	lng := -122.52 + float64(h%1000)/10000.0
	lat := 37.70 + float64((h/1000)%1000)/10000.0
	return [2]float64{lng, lat}
}
