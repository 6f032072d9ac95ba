// Package tmap is a client for the TMAP pedestrian and car routing APIs.
package tmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

// DefaultBaseURL is the public TMAP endpoint.
const DefaultBaseURL = "https://apis.openapi.sk.com/tmap"

const maxResponseBytes = 8 << 20

// HTTPDoer is the part of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.RoutingProvider. It returns the raw GeoJSON
// FeatureCollection; interpretation belongs to the routing package.
type Client struct {
	appKey  string
	baseURL string
	http    HTTPDoer
}

// NewClient creates a client with its own http.Client. Per-call deadlines
// come from the caller's context.
func NewClient(appKey, baseURL string) *Client {
	return NewClientWithHTTPDoer(appKey, baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTPDoer creates a client around doer.
func NewClientWithHTTPDoer(appKey, baseURL string, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{appKey: appKey, baseURL: baseURL, http: doer}
}

type routeRequest struct {
	StartX       string `json:"startX"`
	StartY       string `json:"startY"`
	EndX         string `json:"endX"`
	EndY         string `json:"endY"`
	StartName    string `json:"startName,omitempty"`
	EndName      string `json:"endName,omitempty"`
	ReqCoordType string `json:"reqCoordType"`
	ResCoordType string `json:"resCoordType"`
	SearchOption string `json:"searchOption"`
	TrafficInfo  string `json:"trafficInfo,omitempty"`
}

// FetchRoute posts a route search for mode and returns the response body.
func (c *Client) FetchRoute(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error) {
	if c.appKey == "" {
		return nil, fmt.Errorf("%w: tmap app key not configured", domain.ErrProviderUnavailable)
	}

	body := routeRequest{
		StartX:       formatCoord(start.Lon),
		StartY:       formatCoord(start.Lat),
		EndX:         formatCoord(end.Lon),
		EndY:         formatCoord(end.Lat),
		ReqCoordType: "WGS84GEO",
		ResCoordType: "WGS84GEO",
		SearchOption: "0",
	}

	var path string
	switch mode {
	case domain.ModeWalk:
		path = "/routes/pedestrian?version=1"
		// the pedestrian API rejects requests without names
		body.StartName, body.EndName = "start", "end"
	case domain.ModeDrive:
		path = "/routes?version=1"
		body.TrafficInfo = "Y"
	default:
		return nil, fmt.Errorf("%w: travel mode %q", domain.ErrInvalidArgument, mode)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tmap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create tmap request: %w", err)
	}
	req.Header.Set("appKey", c.appKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmap request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read tmap response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("tmap rate limit exceeded")
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("tmap API error %d: %s", resp.StatusCode, truncate(data, 200))
	case resp.StatusCode == http.StatusNoContent:
		// no route between the points
		return []byte(`{"type":"FeatureCollection","features":[]}`), nil
	}
	return data, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
