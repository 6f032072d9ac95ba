// Package shelterapi fetches the public shelter dataset from the open-data
// portal.
package shelterapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samirrijal/evacguide/internal/core/domain"
)

const maxResponseBytes = 16 << 20

// HTTPDoer is the part of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.ShelterProvider.
type Client struct {
	serviceURL string
	serviceKey string
	rows       int
	http       HTTPDoer
}

// NewClient creates a client with a 15 s request timeout.
func NewClient(serviceURL, serviceKey string) *Client {
	return NewClientWithHTTPDoer(serviceURL, serviceKey, &http.Client{Timeout: 15 * time.Second})
}

// NewClientWithHTTPDoer creates a client around doer.
func NewClientWithHTTPDoer(serviceURL, serviceKey string, doer HTTPDoer) *Client {
	return &Client{serviceURL: serviceURL, serviceKey: serviceKey, rows: 1000, http: doer}
}

// FetchShelters downloads the first page of the dataset as JSON.
func (c *Client) FetchShelters(ctx context.Context) ([]byte, error) {
	if c.serviceURL == "" {
		return nil, fmt.Errorf("%w: shelter provider URL not configured", domain.ErrProviderUnavailable)
	}

	u, err := url.Parse(c.serviceURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	q := u.Query()
	q.Set("pageNo", "1")
	q.Set("numOfRows", strconv.Itoa(c.rows))
	q.Set("type", "json")
	u.RawQuery = q.Encode()
	// the portal key is issued pre-encoded and must not be escaped again
	if c.serviceKey != "" {
		u.RawQuery += "&serviceKey=" + c.serviceKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider error %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	return data, nil
}
