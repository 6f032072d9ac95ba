// Package source reads raw wildfire timelines from local files or HTTP.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxTimelineBytes = 256 << 20

// HTTPDoer is the part of *http.Client the reader needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reader implements ports.WildfireSource.
type Reader struct {
	http HTTPDoer
}

// NewReader creates a Reader with a 2 minute HTTP timeout.
func NewReader() *Reader {
	return NewReaderWithHTTPDoer(&http.Client{Timeout: 2 * time.Minute})
}

// NewReaderWithHTTPDoer creates a Reader around doer.
func NewReaderWithHTTPDoer(doer HTTPDoer) *Reader {
	return &Reader{http: doer}
}

// FetchTimeline reads location, an http(s) URL or a file path.
func (r *Reader) FetchTimeline(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return r.fetchHTTP(ctx, location)
	}
	path := strings.TrimPrefix(location, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}
	defer f.Close()
	return readLimited(f)
}

func (r *Reader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create timeline request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timeline: status %d", resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func readLimited(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, maxTimelineBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	if len(data) > maxTimelineBytes {
		return nil, fmt.Errorf("timeline exceeds %d bytes", maxTimelineBytes)
	}
	return data, nil
}
