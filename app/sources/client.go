package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client wraps an http.Client with a per-instance minimum request interval.
// Every adapter gets its own Client so politeness windows are tracked per
// platform, not globally.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(httpClient *http.Client, userAgent string, minInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		userAgent:   userAgent,
		minInterval: minInterval,
	}
}

// Get fetches a URL and returns the response body. Extra headers are passed
// as alternating key/value pairs.
func (c *Client) Get(ctx context.Context, url string, headers ...string) ([]byte, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return data, nil
}

// throttle sleeps until the minimum interval since the previous request
// has elapsed, or returns early if the context is canceled.
func (c *Client) throttle(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(max(wait, 0))
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
