package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "electionpulse/internal/errors"
)

// maxResponseBytes caps feed payload size; the largest observed turnout
// payload is under 4 MB.
const maxResponseBytes = 32 << 20

// Client fetches JSON payloads from the upstream result servers with a
// per-URL TTL response cache and a politeness rate limiter. The cache
// window doubles as the revalidation window: a payload younger than its
// TTL is served from memory without touching the network.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	fetchedAt time.Time
}

// NewClient creates a feed client. The timeout bounds every request
// end to end; there is no unbounded network wait anywhere in the
// pipeline.
func NewClient(timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:     logger.With("component", "feed_client"),
		cache:      make(map[string]cacheEntry),
	}
}

// GetJSON fetches url, decodes the response into v, and validates the
// cache window. A cached payload younger than ttl is decoded without a
// network round trip. The returned bool reports whether the payload
// came from cache.
func (c *Client) GetJSON(ctx context.Context, url string, ttl time.Duration, v interface{}) (bool, error) {
	if body, ok := c.cached(url, ttl); ok {
		if err := json.Unmarshal(body, v); err != nil {
			return true, apperrors.NewParsingError("decode cached payload", err).WithContext("url", url)
		}
		return true, nil
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, apperrors.NewParsingError("decode payload", err).WithContext("url", url)
	}

	c.store(url, body)
	return false, nil
}

// fetch performs the rate-limited HTTP round trip
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError("rate limiter wait", err).WithContext("url", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("build request", err).WithContext("url", url)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("execute request", err).WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).WithContext("url", url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError("read response body", err).WithContext("url", url)
	}

	c.logger.DebugContext(ctx, "feed fetched",
		"url", url,
		"bytes", len(body),
		"duration", time.Since(start).String(),
	)

	return body, nil
}

// cached returns the cached body when it is younger than ttl
func (c *Client) cached(url string, ttl time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[url]
	if !ok || time.Since(entry.fetchedAt) >= ttl {
		return nil, false
	}
	return entry.body, true
}

// store records a freshly fetched body
func (c *Client) store(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[url] = cacheEntry{body: body, fetchedAt: time.Now()}
}

// Invalidate drops every cached payload. Used by operators to force a
// full refetch after an upstream correction.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}
