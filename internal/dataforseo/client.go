// Package dataforseo is a typed client for the DataForSEO v3 REST API.
package dataforseo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"seodesk/internal/cache"
	"seodesk/internal/metrics"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.dataforseo.com/v3"

const providerName = "dataforseo"

// Client calls the provider with basic auth and client-side rate limiting.
type Client struct {
	baseURL  string
	login    string
	password string
	http     *http.Client
	limiter  *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for tests or the sandbox.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps requests per second; rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithCache enables response caching for read-heavy endpoints.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// NewClient creates a client for the given credentials.
func NewClient(login, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		login:    login,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do posts payload to endpoint and decodes the task results into []T.
// When cacheable is set and a cache is configured, successful response bodies are cached.
func do[T any](ctx context.Context, c *Client, endpoint string, payload any, cacheable bool) ([]T, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	var key string
	if cacheable && c.cache != nil && c.cacheTTL > 0 {
		sum := sha256.Sum256(append([]byte(endpoint+"\n"), body...))
		key = "dfs:" + hex.EncodeToString(sum[:])
		if cached, ok, err := c.cache.Get(ctx, key); err != nil {
			slog.Warn("provider cache read failed", "endpoint", endpoint, "error", err)
		} else if ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return decode[T](endpoint, http.StatusOK, cached)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	raw, status, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	results, err := decode[T](endpoint, status, raw)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			slog.Warn("provider cache write failed", "endpoint", endpoint, "error", err)
		}
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (raw []byte, status int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderRequest(providerName, endpoint, err, start) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request failed: %w", err)
	}
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response failed: %w", err)
	}

	slog.Debug("provider response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Endpoint: endpoint, HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env Response[json.RawMessage]
		if json.Unmarshal(raw, &env) == nil {
			apiErr.StatusCode = env.StatusCode
			if env.StatusMessage != "" {
				apiErr.Message = env.StatusMessage
			}
		}
		return nil, resp.StatusCode, apiErr
	}

	return raw, resp.StatusCode, nil
}

// decode parses the envelope and enforces both envelope- and task-level status codes.
func decode[T any](endpoint string, httpStatus int, raw []byte) ([]T, error) {
	var env Response[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	if env.StatusCode >= ErrorStatusThreshold {
		return nil, &APIError{Endpoint: endpoint, HTTPStatus: httpStatus, StatusCode: env.StatusCode, Message: env.StatusMessage}
	}
	if len(env.Tasks) == 0 {
		return nil, nil
	}

	task := env.Tasks[0]
	if task.StatusCode >= ErrorStatusThreshold {
		return nil, &APIError{Endpoint: endpoint, HTTPStatus: httpStatus, StatusCode: task.StatusCode, Message: task.StatusMessage}
	}
	return task.Result, nil
}

// firstItems returns the items of the first result, the common shape of list endpoints.
func firstItems[I any](results []ItemsResult[I]) []I {
	if len(results) == 0 {
		return nil
	}
	return results[0].Items
}
