package qsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quatton/qgen/pkg/kv"
	"github.com/quatton/qgen/pkg/qlog"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

const (
	defaultRetryAfter = 5 * time.Second
	// DefaultCacheNamespace prefixes every cache key a client writes.
	DefaultCacheNamespace = "qgen:"
)

// Client is an authenticated session against the Replicate HTTP API. It owns
// a TTL cache for model listings and details; version payloads and
// predictions are never cached.
type Client struct {
	BaseURL string

	token    string
	http     *http.Client
	cache    kv.Store
	cacheNS  string
	cacheTTL time.Duration
	log      *qlog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache swaps the in-memory cache for another kv backend. Clients that
// share a backend and a namespace share entries, and ClearCache on any of
// them drops the entries of all; give a client its own namespace with
// WithCacheNamespace to keep its refreshes local.
func WithCache(store kv.Store) Option {
	return func(c *Client) { c.cache = store }
}

// WithCacheNamespace sets the prefix of this client's cache keys.
func WithCacheNamespace(ns string) Option {
	return func(c *Client) {
		if ns != "" {
			c.cacheNS = ns
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

func WithLogger(l *qlog.Logger) Option {
	return func(c *Client) { c.log = qlog.OrNop(l).Component("qsdk") }
}

// WithSleep replaces the backoff/poll sleeper, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClock replaces time.Now for the poll deadline, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a client bound to token. An empty token is a
// configuration error, not a gateway fault.
func NewClient(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, qerr.Newf(qerr.CodeConfig, "no API token provided")
	}
	c := &Client{
		BaseURL:  DefaultBaseURL,
		token:    token,
		http:     &http.Client{Timeout: 300 * time.Second},
		cache:    kv.NewMemoryStore(),
		cacheNS:  DefaultCacheNamespace,
		cacheTTL: time.Hour,
		log:      qlog.Nop(),
		sleep:    sleepCtx,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig resolves the token per LoadToken and applies cfg.
func NewClientFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	token, _, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithCacheTTL(cfg.CacheTTL),
	}
	return NewClient(token, append(base, opts...)...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do issues an authenticated request and decodes a 200/201 body into out
// (which may be nil). A 429 is retried once after Retry-After.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return qerr.Validation("encoding request body: %v", err)
		}
		payload = b
	}
	return c.do(ctx, method, path, query, payload, out, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, out any, retry bool) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return qerr.New(qerr.CodeTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return qerr.New(qerr.CodeTransport, fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return qerr.New(qerr.CodeTransport, fmt.Errorf("network error reading body: %w", err))
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return qerr.New(qerr.CodeAPI, fmt.Errorf("decoding %s %s: %w", method, path, err))
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized:
		return qerr.Newf(qerr.CodeUnauthorized, "Invalid API token")

	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp.Header.Get("Retry-After"))
		if !retry {
			return qerr.Newf(qerr.CodeRateLimited, "rate limit exceeded on %s %s after retry", method, path)
		}
		c.log.Warn("rate limited, backing off", "path", path, "retry_after", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
		return c.do(ctx, method, path, query, payload, out, false)

	default:
		data, _ := io.ReadAll(resp.Body)
		return qerr.HTTP(qerr.CodeAPI, resp.StatusCode, string(data))
	}
}

// retryAfter reads a Retry-After header in seconds, defaulting to 5s.
func retryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// cached serves key from the cache or fills it via fetch. Cache backend
// failures degrade to a direct fetch.
func (c *Client) cached(ctx context.Context, key string, out any, fetch func() error) error {
	key = c.cacheNS + key
	if data, err := c.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		c.log.Warn("cache read failed", "key", key, "error", err)
	}

	if err := fetch(); err != nil {
		return err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return nil
}

// ClearCache drops cached listings and details. Predictions in flight and
// schema caches built on top of this client are unaffected.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, c.cacheNS)
}
