package nitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/errors"
	"nitterscraper/pkg/logger"
	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/ratelimit"
)

// maxBodySize is the largest response accepted from a mirror
var maxBodySize = 10 << 20

// Option configures a client
type Option func(*client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithLimiterFactory sets how per-mirror limiters are built
func WithLimiterFactory(newLimiter func() ratelimit.Limiter) Option {
	return func(c *client) {
		c.newLimiter = newLimiter
	}
}

// client holds the HTTP plumbing shared by the HTML and JSON clients
type client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger

	newLimiter func() ratelimit.Limiter
	mu         sync.Mutex
	limiters   map[mirror.Endpoint]ratelimit.Limiter
}

func newClient(cfg config.FetchConfig, log logger.Logger, accept string, opts []Option) *client {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	newLimiter, err := ratelimit.NewFactory(cfg.Limiter, cfg.RequestsPerMinute)
	if err != nil {
		log.WithError(err).Warn("falling back to the sliding window limiter")
		newLimiter = func() ratelimit.Limiter { return ratelimit.New(cfg.RequestsPerMinute) }
	}

	c := &client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          accept,
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		logger:     log,
		newLimiter: newLimiter,
		limiters:   make(map[mirror.Endpoint]ratelimit.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// limiterFor returns the limiter dedicated to endpoint
func (c *client) limiterFor(endpoint mirror.Endpoint) ratelimit.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[endpoint]
	if !ok {
		l = c.newLimiter()
		c.limiters[endpoint] = l
	}
	return l
}

// get performs a rate limited GET and returns the body of a 200 response
func (c *client) get(ctx context.Context, endpoint mirror.Endpoint, rawURL string) ([]byte, error) {
	if err := c.limiterFor(endpoint).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, endpoint.String(), fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"url": rawURL,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrorTypeNetwork, endpoint.String(), err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return nil, errors.FromStatus(resp.StatusCode, endpoint.String())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBodySize)+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, endpoint.String(), fmt.Errorf("failed to read response body: %w", err))
	}
	if len(body) > maxBodySize {
		return nil, errors.New(errors.ErrorTypeParsing, resp.StatusCode, endpoint.String(),
			fmt.Sprintf("response body exceeds %d bytes", maxBodySize))
	}
	return body, nil
}
