package bing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "imgcrawl/pkg/errors"
	"imgcrawl/pkg/logger"
	"imgcrawl/pkg/ratelimit"
	"imgcrawl/pkg/retry"
	"imgcrawl/pkg/transport"
)

// Client fetches result pages from the image search engine
type Client struct {
	httpClient *http.Client
	headers    http.Header
	baseURL    string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithBaseURL points the client at another origin (tests, mirrors)
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithUserAgent replaces the User-Agent of the browser header set
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.headers.Set("User-Agent", ua) }
}

// WithLimiter paces page requests
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for transient page fetch failures
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a result page client over httpClient
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		headers:    transport.BrowserHeaders(transport.DefaultUserAgent),
		baseURL:    BaseURL,
		limiter:    ratelimit.Unlimited{},
		retry:      &retry.Config{MaxAttempts: 1},
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.Logger == nil {
		c.retry.Logger = c.logger
	}
	return c
}

// FetchPage returns the raw body of one result page. An empty string is a
// valid answer: the engine serves empty pages both when results run out
// and when it is throttling.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (string, error) {
	pageURL := PageURL(c.baseURL, req)

	return retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
		return c.fetchOnce(ctx, pageURL)
	}, c.retry)
}

func (c *Client) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}
	transport.Apply(req, c.headers)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.WarnWithFields("result page request failed", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
		return "", errs.Wrap(errs.ErrorTypeNetwork, "result page request failed", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, pageURL, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return "", errs.Status(resp.StatusCode, fmt.Sprintf("result page returned %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "failed to read result page", err)
	}
	return string(body), nil
}
