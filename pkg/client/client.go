// Package client provides the resilient GitLab REST client with retry,
// rate-limit handling, pagination, and optional response caching.
package client

import (
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/glmr-tools/glmr/pkg/httpcache"
	"github.com/glmr-tools/glmr/pkg/logging"
	"github.com/glmr-tools/glmr/pkg/ratelimit"
)

// Prometheus metrics for GitLab API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glmr_api_requests_total",
		Help: "Total GitLab API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glmr_api_request_duration_seconds",
		Help:    "GitLab API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glmr_api_errors_total",
		Help: "Total GitLab API errors by class",
	}, []string{"class"})

	apiCacheServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_api_cache_served_total",
		Help: "Responses served from the HTTP response cache after a 304",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the GitLab API base, e.g. "https://gitlab.com/api/v4".
	BaseURL string

	// Token is the personal access token sent via the PRIVATE-TOKEN header.
	// An empty token is allowed here; requirement is enforced by the caller.
	Token string

	// UserAgent identifies the collector to the API.
	UserAgent string

	// PerPage is the page size seeded into paginated requests.
	PerPage int

	// Timeout is the overall per-request timeout.
	Timeout time.Duration

	// Retry controls attempt bounds and backoff.
	Retry RetryConfig

	// Cache is an optional HTTP response cache consulted for GET requests.
	Cache *httpcache.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: "glmr-collector/0.1",
		PerPage:   100,
		Timeout:   60 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the resilient GitLab API client.
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    string
	tracker    *ratelimit.Tracker
	logger     zerolog.Logger
}

// New creates a new GitLab client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "glmr-collector/0.1"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := logging.NewLogger("gitlab-client")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config:  cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tracker: ratelimit.NewTracker(logger),
		logger:  logger,
	}, nil
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Request performs a single API call with retry, backoff, and rate-limit
// handling. 5xx statuses, 429 statuses, and transport failures are retried
// up to the configured attempt bound; other 4xx statuses surface as a
// non-retryable *APIError carrying the status code and response body.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values) (*Response, error) {
	endpoint := path

	start := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var cached *httpcache.Entry
	if c.config.Cache != nil && method == http.MethodGet {
		entry, err := c.config.Cache.Get(ctx, httpcache.Key{Path: path, Query: query})
		if err != nil && !errors.Is(err, httpcache.ErrMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Response cache get failed")
		}
		cached = entry
	}

	var result *Response

	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() attemptResult {
		req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
		if err != nil {
			return attemptResult{Err: fmt.Errorf("create request: %w", err), Class: ErrorClassClient}
		}

		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if c.config.Token != "" {
			req.Header.Set("PRIVATE-TOKEN", c.config.Token)
		}
		if cached != nil && cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return attemptResult{Err: err, Class: ErrorClassNetwork}
		}
		defer resp.Body.Close()

		if err := c.tracker.UpdateFromHeaders(resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		switch {
		case resp.StatusCode == http.StatusNotModified && cached != nil:
			apiRequestsTotal.WithLabelValues(endpoint, "304").Inc()
			apiCacheServedTotal.Inc()
			result = &Response{
				StatusCode: http.StatusOK,
				Header:     cached.Header,
				Body:       cached.Body,
			}
			return attemptResult{}

		case resp.StatusCode == http.StatusTooManyRequests:
			_, _ = io.Copy(io.Discard, resp.Body)
			apiErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warn().
				Str("endpoint", endpoint).
				Dur("retry_after", retryAfter).
				Msg("Rate limit hit")
			return attemptResult{
				Err:        &APIError{StatusCode: resp.StatusCode, Message: "rate limit encountered"},
				Class:      ErrorClassRateLimit,
				RetryAfter: retryAfter,
			}

		case resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, resp.Body)
			apiErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("GitLab server error")
			return attemptResult{
				Err:   &APIError{StatusCode: resp.StatusCode, Message: resp.Status},
				Class: ErrorClassServer,
			}

		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(resp.Body)
			apiErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			return attemptResult{
				Err:   &APIError{StatusCode: resp.StatusCode, Body: string(body)},
				Class: ErrorClassClient,
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return attemptResult{Err: fmt.Errorf("read response body: %w", err), Class: ErrorClassNetwork}
		}

		apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		result = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}

		if c.config.Cache != nil && method == http.MethodGet && resp.StatusCode == http.StatusOK {
			key := httpcache.Key{Path: path, Query: query}
			if err := c.config.Cache.Set(ctx, key, httpcache.NewEntry(resp.StatusCode, resp.Header, body)); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Response cache set failed")
			}
		}
		return attemptResult{}
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return result, nil
}

// DecodeJSON unmarshals a response body into v. Failures are decode errors
// and never retryable.
func DecodeJSON(resp *Response, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "unknown"
		}
		return fmt.Errorf("%w: invalid JSON payload (status %d, content-type %s): %v",
			ErrDecode, resp.StatusCode, contentType, err)
	}
	return nil
}

// parseRetryAfter reads a Retry-After style header value in seconds.
// Missing or unparseable values fall back to one second.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

// RateLimitState returns the last rate limit state observed on response headers.
func (c *Client) RateLimitState() ratelimit.State {
	return c.tracker.State()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
