package aitl

import (
	"net/http"
	"time"
)

const (
	// DefaultEndpoint is the ARM endpoint the service is reached through
	DefaultEndpoint = "https://eastus2euap.management.azure.com"

	defaultTimeout           = 30 * time.Second
	defaultMaxAttempts       = 3
	defaultRetryWaitMin      = 500 * time.Millisecond
	defaultRetryWaitMax      = 10 * time.Second
	defaultRequestsPerSecond = 10
	defaultMaxPages          = 10000
	defaultUserAgent         = "aitl-cli"
)

// Option configures a Transport or Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Transport and Client.
type clientOptions struct {
	timeout           time.Duration
	maxAttempts       int
	retryWaitMin      time.Duration
	retryWaitMax      time.Duration
	requestsPerSecond float64
	maxPages          int
	userAgent         string
	httpClient        *http.Client
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:           defaultTimeout,
		maxAttempts:       defaultMaxAttempts,
		retryWaitMin:      defaultRetryWaitMin,
		retryWaitMax:      defaultRetryWaitMax,
		requestsPerSecond: defaultRequestsPerSecond,
		maxPages:          defaultMaxPages,
		userAgent:         defaultUserAgent,
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithMaxAttempts sets the total number of attempts for idempotent requests,
// the first attempt included.
func WithMaxAttempts(attempts int) Option {
	return func(o *clientOptions) {
		if attempts >= 1 {
			o.maxAttempts = attempts
		}
	}
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *clientOptions) {
		if min > 0 {
			o.retryWaitMin = min
		}
		if max >= o.retryWaitMin {
			o.retryWaitMax = max
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(o *clientOptions) {
		if requestsPerSecond >= 0 {
			o.requestsPerSecond = requestsPerSecond
		}
	}
}

// WithMaxPages sets the pagination safety cap.
func WithMaxPages(pages int) Option {
	return func(o *clientOptions) {
		if pages > 0 {
			o.maxPages = pages
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is overridden
// by WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}
