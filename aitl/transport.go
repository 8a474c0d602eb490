package aitl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	headerRequestID = "x-ms-client-request-id"
	contentTypeJSON = "application/json"
)

type contextKey int

const (
	idempotentKey contextKey = iota
	attemptsKey
)

// Transport executes request descriptors against the service. It owns the HTTP
// session and the credentials, and is safe for concurrent use.
type Transport struct {
	endpoint  *url.URL
	creds     Credentials
	client    *retryablehttp.Client
	userAgent string
	logger    zerolog.Logger
}

// NewTransport creates a Transport for endpoint. An empty endpoint selects DefaultEndpoint.
func NewTransport(endpoint string, creds Credentials, logger zerolog.Logger, opts ...Option) (*Transport, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newTransport(endpoint, creds, logger, o)
}

func newTransport(endpoint string, creds Credentials, logger zerolog.Logger, o clientOptions) (*Transport, error) {
	if creds.token == "" {
		return nil, validationError("transport", ErrMissingToken)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, validationError("transport", fmt.Errorf("invalid endpoint %q", endpoint))
	}

	rc := retryablehttp.NewClient()
	if o.httpClient != nil {
		hc := *o.httpClient
		rc.HTTPClient = &hc
	}
	rc.HTTPClient.Timeout = o.timeout
	if o.requestsPerSecond > 0 {
		base := rc.HTTPClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		burst := max(1, int(o.requestsPerSecond))
		rc.HTTPClient.Transport = &rateLimitedTransport{
			base:    base,
			limiter: rate.NewLimiter(rate.Limit(o.requestsPerSecond), burst),
		}
	}

	rc.Logger = leveledLogger{logger: logger}
	rc.RetryMax = o.maxAttempts - 1
	rc.RetryWaitMin = o.retryWaitMin
	rc.RetryWaitMax = o.retryWaitMax
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff
	rc.RequestLogHook = countAttempt
	// Hand the final response back untouched so its status and body can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Transport{
		endpoint:  u,
		creds:     creds,
		client:    rc,
		userAgent: o.userAgent,
		logger:    logger,
	}, nil
}

// Endpoint returns the base URL requests are sent to
func (t *Transport) Endpoint() url.URL {
	return *t.endpoint
}

// Send executes d and returns the final response with its body fully read.
// Network failures, timeouts and cancellation are reported as KindTransport errors;
// any HTTP status is returned as a Response for the interpreter to classify.
func (t *Transport) Send(ctx context.Context, d *Descriptor) (*Response, error) {
	target := t.endpoint.String() + d.Path
	if q := d.RawQuery(); q != "" {
		target += "?" + q
	}
	return t.do(ctx, d, target)
}

// follow executes d against an absolute URL handed out by the service, such as
// a nextLink. The URL must point at the configured endpoint.
func (t *Transport) follow(ctx context.Context, d *Descriptor, link string) (*Response, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, protocolError(d.Operation, 0, nil, "malformed nextLink %q: %v", link, err)
	}
	if !u.IsAbs() {
		u = t.endpoint.ResolveReference(u)
	}
	if !strings.EqualFold(u.Scheme, t.endpoint.Scheme) || !strings.EqualFold(u.Host, t.endpoint.Host) {
		return nil, protocolError(d.Operation, 0, nil, "nextLink points at foreign host %q", u.Host)
	}
	return t.do(ctx, d, u.String())
}

func (t *Transport) do(ctx context.Context, d *Descriptor, target string) (*Response, error) {
	attempts := 0
	ctx = context.WithValue(ctx, idempotentKey, d.Idempotent)
	ctx = context.WithValue(ctx, attemptsKey, &attempts)

	var body any
	if d.Body != nil {
		body = d.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, d.Method, target, body)
	if err != nil {
		return nil, validationError(d.Operation, fmt.Errorf("failed to create request: %w", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", t.creds.authorization())
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if d.Body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	start := time.Now()
	t.logger.Debug().
		Str("operation", d.Operation).
		Str("method", d.Method).
		Str("request_id", requestID).
		Bool("idempotent", d.Idempotent).
		Msg("Sending request")

	resp, err := t.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, t.transportError(ctx, d, attempts, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.transportError(ctx, d, attempts, fmt.Errorf("failed to read response body: %w", err))
	}

	t.logger.Debug().
		Str("operation", d.Operation).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Int("attempts", attempts).
		Dur("elapsed", time.Since(start)).
		Msg("Received response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Attempts:   attempts,
	}, nil
}

func (t *Transport) transportError(ctx context.Context, d *Descriptor, attempts int, err error) *Error {
	msg := fmt.Sprintf("request failed after %d attempt(s): %v", attempts, err)
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return &Error{
		Kind:     KindTransport,
		Op:       d.Operation,
		Message:  msg,
		Attempts: attempts,
		Err:      err,
	}
}

// checkRetry retries idempotent requests with the library's default policy:
// connection errors, 429 and most 5xx. Cancellation stops the loop.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if idempotent, _ := ctx.Value(idempotentKey).(bool); !idempotent {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// backoff is capped exponential backoff with jitter. A Retry-After header on a
// 429 or 503 takes precedence, still capped at max.
func backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.Header.Get("Retry-After") != "" {
		if wait := retryablehttp.DefaultBackoff(min, max, attemptNum, resp); wait < max {
			return wait
		}
		return max
	}

	wait := max
	if attemptNum < 32 {
		if exp := min << attemptNum; exp > 0 && exp < max {
			wait = exp
		}
	}
	half := wait / 2
	return half + rand.N(half+1)
}

func countAttempt(_ retryablehttp.Logger, req *http.Request, _ int) {
	if n, ok := req.Context().Value(attemptsKey).(*int); ok {
		*n++
	}
}

// rateLimitedTransport delays each attempt until the limiter admits it.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (r *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return r.base.RoundTrip(req)
}
