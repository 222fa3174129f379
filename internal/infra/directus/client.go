// Package directus is the HTTP client for a Directus-style content API.
//
// Every call goes through a client-side rate limiter, retry with backoff and a
// circuit breaker. Page methods return pagination.Response values: errors the
// API reported (an HTTP error status or an errors array in the body) travel in
// Response.Err, while failures that produced no usable response are returned
// as the error.
package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-mesh/internal/observability/metrics"
	"content-mesh/internal/observability/tracing"
	"content-mesh/internal/resilience/circuitbreaker"
	"content-mesh/internal/resilience/retry"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// ErrDecode is returned when a response body is not the expected JSON envelope.
var ErrDecode = errors.New("directus: decode response")

// ErrorDetail is one entry of the errors array in a response body.
type ErrorDetail struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// APIError is an error the API reported in a successful HTTP response.
type APIError struct {
	Endpoint string
	Errors   []ErrorDetail
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, joinDetails(e.Errors))
}

func joinDetails(details []ErrorDetail) string {
	msgs := make([]string, 0, len(details))
	for _, d := range details {
		if d.Extensions.Code != "" {
			msgs = append(msgs, d.Extensions.Code+": "+d.Message)
		} else {
			msgs = append(msgs, d.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Meta   *envelopeMeta   `json:"meta,omitempty"`
	Errors []ErrorDetail   `json:"errors,omitempty"`
}

type envelopeMeta struct {
	FilterCount *int64 `json:"filter_count"`
}

type options struct {
	httpClient  *http.Client
	logger      *slog.Logger
	retry       retry.Config
	authRetry   retry.Config
	refreshSkew time.Duration
	now         func() time.Time
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetryConfig replaces the retry policy for data and auth calls.
func WithRetryConfig(data, auth retry.Config) Option {
	return func(o *options) {
		o.retry = data
		o.authRetry = auth
	}
}

// WithRefreshSkew sets how long before expiry an access token is refreshed.
func WithRefreshSkew(d time.Duration) Option {
	return func(o *options) { o.refreshSkew = d }
}

// Client talks to the content API.
type Client struct {
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	breaker     *circuitbreaker.CircuitBreaker
	authBreaker *circuitbreaker.CircuitBreaker
	retry       retry.Config
	authRetry   retry.Config
	auth        *tokenSource
	logger      *slog.Logger
}

// NewClient creates a Client after validating cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		retry:       retry.UpstreamAPIConfig(),
		authRetry:   retry.AuthConfig(),
		refreshSkew: 30 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	dataBreaker := circuitbreaker.UpstreamAPIConfig()
	dataBreaker.IsSuccessful = breakerSuccess
	authBreaker := circuitbreaker.AuthConfig()
	authBreaker.IsSuccessful = breakerSuccess

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        o.httpClient,
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     circuitbreaker.New(dataBreaker),
		authBreaker: circuitbreaker.New(authBreaker),
		retry:       o.retry,
		authRetry:   o.authRetry,
		logger:      o.logger,
	}
	c.auth = newTokenSource(c, cfg, o.refreshSkew, o.now)
	return c, nil
}

// breakerSuccess keeps client errors and caller cancellations from tripping the circuit.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		return code >= 400 && code < 500 &&
			code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
	}
	return false
}

type request struct {
	endpoint string // metric and span label
	method   string
	path     string
	query    url.Values
	body     any
	authCall bool // login or refresh: no bearer token, auth breaker and retry policy
}

// send runs r with rate limiting, retry and the circuit breaker. A 401 on an
// authenticated call drops the cached token and repeats the call once.
func (c *Client) send(ctx context.Context, r request) (*envelope, error) {
	env, err := c.sendWithRetry(ctx, r)
	var httpErr *retry.HTTPError
	if !r.authCall && !errors.Is(err, ErrAuthentication) &&
		errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized && c.auth.invalidate() {
		c.logger.Info("access token rejected, re-authenticating",
			slog.String("endpoint", r.endpoint))
		env, err = c.sendWithRetry(ctx, r)
	}
	return env, err
}

func (c *Client) sendWithRetry(ctx context.Context, r request) (*envelope, error) {
	policy, breaker := c.retry, c.breaker
	if r.authCall {
		policy, breaker = c.authRetry, c.authBreaker
	}

	var env *envelope
	err := retry.WithBackoff(ctx, policy, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		env, err = circuitbreaker.Do(breaker, func() (*envelope, error) {
			return c.do(ctx, r)
		})
		return err
	})
	return env, err
}

// do performs one HTTP round-trip.
func (c *Client) do(ctx context.Context, r request) (env *envelope, err error) {
	ctx, span := tracing.StartSpan(ctx, "directus.request",
		attribute.String("api.endpoint", r.endpoint),
		attribute.String("http.method", r.method),
	)
	defer func() { tracing.EndSpan(span, err) }()

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(r.endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordAPIRequest(r.endpoint, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}

	var decoded envelope
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode >= 400 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(decoded, decodeErr, body),
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrDecode, r.endpoint, decodeErr)
	}
	return &decoded, nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", r.endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !r.authCall {
		token, err := c.auth.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func errorMessage(env envelope, decodeErr error, body []byte) string {
	if decodeErr == nil && len(env.Errors) > 0 {
		return joinDetails(env.Errors)
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
