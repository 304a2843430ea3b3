// Package client calls the upstream balance lookup API. Each Fetch makes up
// to three attempts with exponential backoff, paces the upstream after every
// call and writes every answered payload into the transient cache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"saldo/internal/benefit/metrics"
	"saldo/internal/benefit/models"
	"saldo/internal/benefit/tracer"
	"saldo/internal/platform/privacy"
	"saldo/internal/sentinel"
	"saldo/pkg/platform/circuit"
)

const (
	defaultMaxAttempts = 3
	defaultTimeout     = 30 * time.Second
	defaultPacing      = 3 * time.Second
	maxResponseBytes   = 1 << 20
)

// TransientCache receives every payload the upstream answered with.
type TransientCache interface {
	Put(ctx context.Context, key models.Key, payload models.Payload) error
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client is the balance lookup API client.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	pacing      time.Duration
	sleep       SleepFunc
	limiter     *rate.Limiter
	breaker     *circuit.Breaker
	transient   TransientCache
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds a single HTTP call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts sets how many calls one Fetch may make. Default is 3.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithPacing sets the pause after every call. Zero disables it.
func WithPacing(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pacing = d
		}
	}
}

// WithSleep replaces the wait used for backoff and pacing.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithRateLimit throttles outgoing calls.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithBreaker guards calls with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithTransientCache sets where answered payloads are written.
func WithTransientCache(tc TransientCache) Option {
	return func(c *Client) {
		c.transient = tc
	}
}

// WithMetrics records attempt outcomes and breaker state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer for fetch and call spans.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client for baseURL authenticating with token. An empty
// token is accepted; every Fetch then fails as unavailable.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		token:       token,
		httpClient:  &http.Client{},
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		pacing:      defaultPacing,
		sleep:       sleepContext,
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch looks up the payload for key. A 200 answer with an empty name is
// returned without error; callers check Payload.Matched. When every attempt
// fails the error wraps sentinel.ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, key models.Key) (payload models.Payload, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanExternalFetch,
		tracer.String(tracer.AttrDocumentHash, tracer.HashDocument(key.Document)),
		tracer.String(tracer.AttrBenefit, key.Benefit),
	)
	defer func() { span.End(err) }()

	if strings.TrimSpace(c.token) == "" {
		c.logger.ErrorContext(ctx, "balance api token not configured")
		return models.Payload{}, fmt.Errorf("%w: %w", sentinel.ErrUnavailable,
			NewProviderError(ErrorNotConfigured, 0, "api token not configured", nil))
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := Backoff(attempt - 1)
			span.AddEvent(tracer.EventRetry,
				tracer.Int(tracer.AttrAttempt, attempt),
				tracer.String("delay", delay.String()),
			)
			if err := c.sleep(ctx, delay); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}

		attempts = attempt
		payload, err := c.call(ctx, key, attempt)
		if err == nil {
			span.SetAttributes(tracer.Int(tracer.AttrAttempt, attempt))
			return payload, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	span.SetAttributes(tracer.String(tracer.AttrErrorKind, string(GetCategory(lastErr))))
	return models.Payload{}, fmt.Errorf("%w: after %d attempts: %w", sentinel.ErrUnavailable, attempts, lastErr)
}

// Backoff is the wait before retry n (1-based): 1s, 2s, 4s...
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Second << (n - 1)
}

func (c *Client) call(ctx context.Context, key models.Key, attempt int) (payload models.Payload, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanExternalCall, tracer.Int(tracer.AttrAttempt, attempt))
	defer func() { span.End(err) }()

	if c.breaker != nil && !c.breaker.Allow() {
		c.metrics.SetBreakerOpen(true)
		pe := NewProviderError(ErrorProviderOutage, 0, "circuit open", ErrCircuitOpen)
		pe.Retryable = false
		return models.Payload{}, pe
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Payload{}, NewProviderError(ErrorRateLimited, 0, "rate limiter wait", err)
		}
	}

	body, err := json.Marshal(lookupRequest{
		Identity:      key.Document,
		BenefitNumber: key.Benefit,
		LastDays:      0,
		Attempts:      upstreamAttempts,
	})
	if err != nil {
		return models.Payload{}, NewProviderError(ErrorInternal, 0, "encode request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return models.Payload{}, NewProviderError(ErrorInternal, 0, "build request", err)
	}
	req.Header.Set("apiKey", c.token)
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	payload, err = c.do(req)
	elapsed := c.now().Sub(start)
	c.pace(ctx)

	if err != nil {
		c.recordFailure(ctx, key, attempt, err, elapsed)
		return models.Payload{}, err
	}
	c.recordSuccess(ctx, elapsed)
	span.SetAttributes(tracer.Int(tracer.AttrHTTPStatus, http.StatusOK))

	if c.transient != nil {
		if err := c.transient.Put(ctx, key, payload); err != nil {
			c.logger.WarnContext(ctx, "transient cache write failed",
				"document_hash", privacy.HashDocument(key.Document),
				"error", err,
			)
		}
	}
	return payload, nil
}

func (c *Client) do(req *http.Request) (models.Payload, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return models.Payload{}, NewProviderError(ErrorTimeout, 0, "request timed out", err)
		}
		return models.Payload{}, NewProviderError(ErrorProviderOutage, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return models.Payload{}, NewProviderError(categoryForStatus(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return models.Payload{}, NewProviderError(ErrorBadData, resp.StatusCode, "decode response", err)
	}
	return decoded.toPayload(), nil
}

func (c *Client) pace(ctx context.Context) {
	if c.pacing <= 0 {
		return
	}
	if err := c.sleep(ctx, c.pacing); err != nil {
		c.logger.DebugContext(ctx, "pacing interrupted", "error", err)
	}
}

func (c *Client) recordSuccess(ctx context.Context, elapsed time.Duration) {
	c.metrics.RecordExternalAttempt("success", elapsed.Seconds())
	if c.breaker == nil {
		return
	}
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.SetBreakerOpen(false)
		c.logger.InfoContext(ctx, "balance api circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordFailure(ctx context.Context, key models.Key, attempt int, err error, elapsed time.Duration) {
	category := GetCategory(err)
	c.metrics.RecordExternalAttempt(string(category), elapsed.Seconds())

	var pe *ProviderError
	status := 0
	if errors.As(err, &pe) {
		status = pe.StatusCode
	}
	c.logger.WarnContext(ctx, "balance api attempt failed",
		"attempt", attempt,
		"category", category,
		"status", status,
		"document_hash", privacy.HashDocument(key.Document),
		"error", err,
	)

	if c.breaker == nil {
		return
	}
	if change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.SetBreakerOpen(true)
		c.logger.WarnContext(ctx, "balance api circuit opened", "breaker", c.breaker.Name())
	}
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuthentication
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTimeout
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
