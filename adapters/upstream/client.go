package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/config"
	"github.com/layer-3/agora-gate/internal/metrics"
	"github.com/layer-3/agora-gate/ports"
)

const tracerName = "github.com/layer-3/agora-gate/adapters/upstream"

// StatusError is returned for any non-2xx response from the external API
type StatusError = core.StatusError

// StatusOf returns the upstream HTTP status carried by err, or 0
func StatusOf(err error) int {
	return core.StatusOf(err)
}

// Client talks JSON to the external API
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every round trip
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker wraps every call in a circuit breaker
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

var _ ports.Upstream = (*Client)(nil)

// New creates a client for baseURL. A trailing slash is ignored.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBreaker builds the upstream circuit breaker, or nil when disabled.
// Upstream 4xx answers are client mistakes and never trip the breaker.
func NewBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "agora_upstream",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval.Duration,
		Timeout:     cfg.Timeout.Duration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			status := StatusOf(err)
			return status > 0 && status < http.StatusInternalServerError
		},
	})
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, path string, token string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil, token)
}

// Post issues a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any, token string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body, token)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, method+" "+routeOf(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", routeOf(path)),
		),
	)
	defer span.End()

	call := func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, body, token)
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return out.(json.RawMessage), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(method, routeOf(path), 0, time.Since(start))
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstream(method, routeOf(path), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(text),
		}
	}

	if !json.Valid(text) {
		return nil, fmt.Errorf("%s %s returned invalid JSON", method, path)
	}

	return json.RawMessage(text), nil
}

// routeOf drops the query string so it can be used as a metric label
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
