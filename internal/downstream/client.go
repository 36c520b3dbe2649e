package downstream

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

	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

const (
	// RequestIDHeader carries the inbound request ID to the next hop.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
	maxErrorBody   = 512
)

// Client posts payloads to a single endpoint of the next hop.
type Client struct {
	target     string
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	breakerCfg BreakerConfig
	logger     observability.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithCircuitBreaker guards calls with a circuit breaker when cfg.Enabled.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breakerCfg = cfg
	}
}

// NewClient creates a client posting to baseURL+path. target names the hop
// in logs and metrics.
func NewClient(target, baseURL, path string, opts ...Option) *Client {
	c := &Client{
		target:   target,
		endpoint: strings.TrimRight(baseURL, "/") + path,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: observability.InstrumentTransport(http.DefaultTransport, target),
		}
	}
	if c.breakerCfg.Enabled {
		c.breaker = newBreaker(target, c.breakerCfg, c.logger, c.metrics)
	}

	return c
}

// Endpoint returns the full URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Post sends body as JSON and decodes the JSON object answer.
func (c *Client) Post(ctx context.Context, body *payload.Map) Result {
	start := time.Now()
	logger := c.logger.WithContext(ctx)

	var (
		resp *payload.Map
		err  error
	)
	if c.breaker != nil {
		var out interface{}
		out, err = c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, body)
		})
		if err == nil {
			resp, _ = out.(*payload.Map)
		}
	} else {
		resp, err = c.do(ctx, body)
	}

	duration := time.Since(start)
	switch {
	case err == nil:
		c.metrics.RecordDownstream(c.target, observability.OutcomeSuccess, duration)
		logger.Debug("downstream call succeeded",
			observability.String("target", c.target),
			observability.Duration("duration", duration),
		)
		return Ok(resp)
	case isBreakerRejection(err):
		c.metrics.RecordDownstream(c.target, observability.OutcomeCircuitOpen, duration)
		err = fmt.Errorf("%s: %w", c.target, ErrCircuitOpen)
	default:
		c.metrics.RecordDownstream(c.target, observability.OutcomeFailure, duration)
	}

	logger.Warn("downstream call failed",
		observability.String("target", c.target),
		observability.String("endpoint", c.endpoint),
		observability.Duration("duration", duration),
		observability.Error(err),
	)
	return Failed(err)
}

func (c *Client) do(ctx context.Context, body *payload.Map) (*payload.Map, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &StatusError{
			Target:     c.target,
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	resp, err := payload.Decode(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", c.target, err)
	}
	return resp, nil
}
