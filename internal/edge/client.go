package edge

import (
	"context"

	"github.com/vyrodovalexey/avarelay/internal/downstream"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// ForwardPath is the middleware endpoint payloads are posted to.
const ForwardPath = "/api/mw/forward"

// ErrorServedBy marks a response produced because the middleware call failed.
const ErrorServedBy = "error"

// Caller posts a payload to the middleware, never failing.
type Caller interface {
	CallMiddleware(ctx context.Context, p *payload.Map) *payload.Map
}

// MiddlewareClient calls the middleware relay. Pass the mutual-TLS HTTP
// client with downstream.WithHTTPClient.
type MiddlewareClient struct {
	client  *downstream.Client
	metrics *observability.Metrics
	logger  observability.Logger
}

// NewMiddlewareClient creates a client for the middleware at baseURL.
func NewMiddlewareClient(
	baseURL string,
	logger observability.Logger,
	metrics *observability.Metrics,
	opts ...downstream.Option,
) *MiddlewareClient {
	if logger == nil {
		logger = observability.NopLogger()
	}
	opts = append([]downstream.Option{
		downstream.WithLogger(logger),
		downstream.WithMetrics(metrics),
	}, opts...)
	return &MiddlewareClient{
		client:  downstream.NewClient("middleware", baseURL, ForwardPath, opts...),
		metrics: metrics,
		logger:  logger,
	}
}

// Endpoint returns the full forward URL.
func (m *MiddlewareClient) Endpoint() string {
	return m.client.Endpoint()
}

// Call posts p to the middleware.
func (m *MiddlewareClient) Call(ctx context.Context, p *payload.Map) downstream.Result {
	m.logger.WithContext(ctx).Info("calling middleware with mTLS",
		observability.String("endpoint", m.client.Endpoint()),
	)
	return m.client.Post(ctx, p)
}

// CallMiddleware posts p to the middleware and substitutes the error
// payload when the call fails. It never returns nil.
func (m *MiddlewareClient) CallMiddleware(ctx context.Context, p *payload.Map) *payload.Map {
	return m.Call(ctx, p).Or(func(err error) *payload.Map {
		m.metrics.RecordFallback("middleware")
		return MiddlewareFallback(err)
	})
}

// MiddlewareFallback is the payload returned in place of a failed middleware call.
func MiddlewareFallback(err error) *payload.Map {
	return payload.FromPairs(
		"error", err.Error(),
		"mtlsVerified", false,
		"servedBy", ErrorServedBy,
	)
}
