package relay

import (
	"context"

	"github.com/vyrodovalexey/avarelay/internal/downstream"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// BackendProcessPath is the backend endpoint payloads are posted to.
const BackendProcessPath = "/api/backend/process"

// FallbackServedBy marks a response produced because the backend was unavailable.
const FallbackServedBy = "middleware-fallback"

// BackendClient calls the backend processor.
type BackendClient struct {
	client  *downstream.Client
	metrics *observability.Metrics
}

// NewBackendClient creates a client for the backend at baseURL.
func NewBackendClient(baseURL string, metrics *observability.Metrics, opts ...downstream.Option) *BackendClient {
	opts = append([]downstream.Option{downstream.WithMetrics(metrics)}, opts...)
	return &BackendClient{
		client:  downstream.NewClient("backend", baseURL, BackendProcessPath, opts...),
		metrics: metrics,
	}
}

// Endpoint returns the full process URL.
func (b *BackendClient) Endpoint() string {
	return b.client.Endpoint()
}

// Call posts p to the backend.
func (b *BackendClient) Call(ctx context.Context, p *payload.Map) downstream.Result {
	return b.client.Post(ctx, p)
}

// CallBackend posts p to the backend and substitutes the fallback payload
// when the call fails. It never returns nil.
func (b *BackendClient) CallBackend(ctx context.Context, p *payload.Map) *payload.Map {
	return b.Call(ctx, p).Or(func(err error) *payload.Map {
		b.metrics.RecordFallback("backend")
		return BackendFallback(err)
	})
}

// BackendFallback is the payload returned in place of a failed backend call.
func BackendFallback(err error) *payload.Map {
	return payload.FromPairs(
		"backendError", err.Error(),
		"servedBy", FallbackServedBy,
	)
}
