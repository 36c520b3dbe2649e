package backend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// ServiceName identifies this hop in responses.
const ServiceName = "backend"

// StatusSuccess is reported for every processed payload.
const StatusSuccess = "SUCCESS"

const unknownOperation = "unknown"

// Processor builds the backend response for a payload.
type Processor struct {
	version string
	now     func() time.Time
	newID   func() string
	logger  observability.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// WithIDGenerator overrides the request ID generator.
func WithIDGenerator(newID func() string) ProcessorOption {
	return func(p *Processor) {
		p.newID = newID
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(logger observability.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor reporting the given version.
func NewProcessor(version string, opts ...ProcessorOption) *Processor {
	p := &Processor{
		version: version,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Version returns the version stamped on responses.
func (p *Processor) Version() string {
	return p.version
}

// Process returns the backend response for in. It never fails and never
// mutates in.
func (p *Processor) Process(ctx context.Context, in *payload.Map) *payload.Map {
	if in == nil {
		in = payload.New()
	}
	logger := p.logger.WithContext(ctx)
	logger.Info("backend processing request", observability.Any("payload", in))

	resp := payload.New().
		Set("servedBy", ServiceName).
		Set("backendVersion", p.version).
		Set("processedAt", p.now().UTC().Format(time.RFC3339Nano)).
		Set("requestId", p.newID()).
		Set("inputPayload", in.Clone()).
		Set("status", StatusSuccess)

	// A present operation is echoed as sent, null and numbers included.
	if op, ok := in.Get("operation"); ok {
		resp.Set("operationProcessed", op)
	} else {
		resp.Set("operationProcessed", unknownOperation)
	}

	if userID, ok := in.Get("userId"); ok {
		resp.Set("userVerified", true)
		resp.Set("userId", userID)
	}

	if name, ok := in.Get("name"); ok {
		resp.Set("greeting", "Hello from Backend, "+payload.Text(name)+"!")
	}

	logger.Info("backend response", observability.Any("response", resp))
	return resp
}
