package relay

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/vyrodovalexey/avarelay/internal/auth/mtls"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// NoCertificateMessage is reported by SecureEcho for anonymous callers.
const NoCertificateMessage = "No client certificate provided"

// Caller posts a payload to the backend, never failing.
type Caller interface {
	CallBackend(ctx context.Context, p *payload.Map) *payload.Map
}

// Relay is the middleware hop.
type Relay struct {
	backend Caller
	logger  observability.Logger
}

// New creates a relay forwarding to backend.
func New(backend Caller, logger observability.Logger) *Relay {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Relay{backend: backend, logger: logger}
}

// Forward tags p with the caller identity taken from peerChain, sends p to
// the backend and merges the backend answer over the tags.
func (r *Relay) Forward(ctx context.Context, p *payload.Map, peerChain []*x509.Certificate) *payload.Map {
	logger := r.logger.WithContext(ctx)
	logger.Info("middleware received request")

	id := mtls.ExtractIdentity(peerChain)
	if id.Verified {
		logger.Info("mTLS verified",
			observability.String("client_cn", id.CommonName),
			observability.String("fingerprint", id.Fingerprint),
		)
	} else {
		logger.Warn("no client certificate provided")
	}

	resp := payload.New().
		Set("mtlsVerified", id.Verified).
		Set("clientCN", id.CommonName).
		Set("middlewareProcessed", true)

	return resp.Merge(r.backend.CallBackend(ctx, p))
}

// SecureEcho describes the caller certificate without contacting the backend.
func (r *Relay) SecureEcho(peerChain []*x509.Certificate) *payload.Map {
	id := mtls.ExtractIdentity(peerChain)
	if !id.Verified {
		return payload.FromPairs(
			"mtlsVerified", false,
			"error", NoCertificateMessage,
		)
	}
	return payload.FromPairs(
		"mtlsVerified", true,
		"clientCN", id.CommonName,
		"issuer", id.Issuer,
		"validFrom", id.ValidFrom.Format(time.RFC3339),
		"validTo", id.ValidTo.Format(time.RFC3339),
	)
}
