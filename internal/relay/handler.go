package relay

import (
	"crypto/x509"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// ServiceName identifies this hop in health responses.
const ServiceName = "middleware"

// Handler exposes a Relay over HTTP.
type Handler struct {
	relay      *Relay
	tlsEnabled bool
}

// NewHandler creates a handler. tlsEnabled is reported by the health endpoint.
func NewHandler(relay *Relay, tlsEnabled bool) *Handler {
	return &Handler{relay: relay, tlsEnabled: tlsEnabled}
}

// RegisterRoutes mounts the middleware endpoints under /api/mw.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api/mw")
	g.POST("/forward", h.forward)
	g.GET("/health", h.health)
	g.GET("/secure-echo", h.secureEcho)
}

func (h *Handler) forward(c *gin.Context) {
	in, err := payload.Decode(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.relay.Forward(c.Request.Context(), in, PeerCertificates(c.Request)))
}

func (h *Handler) health(c *gin.Context) {
	ssl := "disabled"
	if h.tlsEnabled {
		ssl = "enabled"
	}
	c.JSON(http.StatusOK, payload.FromPairs(
		"status", "UP",
		"service", ServiceName,
		"ssl", ssl,
	))
}

func (h *Handler) secureEcho(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.SecureEcho(PeerCertificates(c.Request)))
}

// PeerCertificates returns the verified client chain of r, or nil on a plain
// connection or when the client presented no certificate.
func PeerCertificates(r *http.Request) []*x509.Certificate {
	if r == nil || r.TLS == nil {
		return nil
	}
	return r.TLS.PeerCertificates
}
