// Package rest is the JSON facade of the edge service.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/observability"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

// ServiceName identifies the edge in health responses.
const ServiceName = "user-bff"

// DefaultName is greeted when the name parameter is absent or empty.
const DefaultName = "World"

// Handler serves /api/rest.
type Handler struct {
	caller edge.Caller
	logger observability.Logger
}

// NewHandler creates a handler that relays through caller.
func NewHandler(caller edge.Caller, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{caller: caller, logger: logger}
}

// RegisterRoutes mounts the REST endpoints under /api/rest.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api/rest")
	g.GET("/hello", h.hello)
	g.GET("/health", h.health)
}

func (h *Handler) hello(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		name = DefaultName
	}
	ctx := c.Request.Context()
	h.logger.WithContext(ctx).Info("REST hello called", observability.String("name", name))

	resp := h.caller.CallMiddleware(ctx, payload.FromPairs(
		"name", name,
		"operation", "hello",
		"source", "rest-api",
	))
	resp.Set("greeting", "Hello, "+name+"!")

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, payload.FromPairs(
		"status", "UP",
		"service", ServiceName,
	))
}
