package backend

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avarelay/internal/payload"
)

const description = "Netflix OSS Backend Service"

// Handler exposes a Processor over HTTP.
type Handler struct {
	processor *Processor
}

// NewHandler creates a handler around processor.
func NewHandler(processor *Processor) *Handler {
	return &Handler{processor: processor}
}

// RegisterRoutes mounts the backend endpoints under /api/backend.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api/backend")
	g.POST("/process", h.process)
	g.GET("/health", h.health)
	g.GET("/info", h.info)
}

func (h *Handler) process(c *gin.Context) {
	in, err := payload.Decode(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.processor.Process(c.Request.Context(), in))
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, payload.FromPairs(
		"status", "UP",
		"service", ServiceName,
		"version", h.processor.Version(),
	))
}

func (h *Handler) info(c *gin.Context) {
	c.JSON(http.StatusOK, payload.FromPairs(
		"service", ServiceName,
		"version", h.processor.Version(),
		"description", description,
	))
}
