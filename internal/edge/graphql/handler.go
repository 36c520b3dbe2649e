package graphql

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const maxQueryBytes = 1 << 20

// Handler serves /graphql.
type Handler struct {
	exec *Executor
}

// NewHandler creates a handler.
func NewHandler(exec *Executor) *Handler {
	return &Handler{exec: exec}
}

// RegisterRoutes mounts GET and POST /graphql.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/graphql", h.post)
	r.GET("/graphql", h.get)
}

func (h *Handler) post(c *gin.Context) {
	var req Request
	body := io.LimitReader(c.Request.Body, maxQueryBytes)

	if strings.HasPrefix(c.ContentType(), "application/graphql") {
		raw, err := io.ReadAll(body)
		if err != nil {
			badRequest(c, "failed to read body: "+err.Error())
			return
		}
		req.Query = string(raw)
	} else if err := json.NewDecoder(body).Decode(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, h.exec.Execute(c.Request.Context(), req))
}

func (h *Handler) get(c *gin.Context) {
	req := Request{
		Query:         c.Query("query"),
		OperationName: c.Query("operationName"),
	}
	if raw := c.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			badRequest(c, "invalid variables: "+err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, h.exec.Execute(c.Request.Context(), req))
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, &Response{Errors: gqlerror.List{gqlerror.Errorf("%s", msg)}})
}
