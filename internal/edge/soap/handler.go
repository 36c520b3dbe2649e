package soap

import (
	_ "embed"
	"io"
	"net/http"
	"text/template"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/observability"
)

// Endpoint is the SOAP service path.
const Endpoint = "/ws"

// WSDLPath serves the service description.
const WSDLPath = "/ws/user.wsdl"

const (
	contentTypeXML  = "text/xml; charset=utf-8"
	maxEnvelopeSize = 1 << 20
)

//go:embed user.wsdl
var wsdlSource string

var wsdlTemplate = template.Must(template.New("user.wsdl").Parse(wsdlSource))

// Handler serves the SOAP endpoint and its WSDL.
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

// RegisterRoutes mounts POST /ws and GET /ws/user.wsdl.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST(Endpoint, h.serve)
	r.GET(WSDLPath, h.wsdl)
}

func (h *Handler) serve(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.logger.WithContext(ctx)

	req, err := decodeRequest(io.LimitReader(c.Request.Body, maxEnvelopeSize))
	if err != nil {
		logger.Warn("rejecting SOAP request", observability.Error(err))
		h.fault(c, FaultClient, err.Error())
		return
	}

	logger.Info("SOAP getUserStatus called", observability.String("userId", req.UserID))

	resp := h.caller.CallMiddleware(ctx, edge.UserStatusRequest(req.UserID, edge.SourceSOAP))
	body, err := encodeEnvelope(NewGetUserStatusResponse(edge.ProjectUserStatus(req.UserID, resp)))
	if err != nil {
		logger.Error("failed to encode SOAP response", observability.Error(err))
		h.fault(c, FaultServer, err.Error())
		return
	}

	c.Data(http.StatusOK, contentTypeXML, body)
}

func (h *Handler) fault(c *gin.Context, code, msg string) {
	body, err := encodeEnvelope(&Fault{Code: code, String: msg})
	if err != nil {
		c.String(http.StatusInternalServerError, msg)
		return
	}
	c.Data(http.StatusInternalServerError, contentTypeXML, body)
}

func (h *Handler) wsdl(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", contentTypeXML)
	err := wsdlTemplate.Execute(c.Writer, struct {
		Namespace string
		Location  string
	}{
		Namespace: UserNamespace,
		Location:  scheme + "://" + c.Request.Host + Endpoint,
	})
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Error("failed to render WSDL", observability.Error(err))
	}
}
