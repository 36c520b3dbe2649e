package soap

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarelay/internal/edge"
	"github.com/vyrodovalexey/avarelay/internal/payload"
)

type fakeCaller struct {
	got  *payload.Map
	resp *payload.Map
}

func (f *fakeCaller) CallMiddleware(_ context.Context, p *payload.Map) *payload.Map {
	f.got = p
	return f.resp.Clone()
}

func newRouter(caller edge.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(caller, nil).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, Endpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Prefixes declared on the Envelope, as soapUI generates them.
const getUserStatus = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
                  xmlns:user="http://netflix.oss/user">
  <soapenv:Header/>
  <soapenv:Body>
    <user:GetUserStatusRequest>
      <user:userId>42</user:userId>
    </user:GetUserStatusRequest>
  </soapenv:Body>
</soapenv:Envelope>`

type decodedResponse struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    struct {
		Response *GetUserStatusResponse `xml:"http://netflix.oss/user GetUserStatusResponse"`
		Fault    *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"http://schemas.xmlsoap.org/soap/envelope/ Fault"`
	} `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) decodedResponse {
	t.Helper()
	var out decodedResponse
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHandler_GetUserStatus(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: payload.FromPairs(
		"servedBy", "backend",
		"mtlsVerified", true,
		"clientCN", "edge-bff",
		"backendVersion", "1.0.0",
	)}

	w := post(t, newRouter(caller), getUserStatus)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<?xml"))
	assert.Contains(t, w.Body.String(), `<GetUserStatusResponse xmlns="http://netflix.oss/user">`)

	assert.Equal(t, "42", caller.got.String("userId", ""))
	assert.Equal(t, "getUserStatus", caller.got.String("operation", ""))
	assert.Equal(t, "soap-api", caller.got.String("source", ""))

	out := decode(t, w)
	require.NotNil(t, out.Body.Response)
	assert.Nil(t, out.Body.Fault)
	assert.Equal(t, "42", out.Body.Response.UserID)
	assert.Equal(t, "ACTIVE", out.Body.Response.Status)
	assert.Equal(t, "backend", out.Body.Response.ServedBy)
	assert.True(t, out.Body.Response.MTLSVerified)
	assert.Equal(t, "edge-bff", out.Body.Response.ClientCN)
	assert.Equal(t, "1.0.0", out.Body.Response.BackendVersion)
}

func TestHandler_GetUserStatusMiddlewareDown(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{resp: edge.MiddlewareFallback(errors.New("connection refused"))}

	w := post(t, newRouter(caller), getUserStatus)
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w).Body.Response
	require.NotNil(t, out)
	assert.Equal(t, "ACTIVE", out.Status)
	assert.Equal(t, "error", out.ServedBy)
	assert.False(t, out.MTLSVerified)
	assert.Equal(t, "unknown", out.ClientCN)
	assert.Equal(t, "unknown", out.BackendVersion)
}

func TestHandler_Faults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "not xml",
			body:    `{"userId":"42"}`,
			wantMsg: "malformed SOAP envelope",
		},
		{
			name:    "wrong root",
			body:    `<Envelope xmlns="urn:other"><Body/></Envelope>`,
			wantMsg: "unexpected root",
		},
		{
			name:    "no body",
			body:    `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Header/></s:Envelope>`,
			wantMsg: "has no Body",
		},
		{
			name:    "empty body",
			body:    `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body></s:Body></s:Envelope>`,
			wantMsg: "Body is empty",
		},
		{
			name: "unknown operation",
			body: `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
				`<u:DeleteUserRequest xmlns:u="http://netflix.oss/user"><u:userId>1</u:userId></u:DeleteUserRequest>` +
				`</s:Body></s:Envelope>`,
			wantMsg: "unknown operation",
		},
		{
			name: "wrong namespace",
			body: `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
				`<GetUserStatusRequest><userId>1</userId></GetUserStatusRequest>` +
				`</s:Body></s:Envelope>`,
			wantMsg: "unknown operation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			caller := &fakeCaller{resp: payload.New()}
			w := post(t, newRouter(caller), tt.body)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Nil(t, caller.got)

			out := decode(t, w)
			require.NotNil(t, out.Body.Fault)
			assert.Equal(t, "soap:Client", out.Body.Fault.Code)
			assert.Contains(t, out.Body.Fault.String, tt.wantMsg)
		})
	}
}

func TestHandler_WSDL(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://bff.local:8080/ws/user.wsdl", nil)
	w := httptest.NewRecorder()
	newRouter(&fakeCaller{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `targetNamespace="http://netflix.oss/user"`)
	assert.Contains(t, body, `<soap:address location="http://bff.local:8080/ws"/>`)
	assert.Contains(t, body, `name="GetUserStatusRequest"`)

	var doc struct {
		XMLName xml.Name `xml:"http://schemas.xmlsoap.org/wsdl/ definitions"`
	}
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &doc))
}
