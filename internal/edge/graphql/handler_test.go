package graphql

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(caller *fakeCaller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewExecutor(caller, nil)).RegisterRoutes(r)
	return r
}

func TestHandler_Post(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeCaller{resp: verifiedResponse()})

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"query($id: ID!) { userStatus(id: $id) { id clientCN } }","variables":{"id":"5"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"userStatus":{"id":"5","clientCN":"edge-bff"}}}`, w.Body.String())
}

func TestHandler_PostGraphQLBody(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeCaller{resp: verifiedResponse()})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{ userStatus(id: "8") { status } }`))
	req.Header.Set("Content-Type", "application/graphql")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"userStatus":{"status":"ACTIVE"}}}`, w.Body.String())
}

func TestHandler_Get(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeCaller{resp: verifiedResponse()})

	q := url.Values{}
	q.Set("query", `query($id: ID!) { userStatus(id: $id) { id } }`)
	q.Set("variables", `{"id":"abc"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"userStatus":{"id":"abc"}}}`, w.Body.String())
}

func TestHandler_BadRequests(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeCaller{resp: verifiedResponse()})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?query=%7B__typename%7D&variables=%5B", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid variables")
}
