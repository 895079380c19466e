package inventory

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/irevive/storefront/internal/catalog"
)

func newTestRouter(t *testing.T, variants ...catalog.Variant) (*gin.Engine, *Reducer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reducer, _ := newTestReducer(t, variants...)
	router := gin.New()
	NewHandler(reducer, nil, noop.NewTracerProvider().Tracer("inventory"), DefaultLowStockThreshold).
		Register(router.Group("/api"))
	return router, reducer
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerSetAndAdjustStock(t *testing.T) {
	router, reducer := newTestRouter(t, variant("v1", 5))

	w := serve(router, http.MethodPut, "/api/inventory/v1", `{"stock":9}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"new_stock":9`)

	w = serve(router, http.MethodPost, "/api/inventory/v1/adjust", `{"delta":-10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/api/inventory/v1/adjust", `{"delta":-4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, stockOf(t, reducer, "v1"))

	w = serve(router, http.MethodPut, "/api/inventory/v1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPut, "/api/inventory/nope", `{"stock":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerGetStockAndStats(t *testing.T) {
	router, _ := newTestRouter(t, variant("v1", 0), variant("v2", 7))

	w := serve(router, http.MethodGet, "/api/inventory/v2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"variant_id":"v2","stock":7}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/inventory/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"variants":2,"total_stock":7,"total_sold":0,"low_stock_count":1,"out_of_stock_count":1}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/inventory/low-stock?threshold=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"threshold":7`)
	assert.Contains(t, w.Body.String(), `"id":"v2"`)

	w = serve(router, http.MethodGet, "/api/inventory/low-stock?threshold=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerSagaBranches(t *testing.T) {
	router, reducer := newTestRouter(t, variant("v1", 2))

	w := serve(router, http.MethodPost, "/api/saga/inventory/decrease",
		`{"order_id":"ORD-9","lines":[{"variant_id":"v1","quantity":3}]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "FAILURE")

	w = serve(router, http.MethodPost, "/api/saga/inventory/decrease",
		`{"order_id":"ORD-10","lines":[{"variant_id":"v1","quantity":2}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, stockOf(t, reducer, "v1"))

	w = serve(router, http.MethodPost, "/api/saga/inventory/compensate", `{"order_id":"ORD-10"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, stockOf(t, reducer, "v1"))
}
