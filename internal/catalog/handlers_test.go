package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewHandler(newSeededService(t), noop.NewTracerProvider().Tracer("catalog"))
	handler.Register(router.Group("/api"))
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerGetProduct(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products/1", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "iPhone 8", resp.Title)
	assert.Equal(t, "R4200.00", resp.DisplayPrice)
	assert.Len(t, resp.Variants, 3)
	assert.Equal(t, 6, resp.Inventory)
}

func TestHandlerListProductsFiltered(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products?category=Smartphones&q=pro", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data  []ProductResponse `json:"data"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	ids := []string{}
	for _, p := range resp.Data {
		ids = append(ids, p.ID)
	}
	// "pro" also hits descriptions: ProMotion, improved, processor
	assert.Equal(t, []string{"3", "6", "7", "9"}, ids)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 3, resp.Data[0].Inventory)
	assert.Len(t, resp.Data[0].Variants, 3)
}

func TestHandlerListProductsUnknownCategory(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products?category=Tablets", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, w.Body.String())
}

func TestHandlerGetProductNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products/404", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestHandlerCreateProduct(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPost, "/api/products", `{"title":"Pixel 7","slug":"pixel-7","base_price":500000,"currency":"ZAR"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodPost, "/api/products", `{"title":"","slug":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/api/products", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerBySlug(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products/slug/iphone-12-mini", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"5"`)
}

func TestHandlerOptionsCascade(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products/3/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"colors":["Silver","Gold"]}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/products/3/options?color=Silver", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"storages":[256]}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/products/3/options?color=Silver&storage=256", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conditions":["Like New"]}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/products/3/options?color=Silver&storage=big", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerFindVariant(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodGet, "/api/products/1/variants/find?color=Red&storage=256&condition=Excellent", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"1-3"`)

	w = serve(router, http.MethodGet, "/api/products/1/variants/find?color=Red&storage=64&condition=Excellent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerVariantLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPatch, "/api/variants/1-1", `{"stock":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stock":7`)

	w = serve(router, http.MethodDelete, "/api/variants/1-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/api/variants/1-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
