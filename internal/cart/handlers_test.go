package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/kvstore"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := kvstore.NewMemoryStore()
	catalogService := catalog.NewService(catalog.NewKVRepository(store))
	_, err := catalogService.Seed(context.Background())
	require.NoError(t, err)

	router := gin.New()
	NewHandler(NewSessions(store, nil), catalogService, noop.NewTracerProvider().Tracer("cart")).
		Register(router.Group("/api"))
	return router
}

func serve(router *gin.Engine, method, path, session, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) View {
	t.Helper()
	var view View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestHandlerCartFlow(t *testing.T) {
	router := newTestRouter(t)

	// variant 1-1 has 3 in stock, 1-2 has 2
	w := serve(router, http.MethodPost, "/api/cart/items", "s1", `{"product_id":"1","variant_id":"1-1","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodPost, "/api/cart/items", "s1", `{"product_id":"1","variant_id":"1-2","quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeView(t, w)
	assert.Equal(t, 3, view.TotalItems)
	assert.Equal(t, int64(1220000), view.TotalPrice)
	assert.Equal(t, "R12200.00", view.DisplayTotal)

	w = serve(router, http.MethodPost, "/api/cart/items", "s1", `{"product_id":"1","variant_id":"1-2","quantity":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(router, http.MethodPatch, "/api/cart/items/1/1-1", "s1", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeView(t, w).TotalItems)

	// another session sees its own cart
	w = serve(router, http.MethodGet, "/api/cart", "s2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeView(t, w).TotalItems)

	w = serve(router, http.MethodDelete, "/api/cart/items/1/1-2", "s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeView(t, w).TotalItems)

	w = serve(router, http.MethodDelete, "/api/cart", "s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeView(t, w).Items)
}

func TestHandlerAddUnknownVariant(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, http.MethodPost, "/api/cart/items", "", `{"product_id":"1","variant_id":"9-9","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodPost, "/api/cart/items", "", `{"product_id":"1","variant_id":"2-1","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPatch, "/api/cart/items/1/1-1", "", `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
