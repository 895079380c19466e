package cart

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/catalog"
)

// SessionHeader selects the cart a request works on. Requests without it
// share the default cart.
const SessionHeader = "X-Cart-ID"

// CatalogReader resolves the products and variants added to a cart.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetVariant(ctx context.Context, id string) (*catalog.Variant, error)
}

// View is a cart with its derived totals, as returned to clients.
type View struct {
	Items        []LineItem `json:"items"`
	TotalItems   int        `json:"total_items"`
	TotalPrice   int64      `json:"total_price"`
	Currency     string     `json:"currency"`
	DisplayTotal string     `json:"display_total"`
}

func NewView(c Cart) View {
	currency := Currency(c)
	return View{
		Items:        c.Items,
		TotalItems:   TotalItems(c),
		TotalPrice:   TotalPrice(c),
		Currency:     currency,
		DisplayTotal: catalog.FormatPrice(TotalPrice(c), currency),
	}
}

type Handler struct {
	sessions *Sessions
	catalog  CatalogReader
	tracer   trace.Tracer
}

func NewHandler(sessions *Sessions, reader CatalogReader, tracer trace.Tracer) *Handler {
	return &Handler{sessions: sessions, catalog: reader, tracer: tracer}
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/cart", h.GetCart)
	api.DELETE("/cart", h.ClearCart)
	api.POST("/cart/items", h.AddItem)
	api.PATCH("/cart/items/:productId/:variantId", h.UpdateQuantity)
	api.DELETE("/cart/items/:productId/:variantId", h.RemoveItem)
}

// SessionID returns the cart session of the request.
func SessionID(c *gin.Context) string {
	return c.GetHeader(SessionHeader)
}

func (h *Handler) manager(ctx context.Context, c *gin.Context, span trace.Span) (*Manager, bool) {
	sessionID := SessionID(c)
	span.SetAttributes(attribute.String("cart_session", sessionID))

	m, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		apperr.Respond(c, span, err)
		return nil, false
	}
	return m, true
}

func (h *Handler) GetCart(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cart.get")
	defer span.End()

	m, ok := h.manager(ctx, c, span)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewView(m.Cart()))
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	VariantID string `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) AddItem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cart.add_item")
	defer span.End()

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	span.SetAttributes(
		attribute.String("product_id", req.ProductID),
		attribute.String("variant_id", req.VariantID),
		attribute.Int("quantity", req.Quantity),
	)

	m, ok := h.manager(ctx, c, span)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	variant, err := h.catalog.GetVariant(ctx, req.VariantID)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	if err := m.AddItem(ctx, *product, *variant, req.Quantity); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, NewView(m.Cart()))
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) UpdateQuantity(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cart.update_quantity")
	defer span.End()

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, ok := h.manager(ctx, c, span)
	if !ok {
		return
	}
	if err := m.UpdateQuantity(ctx, c.Param("productId"), c.Param("variantId"), *req.Quantity); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, NewView(m.Cart()))
}

func (h *Handler) RemoveItem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cart.remove_item")
	defer span.End()

	m, ok := h.manager(ctx, c, span)
	if !ok {
		return
	}
	if err := m.RemoveItem(ctx, c.Param("productId"), c.Param("variantId")); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, NewView(m.Cart()))
}

func (h *Handler) ClearCart(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "cart.clear")
	defer span.End()

	m, ok := h.manager(ctx, c, span)
	if !ok {
		return
	}
	if err := m.ClearCart(ctx); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, NewView(m.Cart()))
}
