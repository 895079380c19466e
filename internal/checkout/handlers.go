package checkout

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/orders"
)

type Handler struct {
	orchestrator Orchestrator
	sessions     *cart.Sessions
	tracer       trace.Tracer
}

func NewHandler(orchestrator Orchestrator, sessions *cart.Sessions, tracer trace.Tracer) *Handler {
	return &Handler{orchestrator: orchestrator, sessions: sessions, tracer: tracer}
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/cart/checkout", h.Checkout)
}

type checkoutRequest struct {
	Shipping *orders.Shipping `json:"shipping"`
}

func (h *Handler) Checkout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "checkout")
	defer span.End()

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := cart.SessionID(c)
	span.SetAttributes(attribute.String("cart_session", sessionID))

	m, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	order, err := h.orchestrator.Checkout(ctx, m, req.Shipping)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"summary": orders.Summarize(*order),
	})
}
