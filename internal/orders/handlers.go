package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/saga"
)

// SagaRequest is the payload of the order saga branches.
type SagaRequest struct {
	OrderID  string          `json:"order_id" binding:"required"`
	Lines    []cart.LineItem `json:"lines"`
	Shipping *Shipping       `json:"shipping,omitempty"`
	saga.TraceContext
}

type Handler struct {
	service *Service
	barrier *saga.Barrier
	tracer  trace.Tracer
}

func NewHandler(service *Service, barrier *saga.Barrier, tracer trace.Tracer) *Handler {
	return &Handler{service: service, barrier: barrier, tracer: tracer}
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.PATCH("/orders/:id/status", h.UpdateStatus)
	api.POST("/orders/:id/cancel", h.Cancel)
	api.POST("/orders/:id/payment", h.AttachPayment)

	api.POST("/saga/orders/create", h.SagaCreate)
	api.POST("/saga/orders/compensate", h.SagaCompensate)
}

func (h *Handler) ListOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.list")
	defer span.End()

	orders, err := h.service.ListOrders(ctx, Status(c.Query("status")))
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	if c.Query("summary") == "true" {
		summaries := make([]Summary, 0, len(orders))
		for _, o := range orders {
			summaries = append(summaries, Summarize(o))
		}
		c.JSON(http.StatusOK, gin.H{"data": summaries, "total": len(summaries)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": len(orders)})
}

func (h *Handler) GetOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.get")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order_id", id))

	order, err := h.service.GetOrder(ctx, id)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.update_status")
	defer span.End()

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	span.SetAttributes(attribute.String("order_id", id), attribute.String("status", string(req.Status)))

	order, err := h.service.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) Cancel(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.cancel")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order_id", id))

	order, err := h.service.CancelOrder(ctx, id)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) AttachPayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.attach_payment")
	defer span.End()

	var payment Payment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	span.SetAttributes(attribute.String("order_id", id), attribute.String("payment_method", payment.Method))

	order, err := h.service.AttachPayment(ctx, id, payment)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// SagaCreate is the saga action placing the order.
func (h *Handler) SagaCreate(c *gin.Context) {
	var req SagaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := saga.StartBranchSpan(c.Request.Context(), h.tracer, "saga.orders.create", req.TraceContext)
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID), attribute.Int("lines", len(req.Lines)))

	err := h.barrier.Call(c, func() error {
		_, err := h.service.CreateOrderWithID(ctx, req.OrderID, req.Lines, req.Shipping)
		return err
	})
	saga.Respond(c, span, err)
}

// SagaCompensate cancels the order placed by SagaCreate. An order that was
// never created needs no compensation.
func (h *Handler) SagaCompensate(c *gin.Context) {
	var req SagaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := saga.StartBranchSpan(c.Request.Context(), h.tracer, "saga.orders.compensate", req.TraceContext)
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	err := h.barrier.Call(c, func() error {
		_, err := h.service.CancelOrder(ctx, req.OrderID)
		if errors.Is(err, apperr.ErrNotFound) {
			zap.L().Info("ℹ️ nothing to compensate", zap.String("order_id", req.OrderID))
			return nil
		}
		return err
	})
	saga.Respond(c, span, err)
}
