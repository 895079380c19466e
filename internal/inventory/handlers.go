package inventory

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/saga"
)

// SagaRequest is the payload of the inventory saga branches.
type SagaRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Lines   []Line `json:"lines"`
	saga.TraceContext
}

type Handler struct {
	reducer           *Reducer
	barrier           *saga.Barrier
	tracer            trace.Tracer
	lowStockThreshold int
}

func NewHandler(reducer *Reducer, barrier *saga.Barrier, tracer trace.Tracer, lowStockThreshold int) *Handler {
	return &Handler{
		reducer:           reducer,
		barrier:           barrier,
		tracer:            tracer,
		lowStockThreshold: lowStockThreshold,
	}
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/inventory/stats", h.Stats)
	api.GET("/inventory/low-stock", h.LowStock)
	api.GET("/inventory/:variantId", h.GetStock)
	api.PUT("/inventory/:variantId", h.SetStock)
	api.POST("/inventory/:variantId/adjust", h.AdjustStock)

	api.POST("/saga/inventory/decrease", h.Decrease)
	api.POST("/saga/inventory/compensate", h.Compensate)
}

func (h *Handler) GetStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "inventory.get_stock")
	defer span.End()

	variantID := c.Param("variantId")
	span.SetAttributes(attribute.String("variant_id", variantID))

	stock, err := h.reducer.GetStock(ctx, variantID)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variant_id": variantID, "stock": stock})
}

type setStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

func (h *Handler) SetStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "inventory.set_stock")
	defer span.End()

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	variantID := c.Param("variantId")
	span.SetAttributes(attribute.String("variant_id", variantID), attribute.Int("stock", *req.Stock))

	change, err := h.reducer.SetStock(ctx, variantID, *req.Stock)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

type adjustStockRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

func (h *Handler) AdjustStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "inventory.adjust_stock")
	defer span.End()

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	variantID := c.Param("variantId")
	span.SetAttributes(attribute.String("variant_id", variantID), attribute.Int("delta", *req.Delta))

	change, err := h.reducer.AdjustStock(ctx, variantID, *req.Delta)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, change)
}

func (h *Handler) Stats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "inventory.stats")
	defer span.End()

	threshold, err := thresholdParam(c, DefaultStatsLowThreshold)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	stats, err := h.reducer.Stats(ctx, threshold)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) LowStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "inventory.low_stock")
	defer span.End()

	threshold, err := thresholdParam(c, h.lowStockThreshold)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	variants, err := h.reducer.LowStock(ctx, threshold)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "data": variants})
}

// Decrease is the saga action taking the order's units out of stock.
func (h *Handler) Decrease(c *gin.Context) {
	var req SagaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := saga.StartBranchSpan(c.Request.Context(), h.tracer, "saga.inventory.decrease", req.TraceContext)
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID), attribute.Int("lines", len(req.Lines)))

	err := h.barrier.Call(c, func() error {
		return h.reducer.DecreaseForOrder(ctx, req.OrderID, req.Lines)
	})
	saga.Respond(c, span, err)
}

// Compensate is the saga compensation putting the order's units back.
func (h *Handler) Compensate(c *gin.Context) {
	var req SagaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := saga.StartBranchSpan(c.Request.Context(), h.tracer, "saga.inventory.compensate", req.TraceContext)
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	err := h.barrier.Call(c, func() error {
		return h.reducer.CompensateForOrder(ctx, req.OrderID)
	})
	saga.Respond(c, span, err)
}

func thresholdParam(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("threshold")
	if raw == "" {
		return fallback, nil
	}
	threshold, err := strconv.Atoi(raw)
	if err != nil || threshold < 0 {
		return 0, fmt.Errorf("threshold %q: %w", raw, apperr.ErrInvalidArgument)
	}
	return threshold, nil
}
