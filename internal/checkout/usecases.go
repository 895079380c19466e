package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/inventory"
	"github.com/irevive/storefront/internal/orders"
)

// Orchestrator turns the contents of a cart into an order.
type Orchestrator interface {
	Checkout(ctx context.Context, m *cart.Manager, shipping *orders.Shipping) (*orders.Order, error)
}

// StockKeeper is the part of the inventory the checkout flow needs.
type StockKeeper interface {
	GetStock(ctx context.Context, variantID string) (int, error)
	DecreaseForOrder(ctx context.Context, orderID string, lines []inventory.Line) error
}

// OrderPlacer is the part of the order service the checkout flow needs.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, lines []cart.LineItem, shipping *orders.Shipping) (*orders.Order, error)
	CancelOrder(ctx context.Context, id string) (*orders.Order, error)
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
}

// LocalOrchestrator runs checkout in process: validate stock, create the
// order, reduce inventory, clear the cart. If the reduction fails the order
// is cancelled.
type LocalOrchestrator struct {
	stock           StockKeeper
	orders          OrderPlacer
	failuresCounter metric.Int64Counter
}

func NewLocalOrchestrator(stock StockKeeper, orders OrderPlacer, meter metric.Meter) (*LocalOrchestrator, error) {
	failures, err := newFailuresCounter(meter)
	if err != nil {
		return nil, err
	}
	return &LocalOrchestrator{stock: stock, orders: orders, failuresCounter: failures}, nil
}

func (o *LocalOrchestrator) Checkout(ctx context.Context, m *cart.Manager, shipping *orders.Shipping) (*orders.Order, error) {
	c := m.Cart()
	if err := validateStock(ctx, o.stock, c); err != nil {
		o.failed(ctx, "validation")
		return nil, err
	}

	order, err := o.orders.CreateOrder(ctx, c.Items, shipping)
	if err != nil {
		o.failed(ctx, "create_order")
		return nil, err
	}

	if err := o.stock.DecreaseForOrder(ctx, order.ID, InventoryLines(c)); err != nil {
		o.failed(ctx, "reduce_inventory")
		zap.L().Warn("↩️ compensating order after inventory failure", zap.String("order_id", order.ID), zap.Error(err))
		if _, cancelErr := o.orders.CancelOrder(ctx, order.ID); cancelErr != nil {
			zap.L().Error("❌ failed to compensate order", zap.String("order_id", order.ID), zap.Error(cancelErr))
			err = multierr.Append(err, cancelErr)
		}
		return nil, err
	}

	clearCart(ctx, m, order.ID)
	zap.L().Info("✅ checkout completed", zap.String("order_id", order.ID), zap.Int64("total_cents", order.TotalCents))
	return order, nil
}

func (o *LocalOrchestrator) failed(ctx context.Context, stage string) {
	o.failuresCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage), attribute.String("mode", "local")))
}

// InventoryLines converts cart lines into inventory lines.
func InventoryLines(c cart.Cart) []inventory.Line {
	lines := make([]inventory.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, inventory.Line{VariantID: item.Variant.ID, Quantity: item.Quantity})
	}
	return lines
}

// validateStock rechecks every line against live stock and reports all the
// lines that no longer fit.
func validateStock(ctx context.Context, stock StockKeeper, c cart.Cart) error {
	if len(c.Items) == 0 {
		return apperr.ErrEmptyCart
	}

	var errs error
	for _, item := range c.Items {
		available, err := stock.GetStock(ctx, item.Variant.ID)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			errs = multierr.Append(errs, fmt.Errorf("%s (%s): %w", item.Product.Title, item.Variant.ID, err))
			continue
		}
		if item.Quantity > available {
			errs = multierr.Append(errs, fmt.Errorf("%s %s %dGB: only %d left, %d in cart: %w",
				item.Product.Title, item.Variant.Color, item.Variant.Storage, available, item.Quantity, apperr.ErrInsufficientStock))
		}
	}
	return errs
}

// clearCart empties the cart once the order is placed. The order stands even
// if the cart cannot be cleared.
func clearCart(ctx context.Context, m *cart.Manager, orderID string) {
	if err := m.ClearCart(ctx); err != nil {
		zap.L().Warn("⚠️ order placed but cart not cleared", zap.String("order_id", orderID), zap.Error(err))
	}
}

func newFailuresCounter(meter metric.Meter) (metric.Int64Counter, error) {
	failures, err := meter.Int64Counter("checkout_failures",
		metric.WithDescription("Checkouts that did not produce an order"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout failures counter: %w", err)
	}
	return failures, nil
}
