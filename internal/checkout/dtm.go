package checkout

import (
	"context"
	"fmt"

	"github.com/dtm-labs/client/dtmcli"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/inventory"
	"github.com/irevive/storefront/internal/orders"
	"github.com/irevive/storefront/internal/saga"
)

// DTMOrchestrator runs checkout as a DTM saga:
//
//	orders/create     <-> orders/compensate
//	inventory/decrease <-> inventory/compensate
//
// The branches are served by this same service under /api/saga.
type DTMOrchestrator struct {
	dtmServer       string
	serviceURL      string
	stock           StockKeeper
	orders          OrderPlacer
	failuresCounter metric.Int64Counter
}

func NewDTMOrchestrator(dtmServer, serviceURL string, stock StockKeeper, orders OrderPlacer, meter metric.Meter) (*DTMOrchestrator, error) {
	failures, err := newFailuresCounter(meter)
	if err != nil {
		return nil, err
	}
	return &DTMOrchestrator{
		dtmServer:       dtmServer,
		serviceURL:      serviceURL,
		stock:           stock,
		orders:          orders,
		failuresCounter: failures,
	}, nil
}

func (o *DTMOrchestrator) Checkout(ctx context.Context, m *cart.Manager, shipping *orders.Shipping) (*orders.Order, error) {
	c := m.Cart()
	if err := validateStock(ctx, o.stock, c); err != nil {
		o.failed(ctx, "validation")
		return nil, err
	}

	gid, err := o.newGid()
	if err != nil {
		o.failed(ctx, "gid")
		return nil, err
	}
	orderID := orders.NewOrderID()
	tc := saga.TraceContextFrom(ctx)

	zap.L().Info("🚀 starting checkout saga",
		zap.String("gid", gid),
		zap.String("order_id", orderID),
		zap.String("trace_id", tc.TraceID))

	s := dtmcli.NewSaga(o.dtmServer, gid).
		Add(
			o.serviceURL+"/api/saga/orders/create",
			o.serviceURL+"/api/saga/orders/compensate",
			&orders.SagaRequest{OrderID: orderID, Lines: c.Items, Shipping: shipping, TraceContext: tc},
		).
		Add(
			o.serviceURL+"/api/saga/inventory/decrease",
			o.serviceURL+"/api/saga/inventory/compensate",
			&inventory.SagaRequest{OrderID: orderID, Lines: InventoryLines(c), TraceContext: tc},
		)
	s.WaitResult = true

	if err := s.Submit(); err != nil {
		o.failed(ctx, "saga")
		zap.L().Error("❌ checkout saga failed", zap.String("gid", gid), zap.Error(err))
		return nil, fmt.Errorf("checkout saga %s failed: %w", gid, err)
	}

	order, err := o.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("saga %s succeeded but order %s is unavailable: %w", gid, orderID, err)
	}

	clearCart(ctx, m, orderID)
	zap.L().Info("✅ checkout saga completed", zap.String("gid", gid), zap.String("order_id", orderID))
	return order, nil
}

// newGid asks the coordinator for a global transaction id. MustGenGid panics
// when the coordinator is unreachable.
func (o *DTMOrchestrator) newGid() (gid string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to get gid from %s: %v", o.dtmServer, r)
		}
	}()
	return dtmcli.MustGenGid(o.dtmServer), nil
}

func (o *DTMOrchestrator) failed(ctx context.Context, stage string) {
	o.failuresCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage), attribute.String("mode", "dtm")))
}
