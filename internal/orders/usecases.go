package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
)

// Service manages orders and their lifecycle.
type Service struct {
	repository Repository
	publisher  Publisher
	now        func() time.Time

	ordersCreatedCounter metric.Int64Counter
	statusChangedCounter metric.Int64Counter
}

// NewService creates an order service. A nil publisher logs events instead.
func NewService(repository Repository, publisher Publisher, meter metric.Meter) (*Service, error) {
	if publisher == nil {
		publisher = LogPublisher{}
	}

	created, err := meter.Int64Counter("orders_created",
		metric.WithDescription("Orders placed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orders created counter: %w", err)
	}
	changed, err := meter.Int64Counter("order_status_changes",
		metric.WithDescription("Order status transitions"))
	if err != nil {
		return nil, fmt.Errorf("failed to create status changes counter: %w", err)
	}

	return &Service{
		repository:           repository,
		publisher:            publisher,
		now:                  time.Now,
		ordersCreatedCounter: created,
		statusChangedCounter: changed,
	}, nil
}

// NewOrderID generates an order id.
func NewOrderID() string {
	return "ORD-" + uuid.New().String()
}

// CreateOrder places a pending order for lines under a new id.
func (s *Service) CreateOrder(ctx context.Context, lines []cart.LineItem, shipping *Shipping) (*Order, error) {
	return s.CreateOrderWithID(ctx, NewOrderID(), lines, shipping)
}

// CreateOrderWithID places a pending order under id. If an order with that id
// already exists it is returned unchanged, so retried saga actions do not
// duplicate orders.
func (s *Service) CreateOrderWithID(ctx context.Context, id string, lines []cart.LineItem, shipping *Shipping) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity for variant %s must be positive: %w", line.Variant.ID, apperr.ErrInvalidArgument)
		}
	}

	order := NewOrder(id, lines, shipping, s.now())
	existed := false
	err := s.repository.UpdateOrders(ctx, func(orders []Order) ([]Order, error) {
		if idx := indexOfOrder(orders, id); idx >= 0 {
			order = &orders[idx]
			existed = true
			return orders, nil
		}
		return append(orders, *order), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if existed {
		zap.L().Info("ℹ️ order already exists", zap.String("order_id", id))
		return order, nil
	}

	s.ordersCreatedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", order.Currency)))
	s.publish(ctx, newEvent(EventOrderCreated, *order, "", order.CreatedAt))
	zap.L().Info("✅ order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Int64("total_cents", order.TotalCents))
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	orders, err := s.repository.Orders(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOfOrder(orders, id)
	if idx < 0 {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	return &orders[idx], nil
}

// ListOrders returns orders newest first, optionally only those in status.
func (s *Service) ListOrders(ctx context.Context, status Status) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q: %w", status, apperr.ErrInvalidArgument)
	}
	orders, err := s.repository.Orders(ctx)
	if err != nil {
		return nil, err
	}

	out := []Order{}
	for _, o := range orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateOrderStatus moves an order along the status graph:
// pending -> processing|cancelled, processing -> shipped|cancelled,
// shipped -> delivered. Setting the current status is a no-op.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status Status) (*Order, error) {
	return s.update(ctx, id, func(o *Order, now time.Time) (bool, error) {
		return o.TransitionTo(status, now)
	})
}

// CancelOrder cancels a pending or processing order. Cancelling an already
// cancelled order succeeds without change.
func (s *Service) CancelOrder(ctx context.Context, id string) (*Order, error) {
	return s.update(ctx, id, func(o *Order, now time.Time) (bool, error) {
		if o.Status == StatusShipped || o.Status == StatusDelivered {
			return false, fmt.Errorf("cannot cancel %s order %s: %w", o.Status, id, apperr.ErrInvalidTransition)
		}
		return o.TransitionTo(StatusCancelled, now)
	})
}

// AttachPayment records a processed payment and moves a pending order to
// processing. A zero amount is taken as the order total.
func (s *Service) AttachPayment(ctx context.Context, id string, payment Payment) (*Order, error) {
	if strings.TrimSpace(payment.Method) == "" {
		return nil, fmt.Errorf("payment method is required: %w", apperr.ErrInvalidArgument)
	}
	return s.update(ctx, id, func(o *Order, now time.Time) (bool, error) {
		if o.Status != StatusPending && o.Status != StatusProcessing {
			return false, fmt.Errorf("cannot pay %s order %s: %w", o.Status, id, apperr.ErrInvalidTransition)
		}
		if payment.AmountCents == 0 {
			payment.AmountCents = o.TotalCents
		}
		if payment.AmountCents != o.TotalCents {
			return false, fmt.Errorf("payment of %d does not match order total %d: %w", payment.AmountCents, o.TotalCents, apperr.ErrInvalidArgument)
		}
		payment.ProcessedAt = now
		o.Payment = &payment
		o.UpdatedAt = now
		if _, err := o.TransitionTo(StatusProcessing, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// update applies fn to the stored order and saves it. A status change is
// counted and published.
func (s *Service) update(ctx context.Context, id string, fn func(o *Order, now time.Time) (bool, error)) (*Order, error) {
	var (
		updated  Order
		previous Status
		changed  bool
	)
	err := s.repository.UpdateOrders(ctx, func(orders []Order) ([]Order, error) {
		idx := indexOfOrder(orders, id)
		if idx < 0 {
			return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
		}
		o := orders[idx]
		previous = o.Status

		var err error
		changed, err = fn(&o, s.now())
		if err != nil {
			return nil, err
		}
		orders[idx] = o
		updated = o
		return orders, nil
	})
	if err != nil {
		return nil, err
	}

	if changed && updated.Status != previous {
		s.statusChangedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", string(previous)),
			attribute.String("to", string(updated.Status)),
		))
		s.publish(ctx, newEvent(EventOrderStatusChanged, updated, previous, updated.UpdatedAt))
		zap.L().Info("🔄 order status changed",
			zap.String("order_id", id),
			zap.String("from", string(previous)),
			zap.String("to", string(updated.Status)))
	}
	return &updated, nil
}

// publish is best effort; a lost notification never fails the order.
func (s *Service) publish(ctx context.Context, event Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("⚠️ failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
}

func indexOfOrder(orders []Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

func validateShipping(s *Shipping) error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("shipping name is required: %w", apperr.ErrInvalidArgument)
	}
	if !strings.Contains(s.Email, "@") {
		return fmt.Errorf("shipping email %q is invalid: %w", s.Email, apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("shipping address is required: %w", apperr.ErrInvalidArgument)
	}
	return nil
}
