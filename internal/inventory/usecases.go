package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/catalog"
)

// Default thresholds used by Stats and LowStock when none is given.
const (
	DefaultStatsLowThreshold = 2
	DefaultLowStockThreshold = 3
)

// Reducer owns every change to variant stock.
type Reducer struct {
	variants  catalog.Repository
	movements MovementRepository
	now       func() time.Time

	// serializes order-scoped operations so the ledger check and the stock
	// change happen together
	orderMu sync.Mutex

	unitsReducedCounter   metric.Int64Counter
	unitsRestockedCounter metric.Int64Counter
	rejectedCounter       metric.Int64Counter
}

// NewReducer creates a Reducer over the variant records of variants.
func NewReducer(variants catalog.Repository, movements MovementRepository, meter metric.Meter) (*Reducer, error) {
	unitsReduced, err := meter.Int64Counter("inventory_units_reduced",
		metric.WithDescription("Units taken out of stock"))
	if err != nil {
		return nil, fmt.Errorf("failed to create units reduced counter: %w", err)
	}
	unitsRestocked, err := meter.Int64Counter("inventory_units_restocked",
		metric.WithDescription("Units put back into stock"))
	if err != nil {
		return nil, fmt.Errorf("failed to create units restocked counter: %w", err)
	}
	rejected, err := meter.Int64Counter("inventory_reductions_rejected",
		metric.WithDescription("Reductions refused for insufficient stock"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}

	return &Reducer{
		variants:              variants,
		movements:             movements,
		now:                   time.Now,
		unitsReducedCounter:   unitsReduced,
		unitsRestockedCounter: unitsRestocked,
		rejectedCounter:       rejected,
	}, nil
}

// GetStock returns the current stock of a variant.
func (r *Reducer) GetStock(ctx context.Context, variantID string) (int, error) {
	variants, err := r.variants.Variants(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := variants[variantID]
	if !ok {
		return 0, fmt.Errorf("variant %s: %w", variantID, apperr.ErrNotFound)
	}
	return v.Stock, nil
}

// Reduce takes quantity units of a variant out of stock.
func (r *Reducer) Reduce(ctx context.Context, variantID string, quantity int) error {
	return r.ReduceBatch(ctx, []Line{{VariantID: variantID, Quantity: quantity}})
}

// ReduceBatch validates every line against current stock before touching any
// variant. Quantities for the same variant are summed. If any line fails, all
// failures are returned together and no stock changes.
func (r *Reducer) ReduceBatch(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	requested, order, err := sumLines(lines)
	if err != nil {
		return err
	}

	err = r.variants.UpdateVariants(ctx, func(variants map[string]catalog.Variant) error {
		var errs error
		for _, id := range order {
			v, ok := variants[id]
			switch {
			case !ok:
				errs = multierr.Append(errs, fmt.Errorf("variant %s: %w", id, apperr.ErrNotFound))
			case v.Stock < requested[id]:
				errs = multierr.Append(errs, fmt.Errorf("variant %s has %d in stock, %d requested: %w",
					id, v.Stock, requested[id], apperr.ErrInsufficientStock))
			}
		}
		if errs != nil {
			return errs
		}

		now := r.now()
		for _, id := range order {
			v := variants[id]
			v.Stock -= requested[id]
			v.Sold += requested[id]
			v.UpdatedAt = now
			variants[id] = v
		}
		return nil
	})
	if err != nil {
		r.rejectedCounter.Add(ctx, 1)
		zap.L().Warn("❌ stock reduction rejected", zap.Int("lines", len(lines)), zap.Error(err))
		return err
	}

	total := 0
	for _, id := range order {
		total += requested[id]
	}
	r.unitsReducedCounter.Add(ctx, int64(total), metric.WithAttributes(attribute.Int("variants", len(order))))
	zap.L().Info("📦 stock reduced", zap.Int("variants", len(order)), zap.Int("units", total))
	return nil
}

// Restock puts quantity units of a variant back.
func (r *Reducer) Restock(ctx context.Context, variantID string, quantity int) error {
	return r.RestockBatch(ctx, []Line{{VariantID: variantID, Quantity: quantity}})
}

// RestockBatch reverses a reduction. Unknown variants are skipped with a
// warning so a compensation never fails because a variant was deleted in the
// meantime.
func (r *Reducer) RestockBatch(ctx context.Context, lines []Line) error {
	requested, order, err := sumLines(lines)
	if err != nil {
		return err
	}

	total := 0
	err = r.variants.UpdateVariants(ctx, func(variants map[string]catalog.Variant) error {
		now := r.now()
		for _, id := range order {
			v, ok := variants[id]
			if !ok {
				zap.L().Warn("⚠️ restock skipped for unknown variant", zap.String("variant_id", id))
				continue
			}
			v.Stock += requested[id]
			v.Sold = max(v.Sold-requested[id], 0)
			v.UpdatedAt = now
			variants[id] = v
			total += requested[id]
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.unitsRestockedCounter.Add(ctx, int64(total))
	zap.L().Info("↩️ stock restored", zap.Int("variants", len(order)), zap.Int("units", total))
	return nil
}

// SetStock overwrites the stock of a variant.
func (r *Reducer) SetStock(ctx context.Context, variantID string, stock int) (*StockChange, error) {
	if stock < 0 {
		return nil, fmt.Errorf("stock cannot be negative, got %d: %w", stock, apperr.ErrInvalidArgument)
	}
	return r.mutate(ctx, variantID, func(current int) (int, error) {
		return stock, nil
	})
}

// AdjustStock adds delta (which may be negative) to the stock of a variant.
func (r *Reducer) AdjustStock(ctx context.Context, variantID string, delta int) (*StockChange, error) {
	return r.mutate(ctx, variantID, func(current int) (int, error) {
		if delta > 0 && current > math.MaxInt-delta {
			return 0, fmt.Errorf("stock of %d cannot grow by %d: %w", current, delta, apperr.ErrInvalidArgument)
		}
		if current+delta < 0 {
			return 0, fmt.Errorf("stock cannot be negative: %d%+d: %w", current, delta, apperr.ErrInvalidArgument)
		}
		return current + delta, nil
	})
}

func (r *Reducer) mutate(ctx context.Context, variantID string, next func(current int) (int, error)) (*StockChange, error) {
	var change StockChange
	err := r.variants.UpdateVariants(ctx, func(variants map[string]catalog.Variant) error {
		v, ok := variants[variantID]
		if !ok {
			return fmt.Errorf("variant %s: %w", variantID, apperr.ErrNotFound)
		}
		stock, err := next(v.Stock)
		if err != nil {
			return err
		}

		change = StockChange{
			VariantID: variantID,
			OldStock:  v.Stock,
			NewStock:  stock,
			Changed:   stock - v.Stock,
			UpdatedAt: r.now(),
		}
		v.Stock = stock
		v.UpdatedAt = change.UpdatedAt
		variants[variantID] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("🛠️ stock updated",
		zap.String("variant_id", variantID),
		zap.Int("old_stock", change.OldStock),
		zap.Int("new_stock", change.NewStock))
	return &change, nil
}

// Stats aggregates stock over every variant. Variants with stock at or below
// lowThreshold count as low stock.
func (r *Reducer) Stats(ctx context.Context, lowThreshold int) (Stats, error) {
	variants, err := r.variants.Variants(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Variants: len(variants)}
	for _, v := range variants {
		stats.TotalStock += v.Stock
		stats.TotalSold += v.Sold
		if v.Stock <= lowThreshold {
			stats.LowStockCount++
		}
		if v.Stock == 0 {
			stats.OutOfStockCount++
		}
	}
	return stats, nil
}

// LowStock lists the variants with stock at or below threshold, lowest first.
func (r *Reducer) LowStock(ctx context.Context, threshold int) ([]catalog.Variant, error) {
	variants, err := r.variants.Variants(ctx)
	if err != nil {
		return nil, err
	}

	out := []catalog.Variant{}
	for _, v := range variants {
		if v.Stock <= threshold {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DecreaseForOrder reduces stock for an order exactly once. Repeated calls for
// the same order succeed without reducing again, and a reduction arriving
// after the order was already compensated is ignored.
func (r *Reducer) DecreaseForOrder(ctx context.Context, orderID string, lines []Line) error {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()

	zap.L().Info("➡️ decrease stock for order", zap.String("order_id", orderID), zap.Int("lines", len(lines)))

	done, err := r.movements.FindMovement(ctx, orderID, MovementTypeDecreased)
	if err != nil {
		return fmt.Errorf("error to check idempotency: %w", err)
	}
	if done != nil {
		zap.L().Info("ℹ️ decrease already applied", zap.String("order_id", orderID))
		return nil
	}
	compensated, err := r.movements.FindMovement(ctx, orderID, MovementTypeIncreased)
	if err != nil {
		return fmt.Errorf("error to check idempotency: %w", err)
	}
	if compensated != nil {
		zap.L().Warn("⚠️ decrease arrived after compensation, ignoring", zap.String("order_id", orderID))
		return nil
	}

	if err := r.ReduceBatch(ctx, lines); err != nil {
		return err
	}
	return r.record(ctx, orderID, MovementTypeDecreased, lines)
}

// CompensateForOrder restores the stock taken by DecreaseForOrder. It is a
// no-op when nothing was decreased and when it already ran.
func (r *Reducer) CompensateForOrder(ctx context.Context, orderID string) error {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()

	zap.L().Info("↩️ compensate stock for order", zap.String("order_id", orderID))

	done, err := r.movements.FindMovement(ctx, orderID, MovementTypeIncreased)
	if err != nil {
		return fmt.Errorf("error to check idempotency: %w", err)
	}
	if done != nil {
		zap.L().Info("ℹ️ compensation already applied", zap.String("order_id", orderID))
		return nil
	}

	decreased, err := r.movements.FindMovement(ctx, orderID, MovementTypeDecreased)
	if err != nil {
		return fmt.Errorf("error to check idempotency: %w", err)
	}
	var lines []Line
	if decreased != nil {
		lines = decreased.Lines
		if err := r.RestockBatch(ctx, lines); err != nil {
			return err
		}
	}
	return r.record(ctx, orderID, MovementTypeIncreased, lines)
}

func (r *Reducer) record(ctx context.Context, orderID string, movementType MovementType, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	err := r.movements.SaveMovement(ctx, Movement{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Type:      movementType,
		Lines:     lines,
		CreatedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record %s movement for order %s: %w", movementType, orderID, err)
	}
	return nil
}

// sumLines validates lines and merges quantities per variant, keeping the
// order in which variants first appear. A sum that would overflow int is an
// invalid argument.
func sumLines(lines []Line) (map[string]int, []string, error) {
	requested := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))

	var errs error
	for _, l := range lines {
		if err := l.validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sum, seen := requested[l.VariantID]
		if !seen {
			order = append(order, l.VariantID)
		}
		if sum > math.MaxInt-l.Quantity {
			errs = multierr.Append(errs, fmt.Errorf("total quantity for variant %s is too large: %w", l.VariantID, apperr.ErrInvalidArgument))
			continue
		}
		requested[l.VariantID] = sum + l.Quantity
	}
	if errs != nil {
		return nil, nil, errs
	}
	return requested, order, nil
}
