package inventory

import (
	"fmt"
	"time"

	"github.com/irevive/storefront/internal/apperr"
)

// Line is one (variant, quantity) pair of a batch.
type Line struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (l Line) validate() error {
	if l.VariantID == "" {
		return fmt.Errorf("variant id is required: %w", apperr.ErrInvalidArgument)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("quantity for variant %s must be positive, got %d: %w", l.VariantID, l.Quantity, apperr.ErrInvalidArgument)
	}
	return nil
}

// StockChange reports the effect of an administrative stock update.
type StockChange struct {
	VariantID string    `json:"variant_id"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	Changed   int       `json:"changed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes stock over every variant.
type Stats struct {
	Variants        int `json:"variants"`
	TotalStock      int `json:"total_stock"`
	TotalSold       int `json:"total_sold"`
	LowStockCount   int `json:"low_stock_count"`
	OutOfStockCount int `json:"out_of_stock_count"`
}

// MovementType tells whether a movement took stock out or put it back.
type MovementType string

const (
	MovementTypeDecreased MovementType = "decreased"
	MovementTypeIncreased MovementType = "increased"
)

// Movement records the stock change applied on behalf of an order. At most
// one movement per (order, type) exists, which makes order-scoped reductions
// and their compensations idempotent.
type Movement struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"order_id"`
	Type      MovementType `json:"type"`
	Lines     []Line       `json:"lines"`
	CreatedAt time.Time    `json:"created_at"`
}
