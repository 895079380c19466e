package orders

import (
	"fmt"
	"time"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/cart"
	"github.com/irevive/storefront/internal/catalog"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the statuses reachable from each status. Delivered and
// cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next directly follows s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is a frozen copy of a cart line taken when the order was placed.
type OrderItem struct {
	ProductID    string            `json:"product_id"`
	ProductTitle string            `json:"product_title"`
	VariantID    string            `json:"variant_id"`
	Color        string            `json:"color"`
	Storage      int               `json:"storage"`
	Condition    catalog.Condition `json:"condition"`
	UnitPrice    int64             `json:"unit_price_cents"`
	Quantity     int               `json:"quantity"`
	Subtotal     int64             `json:"subtotal_cents"`
}

type Payment struct {
	Method      string    `json:"method"`
	Reference   string    `json:"reference"`
	AmountCents int64     `json:"amount_cents"`
	ProcessedAt time.Time `json:"processed_at"`
}

type Shipping struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID         string      `json:"id"`
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Currency   string      `json:"currency"`
	Status     Status      `json:"status"`
	Payment    *Payment    `json:"payment"`
	Shipping   *Shipping   `json:"shipping"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewOrder snapshots lines into a pending order.
func NewOrder(id string, lines []cart.LineItem, shipping *Shipping, now time.Time) *Order {
	items := make([]OrderItem, 0, len(lines))
	var total int64
	for _, line := range lines {
		unit := line.UnitPrice()
		item := OrderItem{
			ProductID:    line.Product.ID,
			ProductTitle: line.Product.Title,
			VariantID:    line.Variant.ID,
			Color:        line.Variant.Color,
			Storage:      line.Variant.Storage,
			Condition:    line.Variant.Condition,
			UnitPrice:    unit,
			Quantity:     line.Quantity,
			Subtotal:     unit * int64(line.Quantity),
		}
		items = append(items, item)
		total += item.Subtotal
	}

	return &Order{
		ID:         id,
		Items:      items,
		TotalCents: total,
		Currency:   cart.Currency(cart.Cart{Items: lines}),
		Status:     StatusPending,
		Shipping:   shipping,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo moves the order to next. Moving to the current status changes
// nothing and reports false.
func (o *Order) TransitionTo(next Status, now time.Time) (bool, error) {
	if !next.Valid() {
		return false, fmt.Errorf("unknown order status %q: %w", next, apperr.ErrInvalidArgument)
	}
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("order %s cannot go from %s to %s: %w", o.ID, o.Status, next, apperr.ErrInvalidTransition)
	}
	o.Status = next
	o.UpdatedAt = now
	return true, nil
}

// ItemCount is the number of units in the order.
func (o Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// Summary is the short form of an order shown in listings.
type Summary struct {
	ID        string    `json:"id"`
	ItemCount int       `json:"item_count"`
	Total     string    `json:"total"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func Summarize(o Order) Summary {
	return Summary{
		ID:        o.ID,
		ItemCount: o.ItemCount(),
		Total:     catalog.FormatPrice(o.TotalCents, o.Currency),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
