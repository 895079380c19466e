package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/kvstore"
)

// StockLookup returns the live stock of a variant.
type StockLookup interface {
	GetStock(ctx context.Context, variantID string) (int, error)
}

// Manager is the only writer of one cart. Every successful mutation is
// persisted before it returns; a mutation whose save fails leaves the cart as
// it was.
type Manager struct {
	store kvstore.Store
	key   string
	stock StockLookup

	mu   sync.Mutex
	cart Cart
}

// NewManager creates a manager for the cart stored under the session's key.
// With a nil stock lookup, quantities are checked against the stock embedded
// in the line's variant snapshot.
func NewManager(store kvstore.Store, sessionID string, stock StockLookup) *Manager {
	return &Manager{
		store: store,
		key:   kvstore.CartKey(sessionID),
		stock: stock,
		cart:  Cart{Items: []LineItem{}},
	}
}

// Load restores the saved cart. A missing or unreadable cart loads as empty.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var saved Cart
	found, err := kvstore.LoadOrDefault(ctx, m.store, m.key, &saved)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if !found || saved.Items == nil {
		saved = Cart{Items: []LineItem{}}
	}
	m.cart = saved
	return nil
}

// Cart returns a copy of the current cart.
func (m *Manager) Cart() Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.clone()
}

// AddItem adds quantity units of variant. When the line exists the quantities
// are summed. The resulting quantity must not exceed the variant's stock; if
// it does the cart is left unchanged. A cart holds a single currency.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product, variant catalog.Variant, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d: %w", quantity, apperr.ErrInvalidArgument)
	}
	if variant.ProductID != "" && variant.ProductID != product.ID {
		return fmt.Errorf("variant %s does not belong to product %s: %w", variant.ID, product.ID, apperr.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stock, err := m.availableStock(ctx, variant)
	if err != nil {
		return err
	}
	variant.Stock = stock

	next := m.cart.clone()
	if currency := productCurrency(product); len(next.Items) > 0 && currency != Currency(next) {
		return fmt.Errorf("cannot add %s item to a %s cart: %w", currency, Currency(next), apperr.ErrInvalidArgument)
	}

	existing := 0
	idx := next.indexOf(product.ID, variant.ID)
	if idx >= 0 {
		existing = next.Items[idx].Quantity
	}
	// compared by subtraction so a huge quantity cannot wrap the sum
	if quantity > stock-existing {
		return fmt.Errorf("only %d of variant %s in stock, %d in cart and %d more requested: %w",
			stock, variant.ID, existing, quantity, apperr.ErrInsufficientStock)
	}

	line := LineItem{Product: product, Variant: variant, Quantity: existing + quantity}
	if idx >= 0 {
		next.Items[idx] = line
	} else {
		next.Items = append(next.Items, line)
	}
	return m.commit(ctx, next)
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line.
func (m *Manager) UpdateQuantity(ctx context.Context, productID, variantID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, productID, variantID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cart.clone()
	idx := next.indexOf(productID, variantID)
	if idx < 0 {
		return fmt.Errorf("cart line %s/%s: %w", productID, variantID, apperr.ErrNotFound)
	}

	line := next.Items[idx]
	stock, err := m.availableStock(ctx, line.Variant)
	if err != nil {
		return err
	}
	if quantity > stock {
		return fmt.Errorf("only %d of variant %s in stock, %d requested: %w", stock, variantID, quantity, apperr.ErrInsufficientStock)
	}

	line.Variant.Stock = stock
	line.Quantity = quantity
	next.Items[idx] = line
	return m.commit(ctx, next)
}

// RemoveItem deletes the matching line. Removing an absent line is a no-op.
func (m *Manager) RemoveItem(ctx context.Context, productID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.cart.indexOf(productID, variantID)
	if idx < 0 {
		return nil
	}
	next := m.cart.clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return m.commit(ctx, next)
}

// ClearCart empties the cart.
func (m *Manager) ClearCart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(ctx, Cart{Items: []LineItem{}})
}

func (m *Manager) commit(ctx context.Context, next Cart) error {
	if err := kvstore.SetJSON(ctx, m.store, m.key, next); err != nil {
		zap.L().Error("❌ failed to persist cart", zap.String("key", m.key), zap.Error(err))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	m.cart = next
	return nil
}

func (m *Manager) availableStock(ctx context.Context, variant catalog.Variant) (int, error) {
	if m.stock == nil {
		return variant.Stock, nil
	}
	stock, err := m.stock.GetStock(ctx, variant.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to check stock of variant %s: %w", variant.ID, err)
	}
	return stock, nil
}
