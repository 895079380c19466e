package orders

import (
	"context"
	"sync"

	"github.com/irevive/storefront/internal/kvstore"
)

// Repository persists the order list. UpdateOrders saves the list returned by
// fn only when fn succeeds; updates through one Repository are serialized.
type Repository interface {
	Orders(ctx context.Context) ([]Order, error)
	UpdateOrders(ctx context.Context, fn func(orders []Order) ([]Order, error)) error
}

type KVRepository struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewKVRepository(store kvstore.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Orders(ctx context.Context) ([]Order, error) {
	orders := []Order{}
	if _, err := kvstore.LoadOrDefault(ctx, r.store, kvstore.KeyOrders, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (r *KVRepository) UpdateOrders(ctx context.Context, fn func([]Order) ([]Order, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders, err := r.Orders(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(orders)
	if err != nil {
		return err
	}
	return kvstore.SetJSON(ctx, r.store, kvstore.KeyOrders, updated)
}
