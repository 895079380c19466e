package catalog

import (
	"context"
	"sync"

	"github.com/irevive/storefront/internal/kvstore"
)

// Repository define the persistence operations for products and variants.
// The Update methods run fn on the current state and persist the result only
// when fn succeeds; concurrent updates through the same Repository are
// serialized.
type Repository interface {
	Products(ctx context.Context) ([]Product, error)
	Variants(ctx context.Context) (map[string]Variant, error)
	UpdateProducts(ctx context.Context, fn func(products []Product) ([]Product, error)) error
	UpdateVariants(ctx context.Context, fn func(variants map[string]Variant) error) error
}

// KVRepository stores the product list and the variant map as two documents.
type KVRepository struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewKVRepository(store kvstore.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Products(ctx context.Context) ([]Product, error) {
	products := []Product{}
	if _, err := kvstore.LoadOrDefault(ctx, r.store, kvstore.KeyProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *KVRepository) Variants(ctx context.Context) (map[string]Variant, error) {
	variants := map[string]Variant{}
	if _, err := kvstore.LoadOrDefault(ctx, r.store, kvstore.KeyVariantInventory, &variants); err != nil {
		return nil, err
	}
	if variants == nil {
		variants = map[string]Variant{}
	}
	return variants, nil
}

func (r *KVRepository) UpdateProducts(ctx context.Context, fn func([]Product) ([]Product, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.Products(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(products)
	if err != nil {
		return err
	}
	return kvstore.SetJSON(ctx, r.store, kvstore.KeyProducts, updated)
}

func (r *KVRepository) UpdateVariants(ctx context.Context, fn func(map[string]Variant) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	variants, err := r.Variants(ctx)
	if err != nil {
		return err
	}
	if err := fn(variants); err != nil {
		return err
	}
	return kvstore.SetJSON(ctx, r.store, kvstore.KeyVariantInventory, variants)
}
