package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
)

// Service contains the catalog business rules.
type Service struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a catalog service on top of repository.
func NewService(repository Repository) *Service {
	return &Service{
		repository: repository,
		now:        time.Now,
	}
}

// ---- products ----

// CreateProduct validates p, assigns an id and timestamps, and appends it.
func (s *Service) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}

	err := s.repository.UpdateProducts(ctx, func(products []Product) ([]Product, error) {
		if slugTaken(products, p.Slug, "") {
			return nil, fmt.Errorf("slug %q already in use: %w", p.Slug, apperr.ErrInvalidArgument)
		}
		return append(products, p), nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("✅ product created", zap.String("product_id", p.ID), zap.String("slug", p.Slug))
	return &p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	products, err := s.repository.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	products, err := s.repository.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].Slug == slug {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product with slug %q: %w", slug, apperr.ErrNotFound)
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repository.Products(ctx)
}

// SearchProducts lists the products matching filter, in catalog order.
func (s *Service) SearchProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	products, err := s.repository.Products(ctx)
	if err != nil {
		return nil, err
	}
	out := []Product{}
	for _, p := range products {
		if filter.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateProduct applies the non-nil fields of update.
func (s *Service) UpdateProduct(ctx context.Context, id string, update ProductUpdate) (*Product, error) {
	var updated Product
	err := s.repository.UpdateProducts(ctx, func(products []Product) ([]Product, error) {
		idx := indexOfProduct(products, id)
		if idx < 0 {
			return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
		}

		p := products[idx]
		applyProductUpdate(&p, update)
		if err := p.validate(); err != nil {
			return nil, err
		}
		if slugTaken(products, p.Slug, id) {
			return nil, fmt.Errorf("slug %q already in use: %w", p.Slug, apperr.ErrInvalidArgument)
		}
		p.UpdatedAt = s.now()

		products[idx] = p
		updated = p
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct removes the product and every variant that belongs to it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	err := s.repository.UpdateProducts(ctx, func(products []Product) ([]Product, error) {
		idx := indexOfProduct(products, id)
		if idx < 0 {
			return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
		}
		return append(products[:idx], products[idx+1:]...), nil
	})
	if err != nil {
		return err
	}

	removed := 0
	err = s.repository.UpdateVariants(ctx, func(variants map[string]Variant) error {
		for key, v := range variants {
			if v.ProductID == id {
				delete(variants, key)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete variants of product %s: %w", id, err)
	}

	zap.L().Info("🗑️ product deleted", zap.String("product_id", id), zap.Int("variants_removed", removed))
	return nil
}

// ---- variants ----

// CreateVariant adds a SKU to an existing product. The (color, storage,
// condition) triple must be unique within the product.
func (s *Service) CreateVariant(ctx context.Context, productID string, v Variant) (*Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	v.ProductID = productID
	if err := v.validate(); err != nil {
		return nil, err
	}
	v.ID = productID + "-" + uuid.New().String()[:8]
	v.UpdatedAt = s.now()

	err := s.repository.UpdateVariants(ctx, func(variants map[string]Variant) error {
		for _, existing := range variants {
			if existing.ProductID == productID && existing.sameOptions(v) {
				return fmt.Errorf("variant %s/%dGB/%s already exists: %w", v.Color, v.Storage, v.Condition, apperr.ErrInvalidArgument)
			}
		}
		variants[v.ID] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) GetVariant(ctx context.Context, id string) (*Variant, error) {
	variants, err := s.repository.Variants(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := variants[id]
	if !ok {
		return nil, fmt.Errorf("variant %s: %w", id, apperr.ErrNotFound)
	}
	return &v, nil
}

func (s *Service) UpdateVariant(ctx context.Context, id string, update VariantUpdate) (*Variant, error) {
	var updated Variant
	err := s.repository.UpdateVariants(ctx, func(variants map[string]Variant) error {
		v, ok := variants[id]
		if !ok {
			return fmt.Errorf("variant %s: %w", id, apperr.ErrNotFound)
		}
		applyVariantUpdate(&v, update)
		if err := v.validate(); err != nil {
			return err
		}
		for key, other := range variants {
			if key != id && other.ProductID == v.ProductID && other.sameOptions(v) {
				return fmt.Errorf("variant %s/%dGB/%s already exists: %w", v.Color, v.Storage, v.Condition, apperr.ErrInvalidArgument)
			}
		}
		v.UpdatedAt = s.now()
		variants[id] = v
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	return s.repository.UpdateVariants(ctx, func(variants map[string]Variant) error {
		if _, ok := variants[id]; !ok {
			return fmt.Errorf("variant %s: %w", id, apperr.ErrNotFound)
		}
		delete(variants, id)
		return nil
	})
}

// ListVariants returns the variants of a product ordered by id.
func (s *Service) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	variants, err := s.repository.Variants(ctx)
	if err != nil {
		return nil, err
	}

	out := []Variant{}
	for _, v := range variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// VariantsByProduct groups every variant by product id, each group ordered
// by variant id.
func (s *Service) VariantsByProduct(ctx context.Context) (map[string][]Variant, error) {
	variants, err := s.repository.Variants(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]Variant)
	for _, v := range variants {
		grouped[v.ProductID] = append(grouped[v.ProductID], v)
	}
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	}
	return grouped, nil
}

// AvailableVariants returns only the variants with stock left.
func (s *Service) AvailableVariants(ctx context.Context, productID string) ([]Variant, error) {
	variants, err := s.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := variants[:0]
	for _, v := range variants {
		if v.Stock > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

// AvailableColors lists the distinct colors that can be bought.
func (s *Service) AvailableColors(ctx context.Context, productID string) ([]string, error) {
	variants, err := s.AvailableVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	colors := []string{}
	seen := map[string]bool{}
	for _, v := range variants {
		if !seen[v.Color] {
			seen[v.Color] = true
			colors = append(colors, v.Color)
		}
	}
	return colors, nil
}

// AvailableStorages lists the distinct storage sizes for a color, ascending.
func (s *Service) AvailableStorages(ctx context.Context, productID, color string) ([]int, error) {
	variants, err := s.AvailableVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	storages := []int{}
	seen := map[int]bool{}
	for _, v := range variants {
		if v.Color == color && !seen[v.Storage] {
			seen[v.Storage] = true
			storages = append(storages, v.Storage)
		}
	}
	sort.Ints(storages)
	return storages, nil
}

// AvailableConditions lists the distinct conditions for a color and storage.
func (s *Service) AvailableConditions(ctx context.Context, productID, color string, storage int) ([]Condition, error) {
	variants, err := s.AvailableVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	conditions := []Condition{}
	seen := map[Condition]bool{}
	for _, v := range variants {
		if v.Color == color && v.Storage == storage && !seen[v.Condition] {
			seen[v.Condition] = true
			conditions = append(conditions, v.Condition)
		}
	}
	return conditions, nil
}

// FindVariant resolves the variant matching all three options, in stock or not.
func (s *Service) FindVariant(ctx context.Context, productID, color string, storage int, condition Condition) (*Variant, error) {
	variants, err := s.ListVariants(ctx, productID)
	if err != nil {
		return nil, err
	}
	for i := range variants {
		v := variants[i]
		if v.Color == color && v.Storage == storage && v.Condition == condition {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("variant %s/%dGB/%s of product %s: %w", color, storage, condition, productID, apperr.ErrNotFound)
}

// ---- helpers ----

func indexOfProduct(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func slugTaken(products []Product, slug, exceptID string) bool {
	for _, p := range products {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func applyProductUpdate(p *Product, u ProductUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.BasePrice != nil {
		p.BasePrice = *u.BasePrice
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.Images != nil {
		p.Images = u.Images
	}
}

func applyVariantUpdate(v *Variant, u VariantUpdate) {
	if u.Color != nil {
		v.Color = *u.Color
	}
	if u.Storage != nil {
		v.Storage = *u.Storage
	}
	if u.Condition != nil {
		v.Condition = *u.Condition
	}
	if u.Stock != nil {
		v.Stock = *u.Stock
	}
	if u.PriceAdjust != nil {
		v.PriceAdjust = *u.PriceAdjust
	}
	if u.Image != nil {
		v.Image = *u.Image
	}
}
