package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/irevive/storefront/internal/apperr"
)

// Condition is the refurbishment grade of a variant.
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionLikeNew   Condition = "Like New"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionLikeNew:
		return true
	}
	return false
}

// Product represents a phone model in the catalog.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	BasePrice   int64     `json:"base_price"`
	Currency    string    `json:"currency"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is one purchasable SKU of a product.
type Variant struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	Color       string    `json:"color"`
	Storage     int       `json:"storage"`
	Condition   Condition `json:"condition"`
	Stock       int       `json:"stock"`
	Sold        int       `json:"sold"`
	PriceAdjust int64     `json:"price_adjust"`
	Image       string    `json:"image,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductUpdate holds the editable product fields; nil means unchanged.
type ProductUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Slug        *string  `json:"slug,omitempty"`
	Description *string  `json:"description,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Category    *string  `json:"category,omitempty"`
	BasePrice   *int64   `json:"base_price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// VariantUpdate holds the editable variant fields; nil means unchanged.
type VariantUpdate struct {
	Color       *string    `json:"color,omitempty"`
	Storage     *int       `json:"storage,omitempty"`
	Condition   *Condition `json:"condition,omitempty"`
	Stock       *int       `json:"stock,omitempty"`
	PriceAdjust *int64     `json:"price_adjust,omitempty"`
	Image       *string    `json:"image,omitempty"`
}

// ProductFilter narrows a product listing. Category matches exactly, ignoring
// case; Query matches a substring of the title, description or brand,
// ignoring case. Empty fields match everything.
type ProductFilter struct {
	Category string
	Query    string
}

func (f ProductFilter) matches(p Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Brand), q)
	}
	return true
}

// TotalStock sums the stock of variants.
func TotalStock(variants []Variant) int {
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}

// EffectivePrice is the unit price of a variant in minor units.
func EffectivePrice(p Product, v Variant) int64 {
	return p.BasePrice + v.PriceAdjust
}

func (p Product) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required: %w", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Slug) == "" {
		return fmt.Errorf("slug is required: %w", apperr.ErrInvalidArgument)
	}
	if p.BasePrice < 0 {
		return fmt.Errorf("base price cannot be negative: %w", apperr.ErrInvalidArgument)
	}
	return nil
}

func (v Variant) validate() error {
	if strings.TrimSpace(v.Color) == "" {
		return fmt.Errorf("color is required: %w", apperr.ErrInvalidArgument)
	}
	if v.Storage <= 0 {
		return fmt.Errorf("storage must be positive: %w", apperr.ErrInvalidArgument)
	}
	if !v.Condition.Valid() {
		return fmt.Errorf("unknown condition %q: %w", v.Condition, apperr.ErrInvalidArgument)
	}
	if v.Stock < 0 {
		return fmt.Errorf("stock cannot be negative: %w", apperr.ErrInvalidArgument)
	}
	return nil
}

func (v Variant) sameOptions(other Variant) bool {
	return v.Color == other.Color && v.Storage == other.Storage && v.Condition == other.Condition
}
