package cart

import "github.com/irevive/storefront/internal/catalog"

// LineItem pairs a product and variant snapshot with a quantity.
type LineItem struct {
	Product  catalog.Product `json:"product"`
	Variant  catalog.Variant `json:"variant"`
	Quantity int             `json:"quantity"`
}

// UnitPrice is the effective price of one unit, in minor units.
func (l LineItem) UnitPrice() int64 {
	return catalog.EffectivePrice(l.Product, l.Variant)
}

// Subtotal is UnitPrice times Quantity.
func (l LineItem) Subtotal() int64 {
	return l.UnitPrice() * int64(l.Quantity)
}

func (l LineItem) matches(productID, variantID string) bool {
	return l.Product.ID == productID && l.Variant.ID == variantID
}

// Cart is the persisted aggregate. Totals are never stored; use TotalItems
// and TotalPrice. Every line shares one currency, enforced by AddItem.
type Cart struct {
	Items []LineItem `json:"items"`
}

// TotalItems is the sum of line quantities.
func TotalItems(c Cart) int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of effective price times quantity, in minor units.
func TotalPrice(c Cart) int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// Currency returns the currency of the cart's lines, or the catalog default
// for an empty cart.
func Currency(c Cart) string {
	if len(c.Items) == 0 {
		return catalog.DefaultCurrency
	}
	return productCurrency(c.Items[0].Product)
}

func productCurrency(p catalog.Product) string {
	if p.Currency == "" {
		return catalog.DefaultCurrency
	}
	return p.Currency
}

func (c Cart) clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

func (c Cart) indexOf(productID, variantID string) int {
	for i, item := range c.Items {
		if item.matches(productID, variantID) {
			return i
		}
	}
	return -1
}
