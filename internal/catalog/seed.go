package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type seedProduct struct {
	id, title, slug, description string
	basePrice                    int64
	images                       []string
}

type seedVariant struct {
	id, productID, color string
	storage              int
	condition            Condition
	stock                int
	priceAdjust          int64
	image                string
}

var defaultProducts = []seedProduct{
	{"1", "iPhone 8", "iphone-8", "Refurbished iPhone 8 with excellent condition and Home button", 420000,
		[]string{"/assets/iPhone8 Black.jpg", "/assets/iPhone8 White.jpg", "/assets/iPhone8 Red.jpg"}},
	{"2", "iPhone 11", "iphone-11", "Refurbished iPhone 11 with dual camera system and Liquid Retina display", 550000,
		[]string{"/assets/iPhone 11 2.jpg", "/assets/iPhone 11 3.jpg", "/assets/iPhone 11 white.jpg"}},
	{"3", "iPhone 11 Pro", "iphone-11-pro", "Refurbished iPhone 11 Pro with triple camera and ProMotion display", 650000,
		[]string{"/assets/iPhone 11 Pro 2.jpg"}},
	{"4", "iPhone 12", "iphone-12", "Refurbished iPhone 12 with 5G and Ceramic Shield", 700000,
		[]string{"/assets/iPhone 12.jpg"}},
	{"5", "iPhone 12 mini", "iphone-12-mini", "Refurbished iPhone 12 mini - compact powerhouse", 650000,
		[]string{"/assets/iPhone 12 mini.jpg"}},
	{"6", "iPhone 13", "iphone-13", "Refurbished iPhone 13 with improved battery and camera", 800000,
		[]string{"/assets/iPhone 13.jpg"}},
	{"7", "iPhone 13 Pro", "iphone-13-pro", "Refurbished iPhone 13 Pro with ProMotion and ProCamera", 900000,
		[]string{"/assets/iPhone 13 Pro.jpg"}},
	{"8", "iPhone 14 Plus", "iphone-14-plus", "Refurbished iPhone 14 Plus with larger display", 950000,
		[]string{"/assets/iPhone 14 plus.jpg"}},
	{"9", "iPhone 15 Series", "iphone-15-series", "Refurbished iPhone 15 with latest A17 processor", 1100000,
		[]string{"/assets/iPhone 15.jpg"}},
}

var defaultVariants = []seedVariant{
	{"1-1", "1", "Black", 64, ConditionExcellent, 3, 0, "/assets/iPhone8 Black.jpg"},
	{"1-2", "1", "White", 64, ConditionGood, 2, -20000, "/assets/iPhone8 White.jpg"},
	{"1-3", "1", "Red", 256, ConditionExcellent, 1, 30000, "/assets/iPhone8 Red.jpg"},

	{"2-1", "2", "Black", 64, ConditionExcellent, 4, 0, "/assets/iPhone 11 2.jpg"},
	{"2-2", "2", "White", 128, ConditionGood, 3, 20000, "/assets/iPhone 11 white.jpg"},
	{"2-3", "2", "Purple", 256, ConditionLikeNew, 2, 50000, "/assets/iPhone 11 3.jpg"},

	{"3-1", "3", "Space Gray", 64, ConditionExcellent, 0, 0, "/assets/iPhone 11 Pro 2.jpg"},
	{"3-2", "3", "Silver", 256, ConditionLikeNew, 2, 50000, "/assets/iPhone 11 Pro 2.jpg"},
	{"3-3", "3", "Gold", 512, ConditionExcellent, 1, 80000, "/assets/iPhone 11 Pro 2.jpg"},

	{"4-1", "4", "Black", 64, ConditionExcellent, 3, 0, "/assets/iPhone 12.jpg"},
	{"4-2", "4", "Blue", 128, ConditionGood, 2, 20000, "/assets/iPhone 12.jpg"},
	{"4-3", "4", "Green", 256, ConditionLikeNew, 1, 50000, "/assets/iPhone 12.jpg"},

	{"5-1", "5", "Black", 64, ConditionGood, 2, 0, "/assets/iPhone 12 mini.jpg"},
	{"5-2", "5", "White", 128, ConditionExcellent, 3, 20000, "/assets/iPhone 12 mini.jpg"},
	{"5-3", "5", "Red", 256, ConditionLikeNew, 0, 50000, "/assets/iPhone 12 mini.jpg"},

	{"6-1", "6", "Midnight", 128, ConditionExcellent, 4, 0, "/assets/iPhone 13.jpg"},
	{"6-2", "6", "Starlight", 256, ConditionGood, 2, 20000, "/assets/iPhone 13.jpg"},
	{"6-3", "6", "Pink", 512, ConditionLikeNew, 1, 50000, "/assets/iPhone 13.jpg"},

	{"7-1", "7", "Graphite", 128, ConditionExcellent, 2, 0, "/assets/iPhone 13 Pro.jpg"},
	{"7-2", "7", "Gold", 256, ConditionLikeNew, 2, 30000, "/assets/iPhone 13 Pro.jpg"},
	{"7-3", "7", "Sierra Blue", 512, ConditionExcellent, 0, 60000, "/assets/iPhone 13 Pro.jpg"},

	{"8-1", "8", "Midnight", 128, ConditionGood, 1, 0, "/assets/iPhone 14 plus.jpg"},
	{"8-2", "8", "Purple", 256, ConditionExcellent, 2, 20000, "/assets/iPhone 14 plus.jpg"},
	{"8-3", "8", "Yellow", 512, ConditionLikeNew, 1, 50000, "/assets/iPhone 14 plus.jpg"},

	{"9-1", "9", "Black", 128, ConditionExcellent, 3, 0, "/assets/iPhone 15.jpg"},
	{"9-2", "9", "White", 256, ConditionGood, 2, 30000, "/assets/iPhone 15.jpg"},
	{"9-3", "9", "Blue", 512, ConditionLikeNew, 1, 60000, "/assets/iPhone 15.jpg"},
}

// Seed writes the default catalog when no products are stored yet. It
// reports whether anything was written.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	now := s.now().UTC().Truncate(time.Second)
	seeded := false

	err := s.repository.UpdateProducts(ctx, func(products []Product) ([]Product, error) {
		if len(products) > 0 {
			return products, nil
		}
		for _, sp := range defaultProducts {
			products = append(products, Product{
				ID:          sp.id,
				Title:       sp.title,
				Slug:        sp.slug,
				Description: sp.description,
				Brand:       "Apple",
				Category:    "Smartphones",
				BasePrice:   sp.basePrice,
				Currency:    DefaultCurrency,
				Images:      sp.images,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		seeded = true
		return products, nil
	})
	if err != nil || !seeded {
		return false, err
	}

	err = s.repository.UpdateVariants(ctx, func(variants map[string]Variant) error {
		for _, sv := range defaultVariants {
			variants[sv.id] = Variant{
				ID:          sv.id,
				ProductID:   sv.productID,
				Color:       sv.color,
				Storage:     sv.storage,
				Condition:   sv.condition,
				Stock:       sv.stock,
				PriceAdjust: sv.priceAdjust,
				Image:       sv.image,
				UpdatedAt:   now,
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	zap.L().Info("🌱 catalog seeded",
		zap.Int("products", len(defaultProducts)),
		zap.Int("variants", len(defaultVariants)))
	return true, nil
}
