package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irevive/storefront/internal/apperr"
)

// Handler exposes the catalog over HTTP.
type Handler struct {
	service *Service
	tracer  trace.Tracer
}

func NewHandler(service *Service, tracer trace.Tracer) *Handler {
	return &Handler{service: service, tracer: tracer}
}

// Register mounts the catalog routes on api.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.GET("/products/slug/:slug", h.GetProductBySlug)
	api.GET("/products/:id", h.GetProduct)
	api.PATCH("/products/:id", h.UpdateProduct)
	api.DELETE("/products/:id", h.DeleteProduct)

	api.GET("/products/:id/variants", h.ListVariants)
	api.POST("/products/:id/variants", h.CreateVariant)
	api.GET("/products/:id/variants/find", h.FindVariant)
	api.GET("/products/:id/options", h.Options)

	api.GET("/variants/:id", h.GetVariant)
	api.PATCH("/variants/:id", h.UpdateVariant)
	api.DELETE("/variants/:id", h.DeleteVariant)
}

// ProductResponse is a product with its variants, display price and the
// total stock across its variants.
type ProductResponse struct {
	Product
	DisplayPrice string    `json:"display_price"`
	Inventory    int       `json:"inventory"`
	Variants     []Variant `json:"variants"`
}

func newProductResponse(p Product, variants []Variant) ProductResponse {
	if variants == nil {
		variants = []Variant{}
	}
	return ProductResponse{
		Product:      p,
		DisplayPrice: FormatPrice(p.BasePrice, p.Currency),
		Inventory:    TotalStock(variants),
		Variants:     variants,
	}
}

// ListProducts answers GET /products?category=&q=.
func (h *Handler) ListProducts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.list_products")
	defer span.End()

	filter := ProductFilter{Category: c.Query("category"), Query: c.Query("q")}
	span.SetAttributes(attribute.String("category", filter.Category), attribute.String("query", filter.Query))

	products, err := h.service.SearchProducts(ctx, filter)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	variants, err := h.service.VariantsByProduct(ctx)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p, variants[p.ID]))
	}
	span.SetAttributes(attribute.Int("products", len(out)))
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.create_product")
	defer span.End()

	var p Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateProduct(ctx, p)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	span.SetAttributes(attribute.String("product_id", created.ID))
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.get_product")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product_id", id))

	p, err := h.service.GetProduct(ctx, id)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	variants, err := h.service.ListVariants(ctx, id)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, newProductResponse(*p, variants))
}

func (h *Handler) GetProductBySlug(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.get_product_by_slug")
	defer span.End()

	p, err := h.service.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.update_product")
	defer span.End()

	var update ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.UpdateProduct(ctx, c.Param("id"), update)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.delete_product")
	defer span.End()

	if err := h.service.DeleteProduct(ctx, c.Param("id")); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *Handler) ListVariants(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.list_variants")
	defer span.End()

	var (
		variants []Variant
		err      error
	)
	if c.Query("available") == "true" {
		variants, err = h.service.AvailableVariants(ctx, c.Param("id"))
	} else {
		variants, err = h.service.ListVariants(ctx, c.Param("id"))
	}
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variants})
}

func (h *Handler) CreateVariant(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.create_variant")
	defer span.End()

	var v Variant
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateVariant(ctx, c.Param("id"), v)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Options answers the selection cascade: colors, then storages for a color,
// then conditions for a color and storage.
func (h *Handler) Options(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.options")
	defer span.End()

	productID := c.Param("id")
	color := c.Query("color")
	storageParam := c.Query("storage")

	switch {
	case color == "":
		colors, err := h.service.AvailableColors(ctx, productID)
		if err != nil {
			apperr.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"colors": colors})
	case storageParam == "":
		storages, err := h.service.AvailableStorages(ctx, productID, color)
		if err != nil {
			apperr.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"storages": storages})
	default:
		storage, err := strconv.Atoi(storageParam)
		if err != nil {
			apperr.Respond(c, span, fmt.Errorf("storage %q: %w", storageParam, apperr.ErrInvalidArgument))
			return
		}
		conditions, err := h.service.AvailableConditions(ctx, productID, color, storage)
		if err != nil {
			apperr.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conditions": conditions})
	}
}

func (h *Handler) FindVariant(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.find_variant")
	defer span.End()

	storage, err := strconv.Atoi(c.Query("storage"))
	if err != nil {
		apperr.Respond(c, span, fmt.Errorf("storage %q: %w", c.Query("storage"), apperr.ErrInvalidArgument))
		return
	}

	v, err := h.service.FindVariant(ctx, c.Param("id"), c.Query("color"), storage, Condition(c.Query("condition")))
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVariant(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.get_variant")
	defer span.End()

	v, err := h.service.GetVariant(ctx, c.Param("id"))
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateVariant(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.update_variant")
	defer span.End()

	var update VariantUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.service.UpdateVariant(ctx, c.Param("id"), update)
	if err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVariant(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "catalog.delete_variant")
	defer span.End()

	if err := h.service.DeleteVariant(ctx, c.Param("id")); err != nil {
		apperr.Respond(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "variant deleted"})
}
