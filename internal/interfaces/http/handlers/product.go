// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	catalogService   *catalog.Service
	inventoryService *inventory.Service
	config           *config.Config
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogService *catalog.Service, inventoryService *inventory.Service, cfg *config.Config) *ProductHandler {
	return &ProductHandler{
		catalogService:   catalogService,
		inventoryService: inventoryService,
		config:           cfg,
	}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req catalog.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	// Public endpoint shows active products only
	req.OnlyActive = true

	response, err := h.catalogService.ListProducts(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data":    response,
	})
}

// GetProductBySlug handles GET /products/:slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	product, err := h.catalogService.GetProductBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    product,
	})
}

// GetVariant handles GET /variants/:id - variant with live availability,
// which accounts for stock reserved by pending unpaid orders.
func (h *ProductHandler) GetVariant(c *gin.Context) {
	variantID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	variant, err := h.catalogService.GetVariant(variantID)
	if err != nil {
		respondError(c, err)
		return
	}

	available, err := h.inventoryService.AvailableQuantity(variantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Variant retrieved successfully",
		"data": gin.H{
			"variant":   variant,
			"available": available,
		},
	})
}
