// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles the admin stock surface
type InventoryHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		config:           cfg,
	}
}

// CheckAvailability handles GET /inventory/:variant_id/availability - public,
// advisory only.
func (h *InventoryHandler) CheckAvailability(c *gin.Context) {
	variantID, ok := parseUintParam(c, "variant_id")
	if !ok {
		return
	}

	quantity, _ := strconv.Atoi(c.DefaultQuery("quantity", "1"))

	result, err := h.inventoryService.CheckAvailability(variantID, quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Availability checked successfully",
		"data":    result,
	})
}

// AdjustStockRequest is the body for POST /admin/inventory/adjust
type AdjustStockRequest struct {
	VariantID uint   `json:"variant_id" binding:"required"`
	Delta     int    `json:"delta" binding:"required"`
	Notes     string `json:"notes"`
}

// AdjustStock handles POST /admin/inventory/adjust - manual correction
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	movement, err := h.inventoryService.Adjust(&inventory.AdjustRequest{
		VariantID:     req.VariantID,
		Delta:         req.Delta,
		ReferenceType: inventory.ReferenceManual,
		Notes:         req.Notes,
		ActorID:       &actorID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    movement,
	})
}

// AddStockRequest is the body for POST /admin/inventory/restock
type AddStockRequest struct {
	VariantID uint   `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Notes     string `json:"notes"`
}

// AddStock handles POST /admin/inventory/restock
func (h *InventoryHandler) AddStock(c *gin.Context) {
	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	movement, err := h.inventoryService.AddStock(req.VariantID, req.Quantity, &actorID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock added successfully",
		"data":    movement,
	})
}

// SetStockRequest is the body for PUT /admin/inventory/:variant_id
type SetStockRequest struct {
	Quantity int    `json:"quantity" binding:"min=0"`
	Notes    string `json:"notes"`
}

// SetStock handles PUT /admin/inventory/:variant_id - absolute correction
// after a physical count
func (h *InventoryHandler) SetStock(c *gin.Context) {
	variantID, ok := parseUintParam(c, "variant_id")
	if !ok {
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	movement, err := h.inventoryService.SetStock(variantID, req.Quantity, &actorID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock set successfully",
		"data":    movement,
	})
}

// GetMovements handles GET /admin/inventory/:variant_id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	variantID, ok := parseUintParam(c, "variant_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	response, err := h.inventoryService.GetMovements(variantID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movements retrieved successfully",
		"data":    response,
	})
}

// GetLowStock handles GET /admin/inventory/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	variants, err := h.inventoryService.LowStockVariants()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock variants retrieved successfully",
		"data":    variants,
	})
}

// GetOutOfStock handles GET /admin/inventory/out-of-stock
func (h *InventoryHandler) GetOutOfStock(c *gin.Context) {
	variants, err := h.inventoryService.OutOfStockVariants()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Out of stock variants retrieved successfully",
		"data":    variants,
	})
}

// Reconcile handles GET /admin/inventory/:variant_id/reconcile - compares
// on-hand against the movement ledger sum
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	variantID, ok := parseUintParam(c, "variant_id")
	if !ok {
		return
	}

	onHand, ledgerSum, err := h.inventoryService.ReconcileVariant(variantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reconciliation completed",
		"data": gin.H{
			"variant_id": variantID,
			"on_hand":    onHand,
			"ledger_sum": ledgerSum,
			"consistent": onHand == ledgerSum,
		},
	})
}
