// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/cart"
	"github.com/your-org/fashion-store-backend/internal/domain/checkout"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	orderService    *order.Service
	config          *config.Config
	logger          *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, orderService *order.Service, cfg *config.Config, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		config:          cfg,
		logger:          logger,
	}
}

func (h *CheckoutHandler) identity(c *gin.Context) cart.Identity {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return cart.Identity{UserID: &userID}
	}
	sessionID, _ := c.Cookie("session_id")
	return cart.Identity{SessionID: sessionID}
}

// GetShippingMethods handles GET /checkout/shipping-methods
func (h *CheckoutHandler) GetShippingMethods(c *gin.Context) {
	summary, err := h.checkoutService.GetSummary(c.Request.Context(), h.identity(c), "")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping methods retrieved successfully",
		"data":    summary.Methods,
	})
}

// GetSummary handles GET /checkout/summary
func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	summary, err := h.checkoutService.GetSummary(c.Request.Context(), h.identity(c), c.Query("shipping_method"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary retrieved successfully",
		"data":    summary,
	})
}

// PlaceOrder handles POST /checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.checkoutService.PlaceOrder(c.Request.Context(), h.identity(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    result,
	})
}

// ConfirmPaymentRequest is the body for POST /checkout/confirm
type ConfirmPaymentRequest struct {
	OrderID         uint   `json:"order_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// ConfirmPayment handles POST /checkout/confirm - called by the storefront
// after the client-side payment flow finishes. Settlement is idempotent, so
// racing with the webhook is harmless.
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.checkoutService.ConfirmPayment(c.Request.Context(), req.OrderID, req.PaymentIntentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed successfully",
	})
}

// stripeEvent is the subset of the webhook payload we act on.
type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Metadata struct {
				OrderNumber string `json:"order_number"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// StripeWebhook handles POST /webhooks/stripe
func (h *CheckoutHandler) StripeWebhook(c *gin.Context) {
	var event stripeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid webhook payload",
		})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		// Acknowledge everything else so stripe stops retrying
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ord, err := h.orderService.GetOrderByNumber(event.Data.Object.Metadata.OrderNumber)
	if err != nil {
		h.logger.WithError(err).WithField("order_number", event.Data.Object.Metadata.OrderNumber).
			Warn("Webhook for unknown order")
		respondError(c, err)
		return
	}

	if err := h.checkoutService.ConfirmPayment(c.Request.Context(), ord.ID, event.Data.Object.ID); err != nil {
		// Payment failures are expected outcomes here, not processing errors
		h.logger.WithError(err).WithField("order_number", ord.OrderNumber).
			Info("Webhook processed without settlement")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
