// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/handlers"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/middleware"
)

// Handlers bundles the constructed handlers for route registration.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Product   *handlers.ProductHandler
	Cart      *handlers.CartHandler
	Checkout  *handlers.CheckoutHandler
	Order     *handlers.OrderHandler
	Inventory *handlers.InventoryHandler
	Wishlist  *handlers.WishlistHandler
}

// SetupRoutes registers all API routes on the given group.
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	setupAuthRoutes(rg, h, cfg)
	setupCatalogRoutes(rg, h, cfg)
	setupCartRoutes(rg, h, cfg)
	setupCheckoutRoutes(rg, h, cfg)
	setupOrderRoutes(rg, h, cfg)
	setupWishlistRoutes(rg, h, cfg)
	setupWebhookRoutes(rg, h)
	setupAdminRoutes(rg, h, cfg)
}

func setupAuthRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", h.Auth.GetProfile)
			protected.PUT("/profile", h.Auth.UpdateProfile)
			protected.POST("/change-password", h.Auth.ChangePassword)
			protected.DELETE("/account", h.Auth.EraseAccount)

			protected.GET("/addresses", h.Auth.ListAddresses)
			protected.POST("/addresses", h.Auth.SaveAddress)
			protected.DELETE("/addresses/:id", h.Auth.DeleteAddress)
		}
	}
}

func setupCatalogRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:slug", h.Product.GetProductBySlug)
	}

	variants := rg.Group("/variants")
	{
		variants.GET("/:id", h.Product.GetVariant)
		variants.GET("/:id/availability", h.Inventory.CheckAvailability)
	}
}

func setupCartRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", h.Cart.GetCart)
		cart.GET("/count", h.Cart.GetCartCount)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:variant_id", h.Cart.UpdateItem)
		cart.DELETE("/items/:variant_id", h.Cart.RemoveItem)
		cart.DELETE("", h.Cart.ClearCart)

		merge := cart.Group("")
		merge.Use(middleware.AuthMiddleware(cfg))
		merge.POST("/merge", h.Cart.MergeGuestCart)
	}
}

func setupCheckoutRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	// guests check out too; identity comes from the session cookie
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		checkout.GET("/shipping-methods", h.Checkout.GetShippingMethods)
		checkout.GET("/summary", h.Checkout.GetSummary)
		checkout.POST("", h.Checkout.PlaceOrder)
		checkout.POST("/confirm", h.Checkout.ConfirmPayment)
	}
}

func setupOrderRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", h.Order.ListMyOrders)
		orders.GET("/:id", h.Order.GetMyOrder)
		orders.POST("/:id/cancel", h.Order.CancelMyOrder)
	}
}

func setupWishlistRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	wishlist := rg.Group("/wishlist")
	wishlist.Use(middleware.AuthMiddleware(cfg))
	{
		wishlist.GET("", h.Wishlist.GetWishlist)
		wishlist.POST("/items", h.Wishlist.AddToWishlist)
		wishlist.DELETE("/items/:variant_id", h.Wishlist.RemoveFromWishlist)
		wishlist.DELETE("", h.Wishlist.ClearWishlist)
	}
}

func setupWebhookRoutes(rg *gin.RouterGroup, h *Handlers) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", h.Checkout.StripeWebhook)
	}
}

func setupAdminRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		orders := admin.Group("/orders")
		{
			orders.GET("", h.Order.ListOrders)
			orders.GET("/:id", h.Order.GetOrder)
			orders.POST("/:id/mark-paid", h.Order.MarkPaid)
			orders.POST("/:id/ship", h.Order.MarkShipped)
			orders.POST("/:id/deliver", h.Order.MarkDelivered)
			orders.POST("/:id/cancel", h.Order.CancelOrder)
			orders.POST("/:id/refund", h.Order.RefundOrder)
		}

		inventory := admin.Group("/inventory")
		{
			inventory.POST("/adjust", h.Inventory.AdjustStock)
			inventory.POST("/restock", h.Inventory.AddStock)
			inventory.PUT("/:variant_id", h.Inventory.SetStock)
			inventory.GET("/:variant_id/movements", h.Inventory.GetMovements)
			inventory.GET("/:variant_id/reconcile", h.Inventory.Reconcile)
			inventory.GET("/low-stock", h.Inventory.GetLowStock)
			inventory.GET("/out-of-stock", h.Inventory.GetOutOfStock)
		}
	}
}
