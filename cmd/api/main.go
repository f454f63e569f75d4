// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/cart"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/checkout"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/domain/user"
	"github.com/your-org/fashion-store-backend/internal/domain/wishlist"
	"github.com/your-org/fashion-store-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/fashion-store-backend/internal/infrastructure/database/redis"
	httpserver "github.com/your-org/fashion-store-backend/internal/interfaces/http"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/handlers"
	"github.com/your-org/fashion-store-backend/internal/interfaces/http/routes"
	"github.com/your-org/fashion-store-backend/internal/pkg/email"
	"github.com/your-org/fashion-store-backend/internal/pkg/logging"
	"github.com/your-org/fashion-store-backend/internal/pkg/payment"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	logger := logging.New(cfg)

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer postgres.Close(db)

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := postgres.Health(db); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}

	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	// Run database migrations
	migration := postgres.NewMigration(db)

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Printf("Warning: Index creation failed: %v", err)
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.Printf("Warning: Data seeding failed: %v", err)
		}
	}

	// Domain services, in dependency order
	catalogService := catalog.NewService(db, cfg)
	inventoryService := inventory.NewService(db, cfg, logger)
	orderService := order.NewService(db, cfg, logger, inventoryService)

	cartStore := cart.NewStore(db, redisClient.GetClient(), cfg.Checkout.GuestCartTTL)
	cartService := cart.NewService(db, cartStore, inventoryService, cfg, logger)

	emailService := email.NewEmailService(cfg, logger)
	stripeGateway := payment.NewStripeGateway(cfg)

	checkoutService := checkout.NewService(db, cfg, logger, cartService, inventoryService, orderService, stripeGateway, emailService)
	wishlistService := wishlist.NewService(db, logger, emailService)
	userService := user.NewService(db, cfg, logger, orderService, cartService, wishlistService)

	// Wishlist subscribers get notified when a variant comes back in stock
	inventoryService.Subscribe(wishlistService)

	h := &routes.Handlers{
		Auth:      handlers.NewAuthHandler(userService, cartService, cfg),
		Product:   handlers.NewProductHandler(catalogService, inventoryService, cfg),
		Cart:      handlers.NewCartHandler(cartService, cfg),
		Checkout:  handlers.NewCheckoutHandler(checkoutService, orderService, cfg, logger),
		Order:     handlers.NewOrderHandler(orderService, cfg),
		Inventory: handlers.NewInventoryHandler(inventoryService, cfg),
		Wishlist:  handlers.NewWishlistHandler(wishlistService, cfg),
	}

	log.Println("✅ All systems operational!")

	// Background maintenance loops
	stopBackground := make(chan struct{})
	go runExpiredOrderSweeper(orderService, stopBackground)
	go runStaleCartPurger(cartService, stopBackground)

	// Create and start HTTP server
	server := httpserver.NewServer(cfg, db, redisClient.GetClient(), h)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("👋 Shutting down gracefully...")
	close(stopBackground)

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("✅ Server shutdown completed")
}

// runExpiredOrderSweeper cancels pending unpaid orders that outlived their TTL,
// releasing the stock they reserve.
func runExpiredOrderSweeper(orderService *order.Service, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := orderService.SweepExpiredOrders(); err != nil {
				log.Printf("Warning: expired order sweep failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}

// runStaleCartPurger drops user cart rows that have not been touched for the
// guest cart TTL. Guest carts expire on their own via Redis.
func runStaleCartPurger(cartService *cart.Service, stop <-chan struct{}) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := cartService.PurgeStaleUserCarts(); err != nil {
				log.Printf("Warning: stale cart purge failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}
