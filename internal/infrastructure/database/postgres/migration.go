// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/fashion-store-backend/internal/domain/cart"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/domain/user"
	"github.com/your-org/fashion-store-backend/internal/domain/wishlist"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&catalog.Color{},
		&catalog.Size{},
		&catalog.Product{},
		&catalog.ProductVariant{},

		&inventory.StockMovement{},
		&inventory.StockAlert{},

		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderAddress{},
		&order.PaymentTransaction{},
		&order.OrderStatusHistory{},

		&wishlist.WishlistItem{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		// Catalog indexes
		"CREATE INDEX IF NOT EXISTS idx_products_slug ON products(slug)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_sku ON product_variants(sku)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product ON product_variants(product_id, is_available)",

		// Reservation aggregate: pending unpaid orders joined against their items
		"CREATE INDEX IF NOT EXISTS idx_orders_status_payment ON orders(status, payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_variant ON order_items(product_variant_id)",

		// Order lookups
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Ledger queries
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_variant_created ON stock_movements(variant_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_order ON stock_movements(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_alerts_open ON stock_alerts(variant_id, alert_type, is_resolved)",

		// Payment correlation for webhooks
		"CREATE INDEX IF NOT EXISTS idx_payment_transactions_ref ON payment_transactions(provider_ref)",
		"CREATE INDEX IF NOT EXISTS idx_payment_transactions_order ON payment_transactions(order_id, created_at DESC)",

		// Cart cleanup
		"CREATE INDEX IF NOT EXISTS idx_cart_items_updated_at ON cart_items(updated_at)",

		// Address book
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_type ON addresses(user_id, type)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedCatalogAttributes(); err != nil {
		return fmt.Errorf("failed to seed catalog attributes: %w", err)
	}
	if err := m.seedDemoProducts(); err != nil {
		return fmt.Errorf("failed to seed demo products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:     "admin@example.com",
		Password:  string(hashedPassword),
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}

	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Println("✅ Created admin user: admin@example.com")
	return nil
}

func (m *Migration) seedCatalogAttributes() error {
	colors := []catalog.Color{
		{Name: "Black", HexCode: "#000000"},
		{Name: "White", HexCode: "#FFFFFF"},
		{Name: "Navy", HexCode: "#1F2A44"},
		{Name: "Olive", HexCode: "#6B7C32"},
	}
	for _, color := range colors {
		var existing catalog.Color
		if err := m.db.Where("name = ?", color.Name).First(&existing).Error; err != nil {
			if err := m.db.Create(&color).Error; err != nil {
				return err
			}
		}
	}

	sizes := []catalog.Size{
		{Name: "XS", SortOrder: 1},
		{Name: "S", SortOrder: 2},
		{Name: "M", SortOrder: 3},
		{Name: "L", SortOrder: 4},
		{Name: "XL", SortOrder: 5},
	}
	for _, size := range sizes {
		var existing catalog.Size
		if err := m.db.Where("name = ?", size.Name).First(&existing).Error; err != nil {
			if err := m.db.Create(&size).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Migration) seedDemoProducts() error {
	var productCount int64
	m.db.Model(&catalog.Product{}).Count(&productCount)
	if productCount > 0 {
		return nil
	}

	var black catalog.Color
	var sizeM, sizeL catalog.Size
	if err := m.db.Where("name = ?", "Black").First(&black).Error; err != nil {
		return err
	}
	if err := m.db.Where("name = ?", "M").First(&sizeM).Error; err != nil {
		return err
	}
	if err := m.db.Where("name = ?", "L").First(&sizeL).Error; err != nil {
		return err
	}

	product := catalog.Product{
		SKU:          "MCS-001",
		Name:         "Merino Crew Sweater",
		Slug:         "merino-crew-sweater",
		Description:  "Fine-gauge merino wool sweater with a classic crew neck.",
		RegularPrice: 8995,
		IsActive:     true,
		IsFeatured:   true,
	}
	if err := m.db.Create(&product).Error; err != nil {
		return err
	}

	variants := []catalog.ProductVariant{
		{
			ProductID:         product.ID,
			ColorID:           black.ID,
			SizeID:            sizeM.ID,
			SKU:               "MCS-BLK-M",
			StockQuantity:     20,
			LowStockThreshold: 5,
			IsAvailable:       true,
		},
		{
			ProductID:         product.ID,
			ColorID:           black.ID,
			SizeID:            sizeL.ID,
			SKU:               "MCS-BLK-L",
			StockQuantity:     12,
			LowStockThreshold: 5,
			IsAvailable:       true,
		},
	}
	for _, variant := range variants {
		if err := m.db.Create(&variant).Error; err != nil {
			return err
		}

		// opening stock is a ledger movement, so on-hand stays equal to the
		// movement sum from the first row on
		opening := inventory.StockMovement{
			VariantID:     variant.ID,
			MovementType:  inventory.MovementTypeIn,
			Quantity:      variant.StockQuantity,
			NewQuantity:   variant.StockQuantity,
			ReferenceType: inventory.ReferenceRestock,
			Notes:         "opening stock",
		}
		if err := m.db.Create(&opening).Error; err != nil {
			return err
		}
	}

	log.Println("✅ Seeded demo catalog")
	return nil
}
