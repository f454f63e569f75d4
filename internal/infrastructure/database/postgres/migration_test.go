// internal/infrastructure/database/postgres/migration_test.go
package postgres_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/infrastructure/database/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestSeededStockMatchesLedger(t *testing.T) {
	db := testDB(t)
	m := postgres.NewMigration(db)
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	var variants []catalog.ProductVariant
	require.NoError(t, db.Find(&variants).Error)
	require.NotEmpty(t, variants)

	// on-hand must equal the movement sum for every seeded variant
	for _, variant := range variants {
		var sum int64
		require.NoError(t, db.Model(&inventory.StockMovement{}).
			Where("variant_id = ?", variant.ID).
			Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error)
		assert.Equal(t, variant.StockQuantity, int(sum), variant.SKU)
	}
}

func TestSeedInitialDataIdempotent(t *testing.T) {
	db := testDB(t)
	m := postgres.NewMigration(db)
	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.SeedInitialData())

	var movementsBefore int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).Count(&movementsBefore).Error)

	require.NoError(t, m.SeedInitialData())

	var movementsAfter int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).Count(&movementsAfter).Error)
	assert.Equal(t, movementsBefore, movementsAfter)
}
