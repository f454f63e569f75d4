// internal/domain/inventory/service_test.go
package inventory_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:          "EUR",
			TaxRate:           0.19,
			OrderNumberPrefix: "ZF-",
			PendingOrderTTL:   24 * time.Hour,
			GuestCartTTL:      7 * 24 * time.Hour,
			MaxItemQuantity:   10,
		},
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&catalog.Color{}, &catalog.Size{}, &catalog.Product{}, &catalog.ProductVariant{},
		&inventory.StockMovement{}, &inventory.StockAlert{},
		&order.Order{}, &order.OrderItem{},
	))
	return db
}

func newService(t *testing.T) (*inventory.Service, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	return inventory.NewService(db, testConfig(), logging.NewNop()), db
}

var seedSeq int

func seedVariant(t *testing.T, db *gorm.DB, stock, threshold int) *catalog.ProductVariant {
	t.Helper()
	seedSeq++
	tag := fmt.Sprintf("%s-%d", t.Name(), seedSeq)

	color := catalog.Color{Name: "Black " + tag}
	size := catalog.Size{Name: "M " + tag}
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&size).Error)

	product := catalog.Product{
		SKU:          "TS-" + tag,
		Name:         "Basic Tee",
		Slug:         "basic-tee-" + strings.ToLower(tag),
		RegularPrice: 2999,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID:         product.ID,
		ColorID:           color.ID,
		SizeID:            size.ID,
		SKU:               "TS-BLK-M-" + tag,
		StockQuantity:     stock,
		LowStockThreshold: threshold,
		IsAvailable:       stock > 0,
	}
	require.NoError(t, db.Create(&variant).Error)

	// opening stock goes through the ledger so on-hand equals the movement sum
	if stock > 0 {
		require.NoError(t, db.Create(&inventory.StockMovement{
			VariantID:     variant.ID,
			MovementType:  inventory.MovementTypeIn,
			Quantity:      stock,
			NewQuantity:   stock,
			ReferenceType: inventory.ReferenceRestock,
			Notes:         "opening stock",
		}).Error)
	}
	return &variant
}

// recorder collects dispatched signals for assertions.
type recorder struct {
	signals []inventory.Signal
}

func (r *recorder) Notify(signal inventory.Signal) {
	r.signals = append(r.signals, signal)
}

func TestAddStockRecordsMovement(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 0, 5)

	movement, err := svc.AddStock(variant.ID, 10, nil, "initial delivery")
	require.NoError(t, err)

	assert.Equal(t, inventory.MovementTypeIn, movement.MovementType)
	assert.Equal(t, 10, movement.Quantity)
	assert.Equal(t, 0, movement.PreviousQuantity)
	assert.Equal(t, 10, movement.NewQuantity)

	var reloaded catalog.ProductVariant
	require.NoError(t, db.First(&reloaded, variant.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity)
	assert.True(t, reloaded.IsAvailable)
}

func TestSeededVariantReconciles(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 7, 3)

	onHand, ledgerSum, err := svc.ReconcileVariant(variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, onHand)
	assert.Equal(t, onHand, ledgerSum)
}

func TestAdjustClampsAtZero(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 5, 5)

	movement, err := svc.Adjust(&inventory.AdjustRequest{
		VariantID:     variant.ID,
		Delta:         -8,
		ReferenceType: inventory.ReferenceManual,
	})
	require.NoError(t, err)

	// the ledger records the applied delta, not the requested one
	assert.Equal(t, -5, movement.Quantity)
	assert.Equal(t, 0, movement.NewQuantity)

	onHand, ledgerSum, err := svc.ReconcileVariant(variant.ID)
	require.NoError(t, err)
	assert.Equal(t, onHand, ledgerSum)
	assert.Equal(t, 0, onHand)
}

func TestAdjustFailOnShortfall(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 2, 5)

	_, err := svc.Adjust(&inventory.AdjustRequest{
		VariantID:       variant.ID,
		Delta:           -5,
		ReferenceType:   inventory.ReferenceOrder,
		FailOnShortfall: true,
	})
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAvailability, appErr.Code)
	require.Len(t, appErr.Issues, 1)
	assert.Equal(t, 5, appErr.Issues[0].Requested)
	assert.Equal(t, 2, appErr.Issues[0].Available)

	var reloaded catalog.ProductVariant
	require.NoError(t, db.First(&reloaded, variant.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity)

	var movements int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).
		Where("reference_type = ?", inventory.ReferenceOrder).Count(&movements).Error)
	assert.Zero(t, movements)
}

func TestAdjustRejectsZeroDelta(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 5, 5)

	_, err := svc.Adjust(&inventory.AdjustRequest{
		VariantID:     variant.ID,
		Delta:         0,
		ReferenceType: inventory.ReferenceManual,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSetStock(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 8, 5)

	movement, err := svc.SetStock(variant.ID, 3, nil, "physical count")
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementTypeAdjustment, movement.MovementType)
	assert.Equal(t, -5, movement.Quantity)
	assert.Equal(t, 3, movement.NewQuantity)

	_, err = svc.SetStock(variant.ID, 3, nil, "again")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSignals(t *testing.T) {
	svc, db := newService(t)
	rec := &recorder{}
	svc.Subscribe(rec)

	variant := seedVariant(t, db, 0, 3)

	// 0 -> 10 fires restocked
	_, err := svc.AddStock(variant.ID, 10, nil, "")
	require.NoError(t, err)
	require.Len(t, rec.signals, 1)
	assert.Equal(t, inventory.SignalRestocked, rec.signals[0].Type)

	// 10 -> 2 crosses the threshold
	rec.signals = nil
	_, err = svc.Adjust(&inventory.AdjustRequest{
		VariantID:     variant.ID,
		Delta:         -8,
		ReferenceType: inventory.ReferenceOrder,
	})
	require.NoError(t, err)
	require.Len(t, rec.signals, 1)
	assert.Equal(t, inventory.SignalLowStock, rec.signals[0].Type)
	assert.Equal(t, 2, rec.signals[0].Quantity)

	// 2 -> 0 fires out_of_stock
	rec.signals = nil
	_, err = svc.Adjust(&inventory.AdjustRequest{
		VariantID:     variant.ID,
		Delta:         -2,
		ReferenceType: inventory.ReferenceOrder,
	})
	require.NoError(t, err)
	require.Len(t, rec.signals, 1)
	assert.Equal(t, inventory.SignalOutOfStock, rec.signals[0].Type)

	// out_of_stock persisted an open alert; restocking resolves it
	var open int64
	require.NoError(t, db.Model(&inventory.StockAlert{}).Where("is_resolved = ?", false).Count(&open).Error)
	assert.Equal(t, int64(1), open)

	_, err = svc.AddStock(variant.ID, 5, nil, "")
	require.NoError(t, err)
	require.NoError(t, db.Model(&inventory.StockAlert{}).Where("is_resolved = ?", false).Count(&open).Error)
	assert.Zero(t, open)
}

func TestPendingOrderReducesAvailability(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 10, 3)

	pending := order.Order{
		OrderNumber:    "ZF-TEST-001",
		Status:         order.OrderStatusPending,
		PaymentStatus:  order.PaymentStatusPending,
		SubtotalAmount: 11996,
		TotalAmount:    11996,
		Currency:       "EUR",
		Items: []order.OrderItem{{
			ProductVariantID: variant.ID,
			ProductName:      "Basic Tee",
			SKU:              variant.SKU,
			Quantity:         4,
			UnitPrice:        2999,
			TotalPrice:       11996,
		}},
	}
	require.NoError(t, db.Create(&pending).Error)

	available, err := svc.AvailableQuantity(variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, available)

	check, err := svc.CheckAvailability(variant.ID, 7)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Equal(t, "insufficient stock", check.Reason)

	check, err = svc.CheckAvailability(variant.ID, 6)
	require.NoError(t, err)
	assert.True(t, check.OK)

	// once paid the order no longer holds a reservation
	require.NoError(t, db.Model(&order.Order{}).Where("id = ?", pending.ID).
		Update("payment_status", order.PaymentStatusPaid).Error)

	available, err = svc.AvailableQuantity(variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestCheckAvailabilityGates(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 10, 3)

	check, err := svc.CheckAvailability(variant.ID, 0)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Equal(t, "quantity must be positive", check.Reason)

	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", variant.ProductID).
		Update("is_active", false).Error)
	check, err = svc.CheckAvailability(variant.ID, 1)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Equal(t, "product not active", check.Reason)

	_, err = svc.CheckAvailability(99999, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestGetMovementsPagination(t *testing.T) {
	svc, db := newService(t)
	variant := seedVariant(t, db, 0, 3)

	for i := 0; i < 5; i++ {
		_, err := svc.AddStock(variant.ID, 1, nil, "")
		require.NoError(t, err)
	}

	page, err := svc.GetMovements(variant.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Movements, 3)

	page, err = svc.GetMovements(variant.ID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page.Movements, 2)
}

func TestLowAndOutOfStockListings(t *testing.T) {
	svc, db := newService(t)
	low := seedVariant(t, db, 2, 5)
	seedVariant(t, db, 20, 5)

	lows, err := svc.LowStockVariants()
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, low.ID, lows[0].ID)

	_, err = svc.Adjust(&inventory.AdjustRequest{
		VariantID:     low.ID,
		Delta:         -2,
		ReferenceType: inventory.ReferenceOrder,
	})
	require.NoError(t, err)

	outs, err := svc.OutOfStockVariants()
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, low.ID, outs[0].ID)

	lows, err = svc.LowStockVariants()
	require.NoError(t, err)
	assert.Empty(t, lows)
}
