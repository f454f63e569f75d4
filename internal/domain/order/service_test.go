// internal/domain/order/service_test.go
package order_test

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
		&order.Order{}, &order.OrderItem{}, &order.OrderAddress{},
		&order.PaymentTransaction{}, &order.OrderStatusHistory{},
	))
	return db
}

func newServices(t *testing.T) (*order.Service, *inventory.Service, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	cfg := testConfig()
	logger := logging.NewNop()
	inv := inventory.NewService(db, cfg, logger)
	return order.NewService(db, cfg, logger, inv), inv, db
}

var seedSeq int

func seedVariant(t *testing.T, db *gorm.DB, stock int) *catalog.ProductVariant {
	t.Helper()
	seedSeq++
	tag := fmt.Sprintf("%s-%d", t.Name(), seedSeq)

	color := catalog.Color{Name: "Black " + tag}
	size := catalog.Size{Name: "M " + tag}
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&size).Error)

	product := catalog.Product{
		SKU:          "MCS-" + tag,
		Name:         "Merino Sweater",
		Slug:         "merino-sweater-" + strings.ToLower(tag),
		RegularPrice: 8995,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID:         product.ID,
		ColorID:           color.ID,
		SizeID:            size.ID,
		SKU:               "MCS-BLK-M-" + tag,
		StockQuantity:     stock,
		LowStockThreshold: 5,
		IsAvailable:       stock > 0,
	}
	require.NoError(t, db.Create(&variant).Error)
	return &variant
}

func placeOrder(t *testing.T, svc *order.Service, db *gorm.DB, variant *catalog.ProductVariant, quantity int) *order.Order {
	t.Helper()

	o := &order.Order{
		Status:         order.OrderStatusPending,
		PaymentStatus:  order.PaymentStatusPending,
		PaymentMethod:  "stripe",
		SubtotalAmount: 8995 * int64(quantity),
		TotalAmount:    8995*int64(quantity) + 495,
		ShippingAmount: 495,
		Currency:       "EUR",
		Items: []order.OrderItem{{
			ProductVariantID: variant.ID,
			ProductName:      "Merino Sweater",
			SKU:              variant.SKU,
			Quantity:         quantity,
			UnitPrice:        8995,
			TotalPrice:       8995 * int64(quantity),
		}},
	}

	tx := db.Begin()
	require.NoError(t, svc.Create(tx, o))
	require.NoError(t, tx.Commit().Error)
	return o
}

func stockOf(t *testing.T, db *gorm.DB, variantID uint) int {
	t.Helper()
	var variant catalog.ProductVariant
	require.NoError(t, db.First(&variant, variantID).Error)
	return variant.StockQuantity
}

func TestOrderNumberSequence(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 50)

	first := placeOrder(t, svc, db, variant, 1)
	second := placeOrder(t, svc, db, variant, 1)

	datePart := time.Now().Format("060102")
	assert.Equal(t, "ZF-"+datePart+"-001", first.OrderNumber)
	assert.Equal(t, "ZF-"+datePart+"-002", second.OrderNumber)
}

func TestCreateRecordsHistory(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)

	o := placeOrder(t, svc, db, variant, 2)

	var history []order.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, order.OrderStatusPending, history[0].ToStatus)
}

func TestMarkPaidDecrementsOnce(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 3)

	require.NoError(t, svc.MarkPaid(o.ID, "stripe", "pi_123", nil))
	assert.Equal(t, 7, stockOf(t, db, variant.ID))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusProcessing, reloaded.Status)
	assert.True(t, reloaded.IsPaid())
	assert.NotNil(t, reloaded.PaidAt)

	// a duplicate webhook delivery must not decrement again
	require.NoError(t, svc.MarkPaid(o.ID, "stripe", "pi_123", nil))
	assert.Equal(t, 7, stockOf(t, db, variant.ID))

	var txns int64
	require.NoError(t, db.Model(&order.PaymentTransaction{}).
		Where("order_id = ? AND status = ?", o.ID, "succeeded").Count(&txns).Error)
	assert.Equal(t, int64(1), txns)
}

func TestMarkPaidShortfallAborts(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 1)
	o := placeOrder(t, svc, db, variant, 3)

	err := svc.MarkPaid(o.ID, "stripe", "pi_456", nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAvailability))

	// nothing moved, order untouched
	assert.Equal(t, 1, stockOf(t, db, variant.ID))
	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPending, reloaded.Status)
	assert.False(t, reloaded.IsPaid())
}

func TestMarkPaidCancelledOrder(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 1)

	require.NoError(t, svc.Cancel(o.ID, "changed my mind", nil))
	err := svc.MarkPaid(o.ID, "stripe", "pi_789", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeState))
}

func TestCancelPendingKeepsStock(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 4)

	require.NoError(t, svc.Cancel(o.ID, "payment timeout", nil))

	// a pending unpaid order never moved stock
	assert.Equal(t, 10, stockOf(t, db, variant.ID))

	var movements int64
	require.NoError(t, db.Model(&inventory.StockMovement{}).Count(&movements).Error)
	assert.Zero(t, movements)

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, reloaded.Status)
	assert.Equal(t, "payment timeout", reloaded.CancelledReason)
}

func TestCancelPaidRestoresStock(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 4)

	require.NoError(t, svc.MarkPaid(o.ID, "invoice", "", nil))
	assert.Equal(t, 6, stockOf(t, db, variant.ID))

	require.NoError(t, svc.Cancel(o.ID, "customer return before shipping", nil))
	assert.Equal(t, 10, stockOf(t, db, variant.ID))

	var movement inventory.StockMovement
	require.NoError(t, db.Where("reference_type = ?", inventory.ReferenceOrderCancelled).
		First(&movement).Error)
	assert.Equal(t, 4, movement.Quantity)
}

func TestFulfilmentTransitions(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 1)

	// not paid yet
	err := svc.MarkShipped(o.ID, "DHL-1234", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeState))

	require.NoError(t, svc.MarkPaid(o.ID, "stripe", "pi_1", nil))
	require.NoError(t, svc.MarkShipped(o.ID, "DHL-1234", nil))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCompleted, reloaded.Status)
	assert.Equal(t, "DHL-1234", reloaded.TrackingNumber)
	assert.NotNil(t, reloaded.ShippedAt)

	// shipped orders can no longer be cancelled
	err = svc.Cancel(o.ID, "too late", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeState))

	require.NoError(t, svc.MarkDelivered(o.ID, nil))
	reloaded, err = svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusDelivered, reloaded.Status)
}

func TestRefund(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 2) // total 18485

	err := svc.Refund(o.ID, 1000, "stripe", "re_1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeState), "unpaid orders are not refundable")

	require.NoError(t, svc.MarkPaid(o.ID, "stripe", "pi_1", nil))

	require.NoError(t, svc.Refund(o.ID, 1000, "stripe", "re_1"))
	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPartiallyRefunded, reloaded.PaymentStatus)

	// refunds can never exceed what was charged
	err = svc.Refund(o.ID, reloaded.TotalAmount, "stripe", "re_2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, svc.Refund(o.ID, reloaded.TotalAmount-1000, "stripe", "re_3"))
	reloaded, err = svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusRefunded, reloaded.PaymentStatus)

	// refunds are financial only, stock stays where settlement left it
	assert.Equal(t, 8, stockOf(t, db, variant.ID))
}

func TestSweepExpiredOrders(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)

	stale := placeOrder(t, svc, db, variant, 2)
	fresh := placeOrder(t, svc, db, variant, 1)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&order.Order{}).Where("id = ?", stale.ID).
		Update("created_at", old).Error)

	swept, err := svc.SweepExpiredOrders()
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	reloaded, err := svc.GetOrder(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, reloaded.Status)

	reloaded, err = svc.GetOrder(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPending, reloaded.Status)
}

func TestGetOrderForUser(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 1)

	userID := uint(7)
	require.NoError(t, db.Model(&order.Order{}).Where("id = ?", o.ID).
		Update("user_id", userID).Error)

	found, err := svc.GetOrderForUser(o.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, found.OrderNumber)

	// other users see a not-found, not a forbidden
	_, err = svc.GetOrderForUser(o.ID, 8)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAnonymizeUserOrders(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)
	o := placeOrder(t, svc, db, variant, 1)

	userID := uint(42)
	require.NoError(t, db.Model(&order.Order{}).Where("id = ?", o.ID).
		Updates(map[string]interface{}{"user_id": userID, "guest_email": ""}).Error)
	address := order.OrderAddress{
		OrderID:      o.ID,
		Type:         order.AddressTypeBilling,
		FirstName:    "Jane",
		LastName:     "Doe",
		AddressLine1: "Musterstr. 1",
		City:         "Berlin",
		PostalCode:   "10115",
		Country:      "DE",
	}
	require.NoError(t, db.Create(&address).Error)

	require.NoError(t, svc.AnonymizeUserOrders(userID))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.UserID)
	assert.Equal(t, "redacted@anonymized.invalid", reloaded.GuestEmail)

	var scrubbed order.OrderAddress
	require.NoError(t, db.First(&scrubbed, address.ID).Error)
	assert.Equal(t, "Redacted", scrubbed.FirstName)
	assert.Equal(t, "Redacted", scrubbed.AddressLine1)

	// the financial record is untouched
	assert.Equal(t, o.TotalAmount, reloaded.TotalAmount)
}

func TestListOrdersFilters(t *testing.T) {
	svc, _, db := newServices(t)
	variant := seedVariant(t, db, 10)

	first := placeOrder(t, svc, db, variant, 1)
	placeOrder(t, svc, db, variant, 1)
	require.NoError(t, svc.MarkPaid(first.ID, "stripe", "pi_1", nil))

	page, err := svc.ListOrders(&order.ListOrdersRequest{Status: order.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.ListOrders(&order.ListOrdersRequest{PaymentStatus: order.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, first.ID, page.Orders[0].ID)
}
