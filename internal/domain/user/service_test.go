// internal/domain/user/service_test.go
package user_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/cart"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/order"
	"github.com/your-org/fashion-store-backend/internal/domain/user"
	"github.com/your-org/fashion-store-backend/internal/domain/wishlist"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/email"
	"github.com/your-org/fashion-store-backend/internal/pkg/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-that-is-long-enough-for-hs256",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost: 4, // keep hashing fast in tests
		},
		Checkout: config.CheckoutConfig{
			Currency:        "EUR",
			TaxRate:         0.19,
			GuestCartTTL:    7 * 24 * time.Hour,
			MaxItemQuantity: 10,
		},
		External: config.ExternalConfig{
			Email: config.EmailConfig{Provider: "log"},
		},
	}
}

type fixture struct {
	users  *user.Service
	carts  *cart.Service
	wishes *wishlist.Service
	orders *order.Service
	db     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&user.User{}, &user.Address{},
		&catalog.Color{}, &catalog.Size{}, &catalog.Product{}, &catalog.ProductVariant{},
		&inventory.StockMovement{}, &inventory.StockAlert{},
		&order.Order{}, &order.OrderItem{}, &order.OrderAddress{},
		&order.PaymentTransaction{}, &order.OrderStatusHistory{},
		&cart.CartItem{},
		&wishlist.WishlistItem{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testConfig()
	logger := logging.NewNop()
	inv := inventory.NewService(db, cfg, logger)
	orders := order.NewService(db, cfg, logger, inv)
	store := cart.NewStore(db, client, cfg.Checkout.GuestCartTTL)
	carts := cart.NewService(db, store, inv, cfg, logger)
	wishes := wishlist.NewService(db, logger, email.NewEmailService(cfg, logger))

	return &fixture{
		users:  user.NewService(db, cfg, logger, orders, carts, wishes),
		carts:  carts,
		wishes: wishes,
		orders: orders,
		db:     db,
	}
}

func registerRequest(emailAddr string) *user.RegisterRequest {
	return &user.RegisterRequest{
		Email:           emailAddr,
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Jane",
		LastName:        "Doe",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	resp, err := f.users.Register(registerRequest("Jane@Example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Empty(t, resp.User.Password)
	assert.Equal(t, "jane@example.com", resp.User.Email, "emails are stored lowercased")

	login, err := f.users.Login(&user.LoginRequest{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
	assert.NotNil(t, login.User.LastLoginAt)

	_, err = f.users.Login(&user.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong-password1",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(registerRequest("dup@example.com"))
	require.NoError(t, err)

	_, err = f.users.Register(registerRequest("dup@example.com"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRegisterPasswordRules(t *testing.T) {
	f := newFixture(t)

	req := registerRequest("weak@example.com")
	req.Password = "short1"
	req.ConfirmPassword = "short1"
	_, err := f.users.Register(req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	req = registerRequest("mismatch@example.com")
	req.ConfirmPassword = "different123"
	_, err = f.users.Register(req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t)

	resp, err := f.users.Register(registerRequest("refresh@example.com"))
	require.NoError(t, err)

	refreshed, err := f.users.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = f.users.RefreshToken("not-a-token")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)

	resp, err := f.users.Register(registerRequest("change@example.com"))
	require.NoError(t, err)

	err = f.users.ChangePassword(resp.User.ID, "wrong-password1", "newpassword456")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, f.users.ChangePassword(resp.User.ID, "password123", "newpassword456"))

	_, err = f.users.Login(&user.LoginRequest{Email: "change@example.com", Password: "newpassword456"})
	require.NoError(t, err)
}

func TestUpdateProfileStripsProtectedFields(t *testing.T) {
	f := newFixture(t)

	resp, err := f.users.Register(registerRequest("profile@example.com"))
	require.NoError(t, err)

	updated, err := f.users.UpdateProfile(resp.User.ID, map[string]interface{}{
		"first_name": "Janet",
		"is_admin":   true,
		"email":      "hijack@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.False(t, updated.IsAdmin)
	assert.Equal(t, "profile@example.com", updated.Email)
}

func TestAddressBook(t *testing.T) {
	f := newFixture(t)

	resp, err := f.users.Register(registerRequest("addr@example.com"))
	require.NoError(t, err)
	userID := resp.User.ID

	first := user.Address{
		Type: "shipping", AddressLine1: "Musterstr. 1", City: "Berlin",
		PostalCode: "10115", Country: "DE", IsDefault: true,
	}
	require.NoError(t, f.users.SaveAddress(userID, &first))

	second := user.Address{
		Type: "shipping", AddressLine1: "Beispielweg 2", City: "Hamburg",
		PostalCode: "20095", Country: "DE", IsDefault: true,
	}
	require.NoError(t, f.users.SaveAddress(userID, &second))

	addresses, err := f.users.ListAddresses(userID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	// only one default per type
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	require.NoError(t, f.users.DeleteAddress(userID, first.ID))
	err = f.users.DeleteAddress(userID, first.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEraseAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.users.Register(registerRequest("erase@example.com"))
	require.NoError(t, err)
	userID := resp.User.ID

	// give the account an order, a cart line, a wishlist entry and an address
	variant := seedVariant(t, f.db)
	placed := order.Order{
		OrderNumber:    "ZF-ERASE-001",
		UserID:         &userID,
		Status:         order.OrderStatusDelivered,
		PaymentStatus:  order.PaymentStatusPaid,
		SubtotalAmount: 6995,
		TotalAmount:    6995,
		Currency:       "EUR",
	}
	require.NoError(t, f.db.Create(&placed).Error)
	require.NoError(t, f.carts.AddItem(ctx, cart.Identity{UserID: &userID}, variant.ID, 1))
	_, err = f.wishes.Add(ctx, userID, variant.ID, true)
	require.NoError(t, err)
	address := user.Address{UserID: userID, AddressLine1: "Musterstr. 1", City: "Berlin", Country: "DE"}
	require.NoError(t, f.db.Create(&address).Error)

	require.NoError(t, f.users.EraseAccount(ctx, userID))

	// the order survives for accounting, detached and redacted
	reloaded, err := f.orders.GetOrder(placed.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.UserID)
	assert.Equal(t, "redacted@anonymized.invalid", reloaded.GuestEmail)
	assert.Equal(t, int64(6995), reloaded.TotalAmount)

	// cart, wishlist and address book are gone
	count, err := f.carts.ItemCount(ctx, cart.Identity{UserID: &userID})
	require.NoError(t, err)
	assert.Zero(t, count)
	wishCount, err := f.wishes.Count(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, wishCount)
	var addresses int64
	require.NoError(t, f.db.Model(&user.Address{}).Where("user_id = ?", userID).Count(&addresses).Error)
	assert.Zero(t, addresses)

	// the account itself is scrubbed, deactivated and soft-deleted
	var scrubbed user.User
	require.NoError(t, f.db.Unscoped().First(&scrubbed, userID).Error)
	assert.Equal(t, fmt.Sprintf("erased-%d@anonymized.invalid", userID), scrubbed.Email)
	assert.False(t, scrubbed.IsActive)
	assert.True(t, scrubbed.DeletedAt.Valid)

	_, err = f.users.Login(&user.LoginRequest{Email: "erase@example.com", Password: "password123"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.users.GetProfile(userID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

var seedSeq int

func seedVariant(t *testing.T, db *gorm.DB) *catalog.ProductVariant {
	t.Helper()
	seedSeq++
	tag := fmt.Sprintf("%s-%d", t.Name(), seedSeq)

	color := catalog.Color{Name: "Rust " + tag}
	size := catalog.Size{Name: "XL " + tag}
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&size).Error)

	product := catalog.Product{
		SKU:          "OC-" + tag,
		Name:         "Overshirt",
		Slug:         "overshirt-" + strings.ToLower(tag),
		RegularPrice: 6995,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID:         product.ID,
		ColorID:           color.ID,
		SizeID:            size.ID,
		SKU:               "OC-RST-XL-" + tag,
		StockQuantity:     10,
		LowStockThreshold: 5,
		IsAvailable:       true,
	}
	require.NoError(t, db.Create(&variant).Error)
	return &variant
}
