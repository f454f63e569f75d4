// internal/domain/wishlist/service_test.go
package wishlist_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/domain/user"
	"github.com/your-org/fashion-store-backend/internal/domain/wishlist"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/email"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) (*wishlist.Service, *gorm.DB, *logrustest.Hook) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&catalog.Color{}, &catalog.Size{}, &catalog.Product{}, &catalog.ProductVariant{},
		&wishlist.WishlistItem{},
	))

	log, hook := logrustest.NewNullLogger()
	cfg := &config.Config{
		External: config.ExternalConfig{
			Email: config.EmailConfig{Provider: "log"},
		},
	}
	return wishlist.NewService(db, log, email.NewEmailService(cfg, log)), db, hook
}

var seedSeq int

func seedVariant(t *testing.T, db *gorm.DB, stock int) *catalog.ProductVariant {
	t.Helper()
	seedSeq++
	tag := fmt.Sprintf("%s-%d", t.Name(), seedSeq)

	color := catalog.Color{Name: "Sage " + tag}
	size := catalog.Size{Name: "XS " + tag}
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&size).Error)

	product := catalog.Product{
		SKU:          "KC-" + tag,
		Name:         "Knit Cardigan",
		Slug:         "knit-cardigan-" + strings.ToLower(tag),
		RegularPrice: 6995,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&product).Error)

	variant := catalog.ProductVariant{
		ProductID:         product.ID,
		ColorID:           color.ID,
		SizeID:            size.ID,
		SKU:               "KC-SGE-XS-" + tag,
		StockQuantity:     stock,
		LowStockThreshold: 5,
		IsAvailable:       stock > 0,
	}
	require.NoError(t, db.Create(&variant).Error)
	return &variant
}

func seedUser(t *testing.T, db *gorm.DB, emailAddr string) *user.User {
	t.Helper()
	u := user.User{Email: emailAddr, Password: "x", IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func TestAddAndList(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 4)
	u := seedUser(t, db, "a@example.com")

	item, err := svc.Add(ctx, u.ID, variant.ID, false)
	require.NoError(t, err)
	assert.False(t, item.NotifyRestock)

	views, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsAvailable)
	assert.Equal(t, int64(6995), views[0].CurrentPrice)

	count, err := svc.Count(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAddTwiceUpgradesNotify(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 4)
	u := seedUser(t, db, "b@example.com")

	first, err := svc.Add(ctx, u.ID, variant.ID, false)
	require.NoError(t, err)

	// re-adding is not an error and can only turn the flag on
	second, err := svc.Add(ctx, u.ID, variant.ID, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.NotifyRestock)

	third, err := svc.Add(ctx, u.ID, variant.ID, false)
	require.NoError(t, err)
	assert.True(t, third.NotifyRestock)

	count, err := svc.Count(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAddInactiveProduct(t *testing.T) {
	svc, db, _ := newService(t)
	variant := seedVariant(t, db, 4)
	u := seedUser(t, db, "c@example.com")
	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", variant.ProductID).
		Update("is_active", false).Error)

	_, err := svc.Add(context.Background(), u.ID, variant.ID, false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRemove(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 4)
	u := seedUser(t, db, "d@example.com")

	_, err := svc.Add(ctx, u.ID, variant.ID, false)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, u.ID, variant.ID))

	err = svc.Remove(ctx, u.ID, variant.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListFlagsUnavailableItems(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 0)
	u := seedUser(t, db, "e@example.com")

	_, err := svc.Add(ctx, u.ID, variant.ID, true)
	require.NoError(t, err)

	views, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsAvailable)
}

func TestNotifyRestockedMailsSubscribers(t *testing.T) {
	svc, db, hook := newService(t)
	ctx := context.Background()
	variant := seedVariant(t, db, 0)

	subscriber := seedUser(t, db, "notify-me@example.com")
	bystander := seedUser(t, db, "quiet@example.com")
	_, err := svc.Add(ctx, subscriber.ID, variant.ID, true)
	require.NoError(t, err)
	_, err = svc.Add(ctx, bystander.ID, variant.ID, false)
	require.NoError(t, err)

	svc.Notify(inventory.Signal{
		Type:      inventory.SignalRestocked,
		VariantID: variant.ID,
		Quantity:  5,
	})

	var dispatched *logrus.Entry
	mails := 0
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "Back-in-stock notifications dispatched":
			dispatched = entry
		case "Email (log provider)":
			mails++
		}
	}
	require.NotNil(t, dispatched)
	assert.Equal(t, 1, dispatched.Data["recipients"])
	assert.Equal(t, 1, mails, "only the subscriber is mailed")
}

func TestNotifyIgnoresOtherSignals(t *testing.T) {
	svc, db, hook := newService(t)
	variant := seedVariant(t, db, 2)
	u := seedUser(t, db, "f@example.com")
	_, err := svc.Add(context.Background(), u.ID, variant.ID, true)
	require.NoError(t, err)

	svc.Notify(inventory.Signal{Type: inventory.SignalLowStock, VariantID: variant.ID})
	assert.Empty(t, hook.AllEntries())
}

func TestClear(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	first := seedVariant(t, db, 4)
	second := seedVariant(t, db, 4)
	u := seedUser(t, db, "g@example.com")

	_, err := svc.Add(ctx, u.ID, first.ID, false)
	require.NoError(t, err)
	_, err = svc.Add(ctx, u.ID, second.ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, u.ID))
	count, err := svc.Count(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
