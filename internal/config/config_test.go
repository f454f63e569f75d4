// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.Checkout.Currency)
	assert.InDelta(t, 0.19, cfg.Checkout.TaxRate, 1e-9)
	assert.Equal(t, "ZF-", cfg.Checkout.OrderNumberPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Checkout.PendingOrderTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Checkout.GuestCartTTL)
	assert.Equal(t, 10, cfg.Checkout.MaxItemQuantity)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CHECKOUT_TAX_RATE", "0.07")
	t.Setenv("CHECKOUT_ORDER_PREFIX", "XX-")
	t.Setenv("CHECKOUT_PENDING_ORDER_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.07, cfg.Checkout.TaxRate, 1e-9)
	assert.Equal(t, "XX-", cfg.Checkout.OrderNumberPrefix)
	assert.Equal(t, time.Hour, cfg.Checkout.PendingOrderTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CHECKOUT_TAX_RATE", "1.5")
	_, err = Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Name = "store"
	cfg.Database.SSLMode = "disable"

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=store sslmode=disable", cfg.GetDatabaseDSN())
}
