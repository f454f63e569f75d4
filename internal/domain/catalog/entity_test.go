// internal/domain/catalog/entity_test.go
package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCurrentPrice(t *testing.T) {
	p := Product{RegularPrice: 4999}
	assert.Equal(t, int64(4999), p.CurrentPrice())
	assert.False(t, p.IsOnSale())

	p.SalePrice = int64Ptr(2999)
	assert.Equal(t, int64(2999), p.CurrentPrice())
	assert.True(t, p.IsOnSale())

	// zero sale price means no sale
	p.SalePrice = int64Ptr(0)
	assert.Equal(t, int64(4999), p.CurrentPrice())
	assert.False(t, p.IsOnSale())
}

func TestCanBePurchased(t *testing.T) {
	v := ProductVariant{
		StockQuantity: 5,
		IsAvailable:   true,
		Product:       &Product{IsActive: true},
	}

	assert.True(t, v.CanBePurchased(5))
	assert.False(t, v.CanBePurchased(6))
	assert.False(t, v.CanBePurchased(0))

	v.IsAvailable = false
	assert.False(t, v.CanBePurchased(1))

	v.IsAvailable = true
	v.Product.IsActive = false
	assert.False(t, v.CanBePurchased(1))
}

func TestDisplayName(t *testing.T) {
	v := ProductVariant{
		SKU:     "TS-RED-M",
		Product: &Product{Name: "Basic Tee"},
		Color:   &Color{Name: "Red"},
		Size:    &Size{Name: "M"},
	}
	assert.Equal(t, "Basic Tee - Red / M", v.DisplayName())

	bare := ProductVariant{SKU: "TS-RED-M"}
	assert.Equal(t, "TS-RED-M", bare.DisplayName())
}
