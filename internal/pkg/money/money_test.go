// internal/pkg/money/money_test.go
package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTax(t *testing.T) {
	// 100.00 gross at 19% VAT contains 15.97 tax
	assert.Equal(t, int64(1597), ExtractTax(10000, 0.19))

	// small amounts round to nearest cent
	assert.Equal(t, int64(2), ExtractTax(10, 0.19))

	assert.Equal(t, int64(0), ExtractTax(0, 0.19))
	assert.Equal(t, int64(0), ExtractTax(10000, 0))
	assert.Equal(t, int64(0), ExtractTax(-500, 0.19))
}

func TestExtractTaxNeverExceedsGross(t *testing.T) {
	for _, gross := range []int64{1, 99, 100, 12345, 999999} {
		tax := ExtractTax(gross, 0.19)
		assert.GreaterOrEqual(t, tax, int64(0))
		assert.Less(t, tax, gross)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "15.97 EUR", Format(1597, "EUR"))
	assert.Equal(t, "0.05 EUR", Format(5, "EUR"))
	assert.Equal(t, "-3.50 EUR", Format(-350, "EUR"))
}
