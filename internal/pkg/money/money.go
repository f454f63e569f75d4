// internal/pkg/money/money.go
package money

import (
	"fmt"
	"math"
)

// All amounts are integer minor units (cents). Catalog prices are
// tax-inclusive; VAT is extracted, never added on top.

// ExtractTax returns the tax portion contained in a gross amount:
// gross * rate / (1 + rate), rounded to the nearest cent.
func ExtractTax(gross int64, rate float64) int64 {
	if gross <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Round(float64(gross) * rate / (1 + rate)))
}

// Format renders cents as a decimal string, e.g. 1597 -> "15.97".
func Format(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
