package pricing

import "github.com/shopspring/decimal"

// Round2 rounds an amount to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Format renders an amount with exactly two decimals.
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
