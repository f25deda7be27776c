// Package pricing resolves line prices and derives order totals. Every screen that shows a
// line total goes through EffectiveUnitPrice so the cart, the checkout summary and the
// manual order form never disagree.
package pricing

import (
	"math"

	"storefront-checkout/internal/domain"
)

// EffectiveUnitPrice resolves the unit price charged for a line. Sources are checked by
// presence, not truthiness, so a legitimate price of 0 is kept:
//
//  1. variation sale price, when positive
//  2. variation price
//  3. snapshot price captured when the line entered the cart
//  4. 0
func EffectiveUnitPrice(line domain.CartLine) float64 {
	if v := line.Variation; v != nil {
		if present(v.SalePrice) && *v.SalePrice > 0 {
			return *v.SalePrice
		}
		if present(v.Price) {
			return *v.Price
		}
	}
	if present(line.SnapshotPrice) {
		return *line.SnapshotPrice
	}
	return 0
}

// OriginalUnitPrice returns the variation price for strikethrough display. It reports false
// unless a sale price is active and strictly lower than the variation price.
func OriginalUnitPrice(line domain.CartLine) (float64, bool) {
	v := line.Variation
	if v == nil || !present(v.SalePrice) || !present(v.Price) {
		return 0, false
	}
	if *v.SalePrice <= 0 || *v.SalePrice >= *v.Price {
		return 0, false
	}
	return *v.Price, true
}

// LineTotal is the displayed total of a line.
func LineTotal(line domain.CartLine) float64 {
	return EffectiveUnitPrice(line) * float64(line.Quantity)
}

func present(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
