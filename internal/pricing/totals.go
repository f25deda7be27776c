package pricing

import "storefront-checkout/internal/domain"

// Totals is the derived money summary of a cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Savings  float64 `json:"savings"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Compute derives totals for lines with the given shipping charge and order-level discount.
// The discount is only used by manual orders; storefront carts pass 0.
func Compute(lines []domain.CartLine, shipping, orderDiscount float64) Totals {
	var subtotal, savings float64
	for _, line := range lines {
		qty := float64(line.Quantity)
		effective := EffectiveUnitPrice(line)
		subtotal += effective * qty
		if original, ok := OriginalUnitPrice(line); ok {
			if diff := original - effective; diff > 0 {
				savings += diff * qty
			}
		}
	}
	total := subtotal - savings + shipping - orderDiscount
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal: subtotal,
		Savings:  savings,
		Shipping: shipping,
		Discount: orderDiscount,
		Total:    total,
	}
}

// Rounded returns t with every amount rounded for presentation.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: Round2(t.Subtotal),
		Savings:  Round2(t.Savings),
		Shipping: Round2(t.Shipping),
		Discount: Round2(t.Discount),
		Total:    Round2(t.Total),
	}
}
