package pricing

import "github.com/shopspring/decimal"

// ManualItemInput is one item line of a hand-built order.
type ManualItemInput struct {
	Price           float64
	Quantity        int
	DiscountAmount  float64
	DiscountPercent float64
}

// ManualOrderInput collects every input the manual order total depends on.
type ManualOrderInput struct {
	Items       []ManualItemInput
	ShippingFee float64
	Discount    float64
}

// ManualOrderQuote is the read-only pricing result shown in the admin form.
type ManualOrderQuote struct {
	ItemTotals []float64 `json:"itemTotals"`
	Subtotal   float64   `json:"subtotal"`
	Shipping   float64   `json:"shipping"`
	Discount   float64   `json:"discount"`
	Total      float64   `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// ManualItemTotal prices one item: price*quantity less either the fixed amount or the
// percentage. The amount wins when both are set; the result never drops below zero.
func ManualItemTotal(in ManualItemInput) float64 {
	return manualItemTotal(in).InexactFloat64()
}

func manualItemTotal(in ManualItemInput) decimal.Decimal {
	total := decimal.NewFromFloat(in.Price).Mul(decimal.NewFromInt(int64(in.Quantity)))
	switch {
	case in.DiscountAmount != 0:
		total = total.Sub(decimal.NewFromFloat(in.DiscountAmount))
	case in.DiscountPercent != 0:
		total = total.Sub(total.Mul(decimal.NewFromFloat(in.DiscountPercent)).Div(hundred))
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// PriceManualOrder sums the item totals, adds shipping and subtracts the order discount,
// flooring at zero.
func PriceManualOrder(in ManualOrderInput) ManualOrderQuote {
	quote := ManualOrderQuote{
		ItemTotals: make([]float64, len(in.Items)),
		Shipping:   in.ShippingFee,
		Discount:   in.Discount,
	}
	subtotal := decimal.Zero
	for i, item := range in.Items {
		t := manualItemTotal(item)
		quote.ItemTotals[i] = t.InexactFloat64()
		subtotal = subtotal.Add(t)
	}
	total := subtotal.Add(decimal.NewFromFloat(in.ShippingFee)).Sub(decimal.NewFromFloat(in.Discount))
	if total.IsNegative() {
		total = decimal.Zero
	}
	quote.Subtotal = subtotal.InexactFloat64()
	quote.Total = total.InexactFloat64()
	return quote
}
