package domain

import "time"

// ManualOrder is an order constructed by staff in the admin console.
type ManualOrder struct {
	ID              string            `json:"id"`
	CustomerName    string            `json:"customerName"`
	Email           string            `json:"email,omitempty"`
	Phone           string            `json:"phone"`
	ShippingAddress string            `json:"shippingAddress"`
	PaymentMethod   PaymentMethod     `json:"paymentMethod"`
	Notes           string            `json:"notes,omitempty"`
	Items           []ManualOrderItem `json:"items"`
	ShippingFee     float64           `json:"shippingFee"`
	Discount        float64           `json:"discount"`
	Subtotal        float64           `json:"subtotal"`
	Total           float64           `json:"total"`
	CreatedBy       string            `json:"createdBy,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// ManualOrderItem is one priced item of a ManualOrder.
type ManualOrderItem struct {
	ProductID       string  `json:"productId"`
	VariantID       string  `json:"variantId,omitempty"`
	Name            string  `json:"name,omitempty"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	DiscountAmount  float64 `json:"discountAmount,omitempty"`
	DiscountPercent float64 `json:"discountPercent,omitempty"`
	Total           float64 `json:"total"`
}
