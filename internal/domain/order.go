package domain

import "time"

// PaymentMethod enumerates payment options. Only cash on delivery is enabled.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// OrderDraft is the checkout transaction submitted to the order processor.
type OrderDraft struct {
	SessionID       string        `json:"sessionId"`
	CustomerName    string        `json:"customerName"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	ShippingAddress string        `json:"shippingAddress"`
	BillingAddress  string        `json:"billingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Notes           string        `json:"notes,omitempty"`
	ShippingRegion  Region        `json:"shippingRegion,omitempty"`
	ShippingCharge  float64       `json:"shippingCharge"`
	Items           []OrderItem   `json:"items"`
	Subtotal        float64       `json:"subtotal"`
	Savings         float64       `json:"savings"`
	Total           float64       `json:"total"`
}

// OrderItem is one priced line of an OrderDraft.
type OrderItem struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// CheckoutConfirmation is the success payload of the order-creation endpoint.
type CheckoutConfirmation struct {
	OrderID string `json:"orderId"`
}

// CheckoutAttempt is the audit record of one submission.
type CheckoutAttempt struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Outcome   string    `json:"outcome"`
	OrderID   string    `json:"orderId,omitempty"`
	Message   string    `json:"message,omitempty"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}
