package checkout

import (
	"sync"

	"storefront-checkout/internal/domain"
)

// Form is the customer-facing state of the checkout form.
type Form struct {
	CustomerName    string               `json:"customerName"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	ShippingAddress string               `json:"shippingAddress"`
	BillingAddress  string               `json:"billingAddress"`
	SameAsShipping  bool                 `json:"sameAsShipping"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
}

// FormPatch carries the fields a client changed; nil fields are left alone.
type FormPatch struct {
	CustomerName    *string               `json:"customerName,omitempty"`
	Email           *string               `json:"email,omitempty"`
	Phone           *string               `json:"phone,omitempty"`
	ShippingAddress *string               `json:"shippingAddress,omitempty"`
	BillingAddress  *string               `json:"billingAddress,omitempty"`
	SameAsShipping  *bool                 `json:"sameAsShipping,omitempty"`
	PaymentMethod   *domain.PaymentMethod `json:"paymentMethod,omitempty"`
	Notes           *string               `json:"notes,omitempty"`
}

// Draft holds the form of one checkout. While SameAsShipping is on the billing address
// follows the shipping address; turning it off stops the sync and keeps the billing text.
type Draft struct {
	mu   sync.Mutex
	form Form
}

func NewDraft() *Draft {
	return &Draft{form: Form{PaymentMethod: domain.PaymentCashOnDelivery}}
}

// Apply merges patch into the form and returns the result.
func (d *Draft) Apply(patch FormPatch) Form {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := &d.form
	if patch.CustomerName != nil {
		f.CustomerName = *patch.CustomerName
	}
	if patch.Email != nil {
		f.Email = *patch.Email
	}
	if patch.Phone != nil {
		f.Phone = *patch.Phone
	}
	if patch.Notes != nil {
		f.Notes = *patch.Notes
	}
	if patch.PaymentMethod != nil {
		f.PaymentMethod = *patch.PaymentMethod
	}
	if patch.SameAsShipping != nil {
		f.SameAsShipping = *patch.SameAsShipping
	}
	if patch.ShippingAddress != nil {
		f.ShippingAddress = *patch.ShippingAddress
	}
	if patch.BillingAddress != nil && !f.SameAsShipping {
		f.BillingAddress = *patch.BillingAddress
	}
	if f.SameAsShipping {
		f.BillingAddress = f.ShippingAddress
	}
	return *f
}

// SetSameAsShipping toggles billing/shipping sync.
func (d *Draft) SetSameAsShipping(on bool) Form {
	return d.Apply(FormPatch{SameAsShipping: &on})
}

// Form returns the current form.
func (d *Draft) Form() Form {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}
