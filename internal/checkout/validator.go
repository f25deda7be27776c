package checkout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"storefront-checkout/internal/domain"
)

// Form field names shared by client-side validation and server-reported errors.
const (
	FieldCustomerName    = "customerName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldShippingAddress = "shippingAddress"
	FieldBillingAddress  = "billingAddress"
	FieldPaymentMethod   = "paymentMethod"
	FieldCart            = "cart"
	FieldShippingRegion  = "shippingRegion"
)

const (
	minNameLength    = 2
	minAddressLength = 10
	minPhoneDigits   = 10
	maxPhoneDigits   = 15
)

var validate = validator.New()

// Validate checks the checkout form and returns a fresh error map; an empty map means the
// form may be submitted.
func Validate(form Form) domain.FieldErrorMap {
	errs := domain.FieldErrorMap{}

	name := strings.TrimSpace(form.CustomerName)
	switch {
	case name == "":
		errs[FieldCustomerName] = "Name is required"
	case utf8.RuneCountInString(name) < minNameLength:
		errs[FieldCustomerName] = "Name must be at least 2 characters"
	}

	email := strings.TrimSpace(form.Email)
	switch {
	case email == "":
		errs[FieldEmail] = "Email is required"
	case !validEmail(email):
		errs[FieldEmail] = "Please enter a valid email address"
	}

	phone := strings.TrimSpace(form.Phone)
	digits := countDigits(phone)
	switch {
	case phone == "":
		errs[FieldPhone] = "Phone number is required"
	case digits < minPhoneDigits:
		errs[FieldPhone] = "Phone number is too short"
	case digits > maxPhoneDigits:
		errs[FieldPhone] = "Phone number is too long"
	}

	if msg := addressError(form.ShippingAddress, "Shipping"); msg != "" {
		errs[FieldShippingAddress] = msg
	}
	if msg := addressError(form.BillingAddress, "Billing"); msg != "" {
		errs[FieldBillingAddress] = msg
	}

	if form.PaymentMethod != "" && form.PaymentMethod != domain.PaymentCashOnDelivery {
		errs[FieldPaymentMethod] = "Only cash on delivery is available"
	}
	return errs
}

func addressError(address, label string) string {
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return label + " address is required"
	case utf8.RuneCountInString(address) < minAddressLength:
		return "Please enter a complete " + strings.ToLower(label) + " address"
	}
	return ""
}

// validEmail accepts local@domain.tld shapes only.
func validEmail(email string) bool {
	if validate.Var(email, "required,email") != nil {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	host := email[at+1:]
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && dot < len(host)-1
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
