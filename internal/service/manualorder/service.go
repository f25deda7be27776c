// Package manualorder prices and records orders entered by staff on behalf of customers.
package manualorder

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
	repo "storefront-checkout/internal/repository/manualorder"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type orderRepo interface {
	Create(ctx context.Context, order domain.ManualOrder) (*domain.ManualOrder, error)
	GetByID(ctx context.Context, id string) (*domain.ManualOrder, error)
	List(ctx context.Context, filter repo.ListFilter) ([]domain.ManualOrder, error)
}

// ProductSource resolves catalog records for item names.
type ProductSource interface {
	Product(ctx context.Context, productID string) (domain.Product, error)
}

type Service struct {
	repo     orderRepo
	products ProductSource
	validate *validator.Validate
}

// New builds the service. products may be nil, in which case item names are taken as sent.
func New(r orderRepo, products ProductSource) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{repo: r, products: products, validate: v}
}

type ItemInput struct {
	ProductID       string  `json:"productId" validate:"required"`
	VariantID       string  `json:"variantId"`
	Name            string  `json:"name"`
	Price           float64 `json:"price" validate:"gte=0"`
	Quantity        int     `json:"quantity" validate:"gte=1"`
	DiscountAmount  float64 `json:"discountAmount" validate:"gte=0"`
	DiscountPercent float64 `json:"discountPercent" validate:"gte=0,lte=100"`
}

// OrderInput is the admin form. Totals are always derived; any total a client sends is ignored.
type OrderInput struct {
	CustomerName    string               `json:"customerName" validate:"required"`
	Email           string               `json:"email" validate:"omitempty,email"`
	Phone           string               `json:"phone" validate:"required"`
	ShippingAddress string               `json:"shippingAddress" validate:"required"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
	Items           []ItemInput          `json:"items" validate:"required,min=1,dive"`
	ShippingFee     float64              `json:"shippingFee" validate:"gte=0"`
	Discount        float64              `json:"discount" validate:"gte=0"`
	CreatedBy       string               `json:"createdBy"`
}

var fieldMessages = map[string]string{
	"CustomerName":    "Customer name is required",
	"Email":           "Please enter a valid email address",
	"Phone":           "Phone number is required",
	"ShippingAddress": "Shipping address is required",
	"Items":           "Add at least one item",
	"ShippingFee":     "Shipping fee cannot be negative",
	"Discount":        "Discount cannot be negative",
	"ProductID":       "Product is required",
	"Price":           "Price cannot be negative",
	"Quantity":        "Quantity must be at least 1",
	"DiscountAmount":  "Discount cannot be negative",
	"DiscountPercent": "Discount must be between 0 and 100 percent",
}

// Quote prices the form without validating or storing it.
func (s *Service) Quote(in OrderInput) pricing.ManualOrderQuote {
	q := pricing.PriceManualOrder(pricingInput(in))
	for i, t := range q.ItemTotals {
		q.ItemTotals[i] = pricing.Round2(t)
	}
	q.Subtotal = pricing.Round2(q.Subtotal)
	q.Shipping = pricing.Round2(q.Shipping)
	q.Discount = pricing.Round2(q.Discount)
	q.Total = pricing.Round2(q.Total)
	return q
}

// Create validates the form, re-prices it and stores the order.
func (s *Service) Create(ctx context.Context, in OrderInput) (*domain.ManualOrder, error) {
	in = normalize(in)
	if fields := s.validateInput(in); len(fields) > 0 {
		return nil, domain.ValidationError{Fields: fields}
	}
	if err := s.resolveNames(ctx, in.Items); err != nil {
		return nil, err
	}

	quote := s.Quote(in)
	order := domain.ManualOrder{
		CustomerName:    in.CustomerName,
		Email:           in.Email,
		Phone:           in.Phone,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Notes:           in.Notes,
		ShippingFee:     quote.Shipping,
		Discount:        quote.Discount,
		Subtotal:        quote.Subtotal,
		Total:           quote.Total,
		CreatedBy:       in.CreatedBy,
		Items:           make([]domain.ManualOrderItem, len(in.Items)),
	}
	for i, it := range in.Items {
		order.Items[i] = domain.ManualOrderItem{
			ProductID:       it.ProductID,
			VariantID:       it.VariantID,
			Name:            it.Name,
			Price:           pricing.Round2(it.Price),
			Quantity:        it.Quantity,
			DiscountAmount:  pricing.Round2(it.DiscountAmount),
			DiscountPercent: it.DiscountPercent,
			Total:           quote.ItemTotals[i],
		}
	}
	return s.repo.Create(ctx, order)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ManualOrder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List pages through orders; limit is clamped to [1, 100] and defaults to 20.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.ManualOrder, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, repo.ListFilter{Limit: limit, Offset: offset})
}

func pricingInput(in OrderInput) pricing.ManualOrderInput {
	items := make([]pricing.ManualItemInput, len(in.Items))
	for i, it := range in.Items {
		items[i] = pricing.ManualItemInput{
			Price:           it.Price,
			Quantity:        it.Quantity,
			DiscountAmount:  it.DiscountAmount,
			DiscountPercent: it.DiscountPercent,
		}
	}
	return pricing.ManualOrderInput{Items: items, ShippingFee: in.ShippingFee, Discount: in.Discount}
}

func normalize(in OrderInput) OrderInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentCashOnDelivery
	}
	items := make([]ItemInput, len(in.Items))
	for i, it := range in.Items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		it.VariantID = strings.TrimSpace(it.VariantID)
		it.Name = strings.TrimSpace(it.Name)
		items[i] = it
	}
	in.Items = items
	return in
}

func (s *Service) validateInput(in OrderInput) domain.FieldErrorMap {
	fields := domain.FieldErrorMap{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fields["form"] = err.Error()
			return fields
		}
		for _, fe := range verrs {
			path := fieldPath(fe.Namespace())
			if _, ok := fields[path]; !ok {
				fields[path] = fieldMessages[fe.StructField()]
			}
		}
	}
	if _, ok := fields["customerName"]; !ok && len([]rune(in.CustomerName)) < 2 {
		fields["customerName"] = "Name must be at least 2 characters"
	}
	if _, ok := fields["phone"]; !ok {
		if n := digits(in.Phone); n < 10 || n > 15 {
			fields["phone"] = "Phone number must have 10 to 15 digits"
		}
	}
	if in.PaymentMethod != domain.PaymentCashOnDelivery {
		fields["paymentMethod"] = "Only cash on delivery is available"
	}
	return fields
}

// fieldPath drops the root type from a namespace such as "OrderInput.items[1].quantity".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// resolveNames fills missing item names from the catalog. An unknown product is a field error.
func (s *Service) resolveNames(ctx context.Context, items []ItemInput) error {
	if s.products == nil {
		return nil
	}
	fields := domain.FieldErrorMap{}
	for i := range items {
		if items[i].Name != "" {
			continue
		}
		p, err := s.products.Product(ctx, items[i].ProductID)
		switch {
		case err == nil:
			items[i].Name = p.Name
		case domain.KindOf(err) == domain.KindNotFound:
			fields[fmt.Sprintf("items[%d].productId", i)] = "Unknown product"
		default:
			return err
		}
	}
	if len(fields) > 0 {
		return domain.ValidationError{Fields: fields}
	}
	return nil
}
