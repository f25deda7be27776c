package manualorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/domain"
	repo "storefront-checkout/internal/repository/manualorder"
)

type stubRepo struct {
	created    *domain.ManualOrder
	createErr  error
	getOrder   *domain.ManualOrder
	getErr     error
	lastGetID  string
	lastFilter repo.ListFilter
	listResult []domain.ManualOrder
}

func (s *stubRepo) Create(_ context.Context, order domain.ManualOrder) (*domain.ManualOrder, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	order.ID = "mo-1"
	order.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.created = &order
	return &order, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.ManualOrder, error) {
	s.lastGetID = id
	return s.getOrder, s.getErr
}

func (s *stubRepo) List(_ context.Context, filter repo.ListFilter) ([]domain.ManualOrder, error) {
	s.lastFilter = filter
	return s.listResult, nil
}

type stubProducts struct {
	products map[string]domain.Product
	err      error
}

func (s stubProducts) Product(_ context.Context, id string) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, &domain.RemoteError{Kind: domain.KindNotFound, Op: "fetch product", Status: 404}
	}
	return p, nil
}

func validInput() OrderInput {
	return OrderInput{
		CustomerName:    "  Nadia Islam ",
		Phone:           "01812-345678",
		ShippingAddress: "Flat 3B, Road 11, Banani, Dhaka",
		Items: []ItemInput{
			{ProductID: "p1", Name: "Sunscreen", Price: 100, Quantity: 2, DiscountAmount: 20},
			{ProductID: "p2", Price: 150, Quantity: 1, DiscountPercent: 10},
		},
		ShippingFee: 80,
		Discount:    15.5,
	}
}

func TestQuoteRoundsAndFloors(t *testing.T) {
	svc := New(&stubRepo{}, nil)
	q := svc.Quote(OrderInput{
		Items:       []ItemInput{{Price: 100, Quantity: 2, DiscountAmount: 250}},
		ShippingFee: 0,
		Discount:    10,
	})
	if q.ItemTotals[0] != 0 || q.Total != 0 {
		t.Fatalf("expected clamped totals, got %+v", q)
	}

	q = svc.Quote(OrderInput{Items: []ItemInput{{Price: 33.333, Quantity: 3, DiscountPercent: 10}}})
	if q.Subtotal != 90 {
		t.Fatalf("expected 90, got %v", q.Subtotal)
	}
}

func TestCreateRepricesAndResolvesNames(t *testing.T) {
	r := &stubRepo{}
	svc := New(r, stubProducts{products: map[string]domain.Product{"p2": {ID: "p2", Name: "Night Cream"}}})

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "mo-1" {
		t.Fatalf("expected stored order, got %+v", order)
	}
	got := r.created
	if got.CustomerName != "Nadia Islam" || got.PaymentMethod != domain.PaymentCashOnDelivery {
		t.Fatalf("expected normalized input, got %+v", got)
	}
	if got.Items[0].Total != 180 || got.Items[1].Total != 135 || got.Items[1].Name != "Night Cream" {
		t.Fatalf("unexpected items %+v", got.Items)
	}
	if got.Subtotal != 315 || got.Total != 379.5 {
		t.Fatalf("unexpected totals subtotal=%v total=%v", got.Subtotal, got.Total)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(&stubRepo{}, nil)
	in := validInput()
	in.CustomerName = "N"
	in.Email = "not-an-email"
	in.Phone = "12345"
	in.PaymentMethod = "BKASH"
	in.Items[1].Quantity = 0
	in.Items[1].DiscountPercent = 120
	in.Items[0].ProductID = ""

	_, err := svc.Create(context.Background(), in)
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]string{
		"customerName":             "Name must be at least 2 characters",
		"email":                    "Please enter a valid email address",
		"phone":                    "Phone number must have 10 to 15 digits",
		"paymentMethod":            "Only cash on delivery is available",
		"items[1].quantity":        "Quantity must be at least 1",
		"items[1].discountPercent": "Discount must be between 0 and 100 percent",
		"items[0].productId":       "Product is required",
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Fatalf("field %s: expected %q, got %q (all: %v)", field, msg, verr.Fields[field], verr.Fields)
		}
	}
}

func TestCreateRequiresItems(t *testing.T) {
	svc := New(&stubRepo{}, nil)
	in := validInput()
	in.Items = nil
	_, err := svc.Create(context.Background(), in)
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["items"] != "Add at least one item" {
		t.Fatalf("expected items error, got %v", err)
	}
}

func TestCreateUnknownProduct(t *testing.T) {
	r := &stubRepo{}
	svc := New(r, stubProducts{})
	_, err := svc.Create(context.Background(), validInput())
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["items[1].productId"] != "Unknown product" {
		t.Fatalf("expected unknown product error, got %v", err)
	}
	if r.created != nil {
		t.Fatalf("nothing should be stored")
	}
}

func TestCreateCatalogOutage(t *testing.T) {
	outage := &domain.RemoteError{Kind: domain.KindNetwork, Op: "fetch product"}
	svc := New(&stubRepo{}, stubProducts{err: outage})
	if _, err := svc.Create(context.Background(), validInput()); !errors.Is(err, outage) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	r := &stubRepo{getErr: domain.ErrNotFound}
	svc := New(r, nil)
	if _, err := svc.Get(context.Background(), " "); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "mo-9"); !errors.Is(err, domain.ErrNotFound) || r.lastGetID != "mo-9" {
		t.Fatalf("expected repo lookup, got %v", err)
	}

	if _, err := svc.List(context.Background(), 0, -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.lastFilter.Limit != 20 || r.lastFilter.Offset != 0 {
		t.Fatalf("unexpected default filter %+v", r.lastFilter)
	}
	svc.List(context.Background(), 1000, 40)
	if r.lastFilter.Limit != 100 || r.lastFilter.Offset != 40 {
		t.Fatalf("unexpected clamped filter %+v", r.lastFilter)
	}
}
