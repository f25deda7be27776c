// Package seed inserts demo manual orders for local development.
package seed

import (
	"context"
	"fmt"

	"storefront-checkout/internal/domain"
	manualordersvc "storefront-checkout/internal/service/manualorder"
)

type orderStore interface {
	Create(ctx context.Context, in manualordersvc.OrderInput) (*domain.ManualOrder, error)
	List(ctx context.Context, limit, offset int) ([]domain.ManualOrder, error)
}

var demoOrders = []manualordersvc.OrderInput{
	{
		CustomerName:    "Demo Customer",
		Email:           "demo@example.com",
		Phone:           "01700000000",
		ShippingAddress: "House 1, Road 1, Dhanmondi, Dhaka",
		Items: []manualordersvc.ItemInput{
			{ProductID: "demo-serum", VariantID: "demo-serum-30ml", Name: "Demo Serum 30ml", Price: 1200, Quantity: 1, DiscountPercent: 10},
			{ProductID: "demo-toner", Name: "Demo Toner", Price: 650, Quantity: 2},
		},
		ShippingFee: 80,
		CreatedBy:   "seed",
	},
	{
		CustomerName:    "Demo Outside",
		Phone:           "01800000000",
		ShippingAddress: "Road 4, Agrabad, Chattogram",
		Items: []manualordersvc.ItemInput{
			{ProductID: "demo-cream", Name: "Demo Cream", Price: 900, Quantity: 1, DiscountAmount: 100},
		},
		ShippingFee: 150,
		Discount:    50,
		CreatedBy:   "seed",
	},
}

// Apply creates the demo orders once; it does nothing when any order exists.
func Apply(ctx context.Context, store orderStore) (int, error) {
	existing, err := store.List(ctx, 1, 0)
	if err != nil {
		return 0, fmt.Errorf("list orders: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, in := range demoOrders {
		if _, err := store.Create(ctx, in); err != nil {
			return i, fmt.Errorf("create demo order %q: %w", in.CustomerName, err)
		}
	}
	return len(demoOrders), nil
}
