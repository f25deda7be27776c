package manualorder

import (
	"context"

	"storefront-checkout/internal/domain"
)

// ListFilter pages through orders, newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, order domain.ManualOrder) (*domain.ManualOrder, error)
	GetByID(ctx context.Context, id string) (*domain.ManualOrder, error)
	List(ctx context.Context, filter ListFilter) ([]domain.ManualOrder, error)
}
