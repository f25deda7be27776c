package cache

import (
	"context"
	"errors"

	"storefront-checkout/internal/domain"
)

// ProductCache stores catalog records used to enrich cart lines.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")
