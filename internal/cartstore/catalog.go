package cartstore

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/domain"
)

const productFetchTimeout = 10 * time.Second

// ProductFetcher is the remote catalog endpoint.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ProductSource resolves catalog records for line enrichment.
type ProductSource interface {
	Product(ctx context.Context, productID string) (domain.Product, error)
}

// CatalogReader reads products through an optional cache and collapses concurrent fetches
// of the same product into one remote call. One reader is shared by every session.
type CatalogReader struct {
	remote ProductFetcher
	cache  cache.ProductCache
	logger *log.Logger
	sfg    singleflight.Group
}

// NewCatalogReader builds a reader. productCache may be nil.
func NewCatalogReader(remote ProductFetcher, productCache cache.ProductCache, logger *log.Logger) *CatalogReader {
	return &CatalogReader{remote: remote, cache: productCache, logger: logger}
}

func (r *CatalogReader) Product(ctx context.Context, productID string) (domain.Product, error) {
	v, err, _ := r.sfg.Do(productID, func() (interface{}, error) {
		// Shared by every waiter, so it must outlive the caller that started it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), productFetchTimeout)
		defer cancel()

		if r.cache != nil {
			p, err := r.cache.Get(fetchCtx, productID)
			if err == nil {
				return *p, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				r.logger.Printf("product cache get %s: %v", productID, err)
			}
		}

		p, err := r.remote.FetchProduct(fetchCtx, productID)
		if err != nil {
			return domain.Product{}, err
		}

		if r.cache != nil {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := r.cache.Set(setCtx, &p); err != nil {
				r.logger.Printf("product cache set %s: %v", productID, err)
			}
		}
		return p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}
