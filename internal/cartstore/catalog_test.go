package cartstore

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/domain"
)

type countingFetcher struct {
	calls   atomic.Int32
	delay   time.Duration
	product domain.Product
	err     error
}

func (f *countingFetcher) FetchProduct(ctx context.Context, id string) (domain.Product, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if f.err != nil {
		return domain.Product{}, f.err
	}
	p := f.product
	p.ID = id
	return p, nil
}

func TestCatalogReaderCollapsesConcurrentFetches(t *testing.T) {
	fetcher := &countingFetcher{delay: 50 * time.Millisecond, product: domain.Product{Name: "Tea"}}
	reader := NewCatalogReader(fetcher, nil, log.New(io.Discard, "", 0))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := reader.Product(context.Background(), "tea")
			assert.NoError(t, err)
			assert.Equal(t, "Tea", p.Name)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, fetcher.calls.Load(), int32(2))
}

func TestCatalogReaderUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	productCache := cache.NewRedisCache(client, time.Minute)

	fetcher := &countingFetcher{product: domain.Product{Name: "Tea"}}
	reader := NewCatalogReader(fetcher, productCache, log.New(io.Discard, "", 0))

	_, err := reader.Product(context.Background(), "tea")
	require.NoError(t, err)
	_, err = reader.Product(context.Background(), "tea")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.True(t, mr.Exists("product:tea"))
}

func TestCatalogReaderCacheOutageFallsBackToRemote(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	productCache := cache.NewRedisCache(client, time.Minute)
	mr.Close()

	fetcher := &countingFetcher{product: domain.Product{Name: "Tea"}}
	reader := NewCatalogReader(fetcher, productCache, log.New(io.Discard, "", 0))
	p, err := reader.Product(context.Background(), "tea")
	require.NoError(t, err)
	assert.Equal(t, "Tea", p.Name)
}

func TestCatalogReaderPropagatesRemoteError(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("catalog down")}
	reader := NewCatalogReader(fetcher, nil, log.New(io.Discard, "", 0))
	_, err := reader.Product(context.Background(), "tea")
	require.Error(t, err)
}

func TestCatalogReaderIgnoresCallerCancellation(t *testing.T) {
	fetcher := &countingFetcher{delay: 20 * time.Millisecond, product: domain.Product{Name: "Tea"}}
	reader := NewCatalogReader(fetcher, nil, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := reader.Product(ctx, "tea")
	require.NoError(t, err)
	assert.Equal(t, "Tea", p.Name)
}
