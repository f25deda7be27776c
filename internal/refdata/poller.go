// Package refdata keeps slowly-changing reference data (shipping rates, catalog facets)
// fresh with rate-limited conditional fetches.
package refdata

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"storefront-checkout/internal/domain"
)

// FetchFunc fetches the resource. etag is the validator of the current snapshot ("" when
// none); implementations return domain.ErrNotModified when the resource is unchanged.
type FetchFunc[T any] func(ctx context.Context, etag string) (T, string, error)

// Options tunes a Poller.
type Options[T any] struct {
	Interval time.Duration
	// MinGap is the smallest spacing between two fetches, whatever triggered them.
	MinGap   time.Duration
	OnChange func(T)
}

// Poller holds the latest snapshot of one resource.
type Poller[T any] struct {
	name     string
	fetch    FetchFunc[T]
	interval time.Duration
	limiter  *rate.Limiter
	onChange func(T)
	logger   *log.Logger

	fetchMu sync.Mutex

	mu      sync.RWMutex
	current T
	etag    string
	loaded  bool

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func New[T any](name string, fetch FetchFunc[T], opts Options[T], logger *log.Logger) *Poller[T] {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	limit := rate.Inf
	if opts.MinGap > 0 {
		limit = rate.Every(opts.MinGap)
	}
	return &Poller[T]{
		name:     name,
		fetch:    fetch,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		onChange: opts.OnChange,
		logger:   logger,
	}
}

// Current returns the snapshot and whether one has been loaded.
func (p *Poller[T]) Current() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.loaded
}

// Ensure returns the snapshot, fetching it first when nothing is loaded yet.
func (p *Poller[T]) Ensure(ctx context.Context) (T, error) {
	if v, ok := p.Current(); ok {
		return v, nil
	}
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()
	if v, ok := p.Current(); ok {
		return v, nil
	}
	if _, err := p.fetchLocked(ctx); err != nil {
		var zero T
		return zero, err
	}
	v, _ := p.Current()
	return v, nil
}

// Refresh performs one conditional fetch unless the rate limit forbids it. It reports
// whether the snapshot changed. Errors and unchanged responses keep the previous snapshot.
func (p *Poller[T]) Refresh(ctx context.Context) (bool, error) {
	if !p.limiter.Allow() {
		return false, nil
	}
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()
	return p.fetchLocked(ctx)
}

func (p *Poller[T]) fetchLocked(ctx context.Context) (bool, error) {
	p.mu.RLock()
	etag := p.etag
	if !p.loaded {
		etag = ""
	}
	p.mu.RUnlock()

	v, newTag, err := p.fetch(ctx, etag)
	if errors.Is(err, domain.ErrNotModified) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	p.current = v
	p.etag = newTag
	p.loaded = true
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(v)
	}
	return true, nil
}

// Start refreshes every interval until Stop is called or ctx is done.
func (p *Poller[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *Poller[T]) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			changed, err := p.Refresh(ctx)
			if err != nil {
				p.logger.Printf("refdata %s: refresh failed: %v", p.name, err)
				continue
			}
			if changed {
				p.logger.Printf("refdata %s: snapshot updated", p.name)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the refresh loop and waits for it to exit. Safe to call more than once.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			return
		}
		p.cancel()
		<-p.done
	})
}
