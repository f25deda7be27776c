// Package session keeps the per-visitor cart, shipping and checkout state in memory.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-checkout/internal/cartstore"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/shipping"
)

// Session bundles the state of one storefront visitor. Its ID scopes the server-side cart.
type Session struct {
	ID       string
	Cart     *cartstore.Store
	Shipping *shipping.Estimator
	Checkout *checkout.Submitter
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Cart              cartstore.CartService
	Products          cartstore.ProductSource
	Rates             shipping.RateProvider
	Classifier        shipping.Classifier
	Orders            checkout.OrderService
	Tracker           checkout.PurchaseTracker
	Recorder          checkout.AttemptRecorder
	EnrichConcurrency int
	MutationTimeout   time.Duration
	CheckoutTimeout   time.Duration
	Logger            *log.Logger
}

// Build assembles a session for id.
func (d Deps) Build(id string) *Session {
	cart := cartstore.New(id, d.Cart, d.Products, cartstore.Options{
		EnrichConcurrency: d.EnrichConcurrency,
		MutationTimeout:   d.MutationTimeout,
	}, d.Logger)
	est := shipping.New(id, d.Rates, d.Classifier)
	sub := checkout.NewSubmitter(checkout.Deps{
		Orders:   d.Orders,
		Cart:     cart,
		Shipping: est,
		Draft:    checkout.NewDraft(),
		Tracker:  d.Tracker,
		Recorder: d.Recorder,
		Timeout:  d.CheckoutTimeout,
	}, d.Logger)
	return &Session{ID: id, Cart: cart, Shipping: est, Checkout: sub}
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Registry holds live sessions. Every lookup extends a session's lifetime by the TTL.
type Registry struct {
	build func(id string) *Session
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry(ttl time.Duration, build func(id string) *Session) *Registry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Registry{
		build:    build,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts a session under a fresh identifier.
func (r *Registry) Create() *Session {
	return r.Open(uuid.NewString())
}

// Open returns the live session for id, creating it when absent. Clients use it to resume a
// server-side cart they already hold an identifier for.
func (r *Registry) Open(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok && r.now().Before(e.expiresAt) {
		e.expiresAt = r.now().Add(r.ttl)
		return e.session
	}
	s := r.build(id)
	r.sessions[id] = &entry{session: s, expiresAt: r.now().Add(r.ttl)}
	return s
}

// Get returns a live session or domain.ErrNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.now().After(e.expiresAt) {
		delete(r.sessions, id)
		return nil, domain.ErrNotFound
	}
	e.expiresAt = r.now().Add(r.ttl)
	return e.session, nil
}

// Delete forgets a session. Responses still in flight for it land on discarded state.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len reports the number of sessions held, expired ones included until swept.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, e := range r.sessions {
		if now.After(e.expiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.Printf("expired %d sessions", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
