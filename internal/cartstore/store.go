// Package cartstore keeps the local view of a session's remote cart. Quantity changes and
// removals are applied locally first and then confirmed against the cart service; a failed
// call rolls the line back unless a newer mutation of the same line has since been issued.
package cartstore

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/pricing"
)

// CartService is the remote cart store.
type CartService interface {
	FetchCart(ctx context.Context, sessionID string) (domain.RemoteCart, error)
	UpdateLineQuantity(ctx context.Context, sessionID, variantID string, quantity int) error
	RemoveLine(ctx context.Context, sessionID string, key domain.LineKey) error
}

// Reason tells subscribers what kind of committed change produced a snapshot.
type Reason string

const (
	ReasonLoaded     Reason = "loaded"
	ReasonEnriched   Reason = "enriched"
	ReasonUpdated    Reason = "updated"
	ReasonRemoved    Reason = "removed"
	ReasonRolledBack Reason = "rolled_back"
	ReasonCleared    Reason = "cleared"
)

// Snapshot is the committed state delivered to subscribers.
type Snapshot struct {
	Reason Reason
	Lines  []domain.CartLine
}

// Options tunes a Store.
type Options struct {
	// EnrichConcurrency bounds the product fetches run in parallel after a load.
	EnrichConcurrency int
	// MutationTimeout bounds a quantity change or removal on the cart service. The call is
	// not tied to the caller's cancellation.
	MutationTimeout time.Duration
}

// Store is the local copy of one session's cart. All mutation goes through SetQuantity and
// Remove.
type Store struct {
	sessionID   string
	cart        CartService
	products    ProductSource
	concurrency int
	callTimeout time.Duration
	logger      *log.Logger

	mu      sync.Mutex
	lines   []domain.CartLine
	seqs    map[domain.LineKey]*lineSeq
	loadGen uint64
	epoch   uint64
	subs    map[int]func(Snapshot)
	nextSub int
}

func New(sessionID string, cart CartService, products ProductSource, opts Options, logger *log.Logger) *Store {
	concurrency := opts.EnrichConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	callTimeout := opts.MutationTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Store{
		sessionID:   sessionID,
		cart:        cart,
		products:    products,
		concurrency: concurrency,
		callTimeout: callTimeout,
		logger:      logger,
		seqs:        make(map[domain.LineKey]*lineSeq),
		subs:        make(map[int]func(Snapshot)),
	}
}

// SessionID returns the identifier scoping the server-side cart.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Load replaces the local lines with the remote cart and then enriches every line with its
// catalog record. Lines with a mutation in flight keep their local state. A failed product
// fetch leaves that line pending on its snapshot price without affecting the others.
func (s *Store) Load(ctx context.Context) error {
	remote, err := s.cart.FetchCart(ctx, s.sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.lines = s.mergeLoadedLocked(linesFromRemote(remote))
	productIDs := distinctProducts(s.lines)
	snap := s.snapshotLocked(ReasonLoaded)
	s.mu.Unlock()

	s.notify(snap)
	s.enrich(ctx, gen, productIDs)
	return nil
}

func linesFromRemote(remote domain.RemoteCart) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(remote.Items))
	index := make(map[domain.LineKey]int, len(remote.Items))
	for _, item := range remote.Items {
		key := domain.LineKey{ProductID: item.ProductID, VariantID: item.VariantID}
		if i, ok := index[key]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		if item.Quantity <= 0 {
			continue
		}
		line := domain.CartLine{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			DetailsPending: true,
		}
		switch {
		case item.ProductData != nil && item.ProductData.Price != nil:
			line.SnapshotPrice = domain.Float(*item.ProductData.Price)
		case item.TotalPrice != nil:
			line.SnapshotPrice = domain.Float(*item.TotalPrice / float64(item.Quantity))
		}
		index[key] = len(out)
		out = append(out, line)
	}
	return out
}

// mergeLoadedLocked combines freshly loaded lines with local state: lines with a mutation in
// flight keep their optimistic value and enrichment from an earlier load is carried over
// until the new fetch lands.
func (s *Store) mergeLoadedLocked(fresh []domain.CartLine) []domain.CartLine {
	local := make(map[domain.LineKey]domain.CartLine, len(s.lines))
	for _, l := range s.lines {
		local[l.Key()] = l
	}
	seen := make(map[domain.LineKey]bool, len(fresh))
	out := make([]domain.CartLine, 0, len(fresh))
	for _, line := range fresh {
		key := line.Key()
		seen[key] = true
		prev, hadPrev := local[key]
		if s.inFlightLocked(key) {
			if hadPrev {
				out = append(out, prev)
			}
			continue
		}
		if hadPrev && !prev.DetailsPending {
			line.Variation = prev.Variation
			line.Product = prev.Product
			line.DetailsPending = false
		}
		out = append(out, line)
	}
	for _, prev := range s.lines {
		if !seen[prev.Key()] && s.inFlightLocked(prev.Key()) {
			out = append(out, prev)
		}
	}
	return out
}

func distinctProducts(lines []domain.CartLine) []string {
	seen := make(map[string]bool, len(lines))
	var out []string
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			out = append(out, l.ProductID)
		}
	}
	return out
}

func (s *Store) enrich(ctx context.Context, gen uint64, productIDs []string) {
	if s.products == nil || len(productIDs) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			product, err := s.products.Product(gctx, id)
			if err != nil {
				s.logger.Printf("cart %s: enrich product %s: %v", s.sessionID, id, err)
				return nil
			}
			s.mergeProduct(gen, product)
			return nil
		})
	}
	_ = g.Wait()
}

// mergeProduct folds a catalog record into every line of that product. Records from a
// superseded load are dropped.
func (s *Store) mergeProduct(gen uint64, product domain.Product) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	changed := false
	for i := range s.lines {
		line := &s.lines[i]
		if line.ProductID != product.ID {
			continue
		}
		p := (domain.CartLine{Product: &product}).Clone().Product
		line.Product = p
		if v, ok := p.FindVariation(line.VariantID); ok {
			line.Variation = &v
		} else {
			line.Variation = nil
		}
		line.DetailsPending = false
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked(ReasonEnriched)
	s.mu.Unlock()
	s.notify(snap)
}

// SetQuantity changes the quantity of a line. 0 removes the line. A quantity above the known
// stock of the variation is clamped to that stock; when the known stock is 0 the change is
// refused with ErrOutOfStock and the line is left as it is.
func (s *Store) SetQuantity(ctx context.Context, key domain.LineKey, quantity int) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.Remove(ctx, key)
	}

	s.mu.Lock()
	idx := s.indexLocked(key)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrLineNotFound
	}
	line := &s.lines[idx]
	if limit, ok := line.StockLimit(); ok && quantity > limit {
		if limit <= 0 {
			s.mu.Unlock()
			return domain.ErrOutOfStock
		}
		quantity = limit
	}
	if quantity == line.Quantity && !s.inFlightLocked(key) {
		s.mu.Unlock()
		return nil
	}
	m := s.beginLocked(key, idx)
	line.Quantity = quantity
	s.mu.Unlock()

	callCtx, cancel := s.mutationContext(ctx)
	defer cancel()
	err := s.cart.UpdateLineQuantity(callCtx, s.sessionID, key.VariantID, quantity)
	return s.finish(key, m, err, ReasonUpdated)
}

// Remove deletes a line locally and then on the server, re-inserting it if the server call
// fails.
func (s *Store) Remove(ctx context.Context, key domain.LineKey) error {
	s.mu.Lock()
	idx := s.indexLocked(key)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrLineNotFound
	}
	m := s.beginLocked(key, idx)
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.mu.Unlock()

	callCtx, cancel := s.mutationContext(ctx)
	defer cancel()
	err := s.cart.RemoveLine(callCtx, s.sessionID, key)
	return s.finish(key, m, err, ReasonRemoved)
}

// mutationContext detaches a server call from the caller's cancellation.
func (s *Store) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
}

// Clear drops all local state after a completed checkout. Responses still in flight land on
// the discarded state and are ignored.
func (s *Store) Clear() {
	s.mu.Lock()
	s.epoch++
	s.loadGen++
	s.lines = nil
	s.seqs = make(map[domain.LineKey]*lineSeq)
	snap := s.snapshotLocked(ReasonCleared)
	s.mu.Unlock()
	s.notify(snap)
}

// Lines returns a copy of the current lines, optimistic values included.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Line returns a copy of one line.
func (s *Store) Line(key domain.LineKey) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(key)
	if idx < 0 {
		return domain.CartLine{}, false
	}
	return s.lines[idx].Clone(), true
}

// ItemCount is the sum of quantities, as shown on the cart badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Totals derives the order totals of the current lines.
func (s *Store) Totals(shipping float64) pricing.Totals {
	return pricing.Compute(s.Lines(), shipping, 0)
}

// Subscribe registers fn for committed changes. fn runs synchronously on the goroutine that
// committed the change and must not call back into the store's mutating methods.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Snapshot), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(Snapshot{Reason: snap.Reason, Lines: cloneLines(snap.Lines)})
	}
}

func (s *Store) snapshotLocked(reason Reason) Snapshot {
	return Snapshot{Reason: reason, Lines: cloneLines(s.lines)}
}

func (s *Store) indexLocked(key domain.LineKey) int {
	for i, l := range s.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}
