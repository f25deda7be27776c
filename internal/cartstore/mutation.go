package cartstore

import "storefront-checkout/internal/domain"

// mutation is one optimistic change of a line: its sequence number and the line as it was
// before the change, which is what undo restores.
type mutation struct {
	seq    uint64
	epoch  uint64
	before domain.CartLine
	index  int
}

// lineSeq tracks the mutations issued against one line.
type lineSeq struct {
	issued    uint64
	succeeded uint64
	pending   map[uint64]*mutation
}

func (s *Store) beginLocked(key domain.LineKey, idx int) *mutation {
	ls, ok := s.seqs[key]
	if !ok {
		ls = &lineSeq{pending: make(map[uint64]*mutation)}
		s.seqs[key] = ls
	}
	ls.issued++
	m := &mutation{
		seq:    ls.issued,
		epoch:  s.epoch,
		before: s.lines[idx].Clone(),
		index:  idx,
	}
	ls.pending[m.seq] = m
	return m
}

func (s *Store) inFlightLocked(key domain.LineKey) bool {
	ls, ok := s.seqs[key]
	return ok && len(ls.pending) > 0
}

// finish settles mutation m once the server answered. On failure the line is restored only
// when no newer mutation of the line has succeeded or is still pending; when a newer one is
// pending it inherits m's pre-change state so its own rollback lands on the right value.
func (s *Store) finish(key domain.LineKey, m *mutation, callErr error, reason Reason) error {
	s.mu.Lock()
	ls, ok := s.seqs[key]
	if m.epoch != s.epoch || !ok {
		s.mu.Unlock()
		return callErr
	}
	delete(ls.pending, m.seq)

	if callErr == nil {
		if m.seq > ls.succeeded {
			ls.succeeded = m.seq
		}
		snap := s.snapshotLocked(reason)
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}

	if ls.succeeded > m.seq {
		s.mu.Unlock()
		return callErr
	}
	if next := ls.nextPending(m.seq); next != nil {
		next.before = m.before
		next.index = m.index
		s.mu.Unlock()
		return callErr
	}
	s.undoLocked(key, m)
	snap := s.snapshotLocked(ReasonRolledBack)
	s.mu.Unlock()
	s.notify(snap)
	return callErr
}

func (ls *lineSeq) nextPending(after uint64) *mutation {
	var next *mutation
	for seq, m := range ls.pending {
		if seq > after && (next == nil || seq < next.seq) {
			next = m
		}
	}
	return next
}

// undoLocked restores the pre-change quantity, keeping any catalog data merged since, or
// re-inserts a removed line near its old position.
func (s *Store) undoLocked(key domain.LineKey, m *mutation) {
	if idx := s.indexLocked(key); idx >= 0 {
		s.lines[idx].Quantity = m.before.Quantity
		return
	}
	pos := m.index
	if pos < 0 || pos > len(s.lines) {
		pos = len(s.lines)
	}
	s.lines = append(s.lines, domain.CartLine{})
	copy(s.lines[pos+1:], s.lines[pos:])
	s.lines[pos] = m.before.Clone()
}
