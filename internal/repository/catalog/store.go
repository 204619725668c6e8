// Package catalog holds the process-wide in-memory product index.
package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/artomart/craftsearch/internal/domain"
)

// Stats summarizes the index contents.
type Stats struct {
	Products    int
	Vectors     int
	LastIndexed time.Time
}

type slot struct {
	entry domain.Entry
	seq   uint64 // first insertion order; kept on overwrite
}

// Store maps product ids to indexed entries. It owns its entries: Put and Get
// copy them, so no caller can reach stored slices.
type Store struct {
	mu      sync.RWMutex
	entries map[string]slot
	next    uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]slot)}
}

// Put inserts or replaces the entry for e.Product.ID.
// A replaced entry keeps its original position in snapshots.
func (s *Store) Put(e domain.Entry) {
	c := e.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[c.Product.ID]; ok {
		s.entries[c.Product.ID] = slot{entry: c, seq: old.seq}
		return
	}
	s.entries[c.Product.ID] = slot{entry: c, seq: s.next}
	s.next++
}

// Get returns a copy of the entry for id.
func (s *Store) Get(id string) (domain.Entry, bool) {
	s.mu.RLock()
	sl, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Entry{}, false
	}
	return sl.entry.Clone(), true
}

// Snapshot returns every entry in first-insertion order, so equal search
// scores rank the earlier indexed product first. The entries share their
// slices with the store and must be treated as read-only; results handed
// out of the engine are cloned from them.
func (s *Store) Snapshot() []domain.Entry {
	s.mu.RLock()
	slots := make([]slot, 0, len(s.entries))
	for _, sl := range s.entries {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })
	out := make([]domain.Entry, len(slots))
	for i := range slots {
		out[i] = slots[i].entry
	}
	return out
}

// Len returns the number of indexed products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry and restarts insertion order.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]slot)
	s.next = 0
}

// Stats returns product and vector counts and the latest index time.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Products: len(s.entries)}
	for _, sl := range s.entries {
		st.Vectors += sl.entry.VectorCount()
		if sl.entry.IndexedAt.After(st.LastIndexed) {
			st.LastIndexed = sl.entry.IndexedAt
		}
	}
	return st
}
