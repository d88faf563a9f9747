package listview

import "sync"

// Store holds the canonical item list of one view. Fetches are issued
// with a monotonically increasing sequence number; a result is applied
// only when its sequence is the latest issued, so a slow response can
// never overwrite fresher state. The item slice is replaced atomically,
// never patched in place.
type Store[T any] struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	items   []T
}

// Begin issues the sequence number for a new fetch.
func (s *Store[T]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Apply installs a fetched batch. It reports false, leaving state
// untouched, when seq is not the latest issued sequence.
func (s *Store[T]) Apply(seq uint64, items []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		return false
	}
	s.applied = seq
	s.items = items
	return true
}

// Append adds one item locally, for low-latency feedback on pushed live
// events. The next authoritative Apply supersedes it.
func (s *Store[T]) Append(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// Items returns a copy of the current list.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]T, len(s.items))
	copy(cp, s.items)
	return cp
}

// Len returns the current item count.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
