package listview

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a mutating command is dispatched for an item
// that already has a command in flight.
var ErrBusy = errors.New("command already in flight for this item")

// BusySet tracks in-flight mutating commands per item identifier.
// Commands for different items may run concurrently; a second command
// for the same item is rejected until the first settles.
type BusySet struct {
	mu       sync.Mutex
	inflight map[int]struct{}
}

// NewBusySet creates an empty marker set.
func NewBusySet() *BusySet {
	return &BusySet{inflight: make(map[int]struct{})}
}

// Acquire marks id busy. It returns ErrBusy when a command for id is
// already in flight.
func (b *BusySet) Acquire(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inflight[id]; ok {
		return ErrBusy
	}
	b.inflight[id] = struct{}{}
	return nil
}

// Release clears the marker for id. Safe on ids that are not busy.
func (b *BusySet) Release(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, id)
}

// Busy reports whether a command for id is in flight.
func (b *BusySet) Busy(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inflight[id]
	return ok
}

// Idle reports whether no command is in flight at all.
func (b *BusySet) Idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inflight) == 0
}
