package listview

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// query is committed.
const DefaultDebounce = 200 * time.Millisecond

// DebouncedFilter buffers a free-text query and commits it only after the
// input has been stable for the full quiet window. Every update restarts
// the timer, so intermediate values never commit and a superseded commit
// is never applied out of order. The timer is the only scheduled resource
// the engine owns; Close cancels it.
type DebouncedFilter struct {
	mu        sync.Mutex
	window    time.Duration
	timer     *time.Timer
	raw       string
	committed string
	gen       uint64
	closed    bool
	onCommit  func(string)
}

// NewDebouncedFilter creates a filter with the given quiet window
// (DefaultDebounce when window <= 0). onCommit, if non-nil, runs each
// time a query commits.
func NewDebouncedFilter(window time.Duration, onCommit func(string)) *DebouncedFilter {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &DebouncedFilter{window: window, onCommit: onCommit}
}

// Update records a new raw query and (re)starts the quiet-period timer.
func (f *DebouncedFilter) Update(q string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.raw = q
	f.gen++
	gen := f.gen
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.window, func() { f.commit(gen) })
}

// commit applies the pending query if no newer update superseded it.
func (f *DebouncedFilter) commit(gen uint64) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.committed = f.raw
	cb := f.onCommit
	q := f.committed
	f.mu.Unlock()

	if cb != nil {
		cb(q)
	}
}

// Raw returns the latest, possibly uncommitted, query.
func (f *DebouncedFilter) Raw() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw
}

// Committed returns the last committed query.
func (f *DebouncedFilter) Committed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}

// Close cancels any pending commit. Further updates are ignored.
func (f *DebouncedFilter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// MatchQuery is the filtering predicate: a case-insensitive substring
// test ORed across the given fields. The empty query matches everything.
func MatchQuery(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
