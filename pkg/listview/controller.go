package listview

import (
	"context"
	"sync"
)

// FetchFunc loads one page of raw results for the current pagination and
// filter state and returns the mapped canonical items plus the server's
// pagination metadata (nil when the server omits it).
type FetchFunc[T any] func(ctx context.Context, page, perPage int, filters map[string]string) ([]T, *Meta, error)

// Controller binds a Pages tracker, a sequence-gated Store and a fetch
// function into the standard list view-model loop: state change ->
// fetch -> atomic replace. A view is either loading, showing an error or
// showing data; the three are mutually exclusive.
type Controller[T any] struct {
	mu      sync.Mutex
	pages   *Pages
	store   Store[T]
	fetch   FetchFunc[T]
	lastErr error
}

// NewController creates a controller around an existing tracker.
func NewController[T any](pages *Pages, fetch FetchFunc[T]) *Controller[T] {
	return &Controller[T]{pages: pages, fetch: fetch}
}

// Reload fetches the current page from the server. Stale responses
// (superseded by a newer Reload) are discarded without touching state.
func (c *Controller[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	seq := c.store.Begin()
	c.pages.SetLoading(true)
	c.lastErr = nil
	page, perPage, filters := c.pages.Page(), c.pages.PerPage(), c.pages.Filters()
	c.mu.Unlock()

	items, meta, err := c.fetch(ctx, page, perPage, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages.SetLoading(false)
	if err != nil {
		c.lastErr = err
		return err
	}
	if !c.store.Apply(seq, items) {
		return nil
	}
	c.pages.ApplyMeta(meta, len(items))
	return nil
}

// GoTo navigates to page n and reloads. Clamped; a no-op navigation
// triggers no fetch.
func (c *Controller[T]) GoTo(ctx context.Context, n int) error {
	c.mu.Lock()
	changed := c.pages.GoTo(n)
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Reload(ctx)
}

// SetFilter merges one filter field and reloads when it changed.
func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) error {
	c.mu.Lock()
	changed := c.pages.SetFilter(key, value)
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Reload(ctx)
}

// Items returns a copy of the current canonical list.
func (c *Controller[T]) Items() []T { return c.store.Items() }

// Append adds one item locally ahead of the next authoritative reload.
func (c *Controller[T]) Append(item T) { c.store.Append(item) }

// Pages exposes the pagination tracker for rendering.
func (c *Controller[T]) Pages() *Pages { return c.pages }

// Err returns the error of the last reload, nil after a success or while
// loading.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
