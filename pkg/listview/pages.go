// Package listview implements the list view-model engine shared by every
// admin screen: pagination tracking, debounced free-text filtering, column
// projection, per-item busy markers and a sequence-gated item store that
// discards stale fetch results.
package listview

// Meta carries the pagination metadata block of a list response.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Pages tracks the pagination and filter state of one list view.
// Navigation is clamped client-side; the server is never trusted to
// enforce page bounds. Navigation availability is computed, not stored.
type Pages struct {
	page     int
	perPage  int
	lastPage int
	total    int
	loading  bool

	filters    map[string]string
	searchKeys map[string]struct{}
}

// NewPages creates a tracker starting at page 1. Filter keys listed in
// searchKeys are treated as free-text search: changing them does not
// reset the page.
func NewPages(perPage int, searchKeys ...string) *Pages {
	if perPage <= 0 {
		perPage = 10
	}
	sk := make(map[string]struct{}, len(searchKeys))
	for _, k := range searchKeys {
		sk[k] = struct{}{}
	}
	return &Pages{
		page:       1,
		perPage:    perPage,
		lastPage:   1,
		filters:    make(map[string]string),
		searchKeys: sk,
	}
}

// SetFilter merges one filter field. Any change to a non-search field
// resets the page to 1, because the result set it addresses has changed.
// It reports whether a refetch is needed.
func (p *Pages) SetFilter(key, value string) bool {
	if p.filters[key] == value {
		return false
	}
	if value == "" {
		delete(p.filters, key)
	} else {
		p.filters[key] = value
	}
	if _, isSearch := p.searchKeys[key]; !isSearch {
		p.page = 1
	}
	return true
}

// GoTo navigates to page n, clamped to [1, lastPage]. It reports whether
// the page actually changed; a no-op must not trigger a refetch.
func (p *Pages) GoTo(n int) bool {
	if n < 1 {
		n = 1
	}
	if n > p.lastPage {
		n = p.lastPage
	}
	if n == p.page {
		return false
	}
	p.page = n
	return true
}

// ApplyMeta records the pagination metadata of the latest response.
// Servers that omit the block get lastPage=1 and total=batchLen.
func (p *Pages) ApplyMeta(m *Meta, batchLen int) {
	if m == nil {
		p.lastPage = 1
		p.total = batchLen
		return
	}
	if m.LastPage >= 1 {
		p.lastPage = m.LastPage
	} else {
		p.lastPage = 1
	}
	if m.Total >= 0 && (m.Total > 0 || m.LastPage >= 1) {
		p.total = m.Total
	} else {
		p.total = batchLen
	}
	if p.page > p.lastPage {
		p.page = p.lastPage
	}
}

// SetLoading flips the loading flag that gates navigation.
func (p *Pages) SetLoading(on bool) { p.loading = on }

// Loading reports whether a fetch is in flight.
func (p *Pages) Loading() bool { return p.loading }

// CanPrev reports whether backward navigation is currently available.
func (p *Pages) CanPrev() bool { return p.page > 1 && !p.loading }

// CanNext reports whether forward navigation is currently available.
func (p *Pages) CanNext() bool { return p.page < p.lastPage && !p.loading }

// Page returns the current page, always >= 1.
func (p *Pages) Page() int { return p.page }

// PerPage returns the configured page size.
func (p *Pages) PerPage() int { return p.perPage }

// LastPage returns the last known page, always >= 1.
func (p *Pages) LastPage() int { return p.lastPage }

// Total returns the last known total row count.
func (p *Pages) Total() int { return p.total }

// Filter returns the current value of one filter field.
func (p *Pages) Filter(key string) string { return p.filters[key] }

// Filters returns a copy of the active filter fields.
func (p *Pages) Filters() map[string]string {
	cp := make(map[string]string, len(p.filters))
	for k, v := range p.filters {
		cp[k] = v
	}
	return cp
}
