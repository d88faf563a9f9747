package listview

import "fmt"

// Column describes one renderable column of a list: a stable key, a
// human label and an accessor producing the display string for an item.
type Column[T any] struct {
	Key   string
	Label string
	Value func(T) string
}

// ColumnSet is an ordered projection of base columns that always render
// plus optional columns the user can toggle on. Keys are unique across
// the whole set.
type ColumnSet[T any] struct {
	base     []Column[T]
	optional []Column[T]
	enabled  map[string]bool
}

// NewColumnSet builds a column set, rejecting duplicate keys.
func NewColumnSet[T any](base, optional []Column[T]) (*ColumnSet[T], error) {
	seen := make(map[string]struct{}, len(base)+len(optional))
	for _, c := range append(append([]Column[T]{}, base...), optional...) {
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("duplicate column key %q", c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return &ColumnSet[T]{
		base:     base,
		optional: optional,
		enabled:  make(map[string]bool),
	}, nil
}

// Toggle enables or disables an optional column. Unknown keys and base
// keys are ignored.
func (cs *ColumnSet[T]) Toggle(key string, on bool) {
	for _, c := range cs.optional {
		if c.Key == key {
			cs.enabled[key] = on
			return
		}
	}
}

// Active returns the base columns followed by the enabled optional
// columns, preserving declaration order.
func (cs *ColumnSet[T]) Active() []Column[T] {
	out := make([]Column[T], 0, len(cs.base)+len(cs.optional))
	out = append(out, cs.base...)
	for _, c := range cs.optional {
		if cs.enabled[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// Optional returns the toggleable columns.
func (cs *ColumnSet[T]) Optional() []Column[T] { return cs.optional }

// Project renders one item through the active columns, keyed by column.
func (cs *ColumnSet[T]) Project(item T) map[string]string {
	out := make(map[string]string)
	for _, c := range cs.Active() {
		out[c.Key] = c.Value(item)
	}
	return out
}
