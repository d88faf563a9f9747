// Package resolve extracts canonical field values from loosely typed API
// records. The backend has shipped several payload shapes for the same
// resources, so every field access goes through an ordered fallback chain
// of candidate key paths instead of a single key. Absence is data here,
// never an error: when no candidate resolves, the caller's fallback is
// returned.
package resolve

import (
	"strconv"
	"strings"
)

// Fallback is the sentinel used for fields that cannot be resolved.
const Fallback = "-"

// Lookup walks a dot-separated path ("profesional.especialidad") through
// nested map values. It returns false when any segment is missing or a
// non-map value is traversed.
func Lookup(rec map[string]any, path string) (any, bool) {
	cur := any(rec)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// First returns the first candidate path whose value resolves to a
// non-empty string, or fallback when none do.
func First(rec map[string]any, paths []string, fallback string) string {
	for _, p := range paths {
		v, ok := Lookup(rec, p)
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s
		}
	}
	return fallback
}

// IntOr resolves the first candidate path convertible to an integer.
// Identifiers arrive as JSON numbers (float64 after decoding) or as
// numeric strings depending on the endpoint version.
func IntOr(rec map[string]any, paths []string, fallback int) int {
	for _, p := range paths {
		v, ok := Lookup(rec, p)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
		}
	}
	return fallback
}

// BoolOr resolves the first candidate path carrying a boolean. String
// forms "true"/"false" are accepted because some endpoints serialize
// flags as strings.
func BoolOr(rec map[string]any, paths []string, fallback bool) bool {
	for _, p := range paths {
		v, ok := Lookup(rec, p)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if parsed, err := strconv.ParseBool(strings.ToLower(b)); err == nil {
				return parsed
			}
		}
	}
	return fallback
}

// JoinNonEmpty resolves every path and joins the non-empty results with
// sep. Used to compose a display name from split name parts. Returns ""
// when nothing resolves so callers can chain it behind First.
func JoinNonEmpty(rec map[string]any, paths []string, sep string) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		if v, ok := Lookup(rec, p); ok {
			if s := asString(v); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, sep)
}

// DatePart reduces a timestamp-ish string to its date portion:
// "2025-10-20T10:00:00" and "2025-10-20 10:00:00" both yield
// "2025-10-20". The fallback sentinel passes through untouched.
func DatePart(s string) string {
	if s == "" || s == Fallback {
		return Fallback
	}
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// ClockPart reduces a time-of-day string to HH:MM. Shorter strings and
// the fallback sentinel pass through untouched.
func ClockPart(s string) string {
	if s == "" || s == Fallback {
		return s
	}
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

// asString renders scalar JSON values. Maps, slices and nil yield ""
// so they never satisfy a fallback chain.
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
