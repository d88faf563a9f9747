package listview

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounce_OnlyFinalValueCommits(t *testing.T) {
	var commits atomic.Int32
	f := NewDebouncedFilter(100*time.Millisecond, func(string) { commits.Add(1) })
	defer f.Close()

	// Edits inside the quiet window supersede each other.
	f.Update("12345")
	time.Sleep(20 * time.Millisecond)
	f.Update("123456")

	waitFor(t, 2*time.Second, func() bool { return commits.Load() == 1 })

	if got := f.Committed(); got != "123456" {
		t.Errorf("committed = %q, want final value %q", got, "123456")
	}
	// No second commit ever fires for the superseded value.
	time.Sleep(200 * time.Millisecond)
	if commits.Load() != 1 {
		t.Errorf("expected exactly one commit, got %d", commits.Load())
	}
}

func TestDebounce_StableInputCommits(t *testing.T) {
	f := NewDebouncedFilter(20*time.Millisecond, nil)
	defer f.Close()

	f.Update("ana")
	waitFor(t, 2*time.Second, func() bool { return f.Committed() == "ana" })

	if f.Raw() != "ana" {
		t.Errorf("raw = %q, want %q", f.Raw(), "ana")
	}
}

func TestDebounce_CloseCancelsPendingCommit(t *testing.T) {
	var commits atomic.Int32
	f := NewDebouncedFilter(50*time.Millisecond, func(string) { commits.Add(1) })

	f.Update("pendiente")
	f.Close()

	time.Sleep(150 * time.Millisecond)
	if commits.Load() != 0 {
		t.Error("commit fired after Close")
	}
	if f.Committed() != "" {
		t.Errorf("committed = %q after Close, want empty", f.Committed())
	}

	f.Update("ignorado")
	time.Sleep(100 * time.Millisecond)
	if f.Committed() != "" {
		t.Error("updates after Close must be ignored")
	}
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
		want   bool
	}{
		{"empty matches all", "", []string{"x"}, true},
		{"whitespace matches all", "   ", []string{"x"}, true},
		{"case-insensitive", "ANA", []string{"Ana Rojas"}, true},
		{"substring on any field", "9876", []string{"Ana", "CC 98765"}, true},
		{"no field matches", "zzz", []string{"Ana", "98765"}, false},
		{"no fields", "ana", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchQuery(tt.query, tt.fields...); got != tt.want {
				t.Errorf("MatchQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
