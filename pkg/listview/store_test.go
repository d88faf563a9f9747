package listview

import "testing"

func TestStore_ApplyLatestSequence(t *testing.T) {
	var s Store[string]

	seq := s.Begin()
	if !s.Apply(seq, []string{"a", "b"}) {
		t.Fatal("latest sequence must apply")
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
}

func TestStore_StaleResponseDiscarded(t *testing.T) {
	var s Store[string]

	first := s.Begin()
	second := s.Begin()

	// The newer request returns first.
	if !s.Apply(second, []string{"fresh"}) {
		t.Fatal("newest sequence must apply")
	}
	// The slow, superseded response arrives afterwards.
	if s.Apply(first, []string{"stale"}) {
		t.Error("stale sequence must be discarded")
	}

	items := s.Items()
	if len(items) != 1 || items[0] != "fresh" {
		t.Errorf("items = %v, want [fresh]", items)
	}
}

func TestStore_AppendThenReloadSupersedes(t *testing.T) {
	var s Store[string]

	seq := s.Begin()
	s.Apply(seq, []string{"uno"})
	s.Append("pushed")
	if s.Len() != 2 {
		t.Fatalf("len after append = %d, want 2", s.Len())
	}

	// Authoritative reload replaces locally appended entries.
	seq = s.Begin()
	s.Apply(seq, []string{"uno", "dos"})
	items := s.Items()
	if len(items) != 2 || items[1] != "dos" {
		t.Errorf("reload must supersede local appends, got %v", items)
	}
}

func TestStore_ItemsReturnsCopy(t *testing.T) {
	var s Store[int]
	s.Apply(s.Begin(), []int{1, 2, 3})

	cp := s.Items()
	cp[0] = 99
	if s.Items()[0] != 1 {
		t.Error("Items() must return a copy")
	}
}
