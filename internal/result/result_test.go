package result

import "testing"

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{ID: int64(i + 1)}
	}
	return out
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		name          string
		items, total  int
		perPage       int
		wantFound     int
		wantPageCount int
	}{
		{"empty", 0, 0, 10, 0, 1},
		{"exact pages", 10, 20, 10, 20, 2},
		{"partial page", 3, 21, 10, 21, 3},
		{"total falls back to count", 4, 0, 3, 4, 2},
		{"zero page size", 2, 5, 0, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(items(tt.items), tt.total, tt.perPage)
			if w.Total() != tt.wantFound {
				t.Errorf("Total = %d, want %d", w.Total(), tt.wantFound)
			}
			if w.PageCount() != tt.wantPageCount {
				t.Errorf("PageCount = %d, want %d", w.PageCount(), tt.wantPageCount)
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	w := Empty()
	if w.HasNext() {
		t.Error("HasNext true on empty result")
	}
	if w.Advance() != nil {
		t.Error("Advance returned an item on empty result")
	}
	if w.Total() != 0 || w.PageCount() != 1 || w.Count() != 0 {
		t.Errorf("Empty = total %d pages %d count %d", w.Total(), w.PageCount(), w.Count())
	}
}

func TestAdvancePastEnd(t *testing.T) {
	w := New(items(3), 3, 10)
	for i := 1; i <= 3; i++ {
		it := w.Advance()
		if it == nil || it.ID != int64(i) {
			t.Fatalf("Advance %d = %+v", i, it)
		}
	}
	if w.HasNext() {
		t.Error("HasNext true at last item")
	}
	for i := 0; i < 2; i++ {
		if w.Advance() != nil {
			t.Error("Advance past end returned an item")
		}
	}
	if w.Cursor() != 2 {
		t.Errorf("Cursor = %d, want 2", w.Cursor())
	}
	if w.Current().ID != 3 {
		t.Errorf("Current = %+v", w.Current())
	}
}

func TestReset(t *testing.T) {
	w := New(items(2), 0, 10)
	if w.Current() != nil {
		t.Error("Current before Advance")
	}
	w.Advance()
	w.Advance()
	w.Reset()
	if w.Cursor() != -1 || !w.HasNext() {
		t.Error("Reset did not rewind")
	}
	if it := w.Advance(); it.ID != 1 {
		t.Errorf("first item after Reset = %d", it.ID)
	}
}

func TestHasMore(t *testing.T) {
	w := New(items(5), 12, 5)
	if !w.HasMore(1) || !w.HasMore(2) || w.HasMore(3) {
		t.Error("HasMore mismatch")
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("one  two\nthree", 5); got != "one two three" {
		t.Errorf("Excerpt = %q", got)
	}
	if got := Excerpt("a b c d", 2); got != "a b…" {
		t.Errorf("Excerpt = %q", got)
	}
}
