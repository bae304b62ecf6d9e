// Package result holds the uniform paged result every source returns.
package result

import (
	"strings"
	"time"
)

// Item is one result row in the common shape shared by all sources.
type Item struct {
	ID      int64          `json:"id"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Excerpt string         `json:"excerpt"`
	OwnerID int64          `json:"owner_id"`
	Date    time.Time      `json:"date"`
	Raw     map[string]any `json:"raw,omitempty"`
}

// Wrapper pages over items with a cursor that starts before the first item.
type Wrapper struct {
	items     []Item
	found     int
	perPage   int
	pageCount int
	cursor    int
}

// New builds a Wrapper. When total is not positive the item count stands in
// for it. pageCount is ceil(found/perPage) and never below 1.
func New(items []Item, total, perPage int) *Wrapper {
	found := total
	if found <= 0 {
		found = len(items)
	}
	pages := 1
	if perPage > 0 && found > 0 {
		pages = (found + perPage - 1) / perPage
	}
	return &Wrapper{
		items:     items,
		found:     found,
		perPage:   perPage,
		pageCount: max(pages, 1),
		cursor:    -1,
	}
}

// Empty is the canonical empty result.
func Empty() *Wrapper { return New(nil, 0, defaultPerPage) }

const defaultPerPage = 10

func (w *Wrapper) Items() []Item  { return w.items }
func (w *Wrapper) Count() int     { return len(w.items) }
func (w *Wrapper) Total() int     { return w.found }
func (w *Wrapper) PerPage() int   { return w.perPage }
func (w *Wrapper) PageCount() int { return w.pageCount }
func (w *Wrapper) Cursor() int    { return w.cursor }

// HasNext reports whether Advance would return an item.
func (w *Wrapper) HasNext() bool { return w.cursor < len(w.items)-1 }

// Advance moves to the next item and returns it. Past the end it returns nil
// and leaves the cursor on the last item.
func (w *Wrapper) Advance() *Item {
	if !w.HasNext() {
		return nil
	}
	w.cursor++
	return &w.items[w.cursor]
}

// Current returns the item under the cursor, or nil before the first
// Advance.
func (w *Wrapper) Current() *Item {
	if w.cursor < 0 || w.cursor >= len(w.items) {
		return nil
	}
	return &w.items[w.cursor]
}

// Reset moves the cursor back before the first item.
func (w *Wrapper) Reset() { w.cursor = -1 }

// HasMore reports whether pages follow page.
func (w *Wrapper) HasMore(page int) bool { return page < w.pageCount }

// Excerpt returns the first n words of text, with an ellipsis when
// anything was cut.
func Excerpt(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
