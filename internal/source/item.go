package source

import (
	"time"

	"github.com/araddon/dateparse"

	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
)

const (
	untitled     = "Untitled"
	excerptWords = 20
)

// fieldMap lists, per item field, the row keys tried in order.
type fieldMap struct {
	id, title, owner, date, content []string
}

var (
	tableFields = fieldMap{
		id:      []string{"id"},
		title:   []string{"title", "name"},
		owner:   []string{"author_id"},
		date:    []string{"created_at", "date"},
		content: []string{"content", "description"},
	}
	remoteFields = fieldMap{
		id:      []string{"id", "ID"},
		title:   []string{"title", "name"},
		owner:   []string{"author_id", "author"},
		date:    []string{"date", "created_at"},
		content: []string{"content", "description"},
	}
)

func first(row map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// mapItem fills the common shape from a loosely typed row.
func mapItem(row map[string]any, fields fieldMap, kind string, now time.Time) result.Item {
	it := result.Item{
		ID:      schema.Int(first(row, fields.id)),
		Type:    kind,
		Title:   schema.String(first(row, fields.title)),
		OwnerID: schema.Int(first(row, fields.owner)),
		Content: schema.String(first(row, fields.content)),
		Date:    now,
		Raw:     row,
	}
	if it.Title == "" {
		it.Title = untitled
	}
	switch d := first(row, fields.date).(type) {
	case time.Time:
		it.Date = d
	case string:
		if t, err := dateparse.ParseAny(d); err == nil {
			it.Date = t
		}
	}
	it.Excerpt = result.Excerpt(it.Content, excerptWords)
	return it
}

func rowItem(row map[string]any, kind string) result.Item {
	return mapItem(row, tableFields, kind, time.Now())
}
