package query

import (
	"strings"

	"github.com/atlekbai/query_forge/internal/schema"
)

type SortField string

const (
	SortID           SortField = "ID"
	SortTitle        SortField = "title"
	SortDate         SortField = "date"
	SortModified     SortField = "modified"
	SortMenuOrder    SortField = "menu_order"
	SortRand         SortField = "rand"
	SortMetaValue    SortField = "meta_value"
	SortMetaValueNum SortField = "meta_value_num"
	SortCommentCount SortField = "comment_count"
)

var sortFields = map[SortField]bool{
	SortID: true, SortTitle: true, SortDate: true, SortModified: true,
	SortMenuOrder: true, SortRand: true, SortMetaValue: true,
	SortMetaValueNum: true, SortCommentCount: true,
}

var gatedSorts = map[SortField]bool{
	SortRand: true, SortMenuOrder: true, SortMetaValue: true, SortMetaValueNum: true,
}

type SortKey struct {
	Field SortField
	Desc  bool
}

func (f SortField) IsMeta() bool { return f == SortMetaValue || f == SortMetaValueNum }

// CompileSorts returns the primary sort followed by the secondary sorts, at
// most one key per field, and the attribute key that meta_value sorts use.
func CompileSorts(t schema.Target, pro bool) ([]SortKey, string) {
	primary := SortKey{Field: SortDate, Desc: true}
	if t.OrderBy != "" {
		primary.Field = sortField(t.OrderBy, pro)
	}
	if t.Order != "" {
		primary.Desc = !strings.EqualFold(t.Order, "ASC")
	}

	var metaKey string
	if primary.Field.IsMeta() {
		metaKey = t.MetaKey
		if metaKey == "" && len(t.Sorts) > 0 {
			metaKey = t.Sorts[0].MetaKey
		}
	}

	keys := []SortKey{primary}
	pos := map[SortField]int{primary.Field: 0}
	for _, s := range t.Sorts {
		if !sortFields[SortField(s.Field)] {
			continue
		}
		f := sortField(s.Field, pro)
		if f.IsMeta() && s.MetaKey != "" {
			metaKey = s.MetaKey
		}
		key := SortKey{Field: f, Desc: !strings.EqualFold(s.Direction, "ASC")}
		if i, ok := pos[f]; ok {
			keys[i] = key
			continue
		}
		pos[f] = len(keys)
		keys = append(keys, key)
	}

	if metaKey == "" {
		keys = dropMeta(keys)
	}
	return keys, metaKey
}

func sortField(raw string, pro bool) SortField {
	f := SortField(raw)
	if !sortFields[f] {
		return SortDate
	}
	if gatedSorts[f] && !pro {
		return SortDate
	}
	return f
}

func dropMeta(keys []SortKey) []SortKey {
	out := keys[:0]
	for _, k := range keys {
		if !k.Field.IsMeta() {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		out = append(out, SortKey{Field: SortDate, Desc: true})
	}
	return out
}
