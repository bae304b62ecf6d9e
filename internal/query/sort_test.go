package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/atlekbai/query_forge/internal/schema"
)

func TestCompileSorts(t *testing.T) {
	tests := []struct {
		name    string
		target  schema.Target
		pro     bool
		want    []SortKey
		metaKey string
	}{
		{
			name: "defaults",
			want: []SortKey{{SortDate, true}},
		},
		{
			name:   "asc primary",
			target: schema.Target{OrderBy: "title", Order: "asc"},
			want:   []SortKey{{SortTitle, false}},
		},
		{
			name:   "unknown field falls back to date",
			target: schema.Target{OrderBy: "popularity", Order: "sideways"},
			want:   []SortKey{{SortDate, true}},
		},
		{
			name:   "gated sort restricted",
			target: schema.Target{OrderBy: "rand"},
			want:   []SortKey{{SortDate, true}},
		},
		{
			name:   "gated sort pro",
			target: schema.Target{OrderBy: "menu_order", Order: "ASC"},
			pro:    true,
			want:   []SortKey{{SortMenuOrder, false}},
		},
		{
			name:    "meta key from target",
			target:  schema.Target{OrderBy: "meta_value_num", MetaKey: "price"},
			pro:     true,
			want:    []SortKey{{SortMetaValueNum, true}},
			metaKey: "price",
		},
		{
			name: "meta key from first secondary sort",
			target: schema.Target{OrderBy: "meta_value", Sorts: []schema.Sort{
				{Field: "title", Direction: "ASC", MetaKey: "rank"},
			}},
			pro:     true,
			want:    []SortKey{{SortMetaValue, true}, {SortTitle, false}},
			metaKey: "rank",
		},
		{
			name:   "meta sort without key is dropped",
			target: schema.Target{OrderBy: "meta_value", Sorts: []schema.Sort{{Field: "ID"}}},
			pro:    true,
			want:   []SortKey{{SortID, true}},
		},
		{
			name: "secondary sorts dedupe and skip unknown",
			target: schema.Target{OrderBy: "date", Order: "DESC", Sorts: []schema.Sort{
				{Field: "title", Direction: "ASC"},
				{Field: "bogus"},
				{Field: "date", Direction: "ASC"},
			}},
			want: []SortKey{{SortDate, false}, {SortTitle, false}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, metaKey := CompileSorts(tt.target, tt.pro)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("sorts mismatch (-want +got):\n%s", diff)
			}
			if metaKey != tt.metaKey {
				t.Errorf("metaKey = %q, want %q", metaKey, tt.metaKey)
			}
		})
	}
}
