package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/query_forge/internal/query"
)

func TestAttrClauseOperators(t *testing.T) {
	const prefix = `EXISTS (SELECT 1 FROM "content"."record_attributes" _a WHERE _a."record_id" = _r."id" AND _a."key" = ? AND `

	tests := []struct {
		name     string
		clause   query.AttrClause
		wantSQL  string
		wantArgs []any
	}{
		{
			"text equality",
			query.AttrClause{Key: "color", Operator: query.OpEq, Values: []string{"red"}},
			prefix + `_a."value" = ?::text)`,
			[]any{"color", "red"},
		},
		{
			"like escapes wildcards",
			query.AttrClause{Key: "code", Operator: query.OpLike, Values: []string{"a_b"}},
			prefix + `_a."value" LIKE ?)`,
			[]any{"code", `%a\_b%`},
		},
		{
			"not in numeric",
			query.AttrClause{Key: "size", Operator: query.OpNotIn, Values: []string{"1", "2"}, Type: query.TypeSigned},
			prefix + `CASE WHEN _a."value" ~ '` + castPatterns["bigint"] + `' THEN (_a."value")::bigint END <> ALL((?::text[])::bigint[]))`,
			[]any{"size", []string{"1", "2"}},
		},
		{
			"numeric comparison guards the column",
			query.AttrClause{Key: "price", Operator: query.OpGt, Values: []string{"10"}, Type: query.TypeNumeric},
			prefix + `CASE WHEN _a."value" ~ '^\s*[-+]{0,1}([0-9]+(\.[0-9]*){0,1}|\.[0-9]+)\s*$' THEN (_a."value")::numeric END > (?::text)::numeric)`,
			[]any{"price", "10"},
		},
		{
			"between dates",
			query.AttrClause{Key: "event", Operator: query.OpBetween, Values: []string{"2024-01-01", "2024-02-01"}, Type: query.TypeDate},
			prefix + `CASE WHEN _a."value" ~ '` + castPatterns["date"] + `' THEN (_a."value")::date END BETWEEN (?::text)::date AND (?::text)::date)`,
			[]any{"event", "2024-01-01", "2024-02-01"},
		},
		{
			"uncastable value matches nothing",
			query.AttrClause{Key: "price", Operator: query.OpGt, Values: []string{"cheap"}, Type: query.TypeNumeric},
			`FALSE`,
			nil,
		},
		{
			"like ignores the type",
			query.AttrClause{Key: "price", Operator: query.OpLike, Values: []string{"cheap"}, Type: query.TypeNumeric},
			prefix + `_a."value" LIKE ?)`,
			[]any{"price", "%cheap%"},
		},
		{
			"char keeps text",
			query.AttrClause{Key: "name", Operator: query.OpNeq, Values: []string{"x"}, Type: query.TypeChar},
			prefix + `_a."value" != ?::text)`,
			[]any{"name", "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := attrClause(&tt.clause).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCastable(t *testing.T) {
	tests := []struct {
		typ    query.ValueType
		values []string
		want   bool
	}{
		{query.TypeNumeric, []string{"10", "-1.5", " .5 ", "+3."}, true},
		{query.TypeNumeric, []string{"1.2.3"}, false},
		{query.TypeNumeric, []string{"-"}, false},
		{query.TypeDecimal, []string{""}, false},
		{query.TypeSigned, []string{"42", "-7"}, true},
		{query.TypeUnsigned, []string{"4.2"}, false},
		{query.TypeSigned, []string{"1234567890123456789"}, false},
		{query.TypeDate, []string{"2024-02-29", "2000-02-29", "2023-12-31"}, true},
		{query.TypeDate, []string{"2023-02-29"}, false},
		{query.TypeDate, []string{"1900-02-29"}, false},
		{query.TypeDate, []string{"2024-04-31"}, false},
		{query.TypeDate, []string{"0000-01-01"}, false},
		{query.TypeDate, []string{"tomorrow"}, false},
		{query.TypeDatetime, []string{"2024-05-01 10:30", "2024-05-01T23:59:59.5", "2024-05-01"}, true},
		{query.TypeDatetime, []string{"2024-05-01 24:00"}, false},
		{query.TypeChar, []string{"anything"}, true},
		{"", []string{"anything"}, true},
	}
	for _, tt := range tests {
		if got := castable(tt.typ, tt.values); got != tt.want {
			t.Errorf("castable(%q, %q) = %v, want %v", tt.typ, tt.values, got, tt.want)
		}
	}
}

func TestAttrConditionNil(t *testing.T) {
	assert.Nil(t, attrCondition(nil))
	assert.Nil(t, attrCondition(&query.AttrNode{Relation: "AND"}))
}

func TestTaxClauseOperators(t *testing.T) {
	tests := []struct {
		name     string
		clause   query.TaxClause
		contains string
		wantArgs []any
	}{
		{
			"slug not in",
			query.TaxClause{Taxonomy: "tag", Field: query.TermBySlug, Terms: []string{"go"}, Operator: query.OpNotIn},
			`NOT EXISTS (SELECT 1 FROM "content"."record_terms" _rt`,
			[]any{"tag", []string{"go"}},
		},
		{
			"all terms",
			query.TaxClause{Taxonomy: "tag", Field: query.TermByID, Terms: []string{"1", "2"}, Operator: query.OpAnd},
			`(SELECT count(DISTINCT _t."id") FROM`,
			[]any{"tag", []int64{1, 2}, 2},
		},
		{
			"exists",
			query.TaxClause{Taxonomy: "tag", Operator: query.OpExists},
			`EXISTS (SELECT 1 FROM "content"."record_terms" _rt JOIN "content"."terms" _t ON _t."id" = _rt."term_id" WHERE _rt."record_id" = _r."id" AND _t."taxonomy" = ?)`,
			[]any{"tag"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := taxClause(tt.clause).ToSql()
			require.NoError(t, err)
			assert.Contains(t, sql, tt.contains)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestTaxConditionRelation(t *testing.T) {
	n := &query.TaxNode{Relation: "OR", Clauses: []query.TaxClause{
		{Taxonomy: "a", Field: query.TermByName, Terms: []string{"x"}, Operator: query.OpIn},
		{Taxonomy: "b", Field: query.TermByName, Terms: []string{"y"}, Operator: query.OpIn},
	}}
	sql, _, err := taxCondition(n).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, `) OR EXISTS (`)
}
