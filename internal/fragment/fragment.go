// Package fragment keeps the custom JOIN and WHERE fragments that record
// queries carry. Fragments live in a shared, reference counted registry and
// are held by per-execution leases.
package fragment

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/schema"
)

var (
	joinSpace  = uuid.MustParse("6f1c2a8e-4b7d-5c1e-9a3f-0d2e4b6c8a10")
	whereSpace = uuid.MustParse("9b3e5d7f-1a2c-5e4b-8d6f-2c4e6a8b0d12")
)

// JoinSpec is a LEFT JOIN onto the primary record table. All four parts are
// sanitized identifiers.
type JoinSpec struct {
	Table string
	Alias string
	Left  string
	Right string
}

// NewJoin sanitizes each part of j. ok is false when any part is empty
// after sanitizing, in which case the join must be dropped.
func NewJoin(j schema.Join) (spec JoinSpec, ok bool) {
	spec = JoinSpec{
		Table: schema.SanitizeIdent(j.Table),
		Alias: schema.SanitizeIdent(j.Alias),
		Left:  schema.SanitizeIdent(j.Left),
		Right: schema.SanitizeIdent(j.Right),
	}
	if spec.Alias == "" && strings.TrimSpace(j.Alias) == "" {
		spec.Alias = spec.Table
	}
	return spec, spec.Table != "" && spec.Alias != "" && spec.Left != "" && spec.Right != ""
}

// ID identifies the join by its sanitized parts.
func (j JoinSpec) ID() uuid.UUID {
	return uuid.NewSHA1(joinSpace, []byte(strings.Join([]string{j.Table, j.Alias, j.Left, j.Right}, "\x00")))
}

// SQL renders the join. Every identifier is sanitized again here; an empty
// result means the join is skipped.
func (j JoinSpec) SQL(prefix, primary string) string {
	table := schema.SanitizeIdent(prefix + j.Table)
	alias := schema.SanitizeIdent(j.Alias)
	left := schema.SanitizeIdent(j.Left)
	right := schema.SanitizeIdent(j.Right)
	if table == "" || alias == "" || left == "" || right == "" {
		return ""
	}
	return fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
		schema.QuoteIdent(table), schema.QuoteIdent(alias),
		primary, schema.QuoteIdent(left),
		schema.QuoteIdent(alias), schema.QuoteIdent(right))
}

// WhereSpec is a body text comparison. "=" and LIKE both mean the body
// contains the value.
type WhereSpec struct {
	Operator query.Operator
	Value    string
}

// NewWhere accepts the body comparisons a WHERE fragment can express.
func NewWhere(m query.BodyMatch) (WhereSpec, bool) {
	switch m.Operator {
	case query.OpEq, query.OpLike, query.OpNeq, query.OpNeqAlt, query.OpNotLike:
	default:
		return WhereSpec{}, false
	}
	if m.Value == "" {
		return WhereSpec{}, false
	}
	op := m.Operator
	if op == query.OpNeqAlt {
		op = query.OpNeq
	}
	return WhereSpec{Operator: op, Value: m.Value}, true
}

func (w WhereSpec) ID() uuid.UUID {
	return uuid.NewSHA1(whereSpace, []byte(string(w.Operator)+"\x00"+w.Value))
}

// Sqlizer renders the comparison against column with the value bound as a
// parameter.
func (w WhereSpec) Sqlizer(column string) sq.Sqlizer {
	switch w.Operator {
	case query.OpNeq:
		return sq.Expr(column+" != ?", w.Value)
	case query.OpNotLike:
		return sq.Expr(column+" NOT LIKE ?", "%"+EscapeLike(w.Value)+"%")
	default:
		return sq.Expr(column+" LIKE ?", "%"+EscapeLike(w.Value)+"%")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so value matches literally.
func EscapeLike(value string) string { return likeEscaper.Replace(value) }
