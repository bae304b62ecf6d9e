package store

import (
	"fmt"
	"regexp"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/query_forge/internal/fragment"
	"github.com/atlekbai/query_forge/internal/query"
)

const (
	attrAlias = "_a"
	termAlias = "_t"
	linkAlias = "_rt"
)

// casts maps value type hints to the Postgres type attribute values are
// compared as. Types without an entry compare as text.
var casts = map[query.ValueType]string{
	query.TypeNumeric:  "numeric",
	query.TypeDecimal:  "numeric",
	query.TypeSigned:   "bigint",
	query.TypeUnsigned: "bigint",
	query.TypeDate:     "date",
	query.TypeDatetime: "timestamp",
}

// datePattern matches calendar dates only, leap days included, so the
// guarded cast cannot fail on an impossible day or on year zero.
const (
	yearPattern     = `([0-9]{3}[1-9]|[0-9]{2}[1-9]0|[0-9][1-9]00|[1-9]000)`
	leapYearPattern = `([0-9]{2}(0[48]|[2468][048]|[13579][26])|(0[48]|[2468][048]|[13579][26])00)`
	datePattern     = `(` + yearPattern + `-((0[13578]|1[02])-(0[1-9]|[12][0-9]|3[01])|(0[469]|11)-(0[1-9]|[12][0-9]|30)|02-(0[1-9]|1[0-9]|2[0-8]))|` +
		leapYearPattern + `-02-29)`
)

// castPatterns are the shapes a value must have before it is cast. The same
// pattern guards the column in SQL and checks parameters in Go, so a stray
// value never reaches a failing cast. Patterns use {0,1} rather than ? since
// every ? in the statement becomes a placeholder.
var castPatterns = map[string]string{
	"numeric":   `^\s*[-+]{0,1}([0-9]+(\.[0-9]*){0,1}|\.[0-9]+)\s*$`,
	"bigint":    `^\s*[-+]{0,1}[0-9]{1,18}\s*$`,
	"date":      `^\s*` + datePattern + `\s*$`,
	"timestamp": `^\s*` + datePattern + `([ T]([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9](\.[0-9]+){0,1}){0,1}){0,1}\s*$`,
}

var castMatchers = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(castPatterns))
	for typ, pattern := range castPatterns {
		out[typ] = regexp.MustCompile(pattern)
	}
	return out
}()

// castColumn casts a stored value, yielding NULL for values that do not
// have the type's shape.
func castColumn(expr string, t query.ValueType) string {
	c, ok := casts[t]
	if !ok {
		return expr
	}
	return fmt.Sprintf("CASE WHEN %s ~ '%s' THEN (%s)::%s END", expr, castPatterns[c], expr, c)
}

func castParam(expr string, t query.ValueType) string {
	if c, ok := casts[t]; ok {
		return fmt.Sprintf("(%s)::%s", expr, c)
	}
	return expr
}

// castable reports whether every value can be cast to the type of t.
func castable(t query.ValueType, values []string) bool {
	c, ok := casts[t]
	if !ok {
		return true
	}
	for _, v := range values {
		if !castMatchers[c].MatchString(v) {
			return false
		}
	}
	return true
}

// attrCondition translates an attribute tree into EXISTS sub-queries over
// the attribute table.
func attrCondition(n *query.AttrNode) sq.Sqlizer {
	if n == nil {
		return nil
	}
	if n.Clause != nil {
		return attrClause(n.Clause)
	}
	var parts []sq.Sqlizer
	for _, c := range n.Children {
		if s := attrCondition(c); s != nil {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	if n.Relation == "OR" {
		return sq.Or(parts)
	}
	return sq.And(parts)
}

func attrClause(c *query.AttrClause) sq.Sqlizer {
	base := fmt.Sprintf(`SELECT 1 FROM "content"."record_attributes" %s WHERE %s = %s AND %s = ?`,
		attrAlias, col(attrAlias, "record_id"), col(recAlias, "id"), col(attrAlias, "key"))

	if c.Operator == query.OpNotExists {
		return sq.Expr("NOT EXISTS ("+base+")", c.Key)
	}
	if c.Operator == query.OpExists {
		return sq.Expr("EXISTS ("+base+")", c.Key)
	}

	// A value that cannot be cast matches nothing, as a NULL comparison would.
	if !castable(c.Type, c.Values) && c.Operator != query.OpLike && c.Operator != query.OpNotLike {
		return sq.Expr("FALSE")
	}

	value := castColumn(col(attrAlias, "value"), c.Type)
	param := castParam("?::text", c.Type)

	var (
		cmp  string
		args = []any{c.Key}
	)
	switch c.Operator {
	case query.OpLike, query.OpNotLike:
		cmp = fmt.Sprintf("%s %s ?", col(attrAlias, "value"), c.Operator)
		args = append(args, "%"+fragment.EscapeLike(c.Values[0])+"%")
	case query.OpIn, query.OpNotIn:
		arr := "?::text[]"
		if t, ok := casts[c.Type]; ok {
			arr = fmt.Sprintf("(?::text[])::%s[]", t)
		}
		if c.Operator == query.OpIn {
			cmp = fmt.Sprintf("%s = ANY(%s)", value, arr)
		} else {
			cmp = fmt.Sprintf("%s <> ALL(%s)", value, arr)
		}
		args = append(args, c.Values)
	case query.OpBetween:
		cmp = fmt.Sprintf("%s BETWEEN %s AND %s", value, param, param)
		args = append(args, c.Values[0], c.Values[1])
	default:
		cmp = fmt.Sprintf("%s %s %s", value, c.Operator, param)
		args = append(args, c.Values[0])
	}
	return sq.Expr("EXISTS ("+base+" AND "+cmp+")", args...)
}

// taxCondition translates a taxonomy node into term membership sub-queries.
func taxCondition(n *query.TaxNode) sq.Sqlizer {
	if n == nil || len(n.Clauses) == 0 {
		return nil
	}
	parts := make([]sq.Sqlizer, 0, len(n.Clauses))
	for _, c := range n.Clauses {
		parts = append(parts, taxClause(c))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	if n.Relation == "OR" {
		return sq.Or(parts)
	}
	return sq.And(parts)
}

func taxClause(c query.TaxClause) sq.Sqlizer {
	base := fmt.Sprintf(`SELECT 1 FROM "content"."record_terms" %s JOIN "content"."terms" %s ON %s = %s WHERE %s = %s AND %s = ?`,
		linkAlias, termAlias, col(termAlias, "id"), col(linkAlias, "term_id"),
		col(linkAlias, "record_id"), col(recAlias, "id"), col(termAlias, "taxonomy"))

	switch c.Operator {
	case query.OpExists:
		return sq.Expr("EXISTS ("+base+")", c.Taxonomy)
	case query.OpNotExists:
		return sq.Expr("NOT EXISTS ("+base+")", c.Taxonomy)
	}

	match, terms := termMatch(c)
	switch c.Operator {
	case query.OpNotIn:
		return sq.Expr("NOT EXISTS ("+base+" AND "+match+")", c.Taxonomy, terms)
	case query.OpAnd:
		counted := fmt.Sprintf(`(SELECT count(DISTINCT %s) FROM "content"."record_terms" %s JOIN "content"."terms" %s ON %s = %s WHERE %s = %s AND %s = ? AND %s) = ?`,
			col(termAlias, "id"), linkAlias, termAlias, col(termAlias, "id"), col(linkAlias, "term_id"),
			col(linkAlias, "record_id"), col(recAlias, "id"), col(termAlias, "taxonomy"), match)
		return sq.Expr(counted, c.Taxonomy, terms, len(c.Terms))
	}
	return sq.Expr("EXISTS ("+base+" AND "+match+")", c.Taxonomy, terms)
}

func termMatch(c query.TaxClause) (string, any) {
	switch c.Field {
	case query.TermBySlug:
		return col(termAlias, "slug") + " = ANY(?)", c.Terms
	case query.TermByName:
		return col(termAlias, "name") + " = ANY(?)", c.Terms
	}
	ids := make([]int64, 0, len(c.Terms))
	for _, t := range c.Terms {
		if id, err := strconv.ParseInt(t, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return col(termAlias, "id") + " = ANY(?)", ids
}
