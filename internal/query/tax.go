package query

import (
	"github.com/atlekbai/query_forge/internal/schema"
)

type TermField string

const (
	TermByID   TermField = "term_id"
	TermBySlug TermField = "slug"
	TermByName TermField = "name"
)

// TaxClause matches records by their terms in one taxonomy.
type TaxClause struct {
	Taxonomy string
	Field    TermField
	Terms    []string
	Operator Operator
}

// TaxNode is either one clause or a group of two or more clauses.
type TaxNode struct {
	Relation string
	Clauses  []TaxClause
}

var taxOps = map[Operator]bool{
	OpIn: true, OpNotIn: true, OpAnd: true, OpExists: true, OpNotExists: true,
}

// CompileTax builds the taxonomy constraint. A single clause is returned as
// a one-clause node without a relation.
func CompileTax(tf schema.TaxFilter, pro bool) *TaxNode {
	var clauses []TaxClause
	for _, c := range tf.Clauses {
		op := ParseOperator(c.Operator)
		if c.Operator == "" || !taxOps[op] {
			op = OpIn
		}
		field := TermField(c.Field)
		switch field {
		case TermBySlug, TermByName:
		default:
			field = TermByID
		}
		terms := c.Terms
		if field == TermByID {
			terms = terms[:0:0]
			for _, id := range schema.ParseIDList(toAny(c.Terms)) {
				terms = append(terms, schema.String(id))
			}
		}
		if len(terms) == 0 && !op.TakesNoValue() {
			continue
		}
		clauses = append(clauses, TaxClause{Taxonomy: c.Taxonomy, Field: field, Terms: terms, Operator: op})
	}

	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return &TaxNode{Clauses: clauses}
	}
	return &TaxNode{Relation: Relation(tf.Relation, pro), Clauses: clauses}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
