package query

import (
	"fmt"
	"strings"

	"github.com/atlekbai/query_forge/internal/schema"
)

// AttrClause filters on one record attribute.
type AttrClause struct {
	Key      string
	Operator Operator
	Values   []string
	Type     ValueType
}

// AttrNode is a leaf when Clause is set, otherwise a group of two or more
// children joined by Relation.
type AttrNode struct {
	Relation string
	Children []*AttrNode
	Clause   *AttrClause
}

// CompileAttr turns an attribute clause tree into an AttrNode tree. In the
// restricted edition only the first compiled clause is kept.
func CompileAttr(tree *schema.Node, pro bool) (*AttrNode, []error) {
	if tree == nil {
		return nil, nil
	}
	c := &attrCompiler{pro: pro}
	return c.node(tree), c.errs
}

type attrCompiler struct {
	pro   bool
	count int
	errs  []error
}

func (c *attrCompiler) node(n *schema.Node) *AttrNode {
	if !n.IsGroup() {
		if !c.pro && c.count >= 1 {
			return nil
		}
		clause, err := CompileAttrClause(n, c.pro)
		if err != nil {
			c.errs = append(c.errs, err)
			return nil
		}
		if _, coerced := AttrOperator(n.Operator, c.pro); coerced {
			c.errs = append(c.errs, fmt.Errorf("attribute %q: operator %q rewritten to %s", clause.Key, n.Operator, OpEq))
		}
		c.count++
		return &AttrNode{Clause: clause}
	}

	g := &AttrNode{Relation: Relation(n.Relation, c.pro)}
	for _, child := range n.Clauses {
		if child.IsGroup() && !c.pro {
			continue
		}
		if kept := c.node(child); kept != nil {
			g.Children = append(g.Children, kept)
		}
	}
	switch len(g.Children) {
	case 0:
		return nil
	case 1:
		return g.Children[0]
	}
	return g
}

// CompileAttrClause compiles one leaf. Operators outside the active
// allow-list become "=", unknown value types are dropped.
func CompileAttrClause(n *schema.Node, pro bool) (*AttrClause, error) {
	key := schema.SanitizeText(n.Field)
	if key == "" {
		return nil, fmt.Errorf("attribute clause without key")
	}

	op, _ := AttrOperator(n.Operator, pro)
	clause := &AttrClause{Key: key, Operator: op, Type: ParseValueType(n.ValueType)}

	switch {
	case op.TakesNoValue():
	case op.TakesList():
		clause.Values = listValues(n.Value)
		if len(clause.Values) == 0 {
			return nil, fmt.Errorf("attribute %q: %s needs values", key, op)
		}
		if op == OpBetween && len(clause.Values) != 2 {
			return nil, fmt.Errorf("attribute %q: BETWEEN needs two values, got %d", key, len(clause.Values))
		}
	default:
		clause.Values = []string{schema.SanitizeText(schema.String(n.Value))}
	}
	return clause, nil
}

func listValues(v any) []string {
	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = schema.Strings(v)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = schema.SanitizeText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Clauses returns the leaf clauses in depth-first order.
func (n *AttrNode) Clauses() []*AttrClause {
	if n == nil {
		return nil
	}
	if n.Clause != nil {
		return []*AttrClause{n.Clause}
	}
	var out []*AttrClause
	for _, c := range n.Children {
		out = append(out, c.Clauses()...)
	}
	return out
}
