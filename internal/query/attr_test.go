package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/atlekbai/query_forge/internal/schema"
)

func TestAttrOperatorAllowLists(t *testing.T) {
	tests := []struct {
		raw     string
		pro     bool
		want    Operator
		coerced bool
	}{
		{"", false, OpEq, false},
		{"like", false, OpLike, false},
		{">", false, OpEq, true},
		{"not   exists", true, OpNotExists, false},
		{"between", true, OpBetween, false},
		{"REGEXP", true, OpEq, true},
		{"<>", true, OpEq, true},
	}
	for _, tt := range tests {
		got, coerced := AttrOperator(tt.raw, tt.pro)
		if got != tt.want || coerced != tt.coerced {
			t.Errorf("AttrOperator(%q, %v) = %q, %v", tt.raw, tt.pro, got, coerced)
		}
	}
}

func TestCompileAttrClause(t *testing.T) {
	tests := []struct {
		name string
		node *schema.Node
		want *AttrClause
	}{
		{
			"scalar with type",
			&schema.Node{Field: "price", Operator: ">=", Value: 10.0, ValueType: "numeric"},
			&AttrClause{Key: "price", Operator: OpGte, Values: []string{"10"}, Type: TypeNumeric},
		},
		{
			"unknown type dropped",
			&schema.Node{Field: "price", Operator: "=", Value: "3", ValueType: "JSONB"},
			&AttrClause{Key: "price", Operator: OpEq, Values: []string{"3"}},
		},
		{
			"exists carries no value",
			&schema.Node{Field: "flag", Operator: "EXISTS", Value: "ignored"},
			&AttrClause{Key: "flag", Operator: OpExists},
		},
		{
			"in from list",
			&schema.Node{Field: "color", Operator: "in", Value: []any{"red", " blue\n", ""}},
			&AttrClause{Key: "color", Operator: OpIn, Values: []string{"red", "blue"}},
		},
		{
			"not in from csv",
			&schema.Node{Field: "color", Operator: "NOT IN", Value: "red,green"},
			&AttrClause{Key: "color", Operator: OpNotIn, Values: []string{"red", "green"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileAttrClause(tt.node, true)
			if err != nil {
				t.Fatalf("CompileAttrClause: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileAttrClauseRejects(t *testing.T) {
	bad := []*schema.Node{
		{Field: "  ", Operator: "="},
		{Field: "range", Operator: "BETWEEN", Value: []any{1.0}},
		{Field: "color", Operator: "IN", Value: []any{}},
	}
	for _, n := range bad {
		if _, err := CompileAttrClause(n, true); err == nil {
			t.Errorf("CompileAttrClause(%+v) succeeded", n)
		}
	}
}

func TestCompileAttrPruning(t *testing.T) {
	tree := group("OR",
		leaf("a", "=", "1"),
		group("AND", leaf("b", "BETWEEN", "1"), leaf("c", "=", "1")),
	)
	got, errs := CompileAttr(tree, true)
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	if got.Relation != "OR" || len(got.Children) != 2 {
		t.Fatalf("root = %+v", got)
	}
	if inner := got.Children[1]; inner.Clause == nil || inner.Clause.Key != "c" {
		t.Errorf("one-clause group should collapse to the clause, got %+v", inner)
	}
}

func TestCompileAttrRestrictedKeepsFirstClause(t *testing.T) {
	tree := group("OR", leaf("a", ">", "1"), leaf("b", "=", "2"))
	got, errs := CompileAttr(tree, false)
	if len(errs) != 1 {
		t.Errorf("errs = %v, want the operator rewrite reported", errs)
	}
	if got == nil || got.Clause == nil {
		t.Fatalf("got %+v, want single clause", got)
	}
	want := &AttrClause{Key: "a", Operator: OpEq, Values: []string{"1"}}
	if diff := cmp.Diff(want, got.Clause); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
