package query

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/atlekbai/query_forge/internal/schema"
)

// DateFilter constrains a timestamp column. Year, Month and Day are set
// together for a calendar day match; otherwise After and/or Before bound the
// column.
type DateFilter struct {
	Column    string
	Year      int
	Month     int
	Day       int
	After     *time.Time
	Before    *time.Time
	Inclusive bool
}

// BodyMatch is a body text comparison rendered as a WHERE fragment.
type BodyMatch struct {
	Operator Operator
	Value    string
}

type CountFilter struct {
	Value   int64
	Compare Operator
}

// NativeArgs are the native field constraints of a record query. All of
// them apply conjunctively.
type NativeArgs struct {
	Search          []string
	Body            []BodyMatch
	Dates           []DateFilter
	OwnerID         int64
	OwnerIn         []int64
	OwnerNotIn      []int64
	Status          string
	Slug            string
	AnnotationCount *CountFilter
}

// CompileNative flattens a native clause tree into NativeArgs. Clauses that
// cannot be compiled are skipped and reported.
func CompileNative(tree *schema.Node) (NativeArgs, []error) {
	var (
		args NativeArgs
		errs []error
	)
	for _, leaf := range tree.Leaves() {
		if err := args.apply(leaf); err != nil {
			errs = append(errs, err)
		}
	}
	return args, errs
}

func (a *NativeArgs) apply(c *schema.Node) error {
	field, _ := NativeField(c.Field)
	op := ParseOperator(c.Operator)
	value := schema.SanitizeText(schema.String(c.Value))

	switch field {
	case FieldTitle, FieldExcerpt:
		if op != OpEq && op != OpLike {
			return unsupported(field, op)
		}
		if value != "" {
			a.Search = append(a.Search, value)
		}

	case FieldBody:
		switch op {
		case OpEq, OpLike, OpNeq, OpNeqAlt, OpNotLike:
		default:
			return unsupported(field, op)
		}
		if value == "" {
			return fmt.Errorf("%s: empty value", field)
		}
		if op == OpNeqAlt {
			op = OpNeq
		}
		a.Body = append(a.Body, BodyMatch{Operator: op, Value: value})

	case FieldDate, FieldModified:
		df, err := dateFilter(field, op, value)
		if err != nil {
			return err
		}
		a.Dates = append(a.Dates, df)

	case FieldOwner:
		switch op {
		case OpEq:
			a.OwnerID = schema.Int(c.Value)
		case OpIn:
			a.OwnerIn = append(a.OwnerIn, schema.ParseIDList(c.Value)...)
		case OpNeq, OpNotIn:
			a.OwnerNotIn = append(a.OwnerNotIn, schema.ParseIDList(c.Value)...)
		default:
			return unsupported(field, op)
		}

	case FieldStatus:
		if op != OpEq {
			return unsupported(field, op)
		}
		a.Status = schema.SanitizeKey(value)

	case FieldSlug:
		if op != OpEq {
			return unsupported(field, op)
		}
		a.Slug = value

	case FieldAnnotationCount:
		switch op {
		case OpEq, OpGte, OpLte:
			a.AnnotationCount = &CountFilter{Value: schema.Int(c.Value), Compare: op}
		default:
			return unsupported(field, op)
		}

	default:
		return fmt.Errorf("%q is not a native field", c.Field)
	}
	return nil
}

func dateFilter(field string, op Operator, value string) (DateFilter, error) {
	df := DateFilter{Column: field}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return df, fmt.Errorf("%s: parse %q: %w", field, value, err)
	}

	switch op {
	case OpEq:
		df.Year, df.Month, df.Day = t.Year(), int(t.Month()), t.Day()
	case OpGte:
		df.After, df.Inclusive = &t, true
	case OpLte:
		df.Before, df.Inclusive = &t, true
	case OpGt:
		df.After = &t
	case OpLt:
		df.Before = &t
	default:
		return df, unsupported(field, op)
	}
	return df, nil
}

func unsupported(field string, op Operator) error {
	return fmt.Errorf("%s: operator %q is not supported", field, op)
}
