package query

import "strings"

type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpNeqAlt    Operator = "<>"
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpBetween   Operator = "BETWEEN"
	OpExists    Operator = "EXISTS"
	OpNotExists Operator = "NOT EXISTS"
	OpAnd       Operator = "AND"
)

var restrictedOps = map[Operator]bool{
	OpEq: true, OpNeq: true, OpLike: true,
}

var fullOps = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpLike: true, OpNotLike: true, OpIn: true, OpNotIn: true,
	OpBetween: true, OpExists: true, OpNotExists: true,
}

// ParseOperator normalizes case and spacing. An empty operator is "=".
func ParseOperator(raw string) Operator {
	op := strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
	if op == "" {
		return OpEq
	}
	return Operator(op)
}

// AttrOperator returns op when the active allow-list has it, and "=" when it
// does not. coerced reports the rewrite.
func AttrOperator(raw string, pro bool) (op Operator, coerced bool) {
	op = ParseOperator(raw)
	allowed := restrictedOps
	if pro {
		allowed = fullOps
	}
	if !allowed[op] {
		return OpEq, true
	}
	return op, false
}

// TakesNoValue reports operators that test presence only.
func (op Operator) TakesNoValue() bool { return op == OpExists || op == OpNotExists }

// TakesList reports operators whose value is a list.
func (op Operator) TakesList() bool { return op == OpIn || op == OpNotIn || op == OpBetween }

type ValueType string

const (
	TypeChar     ValueType = "CHAR"
	TypeNumeric  ValueType = "NUMERIC"
	TypeDate     ValueType = "DATE"
	TypeDatetime ValueType = "DATETIME"
	TypeDecimal  ValueType = "DECIMAL"
	TypeSigned   ValueType = "SIGNED"
	TypeUnsigned ValueType = "UNSIGNED"
	TypeBinary   ValueType = "BINARY"
)

var validTypes = map[ValueType]bool{
	TypeChar: true, TypeNumeric: true, TypeDate: true, TypeDatetime: true,
	TypeDecimal: true, TypeSigned: true, TypeUnsigned: true, TypeBinary: true,
}

// ParseValueType returns the type hint when it is on the allow-list, and ""
// otherwise.
func ParseValueType(raw string) ValueType {
	t := ValueType(strings.ToUpper(strings.TrimSpace(raw)))
	if validTypes[t] {
		return t
	}
	return ""
}

// Relation returns OR only for the full edition.
func Relation(raw string, pro bool) string {
	if pro && strings.EqualFold(strings.TrimSpace(raw), "OR") {
		return "OR"
	}
	return "AND"
}
