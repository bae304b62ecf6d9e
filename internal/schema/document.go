package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

type SourceKind string

const (
	KindRecord  SourceKind = "record"
	KindUser    SourceKind = "user"
	KindComment SourceKind = "comment"
	KindTable   SourceKind = "table"
	KindAPI     SourceKind = "api"
)

var sourceAliases = map[string]SourceKind{
	"":          KindRecord,
	"record":    KindRecord,
	"post_type": KindRecord,
	"user":      KindUser,
	"comment":   KindComment,
	"table":     KindTable,
	"sql_table": KindTable,
	"api":       KindAPI,
	"rest_api":  KindAPI,
}

const DefaultRecordType = "post"

// SourceSpec is the decoded source descriptor. Kind is empty when the
// document names a source type outside the known vocabulary.
type SourceSpec struct {
	Kind       SourceKind
	TypeName   string
	Value      string
	RecordType string
	Role       string
	Status     string
	ParentType string
	Method     string
}

// Node is a filter tree node: a group when Clauses is non-nil, otherwise a
// leaf clause.
type Node struct {
	Relation string
	Clauses  []*Node

	Field     string
	Operator  string
	Value     any
	ValueType string
}

func (n *Node) IsGroup() bool { return n.Clauses != nil }

// Leaves returns every leaf clause in depth-first order.
func (n *Node) Leaves() []*Node {
	if n == nil {
		return nil
	}
	if !n.IsGroup() {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.Clauses {
		out = append(out, c.Leaves()...)
	}
	return out
}

type TaxClause struct {
	Taxonomy string
	Field    string
	Terms    []string
	Operator string
}

type TaxFilter struct {
	Relation string
	Clauses  []TaxClause
}

type Join struct {
	Table string
	Alias string
	Left  string
	Right string
}

type Sort struct {
	Field     string
	Direction string
	MetaKey   string
}

type Target struct {
	PerPage int
	OrderBy string
	Order   string
	MetaKey string
	Sorts   []Sort
}

type IncludeExclude struct {
	RecordIn     []int64
	RecordNotIn  []int64
	OwnerIn      []int64
	OwnerNotIn   []int64
	IgnoreSticky *bool
}

// Document is the typed view of a schema document.
type Document struct {
	Source         SourceSpec
	Filters        *Node
	TaxFilters     TaxFilter
	Joins          []Join
	Target         Target
	IncludeExclude IncludeExclude
}

// ID list keys of include_exclude. They are resolved and parsed before the
// rest of the document.
const (
	KeyRecordIn    = "post__in"
	KeyRecordNotIn = "post__not_in"
	KeyOwnerIn     = "author__in"
	KeyOwnerNotIn  = "author__not_in"
	KeyIncludeExcl = "include_exclude"
)

var IDListKeys = []string{KeyRecordIn, KeyRecordNotIn, KeyOwnerIn, KeyOwnerNotIn}

// FromMap builds a Document from a decoded document. The returned document
// is always usable; problems found along the way are returned as a
// multierror and describe parts that were skipped or defaulted.
func FromMap(m map[string]any) (*Document, error) {
	var problems *multierror.Error
	doc := &Document{}

	src, err := decodeSource(m)
	if err != nil {
		problems = multierror.Append(problems, err)
	}
	doc.Source = src

	if raw, ok := m["filters"]; ok && raw != nil {
		root, errs := decodeNode(raw, "filters")
		problems = multierror.Append(problems, errs...)
		if root != nil && !root.IsGroup() {
			root = &Node{Relation: "AND", Clauses: []*Node{root}}
		}
		doc.Filters = root
	}

	tax, errs := decodeTax(m["tax_filters"])
	problems = multierror.Append(problems, errs...)
	doc.TaxFilters = tax

	joins, errs := decodeJoins(m["joins"])
	problems = multierror.Append(problems, errs...)
	doc.Joins = joins

	doc.Target = decodeTarget(m)
	doc.IncludeExclude = decodeIncludeExclude(m[KeyIncludeExcl])

	return doc, problems.ErrorOrNil()
}

func decodeSource(m map[string]any) (SourceSpec, error) {
	raw, _ := m["source"].(map[string]any)
	if raw == nil {
		if list, ok := m["sources"].([]any); ok && len(list) > 0 {
			raw, _ = list[0].(map[string]any)
		}
	}
	spec := SourceSpec{Kind: KindRecord, RecordType: DefaultRecordType}
	if raw == nil {
		return spec, nil
	}

	spec.TypeName = strings.ToLower(SanitizeText(String(raw["type"])))
	kind, ok := sourceAliases[spec.TypeName]
	spec.Kind = kind
	spec.Value = SanitizeText(String(raw["value"]))
	spec.Role = SanitizeText(String(raw["role"]))
	spec.Status = SanitizeText(String(raw["status"]))
	spec.ParentType = SanitizeKey(String(raw["post_type"]))
	spec.Method = strings.ToUpper(SanitizeText(String(raw["method"])))
	if spec.Method == "" {
		spec.Method = "GET"
	}

	if data, _ := raw["data"].(map[string]any); data != nil {
		if pt := SanitizeKey(String(data["postType"])); pt != "" {
			spec.RecordType = pt
		} else {
			switch String(data["sourceType"]) {
			case "pages":
				spec.RecordType = "page"
			case "posts":
				spec.RecordType = DefaultRecordType
			}
		}
	} else if spec.Value != "" && spec.Kind == KindRecord {
		spec.RecordType = SanitizeKey(spec.Value)
	}

	if !ok {
		return spec, fmt.Errorf("source: unknown type %q", spec.TypeName)
	}
	return spec, nil
}

func decodeNode(raw any, path string) (*Node, []error) {
	switch t := raw.(type) {
	case []any:
		return decodeGroup("AND", t, path)
	case map[string]any:
		if clauses, ok := t["clauses"].([]any); ok {
			return decodeGroup(String(t["relation"]), clauses, path)
		}
		field := SanitizeText(String(t["field"]))
		if field == "" {
			return nil, []error{fmt.Errorf("%s: clause without field", path)}
		}
		return &Node{
			Field:     field,
			Operator:  strings.ToUpper(SanitizeText(String(t["operator"]))),
			Value:     t["value"],
			ValueType: strings.ToUpper(SanitizeText(String(t["value_type"]))),
		}, nil
	}
	return nil, []error{fmt.Errorf("%s: expected object, got %T", path, raw)}
}

func decodeGroup(relation string, clauses []any, path string) (*Node, []error) {
	var errs []error
	g := &Node{Relation: normalizeRelation(relation), Clauses: []*Node{}}
	for i, c := range clauses {
		child, cerrs := decodeNode(c, fmt.Sprintf("%s.clauses[%d]", path, i))
		errs = append(errs, cerrs...)
		if child != nil {
			g.Clauses = append(g.Clauses, child)
		}
	}
	return g, errs
}

func normalizeRelation(r string) string {
	if strings.EqualFold(strings.TrimSpace(r), "OR") {
		return "OR"
	}
	return "AND"
}

func decodeTax(raw any) (TaxFilter, []error) {
	tf := TaxFilter{Relation: "AND"}
	var list []any
	switch t := raw.(type) {
	case nil:
		return tf, nil
	case []any:
		list = t
	case map[string]any:
		tf.Relation = normalizeRelation(String(t["relation"]))
		list, _ = t["clauses"].([]any)
	default:
		return tf, []error{fmt.Errorf("tax_filters: expected object or list, got %T", raw)}
	}

	var errs []error
	for i, item := range list {
		c, _ := item.(map[string]any)
		if c == nil {
			errs = append(errs, fmt.Errorf("tax_filters[%d]: expected object", i))
			continue
		}
		tc := TaxClause{
			Taxonomy: SanitizeKey(String(c["taxonomy"])),
			Field:    SanitizeKey(String(c["field"])),
			Terms:    Strings(c["terms"]),
			Operator: strings.ToUpper(SanitizeText(String(c["operator"]))),
		}
		if tc.Taxonomy == "" {
			errs = append(errs, fmt.Errorf("tax_filters[%d]: taxonomy is required", i))
			continue
		}
		// EXISTS and NOT EXISTS test for any term in the taxonomy.
		if len(tc.Terms) == 0 && tc.Operator != "EXISTS" && tc.Operator != "NOT EXISTS" {
			errs = append(errs, fmt.Errorf("tax_filters[%d]: terms are required", i))
			continue
		}
		tf.Clauses = append(tf.Clauses, tc)
	}
	return tf, errs
}

func decodeJoins(raw any) ([]Join, []error) {
	list, ok := raw.([]any)
	if raw != nil && !ok {
		return nil, []error{fmt.Errorf("joins: expected list, got %T", raw)}
	}
	var (
		joins []Join
		errs  []error
	)
	for i, item := range list {
		j, _ := item.(map[string]any)
		if j == nil {
			errs = append(errs, fmt.Errorf("joins[%d]: expected object", i))
			continue
		}
		join := Join{
			Table: String(j["table"]),
			Alias: String(j["alias"]),
			Left:  "id",
			Right: "record_id",
		}
		if on, _ := j["on"].(map[string]any); on != nil {
			if l := String(on["left"]); l != "" {
				join.Left = l
			}
			if r := String(on["right"]); r != "" {
				join.Right = r
			}
		}
		if join.Alias == "" {
			join.Alias = join.Table
		}
		if join.Table == "" {
			errs = append(errs, fmt.Errorf("joins[%d]: table is required", i))
			continue
		}
		joins = append(joins, join)
	}
	return joins, errs
}

func decodeTarget(m map[string]any) Target {
	t := Target{}
	raw, _ := m["target"].(map[string]any)
	if raw != nil {
		t.PerPage = int(Int(raw["posts_per_page"]))
		t.OrderBy = SanitizeText(String(raw["orderby"]))
		t.Order = SanitizeText(String(raw["order"]))
		t.MetaKey = SanitizeText(String(raw["meta_key"]))
		t.Sorts = decodeSorts(raw["sorts"])
	}
	if len(t.Sorts) == 0 {
		t.Sorts = decodeSorts(m["sorts"])
	}
	return t
}

func decodeSorts(raw any) []Sort {
	list, _ := raw.([]any)
	var sorts []Sort
	for _, item := range list {
		s, _ := item.(map[string]any)
		if s == nil {
			continue
		}
		field := SanitizeText(String(s["field"]))
		if field == "" {
			continue
		}
		sorts = append(sorts, Sort{
			Field:     field,
			Direction: SanitizeText(String(s["direction"])),
			MetaKey:   SanitizeText(String(s["meta_key"])),
		})
	}
	return sorts
}

func decodeIncludeExclude(raw any) IncludeExclude {
	m, _ := raw.(map[string]any)
	if m == nil {
		return IncludeExclude{}
	}
	ie := IncludeExclude{
		RecordIn:    ParseIDList(m[KeyRecordIn]),
		RecordNotIn: ParseIDList(m[KeyRecordNotIn]),
		OwnerIn:     ParseIDList(m[KeyOwnerIn]),
		OwnerNotIn:  ParseIDList(m[KeyOwnerNotIn]),
	}
	if v, ok := m["ignore_sticky_posts"]; ok {
		b := Bool(v)
		ie.IgnoreSticky = &b
	}
	return ie
}
