package query

import (
	"strings"

	"github.com/atlekbai/query_forge/internal/schema"
)

// Native record fields and the names documents may use for them.
const (
	FieldTitle           = "title"
	FieldBody            = "body"
	FieldExcerpt         = "excerpt"
	FieldDate            = "date"
	FieldModified        = "modified"
	FieldOwner           = "owner"
	FieldSlug            = "slug"
	FieldStatus          = "status"
	FieldAnnotationCount = "annotation_count"
)

var nativeFields = map[string]string{
	"title": FieldTitle, "post_title": FieldTitle,
	"body": FieldBody, "content": FieldBody, "post_content": FieldBody,
	"excerpt": FieldExcerpt, "post_excerpt": FieldExcerpt,
	"date": FieldDate, "created": FieldDate, "post_date": FieldDate,
	"modified": FieldModified, "post_modified": FieldModified,
	"owner": FieldOwner, "author": FieldOwner, "post_author": FieldOwner,
	"slug": FieldSlug, "name": FieldSlug, "post_name": FieldSlug,
	"status": FieldStatus, "post_status": FieldStatus,
	"annotation_count": FieldAnnotationCount, "comment_count": FieldAnnotationCount,
}

// NativeField returns the canonical native field for name.
func NativeField(name string) (string, bool) {
	f, ok := nativeFields[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// NativeFieldNames lists the canonical native fields.
func NativeFieldNames() []string {
	return []string{
		FieldTitle, FieldBody, FieldExcerpt, FieldDate, FieldModified,
		FieldOwner, FieldSlug, FieldStatus, FieldAnnotationCount,
	}
}

// Classify splits a filter tree into native field clauses and attribute
// clauses. Both trees keep the relation of every group that survives. A
// group left with one clause is replaced by that clause and an empty group
// is dropped. In the restricted edition every relation is AND and nested
// groups are dropped.
func Classify(root *schema.Node, pro bool) (native, attr *schema.Node) {
	return partition(root, pro, true), partition(root, pro, false)
}

func partition(n *schema.Node, pro, wantNative bool) *schema.Node {
	if n == nil {
		return nil
	}
	if !n.IsGroup() {
		if _, ok := NativeField(n.Field); ok == wantNative {
			return n
		}
		return nil
	}

	out := &schema.Node{Relation: Relation(n.Relation, pro)}
	for _, c := range n.Clauses {
		if c.IsGroup() && !pro {
			continue
		}
		if kept := partition(c, pro, wantNative); kept != nil {
			out.Clauses = append(out.Clauses, kept)
		}
	}
	return prune(out)
}

func prune(g *schema.Node) *schema.Node {
	switch len(g.Clauses) {
	case 0:
		return nil
	case 1:
		return g.Clauses[0]
	}
	return g
}

// HasField reports whether any leaf of n names the canonical field.
func HasField(n *schema.Node, field string) bool {
	for _, leaf := range n.Leaves() {
		if f, _ := NativeField(leaf.Field); f == field {
			return true
		}
	}
	return false
}
