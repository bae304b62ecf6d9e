// Package dynval resolves {{ tag:arg }} placeholders against the execution
// context.
package dynval

import (
	"regexp"
	"slices"
	"strings"

	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/schema"
)

var tagPattern = regexp.MustCompile(`(?i)\{\{\s*([a-z_]+)(?::([^}]+))?\s*\}\}`)

const (
	TagViewerID    = "current_user_id"
	TagRecordID    = "current_post_id"
	TagOwnerID     = "current_author_id"
	TagDate        = "current_date"
	TagURLParam    = "url_param"
	TagViewerAttr  = "user_meta"
	TagRecordTerms = "current_post_terms"
)

type tagKey struct{ name, arg string }

// Resolver substitutes tags for one execution. Results are memoized so a
// tag yields the same value every time it is seen within that execution.
// A Resolver is not safe for concurrent use.
type Resolver struct {
	env  Env
	gate edition.Gate
	memo map[tagKey]Value
}

func New(env Env, gate edition.Gate) *Resolver {
	return &Resolver{env: env, gate: gate, memo: make(map[tagKey]Value)}
}

// HasTag reports whether s contains a tag.
func HasTag(s string) bool { return tagPattern.MatchString(s) }

// ResolveWhole resolves s when its trimmed form is exactly one tag. ok is
// false when s is anything else.
func (r *Resolver) ResolveWhole(s string) (Value, bool) {
	m := tagPattern.FindStringSubmatchIndex(s)
	if m == nil || strings.TrimSpace(s) != s[m[0]:m[1]] {
		return Value{}, false
	}
	return r.tag(s[m[2]:m[3]], submatch(s, m, 4)), true
}

// ResolveEmbedded replaces every tag in s with its textual value.
func (r *Resolver) ResolveEmbedded(s string) string {
	return tagPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := tagPattern.FindStringSubmatchIndex(match)
		return r.tag(match[m[2]:m[3]], submatch(match, m, 4)).String()
	})
}

// Resolve returns s unchanged when it has no tags or the edition is
// restricted. Otherwise a whole-tag string becomes the tag's native value
// and any other string gets textual substitution.
func (r *Resolver) Resolve(s string) any {
	if !HasTag(s) || !r.gate.Pro() {
		return s
	}
	if v, ok := r.ResolveWhole(s); ok {
		return v.Native()
	}
	return r.ResolveEmbedded(s)
}

// Walk returns a copy of v with every string resolved. Map entries whose key
// is in skip and whose value is already a list are copied as they are.
func (r *Resolver) Walk(v any, skip ...string) any {
	switch t := v.(type) {
	case string:
		return r.Resolve(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if isList(item) && slices.Contains(skip, k) {
				out[k] = item
				continue
			}
			out[k] = r.Walk(item, skip...)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.Walk(item, skip...)
		}
		return out
	}
	return v
}

func (r *Resolver) tag(name, arg string) Value {
	key := tagKey{strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(arg)}
	if v, ok := r.memo[key]; ok {
		return v
	}
	v := r.lookup(key.name, key.arg)
	r.memo[key] = v
	return v
}

func (r *Resolver) lookup(name, arg string) Value {
	switch name {
	case TagViewerID:
		return scalar(positive(r.env.ViewerID()))
	case TagRecordID:
		return scalar(positive(r.env.RecordID()))
	case TagOwnerID:
		return scalar(positive(r.env.RecordOwnerID()))
	case TagDate:
		return scalar(r.env.Now().Format("2006-01-02"))
	case TagURLParam:
		if arg == "" {
			return scalar("")
		}
		return scalar(schema.SanitizeText(r.env.RequestParam(schema.SanitizeText(arg))))
	case TagViewerAttr:
		if arg == "" || r.env.ViewerID() <= 0 {
			return scalar("")
		}
		return scalar(r.env.ViewerAttribute(schema.SanitizeText(arg)))
	case TagRecordTerms:
		tax := schema.SanitizeKey(arg)
		if tax == "" || !r.env.TaxonomyExists(tax) || r.env.RecordID() <= 0 {
			return list([]int64{})
		}
		return list(schema.ParseIDList(r.env.RecordTerms(tax)))
	}
	return scalar("")
}

func submatch(s string, m []int, i int) string {
	if m[i] < 0 {
		return ""
	}
	return s[m[i]:m[i+1]]
}

func positive(id int64) int64 {
	if id > 0 {
		return id
	}
	return 0
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []int64:
		return true
	}
	return false
}
