package dynval

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/atlekbai/query_forge/internal/edition"
)

func testEnv() StaticEnv {
	return StaticEnv{
		Viewer:     3,
		Record:     7,
		Owner:      11,
		Clock:      time.Date(2024, 5, 9, 12, 0, 0, 0, time.UTC),
		Params:     map[string]string{"category": " 5 "},
		Attributes: map[string]string{"team": "blue"},
		Terms:      map[string][]int64{"category": {4, 9, 4}},
	}
}

func TestResolveWholeTags(t *testing.T) {
	r := New(testEnv(), edition.Static(true))

	tests := []struct {
		in   string
		want any
	}{
		{"{{ current_user_id }}", int64(3)},
		{"{{current_post_id}}", int64(7)},
		{"  {{ current_author_id }} ", int64(11)},
		{"{{ current_date }}", "2024-05-09"},
		{"{{ url_param:category }}", "5"},
		{"{{ url_param }}", ""},
		{"{{ user_meta:team }}", "blue"},
		{"{{ current_post_terms:category }}", []any{int64(4), int64(9)}},
		{"{{ current_post_terms:genre }}", []any{}},
		{"{{ no_such_tag }}", ""},
		{"{{ CURRENT_POST_ID }}", int64(7)},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, r.Resolve(tt.in)); diff != "" {
			t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestResolveEmbedded(t *testing.T) {
	r := New(testEnv(), edition.Static(true))

	tests := []struct {
		in, want string
	}{
		{"1,2,3,{{ current_post_id }}", "1,2,3,7"},
		{"by {{ current_user_id }} on {{ current_date }}", "by 3 on 2024-05-09"},
		{"terms: {{ current_post_terms:category }}", "terms: 4,9"},
		{"x{{ nope }}y", "xy"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveIdentityWithoutTags(t *testing.T) {
	r := New(testEnv(), edition.Static(true))
	for _, s := range []string{"", "hello", "{ current_user_id }", "{{}}", "{{ 123 }}"} {
		if got := r.Resolve(s); got != s {
			t.Errorf("Resolve(%q) = %v", s, got)
		}
	}
}

func TestResolveRestrictedReturnsLiteral(t *testing.T) {
	r := New(testEnv(), edition.Static(false))
	const s = "{{ current_post_id }}"
	if got := r.Resolve(s); got != s {
		t.Errorf("restricted Resolve = %v", got)
	}
}

func TestUserMetaNeedsViewer(t *testing.T) {
	env := testEnv()
	env.Viewer = 0
	r := New(env, edition.Static(true))
	if got := r.Resolve("{{ user_meta:team }}"); got != "" {
		t.Errorf("anonymous user_meta = %v", got)
	}
}

type countingEnv struct {
	StaticEnv
	calls int64
}

func (e *countingEnv) RecordID() int64 {
	e.calls++
	return e.calls
}

func TestResolveMemoizesWithinExecution(t *testing.T) {
	env := &countingEnv{StaticEnv: testEnv()}
	r := New(env, edition.Static(true))

	first := r.Resolve("{{ current_post_id }}")
	second := r.Resolve("{{current_post_id}}")
	if first != second {
		t.Errorf("same tag resolved to %v then %v", first, second)
	}

	fresh := New(env, edition.Static(true))
	if fresh.Resolve("{{ current_post_id }}") == first {
		t.Error("memo leaked across executions")
	}
	if env.calls != 2 {
		t.Errorf("RecordID called %d times, want one per execution", env.calls)
	}
}

func TestWalk(t *testing.T) {
	r := New(testEnv(), edition.Static(true))
	in := map[string]any{
		"post__in":   []any{int64(1), "{{ current_post_id }}"},
		"author__in": "{{ current_user_id }}",
		"nested": map[string]any{
			"values": []any{"{{ current_date }}", 4.0, true},
		},
	}

	got := r.Walk(in, "post__in", "author__in")
	want := map[string]any{
		"post__in":   []any{int64(1), "{{ current_post_id }}"},
		"author__in": int64(3),
		"nested": map[string]any{
			"values": []any{"2024-05-09", 4.0, true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk mismatch (-want +got):\n%s", diff)
	}

	if in["author__in"] != "{{ current_user_id }}" {
		t.Error("Walk mutated its input")
	}
}

func TestWalkConcreteListIsNoop(t *testing.T) {
	r := New(testEnv(), edition.Static(true))
	ids := map[string]any{"post__in": []any{int64(1), int64(2)}}

	once := r.Walk(ids, "post__in")
	twice := r.Walk(once, "post__in")
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed ids (-first +second):\n%s", diff)
	}
}

func TestValueString(t *testing.T) {
	if got := (Value{List: []int64{1, 2}, IsList: true}).String(); got != "1,2" {
		t.Errorf("list String = %q", got)
	}
	if got := (Value{Scalar: int64(5)}).String(); got != "5" {
		t.Errorf("scalar String = %q", got)
	}
	if got := (Value{}).Native(); got != "" {
		t.Errorf("zero Native = %v", got)
	}
}
