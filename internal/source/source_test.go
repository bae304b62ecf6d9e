package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/store"
)

type fakeBackend struct {
	records    []result.Item
	total      int
	users      []result.Item
	comments   []result.Item
	counts     store.CommentCounts
	parentIDs  []int64
	tableRows  []map[string]any
	tableErr   error
	err        error
	gotParams  *query.Params
	gotFrags   store.Fragments
	gotUser    store.UserFilter
	gotComment store.CommentFilter
	gotTable   string
}

func (f *fakeBackend) Records(_ context.Context, p *query.Params, frags store.Fragments) ([]result.Item, int, error) {
	f.gotParams, f.gotFrags = p, frags
	return f.records, f.total, f.err
}

func (f *fakeBackend) Users(_ context.Context, uf store.UserFilter) ([]result.Item, int, error) {
	f.gotUser = uf
	return f.users, f.total, f.err
}

func (f *fakeBackend) Comments(_ context.Context, cf store.CommentFilter) ([]result.Item, error) {
	f.gotComment = cf
	return f.comments, f.err
}

func (f *fakeBackend) CommentCounts(context.Context) (store.CommentCounts, error) {
	return f.counts, nil
}

func (f *fakeBackend) RecordIDsByType(context.Context, string) ([]int64, error) {
	return f.parentIDs, nil
}

func (f *fakeBackend) TableRows(_ context.Context, name string, _, _ int) ([]map[string]any, int, error) {
	f.gotTable = name
	return f.tableRows, f.total, f.tableErr
}

func newRouter(b *fakeBackend, pro bool) *Router {
	return NewRouter(Backends{Records: b, Users: b, Comments: b, Tables: b}, nil, edition.Static(pro), nil)
}

func params(kind schema.SourceKind) *query.Params {
	return &query.Params{
		Source:  schema.SourceSpec{Kind: kind, Method: "GET"},
		Page:    2,
		PerPage: 5,
	}
}

func TestFromParams(t *testing.T) {
	p := params(schema.KindComment)
	p.Source.Status = "all"
	p.Source.ParentType = "product"
	p.Sorts = []query.SortKey{{Field: query.SortDate, Desc: false}}

	src, err := FromParams(p)
	require.NoError(t, err)
	assert.Equal(t, Comment{Page: Page{Number: 2, PerPage: 5}, Status: "all", ParentType: "product", Asc: true}, src)

	p = params(schema.KindAPI)
	p.Source.Value = " https://example.com/api "
	p.Source.Method = "post"
	src, err = FromParams(p)
	require.NoError(t, err)
	assert.Equal(t, Remote{Page: Page{Number: 2, PerPage: 5}, URL: "https://example.com/api", Method: "POST"}, src)

	p = params("")
	p.Source.TypeName = "graph"
	_, err = FromParams(p)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestDispatchGated(t *testing.T) {
	b := &fakeBackend{users: []result.Item{{ID: 1}}, total: 1}
	r := newRouter(b, false)

	for _, kind := range []schema.SourceKind{schema.KindUser, schema.KindComment, schema.KindTable, schema.KindAPI} {
		src, err := FromParams(params(kind))
		require.NoError(t, err)

		w, err := r.Dispatch(context.Background(), src, nil)
		assert.ErrorIs(t, err, ErrGated, kind)
		assert.Equal(t, 0, w.Total())
		assert.Empty(t, w.Items())
		assert.Equal(t, 1, w.PageCount())
	}
}

func TestDispatchRecord(t *testing.T) {
	b := &fakeBackend{records: []result.Item{{ID: 1}, {ID: 2}}, total: 12}
	r := newRouter(b, false)
	p := params(schema.KindRecord)

	w, err := r.Dispatch(context.Background(), Record{Params: p}, nil)
	require.NoError(t, err)
	assert.Same(t, p, b.gotParams)
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, 12, w.Total())
	assert.Equal(t, 3, w.PageCount())

	b.err = errors.New("boom")
	w, err = r.Dispatch(context.Background(), Record{Params: p}, nil)
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestDispatchUser(t *testing.T) {
	b := &fakeBackend{users: []result.Item{{ID: 3, Type: "user"}}, total: 1}
	r := newRouter(b, true)

	w, err := r.Dispatch(context.Background(), User{Page: Page{Number: 3, PerPage: 4}, Role: "editor"}, nil)
	require.NoError(t, err)
	assert.Equal(t, store.UserFilter{Role: "editor", Limit: 4, Offset: 8}, b.gotUser)
	assert.Equal(t, 1, w.Total())
}

func TestDispatchComment(t *testing.T) {
	counts := store.CommentCounts{Approved: 7, Moderated: 2, Spam: 4, Trash: 1}

	tests := []struct {
		name         string
		src          Comment
		parents      []int64
		wantStatuses []string
		wantIDs      []int64
		wantTotal    int
	}{
		{"default approved", Comment{}, nil, []string{"approved"}, nil, 7},
		{"approve alias", Comment{Status: "approve"}, nil, []string{"approved"}, nil, 7},
		{"all", Comment{Status: "all"}, nil, []string{"approved", "hold"}, nil, 9},
		{"spam", Comment{Status: "spam"}, nil, []string{"spam"}, nil, 4},
		{"unknown status", Comment{Status: "weird"}, nil, []string{"approved"}, nil, 7},
		{"parent type", Comment{ParentType: "product"}, []int64{4, 5}, []string{"approved"}, []int64{4, 5}, 7},
		{"parent type without records", Comment{ParentType: "product"}, nil, []string{"approved"}, []int64{0}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{counts: counts, parentIDs: tt.parents}
			tt.src.Page = Page{Number: 1, PerPage: 10}

			w, err := newRouter(b, true).Dispatch(context.Background(), tt.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatuses, b.gotComment.Statuses)
			assert.Equal(t, tt.wantIDs, b.gotComment.RecordIDs)
			assert.Equal(t, tt.wantTotal, w.Total())
		})
	}
}

func TestDispatchTable(t *testing.T) {
	b := &fakeBackend{
		tableRows: []map[string]any{
			{"id": int32(4), "name": "Widget", "author_id": int64(2), "date": "2024-03-01", "description": "a small widget"},
			{"id": int64(5)},
		},
		total: 2,
	}
	r := newRouter(b, true)

	w, err := r.Dispatch(context.Background(), Table{Page: Page{Number: 1, PerPage: 10}, Name: "widgets"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, w.Count())
	assert.Equal(t, "widgets", b.gotTable)

	first := w.Items()[0]
	assert.Equal(t, int64(4), first.ID)
	assert.Equal(t, "Widget", first.Title)
	assert.Equal(t, int64(2), first.OwnerID)
	assert.Equal(t, 2024, first.Date.Year())
	assert.Equal(t, "a small widget", first.Excerpt)
	assert.Equal(t, "table", first.Type)
	assert.Equal(t, "Untitled", w.Items()[1].Title)

	b.tableErr = store.ErrTableMissing
	w, err = r.Dispatch(context.Background(), Table{Page: Page{Number: 1, PerPage: 10}, Name: "nope"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Count())
	assert.Equal(t, 1, w.PageCount())
}
