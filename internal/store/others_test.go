package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/query_forge/internal/query"
)

func TestBuildUserList(t *testing.T) {
	sql, args, err := BuildUserList(UserFilter{
		Role:   "editor",
		Limit:  10,
		Offset: 20,
		Sorts:  []query.SortKey{{Field: query.SortTitle}, {Field: query.SortRand}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT _u."id", COALESCE(_u."display_name", '') AS "display_name", COALESCE(_u."description", '') AS "description", _u."registered_at", COALESCE(_u."login", '') AS "login", COALESCE(_u."email", '') AS "email", COALESCE(_u."role", '') AS "role" FROM "content"."users" _u WHERE _u."role" = $1 ORDER BY _u."display_name" ASC, _u."id" ASC LIMIT 10 OFFSET 20`,
		sql)
	assert.Equal(t, []any{"editor"}, args)
}

func TestBuildCommentList(t *testing.T) {
	sql, args, err := BuildCommentList(CommentFilter{
		Statuses:  []string{CommentApproved},
		RecordIDs: []int64{0},
		Limit:     5,
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `SELECT _c."id", COALESCE(_c."author_name", '') AS "author_name", _c."user_id"`)
	assert.Contains(t, sql, `WHERE _c."status" = ANY($1) AND _c."record_id" = ANY($2) ORDER BY _c."created_at" DESC, _c."id" DESC LIMIT 5 OFFSET 0`)
	assert.Equal(t, []any{[]string{"approved"}, []int64{0}}, args)
}

func TestTextColReadsNullAsEmpty(t *testing.T) {
	assert.Equal(t, `COALESCE(_u."description", '') AS "description"`, textCol(userAlias, "description"))
}

func TestTableName(t *testing.T) {
	s := New(nil, "wp_")
	assert.Equal(t, "wp_books", s.TableName("books"))
	assert.Equal(t, "wp_booksDROP", s.TableName("books; DROP"))
	assert.Equal(t, "", s.TableName("--"))
}
