package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/query_forge/internal/result"
)

const commentAlias = "_c"

// Comment moderation states as stored.
const (
	CommentApproved = "approved"
	CommentHold     = "hold"
	CommentSpam     = "spam"
	CommentTrash    = "trash"
)

// CommentFilter selects a page of comments. Statuses empty means any
// status; RecordIDs empty means any record.
type CommentFilter struct {
	Statuses  []string
	RecordIDs []int64
	Limit     int
	Offset    int
	Asc       bool
}

// CommentCounts are the aggregate comment totals per status.
type CommentCounts struct {
	Approved  int
	Moderated int
	Spam      int
	Trash     int
}

// BuildCommentList renders the page query for f.
func BuildCommentList(f CommentFilter) (string, []any, error) {
	qb := sq.Select(
		col(commentAlias, "id"), textCol(commentAlias, "author_name"), col(commentAlias, "user_id"),
		col(commentAlias, "created_at"), col(commentAlias, "content"),
		col(commentAlias, "record_id"), col(commentAlias, "status"),
	).
		From(`"content"."comments" ` + commentAlias).
		PlaceholderFormat(sq.Dollar)

	if len(f.Statuses) > 0 {
		qb = qb.Where(sq.Expr(col(commentAlias, "status")+" = ANY(?)", f.Statuses))
	}
	if len(f.RecordIDs) > 0 {
		qb = qb.Where(sq.Expr(col(commentAlias, "record_id")+" = ANY(?)", f.RecordIDs))
	}
	dir := " DESC"
	if f.Asc {
		dir = " ASC"
	}
	qb = qb.OrderBy(col(commentAlias, "created_at")+dir, col(commentAlias, "id")+dir).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	return qb.ToSql()
}

// Comments returns a page of comments in the common item shape.
func (s *Store) Comments(ctx context.Context, f CommentFilter) ([]result.Item, error) {
	sqlStr, args, err := BuildCommentList(f)
	if err != nil {
		return nil, fmt.Errorf("build comment list: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("comment list: %w", err)
	}
	defer rows.Close()

	var items []result.Item
	for rows.Next() {
		var (
			it       result.Item
			userID   *int64
			recordID int64
			status   string
		)
		if err := rows.Scan(&it.ID, &it.Title, &userID, &it.Date, &it.Content, &recordID, &status); err != nil {
			return nil, fmt.Errorf("comment scan: %w", err)
		}
		if userID != nil {
			it.OwnerID = *userID
		}
		it.Type = "comment"
		it.Excerpt = result.Excerpt(it.Content, 20)
		it.Raw = map[string]any{"record_id": recordID, "status": status}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("comment rows: %w", err)
	}
	return items, nil
}

const commentCountsQuery = `SELECT status, count(*) FROM "content"."comments" GROUP BY status`

// CommentCounts returns the aggregate status counters.
func (s *Store) CommentCounts(ctx context.Context) (CommentCounts, error) {
	var counts CommentCounts
	rows, err := s.pool.Query(ctx, commentCountsQuery)
	if err != nil {
		return counts, fmt.Errorf("comment counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("comment counts scan: %w", err)
		}
		switch status {
		case CommentApproved:
			counts.Approved = n
		case CommentHold:
			counts.Moderated = n
		case CommentSpam:
			counts.Spam = n
		case CommentTrash:
			counts.Trash = n
		}
	}
	return counts, rows.Err()
}

// RecordIDsByType returns the IDs of every record of recordType.
func (s *Store) RecordIDsByType(ctx context.Context, recordType string) ([]int64, error) {
	sqlStr, args, err := sq.Select(col(recAlias, "id")).
		From(recTable + " " + recAlias).
		Where(sq.Eq{col(recAlias, "record_type"): recordType}).
		OrderBy(col(recAlias, "id")).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record ids: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("record ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("record ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
