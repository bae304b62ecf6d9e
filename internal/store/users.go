package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
)

const userAlias = "_u"

// UserFilter selects a page of users.
type UserFilter struct {
	Role   string
	Limit  int
	Offset int
	Sorts  []query.SortKey
}

var userSortColumns = map[query.SortField]string{
	query.SortID:    col(userAlias, "id"),
	query.SortTitle: col(userAlias, "display_name"),
	query.SortDate:  col(userAlias, "registered_at"),
}

func userBase(f UserFilter, columns ...string) sq.SelectBuilder {
	qb := sq.Select(columns...).
		From(`"content"."users" ` + userAlias).
		PlaceholderFormat(sq.Dollar)
	if f.Role != "" {
		qb = qb.Where(sq.Eq{col(userAlias, "role"): f.Role})
	}
	return qb
}

// BuildUserList renders the page query for f.
func BuildUserList(f UserFilter) (string, []any, error) {
	qb := userBase(f,
		col(userAlias, "id"), textCol(userAlias, "display_name"),
		textCol(userAlias, "description"), col(userAlias, "registered_at"),
		textCol(userAlias, "login"), textCol(userAlias, "email"), textCol(userAlias, "role"))

	for _, k := range f.Sorts {
		c, ok := userSortColumns[k.Field]
		if !ok {
			continue
		}
		if k.Desc {
			qb = qb.OrderBy(c + " DESC")
		} else {
			qb = qb.OrderBy(c + " ASC")
		}
	}
	qb = qb.OrderBy(col(userAlias, "id") + " ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	return qb.ToSql()
}

// Users returns a page of users in the common item shape and the total
// number of matching users.
func (s *Store) Users(ctx context.Context, f UserFilter) ([]result.Item, int, error) {
	sqlStr, args, err := BuildUserList(f)
	if err != nil {
		return nil, 0, fmt.Errorf("build user list: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var items []result.Item
	for rows.Next() {
		var (
			it                 result.Item
			login, email, role string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Content, &it.Date, &login, &email, &role); err != nil {
			return nil, 0, fmt.Errorf("user scan: %w", err)
		}
		it.Type = "user"
		it.OwnerID = it.ID
		it.Raw = map[string]any{"login": login, "email": email, "role": role}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("user rows: %w", err)
	}

	sqlStr, args, err = userBase(f, "count(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build user count: %w", err)
	}
	var total int
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("user count: %w", err)
	}
	return items, total, nil
}
