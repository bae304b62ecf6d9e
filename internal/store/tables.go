package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/atlekbai/query_forge/internal/schema"
)

// TableName returns the prefixed, sanitized table name, or "" when nothing
// survives sanitizing.
func (s *Store) TableName(name string) string {
	clean := schema.SanitizeIdent(name)
	if clean == "" {
		return ""
	}
	return schema.SanitizeIdent(s.prefix + clean)
}

// TableRows returns a page of rows from an arbitrary table and its total
// row count. ErrTableMissing is returned when the table does not exist.
func (s *Store) TableRows(ctx context.Context, name string, limit, offset int) ([]map[string]any, int, error) {
	table := s.TableName(name)
	if table == "" {
		return nil, 0, fmt.Errorf("table %q: %w", name, ErrTableMissing)
	}
	qualified := `"public".` + qi(table)

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, qualified).Scan(&exists); err != nil {
		return nil, 0, fmt.Errorf("table %s lookup: %w", table, err)
	}
	if !exists {
		return nil, 0, fmt.Errorf("table %s: %w", table, ErrTableMissing)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+qualified).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("table %s count: %w", table, err)
	}

	sqlStr, args, err := sq.Select("*").
		From(qualified).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build table rows: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("table %s rows: %w", table, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, 0, fmt.Errorf("table %s collect: %w", table, err)
	}
	return out, total, nil
}
