package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SavedQuery is a named schema document kept for reuse.
type SavedQuery struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	GraphState string    `json:"graph_state"`
	LogicJSON  string    `json:"logic_json"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	insertSavedQuery = `
INSERT INTO query_forge.saved_queries (id, name, graph_state, logic_json)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

	listSavedQueries = `
SELECT id, name, graph_state, logic_json, created_at
FROM query_forge.saved_queries
ORDER BY created_at DESC, name`

	getSavedQuery = `
SELECT id, name, graph_state, logic_json, created_at
FROM query_forge.saved_queries
WHERE id = $1`

	deleteSavedQuery = `DELETE FROM query_forge.saved_queries WHERE id = $1`
)

func (s *Store) CreateSavedQuery(ctx context.Context, q SavedQuery) (SavedQuery, error) {
	q.ID = uuid.New()
	if err := s.pool.QueryRow(ctx, insertSavedQuery, q.ID, q.Name, q.GraphState, q.LogicJSON).Scan(&q.CreatedAt); err != nil {
		return SavedQuery{}, fmt.Errorf("insert saved query: %w", err)
	}
	return q, nil
}

func (s *Store) ListSavedQueries(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.pool.Query(ctx, listSavedQueries)
	if err != nil {
		return nil, fmt.Errorf("list saved queries: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[SavedQuery])
	if err != nil {
		return nil, fmt.Errorf("scan saved queries: %w", err)
	}
	return out, nil
}

func (s *Store) GetSavedQuery(ctx context.Context, id uuid.UUID) (SavedQuery, error) {
	rows, err := s.pool.Query(ctx, getSavedQuery, id)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("get saved query: %w", err)
	}
	q, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[SavedQuery])
	if errors.Is(err, pgx.ErrNoRows) {
		return SavedQuery{}, ErrNotFound
	}
	if err != nil {
		return SavedQuery{}, fmt.Errorf("get saved query: %w", err)
	}
	return q, nil
}

func (s *Store) DeleteSavedQuery(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, deleteSavedQuery, id)
	if err != nil {
		return fmt.Errorf("delete saved query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
