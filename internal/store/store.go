// Package store runs compiled queries against PostgreSQL.
package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlekbai/query_forge/internal/schema"
)

var (
	// ErrTableMissing is returned when an arbitrary table does not exist.
	ErrTableMissing = errors.New("store: table does not exist")
	// ErrNotFound is returned when a saved query does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store executes queries over a connection pool.
type Store struct {
	pool   *pgxpool.Pool
	prefix string
}

// New returns a Store. prefix is prepended to arbitrary table names.
func New(pool *pgxpool.Pool, prefix string) *Store {
	return &Store{pool: pool, prefix: prefix}
}

// qi is shorthand for schema.QuoteIdent.
func qi(name string) string { return schema.QuoteIdent(name) }

// col renders alias.column.
func col(alias, column string) string { return fmt.Sprintf(`%s.%s`, alias, qi(column)) }

// textCol selects a nullable text column, reading NULL as "".
func textCol(alias, column string) string {
	return fmt.Sprintf(`COALESCE(%s, '') AS %s`, col(alias, column), qi(column))
}
