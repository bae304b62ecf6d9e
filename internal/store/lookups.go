package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MaxAttributeKeys bounds field discovery.
const MaxAttributeKeys = 100

const (
	attributeKeysQuery = `
SELECT DISTINCT a.key
FROM content.record_attributes a
JOIN content.records r ON r.id = a.record_id
WHERE r.record_type = $1 AND a.key NOT LIKE '\_%'
ORDER BY a.key
LIMIT $2`

	viewerAttributeQuery = `
SELECT value FROM content.user_attributes
WHERE user_id = $1 AND key = $2
LIMIT 1`

	recordOwnerQuery = `SELECT owner_id FROM content.records WHERE id = $1`

	recordTermsQuery = `
SELECT t.id
FROM content.record_terms rt
JOIN content.terms t ON t.id = rt.term_id
WHERE rt.record_id = $1 AND t.taxonomy = $2
ORDER BY t.id`

	taxonomyExistsQuery = `SELECT EXISTS (SELECT 1 FROM content.taxonomies WHERE name = $1)`
)

// AttributeKeys lists up to MaxAttributeKeys distinct attribute keys used
// by records of recordType, skipping keys that start with an underscore.
func (s *Store) AttributeKeys(ctx context.Context, recordType string) ([]string, error) {
	rows, err := s.pool.Query(ctx, attributeKeysQuery, recordType, MaxAttributeKeys)
	if err != nil {
		return nil, fmt.Errorf("attribute keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("attribute keys scan: %w", err)
	}
	return keys, nil
}

// ViewerAttribute returns the value of one user attribute, or "" when unset.
func (s *Store) ViewerAttribute(ctx context.Context, userID int64, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, viewerAttributeQuery, userID, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("viewer attribute %q: %w", key, err)
	}
	return v, nil
}

// RecordOwner returns the owner of a record, or 0 when it does not exist.
func (s *Store) RecordOwner(ctx context.Context, recordID int64) (int64, error) {
	var owner int64
	err := s.pool.QueryRow(ctx, recordOwnerQuery, recordID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("record owner: %w", err)
	}
	return owner, nil
}

// RecordTerms returns the term IDs attached to a record in one taxonomy.
func (s *Store) RecordTerms(ctx context.Context, recordID int64, taxonomy string) ([]int64, error) {
	rows, err := s.pool.Query(ctx, recordTermsQuery, recordID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("record terms: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("record terms scan: %w", err)
	}
	return ids, nil
}

// TaxonomyExists reports whether a taxonomy is registered right now.
func (s *Store) TaxonomyExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, taxonomyExistsQuery, name).Scan(&ok); err != nil {
		return false, fmt.Errorf("taxonomy exists: %w", err)
	}
	return ok, nil
}
