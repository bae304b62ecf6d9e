package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const loadTaxonomiesQuery = `SELECT name FROM content.taxonomies ORDER BY name`

// Loader fetches the current taxonomy names.
type Loader func(ctx context.Context) ([]string, error)

// PoolLoader reads taxonomy names from the content schema.
func PoolLoader(pool *pgxpool.Pool) Loader {
	return func(ctx context.Context) ([]string, error) {
		rows, err := pool.Query(ctx, loadTaxonomiesQuery)
		if err != nil {
			return nil, err
		}
		return pgx.CollectRows(rows, pgx.RowTo[string])
	}
}

// Catalog caches the taxonomy names known to the store. It is a positive
// cache: a name missing here may still exist and is checked against the
// store by the caller.
type Catalog struct {
	mu         sync.RWMutex
	taxonomies map[string]bool
	loadedAt   time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{taxonomies: make(map[string]bool)}
}

func (c *Catalog) Load(ctx context.Context, load Loader) error {
	names, err := load(ctx)
	if err != nil {
		return fmt.Errorf("catalog taxonomies: %w", err)
	}
	c.Set(names)
	return nil
}

// Refresh reloads the catalog every interval until ctx is done. Failed
// reloads keep the previous contents and are reported to onError.
func (c *Catalog) Refresh(ctx context.Context, load Loader, every time.Duration, onError func(error)) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Load(ctx, load); err != nil && ctx.Err() == nil && onError != nil {
				onError(err)
			}
		}
	}
}

// Set replaces the catalog contents.
func (c *Catalog) Set(taxonomies []string) {
	tax := make(map[string]bool, len(taxonomies))
	for _, t := range taxonomies {
		tax[t] = true
	}

	c.mu.Lock()
	c.taxonomies = tax
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

func (c *Catalog) TaxonomyExists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.taxonomies[name]
}

// TaxonomyCount returns the number of loaded taxonomies.
func (c *Catalog) TaxonomyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.taxonomies)
}

// LoadedAt reports when the contents were last replaced.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
