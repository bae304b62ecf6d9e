package schema

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

// ErrUndecodable is returned for documents that are not a non-empty JSON
// object. Callers answer these with the empty result.
var ErrUndecodable = errors.New("schema: undecodable document")

// Parse decodes raw into a generic document.
func Parse(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, ErrUndecodable
	}
	return m, nil
}

// Decoder parses documents and keeps recently seen ones. Cached documents
// are shared between callers and must be treated as read-only.
type Decoder struct {
	cache *arc.ARCCache[[sha256.Size]byte, map[string]any]
}

func NewDecoder(size int) (*Decoder, error) {
	if size < 1 {
		size = 1
	}
	cache, err := arc.NewARC[[sha256.Size]byte, map[string]any](size)
	if err != nil {
		return nil, fmt.Errorf("schema decoder cache: %w", err)
	}
	return &Decoder{cache: cache}, nil
}

func (d *Decoder) Decode(raw []byte) (map[string]any, error) {
	key := sha256.Sum256(raw)
	if m, ok := d.cache.Get(key); ok {
		return m, nil
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	d.cache.Add(key, m)
	return m, nil
}

func (d *Decoder) Len() int { return d.cache.Len() }
