package tagcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/artomart/craftsearch/internal/db"
)

// keyStore is the consumer interface for cache purging (ISP).
type keyStore interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// Purger removes every cached tag entry.
type Purger struct {
	store keyStore
}

// NewPurger creates a purger over the given key store.
func NewPurger(s keyStore) *Purger {
	return &Purger{store: s}
}

// Purge deletes all tag cache keys and returns how many were removed.
func (p *Purger) Purge(ctx context.Context) (int, error) {
	keys, err := p.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan tag cache: %w", err)
	}

	removed := 0
	for _, k := range keys {
		if err := p.store.Del(ctx, k); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			return removed, fmt.Errorf("delete %s: %w", k, err)
		}
		removed++
	}
	return removed, nil
}
