package batch

import (
	"context"

	"github.com/artomart/craftsearch/internal/domain"
)

// Indexer indexes a single product.
type Indexer interface {
	Index(ctx context.Context, p domain.Product) (domain.Entry, error)
}
