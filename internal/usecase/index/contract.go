package index

import (
	"context"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/usecase/extraction"
)

// Extractor produces tags for product text and images. It never fails.
type Extractor interface {
	ExtractText(ctx context.Context, text string) extraction.TextOutcome
	ExtractImage(ctx context.Context, ref domain.ImageRef) extraction.ImageOutcome
}

// Store holds indexed entries, overwriting by product id.
type Store interface {
	Put(e domain.Entry)
}
