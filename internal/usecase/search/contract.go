package search

import (
	"context"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
	"github.com/artomart/craftsearch/internal/usecase/extraction"
)

// QueryExtractor turns a query into tags. It never fails.
type QueryExtractor interface {
	ExtractText(ctx context.Context, text string) extraction.TextOutcome
}

// Index reads indexed entries.
type Index interface {
	Snapshot() []domain.Entry
	Get(id string) (domain.Entry, bool)
}

// HistoryRecorder appends searches to the history log.
type HistoryRecorder interface {
	Record(e analytics.Entry)
}
