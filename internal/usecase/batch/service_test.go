package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	dombatch "github.com/artomart/craftsearch/internal/domain/batch"
)

type mockIndexer struct {
	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	fn       func(p domain.Product) (domain.Entry, error)
}

func (m *mockIndexer) Index(_ context.Context, p domain.Product) (domain.Entry, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		old := m.peak.Load()
		if n <= old || m.peak.CompareAndSwap(old, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, p.ID)
	m.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	if m.fn != nil {
		return m.fn(p)
	}
	return domain.Entry{Product: p, LexicalSource: domain.SourceExtracted}, nil
}

func products(ids ...string) []domain.Product {
	out := make([]domain.Product, len(ids))
	for i, id := range ids {
		out[i] = domain.Product{ID: id, Title: "product " + id}
	}
	return out
}

func TestIndex_AllSucceed(t *testing.T) {
	idx := &mockIndexer{}
	svc := New(idx, zap.NewNop())

	results := svc.Index(context.Background(), products("a", "b", "c"))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, id := range []string{"a", "b", "c"} {
		if results[i].ID() != id || results[i].Status() != dombatch.StatusIndexed {
			t.Errorf("result %d = %+v", i, results[i])
		}
	}
}

func TestIndex_PartialFailure(t *testing.T) {
	idx := &mockIndexer{fn: func(p domain.Product) (domain.Entry, error) {
		if p.ID == "bad" {
			return domain.Entry{}, domain.ErrInvalidProduct
		}
		return domain.Entry{Product: p}, nil
	}}
	svc := New(idx, zap.NewNop())

	results := svc.Index(context.Background(), products("a", "bad", "c"))
	if !results[0].OK() || !results[2].OK() {
		t.Error("siblings of a failed item should still be indexed")
	}
	if results[1].OK() || !errors.Is(results[1].Err(), domain.ErrInvalidProduct) {
		t.Errorf("result[1] = %+v", results[1])
	}
}

func TestIndex_PanicIsContained(t *testing.T) {
	idx := &mockIndexer{fn: func(p domain.Product) (domain.Entry, error) {
		if p.ID == "boom" {
			panic("unexpected nil")
		}
		return domain.Entry{Product: p}, nil
	}}
	svc := New(idx, zap.NewNop())

	results := svc.Index(context.Background(), products("boom", "ok"))
	if results[0].OK() || results[0].Err() == nil {
		t.Errorf("panic should become an item error: %+v", results[0])
	}
	if !results[1].OK() {
		t.Errorf("result[1] = %+v", results[1])
	}
}

func TestIndex_ExceedsMaxBatchSize(t *testing.T) {
	idx := &mockIndexer{}
	svc := New(idx, zap.NewNop()).WithMaxBatchSize(2)

	results := svc.Index(context.Background(), products("a", "b", "c"))
	for _, r := range results {
		if r.OK() {
			t.Errorf("expected error for oversized batch, got %+v", r)
		}
	}
	if len(idx.calls) != 0 {
		t.Errorf("indexer should not be called, got %v", idx.calls)
	}
}

func TestIndex_RespectsConcurrency(t *testing.T) {
	idx := &mockIndexer{}
	svc := New(idx, zap.NewNop()).WithConcurrency(2)

	svc.Index(context.Background(), products("a", "b", "c", "d", "e", "f"))
	if peak := idx.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
	if len(idx.calls) != 6 {
		t.Errorf("calls = %d, want 6", len(idx.calls))
	}
}

func TestIndex_Empty(t *testing.T) {
	svc := New(&mockIndexer{}, zap.NewNop())
	if results := svc.Index(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
