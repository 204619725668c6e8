package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/embedding"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/domain/search/result"
)

type failingTextTagger struct{}

func (failingTextTagger) TagText(context.Context, string) (domain.TextTagResult, error) {
	return domain.TextTagResult{}, errors.New("connection refused")
}

type panicTextTagger struct{}

func (panicTextTagger) TagText(context.Context, string) (domain.TextTagResult, error) {
	panic("nil pointer")
}

func newFallbackEngine() *Engine {
	return New(nil, nil, Config{}, zap.NewNop())
}

func sareeProduct() domain.Product {
	return domain.Product{
		ID:       "p1",
		Title:    "Handwoven Silk Saree",
		Tags:     []string{"silk", "traditional"},
		Category: "Textiles",
		Region:   "Tamil Nadu",
		Images:   []string{},
	}
}

func TestIndexProduct_Idempotent(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()

	if !e.IndexProduct(ctx, sareeProduct()) {
		t.Fatal("first index failed")
	}
	first, _ := e.catalog.Get("p1")
	if !e.IndexProduct(ctx, sareeProduct()) {
		t.Fatal("second index failed")
	}
	second, _ := e.catalog.Get("p1")

	for i := range first.Combined {
		if math.Float64bits(first.Combined[i]) != math.Float64bits(second.Combined[i]) {
			t.Fatalf("component %d differs: %v vs %v", i, first.Combined[i], second.Combined[i])
		}
	}
	if got := e.IndexStats().TotalProducts; got != 1 {
		t.Errorf("TotalProducts = %d, want 1", got)
	}
}

func TestIndexProduct_Invalid(t *testing.T) {
	e := newFallbackEngine()
	if e.IndexProduct(context.Background(), domain.Product{Title: "no id"}) {
		t.Error("expected false for missing id")
	}
	_, err := e.IndexProductEntry(context.Background(), domain.Product{})
	if !errors.Is(err, domain.ErrInvalidProduct) {
		t.Errorf("expected ErrInvalidProduct, got %v", err)
	}
}

func TestSearch_ThresholdExcludesWeakMatch(t *testing.T) {
	e := newFallbackEngine()
	query := "silk saree"

	// Build a stored vector whose cosine with the query vector is 0.05.
	q := embedding.FromTags(domain.TextFallback(query).All())
	free := -1
	for i, x := range q {
		if x == 0 {
			free = i
			break
		}
	}
	if free < 0 {
		t.Fatal("query vector has no free slot")
	}
	v := embedding.Scale(q, 0.05)
	v[free] = math.Sqrt(1 - 0.05*0.05)
	e.catalog.Put(domain.Entry{Product: domain.Product{ID: "weak"}, Combined: v})

	if s := embedding.Cosine(q, v); math.Abs(s-0.05) > 1e-9 {
		t.Fatalf("setup: cosine = %v", s)
	}

	opts := request.Default()
	opts.Threshold = 0.1
	resp := e.SearchProducts(context.Background(), query, opts)
	if len(resp.Results) != 0 || resp.TotalFound != 0 {
		t.Errorf("results = %d, totalFound = %d, want 0/0", len(resp.Results), resp.TotalFound)
	}
}

func TestSearch_BoostCapScenario(t *testing.T) {
	bundle := domain.TagBundle{
		PrimaryTags:     []string{"kalamkari"},
		CulturalContext: []string{"andhra", "temple", "mythology", "natural dyes", "block print"},
	}
	text := &stubTextTagger{bundle: bundle}
	e := New(text, nil, Config{}, zap.NewNop())
	ctx := context.Background()

	p := domain.Product{
		ID:      "k1",
		Title:   "Kalamkari panel",
		Region:  "Andhra Pradesh",
		Tags:    []string{"andhra", "temple art", "mythology", "natural dyes", "block print"},
		Artisan: domain.Artisan{Specialty: "kalamkari"},
	}
	if !e.IndexProduct(ctx, p) {
		t.Fatal("index failed")
	}

	opts := request.Default()
	opts.UserRegion = "Andhra Pradesh"
	resp := e.SearchProducts(ctx, "kalamkari", opts)
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	h := resp.Results[0]
	if math.Abs(h.AdjustedScore-1.5*h.Similarity) > 1e-9 {
		t.Errorf("adjusted = %v, want exactly 1.5 x %v", h.AdjustedScore, h.Similarity)
	}
}

type stubTextTagger struct {
	bundle domain.TagBundle
}

func (s *stubTextTagger) TagText(context.Context, string) (domain.TextTagResult, error) {
	return domain.TextTagResult{Bundle: s.bundle, TotalTokens: 10}, nil
}

func TestSearchAnalytics_Empty(t *testing.T) {
	s := newFallbackEngine().SearchAnalytics()
	if s.TotalSearches != 0 || s.AverageResults != 0 || math.IsNaN(s.AverageResults) {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.PopularQueries == nil || len(s.PopularQueries) != 0 {
		t.Errorf("PopularQueries = %v, want []", s.PopularQueries)
	}
}

func TestEndToEnd_FallbackScenario(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()
	if !e.IndexProduct(ctx, sareeProduct()) {
		t.Fatal("index failed")
	}

	opts := request.Default()
	opts.Threshold = 0
	resp := e.SearchProducts(ctx, "silk saree", opts)

	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if len(resp.Results) != 1 || resp.Results[0].Product.ID != "p1" {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].AdjustedScore <= 0 {
		t.Errorf("adjustedScore = %v, want > 0", resp.Results[0].AdjustedScore)
	}

	a := e.SearchAnalytics()
	if a.TotalSearches != 1 || a.PopularQueries[0].Query != "silk saree" {
		t.Errorf("analytics = %+v", a)
	}
}

func TestGracefulDegradation(t *testing.T) {
	for name, tagger := range map[string]domain.TextTagger{
		"error": failingTextTagger{},
		"panic": panicTextTagger{},
	} {
		t.Run(name, func(t *testing.T) {
			e := New(tagger, nil, Config{}, zap.NewNop())
			ctx := context.Background()
			p := sareeProduct()

			if !e.IndexProduct(ctx, p) {
				t.Fatal("IndexProduct should succeed on fallback tags")
			}
			resp := e.SearchProducts(ctx, p.Title, request.Default())
			if resp.Error != "" {
				t.Fatalf("unexpected error: %s", resp.Error)
			}
			if len(resp.Results) == 0 || resp.Results[0].Product.ID != "p1" {
				t.Errorf("product not retrievable by its title: %+v", resp.Results)
			}
		})
	}
}

func TestClearIndex(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()
	e.IndexProduct(ctx, sareeProduct())

	before := e.SearchProducts(ctx, "silk saree", request.Default())
	if len(before.Results) == 0 {
		t.Fatal("expected a result before clearing")
	}

	e.ClearIndex()

	stats := e.IndexStats()
	if stats.TotalProducts != 0 || stats.IndexSize != 0 || stats.LastIndexed != nil {
		t.Errorf("stats after clear = %+v", stats)
	}
	after := e.SearchProducts(ctx, "silk saree", request.Default())
	if len(after.Results) != 0 {
		t.Errorf("results after clear = %d", len(after.Results))
	}
	if stats.SearchHistory != 1 {
		t.Errorf("SearchHistory = %d, history survives ClearIndex", stats.SearchHistory)
	}
}

func TestIndexStats(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()

	p := sareeProduct()
	p.Images = []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}
	e.IndexProduct(ctx, p)
	e.IndexProduct(ctx, domain.Product{ID: "p2", Title: "Brass Lamp"})

	s := e.IndexStats()
	if s.TotalProducts != 2 {
		t.Errorf("TotalProducts = %d", s.TotalProducts)
	}
	// p1: lexical + 2 images + combined; p2: lexical + combined.
	if s.IndexSize != 6 {
		t.Errorf("IndexSize = %d, want 6", s.IndexSize)
	}
	if s.LastIndexed == nil {
		t.Error("LastIndexed should be set")
	}
}

func TestIndexProducts(t *testing.T) {
	e := newFallbackEngine()
	results := e.IndexProducts(context.Background(), []domain.Product{
		sareeProduct(),
		{ID: "", Title: "orphan"},
		{ID: "p3", Title: "Blue Pottery Vase"},
	})

	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Errorf("statuses = %v %v %v", results[0].Status(), results[1].Status(), results[2].Status())
	}
	if e.IndexStats().TotalProducts != 2 {
		t.Errorf("TotalProducts = %d", e.IndexStats().TotalProducts)
	}
}

func TestSimilarProducts(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()
	e.IndexProduct(ctx, sareeProduct())
	twin := sareeProduct()
	twin.ID = "p2"
	e.IndexProduct(ctx, twin)

	hits, err := e.SimilarProducts(ctx, "p1", 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Product.ID != "p2" {
		t.Errorf("hits = %+v", hits)
	}

	if _, err := e.SimilarProducts(ctx, "missing", 5, 0); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := e.SimilarProducts(ctx, " ", 5, 0); !errors.Is(err, domain.ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
	if e.IndexStats().SearchHistory != 0 {
		t.Error("similar lookups must not be recorded")
	}
}

func TestIndexedEntryIsolation(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()

	p := sareeProduct()
	p.Images = []string{"https://cdn.example/saree.jpg"}
	if !e.IndexProduct(ctx, p) {
		t.Fatal("index failed")
	}
	twin := sareeProduct()
	twin.ID = "p2"
	e.IndexProduct(ctx, twin)

	// The caller keeps ownership of its product.
	p.Tags[0] = "changed-by-caller"
	p.Images[0] = "changed-by-caller"

	opts := request.Default()
	opts.Threshold = 0
	resp := e.SearchProducts(ctx, "silk saree", opts)
	var hit *result.Hit
	for i := range resp.Results {
		if resp.Results[i].Product.ID == "p1" {
			hit = &resp.Results[i]
		}
	}
	if hit == nil || len(hit.ImageAnalyses) != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	hit.Product.Tags[1] = "changed-by-hit"
	hit.ImageAnalyses[0].VisualFeatures[0] = "changed-by-hit"

	hits, err := e.SimilarProducts(ctx, "p2", 5, -1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("similar = %+v, %v", hits, err)
	}
	hits[0].Product.Tags[0] = "changed-by-similar"

	got, _ := e.catalog.Get("p1")
	got.Lexical.SearchTerms[0] = "changed-by-get"
	got.Combined[0] = 42

	stored, _ := e.catalog.Get("p1")
	if stored.Product.Tags[0] != "silk" || stored.Product.Tags[1] != "traditional" {
		t.Errorf("stored tags = %v", stored.Product.Tags)
	}
	if stored.Product.Images[0] != "https://cdn.example/saree.jpg" {
		t.Errorf("stored images = %v", stored.Product.Images)
	}
	if stored.Images[0].Analysis.VisualFeatures[0] != "vibrant colors" {
		t.Errorf("stored image analysis = %v", stored.Images[0].Analysis.VisualFeatures)
	}
	if stored.Lexical.SearchTerms[0] == "changed-by-get" || stored.Combined[0] == 42 {
		t.Errorf("stored lexical data aliased by Get: %v", stored.Lexical.SearchTerms)
	}

	// Boost matching still sees the original tags.
	opts.UserRegion = "Kerala"
	resp = e.SearchProducts(ctx, "silk saree", opts)
	for _, h := range resp.Results {
		if h.Product.Tags[0] != "silk" {
			t.Errorf("hit %s carries mutated tags %v", h.Product.ID, h.Product.Tags)
		}
	}
}

func TestConcurrentIndexAndSearch(t *testing.T) {
	e := newFallbackEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p := sareeProduct()
			p.ID = string(rune('a' + i))
			e.IndexProduct(ctx, p)
		}()
		go func() {
			defer wg.Done()
			e.SearchProducts(ctx, "silk", request.Default())
		}()
	}
	wg.Wait()

	if got := e.IndexStats().TotalProducts; got != 20 {
		t.Errorf("TotalProducts = %d, want 20", got)
	}
	if got := e.SearchAnalytics().TotalSearches; got != 20 {
		t.Errorf("TotalSearches = %d, want 20", got)
	}
}
