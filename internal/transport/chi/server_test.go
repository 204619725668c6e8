package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/engine"
	"github.com/artomart/craftsearch/internal/usecase/extraction"
	healthuc "github.com/artomart/craftsearch/internal/usecase/health"
	usageuc "github.com/artomart/craftsearch/internal/usecase/usage"
)

// --- Mocks ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockPurger struct {
	n   int
	err error
}

func (m *mockPurger) Purge(context.Context) (int, error) { return m.n, m.err }

type stubTextTagger struct{}

func (stubTextTagger) TagText(_ context.Context, text string) (domain.TextTagResult, error) {
	return domain.TextTagResult{Bundle: domain.TextFallback(text), TotalTokens: 42}, nil
}

// failingIndexEngine fails every single-product index call.
type failingIndexEngine struct {
	*engine.Engine
	err error
}

func (f failingIndexEngine) IndexProductEntry(context.Context, domain.Product) (domain.Entry, error) {
	return domain.Entry{}, f.err
}

// --- Helpers ---

func newTestRouter(eng Engine, purger CachePurger) http.Handler {
	h := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}}
	return NewRouter(NewServer(eng, h, purger, zap.NewNop()), nil, zap.NewNop())
}

func fallbackEngine() *engine.Engine {
	return engine.New(nil, nil, engine.Config{MaxBatchSize: 3}, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

var saree = map[string]any{
	"title":    "Handwoven Silk Saree",
	"tags":     []string{"silk", "traditional"},
	"category": "Textiles",
	"region":   "Tamil Nadu",
	"images":   []string{"https://cdn.example/saree.jpg"},
}

// --- Products ---

func TestIndexProduct_OK(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)

	rr := do(t, h, http.MethodPut, "/api/v1/products/p1", saree)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[indexResponse](t, rr)
	if !resp.Indexed || resp.ID != "p1" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.LexicalSource != domain.SourceFallback {
		t.Errorf("LexicalSource = %q", resp.LexicalSource)
	}
	if len(resp.Images) != 1 || resp.Images[0].Source != domain.SourceSimulated {
		t.Errorf("images = %+v", resp.Images)
	}
	if rr.Header().Get("X-Extraction-Tokens") != "" {
		t.Error("no provider was called, header must be absent")
	}
}

func TestIndexProduct_ExtractionTokensHeader(t *testing.T) {
	text := extraction.NewInstrumentedTextTagger(stubTextTagger{}, "test-model", nil, zap.NewNop())
	eng := engine.New(text, nil, engine.Config{}, zap.NewNop())
	h := newTestRouter(eng, nil)

	rr := do(t, h, http.MethodPut, "/api/v1/products/p1", map[string]any{"title": "Brass Lamp"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-Extraction-Tokens"); got != "42" {
		t.Errorf("X-Extraction-Tokens = %q, want 42", got)
	}
}

func TestIndexProduct_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"invalid", domain.ErrInvalidProduct, http.StatusUnprocessableEntity, ErrorCodeValidationFailed},
		{"internal", errors.New("boom"), http.StatusInternalServerError, ErrorCodeInternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(failingIndexEngine{Engine: fallbackEngine(), err: tc.err}, nil)

			rr := do(t, h, http.MethodPut, "/api/v1/products/p1", saree)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			resp := decode[indexResponse](t, rr)
			if resp.Indexed || resp.Code != tc.wantCode {
				t.Errorf("resp = %+v", resp)
			}
			if strings.Contains(resp.Message, "boom") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestIndexProduct_BadBody(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)
	rr := do(t, h, http.MethodPut, "/api/v1/products/p1", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestIndexProducts(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)

	rr := do(t, h, http.MethodPost, "/api/v1/products/batch", map[string]any{
		"products": []map[string]any{
			{"id": "a", "title": "Silk Saree"},
			{"id": "", "title": "orphan"},
			{"id": "c", "title": "Brass Lamp"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[batchResponse](t, rr)
	if resp.Succeeded != 2 || resp.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d", resp.Succeeded, resp.Failed)
	}
	if resp.Items[1].Error == nil || resp.Items[1].Error.Code != ErrorCodeValidationFailed {
		t.Errorf("item 1 = %+v", resp.Items[1])
	}
}

func TestIndexProducts_TooLarge(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)

	products := make([]map[string]any, 4)
	for i := range products {
		products[i] = map[string]any{"id": string(rune('a' + i))}
	}
	rr := do(t, h, http.MethodPost, "/api/v1/products/batch", map[string]any{"products": products})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeBatchTooLarge {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestSimilarProducts(t *testing.T) {
	eng := fallbackEngine()
	h := newTestRouter(eng, nil)
	do(t, h, http.MethodPut, "/api/v1/products/p1", saree)
	do(t, h, http.MethodPut, "/api/v1/products/p2", saree)

	rr := do(t, h, http.MethodGet, "/api/v1/products/p1/similar?limit=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[similarResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].Product.ID != "p2" {
		t.Errorf("results = %+v", resp.Results)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/products/missing/similar", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/v1/products/p1/similar?min_score=2", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad min_score: status = %d", rr.Code)
	}
}

// --- Search ---

func TestSearchGet(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)
	do(t, h, http.MethodPut, "/api/v1/products/p1", saree)

	rr := do(t, h, http.MethodGet, "/api/v1/search?q=silk+saree&threshold=0&region=Tamil+Nadu&images=false", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[searchResponse](t, rr)
	if resp.TotalFound != 1 || len(resp.Results) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	hit := resp.Results[0]
	if hit.Product.ID != "p1" || hit.AdjustedScore <= hit.Similarity {
		t.Errorf("region boost not applied: %+v", hit)
	}
	if hit.ImageAnalyses != nil {
		t.Error("image analyses requested off")
	}
	if hit.MatchedTags == nil {
		t.Error("matchedTags must serialize as a list")
	}
}

func TestSearchPost(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)
	do(t, h, http.MethodPut, "/api/v1/products/p1", saree)

	rr := do(t, h, http.MethodPost, "/api/v1/search", map[string]any{
		"query":     "silk saree",
		"threshold": 0.0,
		"limit":     5,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[searchResponse](t, rr)
	if len(resp.Results) != 1 || len(resp.Results[0].ImageAnalyses) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch_Validation(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"missing q", http.MethodGet, "/api/v1/search", nil},
		{"bad limit", http.MethodGet, "/api/v1/search?q=silk&limit=abc", nil},
		{"bad bool", http.MethodGet, "/api/v1/search?q=silk&images=maybe", nil},
		{"threshold range", http.MethodGet, "/api/v1/search?q=silk&threshold=3", nil},
		{"blank body query", http.MethodPost, "/api/v1/search", map[string]any{"query": "  "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, tc.method, tc.path, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}

	rr := do(t, h, http.MethodGet, "/api/v1/analytics", nil)
	if resp := decode[analyticsResponse](t, rr); resp.TotalSearches != 0 {
		t.Errorf("rejected searches must not be recorded, got %d", resp.TotalSearches)
	}
}

// --- Analytics and index ---

func TestAnalytics(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)
	do(t, h, http.MethodGet, "/api/v1/search?q=silk", nil)
	do(t, h, http.MethodGet, "/api/v1/search?q=silk", nil)
	do(t, h, http.MethodGet, "/api/v1/search?q=lamp", nil)

	rr := do(t, h, http.MethodGet, "/api/v1/analytics?recent=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[analyticsResponse](t, rr)
	if resp.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d", resp.TotalSearches)
	}
	if len(resp.PopularQueries) != 2 || resp.PopularQueries[0].Query != "silk" || resp.PopularQueries[0].Count != 2 {
		t.Errorf("PopularQueries = %+v", resp.PopularQueries)
	}
	if len(resp.Recent) != 2 || resp.Recent[0].Query != "lamp" {
		t.Errorf("Recent = %+v", resp.Recent)
	}
}

func TestIndexStatsAndClear(t *testing.T) {
	h := newTestRouter(fallbackEngine(), nil)
	do(t, h, http.MethodPut, "/api/v1/products/p1", saree)

	stats := decode[engine.Stats](t, do(t, h, http.MethodGet, "/api/v1/index/stats", nil))
	if stats.TotalProducts != 1 || stats.IndexSize != 3 || stats.LastIndexed == nil {
		t.Errorf("stats = %+v", stats)
	}

	rr := do(t, h, http.MethodDelete, "/api/v1/index", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rr.Code)
	}

	stats = decode[engine.Stats](t, do(t, h, http.MethodGet, "/api/v1/index/stats", nil))
	if stats.TotalProducts != 0 || stats.LastIndexed != nil {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestPurgeTagCache(t *testing.T) {
	tests := []struct {
		name       string
		purger     CachePurger
		wantStatus int
	}{
		{"not configured", nil, http.StatusNotImplemented},
		{"ok", &mockPurger{n: 7}, http.StatusOK},
		{"store error", &mockPurger{err: errors.New("conn reset")}, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(fallbackEngine(), tc.purger)
			rr := do(t, h, http.MethodDelete, "/api/v1/cache/tags", nil)
			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK {
				if resp := decode[purgeResponse](t, rr); resp.Purged != 7 {
					t.Errorf("purged = %d", resp.Purged)
				}
			}
		})
	}
}

func TestExtractionUsage(t *testing.T) {
	tracker := extraction.NewBudgetTracker("test", 1000, 0, extraction.BudgetActionReject, zap.NewNop())
	text := extraction.NewInstrumentedTextTagger(stubTextTagger{}, "test-model", tracker, zap.NewNop())
	eng := engine.New(text, nil, engine.Config{}, zap.NewNop())
	hc := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	h := NewRouter(NewServer(eng, hc, nil, zap.NewNop()).WithUsage(usageuc.New(tracker)), nil, zap.NewNop())

	if rr := do(t, h, http.MethodPut, "/api/v1/products/p1", map[string]any{"title": "Brass Lamp"}); rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/api/v1/usage?period=day", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[usageResponse](t, rr)
	if resp.Period != "day" || !resp.Configured {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Metrics.Tokens != 42 || resp.Metrics.ProviderCalls != 1 {
		t.Errorf("metrics = %+v", resp.Metrics)
	}
	if resp.Budget.TokensLimit != 1000 || resp.Budget.TokensRemaining != 958 || resp.Budget.IsExhausted {
		t.Errorf("budget = %+v", resp.Budget)
	}
	if resp.PeriodStart == nil || resp.Budget.ResetsAt == nil {
		t.Error("day report should carry period bounds")
	}

	if rr := do(t, h, http.MethodGet, "/api/v1/usage?period=week", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d", rr.Code)
	}
	if rr := do(t, newTestRouter(fallbackEngine(), nil), http.MethodGet, "/api/v1/usage", nil); rr.Code != http.StatusNotImplemented {
		t.Errorf("unconfigured status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	hc := &mockHealth{report: healthuc.Report{
		Status:   healthuc.Degraded,
		Checks:   map[string]healthuc.CheckResult{"database": healthuc.CheckError},
		Products: 3,
	}}
	h := NewRouter(NewServer(fallbackEngine(), hc, nil, zap.NewNop()), []string{"secret"}, zap.NewNop())

	rr := do(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[healthResponse](t, rr)
	if resp.Status != "degraded" || resp.Checks["database"] != "error" || resp.Products != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not propagated")
	}
}

func TestRouter_AuthAndNotFound(t *testing.T) {
	h := NewRouter(NewServer(fallbackEngine(), &mockHealth{}, nil, zap.NewNop()), []string{"secret"}, zap.NewNop())

	if rr := do(t, h, http.MethodGet, "/api/v1/index/stats", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("code = %q", resp.Code)
	}
}
