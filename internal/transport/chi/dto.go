package chi

import (
	"time"

	"github.com/artomart/craftsearch/internal/domain"
	dombatch "github.com/artomart/craftsearch/internal/domain/batch"
	"github.com/artomart/craftsearch/internal/domain/search/result"
	domusage "github.com/artomart/craftsearch/internal/domain/usage"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeUnauthorized            ErrorCode = "unauthorized"
	ErrorCodeValidationFailed        ErrorCode = "validation_failed"
	ErrorCodeProductNotFound         ErrorCode = "product_not_found"
	ErrorCodeBatchTooLarge           ErrorCode = "batch_too_large"
	ErrorCodeExtractionQuotaExceeded ErrorCode = "extraction_quota_exceeded"
	ErrorCodeExtractionProviderError ErrorCode = "extraction_provider_error"
	ErrorCodeNotConfigured           ErrorCode = "not_configured"
	ErrorCodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type imageIndexed struct {
	Ref    string                  `json:"ref"`
	Source domain.ExtractionSource `json:"source"`
}

type indexResponse struct {
	Indexed       bool                    `json:"indexed"`
	ID            string                  `json:"id"`
	LexicalSource domain.ExtractionSource `json:"lexicalSource,omitempty"`
	Images        []imageIndexed          `json:"images,omitempty"`
	Code          ErrorCode               `json:"code,omitempty"`
	Message       string                  `json:"message,omitempty"`
}

type batchRequest struct {
	Products []domain.Product `json:"products"`
}

type batchItem struct {
	ID            string                  `json:"id"`
	Status        dombatch.ItemStatus     `json:"status"`
	LexicalSource domain.ExtractionSource `json:"lexicalSource,omitempty"`
	Images        int                     `json:"images,omitempty"`
	Error         *ErrorResponse          `json:"error,omitempty"`
}

type batchResponse struct {
	Items     []batchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type searchRequest struct {
	Query              string   `json:"query"`
	Limit              *int     `json:"limit,omitempty"`
	Threshold          *float64 `json:"threshold,omitempty"`
	IncludeImageSearch *bool    `json:"includeImageSearch,omitempty"`
	BoostCultural      *bool    `json:"boostCultural,omitempty"`
	UserRegion         *string  `json:"userRegion,omitempty"`
}

type hitResponse struct {
	Product       domain.Product         `json:"product"`
	Similarity    float64                `json:"similarity"`
	AdjustedScore float64                `json:"adjustedScore"`
	MatchedTags   []string               `json:"matchedTags"`
	ImageAnalyses []domain.ImageAnalysis `json:"imageAnalyses,omitempty"`
}

type searchResponse struct {
	Results    []hitResponse `json:"results"`
	TotalFound int           `json:"totalFound"`
	Error      string        `json:"error,omitempty"`
}

type similarResponse struct {
	Results []hitResponse `json:"results"`
}

type analyticsResponse struct {
	analytics.Summary
	Recent []analytics.Entry `json:"recent,omitempty"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Products int               `json:"products"`
}

type purgeResponse struct {
	Purged int `json:"purged"`
}

type usageResponse struct {
	Period      string         `json:"period"`
	PeriodStart *string        `json:"period_start,omitempty"`
	PeriodEnd   *string        `json:"period_end,omitempty"`
	Configured  bool           `json:"configured"`
	Metrics     usageMetrics   `json:"metrics"`
	Budget      budgetResponse `json:"budget"`
}

type usageMetrics struct {
	ProviderCalls int64 `json:"provider_calls"`
	Tokens        int64 `json:"tokens"`
}

type budgetResponse struct {
	TokensLimit     int64   `json:"tokens_limit"`
	TokensRemaining int64   `json:"tokens_remaining"`
	IsExhausted     bool    `json:"is_exhausted"`
	ResetsAt        *string `json:"resets_at,omitempty"`
}

func usageToResponse(r *domusage.Report) usageResponse {
	m, b := r.Metrics(), r.Budget()
	return usageResponse{
		Period:      string(r.Period()),
		PeriodStart: millisToISO(r.PeriodStart()),
		PeriodEnd:   millisToISO(r.PeriodEnd()),
		Configured:  r.Configured(),
		Metrics:     usageMetrics{ProviderCalls: m.ProviderCalls(), Tokens: m.Tokens()},
		Budget: budgetResponse{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			ResetsAt:        millisToISO(b.ResetsAt()),
		},
	}
}

// millisToISO renders unix millis as RFC 3339; zero means unset.
func millisToISO(ms int64) *string {
	if ms == 0 {
		return nil
	}
	s := time.UnixMilli(ms).UTC().Format(time.RFC3339)
	return &s
}

func entryToResponse(e *domain.Entry) indexResponse {
	resp := indexResponse{
		Indexed:       true,
		ID:            e.Product.ID,
		LexicalSource: e.LexicalSource,
	}
	for _, img := range e.Images {
		resp.Images = append(resp.Images, imageIndexed{Ref: img.Ref, Source: img.Source})
	}
	return resp
}

func hitsToResponse(hits []result.Hit) []hitResponse {
	out := make([]hitResponse, len(hits))
	for i, h := range hits {
		tags := h.MatchedTags
		if tags == nil {
			tags = []string{}
		}
		out[i] = hitResponse{
			Product:       h.Product,
			Similarity:    h.Similarity,
			AdjustedScore: h.AdjustedScore,
			MatchedTags:   tags,
			ImageAnalyses: h.ImageAnalyses,
		}
	}
	return out
}

func batchResultToResponse(r dombatch.Result) batchItem {
	item := batchItem{
		ID:            r.ID(),
		Status:        r.Status(),
		LexicalSource: r.LexicalSource(),
		Images:        r.Images(),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{
			Code:    errorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}
