package request

import (
	"fmt"
	"math"
	"strings"
)

// SimilarRequest is a validated "more like this product" query.
type SimilarRequest struct {
	productID string
	limit     int
	minScore  float64
}

// NewSimilar validates and normalizes similar request parameters.
func NewSimilar(productID string, limit int, minScore float64) (SimilarRequest, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return SimilarRequest{}, fmt.Errorf("product id is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if math.IsNaN(minScore) || minScore < -1 || minScore > 1 {
		return SimilarRequest{}, fmt.Errorf("min_score must be between -1 and 1")
	}

	return SimilarRequest{
		productID: productID,
		limit:     limit,
		minScore:  minScore,
	}, nil
}

// ProductID returns the reference product.
func (r *SimilarRequest) ProductID() string { return r.productID }

// Limit returns the maximum results to return.
func (r *SimilarRequest) Limit() int { return r.limit }

// MinScore returns the minimum cosine similarity.
func (r *SimilarRequest) MinScore() float64 { return r.minScore }
