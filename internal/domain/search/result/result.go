package result

import "github.com/artomart/craftsearch/internal/domain"

// MaxMatchedTags bounds the explanation list attached to a hit.
const MaxMatchedTags = 5

// Hit is a single ranked search result.
type Hit struct {
	Product       domain.Product         `json:"product"`
	Similarity    float64                `json:"similarity"`
	AdjustedScore float64                `json:"adjustedScore"`
	MatchedTags   []string               `json:"matchedTags"`
	ImageAnalyses []domain.ImageAnalysis `json:"imageAnalyses,omitempty"`
}

// Response is the outcome of a search. Error is set instead of failing the caller.
type Response struct {
	Results    []Hit  `json:"results"`
	TotalFound int    `json:"totalFound"`
	Error      string `json:"error,omitempty"`
}

// TopScore returns the adjusted score of the first hit, or 0.
func (r *Response) TopScore() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return r.Results[0].AdjustedScore
}

// Failed builds the empty response returned when a search cannot complete.
func Failed(err error) Response {
	return Response{Results: []Hit{}, TotalFound: 0, Error: err.Error()}
}
