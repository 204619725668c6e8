package domain

import (
	"slices"
	"strings"
	"unicode"
)

// TagBundle is the structured output of lexical feature extraction.
type TagBundle struct {
	PrimaryTags      []string `json:"primaryTags"`
	SemanticFeatures []string `json:"semanticFeatures"`
	CulturalContext  []string `json:"culturalContext"`
	SearchTerms      []string `json:"searchTerms"`
}

// All concatenates every group; this is the input of the pseudo-embedding.
func (b TagBundle) All() []string {
	out := make([]string, 0, len(b.PrimaryTags)+len(b.SemanticFeatures)+len(b.CulturalContext)+len(b.SearchTerms))
	out = append(out, b.PrimaryTags...)
	out = append(out, b.SemanticFeatures...)
	out = append(out, b.CulturalContext...)
	out = append(out, b.SearchTerms...)
	return out
}

// MatchTerms returns the groups used for matched-tag explanations.
func (b TagBundle) MatchTerms() []string {
	out := make([]string, 0, len(b.PrimaryTags)+len(b.SearchTerms))
	out = append(out, b.PrimaryTags...)
	out = append(out, b.SearchTerms...)
	return out
}

// Clone returns a copy that shares no slices with b.
func (b TagBundle) Clone() TagBundle {
	return TagBundle{
		PrimaryTags:      slices.Clone(b.PrimaryTags),
		SemanticFeatures: slices.Clone(b.SemanticFeatures),
		CulturalContext:  slices.Clone(b.CulturalContext),
		SearchTerms:      slices.Clone(b.SearchTerms),
	}
}

// IsEmpty reports whether no group carries a tag.
func (b TagBundle) IsEmpty() bool {
	return len(b.PrimaryTags) == 0 && len(b.SemanticFeatures) == 0 &&
		len(b.CulturalContext) == 0 && len(b.SearchTerms) == 0
}

// TextFallback is the degraded bundle used when lexical extraction fails.
// Every group holds the raw text. Unlike a purely verbatim fallback, SearchTerms
// also carries the distinct word tokens after it: a verbatim-only bundle hashes
// a short query and a longer product blob into disjoint slot windows (cosine 0),
// so an offline "silk saree" search could never find "Handwoven Silk Saree ...".
func TextFallback(text string) TagBundle {
	search := append([]string{text}, wordTokens(text)...)
	return TagBundle{
		PrimaryTags:      []string{text},
		SemanticFeatures: []string{text},
		CulturalContext:  []string{text},
		SearchTerms:      search,
	}
}

func wordTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ImageAnalysis is the six-group output of visual feature extraction.
type ImageAnalysis struct {
	VisualFeatures    []string `json:"visualFeatures"`
	Techniques        []string `json:"techniques"`
	CulturalMarkers   []string `json:"culturalMarkers"`
	Materials         []string `json:"materials"`
	QualityIndicators []string `json:"qualityIndicators"`
	AestheticTags     []string `json:"aestheticTags"`
}

// Bundle collapses the six image groups into the four-group shape.
func (a ImageAnalysis) Bundle() TagBundle {
	semantic := make([]string, 0, len(a.Techniques)+len(a.Materials)+len(a.QualityIndicators))
	semantic = append(semantic, a.Techniques...)
	semantic = append(semantic, a.Materials...)
	semantic = append(semantic, a.QualityIndicators...)
	return TagBundle{
		PrimaryTags:      append([]string(nil), a.VisualFeatures...),
		SemanticFeatures: semantic,
		CulturalContext:  append([]string(nil), a.CulturalMarkers...),
		SearchTerms:      append([]string(nil), a.AestheticTags...),
	}
}

// Clone returns a copy that shares no slices with a.
func (a ImageAnalysis) Clone() ImageAnalysis {
	return ImageAnalysis{
		VisualFeatures:    slices.Clone(a.VisualFeatures),
		Techniques:        slices.Clone(a.Techniques),
		CulturalMarkers:   slices.Clone(a.CulturalMarkers),
		Materials:         slices.Clone(a.Materials),
		QualityIndicators: slices.Clone(a.QualityIndicators),
		AestheticTags:     slices.Clone(a.AestheticTags),
	}
}

// IsEmpty reports whether no group carries a tag.
func (a ImageAnalysis) IsEmpty() bool {
	return a.Bundle().IsEmpty()
}

// SimulatedImageAnalysis is returned for images known only by URL.
func SimulatedImageAnalysis() ImageAnalysis {
	return ImageAnalysis{
		VisualFeatures:    []string{"vibrant colors", "intricate patterns"},
		Techniques:        []string{"hand weaving", "natural dyeing"},
		CulturalMarkers:   []string{"regional style"},
		Materials:         []string{},
		QualityIndicators: []string{"handmade quality"},
		AestheticTags:     []string{"beautiful", "elegant"},
	}
}

// ImageFallback is the generic analysis used when vision extraction fails.
func ImageFallback() ImageAnalysis {
	return ImageAnalysis{
		VisualFeatures:    []string{"handcrafted"},
		Techniques:        []string{"traditional"},
		CulturalMarkers:   []string{},
		Materials:         []string{},
		QualityIndicators: []string{},
		AestheticTags:     []string{"artistic"},
	}
}
