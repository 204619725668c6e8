package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artomart/craftsearch/internal/domain"
)

// stripFences removes a surrounding markdown code fence (```json ... ```).
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeBundle(content string) (domain.TagBundle, error) {
	var b domain.TagBundle
	if err := json.Unmarshal([]byte(stripFences(content)), &b); err != nil {
		return domain.TagBundle{}, fmt.Errorf("decode tag bundle: %v: %w", err, domain.ErrMalformedResponse)
	}
	b = domain.TagBundle{
		PrimaryTags:      cleanTags(b.PrimaryTags),
		SemanticFeatures: cleanTags(b.SemanticFeatures),
		CulturalContext:  cleanTags(b.CulturalContext),
		SearchTerms:      cleanTags(b.SearchTerms),
	}
	if b.IsEmpty() {
		return domain.TagBundle{}, fmt.Errorf("tag bundle has no tags: %w", domain.ErrMalformedResponse)
	}
	return b, nil
}

func decodeAnalysis(content string) (domain.ImageAnalysis, error) {
	var a domain.ImageAnalysis
	if err := json.Unmarshal([]byte(stripFences(content)), &a); err != nil {
		return domain.ImageAnalysis{}, fmt.Errorf("decode image analysis: %v: %w", err, domain.ErrMalformedResponse)
	}
	a = domain.ImageAnalysis{
		VisualFeatures:    cleanTags(a.VisualFeatures),
		Techniques:        cleanTags(a.Techniques),
		CulturalMarkers:   cleanTags(a.CulturalMarkers),
		Materials:         cleanTags(a.Materials),
		QualityIndicators: cleanTags(a.QualityIndicators),
		AestheticTags:     cleanTags(a.AestheticTags),
	}
	if a.IsEmpty() {
		return domain.ImageAnalysis{}, fmt.Errorf("image analysis has no tags: %w", domain.ErrMalformedResponse)
	}
	return a, nil
}

// cleanTags trims entries and drops blanks. Never returns nil.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
