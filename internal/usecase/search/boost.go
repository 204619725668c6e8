package search

import (
	"strings"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/domain/search/result"
)

// Boost weights.
const (
	RegionBoost      = 0.2
	CulturalTagBoost = 0.1
	MaxBoost         = 1.5
)

// culturalBoost multiplies similarity for products from the shopper's region
// and for query cultural tags found among the product's tags, category and
// artisan specialty. Region match is exact and case-sensitive.
func culturalBoost(query domain.TagBundle, p *domain.Product, opts request.Options) float64 {
	if !opts.RegionBoostEnabled() {
		return 1
	}

	boost := 1.0
	if p.Region == opts.UserRegion {
		boost += RegionBoost
	}

	fields := lowerAll(p.CulturalFields())
	for _, tag := range query.CulturalContext {
		if anyOverlap(strings.ToLower(tag), fields) {
			boost += CulturalTagBoost
		}
	}
	return min(boost, MaxBoost)
}

// matchedTags lists stored product terms that overlap a query term,
// deduplicated case-insensitively and capped at result.MaxMatchedTags.
func matchedTags(query, product domain.TagBundle) []string {
	out := make([]string, 0, result.MaxMatchedTags)
	seen := make(map[string]struct{})

	productTerms := product.MatchTerms()
	for _, q := range query.MatchTerms() {
		lq := strings.ToLower(q)
		if lq == "" {
			continue
		}
		for _, pt := range productTerms {
			lp := strings.ToLower(pt)
			if _, dup := seen[lp]; dup || !overlaps(lq, lp) {
				continue
			}
			seen[lp] = struct{}{}
			out = append(out, pt)
			if len(out) == result.MaxMatchedTags {
				return out
			}
		}
	}
	return out
}

// overlaps reports either-direction containment of two lower-cased terms.
// Empty terms never match.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func anyOverlap(term string, fields []string) bool {
	for _, f := range fields {
		if overlaps(term, f) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
