package request

import (
	"fmt"
	"math"
	"strings"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength   = 4096
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultThreshold = 0.1
)

// Options tunes a single search. Start from Default and override fields.
type Options struct {
	Limit              int
	Threshold          float64
	IncludeImageSearch bool
	BoostCultural      bool
	UserRegion         string
}

// Default returns limit=10, threshold=0.1, image analyses and cultural boost on, no region.
func Default() Options {
	return Options{
		Limit:              DefaultLimit,
		Threshold:          DefaultThreshold,
		IncludeImageSearch: true,
		BoostCultural:      true,
	}
}

// Normalize clamps the limit into [1, maxLimit] and resets a non-finite threshold.
// maxLimit <= 0 means MaxLimit.
func (o Options) Normalize(maxLimit int) Options {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		o.Threshold = DefaultThreshold
	}
	o.UserRegion = strings.TrimSpace(o.UserRegion)
	return o
}

// RegionBoostEnabled reports whether region and cultural-tag boosting apply.
func (o Options) RegionBoostEnabled() bool {
	return o.BoostCultural && o.UserRegion != ""
}

// ValidateQuery checks a query string received from a transport.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return nil
}
