package domain

// KeyPrefix namespaces every key the service writes to the cache database.
const KeyPrefix = "craftsearch:"

// ExtractionConfig holds provider settings not exposed to clients.
type ExtractionConfig struct {
	TextModel   string
	VisionModel string
	MaxTokens   int
	Temperature float32
}

// DefaultExtractionConfig returns the models the storefront was tuned against.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		TextModel:   "gpt-4o-mini",
		VisionModel: "gpt-4o-mini",
		MaxTokens:   512,
		Temperature: 0.2,
	}
}
