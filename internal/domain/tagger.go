package domain

import "context"

// TextTagger extracts a tag bundle from free text through an external provider.
type TextTagger interface {
	TagText(ctx context.Context, text string) (TextTagResult, error)
}

// ImageTagger extracts an image analysis from inline image bytes.
type ImageTagger interface {
	TagImage(ctx context.Context, img ImageRef) (ImageTagResult, error)
}

// HealthChecker verifies extraction provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// TextTagResult carries a lexical bundle and token usage through the decorator chain.
// Cached is set when the bundle came from the tag cache instead of the provider.
type TextTagResult struct {
	Bundle       TagBundle
	PromptTokens int
	TotalTokens  int
	Cached       bool
}

// ImageTagResult carries an image analysis and token usage through the decorator chain.
type ImageTagResult struct {
	Analysis     ImageAnalysis
	PromptTokens int
	TotalTokens  int
	Cached       bool
}
