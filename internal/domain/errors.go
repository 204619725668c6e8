package domain

import "errors"

var (
	// ErrInvalidProduct signals a product record that cannot be indexed.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrProductNotFound signals a product id missing from the index.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidOptions signals malformed search options.
	ErrInvalidOptions = errors.New("invalid search options")

	// ErrExtractionFailed signals a failed call to a tag extraction provider.
	ErrExtractionFailed = errors.New("extraction provider error")
	// ErrMalformedResponse signals a provider reply that is not the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed extraction response")
	// ErrProviderNotConfigured signals that no extraction provider is wired.
	ErrProviderNotConfigured = errors.New("extraction provider not configured")
	// ErrExtractionQuotaExceeded signals an exhausted extraction token budget.
	ErrExtractionQuotaExceeded = errors.New("extraction quota exceeded")
)
