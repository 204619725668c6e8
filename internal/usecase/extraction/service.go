// Package extraction turns product text and images into tag bundles.
// It is the failure boundary of the extractors: callers always get tags back.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/metrics"
)

// TextOutcome is the result of lexical extraction. Err is set when Source is fallback.
type TextOutcome struct {
	Bundle domain.TagBundle
	Source domain.ExtractionSource
	Err    error
}

// ImageOutcome is the result of visual extraction. Err is set when Source is fallback.
type ImageOutcome struct {
	Analysis domain.ImageAnalysis
	Source   domain.ExtractionSource
	Err      error
}

// Service wraps the provider chain with timeouts and degraded fallbacks.
type Service struct {
	text    domain.TextTagger
	image   domain.ImageTagger
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an extraction service. Either tagger may be nil; a nil tagger
// makes every call fall back. timeout <= 0 disables the per-call deadline.
func New(text domain.TextTagger, image domain.ImageTagger, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{text: text, image: image, timeout: timeout, logger: logger}
}

// ExtractText never fails: provider errors, malformed replies, budget
// rejection and timeouts all yield domain.TextFallback(text).
func (s *Service) ExtractText(ctx context.Context, text string) (out TextOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.textFallback(text, fmt.Errorf("text tagger panic: %v: %w", r, domain.ErrExtractionFailed))
		}
		metrics.ExtractionOutcomesTotal.WithLabelValues("text", string(out.Source)).Inc()
	}()

	if s.text == nil {
		return s.textFallback(text, domain.ErrProviderNotConfigured)
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.text.TagText(callCtx, text)
	if err != nil {
		return s.textFallback(text, err)
	}
	if res.Bundle.IsEmpty() {
		return s.textFallback(text, fmt.Errorf("empty bundle: %w", domain.ErrMalformedResponse))
	}

	src := domain.SourceExtracted
	if res.Cached {
		src = domain.SourceCached
	}
	return TextOutcome{Bundle: res.Bundle, Source: src}
}

// ExtractImage never fails. Images known only by URL get the simulated
// analysis; inline images go to the vision provider and fall back to
// domain.ImageFallback on any error.
func (s *Service) ExtractImage(ctx context.Context, ref domain.ImageRef) (out ImageOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.imageFallback(ref, fmt.Errorf("image tagger panic: %v: %w", r, domain.ErrExtractionFailed))
		}
		metrics.ExtractionOutcomesTotal.WithLabelValues("image", string(out.Source)).Inc()
	}()

	if !ref.HasData() {
		return ImageOutcome{Analysis: domain.SimulatedImageAnalysis(), Source: domain.SourceSimulated}
	}
	if s.image == nil {
		return s.imageFallback(ref, domain.ErrProviderNotConfigured)
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.image.TagImage(callCtx, ref)
	if err != nil {
		return s.imageFallback(ref, err)
	}
	if res.Analysis.IsEmpty() {
		return s.imageFallback(ref, fmt.Errorf("empty analysis: %w", domain.ErrMalformedResponse))
	}

	src := domain.SourceExtracted
	if res.Cached {
		src = domain.SourceCached
	}
	return ImageOutcome{Analysis: res.Analysis, Source: src}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) textFallback(text string, err error) TextOutcome {
	s.logFallback("text", err, zap.Int("text_len", len(text)))
	return TextOutcome{Bundle: domain.TextFallback(text), Source: domain.SourceFallback, Err: err}
}

func (s *Service) imageFallback(ref domain.ImageRef, err error) ImageOutcome {
	s.logFallback("image", err, zap.String("image", ref.Label()))
	return ImageOutcome{Analysis: domain.ImageFallback(), Source: domain.SourceFallback, Err: err}
}

func (s *Service) logFallback(kind string, err error, field zap.Field) {
	// Not configured is the expected state in offline mode.
	if errors.Is(err, domain.ErrProviderNotConfigured) {
		s.logger.Debug("Extraction provider not configured, using fallback tags", zap.String("kind", kind), field)
		return
	}
	s.logger.Warn("Extraction failed, using fallback tags",
		zap.String("kind", kind),
		field,
		zap.Error(err),
	)
}
