package extraction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// instrumentation is shared by the text and image decorators.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
// This layer owns budget tracking, per-request usage and budget gauges.
type instrumentation struct {
	model  string
	budget BudgetChecker
	logger *zap.Logger
}

func (p *instrumentation) check(ctx context.Context, kind string) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Extraction budget exceeded",
			zap.String("kind", kind),
			zap.String("model", p.model),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *instrumentation) record(ctx context.Context, kind string, totalTokens int, cached bool, duration time.Duration) {
	if cached {
		return
	}
	domain.UsageFromContext(ctx).AddTokens(totalTokens)

	if p.budget != nil && totalTokens > 0 {
		p.budget.Record(int64(totalTokens))
		remaining := metrics.ExtractionBudgetTokensRemaining
		remaining.WithLabelValues("daily").Set(float64(p.budget.RemainingDaily()))
		remaining.WithLabelValues("monthly").Set(float64(p.budget.RemainingMonthly()))
	}

	p.logger.Debug("Extraction request completed",
		zap.String("kind", kind),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", totalTokens),
	)
}

// InstrumentedTextTagger wraps a TextTagger with budget enforcement and logging.
type InstrumentedTextTagger struct {
	instrumentation
	inner domain.TextTagger
}

// NewInstrumentedTextTagger wraps a text tagger with budget and observability.
func NewInstrumentedTextTagger(
	inner domain.TextTagger, model string, budget BudgetChecker, logger *zap.Logger,
) *InstrumentedTextTagger {
	return &InstrumentedTextTagger{
		instrumentation: instrumentation{model: model, budget: budget, logger: logger},
		inner:           inner,
	}
}

// TagText checks budget, delegates to the inner tagger, and records usage.
func (p *InstrumentedTextTagger) TagText(ctx context.Context, text string) (domain.TextTagResult, error) {
	if err := p.check(ctx, "text"); err != nil {
		return domain.TextTagResult{}, err
	}

	start := time.Now()
	result, err := p.inner.TagText(ctx, text)
	if err != nil {
		return domain.TextTagResult{}, fmt.Errorf("tag text: %w", err)
	}

	p.record(ctx, "text", result.TotalTokens, result.Cached, time.Since(start))
	return result, nil
}

// InstrumentedImageTagger wraps an ImageTagger with budget enforcement and logging.
type InstrumentedImageTagger struct {
	instrumentation
	inner domain.ImageTagger
}

// NewInstrumentedImageTagger wraps an image tagger with budget and observability.
func NewInstrumentedImageTagger(
	inner domain.ImageTagger, model string, budget BudgetChecker, logger *zap.Logger,
) *InstrumentedImageTagger {
	return &InstrumentedImageTagger{
		instrumentation: instrumentation{model: model, budget: budget, logger: logger},
		inner:           inner,
	}
}

// TagImage checks budget, delegates to the inner tagger, and records usage.
func (p *InstrumentedImageTagger) TagImage(ctx context.Context, img domain.ImageRef) (domain.ImageTagResult, error) {
	if err := p.check(ctx, "image"); err != nil {
		return domain.ImageTagResult{}, err
	}

	start := time.Now()
	result, err := p.inner.TagImage(ctx, img)
	if err != nil {
		return domain.ImageTagResult{}, fmt.Errorf("tag image: %w", err)
	}

	p.record(ctx, "image", result.TotalTokens, result.Cached, time.Since(start))
	return result, nil
}
