package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/embedding"
)

// DefaultMaxImages is how many leading product images get analyzed.
const DefaultMaxImages = 3

// Service builds and stores multimodal entries for products.
type Service struct {
	extractor Extractor
	store     Store
	maxImages int
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an index service.
func New(extractor Extractor, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		store:     store,
		maxImages: DefaultMaxImages,
		now:       time.Now,
		logger:    logger,
	}
}

// WithMaxImages configures how many images per product are analyzed.
func (s *Service) WithMaxImages(n int) *Service {
	if n > 0 {
		s.maxImages = n
	}
	return s
}

// Index extracts tags, builds the combined embedding and stores the entry.
// Nothing is stored when the product is invalid or ctx ends first.
func (s *Service) Index(ctx context.Context, p domain.Product) (domain.Entry, error) {
	if err := p.Validate(); err != nil {
		return domain.Entry{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, fmt.Errorf("index %s: %w", p.ID, err)
	}

	lex := s.extractor.ExtractText(ctx, p.SearchableText())
	lexVec := embedding.FromTags(lex.Bundle.All())

	images := s.extractImages(ctx, p.Images)

	imgVecs := make([]embedding.Vector, len(images))
	for i := range images {
		imgVecs[i] = images[i].Embedding
	}

	entry := domain.Entry{
		Product:          p.Clone(),
		Lexical:          lex.Bundle,
		LexicalSource:    lex.Source,
		LexicalEmbedding: lexVec,
		Images:           images,
		Combined:         embedding.Combine(lexVec, imgVecs),
		IndexedAt:        s.now(),
	}

	if err := ctx.Err(); err != nil {
		return domain.Entry{}, fmt.Errorf("index %s: %w", p.ID, err)
	}
	s.store.Put(entry)

	s.logger.Debug("Product indexed",
		zap.String("product_id", p.ID),
		zap.String("lexical_source", string(lex.Source)),
		zap.Int("images", len(images)),
	)
	return entry, nil
}

// extractImages analyzes the leading images concurrently; results keep image order.
// Extraction never fails, so the group only joins the goroutines.
func (s *Service) extractImages(ctx context.Context, raw []string) []domain.ImageEntry {
	n := min(s.maxImages, len(raw))
	out := make([]domain.ImageEntry, n)
	if n == 0 {
		return out
	}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			ref := domain.ParseImageRef(raw[i])
			res := s.extractor.ExtractImage(ctx, ref)
			out[i] = domain.ImageEntry{
				Ref:       ref.Label(),
				Analysis:  res.Analysis,
				Source:    res.Source,
				Embedding: embedding.FromTags(res.Analysis.Bundle().All()),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
