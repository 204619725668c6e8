package domain

import (
	"slices"
	"time"

	"github.com/artomart/craftsearch/internal/domain/embedding"
)

// ExtractionSource records which path produced a set of tags.
type ExtractionSource string

// Extraction sources.
const (
	SourceExtracted ExtractionSource = "extracted"
	SourceCached    ExtractionSource = "cached"
	SourceSimulated ExtractionSource = "simulated"
	SourceFallback  ExtractionSource = "fallback"
)

// ImageEntry is the stored analysis of one product image.
type ImageEntry struct {
	Ref       string
	Analysis  ImageAnalysis
	Source    ExtractionSource
	Embedding embedding.Vector
}

// Entry is an indexed product. The index owns its entries: they go in and come
// out through Clone and are never mutated in place.
type Entry struct {
	Product          Product
	Lexical          TagBundle
	LexicalSource    ExtractionSource
	LexicalEmbedding embedding.Vector
	Images           []ImageEntry
	Combined         embedding.Vector
	IndexedAt        time.Time
}

// VectorCount is the number of vectors held by the entry (lexical, images, combined).
func (e *Entry) VectorCount() int {
	return 2 + len(e.Images)
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() Entry {
	c := *e
	c.Product = e.Product.Clone()
	c.Lexical = e.Lexical.Clone()
	c.LexicalEmbedding = slices.Clone(e.LexicalEmbedding)
	c.Combined = slices.Clone(e.Combined)
	if e.Images != nil {
		c.Images = make([]ImageEntry, len(e.Images))
		for i, img := range e.Images {
			img.Analysis = img.Analysis.Clone()
			img.Embedding = slices.Clone(img.Embedding)
			c.Images[i] = img
		}
	}
	return c
}

// ImageAnalyses returns copies of the per-image analyses in image order.
func (e *Entry) ImageAnalyses() []ImageAnalysis {
	out := make([]ImageAnalysis, len(e.Images))
	for i, img := range e.Images {
		out[i] = img.Analysis.Clone()
	}
	return out
}
