// Package tagcache caches extracted tags in the key-value store.
package tagcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/db"
	"github.com/artomart/craftsearch/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "tag_cache:"

const (
	kindText  = "text"
	kindImage = "image"
)

// store is the consumer interface for the tag cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cache holds what the text and image decorators share.
type cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// TextTagger caches lexical bundles keyed by model and text.
type TextTagger struct {
	cache
	inner domain.TextTagger
	model string
}

// ImageTagger caches image analyses keyed by model and image bytes.
type ImageTagger struct {
	cache
	inner domain.ImageTagger
	model string
}

// Options configure both decorators.
// CacheTotal is a counter vec with labels "kind" and "result" ("hit"/"miss"), passed explicitly.
type Options struct {
	Store      store
	TTL        time.Duration
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

func newCache(o Options) cache {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return cache{store: o.Store, ttl: o.TTL, cacheTotal: o.CacheTotal, logger: logger}
}

// NewText wraps a text tagger. model is part of the key so a model switch starts cold.
func NewText(inner domain.TextTagger, model string, o Options) *TextTagger {
	return &TextTagger{cache: newCache(o), inner: inner, model: model}
}

// NewImage wraps an image tagger.
func NewImage(inner domain.ImageTagger, model string, o Options) *ImageTagger {
	return &ImageTagger{cache: newCache(o), inner: inner, model: model}
}

// TagText returns a cached bundle or calls the inner tagger.
// Cache hit: no tokens, Cached set.
func (t *TextTagger) TagText(ctx context.Context, text string) (domain.TextTagResult, error) {
	key := cacheKey(kindText, t.model, []byte(text))

	var bundle domain.TagBundle
	if t.get(ctx, kindText, key, &bundle) && !bundle.IsEmpty() {
		t.inc(kindText, "hit")
		return domain.TextTagResult{Bundle: bundle, Cached: true}, nil
	}

	t.inc(kindText, "miss")

	result, err := t.inner.TagText(ctx, text)
	if err != nil {
		return domain.TextTagResult{}, fmt.Errorf("tag text: %w", err)
	}

	t.put(ctx, key, result.Bundle)
	return result, nil
}

// TagImage returns a cached analysis or calls the inner tagger.
// Images without inline bytes bypass the cache.
func (t *ImageTagger) TagImage(ctx context.Context, img domain.ImageRef) (domain.ImageTagResult, error) {
	if !img.HasData() {
		return t.inner.TagImage(ctx, img) //nolint:wrapcheck // transparent pass-through
	}

	key := cacheKey(kindImage, t.model, img.Data)

	var analysis domain.ImageAnalysis
	if t.get(ctx, kindImage, key, &analysis) && !analysis.IsEmpty() {
		t.inc(kindImage, "hit")
		return domain.ImageTagResult{Analysis: analysis, Cached: true}, nil
	}

	t.inc(kindImage, "miss")

	result, err := t.inner.TagImage(ctx, img)
	if err != nil {
		return domain.ImageTagResult{}, fmt.Errorf("tag image: %w", err)
	}

	t.put(ctx, key, result.Analysis)
	return result, nil
}

func (c *cache) inc(kind, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(kind, result).Inc()
	}
}

func cacheKey(kind, model string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(payload)
	return keyPrefix + kind + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *cache) get(ctx context.Context, kind, key string, dst any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached tags", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if len(data) == 0 {
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Failed to parse cached tags", zap.String("kind", kind), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *cache) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode tags for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache tags", zap.String("key", key), zap.Error(err))
	}
}
