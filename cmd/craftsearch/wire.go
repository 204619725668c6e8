package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/config"
	"github.com/artomart/craftsearch/internal/db"
	dbRedis "github.com/artomart/craftsearch/internal/db/redis"
	"github.com/artomart/craftsearch/internal/domain"
	"github.com/artomart/craftsearch/internal/domain/search/request"
	"github.com/artomart/craftsearch/internal/engine"
	"github.com/artomart/craftsearch/internal/metrics"
	budgetrepo "github.com/artomart/craftsearch/internal/repository/budget"
	"github.com/artomart/craftsearch/internal/repository/tagcache"
	openaiTagger "github.com/artomart/craftsearch/internal/transport/openai"
	"github.com/artomart/craftsearch/internal/usecase/analytics"
	"github.com/artomart/craftsearch/internal/usecase/extraction"
	healthuc "github.com/artomart/craftsearch/internal/usecase/health"
	usageuc "github.com/artomart/craftsearch/internal/usecase/usage"
)

// app is the assembled object graph shared by the commands.
type app struct {
	engine *engine.Engine
	health *healthuc.Service
	usage  *usageuc.Service
	purger *tagcache.Purger // nil without a cache database
	store  db.Store         // nil without a cache database
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp is the composition root. offline skips the cache database and the
// extraction provider so every call takes the fallback path.
func buildApp(ctx context.Context, cfg *config.Config, offline bool, logger *zap.Logger) (*app, error) {
	a := &app{}

	// Register metrics explicitly (no init())
	metrics.RegisterExtractionMetrics()
	metrics.RegisterEngineMetrics()
	metrics.RegisterHTTPMetrics()

	if !offline && cfg.Database.Enabled() {
		// valkey speaks the same protocol; one rueidis client serves both drivers.
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		a.store = store
		a.purger = tagcache.NewPurger(store)
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
	}

	var (
		text     domain.TextTagger
		image    domain.ImageTagger
		provider healthuc.ProviderChecker
		counters usageuc.CounterReader
	)
	if !offline && cfg.Extraction.Provider.APIKey != "" {
		base := openaiTagger.NewTagger(&openaiTagger.Config{
			APIKey:  cfg.Extraction.Provider.APIKey,
			BaseURL: cfg.Extraction.Provider.BaseURL,
			Extraction: domain.ExtractionConfig{
				TextModel:   cfg.Extraction.TextModel,
				VisionModel: cfg.Extraction.VisionModel,
				MaxTokens:   cfg.Extraction.MaxTokens,
				Temperature: cfg.Extraction.Temperature,
			},
			Logger: logger.Named("openai"),
		})
		provider = base
		var tracker *extraction.BudgetTracker
		text, image, tracker = buildTaggers(ctx, base, cfg, a.store, logger)
		counters = tracker
		logger.Info("Extraction provider configured",
			zap.String("text_model", cfg.Extraction.TextModel),
			zap.String("vision_model", cfg.Extraction.VisionModel),
		)
	} else {
		logger.Warn("Extraction provider not configured, using fallback tags")
	}

	thr := request.DefaultThreshold
	if cfg.Search.DefaultThreshold != nil {
		thr = *cfg.Search.DefaultThreshold
	}
	defaults := request.Default()
	defaults.Limit = cfg.Search.DefaultLimit
	defaults.Threshold = thr

	a.engine = engine.New(text, image, engine.Config{
		ExtractionTimeout: cfg.Extraction.Timeout(),
		MaxImages:         cfg.Index.MaxImages,
		MaxBatchSize:      cfg.Index.MaxBatchSize,
		BatchConcurrency:  cfg.Index.BatchConcurrency,
		MaxLimit:          cfg.Search.MaxLimit,
		Defaults:          defaults,
		Analytics: analytics.Options{
			Window:       cfg.Analytics.Window,
			PopularLimit: cfg.Analytics.PopularLimit,
			MaxHistory:   cfg.Analytics.MaxHistory,
		},
	}, logger)

	// Pass nil interfaces, not typed nil pointers.
	var pinger healthuc.DBPinger
	if a.store != nil {
		pinger = a.store
	}
	a.health = healthuc.New(pinger, provider, a.engine)
	a.usage = usageuc.New(counters)

	return a, nil
}

// buildTaggers assembles the decorator chain: OpenAI -> Instrumented -> Cached.
// The cache is outermost so hits never touch the token budget.
// The tracker always counts usage; zero limits only disable enforcement.
func buildTaggers(
	ctx context.Context,
	base *openaiTagger.Tagger,
	cfg *config.Config,
	store db.Store,
	logger *zap.Logger,
) (domain.TextTagger, domain.ImageTagger, *extraction.BudgetTracker) {
	// Single BudgetTracker shared by text and vision calls.
	bc := cfg.Extraction.Budget
	action := extraction.BudgetActionWarn
	if bc.Action == "reject" {
		action = extraction.BudgetActionReject
	}
	tracker := extraction.NewBudgetTracker("openai", bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, logger)
	if store != nil {
		// Loads current counters from the database.
		tracker.WithStore(ctx, budgetrepo.New(store, 0, 0))
	}

	var text domain.TextTagger = extraction.NewInstrumentedTextTagger(base, cfg.Extraction.TextModel, tracker, logger)
	var image domain.ImageTagger = extraction.NewInstrumentedImageTagger(base, cfg.Extraction.VisionModel, tracker, logger)

	if store != nil {
		opts := tagcache.Options{
			Store:      store,
			TTL:        cfg.Extraction.CacheTTL(),
			CacheTotal: metrics.TagCacheTotal,
			Logger:     logger,
		}
		text = tagcache.NewText(text, cfg.Extraction.TextModel, opts)
		image = tagcache.NewImage(image, cfg.Extraction.VisionModel, opts)
	}
	return text, image, tracker
}
