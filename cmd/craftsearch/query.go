package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artomart/craftsearch/internal/config"
	"github.com/artomart/craftsearch/internal/domain"
	logpkg "github.com/artomart/craftsearch/internal/logger"
)

type queryOptions struct {
	catalog   string
	limit     int
	threshold float64
	region    string
	noBoost   bool
	noImages  bool
	offline   bool
	logLevel  string
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query [flags] <text>",
		Short: "Index a JSON catalog and print ranked results for a query",
		Example: `  craftsearch query --catalog products.json "silk saree"
  craftsearch query --catalog products.json --region "Tamil Nadu" --offline "brass lamp"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), root.env, opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.catalog, "catalog", "", "JSON file with an array of products (required)")
	f.IntVar(&opts.limit, "limit", 0, "max results (default: config)")
	f.Float64Var(&opts.threshold, "threshold", -2, "min similarity (default: config)")
	f.StringVar(&opts.region, "region", "", "shopper region for the cultural boost")
	f.BoolVar(&opts.noBoost, "no-boost", false, "disable the cultural boost")
	f.BoolVar(&opts.noImages, "no-images", false, "omit image analyses from results")
	f.BoolVar(&opts.offline, "offline", false, "skip the extraction provider and cache; use fallback tags")
	f.StringVar(&opts.logLevel, "log-level", "", "log level on stderr (default: warn)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

func runQuery(ctx context.Context, env string, opts *queryOptions, text string, out io.Writer) error {
	logger, err := logpkg.NewCLI(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := buildApp(ctx, &cfg, opts.offline, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := indexCatalog(ctx, a, opts.catalog, logger); err != nil {
		return err
	}

	so := a.engine.DefaultOptions()
	if opts.limit > 0 {
		so.Limit = opts.limit
	}
	if opts.threshold >= -1 {
		so.Threshold = opts.threshold
	}
	so.UserRegion = opts.region
	so.BoostCultural = !opts.noBoost
	so.IncludeImageSearch = !opts.noImages

	resp := a.engine.SearchProducts(ctx, text, so)
	if resp.Error != "" {
		return fmt.Errorf("search: %s", resp.Error)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// indexCatalog loads a JSON array of products and indexes it in batches.
func indexCatalog(ctx context.Context, a *app, path string, logger *zap.Logger) (int, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	size := a.engine.MaxBatchSize()
	indexed := 0
	for start := 0; start < len(products); start += size {
		end := min(start+size, len(products))
		for _, r := range a.engine.IndexProducts(ctx, products[start:end]) {
			if r.OK() {
				indexed++
				continue
			}
			logger.Warn("Catalog product skipped", zap.String("product_id", r.ID()), zap.Error(r.Err()))
		}
	}
	return indexed, nil
}
