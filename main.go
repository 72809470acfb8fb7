package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trustcart/api"
	"trustcart/config"
	"trustcart/explainer"
	"trustcart/models"
	"trustcart/scraper"
	"trustcart/scraper/serpapi"
	"trustcart/services"
	"trustcart/storage"
	"trustcart/telemetry"
	"trustcart/utils"
)

const version = "0.3.0"

func main() {
	query := flag.String("query", "", "search query to score (CLI mode)")
	platform := flag.String("platform", "", "google, ebay or all")
	numResults := flag.Int("num", 0, "results per platform (1-50)")
	maxPrice := flag.Float64("max-price", 0, "upper price limit, 0 for none")
	condition := flag.String("condition", "", "new, used or refurbished")
	keepInvalid := flag.Bool("keep-invalid", false, "include rejected listings in products")
	csvPath := flag.String("csv", "", "write scored listings to this CSV file")
	serve := flag.Bool("serve", false, "run the HTTP API")
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *query == "" && !*serve {
		fmt.Fprintln(os.Stderr, "usage: trustcart -query <text> [-platform all] [-csv out.csv] | -serve")
		os.Exit(2)
	}

	logger.Info("=== TrustCart %s starting ===", version)
	logger.Info("Config: profile %s (HIGH>=%.2f, MEDIUM>=%.2f) | baseline %s | explain budget %d/%d | cache %s",
		cfg.RiskProfile, cfg.HighThreshold, cfg.MediumThreshold, cfg.PriceBaseline,
		cfg.MaxHighExplained, cfg.MaxMediumExplained, cfg.CacheBackend)

	mp, reader := telemetry.NewInProcessProvider()
	defer mp.Shutdown(context.Background())
	metrics := telemetry.New(mp)

	lexicon := loadLexicon(ctx, cfg, logger)

	cache, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	exp := explainer.Explainer(explainer.Disabled{})
	if cfg.GroqAPIKey != "" {
		exp = explainer.NewGroqClient(explainer.GroqOptions{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			FastModel:   cfg.FastModel,
			StrongModel: cfg.StrongModel,
			Timeout:     cfg.ExplainTimeout,
			MaxRetries:  cfg.MaxRetries,
			Logger:      logger,
		})
		logger.Info("Explainer enabled (fast %s, strong %s)", cfg.FastModel, cfg.StrongModel)
	} else {
		logger.Warn("GROQ_API_KEY not set, explanations fall back to defaults")
	}

	budgeter := services.NewBudgeter(exp, services.BudgetOptions{
		MaxHigh:        cfg.MaxHighExplained,
		MaxMedium:      cfg.MaxMediumExplained,
		Policy:         explainer.PolicyByName(cfg.EscalationPolicy, cfg.UncertainLow, cfg.UncertainHigh),
		Cache:          cache,
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimitMs:    cfg.RateLimitMs,
		Metrics:        metrics,
		Logger:         logger,
	})
	detector := services.NewDetector(
		services.NewValidityGate(lexicon),
		services.NewRiskScorer(lexicon, services.NewPriceTierClassifier(services.ParseBaseline(cfg.PriceBaseline))),
		services.RiskBands{High: cfg.HighThreshold, Medium: cfg.MediumThreshold},
		budgeter,
		metrics,
		logger,
	)

	client := serpapi.NewClient(serpapi.ClientOptions{
		APIKey:     cfg.SerpAPIKey,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	if !client.Configured() {
		logger.Warn("SERPAPI_KEY not set, every search will return no products")
	}
	sources := []scraper.Source{serpapi.NewGoogleShopping(client), serpapi.NewEbay(client)}

	var recorder *storage.PostgresRecorder
	opts := services.SearchOptions{
		RiskProfile:    cfg.RiskProfile,
		DefaultResults: cfg.NumResults,
		Logger:         logger,
	}
	if cfg.RecordRuns {
		rec, err := storage.NewPostgresRecorder(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL, runs will not be recorded: %v", err)
		} else {
			recorder = rec
			opts.Recorder = rec
			defer rec.Close()
			logger.Info("Recording search runs in PostgreSQL (table: search_runs)")
		}
	}

	svc := services.NewSearchService(sources, services.NewCleaner(logger), detector, opts)

	if *serve {
		appOpts := api.Options{Version: version, MetricsReader: reader, Logger: logger.With("version", version)}
		if recorder != nil {
			appOpts.Runs = recorder
		}
		handler := api.NewRouter(api.NewApp(svc, exp, appOpts))
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := api.Serve(ctx, addr, handler, cfg.ShutdownTimeout, logger); err != nil {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
		logger.Info("=== TrustCart stopped ===")
		return
	}

	report, err := svc.Search(ctx, services.SearchRequest{
		Query:         *query,
		Platform:      *platform,
		NumResults:    *numResults,
		MaxPrice:      *maxPrice,
		Condition:     models.Condition(strings.ToLower(*condition)),
		FilterInvalid: !*keepInvalid,
	})
	if err != nil {
		logger.Error("Search failed: %v", err)
		os.Exit(1)
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, report, insightSvc.Generate(report))

	out := *csvPath
	if out == "" {
		out = cfg.CSVOutputPath
	}
	if out != "" {
		if err := exportCSV(out, report, !*keepInvalid); err != nil {
			logger.Error("CSV export failed: %v", err)
		} else {
			logger.Info("Scored listings saved to %s", out)
		}
	}

	logger.Info("=== TrustCart finished ===")
}

// loadLexicon returns the active keyword lists and, when they come from a
// file, keeps them in sync with it until ctx ends.
func loadLexicon(ctx context.Context, cfg *config.Config, logger *utils.Logger) *config.LexiconStore {
	if cfg.LexiconPath == "" {
		return config.NewLexiconStore(config.DefaultLexicon())
	}
	lex, err := config.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		logger.Error("Failed to load lexicon %s, using built-in lists: %v", cfg.LexiconPath, err)
		return config.NewLexiconStore(config.DefaultLexicon())
	}
	store := config.NewLexiconStore(lex)
	go func() {
		if err := config.WatchLexicon(ctx, cfg.LexiconPath, store, logger.Info); err != nil {
			logger.Warn("Lexicon watcher stopped: %v", err)
		}
	}()
	return store
}

// buildCache selects the explanation cache backend. Redis failures fall back
// to the in-memory cache.
func buildCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) (explainer.Cache, func()) {
	switch cfg.CacheBackend {
	case "none":
		return explainer.NopCache{}, func() {}
	case "redis":
		rc, err := explainer.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, logger)
		if err == nil {
			logger.Info("Explanation cache: redis at %s", cfg.RedisAddr)
			return rc, func() { _ = rc.Close() }
		}
		logger.Warn("Redis cache unavailable, using memory: %v", err)
	}

	mc := explainer.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	stopJanitor, err := mc.StartJanitor(cfg.CacheSweep, func(n int) {
		logger.Debug("Explanation cache pruned %d expired entries", n)
	})
	if err != nil {
		logger.Warn("Cache sweep %q rejected, expired entries are dropped lazily: %v", cfg.CacheSweep, err)
		return mc, func() {}
	}
	return mc, stopJanitor
}

// exportCSV writes every listing of report, rejected ones included.
func exportCSV(path string, report *models.SearchReport, withInvalid bool) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	rows := append([]*models.Listing{}, report.Products...)
	if withInvalid {
		rows = append(rows, report.InvalidProducts...)
	}
	return w.Write(rows)
}
