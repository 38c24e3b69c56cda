package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hafiznor/go-scrape-coupons/browser"
	"github.com/hafiznor/go-scrape-coupons/classify"
	"github.com/hafiznor/go-scrape-coupons/config"
	"github.com/hafiznor/go-scrape-coupons/embed"
	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/hafiznor/go-scrape-coupons/pipeline"
	"github.com/hafiznor/go-scrape-coupons/scraper"
	"github.com/hafiznor/go-scrape-coupons/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Missing .env is fine; credentials may come from the environment.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	shopsDefault := defaultCfg.MaxShops
	if value, ok, err := config.EnvInt("SCRAPER_MAX_SHOPS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_SHOPS: %v\n", err)
		os.Exit(1)
	} else if ok {
		shopsDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	headlessDefault := defaultCfg.Headless
	if value, ok, err := config.EnvBool("SCRAPER_HEADLESS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_HEADLESS: %v\n", err)
		os.Exit(1)
	} else if ok {
		headlessDefault = value
	}

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Catalog site base URL")
	listingPath := flag.String("listing-path", defaultCfg.ListingPath, "Shop listing path")
	maxShops := flag.Int("max-shops", shopsDefault, "Maximum shops to process")
	popupTimeoutMs := flag.Int("popup-timeout", int(defaultCfg.PopupTimeout/time.Millisecond), "Reveal popup wait (milliseconds)")
	settleDelayMs := flag.Int("settle-delay", int(defaultCfg.SettleDelay/time.Millisecond), "Modal settle delay (milliseconds)")
	outputFile := flag.String("output", outputDefault, "JSON dump file path")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	headless := flag.Bool("headless", headlessDefault, "Run the browser headless")
	dryRun := flag.Bool("dry-run", false, "Scrape and dump only, skip persistence")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.BaseURL = *baseURL
	cfg.ListingPath = *listingPath
	cfg.MaxShops = *maxShops
	cfg.PopupTimeout = time.Duration(*popupTimeoutMs) * time.Millisecond
	cfg.SettleDelay = time.Duration(*settleDelayMs) * time.Millisecond
	cfg.OutputFile = *outputFile
	cfg.MetricsAddr = *metricsAddr
	cfg.Headless = *headless
	cfg.Verbose = *verbose
	cfg.StoreURL, _ = config.EnvString("SUPABASE_URL")
	cfg.StoreKey, _ = config.EnvString("SUPABASE_ANON_KEY")
	cfg.ClassifierKey, _ = config.EnvString("GEMINI_API_KEY")

	if *dryRun {
		// Persistence is skipped, so credentials need not be present.
		if cfg.StoreURL == "" {
			cfg.StoreURL = "https://dry-run.invalid"
		}
		if cfg.StoreKey == "" {
			cfg.StoreKey = "dry-run"
		}
		if cfg.ClassifierKey == "" {
			cfg.ClassifierKey = "dry-run"
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("listing_url", cfg.ListingURL()),
		slog.Int("max_shops", cfg.MaxShops),
		slog.Bool("headless", cfg.Headless),
	)

	b, err := browser.Launch(cfg.Headless)
	if err != nil {
		slog.Error("launching browser", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Error("close browser", slog.Any("error", err))
		}
	}()

	engine := scraper.New(cfg, b)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current shop")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && engine.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(engine.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	result, runErr := engine.Run(ctx)
	if runErr != nil {
		// Partial results are still worth persisting.
		slog.Error("scrape ended with error", slog.Any("error", runErr))
	}

	writer, err := pipeline.NewDumpWriter(cfg.OutputFile)
	if err != nil {
		slog.Error("creating dump writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Write(result); err != nil {
		slog.Error("writing dump", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("dump validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	var report *pipeline.Report
	if *dryRun {
		slog.Info("dry run, skipping persistence")
	} else {
		p := pipeline.New(
			classify.New(cfg.ClassifierKey, cfg.ClassifierModel),
			embed.New(cfg.ClassifierKey, cfg.EmbedModel),
			store.New(cfg.StoreURL, cfg.StoreKey),
			logger,
		)
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		report, err = p.Save(saveCtx, result)
		cancel()
		if err != nil {
			slog.Error("persistence failed", slog.Any("error", err))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, report, time.Since(startTime), cfg.OutputFile)
	if runErr != nil {
		os.Exit(1)
	}
}

func printSummary(result *models.RunResult, report *pipeline.Report, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	for _, name := range result.Order {
		entry := result.Shops[name]
		if entry == nil {
			continue
		}
		fmt.Printf("  %-24s %d coupons\n", entry.Name, len(entry.Coupons))
	}

	fmt.Printf("  Shops:         %d\n", result.ShopsProcessed)
	fmt.Printf("  Coupons:       %d\n", result.CouponCount)
	fmt.Printf("  Duplicates:    %d\n", result.DuplicateCount)
	fmt.Printf("  Abandoned:     %d\n", result.AbandonedCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if report != nil {
		fmt.Printf("  Saved:         %d shops, %d coupons\n", report.ShopsSaved, report.CouponsSaved)
		if report.ShopsSkipped > 0 || report.CouponsFailed > 0 {
			fmt.Printf("  Save misses:   %d shops skipped, %d coupons failed\n", report.ShopsSkipped, report.CouponsFailed)
		}
		if report.EmbeddingsMissed > 0 {
			fmt.Printf("  No vector:     %d coupons\n", report.EmbeddingsMissed)
		}
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
