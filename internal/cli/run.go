package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metricspider/metricspider/internal/config"
	"github.com/metricspider/metricspider/internal/coordinator"
	"github.com/metricspider/metricspider/internal/engine"
	"github.com/metricspider/metricspider/internal/fallback"
	"github.com/metricspider/metricspider/internal/metadata"
	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/internal/proxy"
	"github.com/metricspider/metricspider/internal/scrape"
	"github.com/metricspider/metricspider/internal/store"
	"github.com/metricspider/metricspider/pkg/limiter"
	"github.com/metricspider/metricspider/pkg/retry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect one batch of account metrics",
	Long: `run loads the target list, collects each account's public metrics
through the platform adapters, and persists the validated snapshots.

A single batch is one pass over the target list. Failed targets never
abort the batch; the final summary accounts for every target as
success, error, or skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := InitConfig()
		if err := runBatch(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	},
}

// targetDTO is the JSON shape of one entry in the targets file.
type targetDTO struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Core     bool   `json:"core,omitempty"`
}

// LoadTargets reads the targets file: a JSON array of
// {"platform": ..., "handle": ..., "core": ...} entries.
func LoadTargets(path string) ([]metrics.Target, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var dtos []targetDTO
	if err := json.Unmarshal(content, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse targets file: %w", err)
	}

	targets := make([]metrics.Target, 0, len(dtos))
	for _, dto := range dtos {
		if dto.Platform == "" || dto.Handle == "" {
			return nil, fmt.Errorf("targets file entry missing platform or handle")
		}
		targets = append(targets, metrics.NewTarget(dto.Platform, dto.Handle, dto.Core))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file %s lists no targets", path)
	}
	return targets, nil
}

// builtinAdapters describes the public profile layout of each supported
// platform. Selector sets drift as platforms change their markup; they
// are the first thing to check when a platform starts scoring low.
var builtinAdapters = []scrape.HTTPAdapterConfig{
	{
		Platform:           "twitter",
		ProfileURLTemplate: "https://twitter.com/%s",
		Selectors: []scrape.MetricSelector{
			{Field: metrics.FieldFollowers, Selector: `a[href$="/followers"] span`},
			{Field: metrics.FieldFollowing, Selector: `a[href$="/following"] span`},
		},
	},
	{
		Platform:           "instagram",
		ProfileURLTemplate: "https://www.instagram.com/%s/",
		Selectors: []scrape.MetricSelector{
			{Field: metrics.FieldFollowers, Selector: `meta[property="og:description"]`, Attr: "content"},
		},
	},
	{
		Platform:           "tiktok",
		ProfileURLTemplate: "https://www.tiktok.com/@%s",
		Selectors: []scrape.MetricSelector{
			{Field: metrics.FieldFollowers, Selector: `strong[data-e2e="followers-count"]`},
			{Field: metrics.FieldLikes, Selector: `strong[data-e2e="likes-count"]`},
		},
	},
	{
		Platform:           "youtube",
		ProfileURLTemplate: "https://www.youtube.com/@%s/about",
		Selectors: []scrape.MetricSelector{
			{Field: metrics.FieldFollowers, Selector: `yt-formatted-string#subscriber-count`},
		},
	},
}

func runBatch(ctx context.Context, cfg config.Config) error {
	targets, err := LoadTargets(cfg.TargetsFile())
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Verbose())
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	recorder := metadata.NewRecorder(logger)

	var snapshots store.Store
	if !cfg.DryRun() {
		sqliteStore, err := store.NewSQLite(ctx, cfg.DBPath())
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		snapshots = sqliteStore
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		WindowDefaults: limiter.WindowConfig{
			Capacity: cfg.WindowCapacity(),
			Window:   cfg.WindowLength(),
		},
		WindowPerClass: classWindows(cfg),
		Store:          snapshots,
		Registry:       registry,
		Sink:           &recorder,
		Finalizer:      &recorder,
	})

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := coordinator.New(eng).Run(ctx, targets, coordinator.RunOptions{
		MaxWorkers:     cfg.Workers(),
		MaxSleep:       cfg.MaxSleep(),
		PrioritizeCore: cfg.PrioritizeCore(),
		PlatformFilter: cfg.Platforms(),
		MaxTargets:     cfg.MaxTargets(),
		SnapshotOnly:   cfg.SnapshotOnly(),
		Fallback:       fallback.Strategy(cfg.FallbackStrategy()),
		MinSpacing:     cfg.MinSpacing(),
		Retry: retry.Param{
			Strategy:    retry.Strategy(cfg.RetryStrategy()),
			BaseDelay:   cfg.BaseDelay(),
			MaxDelay:    cfg.MaxDelay(),
			Jitter:      cfg.Jitter(),
			RandomSeed:  cfg.RandomSeed(),
			MaxAttempts: cfg.MaxAttempts(),
		},
		Progress: printProgress,
	})

	fmt.Printf("\nBatch complete: %d targets, %d collected, %d failed, %d skipped in %v (%.2f accounts/s)\n",
		result.TotalTargets,
		result.SuccessCount,
		result.ErrorCount,
		result.SkippedCount,
		result.Elapsed.Round(time.Millisecond),
		result.AccountsPerSecond,
	)
	for platform, count := range result.PerPlatformCounts {
		fmt.Printf("  %s: %d\n", platform, count)
	}
	return nil
}

// buildRegistry wires one adapter per supported platform. Dry runs get
// static adapters with canned results so no network traffic happens.
func buildRegistry(cfg config.Config) (*scrape.Registry, error) {
	registry := scrape.NewRegistry()

	if cfg.DryRun() {
		for _, adapterCfg := range builtinAdapters {
			static := scrape.NewStaticAdapter(adapterCfg.Platform)
			static.SetDefault(dryRunResult())
			if err := registry.Register(static); err != nil {
				return nil, err
			}
		}
		return registry, nil
	}

	var manager *proxy.Manager
	if endpoints := cfg.Proxies(); len(endpoints) > 0 {
		var err error
		manager, err = proxy.NewManager(endpoints)
		if err != nil {
			return nil, err
		}
	}
	pool := proxy.NewPool(proxy.PoolOptions{
		Manager: manager,
		Timeout: cfg.Timeout(),
	})

	for _, adapterCfg := range builtinAdapters {
		adapterCfg.UserAgent = cfg.UserAgent()
		adapter := scrape.NewHTTPAdapter(adapterCfg, pool.Session(adapterCfg.Platform))
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func dryRunResult() *metrics.RawFields {
	fields := metrics.NewRawFields()
	fields.SetNumber(metrics.FieldFollowers, 1000)
	fields.SetNumber(metrics.FieldPosts, 100)
	fields.SetText("note", "dry run")
	return fields
}

func classWindows(cfg config.Config) map[string]limiter.WindowConfig {
	windows := make(map[string]limiter.WindowConfig)
	for platform, w := range cfg.ClassWindows() {
		windows[platform] = limiter.WindowConfig{
			Capacity: w.Capacity,
			Window:   w.Window,
		}
	}
	return windows
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func printProgress(processed int, total int, currentTarget string, ratePerSecond float64, elapsed time.Duration) {
	fmt.Printf("[%d/%d] %s (%.2f accounts/s, %v elapsed)\n",
		processed, total, currentTarget, ratePerSecond, elapsed.Round(time.Second))
}
