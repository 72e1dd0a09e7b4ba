package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/metricspider/metricspider/internal/build"
	"github.com/metricspider/metricspider/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	targetsFile    string
	preset         string
	platforms      []string
	maxTargets     int
	workers        int
	maxSleep       time.Duration
	dbPath         string
	fallbackMode   string
	retryStrategy  string
	maxAttempts    int
	baseDelay      time.Duration
	jitter         time.Duration
	randomSeed     int64
	timeout        time.Duration
	userAgent      string
	proxies        []string
	snapshotOnly   bool
	prioritizeCore bool
	dryRun         bool
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "metricspider",
	Short: "A resilient social-media metrics collector.",
	Long: `metricspider collects public account metrics (followers, posts,
engagement) across social platforms on a fixed schedule.

Collection is throttled per platform with sliding-window admission,
retried with classified backoff, validated against history, and
persisted to a local sqlite snapshot store. A failing platform degrades
to cached or previous data instead of failing the batch.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("metricspider %s (built %s)\n", build.FullVersion(), build.BuildTime)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&targetsFile, "targets", "", "JSON file listing the accounts to collect")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "named defaults to layer first: daily or backfill")
	rootCmd.PersistentFlags().StringArrayVar(&platforms, "platform", []string{}, "restrict the run to a platform (can be repeated)")
	rootCmd.PersistentFlags().IntVar(&maxTargets, "max-targets", 0, "maximum number of targets per batch (0 for unlimited)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of concurrent collection workers")
	rootCmd.PersistentFlags().DurationVar(&maxSleep, "max-sleep", 0, "cap on any single admission or backoff wait")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path of the sqlite snapshot database")
	rootCmd.PersistentFlags().StringVar(&fallbackMode, "fallback", "", "substitute source after retries: none, previous, cache, simulate, multiple")
	rootCmd.PersistentFlags().StringVar(&retryStrategy, "retry-strategy", "", "backoff strategy: fixed, linear, exponential, adaptive")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 0, "retry attempts on top of the first try")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "initial backoff delay")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to backoff delays")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for platform requests")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for platform requests")
	rootCmd.PersistentFlags().StringArrayVar(&proxies, "proxy", []string{}, "egress proxy URL rotated across requests (can be repeated)")
	rootCmd.PersistentFlags().BoolVar(&snapshotOnly, "snapshot-only", false, "skip history correlation and anomaly detection")
	rootCmd.PersistentFlags().BoolVar(&prioritizeCore, "prioritize-core", true, "dispatch core targets before all others")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "collect with static adapters, without network or persistence")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log debug-level events")
}

// InitConfig resolves the effective configuration from preset, config
// file, and CLI flags, exiting on error.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError resolves the effective configuration, returning any
// errors. Precedence, lowest to highest: preset defaults, config file,
// CLI flags. This makes it easier to test error cases.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return applyFlagOverrides(builderFrom(cfg)).Build()
	}

	if targetsFile == "" {
		return config.Config{}, fmt.Errorf("%w: --targets is required", config.ErrInvalidConfig)
	}

	configBuilder, err := config.WithPreset(targetsFile, preset)
	if err != nil {
		return config.Config{}, err
	}
	return applyFlagOverrides(configBuilder).Build()
}

// builderFrom reopens a built Config for flag overrides.
func builderFrom(cfg config.Config) *config.Config {
	return &cfg
}

// applyFlagOverrides layers non-zero CLI flag values on the builder.
func applyFlagOverrides(configBuilder *config.Config) *config.Config {
	if targetsFile != "" {
		configBuilder = configBuilder.WithTargetsFile(targetsFile)
	}

	if len(platforms) > 0 {
		configBuilder = configBuilder.WithPlatforms(platforms)
	}

	if maxTargets > 0 {
		configBuilder = configBuilder.WithMaxTargets(maxTargets)
	}

	if workers > 0 {
		configBuilder = configBuilder.WithWorkers(workers)
	}

	if maxSleep > 0 {
		configBuilder = configBuilder.WithMaxSleep(maxSleep)
	}

	if dbPath != "" {
		configBuilder = configBuilder.WithDBPath(dbPath)
	}

	if fallbackMode != "" {
		configBuilder = configBuilder.WithFallbackStrategy(fallbackMode)
	}

	if retryStrategy != "" {
		configBuilder = configBuilder.WithRetryStrategy(retryStrategy)
	}

	if maxAttempts > 0 {
		configBuilder = configBuilder.WithMaxAttempts(maxAttempts)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if len(proxies) > 0 {
		configBuilder = configBuilder.WithProxies(proxies)
	}

	if snapshotOnly {
		configBuilder = configBuilder.WithSnapshotOnly(snapshotOnly)
	}

	// The flag defaults to true, so only an explicit --prioritize-core
	// may override a preset or config file value.
	if flag := rootCmd.PersistentFlags().Lookup("prioritize-core"); flag != nil && flag.Changed {
		configBuilder = configBuilder.WithPrioritizeCore(prioritizeCore)
	}

	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	if verbose {
		configBuilder = configBuilder.WithVerbose(verbose)
	}

	return configBuilder
}

func ResetFlags() {
	cfgFile = ""
	targetsFile = ""
	preset = ""
	platforms = []string{}
	maxTargets = 0
	workers = 0
	maxSleep = 0
	dbPath = ""
	fallbackMode = ""
	retryStrategy = ""
	maxAttempts = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	timeout = 0
	userAgent = ""
	proxies = []string{}
	snapshotOnly = false
	prioritizeCore = true
	dryRun = false
	verbose = false
	if flag := rootCmd.PersistentFlags().Lookup("prioritize-core"); flag != nil {
		flag.Changed = false
	}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetTargetsFileForTest(path string) {
	targetsFile = path
}

func SetPresetForTest(name string) {
	preset = name
}

func SetPlatformsForTest(names []string) {
	platforms = names
}

func SetMaxTargetsForTest(max int) {
	maxTargets = max
}

func SetWorkersForTest(count int) {
	workers = count
}

func SetMaxSleepForTest(d time.Duration) {
	maxSleep = d
}

func SetDBPathForTest(path string) {
	dbPath = path
}

func SetFallbackForTest(strategy string) {
	fallbackMode = strategy
}

func SetRetryStrategyForTest(strategy string) {
	retryStrategy = strategy
}

func SetMaxAttemptsForTest(attempts int) {
	maxAttempts = attempts
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}

func SetSnapshotOnlyForTest(snapshot bool) {
	snapshotOnly = snapshot
}

func SetPrioritizeCoreForTest(core bool) {
	prioritizeCore = core
	if flag := rootCmd.PersistentFlags().Lookup("prioritize-core"); flag != nil {
		flag.Changed = true
	}
}
