package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	//===============
	// Collection scope
	//===============
	// Path of the JSON file listing the accounts to collect.
	targetsFile string
	// Whitelisted platforms. Empty means all platforms in the target list are collected.
	platforms []string
	// Maximum number of targets processed per batch. 0 means unlimited.
	maxTargets int
	// Whether core (priority) targets are dispatched before all others.
	prioritizeCore bool
	// Whether to skip the statistical pipeline and persist results as-is.
	snapshotOnly bool

	//===============
	// Concurrency
	//===============
	// Maximum number of collection worker goroutines processing targets concurrently;
	// it does not control OS threads or CPU parallelism.
	workers int
	// Hard cap on any single admission or backoff wait. A wait that would
	// exceed it converts the target to a skipped outcome.
	maxSleep time.Duration
	// Minimum fixed gap enforced between two calls to the same platform.
	minSpacing time.Duration

	//===============
	// Rate limiting
	//===============
	// Default admissions allowed inside the sliding window, for platforms
	// without an explicit override.
	windowCapacity int
	// Length of the sliding window.
	windowLength time.Duration
	// Per-platform overrides of capacity/window.
	classWindows map[string]ClassWindow

	//===============
	// Retry
	//===============
	// Backoff strategy name: fixed, linear, exponential or adaptive.
	retryStrategy string
	// Maximum retry attempts on top of the first try.
	maxAttempts int
	// Initial delay for backoff.
	baseDelay time.Duration
	// Capped maximum delay for backoff to stop exponential multiplication.
	maxDelay time.Duration
	// Randomized variation added on top of the computed delay.
	jitter time.Duration
	// Controls the random number generator.
	randomSeed int64

	//===============
	// Resilience
	//===============
	// Substitute source after retries are exhausted: none, previous, cache,
	// simulate or multiple.
	fallbackStrategy string

	//===============
	// Fetch
	//===============
	// Maximum time of a single platform request.
	timeout time.Duration
	// User agent that will be used in the request header. In raw string.
	userAgent string
	// Proxy URLs rotated across outbound requests. Empty means direct.
	proxies []string

	//===============
	// Output
	//===============
	// Path of the sqlite snapshot database.
	dbPath string
	// Whether the program simulates what it would do without
	// actually performing any irreversible or side-effecting actions.
	dryRun bool
	// Whether debug-level events are logged.
	verbose bool
}

// ClassWindow overrides the admission budget of one platform.
type ClassWindow struct {
	Capacity int           `json:"capacity"`
	Window   time.Duration `json:"window"`
}

type configDTO struct {
	TargetsFile      string                 `json:"targetsFile"`
	Platforms        []string               `json:"platforms,omitempty"`
	MaxTargets       int                    `json:"maxTargets,omitempty"`
	PrioritizeCore   *bool                  `json:"prioritizeCore,omitempty"`
	SnapshotOnly     bool                   `json:"snapshotOnly,omitempty"`
	Workers          int                    `json:"workers,omitempty"`
	MaxSleep         time.Duration          `json:"maxSleep,omitempty"`
	MinSpacing       time.Duration          `json:"minSpacing,omitempty"`
	WindowCapacity   int                    `json:"windowCapacity,omitempty"`
	WindowLength     time.Duration          `json:"windowLength,omitempty"`
	ClassWindows     map[string]ClassWindow `json:"classWindows,omitempty"`
	RetryStrategy    string                 `json:"retryStrategy,omitempty"`
	MaxAttempts      int                    `json:"maxAttempts,omitempty"`
	BaseDelay        time.Duration          `json:"baseDelay,omitempty"`
	MaxDelay         time.Duration          `json:"maxDelay,omitempty"`
	Jitter           time.Duration          `json:"jitter,omitempty"`
	RandomSeed       int64                  `json:"randomSeed,omitempty"`
	FallbackStrategy string                 `json:"fallbackStrategy,omitempty"`
	Timeout          time.Duration          `json:"timeout,omitempty"`
	UserAgent        string                 `json:"userAgent,omitempty"`
	Proxies          []string               `json:"proxies,omitempty"`
	DBPath           string                 `json:"dbPath,omitempty"`
	DryRun           bool                   `json:"dryRun,omitempty"`
	Verbose          bool                   `json:"verbose,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg, err := WithDefault(dto.TargetsFile).Build()
	if err != nil {
		return Config{}, err
	}

	// Platforms can be empty - if so, every platform in the target list runs
	if len(dto.Platforms) > 0 {
		cfg.platforms = dto.Platforms
	}

	// For other fields, only override if non-zero value is provided
	if dto.MaxTargets != 0 {
		cfg.maxTargets = dto.MaxTargets
	}
	// prioritizeCore defaults to enabled, so only an explicit key in the
	// file may flip it. The other booleans default to disabled and are
	// taken as-is.
	if dto.PrioritizeCore != nil {
		cfg.prioritizeCore = *dto.PrioritizeCore
	}
	cfg.snapshotOnly = dto.SnapshotOnly
	cfg.dryRun = dto.DryRun
	cfg.verbose = dto.Verbose

	if dto.Workers != 0 {
		cfg.workers = dto.Workers
	}
	if dto.MaxSleep != 0 {
		cfg.maxSleep = dto.MaxSleep
	}
	if dto.MinSpacing != 0 {
		cfg.minSpacing = dto.MinSpacing
	}
	if dto.WindowCapacity != 0 {
		cfg.windowCapacity = dto.WindowCapacity
	}
	if dto.WindowLength != 0 {
		cfg.windowLength = dto.WindowLength
	}
	if len(dto.ClassWindows) > 0 {
		cfg.classWindows = dto.ClassWindows
	}
	if dto.RetryStrategy != "" {
		cfg.retryStrategy = dto.RetryStrategy
	}
	if dto.MaxAttempts != 0 {
		cfg.maxAttempts = dto.MaxAttempts
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.MaxDelay != 0 {
		cfg.maxDelay = dto.MaxDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.FallbackStrategy != "" {
		cfg.fallbackStrategy = dto.FallbackStrategy
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if len(dto.Proxies) > 0 {
		cfg.proxies = dto.Proxies
	}
	if dto.DBPath != "" {
		cfg.dbPath = dto.DBPath
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided targets file and default
// values for all other fields. targetsFile is mandatory and must not be
// empty - an error will be returned at Build if it is.
func WithDefault(targetsFile string) *Config {
	defaultConfig := Config{
		targetsFile:      targetsFile,
		platforms:        nil,
		maxTargets:       0,
		prioritizeCore:   true,
		snapshotOnly:     false,
		workers:          4,
		maxSleep:         60 * time.Second,
		minSpacing:       500 * time.Millisecond,
		windowCapacity:   10,
		windowLength:     time.Minute,
		classWindows:     map[string]ClassWindow{},
		retryStrategy:    "exponential",
		maxAttempts:      3,
		baseDelay:        time.Second,
		maxDelay:         30 * time.Second,
		jitter:           500 * time.Millisecond,
		randomSeed:       time.Now().UnixNano(),
		fallbackStrategy: "multiple",
		timeout:          10 * time.Second,
		userAgent:        "metricspider/1.0",
		dbPath:           "metricspider.db",
		dryRun:           false,
		verbose:          false,
	}
	return &defaultConfig
}

func (c *Config) WithTargetsFile(path string) *Config {
	c.targetsFile = path
	return c
}

func (c *Config) WithPlatforms(platforms []string) *Config {
	c.platforms = platforms
	return c
}

func (c *Config) WithMaxTargets(max int) *Config {
	c.maxTargets = max
	return c
}

func (c *Config) WithPrioritizeCore(prioritize bool) *Config {
	c.prioritizeCore = prioritize
	return c
}

func (c *Config) WithSnapshotOnly(snapshotOnly bool) *Config {
	c.snapshotOnly = snapshotOnly
	return c
}

func (c *Config) WithWorkers(workers int) *Config {
	c.workers = workers
	return c
}

func (c *Config) WithMaxSleep(maxSleep time.Duration) *Config {
	c.maxSleep = maxSleep
	return c
}

func (c *Config) WithMinSpacing(spacing time.Duration) *Config {
	c.minSpacing = spacing
	return c
}

func (c *Config) WithWindowCapacity(capacity int) *Config {
	c.windowCapacity = capacity
	return c
}

func (c *Config) WithWindowLength(window time.Duration) *Config {
	c.windowLength = window
	return c
}

func (c *Config) WithClassWindows(windows map[string]ClassWindow) *Config {
	c.classWindows = windows
	return c
}

func (c *Config) WithRetryStrategy(strategy string) *Config {
	c.retryStrategy = strategy
	return c
}

func (c *Config) WithMaxAttempts(attempts int) *Config {
	c.maxAttempts = attempts
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithMaxDelay(delay time.Duration) *Config {
	c.maxDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithFallbackStrategy(strategy string) *Config {
	c.fallbackStrategy = strategy
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithProxies(proxies []string) *Config {
	c.proxies = proxies
	return c
}

func (c *Config) WithDBPath(path string) *Config {
	c.dbPath = path
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithVerbose(verbose bool) *Config {
	c.verbose = verbose
	return c
}

func (c *Config) Build() (Config, error) {
	if c.targetsFile == "" {
		return Config{}, fmt.Errorf("%w: targetsFile cannot be empty", ErrInvalidConfig)
	}
	if c.workers < 1 {
		return Config{}, fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempts < 0 {
		return Config{}, fmt.Errorf("%w: maxAttempts cannot be negative", ErrInvalidConfig)
	}
	switch c.retryStrategy {
	case "fixed", "linear", "exponential", "adaptive":
	default:
		return Config{}, fmt.Errorf("%w: unknown retry strategy %q", ErrInvalidConfig, c.retryStrategy)
	}
	switch c.fallbackStrategy {
	case "none", "previous", "cache", "simulate", "multiple":
	default:
		return Config{}, fmt.Errorf("%w: unknown fallback strategy %q", ErrInvalidConfig, c.fallbackStrategy)
	}

	return *c, nil
}

func (c Config) TargetsFile() string {
	return c.targetsFile
}

func (c Config) Platforms() []string {
	platforms := make([]string, len(c.platforms))
	copy(platforms, c.platforms)
	return platforms
}

func (c Config) MaxTargets() int {
	return c.maxTargets
}

func (c Config) PrioritizeCore() bool {
	return c.prioritizeCore
}

func (c Config) SnapshotOnly() bool {
	return c.snapshotOnly
}

func (c Config) Workers() int {
	return c.workers
}

func (c Config) MaxSleep() time.Duration {
	return c.maxSleep
}

func (c Config) MinSpacing() time.Duration {
	return c.minSpacing
}

func (c Config) WindowCapacity() int {
	return c.windowCapacity
}

func (c Config) WindowLength() time.Duration {
	return c.windowLength
}

func (c Config) ClassWindows() map[string]ClassWindow {
	windows := make(map[string]ClassWindow)
	for k, v := range c.classWindows {
		windows[k] = v
	}
	return windows
}

func (c Config) RetryStrategy() string {
	return c.retryStrategy
}

func (c Config) MaxAttempts() int {
	return c.maxAttempts
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) MaxDelay() time.Duration {
	return c.maxDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) FallbackStrategy() string {
	return c.fallbackStrategy
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Proxies() []string {
	proxies := make([]string, len(c.proxies))
	copy(proxies, c.proxies)
	return proxies
}

func (c Config) DBPath() string {
	return c.dbPath
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) Verbose() bool {
	return c.verbose
}
