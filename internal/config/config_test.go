package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/metricspider/metricspider/internal/config"
)

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault("targets.json").Build()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.TargetsFile() != "targets.json" {
		t.Errorf("TargetsFile() = %q", cfg.TargetsFile())
	}
	if cfg.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", cfg.Workers())
	}
	if cfg.MaxSleep() != 60*time.Second {
		t.Errorf("MaxSleep() = %v, want 60s", cfg.MaxSleep())
	}
	if cfg.WindowCapacity() != 10 {
		t.Errorf("WindowCapacity() = %d, want 10", cfg.WindowCapacity())
	}
	if cfg.WindowLength() != time.Minute {
		t.Errorf("WindowLength() = %v, want 1m", cfg.WindowLength())
	}
	if cfg.RetryStrategy() != "exponential" {
		t.Errorf("RetryStrategy() = %q, want exponential", cfg.RetryStrategy())
	}
	if cfg.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts() = %d, want 3", cfg.MaxAttempts())
	}
	if cfg.FallbackStrategy() != "multiple" {
		t.Errorf("FallbackStrategy() = %q, want multiple", cfg.FallbackStrategy())
	}
	if !cfg.PrioritizeCore() {
		t.Error("PrioritizeCore() = false, want true")
	}
	if cfg.DBPath() != "metricspider.db" {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *config.Config
	}{
		{
			name:    "empty targets file",
			builder: config.WithDefault(""),
		},
		{
			name:    "zero workers",
			builder: config.WithDefault("targets.json").WithWorkers(0),
		},
		{
			name:    "negative retry budget",
			builder: config.WithDefault("targets.json").WithMaxAttempts(-1),
		},
		{
			name:    "unknown retry strategy",
			builder: config.WithDefault("targets.json").WithRetryStrategy("psychic"),
		},
		{
			name:    "unknown fallback strategy",
			builder: config.WithDefault("targets.json").WithFallbackStrategy("pray"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Build() err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBuild_ChainedOverrides(t *testing.T) {
	cfg, err := config.WithDefault("targets.json").
		WithWorkers(8).
		WithRetryStrategy("adaptive").
		WithMaxSleep(2 * time.Minute).
		WithPlatforms([]string{"twitter"}).
		WithClassWindows(map[string]config.ClassWindow{
			"twitter": {Capacity: 5, Window: 30 * time.Second},
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Workers() != 8 {
		t.Errorf("Workers() = %d, want 8", cfg.Workers())
	}
	if cfg.RetryStrategy() != "adaptive" {
		t.Errorf("RetryStrategy() = %q", cfg.RetryStrategy())
	}
	if got := cfg.ClassWindows()["twitter"]; got.Capacity != 5 || got.Window != 30*time.Second {
		t.Errorf("ClassWindows()[twitter] = %+v", got)
	}
}

func TestGetters_ReturnCopies(t *testing.T) {
	cfg, err := config.WithDefault("targets.json").
		WithPlatforms([]string{"twitter", "instagram"}).
		WithClassWindows(map[string]config.ClassWindow{"twitter": {Capacity: 5}}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	cfg.Platforms()[0] = "mutated"
	cfg.ClassWindows()["twitter"] = config.ClassWindow{Capacity: 99}

	if cfg.Platforms()[0] != "twitter" {
		t.Error("Platforms() leaked internal slice")
	}
	if cfg.ClassWindows()["twitter"].Capacity != 5 {
		t.Error("ClassWindows() leaked internal map")
	}
}

func TestWithConfigFile(t *testing.T) {
	// GIVEN a config file overriding a subset of fields
	content := `{
		"targetsFile": "accounts.json",
		"workers": 2,
		"maxSleep": 120000000000,
		"retryStrategy": "fixed",
		"platforms": ["youtube"],
		"classWindows": {"youtube": {"capacity": 3, "window": 60000000000}},
		"dryRun": true
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.TargetsFile() != "accounts.json" {
		t.Errorf("TargetsFile() = %q", cfg.TargetsFile())
	}
	if cfg.Workers() != 2 {
		t.Errorf("Workers() = %d, want 2", cfg.Workers())
	}
	if cfg.MaxSleep() != 2*time.Minute {
		t.Errorf("MaxSleep() = %v, want 2m", cfg.MaxSleep())
	}
	if cfg.RetryStrategy() != "fixed" {
		t.Errorf("RetryStrategy() = %q, want fixed", cfg.RetryStrategy())
	}
	if !cfg.DryRun() {
		t.Error("DryRun() = false, want true")
	}
	// untouched fields keep their defaults
	if cfg.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts() = %d, want default 3", cfg.MaxAttempts())
	}
	if !cfg.PrioritizeCore() {
		t.Error("PrioritizeCore() = false, want default true when the key is absent")
	}
	if got := cfg.ClassWindows()["youtube"]; got.Capacity != 3 || got.Window != time.Minute {
		t.Errorf("ClassWindows()[youtube] = %+v", got)
	}
}

func TestWithConfigFile_DisablesCorePriority(t *testing.T) {
	// GIVEN a config file that explicitly turns core priority off
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"targetsFile": "accounts.json", "prioritizeCore": false}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.PrioritizeCore() {
		t.Error("PrioritizeCore() = true, want false from the file")
	}
}

func TestWithConfigFile_Errors(t *testing.T) {
	// GIVEN a path that does not exist
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("err = %v, want ErrFileDoesNotExist", err)
	}

	// GIVEN a file with malformed JSON
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = config.WithConfigFile(path)
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("err = %v, want ErrConfigParsingFail", err)
	}
}

func TestWithPreset(t *testing.T) {
	// GIVEN the daily preset
	builder, err := config.WithPreset("targets.json", config.PresetDaily)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers() != 4 || cfg.MaxSleep() != 60*time.Second {
		t.Errorf("daily preset = workers %d, maxSleep %v", cfg.Workers(), cfg.MaxSleep())
	}
	platforms := cfg.Platforms()
	if len(platforms) != 3 {
		t.Errorf("daily preset platforms = %v", platforms)
	}

	// GIVEN the backfill preset
	builder, err = config.WithPreset("targets.json", config.PresetBackfill)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers() != 2 || cfg.MaxSleep() != 600*time.Second {
		t.Errorf("backfill preset = workers %d, maxSleep %v", cfg.Workers(), cfg.MaxSleep())
	}
	if cfg.MaxDelay() != 120*time.Second {
		t.Errorf("backfill MaxDelay() = %v, want 2m", cfg.MaxDelay())
	}

	// GIVEN no preset
	builder, err = config.WithPreset("targets.json", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.Build(); err != nil {
		t.Errorf("empty preset Build() err = %v", err)
	}

	// GIVEN an unknown preset
	if _, err := config.WithPreset("targets.json", "weekly"); !errors.Is(err, config.ErrUnknownPreset) {
		t.Errorf("err = %v, want ErrUnknownPreset", err)
	}
}
