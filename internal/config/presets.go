package config

import (
	"fmt"
	"time"
)

/*
Presets layer opinionated defaults on top of WithDefault before any
flag or config-file override is applied.

  daily    - the routine collection run: short waits, more workers,
             restricted to the platforms that reliably serve public
             profile pages.
  backfill - patient history rebuilding: long waits are acceptable,
             fewer workers to stay polite.
*/

const (
	PresetDaily    = "daily"
	PresetBackfill = "backfill"
)

// reliable platforms for the daily run; platforms with aggressive bot
// detection are left to explicit opt-in.
var dailyPlatforms = []string{"twitter", "instagram", "youtube"}

// WithPreset creates a builder layered with the named preset's defaults.
func WithPreset(targetsFile string, preset string) (*Config, error) {
	builder := WithDefault(targetsFile)

	switch preset {
	case PresetDaily:
		return builder.
			WithMaxSleep(60 * time.Second).
			WithWorkers(4).
			WithPlatforms(dailyPlatforms).
			WithPrioritizeCore(true), nil
	case PresetBackfill:
		return builder.
			WithMaxSleep(600 * time.Second).
			WithWorkers(2).
			WithMaxDelay(120 * time.Second), nil
	case "":
		return builder, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
}

// Presets returns the known preset names.
func Presets() []string {
	return []string{PresetDaily, PresetBackfill}
}
