package fallback

import (
	"github.com/metricspider/metricspider/internal/metrics"
)

// Strategy picks the substitute source when live collection has failed
// after all retries.
type Strategy string

const (
	// StrategyNone supplies no substitute; the failure propagates.
	StrategyNone Strategy = "none"
	// StrategyPrevious reuses the last persisted snapshot's values. The
	// substitute still carries the fallback marker so a reused snapshot
	// is never mistaken for a live observation.
	StrategyPrevious Strategy = "previous"
	// StrategyCache reuses a short-TTL cached value.
	StrategyCache Strategy = "cache"
	// StrategySimulate synthesizes a minimal placeholder carrying an
	// explicit fallback marker.
	StrategySimulate Strategy = "simulate"
	// StrategyMultiple tries cache, then previous, then simulate.
	StrategyMultiple Strategy = "multiple"
)

/*
Selector is the last line of defense against a hard failure propagating
to the caller. It is invoked only after the retry engine has exhausted
attempts. Every substitute it returns is marked as fallback data so
downstream consumers can distinguish real from substituted results.
*/
type Selector struct {
	cache *Cache
}

func NewSelector(cache *Cache) Selector {
	if cache == nil {
		cache = NewCache(0)
	}
	return Selector{cache: cache}
}

func (s Selector) Cache() *Cache {
	return s.cache
}

// Resolve returns substitute fields for the target, or nil when the
// strategy yields nothing. previous is the last persisted snapshot, when
// one exists. Every substitute, previous snapshots included, is a clone
// carrying the fallback marker; the caller's inputs are never mutated.
func (s Selector) Resolve(target metrics.Target, strategy Strategy, previous *metrics.RawFields) *metrics.RawFields {
	switch strategy {
	case StrategyPrevious:
		return markClone(previous)
	case StrategyCache:
		if cached, ok := s.cache.Get(target.Key()); ok {
			return markClone(cached)
		}
		return nil
	case StrategySimulate:
		return s.simulate(target)
	case StrategyMultiple:
		if cached, ok := s.cache.Get(target.Key()); ok {
			return markClone(cached)
		}
		if previous != nil {
			return markClone(previous)
		}
		return s.simulate(target)
	default:
		// StrategyNone and anything unrecognized: no substitute.
		return nil
	}
}

// simulate synthesizes a minimal placeholder with the explicit fallback
// marker. It never reuses real counters; callers wanting previous data
// pick StrategyPrevious or StrategyMultiple.
func (s Selector) simulate(target metrics.Target) *metrics.RawFields {
	fields := metrics.NewRawFields()
	fields.SetText("platform", target.Platform())
	fields.SetText("handle", target.Handle())
	fields.SetText("note", "simulated placeholder")
	fields.MarkFallback()
	return fields
}

func markClone(fields *metrics.RawFields) *metrics.RawFields {
	if fields == nil {
		return nil
	}
	clone := fields.Clone()
	clone.MarkFallback()
	return clone
}
