package store

import (
	"context"
	"time"

	"github.com/metricspider/metricspider/internal/metrics"
)

/*
Responsibilities
- Answer the coordinator's dedup check (was this target collected today?)
- Persist final snapshots idempotently
- Supply the bounded history baseline for the statistical components

The engine defines only this boundary; the storage format belongs to the
implementation.
*/

// DayOf formats the civil date used as the snapshot key.
func DayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type Store interface {
	// ExistingResult returns the snapshot already persisted for the
	// target on the given day, or nil when none exists.
	ExistingResult(ctx context.Context, target metrics.Target, day string) (*metrics.RawFields, error)
	// Store persists a snapshot for the target and day. Re-storing
	// identical content is a no-op; changed content replaces the row.
	Store(ctx context.Context, target metrics.Target, day string, fields *metrics.RawFields) error
	// History returns up to limit most recent snapshots for the target,
	// ordered oldest first.
	History(ctx context.Context, target metrics.Target, limit int) ([]*metrics.RawFields, error)
	// Previous returns the most recent snapshot before the given day,
	// or nil when the target has never been collected.
	Previous(ctx context.Context, target metrics.Target, day string) (*metrics.RawFields, error)
	Close() error
}
