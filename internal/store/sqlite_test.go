package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fieldsWith(followers float64) *metrics.RawFields {
	f := metrics.NewRawFields()
	f.SetNumber(metrics.FieldFollowers, followers)
	f.SetNumber(metrics.FieldPosts, 250)
	return f
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := metrics.NewTarget("twitter", "nasa", true)

	existing, err := s.ExistingResult(ctx, target, "2026-08-23")
	require.NoError(t, err)
	assert.Nil(t, existing, "nothing persisted yet")

	require.NoError(t, s.Store(ctx, target, "2026-08-23", fieldsWith(10000)))

	existing, err = s.ExistingResult(ctx, target, "2026-08-23")
	require.NoError(t, err)
	require.NotNil(t, existing)
	v, _ := existing.Number(metrics.FieldFollowers)
	assert.Equal(t, 10000.0, v)

	// other day and other target stay empty
	other, err := s.ExistingResult(ctx, target, "2026-08-22")
	require.NoError(t, err)
	assert.Nil(t, other)
	other, err = s.ExistingResult(ctx, metrics.NewTarget("twitter", "esa", false), "2026-08-23")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestStore_IdempotentReStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := metrics.NewTarget("twitter", "nasa", true)

	require.NoError(t, s.Store(ctx, target, "2026-08-23", fieldsWith(10000)))
	require.NoError(t, s.Store(ctx, target, "2026-08-23", fieldsWith(10000)))

	// changed content replaces the row
	require.NoError(t, s.Store(ctx, target, "2026-08-23", fieldsWith(10100)))

	existing, err := s.ExistingResult(ctx, target, "2026-08-23")
	require.NoError(t, err)
	v, _ := existing.Number(metrics.FieldFollowers)
	assert.Equal(t, 10100.0, v)
}

func TestStore_NilFieldsRejected(t *testing.T) {
	s := newTestStore(t)
	target := metrics.NewTarget("twitter", "nasa", true)

	assert.Error(t, s.Store(context.Background(), target, "2026-08-23", nil))
}

func TestPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := metrics.NewTarget("twitter", "nasa", true)

	previous, err := s.Previous(ctx, target, "2026-08-23")
	require.NoError(t, err)
	assert.Nil(t, previous, "never collected")

	require.NoError(t, s.Store(ctx, target, "2026-08-20", fieldsWith(9800)))
	require.NoError(t, s.Store(ctx, target, "2026-08-22", fieldsWith(9900)))
	require.NoError(t, s.Store(ctx, target, "2026-08-23", fieldsWith(10000)))

	previous, err = s.Previous(ctx, target, "2026-08-23")
	require.NoError(t, err)
	require.NotNil(t, previous)
	v, _ := previous.Number(metrics.FieldFollowers)
	assert.Equal(t, 9900.0, v, "most recent snapshot strictly before the day")
}

func TestHistory_OldestFirstAndBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := metrics.NewTarget("twitter", "nasa", true)

	days := []string{"2026-08-19", "2026-08-20", "2026-08-21", "2026-08-22"}
	for i, day := range days {
		require.NoError(t, s.Store(ctx, target, day, fieldsWith(float64(9700+i*100))))
	}

	history, err := s.History(ctx, target, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// the 3 most recent days, oldest first
	var got []float64
	for _, f := range history {
		v, _ := f.Number(metrics.FieldFollowers)
		got = append(got, v)
	}
	assert.Equal(t, []float64{9800, 9900, 10000}, got)
}

func TestStore_FallbackMarkerSurvives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := metrics.NewTarget("instagram", "nasa", true)

	substitute := fieldsWith(9800)
	substitute.MarkFallback()
	require.NoError(t, s.Store(ctx, target, "2026-08-23", substitute))

	existing, err := s.ExistingResult(ctx, target, "2026-08-23")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.True(t, existing.IsFallback())
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestDayOf(t *testing.T) {
	// The civil date is derived in UTC so a run near midnight local time
	// keys consistently.
	day := store.DayOf(mustParseTime(t, "2026-08-23T23:30:00+02:00"))
	assert.Equal(t, "2026-08-23", day)

	day = store.DayOf(mustParseTime(t, "2026-08-23T01:30:00+02:00"))
	assert.Equal(t, "2026-08-22", day)
}
