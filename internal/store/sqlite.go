package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/pkg/hashutil"
)

// SQLiteStore implements Store on an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database file and runs migrations.
func NewSQLite(ctx context.Context, dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL", dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// migrate ensures the schema is created.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
	platform      TEXT NOT NULL,
	handle        TEXT NOT NULL,
	day           TEXT NOT NULL,
	fields        TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	is_fallback   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	PRIMARY KEY (platform, handle, day)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_target_day ON snapshots (platform, handle, day DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) ExistingResult(ctx context.Context, target metrics.Target, day string) (*metrics.RawFields, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fields FROM snapshots WHERE platform = ? AND handle = ? AND day = ?`,
		target.Platform(), target.Handle(), day)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query existing result: %w", err)
	}
	return decodeFields(raw)
}

func (s *SQLiteStore) Store(ctx context.Context, target metrics.Target, day string, fields *metrics.RawFields) error {
	if fields == nil {
		return errors.New("cannot store nil fields")
	}

	canonical := fields.Canonical()
	hash, err := hashutil.HashKeyValues(canonical, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}

	// Idempotent re-store: identical content is a no-op.
	row := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM snapshots WHERE platform = ? AND handle = ? AND day = ?`,
		target.Platform(), target.Handle(), day)
	var existingHash string
	switch err := row.Scan(&existingHash); {
	case err == nil:
		if existingHash == hash {
			return nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("query snapshot hash: %w", err)
	}

	encoded, err := json.Marshal(canonical)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	fallbackFlag := 0
	if fields.IsFallback() {
		fallbackFlag = 1
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots (platform, handle, day, fields, content_hash, is_fallback)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(platform, handle, day)
DO UPDATE SET fields = excluded.fields,
              content_hash = excluded.content_hash,
              is_fallback = excluded.is_fallback`,
		target.Platform(), target.Handle(), day, string(encoded), hash, fallbackFlag)
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, target metrics.Target, limit int) ([]*metrics.RawFields, error) {
	if limit < 1 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT fields FROM snapshots
WHERE platform = ? AND handle = ?
ORDER BY day DESC LIMIT ?`,
		target.Platform(), target.Handle(), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []*metrics.RawFields
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	// reverse to oldest-first for the series baseline
	out := make([]*metrics.RawFields, len(newestFirst))
	for i, f := range newestFirst {
		out[len(newestFirst)-1-i] = f
	}
	return out, nil
}

func (s *SQLiteStore) Previous(ctx context.Context, target metrics.Target, day string) (*metrics.RawFields, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT fields FROM snapshots
WHERE platform = ? AND handle = ? AND day < ?
ORDER BY day DESC LIMIT 1`,
		target.Platform(), target.Handle(), day)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query previous snapshot: %w", err)
	}
	return decodeFields(raw)
}

func decodeFields(raw string) (*metrics.RawFields, error) {
	var canonical map[string]string
	if err := json.Unmarshal([]byte(raw), &canonical); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return metrics.FromCanonical(canonical), nil
}

var _ Store = (*SQLiteStore)(nil)
