// Package store persists validated glucose readings to SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/AaronPrager/boostT1D-sub001/internal/models"
)

// Store is the SQLite-backed reading repository. The (account, ts) primary
// key is the durability backstop for deduplication: a reading inserted twice
// is a no-op, never an error.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the readings database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "readings.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS readings (
		account TEXT NOT NULL,
		ts INTEGER NOT NULL,
		sgv INTEGER NOT NULL,
		trend TEXT NOT NULL,
		source TEXT NOT NULL,
		inserted_at INTEGER NOT NULL,
		PRIMARY KEY (account, ts)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create readings table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExistingTimestamps returns the millisecond timestamps already persisted
// for the account within [from, to].
func (s *Store) ExistingTimestamps(ctx context.Context, account string, from, to time.Time) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts FROM readings WHERE account = ? AND ts >= ? AND ts <= ?`,
		account, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("select timestamps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]struct{})
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		out[ts] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timestamps: %w", err)
	}
	return out, nil
}

// InsertReadings persists the batch in one transaction and returns the count
// actually written. INSERT OR IGNORE makes a concurrent writer's duplicate
// silently skip rather than abort the batch.
func (s *Store) InsertReadings(ctx context.Context, account string, readings []models.Reading) (inserted int, retErr error) {
	if len(readings) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO readings(account, ts, sgv, trend, source, inserted_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		retErr = fmt.Errorf("prepare insert: %w", err)
		return 0, retErr
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for _, r := range readings {
		res, err := stmt.ExecContext(ctx, account, r.Timestamp.UnixMilli(), r.SGV, string(r.Trend), r.Source, now)
		if err != nil {
			retErr = fmt.Errorf("insert reading at %d: %w", r.Timestamp.UnixMilli(), err)
			return 0, retErr
		}
		n, err := res.RowsAffected()
		if err != nil {
			retErr = fmt.Errorf("rows affected: %w", err)
			return 0, retErr
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ReadingsBetween returns the persisted readings for the account within
// [from, to], oldest first.
func (s *Store) ReadingsBetween(ctx context.Context, account string, from, to time.Time) ([]models.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, sgv, trend, source FROM readings WHERE account = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC`,
		account, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Reading
	for rows.Next() {
		var ts int64
		var r models.Reading
		var trend string
		if err := rows.Scan(&ts, &r.SGV, &trend, &r.Source); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		r.Trend = models.TrendDirection(trend)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// LatestReading returns the most recent persisted reading for the account,
// or sql.ErrNoRows when none exist.
func (s *Store) LatestReading(ctx context.Context, account string) (models.Reading, error) {
	var ts int64
	var r models.Reading
	var trend string
	err := s.db.QueryRowContext(ctx,
		`SELECT ts, sgv, trend, source FROM readings WHERE account = ? ORDER BY ts DESC LIMIT 1`,
		account).Scan(&ts, &r.SGV, &trend, &r.Source)
	if err != nil {
		return models.Reading{}, err
	}
	r.Timestamp = time.UnixMilli(ts).UTC()
	r.Trend = models.TrendDirection(trend)
	return r, nil
}
