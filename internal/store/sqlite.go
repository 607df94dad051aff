package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the ledger at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer, one loop.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// dsn builds a file: URI for an absolute path. The path is escaped so
// that '#', '?' and '%' in directory or file names reach SQLite intact.
// WAL + synchronous=FULL: a committed append is on disk before Exec returns.
func dsn(abs string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
	}
	return u.String()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			progress REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts, id);`,
		`CREATE TRIGGER IF NOT EXISTS samples_no_update BEFORE UPDATE ON samples
		BEGIN
			SELECT RAISE(ABORT, 'samples are append-only');
		END;`,
		`CREATE TRIGGER IF NOT EXISTS samples_no_delete BEFORE DELETE ON samples
		BEGIN
			SELECT RAISE(ABORT, 'samples are append-only');
		END;`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(sample *Sample) error {
	query := `INSERT INTO samples (ts, progress) VALUES (?, ?)`
	res, err := s.db.Exec(query, sample.Timestamp.UnixNano(), sample.Progress)
	if err != nil {
		return fmt.Errorf("failed to append sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sample id: %w", err)
	}
	sample.ID = id
	return nil
}

func (s *SQLiteStore) Earliest() (*Sample, error) {
	return s.first(`SELECT id, ts, progress FROM samples ORDER BY ts ASC, id ASC LIMIT 1`)
}

func (s *SQLiteStore) Latest() (*Sample, error) {
	return s.first(`SELECT id, ts, progress FROM samples ORDER BY ts DESC, id DESC LIMIT 1`)
}

func (s *SQLiteStore) first(query string) (*Sample, error) {
	row := s.db.QueryRow(query)

	var sample Sample
	var ts int64
	if err := row.Scan(&sample.ID, &ts, &sample.Progress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sample: %w", err)
	}
	sample.Timestamp = time.Unix(0, ts)
	return &sample, nil
}

func (s *SQLiteStore) Range(from, to time.Time) ([]Sample, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = from.UnixNano()
	}
	if !to.IsZero() {
		hi = to.UnixNano()
	}

	query := `SELECT id, ts, progress FROM samples WHERE ts >= ? AND ts <= ? ORDER BY ts ASC, id ASC`
	rows, err := s.db.Query(query, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sample Sample
		var ts int64
		if err := rows.Scan(&sample.ID, &ts, &sample.Progress); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.Timestamp = time.Unix(0, ts)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return samples, nil
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return n, nil
}
