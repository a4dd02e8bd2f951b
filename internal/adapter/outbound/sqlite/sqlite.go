// Package sqlite provides the durable storage adapter backing the guideline
// store and the audit trail. Both live in one database file so a guideline
// mutation and its audit entry commit in a single transaction.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds configuration for the SQLite backend.
type Config struct {
	// Path is the database file path.
	Path string
	// MaxOpenConns is the maximum number of open connections. Default: 10.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections. Default: 5.
	MaxIdleConns int
	// BusyTimeout is how long a writer waits on a locked database. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultConfig returns the default SQLite configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// DB wraps the shared database handle used by both store adapters.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database, applies pragmas, and creates the schema.
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	d := &DB{db: db, logger: logger}
	if err := d.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite storage initialized", "path", cfg.Path)
	return d, nil
}

// initialize enables WAL, sets the busy timeout, and creates the schema.
func (d *DB) initialize(cfg Config) error {
	if _, err := d.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	if _, err := d.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busy.Milliseconds())); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := d.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// timeFormat is the column encoding for timestamps.
const timeFormat = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
