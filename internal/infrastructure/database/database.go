package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirMode  = 0750
	fileMode = 0600

	openPingTimeout = 5 * time.Second
	idleConnMaxAge  = 30 * time.Minute
)

// DB wraps *sql.DB with schema migrations, a health probe and SQLite
// lifecycle handling. The embedded methods (QueryContext, ExecContext and
// friends) are used directly by the repositories.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of config.yaml.
type Config struct {
	// Path is the SQLite file location. Parent directories are created
	// on first open.
	Path string

	// WALMode turns on write-ahead logging, which lets readers proceed
	// while a write is in progress.
	WALMode bool

	// BusyTimeout is how many seconds a statement waits on a locked
	// database before giving up.
	BusyTimeout int
}

// Open opens the SQLite database at cfg.Path, creating file and directory
// as needed, and verifies it responds. The pool is capped at a single
// connection to match SQLite's one-writer model; WAL mode still gives
// concurrent readers.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleConnMaxAge)

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// Tighten to owner-only. On a fresh install the file does not exist
	// until the first write, so the chmod is allowed to fail here.
	_ = os.Chmod(cfg.Path, fileMode)

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// buildDSN assembles the go-sqlite3 connection string. Foreign keys are
// always enforced; the driver wants busy_timeout in milliseconds.
func buildDSN(cfg Config) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// Close releases the connection pool. Safe on a DB whose handle is nil.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem location of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to prove the connection can serve
// statements. A bare ping is not enough for SQLite, which may only fail
// once a statement touches the file.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// BeginTx starts a transaction, adding context to the error. Multi-row
// writes should always go through a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
