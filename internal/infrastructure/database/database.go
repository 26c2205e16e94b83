package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
)

const (
	// MemoryPath opens a private in-memory database. It lives as long as
	// the single pooled connection, so it is meant for tests.
	MemoryPath = ":memory:"

	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout     = 5 * time.Second
	connMaxIdleTime = 30 * time.Minute
	connMaxLifetime = time.Hour
)

// DB is the audit store. The embedded *sql.DB is handed to the audit
// repository; DB adds schema migration and health reporting.
type DB struct {
	*sql.DB
	path string
}

// Config selects the SQLite file and its locking behaviour.
type Config struct {
	// Path is the database file, or MemoryPath. Missing parent
	// directories are created.
	Path string

	// WALMode lets audit reads run while the recorder writes.
	// Ignored for MemoryPath.
	WALMode bool

	// BusyTimeout is how long a writer waits for the lock.
	BusyTimeout time.Duration
}

// ConfigFrom maps the database section of config.yaml onto Config.
func ConfigFrom(cfg config.DatabaseConfig) Config {
	return Config{Path: cfg.Path, WALMode: cfg.WALMode, BusyTimeout: cfg.BusyTimeout}
}

func (c Config) inMemory() bool { return c.Path == MemoryPath }

// dsn builds the go-sqlite3 connection string.
// See https://github.com/mattn/go-sqlite3#connection-string
func (c Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	q.Set("_foreign_keys", "on")
	if c.WALMode && !c.inMemory() {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// Open connects to the audit database, creating the file and its
// directory on first use, and pings it before returning.
//
// The pool is pinned to one connection: SQLite allows a single writer and
// MemoryPath databases vanish with their connection.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Connected database
//   - error: If the path is empty, the directory cannot be created or the
//     ping fails
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("opening database: path is required")
	}
	if !cfg.inMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("connecting to database %s: %w", cfg.Path, err)
	}

	if !cfg.inMemory() {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // Audit data is not secret; tightening is best effort
	}
	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close closes the connection pool. Safe on a DB whose pool is nil.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
