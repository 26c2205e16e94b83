package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"time"
)

// Schema source. The migrations package registers the embedded SQL at init;
// tests may swap in an fstest.MapFS. A nil source means nothing to apply.
var (
	migrationsFS  fs.FS
	migrationsDir = "."
)

// RegisterMigrations sets where Migrate reads its SQL files from.
func RegisterMigrations(fsys fs.FS, dir string) {
	migrationsFS = fsys
	migrationsDir = dir
}

// migrationFile matches YYYYMMDD_HHMMSS_name.up.sql. Other files in the
// directory, including .down.sql scripts kept for manual use, are ignored.
var migrationFile = regexp.MustCompile(`^(\d{8}_\d{6})_([a-z0-9_]+)\.up\.sql$`)

// Migration is one forward schema step.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string
	SQL     string
}

// Migrate brings the schema up to date.
//
// Each pending migration runs in its own transaction together with its
// schema_migrations row, so a failure leaves earlier steps applied and the
// failing one absent. Calling Migrate again resumes from there.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - int: Number of migrations applied by this call
//   - error: The first failure, naming the migration
func (db *DB) Migrate(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("creating schema_migrations: %w", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	done, err := db.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range all {
		if done[m.Version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return applied, fmt.Errorf("applying migration %s_%s: %w", m.Version, m.Name, err)
		}
		applied++
	}
	return applied, nil
}

// SchemaVersion returns the newest applied migration version, or "" for a
// database that has never been migrated.
func (db *DB) SchemaVersion(ctx context.Context) (string, error) {
	var exists int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("reading schema version: %w", err)
	}
	if exists == 0 {
		return "", nil
	}

	var version string
	if err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), '') FROM schema_migrations",
	).Scan(&version); err != nil {
		return "", fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("listing applied migrations: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after Commit

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	return tx.Commit()
}

// loadMigrations reads the registered files in version order.
func loadMigrations() ([]Migration, error) {
	if migrationsFS == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		match := migrationFile.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, path.Join(migrationsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: match[1], Name: match[2], SQL: string(body)})
	}
	slices.SortFunc(out, func(a, b Migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %s", out[i].Version)
		}
	}
	return out, nil
}
