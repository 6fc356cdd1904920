package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "triage.db"

// Init initializes the SQLite database at baseDir/triage.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.triage.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the DSN apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Collections can be added to the registry without a schema bump
	if err := ensureCollections(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: projects, sessions, structures, published docs
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS projects (
		  id              TEXT PRIMARY KEY,
		  name            TEXT NOT NULL,
		  slug            TEXT NOT NULL,
		  is_parent       INTEGER,
		  parent_id       TEXT,
		  table_prefix    TEXT,
		  database_schema TEXT,
		  is_active       INTEGER NOT NULL DEFAULT 1,
		  created_at      INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug);

		CREATE INDEX IF NOT EXISTS idx_projects_parent
		ON projects(parent_id)
		WHERE parent_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS sessions (
		  id            TEXT PRIMARY KEY,
		  project_id    TEXT,
		  status        TEXT NOT NULL CHECK(status IN ('active','processed','cleaned','archived')),
		  source        TEXT NOT NULL DEFAULT '',
		  message_count INTEGER NOT NULL DEFAULT 0,
		  started_at    INTEGER NOT NULL,
		  ended_at      INTEGER,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_status_created
		ON sessions(status, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_sessions_project
		ON sessions(project_id, created_at DESC)
		WHERE project_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS project_structures (
		  project_id TEXT PRIMARY KEY,
		  structure  TEXT NOT NULL,
		  path_count INTEGER NOT NULL,
		  updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS published_docs (
		  project_id TEXT PRIMARY KEY,
		  content    TEXT NOT NULL,
		  updated_at INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// ensureCollections creates one item table per registry collection.
func ensureCollections(db *sql.DB) error {
	for _, coll := range bucket.Collections() {
		ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
		  id                TEXT PRIMARY KEY,
		  project_id        TEXT NOT NULL,
		  category          TEXT,
		  status            TEXT NOT NULL,
		  title             TEXT NOT NULL DEFAULT '',
		  content           TEXT NOT NULL DEFAULT '',
		  priority          TEXT,
		  source_session_id TEXT,
		  metadata          TEXT NOT NULL DEFAULT '{}',
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_project_status
		ON %[1]s(project_id, status);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_project_created
		ON %[1]s(project_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_session
		ON %[1]s(source_session_id)
		WHERE source_session_id IS NOT NULL;
		`, coll)
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create collection %s: %w", coll, err)
		}
	}
	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// table returns coll if it is a registered collection. Every table name
// interpolated into SQL goes through here.
func table(coll string) (string, error) {
	if !slices.Contains(bucket.Collections(), coll) {
		return "", fmt.Errorf("unknown collection %q", coll)
	}
	return coll, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// stringArgs converts a string slice to query args.
func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
