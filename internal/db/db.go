package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/cram/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the collection database file inside the base directory.
const FileName = "collection.db"

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite collection at baseDir/collection.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.cram.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Create imports subdirectory
	importsDir := filepath.Join(baseDir, "imports")
	if err := os.MkdirAll(importsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create imports directory: %w", err)
	}
	_ = os.Chmod(importsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
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

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS col (
		  id  INTEGER PRIMARY KEY CHECK (id = 1),
		  crt INTEGER NOT NULL
		);

		INSERT OR IGNORE INTO col (id, crt) VALUES (1, CAST(strftime('%s', 'now') AS INTEGER));

		CREATE TABLE IF NOT EXISTS decks (
		  id           TEXT PRIMARY KEY,
		  name         TEXT NOT NULL,
		  name_norm    TEXT NOT NULL,
		  dyn          INTEGER NOT NULL DEFAULT 0,
		  config_json  TEXT,
		  study_option TEXT,
		  created_at   INTEGER NOT NULL,
		  updated_at   INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_decks_name_norm ON decks(name_norm);

		CREATE TABLE IF NOT EXISTS cards (
		  id       TEXT PRIMARY KEY,
		  deck_id  TEXT NOT NULL REFERENCES decks(id),
		  tags     TEXT NOT NULL DEFAULT '',
		  queue    INTEGER NOT NULL DEFAULT 0,
		  due      INTEGER NOT NULL DEFAULT 0,
		  ivl      INTEGER NOT NULL DEFAULT 0,
		  lapses   INTEGER NOT NULL DEFAULT 0,
		  added_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cards_deck_queue ON cards(deck_id, queue, due);

		CREATE TABLE IF NOT EXISTS revlog (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  card_id     TEXT NOT NULL REFERENCES cards(id),
		  ease        INTEGER NOT NULL,
		  reviewed_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revlog_card ON revlog(card_id, reviewed_at);
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
