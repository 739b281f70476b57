package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

const sqliteUpsert = `INSERT INTO cache_entries (cache_key, entry_type, payload, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
	entry_type = excluded.entry_type,
	payload = excluded.payload,
	expires_at = excluded.expires_at`

// NewSQLite opens (or creates) an embedded SQLite store at path.
// If path is empty or ":memory:", an in-memory database is used.
func NewSQLite(path string) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps the open transaction and the plain handle
	// on the same underlying database. The batching core is single-threaded
	// against the store, so one connection is all it can use anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL DEFAULT '',
		payload BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	for _, index := range []string{
		"CREATE INDEX IF NOT EXISTS idx_cache_entries_type ON cache_entries(entry_type)",
		"CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)",
	} {
		if _, err := db.Exec(index); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Printf("[STORE] SQLite store ready at %s", path)
	return &SQLStore{db: db, upsertSQL: sqliteUpsert}, nil
}
