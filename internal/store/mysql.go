package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
)

const mysqlUpsert = `INSERT INTO cache_entries (cache_key, entry_type, payload, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	entry_type = VALUES(entry_type),
	payload = VALUES(payload),
	expires_at = VALUES(expires_at)`

// NewMySQL connects to a MySQL-backed store. Use this when several
// processes batch into one shared cache database instead of an embedded
// file.
func NewMySQL(config Config) (*SQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, config.ConnectionTimeout)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key VARCHAR(255) PRIMARY KEY,
		entry_type VARCHAR(255) NOT NULL DEFAULT '',
		payload LONGBLOB NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0,
		INDEX idx_cache_entries_type (entry_type),
		INDEX idx_cache_entries_expires_at (expires_at)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	log.Printf("[STORE] MySQL store ready at %s:%d/%s", config.Host, config.Port, config.Database)
	return &SQLStore{db: db, upsertSQL: mysqlUpsert}, nil
}
