// Package store provides the SQL-backed implementations of the store
// primitives the batching core executes. Two backends are supported: an
// embedded SQLite database and a shared MySQL server, both driven through
// database/sql with a common primitive implementation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

var (
	// ErrStoreClosed is returned when a primitive runs after Close.
	ErrStoreClosed = errors.New("store is closed")

	// ErrTxAlreadyOpen is returned by Begin when a transaction is open.
	// The batching core never overlaps transactions; hitting this is a bug.
	ErrTxAlreadyOpen = errors.New("a transaction is already open")

	// ErrNoOpenTx is returned by Commit when no transaction is open.
	ErrNoOpenTx = errors.New("no open transaction")
)

// SQLStore implements core.Store over database/sql. The batching core
// guarantees single-threaded access and at most one open transaction, so
// the current transaction is held as plain state.
type SQLStore struct {
	db        *sql.DB
	tx        *sql.Tx
	upsertSQL string
	closed    bool
}

// querier is the subset of sql.DB and sql.Tx the primitives use. While a
// transaction is open all primitives run inside it, so reads observe the
// batch's earlier writes.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLStore) querier() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Begin opens a transaction. Its failure is transaction-level: the caller
// re-queues the batch instead of failing any record.
func (s *SQLStore) Begin(ctx context.Context) error {
	if s.closed {
		return ErrStoreClosed
	}
	if s.tx != nil {
		return ErrTxAlreadyOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction. Its failure is transaction-level;
// the transaction's effects are rolled back by the database.
func (s *SQLStore) Commit() error {
	if s.tx == nil {
		return ErrNoOpenTx
	}

	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Select returns the entries stored under the given keys. Missing keys are
// absent from the result.
func (s *SQLStore) Select(ctx context.Context, keys []string) ([]core.Element, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	if len(keys) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT cache_key, entry_type, payload, expires_at FROM cache_entries WHERE cache_key IN (%s)",
		placeholders(len(keys)))
	rows, err := s.querier().QueryContext(ctx, query, stringArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select by key: %w", err)
	}
	return scanElements(rows)
}

// SelectByType returns the entries whose type tag is in types.
func (s *SQLStore) SelectByType(ctx context.Context, types []string) ([]core.Element, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	if len(types) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT cache_key, entry_type, payload, expires_at FROM cache_entries WHERE entry_type IN (%s)",
		placeholders(len(types)))
	rows, err := s.querier().QueryContext(ctx, query, stringArgs(types)...)
	if err != nil {
		return nil, fmt.Errorf("failed to select by type: %w", err)
	}
	return scanElements(rows)
}

// Insert upserts the given elements in order.
func (s *SQLStore) Insert(ctx context.Context, elements []core.Element) error {
	if s.closed {
		return ErrStoreClosed
	}

	for _, el := range elements {
		var expires int64
		if !el.ExpiresAt.IsZero() {
			expires = el.ExpiresAt.UnixNano()
		}
		if _, err := s.querier().ExecContext(ctx, s.upsertSQL, el.Key, el.Type, el.Payload, expires); err != nil {
			return fmt.Errorf("failed to upsert key %q: %w", el.Key, err)
		}
	}
	return nil
}

// InvalidateKeys deletes the entries stored under the given keys.
func (s *SQLStore) InvalidateKeys(ctx context.Context, keys []string) error {
	if s.closed {
		return ErrStoreClosed
	}
	if len(keys) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM cache_entries WHERE cache_key IN (%s)", placeholders(len(keys)))
	if _, err := s.querier().ExecContext(ctx, query, stringArgs(keys)...); err != nil {
		return fmt.Errorf("failed to invalidate keys: %w", err)
	}
	return nil
}

// InvalidateByType deletes the entries whose type tag is in types.
func (s *SQLStore) InvalidateByType(ctx context.Context, types []string) error {
	if s.closed {
		return ErrStoreClosed
	}
	if len(types) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM cache_entries WHERE entry_type IN (%s)", placeholders(len(types)))
	if _, err := s.querier().ExecContext(ctx, query, stringArgs(types)...); err != nil {
		return fmt.Errorf("failed to invalidate types: %w", err)
	}
	return nil
}

// InvalidateAll deletes every entry.
func (s *SQLStore) InvalidateAll(ctx context.Context) error {
	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.querier().ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("failed to invalidate all entries: %w", err)
	}
	return nil
}

// Vacuum deletes entries whose expiry time has passed. Entries with a zero
// expiry never expire.
func (s *SQLStore) Vacuum(ctx context.Context) error {
	if s.closed {
		return ErrStoreClosed
	}

	query := "DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at <= ?"
	if _, err := s.querier().ExecContext(ctx, query, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to vacuum expired entries: %w", err)
	}
	return nil
}

// ListKeys returns every stored key in lexical order.
func (s *SQLStore) ListKeys(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.querier().QueryContext(ctx, "SELECT cache_key FROM cache_entries ORDER BY cache_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection. An open transaction is rolled back
// first; it should have been committed or abandoned before Close.
func (s *SQLStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// scanElements reads the standard four-column entry projection.
func scanElements(rows *sql.Rows) ([]core.Element, error) {
	defer rows.Close()

	var elements []core.Element
	for rows.Next() {
		var el core.Element
		var expires int64
		if err := rows.Scan(&el.Key, &el.Type, &el.Payload, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if expires > 0 {
			el.ExpiresAt = time.Unix(0, expires)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// stringArgs widens a string slice for QueryContext/ExecContext.
func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
