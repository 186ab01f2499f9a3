package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/redlobsta/portalauth/adapters/store/migrations"
	"github.com/redlobsta/portalauth/ports"
)

// PostgresStore is a relational fallback for the KeyValueStore interface,
// for deployments that have a database but no Redis. Each operation is a
// single statement, so the interface's atomicity contract still holds:
// conditional inserts rely on the primary key, increments on a single
// upsert with RETURNING.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn and runs the
// embedded schema migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(db, "."); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Get returns the value for key; rows past their expiry count as absent.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM kv_entries
	           WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var value string
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

// SetIfAbsent inserts the key, replacing an expired row if one is in the
// way. RowsAffected is zero exactly when a live entry already existed.
func (s *PostgresStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	const q = `INSERT INTO kv_entries (key, value, expires_at)
	           VALUES ($1, $2, now() + $3 * interval '1 second')
	           ON CONFLICT (key) DO UPDATE
	             SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	             WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()`

	res, err := s.db.ExecContext(ctx, q, key, value, ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("kv set-if-absent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv set-if-absent: %w", err)
	}
	return n > 0, nil
}

// Increment bumps the counter at key in a single upsert, restarting at 1
// when the previous window has expired.
func (s *PostgresStore) Increment(ctx context.Context, key string) (int64, error) {
	const q = `INSERT INTO kv_entries (key, value, expires_at)
	           VALUES ($1, '1', NULL)
	           ON CONFLICT (key) DO UPDATE SET
	             value = CASE
	               WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()
	               THEN '1'
	               ELSE (kv_entries.value::bigint + 1)::text
	             END,
	             expires_at = CASE
	               WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()
	               THEN NULL
	               ELSE kv_entries.expires_at
	             END
	           RETURNING value::bigint`

	var count int64
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("kv increment: %w", err)
	}
	return count, nil
}

// SetExpiry sets the TTL of an existing key.
func (s *PostgresStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	const q = `UPDATE kv_entries
	           SET expires_at = now() + $2 * interval '1 second'
	           WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, q, key, ttl.Seconds()); err != nil {
		return fmt.Errorf("kv set-expiry: %w", err)
	}
	return nil
}

var _ ports.KeyValueStore = (*PostgresStore)(nil)
