package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RMahshie/dbmeter/internal/repository"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresKeyValue implements KeyValue on a single PostgreSQL table
type PostgresKeyValue struct {
	db *sql.DB
}

// NewPostgresKeyValue creates a new PostgreSQL key/value repository
func NewPostgresKeyValue(db *sql.DB) *PostgresKeyValue {
	return &PostgresKeyValue{db: db}
}

var _ repository.KeyValue = (*PostgresKeyValue)(nil)

// EnsureSchema creates the kv_store table if it is missing
func (r *PostgresKeyValue) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

// Get retrieves the value stored under key
func (r *PostgresKeyValue) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM kv_store
		WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return value, true, nil
}

// Set upserts the value stored under key
func (r *PostgresKeyValue) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Remove deletes key
func (r *PostgresKeyValue) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}
