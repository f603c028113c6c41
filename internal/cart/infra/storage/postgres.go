package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresKV keeps slots in a key/jsonb table.
type PostgresKV struct {
	db    pgQuerier
	table string
}

func NewPostgresKV(db pgQuerier, table string) *PostgresKV {
	if table == "" {
		table = "cart_slots"
	}
	return &PostgresKV{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

func (r *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, r.table))
	return err
}

func (r *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, r.table), key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoValue
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, r.table), key, string(value))
	return err
}
