package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations runs database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bills (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			creator_id BIGINT NOT NULL,
			creator_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			closed_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bills_open_chat
			ON bills (chat_id) WHERE status = 'open';

		CREATE TABLE IF NOT EXISTS bill_participants (
			bill_id BIGINT NOT NULL REFERENCES bills (id),
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (bill_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			bill_id BIGINT NOT NULL REFERENCES bills (id),
			user_id BIGINT NOT NULL,
			user_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			amount DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_expenses_bill_id ON expenses (bill_id);

		CREATE TABLE IF NOT EXISTS receipt_sessions (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			creator_id BIGINT NOT NULL,
			creator_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			closed_at TIMESTAMPTZ
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_receipt_sessions_open_chat
			ON receipt_sessions (chat_id) WHERE status = 'open';

		CREATE TABLE IF NOT EXISTS receipt_items (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL REFERENCES receipt_sessions (id),
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			quantity INT NOT NULL DEFAULT 1,
			shared BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_receipt_items_session_id ON receipt_items (session_id);

		CREATE TABLE IF NOT EXISTS item_claims (
			item_id BIGINT NOT NULL REFERENCES receipt_items (id),
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (item_id, user_id)
		);
	`)
	return err
}
