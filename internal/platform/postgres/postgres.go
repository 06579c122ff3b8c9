// Package postgres opens the database/sql pool backing accounts, identities and
// profiles, and applies the schema on startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"portal/internal/platform/config"
)

// Open connects to Postgres and applies the schema. Returns nil when no DSN is
// configured.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLife)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		uid            TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		password_hash  BYTEA,
		display_name   TEXT NOT NULL DEFAULT '',
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS linked_identities (
		provider     TEXT NOT NULL,
		subject      TEXT NOT NULL,
		uid          TEXT NOT NULL REFERENCES accounts(uid) ON DELETE CASCADE,
		PRIMARY KEY (provider, subject)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		uid           TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the idempotent schema statements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
