package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"portal/internal/auth/models"
	"portal/pkg/platform/sentinel"
	"portal/pkg/platform/tx"
)

// PostgresStore persists profile documents in the profiles table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, uid string) (*models.ProfileDocument, error) {
	var doc models.ProfileDocument
	err := tx.Querier(ctx, s.db).QueryRowContext(ctx,
		`SELECT uid, email, display_name, created_at FROM profiles WHERE uid = $1`, uid,
	).Scan(&doc.UID, &doc.Email, &doc.DisplayName, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &doc, nil
}

func (s *PostgresStore) Create(ctx context.Context, doc models.ProfileDocument) error {
	query := `
		INSERT INTO profiles (uid, email, display_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			created_at = EXCLUDED.created_at
	`
	if _, err := tx.Querier(ctx, s.db).ExecContext(ctx, query, doc.UID, doc.Email, doc.DisplayName, doc.CreatedAt); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}
