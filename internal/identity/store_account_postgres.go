package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"portal/pkg/platform/sentinel"
	"portal/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresAccountStore persists accounts in the accounts and linked_identities tables.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

const accountColumns = `uid, email, password_hash, display_name, email_verified, created_at`

func (s *PostgresAccountStore) Create(ctx context.Context, acct Account) error {
	_, err := tx.Querier(ctx, s.db).ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.UID, strings.ToLower(acct.Email), acct.PasswordHash, acct.DisplayName, acct.EmailVerified, acct.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", acct.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) CreateLinked(ctx context.Context, acct Account, provider, subject string) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if err := s.Create(ctx, acct); err != nil {
			return err
		}
		return s.Link(ctx, provider, subject, acct.UID)
	})
}

func (s *PostgresAccountStore) Link(ctx context.Context, provider, subject, uid string) error {
	_, err := tx.Querier(ctx, s.db).ExecContext(ctx, `
		INSERT INTO linked_identities (provider, subject, uid)
		VALUES ($1, $2, $3)
	`, provider, subject, uid)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity %s: %w", provider, sentinel.ErrConflict)
		}
		return fmt.Errorf("link identity: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, uid string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE uid = $1`, uid)
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
}

func (s *PostgresAccountStore) FindByIdentity(ctx context.Context, provider, subject string) (*Account, error) {
	return s.findOne(ctx, `
		SELECT a.uid, a.email, a.password_hash, a.display_name, a.email_verified, a.created_at
		FROM accounts a
		JOIN linked_identities l ON l.uid = a.uid
		WHERE l.provider = $1 AND l.subject = $2
	`, provider, subject)
}

func (s *PostgresAccountStore) UpdatePassword(ctx context.Context, uid string, hash []byte) error {
	res, err := tx.Querier(ctx, s.db).ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2 WHERE uid = $1`, uid, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresAccountStore) findOne(ctx context.Context, query string, args ...any) (*Account, error) {
	var acct Account
	err := tx.Querier(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(
		&acct.UID, &acct.Email, &acct.PasswordHash, &acct.DisplayName, &acct.EmailVerified, &acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &acct, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
