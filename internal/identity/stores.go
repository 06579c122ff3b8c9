package identity

import (
	"context"
	"time"

	"portal/internal/auth/models"
)

// AccountStore persists accounts and their linked social identities.
//
// Error Contract:
//   - Create/CreateLinked return sentinel.ErrConflict when the email is taken
//   - Find* return sentinel.ErrNotFound when absent
type AccountStore interface {
	Create(ctx context.Context, acct Account) error
	CreateLinked(ctx context.Context, acct Account, provider, subject string) error
	Link(ctx context.Context, provider, subject, uid string) error
	FindByID(ctx context.Context, uid string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByIdentity(ctx context.Context, provider, subject string) (*Account, error)
	UpdatePassword(ctx context.Context, uid string, hash []byte) error
}

// PresenceStore tracks which principal is signed in for each client key and
// notifies subscribers of changes. Get returns nil when nobody is signed in.
type PresenceStore interface {
	Get(ctx context.Context, clientKey string) (*models.Principal, error)
	Set(ctx context.Context, clientKey string, p models.Principal) error
	Clear(ctx context.Context, clientKey string) error
	ClearUser(ctx context.Context, uid string) error
	// Subscribe delivers the current presence, then every change, until the
	// returned function is called.
	Subscribe(ctx context.Context, clientKey string, fn func(*models.Principal)) (func(), error)
}

// AttemptLimiter counts failed sign-ins per key within a window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// ResetTokenStore holds single-use password reset tokens by hash.
//
// Error Contract:
//   - Consume returns sentinel.ErrNotFound for unknown or used tokens
//   - Consume returns sentinel.ErrExpired for lapsed tokens
type ResetTokenStore interface {
	Save(ctx context.Context, tokenHash, uid string, ttl time.Duration) error
	Consume(ctx context.Context, tokenHash string) (string, error)
}
