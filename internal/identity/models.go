package identity

import (
	"time"

	"portal/internal/auth/models"
)

// Account is a user known to the provider. PasswordHash is empty for accounts
// created through social consent only.
type Account struct {
	UID           string
	Email         string
	PasswordHash  []byte
	DisplayName   string
	EmailVerified bool
	CreatedAt     time.Time
}

// Principal converts the account to the identity handed to session owners.
func (a *Account) Principal() models.Principal {
	created := a.CreatedAt
	return models.Principal{
		UID:           a.UID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		EmailVerified: a.EmailVerified,
		CreatedAt:     &created,
	}
}
