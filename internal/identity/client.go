package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"portal/internal/audit"
	"portal/internal/auth/models"
	"portal/internal/identity/social"
	pemail "portal/pkg/email"
	"portal/pkg/platform/sentinel"
	"portal/pkg/requestcontext"
)

// Client is the identity handle of one browser client, keyed by its client key.
// Every method fails with *Error.
type Client struct {
	provider  *Provider
	clientKey string
}

// CreateAccount registers an email/password account and signs it in.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*models.Principal, error) {
	p := c.provider
	email, ok := normalizeEmail(email)
	if !ok {
		return nil, newError(CodeInvalidEmail)
	}
	if p.weak(password) {
		return nil, newError(CodeWeakPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err)
	}

	acct := Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err := p.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, newError(CodeEmailAlreadyInUse)
		}
		return nil, internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionAccountCreated, UserID: acct.UID, Subject: email})
	return c.signIn(ctx, &acct, "password")
}

// VerifyCredentials signs in with email and password.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*models.Principal, error) {
	p := c.provider
	email, ok := normalizeEmail(email)
	if !ok {
		return nil, newError(CodeInvalidEmail)
	}

	allowed, err := p.limiter.Allow(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if !allowed {
		p.emit(ctx, audit.Event{Action: audit.ActionRateLimited, Subject: email, Severity: audit.SeverityCritical})
		return nil, newError(CodeTooManyRequests)
	}

	acct, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, c.failSignIn(ctx, email, "", CodeUserNotFound)
		}
		return nil, internalError(err)
	}
	if len(acct.PasswordHash) == 0 {
		return nil, c.failSignIn(ctx, email, acct.UID, CodeInvalidCredential)
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return nil, c.failSignIn(ctx, email, acct.UID, CodeWrongPassword)
	}

	if err := p.limiter.Reset(ctx, email); err != nil {
		p.logger.WarnContext(ctx, "failed to reset sign-in attempts",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return c.signIn(ctx, acct, "password")
}

func (c *Client) failSignIn(ctx context.Context, email, uid, code string) error {
	p := c.provider
	if err := p.limiter.RecordFailure(ctx, email); err != nil {
		p.logger.WarnContext(ctx, "failed to record sign-in attempt",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	p.emit(ctx, audit.Event{
		Action:  audit.ActionAuthFailed,
		UserID:  uid,
		Subject: email,
		Reason:  strings.TrimPrefix(code, "auth/"),
	})
	return newError(code)
}

// InteractiveConsent completes a social consent flow. A dismissed consent
// fails with CodePopupClosedByUser; an incomplete or unknown one with
// CodePopupBlocked.
func (c *Client) InteractiveConsent(ctx context.Context, kind models.ProviderKind, resp models.ConsentResponse) (*models.Principal, error) {
	p := c.provider
	sp, ok := p.social.Get(string(kind))
	if !ok {
		return nil, newError(CodePopupBlocked)
	}
	switch {
	case resp.Error == "access_denied":
		return nil, newError(CodePopupClosedByUser)
	case resp.Error != "", resp.Code == "", resp.Verifier == "":
		return nil, newError(CodePopupBlocked)
	}

	ident, err := sp.Exchange(ctx, resp.Code, resp.Verifier)
	if err != nil {
		p.emit(ctx, audit.Event{Action: audit.ActionAuthFailed, Provider: string(kind), Reason: "exchange_failed"})
		return nil, internalError(err)
	}

	acct, err := c.resolveSocial(ctx, ident)
	if err != nil {
		return nil, err
	}
	return c.signIn(ctx, acct, ident.Provider)
}

// resolveSocial finds the account linked to the identity, links an existing
// account with the same verified email, or creates a new one.
func (c *Client) resolveSocial(ctx context.Context, ident *social.Identity) (*Account, error) {
	p := c.provider
	acct, err := p.accounts.FindByIdentity(ctx, ident.Provider, ident.Subject)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, internalError(err)
	}

	email, validEmail := normalizeEmail(ident.Email)
	if validEmail {
		existing, err := p.accounts.FindByEmail(ctx, email)
		switch {
		case err == nil && ident.EmailVerified:
			if err := p.accounts.Link(ctx, ident.Provider, ident.Subject, existing.UID); err != nil {
				return nil, internalError(err)
			}
			p.emit(ctx, audit.Event{Action: audit.ActionIdentityLinked, UserID: existing.UID, Provider: ident.Provider})
			return existing, nil
		case err == nil:
			return nil, newError(CodeAccountExistsOther)
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, internalError(err)
		}
	}
	if !validEmail {
		email = ""
	}

	created := Account{
		UID:           uuid.NewString(),
		Email:         email,
		DisplayName:   ident.Name,
		EmailVerified: ident.EmailVerified && email != "",
		CreatedAt:     requestcontext.Now(ctx).UTC(),
	}
	if created.DisplayName == "" && validEmail {
		created.DisplayName = pemail.DisplayName(email)
	}
	if created.Email == "" {
		// accounts.email is unique; social accounts without one get a
		// provider scoped placeholder.
		created.Email = fmt.Sprintf("%s+%s@users.noreply", ident.Provider, ident.Subject)
	}
	if err := p.accounts.CreateLinked(ctx, created, ident.Provider, ident.Subject); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, newError(CodeAccountExistsOther)
		}
		return nil, internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionAccountCreated, UserID: created.UID, Provider: ident.Provider})
	p.emit(ctx, audit.Event{Action: audit.ActionIdentityLinked, UserID: created.UID, Provider: ident.Provider})
	return &created, nil
}

func (c *Client) signIn(ctx context.Context, acct *Account, method string) (*models.Principal, error) {
	p := c.provider
	principal := acct.Principal()
	if err := p.presence.Set(ctx, c.clientKey, principal); err != nil {
		return nil, internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionSessionCreated, UserID: acct.UID, Provider: method})
	return &principal, nil
}

// TerminateSession signs the client out. Signing out with no session succeeds.
func (c *Client) TerminateSession(ctx context.Context) error {
	p := c.provider
	current, err := p.presence.Get(ctx, c.clientKey)
	if err != nil {
		return internalError(err)
	}
	if current == nil {
		return nil
	}
	if err := p.presence.Clear(ctx, c.clientKey); err != nil {
		return internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionSessionRevoked, UserID: current.UID, Reason: "sign_out"})
	return nil
}

// RequestPasswordReset mails a single-use reset link to the account's email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	p := c.provider
	email, ok := normalizeEmail(email)
	if !ok {
		return newError(CodeInvalidEmail)
	}
	acct, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(CodeUserNotFound)
		}
		return internalError(err)
	}

	token, err := newResetToken()
	if err != nil {
		return internalError(err)
	}
	if err := p.resets.Save(ctx, hashToken(token), acct.UID, p.cfg.ResetTokenTTL); err != nil {
		return internalError(err)
	}
	if err := p.mailer.SendPasswordReset(ctx, acct.Email, p.resetLink(token)); err != nil {
		return internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionPasswordResetRequested, UserID: acct.UID, Subject: email})
	return nil
}

// SubscribeAmbientSession delivers the client's current principal (nil when
// signed out) and then every change, including sign-ins and revocations made
// elsewhere.
func (c *Client) SubscribeAmbientSession(ctx context.Context, fn func(*models.Principal)) (func(), error) {
	unsubscribe, err := c.provider.presence.Subscribe(ctx, c.clientKey, fn)
	if err != nil {
		return nil, internalError(err)
	}
	return unsubscribe, nil
}
