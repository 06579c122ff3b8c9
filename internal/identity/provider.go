// Package identity is a local identity provider: accounts, password and social
// sign-in, ambient presence per client key, and password reset.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"golang.org/x/crypto/bcrypt"

	"portal/internal/audit"
	"portal/internal/identity/social"
	"portal/internal/platform/config"
	"portal/pkg/platform/sentinel"
	"portal/pkg/requestcontext"
)

// Auditor receives provider audit events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Provider is the process-wide identity service. Per-client access goes
// through Client.
type Provider struct {
	accounts AccountStore
	presence PresenceStore
	limiter  AttemptLimiter
	resets   ResetTokenStore
	mailer   Mailer
	social   *social.Registry
	auditor  Auditor
	logger   *slog.Logger

	cfg config.IdentityConfig
}

type Option func(*Provider)

func WithAccountStore(s AccountStore) Option {
	return func(p *Provider) { p.accounts = s }
}

func WithPresenceStore(s PresenceStore) Option {
	return func(p *Provider) { p.presence = s }
}

func WithAttemptLimiter(l AttemptLimiter) Option {
	return func(p *Provider) { p.limiter = l }
}

func WithResetTokenStore(s ResetTokenStore) Option {
	return func(p *Provider) { p.resets = s }
}

func WithMailer(m Mailer) Option {
	return func(p *Provider) { p.mailer = m }
}

func WithSocialRegistry(r *social.Registry) Option {
	return func(p *Provider) { p.social = r }
}

func WithAuditor(a Auditor) Option {
	return func(p *Provider) { p.auditor = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// New builds a provider. Stores default to in-memory implementations.
func New(cfg config.IdentityConfig, opts ...Option) *Provider {
	p := &Provider{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.accounts == nil {
		p.accounts = NewInMemoryAccountStore()
	}
	if p.presence == nil {
		p.presence = NewInMemoryPresence()
	}
	if p.limiter == nil {
		p.limiter = NewInMemoryAttemptLimiter(cfg.MaxFailedAttempts, cfg.AttemptWindow)
	}
	if p.resets == nil {
		p.resets = NewInMemoryResetTokenStore()
	}
	if p.mailer == nil {
		p.mailer = NewLogMailer(p.logger)
	}
	if p.social == nil {
		p.social = social.NewRegistry()
	}
	return p
}

// Client returns the handle for one browser client.
func (p *Provider) Client(clientKey string) *Client {
	return &Client{provider: p, clientKey: clientKey}
}

// Social returns the consent provider registered under name.
func (p *Provider) Social(name string) (social.Provider, bool) {
	return p.social.Get(name)
}

// RevokeUser ends every session of uid. Each affected client is notified of
// absence.
func (p *Provider) RevokeUser(ctx context.Context, uid string) error {
	if err := p.presence.ClearUser(ctx, uid); err != nil {
		return internalError(err)
	}
	p.emit(ctx, audit.Event{Action: audit.ActionSessionRevoked, UserID: uid, Reason: "revoked"})
	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password and ends
// the user's sessions.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if p.weak(newPassword) {
		return newError(CodeWeakPassword)
	}
	uid, err := p.resets.Consume(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return newError(CodeInvalidActionCode)
		}
		return internalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err)
	}
	if err := p.accounts.UpdatePassword(ctx, uid, hash); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(CodeInvalidActionCode)
		}
		return internalError(err)
	}
	if acct, err := p.accounts.FindByID(ctx, uid); err == nil {
		if err := p.limiter.Reset(ctx, acct.Email); err != nil {
			p.logger.WarnContext(ctx, "failed to reset sign-in attempts", "error", err, "uid", uid)
		}
	}
	p.emit(ctx, audit.Event{Action: audit.ActionPasswordResetCompleted, UserID: uid})
	return p.RevokeUser(ctx, uid)
}

func (p *Provider) weak(password string) bool {
	return utf8.RuneCountInString(password) < p.cfg.MinPasswordLength
}

func (p *Provider) emit(ctx context.Context, event audit.Event) {
	if p.auditor == nil {
		return
	}
	if err := p.auditor.Emit(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (p *Provider) resetLink(token string) string {
	sep := "?"
	if strings.Contains(p.cfg.ResetURL, "?") {
		sep = "&"
	}
	return p.cfg.ResetURL + sep + "token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	return email, govalidator.IsEmail(email)
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
