package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"portal/internal/auth/coordinator"
	"portal/internal/auth/models"
	"portal/internal/auth/sessions"
	"portal/internal/identity/social"
	"portal/internal/platform/i18n"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/platform/httputil"
	"portal/pkg/requestcontext"
)

// SessionSource leases the coordinator of a client.
type SessionSource interface {
	Acquire(ctx context.Context, clientKey string) (*sessions.Session, error)
}

// IdentityService exposes the provider operations that are not session scoped.
type IdentityService interface {
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	Social(name string) (social.Provider, bool)
}

// ProfileReader loads profile documents.
type ProfileReader interface {
	Get(ctx context.Context, uid string) (*models.ProfileDocument, error)
}

// Handler serves the auth, session and profile endpoints.
type Handler struct {
	logger        *slog.Logger
	sessions      SessionSource
	identity      IdentityService
	profiles      ProfileReader
	defaultLocale language.Tag
	secureCookies bool
}

// New creates a new auth Handler.
func New(
	sessions SessionSource,
	identity IdentityService,
	profiles ProfileReader,
	defaultLocale language.Tag,
	secureCookies bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:        logger,
		sessions:      sessions,
		identity:      identity,
		profiles:      profiles,
		defaultLocale: defaultLocale,
		secureCookies: secureCookies,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/signup", h.handleSignUp)
	r.Post("/api/auth/signin", h.handleSignIn)
	r.Post("/api/auth/signout", h.handleSignOut)
	r.Post("/api/auth/reset-password", h.handleResetPassword)
	r.Post("/api/auth/reset-password/confirm", h.handleConfirmReset)
	r.Get("/api/auth/social/{provider}", h.handleSocialStart)
	r.Get("/api/auth/social/{provider}/callback", h.handleSocialCallback)

	r.Get("/api/session", h.handleSession)
	r.Get("/api/session/events", h.handleSessionEvents)
	r.Get("/api/profile", h.handleProfile)
}

// acquire leases the caller's coordinator or writes an error response.
func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	ctx := r.Context()
	clientKey := requestcontext.ClientKey(ctx)
	if clientKey == "" {
		h.logger.ErrorContext(ctx, "client key missing from context",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "client session error"))
		return nil, false
	}
	sess, err := h.sessions.Acquire(ctx, clientKey)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to acquire session",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if errors.Is(err, sessions.ErrClosed) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "shutting down"))
			return nil, false
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to start session"))
		return nil, false
	}
	return sess, true
}

// locale returns the path prefix of the caller's UI language.
func (h *Handler) locale(ctx context.Context) string {
	tag := requestcontext.Language(ctx)
	if tag == language.Und {
		tag = h.defaultLocale
	}
	return tag.String()
}

type sessionResponse struct {
	Session       models.Session        `json:"session"`
	Notifications []models.Notification `json:"notifications"`
}

type operationError struct {
	Error            string                `json:"error"`
	ErrorDescription string                `json:"error_description,omitempty"`
	Kind             models.ErrorKind      `json:"kind"`
	Session          models.Session        `json:"session"`
	Notifications    []models.Notification `json:"notifications"`
}

// writeOutcome responds to a coordinator operation with the resulting session
// and the notifications it produced.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, sess *sessions.Session, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, sessionResponse{
			Session:       sess.Session(),
			Notifications: sess.Inbox.Drain(),
		})
		return
	}

	code := dErrors.CodeOf(err)
	body := operationError{
		Error:         string(code),
		Kind:          coordinator.KindOf(err),
		Session:       sess.Session(),
		Notifications: sess.Inbox.Drain(),
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		body.ErrorDescription = de.Message
	}
	httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

func (h *Handler) tr(ctx context.Context, key string) string {
	return i18n.T(requestcontext.Language(ctx), key)
}
