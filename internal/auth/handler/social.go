package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"portal/internal/auth/models"
	"portal/internal/identity/social"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/platform/httputil"
	"portal/pkg/requestcontext"
)

const (
	stateCookieName = "portal_oauth_state"
	pkceCookieName  = "portal_oauth_pkce"
	consentTTL      = 5 * time.Minute
	socialPath      = "/api/auth/social"
)

func (h *Handler) setConsentCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     socialPath,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// handleSocialStart redirects the browser to the provider's consent page.
func (h *Handler) handleSocialStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider, ok := h.identity.Social(chi.URLParam(r, "provider"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown provider"))
		return
	}

	state, err := newState()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate oauth state",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to start sign in"))
		return
	}
	verifier, challenge := social.NewPKCE()
	h.setConsentCookie(w, stateCookieName, state, int(consentTTL.Seconds()))
	h.setConsentCookie(w, pkceCookieName, verifier, int(consentTTL.Seconds()))

	http.Redirect(w, r, provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// handleSocialCallback completes consent through the coordinator and sends the
// browser to its profile on success or back to sign in otherwise. The outcome
// notification stays in the inbox for the next session read.
func (h *Handler) handleSocialCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := models.ProviderKind(chi.URLParam(r, "provider"))
	query := r.URL.Query()

	resp := models.ConsentResponse{
		Code:  query.Get("code"),
		Error: query.Get("error"),
	}
	if h.validState(r) {
		if c, err := r.Cookie(pkceCookieName); err == nil {
			resp.Verifier = c.Value
		}
	}
	h.setConsentCookie(w, stateCookieName, "", -1)
	h.setConsentCookie(w, pkceCookieName, "", -1)

	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	target := "/" + h.locale(ctx) + "/profile"
	if err := sess.SignInWithSocialProvider(ctx, kind, resp); err != nil {
		target = "/" + h.locale(ctx) + "/signin"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) validState(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	if state == "" {
		return false
	}
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) == 1
}
