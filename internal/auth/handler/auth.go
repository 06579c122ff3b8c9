package handler

import (
	"errors"
	"net/http"
	"strings"

	"portal/internal/identity"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/platform/httputil"
	"portal/pkg/requestcontext"
)

func (h *Handler) writeValidation(w http.ResponseWriter, errs fieldErrors) bool {
	if len(errs) == 0 {
		return false
	}
	httputil.WriteJSON(w, http.StatusBadRequest, validationError{
		Error:  string(dErrors.CodeValidation),
		Fields: errs,
	})
	return true
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[signUpRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if h.writeValidation(w, h.validateSignUp(ctx, req)) {
		return
	}

	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	err := sess.SignUp(ctx, strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	h.writeOutcome(w, r, sess, err)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[signInRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if h.writeValidation(w, h.validateSignIn(ctx, req)) {
		return
	}

	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	err := sess.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
	h.writeOutcome(w, r, sess, err)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	err := sess.SignOut(r.Context())
	h.writeOutcome(w, r, sess, err)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[resetPasswordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if h.writeValidation(w, h.validateResetPassword(ctx, req)) {
		return
	}

	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	err := sess.ResetPassword(ctx, strings.TrimSpace(req.Email))
	h.writeOutcome(w, r, sess, err)
}

// handleConfirmReset completes a reset from the emailed link. It runs outside
// any coordinator: the provider ends the user's sessions, which every affected
// coordinator observes as an ambient sign-out.
func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[confirmResetRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if h.writeValidation(w, h.validateConfirmReset(ctx, req)) {
		return
	}

	err := h.identity.ConfirmPasswordReset(ctx, req.Token, req.Password)
	if err != nil {
		var perr *identity.Error
		if errors.As(err, &perr) {
			switch perr.Code {
			case identity.CodeInvalidActionCode:
				h.writeValidation(w, fieldErrors{"token": h.tr(ctx, "form.resetTokenInvalid")})
				return
			case identity.CodeWeakPassword:
				h.writeValidation(w, fieldErrors{"password": h.tr(ctx, "form.passwordTooShort")})
				return
			}
		}
		h.logger.ErrorContext(ctx, "failed to confirm password reset",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to reset password"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
