package handler

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

type signUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// fieldErrors maps request fields to localized messages.
type fieldErrors map[string]string

type validationError struct {
	Error  string      `json:"error"`
	Fields fieldErrors `json:"fields"`
}

func (h *Handler) validateSignUp(ctx context.Context, req *signUpRequest) fieldErrors {
	errs := fieldErrors{}
	if utf8.RuneCountInString(strings.TrimSpace(req.Name)) < minNameLength {
		errs["name"] = h.tr(ctx, "form.nameTooShort")
	}
	if !govalidator.IsEmail(strings.TrimSpace(req.Email)) {
		errs["email"] = h.tr(ctx, "form.invalidEmail")
	}
	h.validateNewPassword(ctx, req.Password, req.ConfirmPassword, errs)
	return errs
}

func (h *Handler) validateSignIn(ctx context.Context, req *signInRequest) fieldErrors {
	errs := fieldErrors{}
	if !govalidator.IsEmail(strings.TrimSpace(req.Email)) {
		errs["email"] = h.tr(ctx, "form.invalidEmail")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		errs["password"] = h.tr(ctx, "form.passwordTooShort")
	}
	return errs
}

func (h *Handler) validateResetPassword(ctx context.Context, req *resetPasswordRequest) fieldErrors {
	errs := fieldErrors{}
	if !govalidator.IsEmail(strings.TrimSpace(req.Email)) {
		errs["email"] = h.tr(ctx, "form.invalidEmail")
	}
	return errs
}

func (h *Handler) validateConfirmReset(ctx context.Context, req *confirmResetRequest) fieldErrors {
	errs := fieldErrors{}
	if strings.TrimSpace(req.Token) == "" {
		errs["token"] = h.tr(ctx, "form.resetTokenInvalid")
	}
	h.validateNewPassword(ctx, req.Password, req.ConfirmPassword, errs)
	return errs
}

func (h *Handler) validateNewPassword(ctx context.Context, password, confirm string, errs fieldErrors) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs["password"] = h.tr(ctx, "form.passwordTooShort")
	}
	if password != confirm {
		errs["confirmPassword"] = h.tr(ctx, "form.passwordsDontMatch")
	}
}
