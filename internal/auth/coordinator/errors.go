package coordinator

import (
	"context"
	"errors"
	"fmt"

	"portal/internal/auth/models"
	"portal/internal/platform/i18n"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/requestcontext"
)

// ProviderCoder is implemented by identity provider failures.
type ProviderCoder interface {
	ProviderCode() string
}

// Error is returned by every failed operation.
type Error struct {
	Op           string
	Kind         models.ErrorKind
	ProviderCode string
	Err          error
}

func (e *Error) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Kind, e.ProviderCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, or ErrorKindUnknown when err did not come
// from an operation.
func KindOf(err error) models.ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return models.ErrorKindUnknown
}

type operation string

const (
	opSignUp        operation = "sign_up"
	opSignIn        operation = "sign_in"
	opSocialSignIn  operation = "social_sign_in"
	opSignOut       operation = "sign_out"
	opResetPassword operation = "reset_password"
)

// providerKinds maps opaque provider codes to error kinds per operation.
// Codes not listed map to ErrorKindUnknown.
var providerKinds = map[operation]map[string]models.ErrorKind{
	opSignUp: {
		"auth/email-already-in-use": models.ErrorKindAccountExists,
		"auth/invalid-email":        models.ErrorKindInvalidEmail,
		"auth/weak-password":        models.ErrorKindWeakPassword,
	},
	opSignIn: {
		"auth/user-not-found":     models.ErrorKindInvalidCredentials,
		"auth/wrong-password":     models.ErrorKindInvalidCredentials,
		"auth/invalid-credential": models.ErrorKindInvalidCredentials,
		"auth/invalid-email":      models.ErrorKindInvalidEmail,
		"auth/too-many-requests":  models.ErrorKindRateLimited,
	},
	opSocialSignIn: {
		"auth/popup-closed-by-user": models.ErrorKindConsentDismissed,
		"auth/popup-blocked":        models.ErrorKindConsentBlocked,
	},
	opSignOut: {},
	opResetPassword: {
		"auth/user-not-found": models.ErrorKindUserNotFound,
		"auth/invalid-email":  models.ErrorKindInvalidEmail,
	},
}

var kindDescriptions = map[models.ErrorKind]string{
	models.ErrorKindAccountExists:      "auth.emailAlreadyInUse",
	models.ErrorKindInvalidEmail:       "auth.invalidEmail",
	models.ErrorKindWeakPassword:       "auth.weakPassword",
	models.ErrorKindInvalidCredentials: "auth.invalidCredentials",
	models.ErrorKindRateLimited:        "auth.tooManyRequests",
	models.ErrorKindConsentDismissed:   "auth.popupClosed",
	models.ErrorKindConsentBlocked:     "auth.popupBlocked",
	models.ErrorKindUserNotFound:       "auth.userNotFound",
	models.ErrorKindUnknown:            "auth.unknownError",
}

var kindCodes = map[models.ErrorKind]dErrors.Code{
	models.ErrorKindAccountExists:      dErrors.CodeConflict,
	models.ErrorKindInvalidEmail:       dErrors.CodeInvalidInput,
	models.ErrorKindWeakPassword:       dErrors.CodeInvalidInput,
	models.ErrorKindInvalidCredentials: dErrors.CodeUnauthorized,
	models.ErrorKindRateLimited:        dErrors.CodeRateLimited,
	models.ErrorKindConsentDismissed:   dErrors.CodeBadRequest,
	models.ErrorKindConsentBlocked:     dErrors.CodeForbidden,
	models.ErrorKindUserNotFound:       dErrors.CodeNotFound,
	models.ErrorKindUnknown:            dErrors.CodeInternal,
}

// classify maps an identity failure onto the operation's closed error set.
func (c *Coordinator) classify(ctx context.Context, op operation, err error) (models.ErrorKind, string) {
	var pc ProviderCoder
	if !errors.As(err, &pc) {
		c.logger.WarnContext(ctx, "unexpected operation failure",
			"operation", string(op),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.ErrorKindUnknown, ""
	}
	code := pc.ProviderCode()
	if kind, ok := providerKinds[op][code]; ok {
		return kind, code
	}
	return models.ErrorKindUnknown, code
}

func (c *Coordinator) newError(ctx context.Context, op operation, cause error) *Error {
	kind, code := c.classify(ctx, op, cause)
	desc := i18n.T(requestcontext.Language(ctx), kindDescriptions[kind])
	return &Error{
		Op:           string(op),
		Kind:         kind,
		ProviderCode: code,
		Err:          dErrors.Wrap(cause, kindCodes[kind], desc),
	}
}
