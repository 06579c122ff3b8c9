package identity

import "fmt"

// Provider error codes. Callers treat them as opaque strings.
const (
	CodeEmailAlreadyInUse  = "auth/email-already-in-use"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeWeakPassword       = "auth/weak-password"
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeInvalidCredential  = "auth/invalid-credential"
	CodeTooManyRequests    = "auth/too-many-requests"
	CodePopupClosedByUser  = "auth/popup-closed-by-user"
	CodePopupBlocked       = "auth/popup-blocked"
	CodeInvalidActionCode  = "auth/invalid-action-code"
	CodeAccountExistsOther = "auth/account-exists-with-different-credential"
	CodeInternal           = "auth/internal-error"
)

// Error is a provider failure identified by an opaque code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// ProviderCode returns the opaque failure code.
func (e *Error) ProviderCode() string { return e.Code }

func newError(code string) error { return &Error{Code: code} }

func internalError(err error) error { return &Error{Code: CodeInternal, Err: err} }
