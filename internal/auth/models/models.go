package models

import "time"

// State is the coarse session lifecycle phase.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Principal is the authenticated identity returned by the identity provider.
// Email, DisplayName and CreatedAt are optional; social providers may omit them.
type Principal struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Session is the observable value owned by the coordinator. Principal is set
// only when State is StateAuthenticated.
type Session struct {
	State     State      `json:"state"`
	Principal *Principal `json:"principal,omitempty"`
}

// Loading returns the transient session value.
func Loading() Session { return Session{State: StateLoading} }

// Unauthenticated returns the signed-out session value.
func Unauthenticated() Session { return Session{State: StateUnauthenticated} }

// Authenticated returns the signed-in session value for p.
func Authenticated(p Principal) Session {
	return Session{State: StateAuthenticated, Principal: &p}
}

// Settled reports whether the session is outside an operation.
func (s Session) Settled() bool { return s.State != StateLoading }

// ProfileDocument is the persisted per-user record keyed by principal UID.
type ProfileDocument struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrorKind is the closed set of domain failures surfaced by coordinator operations.
type ErrorKind string

const (
	ErrorKindAccountExists      ErrorKind = "account_exists"
	ErrorKindInvalidEmail       ErrorKind = "invalid_email"
	ErrorKindWeakPassword       ErrorKind = "weak_password"
	ErrorKindInvalidCredentials ErrorKind = "invalid_credentials"
	ErrorKindRateLimited        ErrorKind = "rate_limited"
	ErrorKindConsentDismissed   ErrorKind = "consent_dismissed"
	ErrorKindConsentBlocked     ErrorKind = "consent_blocked"
	ErrorKindUserNotFound       ErrorKind = "user_not_found"
	ErrorKindUnknown            ErrorKind = "unknown"
)

// ProviderKind names a social consent provider.
type ProviderKind string

const ProviderGoogle ProviderKind = "google"

// ConsentResponse is what the browser brings back from a social consent flow.
// Error carries the provider's error parameter (e.g. "access_denied") when the
// user did not grant consent.
type ConsentResponse struct {
	Code     string
	Verifier string
	Error    string
}

// NotificationKind distinguishes success and failure toasts.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

// Notification is a user-facing outcome message, already localized.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}
