// Package audit records security and account events emitted by the identity provider.
package audit

import "time"

// Action names an audited occurrence.
type Action string

const (
	ActionAccountCreated         Action = "account_created"
	ActionSessionCreated         Action = "session_created"
	ActionSessionRevoked         Action = "session_revoked"
	ActionAuthFailed             Action = "auth_failed"
	ActionIdentityLinked         Action = "identity_linked"
	ActionPasswordResetRequested Action = "password_reset_requested"
	ActionPasswordResetCompleted Action = "password_reset_completed"
	ActionRateLimited            Action = "rate_limited"
)

// Category routes events to sinks with different retention needs.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategorySecurity   Category = "security"
	CategoryOperations Category = "operations"
)

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var actionCategories = map[Action]Category{
	ActionAccountCreated:         CategoryCompliance,
	ActionIdentityLinked:         CategoryCompliance,
	ActionPasswordResetCompleted: CategoryCompliance,
	ActionAuthFailed:             CategorySecurity,
	ActionRateLimited:            CategorySecurity,
	ActionPasswordResetRequested: CategorySecurity,
	ActionSessionCreated:         CategoryOperations,
	ActionSessionRevoked:         CategoryOperations,
}

// Category returns the category for the action. Unknown actions are operational.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event is a single audit record. Request scoped fields are filled by the
// Publisher from context when left empty.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Action    Action    `json:"action"`
	Severity  Severity  `json:"severity,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Subject   string    `json:"subject,omitempty"` // email or provider subject
	Provider  string    `json:"provider,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ClientKey string    `json:"client_key,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Device    string    `json:"device,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}
