package primary

import "context"

// AuditService defines the primary port for the append-only audit trail.
// Record is a write-only side channel: failures are logged and swallowed,
// never surfaced to the protocol.
type AuditService interface {
	// Record appends an audit event. Best-effort; never returns an error.
	Record(ctx context.Context, event AuditEvent)

	// ListEvents returns the audit trail of an escalation, oldest first.
	ListEvents(ctx context.Context, escalationID, schoolID string) ([]*AuditEvent, error)
}

// Audit event types, one per protocol step.
const (
	EventEscalationCreated     = "ESCALATION_CREATED"
	EventAdminNotified         = "ADMIN_NOTIFIED"
	EventAdminResponseRecorded = "ADMIN_RESPONSE_RECORDED"
	EventDecisionMade          = "DECISION_MADE"
	EventOriginAgentResumed    = "ORIGIN_AGENT_RESUMED"
	EventEscalationResolved    = "ESCALATION_RESOLVED"
)

// AuditEvent is one immutable protocol step record.
type AuditEvent struct {
	ID           string
	EscalationID string
	SchoolID     string
	EventType    string
	Detail       string
	CreatedAt    string
}
