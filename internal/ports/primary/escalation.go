package primary

import "context"

// EscalationService defines the primary port for escalation store operations.
type EscalationService interface {
	// CreateEscalation creates a new paused escalation.
	CreateEscalation(ctx context.Context, req CreateEscalationRequest) (*CreateEscalationResponse, error)

	// GetEscalation retrieves an escalation by ID, scoped to a school.
	GetEscalation(ctx context.Context, escalationID, schoolID string) (*Escalation, error)

	// ListEscalations lists escalations with optional filters.
	ListEscalations(ctx context.Context, filters EscalationFilters) ([]*Escalation, error)

	// RecordRound appends a round log entry and increments the round number.
	RecordRound(ctx context.Context, escalationID, schoolID string, entry RoundEntry) error

	// ListRounds returns the round history of an escalation, oldest first.
	ListRounds(ctx context.Context, escalationID, schoolID string) ([]*RoundEntry, error)

	// Transition moves an escalation to a new state, enforcing the state graph.
	Transition(ctx context.Context, escalationID, schoolID, newState string) error

	// RequestClarification records a clarification round and moves the
	// escalation from PAUSED to AWAITING_CLARIFICATION.
	RequestClarification(ctx context.Context, escalationID, schoolID, question string) error

	// NotifyAuthority presents an escalation to an authority: pushes a
	// notification, takes the authority's focus lock (last-notified wins),
	// and records the ADMIN_NOTIFIED audit event.
	NotifyAuthority(ctx context.Context, escalationID, schoolID, authorityIdentity string) error

	// ExpireStale moves non-terminal escalations untouched since the cutoff
	// into EXPIRED and releases focus locks pointing at them. This is a
	// store-layer policy; the core state graph never produces EXPIRED.
	ExpireStale(ctx context.Context, schoolID string, maxAgeHours int) ([]string, error)
}

// Escalation states. PAUSED is initial; RESOLVED, FAILED and EXPIRED are
// terminal. EXPIRED is reserved for the layered expiry policy and is never
// produced by Transition.
const (
	StatePaused                = "PAUSED"
	StateAwaitingClarification = "AWAITING_CLARIFICATION"
	StateApproved              = "APPROVED"
	StateDenied                = "DENIED"
	StateResolved              = "RESOLVED"
	StateFailed                = "FAILED"
	StateExpired               = "EXPIRED"
)

// validTransitions is the escalation state graph. Anything not listed here
// is rejected with ErrInvalidTransition.
var validTransitions = map[string][]string{
	StatePaused:                {StateAwaitingClarification, StateApproved, StateDenied},
	StateAwaitingClarification: {StateApproved, StateDenied},
	StateApproved:              {StateResolved, StateFailed},
	StateDenied:                {StateResolved, StateFailed},
}

// CanTransition reports whether from -> to is an edge of the state graph.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state admits no further mutation.
func IsTerminal(state string) bool {
	return state == StateResolved || state == StateFailed || state == StateExpired
}

// IsDecision reports whether a state carries an authority decision.
func IsDecision(state string) bool {
	return state == StateApproved || state == StateDenied
}

// Round authority types.
const (
	RoundClarificationRequest = "CLARIFICATION_REQUEST"
	RoundNeedsDecision        = "NEEDS_DECISION"
	RoundDecisionMade         = "DECISION_MADE"
)

// Escalation represents one paused decision point at the port boundary.
type Escalation struct {
	ID               string
	SchoolID         string
	OriginAgent      string
	EscalationType   string
	Priority         string
	FromPhone        string
	FromIdentity     string
	SessionID        string
	PauseMessageID   string
	State            string
	RoundNumber      int
	Reason           string
	WhatAgentNeeded  string
	Context          string // opaque JSON payload, never read by the protocol
	AdminDecision    string
	AdminInstruction string
	ResolvedBy       string
	CreatedAt        string
	UpdatedAt        string
	ResolvedAt       string
}

// RoundEntry is one authority/agent exchange within an escalation.
// Round numbers are assigned by the store, not the caller.
type RoundEntry struct {
	RoundNumber       int
	AuthorityType     string
	AuthorityRequest  string
	AuthorityResponse string
	AgentResponse     string
	CreatedAt         string
}

// CreateEscalationRequest contains parameters for creating an escalation.
type CreateEscalationRequest struct {
	OriginAgent     string
	EscalationType  string
	Priority        string
	SchoolID        string
	FromPhone       string
	FromIdentity    string
	SessionID       string
	PauseMessageID  string
	Reason          string
	WhatAgentNeeded string
	Context         string
}

// CreateEscalationResponse contains the result of creating an escalation.
type CreateEscalationResponse struct {
	EscalationID string
	Escalation   *Escalation
}

// EscalationFilters contains filter options for listing escalations.
type EscalationFilters struct {
	SchoolID    string
	State       string
	OriginAgent string
	SessionID   string
}
