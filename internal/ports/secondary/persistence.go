// Package secondary defines the secondary ports: repository and collaborator
// interfaces the application core depends on, implemented by adapters.
package secondary

import (
	"context"
	"errors"
	"time"
)

// Store-level sentinels. Services translate these into the protocol error
// taxonomy at the primary port boundary.
var (
	// ErrRecordNotFound indicates the requested row does not exist (or is
	// outside the requested school scope).
	ErrRecordNotFound = errors.New("record not found")

	// ErrTerminalState indicates a write was rejected because the owning
	// escalation is in a terminal state.
	ErrTerminalState = errors.New("escalation is terminal")

	// ErrStateChanged indicates a compare-and-set write found the row in a
	// different state than expected. The row was not mutated.
	ErrStateChanged = errors.New("escalation state changed concurrently")
)

// EscalationRecord is the persistence shape of an escalation.
type EscalationRecord struct {
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
	Context          string
	AdminDecision    string
	AdminInstruction string
	ResolvedBy       string
	CreatedAt        string
	UpdatedAt        string
	ResolvedAt       string
}

// RoundRecord is the persistence shape of one round log entry.
type RoundRecord struct {
	EscalationID      string
	RoundNumber       int
	AuthorityType     string
	AuthorityRequest  string
	AuthorityResponse string
	AgentResponse     string
	CreatedAt         string
}

// FocusLockRecord is the persistence shape of a focus lock.
type FocusLockRecord struct {
	AuthorityIdentity  string
	LockedEscalationID string
	SchoolID           string
	LastInteractionAt  string
}

// AuditEventRecord is the persistence shape of one audit event.
type AuditEventRecord struct {
	ID           string
	EscalationID string
	SchoolID     string
	EventType    string
	Detail       string
	CreatedAt    string
}

// EscalationFilters contains filter options for listing escalations.
type EscalationFilters struct {
	SchoolID    string
	State       string
	OriginAgent string
	SessionID   string
}

// EscalationRepository defines the secondary port for escalation persistence.
// State-changing writes are compare-and-set on the expected current state so
// concurrent decisions cannot both win.
type EscalationRepository interface {
	// Create persists a new escalation.
	Create(ctx context.Context, record *EscalationRecord) error

	// GetByID retrieves an escalation scoped to a school. Returns
	// ErrRecordNotFound on a missing row or a school mismatch.
	GetByID(ctx context.Context, id, schoolID string) (*EscalationRecord, error)

	// List retrieves escalations matching the given filters.
	List(ctx context.Context, filters EscalationFilters) ([]*EscalationRecord, error)

	// UpdateState moves id from fromState to toState. Returns
	// ErrStateChanged if the row is no longer in fromState.
	UpdateState(ctx context.Context, id, fromState, toState string) error

	// RecordDecision moves id from fromState into the decision state and
	// stores the admin decision fields in the same write.
	RecordDecision(ctx context.Context, id, fromState, decision, instruction string) error

	// MarkResolved moves a decided escalation to RESOLVED, stamping
	// resolved_by and resolved_at.
	MarkResolved(ctx context.Context, id, resolvedBy string) error

	// MarkFailed moves a decided escalation to FAILED.
	MarkFailed(ctx context.Context, id string) error

	// ExpireOlderThan moves non-terminal escalations not updated since the
	// cutoff into EXPIRED and returns their IDs. schoolID may be empty to
	// sweep all schools.
	ExpireOlderThan(ctx context.Context, schoolID string, cutoff time.Time) ([]string, error)

	// GetNextID returns the next available escalation ID.
	GetNextID(ctx context.Context) (string, error)
}

// RoundRepository defines the secondary port for round log persistence.
type RoundRepository interface {
	// Append inserts a round numbered with the escalation's current round
	// number and increments the counter, atomically. Returns the assigned
	// round number, or ErrTerminalState if the escalation is terminal.
	Append(ctx context.Context, escalationID string, record *RoundRecord) (int, error)

	// ListByEscalation returns rounds for an escalation, oldest first.
	ListByEscalation(ctx context.Context, escalationID string) ([]*RoundRecord, error)
}

// FocusLockRepository defines the secondary port for focus lock persistence.
type FocusLockRepository interface {
	// Upsert atomically creates or overwrites the authority's lock.
	Upsert(ctx context.Context, record *FocusLockRecord) error

	// Get retrieves the authority's lock. Returns ErrRecordNotFound if the
	// authority holds no lock.
	Get(ctx context.Context, authorityIdentity string) (*FocusLockRecord, error)

	// Delete removes the authority's lock. Deleting a missing lock is not
	// an error.
	Delete(ctx context.Context, authorityIdentity string) error

	// DeleteByEscalation removes any locks pointing at an escalation.
	DeleteByEscalation(ctx context.Context, escalationID string) error
}

// AuditEventRepository defines the secondary port for audit persistence.
// Append-only; there is no update or delete.
type AuditEventRepository interface {
	// Append inserts one audit event.
	Append(ctx context.Context, record *AuditEventRecord) error

	// ListByEscalation returns events for an escalation, oldest first,
	// scoped to a school.
	ListByEscalation(ctx context.Context, escalationID, schoolID string) ([]*AuditEventRecord, error)
}
