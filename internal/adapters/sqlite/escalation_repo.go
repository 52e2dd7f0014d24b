// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/handover/internal/ports/secondary"
)

// EscalationRepository implements secondary.EscalationRepository with SQLite.
type EscalationRepository struct {
	db *sql.DB
}

// NewEscalationRepository creates a new SQLite escalation repository.
func NewEscalationRepository(db *sql.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

const escalationColumns = `id, school_id, origin_agent, escalation_type, priority, from_phone, from_identity, session_id, pause_message_id, state, round_number, reason, what_agent_needed, context, admin_decision, admin_instruction, resolved_by, created_at, updated_at, resolved_at`

// Create persists a new escalation.
func (r *EscalationRepository) Create(ctx context.Context, record *secondary.EscalationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO escalations (id, school_id, origin_agent, escalation_type, priority, from_phone, from_identity, session_id, pause_message_id, state, round_number, reason, what_agent_needed, context) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SchoolID,
		record.OriginAgent,
		nullable(record.EscalationType),
		record.Priority,
		record.FromPhone,
		nullable(record.FromIdentity),
		nullable(record.SessionID),
		nullable(record.PauseMessageID),
		record.State,
		record.RoundNumber,
		record.Reason,
		nullable(record.WhatAgentNeeded),
		nullable(record.Context),
	)
	if err != nil {
		return fmt.Errorf("failed to create escalation: %w", err)
	}

	return nil
}

// GetByID retrieves an escalation by ID, scoped to a school. A school
// mismatch is indistinguishable from a missing row so cross-tenant lookups
// leak nothing.
func (r *EscalationRepository) GetByID(ctx context.Context, id, schoolID string) (*secondary.EscalationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE id = ? AND school_id = ?`,
		id, schoolID,
	)

	record, err := scanEscalation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	return record, nil
}

// List retrieves escalations matching the given filters.
func (r *EscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE 1=1`
	args := []any{}

	if filters.SchoolID != "" {
		query += " AND school_id = ?"
		args = append(args, filters.SchoolID)
	}
	if filters.State != "" {
		query += " AND state = ?"
		args = append(args, filters.State)
	}
	if filters.OriginAgent != "" {
		query += " AND origin_agent = ?"
		args = append(args, filters.OriginAgent)
	}
	if filters.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filters.SessionID)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*secondary.EscalationRecord
	for rows.Next() {
		record, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, record)
	}

	return escalations, rows.Err()
}

// UpdateState moves an escalation from fromState to toState with a
// compare-and-set write.
func (r *EscalationRepository) UpdateState(ctx context.Context, id, fromState, toState string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state = ?",
		toState, id, fromState,
	)
	if err != nil {
		return fmt.Errorf("failed to update escalation state: %w", err)
	}

	return r.checkCAS(ctx, result, id)
}

// RecordDecision moves an escalation into the decision state and stores the
// admin decision fields in the same compare-and-set write.
func (r *EscalationRepository) RecordDecision(ctx context.Context, id, fromState, decision, instruction string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET state = ?, admin_decision = ?, admin_instruction = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state = ?",
		decision, decision, nullable(instruction), id, fromState,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return r.checkCAS(ctx, result, id)
}

// MarkResolved moves a decided escalation to RESOLVED.
func (r *EscalationRepository) MarkResolved(ctx context.Context, id, resolvedBy string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET state = 'RESOLVED', resolved_by = ?, resolved_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state IN ('APPROVED', 'DENIED')",
		nullable(resolvedBy), id,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}

	return r.checkCAS(ctx, result, id)
}

// MarkFailed moves a decided escalation to FAILED.
func (r *EscalationRepository) MarkFailed(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE escalations SET state = 'FAILED', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state IN ('APPROVED', 'DENIED')",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail escalation: %w", err)
	}

	return r.checkCAS(ctx, result, id)
}

// ExpireOlderThan moves stale non-terminal escalations into EXPIRED and
// returns their IDs.
func (r *EscalationRepository) ExpireOlderThan(ctx context.Context, schoolID string, cutoff time.Time) ([]string, error) {
	query := "SELECT id FROM escalations WHERE state IN ('PAUSED', 'AWAITING_CLARIFICATION') AND updated_at < ?"
	args := []any{cutoff.UTC().Format("2006-01-02 15:04:05")}
	if schoolID != "" {
		query += " AND school_id = ?"
		args = append(args, schoolID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale escalations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan escalation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			"UPDATE escalations SET state = 'EXPIRED', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND state IN ('PAUSED', 'AWAITING_CLARIFICATION')",
			id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to expire escalation %s: %w", id, err)
		}
	}

	return ids, nil
}

// GetNextID returns the next available escalation ID.
func (r *EscalationRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("ESC-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM escalations", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next escalation ID: %w", err)
	}

	return fmt.Sprintf("ESC-%03d", maxID+1), nil
}

// checkCAS distinguishes "row missing" from "row in a different state" after
// a compare-and-set update touched zero rows.
func (r *EscalationRepository) checkCAS(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		return nil
	}

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM escalations WHERE id = ?", id).Scan(&count); err != nil {
		return fmt.Errorf("failed to check escalation %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	return fmt.Errorf("escalation %s: %w", id, secondary.ErrStateChanged)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscalation(row rowScanner) (*secondary.EscalationRecord, error) {
	var (
		escalationType   sql.NullString
		fromIdentity     sql.NullString
		sessionID        sql.NullString
		pauseMessageID   sql.NullString
		whatAgentNeeded  sql.NullString
		contextPayload   sql.NullString
		adminDecision    sql.NullString
		adminInstruction sql.NullString
		resolvedBy       sql.NullString
		createdAt        time.Time
		updatedAt        time.Time
		resolvedAt       sql.NullTime
	)

	record := &secondary.EscalationRecord{}
	err := row.Scan(
		&record.ID, &record.SchoolID, &record.OriginAgent, &escalationType, &record.Priority,
		&record.FromPhone, &fromIdentity, &sessionID, &pauseMessageID, &record.State,
		&record.RoundNumber, &record.Reason, &whatAgentNeeded, &contextPayload,
		&adminDecision, &adminInstruction, &resolvedBy, &createdAt, &updatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	record.EscalationType = escalationType.String
	record.FromIdentity = fromIdentity.String
	record.SessionID = sessionID.String
	record.PauseMessageID = pauseMessageID.String
	record.WhatAgentNeeded = whatAgentNeeded.String
	record.Context = contextPayload.String
	record.AdminDecision = adminDecision.String
	record.AdminInstruction = adminInstruction.String
	record.ResolvedBy = resolvedBy.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	if resolvedAt.Valid {
		record.ResolvedAt = resolvedAt.Time.Format(time.RFC3339)
	}

	return record, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure EscalationRepository implements the interface
var _ secondary.EscalationRepository = (*EscalationRepository)(nil)
