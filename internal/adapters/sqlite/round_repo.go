package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/handover/internal/ports/secondary"
)

// RoundRepository implements secondary.RoundRepository with SQLite.
type RoundRepository struct {
	db *sql.DB
}

// NewRoundRepository creates a new SQLite round repository.
func NewRoundRepository(db *sql.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// Append inserts a round numbered with the escalation's current round number
// and increments the counter. Runs in a transaction so concurrent rounds on
// one escalation cannot claim the same number.
func (r *RoundRepository) Append(ctx context.Context, escalationID string, record *secondary.RoundRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin round transaction: %w", err)
	}
	defer tx.Rollback()

	var roundNumber int
	var state string
	err = tx.QueryRowContext(ctx,
		"SELECT round_number, state FROM escalations WHERE id = ?", escalationID,
	).Scan(&roundNumber, &state)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("escalation %s: %w", escalationID, secondary.ErrRecordNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read escalation round counter: %w", err)
	}

	switch state {
	case "RESOLVED", "FAILED", "EXPIRED":
		return 0, fmt.Errorf("escalation %s: %w", escalationID, secondary.ErrTerminalState)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escalation_rounds (escalation_id, round_number, authority_type, authority_request, authority_response, agent_response) VALUES (?, ?, ?, ?, ?, ?)`,
		escalationID,
		roundNumber,
		record.AuthorityType,
		nullable(record.AuthorityRequest),
		nullable(record.AuthorityResponse),
		nullable(record.AgentResponse),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert round: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE escalations SET round_number = round_number + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		escalationID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to increment round counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit round: %w", err)
	}

	return roundNumber, nil
}

// ListByEscalation returns rounds for an escalation, oldest first.
func (r *RoundRepository) ListByEscalation(ctx context.Context, escalationID string) ([]*secondary.RoundRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT escalation_id, round_number, authority_type, authority_request, authority_response, agent_response, created_at FROM escalation_rounds WHERE escalation_id = ? ORDER BY round_number ASC`,
		escalationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*secondary.RoundRecord
	for rows.Next() {
		var (
			authorityRequest  sql.NullString
			authorityResponse sql.NullString
			agentResponse     sql.NullString
			createdAt         time.Time
		)

		record := &secondary.RoundRecord{}
		err := rows.Scan(&record.EscalationID, &record.RoundNumber, &record.AuthorityType, &authorityRequest, &authorityResponse, &agentResponse, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		record.AuthorityRequest = authorityRequest.String
		record.AuthorityResponse = authorityResponse.String
		record.AgentResponse = agentResponse.String
		record.CreatedAt = createdAt.Format(time.RFC3339)

		rounds = append(rounds, record)
	}

	return rounds, rows.Err()
}

// Ensure RoundRepository implements the interface
var _ secondary.RoundRepository = (*RoundRepository)(nil)
