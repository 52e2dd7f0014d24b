package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/handover/internal/ports/secondary"
)

// HistoryRepository implements secondary.HistorySink against the local
// conversation_history table. Deployments with an external history service
// swap this for an HTTP adapter; the protocol treats either as best-effort.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordMessage appends one conversational history entry.
func (r *HistoryRepository) RecordMessage(ctx context.Context, record secondary.HistoryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_history (id, school_id, user_id, from_phone, agent_tag, body, action) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		record.SchoolID,
		nullable(record.UserID),
		record.FromPhone,
		record.AgentTag,
		record.Body,
		nullable(record.Action),
	)
	if err != nil {
		return fmt.Errorf("failed to record history message: %w", err)
	}

	return nil
}

// Ensure HistoryRepository implements the interface
var _ secondary.HistorySink = (*HistoryRepository)(nil)
