package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/handover/internal/ports/secondary"
)

// AuditEventRepository implements secondary.AuditEventRepository with SQLite.
// Append-only: there is no update or delete path.
type AuditEventRepository struct {
	db *sql.DB
}

// NewAuditEventRepository creates a new SQLite audit event repository.
func NewAuditEventRepository(db *sql.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// Append inserts one audit event. IDs are random UUIDs; audit rows have no
// human-facing sequence.
func (r *AuditEventRepository) Append(ctx context.Context, record *secondary.AuditEventRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, escalation_id, school_id, event_type, detail) VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.EscalationID,
		record.SchoolID,
		record.EventType,
		nullable(record.Detail),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// ListByEscalation returns events for an escalation, oldest first.
func (r *AuditEventRepository) ListByEscalation(ctx context.Context, escalationID, schoolID string) ([]*secondary.AuditEventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, escalation_id, school_id, event_type, detail, created_at FROM audit_events WHERE escalation_id = ? AND school_id = ? ORDER BY created_at ASC, id ASC`,
		escalationID, schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.AuditEventRecord
	for rows.Next() {
		var (
			detail    sql.NullString
			createdAt time.Time
		)

		record := &secondary.AuditEventRecord{}
		err := rows.Scan(&record.ID, &record.EscalationID, &record.SchoolID, &record.EventType, &detail, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		record.Detail = detail.String
		record.CreatedAt = createdAt.Format(time.RFC3339)

		events = append(events, record)
	}

	return events, rows.Err()
}

// Ensure AuditEventRepository implements the interface
var _ secondary.AuditEventRepository = (*AuditEventRepository)(nil)
