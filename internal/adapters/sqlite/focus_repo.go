package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/handover/internal/ports/secondary"
)

// FocusLockRepository implements secondary.FocusLockRepository with SQLite.
type FocusLockRepository struct {
	db *sql.DB
}

// NewFocusLockRepository creates a new SQLite focus lock repository.
func NewFocusLockRepository(db *sql.DB) *FocusLockRepository {
	return &FocusLockRepository{db: db}
}

// Upsert atomically creates or overwrites the authority's lock. The single
// INSERT OR REPLACE is the compare-and-set the focus policy relies on: two
// near-simultaneous notifications leave exactly one row, the later write.
func (r *FocusLockRepository) Upsert(ctx context.Context, record *secondary.FocusLockRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO focus_locks (authority_identity, locked_escalation_id, school_id, last_interaction_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(authority_identity) DO UPDATE SET locked_escalation_id = excluded.locked_escalation_id, school_id = excluded.school_id, last_interaction_at = CURRENT_TIMESTAMP`,
		record.AuthorityIdentity,
		record.LockedEscalationID,
		record.SchoolID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert focus lock: %w", err)
	}

	return nil
}

// Get retrieves the authority's lock.
func (r *FocusLockRepository) Get(ctx context.Context, authorityIdentity string) (*secondary.FocusLockRecord, error) {
	var lastInteractionAt time.Time

	record := &secondary.FocusLockRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT authority_identity, locked_escalation_id, school_id, last_interaction_at FROM focus_locks WHERE authority_identity = ?`,
		authorityIdentity,
	).Scan(&record.AuthorityIdentity, &record.LockedEscalationID, &record.SchoolID, &lastInteractionAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("focus lock for %s: %w", authorityIdentity, secondary.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get focus lock: %w", err)
	}
	record.LastInteractionAt = lastInteractionAt.Format(time.RFC3339)

	return record, nil
}

// Delete removes the authority's lock. Deleting a missing lock is not an
// error.
func (r *FocusLockRepository) Delete(ctx context.Context, authorityIdentity string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM focus_locks WHERE authority_identity = ?", authorityIdentity)
	if err != nil {
		return fmt.Errorf("failed to delete focus lock: %w", err)
	}
	return nil
}

// DeleteByEscalation removes any locks pointing at an escalation.
func (r *FocusLockRepository) DeleteByEscalation(ctx context.Context, escalationID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM focus_locks WHERE locked_escalation_id = ?", escalationID)
	if err != nil {
		return fmt.Errorf("failed to delete focus locks for escalation: %w", err)
	}
	return nil
}

// Ensure FocusLockRepository implements the interface
var _ secondary.FocusLockRepository = (*FocusLockRepository)(nil)
