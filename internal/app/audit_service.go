package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

// AuditServiceImpl implements the AuditService interface. Writes are a
// best-effort side channel: a failed append is logged and swallowed so a
// sink hiccup never stalls the protocol.
type AuditServiceImpl struct {
	auditRepo secondary.AuditEventRepository
	log       zerolog.Logger
}

// NewAuditService creates a new AuditService with injected dependencies.
func NewAuditService(auditRepo secondary.AuditEventRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		auditRepo: auditRepo,
		log:       log,
	}
}

// Record appends an audit event. Never returns an error.
func (s *AuditServiceImpl) Record(ctx context.Context, event primary.AuditEvent) {
	err := s.auditRepo.Append(ctx, &secondary.AuditEventRecord{
		EscalationID: event.EscalationID,
		SchoolID:     event.SchoolID,
		EventType:    event.EventType,
		Detail:       event.Detail,
	})
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("escalation_id", event.EscalationID).
			Str("school_id", event.SchoolID).
			Str("event", event.EventType).
			Msg("audit write failed")
	}
}

// ListEvents returns the audit trail of an escalation, oldest first.
func (s *AuditServiceImpl) ListEvents(ctx context.Context, escalationID, schoolID string) ([]*primary.AuditEvent, error) {
	records, err := s.auditRepo.ListByEscalation(ctx, escalationID, schoolID)
	if err != nil {
		return nil, err
	}

	events := make([]*primary.AuditEvent, len(records))
	for i, r := range records {
		events[i] = &primary.AuditEvent{
			ID:           r.ID,
			EscalationID: r.EscalationID,
			SchoolID:     r.SchoolID,
			EventType:    r.EventType,
			Detail:       r.Detail,
			CreatedAt:    r.CreatedAt,
		}
	}
	return events, nil
}

// Ensure AuditServiceImpl implements the interface
var _ primary.AuditService = (*AuditServiceImpl)(nil)
