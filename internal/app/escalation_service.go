package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/handover/internal/agent"
	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

// EscalationServiceImpl implements the EscalationService interface: durable
// escalation records, append-only round history, and the state-transition
// guards.
type EscalationServiceImpl struct {
	escalationRepo secondary.EscalationRepository
	roundRepo      secondary.RoundRepository
	focusRepo      secondary.FocusLockRepository
	push           secondary.PushSender
	audit          primary.AuditService
	log            zerolog.Logger
}

// NewEscalationService creates a new EscalationService with injected dependencies.
func NewEscalationService(
	escalationRepo secondary.EscalationRepository,
	roundRepo secondary.RoundRepository,
	focusRepo secondary.FocusLockRepository,
	push secondary.PushSender,
	audit primary.AuditService,
	log zerolog.Logger,
) *EscalationServiceImpl {
	return &EscalationServiceImpl{
		escalationRepo: escalationRepo,
		roundRepo:      roundRepo,
		focusRepo:      focusRepo,
		push:           push,
		audit:          audit,
		log:            log,
	}
}

// CreateEscalation creates a new paused escalation.
func (s *EscalationServiceImpl) CreateEscalation(ctx context.Context, req primary.CreateEscalationRequest) (*primary.CreateEscalationResponse, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	nextID, err := s.escalationRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate escalation ID: %w", err)
	}

	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	record := &secondary.EscalationRecord{
		ID:              nextID,
		SchoolID:        req.SchoolID,
		OriginAgent:     req.OriginAgent,
		EscalationType:  req.EscalationType,
		Priority:        priority,
		FromPhone:       req.FromPhone,
		FromIdentity:    req.FromIdentity,
		SessionID:       req.SessionID,
		PauseMessageID:  req.PauseMessageID,
		State:           primary.StatePaused,
		RoundNumber:     1,
		Reason:          req.Reason,
		WhatAgentNeeded: req.WhatAgentNeeded,
		Context:         req.Context,
	}

	if err := s.escalationRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create escalation: %w", err)
	}

	s.audit.Record(ctx, primary.AuditEvent{
		EscalationID: nextID,
		SchoolID:     req.SchoolID,
		EventType:    primary.EventEscalationCreated,
		Detail:       req.Reason,
	})

	created, err := s.escalationRepo.GetByID(ctx, nextID, req.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created escalation: %w", err)
	}

	return &primary.CreateEscalationResponse{
		EscalationID: created.ID,
		Escalation:   recordToEscalation(created),
	}, nil
}

// GetEscalation retrieves an escalation by ID, scoped to a school.
// A correct ID with the wrong school fails exactly like a missing ID.
func (s *EscalationServiceImpl) GetEscalation(ctx context.Context, escalationID, schoolID string) (*primary.Escalation, error) {
	record, err := s.escalationRepo.GetByID(ctx, escalationID, schoolID)
	if err != nil {
		if errors.Is(err, secondary.ErrRecordNotFound) {
			return nil, fmt.Errorf("escalation %s in school %s: %w", escalationID, schoolID, primary.ErrNotFound)
		}
		return nil, err
	}
	return recordToEscalation(record), nil
}

// ListEscalations lists escalations with optional filters.
func (s *EscalationServiceImpl) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	records, err := s.escalationRepo.List(ctx, secondary.EscalationFilters{
		SchoolID:    filters.SchoolID,
		State:       filters.State,
		OriginAgent: filters.OriginAgent,
		SessionID:   filters.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	escalations := make([]*primary.Escalation, len(records))
	for i, r := range records {
		escalations[i] = recordToEscalation(r)
	}
	return escalations, nil
}

// RecordRound appends a round log entry. The store assigns the round number.
func (s *EscalationServiceImpl) RecordRound(ctx context.Context, escalationID, schoolID string, entry primary.RoundEntry) error {
	if _, err := s.GetEscalation(ctx, escalationID, schoolID); err != nil {
		return err
	}

	_, err := s.roundRepo.Append(ctx, escalationID, &secondary.RoundRecord{
		AuthorityType:     entry.AuthorityType,
		AuthorityRequest:  entry.AuthorityRequest,
		AuthorityResponse: entry.AuthorityResponse,
		AgentResponse:     entry.AgentResponse,
	})
	if err != nil {
		if errors.Is(err, secondary.ErrTerminalState) {
			return fmt.Errorf("cannot record round on escalation %s: %w", escalationID, primary.ErrInvalidState)
		}
		return fmt.Errorf("failed to record round: %w", err)
	}

	return nil
}

// ListRounds returns the round history of an escalation, oldest first.
func (s *EscalationServiceImpl) ListRounds(ctx context.Context, escalationID, schoolID string) ([]*primary.RoundEntry, error) {
	if _, err := s.GetEscalation(ctx, escalationID, schoolID); err != nil {
		return nil, err
	}

	records, err := s.roundRepo.ListByEscalation(ctx, escalationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	rounds := make([]*primary.RoundEntry, len(records))
	for i, r := range records {
		rounds[i] = &primary.RoundEntry{
			RoundNumber:       r.RoundNumber,
			AuthorityType:     r.AuthorityType,
			AuthorityRequest:  r.AuthorityRequest,
			AuthorityResponse: r.AuthorityResponse,
			AgentResponse:     r.AgentResponse,
			CreatedAt:         r.CreatedAt,
		}
	}
	return rounds, nil
}

// Transition moves an escalation to a new state, enforcing the state graph.
// A disallowed transition is rejected without mutating the record.
func (s *EscalationServiceImpl) Transition(ctx context.Context, escalationID, schoolID, newState string) error {
	esc, err := s.GetEscalation(ctx, escalationID, schoolID)
	if err != nil {
		return err
	}

	if !primary.CanTransition(esc.State, newState) {
		return fmt.Errorf("escalation %s: %s -> %s: %w", escalationID, esc.State, newState, primary.ErrInvalidTransition)
	}

	if err := s.escalationRepo.UpdateState(ctx, escalationID, esc.State, newState); err != nil {
		if errors.Is(err, secondary.ErrStateChanged) {
			return fmt.Errorf("escalation %s: %s -> %s: %w", escalationID, esc.State, newState, primary.ErrInvalidTransition)
		}
		return fmt.Errorf("failed to transition escalation: %w", err)
	}

	return nil
}

// RequestClarification records a clarification round and moves the
// escalation from PAUSED to AWAITING_CLARIFICATION.
func (s *EscalationServiceImpl) RequestClarification(ctx context.Context, escalationID, schoolID, question string) error {
	if question == "" {
		return fmt.Errorf("clarification question is required: %w", primary.ErrValidation)
	}

	if err := s.Transition(ctx, escalationID, schoolID, primary.StateAwaitingClarification); err != nil {
		return err
	}

	return s.RecordRound(ctx, escalationID, schoolID, primary.RoundEntry{
		AuthorityType:    primary.RoundClarificationRequest,
		AuthorityRequest: question,
	})
}

// NotifyAuthority presents an escalation to an authority: pushes a
// notification, takes the focus lock (last-notified wins), and records the
// ADMIN_NOTIFIED audit event. If the push fails the lock is not taken; an
// authority cannot own a conversation they never saw.
func (s *EscalationServiceImpl) NotifyAuthority(ctx context.Context, escalationID, schoolID, authorityIdentity string) error {
	esc, err := s.GetEscalation(ctx, escalationID, schoolID)
	if err != nil {
		return err
	}
	if primary.IsTerminal(esc.State) {
		return fmt.Errorf("escalation %s already %s: %w", escalationID, esc.State, primary.ErrInvalidState)
	}

	text := fmt.Sprintf("[%s] Escalation %s needs your decision.\nReason: %s", esc.OriginAgent, esc.ID, esc.Reason)
	if esc.WhatAgentNeeded != "" {
		text += "\nNeeded: " + esc.WhatAgentNeeded
	}
	text += "\nReply APPROVED or DENIED with an instruction."

	if err := s.push.SendPush(ctx, schoolID, authorityIdentity, text); err != nil {
		s.log.Warn().
			Err(err).
			Str("escalation_id", escalationID).
			Str("authority", authorityIdentity).
			Msg("authority notification failed")
		return fmt.Errorf("notify %s: %w", authorityIdentity, primary.ErrDelivery)
	}

	if err := s.focusRepo.Upsert(ctx, &secondary.FocusLockRecord{
		AuthorityIdentity:  authorityIdentity,
		LockedEscalationID: escalationID,
		SchoolID:           schoolID,
	}); err != nil {
		return fmt.Errorf("failed to take focus lock: %w", err)
	}

	s.audit.Record(ctx, primary.AuditEvent{
		EscalationID: escalationID,
		SchoolID:     schoolID,
		EventType:    primary.EventAdminNotified,
		Detail:       authorityIdentity,
	})

	return nil
}

// ExpireStale moves non-terminal escalations untouched for maxAgeHours into
// EXPIRED and releases focus locks pointing at them. A store-layer policy,
// deliberately outside the core state graph.
func (s *EscalationServiceImpl) ExpireStale(ctx context.Context, schoolID string, maxAgeHours int) ([]string, error) {
	if maxAgeHours <= 0 {
		return nil, fmt.Errorf("max age must be positive: %w", primary.ErrValidation)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(maxAgeHours) * time.Hour)
	ids, err := s.escalationRepo.ExpireOlderThan(ctx, schoolID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to expire escalations: %w", err)
	}

	for _, id := range ids {
		if err := s.focusRepo.DeleteByEscalation(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("escalation_id", id).Msg("failed to release focus lock for expired escalation")
		}
		s.log.Info().Str("escalation_id", id).Msg("escalation expired")
	}

	return ids, nil
}

// validateCreate checks the required creation fields.
func validateCreate(req primary.CreateEscalationRequest) error {
	if req.OriginAgent == "" {
		return fmt.Errorf("origin agent is required: %w", primary.ErrValidation)
	}
	if !agent.ValidTag(req.OriginAgent) {
		return fmt.Errorf("origin agent %q is not a known agent tag: %w", req.OriginAgent, primary.ErrValidation)
	}
	if req.Reason == "" {
		return fmt.Errorf("reason is required: %w", primary.ErrValidation)
	}
	if req.FromPhone == "" {
		return fmt.Errorf("from phone is required: %w", primary.ErrValidation)
	}
	if req.SchoolID == "" {
		return fmt.Errorf("school ID is required: %w", primary.ErrValidation)
	}
	return nil
}

// Helper methods

func recordToEscalation(r *secondary.EscalationRecord) *primary.Escalation {
	return &primary.Escalation{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		OriginAgent:      r.OriginAgent,
		EscalationType:   r.EscalationType,
		Priority:         r.Priority,
		FromPhone:        r.FromPhone,
		FromIdentity:     r.FromIdentity,
		SessionID:        r.SessionID,
		PauseMessageID:   r.PauseMessageID,
		State:            r.State,
		RoundNumber:      r.RoundNumber,
		Reason:           r.Reason,
		WhatAgentNeeded:  r.WhatAgentNeeded,
		Context:          r.Context,
		AdminDecision:    r.AdminDecision,
		AdminInstruction: r.AdminInstruction,
		ResolvedBy:       r.ResolvedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ResolvedAt:       r.ResolvedAt,
	}
}

// Ensure EscalationServiceImpl implements the interface
var _ primary.EscalationService = (*EscalationServiceImpl)(nil)
