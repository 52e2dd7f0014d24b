package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/handover/internal/agent"
	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

// groupIdentityPrefix marks escalations that originated in a group chat.
// The transport expects group targets suffixed with the group domain.
const (
	groupIdentityPrefix = "group:"
	groupTargetSuffix   = "@g.us"
)

// ResumptionServiceImpl implements the ResumptionService interface: the
// single control path that turns an authority's decision into a delivered,
// auditable conversational outcome.
//
// Failure semantics: origin-agent invocation is the only fatal step (the
// escalation moves to FAILED); push delivery, history and audit writes are
// best-effort and independently logged.
type ResumptionServiceImpl struct {
	escalationRepo secondary.EscalationRepository
	roundRepo      secondary.RoundRepository
	focusRepo      secondary.FocusLockRepository
	registry       secondary.AgentRegistry
	push           secondary.PushSender
	history        secondary.HistorySink
	audit          primary.AuditService
	log            zerolog.Logger
}

// NewResumptionService creates a new ResumptionService with injected dependencies.
func NewResumptionService(
	escalationRepo secondary.EscalationRepository,
	roundRepo secondary.RoundRepository,
	focusRepo secondary.FocusLockRepository,
	registry secondary.AgentRegistry,
	push secondary.PushSender,
	history secondary.HistorySink,
	audit primary.AuditService,
	log zerolog.Logger,
) *ResumptionServiceImpl {
	return &ResumptionServiceImpl{
		escalationRepo: escalationRepo,
		roundRepo:      roundRepo,
		focusRepo:      focusRepo,
		registry:       registry,
		push:           push,
		history:        history,
		audit:          audit,
		log:            log,
	}
}

// Resume runs the decision-to-delivery control path for one escalation.
//
// Re-invoking Resume for an escalation that already reached a terminal state
// is a logged no-op: the decision stands and no duplicate reply is delivered.
func (s *ResumptionServiceImpl) Resume(ctx context.Context, req primary.ResumeRequest) (*primary.ResumeResult, error) {
	if req.Decision != primary.DecisionApproved && req.Decision != primary.DecisionDenied {
		return nil, fmt.Errorf("decision must be %s or %s: %w", primary.DecisionApproved, primary.DecisionDenied, primary.ErrValidation)
	}

	// Look up the escalation in the authority's school. Never fabricate an
	// escalation to resolve.
	record, err := s.escalationRepo.GetByID(ctx, req.EscalationID, req.SchoolID)
	if err != nil {
		if errors.Is(err, secondary.ErrRecordNotFound) {
			return nil, fmt.Errorf("escalation %s in school %s: %w", req.EscalationID, req.SchoolID, primary.ErrNotFound)
		}
		return nil, err
	}
	esc := recordToEscalation(record)

	if primary.IsTerminal(esc.State) {
		s.log.Warn().
			Str("escalation_id", esc.ID).
			Str("state", esc.State).
			Msg("resume requested for terminal escalation; ignoring")
		return &primary.ResumeResult{
			EscalationID:    esc.ID,
			State:           esc.State,
			AlreadyTerminal: true,
		}, nil
	}

	// Record the decision. Compare-and-set on the current state so two
	// near-simultaneous decisions cannot both win; a retry after a crash
	// mid-flow (state already APPROVED/DENIED) skips straight to resumption.
	if !primary.IsDecision(esc.State) {
		err := s.escalationRepo.RecordDecision(ctx, esc.ID, esc.State, req.Decision, req.Instruction)
		if err != nil {
			if errors.Is(err, secondary.ErrStateChanged) {
				return s.retryAfterRace(ctx, req)
			}
			return nil, fmt.Errorf("failed to record decision: %w", err)
		}
		esc.State = req.Decision
		esc.AdminDecision = req.Decision
		esc.AdminInstruction = req.Instruction

		if _, err := s.roundRepo.Append(ctx, esc.ID, &secondary.RoundRecord{
			AuthorityType:     primary.RoundDecisionMade,
			AuthorityResponse: decisionSummary(req.Decision, req.Instruction),
		}); err != nil {
			s.log.Warn().Err(err).Str("escalation_id", esc.ID).Msg("failed to record decision round")
		}

		s.audit.Record(ctx, primary.AuditEvent{
			EscalationID: esc.ID,
			SchoolID:     esc.SchoolID,
			EventType:    primary.EventAdminResponseRecorded,
			Detail:       req.AuthorityIdentity,
		})
		s.audit.Record(ctx, primary.AuditEvent{
			EscalationID: esc.ID,
			SchoolID:     esc.SchoolID,
			EventType:    primary.EventDecisionMade,
			Detail:       decisionSummary(req.Decision, req.Instruction),
		})
	}

	// Origin-agent-specific side notification, independent of the
	// conversational resume. Best-effort.
	s.sendSideNotification(ctx, esc)

	handler := s.registry.Resolve(esc.OriginAgent)
	if handler == nil {
		s.log.Error().
			Str("escalation_id", esc.ID).
			Str("origin_agent", esc.OriginAgent).
			Msg("no handler registered for origin agent; failing resumption")
		s.failEscalation(ctx, esc)
		return nil, fmt.Errorf("agent tag %q: %w", esc.OriginAgent, primary.ErrUnknownOriginAgent)
	}

	resume := primary.NewSyntheticResumeMessage(esc, esc.AdminDecision, esc.AdminInstruction)
	reply, err := handler.Handle(ctx, secondary.AgentMessage{
		From:               resume.From,
		Body:               resume.Body,
		AgentTag:           resume.AgentTag,
		SystemInjection:    resume.SystemInjection,
		EscalationResumeID: resume.EscalationResumeID,
	})
	if err != nil {
		// No user-facing reply is fabricated on the agent's behalf; the
		// missing resumption surfaces as an operational alert.
		s.log.Error().
			Err(err).
			Str("escalation_id", esc.ID).
			Str("origin_agent", esc.OriginAgent).
			Msg("origin agent resume failed")
		s.failEscalation(ctx, esc)
		return nil, fmt.Errorf("origin agent %s resume failed: %v", esc.OriginAgent, err)
	}

	s.audit.Record(ctx, primary.AuditEvent{
		EscalationID: esc.ID,
		SchoolID:     esc.SchoolID,
		EventType:    primary.EventOriginAgentResumed,
	})

	result := &primary.ResumeResult{EscalationID: esc.ID}

	// Deliver the agent's crafted reply to the original requester. The
	// decision is already recorded; delivery is a best-effort notification,
	// not the source of truth.
	if reply != nil && reply.ReplyText != "" {
		result.ReplyText = reply.ReplyText
		target := deliveryTarget(esc)
		if err := s.push.SendPush(ctx, esc.SchoolID, target, reply.ReplyText); err != nil {
			s.log.Warn().
				Err(err).
				Str("escalation_id", esc.ID).
				Str("target", target).
				Msg("resume reply delivery failed")
		} else {
			result.ReplyDelivered = true
		}

		// Keep the conversation's memory of the resolution even if
		// delivery failed.
		if err := s.history.RecordMessage(ctx, secondary.HistoryRecord{
			SchoolID:  esc.SchoolID,
			FromPhone: esc.FromPhone,
			AgentTag:  esc.OriginAgent,
			Body:      reply.ReplyText,
			Action:    "escalation_resumed",
		}); err != nil {
			s.log.Warn().Err(err).Str("escalation_id", esc.ID).Msg("history write failed")
		}
	}

	if err := s.escalationRepo.MarkResolved(ctx, esc.ID, req.AuthorityIdentity); err != nil {
		return nil, fmt.Errorf("failed to finalize escalation: %w", err)
	}
	result.State = primary.StateResolved

	s.releaseFocus(ctx, req.AuthorityIdentity, esc.ID)

	s.audit.Record(ctx, primary.AuditEvent{
		EscalationID: esc.ID,
		SchoolID:     esc.SchoolID,
		EventType:    primary.EventEscalationResolved,
		Detail:       req.AuthorityIdentity,
	})

	s.log.Info().
		Str("escalation_id", esc.ID).
		Str("decision", esc.AdminDecision).
		Bool("reply_delivered", result.ReplyDelivered).
		Msg("escalation resolved")

	return result, nil
}

// retryAfterRace re-reads the escalation after a lost compare-and-set. If a
// concurrent invocation drove it terminal this is the duplicate-webhook case
// and we no-op; anything else is a genuine conflict.
func (s *ResumptionServiceImpl) retryAfterRace(ctx context.Context, req primary.ResumeRequest) (*primary.ResumeResult, error) {
	record, err := s.escalationRepo.GetByID(ctx, req.EscalationID, req.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read escalation after conflict: %w", err)
	}
	if primary.IsTerminal(record.State) {
		s.log.Warn().
			Str("escalation_id", record.ID).
			Str("state", record.State).
			Msg("concurrent resume already finalized escalation; ignoring duplicate")
		return &primary.ResumeResult{
			EscalationID:    record.ID,
			State:           record.State,
			AlreadyTerminal: true,
		}, nil
	}
	return nil, fmt.Errorf("escalation %s changed concurrently: %w", req.EscalationID, primary.ErrInvalidTransition)
}

// failEscalation moves a decided escalation to FAILED rather than leaving it
// dangling in APPROVED/DENIED.
func (s *ResumptionServiceImpl) failEscalation(ctx context.Context, esc *primary.Escalation) {
	if err := s.escalationRepo.MarkFailed(ctx, esc.ID); err != nil {
		s.log.Error().Err(err).Str("escalation_id", esc.ID).Msg("failed to mark escalation FAILED")
	}
	s.releaseFocus(ctx, "", esc.ID)
}

// releaseFocus clears focus locks for a finished escalation. When the
// authority is known, only their lock is removed and only if it still points
// at this escalation; a lock already moved to a newer escalation is left
// alone.
func (s *ResumptionServiceImpl) releaseFocus(ctx context.Context, authorityIdentity, escalationID string) {
	if authorityIdentity != "" {
		lock, err := s.focusRepo.Get(ctx, authorityIdentity)
		if err != nil || lock.LockedEscalationID != escalationID {
			return
		}
		if err := s.focusRepo.Delete(ctx, authorityIdentity); err != nil {
			s.log.Warn().Err(err).Str("authority", authorityIdentity).Msg("failed to release focus lock")
		}
		return
	}
	if err := s.focusRepo.DeleteByEscalation(ctx, escalationID); err != nil {
		s.log.Warn().Err(err).Str("escalation_id", escalationID).Msg("failed to release focus locks")
	}
}

// sendSideNotification sends a direct decision heads-up to the requester for
// agent types whose domains expect one (parent-facing requests). Best-effort
// and independent of the conversational resume.
func (s *ResumptionServiceImpl) sendSideNotification(ctx context.Context, esc *primary.Escalation) {
	if esc.OriginAgent != agent.TagParent {
		return
	}

	var text string
	switch esc.AdminDecision {
	case primary.DecisionApproved:
		text = "Update: your request has been approved by the school administration."
	case primary.DecisionDenied:
		text = "Update: your request has been reviewed and was not approved."
	default:
		return
	}

	if err := s.push.SendPush(ctx, esc.SchoolID, deliveryTarget(esc), text); err != nil {
		s.log.Warn().
			Err(err).
			Str("escalation_id", esc.ID).
			Msg("side notification failed")
	}
}

// deliveryTarget normalizes the push target for the transport. Group-origin
// escalations carry a group: identity and need the group domain suffix.
func deliveryTarget(esc *primary.Escalation) string {
	target := esc.FromIdentity
	if target == "" {
		target = esc.FromPhone
	}
	if strings.HasPrefix(target, groupIdentityPrefix) {
		return strings.TrimPrefix(target, groupIdentityPrefix) + groupTargetSuffix
	}
	return target
}

// decisionSummary renders the recorded authority response for the round log.
func decisionSummary(decision, instruction string) string {
	if instruction == "" {
		return decision
	}
	return decision + ": " + instruction
}

// Ensure ResumptionServiceImpl implements the interface
var _ primary.ResumptionService = (*ResumptionServiceImpl)(nil)
