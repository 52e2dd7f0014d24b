package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

func resumeRequest(escalationID, decision string) primary.ResumeRequest {
	return primary.ResumeRequest{
		EscalationID:      escalationID,
		SchoolID:          "school-1",
		AuthorityIdentity: "admin@school-1",
		Decision:          decision,
	}
}

// ============================================================================
// Happy Path
// ============================================================================

func TestResume_ApprovedHappyPath(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	seedLock(mocks, "admin@school-1", "ESC-001")
	service := mocks.resumptionService()

	req := resumeRequest("ESC-001", primary.DecisionApproved)
	req.Instruction = "Waive the fee this term only"
	result, err := service.Resume(context.Background(), req)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AlreadyTerminal {
		t.Error("expected a fresh resolution, not a terminal no-op")
	}
	if result.State != primary.StateResolved {
		t.Errorf("expected state RESOLVED, got '%s'", result.State)
	}
	if !result.ReplyDelivered {
		t.Error("expected reply to be delivered")
	}
	if result.ReplyText != "Here is what was decided." {
		t.Errorf("unexpected reply text '%s'", result.ReplyText)
	}

	record := mocks.escalations.records["ESC-001"]
	if record.State != primary.StateResolved {
		t.Errorf("expected stored state RESOLVED, got '%s'", record.State)
	}
	if record.AdminDecision != primary.DecisionApproved {
		t.Errorf("expected decision APPROVED, got '%s'", record.AdminDecision)
	}
	if record.AdminInstruction != "Waive the fee this term only" {
		t.Errorf("expected instruction stored, got '%s'", record.AdminInstruction)
	}
	if record.ResolvedBy != "admin@school-1" {
		t.Errorf("expected resolved_by stamped, got '%s'", record.ResolvedBy)
	}

	// The origin agent was woken exactly once with the synthetic message.
	if len(mocks.agent.received) != 1 {
		t.Fatalf("expected 1 agent invocation, got %d", len(mocks.agent.received))
	}

	// Parent agent: side notification plus the crafted reply.
	if len(mocks.push.sent) != 2 {
		t.Fatalf("expected 2 pushes (side notification + reply), got %d", len(mocks.push.sent))
	}
	if mocks.push.sent[1].Target != "+15550001111" {
		t.Errorf("expected reply to requester phone, got '%s'", mocks.push.sent[1].Target)
	}

	if len(mocks.history.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(mocks.history.records))
	}
	if mocks.history.records[0].Action != "escalation_resumed" {
		t.Errorf("unexpected history action '%s'", mocks.history.records[0].Action)
	}

	if _, ok := mocks.locks.locks["admin@school-1"]; ok {
		t.Error("expected authority's focus lock to be released")
	}

	wantEvents := []string{
		primary.EventAdminResponseRecorded,
		primary.EventDecisionMade,
		primary.EventOriginAgentResumed,
		primary.EventEscalationResolved,
	}
	gotEvents := mocks.auditEvents.eventTypes("ESC-001")
	if len(gotEvents) != len(wantEvents) {
		t.Fatalf("expected %d audit events, got %v", len(wantEvents), gotEvents)
	}
	for i, want := range wantEvents {
		if gotEvents[i] != want {
			t.Errorf("audit event %d: expected %s, got %s", i, want, gotEvents[i])
		}
	}
}

func TestResume_SyntheticMessageShape(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	service := mocks.resumptionService()

	req := resumeRequest("ESC-001", primary.DecisionDenied)
	req.Instruction = "Policy does not allow waivers"
	if _, err := service.Resume(context.Background(), req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	msg := mocks.agent.received[0]
	if !msg.SystemInjection {
		t.Error("expected SystemInjection flag on resume message")
	}
	if msg.EscalationResumeID != "ESC-001" {
		t.Errorf("expected resume ID ESC-001, got '%s'", msg.EscalationResumeID)
	}
	if msg.From != "+15550001111" {
		t.Errorf("expected message addressed from requester, got '%s'", msg.From)
	}
	if msg.AgentTag != "PA" {
		t.Errorf("expected agent tag PA, got '%s'", msg.AgentTag)
	}
	if !strings.Contains(msg.Body, primary.DecisionDenied) {
		t.Errorf("expected decision in body, got '%s'", msg.Body)
	}
	if !strings.Contains(msg.Body, "Policy does not allow waivers") {
		t.Errorf("expected instruction in body, got '%s'", msg.Body)
	}
}

// Teacher-agent escalations get no parent side notification; only the
// crafted reply goes out.
func TestResume_NoSideNotificationForTeacherAgent(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mocks.push.sent) != 1 {
		t.Errorf("expected only the reply push, got %d pushes", len(mocks.push.sent))
	}
}

// Group-origin escalations are delivered back to the group, not the phone.
func TestResume_GroupTargetNormalization(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	record.FromIdentity = "group:120363041234"
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mocks.push.sent) != 1 {
		t.Fatalf("expected 1 push, got %d", len(mocks.push.sent))
	}
	if got := mocks.push.sent[0].Target; got != "120363041234@g.us" {
		t.Errorf("expected group target '120363041234@g.us', got '%s'", got)
	}
}

// ============================================================================
// Validation and Lookup
// ============================================================================

func TestResume_InvalidDecision(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", "MAYBE"))

	if !errors.Is(err, primary.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if got := mocks.escalations.records["ESC-001"].State; got != primary.StatePaused {
		t.Errorf("rejected decision must not mutate state, got '%s'", got)
	}
}

func TestResume_NotFound(t *testing.T) {
	mocks := newTestMocks()
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-404", primary.DecisionApproved))

	if !errors.Is(err, primary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// An authority in one school cannot resolve another school's escalation.
func TestResume_WrongSchool(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	service := mocks.resumptionService()

	req := resumeRequest("ESC-001", primary.DecisionApproved)
	req.SchoolID = "school-2"
	_, err := service.Resume(context.Background(), req)

	if !errors.Is(err, primary.ErrNotFound) {
		t.Errorf("expected ErrNotFound for cross-school resume, got %v", err)
	}
	if got := mocks.escalations.records["ESC-001"].State; got != primary.StatePaused {
		t.Errorf("cross-school resume must not mutate state, got '%s'", got)
	}
}

// ============================================================================
// Idempotency and Races
// ============================================================================

// A duplicate resume for an already-finished escalation is a no-op: the first
// decision stands and no second reply goes out.
func TestResume_AlreadyTerminal(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StateResolved)
	service := mocks.resumptionService()

	result, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionDenied))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.AlreadyTerminal {
		t.Error("expected AlreadyTerminal result")
	}
	if result.State != primary.StateResolved {
		t.Errorf("expected reported state RESOLVED, got '%s'", result.State)
	}
	if len(mocks.agent.received) != 0 {
		t.Error("expected origin agent not to be invoked")
	}
	if len(mocks.push.sent) != 0 {
		t.Error("expected no pushes")
	}
}

// Two near-simultaneous decisions: the loser of the compare-and-set re-reads
// and, finding the escalation finished, treats its invocation as a duplicate.
func TestResume_ConcurrentDecisionLosesRace(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	service := mocks.resumptionService()

	// Simulate a concurrent writer finishing the escalation between our read
	// and our compare-and-set.
	mocks.escalations.onRecordDecision = func() {
		record := mocks.escalations.records["ESC-001"]
		record.State = primary.StateResolved
		record.AdminDecision = primary.DecisionApproved
		mocks.escalations.onRecordDecision = nil
	}

	result, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionDenied))

	if err != nil {
		t.Fatalf("expected no error for lost race, got %v", err)
	}
	if !result.AlreadyTerminal {
		t.Error("expected AlreadyTerminal result after lost race")
	}
	if got := mocks.escalations.records["ESC-001"].AdminDecision; got != primary.DecisionApproved {
		t.Errorf("losing decision must not overwrite the winner, got '%s'", got)
	}
	if len(mocks.agent.received) != 0 {
		t.Error("expected origin agent not to be invoked by the loser")
	}
}

// A retry after a crash mid-flow (decision recorded, resumption incomplete)
// skips straight to resumption without re-recording the decision.
func TestResume_RetryAfterRecordedDecision(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StateApproved)
	record.AdminDecision = primary.DecisionApproved
	record.AdminInstruction = "Waive the fee"
	service := mocks.resumptionService()

	result, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.State != primary.StateResolved {
		t.Errorf("expected state RESOLVED, got '%s'", result.State)
	}
	if mocks.escalations.recordDecisionCalls != 0 {
		t.Errorf("expected decision not to be re-recorded, got %d calls", mocks.escalations.recordDecisionCalls)
	}
	if len(mocks.agent.received) != 1 {
		t.Errorf("expected agent invoked once, got %d", len(mocks.agent.received))
	}
}

// ============================================================================
// Failure Paths
// ============================================================================

// No handler for the origin agent tag: the escalation fails rather than
// dangling in a decision state, and the focus lock is released.
func TestResume_UnknownOriginAgent(t *testing.T) {
	mocks := newTestMocks()
	mocks.seedEscalation("ESC-001", primary.StatePaused)
	seedLock(mocks, "admin@school-1", "ESC-001")
	mocks.registry.handlers = map[string]secondary.OriginAgent{}
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if !errors.Is(err, primary.ErrUnknownOriginAgent) {
		t.Errorf("expected ErrUnknownOriginAgent, got %v", err)
	}
	if got := mocks.escalations.records["ESC-001"].State; got != primary.StateFailed {
		t.Errorf("expected state FAILED, got '%s'", got)
	}
	if len(mocks.locks.locks) != 0 {
		t.Error("expected focus lock released for failed escalation")
	}
}

// The origin agent erroring is the one fatal step: the escalation moves to
// FAILED and no reply is fabricated on the agent's behalf.
func TestResume_AgentFailure(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	mocks.agent.handleErr = errors.New("agent runtime crashed")
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err == nil {
		t.Fatal("expected error when origin agent fails")
	}
	if got := mocks.escalations.records["ESC-001"].State; got != primary.StateFailed {
		t.Errorf("expected state FAILED, got '%s'", got)
	}
	if len(mocks.push.sent) != 0 {
		t.Error("expected no fabricated reply to the requester")
	}
	if got := mocks.escalations.records["ESC-001"].AdminDecision; got != primary.DecisionApproved {
		t.Errorf("decision must survive the failed resumption, got '%s'", got)
	}

	// The trail shows the decision but no resolution.
	events := mocks.auditEvents.eventTypes("ESC-001")
	sawDecision, sawResolved := false, false
	for _, e := range events {
		if e == primary.EventDecisionMade {
			sawDecision = true
		}
		if e == primary.EventEscalationResolved {
			sawResolved = true
		}
	}
	if !sawDecision {
		t.Error("expected DECISION_MADE in audit trail")
	}
	if sawResolved {
		t.Error("expected no ESCALATION_RESOLVED after failed resumption")
	}
}

// Delivery failure after a successful resumption is non-fatal: the decision
// stands, the escalation resolves, and the reply is kept in history.
func TestResume_ReplyDeliveryFails(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	mocks.push.sendErr = errors.New("transport down")
	service := mocks.resumptionService()

	result, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.State != primary.StateResolved {
		t.Errorf("expected state RESOLVED despite failed delivery, got '%s'", result.State)
	}
	if result.ReplyDelivered {
		t.Error("expected ReplyDelivered=false")
	}
	if result.ReplyText == "" {
		t.Error("expected crafted reply text to be reported")
	}
	if len(mocks.history.records) != 1 {
		t.Errorf("expected reply kept in history, got %d records", len(mocks.history.records))
	}
}

// An agent may decline to answer; the escalation still resolves and nothing
// is pushed.
func TestResume_EmptyAgentReply(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	mocks.agent.reply = nil
	service := mocks.resumptionService()

	result, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.State != primary.StateResolved {
		t.Errorf("expected state RESOLVED, got '%s'", result.State)
	}
	if len(mocks.push.sent) != 0 {
		t.Error("expected no push for empty reply")
	}
	if len(mocks.history.records) != 0 {
		t.Error("expected no history record for empty reply")
	}
}

// A focus lock the authority has since moved to a newer escalation is left
// alone when an older escalation resolves.
func TestResume_KeepsNewerFocusLock(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	mocks.seedEscalation("ESC-002", primary.StatePaused)
	seedLock(mocks, "admin@school-1", "ESC-002")
	service := mocks.resumptionService()

	_, err := service.Resume(context.Background(), resumeRequest("ESC-001", primary.DecisionApproved))

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	lock := mocks.locks.locks["admin@school-1"]
	if lock == nil || lock.LockedEscalationID != "ESC-002" {
		t.Errorf("expected newer lock preserved, got %+v", lock)
	}
}

// Round log: resolving appends a DECISION_MADE round carrying the decision.
func TestResume_RecordsDecisionRound(t *testing.T) {
	mocks := newTestMocks()
	record := mocks.seedEscalation("ESC-001", primary.StatePaused)
	record.OriginAgent = "TA"
	service := mocks.resumptionService()

	req := resumeRequest("ESC-001", primary.DecisionDenied)
	req.Instruction = "Not this term"
	if _, err := service.Resume(context.Background(), req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rounds := mocks.rounds.rounds["ESC-001"]
	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	if rounds[0].AuthorityType != primary.RoundDecisionMade {
		t.Errorf("expected DECISION_MADE round, got '%s'", rounds[0].AuthorityType)
	}
	if rounds[0].AuthorityResponse != "DENIED: Not this term" {
		t.Errorf("unexpected authority response '%s'", rounds[0].AuthorityResponse)
	}
}
