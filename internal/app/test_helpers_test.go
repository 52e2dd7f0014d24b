package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/handover/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockEscalationRepository implements secondary.EscalationRepository for testing.
type mockEscalationRepository struct {
	records map[string]*secondary.EscalationRecord

	createErr error
	getErr    error
	listErr   error
	updateErr error

	// onRecordDecision runs just before the compare-and-set check, letting
	// tests simulate a concurrent writer.
	onRecordDecision    func()
	recordDecisionCalls int

	// expireResult is returned by ExpireOlderThan; the matching records are
	// moved to EXPIRED.
	expireResult []string
	expireErr    error
}

func newMockEscalationRepository() *mockEscalationRepository {
	return &mockEscalationRepository{
		records: make(map[string]*secondary.EscalationRecord),
	}
}

func (m *mockEscalationRepository) Create(ctx context.Context, record *secondary.EscalationRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *mockEscalationRepository) GetByID(ctx context.Context, id, schoolID string) (*secondary.EscalationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[id]
	if !ok || record.SchoolID != schoolID {
		return nil, fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	copied := *record
	return &copied, nil
}

func (m *mockEscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*secondary.EscalationRecord
	for _, r := range m.records {
		if filters.SchoolID != "" && r.SchoolID != filters.SchoolID {
			continue
		}
		if filters.State != "" && r.State != filters.State {
			continue
		}
		if filters.OriginAgent != "" && r.OriginAgent != filters.OriginAgent {
			continue
		}
		if filters.SessionID != "" && r.SessionID != filters.SessionID {
			continue
		}
		copied := *r
		result = append(result, &copied)
	}
	return result, nil
}

func (m *mockEscalationRepository) UpdateState(ctx context.Context, id, fromState, toState string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	if record.State != fromState {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrStateChanged)
	}
	record.State = toState
	return nil
}

func (m *mockEscalationRepository) RecordDecision(ctx context.Context, id, fromState, decision, instruction string) error {
	m.recordDecisionCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.onRecordDecision != nil {
		m.onRecordDecision()
	}
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	if record.State != fromState {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrStateChanged)
	}
	record.State = decision
	record.AdminDecision = decision
	record.AdminInstruction = instruction
	return nil
}

func (m *mockEscalationRepository) MarkResolved(ctx context.Context, id, resolvedBy string) error {
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	if record.State != "APPROVED" && record.State != "DENIED" {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrStateChanged)
	}
	record.State = "RESOLVED"
	record.ResolvedBy = resolvedBy
	record.ResolvedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *mockEscalationRepository) MarkFailed(ctx context.Context, id string) error {
	record, ok := m.records[id]
	if !ok {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrRecordNotFound)
	}
	if record.State != "APPROVED" && record.State != "DENIED" {
		return fmt.Errorf("escalation %s: %w", id, secondary.ErrStateChanged)
	}
	record.State = "FAILED"
	return nil
}

func (m *mockEscalationRepository) ExpireOlderThan(ctx context.Context, schoolID string, cutoff time.Time) ([]string, error) {
	if m.expireErr != nil {
		return nil, m.expireErr
	}
	for _, id := range m.expireResult {
		if record, ok := m.records[id]; ok {
			record.State = "EXPIRED"
		}
	}
	return m.expireResult, nil
}

func (m *mockEscalationRepository) GetNextID(ctx context.Context) (string, error) {
	return fmt.Sprintf("ESC-%03d", len(m.records)+1), nil
}

// mockRoundRepository implements secondary.RoundRepository for testing. It
// mirrors the store behavior: terminal escalations reject writes and the
// escalation's round counter advances with each append.
type mockRoundRepository struct {
	rounds      map[string][]*secondary.RoundRecord
	escalations *mockEscalationRepository
	appendErr   error
	listErr     error
}

func newMockRoundRepository(escalations *mockEscalationRepository) *mockRoundRepository {
	return &mockRoundRepository{
		rounds:      make(map[string][]*secondary.RoundRecord),
		escalations: escalations,
	}
}

func (m *mockRoundRepository) Append(ctx context.Context, escalationID string, record *secondary.RoundRecord) (int, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	esc, ok := m.escalations.records[escalationID]
	if !ok {
		return 0, fmt.Errorf("escalation %s: %w", escalationID, secondary.ErrRecordNotFound)
	}
	if esc.State == "RESOLVED" || esc.State == "FAILED" || esc.State == "EXPIRED" {
		return 0, fmt.Errorf("escalation %s: %w", escalationID, secondary.ErrTerminalState)
	}
	number := esc.RoundNumber
	esc.RoundNumber++

	copied := *record
	copied.EscalationID = escalationID
	copied.RoundNumber = number
	m.rounds[escalationID] = append(m.rounds[escalationID], &copied)
	return number, nil
}

func (m *mockRoundRepository) ListByEscalation(ctx context.Context, escalationID string) ([]*secondary.RoundRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rounds[escalationID], nil
}

// mockFocusLockRepository implements secondary.FocusLockRepository for testing.
type mockFocusLockRepository struct {
	locks     map[string]*secondary.FocusLockRecord
	upsertErr error
	deleteErr error
}

func newMockFocusLockRepository() *mockFocusLockRepository {
	return &mockFocusLockRepository{locks: make(map[string]*secondary.FocusLockRecord)}
}

func (m *mockFocusLockRepository) Upsert(ctx context.Context, record *secondary.FocusLockRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	copied := *record
	m.locks[record.AuthorityIdentity] = &copied
	return nil
}

func (m *mockFocusLockRepository) Get(ctx context.Context, authorityIdentity string) (*secondary.FocusLockRecord, error) {
	lock, ok := m.locks[authorityIdentity]
	if !ok {
		return nil, fmt.Errorf("focus lock for %s: %w", authorityIdentity, secondary.ErrRecordNotFound)
	}
	copied := *lock
	return &copied, nil
}

func (m *mockFocusLockRepository) Delete(ctx context.Context, authorityIdentity string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.locks, authorityIdentity)
	return nil
}

func (m *mockFocusLockRepository) DeleteByEscalation(ctx context.Context, escalationID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for identity, lock := range m.locks {
		if lock.LockedEscalationID == escalationID {
			delete(m.locks, identity)
		}
	}
	return nil
}

// mockAuditEventRepository implements secondary.AuditEventRepository for testing.
type mockAuditEventRepository struct {
	events    []*secondary.AuditEventRecord
	appendErr error
	listErr   error
}

func newMockAuditEventRepository() *mockAuditEventRepository {
	return &mockAuditEventRepository{}
}

func (m *mockAuditEventRepository) Append(ctx context.Context, record *secondary.AuditEventRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	copied := *record
	m.events = append(m.events, &copied)
	return nil
}

func (m *mockAuditEventRepository) ListByEscalation(ctx context.Context, escalationID, schoolID string) ([]*secondary.AuditEventRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*secondary.AuditEventRecord
	for _, e := range m.events {
		if e.EscalationID == escalationID && e.SchoolID == schoolID {
			result = append(result, e)
		}
	}
	return result, nil
}

// eventTypes returns the recorded event types for an escalation, in order.
func (m *mockAuditEventRepository) eventTypes(escalationID string) []string {
	var types []string
	for _, e := range m.events {
		if e.EscalationID == escalationID {
			types = append(types, e.EventType)
		}
	}
	return types
}

// pushCall captures one SendPush invocation.
type pushCall struct {
	SchoolID string
	Target   string
	Text     string
}

// mockPushSender implements secondary.PushSender for testing.
type mockPushSender struct {
	sent    []pushCall
	sendErr error
}

func (m *mockPushSender) SendPush(ctx context.Context, schoolID, target, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, pushCall{SchoolID: schoolID, Target: target, Text: text})
	return nil
}

// mockHistorySink implements secondary.HistorySink for testing.
type mockHistorySink struct {
	records   []secondary.HistoryRecord
	recordErr error
}

func (m *mockHistorySink) RecordMessage(ctx context.Context, record secondary.HistoryRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, record)
	return nil
}

// mockOriginAgent implements secondary.OriginAgent for testing.
type mockOriginAgent struct {
	reply     *secondary.AgentReply
	handleErr error
	received  []secondary.AgentMessage
}

func (m *mockOriginAgent) Handle(ctx context.Context, msg secondary.AgentMessage) (*secondary.AgentReply, error) {
	m.received = append(m.received, msg)
	if m.handleErr != nil {
		return nil, m.handleErr
	}
	return m.reply, nil
}

// mockAgentRegistry implements secondary.AgentRegistry for testing.
type mockAgentRegistry struct {
	handlers map[string]secondary.OriginAgent
}

func (m *mockAgentRegistry) Resolve(agentTag string) secondary.OriginAgent {
	return m.handlers[agentTag]
}

// ============================================================================
// Fixtures
// ============================================================================

// testMocks bundles the collaborator mocks behind one fixture.
type testMocks struct {
	escalations *mockEscalationRepository
	rounds      *mockRoundRepository
	locks       *mockFocusLockRepository
	auditEvents *mockAuditEventRepository
	push        *mockPushSender
	history     *mockHistorySink
	agent       *mockOriginAgent
	registry    *mockAgentRegistry
}

func newTestMocks() *testMocks {
	escalations := newMockEscalationRepository()
	agentMock := &mockOriginAgent{reply: &secondary.AgentReply{ReplyText: "Here is what was decided."}}
	return &testMocks{
		escalations: escalations,
		rounds:      newMockRoundRepository(escalations),
		locks:       newMockFocusLockRepository(),
		auditEvents: newMockAuditEventRepository(),
		push:        &mockPushSender{},
		history:     &mockHistorySink{},
		agent:       agentMock,
		registry: &mockAgentRegistry{handlers: map[string]secondary.OriginAgent{
			"PA": agentMock,
			"TA": agentMock,
			"GA": agentMock,
		}},
	}
}

func (m *testMocks) escalationService() *EscalationServiceImpl {
	return NewEscalationService(m.escalations, m.rounds, m.locks, m.push, m.auditService(), zerolog.Nop())
}

func (m *testMocks) focusService() *FocusServiceImpl {
	return NewFocusService(m.locks, m.escalations, zerolog.Nop())
}

func (m *testMocks) resumptionService() *ResumptionServiceImpl {
	return NewResumptionService(m.escalations, m.rounds, m.locks, m.registry, m.push, m.history, m.auditService(), zerolog.Nop())
}

func (m *testMocks) auditService() *AuditServiceImpl {
	return NewAuditService(m.auditEvents, zerolog.Nop())
}

// seedEscalation inserts an escalation record directly into the mock store.
func (m *testMocks) seedEscalation(id, state string) *secondary.EscalationRecord {
	record := &secondary.EscalationRecord{
		ID:          id,
		SchoolID:    "school-1",
		OriginAgent: "PA",
		Priority:    "normal",
		FromPhone:   "+15550001111",
		State:       state,
		RoundNumber: 1,
		Reason:      "Parent asked for a fee waiver",
	}
	m.escalations.records[id] = record
	return record
}
