package db

// SchemaSQL is the complete schema for fresh handover installs.
//
// This is the single source of truth for the database schema. All repository
// tests load it via GetSchemaSQL() so test schemas cannot drift from
// production: if repository code references a column that does not exist
// here, tests fail immediately with "no such column".
//
// When adding columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Escalations (one paused decision point per row)
CREATE TABLE IF NOT EXISTS escalations (
	id TEXT PRIMARY KEY,
	school_id TEXT NOT NULL,
	origin_agent TEXT NOT NULL CHECK(origin_agent IN ('PA', 'TA', 'GA')),
	escalation_type TEXT,
	priority TEXT NOT NULL DEFAULT 'normal',
	from_phone TEXT NOT NULL,
	from_identity TEXT,
	session_id TEXT,
	pause_message_id TEXT,
	state TEXT NOT NULL CHECK(state IN ('PAUSED', 'AWAITING_CLARIFICATION', 'APPROVED', 'DENIED', 'RESOLVED', 'FAILED', 'EXPIRED')) DEFAULT 'PAUSED',
	round_number INTEGER NOT NULL DEFAULT 1,
	reason TEXT NOT NULL,
	what_agent_needed TEXT,
	context TEXT,
	admin_decision TEXT,
	admin_instruction TEXT,
	resolved_by TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_escalations_school_state ON escalations(school_id, state);
CREATE INDEX IF NOT EXISTS idx_escalations_session ON escalations(session_id);

-- Round log (append-only, one row per authority/agent exchange)
CREATE TABLE IF NOT EXISTS escalation_rounds (
	escalation_id TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	authority_type TEXT NOT NULL CHECK(authority_type IN ('CLARIFICATION_REQUEST', 'NEEDS_DECISION', 'DECISION_MADE')),
	authority_request TEXT,
	authority_response TEXT,
	agent_response TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (escalation_id, round_number),
	FOREIGN KEY (escalation_id) REFERENCES escalations(id)
);

-- Focus locks (at most one per authority identity)
CREATE TABLE IF NOT EXISTS focus_locks (
	authority_identity TEXT PRIMARY KEY,
	locked_escalation_id TEXT NOT NULL,
	school_id TEXT NOT NULL,
	last_interaction_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (locked_escalation_id) REFERENCES escalations(id)
);

-- Audit events (append-only protocol trail)
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	escalation_id TEXT NOT NULL,
	school_id TEXT NOT NULL,
	event_type TEXT NOT NULL CHECK(event_type IN ('ESCALATION_CREATED', 'ADMIN_NOTIFIED', 'ADMIN_RESPONSE_RECORDED', 'DECISION_MADE', 'ORIGIN_AGENT_RESUMED', 'ESCALATION_RESOLVED')),
	detail TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_escalation ON audit_events(escalation_id);
CREATE INDEX IF NOT EXISTS idx_audit_school_type ON audit_events(school_id, event_type);

-- Conversation history (append-only sink for resume outcomes)
CREATE TABLE IF NOT EXISTS conversation_history (
	id TEXT PRIMARY KEY,
	school_id TEXT NOT NULL,
	user_id TEXT,
	from_phone TEXT NOT NULL,
	agent_tag TEXT NOT NULL,
	body TEXT NOT NULL,
	action TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_school_phone ON conversation_history(school_id, from_phone);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema.
func GetSchemaSQL() string {
	return SchemaSQL
}
