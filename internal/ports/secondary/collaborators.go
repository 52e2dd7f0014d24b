package secondary

import "context"

// AgentMessage is the message shape consumed by origin agents. Resume
// messages carry SystemInjection=true and the escalation ID; real inbound
// user messages carry neither.
type AgentMessage struct {
	From               string `json:"from"`
	Body               string `json:"body"`
	AgentTag           string `json:"context"`
	SystemInjection    bool   `json:"system_injection"`
	EscalationResumeID string `json:"escalation_resume_id,omitempty"`
}

// AgentReply is an origin agent's crafted response. A nil reply or empty
// ReplyText means the agent chose not to answer.
type AgentReply struct {
	ReplyText string `json:"reply_text"`
}

// OriginAgent is the conversational handler contract. The core knows nothing
// about agent internals; it only dispatches messages and reads replies.
type OriginAgent interface {
	Handle(ctx context.Context, msg AgentMessage) (*AgentReply, error)
}

// AgentRegistry maps an origin agent tag to its live handler. A closed
// enumeration held by the process, not open plugin discovery. Resolve
// returns nil for unknown tags.
type AgentRegistry interface {
	Resolve(agentTag string) OriginAgent
}

// PushSender is the notification transport contract: at-least-once push
// delivery, unordered across recipients. Failures are non-fatal to the
// protocol.
type PushSender interface {
	SendPush(ctx context.Context, schoolID, target, text string) error
}

// HistoryRecord is one conversational history entry handed to the sink.
type HistoryRecord struct {
	SchoolID  string
	UserID    string
	FromPhone string
	AgentTag  string
	Body      string
	Action    string
}

// HistorySink is the append-only conversational history collaborator.
// Write failures are non-fatal to the protocol.
type HistorySink interface {
	RecordMessage(ctx context.Context, record HistoryRecord) error
}
