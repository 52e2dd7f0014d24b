package primary

import (
	"context"
	"fmt"
)

// ResumptionService defines the primary port for the resumption control path:
// an authority's decision is recorded, the origin agent is re-invoked with a
// synthetic resume message, the agent's reply is delivered to the original
// requester, and the escalation is finalized.
type ResumptionService interface {
	// Resume runs the decision-to-delivery control path for one escalation.
	// Invoking it again for an already-terminal escalation is a logged no-op.
	Resume(ctx context.Context, req ResumeRequest) (*ResumeResult, error)
}

// Decision values an authority may issue.
const (
	DecisionApproved = StateApproved
	DecisionDenied   = StateDenied
)

// ResumeRequest carries an authority's decision for one escalation.
type ResumeRequest struct {
	EscalationID      string
	SchoolID          string
	AuthorityIdentity string
	Decision          string // APPROVED or DENIED
	Instruction       string
}

// ResumeResult reports what the resumption actually did.
type ResumeResult struct {
	EscalationID    string
	State           string
	AlreadyTerminal bool
	ReplyText       string
	ReplyDelivered  bool
}

// SyntheticResumeMessage is the first-class "ghost message" used to wake an
// origin agent with the authority's decision. It is addressed as if sent by
// the original requester but carries a system-authored body and is flagged
// SystemInjection so agents can tell it apart from real user input.
type SyntheticResumeMessage struct {
	From               string
	Body               string
	AgentTag           string
	SystemInjection    bool
	EscalationResumeID string
}

// NewSyntheticResumeMessage builds the resume message for an escalation and
// a recorded decision. The origin agent, not the orchestrator, is responsible
// for crafting the user-facing continuation from this.
func NewSyntheticResumeMessage(esc *Escalation, decision, instruction string) SyntheticResumeMessage {
	body := fmt.Sprintf(
		"An administrator has reviewed the escalated request (%s). Decision: %s.",
		esc.Reason, decision,
	)
	if instruction != "" {
		body += fmt.Sprintf(" Instruction: %s.", instruction)
	}
	body += " Continue the conversation with the original requester, incorporating this decision."

	return SyntheticResumeMessage{
		From:               esc.FromPhone,
		Body:               body,
		AgentTag:           esc.OriginAgent,
		SystemInjection:    true,
		EscalationResumeID: esc.ID,
	}
}
