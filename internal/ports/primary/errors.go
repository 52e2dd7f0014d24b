package primary

import "errors"

// Protocol error taxonomy. Services wrap these with %w so callers can
// classify failures with errors.Is without parsing messages.
var (
	// ErrValidation indicates a malformed escalation-creation payload.
	// Rejected before any state is created.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the referenced escalation does not exist or
	// belongs to a different school. Never falls back to fabricated data.
	ErrNotFound = errors.New("escalation not found")

	// ErrInvalidState indicates a mutation was attempted on an escalation
	// whose current state forbids it (e.g. appending a round to a terminal
	// escalation). The record is left untouched.
	ErrInvalidState = errors.New("invalid escalation state")

	// ErrInvalidTransition indicates an attempted state change that is not
	// an edge of the escalation state graph. The record is left untouched.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownOriginAgent indicates the resume target agent tag is not in
	// the registry. Fatal to that resumption.
	ErrUnknownOriginAgent = errors.New("unknown origin agent")

	// ErrDelivery indicates an authority notification could not be pushed.
	// The focus lock is not taken for an unseen notification; reply-side
	// delivery failures are logged instead of wrapped with this.
	ErrDelivery = errors.New("push delivery failed")
)
