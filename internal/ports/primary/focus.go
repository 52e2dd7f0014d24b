package primary

import "context"

// FocusService defines the primary port for the per-authority focus lock.
//
// Policy: last-notified wins. An authority talks over a single free-text
// channel, so their next reply is attributed to the escalation they were
// most recently shown. Older locked escalations must be re-presented; the
// lock never queues. lastInteractionAt is persisted so a future policy can
// reason about recency.
type FocusService interface {
	// Lock points the authority's focus at an escalation, overwriting any
	// existing lock.
	Lock(ctx context.Context, authorityIdentity, escalationID, schoolID string) error

	// Resolve returns the escalation ID the authority's next reply refers
	// to, or "" if none. A lock pointing at an escalation that has reached
	// a terminal state through another channel is stale: Resolve clears it
	// and returns "".
	Resolve(ctx context.Context, authorityIdentity string) (string, error)

	// Release clears the authority's focus lock.
	Release(ctx context.Context, authorityIdentity string) error
}
