package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

// FocusServiceImpl implements the FocusService interface: a per-authority
// single-flight lock deciding which escalation the authority's next
// free-text reply resolves. Policy is last-notified wins.
type FocusServiceImpl struct {
	focusRepo      secondary.FocusLockRepository
	escalationRepo secondary.EscalationRepository
	log            zerolog.Logger
}

// NewFocusService creates a new FocusService with injected dependencies.
func NewFocusService(
	focusRepo secondary.FocusLockRepository,
	escalationRepo secondary.EscalationRepository,
	log zerolog.Logger,
) *FocusServiceImpl {
	return &FocusServiceImpl{
		focusRepo:      focusRepo,
		escalationRepo: escalationRepo,
		log:            log,
	}
}

// Lock points the authority's focus at an escalation, overwriting any
// existing lock.
func (s *FocusServiceImpl) Lock(ctx context.Context, authorityIdentity, escalationID, schoolID string) error {
	if authorityIdentity == "" || escalationID == "" || schoolID == "" {
		return fmt.Errorf("authority, escalation and school are required: %w", primary.ErrValidation)
	}

	return s.focusRepo.Upsert(ctx, &secondary.FocusLockRecord{
		AuthorityIdentity:  authorityIdentity,
		LockedEscalationID: escalationID,
		SchoolID:           schoolID,
	})
}

// Resolve returns the escalation the authority's next reply refers to, or
// "" if none. A lock pointing at an escalation already driven to a terminal
// state through another channel is stale: it is cleared, not reused.
func (s *FocusServiceImpl) Resolve(ctx context.Context, authorityIdentity string) (string, error) {
	lock, err := s.focusRepo.Get(ctx, authorityIdentity)
	if err != nil {
		if errors.Is(err, secondary.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read focus lock: %w", err)
	}

	esc, err := s.escalationRepo.GetByID(ctx, lock.LockedEscalationID, lock.SchoolID)
	if err != nil {
		if errors.Is(err, secondary.ErrRecordNotFound) {
			// Lock points at nothing we can see; clear it.
			_ = s.focusRepo.Delete(ctx, authorityIdentity)
			return "", nil
		}
		return "", fmt.Errorf("failed to check locked escalation: %w", err)
	}

	if primary.IsTerminal(esc.State) {
		s.log.Debug().
			Str("authority", authorityIdentity).
			Str("escalation_id", esc.ID).
			Str("state", esc.State).
			Msg("clearing stale focus lock")
		if err := s.focusRepo.Delete(ctx, authorityIdentity); err != nil {
			return "", fmt.Errorf("failed to clear stale focus lock: %w", err)
		}
		return "", nil
	}

	return lock.LockedEscalationID, nil
}

// Release clears the authority's focus lock.
func (s *FocusServiceImpl) Release(ctx context.Context, authorityIdentity string) error {
	return s.focusRepo.Delete(ctx, authorityIdentity)
}

// Ensure FocusServiceImpl implements the interface
var _ primary.FocusService = (*FocusServiceImpl)(nil)
