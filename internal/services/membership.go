package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pickupsports/internal/domain"
)

// MembershipConfig tunes the membership coordinator.
type MembershipConfig struct {
	// Timeout bounds each whole operation, including retries.
	Timeout time.Duration
	Retry   RetryPolicy
	// ReconcileGrace skips documents written more recently than this during a reconcile
	// pass, so calls still in flight are not mistaken for broken links.
	ReconcileGrace time.Duration
}

type membershipService struct {
	eventRepo domain.EventRepository
	userRepo  domain.UserRepository
	logger    *slog.Logger
	cfg       MembershipConfig
	now       func() time.Time
}

// NewMembershipService creates the coordinator over the given event and user stores.
func NewMembershipService(eventRepo domain.EventRepository, userRepo domain.UserRepository, logger *slog.Logger, cfg MembershipConfig) domain.MembershipService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.Retry = cfg.Retry.normalized()
	return &membershipService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// rosterChange is the outcome of a conditional roster write.
type rosterChange struct {
	event   *domain.Event
	changed bool
	deleted bool
}

func (s *membershipService) CreateEvent(ctx context.Context, creatorID string, fields domain.EventFields) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if errs := fields.Validate(); len(errs) > 0 {
		return nil, domain.ValidationError(errs)
	}
	if _, err := s.getUser(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("get creator: %w", err)
	}

	event := domain.NewEvent(fields, creatorID, s.now())
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", classify(err))
	}

	if _, err := s.syncLink(ctx, creatorID, event.ID); err != nil {
		s.logger.WarnContext(ctx, "linking new event to creator failed, compensating",
			"event_id", event.ID, "user_id", creatorID, "err", err)
		if err := s.undoCreate(ctx, event.ID, creatorID, err); err != nil {
			return nil, err
		}
	}
	return event, nil
}

// undoCreate takes the creator back off the roster of an event whose back-link could not be
// confirmed. The event is deleted only if nobody else joined in the meantime. A nil return means
// the link was written after all and the event stands.
func (s *membershipService) undoCreate(ctx context.Context, eventID, creatorID string, cause error) error {
	cctx, cancel := s.compensationContext(ctx)
	defer cancel()
	if u, err := s.getUser(cctx, creatorID); err == nil && u.HasEvent(eventID) {
		return nil
	}
	if _, err := s.changeRoster(cctx, eventID, removeID(creatorID)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "compensating event removal failed",
			"event_id", eventID, "user_id", creatorID, "err", err)
		return fmt.Errorf("link event to creator: %w", errors.Join(cause, domain.ErrRepairNeeded, err))
	}
	// A link write that reported failure may still land; settle it against the new roster.
	if _, err := s.syncLink(cctx, creatorID, eventID); err != nil {
		s.logger.ErrorContext(ctx, "settling creator link failed",
			"event_id", eventID, "user_id", creatorID, "err", err)
		return fmt.Errorf("link event to creator: %w", errors.Join(cause, domain.ErrRepairNeeded, err))
	}
	return fmt.Errorf("link event to creator: %w", cause)
}

func (s *membershipService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	events, err := retry(ctx, s.cfg.Retry, func() ([]*domain.Event, error) {
		return s.eventRepo.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *membershipService) CheckIn(ctx context.Context, userID, eventID string) (*domain.Event, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("get event: %w", err)
	}
	if user.HasEvent(eventID) && event.HasPlayer(userID) {
		return event, false, nil
	}

	if _, err := s.changeEvents(ctx, userID, appendID(eventID)); err != nil {
		return nil, false, fmt.Errorf("add event to user: %w", err)
	}
	change, err := s.changeRoster(ctx, eventID, appendID(userID))
	if err != nil {
		s.logger.WarnContext(ctx, "adding user to roster failed, rolling back user link",
			"event_id", eventID, "user_id", userID, "err", err)
		landed, err := s.undoCheckIn(ctx, userID, eventID, err)
		if err != nil {
			return nil, false, err
		}
		return landed, true, nil
	}
	// A concurrent check-out may have dropped the link between the two writes.
	if _, err := s.syncLink(ctx, userID, eventID); err != nil {
		s.logger.ErrorContext(ctx, "settling user link failed",
			"event_id", eventID, "user_id", userID, "err", err)
		return nil, false, fmt.Errorf("link user to event: %w", errors.Join(err, domain.ErrRepairNeeded))
	}
	return change.event, change.changed, nil
}

// undoCheckIn settles the user link against the roster after a failed roster write. If the
// write landed anyway the check-in stands and the event is returned with a nil error.
func (s *membershipService) undoCheckIn(ctx context.Context, userID, eventID string, cause error) (*domain.Event, error) {
	cctx, cancel := s.compensationContext(ctx)
	defer cancel()
	res, err := s.syncLink(cctx, userID, eventID)
	if err != nil {
		s.logger.ErrorContext(ctx, "rolling back user link failed",
			"event_id", eventID, "user_id", userID, "err", err)
		return nil, fmt.Errorf("add user to event: %w", errors.Join(cause, domain.ErrRepairNeeded, err))
	}
	if res.member {
		return res.event, nil
	}
	return nil, fmt.Errorf("add user to event: %w", cause)
}

func (s *membershipService) CheckOut(ctx context.Context, userID, eventID string) (*domain.CheckOutResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	event, err := s.getEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) && user.HasEvent(eventID) {
		// Stale reference to an event that was already deleted.
		return s.settleNonMember(ctx, userID, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.HasPlayer(userID) {
		if user.HasEvent(eventID) {
			return s.settleNonMember(ctx, userID, eventID)
		}
		return &domain.CheckOutResult{Event: event}, nil
	}

	change, err := s.changeRoster(ctx, eventID, removeID(userID))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Only an emptied roster deletes an event, so it went away with this user's removal.
		final := event.Clone()
		final.SetRoster([]string{})
		change = rosterChange{event: final, changed: true, deleted: true}
	case err != nil:
		return nil, fmt.Errorf("remove user from event: %w", err)
	}

	if _, err := s.unlinkUser(ctx, userID, eventID); err != nil {
		return nil, err
	}
	if change.deleted {
		s.logger.InfoContext(ctx, "event deleted after last check-out", "event_id", eventID, "user_id", userID)
	}
	return &domain.CheckOutResult{Event: change.event, Deleted: change.deleted}, nil
}

// settleNonMember handles a check-out by a user who is linked to the event but not on its
// roster. The link is dropped unless a concurrent check-in finishes first.
func (s *membershipService) settleNonMember(ctx context.Context, userID, eventID string) (*domain.CheckOutResult, error) {
	res, err := s.unlinkUser(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	return &domain.CheckOutResult{Event: res.event, Deleted: res.event == nil}, nil
}

// unlinkUser settles the user's link after the roster side has been written. A failure here
// leaves a one-sided link that a retry of the same call repairs.
func (s *membershipService) unlinkUser(ctx context.Context, userID, eventID string) (linkResult, error) {
	res, err := s.syncLink(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return linkResult{}, fmt.Errorf("remove event from user: %w", err)
		}
		s.logger.ErrorContext(ctx, "removing event from user failed",
			"event_id", eventID, "user_id", userID, "err", err)
		return linkResult{}, fmt.Errorf("remove event from user: %w", errors.Join(err, domain.ErrRepairNeeded))
	}
	return res, nil
}

func (s *membershipService) getUser(ctx context.Context, id string) (*domain.User, error) {
	return retry(ctx, s.cfg.Retry, func() (*domain.User, error) {
		return s.userRepo.GetByID(ctx, id)
	})
}

func (s *membershipService) getEvent(ctx context.Context, id string) (*domain.Event, error) {
	return retry(ctx, s.cfg.Retry, func() (*domain.Event, error) {
		return s.eventRepo.GetByID(ctx, id)
	})
}

// changeRoster reads the event, applies edit to a copy of its roster and writes the result
// conditioned on the version it read, repeating on a lost race. An edit that empties the roster
// deletes the event under the same version condition, so exactly one caller performs the delete.
func (s *membershipService) changeRoster(ctx context.Context, eventID string, edit func([]string) []string) (rosterChange, error) {
	return retry(ctx, s.cfg.Retry, func() (rosterChange, error) {
		e, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return rosterChange{}, err
		}
		next := edit(slices.Clone(e.Roster))
		if slices.Equal(next, e.Roster) {
			return rosterChange{event: e}, nil
		}
		if len(next) == 0 {
			if err := s.eventRepo.DeleteIfVersion(ctx, e.ID, e.Version); err != nil {
				return rosterChange{}, err
			}
			e.SetRoster([]string{})
			return rosterChange{event: e, changed: true, deleted: true}, nil
		}
		updated, err := s.eventRepo.UpdateRoster(ctx, e.ID, e.Version, next)
		if err != nil {
			return rosterChange{}, err
		}
		return rosterChange{event: updated, changed: true}, nil
	})
}

// changeEvents is the user-side counterpart of changeRoster.
func (s *membershipService) changeEvents(ctx context.Context, userID string, edit func([]string) []string) (*domain.User, error) {
	return retry(ctx, s.cfg.Retry, func() (*domain.User, error) {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		next := edit(slices.Clone(u.Events))
		if slices.Equal(next, u.Events) {
			return u, nil
		}
		return s.userRepo.UpdateEvents(ctx, u.ID, u.Version, next)
	})
}

// linkResult is the outcome of settling one user link against an event roster.
type linkResult struct {
	// event is the roster as last read, nil once the event is gone.
	event  *domain.Event
	user   *domain.User
	member bool
}

// syncLink makes the user's link to eventID agree with the event roster. The roster is read
// again after the user write and the attempt repeats if membership moved in between, so the
// last call to settle a pair leaves both sides agreeing.
func (s *membershipService) syncLink(ctx context.Context, userID, eventID string) (linkResult, error) {
	return retry(ctx, s.cfg.Retry, func() (linkResult, error) {
		member, _, err := s.rosterHas(ctx, eventID, userID)
		if err != nil {
			return linkResult{}, err
		}
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return linkResult{}, err
		}
		edit := removeID(eventID)
		if member {
			edit = appendID(eventID)
		}
		if next := edit(slices.Clone(u.Events)); !slices.Equal(next, u.Events) {
			if u, err = s.userRepo.UpdateEvents(ctx, u.ID, u.Version, next); err != nil {
				return linkResult{}, err
			}
		}
		still, event, err := s.rosterHas(ctx, eventID, userID)
		if err != nil {
			return linkResult{}, err
		}
		if still != member {
			return linkResult{}, domain.ErrConcurrency
		}
		return linkResult{event: event, user: u, member: member}, nil
	})
}

// rosterHas reports whether userID is on the event roster. A missing event has no members.
func (s *membershipService) rosterHas(ctx context.Context, eventID, userID string) (bool, *domain.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return e.HasPlayer(userID), e, nil
}

// compensationContext detaches from the caller's deadline so a rollback still runs after the
// forward path timed out, bounded by its own timeout.
func (s *membershipService) compensationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
}

// appendID adds id once, keeping its first position and dropping any repeats.
func appendID(id string) func([]string) []string {
	return func(ids []string) []string {
		i := slices.Index(ids, id)
		if i < 0 {
			return append(ids, id)
		}
		return append(ids[:i+1], removeID(id)(ids[i+1:])...)
	}
}

func removeID(id string) func([]string) []string {
	return func(ids []string) []string {
		return slices.DeleteFunc(ids, func(x string) bool { return x == id })
	}
}
