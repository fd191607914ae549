package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"pickupsports/internal/domain"
	"pickupsports/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("connection reset")

// faults returns an error for a call, or nil to let it through. fail runs without the lock
// held, so it may call back into the same repository.
type faults struct {
	mu    sync.Mutex
	calls int
	fail  func(call int) error
}

func (f *faults) next() error {
	f.mu.Lock()
	f.calls++
	call, fail := f.calls, f.fail
	f.mu.Unlock()
	if fail == nil {
		return nil
	}
	return fail(call)
}

func (f *faults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faults) set(fail func(call int) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = 0
	f.fail = fail
}

func always(err error) func(int) error { return func(int) error { return err } }

func firstN(n int, err error) func(int) error {
	return func(call int) error {
		if call <= n {
			return err
		}
		return nil
	}
}

// onCall runs fn once, just before the n-th call goes through.
func onCall(n int, fn func()) func(int) error {
	return func(call int) error {
		if call == n {
			fn()
		}
		return nil
	}
}

// flakyEventRepo wraps an EventRepository and fails writes and lists on demand. lostReply
// fails an UpdateRoster after it has been applied.
type flakyEventRepo struct {
	domain.EventRepository
	get       faults
	list      faults
	update    faults
	lostReply faults
	delete    faults
}

func (r *flakyEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if err := r.get.next(); err != nil {
		return nil, err
	}
	return r.EventRepository.GetByID(ctx, id)
}

func (r *flakyEventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	if err := r.list.next(); err != nil {
		return nil, err
	}
	return r.EventRepository.List(ctx)
}

func (r *flakyEventRepo) UpdateRoster(ctx context.Context, id string, expectedVersion int64, roster []string) (*domain.Event, error) {
	if err := r.update.next(); err != nil {
		return nil, err
	}
	e, err := r.EventRepository.UpdateRoster(ctx, id, expectedVersion, roster)
	if err != nil {
		return nil, err
	}
	if err := r.lostReply.next(); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *flakyEventRepo) DeleteIfVersion(ctx context.Context, id string, expectedVersion int64) error {
	if err := r.delete.next(); err != nil {
		return err
	}
	return r.EventRepository.DeleteIfVersion(ctx, id, expectedVersion)
}

// flakyUserRepo wraps a UserRepository and fails UpdateEvents on demand.
type flakyUserRepo struct {
	domain.UserRepository
	get       faults
	update    faults
	lostReply faults
}

func (r *flakyUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.get.next(); err != nil {
		return nil, err
	}
	return r.UserRepository.GetByID(ctx, id)
}

func (r *flakyUserRepo) UpdateEvents(ctx context.Context, id string, expectedVersion int64, events []string) (*domain.User, error) {
	if err := r.update.next(); err != nil {
		return nil, err
	}
	u, err := r.UserRepository.UpdateEvents(ctx, id, expectedVersion, events)
	if err != nil {
		return nil, err
	}
	if err := r.lostReply.next(); err != nil {
		return nil, err
	}
	return u, nil
}

type harness struct {
	svc    *membershipService
	events *flakyEventRepo
	users  *flakyUserRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	events := &flakyEventRepo{EventRepository: memory.NewEventRepository()}
	users := &flakyUserRepo{UserRepository: memory.NewUserRepository()}
	svc := NewMembershipService(events, users, slog.New(slog.DiscardHandler), MembershipConfig{
		Timeout: 5 * time.Second,
		Retry:   RetryPolicy{MaxAttempts: 20, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	}).(*membershipService)
	return &harness{svc: svc, events: events, users: users}
}

func (h *harness) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	now := time.Now()
	u := domain.NewUser(email, "First", "Last", "hash", "salt", now, now)
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := h.users.UserRepository.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func tennis() domain.EventFields {
	start := time.Date(2026, 6, 1, 17, 0, 0, 0, time.UTC)
	return domain.EventFields{
		Type:       "tennis",
		Location:   "Riverside Courts",
		Latitude:   40.80,
		Longitude:  -73.97,
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
		SkillLevel: "intermediate",
	}
}

// requireConsistent checks that every roster entry has its back link and every back link
// points at an event that lists the user.
func (h *harness) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	events, err := h.events.EventRepository.List(ctx)
	require.NoError(t, err)
	users, err := h.users.List(ctx)
	require.NoError(t, err)

	byID := make(map[string]*domain.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
		require.NotEmpty(t, e.Roster, "event %s has an empty roster", e.ID)
		require.Equal(t, len(e.Roster), e.PlayerCount, "event %s", e.ID)
		require.Len(t, slices.Compact(slices.Sorted(slices.Values(e.Roster))), len(e.Roster), "event %s has duplicate players", e.ID)
	}
	for _, u := range users {
		require.Len(t, slices.Compact(slices.Sorted(slices.Values(u.Events))), len(u.Events), "user %s has duplicate events", u.ID)
		for _, id := range u.Events {
			e, ok := byID[id]
			require.True(t, ok, "user %s links missing event %s", u.ID, id)
			assert.True(t, e.HasPlayer(u.ID), "event %s does not list user %s", id, u.ID)
		}
	}
	for _, e := range events {
		for _, uid := range e.Roster {
			u := h.user(t, uid)
			assert.True(t, u.HasEvent(e.ID), "user %s does not link event %s", uid, e.ID)
		}
	}
}
