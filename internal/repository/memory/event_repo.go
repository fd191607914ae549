// Package memory implements the event and user stores in process memory. Each document is
// copied on the way in and out, so callers observe the same isolation as a remote store.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"pickupsports/internal/domain"
)

type eventRepository struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	now    func() time.Time
}

// NewEventRepository returns an empty in-memory EventRepository.
func NewEventRepository() domain.EventRepository {
	return &eventRepository{
		events: make(map[string]*domain.Event),
		now:    time.Now,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := r.events[e.ID]; ok {
		return domain.ErrConflict
	}
	e.Version = 1
	e.PlayerCount = len(e.Roster)
	r.events[e.ID] = e.Clone()
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.Clone(), nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]*domain.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, e.Clone())
	}
	slices.SortFunc(events, func(a, b *domain.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events, nil
}

func (r *eventRepository) UpdateRoster(ctx context.Context, id string, expectedVersion int64, roster []string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Version != expectedVersion {
		return nil, domain.ErrConcurrency
	}
	e.SetRoster(slices.Clone(roster))
	e.Version++
	e.UpdatedAt = r.now()
	return e.Clone(), nil
}

func (r *eventRepository) DeleteIfVersion(ctx context.Context, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.Version != expectedVersion {
		return domain.ErrConcurrency
	}
	delete(r.events, id)
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}
