package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pickupsports/internal/domain"
)

type userRepository struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewUserRepository returns an empty in-memory UserRepository.
func NewUserRepository() domain.UserRepository {
	return &userRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := r.users[u.ID]; ok {
		return domain.ErrConflict
	}
	if u.Events == nil {
		u.Events = []string{}
	}
	u.Version = 1
	r.users[u.ID] = u.Clone()
	r.byEmail[email] = u.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.Clone())
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (r *userRepository) UpdateEvents(ctx context.Context, id string, expectedVersion int64, events []string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Version != expectedVersion {
		return nil, domain.ErrConcurrency
	}
	u.Events = slices.Clone(events)
	if u.Events == nil {
		u.Events = []string{}
	}
	u.Version++
	u.UpdatedAt = r.now()
	return u.Clone(), nil
}
