package services

import (
	"context"
	"errors"
	"fmt"

	"pickupsports/internal/domain"
)

type userService struct {
	userRepo  domain.UserRepository
	eventRepo domain.EventRepository
}

// NewUserService creates a UserService over the user and event stores.
func NewUserService(userRepo domain.UserRepository, eventRepo domain.EventRepository) domain.UserService {
	return &userService{userRepo: userRepo, eventRepo: eventRepo}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) ListMyEvents(ctx context.Context, userID string) ([]*domain.Event, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Events come back in join order; links to deleted events are skipped.
	events := make([]*domain.Event, 0, len(user.Events))
	for _, id := range user.Events {
		ev, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Removed on the user's next check-out or by reconcile.
				continue
			}
			return nil, fmt.Errorf("get event %s: %w", id, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
