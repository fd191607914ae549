package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"pickupsports/internal/domain"
)

func (s *membershipService) Reconcile(ctx context.Context) (*domain.ReconcileReport, error) {
	events, err := retry(ctx, s.cfg.Retry, func() ([]*domain.Event, error) {
		return s.eventRepo.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	users, err := retry(ctx, s.cfg.Retry, func() ([]*domain.User, error) {
		return s.userRepo.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	report := &domain.ReconcileReport{EventsScanned: len(events), UsersScanned: len(users)}
	cutoff := s.now().Add(-s.cfg.ReconcileGrace)

	live := make([]*domain.Event, 0, len(events))
	recent := make(map[string]bool)
	for _, e := range events {
		if e.UpdatedAt.After(cutoff) {
			recent[e.ID] = true
			live = append(live, e)
			continue
		}
		if len(e.Roster) == 0 {
			if err := s.eventRepo.DeleteIfVersion(ctx, e.ID, e.Version); err != nil {
				s.logger.WarnContext(ctx, "reconcile: deleting empty event failed", "event_id", e.ID, "err", err)
				continue
			}
			report.EmptiesDeleted++
			continue
		}
		live = append(live, e)
	}

	// The snapshot only picks the pairs to look at. Each pair is settled against a fresh read
	// of its roster, so a call that commits after the List is not undone.
	for _, u := range users {
		if u.UpdatedAt.After(cutoff) {
			continue
		}
		want := reconciledLinks(u.ID, u.Events, live, recent)
		if slices.Equal(want, u.Events) {
			continue
		}
		final := u.Events
		for _, eventID := range unsettled(u.Events, want) {
			res, err := s.syncLink(ctx, u.ID, eventID)
			if err != nil {
				s.logger.WarnContext(ctx, "reconcile: repairing user link failed",
					"user_id", u.ID, "event_id", eventID, "err", err)
				continue
			}
			final = res.user.Events
		}
		added, removed := diffIDs(u.Events, final)
		report.LinksAdded += added
		report.LinksRemoved += removed
	}

	if report.Repaired() {
		s.logger.InfoContext(ctx, "reconcile repaired membership links",
			"links_added", report.LinksAdded,
			"links_removed", report.LinksRemoved,
			"empties_deleted", report.EmptiesDeleted,
		)
	}
	return report, nil
}

// reconciledLinks returns the user's events with rosters treated as the source of truth.
// Links to events in recent are kept as they are, since a call may still be working on them.
func reconciledLinks(userID string, current []string, events []*domain.Event, recent map[string]bool) []string {
	byID := make(map[string]*domain.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	out := make([]string, 0, len(current))
	for _, id := range current {
		if slices.Contains(out, id) {
			continue
		}
		if e, ok := byID[id]; recent[id] || (ok && e.HasPlayer(userID)) {
			out = append(out, id)
		}
	}
	for _, e := range events {
		if !recent[e.ID] && e.HasPlayer(userID) && !slices.Contains(out, e.ID) {
			out = append(out, e.ID)
		}
	}
	return out
}

// unsettled returns the ids whose link count differs between current and want, in first-seen order.
func unsettled(current, want []string) []string {
	var out []string
	for _, id := range slices.Concat(current, want) {
		if slices.Contains(out, id) {
			continue
		}
		if occurrences(current, id) != occurrences(want, id) {
			out = append(out, id)
		}
	}
	return out
}

func occurrences(ids []string, id string) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}

func diffIDs(before, after []string) (added, removed int) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			added++
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			removed++
		}
	}
	return added, removed
}

// RunReconciler calls Reconcile every interval until ctx is done.
func RunReconciler(ctx context.Context, svc domain.MembershipService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Reconcile(ctx); err != nil {
				logger.ErrorContext(ctx, "reconcile failed", "err", err)
			}
		}
	}
}
