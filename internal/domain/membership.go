package domain

import "context"

// CheckOutResult is the outcome of a check-out. When Deleted is true the departing user was
// the last participant and the event no longer exists; Event then holds its final state.
// swagger:model CheckOutResult
type CheckOutResult struct {
	Event   *Event `json:"event"`
	Deleted bool   `json:"deleted"`
}

// ReconcileReport summarises the repairs made by a reconcile pass.
type ReconcileReport struct {
	EventsScanned  int `json:"eventsScanned"`
	UsersScanned   int `json:"usersScanned"`
	LinksAdded     int `json:"linksAdded"`
	LinksRemoved   int `json:"linksRemoved"`
	EmptiesDeleted int `json:"emptiesDeleted"`
}

// Repaired reports whether the pass changed anything.
func (r *ReconcileReport) Repaired() bool {
	return r.LinksAdded+r.LinksRemoved+r.EmptiesDeleted > 0
}

// MembershipService keeps Event.Roster and User.Events consistent.
// For every user U and event E, E.ID is in U.Events iff U.ID is in E.Roster once a call returns.
type MembershipService interface {
	CreateEvent(ctx context.Context, creatorID string, fields EventFields) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	// CheckIn adds the user to the event. Returns (event, joined, err): joined is false if the
	// user was already a member, in which case nothing is written.
	CheckIn(ctx context.Context, userID, eventID string) (*Event, bool, error)
	// CheckOut removes the user from the event, deleting the event when its roster empties.
	// Checking out a non-member is a no-op.
	CheckOut(ctx context.Context, userID, eventID string) (*CheckOutResult, error)
	// Reconcile repairs links broken by interrupted calls, treating event rosters as authoritative.
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}
