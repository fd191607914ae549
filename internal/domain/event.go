package domain

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Event represents an ad-hoc sporting event that users check into.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	SkillLevel  string    `json:"skillLevel"`
	PlayerCount int       `json:"playerCount"`
	Roster      []string  `json:"-"`
	Version     int64     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventFields is the closed set of caller-supplied fields accepted when creating an event.
type EventFields struct {
	Type       string
	Location   string
	Latitude   float64
	Longitude  float64
	StartTime  time.Time
	EndTime    time.Time
	SkillLevel string
}

// Validate trims text fields in place and returns the failed rules; nil means valid.
func (f *EventFields) Validate() []string {
	f.Type = strings.TrimSpace(f.Type)
	f.Location = strings.TrimSpace(f.Location)
	f.SkillLevel = strings.TrimSpace(f.SkillLevel)

	var errs []string
	if f.Type == "" {
		errs = append(errs, "type is required")
	}
	if f.Location == "" {
		errs = append(errs, "location is required")
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		errs = append(errs, "latitude must be between -90 and 90")
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		errs = append(errs, "longitude must be between -180 and 180")
	}
	if f.StartTime.IsZero() {
		errs = append(errs, "startTime is required")
	}
	if f.EndTime.IsZero() {
		errs = append(errs, "endTime is required")
	}
	if f.SkillLevel == "" {
		errs = append(errs, "skillLevel is required")
	}
	return errs
}

// NewEvent returns an Event whose roster holds only the creator. ID and Version are set by the repository.
func NewEvent(fields EventFields, creatorID string, createdAt time.Time) *Event {
	e := &Event{
		Type:       fields.Type,
		Location:   fields.Location,
		Latitude:   fields.Latitude,
		Longitude:  fields.Longitude,
		StartTime:  fields.StartTime,
		EndTime:    fields.EndTime,
		SkillLevel: fields.SkillLevel,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	e.SetRoster([]string{creatorID})
	return e
}

// SetRoster replaces the roster and keeps PlayerCount in step with it.
func (e *Event) SetRoster(roster []string) {
	e.Roster = roster
	e.PlayerCount = len(roster)
}

// HasPlayer reports whether userID is on the roster.
func (e *Event) HasPlayer(userID string) bool {
	return slices.Contains(e.Roster, userID)
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	c.Roster = slices.Clone(e.Roster)
	return &c
}

// EventRepository is the EventStore contract. Every write is atomic on a single document.
type EventRepository interface {
	// Create assigns an ID, sets Version to 1 and persists the event.
	Create(ctx context.Context, event *Event) error
	// GetByID returns the event or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Event, error)
	// List returns every persisted event ordered by start time.
	List(ctx context.Context) ([]*Event, error)
	// UpdateRoster writes roster and its count if the stored version equals expectedVersion,
	// returning the new document. Otherwise it returns ErrConcurrency.
	UpdateRoster(ctx context.Context, id string, expectedVersion int64, roster []string) (*Event, error)
	// DeleteIfVersion deletes the event if the stored version equals expectedVersion,
	// otherwise it returns ErrConcurrency.
	DeleteIfVersion(ctx context.Context, id string, expectedVersion int64) error
	// Delete removes the event. Deleting a missing id succeeds.
	Delete(ctx context.Context, id string) error
}
