package mongo

import (
	"time"

	"pickupsports/internal/domain"
)

const (
	eventsCollection = "events"
	usersCollection  = "users"
)

type eventDocument struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"type"`
	Location    string    `bson:"location"`
	Latitude    float64   `bson:"latitude"`
	Longitude   float64   `bson:"longitude"`
	StartTime   time.Time `bson:"startTime"`
	EndTime     time.Time `bson:"endTime"`
	SkillLevel  string    `bson:"skillLevel"`
	Roster      []string  `bson:"roster"`
	PlayerCount int       `bson:"playerCount"`
	Version     int64     `bson:"version"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func newEventDocument(e *domain.Event) eventDocument {
	return eventDocument{
		ID:          e.ID,
		Type:        e.Type,
		Location:    e.Location,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		SkillLevel:  e.SkillLevel,
		Roster:      e.Roster,
		PlayerCount: len(e.Roster),
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d eventDocument) toDomain() *domain.Event {
	e := &domain.Event{
		ID:         d.ID,
		Type:       d.Type,
		Location:   d.Location,
		Latitude:   d.Latitude,
		Longitude:  d.Longitude,
		StartTime:  d.StartTime,
		EndTime:    d.EndTime,
		SkillLevel: d.SkillLevel,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	e.SetRoster(nonNil(d.Roster))
	return e
}

type userDocument struct {
	ID           string    `bson:"_id"`
	FirstName    string    `bson:"firstName"`
	LastName     string    `bson:"lastName"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Salt         string    `bson:"salt"`
	Events       []string  `bson:"events"`
	Version      int64     `bson:"version"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		Events:       nonNil(u.Events),
		Version:      u.Version,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Salt:         d.Salt,
		Events:       nonNil(d.Events),
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
