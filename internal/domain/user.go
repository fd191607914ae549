package domain

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrDuplicateEmail     = fmt.Errorf("email already in use: %w", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
)

// User represents a registered player
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Events       []string  `json:"events"`
	Version      int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser returns a new User with no joined events. ID is typically set by the repository on create.
func NewUser(email, firstName, lastName, passwordHash, salt string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Salt:         salt,
		Events:       []string{},
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// HasEvent reports whether eventID is in the user's joined events.
func (u *User) HasEvent(eventID string) bool {
	return slices.Contains(u.Events, eventID)
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Events = slices.Clone(u.Events)
	return &c
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository is the UserStore contract. Every write is atomic on a single document.
type UserRepository interface {
	// Create assigns an ID, sets Version to 1 and persists the user. A taken email returns ErrDuplicateEmail.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// UpdateEvents writes the joined-events sequence if the stored version equals
	// expectedVersion, returning the new document. Otherwise it returns ErrConcurrency.
	UpdateEvents(ctx context.Context, id string, expectedVersion int64, events []string) (*User, error)
}

// AuthService handles account creation and credential exchange.
type AuthService interface {
	SignUp(ctx context.Context, email, password, firstName, lastName string) (token string, user *User, err error)
	SignIn(ctx context.Context, email, password string) (token string, user *User, err error)
}

// UserService exposes read paths over a user's own profile.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ListMyEvents resolves the user's joined events in join order, skipping references to deleted events.
	ListMyEvents(ctx context.Context, userID string) ([]*Event, error)
}
