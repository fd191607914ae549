package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by stores and services. Callers classify with errors.Is.
var (
	// ErrValidation is returned for malformed or missing input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an id does not resolve. Never retried.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness or state precondition is violated.
	ErrConflict = errors.New("conflict")
	// ErrConcurrency is returned by a conditional write that lost an optimistic-concurrency race.
	ErrConcurrency = errors.New("concurrent modification")
	// ErrStore is returned for transient storage failures; callers may try again.
	ErrStore = errors.New("store unavailable")
	// ErrRepairNeeded accompanies ErrStore when a partial write could not be completed
	// or compensated. Retrying the same operation, or a reconcile pass, repairs it.
	ErrRepairNeeded = errors.New("membership repair needed")
	// ErrForbidden is returned when the caller may not act on the requested resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned when a credential cannot be resolved to a user.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError wraps ErrValidation with the list of failed rules.
func ValidationError(problems []string) error {
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}
