package domain

import "errors"

var (
	// ErrNoSession indicates an operation that requires an authenticated
	// session was invoked without one.
	ErrNoSession = errors.New("no active session")

	// ErrNotMember is returned when a tenant switch targets a business
	// outside the current membership set.
	ErrNotMember = errors.New("business not in membership set")

	// ErrProfileUnresolved marks a session whose profile row is missing
	// or not yet loaded. Callers must not substitute a default role.
	ErrProfileUnresolved = errors.New("profile not resolved")

	// ErrSelectionNotFound is returned by selection stores when no tenant
	// selection is persisted for the user.
	ErrSelectionNotFound = errors.New("tenant selection not found")
)
