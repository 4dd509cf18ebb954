package registry

import "errors"

var (
	// ErrNotFound is returned when no domain matches the lookup key.
	ErrNotFound = errors.New("domain not found")

	// ErrAlreadyExists is returned when a define collides with a different
	// domain's identity.
	ErrAlreadyExists = errors.New("domain already exists")

	// ErrInvalidState is returned for lifecycle states outside the known set.
	ErrInvalidState = errors.New("invalid domain state")
)
