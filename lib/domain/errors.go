package domain

import "errors"

var (
	// ErrInvalidValue is returned when an attribute or element carries a
	// value outside its recognized set.
	ErrInvalidValue = errors.New("invalid value")

	// ErrMissingField is returned when a required attribute or element is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrConflict is returned for semantically inconsistent combinations
	// (boot policy mixing, mismatched UUIDs, rawio on a non-lun disk, ...).
	ErrConflict = errors.New("conflicting configuration")

	// ErrDuplicate is returned when a single-instance element appears twice.
	ErrDuplicate = errors.New("duplicate element")

	// ErrABIMismatch is returned by CheckABIStability; the wrapping message
	// names the exact field that differs.
	ErrABIMismatch = errors.New("configurations are not ABI compatible")
)
