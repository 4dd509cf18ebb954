package store

import "errors"

var (
	// ErrNotFound is returned when no document exists for the domain.
	ErrNotFound = errors.New("no stored configuration")

	// ErrBadName is returned for domain names the layout cannot hold.
	ErrBadName = errors.New("invalid domain name")
)
