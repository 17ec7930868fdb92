package store

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already taken.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrMissingPasswordHash guards against persisting a user without a digest.
	ErrMissingPasswordHash = errors.New("password hash required")
)
