package session

import "errors"

var (
	// ErrRedisUnavailable wraps every Redis transport failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrSlotNotFound is returned by Replace when the user row does not exist.
	ErrSlotNotFound = errors.New("session slot not found")
	// ErrEmptyToken rejects writing an empty token; use Clear instead.
	ErrEmptyToken = errors.New("empty refresh token")
)
