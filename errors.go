package goCred

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the parent of every rejected token or credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshInvalid is the single outcome of every failed refresh. It
	// matches ErrUnauthorized under errors.Is.
	ErrRefreshInvalid = fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	// ErrInvalidCredentials is returned by Authenticate when ValidateCredentials yields nil.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	// ErrTokenInvalid is returned by VerifyAccess.
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	// ErrConflict is the parent of uniqueness violations.
	ErrConflict = errors.New("conflict")
	// ErrAccountExists is returned by Register for an email that is already taken.
	ErrAccountExists = fmt.Errorf("%w: email already exists", ErrConflict)
	// ErrUserNotFound is surfaced on direct lookup paths outside refresh.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRequest wraps input validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineNotReady is returned when a required dependency is missing.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrProviderDuplicateIdentifier is returned by a UserProvider for duplicate emails.
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
	// ErrSessionStoreUnavailable wraps session store failures on login and logout.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrRotationUnsupported is returned by Build when the configured rotation
	// mode needs a capability the session store lacks.
	ErrRotationUnsupported = errors.New("session store does not support configured rotation mode")
	// ErrProfileUpdateUnsupported is returned by UpdateProfile when the user
	// provider does not implement ProfileUpdater.
	ErrProfileUpdateUnsupported = errors.New("user provider does not support profile updates")
)

func invalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}
