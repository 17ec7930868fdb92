package flows

import (
	"context"
	"errors"
	"strings"
)

// ErrEmailTaken is returned by RunUpdateProfile when the requested email
// belongs to another account.
var ErrEmailTaken = errors.New("email already in use")

// ProfileChanges are the optional profile fields a user may change.
type ProfileChanges struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// ProfileDeps captures profile update dependencies.
type ProfileDeps struct {
	MinNameLength int
	FindByID      func(ctx context.Context, userID string) (User, error)
	// EmailTaken reports whether another account already holds email.
	EmailTaken func(ctx context.Context, email string) (bool, error)
	Update     func(ctx context.Context, userID string, changes ProfileChanges) (User, error)
}

// RunUpdateProfile validates the present fields, rejects an email owned by
// another account and applies the changes. An unchanged email skips the
// ownership check.
func RunUpdateProfile(ctx context.Context, userID string, changes ProfileChanges, deps ProfileDeps) (User, error) {
	if changes.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*changes.Email))
		if err := validateEmail(email); err != nil {
			return User{}, err
		}
		changes.Email = &email
	}
	if changes.FirstName != nil {
		name := strings.TrimSpace(*changes.FirstName)
		if err := validateName("firstName", name, deps.MinNameLength); err != nil {
			return User{}, err
		}
		changes.FirstName = &name
	}
	if changes.LastName != nil {
		name := strings.TrimSpace(*changes.LastName)
		if err := validateName("lastName", name, deps.MinNameLength); err != nil {
			return User{}, err
		}
		changes.LastName = &name
	}

	current, err := deps.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if changes.Email != nil && *changes.Email != current.Email {
		taken, err := deps.EmailTaken(ctx, *changes.Email)
		if err != nil {
			return User{}, err
		}
		if taken {
			return User{}, ErrEmailTaken
		}
	}

	return deps.Update(ctx, userID, changes)
}
