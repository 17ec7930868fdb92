package flows

import (
	"context"
	"strings"
)

// ValidateDeps captures credential validation dependencies.
type ValidateDeps struct {
	FindByEmail    func(ctx context.Context, email string) (User, error)
	VerifyPassword func(password, digest string) bool
	// DummyHash is verified against when the lookup fails so that unknown
	// emails cost the same as wrong passwords.
	DummyHash string
	// OnLookupError observes swallowed lookup errors. Optional.
	OnLookupError func(ctx context.Context, err error)
	// NeedsRehash and Rehash upgrade digests made at a lower cost after a
	// successful check. Rehash returns the stored digest; a failure keeps the
	// old one and never rejects the credentials.
	NeedsRehash func(digest string) bool
	Rehash      func(ctx context.Context, userID, password string) (string, error)
}

// RunValidateCredentials returns the user when email and password match an
// active account, nil otherwise. It never returns an error.
func RunValidateCredentials(ctx context.Context, email, password string, deps ValidateDeps) *User {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	user, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if deps.OnLookupError != nil {
			deps.OnLookupError(ctx, err)
		}
		if deps.DummyHash != "" {
			_ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return nil
	}

	if !deps.VerifyPassword(password, user.PasswordHash) {
		return nil
	}
	if !user.IsActive {
		return nil
	}

	if deps.NeedsRehash != nil && deps.Rehash != nil && deps.NeedsRehash(user.PasswordHash) {
		if digest, err := deps.Rehash(ctx, user.ID, password); err == nil {
			user.PasswordHash = digest
		}
	}

	return &user
}
