package flows

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RegisterRequest is the profile submitted for a new account.
type RegisterRequest struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// RegisterDeps captures registration dependencies. CreateUser receives the
// digest, never the plaintext.
//
// When CreateWithSession is set it replaces CreateUser followed by Login: it
// must create the account and store the refresh token returned by issue in
// one atomic step. Tokens signs that pair.
type RegisterDeps struct {
	MinPasswordLength int
	MinNameLength     int
	ValidRole         func(string) bool
	HashPassword      func(string) (string, error)
	CreateUser        func(ctx context.Context, req RegisterRequest, passwordHash string) (User, error)
	Login             func(ctx context.Context, user User) (*LoginResult, error)

	CreateWithSession func(ctx context.Context, req RegisterRequest, passwordHash string, issue func(User) (refreshToken string, err error)) (User, error)
	Tokens            TokenIssuer
}

// RunRegister validates the request, hashes the password exactly once,
// creates the account and logs it in.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*LoginResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Role == "" {
		req.Role = "user"
	}

	if err := validateRegister(req, deps); err != nil {
		return nil, err
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if deps.CreateWithSession != nil {
		return createWithSession(ctx, req, hash, deps)
	}

	user, err := deps.CreateUser(ctx, req, hash)
	if err != nil {
		return nil, err
	}

	return deps.Login(ctx, user)
}

func createWithSession(ctx context.Context, req RegisterRequest, hash string, deps RegisterDeps) (*LoginResult, error) {
	var access, refresh string
	user, err := deps.CreateWithSession(ctx, req, hash, func(u User) (string, error) {
		var err error
		access, refresh, err = issuePair(u, deps.Tokens)
		return refresh, err
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func validateRegister(req RegisterRequest, deps RegisterDeps) error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validateName("firstName", req.FirstName, deps.MinNameLength); err != nil {
		return err
	}
	if err := validateName("lastName", req.LastName, deps.MinNameLength); err != nil {
		return err
	}
	if len(req.Password) < deps.MinPasswordLength {
		return invalid("password", "must be at least %d characters", deps.MinPasswordLength)
	}
	if len(req.Password) > MaxPasswordBytes {
		return invalid("password", "must be at most %d bytes", MaxPasswordBytes)
	}
	if deps.ValidRole != nil && !deps.ValidRole(req.Role) {
		return invalid("role", "must be one of user, admin, moderator")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "must be a valid address")
	}
	return nil
}

func validateName(field, name string, min int) error {
	if len([]rune(name)) < min {
		return invalid(field, "must be at least %d characters", min)
	}
	return nil
}
