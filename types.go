package goCred

import "context"

// Role is the closed set of account roles. Authorization by role happens
// outside the lifecycle engine; the engine only carries it in claims.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// UserRecord is the full account record returned by [UserProvider].
// PasswordHash and RefreshToken never serialize.
type UserRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	IsActive     bool   `json:"isActive"`
	RefreshToken string `json:"-"`
}

// Summary returns the redacted view handed back to callers.
func (u UserRecord) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// UserSummary is the only user shape that leaves the engine.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// AuthResult is returned by [Engine.Register], [Engine.Login] and [Engine.Refresh].
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
}

// LogoutResult acknowledges [Engine.Logout].
type LogoutResult struct {
	Message string `json:"message"`
}

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// RegisterRequest is the profile accepted by [Engine.Register].
// An empty Role defaults to [RoleUser].
type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Role      Role   `json:"role,omitempty"`
}

// CreateUserInput is the input for [UserProvider.CreateUser]. PasswordHash is
// always a digest produced by the engine's hasher.
type CreateUserInput struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
}

// ProfileUpdate carries optional self-service profile changes; nil fields are
// left unchanged. Password and role have their own paths.
type ProfileUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// UserProvider is the user-storage capability the engine consumes.
//
// Implementations return errors wrapping [ErrUserNotFound] for absent users and
// [ErrProviderDuplicateIdentifier] when CreateUser hits an existing email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	DeleteUser(ctx context.Context, userID string) error
}

// ProfileUpdater is an optional [UserProvider] capability used by
// [Engine.UpdateProfile]. A taken email wraps [ErrProviderDuplicateIdentifier].
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (UserRecord, error)
}

// SessionCreator is an optional [UserProvider] capability for providers that
// keep the refresh slot next to the account row. CreateUserWithSession creates
// the account and stores the refresh token returned by issue atomically, so a
// failed slot write leaves no account behind. Only wire it when the engine's
// [SessionStore] reads that same slot.
type SessionCreator interface {
	CreateUserWithSession(ctx context.Context, input CreateUserInput, issue func(UserRecord) (refreshToken string, err error)) (UserRecord, error)
}

// SessionStore holds at most one refresh token per user.
//
// Replace overwrites unconditionally, Clear sets the slot to null and is
// idempotent, Current reports ok=false for an empty slot.
type SessionStore interface {
	Replace(ctx context.Context, userID, token string) error
	Clear(ctx context.Context, userID string) error
	Current(ctx context.Context, userID string) (token string, ok bool, err error)
}

// CompareAndSwapSessionStore additionally supports a conditional write used by
// [RotationCompareAndSwap]. swapped is false when the stored token no longer
// equals expected.
type CompareAndSwapSessionStore interface {
	SessionStore
	CompareAndSwap(ctx context.Context, userID, expected, next string) (swapped bool, err error)
}

// JobSink accepts background jobs. Submit must not block on I/O; the engine
// logs and discards any error it returns.
type JobSink interface {
	Submit(ctx context.Context, name string, payload map[string]string) error
}
