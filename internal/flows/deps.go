package flows

import "context"

// User is the flow-level view of an account.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string
	IsActive     bool
}

// SessionSlot is the single-refresh-token store as seen by the flows.
type SessionSlot interface {
	Replace(ctx context.Context, userID, token string) error
	Clear(ctx context.Context, userID string) error
	Current(ctx context.Context, userID string) (string, bool, error)
}

// TokenIssuer issues the access/refresh pair for a user.
type TokenIssuer interface {
	IssueAccess(userID, email, role string) (string, error)
	IssueRefresh(userID, email, role string) (string, error)
}

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow.
type Deps struct {
	Login    LoginDeps
	Register RegisterDeps
	Validate ValidateDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Profile  ProfileDeps
}
