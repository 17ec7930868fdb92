package flows

import "context"

// LogoutDeps captures logout flow dependencies. LockUser, when set, is the
// same per-user lock refresh holds across its compare and write.
type LogoutDeps struct {
	Sessions SessionSlot
	LockUser func(userID string) (unlock func())
}

// RunLogout clears the user's refresh slot. Clearing an empty slot succeeds.
func RunLogout(ctx context.Context, userID string, deps LogoutDeps) error {
	if deps.LockUser != nil {
		unlock := deps.LockUser(userID)
		defer unlock()
	}
	return deps.Sessions.Clear(ctx, userID)
}
