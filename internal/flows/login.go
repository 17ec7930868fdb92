package flows

import (
	"context"
	"errors"
	"fmt"
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Tokens   TokenIssuer
	Sessions SessionSlot
	LockUser func(userID string) (unlock func())
}

// LoginResult is the issued pair for a user.
type LoginResult struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// RunLogin issues a fresh pair and stores the refresh token in the user's slot.
// Tokens are only returned after the slot write succeeds.
func RunLogin(ctx context.Context, user User, deps LoginDeps) (*LoginResult, error) {
	if user.ID == "" {
		return nil, errors.New("login: empty user id")
	}

	access, refresh, err := issuePair(user, deps.Tokens)
	if err != nil {
		return nil, err
	}

	if deps.LockUser != nil {
		unlock := deps.LockUser(user.ID)
		defer unlock()
	}
	if err := deps.Sessions.Replace(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func issuePair(user User, tokens TokenIssuer) (string, string, error) {
	access, err := tokens.IssueAccess(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := tokens.IssueRefresh(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return access, refresh, nil
}
