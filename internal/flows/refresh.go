package flows

import (
	"context"
	"crypto/subtle"
	"errors"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureLookup
	RefreshFailureInactive
	RefreshFailureStore
	RefreshFailureMismatch
	RefreshFailureIssue
	RefreshFailureRotate
	RefreshFailureRaceLost
)

var refreshFailureNames = [...]string{
	RefreshFailureNone:     "none",
	RefreshFailureVerify:   "verify",
	RefreshFailureLookup:   "lookup",
	RefreshFailureInactive: "inactive",
	RefreshFailureStore:    "store",
	RefreshFailureMismatch: "mismatch",
	RefreshFailureIssue:    "issue",
	RefreshFailureRotate:   "rotate",
	RefreshFailureRaceLost: "race_lost",
}

func (k RefreshFailureKind) String() string {
	if k < 0 || int(k) >= len(refreshFailureNames) {
		return "unknown"
	}
	return refreshFailureNames[k]
}

var (
	errStoredTokenMismatch = errors.New("presented refresh token does not match stored token")
	errInactiveUser        = errors.New("user is inactive")
	errRotationLost        = errors.New("refresh token rotated concurrently")
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	User         User
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
//
// When CompareAndSwap is set the new token is written only if the slot still
// holds the presented token. When LockUser is set the compare and the write
// run under the returned per-user lock. With neither, the write is an
// unconditional Replace and the last writer wins.
type RefreshDeps struct {
	VerifyRefresh  func(token string) (userID string, err error)
	FindByID       func(ctx context.Context, userID string) (User, error)
	Sessions       SessionSlot
	Tokens         TokenIssuer
	CompareAndSwap func(ctx context.Context, userID, expected, next string) (bool, error)
	LockUser       func(userID string) (unlock func())
}

// RunRefresh verifies the presented refresh token, checks it against the
// user's stored slot and rotates the slot to a freshly issued pair.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	userID, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureVerify, Err: err}
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, UserID: userID}
	}
	if !user.IsActive {
		return RefreshResult{Failure: RefreshFailureInactive, Err: errInactiveUser, UserID: userID}
	}

	if deps.LockUser != nil {
		unlock := deps.LockUser(user.ID)
		defer unlock()
	}

	current, ok, err := deps.Sessions.Current(ctx, user.ID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID}
	}
	if !ok || subtle.ConstantTimeCompare([]byte(current), []byte(refreshToken)) != 1 {
		return RefreshResult{Failure: RefreshFailureMismatch, Err: errStoredTokenMismatch, UserID: userID}
	}

	access, next, err := issuePair(user, deps.Tokens)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: userID}
	}

	if deps.CompareAndSwap != nil {
		swapped, err := deps.CompareAndSwap(ctx, user.ID, refreshToken, next)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: userID}
		}
		if !swapped {
			return RefreshResult{Failure: RefreshFailureRaceLost, Err: errRotationLost, UserID: userID}
		}
	} else if err := deps.Sessions.Replace(ctx, user.ID, next); err != nil {
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: userID}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       userID,
		User:         user,
		AccessToken:  access,
		RefreshToken: next,
	}
}
