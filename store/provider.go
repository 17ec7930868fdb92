package store

import (
	"context"
	"errors"
	"fmt"

	goCred "github.com/MrEthical07/goCred"
)

// Provider adapts Users to goCred.UserProvider.
type Provider struct {
	users *Users
}

var (
	_ goCred.UserProvider   = (*Provider)(nil)
	_ goCred.ProfileUpdater = (*Provider)(nil)
)

func NewProvider(users *Users) *Provider {
	return &Provider{users: users}
}

func (p *Provider) GetUserByEmail(ctx context.Context, email string) (goCred.UserRecord, error) {
	u, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return goCred.UserRecord{}, mapErr(err)
	}
	return toRecord(u), nil
}

func (p *Provider) GetUserByID(ctx context.Context, userID string) (goCred.UserRecord, error) {
	u, err := p.users.FindByID(ctx, userID)
	if err != nil {
		return goCred.UserRecord{}, mapErr(err)
	}
	return toRecord(u), nil
}

func (p *Provider) CreateUser(ctx context.Context, in goCred.CreateUserInput) (goCred.UserRecord, error) {
	u, err := p.users.Create(ctx, newUser(in))
	if err != nil {
		return goCred.UserRecord{}, mapErr(err)
	}
	return toRecord(u), nil
}

func (p *Provider) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return mapErr(p.users.UpdatePasswordHash(ctx, userID, newHash))
}

// UpdateProfile applies the non-nil fields of upd.
func (p *Provider) UpdateProfile(ctx context.Context, userID string, upd goCred.ProfileUpdate) (goCred.UserRecord, error) {
	u, err := p.users.UpdateProfile(ctx, userID, ProfileUpdate{
		Email:     upd.Email,
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
	})
	if err != nil {
		return goCred.UserRecord{}, mapErr(err)
	}
	return toRecord(u), nil
}

func (p *Provider) DeleteUser(ctx context.Context, userID string) error {
	return mapErr(p.users.Delete(ctx, userID))
}

func newUser(in goCred.CreateUserInput) NewUser {
	return NewUser{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Role:         string(in.Role),
	}
}

func toRecord(u *User) goCred.UserRecord {
	return goCred.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         goCred.Role(u.Role),
		IsActive:     u.IsActive,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %v", goCred.ErrUserNotFound, err)
	case errors.Is(err, ErrDuplicateEmail):
		return fmt.Errorf("%w: %v", goCred.ErrProviderDuplicateIdentifier, err)
	default:
		return err
	}
}
