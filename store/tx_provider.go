package store

import (
	"context"
	"database/sql"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/dbx"
)

// SlotWriter stores token in userID's refresh slot through handle. It is
// normally session.SQLStore.Replace bound to the transaction.
type SlotWriter func(ctx context.Context, handle dbx.DBTX, userID, token string) error

// TxProvider is a Provider whose registrations create the account and fill
// its refresh slot in one transaction.
type TxProvider struct {
	*Provider
	db        *sql.DB
	dialect   dbx.Dialect
	writeSlot SlotWriter
}

var _ goCred.SessionCreator = (*TxProvider)(nil)

func NewTxProvider(db *sql.DB, dialect dbx.Dialect, writeSlot SlotWriter) *TxProvider {
	return &TxProvider{
		Provider:  NewProvider(NewUsers(db, dialect)),
		db:        db,
		dialect:   dialect,
		writeSlot: writeSlot,
	}
}

// CreateUserWithSession inserts the account, asks issue for its refresh token
// and writes the slot before committing. Any failure rolls both back.
func (p *TxProvider) CreateUserWithSession(ctx context.Context, in goCred.CreateUserInput, issue func(goCred.UserRecord) (string, error)) (goCred.UserRecord, error) {
	var rec goCred.UserRecord
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := NewUsers(tx, p.dialect).Create(ctx, newUser(in))
		if err != nil {
			return err
		}
		rec = toRecord(u)

		token, err := issue(rec)
		if err != nil {
			return err
		}
		return p.writeSlot(ctx, tx, rec.ID, token)
	})
	if err != nil {
		return goCred.UserRecord{}, mapErr(err)
	}
	return rec, nil
}
