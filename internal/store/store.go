// Package store is the persistent record store for the ledger entities,
// keyed by stable identity: exchange singleton, market by index, account by
// owner, position by owner+index, yield market by index, yield position by
// owner+index, treasury asset by symbol.
//
// All access goes through View/Update transactions. Update is all-or-nothing:
// if the callback returns an error, nothing it saved becomes visible. That is
// the mechanism behind the core's atomic-transition guarantee.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"SynthLedger/internal/ledger"
)

var ErrNotFound = errors.New("record not found")

// Tx exposes the records of one transaction. Getters return private copies;
// Save stages a record for commit. Records staged inside a View are
// discarded.
type Tx interface {
	Exchange() (*ledger.Exchange, error)
	SaveExchange(*ledger.Exchange)

	Market(index uint16) (*ledger.Market, error)
	Markets() ([]*ledger.Market, error)
	SaveMarket(*ledger.Market)

	UserAccount(owner uuid.UUID) (*ledger.UserAccount, error)
	SaveUserAccount(*ledger.UserAccount)

	UserPosition(owner uuid.UUID, index uint16) (*ledger.UserPosition, error)
	UserPositions(owner uuid.UUID) ([]*ledger.UserPosition, error)
	SaveUserPosition(*ledger.UserPosition)

	YieldMarket(index uint16) (*ledger.YieldMarket, error)
	SaveYieldMarket(*ledger.YieldMarket)

	UserYieldPosition(owner uuid.UUID, index uint16) (*ledger.UserYieldPosition, error)
	SaveUserYieldPosition(*ledger.UserYieldPosition)

	TreasuryAsset(symbol string) (*ledger.TreasuryAsset, error)
	SaveTreasuryAsset(*ledger.TreasuryAsset)

	ProcessedIntent(id uuid.UUID) (*ledger.ProcessedIntent, error)
	SaveProcessedIntent(*ledger.ProcessedIntent)
}

// Store runs transactions against the record set.
type Store interface {
	// View runs fn against a read snapshot.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn and commits everything it saved, or nothing.
	Update(ctx context.Context, fn func(Tx) error) error

	Close() error
}

type positionKey struct {
	owner uuid.UUID
	index uint16
}
