// Package command defines the typed inbound commands the ingestion shell
// feeds to the core. Every state-changing command carries an intent ID used
// as its idempotency key by upstream producers.
package command

import (
	"time"

	"github.com/google/uuid"
)

// Command is implemented by every inbound command type.
type Command interface {
	Kind() string
}

// Trade asks the venue to settle a signed amount against a market.
type Trade struct {
	IntentID    uuid.UUID
	Owner       uuid.UUID
	MarketIndex uint16
	Amount      int64 // signed, positive = buy
	Timestamp   time.Time
}

func (*Trade) Kind() string { return "trade" }

// Deposit credits collateral from a treasury asset.
type Deposit struct {
	IntentID  uuid.UUID
	Owner     uuid.UUID
	Symbol    string
	Amount    int64 // amount units (10^9)
	Timestamp time.Time
}

func (*Deposit) Kind() string { return "deposit" }

// Withdraw debits collateral back into a treasury asset.
type Withdraw struct {
	IntentID  uuid.UUID
	Owner     uuid.UUID
	Symbol    string
	Amount    int64 // amount units (10^9)
	Timestamp time.Time
}

func (*Withdraw) Kind() string { return "withdraw" }

// YieldUpdate changes a participant's long/short pool sizes and settles
// accrued funding.
type YieldUpdate struct {
	IntentID    uuid.UUID
	Owner       uuid.UUID
	MarketIndex uint16
	LongDelta   int64
	ShortDelta  int64
	Timestamp   time.Time
}

func (*YieldUpdate) Kind() string { return "yield_update" }

// ClaimRewards requests a strict reward claim.
type ClaimRewards struct {
	IntentID  uuid.UUID
	Owner     uuid.UUID
	Timestamp time.Time
}

func (*ClaimRewards) Kind() string { return "claim_rewards" }

// PriceUpdate publishes a fresh oracle reading for a feed.
type PriceUpdate struct {
	Feed        string
	Price       int64
	Decimals    uint8
	Description string
	Timestamp   time.Time
}

func (*PriceUpdate) Kind() string { return "price_update" }
