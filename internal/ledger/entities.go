// Package ledger defines the hierarchical balance records of the venue and
// the single shared routine that propagates deltas across them.
//
// Sign conventions: user-facing records (UserAccount, UserPosition) carry the
// trader's side of every balance; Market and Exchange are mirrored scopes
// representing the counter-side of aggregate exposure, so their basis/pnl
// move opposite to the user's and Market.TokenAmount is stored as the mirror
// of aggregate user exposure (it decreases when users buy).
package ledger

import (
	"github.com/google/uuid"
)

// Exchange is the aggregate root. There is exactly one per venue; it is
// always passed explicitly, never held as ambient state.
type Exchange struct {
	Leverage        int64 // scaled by 10^4
	MarketWeight    int64 // scaled by 10^4
	MarginUsed      int64
	Basis           int64
	Pnl             int64
	Fees            int64
	Rebates         int64
	Rewards         int64
	CollateralValue int64
	NumberOfMarkets uint16

	RewardFrequency  int64 // seconds between reward claims
	RewardRate       int64 // scaled by 10^9
	LastRewardsClaim int64 // unix seconds
	TestMode         bool
}

// Market is one synthetic instrument. Its margin/basis/pnl/fee fields are
// rollups over the UserPositions trading it.
type Market struct {
	MarketIndex uint16
	TokenAmount int64 // mirror of aggregate user exposure
	Basis       int64
	Pnl         int64
	Fees        int64
	Rebates     int64
	MarginUsed  int64

	Leverage     int64 // scaled by 10^4
	MarketWeight int64 // scaled by 10^4
	MakerFee     int64 // scaled by 10^4, negative = rebate
	TakerFee     int64 // scaled by 10^4
	Feed         string
}

// UserAccount aggregates one trader's balances across all markets.
type UserAccount struct {
	Owner            uuid.UUID
	CollateralValue  int64
	MarginUsed       int64
	Basis            int64
	Pnl              int64
	Fees             int64
	Rebates          int64
	Rewards          int64
	LastRewardsClaim int64
}

// UserPosition is one trader's exposure in one market.
type UserPosition struct {
	Owner       uuid.UUID
	MarketIndex uint16
	TokenAmount int64
	Basis       int64
	Pnl         int64
	Fees        int64
	Rebates     int64
	MarginUsed  int64
}

// YieldMarket tracks the opposing long/short pools of one yield instrument.
type YieldMarket struct {
	MarketIndex      uint16
	LongTokenAmount  int64
	ShortTokenAmount int64
	LongBasis        int64
	ShortBasis       int64
	LongFunding      int64
	ShortFunding     int64
	LongFees         int64
	ShortFees        int64
	LastClaimDate    int64 // unix seconds
	Feed             string
}

// UserYieldPosition is one participant's share of a yield market.
type UserYieldPosition struct {
	Owner            uuid.UUID
	MarketIndex      uint16
	LongTokenAmount  int64
	ShortTokenAmount int64
	LongBasis        int64
	ShortBasis       int64
	LongFunding      int64
	ShortFunding     int64
	LongFees         int64
	ShortFees        int64
	LastClaimDate    int64
}

// TreasuryAsset describes one collateral token the venue accepts. Deposits
// and withdrawals convert between token units (10^Decimals) and amount units
// (10^9) through it.
type TreasuryAsset struct {
	Symbol         string
	Active         bool
	TreasuryWeight int64 // scaled by 10^4
	Decimals       uint8
	Feed           string
}

// ProcessedIntent records one settled command so a broker redelivery of the
// same intent cannot apply twice. Committed in the same transaction as the
// balance mutation it guards.
type ProcessedIntent struct {
	IntentID    uuid.UUID
	Kind        string
	Owner       uuid.UUID
	ProcessedAt int64 // unix seconds
}

// IsFlat reports whether the position has no exposure.
func (p *UserPosition) IsFlat() bool {
	return p.TokenAmount == 0
}

// Clone helpers: store transactions hand out copies so a failed transition
// never leaks partial mutation back into cached records.

func (x *Exchange) Clone() *Exchange {
	c := *x
	return &c
}

func (m *Market) Clone() *Market {
	c := *m
	return &c
}

func (a *UserAccount) Clone() *UserAccount {
	c := *a
	return &c
}

func (p *UserPosition) Clone() *UserPosition {
	c := *p
	return &c
}

func (y *YieldMarket) Clone() *YieldMarket {
	c := *y
	return &c
}

func (p *UserYieldPosition) Clone() *UserYieldPosition {
	c := *p
	return &c
}

func (t *TreasuryAsset) Clone() *TreasuryAsset {
	c := *t
	return &c
}

func (i *ProcessedIntent) Clone() *ProcessedIntent {
	c := *i
	return &c
}
