// Package engine implements the accounting transitions of the venue: trade
// settlement, solvency gating, funding redistribution, and reward
// distribution. Every method mutates the records it is given and reports
// failure through the error taxonomy in errors.go; atomicity (discarding the
// mutated snapshot on failure) is the caller's job.
package engine

import (
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"
)

// Engine executes ledger transitions. The price-perturbation strategy is
// fixed at construction: identity for production, jitter for test venues.
type Engine struct {
	pricing PricePerturbation
}

func New(pricing PricePerturbation) *Engine {
	return &Engine{pricing: pricing}
}

// TradeResult reports what one settlement did, for logging and outbound
// events. All values are in amount units unless noted.
type TradeResult struct {
	Price       int64 // effective price after perturbation, oracle scale
	FeeRate     int64 // scaled by 10^4
	Fee         int64
	Maker       bool
	TokenDelta  int64 // closed quantity, always >= 0
	RealizedPnl int64
	MarginUsed  int64 // position's new absolute margin requirement
}

// Settle applies one trade to the four scopes. amount is signed, positive =
// buy. The order of steps matters: the realized-PnL extraction reads the
// basis/token snapshot taken before inventories move, and the solvency gate
// runs last against the fully mutated scopes. A zero amount is a legal no-op
// that still recomputes margin and re-runs the gate.
func (e *Engine) Settle(s *ledger.Scopes, amount int64, q oracle.Quote, now int64) (*TradeResult, error) {
	price := e.pricing.Perturb(q.Price, now)

	notional := fpmath.ScaleMulDiv(amount, price, q.Decimals)

	rate, maker := ClassifyFeeRate(s.Market, amount)
	fee := ComputeFee(notional, rate)
	s.ApplyFee(fee)

	basisBefore := s.Position.Basis
	tokenBefore := s.Position.TokenAmount

	// tokenDelta is the portion of the trade that closes opposite-sign
	// exposure; the residual opens new basis below.
	var tokenDelta int64
	if (tokenBefore < 0 && amount > 0) || (tokenBefore > 0 && amount < 0) {
		tokenDelta = min(fpmath.Abs(tokenBefore), fpmath.Abs(amount))
	}

	s.Market.TokenAmount -= amount
	s.Position.TokenAmount += amount

	marginBasis := fpmath.ScaleMulDiv(s.Position.TokenAmount, price, q.Decimals)
	newAbsMargin := fpmath.Abs(marginBasis)
	s.ApplyMarginDelta(newAbsMargin)

	var realized int64
	if tokenDelta != 0 {
		// Average entry price as a 128-bit ratio of the pre-trade snapshot;
		// closedBasis is the cost basis the reduction releases.
		closedBasis := fpmath.MulDiv(fpmath.Abs(basisBefore), tokenDelta, fpmath.Abs(tokenBefore))
		closedValue := fpmath.ScaleMulDiv(tokenDelta, price, q.Decimals)
		realized = closedBasis - closedValue
		s.ApplyRealized(-closedBasis, realized)
	}

	positionIncrease := fpmath.Abs(amount) - tokenDelta
	basisIncrease := fpmath.ScaleMulDiv(positionIncrease, price, q.Decimals)
	s.ApplyBasisIncrease(basisIncrease)

	if err := CheckSolvency(s.Exchange, s.Market, s.Account, s.Market.Leverage); err != nil {
		return nil, err
	}

	return &TradeResult{
		Price:       price,
		FeeRate:     rate,
		Fee:         fee,
		Maker:       maker,
		TokenDelta:  tokenDelta,
		RealizedPnl: realized,
		MarginUsed:  newAbsMargin,
	}, nil
}
