package ledger

import (
	"SynthLedger/internal/fpmath"
)

// Scopes bundles the four ledger levels a trade touches. Every delta a
// settlement produces flows through exactly one of the Apply methods below;
// no caller applies a rollup by hand. This is the single most error-prone
// part of the whole design, so it lives in one place.
type Scopes struct {
	Exchange *Exchange
	Market   *Market
	Account  *UserAccount
	Position *UserPosition
}

// ApplyFee books a classified fee at all four scopes. A negative fee is a
// rebate: it reduces the exchange/market rebate accumulators and is credited
// (negated) to the user side. A non-negative fee accrues to the
// exchange/market fee accumulators and is debited from the user side.
func (s *Scopes) ApplyFee(fee int64) {
	if fee < 0 {
		s.Exchange.Rebates += fee
		s.Market.Rebates += fee
		s.Account.Rebates += -fee
		s.Position.Rebates += -fee
		return
	}
	s.Exchange.Fees += fee
	s.Market.Fees += fee
	s.Account.Fees += -fee
	s.Position.Fees += -fee
}

// ApplyMarginDelta recomputes the position's margin-used from its new
// absolute margin requirement and propagates the one delta, unchanged in
// value, to account, market, and exchange. The position stores margin as a
// negative reservation; the enclosing scopes accumulate the signed delta.
func (s *Scopes) ApplyMarginDelta(newAbsMargin int64) int64 {
	delta := fpmath.Abs(s.Position.MarginUsed) - newAbsMargin

	s.Position.MarginUsed = -newAbsMargin
	s.Account.MarginUsed += delta
	s.Market.MarginUsed += delta
	s.Exchange.MarginUsed += delta

	return delta
}

// ApplyRealized books a position reduction: basisAdjustment is the (negated)
// portion of cost basis released by the close, pnl the realized gain or loss.
// User scopes take the trader's side; market and exchange take the mirror.
func (s *Scopes) ApplyRealized(basisAdjustment, pnl int64) {
	s.Position.Basis -= basisAdjustment
	s.Position.Pnl += pnl

	s.Account.Basis -= basisAdjustment
	s.Account.Pnl += pnl

	s.Market.Basis += basisAdjustment
	s.Market.Pnl -= pnl

	s.Exchange.Basis += basisAdjustment
	s.Exchange.Pnl -= pnl
}

// ApplyBasisIncrease converts the non-closing residual of a trade into new
// cost basis at the current price: a decrease on the user side, the mirrored
// increase on market and exchange.
func (s *Scopes) ApplyBasisIncrease(basisIncrease int64) {
	s.Position.Basis -= basisIncrease
	s.Account.Basis -= basisIncrease
	s.Market.Basis += basisIncrease
	s.Exchange.Basis += basisIncrease
}
