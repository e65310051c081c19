package engine

import (
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"
)

// YieldScopes bundles the two ledger levels a yield update touches.
type YieldScopes struct {
	Market   *ledger.YieldMarket
	Position *ledger.UserYieldPosition
}

// YieldResult reports one funding redistribution.
type YieldResult struct {
	Price          int64 // effective price, oracle scale
	Elapsed        int64 // seconds since the market's last claim
	FundedFromLong bool  // true when the long side paid
	Transfer       int64 // market-level transfer after time decay, >= 0
	UserShare      int64 // the caller's pro-rata slice of Transfer, >= 0
}

// UpdateYield applies a participant's long/short size change and settles the
// funding accrued since the market's last claim. The side with the larger
// mark-to-market PnL pays; the transfer is capped at the opposing side's
// basis (plus prior funding) and linearly decayed by elapsed time over one
// year, then pro-rated to the caller by their share of the paying side's
// pool. An empty pool pays nothing. Any pool total that would go negative
// rejects before mutation.
func (e *Engine) UpdateYield(ys *YieldScopes, longDelta, shortDelta int64, q oracle.Quote, now int64) (*YieldResult, error) {
	m := ys.Market
	p := ys.Position

	if longDelta+p.LongTokenAmount < 0 {
		return nil, ErrYieldAmountInsufficient
	}
	if longDelta+m.LongTokenAmount < 0 {
		return nil, ErrYieldAmountInsufficient
	}
	if shortDelta+p.ShortTokenAmount < 0 {
		return nil, ErrYieldAmountInsufficient
	}
	if shortDelta+m.ShortTokenAmount < 0 {
		return nil, ErrYieldAmountInsufficient
	}

	price := e.pricing.Perturb(q.Price, now)

	longBasisDelta := fpmath.ScaleMulDiv(price, longDelta, q.Decimals)
	shortBasisDelta := fpmath.ScaleMulDiv(price, shortDelta, q.Decimals)

	// Mark both pools to market against basis+funding.
	longValue := fpmath.ScaleMulDiv(price, m.LongTokenAmount, q.Decimals)
	shortValue := fpmath.ScaleMulDiv(price, m.ShortTokenAmount, q.Decimals)
	oldLongBasis := m.LongBasis + m.LongFunding
	oldShortBasis := m.ShortBasis + m.ShortFunding
	longPnl := longValue - oldLongBasis
	shortPnl := oldShortBasis - shortValue

	elapsed := now - m.LastClaimDate

	var longYield, longUserYield, shortYield, shortUserYield int64
	var fundedFromLong bool
	var transfer, userShare int64

	if longPnl > shortPnl {
		fundedFromLong = true
		amount := longPnl - shortPnl
		maxAmount := amount
		if amount > oldShortBasis {
			maxAmount = oldShortBasis
		}
		if m.LongTokenAmount > 0 && p.LongTokenAmount > 0 {
			longYield = fpmath.Ratio(maxAmount, elapsed, fpmath.SecondsPerYear)
			longUserYield = fpmath.Ratio(longYield, p.LongTokenAmount, m.LongTokenAmount)
			shortYield = -longYield
			shortUserYield = -longUserYield
			transfer = fpmath.Abs(longYield)
			userShare = fpmath.Abs(longUserYield)
		}
	} else {
		amount := shortPnl - longPnl
		maxAmount := amount
		if amount > oldLongBasis {
			maxAmount = oldLongBasis
		}
		if m.ShortTokenAmount > 0 && p.ShortTokenAmount > 0 {
			shortYield = fpmath.Ratio(maxAmount, elapsed, fpmath.SecondsPerYear)
			shortUserYield = fpmath.Ratio(shortYield, p.ShortTokenAmount, m.ShortTokenAmount)
			longYield = -shortYield
			longUserYield = -shortUserYield
			transfer = fpmath.Abs(shortYield)
			userShare = fpmath.Abs(shortUserYield)
		}
	}

	p.LongFunding += longUserYield
	p.ShortFunding += shortUserYield
	p.LongTokenAmount += longDelta
	p.ShortTokenAmount += shortDelta
	p.LongFees = 0
	p.ShortFees = 0
	p.LongBasis += longBasisDelta
	p.ShortBasis += shortBasisDelta
	p.LastClaimDate = now

	m.LongFunding += longYield
	m.ShortFunding += shortYield
	m.LongTokenAmount += longDelta
	m.ShortTokenAmount += shortDelta
	m.LongFees = 0
	m.ShortFees = 0
	m.LongBasis += longBasisDelta
	m.ShortBasis += shortBasisDelta
	m.LastClaimDate = now

	return &YieldResult{
		Price:          price,
		Elapsed:        elapsed,
		FundedFromLong: fundedFromLong,
		Transfer:       transfer,
		UserShare:      userShare,
	}, nil
}
