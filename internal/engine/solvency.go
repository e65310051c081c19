package engine

import (
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
)

// ExchangeTotal is the exchange's leveraged collateral capacity.
func ExchangeTotal(x *ledger.Exchange) int64 {
	return fpmath.MulDiv(x.CollateralValue, x.Leverage, fpmath.LeverageScale)
}

// ExchangeAvailable is the exchange-scope solvency balance. MarginUsed is
// accumulated as a negative reservation, so addition is the correct sign.
func ExchangeAvailable(x *ledger.Exchange) int64 {
	return fpmath.MulDiv(ExchangeTotal(x), x.MarketWeight, fpmath.WeightScale) + x.MarginUsed
}

// MarketAvailable is the market-scope solvency balance: the slice of the
// exchange's capacity this market may consume, plus its margin reservation.
func MarketAvailable(x *ledger.Exchange, m *ledger.Market) int64 {
	return fpmath.MulDiv(ExchangeTotal(x), m.MarketWeight, fpmath.WeightScale) + m.MarginUsed
}

// UserAvailable is the user-scope solvency balance: the account's hard
// balance (collateral plus accrued pnl, fees, rebates and rewards) scaled by
// the applicable leverage, plus the account's margin reservation.
func UserAvailable(a *ledger.UserAccount, leverage int64) int64 {
	hard := a.Pnl + a.Fees + a.Rebates + a.Rewards + a.CollateralValue
	return fpmath.MulDiv(hard, leverage, fpmath.LeverageScale) + a.MarginUsed
}

// CheckSolvency runs the three non-negativity gates in their fixed order:
// exchange, then market, then user; the first failure short-circuits. A nil
// market skips the market gate (withdrawal path). The gates are evaluated
// after tentative mutation; on failure the caller must discard the snapshot.
func CheckSolvency(x *ledger.Exchange, m *ledger.Market, a *ledger.UserAccount, userLeverage int64) error {
	if ExchangeAvailable(x) < 0 {
		return ErrExchangeMarginInsufficient
	}
	if m != nil && MarketAvailable(x, m) < 0 {
		return ErrMarketMarginInsufficient
	}
	if UserAvailable(a, userLeverage) < 0 {
		return ErrUserMarginInsufficient
	}
	return nil
}
