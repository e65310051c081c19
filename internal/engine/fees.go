package engine

import (
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
)

// ClassifyFeeRate decides maker vs taker for one trade. The market inventory
// is the mirror of aggregate user exposure, so a trade that shrinks
// |TokenAmount| without overshooting it reduces the venue's net exposure and
// earns the maker rate; everything else pays the taker rate. Pure function:
// same inputs, same rate, every call.
func ClassifyFeeRate(m *ledger.Market, amount int64) (rate int64, maker bool) {
	feeTokenDelta := m.TokenAmount - amount
	if fpmath.Abs(feeTokenDelta) < fpmath.Abs(m.TokenAmount) &&
		fpmath.Abs(amount) <= fpmath.Abs(m.TokenAmount) {
		return m.MakerFee, true
	}
	return m.TakerFee, false
}

// ComputeFee returns |notional| * rate / 10^4. A negative result is a rebate.
func ComputeFee(notional, rate int64) int64 {
	return fpmath.MulDiv(fpmath.Abs(notional), rate, fpmath.FeeScale)
}
