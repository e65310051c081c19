// Package fpmath holds the scaled-integer arithmetic every balance
// computation goes through. All divisions truncate toward zero; the
// truncation policy lives here and nowhere else.
package fpmath

import (
	"fmt"
	"math/big"
	"sync"
)

// Scale constants shared by the whole ledger.
const (
	// AmountDecimals is the fixed-point precision of every monetary amount.
	AmountDecimals uint8 = 9
	// AmountScale is 10^AmountDecimals.
	AmountScale int64 = 1_000_000_000

	// LeverageScale divides leverage factors (10^4).
	LeverageScale int64 = 10_000
	// WeightScale divides market/exchange weights (10^4).
	WeightScale int64 = 10_000
	// FeeScale divides maker/taker fee rates (10^4).
	FeeScale int64 = 10_000

	// SecondsPerYear is the funding decay horizon.
	SecondsPerYear int64 = 365 * 24 * 60 * 60
)

// int128Pool recycles big.Ints used as 128-bit intermediates.
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0)
	int128Pool.Put(v)
}

// MulDiv computes a*b/denom with a 128-bit intermediate, truncating toward
// zero. Overflow of the final int64 downcast is fatal: the ledger must never
// continue with a clipped balance, so it panics instead of returning an error.
func MulDiv(a, b, denom int64) int64 {
	if denom == 0 {
		panic("FATAL: fpmath: division by zero")
	}

	num := getInt128()
	num.Mul(big.NewInt(a), big.NewInt(b))
	num.Quo(num, big.NewInt(denom)) // Quo truncates toward zero

	if !num.IsInt64() {
		panic(fmt.Sprintf("FATAL: fpmath: int64 overflow in %d*%d/%d", a, b, denom))
	}

	result := num.Int64()
	putInt128(num)
	return result
}

// ScaleMulDiv computes a*b / 10^pow. Callers pre-validate that pow fits the
// exponent range of their oracle feed.
func ScaleMulDiv(a, b int64, pow uint8) int64 {
	return MulDiv(a, b, Pow10(pow))
}

// Ratio computes ((n1*n*10^9)/denom)/10^9, the pro-rata helper used by the
// funding and reward distribution. The double truncation is deliberate and
// load-bearing for cross-variant reproducibility. A zero denominator yields
// zero (empty pool pays nothing), not a fault.
func Ratio(n1, n, denom int64) int64 {
	if denom == 0 {
		return 0
	}

	num := getInt128()
	num.Mul(big.NewInt(n1), big.NewInt(n))
	num.Mul(num, big.NewInt(AmountScale))
	num.Quo(num, big.NewInt(denom))
	num.Quo(num, big.NewInt(AmountScale))

	if !num.IsInt64() {
		panic(fmt.Sprintf("FATAL: fpmath: int64 overflow in ratio %d*%d/%d", n1, n, denom))
	}

	result := num.Int64()
	putInt128(num)
	return result
}

// Pow10 returns 10^pow as int64. pow above 18 cannot be represented and is
// a caller bug.
func Pow10(pow uint8) int64 {
	if pow > 18 {
		panic(fmt.Sprintf("FATAL: fpmath: 10^%d exceeds int64", pow))
	}
	result := int64(1)
	for i := uint8(0); i < pow; i++ {
		result *= 10
	}
	return result
}

// Abs returns |x|. math.MinInt64 has no positive counterpart and is fatal.
func Abs(x int64) int64 {
	if x == -9223372036854775808 {
		panic("FATAL: fpmath: abs(MinInt64) overflows")
	}
	if x < 0 {
		return -x
	}
	return x
}
