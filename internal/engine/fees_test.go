package engine_test

import (
	"testing"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
)

// ============================================================================
// Test: ClassifyFeeRate
// ============================================================================

func TestClassifyFeeRate(t *testing.T) {
	// Users are net long 5: market inventory mirrors it at -5.
	m := &ledger.Market{TokenAmount: -5, MakerFee: -2, TakerFee: 10}

	cases := []struct {
		name      string
		amount    int64
		wantRate  int64
		wantMaker bool
	}{
		{"sell reduces net exposure", -3, -2, true},
		{"sell flattens exactly", -5, -2, true},
		{"sell overshoots", -6, 10, false},
		{"buy widens exposure", 3, 10, false},
	}
	for _, c := range cases {
		rate, maker := engine.ClassifyFeeRate(m, c.amount)
		if rate != c.wantRate || maker != c.wantMaker {
			t.Errorf("%s: got rate=%d maker=%v, want rate=%d maker=%v",
				c.name, rate, maker, c.wantRate, c.wantMaker)
		}
	}
}

func TestClassifyFeeRate_FlatMarketIsTaker(t *testing.T) {
	m := &ledger.Market{TokenAmount: 0, MakerFee: -2, TakerFee: 10}
	rate, maker := engine.ClassifyFeeRate(m, 1)
	if maker || rate != 10 {
		t.Errorf("first trade into a flat market: got rate=%d maker=%v, want taker", rate, maker)
	}
}

func TestClassifyFeeRate_ShortSideMirror(t *testing.T) {
	// Users net short 5: inventory at +5; a buy reduces it.
	m := &ledger.Market{TokenAmount: 5, MakerFee: -2, TakerFee: 10}
	rate, maker := engine.ClassifyFeeRate(m, 3)
	if !maker || rate != -2 {
		t.Errorf("got rate=%d maker=%v, want maker rebate", rate, maker)
	}
}

// ============================================================================
// Test: ComputeFee
// ============================================================================

func TestComputeFee(t *testing.T) {
	// 100 units notional at 10 bps-scale.
	got := engine.ComputeFee(100_000_000_000, 10)
	if got != 100_000_000 {
		t.Errorf("got %d, want 100000000", got)
	}
}

func TestComputeFee_NegativeRateIsRebate(t *testing.T) {
	got := engine.ComputeFee(100_000_000_000, -5)
	if got != -50_000_000 {
		t.Errorf("got %d, want -50000000", got)
	}
}

func TestComputeFee_NotionalSignIgnored(t *testing.T) {
	pos := engine.ComputeFee(100_000_000_000, 10)
	neg := engine.ComputeFee(-100_000_000_000, 10)
	if pos != neg {
		t.Errorf("fee must depend on |notional|: got %d vs %d", pos, neg)
	}
}
