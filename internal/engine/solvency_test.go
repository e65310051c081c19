package engine_test

import (
	"errors"
	"testing"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
)

// ============================================================================
// Test: availability formulas
// ============================================================================

func TestExchangeTotal(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000}
	if got := engine.ExchangeTotal(x); got != 10_000*unit {
		t.Errorf("got %d, want %d", got, 10_000*unit)
	}
}

func TestExchangeAvailable_MarginIsNegativeReservation(t *testing.T) {
	x := &ledger.Exchange{
		CollateralValue: 1_000 * unit,
		Leverage:        100_000,
		MarketWeight:    5_000, // half the capacity
		MarginUsed:      -4_000 * unit,
	}
	if got := engine.ExchangeAvailable(x); got != 1_000*unit {
		t.Errorf("got %d, want %d", got, 1_000*unit)
	}
}

func TestMarketAvailable(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000}
	m := &ledger.Market{MarketWeight: 2_000, MarginUsed: -1_500 * unit}
	// 10000 total * 0.2 = 2000, minus 1500 reserved.
	if got := engine.MarketAvailable(x, m); got != 500*unit {
		t.Errorf("got %d, want %d", got, 500*unit)
	}
}

func TestUserAvailable_HardBalanceComponents(t *testing.T) {
	a := &ledger.UserAccount{
		CollateralValue: 100 * unit,
		Pnl:             -20 * unit,
		Fees:            -5 * unit,
		Rebates:         3 * unit,
		Rewards:         2 * unit,
		MarginUsed:      -100 * unit,
	}
	// hard = 80, at 10x = 800, minus 100 reserved.
	if got := engine.UserAvailable(a, 100_000); got != 700*unit {
		t.Errorf("got %d, want %d", got, 700*unit)
	}
}

// ============================================================================
// Test: CheckSolvency gate order
// ============================================================================

func TestCheckSolvency_ExchangeGateFirst(t *testing.T) {
	x := &ledger.Exchange{MarginUsed: -unit}          // insolvent
	m := &ledger.Market{MarginUsed: -unit}            // also insolvent
	a := &ledger.UserAccount{MarginUsed: -unit}       // also insolvent
	err := engine.CheckSolvency(x, m, a, 100_000)
	if !errors.Is(err, engine.ErrExchangeMarginInsufficient) {
		t.Errorf("got %v, want exchange gate to fire first", err)
	}
}

func TestCheckSolvency_MarketGateSecond(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000, MarketWeight: 10_000}
	m := &ledger.Market{MarketWeight: 0, MarginUsed: -unit}
	a := &ledger.UserAccount{MarginUsed: -unit}
	err := engine.CheckSolvency(x, m, a, 100_000)
	if !errors.Is(err, engine.ErrMarketMarginInsufficient) {
		t.Errorf("got %v, want market gate", err)
	}
}

func TestCheckSolvency_UserGateLast(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000, MarketWeight: 10_000}
	m := &ledger.Market{MarketWeight: 10_000}
	a := &ledger.UserAccount{MarginUsed: -unit}
	err := engine.CheckSolvency(x, m, a, 100_000)
	if !errors.Is(err, engine.ErrUserMarginInsufficient) {
		t.Errorf("got %v, want user gate", err)
	}
}

func TestCheckSolvency_NilMarketSkipsMarketGate(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000, MarketWeight: 10_000}
	a := &ledger.UserAccount{CollateralValue: 100 * unit}
	if err := engine.CheckSolvency(x, nil, a, 100_000); err != nil {
		t.Errorf("got %v, want nil (withdrawal path has no market)", err)
	}
}

func TestCheckSolvency_AllPass(t *testing.T) {
	x := &ledger.Exchange{CollateralValue: 1_000 * unit, Leverage: 100_000, MarketWeight: 10_000}
	m := &ledger.Market{MarketWeight: 10_000}
	a := &ledger.UserAccount{CollateralValue: 100 * unit}
	if err := engine.CheckSolvency(x, m, a, 100_000); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}
