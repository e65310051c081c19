package engine_test

import (
	"errors"
	"testing"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"
)

const unit = int64(1_000_000_000)

// wellFunded returns scopes with enough collateral that the gates never bind
// in the scenario under test.
func wellFunded() *ledger.Scopes {
	return &ledger.Scopes{
		Exchange: &ledger.Exchange{
			Leverage:        100_000, // 10x
			MarketWeight:    10_000,  // 1.0
			CollateralValue: 10_000 * unit,
		},
		Market: &ledger.Market{
			MarketIndex:  1,
			Leverage:     100_000,
			MarketWeight: 10_000,
			TakerFee:     0,
			MakerFee:     0,
		},
		Account:  &ledger.UserAccount{CollateralValue: 1_000 * unit},
		Position: &ledger.UserPosition{MarketIndex: 1},
	}
}

func quoteAt(price int64) oracle.Quote {
	return oracle.Quote{Price: price, Decimals: 9}
}

// ============================================================================
// Test: Settle
// ============================================================================

func TestSettle_OpenLong(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()

	res, err := e.Settle(s, unit, quoteAt(100*unit), 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if s.Position.TokenAmount != unit {
		t.Errorf("position token: got %d, want %d", s.Position.TokenAmount, unit)
	}
	if s.Market.TokenAmount != -unit {
		t.Errorf("market token: got %d, want %d (mirror)", s.Market.TokenAmount, -unit)
	}
	if s.Position.Basis != -100*unit {
		t.Errorf("position basis: got %d, want %d", s.Position.Basis, -100*unit)
	}
	if s.Market.Basis != 100*unit {
		t.Errorf("market basis: got %d, want %d", s.Market.Basis, 100*unit)
	}
	if s.Position.MarginUsed != -100*unit {
		t.Errorf("position margin: got %d, want %d", s.Position.MarginUsed, -100*unit)
	}
	if s.Account.MarginUsed != -100*unit || s.Exchange.MarginUsed != -100*unit {
		t.Errorf("rolled-up margin: got a=%d x=%d, want %d",
			s.Account.MarginUsed, s.Exchange.MarginUsed, -100*unit)
	}
	if res.TokenDelta != 0 || res.RealizedPnl != 0 {
		t.Errorf("open must not realize: got delta=%d pnl=%d", res.TokenDelta, res.RealizedPnl)
	}
	if res.MarginUsed != 100*unit {
		t.Errorf("result margin: got %d, want %d", res.MarginUsed, 100*unit)
	}
}

func TestSettle_CloseLongAtHigherPrice(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()

	if _, err := e.Settle(s, unit, quoteAt(100*unit), 1000); err != nil {
		t.Fatalf("open: %v", err)
	}
	res, err := e.Settle(s, -unit, quoteAt(110*unit), 1001)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if res.TokenDelta != unit {
		t.Errorf("token delta: got %d, want %d", res.TokenDelta, unit)
	}
	// closedBasis 100, closedValue 110: the convention books 100-110.
	if res.RealizedPnl != -10*unit {
		t.Errorf("realized: got %d, want %d", res.RealizedPnl, -10*unit)
	}
	if !s.Position.IsFlat() {
		t.Errorf("position should be flat, token=%d", s.Position.TokenAmount)
	}
	if s.Position.Basis != 0 || s.Market.Basis != 0 {
		t.Errorf("basis should unwind: got p=%d m=%d", s.Position.Basis, s.Market.Basis)
	}
	if s.Position.Pnl != -10*unit || s.Market.Pnl != 10*unit {
		t.Errorf("pnl mirror: got p=%d m=%d", s.Position.Pnl, s.Market.Pnl)
	}
	if s.Position.MarginUsed != 0 || s.Exchange.MarginUsed != 0 {
		t.Errorf("margin should release: got p=%d x=%d", s.Position.MarginUsed, s.Exchange.MarginUsed)
	}
}

func TestSettle_PartialCloseSplitsBasis(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()

	if _, err := e.Settle(s, 2*unit, quoteAt(100*unit), 1000); err != nil {
		t.Fatalf("open: %v", err)
	}
	res, err := e.Settle(s, -unit, quoteAt(100*unit), 1001)
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if res.TokenDelta != unit {
		t.Errorf("token delta: got %d, want %d", res.TokenDelta, unit)
	}
	if res.RealizedPnl != 0 {
		t.Errorf("flat price close: got pnl=%d, want 0", res.RealizedPnl)
	}
	if s.Position.TokenAmount != unit {
		t.Errorf("residual token: got %d, want %d", s.Position.TokenAmount, unit)
	}
	if s.Position.Basis != -100*unit {
		t.Errorf("residual basis: got %d, want %d", s.Position.Basis, -100*unit)
	}
}

func TestSettle_FlipThroughZero(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()

	if _, err := e.Settle(s, unit, quoteAt(100*unit), 1000); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Sell 3: closes 1, opens 2 short.
	res, err := e.Settle(s, -3*unit, quoteAt(100*unit), 1001)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}

	if res.TokenDelta != unit {
		t.Errorf("token delta: got %d, want %d (only the closing leg)", res.TokenDelta, unit)
	}
	if s.Position.TokenAmount != -2*unit {
		t.Errorf("position token: got %d, want %d", s.Position.TokenAmount, -2*unit)
	}
	// The short residual opens fresh basis at the current price.
	if s.Position.Basis != -200*unit {
		t.Errorf("position basis: got %d, want %d", s.Position.Basis, -200*unit)
	}
	if s.Position.MarginUsed != -200*unit {
		t.Errorf("position margin: got %d, want %d", s.Position.MarginUsed, -200*unit)
	}
}

func TestSettle_TakerFeeBooked(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()
	s.Market.TakerFee = 10

	res, err := e.Settle(s, unit, quoteAt(100*unit), 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	wantFee := int64(100_000_000) // 100 notional * 10 / 1e4
	if res.Fee != wantFee || res.Maker {
		t.Errorf("got fee=%d maker=%v, want fee=%d taker", res.Fee, res.Maker, wantFee)
	}
	if s.Position.Fees != -wantFee || s.Exchange.Fees != wantFee {
		t.Errorf("fee booking: got p=%d x=%d", s.Position.Fees, s.Exchange.Fees)
	}
}

func TestSettle_MakerRebateBooked(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()
	s.Market.MakerFee = -5
	s.Market.TokenAmount = -unit // someone is long; a sell reduces exposure

	res, err := e.Settle(s, -unit, quoteAt(100*unit), 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	wantRebate := int64(-50_000_000)
	if res.Fee != wantRebate || !res.Maker {
		t.Errorf("got fee=%d maker=%v, want fee=%d maker", res.Fee, res.Maker, wantRebate)
	}
	if s.Position.Rebates != 50_000_000 || s.Exchange.Rebates != -50_000_000 {
		t.Errorf("rebate booking: got p=%d x=%d", s.Position.Rebates, s.Exchange.Rebates)
	}
}

func TestSettle_ZeroAmountStillGates(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()
	// Venue already past its capacity.
	s.Exchange.CollateralValue = 0
	s.Exchange.MarginUsed = -unit

	_, err := e.Settle(s, 0, quoteAt(100*unit), 1000)
	if !errors.Is(err, engine.ErrExchangeMarginInsufficient) {
		t.Errorf("got %v, want ErrExchangeMarginInsufficient", err)
	}
}

func TestSettle_UserMarginGateRejects(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	s := wellFunded()
	s.Account.CollateralValue = unit // 1 unit of collateral, 10x leverage

	// 100 notional needs 100 margin; the user covers at most 10.
	_, err := e.Settle(s, unit, quoteAt(100*unit), 1000)
	if !errors.Is(err, engine.ErrUserMarginInsufficient) {
		t.Errorf("got %v, want ErrUserMarginInsufficient", err)
	}
}

func TestSettle_JitterPricing(t *testing.T) {
	e := engine.New(engine.JitterPricing{})
	s := wellFunded()

	// now%10 == 7: price scales by 1.07.
	res, err := e.Settle(s, unit, quoteAt(100*unit), 7)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Price != 107*unit {
		t.Errorf("jittered price: got %d, want %d", res.Price, 107*unit)
	}
}

func TestJitterPricing_WidePrice(t *testing.T) {
	// price*107 exceeds int64 here; the scaling must go through the wide
	// intermediate instead of wrapping.
	price := int64(200_000_000_000_000_000)
	got := engine.JitterPricing{}.Perturb(price, 7)
	if want := int64(214_000_000_000_000_000); got != want {
		t.Errorf("wide jitter: got %d, want %d", got, want)
	}
}

func TestJitterPricing_NegativeClockDigit(t *testing.T) {
	got := engine.JitterPricing{}.Perturb(100*unit, -3)
	if want := 107 * unit; got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}
