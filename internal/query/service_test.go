package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/query"
	"SynthLedger/internal/store"
)

const unit = int64(1_000_000_000)

func seededService(t *testing.T) (*query.Service, uuid.UUID) {
	t.Helper()
	owner := uuid.New()

	st := store.NewMemory()
	err := st.Update(context.Background(), func(tx store.Tx) error {
		tx.SaveExchange(&ledger.Exchange{
			Leverage:        100_000,
			MarketWeight:    10_000,
			CollateralValue: 1_000 * unit,
			Fees:            10 * unit,
			RewardRate:      100_000_000,
			NumberOfMarkets: 2,
		})
		tx.SaveMarket(&ledger.Market{MarketIndex: 1, MarketWeight: 10_000, Feed: "SYNTH-USD", TokenAmount: -unit})
		tx.SaveMarket(&ledger.Market{MarketIndex: 2, MarketWeight: 10_000, Feed: "OTHER-USD"})
		tx.SaveUserAccount(&ledger.UserAccount{
			Owner:           owner,
			CollateralValue: 100 * unit,
			MarginUsed:      -50 * unit,
		})
		tx.SaveUserPosition(&ledger.UserPosition{Owner: owner, MarketIndex: 1, TokenAmount: unit, Basis: -100 * unit})
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	feeds := oracle.NewFeedOracle()
	feeds.SetQuote("SYNTH-USD", oracle.Quote{Price: 100 * unit, Decimals: 9, Description: "SYNTH/USD"})

	return query.NewService(st, feeds), owner
}

// ============================================================================
// Test: query views
// ============================================================================

func TestAccount_SummaryWithDerivedAvailable(t *testing.T) {
	svc, owner := seededService(t)

	s, err := svc.Account(context.Background(), owner)
	if err != nil {
		t.Fatalf("account: %v", err)
	}

	if s.Owner != owner {
		t.Errorf("owner: got %s", s.Owner)
	}
	// hard 100 at 10x = 1000, minus 50 reserved.
	if s.Available != 950*unit {
		t.Errorf("available: got %d, want %d", s.Available, 950*unit)
	}
	if s.Collateral != "100" {
		t.Errorf("collateral display: got %q, want 100", s.Collateral)
	}
	if len(s.Positions) != 1 || s.Positions[0].MarketIndex != 1 {
		t.Errorf("positions: got %+v", s.Positions)
	}
}

func TestAccount_Unknown(t *testing.T) {
	svc, _ := seededService(t)
	_, err := svc.Account(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMarket_Summary(t *testing.T) {
	svc, _ := seededService(t)

	m, err := svc.Market(context.Background(), 1)
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	if m.TokenAmount != -unit || m.Feed != "SYNTH-USD" {
		t.Errorf("market: got %+v", m)
	}
	// Exchange total 10000, full weight, no margin used.
	if m.Available != 10_000*unit {
		t.Errorf("available: got %d, want %d", m.Available, 10_000*unit)
	}
}

func TestMarkets_Ordered(t *testing.T) {
	svc, _ := seededService(t)

	ms, err := svc.Markets(context.Background())
	if err != nil {
		t.Fatalf("markets: %v", err)
	}
	if len(ms) != 2 || ms[0].MarketIndex != 1 || ms[1].MarketIndex != 2 {
		t.Errorf("got %+v", ms)
	}
}

func TestExchange_Summary(t *testing.T) {
	svc, _ := seededService(t)

	x, err := svc.Exchange(context.Background())
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if x.Total != 10_000*unit {
		t.Errorf("total: got %d, want %d", x.Total, 10_000*unit)
	}
	if x.Available != 10_000*unit {
		t.Errorf("available: got %d, want %d", x.Available, 10_000*unit)
	}
	// 10 fees at 10% rate.
	if x.RewardsAvailable != unit {
		t.Errorf("rewards available: got %d, want %d", x.RewardsAvailable, unit)
	}
	if x.NumberOfMarkets != 2 {
		t.Errorf("market count: got %d", x.NumberOfMarkets)
	}
}

func TestPrice_View(t *testing.T) {
	svc, _ := seededService(t)

	p, err := svc.Price(context.Background(), "SYNTH-USD")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.Price != 100*unit || p.Display != "100" {
		t.Errorf("price view: got %+v", p)
	}
}

func TestPrice_UnknownFeed(t *testing.T) {
	svc, _ := seededService(t)
	_, err := svc.Price(context.Background(), "NOPE-USD")
	if !errors.Is(err, oracle.ErrUnknownFeed) {
		t.Errorf("got %v, want ErrUnknownFeed", err)
	}
}
