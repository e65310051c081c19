package ingestion_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SynthLedger/internal/core"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/store"
	"SynthLedger/internal/treasury"
)

func newTestCore(t *testing.T) (*core.Core, *oracle.FeedOracle, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemory()
	feeds := oracle.NewFeedOracle()
	feeds.SetQuote("SYNTH-USD", oracle.Quote{Price: 100_000_000_000, Decimals: 9})
	feeds.SetQuote("USDC-USD", oracle.Quote{Price: 1_000_000_000, Decimals: 9})

	c := core.New(st, feeds, core.FixedClock{Unix: 1_000_000}, &treasury.Recorder{}, zerolog.Nop(), nil)

	if err := c.InitializeExchange(ctx, core.ExchangeParams{
		Leverage: 100_000, MarketWeight: 10_000, RewardFrequency: 3_600, RewardRate: 100_000_000,
	}); err != nil {
		t.Fatalf("init exchange: %v", err)
	}
	if err := c.AddMarket(ctx, core.MarketParams{
		Index: 1, Leverage: 100_000, MarketWeight: 10_000, TakerFee: 10, Feed: "SYNTH-USD",
	}); err != nil {
		t.Fatalf("add market: %v", err)
	}
	if err := c.AddTreasuryAsset(ctx, core.AssetParams{
		Symbol: "USDC", Active: true, TreasuryWeight: 10_000, Decimals: 6, Feed: "USDC-USD",
	}); err != nil {
		t.Fatalf("add asset: %v", err)
	}

	owner := uuid.New()
	if err := c.CreateUserAccount(ctx, owner); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := c.Deposit(ctx, uuid.Nil, owner, "USDC", 1_000_000_000_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return c, feeds, owner
}

// runOne pushes a single raw command through a dispatcher and reports how it
// was settled with the broker.
func runOne(t *testing.T, c *core.Core, feeds *oracle.FeedOracle, subject, payload string, out chan<- ingestion.PublishableResult) (acked, naked bool) {
	t.Helper()

	in := make(chan ingestion.RawCommand, 1)
	in <- ingestion.RawCommand{
		Subject:   subject,
		Data:      []byte(payload),
		Timestamp: time.Now(),
		AckFunc:   func() { acked = true },
		NakFunc:   func() { naked = true },
	}
	close(in)

	d := ingestion.NewDispatcher(c, feeds, in, out, zerolog.Nop(), nil)
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return acked, naked
}

// ============================================================================
// Test: Dispatcher ack policy
// ============================================================================

func TestDispatcher_SuccessAcksAndPublishes(t *testing.T) {
	c, feeds, owner := newTestCore(t)
	out := make(chan ingestion.PublishableResult, 1)

	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":1,"amount":1000000000,"timestamp_us":1}`
	acked, naked := runOne(t, c, feeds, "synth.trades.1", payload, out)

	if !acked || naked {
		t.Errorf("got acked=%v naked=%v, want acked only", acked, naked)
	}
	select {
	case res := <-out:
		if res.Kind != "trade" || res.Owner != owner {
			t.Errorf("published result: got %+v", res)
		}
	default:
		t.Error("expected a published result")
	}
}

func TestDispatcher_MalformedPayloadAcked(t *testing.T) {
	c, feeds, _ := newTestCore(t)

	acked, naked := runOne(t, c, feeds, "synth.trades.1", `{broken`, nil)
	if !acked || naked {
		t.Errorf("poison message: got acked=%v naked=%v, want acked only", acked, naked)
	}
}

func TestDispatcher_DeterministicRejectionAcked(t *testing.T) {
	c, feeds, owner := newTestCore(t)

	// Unknown market is a deterministic not-found: redelivery cannot help.
	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":99,"amount":1,"timestamp_us":1}`
	acked, naked := runOne(t, c, feeds, "synth.trades.1", payload, nil)
	if !acked || naked {
		t.Errorf("got acked=%v naked=%v, want acked only", acked, naked)
	}
}

func TestDispatcher_SolvencyRejectionAcked(t *testing.T) {
	c, feeds, owner := newTestCore(t)

	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":1,"amount":100000000000000,"timestamp_us":1}`
	acked, naked := runOne(t, c, feeds, "synth.trades.1", payload, nil)
	if !acked || naked {
		t.Errorf("got acked=%v naked=%v, want acked only", acked, naked)
	}
}

func TestDispatcher_UnknownFeedAcked(t *testing.T) {
	c, feeds, owner := newTestCore(t)
	ctx := context.Background()

	// A market whose feed has no quote yet: ErrUnknownFeed is permanent in
	// classification, so it is acked, not redelivered forever.
	if err := c.AddMarket(ctx, core.MarketParams{
		Index: 2, Leverage: 100_000, MarketWeight: 10_000, Feed: "MISSING-USD",
	}); err != nil {
		t.Fatalf("add market: %v", err)
	}

	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":2,"amount":1,"timestamp_us":1}`
	acked, naked := runOne(t, c, feeds, "synth.trades.1", payload, nil)
	if !acked || naked {
		t.Errorf("got acked=%v naked=%v, want acked only", acked, naked)
	}
}

func TestDispatcher_PriceUpdateFeedsOracle(t *testing.T) {
	c, feeds, _ := newTestCore(t)

	payload := `{"feed":"NEW-USD","price":42000000000,"decimals":9,"description":"NEW/USD","timestamp_us":1}`
	acked, naked := runOne(t, c, feeds, "synth.prices.new", payload, nil)
	if !acked || naked {
		t.Errorf("got acked=%v naked=%v, want acked only", acked, naked)
	}

	q, err := feeds.LatestQuote("NEW-USD")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Price != 42_000_000_000 || q.Decimals != 9 {
		t.Errorf("quote: got %+v", q)
	}
}

func TestDispatcher_RedeliveredTradeSettlesOnce(t *testing.T) {
	c, feeds, owner := newTestCore(t)
	out := make(chan ingestion.PublishableResult, 2)

	// Same intent delivered twice, as after an ack lost to a crash. Both
	// deliveries ack, only the first settles and publishes.
	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":1,"amount":1000000000,"timestamp_us":1}`
	if acked, _ := runOne(t, c, feeds, "synth.trades.1", payload, out); !acked {
		t.Fatal("first delivery must ack")
	}
	acked, naked := runOne(t, c, feeds, "synth.trades.1", payload, out)
	if !acked || naked {
		t.Errorf("redelivery: got acked=%v naked=%v, want acked only", acked, naked)
	}
	if len(out) != 1 {
		t.Errorf("published results: got %d, want 1", len(out))
	}
}

func TestDispatcher_NilOutboundDropsResults(t *testing.T) {
	c, feeds, owner := newTestCore(t)

	payload := `{"intent_id":"` + intentID + `","owner":"` + owner.String() + `","market_index":1,"amount":1000000000,"timestamp_us":1}`
	acked, _ := runOne(t, c, feeds, "synth.trades.1", payload, nil)
	if !acked {
		t.Error("success must ack even with publishing disabled")
	}
}
