// Package core orchestrates ledger transitions: it owns the load-mutate-gate
// cycle around the engine, runs every operation inside one store transaction,
// and wires in the collaborators (oracle, clock, token mover, metrics).
package core

import (
	"context"

	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/store"
	"SynthLedger/internal/treasury"
)

// TreasuryAccount names the venue-side party of collateral transfers.
const TreasuryAccount = "treasury"

// ExchangeAuthority signs outbound withdrawals.
const ExchangeAuthority = "exchange"

// Core executes venue operations atomically. Every public method runs inside
// a single store.Update: the engine mutates private copies, the gates run on
// the mutated copies, and a failed gate rolls the whole transaction back.
type Core struct {
	store   store.Store
	oracle  oracle.PriceOracle
	clock   Clock
	mover   treasury.TokenMover
	log     zerolog.Logger
	metrics *observability.Metrics
	intents *intentLRU
}

// New wires a Core. metrics may be nil (tests).
func New(
	st store.Store,
	po oracle.PriceOracle,
	clock Clock,
	mover treasury.TokenMover,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Core {
	return &Core{
		store:   st,
		oracle:  po,
		clock:   clock,
		mover:   mover,
		log:     log,
		metrics: metrics,
		intents: newIntentLRU(intentLRUCapacity),
	}
}

// engineFor picks the pricing strategy from the exchange record: test venues
// jitter the oracle price, production venues trade at the raw price.
func engineFor(x *ledger.Exchange) *engine.Engine {
	if x.TestMode {
		return engine.New(engine.JitterPricing{})
	}
	return engine.New(engine.IdentityPricing{})
}

// GetPrice is the oracle passthrough used by the query API.
func (c *Core) GetPrice(ctx context.Context, feed string) (oracle.Quote, error) {
	return c.oracle.LatestQuote(feed)
}
