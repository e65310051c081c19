// Package oracle defines the narrow price-feed interface the accounting core
// consumes, plus the feed registry implementation the service shell keeps
// current from inbound price updates.
package oracle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrUnknownFeed = errors.New("unknown price feed")

// Quote is one fresh oracle reading: a scaled integer price and the decimal
// count that scales it.
type Quote struct {
	Price       int64
	Decimals    uint8
	Description string
}

// Decimal renders the quote as a human-readable decimal. Display only; no
// ledger math goes through this.
func (q Quote) Decimal() decimal.Decimal {
	return decimal.New(q.Price, -int32(q.Decimals))
}

func (q Quote) String() string {
	return fmt.Sprintf("%s %s", q.Description, q.Decimal())
}

// PriceOracle supplies fresh quotes by feed reference. The core queries it
// once per settlement and never caches across invocations.
type PriceOracle interface {
	LatestQuote(feed string) (Quote, error)
}

// FeedOracle is an in-memory feed registry. The ingestion shell pushes every
// inbound price update into it; settlements read whatever is current.
type FeedOracle struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewFeedOracle() *FeedOracle {
	return &FeedOracle{quotes: make(map[string]Quote)}
}

// SetQuote publishes a new reading for a feed.
func (o *FeedOracle) SetQuote(feed string, q Quote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[feed] = q
}

func (o *FeedOracle) LatestQuote(feed string) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	q, ok := o.quotes[feed]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	return q, nil
}

// Static always returns the same quote for every feed. Test wiring.
type Static struct {
	Quote Quote
}

func (s Static) LatestQuote(feed string) (Quote, error) {
	return s.Quote, nil
}
