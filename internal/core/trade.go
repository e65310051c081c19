package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/store"
)

// ExecuteTrade settles a signed amount (positive = buy) for owner against
// marketIndex's synthetic inventory. The position is created on first trade.
// Rejections leave no trace in the store. A non-nil intent is claimed in the
// same transaction, so a broker redelivery cannot settle twice; uuid.Nil
// skips deduplication.
func (c *Core) ExecuteTrade(ctx context.Context, intent uuid.UUID, owner uuid.UUID, marketIndex uint16, amount int64) (*engine.TradeResult, error) {
	start := time.Now()

	var res *engine.TradeResult
	err := c.store.Update(ctx, func(tx store.Tx) error {
		if err := c.guardIntent(tx, intent, "trade", owner); err != nil {
			return err
		}

		x, err := tx.Exchange()
		if err != nil {
			return fmt.Errorf("load exchange: %w", err)
		}
		m, err := tx.Market(marketIndex)
		if err != nil {
			return fmt.Errorf("load market %d: %w", marketIndex, err)
		}
		a, err := tx.UserAccount(owner)
		if err != nil {
			return fmt.Errorf("load account %s: %w", owner, err)
		}

		p, err := tx.UserPosition(owner, marketIndex)
		if errors.Is(err, store.ErrNotFound) {
			p = &ledger.UserPosition{Owner: owner, MarketIndex: marketIndex}
		} else if err != nil {
			return fmt.Errorf("load position %s/%d: %w", owner, marketIndex, err)
		}

		q, err := c.oracle.LatestQuote(m.Feed)
		if err != nil {
			return err
		}

		scopes := &ledger.Scopes{Exchange: x, Market: m, Account: a, Position: p}
		r, err := engineFor(x).Settle(scopes, amount, q, c.clock.Now())
		if err != nil {
			return err
		}

		tx.SaveExchange(x)
		tx.SaveMarket(m)
		tx.SaveUserAccount(a)
		tx.SaveUserPosition(p)

		res = r
		return nil
	})

	market := fmt.Sprintf("%d", marketIndex)
	if err != nil {
		if c.metrics != nil {
			c.metrics.TradesRejected.WithLabelValues(market, rejectReason(err)).Inc()
		}
		c.log.Warn().
			Stringer("owner", owner).
			Uint16("market", marketIndex).
			Int64("amount", amount).
			Err(err).
			Msg("trade rejected")
		return nil, err
	}
	c.rememberIntent(intent)

	if c.metrics != nil {
		c.metrics.TradesSettled.WithLabelValues(market, tradeSide(amount)).Inc()
		c.metrics.SettleDuration.WithLabelValues(market).Observe(time.Since(start).Seconds())
		if res.Fee >= 0 {
			c.metrics.FeesCollected.WithLabelValues(market, feeClass(res.Maker)).Add(float64(res.Fee))
		} else {
			c.metrics.RebatesPaid.WithLabelValues(market).Add(float64(-res.Fee))
		}
		if res.RealizedPnl != 0 {
			abs := res.RealizedPnl
			if abs < 0 {
				abs = -abs
			}
			c.metrics.RealizedPnl.WithLabelValues(market).Add(float64(abs))
		}
	}

	c.log.Info().
		Stringer("owner", owner).
		Uint16("market", marketIndex).
		Int64("amount", amount).
		Int64("price", res.Price).
		Int64("fee", res.Fee).
		Bool("maker", res.Maker).
		Int64("realized_pnl", res.RealizedPnl).
		Msg("trade settled")

	return res, nil
}

func tradeSide(amount int64) string {
	switch {
	case amount > 0:
		return "buy"
	case amount < 0:
		return "sell"
	default:
		return "flat"
	}
}

func feeClass(maker bool) string {
	if maker {
		return "maker"
	}
	return "taker"
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrUserMarginInsufficient):
		return "user_margin"
	case errors.Is(err, engine.ErrMarketMarginInsufficient):
		return "market_margin"
	case errors.Is(err, engine.ErrExchangeMarginInsufficient):
		return "exchange_margin"
	case errors.Is(err, engine.ErrYieldAmountInsufficient):
		return "yield_amount"
	case errors.Is(err, engine.ErrRewardsClaimUnavailable):
		return "claim_cooldown"
	case errors.Is(err, engine.ErrNoRewardsAvailable):
		return "no_rewards"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateIntent):
		return "duplicate"
	default:
		return "internal"
	}
}
