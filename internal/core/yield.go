package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/store"
)

// UpdateYield applies a participant's long/short size change to a yield
// market and settles the funding accrued since the market's last claim. The
// participant's yield position is created on first use.
func (c *Core) UpdateYield(ctx context.Context, intent uuid.UUID, owner uuid.UUID, marketIndex uint16, longDelta, shortDelta int64) (*engine.YieldResult, error) {
	var res *engine.YieldResult
	err := c.store.Update(ctx, func(tx store.Tx) error {
		if err := c.guardIntent(tx, intent, "yield_update", owner); err != nil {
			return err
		}

		x, err := tx.Exchange()
		if err != nil {
			return fmt.Errorf("load exchange: %w", err)
		}
		m, err := tx.YieldMarket(marketIndex)
		if err != nil {
			return fmt.Errorf("load yield market %d: %w", marketIndex, err)
		}

		p, err := tx.UserYieldPosition(owner, marketIndex)
		if errors.Is(err, store.ErrNotFound) {
			p = &ledger.UserYieldPosition{Owner: owner, MarketIndex: marketIndex, LastClaimDate: c.clock.Now()}
		} else if err != nil {
			return fmt.Errorf("load yield position %s/%d: %w", owner, marketIndex, err)
		}

		q, err := c.oracle.LatestQuote(m.Feed)
		if err != nil {
			return err
		}

		ys := &engine.YieldScopes{Market: m, Position: p}
		r, err := engineFor(x).UpdateYield(ys, longDelta, shortDelta, q, c.clock.Now())
		if err != nil {
			return err
		}

		tx.SaveYieldMarket(m)
		tx.SaveUserYieldPosition(p)

		res = r
		return nil
	})
	if err != nil {
		c.log.Warn().
			Stringer("owner", owner).
			Uint16("market", marketIndex).
			Int64("long_delta", longDelta).
			Int64("short_delta", shortDelta).
			Err(err).
			Msg("yield update rejected")
		return nil, err
	}
	c.rememberIntent(intent)

	if c.metrics != nil && res.Transfer > 0 {
		market := fmt.Sprintf("%d", marketIndex)
		c.metrics.FundingTransfers.WithLabelValues(market, fundedFrom(res.FundedFromLong)).Inc()
		c.metrics.FundingAmount.WithLabelValues(market).Add(float64(res.Transfer))
	}

	c.log.Info().
		Stringer("owner", owner).
		Uint16("market", marketIndex).
		Int64("long_delta", longDelta).
		Int64("short_delta", shortDelta).
		Int64("transfer", res.Transfer).
		Int64("user_share", res.UserShare).
		Msg("yield updated")

	return res, nil
}

func fundedFrom(long bool) string {
	if long {
		return "long"
	}
	return "short"
}
