package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"SynthLedger/internal/store"
)

// ClaimRewards distributes the caller's pro-rata share of the exchange
// reward pool, strict mode: a cooldown block or empty pool is an error.
func (c *Core) ClaimRewards(ctx context.Context, intent uuid.UUID, owner uuid.UUID) (int64, error) {
	var amount int64
	err := c.store.Update(ctx, func(tx store.Tx) error {
		if err := c.guardIntent(tx, intent, "claim_rewards", owner); err != nil {
			return err
		}

		x, err := tx.Exchange()
		if err != nil {
			return fmt.Errorf("load exchange: %w", err)
		}
		a, err := tx.UserAccount(owner)
		if err != nil {
			return fmt.Errorf("load account %s: %w", owner, err)
		}

		amount, err = engineFor(x).ClaimRewards(x, a, c.clock.Now(), true)
		if err != nil {
			return err
		}

		tx.SaveExchange(x)
		tx.SaveUserAccount(a)
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.rememberIntent(intent)

	if c.metrics != nil {
		c.metrics.RewardsClaimed.Inc()
		c.metrics.RewardsAmount.Add(float64(amount))
	}
	c.log.Info().
		Stringer("owner", owner).
		Int64("amount", amount).
		Msg("rewards claimed")

	return amount, nil
}
