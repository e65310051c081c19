package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/store"
)

var ErrAssetInactive = errors.New("treasury asset inactive")

// CollateralResult reports one deposit or withdrawal.
type CollateralResult struct {
	Amount          int64 // amount units (10^9)
	TokenAmount     int64 // token units (10^asset decimals), the transfer size
	CollateralDelta int64 // signed change in collateral value
	Price           int64 // oracle price used for the conversion
	RewardsClaimed  int64 // deposits only, from the silent claim probe
}

// Deposit credits collateral at the asset's oracle price and pulls the
// corresponding token amount in. A silent reward-claim probe runs first so
// the incoming collateral never dilutes a reward entitlement the user had
// already accrued. Deposits are not solvency-gated.
func (c *Core) Deposit(ctx context.Context, intent uuid.UUID, owner uuid.UUID, symbol string, amount int64) (*CollateralResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	var res *CollateralResult
	err := c.store.Update(ctx, func(tx store.Tx) error {
		if err := c.guardIntent(tx, intent, "deposit", owner); err != nil {
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
		asset, err := tx.TreasuryAsset(symbol)
		if err != nil {
			return fmt.Errorf("load treasury asset %s: %w", symbol, err)
		}
		if !asset.Active {
			return fmt.Errorf("%w: %s", ErrAssetInactive, symbol)
		}

		q, err := c.oracle.LatestQuote(asset.Feed)
		if err != nil {
			return err
		}
		now := c.clock.Now()

		// Probe mode: a blocked claim is a zero, never an error.
		rewards, err := engineFor(x).ClaimRewards(x, a, now, false)
		if err != nil {
			return err
		}

		collateralDelta := fpmath.ScaleMulDiv(amount, q.Price, q.Decimals)
		a.CollateralValue += collateralDelta
		x.CollateralValue += collateralDelta

		tokenAmount := amount / fpmath.Pow10(fpmath.AmountDecimals-asset.Decimals)
		if err := c.mover.Transfer(ctx, owner.String(), TreasuryAccount, owner.String(), tokenAmount); err != nil {
			return fmt.Errorf("transfer in: %w", err)
		}

		tx.SaveExchange(x)
		tx.SaveUserAccount(a)

		res = &CollateralResult{
			Amount:          amount,
			TokenAmount:     tokenAmount,
			CollateralDelta: collateralDelta,
			Price:           q.Price,
			RewardsClaimed:  rewards,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.rememberIntent(intent)

	if c.metrics != nil {
		c.metrics.Deposits.WithLabelValues(symbol).Inc()
	}
	c.log.Info().
		Stringer("owner", owner).
		Str("symbol", symbol).
		Int64("amount", amount).
		Int64("collateral_delta", res.CollateralDelta).
		Int64("rewards_claimed", res.RewardsClaimed).
		Msg("deposit")

	return res, nil
}

// Withdraw debits collateral value, gates on exchange then user solvency at
// the exchange leverage (no market check), and pushes the token equivalent
// out under the exchange authority.
func (c *Core) Withdraw(ctx context.Context, intent uuid.UUID, owner uuid.UUID, symbol string, amount int64) (*CollateralResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdraw amount must be positive, got %d", amount)
	}

	var res *CollateralResult
	err := c.store.Update(ctx, func(tx store.Tx) error {
		if err := c.guardIntent(tx, intent, "withdraw", owner); err != nil {
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
		asset, err := tx.TreasuryAsset(symbol)
		if err != nil {
			return fmt.Errorf("load treasury asset %s: %w", symbol, err)
		}
		if !asset.Active {
			return fmt.Errorf("%w: %s", ErrAssetInactive, symbol)
		}

		q, err := c.oracle.LatestQuote(asset.Feed)
		if err != nil {
			return err
		}

		a.CollateralValue -= amount
		x.CollateralValue -= amount

		if err := engine.CheckSolvency(x, nil, a, x.Leverage); err != nil {
			return err
		}

		total := amount / fpmath.Pow10(fpmath.AmountDecimals-asset.Decimals)
		tokenAmount := fpmath.MulDiv(total, fpmath.Pow10(q.Decimals), q.Price)
		if err := c.mover.Transfer(ctx, TreasuryAccount, owner.String(), ExchangeAuthority, tokenAmount); err != nil {
			return fmt.Errorf("transfer out: %w", err)
		}

		tx.SaveExchange(x)
		tx.SaveUserAccount(a)

		res = &CollateralResult{
			Amount:          amount,
			TokenAmount:     tokenAmount,
			CollateralDelta: -amount,
			Price:           q.Price,
		}
		return nil
	})
	if err != nil {
		c.log.Warn().
			Stringer("owner", owner).
			Str("symbol", symbol).
			Int64("amount", amount).
			Err(err).
			Msg("withdrawal rejected")
		return nil, err
	}
	c.rememberIntent(intent)

	if c.metrics != nil {
		c.metrics.Withdrawals.WithLabelValues(symbol).Inc()
	}
	c.log.Info().
		Stringer("owner", owner).
		Str("symbol", symbol).
		Int64("amount", amount).
		Int64("token_amount", res.TokenAmount).
		Msg("withdrawal")

	return res, nil
}
