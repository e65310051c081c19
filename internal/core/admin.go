package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/store"
)

var ErrAlreadyExists = errors.New("record already exists")

// ExchangeParams carries the venue-level configuration of an exchange.
type ExchangeParams struct {
	Leverage        int64 // scaled by 10^4
	MarketWeight    int64 // scaled by 10^4
	RewardFrequency int64 // seconds
	RewardRate      int64 // scaled by 10^9
	TestMode        bool
}

// MarketParams carries the configuration of one synthetic market.
type MarketParams struct {
	Index        uint16
	Leverage     int64 // scaled by 10^4
	MarketWeight int64 // scaled by 10^4
	MakerFee     int64 // scaled by 10^4, negative = rebate
	TakerFee     int64 // scaled by 10^4
	Feed         string
}

// AssetParams carries the configuration of one collateral token.
type AssetParams struct {
	Symbol         string
	Active         bool
	TreasuryWeight int64 // scaled by 10^4
	Decimals       uint8
	Feed           string
}

// InitializeExchange creates the venue singleton. Balances start at zero;
// only configuration comes from the caller.
func (c *Core) InitializeExchange(ctx context.Context, p ExchangeParams) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Exchange(); err == nil {
			return fmt.Errorf("exchange: %w", ErrAlreadyExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		tx.SaveExchange(&ledger.Exchange{
			Leverage:         p.Leverage,
			MarketWeight:     p.MarketWeight,
			RewardFrequency:  p.RewardFrequency,
			RewardRate:       p.RewardRate,
			LastRewardsClaim: c.clock.Now(),
			TestMode:         p.TestMode,
		})

		c.log.Info().
			Int64("leverage", p.Leverage).
			Int64("market_weight", p.MarketWeight).
			Bool("test_mode", p.TestMode).
			Msg("exchange initialized")
		return nil
	})
}

// UpdateExchange rewrites the venue configuration. Balances are untouched.
func (c *Core) UpdateExchange(ctx context.Context, p ExchangeParams) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}

		x.Leverage = p.Leverage
		x.MarketWeight = p.MarketWeight
		x.RewardFrequency = p.RewardFrequency
		x.RewardRate = p.RewardRate
		x.TestMode = p.TestMode

		tx.SaveExchange(x)
		return nil
	})
}

// AddMarket registers a new synthetic market and bumps the venue's market
// count.
func (c *Core) AddMarket(ctx context.Context, p MarketParams) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}
		if _, err := tx.Market(p.Index); err == nil {
			return fmt.Errorf("market %d: %w", p.Index, ErrAlreadyExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		tx.SaveMarket(&ledger.Market{
			MarketIndex:  p.Index,
			Leverage:     p.Leverage,
			MarketWeight: p.MarketWeight,
			MakerFee:     p.MakerFee,
			TakerFee:     p.TakerFee,
			Feed:         p.Feed,
		})

		x.NumberOfMarkets++
		tx.SaveExchange(x)

		c.log.Info().
			Uint16("market", p.Index).
			Str("feed", p.Feed).
			Msg("market added")
		return nil
	})
}

// UpdateMarket rewrites one market's configuration. Rollup balances are
// untouched.
func (c *Core) UpdateMarket(ctx context.Context, p MarketParams) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		m, err := tx.Market(p.Index)
		if err != nil {
			return err
		}

		m.Leverage = p.Leverage
		m.MarketWeight = p.MarketWeight
		m.MakerFee = p.MakerFee
		m.TakerFee = p.TakerFee
		m.Feed = p.Feed

		tx.SaveMarket(m)
		return nil
	})
}

// CreateUserAccount registers a trader. Positions are created lazily on
// first trade.
func (c *Core) CreateUserAccount(ctx context.Context, owner uuid.UUID) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.UserAccount(owner); err == nil {
			return fmt.Errorf("account %s: %w", owner, ErrAlreadyExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		tx.SaveUserAccount(&ledger.UserAccount{Owner: owner})
		c.log.Info().Stringer("owner", owner).Msg("user account created")
		return nil
	})
}

// AddTreasuryAsset registers a collateral token. Token decimals above the
// amount precision cannot be represented.
func (c *Core) AddTreasuryAsset(ctx context.Context, p AssetParams) error {
	if p.Decimals > fpmath.AmountDecimals {
		return fmt.Errorf("treasury asset %s: %d decimals exceed amount precision", p.Symbol, p.Decimals)
	}

	return c.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.TreasuryAsset(p.Symbol); err == nil {
			return fmt.Errorf("treasury asset %s: %w", p.Symbol, ErrAlreadyExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		tx.SaveTreasuryAsset(&ledger.TreasuryAsset{
			Symbol:         p.Symbol,
			Active:         p.Active,
			TreasuryWeight: p.TreasuryWeight,
			Decimals:       p.Decimals,
			Feed:           p.Feed,
		})

		c.log.Info().Str("symbol", p.Symbol).Msg("treasury asset added")
		return nil
	})
}

// UpdateTreasuryAsset rewrites a collateral token's configuration. Decimals
// are immutable once registered.
func (c *Core) UpdateTreasuryAsset(ctx context.Context, p AssetParams) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		a, err := tx.TreasuryAsset(p.Symbol)
		if err != nil {
			return err
		}

		a.Active = p.Active
		a.TreasuryWeight = p.TreasuryWeight
		a.Feed = p.Feed

		tx.SaveTreasuryAsset(a)
		return nil
	})
}

// AddYieldMarket registers a yield instrument with empty long/short pools.
func (c *Core) AddYieldMarket(ctx context.Context, index uint16, feed string) error {
	return c.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.YieldMarket(index); err == nil {
			return fmt.Errorf("yield market %d: %w", index, ErrAlreadyExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		tx.SaveYieldMarket(&ledger.YieldMarket{
			MarketIndex:   index,
			LastClaimDate: c.clock.Now(),
			Feed:          feed,
		})

		c.log.Info().Uint16("market", index).Str("feed", feed).Msg("yield market added")
		return nil
	})
}
