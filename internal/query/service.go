// Package query serves read-only views over the ledger records. Derived
// solvency numbers are recomputed at query time with the same engine
// formulas the settlement path uses.
package query

import (
	"context"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/store"
)

type Service struct {
	store  store.Store
	oracle oracle.PriceOracle
}

func NewService(st store.Store, po oracle.PriceOracle) *Service {
	return &Service{store: st, oracle: po}
}

// Account returns one trader's summary with their open positions.
func (s *Service) Account(ctx context.Context, owner uuid.UUID) (*AccountSummary, error) {
	var out *AccountSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}
		a, err := tx.UserAccount(owner)
		if err != nil {
			return err
		}
		positions, err := tx.UserPositions(owner)
		if err != nil {
			return err
		}

		views := make([]PositionView, 0, len(positions))
		for _, p := range positions {
			views = append(views, PositionView{
				MarketIndex: p.MarketIndex,
				TokenAmount: p.TokenAmount,
				Basis:       p.Basis,
				Pnl:         p.Pnl,
				Fees:        p.Fees,
				Rebates:     p.Rebates,
				MarginUsed:  p.MarginUsed,
			})
		}

		out = &AccountSummary{
			Owner:            a.Owner,
			CollateralValue:  a.CollateralValue,
			Collateral:       amountString(a.CollateralValue),
			MarginUsed:       a.MarginUsed,
			Basis:            a.Basis,
			Pnl:              a.Pnl,
			Fees:             a.Fees,
			Rebates:          a.Rebates,
			Rewards:          a.Rewards,
			Available:        engine.UserAvailable(a, x.Leverage),
			LastRewardsClaim: a.LastRewardsClaim,
			Positions:        views,
		}
		return nil
	})
	return out, err
}

// Market returns one market's summary.
func (s *Service) Market(ctx context.Context, index uint16) (*MarketSummary, error) {
	var out *MarketSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}
		m, err := tx.Market(index)
		if err != nil {
			return err
		}

		out = &MarketSummary{
			MarketIndex:  m.MarketIndex,
			TokenAmount:  m.TokenAmount,
			Basis:        m.Basis,
			Pnl:          m.Pnl,
			Fees:         m.Fees,
			Rebates:      m.Rebates,
			MarginUsed:   m.MarginUsed,
			Leverage:     m.Leverage,
			MarketWeight: m.MarketWeight,
			MakerFee:     m.MakerFee,
			TakerFee:     m.TakerFee,
			Feed:         m.Feed,
			Available:    engine.MarketAvailable(x, m),
		}
		return nil
	})
	return out, err
}

// Markets returns summaries for every registered market.
func (s *Service) Markets(ctx context.Context) ([]MarketSummary, error) {
	var out []MarketSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}
		markets, err := tx.Markets()
		if err != nil {
			return err
		}

		out = make([]MarketSummary, 0, len(markets))
		for _, m := range markets {
			out = append(out, MarketSummary{
				MarketIndex:  m.MarketIndex,
				TokenAmount:  m.TokenAmount,
				Basis:        m.Basis,
				Pnl:          m.Pnl,
				Fees:         m.Fees,
				Rebates:      m.Rebates,
				MarginUsed:   m.MarginUsed,
				Leverage:     m.Leverage,
				MarketWeight: m.MarketWeight,
				MakerFee:     m.MakerFee,
				TakerFee:     m.TakerFee,
				Feed:         m.Feed,
				Available:    engine.MarketAvailable(x, m),
			})
		}
		return nil
	})
	return out, err
}

// Exchange returns the venue summary with derived solvency numbers.
func (s *Service) Exchange(ctx context.Context) (*ExchangeSummary, error) {
	var out *ExchangeSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		x, err := tx.Exchange()
		if err != nil {
			return err
		}

		out = &ExchangeSummary{
			Leverage:         x.Leverage,
			MarketWeight:     x.MarketWeight,
			MarginUsed:       x.MarginUsed,
			Basis:            x.Basis,
			Pnl:              x.Pnl,
			Fees:             x.Fees,
			Rebates:          x.Rebates,
			Rewards:          x.Rewards,
			CollateralValue:  x.CollateralValue,
			Collateral:       amountString(x.CollateralValue),
			NumberOfMarkets:  x.NumberOfMarkets,
			Total:            engine.ExchangeTotal(x),
			Available:        engine.ExchangeAvailable(x),
			RewardsAvailable: engine.RewardsAvailable(x),
			TestMode:         x.TestMode,
		}
		return nil
	})
	return out, err
}

// Price returns the latest reading for a feed.
func (s *Service) Price(ctx context.Context, feed string) (*PriceView, error) {
	q, err := s.oracle.LatestQuote(feed)
	if err != nil {
		return nil, err
	}
	return &PriceView{
		Feed:        feed,
		Price:       q.Price,
		Decimals:    q.Decimals,
		Description: q.Description,
		Display:     q.Decimal().String(),
	}, nil
}
