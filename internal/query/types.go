package query

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SynthLedger/internal/fpmath"
)

// amountString renders an amount-unit value (10^9) as a decimal string.
// Display only; nothing downstream parses these back.
func amountString(v int64) string {
	return decimal.New(v, -int32(fpmath.AmountDecimals)).String()
}

// PositionView is one position in an account summary.
type PositionView struct {
	MarketIndex uint16 `json:"market_index"`
	TokenAmount int64  `json:"token_amount"`
	Basis       int64  `json:"basis"`
	Pnl         int64  `json:"pnl"`
	Fees        int64  `json:"fees"`
	Rebates     int64  `json:"rebates"`
	MarginUsed  int64  `json:"margin_used"`
}

// AccountSummary is the query view of one trader.
type AccountSummary struct {
	Owner            uuid.UUID      `json:"owner"`
	CollateralValue  int64          `json:"collateral_value"`
	Collateral       string         `json:"collateral"`
	MarginUsed       int64          `json:"margin_used"`
	Basis            int64          `json:"basis"`
	Pnl              int64          `json:"pnl"`
	Fees             int64          `json:"fees"`
	Rebates          int64          `json:"rebates"`
	Rewards          int64          `json:"rewards"`
	Available        int64          `json:"available"`
	LastRewardsClaim int64          `json:"last_rewards_claim"`
	Positions        []PositionView `json:"positions"`
}

// MarketSummary is the query view of one synthetic market.
type MarketSummary struct {
	MarketIndex  uint16 `json:"market_index"`
	TokenAmount  int64  `json:"token_amount"`
	Basis        int64  `json:"basis"`
	Pnl          int64  `json:"pnl"`
	Fees         int64  `json:"fees"`
	Rebates      int64  `json:"rebates"`
	MarginUsed   int64  `json:"margin_used"`
	Leverage     int64  `json:"leverage"`
	MarketWeight int64  `json:"market_weight"`
	MakerFee     int64  `json:"maker_fee"`
	TakerFee     int64  `json:"taker_fee"`
	Feed         string `json:"feed"`
	Available    int64  `json:"available"`
}

// ExchangeSummary is the query view of the venue.
type ExchangeSummary struct {
	Leverage         int64  `json:"leverage"`
	MarketWeight     int64  `json:"market_weight"`
	MarginUsed       int64  `json:"margin_used"`
	Basis            int64  `json:"basis"`
	Pnl              int64  `json:"pnl"`
	Fees             int64  `json:"fees"`
	Rebates          int64  `json:"rebates"`
	Rewards          int64  `json:"rewards"`
	CollateralValue  int64  `json:"collateral_value"`
	Collateral       string `json:"collateral"`
	NumberOfMarkets  uint16 `json:"number_of_markets"`
	Total            int64  `json:"total"`
	Available        int64  `json:"available"`
	RewardsAvailable int64  `json:"rewards_available"`
	TestMode         bool   `json:"test_mode"`
}

// PriceView is the query rendering of one oracle quote.
type PriceView struct {
	Feed        string `json:"feed"`
	Price       int64  `json:"price"`
	Decimals    uint8  `json:"decimals"`
	Description string `json:"description"`
	Display     string `json:"display"`
}
