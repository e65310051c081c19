package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/command"
)

// ParseRawCommand converts a RawCommand into a typed command based on its
// subject family. Field names use snake_case to match upstream producers.
func ParseRawCommand(raw RawCommand) (command.Command, error) {
	switch {
	case strings.HasPrefix(raw.Subject, "synth.trades."):
		return parseTrade(raw.Data)
	case strings.HasPrefix(raw.Subject, "synth.deposits."):
		return parseDeposit(raw.Data)
	case strings.HasPrefix(raw.Subject, "synth.withdrawals."):
		return parseWithdraw(raw.Data)
	case strings.HasPrefix(raw.Subject, "synth.yield."):
		return parseYieldUpdate(raw.Data)
	case strings.HasPrefix(raw.Subject, "synth.claims."):
		return parseClaimRewards(raw.Data)
	case strings.HasPrefix(raw.Subject, "synth.prices."):
		return parsePriceUpdate(raw.Data)
	default:
		return nil, fmt.Errorf("unknown subject: %s", raw.Subject)
	}
}

type tradeJSON struct {
	IntentID    string `json:"intent_id"`
	Owner       string `json:"owner"`
	MarketIndex uint16 `json:"market_index"`
	Amount      int64  `json:"amount"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseTrade(data []byte) (*command.Trade, error) {
	var j tradeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse trade: %w", err)
	}

	intentID, err := uuid.Parse(j.IntentID)
	if err != nil {
		return nil, fmt.Errorf("parse intent_id: %w", err)
	}
	owner, err := uuid.Parse(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}

	return &command.Trade{
		IntentID:    intentID,
		Owner:       owner,
		MarketIndex: j.MarketIndex,
		Amount:      j.Amount,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type collateralJSON struct {
	IntentID    string `json:"intent_id"`
	Owner       string `json:"owner"`
	Symbol      string `json:"symbol"`
	Amount      int64  `json:"amount"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseDeposit(data []byte) (*command.Deposit, error) {
	var j collateralJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse deposit: %w", err)
	}

	intentID, err := uuid.Parse(j.IntentID)
	if err != nil {
		return nil, fmt.Errorf("parse intent_id: %w", err)
	}
	owner, err := uuid.Parse(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	if j.Symbol == "" {
		return nil, fmt.Errorf("deposit: empty symbol")
	}

	return &command.Deposit{
		IntentID:  intentID,
		Owner:     owner,
		Symbol:    j.Symbol,
		Amount:    j.Amount,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseWithdraw(data []byte) (*command.Withdraw, error) {
	var j collateralJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse withdraw: %w", err)
	}

	intentID, err := uuid.Parse(j.IntentID)
	if err != nil {
		return nil, fmt.Errorf("parse intent_id: %w", err)
	}
	owner, err := uuid.Parse(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	if j.Symbol == "" {
		return nil, fmt.Errorf("withdraw: empty symbol")
	}

	return &command.Withdraw{
		IntentID:  intentID,
		Owner:     owner,
		Symbol:    j.Symbol,
		Amount:    j.Amount,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type yieldJSON struct {
	IntentID    string `json:"intent_id"`
	Owner       string `json:"owner"`
	MarketIndex uint16 `json:"market_index"`
	LongDelta   int64  `json:"long_delta"`
	ShortDelta  int64  `json:"short_delta"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseYieldUpdate(data []byte) (*command.YieldUpdate, error) {
	var j yieldJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse yield update: %w", err)
	}

	intentID, err := uuid.Parse(j.IntentID)
	if err != nil {
		return nil, fmt.Errorf("parse intent_id: %w", err)
	}
	owner, err := uuid.Parse(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}

	return &command.YieldUpdate{
		IntentID:    intentID,
		Owner:       owner,
		MarketIndex: j.MarketIndex,
		LongDelta:   j.LongDelta,
		ShortDelta:  j.ShortDelta,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type claimJSON struct {
	IntentID    string `json:"intent_id"`
	Owner       string `json:"owner"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseClaimRewards(data []byte) (*command.ClaimRewards, error) {
	var j claimJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse claim: %w", err)
	}

	intentID, err := uuid.Parse(j.IntentID)
	if err != nil {
		return nil, fmt.Errorf("parse intent_id: %w", err)
	}
	owner, err := uuid.Parse(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}

	return &command.ClaimRewards{
		IntentID:  intentID,
		Owner:     owner,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type priceJSON struct {
	Feed        string `json:"feed"`
	Price       int64  `json:"price"`
	Decimals    uint8  `json:"decimals"`
	Description string `json:"description"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parsePriceUpdate(data []byte) (*command.PriceUpdate, error) {
	var j priceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse price update: %w", err)
	}
	if j.Feed == "" {
		return nil, fmt.Errorf("price update: empty feed")
	}
	if j.Price <= 0 {
		return nil, fmt.Errorf("price update: non-positive price %d", j.Price)
	}

	return &command.PriceUpdate{
		Feed:        j.Feed,
		Price:       j.Price,
		Decimals:    j.Decimals,
		Description: j.Description,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}
