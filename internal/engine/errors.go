package engine

import "errors"

// Solvency and distribution failures. Each aborts the whole transition; the
// caller discards the mutated snapshot entirely, no compensating writes.
var (
	ErrUserMarginInsufficient     = errors.New("user margin is insufficient")
	ErrMarketMarginInsufficient   = errors.New("market margin is insufficient")
	ErrExchangeMarginInsufficient = errors.New("exchange margin is insufficient")

	ErrYieldAmountInsufficient = errors.New("yield amount insufficient")

	ErrRewardsClaimUnavailable = errors.New("rewards claim unavailable")
	ErrNoRewardsAvailable      = errors.New("no rewards available")
)
