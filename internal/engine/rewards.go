package engine

import (
	"SynthLedger/internal/fpmath"
	"SynthLedger/internal/ledger"
)

// RewardsAvailable is the exchange-level pool eligible for distribution:
// max(0, pnl+rewards+fees+rebates) * reward_rate / 10^9.
func RewardsAvailable(x *ledger.Exchange) int64 {
	total := x.Pnl + x.Rewards + x.Fees + x.Rebates
	if total < 0 {
		return 0
	}
	return fpmath.MulDiv(total, x.RewardRate, fpmath.AmountScale)
}

// ClaimRewards distributes the caller's pro-rata share of the exchange
// reward pool, gated by the reward cooldown. In strict mode a blocked or
// empty claim is an error; in probe mode (the deposit path) it is a silent
// zero. The user's share excludes previously credited rewards so they are
// not counted twice.
func (e *Engine) ClaimRewards(x *ledger.Exchange, a *ledger.UserAccount, now int64, strict bool) (int64, error) {
	if a.LastRewardsClaim+x.RewardFrequency > now {
		if strict {
			return 0, ErrRewardsClaimUnavailable
		}
		return 0, nil
	}

	userTotal := UserAvailable(a, x.Leverage) - a.Rewards
	exchangeTotal := ExchangeTotal(x)
	pool := RewardsAvailable(x)

	if exchangeTotal <= 0 {
		if strict {
			return 0, ErrNoRewardsAvailable
		}
		return 0, nil
	}

	amount := fpmath.MulDiv(pool, userTotal, exchangeTotal)
	if amount < 0 {
		if strict {
			return 0, ErrNoRewardsAvailable
		}
		return 0, nil
	}

	x.Rewards -= amount
	a.Rewards += amount
	x.LastRewardsClaim = now
	a.LastRewardsClaim = now

	return amount, nil
}
