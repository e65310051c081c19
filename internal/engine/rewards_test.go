package engine_test

import (
	"errors"
	"testing"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
)

func rewardableExchange() *ledger.Exchange {
	return &ledger.Exchange{
		Leverage:        100_000, // 10x
		MarketWeight:    10_000,
		CollateralValue: 10_000 * unit,
		Fees:            1_000 * unit,
		RewardFrequency: 3_600,
		RewardRate:      100_000_000, // 10% of the distributable total
	}
}

// ============================================================================
// Test: RewardsAvailable
// ============================================================================

func TestRewardsAvailable(t *testing.T) {
	x := rewardableExchange()
	// (0 pnl + 0 rewards + 1000 fees + 0 rebates) * 0.1
	if got := engine.RewardsAvailable(x); got != 100*unit {
		t.Errorf("got %d, want %d", got, 100*unit)
	}
}

func TestRewardsAvailable_NegativeTotalIsZero(t *testing.T) {
	x := rewardableExchange()
	x.Pnl = -2_000 * unit
	if got := engine.RewardsAvailable(x); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

// ============================================================================
// Test: ClaimRewards
// ============================================================================

func TestClaimRewards_ProRataShare(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	a := &ledger.UserAccount{CollateralValue: 1_000 * unit}

	amount, err := e.ClaimRewards(x, a, 10_000, true)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// pool 100, user total 10000 of exchange total 100000: 10% slice.
	if amount != 10*unit {
		t.Errorf("amount: got %d, want %d", amount, 10*unit)
	}
	if x.Rewards != -10*unit {
		t.Errorf("exchange rewards: got %d, want %d", x.Rewards, -10*unit)
	}
	if a.Rewards != 10*unit {
		t.Errorf("account rewards: got %d, want %d", a.Rewards, 10*unit)
	}
	if x.LastRewardsClaim != 10_000 || a.LastRewardsClaim != 10_000 {
		t.Error("claim timestamps should advance to now")
	}
}

func TestClaimRewards_PriorRewardsExcludedFromShare(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	fresh := &ledger.UserAccount{CollateralValue: 1_000 * unit}
	credited := &ledger.UserAccount{CollateralValue: 1_000 * unit, Rewards: 50 * unit}

	freshAmount, err := e.ClaimRewards(x, fresh, 10_000, true)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	x2 := rewardableExchange()
	creditedAmount, err := e.ClaimRewards(x2, credited, 10_000, true)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// credited: userTotal = (1000+50)*10 - 50 = 10450, pool 100 of 100000.
	if creditedAmount != 10_450_000_000 {
		t.Errorf("credited claim: got %d, want 10450000000", creditedAmount)
	}
	if freshAmount != 10*unit {
		t.Errorf("fresh claim: got %d, want %d", freshAmount, 10*unit)
	}
}

func TestClaimRewards_CooldownStrict(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	a := &ledger.UserAccount{CollateralValue: 1_000 * unit, LastRewardsClaim: 9_000}

	_, err := e.ClaimRewards(x, a, 10_000, true)
	if !errors.Is(err, engine.ErrRewardsClaimUnavailable) {
		t.Errorf("got %v, want ErrRewardsClaimUnavailable", err)
	}
	if a.Rewards != 0 || x.Rewards != 0 {
		t.Error("blocked claim must not move balances")
	}
}

func TestClaimRewards_CooldownProbeIsSilent(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	a := &ledger.UserAccount{CollateralValue: 1_000 * unit, LastRewardsClaim: 9_000}

	amount, err := e.ClaimRewards(x, a, 10_000, false)
	if err != nil {
		t.Errorf("probe mode: got %v, want nil", err)
	}
	if amount != 0 {
		t.Errorf("probe mode: got %d, want 0", amount)
	}
}

func TestClaimRewards_EmptyExchangeStrict(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	x.CollateralValue = 0
	a := &ledger.UserAccount{CollateralValue: 1_000 * unit}

	_, err := e.ClaimRewards(x, a, 10_000, true)
	if !errors.Is(err, engine.ErrNoRewardsAvailable) {
		t.Errorf("got %v, want ErrNoRewardsAvailable", err)
	}
}

func TestClaimRewards_EmptyExchangeProbeIsSilent(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	x.CollateralValue = 0
	a := &ledger.UserAccount{CollateralValue: 1_000 * unit}

	amount, err := e.ClaimRewards(x, a, 10_000, false)
	if err != nil || amount != 0 {
		t.Errorf("probe mode: got amount=%d err=%v, want 0/nil", amount, err)
	}
}

func TestClaimRewards_NegativeShareStrict(t *testing.T) {
	e := engine.New(engine.IdentityPricing{})
	x := rewardableExchange()
	// Deep underwater account: UserAvailable goes negative.
	a := &ledger.UserAccount{CollateralValue: unit, Pnl: -100 * unit}

	_, err := e.ClaimRewards(x, a, 10_000, true)
	if !errors.Is(err, engine.ErrNoRewardsAvailable) {
		t.Errorf("got %v, want ErrNoRewardsAvailable", err)
	}
}
