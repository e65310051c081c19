package engine

import "SynthLedger/internal/fpmath"

// PricePerturbation adjusts the raw oracle price before settlement. The
// production venue always trades at the raw price; test deployments use a
// deterministic jitter so repeated settlements exercise PnL paths without a
// moving market. Strategy selection happens once at wiring time, never as a
// branch inside business logic.
type PricePerturbation interface {
	Perturb(price int64, now int64) int64
}

// IdentityPricing returns the oracle price unchanged.
type IdentityPricing struct{}

func (IdentityPricing) Perturb(price int64, now int64) int64 {
	return price
}

// JitterPricing scales the price by 1 + d/100 where d is the last decimal
// digit of the current unix timestamp. Deterministic for a fixed clock.
type JitterPricing struct{}

func (JitterPricing) Perturb(price int64, now int64) int64 {
	digit := now % 10
	if digit < 0 {
		digit += 10
	}
	return fpmath.MulDiv(price, 100+digit, 100)
}
