package engine

// StakingParams controls the Kelly sizing applied to profitable checks.
type StakingParams struct {
	// KellyFraction scales the full Kelly stake down (0.25 = quarter Kelly).
	KellyFraction float64
	// Confidence discounts the win probability to account for fills and
	// fees not modelled in the quotes.
	Confidence float64
	// MaxFraction is the hard cap on the bankroll fraction.
	MaxFraction float64
}

// StakeFraction sizes a position for a paired trade with the given total
// cost per contract. A completed pair pays out exactly one unit, so the net
// odds are b = 1/cost - 1 and the fractional Kelly stake is
//
//	f = kellyFraction * (confidence*(b+1) - 1) / b
//
// clamped to [0, MaxFraction]. Costs at or beyond the payout unit have no
// edge and stake zero.
func (p StakingParams) StakeFraction(totalCost float64) float64 {
	if totalCost <= 0 || totalCost >= 1 {
		return 0
	}

	b := 1/totalCost - 1
	f := p.KellyFraction * (p.Confidence*(b+1) - 1) / b
	if f <= 0 {
		return 0
	}
	if f > p.MaxFraction {
		return p.MaxFraction
	}
	return f
}
