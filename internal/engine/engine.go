package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbtracker/internal/domain"
)

// Engine evaluates one asset's strike ladder against its Polymarket quotes
// and reference price. It is stateless: every call builds a fresh Evaluation
// from the inputs alone.
type Engine struct {
	staking StakingParams
	logger  *slog.Logger
	newID   func() string
}

// New builds an Engine with the given staking parameters.
func New(staking StakingParams, logger *slog.Logger) *Engine {
	return &Engine{
		staking: staking,
		logger:  logger.With(slog.String("component", "engine")),
		newID:   func() string { return uuid.New().String() },
	}
}

// Evaluate walks the ladder in ascending strike order and pairs each strike
// with the Polymarket outcome that hedges it:
//
//   - reference above the strike: Kalshi Yes + Polymarket Down
//   - reference below the strike: Kalshi No + Polymarket Up
//   - reference exactly at the strike: both pairings, one check each
//
// Strikes whose gap to the reference falls outside the asset's gap window
// are skipped with a diagnostic. Leg pairings where either ask sits outside
// (0, 1) are skipped silently; a dead book is routine, not reportable.
func (e *Engine) Evaluate(asset domain.AssetConfig, ref domain.ReferencePrice, ladder []domain.StrikeQuote, poly map[string]domain.Quote) domain.Evaluation {
	var eval domain.Evaluation

	if !ref.Known() {
		eval.Diagnostics = append(eval.Diagnostics, "reference price unknown")
		return eval
	}

	for _, sq := range ladder {
		gap := math.Abs(ref.Value - sq.Strike)
		if !asset.GapInRange(gap) {
			eval.Diagnostics = append(eval.Diagnostics,
				fmt.Sprintf("strike %.0f outside gap window (gap %.0f)", sq.Strike, gap))
			continue
		}

		for _, pairing := range e.pairings(ref.Value, sq) {
			polyQuote, ok := poly[pairing.polyLeg]
			if !ok || !polyQuote.Valid() || !pairing.kalshiQuote.Valid() {
				continue
			}

			check := e.buildCheck(asset, ref, sq, gap, pairing, polyQuote)
			eval.Checks = append(eval.Checks, check)
			if check.IsArbitrage {
				eval.Opportunities = append(eval.Opportunities, check)
				e.logger.Info("arbitrage found",
					slog.String("asset", asset.Symbol),
					slog.Float64("strike", sq.Strike),
					slog.String("kalshi_leg", check.KalshiLeg),
					slog.String("poly_leg", check.PolyLeg),
					slog.Float64("total_cost", check.TotalCost),
					slog.Float64("available", check.Available))
			}
		}
	}

	return eval
}

// legPairing names one Kalshi side and the Polymarket outcome hedging it.
type legPairing struct {
	comparison  domain.Comparison
	kalshiLeg   string
	kalshiQuote domain.Quote
	polyLeg     string
}

func (e *Engine) pairings(refValue float64, sq domain.StrikeQuote) []legPairing {
	switch {
	case refValue > sq.Strike:
		return []legPairing{{domain.RefAboveStrike, "Yes", sq.Yes, domain.OutcomeDown}}
	case refValue < sq.Strike:
		return []legPairing{{domain.RefBelowStrike, "No", sq.No, domain.OutcomeUp}}
	default:
		// The reference sits exactly on the strike: either side can win,
		// so both hedged pairings are worth a look.
		return []legPairing{
			{domain.RefEqualStrike, "Yes", sq.Yes, domain.OutcomeDown},
			{domain.RefEqualStrike, "No", sq.No, domain.OutcomeUp},
		}
	}
}

func (e *Engine) buildCheck(asset domain.AssetConfig, ref domain.ReferencePrice, sq domain.StrikeQuote, gap float64, pairing legPairing, polyQuote domain.Quote) domain.OpportunityCheck {
	totalCost := pairing.kalshiQuote.Ask + polyQuote.Ask
	available := math.Min(pairing.kalshiQuote.Size, polyQuote.Size)
	isArb := totalCost > 0 && totalCost < 1 && available > 0

	check := domain.OpportunityCheck{
		ID:             e.newID(),
		Asset:          asset.Symbol,
		KalshiStrike:   sq.Strike,
		ReferencePrice: ref.Value,
		Gap:            gap,
		Comparison:     pairing.comparison,
		KalshiLeg:      pairing.kalshiLeg,
		PolyLeg:        pairing.polyLeg,
		KalshiCost:     pairing.kalshiQuote.Ask,
		PolyCost:       polyQuote.Ask,
		TotalCost:      totalCost,
		Available:      available,
		IsArbitrage:    isArb,
	}
	if isArb {
		check.Margin = 1 - totalCost
		check.StakeFraction = e.staking.StakeFraction(totalCost)
	}
	return check
}
