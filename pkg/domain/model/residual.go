package model

import (
	"math"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// maxDIMEPoints is D*I + M*E with every sub-score at its maximum
const maxDIMEPoints = types.MaxDIME*types.MaxDIME + types.MaxDIME*types.MaxDIME

// Effectiveness computes ((D*I)+(M*E)) / max * 100. A control that was never
// designed or never implemented scores 0 whatever its monitoring and evaluation.
func Effectiveness(design, implementation, monitoring, evaluation types.DIMEScore) float64 {
	if design <= 0 || implementation <= 0 {
		return 0
	}
	points := design.Int()*implementation.Int() + max(monitoring.Int(), 0)*max(evaluation.Int(), 0)
	eff := float64(points) * 100 / float64(maxDIMEPoints)
	return math.Min(eff, 100)
}

// MaxEffectiveness returns the strongest effectiveness, or 0 for none. The
// best control in a dimension governs its reduction; weaker ones add nothing.
func MaxEffectiveness(values ...float64) float64 {
	best := 0.0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return math.Min(best, 100)
}

// ReduceLevel applies a proportional reduction to a 1..5 rating, rounding half
// away from zero and never going below the minimum level.
func ReduceLevel(inherent int, effectiveness float64) int {
	eff := math.Max(0, math.Min(effectiveness, 100))
	reduced := int(math.Round(float64(inherent) * (1 - eff/100)))
	if reduced < types.MinLevel {
		return types.MinLevel
	}
	return reduced
}

// ComputeResidual derives residual likelihood, impact and score from the
// inherent ratings and the controls currently linked to the risk
func ComputeResidual(likelihood types.Likelihood, impact types.Impact, controls []*Control, now time.Time) DerivedState {
	var likelihoodEff, impactEff []float64
	for _, c := range controls {
		switch c.Type {
		case types.ControlTypeLikelihood:
			likelihoodEff = append(likelihoodEff, c.Effectiveness())
		case types.ControlTypeImpact:
			impactEff = append(impactEff, c.Effectiveness())
		}
	}

	residualL := types.Likelihood(ReduceLevel(likelihood.Int(), MaxEffectiveness(likelihoodEff...)))
	residualI := types.Impact(ReduceLevel(impact.Int(), MaxEffectiveness(impactEff...)))

	return DerivedState{
		ResidualLikelihood: residualL,
		ResidualImpact:     residualI,
		ResidualScore:      residualL.Int() * residualI.Int(),
		LastComputedAt:     now,
	}
}
