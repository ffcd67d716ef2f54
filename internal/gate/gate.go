package gate

import (
	"fmt"
	"math"
)

// #region gate
// Gate decides whether a validated document is accepted.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate collects every hard veto, then scores the soft signals. The
// soft score is computed even for rejected documents so reports can rank
// them; it never changes the action.
func (g *Gate) Evaluate(sig Signals) GateDecision {
	var vetoes []VetoSignal

	// 1. Ambiguity at or above the limit
	if sig.Ambiguity >= g.config.MaxAmbiguity {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoAmbiguity,
			Reason: fmt.Sprintf("ambiguity %.4f reaches limit %.4f", sig.Ambiguity, g.config.MaxAmbiguity),
		})
	}

	// 2. Safety space shares a direction with another space
	if sig.OrthogonalityViolations > 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoOrthogonality,
			Reason: fmt.Sprintf("%d space pair(s) intersect the safety space", sig.OrthogonalityViolations),
		})
	}

	// 3. Rules are jointly unsatisfiable
	if sig.Inconsistent {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInconsistent,
			Reason: "rules admit no model",
		})
	}

	// 4. A Proofs-block claim was refuted
	if sig.DisprovenClaims > 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoDisproven,
			Reason: fmt.Sprintf("%d claim(s) disproven", sig.DisprovenClaims),
		})
	}

	// 5. Safety-critical property not established
	if sig.DisprovenSafety > 0 || sig.UnresolvedSafety > 0 {
		vetoes = append(vetoes, VetoSignal{
			Type: VetoSafety,
			Reason: fmt.Sprintf("safety rules: %d disproven, %d unresolved",
				sig.DisprovenSafety, sig.UnresolvedSafety),
		})
	}

	// 6. Density tier below the floor
	if sig.Tier < g.config.MinTier {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTier,
			Reason: fmt.Sprintf("tier %s below minimum %s (δ=%.3f)", sig.Tier, g.config.MinTier, sig.Delta),
		})
	}

	// 7. Undeclared or redefined types
	if sig.TypeErrors > 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTypeError,
			Reason: fmt.Sprintf("%d type error(s)", sig.TypeErrors),
		})
	}

	softScore := computeSoftScore(sig)

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			SoftScore:   softScore,
		}
	}

	return GateDecision{
		Action:    "accept",
		Reason:    fmt.Sprintf("passed gate: soft_score=%.4f", softScore),
		SoftScore: softScore,
	}
}

// #endregion gate

// #region helpers
// computeSoftScore produces a 0-1 composite from density, proof coverage,
// translation gaps and evidence agreement.
func computeSoftScore(sig Signals) float64 {
	var score float64

	// Density component (weight 0.4)
	score += 0.4 * clamp01(sig.Delta)

	// Proof coverage: share of rules derived from the rest (weight 0.3)
	if total := sig.Proven + sig.Disproven + sig.Unknown; total > 0 {
		score += 0.3 * float64(sig.Proven) / float64(total)
	} else {
		score += 0.15 // neutral when nothing was checked
	}

	// Translation gaps (weight 0.2)
	switch {
	case sig.Gaps == 0:
		score += 0.2
	case sig.Gaps <= 2:
		score += 0.1
	}

	// Evidence block agrees with computed metrics (weight 0.1)
	if sig.EvidenceMismatches == 0 {
		score += 0.1
	}

	return math.Round(score*1e4) / 1e4
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// #endregion helpers
