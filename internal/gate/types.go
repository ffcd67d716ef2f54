package gate

import "github.com/danielpatrickdp/aisp-verify/internal/density"

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoAmbiguity     VetoType = "ambiguity_violation"
	VetoOrthogonality VetoType = "orthogonality_violation"
	VetoInconsistent  VetoType = "inconsistent_rules"
	VetoDisproven     VetoType = "disproven_claim"
	VetoSafety        VetoType = "safety_unresolved"
	VetoTier          VetoType = "tier_below_minimum"
	VetoTypeError     VetoType = "type_error"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region signals
// Signals are the stage outcomes the gate judges. The validator fills them
// after every stage has run.
type Signals struct {
	Tier      density.Tier
	Delta     float64
	Ambiguity float64

	OrthogonalityViolations int
	Inconsistent            bool
	DisprovenClaims         int
	DisprovenSafety         int
	UnresolvedSafety        int
	TypeErrors              int

	// Rule entailment tallies; informational only.
	Proven    int
	Disproven int
	Unknown   int
	Gaps      int

	EvidenceMismatches int
}

// #endregion signals

// #region gate-config
// GateConfig holds thresholds for gate decisions.
type GateConfig struct {
	MaxAmbiguity float64      `yaml:"max_ambiguity" validate:"gt=0,lte=0.02"`
	MinTier      density.Tier `yaml:"min_tier"`
}

// DefaultGateConfig rejects ambiguity at 0.02 and anything below Bronze.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxAmbiguity: density.AmbiguityLimit,
		MinTier:      density.Bronze,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string       `json:"action"` // "accept" | "reject"
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"vetoes,omitempty"`
	SoftScore   float64      `json:"soft_score"` // 0-1 composite, reported only
}

// Valid reports whether the document was accepted.
func (d GateDecision) Valid() bool { return d.Action == "accept" }

// #endregion gate-decision
