package validator

import (
	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/deduction"
	"github.com/danielpatrickdp/aisp-verify/internal/density"
	"github.com/danielpatrickdp/aisp-verify/internal/gate"
	"github.com/danielpatrickdp/aisp-verify/internal/invariant"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
	"github.com/danielpatrickdp/aisp-verify/internal/trivector"
)

// #region diagnostics

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindSizeLimitExceeded      Kind = "size_limit_exceeded"
	KindUnsupportedExtension   Kind = "unsupported_extension"
	KindLexError               Kind = "lex_error"
	KindParseError             Kind = "parse_error"
	KindAmbiguityViolation     Kind = "ambiguity_violation"
	KindOrthogonalityViolation Kind = "orthogonality_violation"
	KindInconsistent           Kind = "inconsistent"
	KindDisprovenClaim         Kind = "disproven_claim"
	KindSafetyUnresolved       Kind = "safety_unresolved"
	KindSmtUnknown             Kind = "smt_unknown"
	KindSmtTimeout             Kind = "smt_timeout"
	KindUnsupportedConstruct   Kind = "proof_unsupported_construct"
	KindEvidenceMismatch       Kind = "evidence_mismatch"
	KindTierBelowMinimum       Kind = "tier_below_minimum"
	KindUndefinedType          Kind = "undefined_type"
	KindDuplicateDefinition    Kind = "duplicate_definition"
	KindTypeError              Kind = "type_error"
)

// Location points into the source. Findings about the whole document sit
// at offset 0 in the Document scope.
type Location struct {
	Offset int          `json:"offset"`
	Line   int          `json:"line,omitempty"`
	Col    int          `json:"col,omitempty"`
	Block  ast.BlockTag `json:"block,omitempty"`
}

// Diagnostic is one finding about the document.
type Diagnostic struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// #endregion diagnostics

// #region properties

// Property names what a verification result is about.
type Property string

const (
	PropConsistency   Property = "consistency"
	PropEntailment    Property = "entailment"
	PropClaim         Property = "claim"
	PropSafety        Property = "safety"
	PropSelfReference Property = "self_reference"
)

// Reasons for Unknown outcomes that do not come from the solver.
const (
	ReasonUnsupported  smt.Reason = "unsupported_construct"
	ReasonStepLimit    smt.Reason = "step_limit"
	ReasonNoEngine     smt.Reason = "no_engine"
	ReasonNoDerivation smt.Reason = "no_derivation"
)

// Engines that can settle a property.
const (
	EngineDeduction = "deduction"
	EngineSMT       = "smt"
)

// RuleResult is the verdict for one property. For consistency and safety
// properties, True means a model exists.
type RuleResult struct {
	Name           string            `json:"name"`
	Property       Property          `json:"property"`
	Block          ast.BlockTag      `json:"block,omitempty"`
	Offset         int               `json:"offset"`
	Source         string            `json:"source,omitempty"`
	Verdict        logic.TruthValue  `json:"verdict"`
	Reason         smt.Reason        `json:"reason,omitempty"`
	Engine         string            `json:"engine,omitempty"`
	Core           []string          `json:"core,omitempty"`
	Counterexample map[string]string `json:"counterexample,omitempty"`
	Proof          *deduction.Proof  `json:"proof,omitempty"`
	Cached         bool              `json:"cached,omitempty"`
}

// #endregion properties

// #region result

// Result is the outcome of validating one document. It is not modified
// after Validate returns.
type Result struct {
	Document    string  `json:"document"`
	ContentHash string  `json:"content_hash"`
	RunID       string  `json:"run_id,omitempty"`
	Valid       bool    `json:"valid"`
	Tier        string  `json:"tier"`
	TierGlyph   string  `json:"tier_glyph"`
	Delta       float64 `json:"delta"`
	Ambiguity   float64 `json:"ambiguity"`
	PureDensity float64 `json:"pure_density"`
	SoftScore   float64 `json:"soft_score"`

	Rules       []RuleResult          `json:"rules"`
	Invariants  []invariant.Invariant `json:"invariants"`
	Diagnostics []Diagnostic          `json:"diagnostics"`
	Trivector   *trivector.Report     `json:"trivector,omitempty"`
	Density     *density.Metrics      `json:"density,omitempty"`
	Divergences []density.Divergence  `json:"divergences,omitempty"`
	Decision    *gate.GateDecision    `json:"decision,omitempty"`
	Fingerprint string                `json:"fingerprint,omitempty"`
}

// Errors returns the error-severity diagnostics.
func (r *Result) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Rule returns the named result, if present.
func (r *Result) Rule(name string) (RuleResult, bool) {
	for _, rr := range r.Rules {
		if rr.Name == name {
			return rr, true
		}
	}
	return RuleResult{}, false
}

// #endregion result
