package smt

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

// #region errors
// Backend failures. Engine maps each onto an Unknown verdict.
var (
	ErrBackendUnavailable = errors.New("smt backend unavailable")
	ErrTimeout            = errors.New("smt timeout")
	ErrResourceLimit      = errors.New("smt resource limit")
)

// #endregion errors

// #region query
// Mode selects what a query asks of the solver.
type Mode string

const (
	// Validity asks whether Goal follows from Axioms. The goal is negated
	// and an unsat answer proves it.
	Validity Mode = "validity"
	// Satisfiability asks whether Axioms, plus Goal when set, have a model.
	Satisfiability Mode = "satisfiability"
)

// Query is one solver question over labelled assertions.
type Query struct {
	Mode   Mode
	Axioms []logic.Named
	Goal   logic.Formula
	// Logic, when set, is emitted as set-logic and suppresses the U and
	// Set sort declarations.
	Logic string
}

// GoalLabel names the goal assertion in scripts and unsat cores.
const GoalLabel = "goal"

// #endregion query

// #region verdict
// Reason qualifies an Unknown verdict.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonTimeout            Reason = "timeout"
	ReasonResourceLimit      Reason = "resource_limit"
	ReasonBackendUnavailable Reason = "backend_unavailable"
	ReasonSolverUnknown      Reason = "solver_unknown"
	ReasonSelfReferential    Reason = "self_referential"
)

// Verdict answers a Query. For Validity, True is Proven with Core as the
// certificate and False is Disproven with Model as the counterexample.
// For Satisfiability, True carries a Model and False an unsat Core.
type Verdict struct {
	Value   logic.TruthValue  `json:"value"`
	Reason  Reason            `json:"reason,omitempty"`
	Core    []string          `json:"core,omitempty"`
	Model   map[string]string `json:"model,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Cached  bool              `json:"cached,omitempty"`
	Retried bool              `json:"retried,omitempty"`
	Elapsed time.Duration     `json:"elapsed_ns,omitempty"`
}

// Unknown builds an Unknown verdict with the given reason.
func Unknown(reason Reason, detail string) Verdict {
	return Verdict{Value: logic.Unknown, Reason: reason, Detail: detail}
}

// #endregion verdict

// #region config
// EngineConfig tunes the solver pool.
type EngineConfig struct {
	Timeout         time.Duration
	Concurrency     int64
	RetrySimplified bool
	RelevanceRounds int
}

// DefaultEngineConfig returns the default engine settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Timeout:         30 * time.Second,
		Concurrency:     4,
		RetrySimplified: true,
		RelevanceRounds: 2,
	}
}

// #endregion config
