package validator

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/aisp-verify/internal/deduction"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/metrics"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
)

// #region race

// outcome is one engine's answer, already mapped onto the job's property.
type outcome struct {
	engine  string
	value   logic.TruthValue
	reason  smt.Reason
	verdict smt.Verdict
	proof   *deduction.Proof
	err     error
}

// settle races natural deduction against the SMT engine on one job. The
// first definite answer wins and cancels the other engine; when neither is
// definite the result is Unknown. The error is non-nil only when ctx was
// cancelled by the caller.
func (v *Validator) settle(ctx context.Context, j job) (RuleResult, error) {
	res := j.result
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcome, 2)
	started := 0
	if v.engine != nil {
		started++
		go func() { ch <- v.runSMT(rctx, j) }()
	}
	if v.prover != nil {
		started++
		go func() { ch <- v.runDeduction(rctx, j) }()
	}
	if started == 0 {
		res.Verdict = logic.Unknown
		res.Reason = ReasonNoEngine
		metrics.RecordRace("none")
		return res, nil
	}

	var reasons []smt.Reason
	for i := 0; i < started; i++ {
		o := <-ch
		if o.err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return RuleResult{}, ctx.Err()
			}
			v.logger.Warn("engine failed", "name", res.Name, "engine", o.engine, "error", o.err)
			reasons = append(reasons, smt.ReasonSolverUnknown)
			continue
		}
		if o.value.Definite() {
			cancel()
			metrics.RecordRace(o.engine)
			res.Verdict = o.value
			res.Engine = o.engine
			res.Proof = o.proof
			res.Cached = o.verdict.Cached
			switch {
			case o.proof != nil:
				res.Core = o.proof.Premises
			case j.goal != nil && o.value == logic.False:
				res.Counterexample = o.verdict.Model
			case j.goal != nil || o.value == logic.False:
				res.Core = o.verdict.Core
			}
			v.logger.Debug("property settled", "name", res.Name, "property", res.Property, "verdict", res.Verdict, "engine", o.engine)
			return res, nil
		}
		if o.engine == EngineSMT {
			// The solver's reason is the more specific one.
			reasons = append([]smt.Reason{o.reason}, reasons...)
		} else {
			reasons = append(reasons, o.reason)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return RuleResult{}, ctx.Err()
	}
	metrics.RecordRace("none")
	res.Verdict = logic.Unknown
	for _, r := range reasons {
		if r != smt.ReasonNone {
			res.Reason = r
			break
		}
	}
	if res.Reason == smt.ReasonNone && ctx.Err() != nil {
		res.Reason = smt.ReasonTimeout
	}
	return res, nil
}

// #endregion race

// #region engines

func (v *Validator) runSMT(ctx context.Context, j job) outcome {
	q := smt.Query{Mode: smt.Validity, Axioms: j.premises, Goal: j.goal}
	if j.goal == nil {
		q.Mode = smt.Satisfiability
	}
	verdict, err := v.engine.Check(ctx, q)
	if err != nil {
		return outcome{engine: EngineSMT, err: err}
	}
	return outcome{engine: EngineSMT, value: verdict.Value, reason: verdict.Reason, verdict: verdict}
}

// runDeduction proves the goal, or ⊥ when the job asks for a model: a
// derivation of ⊥ shows the premises inconsistent.
func (v *Validator) runDeduction(ctx context.Context, j job) outcome {
	goal := j.goal
	if goal == nil {
		goal = logic.Truth{}
	}
	proof, err := v.prover.Prove(ctx, goal, j.premises)
	switch {
	case errors.Is(err, deduction.ErrUnsupportedConstruct):
		return outcome{engine: EngineDeduction, value: logic.Unknown, reason: ReasonUnsupported}
	case errors.Is(err, deduction.ErrStepLimit):
		return outcome{engine: EngineDeduction, value: logic.Unknown, reason: ReasonStepLimit}
	case errors.Is(err, context.DeadlineExceeded):
		return outcome{engine: EngineDeduction, value: logic.Unknown, reason: smt.ReasonTimeout}
	case err != nil:
		return outcome{engine: EngineDeduction, err: err}
	}
	if proof.Value != logic.True {
		return outcome{engine: EngineDeduction, value: logic.Unknown, reason: ReasonNoDerivation}
	}
	value := logic.True
	if j.goal == nil {
		value = logic.False
	}
	return outcome{engine: EngineDeduction, value: value, proof: &proof}
}

// #endregion engines
