package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
	"github.com/danielpatrickdp/aisp-verify/internal/translate"
	"github.com/danielpatrickdp/aisp-verify/internal/trivector"
)

// job is one property handed to the hybrid race. A nil goal asks whether
// the premises have a model.
type job struct {
	result   RuleResult
	goal     logic.Formula
	premises []logic.Named
}

// #region plan

// prove builds one job per property, runs them concurrently and records
// the outcomes in document order.
func (r *run) prove(ctx context.Context) error {
	var assumed map[string]logic.Named
	r.stage(ctx, "assume", func(context.Context) { assumed = r.translateInvariants() })
	axioms := r.tr.Axioms()

	var jobs []job
	rules := make([]logic.Named, len(r.rules))
	for i, rule := range r.rules {
		rules[i] = rule.Named()
	}

	// 1. Rules admit a model
	if len(rules) > 0 {
		jobs = append(jobs, job{
			result:   RuleResult{Name: "rules", Property: PropConsistency, Block: ast.Rules, Offset: r.blockOffset(ast.Rules)},
			premises: concat(axioms, rules),
		})
	}

	// 2. Each rule follows from everything else
	for i, rule := range r.rules {
		premises := concat(axioms, without(rules, i), r.assumable(assumed, ast.Rules, rule.Offset))
		jobs = append(jobs, job{
			result:   RuleResult{Name: rule.Name, Property: PropEntailment, Block: ast.Rules, Offset: rule.Offset, Source: rule.Source},
			goal:     rule.Formula,
			premises: premises,
		})
	}

	// 3. Proofs-block claims hold
	for _, claim := range r.claims {
		premises := concat(axioms, rules, r.assumable(assumed, ast.Proofs, claim.Offset))
		jobs = append(jobs, job{
			result:   RuleResult{Name: claim.Name, Property: PropClaim, Block: ast.Proofs, Offset: claim.Offset, Source: claim.Source},
			goal:     claim.Formula,
			premises: premises,
		})
	}

	// 4. Safety rules admit a model on their own
	if safety, missing := r.safetyRules(); len(safety) > 0 || len(missing) > 0 {
		res := RuleResult{Name: "safety", Property: PropSafety, Block: ast.Rules, Offset: r.blockOffset(ast.Rules)}
		if len(missing) > 0 {
			res.Verdict = logic.Unknown
			res.Reason = ReasonUnsupported
			res.Source = strings.Join(missing, "; ")
			r.res.Rules = append(r.res.Rules, res)
		} else {
			jobs = append(jobs, job{result: res, premises: concat(axioms, safety)})
		}
	}

	// 5. Self-referential statements and other gaps are recorded, not proved
	for _, gap := range r.gaps {
		block := ast.Rules
		if strings.HasPrefix(gap.Name, "claim_") {
			block = ast.Proofs
		}
		res := RuleResult{Name: gap.Name, Block: block, Offset: gap.Offset, Source: gap.Source, Verdict: logic.Unknown}
		if errors.Is(gap.Err, translate.ErrSelfReferential) {
			res.Property = PropSelfReference
			res.Reason = smt.ReasonSelfReferential
		} else {
			res.Property = PropEntailment
			if block == ast.Proofs {
				res.Property = PropClaim
			}
			res.Reason = ReasonUnsupported
		}
		r.res.Rules = append(r.res.Rules, res)
	}

	results := make([]RuleResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(r.v.cfg.SMT.Concurrency))
	for i := range jobs {
		g.Go(func() error {
			var res RuleResult
			var err error
			r.stage(gctx, "prove", func(sctx context.Context) { res, err = r.v.settle(sctx, jobs[i]) })
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.res.Rules = append(results, r.res.Rules...)
	sort.SliceStable(r.res.Rules, func(i, j int) bool {
		a, b := r.res.Rules[i], r.res.Rules[j]
		if propertyOrder[a.Property] != propertyOrder[b.Property] {
			return propertyOrder[a.Property] < propertyOrder[b.Property]
		}
		return a.Offset < b.Offset
	})
	r.propertyDiagnostics()
	return nil
}

var propertyOrder = map[Property]int{
	PropConsistency:   0,
	PropEntailment:    1,
	PropClaim:         2,
	PropSafety:        3,
	PropSelfReference: 4,
}

// #endregion plan

// #region premises

// translateInvariants translates every invariant confident enough to be
// assumed. Invariants that do not translate are skipped.
func (r *run) translateInvariants() map[string]logic.Named {
	out := map[string]logic.Named{}
	for _, inv := range r.v.discoverer.Assumable(r.invs, "", -1) {
		f, err := r.tr.Expr(inv.Expr)
		if err != nil {
			r.v.logger.Debug("invariant not assumed", "id", inv.ID, "error", err)
			continue
		}
		out[inv.ID] = logic.Named{Name: "inv_" + inv.ID, F: f}
	}
	return out
}

// assumable lists the translated invariants usable while proving the
// statement at offset in block.
func (r *run) assumable(translated map[string]logic.Named, block ast.BlockTag, offset int) []logic.Named {
	var out []logic.Named
	for _, inv := range r.v.discoverer.Assumable(r.invs, block, offset) {
		if n, ok := translated[inv.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// safetyRules returns the translated Rules-block statements that use the
// safety lexicon, and the sources of those that did not translate.
func (r *run) safetyRules() ([]logic.Named, []string) {
	stmts := r.doc.Statements(ast.Rules)
	isSafety := func(idx int) bool {
		if idx < 0 || idx >= len(stmts) {
			return false
		}
		for _, tok := range trivector.StatementTokens(stmts[idx]) {
			if trivector.IsSafetyToken(tok) {
				return true
			}
		}
		return false
	}
	var named []logic.Named
	for _, rule := range r.rules {
		if isSafety(rule.Index) {
			named = append(named, rule.Named())
		}
	}
	var missing []string
	for _, gap := range r.gaps {
		if strings.HasPrefix(gap.Name, "rule_") && isSafety(gap.Index) {
			missing = append(missing, gap.Source)
		}
	}
	return named, missing
}

func (r *run) blockOffset(tag ast.BlockTag) int {
	if b := r.doc.Block(tag); b != nil {
		return b.Offset
	}
	return -1
}

func concat(parts ...[]logic.Named) []logic.Named {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]logic.Named, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func without(named []logic.Named, i int) []logic.Named {
	out := make([]logic.Named, 0, len(named)-1)
	out = append(out, named[:i]...)
	return append(out, named[i+1:]...)
}

// #endregion premises

// #region diagnostics

// propertyDiagnostics turns property outcomes into diagnostics.
func (r *run) propertyDiagnostics() {
	for _, rr := range r.res.Rules {
		switch rr.Property {
		case PropConsistency:
			switch rr.Verdict {
			case logic.False:
				r.diag(KindInconsistent, SeverityError, rr.Offset, rr.Block,
					fmt.Sprintf("rules admit no model; conflicting: %s", strings.Join(rr.Core, ", ")))
			case logic.Unknown:
				r.unknown(rr, SeverityInfo, "rule consistency")
			}
		case PropClaim:
			switch rr.Verdict {
			case logic.False:
				r.diag(KindDisprovenClaim, SeverityError, rr.Offset, rr.Block,
					fmt.Sprintf("%s %s is refuted%s", rr.Name, rr.Source, counterexample(rr.Counterexample)))
			case logic.Unknown:
				r.unknown(rr, SeverityWarning, rr.Name)
			}
		case PropSafety:
			switch rr.Verdict {
			case logic.False:
				r.diag(KindSafetyUnresolved, SeverityError, rr.Offset, rr.Block,
					fmt.Sprintf("safety rules admit no model; conflicting: %s", strings.Join(rr.Core, ", ")))
			case logic.Unknown:
				msg := fmt.Sprintf("safety rules could not be shown consistent (%s)", rr.Reason)
				if rr.Source != "" {
					msg += ": " + rr.Source
				}
				r.diag(KindSafetyUnresolved, SeverityError, rr.Offset, rr.Block, msg)
			}
		case PropEntailment:
			if rr.Reason == ReasonUnsupported {
				r.diag(KindUnsupportedConstruct, SeverityInfo, rr.Offset, rr.Block,
					fmt.Sprintf("%s %s could not be checked: unsupported construct", rr.Name, rr.Source))
			}
		case PropSelfReference:
			r.diag(KindSmtUnknown, SeverityInfo, rr.Offset, rr.Block,
				fmt.Sprintf("%s %s is about the document's own validation and is left undecided", rr.Name, rr.Source))
		}
	}
	for _, gap := range r.tr.DefinitionGaps() {
		r.diag(KindUnsupportedConstruct, SeverityInfo, gap.Offset, "",
			fmt.Sprintf("definition %s has no logical reading: %v", gap.Name, gap.Err))
	}
}

func (r *run) unknown(rr RuleResult, sev Severity, what string) {
	kind := KindSmtUnknown
	if rr.Reason == smt.ReasonTimeout {
		kind = KindSmtTimeout
	}
	if rr.Reason == ReasonUnsupported {
		kind = KindUnsupportedConstruct
	}
	reason := rr.Reason
	if reason == smt.ReasonNone {
		reason = ReasonNoDerivation
	}
	r.diag(kind, sev, rr.Offset, rr.Block, fmt.Sprintf("%s is undecided (%s)", what, reason))
}

func counterexample(model map[string]string) string {
	if len(model) == 0 {
		return ""
	}
	keys := make([]string, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + model[k]
	}
	return "; counterexample " + strings.Join(parts, " ")
}

// #endregion diagnostics
