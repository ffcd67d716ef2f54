package validator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/certstore"
	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/gate"
	"github.com/danielpatrickdp/aisp-verify/internal/logging"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
)

// #region helpers

func source(rules, proofs string) []byte {
	var b strings.Builder
	b.WriteString("𝔸5.1.TestDoc@2026-01-25\n")
	b.WriteString("⟦Ω:Meta⟧{ domain≜test }\n")
	b.WriteString("⟦Σ:Types⟧{ T≜ℕ }\n")
	b.WriteString("⟦Γ:Rules⟧{ " + rules + " }\n")
	b.WriteString("⟦Λ:Funcs⟧{ f≜λx.x }\n")
	if proofs != "" {
		b.WriteString("⟦Θ:Proofs⟧{ " + proofs + " }\n")
	}
	b.WriteString("⟦Ε⟧⟨δ≜0.5⟩\n")
	return []byte(b.String())
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return src
}

// deductionOnly is a configuration with no solver.
func deductionOnly() config.Config {
	cfg := config.Default()
	cfg.SMT.Enabled = false
	return cfg
}

func newValidator(t *testing.T, cfg config.Config, opts ...Option) *Validator {
	t.Helper()
	v, err := New(cfg, opts...)
	require.NoError(t, err)
	return v
}

func validate(t *testing.T, v *Validator, name string, src []byte) *Result {
	t.Helper()
	res, err := v.Validate(context.Background(), name, src)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func hasDiag(res *Result, kind Kind) bool {
	for _, d := range res.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func vetoed(res *Result, vt gate.VetoType) bool {
	if res.Decision == nil {
		return false
	}
	for _, v := range res.Decision.VetoSignals {
		if v.Type == vt {
			return true
		}
	}
	return false
}

// scriptedBackend answers validity queries with unsat (proven) and
// satisfiability queries with sat, after an optional delay.
type scriptedBackend struct {
	calls  atomic.Int32
	delay  time.Duration
	status func(script string) string
}

func (b *scriptedBackend) Check(ctx context.Context, script string) (smt.Response, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return smt.Response{}, smt.ErrTimeout
		}
	}
	if b.status != nil {
		return smt.Response{Status: b.status(script)}, nil
	}
	if strings.Contains(script, ":named "+smt.GoalLabel+")") {
		return smt.Response{Status: "unsat"}, nil
	}
	return smt.Response{Status: "sat"}, nil
}

func solverOnly() config.Config {
	cfg := config.Default()
	cfg.Prover.Enabled = false
	cfg.Trivector.UseSMT = false
	return cfg
}

// #endregion helpers

// #region pipeline-tests

func TestValidatePlatinumDocument(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "platinum.aisp", readFixture(t, "platinum.aisp"))

	assert.True(t, res.Valid, "diagnostics: %+v", res.Errors())
	assert.Equal(t, "Platinum", res.Tier)
	assert.Equal(t, "◊⁺⁺", res.TierGlyph)
	assert.Equal(t, 1.0, res.Delta)
	assert.Zero(t, res.Ambiguity)
	assert.Len(t, res.ContentHash, 64)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.Invariants)
	require.NotNil(t, res.Trivector)
	assert.Empty(t, res.Trivector.Violations())
	assert.Empty(t, res.Errors())
	assert.Positive(t, res.SoftScore)

	rule, ok := res.Rule("rule_1")
	require.True(t, ok)
	assert.Equal(t, PropEntailment, rule.Property)
	assert.Equal(t, logic.True, rule.Verdict)
	assert.Equal(t, EngineDeduction, rule.Engine)
	assert.Contains(t, rule.Core, "ax_nat_nonneg")
}

func TestNaturalNonNegativityIsProven(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "nat.aisp", source("∀x:ℕ.x≥0", ""))

	rule, ok := res.Rule("rule_1")
	require.True(t, ok)
	assert.Equal(t, logic.True, rule.Verdict)
	assert.Equal(t, []string{"ax_nat_nonneg"}, rule.Core)
	require.NotNil(t, rule.Proof)
	assert.NotEmpty(t, rule.Proof.Steps)
}

func TestMissingEvidenceHaltsBeforeScoring(t *testing.T) {
	src := []byte("𝔸5.1.NoEvidence@2026-01-25\n" +
		"⟦Ω:Meta⟧{ domain≜test }\n⟦Σ:Types⟧{ T≜ℕ }\n⟦Γ:Rules⟧{ ∀x:T:x≥0 }\n⟦Λ:Funcs⟧{ f≜λx.x }\n")
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "noevidence.aisp", src)

	assert.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindParseError, res.Diagnostics[0].Kind)
	assert.Contains(t, res.Diagnostics[0].Message, "Evidence")
	assert.Nil(t, res.Density)
	assert.Nil(t, res.Trivector)
	assert.Empty(t, res.Rules)
	assert.Equal(t, "Reject", res.Tier)
}

func TestSizeLimitCheckedBeforeLexing(t *testing.T) {
	cfg := deductionOnly()
	cfg.Limits.MaxBytes = 16
	v := newValidator(t, cfg)
	res := validate(t, v, "big.aisp", source("∀x:T:x≥0", ""))

	assert.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, KindSizeLimitExceeded, d.Kind)
	assert.Equal(t, 0, d.Location.Offset)
	assert.Equal(t, ast.DocumentScope, d.Location.Block)
	assert.Equal(t, 1, d.Location.Line)
}

func TestUnsupportedExtension(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "doc.pdf", source("∀x:T:x≥0", ""))
	assert.False(t, res.Valid)
	require.True(t, hasDiag(res, KindUnsupportedExtension))
	assert.Equal(t, ast.DocumentScope, res.Diagnostics[0].Location.Block)

	res = validate(t, v, "DOC.AISP", source("∀x:T:x≥0", ""))
	assert.False(t, hasDiag(res, KindUnsupportedExtension))
}

func TestLexErrorCarriesPosition(t *testing.T) {
	src := source("∀x:T:x≥0", "")
	src = []byte(strings.Replace(string(src), "domain≜test", "domain≜te\u202est", 1))
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "bidi.aisp", src)

	assert.False(t, res.Valid)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, KindLexError, d.Kind)
	assert.Equal(t, 2, d.Location.Line)
	assert.Positive(t, d.Location.Col)
}

func TestAmbiguousDocumentRejectedWithFullDiagnostics(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "ambiguous.aisp", readFixture(t, "ambiguous.aisp"))

	assert.False(t, res.Valid)
	assert.GreaterOrEqual(t, res.Ambiguity, 0.02)
	assert.True(t, hasDiag(res, KindAmbiguityViolation))
	assert.True(t, vetoed(res, gate.VetoAmbiguity))
	// Scoring still ran.
	require.NotNil(t, res.Density)
	assert.Equal(t, "Platinum", res.Tier)
	assert.NotEmpty(t, res.Divergences)
	for _, d := range res.Diagnostics {
		if d.Kind == KindAmbiguityViolation {
			assert.Positive(t, d.Location.Offset)
		}
	}
}

func TestTypeErrorsAreFatalAndLocated(t *testing.T) {
	src := []byte("𝔸5.1.Typed@2026-01-25\n" +
		"⟦Ω:Meta⟧{ domain≜test }\n" +
		"⟦Σ:Types⟧{ T≜ℕ; T≜{a,b} }\n" +
		"⟦Γ:Rules⟧{ ∀x:Undeclared:P(x) }\n" +
		"⟦Λ:Funcs⟧{ f≜λx.x }\n" +
		"⟦Ε⟧⟨δ≜0.5⟩\n")
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "typed.aisp", src)

	assert.False(t, res.Valid)
	assert.True(t, vetoed(res, gate.VetoTypeError))
	var undefined, duplicate *Diagnostic
	for i := range res.Diagnostics {
		switch d := &res.Diagnostics[i]; d.Kind {
		case KindUndefinedType:
			undefined = d
		case KindDuplicateDefinition:
			duplicate = d
		}
	}
	require.NotNil(t, undefined)
	require.NotNil(t, duplicate)
	assert.Equal(t, ast.Rules, undefined.Location.Block)
	assert.Equal(t, 4, undefined.Location.Line)
	assert.Contains(t, undefined.Message, "Undeclared")
	assert.Equal(t, ast.Types, duplicate.Location.Block)
	assert.Equal(t, 3, duplicate.Location.Line)
}

// #endregion pipeline-tests

// #region property-tests

func TestInconsistentRulesAreFatal(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "contra.aisp", source("Lit(Red)\n¬Lit(Red)", ""))

	assert.False(t, res.Valid)
	rule, ok := res.Rule("rules")
	require.True(t, ok)
	assert.Equal(t, PropConsistency, rule.Property)
	assert.Equal(t, logic.False, rule.Verdict)
	assert.ElementsMatch(t, []string{"rule_1", "rule_2"}, rule.Core)
	assert.True(t, hasDiag(res, KindInconsistent))
	assert.True(t, vetoed(res, gate.VetoInconsistent))
}

func TestClaimProvenByDeduction(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "claim.aisp", source("Primary(Red)⇒Bright(Red)\nPrimary(Red)", "Bright(Red)"))

	claim, ok := res.Rule("claim_1")
	require.True(t, ok)
	assert.Equal(t, PropClaim, claim.Property)
	assert.Equal(t, logic.True, claim.Verdict)
	assert.Equal(t, EngineDeduction, claim.Engine)
	assert.True(t, res.Valid, "diagnostics: %+v", res.Errors())
}

func TestDisprovenClaimIsFatal(t *testing.T) {
	backend := &scriptedBackend{status: func(string) string { return "sat" }}
	v := newValidator(t, solverOnly(), WithBackend(backend))
	res := validate(t, v, "claim.aisp", source("Primary(Red)", "Bright(Blue)"))

	claim, ok := res.Rule("claim_1")
	require.True(t, ok)
	assert.Equal(t, logic.False, claim.Verdict)
	assert.Equal(t, EngineSMT, claim.Engine)
	assert.False(t, res.Valid)
	assert.True(t, hasDiag(res, KindDisprovenClaim))
	assert.True(t, vetoed(res, gate.VetoDisproven))

	// A satisfiable rule set is consistent.
	rules, ok := res.Rule("rules")
	require.True(t, ok)
	assert.Equal(t, logic.True, rules.Verdict)
}

func TestSelfReferentialClaimIsUnknown(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "self.aisp", source("∀x:T:x≥0", "∀d:Density(d)≥0.4"))

	claim, ok := res.Rule("claim_1")
	require.True(t, ok)
	assert.Equal(t, PropSelfReference, claim.Property)
	assert.Equal(t, logic.Unknown, claim.Verdict)
	assert.Equal(t, smt.ReasonSelfReferential, claim.Reason)
	assert.True(t, res.Valid, "an undecided self-reference is not a failure: %+v", res.Errors())
}

func TestUnresolvedSafetyRulesAreFatal(t *testing.T) {
	cfg := deductionOnly()
	cfg.Prover.Enabled = false
	v := newValidator(t, cfg)
	res := validate(t, v, "safety.aisp", source("∀x:T:Safe(x)", ""))

	safety, ok := res.Rule("safety")
	require.True(t, ok)
	assert.Equal(t, logic.Unknown, safety.Verdict)
	assert.Equal(t, ReasonNoEngine, safety.Reason)
	assert.False(t, res.Valid)
	assert.True(t, hasDiag(res, KindSafetyUnresolved))
	assert.True(t, vetoed(res, gate.VetoSafety))
}

func TestContradictorySafetyRulesAreFatal(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "safety.aisp", source("Safe(Red)\n¬Safe(Red)", ""))

	safety, ok := res.Rule("safety")
	require.True(t, ok)
	assert.Equal(t, logic.False, safety.Verdict)
	assert.False(t, res.Valid)
	assert.True(t, vetoed(res, gate.VetoSafety))
}

func TestNoEngineLeavesEntailmentUnknown(t *testing.T) {
	cfg := deductionOnly()
	cfg.Prover.Enabled = false
	v := newValidator(t, cfg)
	res := validate(t, v, "nat.aisp", source("∀x:T:x≥0", ""))

	rule, ok := res.Rule("rule_1")
	require.True(t, ok)
	assert.Equal(t, logic.Unknown, rule.Verdict)
	assert.True(t, res.Valid, "entailment is informational")
}

func TestUndecidedConsistencyNamesReason(t *testing.T) {
	v := newValidator(t, deductionOnly())
	res := validate(t, v, "nat.aisp", source("∀x:T:x≥0", ""))

	rules, ok := res.Rule("rules")
	require.True(t, ok)
	require.Equal(t, logic.Unknown, rules.Verdict)
	assert.NotEqual(t, smt.ReasonNone, rules.Reason)
	for _, d := range res.Diagnostics {
		assert.NotContains(t, d.Message, "()")
	}
}

// #endregion property-tests

// #region runtime-tests

func TestIdempotentAcrossColdAndWarmCache(t *testing.T) {
	backend := &scriptedBackend{}
	v := newValidator(t, solverOnly(), WithBackend(backend))
	src := readFixture(t, "platinum.aisp")

	cold := validate(t, v, "platinum.aisp", src)
	calls := backend.calls.Load()
	require.Positive(t, calls)

	warm := validate(t, v, "platinum.aisp", src)
	assert.Equal(t, calls, backend.calls.Load(), "warm run must not reach the solver")

	cachedAny := false
	for _, r := range warm.Rules {
		cachedAny = cachedAny || r.Cached
	}
	assert.True(t, cachedAny)

	assert.JSONEq(t, normalized(t, cold), normalized(t, warm))
}

func normalized(t *testing.T, res *Result) string {
	t.Helper()
	cp := *res
	cp.RunID = ""
	cp.Rules = append([]RuleResult(nil), res.Rules...)
	for i := range cp.Rules {
		cp.Rules[i].Cached = false
	}
	raw, err := json.Marshal(cp)
	require.NoError(t, err)
	return string(raw)
}

func TestCallerDeadlineYieldsUnknownNotError(t *testing.T) {
	backend := &scriptedBackend{delay: 5 * time.Second}
	v := newValidator(t, solverOnly(), WithBackend(backend))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := v.Validate(ctx, "nat.aisp", source("∀x:T:x≥0", ""))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	rule, ok := res.Rule("rule_1")
	require.True(t, ok)
	assert.Equal(t, logic.Unknown, rule.Verdict)
	assert.Equal(t, smt.ReasonTimeout, rule.Reason)
}

func TestCancelledContextIsAnError(t *testing.T) {
	v := newValidator(t, deductionOnly())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.Validate(ctx, "nat.aisp", source("∀x:T:x≥0", ""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunLogAndPersistentCache(t *testing.T) {
	store, err := certstore.NewStore(filepath.Join(t.TempDir(), "aisp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	backend := &scriptedBackend{}
	v := newValidator(t, solverOnly(), WithBackend(backend), WithStore(store), WithRunLog(store.DB()))
	res := validate(t, v, "nat.aisp", source("∀x:T:x≥0", ""))

	runs, err := logging.ListRuns(context.Background(), store.DB(), res.ContentHash, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
	assert.Equal(t, res.Valid, runs[0].Valid)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Positive(t, n, "definite verdicts are persisted")

	// A fresh validator over the same store answers from disk.
	before := backend.calls.Load()
	v2 := newValidator(t, solverOnly(), WithBackend(backend), WithStore(store))
	validate(t, v2, "nat.aisp", source("∀x:T:x≥0", ""))
	assert.Equal(t, before, backend.calls.Load())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxBytes = config.HardMaxBytes + 1
	_, err := New(cfg)
	assert.Error(t, err)
}

// #endregion runtime-tests
