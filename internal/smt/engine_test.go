package smt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

// #region helpers
func writeFakeZ3(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "z3")
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write fake z3: %v", err)
	}
	return path
}

var (
	x = logic.Var{Name: "x", S: logic.SortInt}
	n = logic.Var{Name: "n", S: logic.SortInt}
)

func natNonneg(v logic.Var) logic.Formula {
	return logic.Forall{V: v, Body: logic.Implies{L: logic.Pred("nat", v), R: logic.Pred(">=", v, logic.Int(0))}}
}

// natQuery asks whether ∀x:ℕ. x ≥ 0 follows from the ℕ domain axiom.
func natQuery() Query {
	return Query{
		Mode:   Validity,
		Axioms: []logic.Named{{Name: "ax_nat_nonneg", F: natNonneg(x)}},
		Goal:   natNonneg(n),
	}
}

type stubBackend struct {
	calls   atomic.Int32
	delay   time.Duration
	resp    Response
	err     error
	mu      sync.Mutex
	scripts []string
}

func (s *stubBackend) Check(ctx context.Context, script string) (Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.scripts = append(s.scripts, script)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Response{}, ErrTimeout
		}
	}
	return s.resp, s.err
}

type mapStore struct {
	mu sync.Mutex
	m  map[string]Verdict
}

func (s *mapStore) GetVerdict(_ context.Context, key string) (Verdict, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *mapStore) PutVerdict(_ context.Context, key string, _ Mode, v Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
	return nil
}

func fastConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

// #endregion helpers

// #region script-tests
func TestScriptDeclaresSymbolsAndLabels(t *testing.T) {
	q := natQuery()
	q.Axioms = append(q.Axioms,
		logic.Named{Name: "def_Limit", F: logic.Definition{Name: "Limit", Term: logic.Int(100)}},
		logic.Named{Name: "rule_1", F: logic.Pred("<", logic.Const{Name: "Limit", S: logic.SortInt}, logic.Int(200))},
	)
	script, labels := Script(q)

	assert.Contains(t, script, "(declare-sort U 0)")
	assert.Contains(t, script, "(declare-fun nat (Int) Bool)")
	assert.NotContains(t, script, "(declare-fun Limit")
	assert.Contains(t, script, "(define-fun Limit () Int 100)")
	assert.Contains(t, script, "(assert (! (forall ((x Int)) (=> (nat x) (>= x 0))) :named ax_nat_nonneg))")
	assert.Contains(t, script, "(assert (! (not (forall ((n Int)) (=> (nat n) (>= n 0)))) :named goal))")
	assert.True(t, strings.Index(script, "(define-fun Limit") < strings.Index(script, ":named rule_1"))
	assert.Equal(t, "ax_nat_nonneg", labels["ax_nat_nonneg"])
	_, defLabelled := labels["def_Limit"]
	assert.False(t, defLabelled)
}

func TestScriptWithLogicSkipsSortDeclarations(t *testing.T) {
	script, _ := Script(Query{Mode: Satisfiability, Logic: "QF_LRA", Goal: logic.Truth{Value: true}})
	assert.Contains(t, script, "(set-logic QF_LRA)")
	assert.NotContains(t, script, "declare-sort")
	assert.Contains(t, script, "(assert (! true :named goal))")
}

func TestKeyIsAlphaInvariant(t *testing.T) {
	a := natQuery()
	b := natQuery()
	b.Goal = natNonneg(logic.Var{Name: "m", S: logic.SortInt})
	assert.Equal(t, Key(a), Key(b))

	b.Mode = Satisfiability
	assert.NotEqual(t, Key(a), Key(b))
}

func TestReduceKeepsRelevantAxioms(t *testing.T) {
	q := natQuery()
	q.Axioms = append(q.Axioms, logic.Named{Name: "ax_unrelated", F: logic.Pred("Shiny", logic.Const{Name: "Red", S: logic.SortU})})
	r := Reduce(q, 2)
	require.Len(t, r.Axioms, 1)
	assert.Equal(t, "ax_nat_nonneg", r.Axioms[0].Name)
}

// #endregion script-tests

// #region parse-tests
func TestParseOutput(t *testing.T) {
	resp, err := parseOutput("unsat\n(ax_nat_nonneg goal)\n(error \"line 9 column 10: model is not available\")\n(error \"line 10: not unknown\")\n")
	require.NoError(t, err)
	assert.Equal(t, "unsat", resp.Status)
	assert.Equal(t, []string{"ax_nat_nonneg", "goal"}, resp.Core)

	resp, err = parseOutput("sat\n(error \"line 8: unsat core is not available\")\n(\n  (define-fun x () Int\n    (- 1))\n  (define-fun f ((a U)) Bool true)\n)\n")
	require.NoError(t, err)
	assert.Equal(t, "sat", resp.Status)
	assert.Equal(t, map[string]string{"x": "(- 1)"}, resp.Model)

	resp, err = parseOutput("unknown\n(error \"no core\")\n(error \"no model\")\n(:reason-unknown \"timeout\")\n")
	require.NoError(t, err)
	assert.Equal(t, "unknown", resp.Status)
	assert.Equal(t, "timeout", resp.Reason)
}

// #endregion parse-tests

// #region engine-tests
func TestEngineProvesNaturalNonNegativity(t *testing.T) {
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls")
	fake := writeFakeZ3(t, "cat >/dev/null\necho run >> "+calls+"\necho unsat\necho '(ax_nat_nonneg goal)'")
	e := NewEngine(Z3Exec{Binary: fake}, fastConfig(), nil, nil)

	v, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.Equal(t, logic.True, v.Value)
	assert.Contains(t, v.Core, "ax_nat_nonneg")
	assert.False(t, v.Cached)

	again, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, v.Core, again.Core)

	runs, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(runs), "run"))
}

func TestEngineDisprovesWithCounterexample(t *testing.T) {
	fake := writeFakeZ3(t, "cat >/dev/null\necho sat\necho '((define-fun k () Int (- 1)))'")
	e := NewEngine(Z3Exec{Binary: fake}, fastConfig(), nil, nil)
	q := Query{Mode: Validity, Goal: logic.Pred(">=", logic.Const{Name: "k", S: logic.SortInt}, logic.Int(0))}

	v, err := e.Check(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, logic.False, v.Value)
	assert.Equal(t, "(- 1)", v.Model["k"])
}

func TestEngineTimeoutIsUnknownAndNotCached(t *testing.T) {
	fake := writeFakeZ3(t, "exec sleep 5")
	cfg := fastConfig()
	cfg.Timeout = time.Millisecond
	e := NewEngine(Z3Exec{Binary: fake}, cfg, nil, nil)

	start := time.Now()
	v, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.Equal(t, logic.Unknown, v.Value)
	assert.Equal(t, ReasonTimeout, v.Reason)
	assert.True(t, v.Retried)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Zero(t, e.Cache().Stats().Entries)
}

func TestEngineCallerDeadlineBoundsQuery(t *testing.T) {
	stub := &stubBackend{delay: time.Second, resp: Response{Status: "unsat"}}
	e := NewEngine(stub, fastConfig(), nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := e.Check(ctx, natQuery())
	require.NoError(t, err)
	assert.Equal(t, ReasonTimeout, v.Reason)
}

func TestEngineRetryAcceptsOnlyRefutations(t *testing.T) {
	// First call times out, the reduced query answers sat: a model of
	// fewer axioms says nothing about the full query.
	calls := atomic.Int32{}
	backend := backendFunc(func(ctx context.Context, script string) (Response, error) {
		if calls.Add(1) == 1 {
			return Response{}, ErrTimeout
		}
		return Response{Status: "sat"}, nil
	})
	e := NewEngine(backend, fastConfig(), nil, nil)
	v, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.Equal(t, logic.Unknown, v.Value)
	assert.True(t, v.Retried)

	calls.Store(0)
	backend2 := backendFunc(func(ctx context.Context, script string) (Response, error) {
		if calls.Add(1) == 1 {
			return Response{}, ErrTimeout
		}
		return Response{Status: "unsat", Core: []string{"goal"}}, nil
	})
	e = NewEngine(backend2, fastConfig(), nil, nil)
	v, err = e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.Equal(t, logic.True, v.Value)
	assert.True(t, v.Retried)
}

type backendFunc func(ctx context.Context, script string) (Response, error)

func (f backendFunc) Check(ctx context.Context, script string) (Response, error) { return f(ctx, script) }

func TestEngineMissingSolverIsUnknown(t *testing.T) {
	e := NewEngine(Z3Exec{Binary: filepath.Join(t.TempDir(), "z3")}, fastConfig(), nil, nil)
	v, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.Equal(t, logic.Unknown, v.Value)
	assert.Equal(t, ReasonBackendUnavailable, v.Reason)
}

func TestEngineCancelledContextIsAnError(t *testing.T) {
	e := NewEngine(&stubBackend{resp: Response{Status: "sat"}}, fastConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Check(ctx, natQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineCollapsesIdenticalQueries(t *testing.T) {
	stub := &stubBackend{delay: 100 * time.Millisecond, resp: Response{Status: "unsat", Core: []string{"goal"}}}
	cfg := fastConfig()
	cfg.Concurrency = 8
	e := NewEngine(stub, cfg, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := e.Check(context.Background(), natQuery())
			assert.NoError(t, err)
			assert.Equal(t, logic.True, v.Value)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestEngineSharedQueryKeepsPerCallerDeadlines(t *testing.T) {
	stub := &stubBackend{delay: 200 * time.Millisecond, resp: Response{Status: "unsat", Core: []string{"goal"}}}
	e := NewEngine(stub, fastConfig(), nil, nil)

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	gone, cancelGone := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	var shortV, longV Verdict
	var shortErr, goneErr, longErr error
	wg.Add(3)
	go func() { defer wg.Done(); shortV, shortErr = e.Check(short, natQuery()) }()
	go func() { defer wg.Done(); _, goneErr = e.Check(gone, natQuery()) }()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		longV, longErr = e.Check(context.Background(), natQuery())
	}()
	time.Sleep(10 * time.Millisecond)
	cancelGone()
	wg.Wait()

	require.NoError(t, shortErr)
	assert.Equal(t, ReasonTimeout, shortV.Reason)
	assert.ErrorIs(t, goneErr, context.Canceled)
	require.NoError(t, longErr)
	assert.Equal(t, logic.True, longV.Value)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestCacheReadsThroughStore(t *testing.T) {
	store := &mapStore{m: map[string]Verdict{}}
	key := Key(natQuery())
	store.m[key] = Verdict{Value: logic.True, Core: []string{"ax_nat_nonneg"}}

	stub := &stubBackend{resp: Response{Status: "sat"}}
	e := NewEngine(stub, fastConfig(), NewCache(store, nil), nil)
	v, err := e.Check(context.Background(), natQuery())
	require.NoError(t, err)
	assert.True(t, v.Cached)
	assert.Equal(t, logic.True, v.Value)
	assert.Zero(t, stub.calls.Load())

	other := Query{Mode: Satisfiability, Goal: logic.Pred("P", logic.Const{Name: "a", S: logic.SortU})}
	_, err = e.Check(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, store.m, 2)

	unknown := NewCache(store, nil)
	unknown.Put(context.Background(), "k", Validity, Unknown(ReasonTimeout, ""))
	assert.Zero(t, unknown.Stats().Entries)
}

func TestDisjointSpans(t *testing.T) {
	stub := &stubBackend{resp: Response{Status: "unsat"}}
	e := NewEngine(stub, fastConfig(), nil, nil)

	ok, err := e.DisjointSpans(context.Background(), [][]float64{{1, 0, 0}}, [][]float64{{0, 1, 0.5}})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, stub.scripts, 1)
	assert.Contains(t, stub.scripts[0], "(set-logic QF_LRA)")
	assert.Contains(t, stub.scripts[0], "(declare-fun alpha_0 () Real)")
	assert.Contains(t, stub.scripts[0], ":named span_2")

	stub.resp = Response{Status: "sat"}
	ok, err = e.DisjointSpans(context.Background(), [][]float64{{1, 1}}, [][]float64{{2, 2}})
	require.NoError(t, err)
	assert.False(t, ok)

	stub.resp = Response{Status: "unknown"}
	_, err = e.DisjointSpans(context.Background(), [][]float64{{3, 1}}, [][]float64{{1, 3}})
	assert.Error(t, err)
}

// #endregion engine-tests
