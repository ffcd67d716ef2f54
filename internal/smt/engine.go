// Package smt discharges logic formulas through an external SMT solver,
// caching definite verdicts by canonical query hash.
package smt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/metrics"
)

// #region engine
// Engine runs queries on a bounded pool of solver processes. It is safe
// for concurrent use.
type Engine struct {
	backend Backend
	config  EngineConfig
	cache   *Cache
	sem     *semaphore.Weighted
	flight  singleflight.Group
	logger  *slog.Logger
}

// NewEngine creates an engine. cache and logger may be nil.
func NewEngine(backend Backend, config EngineConfig, cache *Cache, logger *slog.Logger) *Engine {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultEngineConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache(nil, logger)
	}
	return &Engine{
		backend: backend,
		config:  config,
		cache:   cache,
		sem:     semaphore.NewWeighted(config.Concurrency),
		logger:  logger,
	}
}

// Cache returns the engine's certificate cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Check answers q. Identical concurrent queries share one solver run,
// which is detached from every caller and bounded only by the configured
// timeout. Each caller's own deadline bounds its wait, and its expiry
// yields Unknown(Timeout) for that caller alone. The error is non-nil only
// when ctx is cancelled.
func (e *Engine) Check(ctx context.Context, q Query) (Verdict, error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return Verdict{}, ctx.Err()
	}
	key := Key(q)
	if v, ok := e.cache.Get(ctx, key); ok {
		v.Cached = true
		e.record(q.Mode, v)
		return v, nil
	}

	ch := e.flight.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		v, err := e.solve(fctx, q)
		if err == nil {
			e.cache.Put(fctx, key, q.Mode, v)
		}
		return v, err
	})
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return Verdict{}, ctx.Err()
		}
		v := Unknown(ReasonTimeout, "deadline expired while waiting for solver")
		e.record(q.Mode, v)
		return v, nil
	case r := <-ch:
		if r.Err != nil {
			return Verdict{}, r.Err
		}
		v := r.Val.(Verdict)
		e.record(q.Mode, v)
		return v, nil
	}
}

// solve runs under a context no caller can cancel. Waiting for a solver
// slot is bounded by the engine timeout.
func (e *Engine) solve(ctx context.Context, q Query) (Verdict, error) {
	actx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	err := e.sem.Acquire(actx, 1)
	cancel()
	if err != nil {
		return Unknown(ReasonTimeout, "no solver slot became free"), nil
	}
	defer e.sem.Release(1)

	v, err := e.run(ctx, q)
	if err != nil || v.Reason != ReasonTimeout || !e.config.RetrySimplified {
		return v, err
	}
	e.logger.Debug("smt timeout, retrying reduced query", "mode", q.Mode, "axioms", len(q.Axioms))
	rv, err := e.run(ctx, Reduce(q, e.config.RelevanceRounds))
	if err != nil {
		return Verdict{}, err
	}
	// Only unsat answers transfer from the reduced query.
	if refutes(q.Mode, rv) {
		rv.Retried = true
		return rv, nil
	}
	v.Retried = true
	return v, nil
}

func refutes(m Mode, v Verdict) bool {
	if m == Validity {
		return v.Value == logic.True
	}
	return v.Value == logic.False
}

func (e *Engine) run(ctx context.Context, q Query) (Verdict, error) {
	timeout := e.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return Unknown(ReasonTimeout, "no time left"), nil
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script, labels := Script(q)
	start := time.Now()
	resp, err := e.backend.Check(qctx, script)
	elapsed := time.Since(start)
	metrics.ObserveSolver(string(q.Mode), elapsed.Seconds())

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return Verdict{}, ctx.Err()
	case errors.Is(err, ErrBackendUnavailable):
		return Unknown(ReasonBackendUnavailable, err.Error()), nil
	case errors.Is(err, ErrTimeout), errors.Is(qctx.Err(), context.DeadlineExceeded):
		return Unknown(ReasonTimeout, fmt.Sprintf("no answer within %s", timeout)), nil
	case errors.Is(err, ErrResourceLimit):
		return Unknown(ReasonResourceLimit, err.Error()), nil
	case err != nil:
		return Unknown(ReasonSolverUnknown, err.Error()), nil
	}

	v := Verdict{Elapsed: elapsed}
	switch resp.Status {
	case "unsat":
		v.Value = logic.True
		if q.Mode == Satisfiability {
			v.Value = logic.False
		}
		for _, l := range resp.Core {
			if name, ok := labels[l]; ok {
				v.Core = append(v.Core, name)
			} else {
				v.Core = append(v.Core, l)
			}
		}
	case "sat":
		v.Value = logic.False
		if q.Mode == Satisfiability {
			v.Value = logic.True
		}
		v.Model = resp.Model
	default:
		v = Unknown(ReasonSolverUnknown, resp.Reason)
		v.Elapsed = elapsed
	}
	return v, nil
}

func (e *Engine) record(m Mode, v Verdict) {
	metrics.RecordVerdict(string(m), v.Value.String(), string(v.Reason))
}

// #endregion engine

// #region spans
// DisjointSpans decides span(a) ∩ span(b) = {0} over the reals: it asks
// whether Σαᵢaᵢ = Σβⱼbⱼ admits a non-zero common vector.
func (e *Engine) DisjointSpans(ctx context.Context, a, b [][]float64) (bool, error) {
	support := map[int]bool{}
	var coords []int
	for _, vs := range [][][]float64{a, b} {
		for _, v := range vs {
			for k, x := range v {
				if x != 0 && !support[k] {
					support[k] = true
					coords = append(coords, k)
				}
			}
		}
	}
	q := Query{Mode: Satisfiability, Logic: "QF_LRA"}
	var nonzero []logic.Formula
	for _, k := range coords {
		left := combination(a, k, "alpha")
		right := combination(b, k, "beta")
		q.Axioms = append(q.Axioms, logic.Named{Name: "span_" + strconv.Itoa(k), F: logic.Eq(left, right)})
		nonzero = append(nonzero, logic.Not{F: logic.Eq(left, realNum(0))})
	}
	if len(nonzero) == 0 {
		return true, nil
	}
	q.Goal = logic.Disj(nonzero...)
	v, err := e.Check(ctx, q)
	if err != nil {
		return false, err
	}
	switch v.Value {
	case logic.False:
		return true, nil
	case logic.True:
		return false, nil
	}
	return false, fmt.Errorf("smt: span check inconclusive: %s", v.Reason)
}

// combination builds Σᵢ vs[i][k]·prefixᵢ.
func combination(vs [][]float64, k int, prefix string) logic.Term {
	var terms []logic.Term
	for i, v := range vs {
		if k >= len(v) || v[k] == 0 {
			continue
		}
		coef := logic.Num{Value: new(big.Rat).SetFloat64(v[k]), S: logic.SortReal}
		x := logic.Const{Name: prefix + "_" + strconv.Itoa(i), S: logic.SortReal}
		terms = append(terms, logic.App{Fn: "*", Args: []logic.Term{coef, x}, S: logic.SortReal})
	}
	switch len(terms) {
	case 0:
		return realNum(0)
	case 1:
		return terms[0]
	}
	return logic.App{Fn: "+", Args: terms, S: logic.SortReal}
}

func realNum(n int64) logic.Num {
	return logic.Num{Value: big.NewRat(n, 1), S: logic.SortReal}
}

// #endregion spans
