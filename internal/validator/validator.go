// Package validator runs the full AISP pipeline on one document: lexing,
// parsing, density and ambiguity scoring, invariant discovery, tri-vector
// isolation, and hybrid proof of the document's properties, then lets the
// gate decide.
package validator

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/aisp-verify/internal/config"
	"github.com/danielpatrickdp/aisp-verify/internal/deduction"
	"github.com/danielpatrickdp/aisp-verify/internal/gate"
	"github.com/danielpatrickdp/aisp-verify/internal/invariant"
	"github.com/danielpatrickdp/aisp-verify/internal/metrics"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
	"github.com/danielpatrickdp/aisp-verify/internal/trivector"
)

// #region validator

// Validator is safe for concurrent use; the certificate cache is the only
// state shared between calls.
type Validator struct {
	cfg        config.Config
	logger     *slog.Logger
	tracer     trace.Tracer
	engine     *smt.Engine
	prover     *deduction.Prover
	discoverer *invariant.Discoverer
	trivector  *trivector.Verifier
	gate       *gate.Gate
	runLog     *sql.DB

	backend smt.Backend
	store   smt.Store
}

// Option customises a Validator.
type Option func(*Validator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithBackend replaces the z3 subprocess backend.
func WithBackend(b smt.Backend) Option {
	return func(v *Validator) { v.backend = b }
}

// WithStore adds a persistent layer under the in-memory certificate cache.
func WithStore(s smt.Store) Option {
	return func(v *Validator) { v.store = s }
}

// WithEngine shares an existing engine, and so its cache, between
// validators. It takes precedence over WithBackend and WithStore.
func WithEngine(e *smt.Engine) Option {
	return func(v *Validator) { v.engine = e }
}

// WithRunLog appends one validation_runs row per document to db.
func WithRunLog(db *sql.DB) Option {
	return func(v *Validator) { v.runLog = db }
}

func WithTracer(t trace.Tracer) Option {
	return func(v *Validator) { v.tracer = t }
}

// New validates cfg and wires the pipeline.
func New(cfg config.Config, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &Validator{cfg: cfg}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.tracer == nil {
		v.tracer = otel.Tracer("github.com/danielpatrickdp/aisp-verify/internal/validator")
	}
	if cfg.SMT.Enabled && v.engine == nil {
		backend := v.backend
		if backend == nil {
			backend = smt.Z3Exec{Binary: cfg.SMT.Binary, MemoryMB: cfg.SMT.MemoryMB}
		}
		v.engine = smt.NewEngine(backend, cfg.EngineConfig(), smt.NewCache(v.store, v.logger), v.logger)
	}
	if !cfg.SMT.Enabled {
		v.engine = nil
	}
	if cfg.Prover.Enabled {
		p := cfg.ProverLimits()
		v.prover = &p
	}
	v.discoverer = invariant.NewDiscoverer(cfg.Invariants)
	v.trivector = &trivector.Verifier{MaxSMTSupport: cfg.Trivector.MaxSMTSupport, Logger: v.logger}
	if cfg.Trivector.UseSMT && v.engine != nil {
		v.trivector.SMT = v.engine
	}
	v.gate = gate.NewGate(cfg.GateConfig())
	return v, nil
}

// Engine returns the SMT engine, or nil when SMT is disabled.
func (v *Validator) Engine() *smt.Engine { return v.engine }

// Config returns the configuration the validator was built with.
func (v *Validator) Config() config.Config { return v.cfg }

// #endregion validator

// #region validate

// Validate checks src, which was read from name. Document defects are
// reported as diagnostics on an invalid Result; the error is non-nil only
// when ctx is cancelled or the pipeline itself fails.
func (v *Validator) Validate(ctx context.Context, name string, src []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := v.tracer.Start(ctx, "validator.Validate",
		trace.WithAttributes(
			attribute.String("document", name),
			attribute.Int("bytes", len(src)),
		),
	)
	defer span.End()

	sum := sha256.Sum256(src)
	run := &run{
		v:   v,
		src: src,
		res: &Result{
			Document:    name,
			ContentHash: hex.EncodeToString(sum[:]),
			RunID:       uuid.NewString(),
			Tier:        "Reject",
			TierGlyph:   "⊘",
			Rules:       []RuleResult{},
			Invariants:  []invariant.Invariant{},
			Diagnostics: []Diagnostic{},
		},
	}

	start := time.Now()
	if err := run.execute(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	res := run.res

	span.SetAttributes(
		attribute.Bool("valid", res.Valid),
		attribute.String("tier", res.Tier),
		attribute.Float64("delta", res.Delta),
	)
	metrics.RecordValidation(res.Valid, res.Tier)
	for _, d := range res.Diagnostics {
		metrics.RecordDiagnostic(string(d.Kind), string(d.Severity))
	}
	v.logger.Info("validated",
		"document", name,
		"valid", res.Valid,
		"tier", res.Tier,
		"delta", res.Delta,
		"diagnostics", len(res.Diagnostics),
		"elapsed", time.Since(start),
	)
	v.logRun(ctx, res)
	return res, nil
}

// allowedExtension accepts names with no extension (stdin, RPC payloads)
// and names whose extension is on the allow-list.
func (v *Validator) allowedExtension(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return true
	}
	for _, e := range v.cfg.Limits.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// #endregion validate
