package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/density"
	"github.com/danielpatrickdp/aisp-verify/internal/gate"
	"github.com/danielpatrickdp/aisp-verify/internal/invariant"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/metrics"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
	"github.com/danielpatrickdp/aisp-verify/internal/translate"
	"github.com/danielpatrickdp/aisp-verify/internal/trivector"
)

// run carries the state of one Validate call.
type run struct {
	v   *Validator
	src []byte
	res *Result

	toks []lexer.Token
	doc  *ast.Document

	metrics   density.Metrics
	ambiguity density.Ambiguity
	evidence  []density.Mismatch
	invs      []invariant.Invariant
	report    trivector.Report

	tr     *translate.Translator
	rules  []translate.Rule
	claims []translate.Rule
	gaps   []translate.Gap

	typeIssues []parser.TypeIssue
}

// #region execute

func (r *run) execute(ctx context.Context) error {
	v := r.v
	if !v.allowedExtension(r.res.Document) {
		r.diag(KindUnsupportedExtension, SeverityError, -1, "",
			fmt.Sprintf("extension of %q is not one of %s", r.res.Document, strings.Join(v.cfg.Limits.Extensions, " ")))
		return r.reject()
	}
	if len(r.src) > v.cfg.Limits.MaxBytes {
		r.diag(KindSizeLimitExceeded, SeverityError, -1, "",
			fmt.Sprintf("document is %d bytes, limit is %d", len(r.src), v.cfg.Limits.MaxBytes))
		return r.reject()
	}

	// Lex and parse failures short-circuit: nothing downstream runs on a
	// malformed document.
	var err error
	r.stage(ctx, "lex", func(context.Context) { r.toks, err = lexer.Tokenize(r.src) })
	if err != nil {
		var le *lexer.Error
		if !errors.As(err, &le) {
			return fmt.Errorf("lex: %w", err)
		}
		r.diag(KindLexError, SeverityError, le.Offset, "", le.Error())
		return r.reject()
	}
	r.stage(ctx, "parse", func(context.Context) { r.doc, err = parser.Parse(r.toks) })
	if err != nil {
		var pe *parser.Error
		if !errors.As(err, &pe) {
			return fmt.Errorf("parse: %w", err)
		}
		r.diag(KindParseError, SeverityError, pe.Offset, pe.Block, pe.Error())
		return r.reject()
	}
	r.res.Fingerprint = r.doc.Fingerprint()
	r.typeIssues = parser.CheckTypes(r.doc)
	for _, is := range r.typeIssues {
		r.diag(typeIssueKind(is.Kind), SeverityError, is.Offset, is.Block, is.Msg)
	}

	if err := r.analyze(ctx); err != nil {
		return err
	}
	if err := r.prove(ctx); err != nil {
		return err
	}
	r.decide()
	return nil
}

// analyze fans out the independent stages over the immutable AST.
func (r *run) analyze(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.stage(gctx, "density", func(context.Context) {
			r.metrics = density.Analyze(r.src, r.toks, r.doc)
			r.evidence = density.CheckEvidence(r.doc, r.metrics)
		})
		r.stage(gctx, "ambiguity", func(context.Context) {
			r.ambiguity = density.MeasureAmbiguity(r.toks, r.doc)
		})
		return nil
	})
	g.Go(func() error {
		r.stage(gctx, "invariants", func(context.Context) {
			r.invs = r.v.discoverer.Discover(r.doc)
		})
		return nil
	})
	g.Go(func() error {
		r.stage(gctx, "trivector", func(sctx context.Context) {
			r.report = r.v.trivector.Verify(sctx, r.doc)
		})
		return nil
	})
	g.Go(func() error {
		r.stage(gctx, "translate", func(context.Context) {
			r.tr = translate.New(r.doc)
			var rg, cg []translate.Gap
			r.rules, rg = r.tr.Rules()
			r.claims, cg = r.tr.Claims()
			r.gaps = append(rg, cg...)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	r.res.Delta = r.metrics.Delta
	r.res.PureDensity = r.metrics.PureDensity
	r.res.Tier = r.metrics.Tier.String()
	r.res.TierGlyph = r.metrics.Tier.Glyph()
	r.res.Ambiguity = r.ambiguity.Score
	r.res.Divergences = r.ambiguity.Divergences
	m := r.metrics
	r.res.Density = &m
	r.res.Invariants = append(r.res.Invariants, r.invs...)
	rep := r.report
	r.res.Trivector = &rep
	metrics.ObserveAmbiguity(r.ambiguity.Score)

	if r.ambiguity.Score >= r.v.cfg.Gate.MaxAmbiguity {
		if len(r.ambiguity.Divergences) == 0 {
			r.diag(KindAmbiguityViolation, SeverityError, -1, "",
				fmt.Sprintf("ambiguity %.4f reaches limit %.4f", r.ambiguity.Score, r.v.cfg.Gate.MaxAmbiguity))
		}
		for _, d := range r.ambiguity.Divergences {
			r.diag(KindAmbiguityViolation, SeverityError, d.Offset, d.Block,
				fmt.Sprintf("statement %d of %s reads differently by strategy: %s", d.Index+1, d.Block, readings(d)))
		}
	}
	for _, p := range r.report.Violations() {
		off, block := -1, ast.BlockTag("")
		var shared []string
		for _, s := range p.Shared {
			if off < 0 || (s.Offset >= 0 && s.Offset < off) {
				off, block = s.Offset, s.Block
			}
			shared = append(shared, s.Text)
		}
		r.diag(KindOrthogonalityViolation, SeverityError, off, block,
			fmt.Sprintf("%s and %s spaces share a %d-dimensional subspace (%s): %s",
				p.A, p.B, p.Intersection, p.Method, strings.Join(shared, "; ")))
	}
	for _, mm := range r.evidence {
		r.diag(KindEvidenceMismatch, SeverityWarning, mm.Offset, ast.Evidence, mm.Msg)
	}
	return nil
}

// #endregion execute

// #region decide

// decide feeds the stage outcomes to the gate.
func (r *run) decide() {
	sig := gate.Signals{
		Tier:                    r.metrics.Tier,
		Delta:                   r.metrics.Delta,
		Ambiguity:               r.ambiguity.Score,
		OrthogonalityViolations: len(r.report.Violations()),
		Gaps:                    len(r.gaps) + len(r.tr.DefinitionGaps()),
		EvidenceMismatches:      len(r.evidence),
		TypeErrors:              len(r.typeIssues),
	}
	for _, rr := range r.res.Rules {
		switch rr.Property {
		case PropConsistency:
			sig.Inconsistent = sig.Inconsistent || rr.Verdict == logic.False
		case PropClaim:
			if rr.Verdict == logic.False {
				sig.DisprovenClaims++
			}
		case PropSafety:
			switch rr.Verdict {
			case logic.False:
				sig.DisprovenSafety++
			case logic.Unknown:
				sig.UnresolvedSafety++
			}
		case PropEntailment:
			switch rr.Verdict {
			case logic.True:
				sig.Proven++
			case logic.False:
				sig.Disproven++
			default:
				sig.Unknown++
			}
		}
	}
	dec := r.v.gate.Evaluate(sig)
	for _, veto := range dec.VetoSignals {
		if veto.Type == gate.VetoTier {
			r.diag(KindTierBelowMinimum, SeverityError, -1, "", veto.Reason)
		}
	}
	r.res.Decision = &dec
	r.res.Valid = dec.Valid()
	r.res.SoftScore = dec.SoftScore
}

// reject finalises a run that stopped before scoring.
func (r *run) reject() error {
	r.res.Valid = false
	dec := gate.GateDecision{Action: "reject", Reason: r.res.Diagnostics[0].Message, Vetoed: true}
	r.res.Decision = &dec
	return nil
}

// #endregion decide

// #region helpers

func (r *run) stage(ctx context.Context, name string, fn func(context.Context)) {
	ctx, span := r.v.tracer.Start(ctx, "validator."+name, trace.WithSpanKind(trace.SpanKindInternal))
	start := time.Now()
	fn(ctx)
	metrics.ObserveStage(name, time.Since(start).Seconds())
	span.End()
}

// diag records a finding. A negative offset marks a document-level
// finding, located at the start of the document.
func (r *run) diag(kind Kind, sev Severity, offset int, block ast.BlockTag, msg string) {
	if offset < 0 {
		offset = 0
		if block == "" {
			block = ast.DocumentScope
		}
	}
	loc := Location{Offset: offset, Block: block}
	if offset >= 0 {
		loc.Line, loc.Col = lexer.Position(r.src, offset)
	}
	if block == "" && offset >= 0 && r.doc != nil {
		loc.Block = blockAt(r.doc, offset)
	}
	r.res.Diagnostics = append(r.res.Diagnostics, Diagnostic{Kind: kind, Severity: sev, Location: loc, Message: msg})
}

func typeIssueKind(k parser.TypeIssueKind) Kind {
	switch k {
	case parser.IssueUndefinedType:
		return KindUndefinedType
	case parser.IssueDuplicateDefinition:
		return KindDuplicateDefinition
	}
	return KindTypeError
}

// blockAt finds the block spanning offset.
func blockAt(doc *ast.Document, offset int) ast.BlockTag {
	for _, b := range doc.Blocks {
		if b.Offset <= offset && offset < b.End {
			return b.Tag
		}
	}
	return ""
}

func readings(d density.Divergence) string {
	parts := make([]string, 0, len(d.Readings))
	for _, id := range parser.AllStrategies() {
		if s, ok := d.Readings[id.ID]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", id.ID, s))
		}
	}
	return strings.Join(parts, ", ")
}

// #endregion helpers
