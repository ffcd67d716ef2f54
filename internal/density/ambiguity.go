package density

import (
	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
)

// AmbiguityLimit is the score at or above which a document is rejected.
const AmbiguityLimit = 0.02

// #region measure
// MeasureAmbiguity re-parses toks under every strategy and compares each
// reading with canonical, the strict parse. The score is the share of
// successful readings that disagree with the canonical one; strategies
// that fail to parse are reported but not counted.
func MeasureAmbiguity(toks []lexer.Token, canonical *ast.Document) Ambiguity {
	ref := canonical.Fingerprint()
	var a Ambiguity
	ok, agree := 0, 0
	for _, strat := range parser.AllStrategies() {
		doc := canonical
		if strat.ID != parser.StrategyStrict {
			var err error
			doc, err = parser.ParseWith(toks, strat)
			if err != nil {
				a.Interpretations = append(a.Interpretations, Interpretation{Strategy: strat.ID, Err: err.Error()})
				continue
			}
		}
		fp := doc.Fingerprint()
		a.Interpretations = append(a.Interpretations, Interpretation{Strategy: strat.ID, Fingerprint: fp})
		ok++
		if fp == ref {
			agree++
			continue
		}
		a.Divergences = mergeDivergences(a.Divergences, diff(canonical, doc, strat.ID))
	}
	if ok > 0 {
		a.Score = round(1 - float64(agree)/float64(ok))
	}
	return a
}

// Rejected reports whether the score reaches the ambiguity limit.
func (a Ambiguity) Rejected() bool { return a.Score >= AmbiguityLimit }

// #endregion measure

// #region diff
func diff(canonical, other *ast.Document, id parser.StrategyID) []Divergence {
	var out []Divergence
	for _, b := range canonical.Blocks {
		ob := other.Block(b.Tag)
		if ob == nil {
			continue
		}
		for i, s := range b.Statements {
			if i >= len(ob.Statements) {
				break
			}
			if got := ob.Statements[i].String(); got != s.String() {
				out = append(out, Divergence{
					Block:  b.Tag,
					Index:  i,
					Offset: s.Pos(),
					Readings: map[parser.StrategyID]string{
						parser.StrategyStrict: s.String(),
						id:                    got,
					},
				})
			}
		}
	}
	return out
}

func mergeDivergences(into, add []Divergence) []Divergence {
	for _, d := range add {
		merged := false
		for i := range into {
			if into[i].Block == d.Block && into[i].Index == d.Index {
				for k, v := range d.Readings {
					into[i].Readings[k] = v
				}
				merged = true
				break
			}
		}
		if !merged {
			into = append(into, d)
		}
	}
	return into
}

// #endregion diff
