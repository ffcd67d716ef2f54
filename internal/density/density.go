// Package density scores how much formal structure a document carries and
// how many ways it can be read.
package density

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

const (
	blockWeight   = 0.4
	bindingWeight = 0.6
	precision     = 1e9
)

// ExpectedBindings is the minimum number of binding operators each required
// block needs for full binding credit.
var ExpectedBindings = map[ast.BlockTag]int{
	ast.Meta:      3,
	ast.Types:     4,
	ast.Rules:     6,
	ast.Functions: 4,
	ast.Evidence:  3,
}

// Tier thresholds; a score on a boundary takes the higher tier.
const (
	PlatinumMin = 0.75
	GoldMin     = 0.60
	SilverMin   = 0.40
	BronzeMin   = 0.20
)

// #region analyze
// Analyze computes δ, ρ and the tier for a parsed document.
func Analyze(src []byte, toks []lexer.Token, doc *ast.Document) Metrics {
	var m Metrics
	found, bound, expected := 0, 0, 0
	for _, tag := range ast.RequiredBlocks {
		bc := BlockCount{Tag: tag, Expected: ExpectedBindings[tag]}
		expected += bc.Expected
		if b := doc.Block(tag); b != nil {
			bc.Found = true
			found++
			bc.Bindings = countBindings(toks, b.Offset, b.End)
			bound += min(bc.Bindings, bc.Expected)
		}
		m.Blocks = append(m.Blocks, bc)
	}

	m.BlockScore = float64(found) / float64(len(ast.RequiredBlocks))
	if expected > 0 {
		m.BindingScore = float64(bound) / float64(expected)
	}
	m.Delta = round(blockWeight*m.BlockScore + bindingWeight*m.BindingScore)
	m.Tier = TierFor(m.Delta)
	m.SymbolCount, m.TokenCount, m.PureDensity = pureDensity(src)
	return m
}

func countBindings(toks []lexer.Token, from, to int) int {
	n := 0
	for _, t := range toks {
		if t.Offset < from {
			continue
		}
		if t.Offset >= to {
			break
		}
		if t.Kind.IsBinding() {
			n++
		}
	}
	return n
}

// pureDensity is registry symbols per whitespace-separated token.
func pureDensity(src []byte) (symbolsN, tokensN int, rho float64) {
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		if symbols.IsAISP(r) {
			symbolsN++
		}
		i += size
	}
	tokensN = len(strings.Fields(string(src)))
	if tokensN == 0 {
		return symbolsN, 0, 0
	}
	return symbolsN, tokensN, round(float64(symbolsN) / float64(tokensN))
}

func round(x float64) float64 { return math.Round(x*precision) / precision }

// #endregion analyze

// #region tier
// TierFor maps a density score to its tier. Every finite δ maps to exactly
// one tier.
func TierFor(delta float64) Tier {
	d := round(delta)
	switch {
	case d >= PlatinumMin:
		return Platinum
	case d >= GoldMin:
		return Gold
	case d >= SilverMin:
		return Silver
	case d >= BronzeMin:
		return Bronze
	default:
		return Reject
	}
}

// #endregion tier
