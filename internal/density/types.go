package density

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
)

// #region tier
// Tier is the quality tier a density score maps to. Tiers are ordered, so
// a higher value is a better document.
type Tier int

const (
	Reject Tier = iota
	Bronze
	Silver
	Gold
	Platinum
)

var tierNames = [...]string{"Reject", "Bronze", "Silver", "Gold", "Platinum"}
var tierGlyphs = [...]string{"⊘", "◊⁻", "◊", "◊⁺", "◊⁺⁺"}

func (t Tier) String() string {
	if t < Reject || t > Platinum {
		return "invalid"
	}
	return tierNames[t]
}

// Glyph returns the document notation for the tier.
func (t Tier) Glyph() string {
	if t < Reject || t > Platinum {
		return "?"
	}
	return tierGlyphs[t]
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseTier accepts a tier name (case-insensitive) or its glyph.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for i := range tierNames {
		if strings.EqualFold(s, tierNames[i]) || s == tierGlyphs[i] {
			return Tier(i), nil
		}
	}
	return Reject, fmt.Errorf("unknown tier %q", s)
}

// TierFromLevel converts a parsed tier glyph level (0 for ⊘ through 4 for
// ◊⁺⁺) into a Tier.
func TierFromLevel(level int) Tier {
	if level < int(Reject) {
		return Reject
	}
	if level > int(Platinum) {
		return Platinum
	}
	return Tier(level)
}

// #endregion tier

// #region metrics
// BlockCount is the binding tally for one required block.
type BlockCount struct {
	Tag      ast.BlockTag `json:"tag"`
	Found    bool         `json:"found"`
	Bindings int          `json:"bindings"`
	Expected int          `json:"expected"`
}

// Metrics is the density result for one document.
type Metrics struct {
	Delta        float64      `json:"delta"`
	BlockScore   float64      `json:"block_score"`
	BindingScore float64      `json:"binding_score"`
	PureDensity  float64      `json:"pure_density"`
	Tier         Tier         `json:"tier"`
	Blocks       []BlockCount `json:"blocks"`
	SymbolCount  int          `json:"symbol_count"`
	TokenCount   int          `json:"token_count"`
}

// #endregion metrics

// #region ambiguity
// Interpretation is one strategy's reading of the document.
type Interpretation struct {
	Strategy    parser.StrategyID `json:"strategy"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Err         string            `json:"error,omitempty"`
}

// Divergence locates a statement that reads differently under some
// strategy than under the canonical one.
type Divergence struct {
	Block    ast.BlockTag                 `json:"block"`
	Index    int                          `json:"index"`
	Offset   int                          `json:"offset"`
	Readings map[parser.StrategyID]string `json:"readings"`
}

// Ambiguity summarises how many distinct meanings the strategies found.
type Ambiguity struct {
	Score           float64          `json:"score"`
	Interpretations []Interpretation `json:"interpretations"`
	Divergences     []Divergence     `json:"divergences,omitempty"`
}

// #endregion ambiguity

// #region evidence
// Mismatch is a disagreement between a declared Evidence field and the
// computed value.
type Mismatch struct {
	Field  string `json:"field"`
	Offset int    `json:"offset"`
	Msg    string `json:"message"`
}

// #endregion evidence
