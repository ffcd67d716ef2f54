package trivector

import (
	"fmt"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// #region space-kind
// Kind names one of the three vector spaces.
type Kind int

const (
	Semantic Kind = iota
	Structural
	Safety
)

func (k Kind) String() string {
	switch k {
	case Semantic:
		return "semantic"
	case Structural:
		return "structural"
	case Safety:
		return "safety"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "semantic":
		*k = Semantic
	case "structural":
		*k = Structural
	case "safety":
		*k = Safety
	default:
		return fmt.Errorf("invalid space kind %q", b)
	}
	return nil
}

// Band is a half-open coordinate range of the ambient space.
type Band struct{ Lo, Hi int }

func (b Band) Size() int { return b.Hi - b.Lo }

// Ambient is the dimension every generator lives in.
const Ambient = 1536

// Bands lays the three nominal spaces side by side in the ambient space.
var Bands = [...]Band{
	Semantic:   {0, 768},
	Structural: {768, 1280},
	Safety:     {1280, 1536},
}

// NominalDim is the declared dimension of a space.
func (k Kind) NominalDim() int { return Bands[k].Size() }

// #endregion space-kind

// #region space
// Source records which statement produced a generator.
type Source struct {
	Block  ast.BlockTag `json:"block"`
	Index  int          `json:"index"`
	Offset int          `json:"offset"`
	Text   string       `json:"text"`
}

// Space is one vector space spanned by its generators.
type Space struct {
	Kind       Kind
	NominalDim int
	Generators [][]float64
	Sources    []Source
}

// Spaces holds the three spaces derived from one document.
type Spaces struct {
	Semantic   Space
	Structural Space
	Safety     Space
}

// Get returns the space of the given kind.
func (s *Spaces) Get(k Kind) *Space {
	switch k {
	case Semantic:
		return &s.Semantic
	case Structural:
		return &s.Structural
	default:
		return &s.Safety
	}
}

// #endregion space

// #region results
// Method names how a pair verdict was established.
type Method string

const (
	MethodTrivial      Method = "trivial"
	MethodInnerProduct Method = "inner_product"
	MethodSMT          Method = "smt"
	MethodRank         Method = "rank"
)

// PairResult is the intersection verdict for two spaces.
type PairResult struct {
	A            Kind      `json:"a"`
	B            Kind      `json:"b"`
	Orthogonal   bool      `json:"orthogonal"`
	Intersection int       `json:"intersection_dim"`
	Method       Method    `json:"method"`
	Permitted    bool      `json:"permitted"`
	Witness      []float64 `json:"-"`
	// Shared lists the sources on each side that contribute to the witness.
	Shared []Source `json:"shared,omitempty"`
}

// Violation reports whether the pair breaks isolation.
func (r PairResult) Violation() bool { return !r.Orthogonal && !r.Permitted }

// Report is the verdict for all three pairs.
type Report struct {
	Dims  map[Kind]int `json:"dims"`
	Pairs []PairResult `json:"pairs"`
}

// Violations returns the pairs that break isolation.
func (r Report) Violations() []PairResult {
	var out []PairResult
	for _, p := range r.Pairs {
		if p.Violation() {
			out = append(out, p)
		}
	}
	return out
}

// #endregion results
