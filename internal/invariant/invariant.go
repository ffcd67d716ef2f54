// Package invariant discovers likely invariants of a document from its
// type declarations and rules, and scores each by combining independent
// cues with a noisy-or.
package invariant

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// #region types
type Kind string

const (
	TypeSafety Kind = "type_safety"
	Bounds     Kind = "bounds"
	Membership Kind = "membership"
	Structural Kind = "structural"
)

// Cue is one kind of evidence for an invariant.
type Cue string

const (
	TypeDeclaration     Cue = "type_declaration"
	ExplicitRange       Cue = "explicit_range"
	ExplicitEnumeration Cue = "explicit_enumeration"
	QuantifiedRule      Cue = "quantified_rule"
	RepeatedOccurrence  Cue = "repeated_occurrence"
	StructuralCheck     Cue = "structural_check"
)

// Weight is the probability a single cue of this kind contributes.
func (c Cue) Weight() float64 {
	switch c {
	case TypeDeclaration:
		return 0.6
	case ExplicitRange, ExplicitEnumeration:
		return 0.7
	case QuantifiedRule:
		return 0.5
	case RepeatedOccurrence:
		return 0.25
	case StructuralCheck:
		return 0.9
	}
	return 0
}

const maxRepeats = 3

type Evidence struct {
	Cue    Cue          `json:"cue"`
	Block  ast.BlockTag `json:"block"`
	Offset int          `json:"offset"`
}

// Source is a statement that states the invariant.
type Source struct {
	Block  ast.BlockTag `json:"block"`
	Offset int          `json:"offset"`
}

type Invariant struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Subject    string     `json:"subject"`
	Expr       ast.Expr   `json:"-"`
	Text       string     `json:"formula"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
	Sources    []Source   `json:"sources"`
}

// StatedAt reports whether the statement at offset in block is one of the
// invariant's sources.
func (inv Invariant) StatedAt(block ast.BlockTag, offset int) bool {
	for _, s := range inv.Sources {
		if s.Block == block && s.Offset == offset {
			return true
		}
	}
	return false
}

// #endregion types

// #region config
type Config struct {
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	Max       int     `yaml:"max" validate:"gte=1"`
	AssumeAt  float64 `yaml:"assume_at" validate:"gte=0,lte=1"`
}

func DefaultConfig() Config {
	return Config{Threshold: 0.5, Max: 50, AssumeAt: 0.8}
}

// #endregion config

// #region discover
// Discoverer runs the matchers over a document.
type Discoverer struct {
	config Config
}

func NewDiscoverer(config Config) *Discoverer {
	return &Discoverer{config: config}
}

// Discover runs the default discoverer.
func Discover(doc *ast.Document) []Invariant {
	return NewDiscoverer(DefaultConfig()).Discover(doc)
}

// Discover returns invariants at or above the threshold, most confident
// first, at most Max of them. The result is deterministic for a document.
func (d *Discoverer) Discover(doc *ast.Document) []Invariant {
	b := newBuilder(doc)
	b.typeSafety()
	b.membership()
	b.bounds()
	b.structural()

	var out []Invariant
	for _, key := range b.order {
		inv := b.found[key]
		inv.Confidence = confidence(inv)
		if inv.Confidence+1e-12 < d.config.Threshold {
			continue
		}
		inv.ID = identify(inv.Kind, inv.Subject, key)
		out = append(out, *inv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > d.config.Max {
		out = out[:d.config.Max]
	}
	return out
}

// Assumable returns the invariants confident enough to be assumed while
// proving the statement at offset in block, leaving out those it states.
func (d *Discoverer) Assumable(invs []Invariant, block ast.BlockTag, offset int) []Invariant {
	var out []Invariant
	for _, inv := range invs {
		if inv.Confidence+1e-12 >= d.config.AssumeAt && !inv.StatedAt(block, offset) {
			out = append(out, inv)
		}
	}
	return out
}

// confidence combines the strongest cue of each kind with a noisy-or.
// Every source beyond the first adds a RepeatedOccurrence cue.
func confidence(inv *Invariant) float64 {
	best := map[Cue]float64{}
	for _, e := range inv.Evidence {
		best[e.Cue] = math.Max(best[e.Cue], e.Cue.Weight())
	}
	miss := 1.0
	for _, w := range best {
		miss *= 1 - w
	}
	extra := min(len(inv.Sources)-1, maxRepeats)
	for i := 0; i < extra; i++ {
		miss *= 1 - RepeatedOccurrence.Weight()
	}
	return math.Round((1-miss)*1e6) / 1e6
}

func identify(kind Kind, subject, key string) string {
	var b strings.Builder
	for _, r := range subject {
		if r < 0x80 && (r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	prefix := string(kind)
	if b.Len() > 0 {
		prefix += "_" + b.String()
	}
	return fmt.Sprintf("%s_%04x", prefix, xxhash.Sum64String(key)&0xffff)
}

// #endregion discover
