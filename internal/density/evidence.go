package density

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// DeltaTolerance is how far a declared δ may sit from the computed one.
const DeltaTolerance = 0.1

// CheckEvidence compares the δ and τ declared in the Evidence block with
// the computed metrics. A missing Evidence block or field yields nothing.
func CheckEvidence(doc *ast.Document, m Metrics) []Mismatch {
	var ev *ast.EvidenceTuple
	for _, s := range doc.Statements(ast.Evidence) {
		if t, ok := s.(*ast.EvidenceTuple); ok {
			ev = t
			break
		}
	}
	if ev == nil {
		return nil
	}

	var out []Mismatch
	for _, f := range ev.Fields {
		switch f.Name {
		case "δ":
			n, ok := f.Value.(*ast.Number)
			if !ok {
				out = append(out, Mismatch{Field: f.Name, Offset: f.Offset, Msg: "declared δ is not a number"})
				continue
			}
			if math.Abs(n.Value-m.Delta) > DeltaTolerance {
				out = append(out, Mismatch{Field: f.Name, Offset: f.Offset,
					Msg: fmt.Sprintf("declared δ=%g but computed δ=%.3f", n.Value, m.Delta)})
			}
		case "τ":
			t, ok := f.Value.(*ast.Tier)
			if !ok {
				out = append(out, Mismatch{Field: f.Name, Offset: f.Offset, Msg: "declared τ is not a tier glyph"})
				continue
			}
			if declared := TierFromLevel(t.Level); declared > m.Tier {
				out = append(out, Mismatch{Field: f.Name, Offset: f.Offset,
					Msg: fmt.Sprintf("declared tier %s %s exceeds computed tier %s %s", declared.Glyph(), declared, m.Tier.Glyph(), m.Tier)})
			}
		case "φ":
			n, ok := f.Value.(*ast.Number)
			if ok && (n.Value < 0 || n.Value > 100) {
				out = append(out, Mismatch{Field: f.Name, Offset: f.Offset,
					Msg: fmt.Sprintf("declared φ=%g is outside 0..100", n.Value)})
			}
		}
	}
	return out
}
