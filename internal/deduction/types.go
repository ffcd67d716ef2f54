package deduction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

// #region errors
var (
	ErrUnsupportedConstruct = errors.New("unsupported construct for natural deduction")
	ErrStepLimit            = errors.New("proof search step limit reached")
)

// #endregion errors

// #region rules
// Rule names an inference rule.
type Rule string

const (
	RulePremise      Rule = "premise"
	RuleAssumption   Rule = "assumption"
	RuleReiteration  Rule = "reiteration"
	RuleTrueIntro    Rule = "⊤I"
	RuleAndIntro     Rule = "∧I"
	RuleAndElim      Rule = "∧E"
	RuleOrIntroLeft  Rule = "∨I₁"
	RuleOrIntroRight Rule = "∨I₂"
	RuleOrElim       Rule = "∨E"
	RuleImpliesIntro Rule = "→I"
	RuleImpliesElim  Rule = "→E"
	RuleIffIntro     Rule = "↔I"
	RuleIffElim      Rule = "↔E"
	RuleNotIntro     Rule = "¬I"
	RuleBottomIntro  Rule = "⊥I"
	RuleBottomElim   Rule = "⊥E"
	RuleForallIntro  Rule = "∀I"
	RuleForallElim   Rule = "∀E"
	RuleExistsIntro  Rule = "∃I"
	RuleEqIntro      Rule = "=I"
)

// #endregion rules

// #region proof
// Step is one line of a proof. Refs index earlier steps.
type Step struct {
	Formula logic.Formula `json:"-"`
	Text    string        `json:"formula"`
	Rule    Rule          `json:"rule"`
	Refs    []int         `json:"refs,omitempty"`
	Frame   int           `json:"frame"`
	Premise string        `json:"premise,omitempty"`
	key     string
}

// Frame is an assumption scope in the proof arena. Frame 0 is the root;
// every other frame points at its parent by index.
type Frame struct {
	Parent     int       `json:"parent"`
	Assumption int       `json:"assumption"` // step index, -1 when none
	Eigen      logic.Var `json:"-"`
	Closed     bool      `json:"closed"`
	id         int
}

// Proof is the outcome of a search. Value is True when Goal was derived;
// the prover never concludes False.
type Proof struct {
	Goal     logic.Formula    `json:"-"`
	Value    logic.TruthValue `json:"value"`
	Steps    []Step           `json:"steps,omitempty"`
	Frames   []Frame          `json:"frames,omitempty"`
	Premises []string         `json:"premises,omitempty"`
	Explored int              `json:"explored"`
}

// String renders the proof one step per line, indented by frame depth.
func (p Proof) String() string {
	var b strings.Builder
	for i, s := range p.Steps {
		depth := 0
		for f := s.Frame; f > 0; f = p.Frames[f].Parent {
			depth++
		}
		refs := make([]string, len(s.Refs))
		for j, r := range s.Refs {
			refs[j] = fmt.Sprint(r + 1)
		}
		fmt.Fprintf(&b, "%3d %s%s  %s", i+1, strings.Repeat("│ ", depth), s.Text, s.Rule)
		if len(refs) > 0 {
			b.WriteString(" " + strings.Join(refs, ","))
		}
		if s.Premise != "" {
			b.WriteString(" " + s.Premise)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// #endregion proof
