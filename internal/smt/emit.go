package smt

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

// #region script
// Script renders q as an SMT-LIB 2 script. The returned map sends each
// emitted assertion label back to the axiom name it came from.
func Script(q Query) (string, map[string]string) {
	var b strings.Builder
	b.WriteString("(set-option :produce-unsat-cores true)\n")
	b.WriteString("(set-option :produce-models true)\n")
	if q.Logic != "" {
		b.WriteString("(set-logic " + q.Logic + ")\n")
	} else {
		b.WriteString("(declare-sort U 0)\n(declare-sort Set 0)\n")
	}

	defined := map[string]bool{}
	all := make([]logic.Formula, 0, len(q.Axioms)+1)
	for _, a := range q.Axioms {
		if d, ok := a.F.(logic.Definition); ok {
			defined[d.Name] = true
		}
		all = append(all, a.F)
	}
	if q.Goal != nil {
		all = append(all, q.Goal)
	}
	for _, sig := range logic.Signatures(all...) {
		if defined[sig.Name] {
			continue
		}
		b.WriteString("(declare-fun " + logic.SymbolName(sig.Name) + " (")
		for i, s := range sig.Args {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(string(s))
		}
		b.WriteString(") " + string(sig.Result) + ")\n")
	}

	labels := map[string]string{}
	for _, a := range q.Axioms {
		if d, ok := a.F.(logic.Definition); ok {
			b.WriteString(d.String() + "\n")
		}
	}
	for _, a := range q.Axioms {
		if _, ok := a.F.(logic.Definition); ok {
			continue
		}
		label := logic.SymbolName(a.Name)
		labels[label] = a.Name
		b.WriteString("(assert (! " + a.F.String() + " :named " + label + "))\n")
	}
	if q.Goal != nil {
		goal := q.Goal
		if q.Mode == Validity {
			goal = logic.Not{F: goal}
		}
		labels[GoalLabel] = GoalLabel
		b.WriteString("(assert (! " + goal.String() + " :named " + GoalLabel + "))\n")
	}
	b.WriteString("(check-sat)\n(get-unsat-core)\n(get-model)\n(get-info :reason-unknown)\n")
	return b.String(), labels
}

// #endregion script

// #region key
// Key is the cache key of q: a SHA-256 over the mode, the alpha-canonical
// labelled axioms in name order, and the canonical goal.
func Key(q Query) string {
	lines := make([]string, len(q.Axioms))
	for i, a := range q.Axioms {
		lines[i] = a.Name + "\x00" + logic.Canon(a.F).String()
	}
	sort.Strings(lines)
	h := sha256.New()
	h.Write([]byte(q.Mode))
	h.Write([]byte{'\n'})
	h.Write([]byte(q.Logic))
	h.Write([]byte{'\n'})
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	if q.Goal != nil {
		h.Write([]byte(logic.Canon(q.Goal).String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Reduce shrinks q for a retry: constants are folded and, for validity
// queries, only axioms sharing symbols with the goal are kept. A definite
// unsat answer to the reduced query holds for q as well.
func Reduce(q Query, rounds int) Query {
	out := Query{Mode: q.Mode, Logic: q.Logic}
	if q.Goal != nil {
		out.Goal = logic.Simplify(q.Goal)
	}
	axioms := q.Axioms
	if q.Mode == Validity && out.Goal != nil {
		axioms = logic.Relevant(out.Goal, q.Axioms, rounds)
	}
	for _, a := range axioms {
		out.Axioms = append(out.Axioms, logic.Named{Name: a.Name, F: logic.Simplify(a.F)})
	}
	return out
}

// #endregion key
