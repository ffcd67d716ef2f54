// Package deduction searches for natural-deduction proofs over logic
// formulas. It is goal-directed: introduction rules follow the shape of
// the goal, elimination rules chain backward from available facts, and a
// bounded forward pass saturates each new assumption scope.
package deduction

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

const (
	DefaultMaxSteps = 10000
	DefaultMaxDepth = 50

	saturationRounds = 3
)

// Prover bounds a proof search. The zero value uses the defaults.
type Prover struct {
	MaxSteps int
	MaxDepth int
}

// DefaultProver returns a prover with the default limits.
func DefaultProver() Prover {
	return Prover{MaxSteps: DefaultMaxSteps, MaxDepth: DefaultMaxDepth}
}

// Prove searches for a derivation of goal from premises. A found proof has
// Value True. Exhausting the search space yields Unknown with a nil error;
// exhausting the step budget yields Unknown with ErrStepLimit. Definition
// premises are skipped; a goal containing a definition is rejected with
// ErrUnsupportedConstruct.
func (p Prover) Prove(ctx context.Context, goal logic.Formula, premises []logic.Named) (Proof, error) {
	if p.MaxSteps <= 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	proof := Proof{Goal: goal, Value: logic.Unknown}
	if err := ctx.Err(); err != nil {
		return proof, err
	}
	if hasDefinition(goal) {
		return proof, fmt.Errorf("%w: definition in goal", ErrUnsupportedConstruct)
	}

	s := &search{
		ctx:      ctx,
		limits:   p,
		frames:   []Frame{{Parent: -1, Assumption: -1}},
		taken:    logic.Symbols(goal),
		failed:   map[string]bool{},
		active:   map[string]bool{},
		grounds:  map[logic.Sort][]logic.Term{},
		seenTerm: map[string]bool{},
	}
	s.noteNames(goal)
	s.collectGrounds(goal)
	for _, pr := range premises {
		if hasDefinition(pr.F) {
			continue
		}
		s.noteNames(pr.F)
		s.collectGrounds(pr.F)
		i := s.add(pr.F, RulePremise, 0)
		s.steps[i].Premise = pr.Name
	}

	root, err := s.run(goal)
	proof.Explored = s.work
	if err != nil {
		return proof, err
	}
	if root < 0 {
		return proof, nil
	}
	proof.Value = logic.True
	proof.Steps, proof.Frames = s.steps, s.frames
	proof.Premises = s.premisesUsed(root)
	return proof, nil
}

// #region search
type search struct {
	ctx    context.Context
	limits Prover
	steps  []Step
	frames []Frame
	work   int
	serial int

	taken    map[string]bool
	failed   map[string]bool
	active   map[string]bool
	grounds  map[logic.Sort][]logic.Term
	seenTerm map[string]bool
}

func (s *search) run(goal logic.Formula) (int, error) {
	if err := s.saturate(0); err != nil {
		return -1, err
	}
	return s.prove(goal, 0, 0)
}

func (s *search) tick() error {
	s.work++
	if s.work > s.limits.MaxSteps {
		return ErrStepLimit
	}
	if s.work%64 == 0 {
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *search) add(f logic.Formula, rule Rule, frame int, refs ...int) int {
	s.steps = append(s.steps, Step{
		Formula: f,
		Text:    f.String(),
		Rule:    rule,
		Refs:    refs,
		Frame:   frame,
		key:     keyOf(f),
	})
	return len(s.steps) - 1
}

func (s *search) truncate(steps, frames int) {
	s.steps = s.steps[:steps]
	s.frames = s.frames[:frames]
}

func (s *search) open(parent int, eigen logic.Var) int {
	s.serial++
	s.frames = append(s.frames, Frame{Parent: parent, Assumption: -1, Eigen: eigen, id: s.serial})
	return len(s.frames) - 1
}

// visible lists the steps usable in frame: those whose frame lies on the
// path from frame to the root.
func (s *search) visible(frame int) []int {
	chain := map[int]bool{}
	for f := frame; f >= 0; f = s.frames[f].Parent {
		chain[f] = true
	}
	var out []int
	for i, st := range s.steps {
		if chain[st.Frame] {
			out = append(out, i)
		}
	}
	return out
}

func (s *search) find(key string, frame int) int {
	for _, i := range s.visible(frame) {
		if s.steps[i].key == key {
			return i
		}
	}
	return -1
}

// cite makes step i usable as a reference inside frame.
func (s *search) cite(i, frame int) int {
	if s.steps[i].Frame == frame {
		return i
	}
	return s.add(s.steps[i].Formula, RuleReiteration, frame, i)
}

func (s *search) prove(goal logic.Formula, frame, depth int) (int, error) {
	if err := s.tick(); err != nil {
		return -1, err
	}
	if depth > s.limits.MaxDepth {
		return -1, nil
	}
	key := keyOf(goal)
	if i := s.find(key, frame); i >= 0 {
		return s.cite(i, frame), nil
	}
	if _, isBottom := goal.(logic.Truth); !isBottom {
		if i := s.find(keyOf(logic.Truth{}), frame); i >= 0 {
			return s.add(goal, RuleBottomElim, frame, s.cite(i, frame)), nil
		}
	}

	visible := s.visible(frame)
	memo := key + "@" + strconv.Itoa(s.frames[frame].id) + "#" + strconv.Itoa(len(visible))
	if s.failed[memo] || s.active[memo] {
		return -1, nil
	}
	s.active[memo] = true
	defer delete(s.active, memo)

	mark, fmark := len(s.steps), len(s.frames)
	i, err := s.introduce(goal, frame, depth)
	if err != nil || i >= 0 {
		return i, err
	}
	s.truncate(mark, fmark)
	i, err = s.eliminate(goal, visible, frame, depth)
	if err != nil || i >= 0 {
		return i, err
	}
	s.truncate(mark, fmark)
	s.failed[memo] = true
	return -1, nil
}

// #endregion search

// #region introduction
func (s *search) introduce(goal logic.Formula, frame, depth int) (int, error) {
	switch g := goal.(type) {
	case logic.Truth:
		if g.Value {
			return s.add(g, RuleTrueIntro, frame), nil
		}
		return s.contradiction(frame, depth)

	case logic.Atom:
		if g.Pred == "=" && len(g.Args) == 2 && g.Args[0].String() == g.Args[1].String() {
			return s.add(g, RuleEqIntro, frame), nil
		}

	case logic.And:
		refs := make([]int, 0, len(g.Fs))
		for _, c := range g.Fs {
			i, err := s.prove(c, frame, depth+1)
			if err != nil || i < 0 {
				return -1, err
			}
			refs = append(refs, i)
		}
		return s.add(g, RuleAndIntro, frame, refs...), nil

	case logic.Or:
		for k, d := range g.Fs {
			mark, fmark := len(s.steps), len(s.frames)
			i, err := s.prove(d, frame, depth+1)
			if err != nil {
				return -1, err
			}
			if i >= 0 {
				rule := RuleOrIntroRight
				if k == 0 {
					rule = RuleOrIntroLeft
				}
				return s.add(g, rule, frame, i), nil
			}
			s.truncate(mark, fmark)
		}

	case logic.Implies:
		f, a, err := s.assume(frame, g.L)
		if err != nil {
			return -1, err
		}
		r, err := s.prove(g.R, f, depth+1)
		if err != nil || r < 0 {
			return -1, err
		}
		s.frames[f].Closed = true
		return s.add(g, RuleImpliesIntro, frame, a, r), nil

	case logic.Iff:
		l, err := s.prove(logic.Implies{L: g.L, R: g.R}, frame, depth+1)
		if err != nil || l < 0 {
			return -1, err
		}
		r, err := s.prove(logic.Implies{L: g.R, R: g.L}, frame, depth+1)
		if err != nil || r < 0 {
			return -1, err
		}
		return s.add(g, RuleIffIntro, frame, l, r), nil

	case logic.Not:
		f, a, err := s.assume(frame, g.F)
		if err != nil {
			return -1, err
		}
		r, err := s.prove(logic.Truth{}, f, depth+1)
		if err != nil || r < 0 {
			return -1, err
		}
		s.frames[f].Closed = true
		return s.add(g, RuleNotIntro, frame, a, r), nil

	case logic.Forall:
		eigen := logic.Var{Name: s.fresh(g.V.Name), S: g.V.S}
		f := s.open(frame, eigen)
		r, err := s.prove(logic.Substitute(g.Body, g.V.Name, eigen), f, depth+1)
		if err != nil || r < 0 {
			return -1, err
		}
		s.frames[f].Closed = true
		return s.add(g, RuleForallIntro, frame, r), nil

	case logic.Exists:
		for _, t := range s.candidates(g.V.S, frame) {
			mark, fmark := len(s.steps), len(s.frames)
			i, err := s.prove(logic.Substitute(g.Body, g.V.Name, t), frame, depth+1)
			if err != nil {
				return -1, err
			}
			if i >= 0 {
				return s.add(g, RuleExistsIntro, frame, i), nil
			}
			s.truncate(mark, fmark)
		}

	case logic.Definition:
		return -1, fmt.Errorf("%w: definition of %s", ErrUnsupportedConstruct, g.Name)
	}
	return -1, nil
}

// assume opens a frame whose first step is the assumption f and saturates it.
func (s *search) assume(parent int, f logic.Formula) (int, int, error) {
	frame := s.open(parent, logic.Var{})
	a := s.add(f, RuleAssumption, frame)
	s.frames[frame].Assumption = a
	s.collectGrounds(f)
	return frame, a, s.saturate(frame)
}

// contradiction derives ⊥ in frame from some visible ¬P and a proof of P.
func (s *search) contradiction(frame, depth int) (int, error) {
	visible := s.visible(frame)
	for _, i := range visible {
		n, ok := s.steps[i].Formula.(logic.Not)
		if !ok {
			continue
		}
		if j := s.find(keyOf(n.F), frame); j >= 0 {
			return s.add(logic.Truth{}, RuleBottomIntro, frame, s.cite(j, frame), s.cite(i, frame)), nil
		}
	}
	for _, i := range visible {
		n, ok := s.steps[i].Formula.(logic.Not)
		if !ok {
			continue
		}
		mark, fmark := len(s.steps), len(s.frames)
		j, err := s.prove(n.F, frame, depth+1)
		if err != nil {
			return -1, err
		}
		if j >= 0 {
			return s.add(logic.Truth{}, RuleBottomIntro, frame, j, s.cite(i, frame)), nil
		}
		s.truncate(mark, fmark)
	}
	return -1, nil
}

// #endregion introduction

// #region elimination
func (s *search) eliminate(goal logic.Formula, visible []int, frame, depth int) (int, error) {
	key := keyOf(goal)
	for _, i := range visible {
		mark, fmark := len(s.steps), len(s.frames)
		r, err := -1, error(nil)
		switch f := s.steps[i].Formula.(type) {
		case logic.Implies:
			if keyOf(f.R) == key {
				r, err = s.modusPonens(i, f, frame, depth)
			}
		case logic.Iff:
			if keyOf(f.R) == key {
				r, err = s.iffElim(i, f.L, goal, frame, depth)
			}
			if r < 0 && err == nil && keyOf(f.L) == key {
				r, err = s.iffElim(i, f.R, goal, frame, depth)
			}
		case logic.Forall:
			r, err = s.instantiate(i, goal, frame, depth)
		case logic.Or:
			r, err = s.cases(i, f, goal, frame, depth)
		}
		if err != nil || r >= 0 {
			return r, err
		}
		s.truncate(mark, fmark)
	}
	return -1, nil
}

func (s *search) modusPonens(i int, f logic.Implies, frame, depth int) (int, error) {
	a, err := s.prove(f.L, frame, depth+1)
	if err != nil || a < 0 {
		return -1, err
	}
	return s.add(f.R, RuleImpliesElim, frame, s.cite(i, frame), a), nil
}

func (s *search) iffElim(i int, side, goal logic.Formula, frame, depth int) (int, error) {
	a, err := s.prove(side, frame, depth+1)
	if err != nil || a < 0 {
		return -1, err
	}
	return s.add(goal, RuleIffElim, frame, s.cite(i, frame), a), nil
}

// instantiate matches goal against the matrix of a universal fact, or
// against the consequent of an implicational matrix, and chains ∀E with →E.
func (s *search) instantiate(i int, goal logic.Formula, frame, depth int) (int, error) {
	vars, body := peel(s.steps[i].Formula)
	bound := map[string]bool{}
	for _, v := range vars {
		bound[v.Name] = true
	}
	target, imp := body, false
	b := map[string]logic.Term{}
	if !match(target, goal, bound, b) {
		ip, ok := body.(logic.Implies)
		if !ok {
			return -1, nil
		}
		b = map[string]logic.Term{}
		if !match(ip.R, goal, bound, b) {
			return -1, nil
		}
		imp = true
	}
	for _, v := range vars {
		if _, ok := b[v.Name]; !ok {
			return -1, nil
		}
	}
	inst := s.specialize(i, vars, b, frame)
	if !imp {
		return inst, nil
	}
	ip := s.steps[inst].Formula.(logic.Implies)
	return s.modusPonens(inst, ip, frame, depth)
}

// specialize applies ∀E once per variable, returning the final step.
func (s *search) specialize(i int, vars []logic.Var, b map[string]logic.Term, frame int) int {
	cur := s.cite(i, frame)
	for _, v := range vars {
		fa := s.steps[cur].Formula.(logic.Forall)
		next := logic.Substitute(fa.Body, fa.V.Name, b[v.Name])
		cur = s.add(next, RuleForallElim, frame, cur)
	}
	return cur
}

// cases applies ∨E: the goal must follow under each disjunct.
func (s *search) cases(i int, f logic.Or, goal logic.Formula, frame, depth int) (int, error) {
	for _, d := range f.Fs {
		if s.find(keyOf(d), frame) >= 0 {
			return -1, nil
		}
	}
	refs := []int{s.cite(i, frame)}
	for _, d := range f.Fs {
		sub, a, err := s.assume(frame, d)
		if err != nil {
			return -1, err
		}
		r, err := s.prove(goal, sub, depth+1)
		if err != nil || r < 0 {
			return -1, err
		}
		s.frames[sub].Closed = true
		refs = append(refs, a, r)
	}
	return s.add(goal, RuleOrElim, frame, refs...), nil
}

// #endregion elimination

// #region saturation
// saturate closes frame under ∧E, →E, ↔E and guard-driven ∀E for a few
// rounds.
func (s *search) saturate(frame int) error {
	for round := 0; round < saturationRounds; round++ {
		grew := false
		for _, i := range s.visible(frame) {
			derived, err := s.forward(i, frame)
			if err != nil {
				return err
			}
			grew = grew || derived
		}
		if !grew {
			return nil
		}
	}
	return nil
}

func (s *search) forward(i, frame int) (bool, error) {
	grew := false
	derive := func(f logic.Formula, rule Rule, refs ...int) error {
		if s.find(keyOf(f), frame) >= 0 {
			return nil
		}
		if err := s.tick(); err != nil {
			return err
		}
		for k, r := range refs {
			refs[k] = s.cite(r, frame)
		}
		s.add(f, rule, frame, refs...)
		grew = true
		return nil
	}

	switch f := s.steps[i].Formula.(type) {
	case logic.And:
		for _, c := range f.Fs {
			if err := derive(c, RuleAndElim, i); err != nil {
				return grew, err
			}
		}
	case logic.Implies:
		if a := s.find(keyOf(f.L), frame); a >= 0 {
			return grew, derive(f.R, RuleImpliesElim, i, a)
		}
	case logic.Iff:
		if a := s.find(keyOf(f.L), frame); a >= 0 {
			if err := derive(f.R, RuleIffElim, i, a); err != nil {
				return grew, err
			}
		}
		if a := s.find(keyOf(f.R), frame); a >= 0 {
			return grew, derive(f.L, RuleIffElim, i, a)
		}
	case logic.Forall:
		vars, body := peel(f)
		ip, ok := body.(logic.Implies)
		if !ok {
			return grew, nil
		}
		bound := map[string]bool{}
		for _, v := range vars {
			bound[v.Name] = true
		}
		for _, j := range s.visible(frame) {
			b := map[string]logic.Term{}
			if _, isAtom := s.steps[j].Formula.(logic.Atom); !isAtom || !match(ip.L, s.steps[j].Formula, bound, b) || len(b) != len(vars) {
				continue
			}
			concl := ip.R
			for _, v := range vars {
				concl = logic.Substitute(concl, v.Name, b[v.Name])
			}
			if s.find(keyOf(concl), frame) >= 0 {
				continue
			}
			if err := s.tick(); err != nil {
				return grew, err
			}
			inst := s.specialize(i, vars, b, frame)
			s.add(concl, RuleImpliesElim, frame, inst, s.cite(j, frame))
			grew = true
		}
	}
	return grew, nil
}

// #endregion saturation

// #region terms
func (s *search) noteNames(f logic.Formula) {
	for name := range logic.Symbols(f) {
		s.taken[name] = true
	}
	for _, v := range logic.FreeVars(f) {
		s.taken[v.Name] = true
	}
}

func (s *search) fresh(base string) string {
	name := logic.Fresh(base+"_0", func(n string) bool { return s.taken[n] })
	s.taken[name] = true
	return name
}

func (s *search) collectGrounds(f logic.Formula) {
	walkTerms(f, func(t logic.Term) {
		if !ground(t) {
			return
		}
		k := string(t.Sort()) + ":" + t.String()
		if s.seenTerm[k] {
			return
		}
		s.seenTerm[k] = true
		s.grounds[t.Sort()] = append(s.grounds[t.Sort()], t)
	})
}

// candidates lists the witnesses tried for ∃I in frame: ground terms of
// the sort plus eigenvariables in scope.
func (s *search) candidates(sort logic.Sort, frame int) []logic.Term {
	out := append([]logic.Term(nil), s.grounds[sort]...)
	for f := frame; f >= 0; f = s.frames[f].Parent {
		if e := s.frames[f].Eigen; e.Name != "" && e.S == sort {
			out = append(out, e)
		}
	}
	return out
}

func (s *search) premisesUsed(root int) []string {
	seen := map[int]bool{}
	names := map[string]bool{}
	stack := []int{root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		if s.steps[i].Premise != "" {
			names[s.steps[i].Premise] = true
		}
		stack = append(stack, s.steps[i].Refs...)
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// #endregion terms

// #region helpers
func keyOf(f logic.Formula) string { return logic.Canon(f).String() }

func peel(f logic.Formula) ([]logic.Var, logic.Formula) {
	var vars []logic.Var
	for {
		fa, ok := f.(logic.Forall)
		if !ok {
			return vars, f
		}
		vars = append(vars, fa.V)
		f = fa.Body
	}
}

// match unifies pattern p with f, binding the names in vars. Quantified
// subformulas must agree up to renaming and may not mention vars.
func match(p, f logic.Formula, vars map[string]bool, b map[string]logic.Term) bool {
	switch pn := p.(type) {
	case logic.Truth:
		fn, ok := f.(logic.Truth)
		return ok && fn.Value == pn.Value
	case logic.Atom:
		fn, ok := f.(logic.Atom)
		if !ok || fn.Pred != pn.Pred || len(fn.Args) != len(pn.Args) {
			return false
		}
		for i := range pn.Args {
			if !matchTerm(pn.Args[i], fn.Args[i], vars, b) {
				return false
			}
		}
		return true
	case logic.Not:
		fn, ok := f.(logic.Not)
		return ok && match(pn.F, fn.F, vars, b)
	case logic.And:
		fn, ok := f.(logic.And)
		return ok && matchAll(pn.Fs, fn.Fs, vars, b)
	case logic.Or:
		fn, ok := f.(logic.Or)
		return ok && matchAll(pn.Fs, fn.Fs, vars, b)
	case logic.Implies:
		fn, ok := f.(logic.Implies)
		return ok && match(pn.L, fn.L, vars, b) && match(pn.R, fn.R, vars, b)
	case logic.Iff:
		fn, ok := f.(logic.Iff)
		return ok && match(pn.L, fn.L, vars, b) && match(pn.R, fn.R, vars, b)
	}
	for _, v := range logic.FreeVars(p) {
		if vars[v.Name] {
			return false
		}
	}
	return logic.AlphaEqual(p, f)
}

func matchAll(ps, fs []logic.Formula, vars map[string]bool, b map[string]logic.Term) bool {
	if len(ps) != len(fs) {
		return false
	}
	for i := range ps {
		if !match(ps[i], fs[i], vars, b) {
			return false
		}
	}
	return true
}

func matchTerm(p, t logic.Term, vars map[string]bool, b map[string]logic.Term) bool {
	if v, ok := p.(logic.Var); ok && vars[v.Name] {
		if prev, bound := b[v.Name]; bound {
			return prev.String() == t.String() && prev.Sort() == t.Sort()
		}
		if t.Sort() != v.S {
			return false
		}
		b[v.Name] = t
		return true
	}
	pa, ok := p.(logic.App)
	if !ok {
		return p.String() == t.String() && p.Sort() == t.Sort()
	}
	ta, ok := t.(logic.App)
	if !ok || ta.Fn != pa.Fn || len(ta.Args) != len(pa.Args) {
		return false
	}
	for i := range pa.Args {
		if !matchTerm(pa.Args[i], ta.Args[i], vars, b) {
			return false
		}
	}
	return true
}

func ground(t logic.Term) bool {
	switch n := t.(type) {
	case logic.Var:
		return false
	case logic.App:
		for _, a := range n.Args {
			if !ground(a) {
				return false
			}
		}
	}
	return true
}

func walkTerms(f logic.Formula, fn func(logic.Term)) {
	var term func(logic.Term)
	term = func(t logic.Term) {
		fn(t)
		if a, ok := t.(logic.App); ok {
			for _, x := range a.Args {
				term(x)
			}
		}
	}
	switch n := f.(type) {
	case logic.Atom:
		for _, a := range n.Args {
			term(a)
		}
	case logic.Not:
		walkTerms(n.F, fn)
	case logic.And:
		for _, x := range n.Fs {
			walkTerms(x, fn)
		}
	case logic.Or:
		for _, x := range n.Fs {
			walkTerms(x, fn)
		}
	case logic.Implies:
		walkTerms(n.L, fn)
		walkTerms(n.R, fn)
	case logic.Iff:
		walkTerms(n.L, fn)
		walkTerms(n.R, fn)
	case logic.Forall:
		walkTerms(n.Body, fn)
	case logic.Exists:
		walkTerms(n.Body, fn)
	}
}

func hasDefinition(f logic.Formula) bool {
	switch n := f.(type) {
	case logic.Definition:
		return true
	case logic.Not:
		return hasDefinition(n.F)
	case logic.And:
		for _, x := range n.Fs {
			if hasDefinition(x) {
				return true
			}
		}
	case logic.Or:
		for _, x := range n.Fs {
			if hasDefinition(x) {
				return true
			}
		}
	case logic.Implies:
		return hasDefinition(n.L) || hasDefinition(n.R)
	case logic.Iff:
		return hasDefinition(n.L) || hasDefinition(n.R)
	case logic.Forall:
		return hasDefinition(n.Body)
	case logic.Exists:
		return hasDefinition(n.Body)
	}
	return false
}

// #endregion helpers
