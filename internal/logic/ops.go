package logic

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// #region hash
// Hash is the SHA-256 of the canonical form with bound variables renamed,
// so alpha-equivalent formulas share a hash.
func Hash(f Formula) string {
	sum := sha256.Sum256([]byte(Canon(f).String()))
	return hex.EncodeToString(sum[:])
}

// AlphaEqual reports whether a and b differ only in bound variable names.
func AlphaEqual(a, b Formula) bool { return Canon(a).String() == Canon(b).String() }

// Canon renames bound variables to _b0, _b1, … by binding depth.
func Canon(f Formula) Formula { return canon(f, map[string]string{}, 0) }

func canon(f Formula, ren map[string]string, depth int) Formula {
	switch n := f.(type) {
	case Truth:
		return n
	case Atom:
		return Atom{Pred: n.Pred, Args: renameTerms(n.Args, ren)}
	case Not:
		return Not{F: canon(n.F, ren, depth)}
	case And:
		return And{Fs: canonAll(n.Fs, ren, depth)}
	case Or:
		return Or{Fs: canonAll(n.Fs, ren, depth)}
	case Implies:
		return Implies{L: canon(n.L, ren, depth), R: canon(n.R, ren, depth)}
	case Iff:
		return Iff{L: canon(n.L, ren, depth), R: canon(n.R, ren, depth)}
	case Forall:
		v, inner := bindCanon(n.V, ren, depth)
		return Forall{V: v, Body: canon(n.Body, inner, depth+1)}
	case Exists:
		v, inner := bindCanon(n.V, ren, depth)
		return Exists{V: v, Body: canon(n.Body, inner, depth+1)}
	case Definition:
		inner := copyMap(ren)
		params := make([]Var, len(n.Params))
		for i, p := range n.Params {
			name := "_p" + strconv.Itoa(i)
			inner[p.Name] = name
			params[i] = Var{Name: name, S: p.S}
		}
		out := Definition{Name: n.Name, Params: params}
		if n.Term != nil {
			out.Term = renameTerm(n.Term, inner)
		} else {
			out.Body = canon(n.Body, inner, depth)
		}
		return out
	default:
		panic(fmt.Sprintf("logic: unexpected formula %T", f))
	}
}

func canonAll(fs []Formula, ren map[string]string, depth int) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = canon(f, ren, depth)
	}
	return out
}

func bindCanon(v Var, ren map[string]string, depth int) (Var, map[string]string) {
	inner := copyMap(ren)
	name := "_b" + strconv.Itoa(depth)
	inner[v.Name] = name
	return Var{Name: name, S: v.S}, inner
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func renameTerms(ts []Term, ren map[string]string) []Term {
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = renameTerm(t, ren)
	}
	return out
}

func renameTerm(t Term, ren map[string]string) Term {
	switch n := t.(type) {
	case Var:
		if r, ok := ren[n.Name]; ok {
			return Var{Name: r, S: n.S}
		}
		return n
	case App:
		return App{Fn: n.Fn, Args: renameTerms(n.Args, ren), S: n.S}
	default:
		return t
	}
}

// #endregion hash

// #region free-vars
// FreeVars lists the free variables of f in first-occurrence order.
func FreeVars(f Formula) []Var {
	var out []Var
	seen := map[string]bool{}
	var term func(Term, map[string]bool)
	term = func(t Term, bound map[string]bool) {
		switch n := t.(type) {
		case Var:
			if !bound[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n)
			}
		case App:
			for _, a := range n.Args {
				term(a, bound)
			}
		}
	}
	var walk func(Formula, map[string]bool)
	walk = func(f Formula, bound map[string]bool) {
		switch n := f.(type) {
		case Truth:
		case Atom:
			for _, a := range n.Args {
				term(a, bound)
			}
		case Not:
			walk(n.F, bound)
		case And:
			for _, g := range n.Fs {
				walk(g, bound)
			}
		case Or:
			for _, g := range n.Fs {
				walk(g, bound)
			}
		case Implies:
			walk(n.L, bound)
			walk(n.R, bound)
		case Iff:
			walk(n.L, bound)
			walk(n.R, bound)
		case Forall:
			walk(n.Body, with(bound, n.V.Name))
		case Exists:
			walk(n.Body, with(bound, n.V.Name))
		case Definition:
			inner := bound
			for _, p := range n.Params {
				inner = with(inner, p.Name)
			}
			if n.Term != nil {
				term(n.Term, inner)
			} else {
				walk(n.Body, inner)
			}
		default:
			panic(fmt.Sprintf("logic: unexpected formula %T", f))
		}
	}
	walk(f, map[string]bool{})
	return out
}

func with(m map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[name] = true
	return out
}

func termVars(t Term, into map[string]bool) {
	switch n := t.(type) {
	case Var:
		into[n.Name] = true
	case App:
		for _, a := range n.Args {
			termVars(a, into)
		}
	}
}

// #endregion free-vars

// #region substitute
// Substitute replaces free occurrences of variable name with t, renaming
// binders that would capture a variable of t.
func Substitute(f Formula, name string, t Term) Formula {
	tv := map[string]bool{}
	termVars(t, tv)
	return subst(f, name, t, tv)
}

func subst(f Formula, name string, t Term, tv map[string]bool) Formula {
	switch n := f.(type) {
	case Truth:
		return n
	case Atom:
		return Atom{Pred: n.Pred, Args: substTerms(n.Args, name, t)}
	case Not:
		return Not{F: subst(n.F, name, t, tv)}
	case And:
		return And{Fs: substAll(n.Fs, name, t, tv)}
	case Or:
		return Or{Fs: substAll(n.Fs, name, t, tv)}
	case Implies:
		return Implies{L: subst(n.L, name, t, tv), R: subst(n.R, name, t, tv)}
	case Iff:
		return Iff{L: subst(n.L, name, t, tv), R: subst(n.R, name, t, tv)}
	case Forall:
		v, body, ok := substBinder(n.V, n.Body, name, t, tv)
		if !ok {
			return n
		}
		return Forall{V: v, Body: body}
	case Exists:
		v, body, ok := substBinder(n.V, n.Body, name, t, tv)
		if !ok {
			return n
		}
		return Exists{V: v, Body: body}
	case Definition:
		for _, p := range n.Params {
			if p.Name == name {
				return n
			}
		}
		out := Definition{Name: n.Name, Params: n.Params}
		if n.Term != nil {
			out.Term = substTerm(n.Term, name, t)
		} else {
			out.Body = subst(n.Body, name, t, tv)
		}
		return out
	default:
		panic(fmt.Sprintf("logic: unexpected formula %T", f))
	}
}

// substBinder reports ok=false when the binder shadows name.
func substBinder(v Var, body Formula, name string, t Term, tv map[string]bool) (Var, Formula, bool) {
	if v.Name == name {
		return v, body, false
	}
	if tv[v.Name] {
		fresh := Fresh(v.Name, func(s string) bool { return tv[s] || occurs(body, s) })
		body = subst(body, v.Name, Var{Name: fresh, S: v.S}, map[string]bool{fresh: true})
		v = Var{Name: fresh, S: v.S}
	}
	return v, subst(body, name, t, tv), true
}

func substAll(fs []Formula, name string, t Term, tv map[string]bool) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = subst(f, name, t, tv)
	}
	return out
}

func substTerms(ts []Term, name string, t Term) []Term {
	out := make([]Term, len(ts))
	for i, a := range ts {
		out[i] = substTerm(a, name, t)
	}
	return out
}

func substTerm(a Term, name string, t Term) Term {
	switch n := a.(type) {
	case Var:
		if n.Name == name {
			return t
		}
		return n
	case App:
		return App{Fn: n.Fn, Args: substTerms(n.Args, name, t), S: n.S}
	default:
		return a
	}
}

func occurs(f Formula, name string) bool {
	for _, v := range FreeVars(f) {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Fresh returns base or base with a numeric suffix such that taken is false.
func Fresh(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		s := base + strconv.Itoa(i)
		if !taken(s) {
			return s
		}
	}
}

// #endregion substitute

// #region simplify
// Simplify folds constants, flattens nested connectives, drops duplicate
// operands and removes vacuous quantifiers. The result is equivalent to f.
func Simplify(f Formula) Formula {
	switch n := f.(type) {
	case Truth:
		return n
	case Atom:
		args := make([]Term, len(n.Args))
		for i, a := range n.Args {
			args[i] = foldTerm(a)
		}
		a := Atom{Pred: n.Pred, Args: args}
		if v, ok := evalAtom(a); ok {
			return Truth{Value: v}
		}
		return a
	case Not:
		inner := Simplify(n.F)
		switch g := inner.(type) {
		case Truth:
			return Truth{Value: !g.Value}
		case Not:
			return g.F
		}
		return Not{F: inner}
	case And:
		return simplifyJunction(n.Fs, true)
	case Or:
		return simplifyJunction(n.Fs, false)
	case Implies:
		l, r := Simplify(n.L), Simplify(n.R)
		if lt, ok := l.(Truth); ok {
			if !lt.Value {
				return Truth{Value: true}
			}
			return r
		}
		if rt, ok := r.(Truth); ok {
			if rt.Value {
				return Truth{Value: true}
			}
			return Simplify(Not{F: l})
		}
		if l.String() == r.String() {
			return Truth{Value: true}
		}
		return Implies{L: l, R: r}
	case Iff:
		l, r := Simplify(n.L), Simplify(n.R)
		lt, lok := l.(Truth)
		rt, rok := r.(Truth)
		switch {
		case lok && rok:
			return Truth{Value: lt.Value == rt.Value}
		case lok:
			if lt.Value {
				return r
			}
			return Simplify(Not{F: r})
		case rok:
			if rt.Value {
				return l
			}
			return Simplify(Not{F: l})
		case l.String() == r.String():
			return Truth{Value: true}
		}
		return Iff{L: l, R: r}
	case Forall:
		body := Simplify(n.Body)
		if _, ok := body.(Truth); ok || !occurs(body, n.V.Name) {
			return body
		}
		return Forall{V: n.V, Body: body}
	case Exists:
		body := Simplify(n.Body)
		if _, ok := body.(Truth); ok || !occurs(body, n.V.Name) {
			return body
		}
		return Exists{V: n.V, Body: body}
	case Definition:
		if n.Term != nil {
			return Definition{Name: n.Name, Params: n.Params, Term: foldTerm(n.Term)}
		}
		return Definition{Name: n.Name, Params: n.Params, Body: Simplify(n.Body)}
	default:
		panic(fmt.Sprintf("logic: unexpected formula %T", f))
	}
}

func simplifyJunction(fs []Formula, conj bool) Formula {
	var out []Formula
	seen := map[string]bool{}
	var add func(Formula) bool
	add = func(f Formula) bool {
		g := Simplify(f)
		if t, ok := g.(Truth); ok {
			if t.Value != conj {
				return false // absorbing element
			}
			return true
		}
		var nested []Formula
		switch h := g.(type) {
		case And:
			if conj {
				nested = h.Fs
			}
		case Or:
			if !conj {
				nested = h.Fs
			}
		}
		if nested != nil {
			for _, x := range nested {
				if !add(x) {
					return false
				}
			}
			return true
		}
		if key := g.String(); !seen[key] {
			seen[key] = true
			out = append(out, g)
		}
		return true
	}
	for _, f := range fs {
		if !add(f) {
			return Truth{Value: !conj}
		}
	}
	switch len(out) {
	case 0:
		return Truth{Value: conj}
	case 1:
		return out[0]
	}
	if conj {
		return And{Fs: out}
	}
	return Or{Fs: out}
}

func foldTerm(t Term) Term {
	app, ok := t.(App)
	if !ok {
		return t
	}
	args := make([]Term, len(app.Args))
	nums := make([]*big.Rat, 0, len(args))
	for i, a := range app.Args {
		args[i] = foldTerm(a)
		if n, ok := args[i].(Num); ok {
			nums = append(nums, n.Value)
		}
	}
	out := App{Fn: app.Fn, Args: args, S: app.S}
	if len(nums) != len(args) || len(nums) == 0 {
		return out
	}
	acc := new(big.Rat).Set(nums[0])
	switch app.Fn {
	case "+":
		for _, n := range nums[1:] {
			acc.Add(acc, n)
		}
	case "*":
		for _, n := range nums[1:] {
			acc.Mul(acc, n)
		}
	case "-":
		if len(nums) == 1 {
			acc.Neg(acc)
		}
		for _, n := range nums[1:] {
			acc.Sub(acc, n)
		}
	case "/":
		for _, n := range nums[1:] {
			if n.Sign() == 0 {
				return out
			}
			acc.Quo(acc, n)
		}
	case "to_real":
		return Num{Value: acc, S: SortReal}
	default:
		return out
	}
	return Num{Value: acc, S: app.S}
}

func evalAtom(a Atom) (bool, bool) {
	if len(a.Args) != 2 {
		return false, false
	}
	if a.Pred == "=" && a.Args[0].String() == a.Args[1].String() {
		return true, true
	}
	x, xok := a.Args[0].(Num)
	y, yok := a.Args[1].(Num)
	if !xok || !yok {
		return false, false
	}
	c := x.Value.Cmp(y.Value)
	switch a.Pred {
	case "=":
		return c == 0, true
	case "distinct":
		return c != 0, true
	case "<":
		return c < 0, true
	case "<=":
		return c <= 0, true
	case ">":
		return c > 0, true
	case ">=":
		return c >= 0, true
	}
	return false, false
}

// #endregion simplify

// #region signatures
// Signatures collects the uninterpreted symbols f uses, sorted by name.
// Bound variables are not included.
func Signatures(fs ...Formula) []Signature {
	found := map[string]Signature{}
	for _, f := range fs {
		collect(f, map[string]bool{}, found)
	}
	out := make([]Signature, 0, len(found))
	for _, s := range found {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func collect(f Formula, bound map[string]bool, found map[string]Signature) {
	switch n := f.(type) {
	case Truth:
	case Atom:
		if !builtinFns[n.Pred] {
			found[n.Pred] = Signature{Name: n.Pred, Args: sorts(n.Args), Result: SortBool}
		}
		for _, a := range n.Args {
			collectTerm(a, bound, found)
		}
	case Not:
		collect(n.F, bound, found)
	case And:
		for _, g := range n.Fs {
			collect(g, bound, found)
		}
	case Or:
		for _, g := range n.Fs {
			collect(g, bound, found)
		}
	case Implies:
		collect(n.L, bound, found)
		collect(n.R, bound, found)
	case Iff:
		collect(n.L, bound, found)
		collect(n.R, bound, found)
	case Forall:
		collect(n.Body, with(bound, n.V.Name), found)
	case Exists:
		collect(n.Body, with(bound, n.V.Name), found)
	case Definition:
		inner := bound
		for _, p := range n.Params {
			inner = with(inner, p.Name)
		}
		if n.Term != nil {
			collectTerm(n.Term, inner, found)
		} else {
			collect(n.Body, inner, found)
		}
	default:
		panic(fmt.Sprintf("logic: unexpected formula %T", f))
	}
}

func collectTerm(t Term, bound map[string]bool, found map[string]Signature) {
	switch n := t.(type) {
	case Const:
		found[n.Name] = Signature{Name: n.Name, Result: n.S}
	case App:
		if !builtinFns[n.Fn] {
			found[n.Fn] = Signature{Name: n.Fn, Args: sorts(n.Args), Result: n.S}
		}
		for _, a := range n.Args {
			collectTerm(a, bound, found)
		}
	case Var, Num:
	}
}

func sorts(ts []Term) []Sort {
	out := make([]Sort, len(ts))
	for i, t := range ts {
		out[i] = t.Sort()
	}
	return out
}

// Symbols returns the names of the uninterpreted symbols in f.
func Symbols(f Formula) map[string]bool {
	out := map[string]bool{}
	for _, s := range Signatures(f) {
		out[s.Name] = true
	}
	if d, ok := f.(Definition); ok {
		out[d.Name] = true
	}
	return out
}

// #endregion signatures

// #region relevance
// Relevant keeps the axioms reachable from goal through shared symbols,
// following at most rounds hops.
func Relevant(goal Formula, axioms []Named, rounds int) []Named {
	want := Symbols(goal)
	syms := make([]map[string]bool, len(axioms))
	for i, a := range axioms {
		syms[i] = Symbols(a.F)
	}
	keep := make([]bool, len(axioms))
	for r := 0; r < rounds; r++ {
		grew := false
		for i := range axioms {
			if keep[i] {
				continue
			}
			for s := range syms[i] {
				if want[s] {
					keep[i] = true
					grew = true
					break
				}
			}
		}
		if !grew {
			break
		}
		for i := range axioms {
			if keep[i] {
				for s := range syms[i] {
					want[s] = true
				}
			}
		}
	}
	var out []Named
	for i, a := range axioms {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}

// #endregion relevance
