package translate

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region scope
type scope map[string]logic.Var

func (s scope) bind(v logic.Var) scope {
	out := make(scope, len(s)+1)
	for k, x := range s {
		out[k] = x
	}
	out[v.Name] = v
	return out
}

// #endregion scope

// #region operators
var logicalOps = map[symbols.Kind]bool{
	symbols.KindAnd: true, symbols.KindOr: true, symbols.KindImplies: true,
	symbols.KindArrow: true, symbols.KindIff: true, symbols.KindBiArrow: true,
}

var equalityOps = map[symbols.Kind]bool{
	symbols.KindEq: true, symbols.KindEquiv: true, symbols.KindApprox: true, symbols.KindCong: true,
}

var orderOps = map[symbols.Kind]string{
	symbols.KindLt: "<", symbols.KindGt: ">", symbols.KindLe: "<=", symbols.KindGe: ">=",
}

var arithmeticOps = map[symbols.Kind]bool{
	symbols.KindPlus: true, symbols.KindMinus: true, symbols.KindStar: true,
	symbols.KindSlash: true, symbols.KindTimes: true, symbols.KindDot: true,
}

var setOps = map[symbols.Kind]string{
	symbols.KindUnion: fnUnion, symbols.KindIntersect: fnInter, symbols.KindSetMinus: fnDiff,
}

func arithSymbol(k symbols.Kind) string {
	switch k {
	case symbols.KindPlus:
		return "+"
	case symbols.KindMinus:
		return "-"
	case symbols.KindSlash:
		return "/"
	}
	return "*"
}

// #endregion operators

// #region shape
// formulaShaped reports whether e reads as a proposition rather than a
// value.
func (t *Translator) formulaShaped(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Quant:
		return true
	case *ast.Const:
		return n.Kind == symbols.KindTop || n.Kind == symbols.KindBottom
	case *ast.Unary:
		return n.Op == symbols.KindNot
	case *ast.Binary:
		if logicalOps[n.Op] || equalityOps[n.Op] || n.Op == symbols.KindNeq {
			return true
		}
		if _, ok := orderOps[n.Op]; ok {
			return true
		}
		switch n.Op {
		case symbols.KindIn, symbols.KindNotIn, symbols.KindSubset, symbols.KindSuperset,
			symbols.KindProperSubset, symbols.KindProperSuperset:
			return true
		}
	case *ast.Call:
		if id, ok := n.Fn.(*ast.Ident); ok {
			if f, known := t.funcs[id.Name]; known {
				return f.Result == logic.SortBool
			}
			if s, known := t.sigs[id.Name]; known {
				return s.Result == logic.SortBool
			}
		}
	}
	return false
}

// inferVarSort picks Int or Real for a variable used in arithmetic or an
// order comparison inside body, and U otherwise.
func inferVarSort(body ast.Expr, name string) logic.Sort {
	numeric, fractional := false, false
	isVar := func(e ast.Expr) bool {
		id, ok := e.(*ast.Ident)
		return ok && id.Name == name
	}
	isReal := func(e ast.Expr) bool {
		switch x := e.(type) {
		case *ast.Number:
			return strings.ContainsAny(x.Text, ".eE")
		case *ast.Binary:
			return x.Op == symbols.KindSlash
		}
		return false
	}
	ast.Inspect(body, func(e ast.Expr) bool {
		switch n := e.(type) {
		case *ast.Binary:
			_, ordered := orderOps[n.Op]
			if !arithmeticOps[n.Op] && !ordered {
				return true
			}
			if isVar(n.Left) || isVar(n.Right) {
				numeric = true
				if isReal(n.Left) || isReal(n.Right) || n.Op == symbols.KindSlash {
					fractional = true
				}
			}
		case *ast.Unary:
			if n.Op == symbols.KindMinus && isVar(n.X) {
				numeric = true
			}
		}
		return true
	})
	switch {
	case fractional:
		return logic.SortReal
	case numeric:
		return logic.SortInt
	}
	return logic.SortU
}

// guessSort predicts the sort of a term without fixing any symbol. It
// returns "" when the term's sort depends on context.
func (t *Translator) guessSort(e ast.Expr, sc scope) logic.Sort {
	switch n := e.(type) {
	case *ast.Number:
		if strings.ContainsAny(n.Text, ".eE") {
			return logic.SortReal
		}
		return logic.SortInt
	case *ast.Ident:
		if v, ok := sc[n.Name]; ok {
			return v.S
		}
		if s, ok := t.consts[n.Name]; ok {
			return s
		}
		if _, ok := t.members[n.Name]; ok {
			return logic.SortU
		}
		if ti, ok := t.types[n.Name]; ok && ti.Sort == logic.SortU {
			return logic.SortSet
		}
		if s, ok := t.sigs[n.Name]; ok && len(s.Args) == 0 {
			return s.Result
		}
	case *ast.Binary:
		if _, ok := setOps[n.Op]; ok {
			return logic.SortSet
		}
		if arithmeticOps[n.Op] {
			if n.Op == symbols.KindSlash ||
				t.guessSort(n.Left, sc) == logic.SortReal || t.guessSort(n.Right, sc) == logic.SortReal {
				return logic.SortReal
			}
			return logic.SortInt
		}
	case *ast.Unary:
		if n.Op == symbols.KindMinus {
			if s := t.guessSort(n.X, sc); s.Numeric() {
				return s
			}
			return logic.SortInt
		}
	case *ast.Const:
		if n.Kind == symbols.KindEmpty {
			return logic.SortSet
		}
	case *ast.SetLit:
		return logic.SortSet
	case *ast.Call:
		if id, ok := n.Fn.(*ast.Ident); ok {
			if f, known := t.funcs[id.Name]; known {
				return f.Result
			}
			if s, known := t.sigs[id.Name]; known {
				return s.Result
			}
		}
	}
	return ""
}

// #endregion shape

// #region formulas
func (t *Translator) formula(e ast.Expr, sc scope) (logic.Formula, error) {
	switch n := e.(type) {
	case *ast.Const:
		switch n.Kind {
		case symbols.KindTop:
			return logic.Truth{Value: true}, nil
		case symbols.KindBottom:
			return logic.Truth{}, nil
		}
	case *ast.Quant:
		return t.quant(n, sc)
	case *ast.Unary:
		if n.Op == symbols.KindNot {
			f, err := t.formula(n.X, sc)
			if err != nil {
				return nil, err
			}
			return logic.Not{F: f}, nil
		}
	case *ast.Binary:
		return t.binaryFormula(n, sc)
	case *ast.Call:
		return t.atom(n, sc)
	case *ast.Ident:
		return t.proposition(n, sc)
	}
	return nil, unsupported(e.Pos(), "%s is not a proposition", e)
}

func (t *Translator) binaryFormula(n *ast.Binary, sc scope) (logic.Formula, error) {
	switch {
	case logicalOps[n.Op]:
		l, err := t.formula(n.Left, sc)
		if err != nil {
			return nil, err
		}
		r, err := t.formula(n.Right, sc)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case symbols.KindAnd:
			return logic.And{Fs: []logic.Formula{l, r}}, nil
		case symbols.KindOr:
			return logic.Or{Fs: []logic.Formula{l, r}}, nil
		case symbols.KindImplies, symbols.KindArrow:
			return logic.Implies{L: l, R: r}, nil
		default:
			return logic.Iff{L: l, R: r}, nil
		}
	case equalityOps[n.Op]:
		return t.equality(n, sc)
	case n.Op == symbols.KindNeq:
		f, err := t.equality(n, sc)
		if err != nil {
			return nil, err
		}
		return logic.Not{F: f}, nil
	}
	if op, ok := orderOps[n.Op]; ok {
		return t.compare(n, op, sc)
	}
	switch n.Op {
	case symbols.KindIn:
		return t.membership(n.Left, n.Right, sc)
	case symbols.KindNotIn:
		f, err := t.membership(n.Left, n.Right, sc)
		if err != nil {
			return nil, err
		}
		return logic.Not{F: f}, nil
	case symbols.KindSubset, symbols.KindSuperset, symbols.KindProperSubset, symbols.KindProperSuperset:
		return t.subset(n, sc)
	}
	return nil, unsupported(n.Offset, "operator %s in proposition %s", n.Op, n)
}

func (t *Translator) equality(n *ast.Binary, sc scope) (logic.Formula, error) {
	if t.formulaShaped(n.Left) && t.formulaShaped(n.Right) {
		l, err := t.formula(n.Left, sc)
		if err != nil {
			return nil, err
		}
		r, err := t.formula(n.Right, sc)
		if err != nil {
			return nil, err
		}
		return logic.Iff{L: l, R: r}, nil
	}
	l, r, err := t.pair(n.Left, n.Right, sc, "")
	if err != nil {
		return nil, err
	}
	return t.equate(n.Offset, l, r)
}

// pair translates two terms that must share a sort, letting each side
// inform the other's unknown symbols.
func (t *Translator) pair(a, b ast.Expr, sc scope, fallback logic.Sort) (logic.Term, logic.Term, error) {
	hint := t.guessSort(b, sc)
	if hint == "" {
		hint = fallback
	}
	l, err := t.term(a, sc, hint)
	if err != nil {
		return nil, nil, err
	}
	r, err := t.term(b, sc, l.Sort())
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// equate builds l = r, coercing Int to Real and expanding set equality
// pointwise.
func (t *Translator) equate(off int, l, r logic.Term) (logic.Formula, error) {
	ls, rs := l.Sort(), r.Sort()
	switch {
	case ls == logic.SortSet && rs == logic.SortSet:
		return setEqual(l, r), nil
	case ls == rs:
		return logic.Eq(l, r), nil
	case ls.Numeric() && rs.Numeric():
		return logic.Eq(toReal(l), toReal(r)), nil
	}
	return nil, mismatch(off, "cannot equate %s with %s", ls, rs)
}

func (t *Translator) compare(n *ast.Binary, op string, sc scope) (logic.Formula, error) {
	l, r, err := t.pair(n.Left, n.Right, sc, logic.SortInt)
	if err != nil {
		return nil, err
	}
	if !l.Sort().Numeric() || !r.Sort().Numeric() {
		return nil, mismatch(n.Offset, "%s compares %s with %s", n.Op, l.Sort(), r.Sort())
	}
	if l.Sort() != r.Sort() {
		l, r = toReal(l), toReal(r)
	}
	return logic.Pred(op, l, r), nil
}

func (t *Translator) membership(elem, set ast.Expr, sc scope) (logic.Formula, error) {
	switch s := set.(type) {
	case *ast.Ident:
		if _, bound := sc[s.Name]; bound {
			break
		}
		if info, ok := t.types[s.Name]; ok {
			x, err := t.term(elem, sc, info.Sort)
			if err != nil {
				return nil, err
			}
			return t.guard(elem.Pos(), x, info.Sort, info.Guard)
		}
	case *ast.DomainRef:
		sort, guard, err := t.domain(s)
		if err != nil {
			return nil, err
		}
		x, err := t.term(elem, sc, sort)
		if err != nil {
			return nil, err
		}
		return t.guard(elem.Pos(), x, sort, guard)
	case *ast.SetLit:
		if len(s.Elems) == 0 {
			return logic.Truth{}, nil
		}
		x, err := t.term(elem, sc, t.guessSort(s.Elems[0], sc))
		if err != nil {
			return nil, err
		}
		var alts []logic.Formula
		for _, m := range s.Elems {
			y, err := t.term(m, sc, x.Sort())
			if err != nil {
				return nil, err
			}
			eq, err := t.equate(m.Pos(), x, y)
			if err != nil {
				return nil, err
			}
			alts = append(alts, eq)
		}
		return logic.Disj(alts...), nil
	}
	st, err := t.setTerm(set, sc)
	if err != nil {
		return nil, err
	}
	x, err := t.term(elem, sc, logic.SortU)
	if err != nil {
		return nil, err
	}
	if x.Sort() != logic.SortU {
		return nil, mismatch(elem.Pos(), "sets hold objects, not %s", x.Sort())
	}
	return logic.Pred(predMember, x, st), nil
}

// guard asserts that x belongs to a type of the given sort.
func (t *Translator) guard(off int, x logic.Term, sort logic.Sort, guard string) (logic.Formula, error) {
	switch {
	case x.Sort() == sort:
	case x.Sort() == logic.SortInt && sort == logic.SortReal:
		x = toReal(x)
	default:
		return nil, mismatch(off, "%s value checked against a %s type", x.Sort(), sort)
	}
	if guard == "" {
		return logic.Truth{Value: true}, nil
	}
	if err := t.declareGuard(off, guard, sort); err != nil {
		return nil, err
	}
	return logic.Pred(guard, x), nil
}

func (t *Translator) declareGuard(off int, guard string, sort logic.Sort) error {
	if guard == predNat {
		return nil
	}
	for _, ti := range t.types {
		if ti.Guard == guard {
			return nil
		}
	}
	return t.declare(off, logic.Signature{Name: guard, Args: []logic.Sort{sort}, Result: logic.SortBool})
}

func (t *Translator) subset(n *ast.Binary, sc scope) (logic.Formula, error) {
	l, err := t.setTerm(n.Left, sc)
	if err != nil {
		return nil, err
	}
	r, err := t.setTerm(n.Right, sc)
	if err != nil {
		return nil, err
	}
	if n.Op == symbols.KindSuperset || n.Op == symbols.KindProperSuperset {
		l, r = r, l
	}
	sub := logic.Pred(predSubset, l, r)
	if n.Op == symbols.KindSubset || n.Op == symbols.KindSuperset {
		return sub, nil
	}
	return logic.And{Fs: []logic.Formula{sub, logic.Not{F: setEqual(l, r)}}}, nil
}

// atom translates a call in proposition position.
func (t *Translator) atom(n *ast.Call, sc scope) (logic.Formula, error) {
	id, ok := n.Fn.(*ast.Ident)
	if !ok {
		return nil, unsupported(n.Offset, "higher-order application %s", n)
	}
	if f, known := t.funcs[id.Name]; known {
		if f.Result != logic.SortBool {
			return nil, mismatch(n.Offset, "%s yields %s, not a proposition", id.Name, f.Result)
		}
		args, err := t.typedArgs(n, f.Params, sc)
		if err != nil {
			return nil, err
		}
		return logic.Atom{Pred: id.Name, Args: args}, nil
	}
	args, err := t.freeArgs(n, sc)
	if err != nil {
		return nil, err
	}
	if err := t.declare(n.Offset, logic.Signature{Name: id.Name, Args: sortsOf(args), Result: logic.SortBool}); err != nil {
		return nil, err
	}
	return logic.Atom{Pred: id.Name, Args: args}, nil
}

// proposition translates a bare identifier as a nullary predicate.
func (t *Translator) proposition(n *ast.Ident, sc scope) (logic.Formula, error) {
	if v, ok := sc[n.Name]; ok {
		return nil, mismatch(n.Offset, "variable %s of sort %s used as a proposition", n.Name, v.S)
	}
	if s, ok := t.consts[n.Name]; ok {
		return nil, mismatch(n.Offset, "constant %s of sort %s used as a proposition", n.Name, s)
	}
	if err := t.declare(n.Offset, logic.Signature{Name: n.Name, Result: logic.SortBool}); err != nil {
		return nil, err
	}
	return logic.Atom{Pred: n.Name}, nil
}

// #endregion formulas

// #region quantifiers
func (t *Translator) quant(q *ast.Quant, sc scope) (logic.Formula, error) {
	v, guard, err := t.binder(q, sc)
	if err != nil {
		return nil, err
	}
	body, err := t.formula(q.Body, sc.bind(v))
	if err != nil {
		return nil, err
	}
	switch q.Kind {
	case symbols.KindForall:
		if guard != nil {
			body = logic.Implies{L: guard, R: body}
		}
		return logic.Forall{V: v, Body: body}, nil
	case symbols.KindExists, symbols.KindNotExists:
		if guard != nil {
			body = logic.And{Fs: []logic.Formula{guard, body}}
		}
		var f logic.Formula = logic.Exists{V: v, Body: body}
		if q.Kind == symbols.KindNotExists {
			f = logic.Not{F: f}
		}
		return f, nil
	}
	return nil, unsupported(q.Offset, "quantifier %s", q.Kind)
}

// binder resolves the bound variable's sort and the guard its domain
// imposes. A nil guard means the domain is the whole sort.
func (t *Translator) binder(q *ast.Quant, sc scope) (logic.Var, logic.Formula, error) {
	v := logic.Var{Name: q.Var}
	switch d := q.Domain.(type) {
	case nil:
		v.S = inferVarSort(q.Body, q.Var)
		return v, nil, nil
	case *ast.DomainRef:
		sort, guard, err := t.domain(d)
		if err != nil {
			return v, nil, err
		}
		v.S = sort
		if guard == "" {
			return v, nil, nil
		}
		if err := t.declareGuard(d.Offset, guard, sort); err != nil {
			return v, nil, err
		}
		return v, logic.Pred(guard, v), nil
	case *ast.Ident:
		if info, ok := t.types[d.Name]; ok {
			v.S = info.Sort
			if info.Guard == "" {
				return v, nil, nil
			}
			return v, logic.Pred(info.Guard, v), nil
		}
		if _, bound := sc[d.Name]; !bound {
			v.S = logic.SortU
			guard := "is_" + d.Name
			if err := t.declareGuard(d.Offset, guard, v.S); err != nil {
				return v, nil, err
			}
			return v, logic.Pred(guard, v), nil
		}
	case *ast.SetLit:
		if len(d.Elems) == 0 {
			return logic.Var{Name: q.Var, S: logic.SortU}, logic.Truth{}, nil
		}
		v.S = t.guessSort(d.Elems[0], sc)
		if v.S == "" {
			v.S = logic.SortU
		}
		var alts []logic.Formula
		for _, m := range d.Elems {
			y, err := t.term(m, sc, v.S)
			if err != nil {
				return v, nil, err
			}
			eq, err := t.equate(m.Pos(), v, y)
			if err != nil {
				return v, nil, err
			}
			alts = append(alts, eq)
		}
		return v, logic.Disj(alts...), nil
	}
	st, err := t.setTerm(q.Domain, sc)
	if err != nil {
		return v, nil, err
	}
	v.S = logic.SortU
	return v, logic.Pred(predMember, v, st), nil
}

// domain maps a builtin domain glyph onto a sort and guard predicate.
func (t *Translator) domain(d *ast.DomainRef) (logic.Sort, string, error) {
	if d.Dim > 0 {
		return logic.SortU, fmt.Sprintf("is_%s_%d", d.Sort, d.Dim), nil
	}
	switch d.Sort {
	case "Nat":
		return logic.SortInt, predNat, nil
	case "Int":
		return logic.SortInt, "", nil
	case "Real":
		return logic.SortReal, "", nil
	case "Bool":
		return "", "", unsupported(d.Offset, "quantification over %s", d.Glyph)
	case "":
		return logic.SortU, "is_" + logic.SymbolName(d.Glyph), nil
	}
	return logic.SortU, "is_" + d.Sort, nil
}

// #endregion quantifiers

// #region terms
func (t *Translator) term(e ast.Expr, sc scope, hint logic.Sort) (logic.Term, error) {
	switch n := e.(type) {
	case *ast.Number:
		num, err := logic.ParseNum(n.Text)
		if err != nil {
			return nil, unsupported(n.Offset, "numeral %q", n.Text)
		}
		if hint == logic.SortReal {
			num.S = logic.SortReal
		}
		return num, nil
	case *ast.Ident:
		return t.ident(n, sc, hint)
	case *ast.Const:
		if n.Kind == symbols.KindEmpty {
			return logic.Const{Name: constEmpty, S: logic.SortSet}, nil
		}
	case *ast.Unary:
		if n.Op == symbols.KindMinus {
			x, err := t.term(n.X, sc, numericHint(hint))
			if err != nil {
				return nil, err
			}
			if !x.Sort().Numeric() {
				return nil, mismatch(n.Offset, "negation of %s", x.Sort())
			}
			return logic.App{Fn: "-", Args: []logic.Term{x}, S: x.Sort()}, nil
		}
	case *ast.Binary:
		if arithmeticOps[n.Op] {
			return t.arith(n, sc, hint)
		}
		if fn, ok := setOps[n.Op]; ok {
			l, err := t.setTerm(n.Left, sc)
			if err != nil {
				return nil, err
			}
			r, err := t.setTerm(n.Right, sc)
			if err != nil {
				return nil, err
			}
			return logic.App{Fn: fn, Args: []logic.Term{l, r}, S: logic.SortSet}, nil
		}
	case *ast.Call:
		return t.apply(n, sc, hint)
	case *ast.SetLit:
		return t.setLiteral(n, sc)
	}
	return nil, unsupported(e.Pos(), "%s has no value in the logic", e)
}

func (t *Translator) ident(n *ast.Ident, sc scope, hint logic.Sort) (logic.Term, error) {
	if v, ok := sc[n.Name]; ok {
		return v, nil
	}
	if s, ok := t.consts[n.Name]; ok {
		return logic.Const{Name: n.Name, S: s}, nil
	}
	if _, ok := t.members[n.Name]; ok {
		return logic.Const{Name: n.Name, S: logic.SortU}, nil
	}
	if info, ok := t.types[n.Name]; ok {
		if info.Sort != logic.SortU {
			return nil, unsupported(n.Offset, "numeric type %s used as a value", n.Name)
		}
		return logic.Const{Name: typeSetName(n.Name), S: logic.SortSet}, nil
	}
	if f, ok := t.funcs[n.Name]; ok && len(f.Params) > 0 {
		return nil, unsupported(n.Offset, "function %s used as a value", n.Name)
	}
	if s, ok := t.sigs[n.Name]; ok && len(s.Args) == 0 {
		if s.Result == logic.SortBool {
			return nil, mismatch(n.Offset, "proposition %s used as a value", n.Name)
		}
		return logic.Const{Name: n.Name, S: s.Result}, nil
	}
	s := hint
	if s == "" || s == logic.SortBool {
		s = logic.SortU
	}
	if err := t.declare(n.Offset, logic.Signature{Name: n.Name, Result: s}); err != nil {
		return nil, err
	}
	return logic.Const{Name: n.Name, S: s}, nil
}

func (t *Translator) arith(n *ast.Binary, sc scope, hint logic.Sort) (logic.Term, error) {
	h := numericHint(hint)
	if g := t.guessSort(n, sc); g == logic.SortReal {
		h = g
	}
	l, err := t.term(n.Left, sc, h)
	if err != nil {
		return nil, err
	}
	r, err := t.term(n.Right, sc, h)
	if err != nil {
		return nil, err
	}
	if !l.Sort().Numeric() || !r.Sort().Numeric() {
		return nil, mismatch(n.Offset, "arithmetic on %s and %s", l.Sort(), r.Sort())
	}
	op := arithSymbol(n.Op)
	sort := logic.SortInt
	if op == "/" || l.Sort() == logic.SortReal || r.Sort() == logic.SortReal {
		sort = logic.SortReal
		l, r = toReal(l), toReal(r)
	}
	return logic.App{Fn: op, Args: []logic.Term{l, r}, S: sort}, nil
}

// apply translates a call in value position.
func (t *Translator) apply(n *ast.Call, sc scope, hint logic.Sort) (logic.Term, error) {
	id, ok := n.Fn.(*ast.Ident)
	if !ok {
		return nil, unsupported(n.Offset, "higher-order application %s", n)
	}
	if _, typ := t.types[id.Name]; typ {
		return nil, unsupported(n.Offset, "type %s applied as a function", id.Name)
	}
	if f, known := t.funcs[id.Name]; known {
		if f.Result == logic.SortBool {
			return nil, mismatch(n.Offset, "predicate %s used as a value", id.Name)
		}
		args, err := t.typedArgs(n, f.Params, sc)
		if err != nil {
			return nil, err
		}
		return logic.App{Fn: id.Name, Args: args, S: f.Result}, nil
	}
	args, err := t.freeArgs(n, sc)
	if err != nil {
		return nil, err
	}
	result := hint
	if prev, ok := t.sigs[id.Name]; ok {
		result = prev.Result
	}
	if result == "" || result == logic.SortBool {
		result = logic.SortU
	}
	if err := t.declare(n.Offset, logic.Signature{Name: id.Name, Args: sortsOf(args), Result: result}); err != nil {
		return nil, err
	}
	return logic.App{Fn: id.Name, Args: args, S: result}, nil
}

func (t *Translator) typedArgs(n *ast.Call, params []logic.Sort, sc scope) ([]logic.Term, error) {
	if len(n.Args) != len(params) {
		return nil, mismatch(n.Offset, "%s takes %d arguments, got %d", n.Fn, len(params), len(n.Args))
	}
	args := make([]logic.Term, len(n.Args))
	for i, a := range n.Args {
		x, err := t.term(a, sc, params[i])
		if err != nil {
			return nil, err
		}
		switch {
		case x.Sort() == params[i]:
		case x.Sort() == logic.SortInt && params[i] == logic.SortReal:
			x = toReal(x)
		default:
			return nil, mismatch(a.Pos(), "argument %d of %s is %s, want %s", i+1, n.Fn, x.Sort(), params[i])
		}
		args[i] = x
	}
	return args, nil
}

// freeArgs translates the arguments of an uninterpreted symbol, reusing
// the sorts of an earlier use when there is one.
func (t *Translator) freeArgs(n *ast.Call, sc scope) ([]logic.Term, error) {
	prev, seen := t.sigs[n.Fn.(*ast.Ident).Name]
	args := make([]logic.Term, len(n.Args))
	for i, a := range n.Args {
		var hint logic.Sort
		if seen && i < len(prev.Args) {
			hint = prev.Args[i]
		}
		x, err := t.term(a, sc, hint)
		if err != nil {
			return nil, err
		}
		if x.Sort() == logic.SortBool {
			return nil, unsupported(a.Pos(), "proposition passed as an argument")
		}
		args[i] = x
	}
	return args, nil
}

func (t *Translator) setTerm(e ast.Expr, sc scope) (logic.Term, error) {
	x, err := t.term(e, sc, logic.SortSet)
	if err != nil {
		return nil, err
	}
	if x.Sort() != logic.SortSet {
		return nil, mismatch(e.Pos(), "%s is %s, not a set", e, x.Sort())
	}
	return x, nil
}

// setLiteral names {a,b,…} with a fresh constant whose members are fixed
// by an axiom added on first use.
func (t *Translator) setLiteral(n *ast.SetLit, sc scope) (logic.Term, error) {
	if len(n.Elems) == 0 {
		return logic.Const{Name: constEmpty, S: logic.SortSet}, nil
	}
	elems := make([]logic.Term, len(n.Elems))
	keys := make([]string, len(n.Elems))
	for i, m := range n.Elems {
		x, err := t.term(m, sc, logic.SortU)
		if err != nil {
			return nil, err
		}
		if x.Sort() != logic.SortU {
			return nil, mismatch(m.Pos(), "sets hold objects, not %s", x.Sort())
		}
		if len(logic.FreeVars(logic.Eq(x, x))) > 0 {
			return nil, unsupported(m.Pos(), "set literal over bound variables")
		}
		elems[i] = x
		keys[i] = x.String()
	}
	name := fmt.Sprintf("lit_%016x", xxhash.Sum64String(strings.Join(keys, ",")))
	lit := logic.Const{Name: name, S: logic.SortSet}
	if !t.litSets[name] {
		t.litSets[name] = true
		e := logic.Var{Name: "e", S: logic.SortU}
		var alts []logic.Formula
		for _, x := range elems {
			alts = append(alts, logic.Eq(e, x))
		}
		t.axioms = append(t.axioms, logic.Named{Name: "ax_" + name, F: logic.Forall{V: e, Body: logic.Iff{
			L: logic.Pred(predMember, e, lit),
			R: logic.Disj(alts...),
		}}})
	}
	return lit, nil
}

// #endregion terms

// #region helpers
func numericHint(h logic.Sort) logic.Sort {
	if h == logic.SortReal {
		return h
	}
	return logic.SortInt
}

func toReal(x logic.Term) logic.Term {
	if x.Sort() != logic.SortInt {
		return x
	}
	if n, ok := x.(logic.Num); ok {
		n.S = logic.SortReal
		return n
	}
	return logic.App{Fn: "to_real", Args: []logic.Term{x}, S: logic.SortReal}
}

// setEqual expands A = B over sets to ∀e. e∈A ⇔ e∈B.
func setEqual(a, b logic.Term) logic.Formula {
	taken := map[string]bool{}
	for _, v := range logic.FreeVars(logic.Pred(predSubset, a, b)) {
		taken[v.Name] = true
	}
	e := logic.Var{Name: logic.Fresh("e", func(s string) bool { return taken[s] }), S: logic.SortU}
	return logic.Forall{V: e, Body: logic.Iff{
		L: logic.Pred(predMember, e, a),
		R: logic.Pred(predMember, e, b),
	}}
}

func sortsOf(ts []logic.Term) []logic.Sort {
	out := make([]logic.Sort, len(ts))
	for i, x := range ts {
		out[i] = x.Sort()
	}
	return out
}

// #endregion helpers
