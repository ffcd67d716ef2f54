// Package logic is the first-order intermediate representation shared by
// the translator, the SMT engine and the natural-deduction prover. Nodes
// are immutable once built and may be shared between goroutines.
//
// String renders every node in SMT-LIB 2 syntax, which doubles as the
// canonical form used for hashing and equality.
package logic

import (
	"fmt"
	"math/big"
	"strings"
)

// #region interfaces
// Term is one of Var, Const, Num or App.
type Term interface {
	Sort() Sort
	String() string
	termNode()
}

// Formula is one of Truth, Atom, Not, And, Or, Implies, Iff, Forall,
// Exists or Definition.
type Formula interface {
	String() string
	formulaNode()
}

// #endregion interfaces

// #region terms
type Var struct {
	Name string
	S    Sort
}

// Const is an uninterpreted constant.
type Const struct {
	Name string
	S    Sort
}

// Num is a numeral. Value must not be mutated after construction.
type Num struct {
	Value *big.Rat
	S     Sort
}

// App applies a function symbol. Arithmetic uses the builtin symbols
// + - * / and to_real.
type App struct {
	Fn   string
	Args []Term
	S    Sort
}

func (t Var) Sort() Sort   { return t.S }
func (t Const) Sort() Sort { return t.S }
func (t Num) Sort() Sort   { return t.S }
func (t App) Sort() Sort   { return t.S }

func (Var) termNode()   {}
func (Const) termNode() {}
func (Num) termNode()   {}
func (App) termNode()   {}

func (t Var) String() string   { return SymbolName(t.Name) }
func (t Const) String() string { return SymbolName(t.Name) }

func (t Num) String() string {
	r := t.Value
	neg := r.Sign() < 0
	abs := new(big.Rat).Abs(r)
	var s string
	switch {
	case abs.IsInt() && t.S == SortInt:
		s = abs.Num().String()
	case abs.IsInt():
		s = abs.Num().String() + ".0"
	default:
		s = "(/ " + abs.Num().String() + ".0 " + abs.Denom().String() + ".0)"
	}
	if neg {
		return "(- " + s + ")"
	}
	return s
}

func (t App) String() string {
	if len(t.Args) == 0 {
		return fnName(t.Fn)
	}
	return "(" + fnName(t.Fn) + " " + joinTerms(t.Args) + ")"
}

// Int builds an integer numeral.
func Int(n int64) Num { return Num{Value: big.NewRat(n, 1), S: SortInt} }

// ParseNum reads a decimal numeral. Integral text yields Int, anything with
// a fraction yields Real.
func ParseNum(text string) (Num, error) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return Num{}, fmt.Errorf("logic: malformed numeral %q", text)
	}
	s := SortInt
	if strings.ContainsAny(text, ".eE/") {
		s = SortReal
	}
	return Num{Value: r, S: s}, nil
}

// #endregion terms

// #region formulas
// Truth is ⊤ or ⊥.
type Truth struct{ Value bool }

// Atom applies a predicate. Builtin relations are =, <, <=, >, >= and
// distinct; every other predicate is uninterpreted.
type Atom struct {
	Pred string
	Args []Term
}

type Not struct{ F Formula }

type And struct{ Fs []Formula }

type Or struct{ Fs []Formula }

type Implies struct{ L, R Formula }

type Iff struct{ L, R Formula }

type Forall struct {
	V    Var
	Body Formula
}

type Exists struct {
	V    Var
	Body Formula
}

// Definition fixes Name(Params) to a term or formula body. Exactly one of
// Term and Body is set.
type Definition struct {
	Name   string
	Params []Var
	Term   Term
	Body   Formula
}

func (Truth) formulaNode()      {}
func (Atom) formulaNode()       {}
func (Not) formulaNode()        {}
func (And) formulaNode()        {}
func (Or) formulaNode()         {}
func (Implies) formulaNode()    {}
func (Iff) formulaNode()        {}
func (Forall) formulaNode()     {}
func (Exists) formulaNode()     {}
func (Definition) formulaNode() {}

func (f Truth) String() string {
	if f.Value {
		return "true"
	}
	return "false"
}

func (f Atom) String() string {
	if len(f.Args) == 0 {
		return fnName(f.Pred)
	}
	return "(" + fnName(f.Pred) + " " + joinTerms(f.Args) + ")"
}

func (f Not) String() string { return "(not " + f.F.String() + ")" }

func (f And) String() string {
	switch len(f.Fs) {
	case 0:
		return "true"
	case 1:
		return f.Fs[0].String()
	}
	return "(and " + joinFormulas(f.Fs) + ")"
}

func (f Or) String() string {
	switch len(f.Fs) {
	case 0:
		return "false"
	case 1:
		return f.Fs[0].String()
	}
	return "(or " + joinFormulas(f.Fs) + ")"
}

func (f Implies) String() string { return "(=> " + f.L.String() + " " + f.R.String() + ")" }
func (f Iff) String() string     { return "(= " + f.L.String() + " " + f.R.String() + ")" }

func (f Forall) String() string {
	return "(forall ((" + f.V.String() + " " + string(f.V.S) + ")) " + f.Body.String() + ")"
}

func (f Exists) String() string {
	return "(exists ((" + f.V.String() + " " + string(f.V.S) + ")) " + f.Body.String() + ")"
}

// String renders the definition as a define-fun command.
func (f Definition) String() string {
	var b strings.Builder
	b.WriteString("(define-fun " + SymbolName(f.Name) + " (")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("(" + p.String() + " " + string(p.S) + ")")
	}
	b.WriteString(") ")
	if f.Term != nil {
		b.WriteString(string(f.Term.Sort()) + " " + f.Term.String())
	} else {
		b.WriteString("Bool " + f.Body.String())
	}
	b.WriteString(")")
	return b.String()
}

// #endregion formulas

// #region constructors
func Eq(a, b Term) Atom { return Atom{Pred: "=", Args: []Term{a, b}} }

func Pred(name string, args ...Term) Atom { return Atom{Pred: name, Args: args} }

func Conj(fs ...Formula) Formula {
	if len(fs) == 1 {
		return fs[0]
	}
	return And{Fs: fs}
}

func Disj(fs ...Formula) Formula {
	if len(fs) == 1 {
		return fs[0]
	}
	return Or{Fs: fs}
}

// #endregion constructors

// #region names
var builtinFns = map[string]bool{
	"=": true, "<": true, "<=": true, ">": true, ">=": true, "distinct": true,
	"+": true, "-": true, "*": true, "/": true, "to_real": true, "div": true, "mod": true,
}

// IsBuiltin reports whether a function or predicate symbol is interpreted
// by the solver.
func IsBuiltin(name string) bool { return builtinFns[name] }

var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "true": true, "false": true, "ite": true,
	"let": true, "forall": true, "exists": true, "assert": true, "Int": true, "Real": true,
	"Bool": true, "U": true, "Set": true, "par": true, "as": true, "abs": true, "xor": true,
	"select": true, "store": true, "_": true, "!": true,
}

func fnName(name string) string {
	if builtinFns[name] {
		return name
	}
	return SymbolName(name)
}

// SymbolName maps a document identifier onto a simple SMT-LIB symbol.
// Letters, digits and underscores are kept; every other rune becomes
// _uXXXX_. The mapping is injective on identifiers without "_u".
func SymbolName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteString("n")
			}
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_u%04x_", r)
		}
	}
	s := b.String()
	if s == "" || reserved[s] {
		s += "_"
	}
	return s
}

func joinTerms(ts []Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func joinFormulas(fs []Formula) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, " ")
}

// #endregion names
