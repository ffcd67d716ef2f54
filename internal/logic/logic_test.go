package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	x    = Var{Name: "x", S: SortInt}
	y    = Var{Name: "y", S: SortInt}
	zero = Int(0)
)

func natNonneg(v Var) Formula {
	return Forall{V: v, Body: Implies{L: Pred("nat", v), R: Pred(">=", v, zero)}}
}

func TestStringIsSMTLIB(t *testing.T) {
	assert.Equal(t, "(forall ((x Int)) (=> (nat x) (>= x 0)))", natNonneg(x).String())
	assert.Equal(t, "(- 3)", Int(-3).String())

	half, err := ParseNum("0.5")
	require.NoError(t, err)
	assert.Equal(t, SortReal, half.S)
	assert.Equal(t, "(/ 1.0 2.0)", half.String())

	two, err := ParseNum("2.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0", two.String())

	def := Definition{Name: "succ", Params: []Var{x}, Term: App{Fn: "+", Args: []Term{x, Int(1)}, S: SortInt}}
	assert.Equal(t, "(define-fun succ ((x Int)) Int (+ x 1))", def.String())
}

func TestSymbolName(t *testing.T) {
	assert.Equal(t, "Color", SymbolName("Color"))
	assert.Equal(t, "_u03b4_", SymbolName("δ"))
	assert.Equal(t, "x_u0027_", SymbolName("x'"))
	assert.Equal(t, "n2x", SymbolName("2x"))
	assert.Equal(t, "and_", SymbolName("and"))
}

func TestHashIsAlphaInvariant(t *testing.T) {
	assert.Equal(t, Hash(natNonneg(x)), Hash(natNonneg(y)))
	assert.True(t, AlphaEqual(natNonneg(x), natNonneg(y)))

	other := Forall{V: x, Body: Implies{L: Pred("nat", x), R: Pred(">", x, zero)}}
	assert.NotEqual(t, Hash(natNonneg(x)), Hash(other))
}

func TestFreeVars(t *testing.T) {
	f := And{Fs: []Formula{Pred("P", x), Forall{V: y, Body: Pred("Q", x, y)}}}
	assert.Equal(t, []Var{x}, FreeVars(f))
	assert.Empty(t, FreeVars(natNonneg(x)))
}

func TestSubstituteAvoidsCapture(t *testing.T) {
	// (∀y. x < y)[x := y] must not capture the substituted y.
	f := Forall{V: y, Body: Pred("<", x, y)}
	got := Substitute(f, "x", y)
	fa, ok := got.(Forall)
	require.True(t, ok)
	assert.NotEqual(t, "y", fa.V.Name)
	assert.Equal(t, []Var{y}, FreeVars(got))

	// bound occurrences are untouched
	assert.Equal(t, natNonneg(x).String(), Substitute(natNonneg(x), "x", Int(5)).String())
}

func TestSimplify(t *testing.T) {
	p, q := Pred("P", x), Pred("Q", x)
	cases := []struct {
		name string
		in   Formula
		want string
	}{
		{"numeric comparison", Pred("<", Int(1), Int(2)), "true"},
		{"arithmetic fold", Pred("=", App{Fn: "+", Args: []Term{Int(2), Int(3)}, S: SortInt}, Int(5)), "true"},
		{"and absorbs false", And{Fs: []Formula{p, Truth{}}}, "false"},
		{"and drops true", And{Fs: []Formula{p, Truth{Value: true}, p}}, "(P x)"},
		{"flatten", And{Fs: []Formula{p, And{Fs: []Formula{q, p}}}}, "(and (P x) (Q x))"},
		{"or absorbs true", Or{Fs: []Formula{p, Pred("<=", Int(0), Int(0))}}, "true"},
		{"double negation", Not{F: Not{F: p}}, "(P x)"},
		{"implication with false premise", Implies{L: Pred(">", Int(0), Int(1)), R: p}, "true"},
		{"implication with false conclusion", Implies{L: p, R: Truth{}}, "(not (P x))"},
		{"reflexive implication", Implies{L: p, R: p}, "true"},
		{"vacuous quantifier", Forall{V: y, Body: p}, "(P x)"},
		{"iff with true", Iff{L: Truth{Value: true}, R: q}, "(Q x)"},
		{"reflexive equality", Eq(x, x), "true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Simplify(tc.in).String())
		})
	}
}

func TestSignatures(t *testing.T) {
	u := Var{Name: "c", S: SortU}
	f := Forall{V: u, Body: Implies{
		L: Pred("is_Color", u),
		R: Pred("member", u, Const{Name: "set_Palette", S: SortSet}),
	}}
	sigs := Signatures(f, Pred(">=", App{Fn: "size", Args: []Term{Const{Name: "Red", S: SortU}}, S: SortInt}, zero))
	var names []string
	for _, s := range sigs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Red", "is_Color", "member", "set_Palette", "size"}, names)
	assert.Equal(t, []Sort{SortU, SortSet}, sigs[2].Args)
	assert.Equal(t, SortBool, sigs[2].Result)
}

func TestRelevant(t *testing.T) {
	axioms := []Named{
		{Name: "ax_nat_nonneg", F: natNonneg(x)},
		{Name: "ax_member_union", F: Pred("member", Const{Name: "a", S: SortU}, Const{Name: "s", S: SortSet})},
		{Name: "def_limit", F: Eq(Const{Name: "Limit", S: SortInt}, Int(100))},
	}
	goal := Forall{V: y, Body: Implies{L: Pred("nat", y), R: Pred("<=", y, Const{Name: "Limit", S: SortInt})}}
	var names []string
	for _, a := range Relevant(goal, axioms, 2) {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"ax_nat_nonneg", "def_limit"}, names)
}

func TestTruthValue(t *testing.T) {
	assert.Equal(t, False, True.Not())
	assert.Equal(t, Unknown, Unknown.Not())
	assert.False(t, Unknown.Definite())

	var v TruthValue
	require.NoError(t, v.UnmarshalText([]byte("false")))
	assert.Equal(t, False, v)
	assert.Error(t, v.UnmarshalText([]byte("maybe")))
}
