// Package translate turns document statements into the logic IR and
// supplies the background theory they are checked against.
//
// A Translator is not safe for concurrent use: constants and uninterpreted
// symbols are sorted on first use and later statements must agree.
package translate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/logic"
	"github.com/danielpatrickdp/aisp-verify/internal/parser"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// Background axiom labels.
const (
	AxNatNonneg   = "ax_nat_nonneg"
	AxMemberUnion = "ax_member_union"
	AxMemberInter = "ax_member_inter"
	AxMemberDiff  = "ax_member_diff"
	AxSubset      = "ax_subset"
	AxEmpty       = "ax_empty"
)

// Reserved function and predicate names of the background theory.
const (
	predNat    = "nat"
	predMember = "member"
	predSubset = "subset"
	fnUnion    = "union"
	fnInter    = "inter"
	fnDiff     = "diff"
	constEmpty = "empty"
)

// funcInfo describes a Functions-block definition that translated.
type funcInfo struct {
	Params []logic.Sort
	Result logic.Sort // SortBool for predicate bodies
}

// Translator holds the document's type table and background theory.
type Translator struct {
	doc     *ast.Document
	types   map[string]*typeInfo
	members map[string]string
	consts  map[string]logic.Sort
	funcs   map[string]funcInfo
	sigs    map[string]logic.Signature
	axioms  []logic.Named
	litSets map[string]bool
	defGaps []Gap
}

// #region new
// New builds the type table and background axioms for doc.
func New(doc *ast.Document) *Translator {
	t := &Translator{
		doc:     doc,
		types:   map[string]*typeInfo{},
		members: map[string]string{},
		consts:  map[string]logic.Sort{},
		funcs:   map[string]funcInfo{},
		sigs:    map[string]logic.Signature{},
		litSets: map[string]bool{},
	}
	t.axioms = append(t.axioms, theoryAxioms()...)

	graph := parser.BuildDepGraph(doc)
	order := graph.TopoOrder()
	for _, name := range order {
		if graph.Block[name] == ast.Types {
			t.declareType(graph.Origin[name])
		}
	}
	for _, name := range order {
		switch graph.Block[name] {
		case ast.Types, ast.Functions, ast.Rules:
			d := graph.Origin[name]
			if _, isType := t.types[d.Name]; isType {
				continue
			}
			t.declareDefinition(d, graph.Block[name])
		}
	}
	return t
}

// Axioms returns the background theory plus the axioms introduced by the
// statements translated so far.
func (t *Translator) Axioms() []logic.Named {
	return append([]logic.Named(nil), t.axioms...)
}

// DefinitionGaps lists definitions that could not be expressed.
func (t *Translator) DefinitionGaps() []Gap { return t.defGaps }

func theoryAxioms() []logic.Named {
	x := logic.Var{Name: "x", S: logic.SortInt}
	e := logic.Var{Name: "e", S: logic.SortU}
	a := logic.Var{Name: "a", S: logic.SortSet}
	b := logic.Var{Name: "b", S: logic.SortSet}
	mem := func(s logic.Term) logic.Formula { return logic.Pred(predMember, e, s) }
	app := func(fn string) logic.Term { return logic.App{Fn: fn, Args: []logic.Term{a, b}, S: logic.SortSet} }
	forallSets := func(body logic.Formula) logic.Formula {
		return logic.Forall{V: a, Body: logic.Forall{V: b, Body: logic.Forall{V: e, Body: body}}}
	}
	return []logic.Named{
		{Name: AxNatNonneg, F: logic.Forall{V: x, Body: logic.Implies{
			L: logic.Pred(predNat, x),
			R: logic.Pred(">=", x, logic.Int(0)),
		}}},
		{Name: AxMemberUnion, F: forallSets(logic.Iff{L: mem(app(fnUnion)), R: logic.Or{Fs: []logic.Formula{mem(a), mem(b)}}})},
		{Name: AxMemberInter, F: forallSets(logic.Iff{L: mem(app(fnInter)), R: logic.And{Fs: []logic.Formula{mem(a), mem(b)}}})},
		{Name: AxMemberDiff, F: forallSets(logic.Iff{L: mem(app(fnDiff)), R: logic.And{Fs: []logic.Formula{mem(a), logic.Not{F: mem(b)}}}})},
		{Name: AxSubset, F: logic.Forall{V: a, Body: logic.Forall{V: b, Body: logic.Iff{
			L: logic.Pred(predSubset, a, b),
			R: logic.Forall{V: e, Body: logic.Implies{L: mem(a), R: mem(b)}},
		}}}},
		{Name: AxEmpty, F: logic.Forall{V: e, Body: logic.Not{F: mem(logic.Const{Name: constEmpty, S: logic.SortSet})}}},
	}
}

// #endregion new

// #region types
func (t *Translator) declareType(d *ast.Definition) {
	info := &typeInfo{Name: d.Name, Kind: typeOpaque, Sort: logic.SortU, Guard: "is_" + d.Name}
	switch v := d.Value.(type) {
	case *ast.DomainRef:
		if v.Dim == 0 {
			switch v.Sort {
			case "Nat":
				info.Kind, info.Sort, info.Guard = typeNumeric, logic.SortInt, predNat
			case "Int":
				info.Kind, info.Sort, info.Guard = typeNumeric, logic.SortInt, ""
			case "Real":
				info.Kind, info.Sort, info.Guard = typeNumeric, logic.SortReal, ""
			}
		}
	case *ast.Ident:
		if target, ok := t.types[v.Name]; ok {
			if target.Kind == typeNumeric {
				info.Kind, info.Sort, info.Guard = typeNumeric, target.Sort, target.Guard
			} else {
				info.Kind, info.Sort, info.Parts = typeAlias, target.Sort, []string{v.Name}
			}
		}
	case *ast.SetLit:
		t.enumType(info, v)
	case *ast.Binary:
		if parts, ok := t.unionParts(v); ok {
			info.Kind, info.Parts = typeUnion, parts
		}
	case *ast.Number:
		// a constant, not a type
		return
	}
	t.types[d.Name] = info
	t.typeAxioms(info)
}

func (t *Translator) enumType(info *typeInfo, set *ast.SetLit) {
	if len(set.Elems) == 0 {
		return
	}
	allIdent, allNum, fractional := true, true, false
	for _, e := range set.Elems {
		switch n := e.(type) {
		case *ast.Ident:
			allNum = false
		case *ast.Number:
			allIdent = false
			if strings.ContainsAny(n.Text, ".eE") {
				fractional = true
			}
		default:
			allIdent, allNum = false, false
		}
	}
	switch {
	case allIdent:
		info.Kind = typeEnum
		for _, e := range set.Elems {
			name := e.(*ast.Ident).Name
			info.Members = append(info.Members, name)
			if _, taken := t.members[name]; !taken {
				t.members[name] = info.Name
			}
		}
	case allNum:
		info.Kind, info.Sort = typeEnum, logic.SortInt
		if fractional {
			info.Sort = logic.SortReal
		}
		for _, e := range set.Elems {
			info.Members = append(info.Members, e.(*ast.Number).Text)
		}
	}
}

// unionParts flattens A∪B∪C over U-sorted declared types.
func (t *Translator) unionParts(b *ast.Binary) ([]string, bool) {
	if b.Op != symbols.KindUnion {
		return nil, false
	}
	var parts []string
	for _, side := range []ast.Expr{b.Left, b.Right} {
		switch s := side.(type) {
		case *ast.Ident:
			ti, ok := t.types[s.Name]
			if !ok || ti.Sort != logic.SortU || ti.Guard == "" {
				return nil, false
			}
			parts = append(parts, s.Name)
		case *ast.Binary:
			sub, ok := t.unionParts(s)
			if !ok {
				return nil, false
			}
			parts = append(parts, sub...)
		default:
			return nil, false
		}
	}
	return parts, true
}

func (t *Translator) typeAxioms(info *typeInfo) {
	if info.Guard == "" || info.Guard == predNat {
		return
	}
	v := logic.Var{Name: "x", S: info.Sort}
	guard := logic.Pred(info.Guard, v)
	switch info.Kind {
	case typeEnum:
		var members []logic.Term
		for _, m := range info.Members {
			members = append(members, t.memberTerm(m, info.Sort))
		}
		var isMember []logic.Formula
		var closure []logic.Formula
		for _, m := range members {
			isMember = append(isMember, logic.Pred(info.Guard, m))
			closure = append(closure, logic.Eq(v, m))
		}
		t.axioms = append(t.axioms, logic.Named{Name: "ax_enum_" + info.Name + "_members", F: logic.Conj(isMember...)})
		if len(members) > 1 && info.Sort == logic.SortU {
			t.axioms = append(t.axioms, logic.Named{Name: "ax_enum_" + info.Name + "_distinct", F: logic.Atom{Pred: "distinct", Args: members}})
		}
		t.axioms = append(t.axioms, logic.Named{Name: "ax_enum_" + info.Name + "_closure",
			F: logic.Forall{V: v, Body: logic.Implies{L: guard, R: logic.Disj(closure...)}}})
	case typeUnion, typeAlias:
		var parts []logic.Formula
		for _, p := range info.Parts {
			parts = append(parts, logic.Pred(t.types[p].Guard, v))
		}
		t.axioms = append(t.axioms, logic.Named{Name: "ax_type_" + info.Name,
			F: logic.Forall{V: v, Body: logic.Iff{L: guard, R: logic.Disj(parts...)}}})
	}
	if info.Sort == logic.SortU {
		e := logic.Var{Name: "e", S: logic.SortU}
		t.axioms = append(t.axioms, logic.Named{Name: "ax_typeset_" + info.Name,
			F: logic.Forall{V: e, Body: logic.Iff{
				L: logic.Pred(predMember, e, logic.Const{Name: typeSetName(info.Name), S: logic.SortSet}),
				R: logic.Pred(info.Guard, e),
			}}})
	}
}

func (t *Translator) memberTerm(m string, s logic.Sort) logic.Term {
	if s.Numeric() {
		n, err := logic.ParseNum(m)
		if err == nil {
			n.S = s
			return n
		}
	}
	return logic.Const{Name: m, S: logic.SortU}
}

func typeSetName(name string) string { return "set_" + name }

// #endregion types

// #region definitions
func (t *Translator) declareDefinition(d *ast.Definition, block ast.BlockTag) {
	name := "def_" + d.Name
	if lam, ok := d.Value.(*ast.Lambda); ok {
		if block != ast.Functions {
			return
		}
		def, info, err := t.lambda(d.Name, lam)
		if err != nil {
			t.defGaps = append(t.defGaps, Gap{Name: name, Offset: d.Offset, Source: d.String(), Err: err})
			return
		}
		t.funcs[d.Name] = info
		t.axioms = append(t.axioms, logic.Named{Name: name, F: def})
		return
	}
	if block == ast.Types {
		// Types holds numeric constants besides types.
		if _, ok := d.Value.(*ast.Number); !ok {
			return
		}
	}
	if !numericExpr(d.Value) {
		return
	}
	term, err := t.term(d.Value, nil, "")
	if err != nil {
		t.defGaps = append(t.defGaps, Gap{Name: name, Offset: d.Offset, Source: d.String(), Err: err})
		return
	}
	t.consts[d.Name] = term.Sort()
	t.funcs[d.Name] = funcInfo{Result: term.Sort()}
	t.axioms = append(t.axioms, logic.Named{Name: name, F: logic.Definition{Name: d.Name, Term: term}})
}

// lambda translates name≜λp….body into a define-fun.
func (t *Translator) lambda(name string, lam *ast.Lambda) (logic.Definition, funcInfo, error) {
	sc := scope{}
	var params []logic.Var
	var info funcInfo
	for _, p := range lam.Params {
		v := logic.Var{Name: p, S: inferVarSort(lam.Body, p)}
		sc = sc.bind(v)
		params = append(params, v)
		info.Params = append(info.Params, v.S)
	}
	if t.formulaShaped(lam.Body) {
		body, err := t.formula(lam.Body, sc)
		if err != nil {
			return logic.Definition{}, info, err
		}
		info.Result = logic.SortBool
		return logic.Definition{Name: name, Params: params, Body: body}, info, nil
	}
	body, err := t.term(lam.Body, sc, "")
	if err != nil {
		return logic.Definition{}, info, err
	}
	info.Result = body.Sort()
	return logic.Definition{Name: name, Params: params, Term: body}, info, nil
}

// numericExpr reports whether e is arithmetic over at least one numeral.
func numericExpr(e ast.Expr) bool {
	ok, numeral := true, false
	ast.Inspect(e, func(n ast.Expr) bool {
		switch x := n.(type) {
		case *ast.Number:
			numeral = true
		case *ast.Ident:
		case *ast.Binary:
			ok = ok && arithmeticOps[x.Op]
		case *ast.Unary:
			ok = ok && x.Op == symbols.KindMinus
		default:
			ok = false
		}
		return ok
	})
	return ok && numeral
}

// #endregion definitions

// #region statements
// Statement translates one Rules or Proofs statement.
func (t *Translator) Statement(s ast.Statement) (logic.Formula, error) {
	switch n := s.(type) {
	case *ast.Definition:
		for _, a := range t.axioms {
			if a.Name == "def_"+n.Name {
				return a.F, nil
			}
		}
		return nil, unsupported(n.Offset, "definition of %s has no logical reading", n.Name)
	case *ast.EvidenceTuple:
		return nil, unsupported(n.Offset, "evidence is metadata")
	}
	e := ast.AsExpr(s)
	return t.Expr(e)
}

// Expr translates a boolean-valued expression.
func (t *Translator) Expr(e ast.Expr) (logic.Formula, error) {
	if SelfReferential(e) {
		return nil, &Error{Kind: ErrSelfReferential, Offset: e.Pos(), Msg: "claim is about the document's own validation metrics"}
	}
	return t.formula(e, scope{})
}

// Rules translates every non-definition statement of the Rules block.
func (t *Translator) Rules() ([]Rule, []Gap) { return t.block(ast.Rules, "rule") }

// Claims translates every non-definition statement of the Proofs block.
func (t *Translator) Claims() ([]Rule, []Gap) { return t.block(ast.Proofs, "claim") }

func (t *Translator) block(tag ast.BlockTag, prefix string) ([]Rule, []Gap) {
	var rules []Rule
	var gaps []Gap
	for i, s := range t.doc.Statements(tag) {
		if _, isDef := s.(*ast.Definition); isDef {
			continue
		}
		name := prefix + "_" + strconv.Itoa(i+1)
		f, err := t.Statement(s)
		if err != nil {
			gaps = append(gaps, Gap{Name: name, Index: i, Offset: s.Pos(), Source: s.String(), Err: err})
			continue
		}
		rules = append(rules, Rule{Name: name, Index: i, Offset: s.Pos(), Source: s.String(), Formula: f})
	}
	return rules, gaps
}

// #endregion statements

// #region self-reference
var selfNames = map[string]bool{
	"Ambig": true, "Ambiguity": true, "Density": true, "δ": true, "Tier": true, "τ": true,
}

// SelfReferential reports whether e reasons about validation metrics of a
// document (ambiguity, density, tier, or validity of a 𝔻 value).
func SelfReferential(e ast.Expr) bool {
	overDocs := false
	ast.Inspect(e, func(n ast.Expr) bool {
		if q, ok := n.(*ast.Quant); ok {
			if d, ok := q.Domain.(*ast.DomainRef); ok && d.Sort == "Document" {
				overDocs = true
			}
		}
		return true
	})
	found := false
	ast.Inspect(e, func(n ast.Expr) bool {
		switch x := n.(type) {
		case *ast.Ident:
			if selfNames[x.Name] {
				found = true
			}
		case *ast.Call:
			if id, ok := x.Fn.(*ast.Ident); ok && id.Name == "Valid" && overDocs {
				found = true
			}
		case *ast.Tier:
			found = true
		}
		return !found
	})
	return found
}

// #endregion self-reference

// #region signatures
// declare records an uninterpreted symbol, rejecting a second use with a
// different shape.
func (t *Translator) declare(off int, sig logic.Signature) error {
	prev, ok := t.sigs[sig.Name]
	if !ok {
		if _, typ := t.types[sig.Name]; typ {
			return mismatch(off, "%s names a type", sig.Name)
		}
		t.sigs[sig.Name] = sig
		return nil
	}
	if prev.Result != sig.Result || len(prev.Args) != len(sig.Args) {
		return mismatch(off, "%s used as %s, previously %s", sig.Name, describe(sig), describe(prev))
	}
	for i := range sig.Args {
		if prev.Args[i] != sig.Args[i] {
			return mismatch(off, "%s used as %s, previously %s", sig.Name, describe(sig), describe(prev))
		}
	}
	return nil
}

func describe(s logic.Signature) string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = string(a)
	}
	return fmt.Sprintf("(%s) → %s", strings.Join(args, ", "), s.Result)
}

// Signatures lists the uninterpreted symbols fixed so far, sorted by name.
func (t *Translator) Signatures() []logic.Signature {
	out := make([]logic.Signature, 0, len(t.sigs))
	for _, s := range t.sigs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// #endregion signatures
