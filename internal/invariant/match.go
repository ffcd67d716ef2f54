package invariant

import (
	"sort"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region builder
type builder struct {
	doc     *ast.Document
	found   map[string]*Invariant
	order   []string
	nats    map[string]int
	enums   map[string]*ast.Definition
	numeric map[string]bool
}

func newBuilder(doc *ast.Document) *builder {
	b := &builder{
		doc:     doc,
		found:   map[string]*Invariant{},
		nats:    map[string]int{},
		enums:   map[string]*ast.Definition{},
		numeric: map[string]bool{},
	}
	for _, tag := range []ast.BlockTag{ast.Meta, ast.Types, ast.Functions} {
		for _, s := range doc.Statements(tag) {
			if d, ok := s.(*ast.Definition); ok && b.isNumeric(d.Value) {
				b.numeric[d.Name] = true
			}
		}
	}
	types := doc.Statements(ast.Types)
	// Aliases may precede their targets, so resolve to a fixpoint.
	for grew := true; grew; {
		grew = false
		for _, s := range types {
			d, ok := s.(*ast.Definition)
			if !ok {
				continue
			}
			if _, done := b.nats[d.Name]; done {
				continue
			}
			switch v := d.Value.(type) {
			case *ast.DomainRef:
				if v.Sort == "Nat" && v.Dim == 0 {
					b.nats[d.Name] = d.Offset
					grew = true
				}
			case *ast.Ident:
				if _, ok := b.nats[v.Name]; ok {
					b.nats[d.Name] = d.Offset
					grew = true
				}
			}
		}
	}
	for _, s := range types {
		d, ok := s.(*ast.Definition)
		if !ok {
			continue
		}
		if set, ok := d.Value.(*ast.SetLit); ok && len(set.Elems) > 0 && allIdents(set.Elems) {
			b.enums[d.Name] = d
		}
	}
	return b
}

func (b *builder) add(kind Kind, subject string, expr ast.Expr, src Source, ev ...Evidence) {
	key := expr.String()
	inv, ok := b.found[key]
	if !ok {
		inv = &Invariant{Kind: kind, Subject: subject, Expr: expr, Text: key}
		b.found[key] = inv
		b.order = append(b.order, key)
	}
	if !inv.StatedAt(src.Block, src.Offset) {
		inv.Sources = append(inv.Sources, src)
	}
	for _, e := range ev {
		if !hasEvidence(inv, e) {
			inv.Evidence = append(inv.Evidence, e)
		}
	}
}

func hasEvidence(inv *Invariant, e Evidence) bool {
	for _, x := range inv.Evidence {
		if x == e {
			return true
		}
	}
	return false
}

// #endregion builder

// #region matchers
// typeSafety: every ℕ-typed name is non-negative. A rule that already
// says so is reused as the invariant's statement.
func (b *builder) typeSafety() {
	for _, name := range sortedByOffset(b.nats) {
		decl := Source{Block: ast.Types, Offset: b.nats[name]}
		ev := Evidence{Cue: TypeDeclaration, Block: ast.Types, Offset: decl.Offset}
		stated := false
		for _, s := range b.doc.Statements(ast.Rules) {
			q, ok := ast.AsExpr(s).(*ast.Quant)
			if !ok || !rangesOver(q, name) || !nonNegative(q.Body, q.Var) {
				continue
			}
			b.add(TypeSafety, name, q, decl, ev)
			b.add(TypeSafety, name, q, Source{Block: ast.Rules, Offset: s.Pos()},
				Evidence{Cue: QuantifiedRule, Block: ast.Rules, Offset: s.Pos()})
			stated = true
		}
		if !stated {
			b.add(TypeSafety, name, nonNegativity(name, decl.Offset), decl, ev)
		}
	}
}

// membership: an enumerated type contains exactly its variants, and a
// quantified rule x∈S fixes where the elements of a domain live.
func (b *builder) membership() {
	names := make([]string, 0, len(b.enums))
	for n := range b.enums {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return b.enums[names[i]].Offset < b.enums[names[j]].Offset })

	for _, name := range names {
		d := b.enums[name]
		src := Source{Block: ast.Types, Offset: d.Offset}
		expr := closure(name, d.Value.(*ast.SetLit), d.Offset)
		b.add(Membership, name, expr, src, Evidence{Cue: ExplicitEnumeration, Block: ast.Types, Offset: d.Offset})
		for _, s := range b.doc.Statements(ast.Rules) {
			if q, ok := ast.AsExpr(s).(*ast.Quant); ok && rangesOver(q, name) {
				b.add(Membership, name, expr, src, Evidence{Cue: QuantifiedRule, Block: ast.Rules, Offset: s.Pos()})
				break
			}
		}
	}

	for _, s := range b.doc.Statements(ast.Rules) {
		q, ok := ast.AsExpr(s).(*ast.Quant)
		if !ok || q.Kind != symbols.KindForall {
			continue
		}
		bin, ok := q.Body.(*ast.Binary)
		if !ok || bin.Op != symbols.KindIn || !isVar(bin.Left, q.Var) {
			continue
		}
		subject := q.Var
		if id, ok := bin.Right.(*ast.Ident); ok {
			subject = id.Name
		}
		b.add(Membership, subject, q, Source{Block: ast.Rules, Offset: s.Pos()},
			Evidence{Cue: QuantifiedRule, Block: ast.Rules, Offset: s.Pos()})
	}
}

// bounds: a rule that only compares bound variables against numeric
// constants.
func (b *builder) bounds() {
	for _, s := range b.doc.Statements(ast.Rules) {
		e := ast.AsExpr(s)
		if e == nil {
			continue
		}
		vars := map[string]bool{}
		subject := ""
		body := e
		for {
			q, ok := body.(*ast.Quant)
			if !ok || q.Kind != symbols.KindForall {
				break
			}
			vars[q.Var] = true
			if subject == "" {
				subject = domainName(q)
			}
			body = q.Body
		}
		conj := conjuncts(body)
		ok := len(conj) > 0
		for _, c := range conj {
			if !b.isRange(c, vars) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if subject == "" {
			subject = firstIdent(body, b.numeric)
		}
		ev := []Evidence{{Cue: ExplicitRange, Block: ast.Rules, Offset: s.Pos()}}
		if len(vars) > 0 {
			ev = append(ev, Evidence{Cue: QuantifiedRule, Block: ast.Rules, Offset: s.Pos()})
		}
		b.add(Bounds, subject, e, Source{Block: ast.Rules, Offset: s.Pos()}, ev...)
	}
}

// structural: set relations between named collections, such as
// disjointness A∩B≡∅ or inclusion A⊆B.
func (b *builder) structural() {
	for _, s := range b.doc.Statements(ast.Rules) {
		bin, ok := ast.AsExpr(s).(*ast.Binary)
		if !ok {
			continue
		}
		switch {
		case bin.Op == symbols.KindSubset, bin.Op == symbols.KindSuperset,
			bin.Op == symbols.KindProperSubset, bin.Op == symbols.KindProperSuperset:
		case (bin.Op == symbols.KindEq || bin.Op == symbols.KindEquiv) && (setValued(bin.Left) || setValued(bin.Right)):
		default:
			continue
		}
		b.add(Structural, firstIdent(bin, nil), bin, Source{Block: ast.Rules, Offset: s.Pos()},
			Evidence{Cue: StructuralCheck, Block: ast.Rules, Offset: s.Pos()})
	}
}

// #endregion matchers

// #region shapes
func nonNegativity(name string, off int) ast.Expr {
	return &ast.Quant{
		Kind:   symbols.KindForall,
		Var:    "x",
		Domain: &ast.Ident{Name: name, Offset: off},
		Body: &ast.Binary{
			Op:     symbols.KindGe,
			Left:   &ast.Ident{Name: "x", Offset: off},
			Right:  &ast.Number{Text: "0", Value: 0, Offset: off},
			Offset: off,
		},
		Offset: off,
	}
}

// closure builds ∀v∈T: v=A ∨ v=B ∨ … for the variants of T.
func closure(name string, set *ast.SetLit, off int) ast.Expr {
	taken := map[string]bool{}
	for _, e := range set.Elems {
		taken[e.(*ast.Ident).Name] = true
	}
	v := "x"
	for taken[v] {
		v += "'"
	}
	var body ast.Expr
	for _, e := range set.Elems {
		eq := &ast.Binary{Op: symbols.KindEq, Left: &ast.Ident{Name: v, Offset: off}, Right: e, Offset: off}
		if body == nil {
			body = eq
			continue
		}
		body = &ast.Binary{Op: symbols.KindOr, Left: body, Right: eq, Offset: off}
	}
	return &ast.Quant{Kind: symbols.KindForall, Var: v, Domain: &ast.Ident{Name: name, Offset: off}, Body: body, Offset: off}
}

func rangesOver(q *ast.Quant, name string) bool {
	id, ok := q.Domain.(*ast.Ident)
	return ok && id.Name == name
}

func domainName(q *ast.Quant) string {
	switch d := q.Domain.(type) {
	case *ast.Ident:
		return d.Name
	case *ast.DomainRef:
		return d.Glyph
	}
	return q.Var
}

func nonNegative(e ast.Expr, v string) bool {
	bin, ok := e.(*ast.Binary)
	if !ok {
		return false
	}
	switch bin.Op {
	case symbols.KindGe:
		return isVar(bin.Left, v) && isZero(bin.Right)
	case symbols.KindLe:
		return isZero(bin.Left) && isVar(bin.Right, v)
	}
	return false
}

func (b *builder) isRange(e ast.Expr, vars map[string]bool) bool {
	bin, ok := e.(*ast.Binary)
	if !ok {
		return false
	}
	switch bin.Op {
	case symbols.KindLt, symbols.KindGt, symbols.KindLe, symbols.KindGe:
	default:
		return false
	}
	return b.isNumeric(bin.Right) && b.mentionsSubject(bin.Left, vars) ||
		b.isNumeric(bin.Left) && b.mentionsSubject(bin.Right, vars)
}

func (b *builder) mentionsSubject(e ast.Expr, vars map[string]bool) bool {
	found := false
	ast.Inspect(e, func(x ast.Expr) bool {
		if id, ok := x.(*ast.Ident); ok && !b.numeric[id.Name] && (len(vars) == 0 || vars[id.Name]) {
			found = true
		}
		return !found
	})
	return found
}

func (b *builder) isNumeric(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Number:
		return true
	case *ast.Ident:
		return b.numeric[n.Name]
	case *ast.Unary:
		return n.Op == symbols.KindMinus && b.isNumeric(n.X)
	case *ast.Binary:
		switch n.Op {
		case symbols.KindPlus, symbols.KindMinus, symbols.KindStar, symbols.KindSlash, symbols.KindTimes:
			return b.isNumeric(n.Left) && b.isNumeric(n.Right)
		}
	}
	return false
}

func setValued(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(x ast.Expr) bool {
		switch n := x.(type) {
		case *ast.Binary:
			if n.Op == symbols.KindIntersect || n.Op == symbols.KindUnion || n.Op == symbols.KindSetMinus {
				found = true
			}
		case *ast.Const:
			if n.Kind == symbols.KindEmpty {
				found = true
			}
		case *ast.Quant, *ast.Lambda:
			return false
		}
		return !found
	})
	return found
}

func conjuncts(e ast.Expr) []ast.Expr {
	if bin, ok := e.(*ast.Binary); ok && bin.Op == symbols.KindAnd {
		return append(conjuncts(bin.Left), conjuncts(bin.Right)...)
	}
	return []ast.Expr{e}
}

func firstIdent(e ast.Expr, skip map[string]bool) string {
	name := ""
	ast.Inspect(e, func(x ast.Expr) bool {
		if id, ok := x.(*ast.Ident); ok && name == "" && !skip[id.Name] {
			name = id.Name
		}
		return name == ""
	})
	return name
}

func isVar(e ast.Expr, v string) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == v
}

func isZero(e ast.Expr) bool {
	n, ok := e.(*ast.Number)
	return ok && n.Value == 0
}

func allIdents(es []ast.Expr) bool {
	for _, e := range es {
		if _, ok := e.(*ast.Ident); !ok {
			return false
		}
	}
	return true
}

func sortedByOffset(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return m[out[i]] < m[out[j]] })
	return out
}

// #endregion shapes
