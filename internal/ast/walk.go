package ast

import "fmt"

// #region walk
// Inspect visits e depth-first. If fn returns false the children of the
// current node are skipped.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Ident, *Number, *String, *DomainRef, *Tier, *Const:
	case *Binary:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Unary:
		Inspect(n.X, fn)
	case *Call:
		Inspect(n.Fn, fn)
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *Lambda:
		Inspect(n.Body, fn)
	case *SetLit:
		for _, x := range n.Elems {
			Inspect(x, fn)
		}
	case *Tuple:
		for _, x := range n.Elems {
			Inspect(x, fn)
		}
	case *Quant:
		Inspect(n.Domain, fn)
		Inspect(n.Body, fn)
	default:
		panic(fmt.Sprintf("ast: unexpected expression %T", e))
	}
}

// Exprs returns the top-level expressions carried by a statement.
func Exprs(s Statement) []Expr {
	switch n := s.(type) {
	case *Definition:
		return []Expr{n.Value}
	case *Quantified:
		return []Expr{n.Quant}
	case *Implication:
		return []Expr{n.Left, n.Right}
	case *EvidenceTuple:
		out := make([]Expr, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = f.Value
		}
		return out
	case *Assertion:
		return []Expr{n.Expr}
	default:
		panic(fmt.Sprintf("ast: unexpected statement %T", s))
	}
}

// AsExpr returns the statement as a single boolean-valued expression, or
// nil for definitions and evidence.
func AsExpr(s Statement) Expr {
	switch n := s.(type) {
	case *Quantified:
		return n.Quant
	case *Implication:
		return &Binary{Op: n.Op, Left: n.Left, Right: n.Right, Offset: n.Offset}
	case *Assertion:
		return n.Expr
	case *Definition, *EvidenceTuple:
		return nil
	default:
		panic(fmt.Sprintf("ast: unexpected statement %T", s))
	}
}

// #endregion walk

// #region free-idents
// FreeIdents returns identifiers referenced by e that are not bound by an
// enclosing lambda or quantifier, in first-occurrence order. Call heads
// are included.
func FreeIdents(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(Expr, map[string]bool)
	visit = func(e Expr, bound map[string]bool) {
		switch n := e.(type) {
		case nil:
		case *Ident:
			if !bound[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case *Lambda:
			inner := extend(bound, n.Params...)
			visit(n.Body, inner)
		case *Quant:
			visit(n.Domain, bound)
			visit(n.Body, extend(bound, n.Var))
		case *Binary:
			visit(n.Left, bound)
			visit(n.Right, bound)
		case *Unary:
			visit(n.X, bound)
		case *Call:
			visit(n.Fn, bound)
			for _, a := range n.Args {
				visit(a, bound)
			}
		case *SetLit:
			for _, x := range n.Elems {
				visit(x, bound)
			}
		case *Tuple:
			for _, x := range n.Elems {
				visit(x, bound)
			}
		case *Number, *String, *DomainRef, *Tier, *Const:
		default:
			panic(fmt.Sprintf("ast: unexpected expression %T", e))
		}
	}
	visit(e, map[string]bool{})
	return out
}

func extend(bound map[string]bool, names ...string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

// #endregion free-idents
