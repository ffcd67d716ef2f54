package parser

import (
	"fmt"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region issue
// TypeIssueKind classifies type-check findings.
type TypeIssueKind string

const (
	IssueUndefinedType       TypeIssueKind = "undefined_type"
	IssueDuplicateDefinition TypeIssueKind = "duplicate_definition"
	IssueDuplicateMember     TypeIssueKind = "duplicate_member"
	IssueEmptyEnumeration    TypeIssueKind = "empty_enumeration"
)

// TypeIssue is one type-check finding. Offset points at the offending
// name or definition.
type TypeIssue struct {
	Kind   TypeIssueKind
	Name   string
	Block  ast.BlockTag
	Offset int
	Msg    string
}

func (i TypeIssue) String() string { return i.Msg }

// #endregion issue

// #region builtins
// builtinTypes are domain names every document may use without declaring.
var builtinTypes = map[string]bool{
	"VectorSpace768": true, "VectorSpace512": true, "VectorSpace256": true,
	"RealVector": true, "DirectSum": true, "Structure": true, "Composite": true,
}

// blockDomains lets rules quantify over a document's own blocks (∀r∈Rules).
var blockDomains = map[string]bool{
	string(ast.Meta): true, string(ast.Types): true, string(ast.Rules): true,
	string(ast.Functions): true, "Funcs": true, string(ast.Evidence): true,
	string(ast.Errors): true, string(ast.Proofs): true, string(ast.Categories): true,
}

// #endregion builtins

// #region check
// CheckTypes reports redefined names in the Types, Rules and Functions
// blocks, malformed enumerations, and domain references that name no
// declared type. The first definition of a name is the one that counts.
func CheckTypes(doc *ast.Document) []TypeIssue {
	c := &typeChecker{
		defined: map[string]*ast.Definition{},
		where:   map[string]ast.BlockTag{},
		types:   map[string]bool{},
	}
	c.collect(doc)
	for _, b := range doc.Blocks {
		if b.Tag == ast.Evidence {
			continue
		}
		for _, s := range b.Statements {
			if d, ok := s.(*ast.Definition); ok && b.Tag == ast.Types {
				c.typeExpr(d.Value, b.Tag)
				continue
			}
			for _, e := range ast.Exprs(s) {
				c.walk(e, b.Tag, nil)
			}
		}
	}
	return c.issues
}

type typeChecker struct {
	defined map[string]*ast.Definition
	where   map[string]ast.BlockTag
	types   map[string]bool
	issues  []TypeIssue
}

func (c *typeChecker) report(kind TypeIssueKind, name string, block ast.BlockTag, off int, format string, args ...any) {
	c.issues = append(c.issues, TypeIssue{Kind: kind, Name: name, Block: block, Offset: off, Msg: fmt.Sprintf(format, args...)})
}

// collect records every definition. Meta entries are free-form and may
// repeat names used elsewhere.
func (c *typeChecker) collect(doc *ast.Document) {
	for _, b := range doc.Blocks {
		if b.Tag == ast.Evidence {
			continue
		}
		for _, s := range b.Statements {
			d, ok := s.(*ast.Definition)
			if !ok {
				continue
			}
			if b.Tag == ast.Meta {
				if _, seen := c.defined[d.Name]; !seen {
					c.defined[d.Name] = d
					c.where[d.Name] = b.Tag
				}
				continue
			}
			if first, seen := c.defined[d.Name]; seen && c.where[d.Name] != ast.Meta {
				c.report(IssueDuplicateDefinition, d.Name, b.Tag, d.Offset,
					"%s redefined in %s, first defined in %s at offset %d", d.Name, b.Tag, c.where[d.Name], first.Offset)
				continue
			}
			c.defined[d.Name] = d
			c.where[d.Name] = b.Tag
			if b.Tag == ast.Types {
				c.types[d.Name] = true
			}
		}
	}
}

func (c *typeChecker) known(name string, bound map[string]bool) bool {
	if bound[name] || builtinTypes[name] || blockDomains[name] {
		return true
	}
	_, ok := c.defined[name]
	return ok
}

// typeExpr checks the right-hand side of a Types definition. Type
// operands must be declared types; enumeration members are new names.
func (c *typeChecker) typeExpr(e ast.Expr, block ast.BlockTag) {
	switch n := e.(type) {
	case *ast.Ident:
		if !c.types[n.Name] && !builtinTypes[n.Name] {
			c.report(IssueUndefinedType, n.Name, block, n.Offset, "type %s is not declared", n.Name)
		}
	case *ast.Binary:
		switch n.Op {
		case symbols.KindUnion, symbols.KindIntersect, symbols.KindSetMinus, symbols.KindTimes, symbols.KindArrow:
			c.typeExpr(n.Left, block)
			c.typeExpr(n.Right, block)
		}
	case *ast.SetLit:
		if len(n.Elems) == 0 {
			c.report(IssueEmptyEnumeration, "", block, n.Offset, "enumeration has no members")
			return
		}
		seen := map[string]bool{}
		for _, m := range n.Elems {
			key := m.String()
			if seen[key] {
				c.report(IssueDuplicateMember, key, block, m.Pos(), "enumeration lists %s twice", key)
			}
			seen[key] = true
		}
	}
}

// walk checks quantifier domains under the variables bound so far.
func (c *typeChecker) walk(e ast.Expr, block ast.BlockTag, bound map[string]bool) {
	switch n := e.(type) {
	case nil:
	case *ast.Quant:
		if id, ok := n.Domain.(*ast.Ident); ok && !c.known(id.Name, bound) {
			c.report(IssueUndefinedType, id.Name, block, id.Offset, "domain %s of %s is not declared", id.Name, n.Var)
		} else if !ok {
			c.walk(n.Domain, block, bound)
		}
		c.walk(n.Body, block, with(bound, n.Var))
	case *ast.Lambda:
		c.walk(n.Body, block, with(bound, n.Params...))
	case *ast.Binary:
		c.walk(n.Left, block, bound)
		c.walk(n.Right, block, bound)
	case *ast.Unary:
		c.walk(n.X, block, bound)
	case *ast.Call:
		for _, a := range n.Args {
			c.walk(a, block, bound)
		}
	case *ast.SetLit:
		for _, x := range n.Elems {
			c.walk(x, block, bound)
		}
	case *ast.Tuple:
		for _, x := range n.Elems {
			c.walk(x, block, bound)
		}
	}
}

func with(bound map[string]bool, names ...string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

// #endregion check
