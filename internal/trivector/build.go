package trivector

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// #region lexicon
var safetyStems = []string{
	"safe", "harm", "hazard", "danger", "risk", "forbid", "prohibit", "deny",
	"attack", "threat", "violat", "secur", "protect", "malicious", "abuse",
	"exploit", "breach", "veto",
}

// IsSafetyToken reports whether an identifier belongs to the safety lexicon.
func IsSafetyToken(tok string) bool {
	lower := strings.ToLower(tok)
	for _, s := range safetyStems {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// #endregion lexicon

// #region classify
type classifier struct {
	typeNames map[string]bool
}

func newClassifier(doc *ast.Document) *classifier {
	c := &classifier{typeNames: map[string]bool{}}
	for _, s := range doc.Statements(ast.Types) {
		if d, ok := s.(*ast.Definition); ok {
			c.typeNames[d.Name] = true
		}
	}
	return c
}

// band picks the coordinate band a token is hashed into.
func (c *classifier) band(tok string) Kind {
	switch {
	case strings.HasPrefix(tok, "⟦"), strings.HasPrefix(tok, "dom:"), c.typeNames[tok]:
		return Structural
	case IsSafetyToken(tok):
		return Safety
	}
	return Semantic
}

// spaceFor decides which space a statement's generator joins.
func (c *classifier) spaceFor(tag ast.BlockTag, toks []string) (Kind, bool) {
	switch tag {
	case ast.Evidence:
		return 0, false
	case ast.Errors:
		return Safety, true
	case ast.Types, ast.Categories:
		return Structural, true
	case ast.Rules:
		for _, t := range toks {
			if IsSafetyToken(t) {
				return Safety, true
			}
		}
	}
	return Semantic, true
}

// #endregion classify

// #region tokens
// StatementTokens lists the content tokens of a statement. Definitions
// contribute their body only, so a body reused under another name hashes
// to the same vector.
func StatementTokens(s ast.Statement) []string {
	var exprs []ast.Expr
	if d, ok := s.(*ast.Definition); ok {
		v := d.Value
		if lam, ok := v.(*ast.Lambda); ok {
			v = lam.Body
		}
		exprs = []ast.Expr{v}
	} else if e := ast.AsExpr(s); e != nil {
		exprs = []ast.Expr{e}
	} else {
		exprs = ast.Exprs(s)
	}
	var out []string
	for _, e := range exprs {
		ast.Inspect(e, func(n ast.Expr) bool {
			switch x := n.(type) {
			case *ast.Ident:
				out = append(out, x.Name)
			case *ast.Number:
				out = append(out, x.String())
			case *ast.String:
				out = append(out, x.String())
			case *ast.DomainRef:
				out = append(out, "dom:"+x.Glyph)
			case *ast.Binary:
				op := x.Op.String()
				if x.Sym != "" {
					op = x.Sym
				}
				out = append(out, op)
			case *ast.Unary:
				out = append(out, x.Op.String())
			case *ast.Call:
			case *ast.Lambda:
				out = append(out, "λ")
			case *ast.SetLit:
				out = append(out, "{}")
			case *ast.Tuple:
				out = append(out, "⟨⟩")
			case *ast.Tier:
				out = append(out, x.Glyph)
			case *ast.Quant:
				out = append(out, x.Kind.String(), x.Var)
			case *ast.Const:
				out = append(out, x.Kind.String())
			}
			return true
		})
	}
	return out
}

// #endregion tokens

// #region embed
func (c *classifier) embed(toks []string) []float64 {
	v := make([]float64, Ambient)
	nonzero := false
	for _, t := range toks {
		b := Bands[c.band(t)]
		h := xxhash.Sum64String(t)
		idx := b.Lo + int(h%uint64(b.Size()))
		if h>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	for _, x := range v {
		if x != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		return nil
	}
	return v
}

// Build derives the three spaces from a document. The same document always
// yields the same generators.
func Build(doc *ast.Document) *Spaces {
	c := newClassifier(doc)
	sp := &Spaces{
		Semantic:   Space{Kind: Semantic, NominalDim: Semantic.NominalDim()},
		Structural: Space{Kind: Structural, NominalDim: Structural.NominalDim()},
		Safety:     Space{Kind: Safety, NominalDim: Safety.NominalDim()},
	}
	for _, b := range doc.Blocks {
		skeleton := c.embed([]string{"⟦" + string(b.Tag) + "⟧"})
		sp.Structural.add(skeleton, Source{Block: b.Tag, Index: -1, Offset: b.Offset, Text: "⟦" + b.Glyph + "⟧"})

		for i, s := range b.Statements {
			toks := StatementTokens(s)
			kind, ok := c.spaceFor(b.Tag, toks)
			if !ok {
				continue
			}
			v := c.embed(toks)
			if v == nil {
				continue
			}
			sp.Get(kind).add(v, Source{Block: b.Tag, Index: i, Offset: s.Pos(), Text: s.String()})
		}
	}
	return sp
}

func (s *Space) add(v []float64, src Source) {
	if v == nil {
		return
	}
	s.Generators = append(s.Generators, v)
	s.Sources = append(s.Sources, src)
}

// #endregion embed
