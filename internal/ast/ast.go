// Package ast defines the AISP document tree. Statements and expressions
// are closed sum types: every concrete node implements an unexported
// marker method, so consumers can switch exhaustively.
package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region blocks
// BlockTag names a document block.
type BlockTag string

const (
	Meta       BlockTag = "Meta"
	Types      BlockTag = "Types"
	Rules      BlockTag = "Rules"
	Functions  BlockTag = "Functions"
	Evidence   BlockTag = "Evidence"
	Errors     BlockTag = "Errors"
	Proofs     BlockTag = "Proofs"
	Categories BlockTag = "Categories"

	// DocumentScope locates findings about the document as a whole.
	DocumentScope BlockTag = "Document"
)

// RequiredBlocks lists the five mandatory blocks in canonical order.
var RequiredBlocks = []BlockTag{Meta, Types, Rules, Functions, Evidence}

// IsRequired reports whether tag is one of the mandatory blocks.
func (t BlockTag) IsRequired() bool {
	for _, r := range RequiredBlocks {
		if r == t {
			return true
		}
	}
	return false
}

// Header is the `𝔸<version>.<name>@<date>` line.
type Header struct {
	Version string
	Name    string
	Date    string
	Offset  int
}

// Block is one `⟦glyph:label⟧{…}` section. Offset/End span the whole
// block in bytes, tag through closing delimiter.
type Block struct {
	Tag        BlockTag
	Glyph      string
	Label      string
	Offset     int
	End        int
	Statements []Statement
}

// Document is the parse result.
type Document struct {
	Header Header
	Domain string   // γ≔…
	Tags   []string // ρ≔⟨…⟩
	Blocks []*Block
}

// Block returns the block with the given tag, or nil.
func (d *Document) Block(tag BlockTag) *Block {
	for _, b := range d.Blocks {
		if b.Tag == tag {
			return b
		}
	}
	return nil
}

// Statements returns the statements of tag, or nil when the block is absent.
func (d *Document) Statements(tag BlockTag) []Statement {
	if b := d.Block(tag); b != nil {
		return b.Statements
	}
	return nil
}

// Fingerprint hashes the canonical form of every statement in block order.
// Two documents with the same fingerprint have the same meaning.
func (d *Document) Fingerprint() string {
	h := sha256.New()
	for _, b := range d.Blocks {
		h.Write([]byte(b.Tag))
		h.Write([]byte{0})
		for _, s := range b.Statements {
			h.Write([]byte(s.String()))
			h.Write([]byte{'\n'})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion blocks

// #region node
// Node is implemented by every statement and expression.
type Node interface {
	Pos() int
	String() string
}

// Statement is one of *Definition, *Quantified, *Implication,
// *EvidenceTuple or *Assertion.
type Statement interface {
	Node
	stmtNode()
}

// Expr is one of *Ident, *Number, *String, *DomainRef, *Binary, *Unary,
// *Call, *Lambda, *SetLit, *Tuple, *Tier, *Quant or *Const.
type Expr interface {
	Node
	exprNode()
}

// #endregion node

// #region statements
// Definition is `name ≜ value` or `name ≔ value`.
type Definition struct {
	Name   string
	Assign bool // ≔ rather than ≜
	Value  Expr
	Offset int
}

// Quantified is a rule whose top-level form is a quantifier.
type Quantified struct {
	Quant  *Quant
	Offset int
}

// Implication is a top-level `A⇒B`, `A⇔B` or `A→B`.
type Implication struct {
	Op     symbols.Kind
	Left   Expr
	Right  Expr
	Offset int
}

// EvidenceField is one `name≜value` entry of the evidence tuple.
type EvidenceField struct {
	Name   string
	Value  Expr
	Offset int
}

// EvidenceTuple is the body of the Evidence block.
type EvidenceTuple struct {
	Fields []EvidenceField
	Offset int
}

// Field returns the named evidence value or nil.
func (e *EvidenceTuple) Field(name string) Expr {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Assertion is a bare predicate statement.
type Assertion struct {
	Expr   Expr
	Offset int
}

func (*Definition) stmtNode()    {}
func (*Quantified) stmtNode()    {}
func (*Implication) stmtNode()   {}
func (*EvidenceTuple) stmtNode() {}
func (*Assertion) stmtNode()     {}

func (s *Definition) Pos() int    { return s.Offset }
func (s *Quantified) Pos() int    { return s.Offset }
func (s *Implication) Pos() int   { return s.Offset }
func (s *EvidenceTuple) Pos() int { return s.Offset }
func (s *Assertion) Pos() int     { return s.Offset }

func (s *Definition) String() string {
	op := "≜"
	if s.Assign {
		op = "≔"
	}
	return "(" + op + " " + s.Name + " " + s.Value.String() + ")"
}

func (s *Quantified) String() string { return s.Quant.String() }

func (s *Implication) String() string {
	return "(" + s.Op.String() + " " + s.Left.String() + " " + s.Right.String() + ")"
}

func (s *EvidenceTuple) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + "=" + f.Value.String()
	}
	return "(evidence " + strings.Join(parts, " ") + ")"
}

func (s *Assertion) String() string { return s.Expr.String() }

// #endregion statements

// #region expressions
type Ident struct {
	Name   string
	Offset int
}

type Number struct {
	Text   string
	Value  float64
	Offset int
}

type String struct {
	Value  string
	Offset int
}

// DomainRef is a built-in domain glyph such as ℕ, optionally with a
// superscript dimension (ℝ⁷⁶⁸).
type DomainRef struct {
	Glyph  string
	Sort   string
	Dim    int
	Offset int
}

// Binary is a binary operation. Sym carries the glyph when Op is the
// generic KindOperator.
type Binary struct {
	Op     symbols.Kind
	Sym    string
	Left   Expr
	Right  Expr
	Offset int
}

type Unary struct {
	Op     symbols.Kind
	X      Expr
	Offset int
}

type Call struct {
	Fn     Expr
	Args   []Expr
	Offset int
}

type Lambda struct {
	Params []string
	Body   Expr
	Offset int
}

// SetLit is an enumeration or set literal.
type SetLit struct {
	Elems  []Expr
	Offset int
}

type Tuple struct {
	Elems  []Expr
	Offset int
}

// Tier is a quality tier literal: ⊘ ◊⁻ ◊ ◊⁺ ◊⁺⁺.
type Tier struct {
	Glyph  string
	Level  int // 0 reject .. 4 platinum
	Offset int
}

// Quant is a quantifier. Domain may be nil.
type Quant struct {
	Kind   symbols.Kind // KindForall, KindExists or KindNotExists
	Var    string
	Domain Expr
	Body   Expr
	Offset int
}

// Const is ⊤, ⊥, ∅ or ∞.
type Const struct {
	Kind   symbols.Kind
	Offset int
}

func (*Ident) exprNode()     {}
func (*Number) exprNode()    {}
func (*String) exprNode()    {}
func (*DomainRef) exprNode() {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*Call) exprNode()      {}
func (*Lambda) exprNode()    {}
func (*SetLit) exprNode()    {}
func (*Tuple) exprNode()     {}
func (*Tier) exprNode()      {}
func (*Quant) exprNode()     {}
func (*Const) exprNode()     {}

func (e *Ident) Pos() int     { return e.Offset }
func (e *Number) Pos() int    { return e.Offset }
func (e *String) Pos() int    { return e.Offset }
func (e *DomainRef) Pos() int { return e.Offset }
func (e *Binary) Pos() int    { return e.Offset }
func (e *Unary) Pos() int     { return e.Offset }
func (e *Call) Pos() int      { return e.Offset }
func (e *Lambda) Pos() int    { return e.Offset }
func (e *SetLit) Pos() int    { return e.Offset }
func (e *Tuple) Pos() int     { return e.Offset }
func (e *Tier) Pos() int      { return e.Offset }
func (e *Quant) Pos() int     { return e.Offset }
func (e *Const) Pos() int     { return e.Offset }

func (e *Ident) String() string  { return e.Name }
func (e *Number) String() string { return strconv.FormatFloat(e.Value, 'g', -1, 64) }
func (e *String) String() string { return strconv.Quote(e.Value) }

func (e *DomainRef) String() string {
	if e.Dim > 0 {
		return e.Glyph + "^" + strconv.Itoa(e.Dim)
	}
	return e.Glyph
}

func (e *Binary) String() string {
	op := e.Op.String()
	if e.Op == symbols.KindOperator && e.Sym != "" {
		op = e.Sym
	}
	return "(" + op + " " + e.Left.String() + " " + e.Right.String() + ")"
}

func (e *Unary) String() string { return "(" + e.Op.String() + " " + e.X.String() + ")" }

func (e *Call) String() string {
	return "(" + e.Fn.String() + joinExprs(e.Args, " ", true) + ")"
}

func (e *Lambda) String() string {
	return "(λ [" + strings.Join(e.Params, " ") + "] " + e.Body.String() + ")"
}

func (e *SetLit) String() string { return "{" + joinExprs(e.Elems, ",", false) + "}" }
func (e *Tuple) String() string  { return "⟨" + joinExprs(e.Elems, ",", false) + "⟩" }
func (e *Tier) String() string   { return e.Glyph }

func (e *Quant) String() string {
	dom := "_"
	if e.Domain != nil {
		dom = e.Domain.String()
	}
	return "(" + e.Kind.String() + " " + e.Var + ":" + dom + " " + e.Body.String() + ")"
}

func (e *Const) String() string { return e.Kind.String() }

func joinExprs(xs []Expr, sep string, lead bool) string {
	var b strings.Builder
	for i, x := range xs {
		if i > 0 || lead {
			b.WriteString(sep)
		}
		b.WriteString(x.String())
	}
	return b.String()
}

// #endregion expressions
