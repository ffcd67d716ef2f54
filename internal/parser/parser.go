package parser

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

const maxDepth = 256

// #region parser-struct
type parser struct {
	toks  []lexer.Token
	pos   int
	strat Strategy
	depth int
	block ast.BlockTag
}

// #endregion parser-struct

// #region entry
// Parse parses tokens with the strict strategy.
func Parse(toks []lexer.Token) (*ast.Document, error) {
	return ParseWith(toks, Strategies[StrategyStrict])
}

// ParseWith parses tokens with the given disambiguation strategy.
func ParseWith(toks []lexer.Token, strat Strategy) (*ast.Document, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != symbols.KindEOF {
		toks = append(toks, lexer.Token{Kind: symbols.KindEOF})
	}
	p := &parser{toks: toks, strat: strat}
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	if err := checkRequired(doc); err != nil {
		return nil, err
	}
	if err := checkCycles(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseSource lexes and parses src with the strict strategy.
func ParseSource(src []byte) (*ast.Document, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// #endregion entry

// #region cursor
func (p *parser) peek() lexer.Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() lexer.Token {
	t := p.toks[p.pos]
	if t.Kind != symbols.KindEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(k symbols.Kind) bool { return p.peek().Kind == k }

func (p *parser) accept(k symbols.Kind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(k symbols.Kind, what string) (lexer.Token, error) {
	t := p.peek()
	if t.Kind != k {
		return t, p.unexpected(t, what)
	}
	return p.next(), nil
}

func (p *parser) unexpected(t lexer.Token, what string) *Error {
	if t.Kind == symbols.KindEOF {
		return &Error{Kind: KindUnexpectedToken, Offset: t.Offset, Block: p.block, Msg: fmt.Sprintf("expected %s, found end of input", what)}
	}
	return &Error{Kind: KindUnexpectedToken, Offset: t.Offset, Block: p.block, Msg: fmt.Sprintf("expected %s, found %q", what, t.Text)}
}

// #endregion cursor

// #region document
func (p *parser) document() (*ast.Document, error) {
	doc := &ast.Document{}
	for !p.at(symbols.KindHeader) {
		if p.at(symbols.KindEOF) || p.at(symbols.KindBlockOpen) {
			return nil, &Error{Kind: KindMissingHeader, Offset: p.peek().Offset, Msg: "document must start with a 𝔸<version>.<name>@<date> header"}
		}
		p.next()
	}
	hdr, err := p.header()
	if err != nil {
		return nil, err
	}
	doc.Header = hdr

	seen := map[ast.BlockTag]int{}
	for !p.at(symbols.KindEOF) {
		t := p.peek()
		switch {
		case t.Kind == symbols.KindBlockOpen:
			b, err := p.blockDecl()
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[b.Tag]; dup {
				return nil, &Error{Kind: KindDuplicateBlock, Offset: b.Offset, Block: b.Tag,
					Msg: fmt.Sprintf("block already declared at byte %d", prev)}
			}
			seen[b.Tag] = b.Offset
			doc.Blocks = append(doc.Blocks, b)
		case t.Kind == symbols.KindIdent && t.Text == "γ" && isBinder(p.peekAt(1).Kind) && len(doc.Blocks) == 0:
			p.next()
			p.next()
			doc.Domain = p.lineText()
		case t.Kind == symbols.KindIdent && t.Text == "ρ" && isBinder(p.peekAt(1).Kind) && len(doc.Blocks) == 0:
			p.next()
			p.next()
			tags, err := p.tagList()
			if err != nil {
				return nil, err
			}
			doc.Tags = tags
		default:
			// prose between blocks
			p.next()
		}
	}
	return doc, nil
}

func isBinder(k symbols.Kind) bool {
	return k == symbols.KindAssign || k == symbols.KindDefine
}

func (p *parser) header() (ast.Header, error) {
	start := p.next()
	var ident strings.Builder
	for !p.at(symbols.KindAt) {
		t := p.peek()
		if t.Kind == symbols.KindEOF || t.Newline || t.Kind == symbols.KindBlockOpen {
			return ast.Header{}, &Error{Kind: KindMissingHeader, Offset: start.Offset, Msg: "header is missing @<date>"}
		}
		ident.WriteString(p.next().Text)
	}
	p.next()
	s := ident.String()
	dot := strings.LastIndex(s, ".")
	if dot <= 0 || dot == len(s)-1 {
		return ast.Header{}, &Error{Kind: KindMissingHeader, Offset: start.Offset, Msg: fmt.Sprintf("header %q is not <version>.<name>", s)}
	}
	date := p.lineText()
	if date == "" {
		return ast.Header{}, &Error{Kind: KindMissingHeader, Offset: start.Offset, Msg: "header date is empty"}
	}
	return ast.Header{Version: s[:dot], Name: s[dot+1:], Date: date, Offset: start.Offset}, nil
}

// lineText joins the texts of the tokens remaining on the current line.
func (p *parser) lineText() string {
	var b strings.Builder
	for {
		t := p.peek()
		if t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen || (t.Newline && b.Len() > 0) {
			break
		}
		b.WriteString(p.next().Text)
	}
	return b.String()
}

func (p *parser) tagList() ([]string, error) {
	if _, err := p.expect(symbols.KindAngleOpen, "⟨ after ρ≔"); err != nil {
		return nil, err
	}
	var tags []string
	for !p.accept(symbols.KindAngleClose) {
		t := p.next()
		switch t.Kind {
		case symbols.KindComma, symbols.KindSemicolon:
		case symbols.KindIdent, symbols.KindString, symbols.KindNumber:
			tags = append(tags, strings.Trim(t.Text, `"`))
		case symbols.KindEOF:
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: t.Offset, Msg: "ρ tag list is missing ⟩"}
		default:
			return nil, p.unexpected(t, "tag")
		}
	}
	return tags, nil
}

// #endregion document

// #region blocks
func blockTag(glyph, label string) ast.BlockTag {
	if name, ok := symbols.BlockGlyph[glyph]; ok {
		return ast.BlockTag(name)
	}
	return ast.BlockTag(label)
}

func (p *parser) blockDecl() (*ast.Block, error) {
	open := p.next()
	glyph, err := p.expect(symbols.KindIdent, "block glyph after ⟦")
	if err != nil {
		return nil, err
	}
	var label string
	if p.accept(symbols.KindColon) {
		var b strings.Builder
		for !p.at(symbols.KindBlockClose) {
			t := p.peek()
			if t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen || t.Kind == symbols.KindLBrace {
				return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Msg: "block tag is missing ⟧"}
			}
			b.WriteString(p.next().Text)
		}
		label = b.String()
	}
	if !p.accept(symbols.KindBlockClose) {
		return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Msg: "block tag is missing ⟧"}
	}

	if _, known := symbols.BlockGlyph[glyph.Text]; !known && label == "" {
		return nil, &Error{Kind: KindUnsupportedBlock, Offset: open.Offset,
			Msg: fmt.Sprintf("block glyph %q is not recognised; extension blocks need a label", glyph.Text)}
	}
	blk := &ast.Block{Tag: blockTag(glyph.Text, label), Glyph: glyph.Text, Label: label, Offset: open.Offset}
	p.block = blk.Tag
	defer func() { p.block = "" }()

	bodyOpen := p.peek()
	var closer symbols.Kind
	switch bodyOpen.Kind {
	case symbols.KindLBrace:
		closer = symbols.KindRBrace
	case symbols.KindAngleOpen:
		closer = symbols.KindAngleClose
	default:
		return nil, p.unexpected(bodyOpen, "{ or ⟨ to open the block body")
	}
	p.next()

	if blk.Tag == ast.Evidence {
		ev, err := p.evidenceBody(bodyOpen, closer)
		if err != nil {
			return nil, err
		}
		if len(ev.Fields) > 0 {
			blk.Statements = []ast.Statement{ev}
		}
	} else {
		stmts, err := p.statements(bodyOpen, closer)
		if err != nil {
			return nil, err
		}
		blk.Statements = stmts
	}
	blk.End = p.toks[p.pos-1].End()
	return blk, nil
}

func (p *parser) statements(open lexer.Token, closer symbols.Kind) ([]ast.Statement, error) {
	var out []ast.Statement
	for {
		t := p.peek()
		switch {
		case t.Kind == closer:
			p.next()
			return out, nil
		case t.Kind == symbols.KindSemicolon || t.Kind == symbols.KindComma:
			p.next()
		case t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen:
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Block: p.block,
				Msg: fmt.Sprintf("block body opened with %q is never closed", open.Text)}
		case isCloser(t.Kind):
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: t.Offset, Block: p.block,
				Msg: fmt.Sprintf("%q does not match %q opened at byte %d", t.Text, open.Text, open.Offset)}
		default:
			s, err := p.statement()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
}

func (p *parser) evidenceBody(open lexer.Token, closer symbols.Kind) (*ast.EvidenceTuple, error) {
	ev := &ast.EvidenceTuple{Offset: open.Offset}
	for {
		t := p.peek()
		switch {
		case t.Kind == closer:
			p.next()
			return ev, nil
		case t.Kind == symbols.KindSemicolon || t.Kind == symbols.KindComma:
			p.next()
		case t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen:
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Block: p.block,
				Msg: fmt.Sprintf("evidence opened with %q is never closed", open.Text)}
		case isCloser(t.Kind):
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: t.Offset, Block: p.block,
				Msg: fmt.Sprintf("%q does not match %q opened at byte %d", t.Text, open.Text, open.Offset)}
		case t.Kind == symbols.KindIdent && isBinder(p.peekAt(1).Kind):
			p.next()
			p.next()
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			ev.Fields = append(ev.Fields, ast.EvidenceField{Name: t.Text, Value: v, Offset: t.Offset})
		default:
			return nil, p.unexpected(t, "evidence field name≜value")
		}
	}
}

func isCloser(k symbols.Kind) bool {
	switch k {
	case symbols.KindRBrace, symbols.KindAngleClose, symbols.KindRParen, symbols.KindRBracket, symbols.KindBlockClose:
		return true
	}
	return false
}

// #endregion blocks

// #region statement
func (p *parser) statement() (ast.Statement, error) {
	t := p.peek()
	if t.Kind == symbols.KindIdent {
		if isBinder(p.peekAt(1).Kind) {
			p.next()
			op := p.next()
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ast.Definition{Name: t.Text, Assign: op.Kind == symbols.KindAssign, Value: v, Offset: t.Offset}, nil
		}
		if params, ok := p.paramHead(); ok {
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ast.Definition{Name: t.Text, Value: &ast.Lambda{Params: params, Body: v, Offset: t.Offset}, Offset: t.Offset}, nil
		}
	}

	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	switch n := e.(type) {
	case *ast.Quant:
		return &ast.Quantified{Quant: n, Offset: n.Offset}, nil
	case *ast.Binary:
		switch n.Op {
		case symbols.KindImplies, symbols.KindIff, symbols.KindArrow, symbols.KindBiArrow:
			return &ast.Implication{Op: n.Op, Left: n.Left, Right: n.Right, Offset: n.Offset}, nil
		}
	}
	return &ast.Assertion{Expr: e, Offset: e.Pos()}, nil
}

// paramHead recognises `name(a,b)≜` and consumes it, returning the params.
func (p *parser) paramHead() ([]string, bool) {
	if p.peekAt(1).Kind != symbols.KindLParen {
		return nil, false
	}
	var params []string
	i := 2
	for {
		t := p.peekAt(i)
		switch t.Kind {
		case symbols.KindIdent:
			params = append(params, t.Text)
		case symbols.KindComma:
		case symbols.KindRParen:
			if !isBinder(p.peekAt(i + 1).Kind) {
				return nil, false
			}
			p.pos += i + 2
			return params, true
		default:
			return nil, false
		}
		i++
	}
}

// #endregion statement

// #region checks
func checkRequired(doc *ast.Document) error {
	var missing []string
	for _, tag := range ast.RequiredBlocks {
		if doc.Block(tag) == nil {
			missing = append(missing, string(tag))
		}
	}
	if len(missing) > 0 {
		return &Error{
			Kind:   KindMissingRequiredBlock,
			Offset: endOffset(doc),
			Block:  ast.BlockTag(missing[0]),
			Msg:    fmt.Sprintf("required block(s) missing: %s", strings.Join(missing, ", ")),
		}
	}
	for _, tag := range ast.RequiredBlocks {
		b := doc.Block(tag)
		if len(b.Statements) == 0 {
			return &Error{Kind: KindEmptyRequiredBlock, Offset: b.Offset, Block: tag, Msg: "required block has no statements"}
		}
	}
	return nil
}

func endOffset(doc *ast.Document) int {
	end := doc.Header.Offset
	for _, b := range doc.Blocks {
		if b.End > end {
			end = b.End
		}
	}
	return end
}

// #endregion checks
