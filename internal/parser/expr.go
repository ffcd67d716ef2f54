package parser

import (
	"strconv"
	"strings"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
	"github.com/danielpatrickdp/aisp-verify/internal/lexer"
	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region operator-tables
var relationOps = map[symbols.Kind]bool{
	symbols.KindEq: true, symbols.KindNeq: true, symbols.KindLt: true, symbols.KindGt: true,
	symbols.KindLe: true, symbols.KindGe: true, symbols.KindEquiv: true, symbols.KindApprox: true,
	symbols.KindCong: true, symbols.KindIn: true, symbols.KindNotIn: true, symbols.KindSubset: true,
	symbols.KindSuperset: true, symbols.KindProperSubset: true, symbols.KindProperSuperset: true,
	symbols.KindTurnstile: true, symbols.KindModels: true,
}

var additiveOps = map[symbols.Kind]bool{
	symbols.KindPlus: true, symbols.KindMinus: true, symbols.KindUnion: true,
	symbols.KindSetMinus: true, symbols.KindOplus: true,
}

var multiplicativeOps = map[symbols.Kind]bool{
	symbols.KindStar: true, symbols.KindSlash: true, symbols.KindDot: true, symbols.KindTimes: true,
	symbols.KindIntersect: true, symbols.KindOtimes: true, symbols.KindCompose: true, symbols.KindOperator: true,
}

var superscriptDigits = strings.NewReplacer(
	"⁰", "0", "¹", "1", "²", "2", "³", "3", "⁴", "4",
	"⁵", "5", "⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9",
)

// #endregion operator-tables

// #region precedence-climb
func (p *parser) expr() (ast.Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		t := p.peek()
		return nil, &Error{Kind: KindUnexpectedToken, Offset: t.Offset, Block: p.block, Msg: "expression nesting too deep"}
	}
	return p.iff()
}

func (p *parser) iff() (ast.Expr, error) {
	left, err := p.implies()
	if err != nil {
		return nil, err
	}
	for p.at(symbols.KindIff) || p.at(symbols.KindBiArrow) {
		op := p.next()
		right, err := p.implies()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
	}
	return left, nil
}

func isImplication(k symbols.Kind) bool {
	return k == symbols.KindImplies || k == symbols.KindArrow
}

func (p *parser) implies() (ast.Expr, error) {
	left, err := p.connectives()
	if err != nil {
		return nil, err
	}
	if p.strat.LeftAssocImplication {
		for isImplication(p.peek().Kind) {
			op := p.next()
			right, err := p.connectives()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
		}
		return left, nil
	}
	if isImplication(p.peek().Kind) {
		op := p.next()
		right, err := p.implies()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}, nil
	}
	return left, nil
}

func (p *parser) connectives() (ast.Expr, error) {
	if p.strat.FlatConnectives {
		left, err := p.not()
		if err != nil {
			return nil, err
		}
		for p.at(symbols.KindAnd) || p.at(symbols.KindOr) {
			op := p.next()
			right, err := p.not()
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
		}
		return left, nil
	}
	return p.or()
}

func (p *parser) or() (ast.Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.at(symbols.KindOr) {
		op := p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
	}
	return left, nil
}

func (p *parser) and() (ast.Expr, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.at(symbols.KindAnd) {
		op := p.next()
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
	}
	return left, nil
}

func (p *parser) not() (ast.Expr, error) {
	if p.at(symbols.KindNot) {
		op := p.next()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op.Kind, X: x, Offset: op.Offset}, nil
	}
	return p.relation()
}

// relation reads a chain a op b op c as (a op b) ∧ (b op c).
func (p *parser) relation() (ast.Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	var chain ast.Expr
	for relationOps[p.peek().Kind] {
		op := p.next()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		link := &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
		if chain == nil {
			chain = link
		} else {
			chain = &ast.Binary{Op: symbols.KindAnd, Left: chain, Right: link, Offset: chain.Pos()}
		}
		left = right
	}
	if chain == nil {
		return left, nil
	}
	return chain, nil
}

func (p *parser) additive() (ast.Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for additiveOps[p.peek().Kind] {
		op := p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
	}
	return left, nil
}

func (p *parser) multiplicative() (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for multiplicativeOps[p.peek().Kind] {
		op := p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		b := &ast.Binary{Op: op.Kind, Left: left, Right: right, Offset: left.Pos()}
		if op.Kind == symbols.KindOperator {
			b.Sym = op.Text
		}
		left = b
	}
	return left, nil
}

func (p *parser) unary() (ast.Expr, error) {
	if p.at(symbols.KindMinus) {
		op := p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if n, ok := x.(*ast.Number); ok {
			return &ast.Number{Text: "-" + n.Text, Value: -n.Value, Offset: op.Offset}, nil
		}
		return &ast.Unary{Op: symbols.KindMinus, X: x, Offset: op.Offset}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (ast.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.Kind == symbols.KindLParen && !t.Newline:
			p.next()
			args, err := p.list(t, symbols.KindRParen)
			if err != nil {
				return nil, err
			}
			x = &ast.Call{Fn: x, Args: args, Offset: x.Pos()}
		case t.Kind == symbols.KindSuperscript:
			p.next()
			n, _ := strconv.Atoi(superscriptDigits.Replace(t.Text))
			if d, ok := x.(*ast.DomainRef); ok && d.Dim == 0 {
				d.Dim = n
				continue
			}
			x = &ast.Binary{Op: symbols.KindCaret, Left: x, Right: &ast.Number{Text: strconv.Itoa(n), Value: float64(n), Offset: t.Offset}, Offset: x.Pos()}
		case t.Kind == symbols.KindCaret:
			p.next()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			x = &ast.Binary{Op: symbols.KindCaret, Left: x, Right: right, Offset: x.Pos()}
		default:
			return x, nil
		}
	}
}

// #endregion precedence-climb

// #region primary
func (p *parser) primary() (ast.Expr, error) {
	t := p.peek()
	switch t.Kind {
	case symbols.KindIdent:
		p.next()
		return &ast.Ident{Name: t.Text, Offset: t.Offset}, nil
	case symbols.KindNumber:
		p.next()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, &Error{Kind: KindUnexpectedToken, Offset: t.Offset, Block: p.block, Msg: "malformed number " + t.Text}
		}
		return &ast.Number{Text: t.Text, Value: v, Offset: t.Offset}, nil
	case symbols.KindString:
		p.next()
		s, err := strconv.Unquote(t.Text)
		if err != nil {
			s = strings.Trim(t.Text, `"`)
		}
		return &ast.String{Value: s, Offset: t.Offset}, nil
	case symbols.KindDomain:
		p.next()
		return &ast.DomainRef{Glyph: t.Text, Sort: symbols.DomainSort[t.Text], Offset: t.Offset}, nil
	case symbols.KindTop, symbols.KindBottom, symbols.KindEmpty, symbols.KindInfinity:
		p.next()
		return &ast.Const{Kind: t.Kind, Offset: t.Offset}, nil
	case symbols.KindDiamond, symbols.KindNull:
		return p.tier(), nil
	case symbols.KindLParen:
		p.next()
		elems, err := p.list(t, symbols.KindRParen)
		if err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			return elems[0], nil
		}
		return &ast.Tuple{Elems: elems, Offset: t.Offset}, nil
	case symbols.KindAngleOpen:
		p.next()
		elems, err := p.list(t, symbols.KindAngleClose)
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Elems: elems, Offset: t.Offset}, nil
	case symbols.KindLBracket:
		p.next()
		elems, err := p.list(t, symbols.KindRBracket)
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Elems: elems, Offset: t.Offset}, nil
	case symbols.KindLBrace:
		p.next()
		return p.enumeration(t)
	case symbols.KindForall, symbols.KindExists, symbols.KindNotExists:
		return p.quantifier()
	case symbols.KindLambda:
		return p.lambda()
	}
	return nil, p.unexpected(t, "expression")
}

func (p *parser) tier() ast.Expr {
	t := p.next()
	if t.Kind == symbols.KindNull {
		return &ast.Tier{Glyph: t.Text, Level: 0, Offset: t.Offset}
	}
	glyph := t.Text
	level := 2
	switch {
	case p.at(symbols.KindSupMinus):
		glyph += p.next().Text
		level = 1
	case p.at(symbols.KindSupPlus):
		glyph += p.next().Text
		level = 3
		if p.at(symbols.KindSupPlus) {
			glyph += p.next().Text
			level = 4
		}
	}
	return &ast.Tier{Glyph: glyph, Level: level, Offset: t.Offset}
}

// list parses comma or semicolon separated elements up to closer. An
// element of the form name≜value is kept as a definition pair.
func (p *parser) list(open lexer.Token, closer symbols.Kind) ([]ast.Expr, error) {
	var out []ast.Expr
	for {
		t := p.peek()
		switch {
		case t.Kind == closer:
			p.next()
			return out, nil
		case t.Kind == symbols.KindComma || t.Kind == symbols.KindSemicolon:
			p.next()
		case t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen:
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Block: p.block, Msg: "unclosed " + open.Text}
		case isCloser(t.Kind):
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: t.Offset, Block: p.block,
				Msg: t.Text + " does not match " + open.Text}
		default:
			e, err := p.element()
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
}

func (p *parser) element() (ast.Expr, error) {
	t := p.peek()
	if t.Kind == symbols.KindIdent && isBinder(p.peekAt(1).Kind) {
		p.next()
		op := p.next()
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: op.Kind, Left: &ast.Ident{Name: t.Text, Offset: t.Offset}, Right: v, Offset: t.Offset}, nil
	}
	return p.expr()
}

// enumeration accepts comma separated and whitespace separated variants.
func (p *parser) enumeration(open lexer.Token) (ast.Expr, error) {
	set := &ast.SetLit{Offset: open.Offset}
	for {
		t := p.peek()
		switch {
		case t.Kind == symbols.KindRBrace:
			p.next()
			return set, nil
		case t.Kind == symbols.KindComma:
			p.next()
		case t.Kind == symbols.KindEOF || t.Kind == symbols.KindBlockOpen:
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: open.Offset, Block: p.block, Msg: "unclosed {"}
		case isCloser(t.Kind):
			return nil, &Error{Kind: KindUnbalancedDelimiter, Offset: t.Offset, Block: p.block, Msg: t.Text + " does not match {"}
		default:
			e, err := p.element()
			if err != nil {
				return nil, err
			}
			set.Elems = append(set.Elems, e)
		}
	}
}

// #endregion primary

// #region binders
// quantifier parses ∀x:T:P, ∀x:T→P, ∀x:T.P, ∀x∈S:P, ∀x.P and ∀x:P.
func (p *parser) quantifier() (ast.Expr, error) {
	q := p.next()
	p.accept(symbols.KindBang)
	var vars []lexer.Token
	for {
		v, err := p.expect(symbols.KindIdent, "bound variable")
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
		if !p.accept(symbols.KindComma) {
			break
		}
	}

	var domain ast.Expr
	switch {
	case p.accept(symbols.KindIn):
		d, err := p.additive()
		if err != nil {
			return nil, err
		}
		domain = d
		if !p.acceptBodySeparator() {
			return nil, p.unexpected(p.peek(), ": → or . before quantifier body")
		}
	case p.accept(symbols.KindColon):
		mark := p.pos
		d, err := p.additive()
		if err == nil && p.acceptBodySeparator() {
			domain = d
		} else {
			p.pos = mark
		}
	case p.accept(symbols.KindPeriod):
	default:
		return nil, p.unexpected(p.peek(), ": ∈ or . after bound variable")
	}

	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	for i := len(vars) - 1; i >= 0; i-- {
		body = &ast.Quant{Kind: q.Kind, Var: vars[i].Text, Domain: domain, Body: body, Offset: q.Offset}
	}
	return body, nil
}

func (p *parser) acceptBodySeparator() bool {
	return p.accept(symbols.KindColon) || p.accept(symbols.KindArrow) || p.accept(symbols.KindPeriod)
}

func (p *parser) lambda() (ast.Expr, error) {
	l := p.next()
	var params []string
	paren := p.accept(symbols.KindLParen)
	for {
		v, err := p.expect(symbols.KindIdent, "lambda parameter")
		if err != nil {
			return nil, err
		}
		params = append(params, v.Text)
		if !p.accept(symbols.KindComma) {
			break
		}
	}
	if paren {
		if _, err := p.expect(symbols.KindRParen, ") after lambda parameters"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(symbols.KindPeriod, ". after lambda parameters"); err != nil {
		return nil, err
	}
	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Params: params, Body: body, Offset: l.Offset}, nil
}

// #endregion binders
