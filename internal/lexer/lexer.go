package lexer

import (
	"unicode/utf8"

	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region state
type blockState uint8

const (
	outside blockState = iota
	inTag
	expectBody
	inBody
)

type lexer struct {
	src    []byte
	runes  []rune
	offs   []int
	toks   []Token
	state  blockState
	opener symbols.Kind
	depth  int
	nl     bool
}

// #endregion state

// #region tokenize
// Tokenize converts document bytes into tokens. Prose outside blocks is
// skipped; prose inside a block body is an error. Adversarial Unicode is
// rejected wherever it appears.
func Tokenize(src []byte) ([]Token, error) {
	if !utf8.Valid(src) {
		return nil, &Error{Kind: KindInvalidUTF8, Offset: firstInvalid(src), Msg: "input is not valid UTF-8"}
	}
	l := &lexer{src: src}
	for off := 0; off < len(src); {
		r, size := utf8.DecodeRune(src[off:])
		l.runes = append(l.runes, r)
		l.offs = append(l.offs, off)
		off += size
	}
	if err := l.run(); err != nil {
		return nil, err
	}
	l.toks = append(l.toks, Token{Kind: symbols.KindEOF, Offset: len(src)})
	return l.toks, nil
}

func (l *lexer) run() error {
	n := len(l.runes)
	for i := 0; i < n; {
		r := l.runes[i]
		off := l.offs[i]
		inBlock := l.state == inTag || l.state == inBody
		afterOpen := i > 0 && l.runes[i-1] == '⟦'
		if err := screen(r, l.at(i-1), l.at(i+1), off, inBlock, afterOpen); err != nil {
			return err
		}

		if r == 0xFEFF && off == 0 {
			i++
			continue
		}

		info := symbols.Lookup(r)
		switch {
		case info.Category == symbols.Space:
			if r == '\n' {
				l.nl = true
			}
			i++
		case (r == '/' && l.at(i+1) == '/') || (r == ';' && l.at(i+1) == ';'):
			i = l.skipLine(i)
		case r == '"':
			if !inBlock {
				i++
				continue
			}
			next, err := l.lexString(i)
			if err != nil {
				return err
			}
			i = next
		case info.Kind == symbols.KindIdent:
			i = l.lexRun(i, symbols.KindIdent, info.Category, func(r rune) bool {
				k := symbols.Lookup(r).Kind
				return k == symbols.KindIdent || k == symbols.KindNumber
			})
		case info.Kind == symbols.KindNumber:
			i = l.lexNumber(i)
		case info.Kind == symbols.KindSuperscript:
			i = l.lexRun(i, symbols.KindSuperscript, info.Category, func(r rune) bool {
				return symbols.Lookup(r).Kind == symbols.KindSuperscript
			})
		case info.Category == symbols.Prose:
			if inBlock {
				return &Error{Kind: KindProseInBlock, Offset: off, Rune: r, Msg: "free text is only allowed outside block bodies"}
			}
			i++
		default:
			l.emit(info.Kind, info.Category, i, i+1)
			i++
		}
	}
	return nil
}

// #endregion tokenize

// #region scanners
func (l *lexer) at(i int) rune {
	if i < 0 || i >= len(l.runes) {
		return 0
	}
	return l.runes[i]
}

func (l *lexer) byteEnd(i int) int {
	if i >= len(l.runes) {
		return len(l.src)
	}
	return l.offs[i]
}

func (l *lexer) skipLine(i int) int {
	for i < len(l.runes) && l.runes[i] != '\n' {
		i++
	}
	return i
}

func (l *lexer) lexRun(i int, kind symbols.Kind, cat symbols.Category, more func(rune) bool) int {
	start := i
	i++
	for i < len(l.runes) && more(l.runes[i]) {
		i++
	}
	l.emit(kind, cat, start, i)
	return i
}

func (l *lexer) lexNumber(i int) int {
	start := i
	for i < len(l.runes) && isDigit(l.runes[i]) {
		i++
	}
	if l.at(i) == '.' && isDigit(l.at(i+1)) {
		i++
		for i < len(l.runes) && isDigit(l.runes[i]) {
			i++
		}
	}
	l.emit(symbols.KindNumber, symbols.Digit, start, i)
	return i
}

func (l *lexer) lexString(i int) (int, error) {
	start := i
	i++
	for i < len(l.runes) {
		switch l.runes[i] {
		case '\\':
			i += 2
			continue
		case '"':
			l.emit(symbols.KindString, symbols.Prose, start, i+1)
			return i + 1, nil
		case '\n':
			return 0, &Error{Kind: KindUnterminatedString, Offset: l.offs[start], Msg: "string literal runs past end of line"}
		}
		i++
	}
	return 0, &Error{Kind: KindUnterminatedString, Offset: l.offs[start], Msg: "string literal runs past end of input"}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// #endregion scanners

// #region emit
func (l *lexer) emit(kind symbols.Kind, cat symbols.Category, from, to int) {
	start := l.offs[from]
	end := l.byteEnd(to)
	l.toks = append(l.toks, Token{Kind: kind, Text: string(l.src[start:end]), Offset: start, Category: cat, Newline: l.nl})
	l.nl = false
	l.track(kind)
}

// track follows block tag and body nesting so the screen knows whether a
// rune sits inside a block.
func (l *lexer) track(kind symbols.Kind) {
	switch l.state {
	case outside:
		if kind == symbols.KindBlockOpen {
			l.state = inTag
		}
	case inTag:
		if kind == symbols.KindBlockClose {
			l.state = expectBody
		}
	case expectBody:
		if kind == symbols.KindLBrace || kind == symbols.KindAngleOpen {
			l.state = inBody
			l.opener = kind
			l.depth = 1
			return
		}
		l.state = outside
		if kind == symbols.KindBlockOpen {
			l.state = inTag
		}
	case inBody:
		switch kind {
		case l.opener:
			l.depth++
		case closerOf(l.opener):
			l.depth--
			if l.depth == 0 {
				l.state = outside
			}
		}
	}
}

func closerOf(k symbols.Kind) symbols.Kind {
	if k == symbols.KindAngleOpen {
		return symbols.KindAngleClose
	}
	return symbols.KindRBrace
}

// #endregion emit

// #region position
func firstInvalid(src []byte) int {
	for off := 0; off < len(src); {
		r, size := utf8.DecodeRune(src[off:])
		if r == utf8.RuneError && size <= 1 {
			return off
		}
		off += size
	}
	return len(src)
}

// Position converts a byte offset into a 1-based line and column.
func Position(src []byte, offset int) (line, col int) {
	line, col = 1, 1
	if offset > len(src) {
		offset = len(src)
	}
	for _, r := range string(src[:offset]) {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// #endregion position
