package lexer

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region token
// Token is one lexical unit. Offset is the byte offset of the first rune.
type Token struct {
	Kind     symbols.Kind
	Text     string
	Offset   int
	Category symbols.Category
	Newline  bool // a line break precedes the token
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d", t.Kind, t.Text, t.Offset)
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// #endregion token

// #region errors
// ErrorKind classifies lexer failures.
type ErrorKind string

const (
	KindInvalidUTF8        ErrorKind = "invalid_utf8"
	KindAdversarialInput   ErrorKind = "adversarial_input"
	KindProseInBlock       ErrorKind = "prose_in_block"
	KindUnterminatedString ErrorKind = "unterminated_string"
)

var (
	ErrInvalidUTF8        = errors.New("invalid utf-8")
	ErrAdversarialInput   = errors.New("adversarial input")
	ErrProseInBlock       = errors.New("prose inside block body")
	ErrUnterminatedString = errors.New("unterminated string literal")
)

// Error is a lexer failure with its byte offset.
type Error struct {
	Kind   ErrorKind
	Offset int
	Rune   rune
	Msg    string
}

func (e *Error) Error() string {
	if e.Rune != 0 {
		return fmt.Sprintf("lex error at byte %d (%U): %s", e.Offset, e.Rune, e.Msg)
	}
	return fmt.Sprintf("lex error at byte %d: %s", e.Offset, e.Msg)
}

// Unwrap maps the error onto its sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindInvalidUTF8:
		return ErrInvalidUTF8
	case KindAdversarialInput:
		return ErrAdversarialInput
	case KindProseInBlock:
		return ErrProseInBlock
	case KindUnterminatedString:
		return ErrUnterminatedString
	}
	return nil
}

// #endregion errors
