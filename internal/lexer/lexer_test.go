package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

const minimalDoc = `𝔸5.1.TestDoc@2026-01-25
⟦Ω:Meta⟧{ domain≜test }
⟦Σ:Types⟧{ Unit≜{unit} }
⟦Γ:Rules⟧{ ∀x:Unit→Valid(x) }
⟦Λ:Funcs⟧{ id≜λx.x }
⟦Ε⟧⟨δ≜0.7;τ≜◊⁺⟩
`

func kinds(toks []Token) []symbols.Kind {
	out := make([]symbols.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeHeader(t *testing.T) {
	toks, err := Tokenize([]byte("𝔸5.1.TestDoc@2026-01-25"))
	require.NoError(t, err)
	assert.Equal(t, []symbols.Kind{
		symbols.KindHeader, symbols.KindNumber, symbols.KindPeriod, symbols.KindIdent,
		symbols.KindAt, symbols.KindNumber, symbols.KindMinus, symbols.KindNumber,
		symbols.KindMinus, symbols.KindNumber, symbols.KindEOF,
	}, kinds(toks))
	assert.Equal(t, "5.1", toks[1].Text)
	assert.Equal(t, "TestDoc", toks[3].Text)
}

func TestTokenizeOffsetsAreBytes(t *testing.T) {
	src := []byte("⟦Ω:Meta⟧{ a≜1 }")
	toks, err := Tokenize(src)
	require.NoError(t, err)
	for _, tok := range toks[:len(toks)-1] {
		assert.Equal(t, tok.Text, string(src[tok.Offset:tok.End()]), "token %s", tok)
	}
}

func TestTokenizeMinimalDocument(t *testing.T) {
	toks, err := Tokenize([]byte(minimalDoc))
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, symbols.KindEOF, toks[len(toks)-1].Kind)

	var sawLambda, sawTierPlus bool
	for _, tok := range toks {
		if tok.Kind == symbols.KindLambda {
			sawLambda = true
		}
		if tok.Kind == symbols.KindSupPlus {
			sawTierPlus = true
		}
	}
	assert.True(t, sawLambda, "λ should lex as a lambda binder")
	assert.True(t, sawTierPlus, "⁺ should lex as a tier mark")
}

func TestTokenizeSkipsComments(t *testing.T) {
	toks, err := Tokenize([]byte("⟦Ω:Meta⟧{ a≜1 // trailing note\n ;; another\n b≜2 }"))
	require.NoError(t, err)
	var idents []string
	for _, tok := range toks {
		if tok.Kind == symbols.KindIdent {
			idents = append(idents, tok.Text)
		}
	}
	assert.Equal(t, []string{"Ω", "Meta", "a", "b"}, idents)
}

func TestTokenizeProse(t *testing.T) {
	_, err := Tokenize([]byte("# Título\n⟦Ω:Meta⟧{ a≜1 }"))
	require.NoError(t, err, "prose outside blocks is allowed")

	_, err = Tokenize([]byte("⟦Ω:Meta⟧{ a≜é }"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProseInBlock))
}

func TestTokenizeStrings(t *testing.T) {
	toks, err := Tokenize([]byte(`⟦Ω:Meta⟧{ name≜"hello world" }`))
	require.NoError(t, err)
	found := false
	for _, tok := range toks {
		if tok.Kind == symbols.KindString {
			found = true
			assert.Equal(t, `"hello world"`, tok.Text)
		}
	}
	assert.True(t, found)

	_, err = Tokenize([]byte("⟦Ω:Meta⟧{ name≜\"oops }"))
	assert.ErrorIs(t, err, ErrUnterminatedString)
}

func TestTokenizeAdversarial(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"bidi override", "⟦Ω:Meta⟧{ a≜\u202Eb }"},
		{"bidi isolate in prose", "note \u2066x\u2069\n⟦Ω:Meta⟧{ a≜1 }"},
		{"zero width joiner in identifier", "⟦Ω:Meta⟧{ va\u200Dlid≜1 }"},
		{"cyrillic a in identifier", "⟦Ω:Meta⟧{ vаlid≜1 }"},
		{"greek omicron in identifier", "⟦Γ:Rules⟧{ c\u03BFunt≜1 }"},
		{"greek capital alpha before latin", "⟦Ω:Meta⟧{ \u0391lpha≜1 }"},
		{"greek rho after latin", "⟦Ω:Meta⟧{ ste\u03C1≜1 }"},
		{"increment for delta", "⟦Ε⟧⟨∆≜0.7⟩"},
		{"ohm sign for omega", "⟦Ω:Meta⟧{ a≜1 }"},
		{"cjk bracket", "〚Ω:Meta⟧{ a≜1 }"},
		{"latin E block tag", "⟦E⟧⟨δ≜0.7⟩"},
		{"latin X block tag", "⟦X:Errors⟧{ e≜1 }"},
		{"n-ary summation block tag", "⟦∑:Types⟧{ T≜ℕ }"},
		{"fullwidth equals", "⟦Ω:Meta⟧{ a＝1 }"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize([]byte(tc.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAdversarialInput)
			var lexErr *Error
			require.True(t, errors.As(err, &lexErr))
			assert.GreaterOrEqual(t, lexErr.Offset, 0)
		})
	}
}

func TestTokenizeAllowsLeadingBOM(t *testing.T) {
	_, err := Tokenize([]byte("\uFEFF𝔸5.1.Doc@2026-01-01\n⟦Ω:Meta⟧{ a≜1 }"))
	require.NoError(t, err)
}

func TestTokenizeGreekNotationAccepted(t *testing.T) {
	_, err := Tokenize([]byte("𝔸5.1.Doc@2026-01-01\nρ≔⟨proof⟩\n⟦Λ:Funcs⟧{ f≜λx.x }"))
	require.NoError(t, err)
}

func TestTokenizeGreekEvidenceTagAccepted(t *testing.T) {
	_, err := Tokenize([]byte("⟦Ε⟧⟨δ≜0.7⟩"))
	require.NoError(t, err)
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	_, err := Tokenize([]byte{'a', 0xff, 'b'})
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 1, lexErr.Offset)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestPosition(t *testing.T) {
	src := []byte("ab\ncd")
	line, col := Position(src, 4)
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
}

func TestTokenizeMergesSuperscripts(t *testing.T) {
	toks, err := Tokenize([]byte("⟦Σ:Types⟧{ V_H≜ℝ⁷⁶⁸ }"))
	require.NoError(t, err)
	var sup []string
	for _, tok := range toks {
		if tok.Kind == symbols.KindSuperscript {
			sup = append(sup, tok.Text)
		}
	}
	assert.Equal(t, []string{"⁷⁶⁸"}, sup)
}
