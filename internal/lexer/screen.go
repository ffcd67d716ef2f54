package lexer

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/danielpatrickdp/aisp-verify/internal/symbols"
)

// #region tables
func isBidiControl(r rune) bool {
	switch {
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2066 && r <= 0x2069:
		return true
	case r == 0x200E || r == 0x200F || r == 0x061C:
		return true
	}
	return false
}

func isZeroWidth(r rune) bool {
	switch r {
	case 0x200B, 0x200C, 0x200D, 0x2060, 0xFEFF:
		return true
	}
	return false
}

// symbolConfusables are look-alikes of registry glyphs. Flagged anywhere.
var symbolConfusables = map[rune]string{
	0x2206: "Δ", // increment
	0x2126: "Ω", // ohm sign
	0x2329: "⟨",
	0x232A: "⟩",
	0x3008: "⟨",
	0x3009: "⟩",
	0x301A: "⟦",
	0x301B: "⟧",
	0x2236: ":", // ratio
	0x2215: "/", // division slash
	0x225D: "≜", // equal by definition
	0x2A74: "≔",
}

// letterConfusables are Cyrillic letters that render like Latin ones.
// Flagged inside blocks or when mixed into a Latin identifier.
var letterConfusables = map[rune]string{
	0x0410: "A", 0x0412: "B", 0x0415: "E", 0x041A: "K", 0x041C: "M", 0x041D: "H",
	0x041E: "O", 0x0420: "P", 0x0421: "C", 0x0422: "T", 0x0425: "X",
	0x0430: "a", 0x0435: "e", 0x043E: "o", 0x0440: "p", 0x0441: "c", 0x0443: "y",
	0x0445: "x", 0x0456: "i", 0x0458: "j", 0x04BB: "h",
}

// greekConfusables are Greek letters that render like Latin ones. Greek is
// part of the notation, so they are flagged only when mixed into a Latin
// identifier.
var greekConfusables = map[rune]string{
	0x0391: "A", 0x0392: "B", 0x0395: "E", 0x0396: "Z", 0x0397: "H", 0x0399: "I",
	0x039A: "K", 0x039C: "M", 0x039D: "N", 0x039F: "O", 0x03A1: "P", 0x03A4: "T",
	0x03A5: "Y", 0x03A7: "X",
	0x03B9: "i", 0x03BA: "k", 0x03BD: "v", 0x03BF: "o", 0x03C1: "p", 0x03C5: "u",
}

// tagConfusables are runes that imitate a Greek block glyph right after ⟦.
var tagConfusables = map[rune]string{
	'E':    "Ε",
	'X':    "Χ",
	0x2211: "Σ",
	0x220F: "Π",
}

// #endregion tables

// #region screen
// screen checks one rune against the adversarial tables. prev and next are
// the neighbouring runes (0 at the edges); inBlock is true inside a block
// tag or body; afterOpen is true when r directly follows ⟦.
func screen(r, prev, next rune, off int, inBlock, afterOpen bool) *Error {
	if isBidiControl(r) {
		return adversarial(off, r, "bidirectional control character")
	}
	if isZeroWidth(r) {
		if r == 0xFEFF && off == 0 {
			return nil
		}
		if inBlock || isIdentRune(prev) || isIdentRune(next) {
			return adversarial(off, r, "zero-width character inside identifier")
		}
		return nil
	}
	if want, ok := symbolConfusables[r]; ok {
		return adversarial(off, r, fmt.Sprintf("confusable glyph, expected %s", want))
	}
	if afterOpen {
		if want, ok := tagConfusables[r]; ok {
			return adversarial(off, r, fmt.Sprintf("confusable block glyph, expected %s", want))
		}
	}
	if want, ok := letterConfusables[r]; ok {
		if inBlock || isASCIILetter(prev) || isASCIILetter(next) {
			return adversarial(off, r, fmt.Sprintf("confusable letter, expected %s", want))
		}
		return nil
	}
	if want, ok := greekConfusables[r]; ok {
		if isASCIILetter(prev) || isASCIILetter(next) {
			return adversarial(off, r, fmt.Sprintf("confusable Greek letter, expected %s", want))
		}
		return nil
	}
	if inBlock && r > 0x7F && symbols.Lookup(r).Category == symbols.Prose {
		if want, ok := compatTwin(r); ok {
			return adversarial(off, r, fmt.Sprintf("compatibility form of %s", want))
		}
	}
	return nil
}

// compatTwin reports whether r NFKC-normalizes to a single rune that the
// registry or the identifier alphabet already knows.
func compatTwin(r rune) (string, bool) {
	s := string(r)
	n := norm.NFKC.String(s)
	if n == s {
		return "", false
	}
	rs := []rune(n)
	if len(rs) != 1 {
		return "", false
	}
	info := symbols.Lookup(rs[0])
	if info.Category == symbols.Prose || info.Category == symbols.Space {
		return "", false
	}
	return n, true
}

func adversarial(off int, r rune, msg string) *Error {
	return &Error{Kind: KindAdversarialInput, Offset: off, Rune: r, Msg: msg}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	if r == 0 {
		return false
	}
	return symbols.Lookup(r).Kind == symbols.KindIdent
}

// #endregion screen
