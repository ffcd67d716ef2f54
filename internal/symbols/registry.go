package symbols

import "sort"

// #region table
type entry struct {
	r    rune
	info Info
}

// registry is sorted by rune. Entries shadow the bulk ranges below.
var registry = [...]entry{
	{'!', Info{Punctuation, KindBang, "bang"}},
	{'(', Info{Delimiter, KindLParen, "lparen"}},
	{')', Info{Delimiter, KindRParen, "rparen"}},
	{'*', Info{Operator, KindStar, "star"}},
	{'+', Info{Operator, KindPlus, "plus"}},
	{',', Info{Punctuation, KindComma, "comma"}},
	{'-', Info{Operator, KindMinus, "hyphen-minus"}},
	{'.', Info{Punctuation, KindPeriod, "period"}},
	{'/', Info{Operator, KindSlash, "slash"}},
	{':', Info{Punctuation, KindColon, "colon"}},
	{';', Info{Punctuation, KindSemicolon, "semicolon"}},
	{'<', Info{Relation, KindLt, "less"}},
	{'=', Info{Relation, KindEq, "equals"}},
	{'>', Info{Relation, KindGt, "greater"}},
	{'@', Info{Punctuation, KindAt, "at"}},
	{'[', Info{Delimiter, KindLBracket, "lbracket"}},
	{']', Info{Delimiter, KindRBracket, "rbracket"}},
	{'^', Info{Operator, KindCaret, "caret"}},
	{'{', Info{Delimiter, KindLBrace, "lbrace"}},
	{'|', Info{Punctuation, KindPipe, "pipe"}},
	{'}', Info{Delimiter, KindRBrace, "rbrace"}},
	{0x00AC, Info{Logic, KindNot, "not"}},
	{0x00B2, Info{Superscript, KindSuperscript, "sup2"}},
	{0x00B3, Info{Superscript, KindSuperscript, "sup3"}},
	{0x00B7, Info{Operator, KindDot, "middle-dot"}},
	{0x00B9, Info{Superscript, KindSuperscript, "sup1"}},
	{0x00D7, Info{Operator, KindTimes, "times"}},
	{0x03BB, Info{Binder, KindLambda, "lambda"}},
	{0x2026, Info{Punctuation, KindEllipsis, "ellipsis"}},
	{0x207A, Info{Tier, KindSupPlus, "tier-plus"}},
	{0x207B, Info{Tier, KindSupMinus, "tier-minus"}},
	{0x2102, Info{Domain, KindDomain, "complex"}},
	{0x2115, Info{Domain, KindDomain, "naturals"}},
	{0x2118, Info{SetOp, KindOperator, "powerset"}},
	{0x211A, Info{Domain, KindDomain, "rationals"}},
	{0x211D, Info{Domain, KindDomain, "reals"}},
	{0x2124, Info{Domain, KindDomain, "integers"}},
	{0x212D, Info{Greek, KindIdent, "categories"}},
	{0x2135, Info{Domain, KindDomain, "aleph"}},
	{0x2190, Info{Logic, KindLeftArrow, "left-arrow"}},
	{0x2192, Info{Logic, KindArrow, "arrow"}},
	{0x2194, Info{Logic, KindBiArrow, "bi-arrow"}},
	{0x21A6, Info{Binder, KindMapsTo, "maps-to"}},
	{0x21D2, Info{Logic, KindImplies, "implies"}},
	{0x21D4, Info{Logic, KindIff, "iff"}},
	{0x2200, Info{Quantifier, KindForall, "forall"}},
	{0x2203, Info{Quantifier, KindExists, "exists"}},
	{0x2204, Info{Quantifier, KindNotExists, "not-exists"}},
	{0x2205, Info{SetOp, KindEmpty, "empty-set"}},
	{0x2208, Info{Relation, KindIn, "element-of"}},
	{0x2209, Info{Relation, KindNotIn, "not-element-of"}},
	{0x2212, Info{Operator, KindMinus, "minus"}},
	{0x2216, Info{SetOp, KindSetMinus, "set-minus"}},
	{0x2218, Info{Operator, KindCompose, "compose"}},
	{0x221E, Info{Operator, KindInfinity, "infinity"}},
	{0x2227, Info{Logic, KindAnd, "and"}},
	{0x2228, Info{Logic, KindOr, "or"}},
	{0x2229, Info{SetOp, KindIntersect, "intersection"}},
	{0x222A, Info{SetOp, KindUnion, "union"}},
	{0x2245, Info{Relation, KindCong, "congruent"}},
	{0x2248, Info{Relation, KindApprox, "approx"}},
	{0x2254, Info{Binder, KindAssign, "assign"}},
	{0x225C, Info{Binder, KindDefine, "define"}},
	{0x2260, Info{Relation, KindNeq, "not-equal"}},
	{0x2261, Info{Relation, KindEquiv, "equivalent"}},
	{0x2264, Info{Relation, KindLe, "less-equal"}},
	{0x2265, Info{Relation, KindGe, "greater-equal"}},
	{0x2282, Info{Relation, KindProperSubset, "proper-subset"}},
	{0x2283, Info{Relation, KindProperSuperset, "proper-superset"}},
	{0x2286, Info{Relation, KindSubset, "subset"}},
	{0x2287, Info{Relation, KindSuperset, "superset"}},
	{0x2295, Info{Operator, KindOplus, "direct-sum"}},
	{0x2297, Info{Operator, KindOtimes, "tensor"}},
	{0x2298, Info{Tier, KindNull, "tier-reject"}},
	{0x22A2, Info{Logic, KindTurnstile, "proves"}},
	{0x22A4, Info{Logic, KindTop, "top"}},
	{0x22A5, Info{Logic, KindBottom, "bottom"}},
	{0x22A8, Info{Logic, KindModels, "models"}},
	{0x25CA, Info{Tier, KindDiamond, "tier"}},
	{0x27E6, Info{Delimiter, KindBlockOpen, "block-open"}},
	{0x27E7, Info{Delimiter, KindBlockClose, "block-close"}},
	{0x27E8, Info{Delimiter, KindAngleOpen, "angle-open"}},
	{0x27E9, Info{Delimiter, KindAngleClose, "angle-close"}},
	{0x1D538, Info{Header, KindHeader, "aisp"}},
	{0x1D539, Info{Domain, KindDomain, "booleans"}},
	{0x1D53B, Info{Domain, KindDomain, "documents"}},
	{0x1D53C, Info{Domain, KindDomain, "expectation"}},
	{0x1D54A, Info{Domain, KindDomain, "strings"}},
	{0x1D54B, Info{Domain, KindDomain, "truth"}},
}

type span struct {
	lo, hi rune
	info   Info
}

var ranges = [...]span{
	{0x0391, 0x03A9, Info{Greek, KindIdent, "greek-capital"}},
	{0x03B1, 0x03C9, Info{Greek, KindIdent, "greek-small"}},
	{0x2070, 0x2079, Info{Superscript, KindSuperscript, "superscript-digit"}},
	{0x207C, 0x207F, Info{Superscript, KindSuperscript, "superscript"}},
	{0x2080, 0x2089, Info{Identifier, KindIdent, "subscript-digit"}},
	{0x2190, 0x21FF, Info{Operator, KindOperator, "arrow"}},
	{0x2200, 0x22FF, Info{Operator, KindOperator, "math-operator"}},
}

// #endregion table

// #region lookup
// Lookup classifies r. It is total: runes outside the registry are Prose.
func Lookup(r rune) Info {
	switch {
	case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		return Info{Space, KindInvalid, "space"}
	case r == '_' || r == '\'' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		return Info{Identifier, KindIdent, "letter"}
	case r >= '0' && r <= '9':
		return Info{Digit, KindNumber, "digit"}
	}
	i := sort.Search(len(registry), func(i int) bool { return registry[i].r >= r })
	if i < len(registry) && registry[i].r == r {
		return registry[i].info
	}
	for _, s := range ranges {
		if r >= s.lo && r <= s.hi {
			return s.info
		}
	}
	return Info{Prose, KindInvalid, "prose"}
}

// IsAISP reports whether r is a non-ASCII registry symbol. Pure density
// counts these.
func IsAISP(r rune) bool {
	return r > 0x7F && Lookup(r).Registered()
}

// Size returns the number of code points the registry classifies as
// AISP symbols.
func Size() int {
	seen := make(map[rune]struct{}, 512)
	for _, e := range registry {
		if e.r > 0x7F && e.info.Registered() {
			seen[e.r] = struct{}{}
		}
	}
	for _, s := range ranges {
		if !s.info.Registered() {
			continue
		}
		for r := s.lo; r <= s.hi; r++ {
			seen[r] = struct{}{}
		}
	}
	return len(seen)
}

// #endregion lookup

// #region block-glyphs
// BlockGlyph maps a block category glyph to the canonical block label.
var BlockGlyph = map[string]string{
	"Ω": "Meta",
	"Σ": "Types",
	"Γ": "Rules",
	"Λ": "Functions",
	"Χ": "Errors",
	"Ε": "Evidence",
	"Θ": "Proofs",
	"ℭ": "Categories",
}

// DomainSort names the built-in sort a domain glyph denotes.
var DomainSort = map[string]string{
	"ℕ": "Nat",
	"ℤ": "Int",
	"ℚ": "Real",
	"ℝ": "Real",
	"ℂ": "Complex",
	"𝔹": "Bool",
	"𝕊": "String",
	"𝔻": "Document",
	"𝕋": "Truth",
	"𝔼": "Expectation",
	"ℵ": "Cardinal",
}

// #endregion block-glyphs
