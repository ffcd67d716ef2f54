package symbols

// #region category
// Category groups registry symbols by their semantic family.
type Category uint8

const (
	Prose Category = iota
	Space
	Identifier
	Digit
	Quantifier
	Binder
	Delimiter
	Relation
	Logic
	SetOp
	Operator
	Tier
	Domain
	Greek
	Punctuation
	Superscript
	Header
)

var categoryNames = [...]string{
	Prose:       "prose",
	Space:       "space",
	Identifier:  "identifier",
	Digit:       "digit",
	Quantifier:  "quantifier",
	Binder:      "binder",
	Delimiter:   "delimiter",
	Relation:    "relation",
	Logic:       "logic",
	SetOp:       "set",
	Operator:    "operator",
	Tier:        "tier",
	Domain:      "domain",
	Greek:       "greek",
	Punctuation: "punctuation",
	Superscript: "superscript",
	Header:      "header",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "invalid"
}

// IsRegistry reports whether the category belongs to the AISP symbol registry
// (as opposed to prose, whitespace, or ASCII identifier runes).
func (c Category) IsRegistry() bool {
	switch c {
	case Prose, Space, Identifier, Digit:
		return false
	}
	return true
}

// #endregion category

// #region kind
// Kind is the token kind a symbol lexes to. Every registered symbol has
// exactly one Kind.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIdent
	KindNumber
	KindString
	KindEOF

	KindForall
	KindExists
	KindNotExists

	KindDefine
	KindAssign
	KindLambda
	KindMapsTo

	KindImplies
	KindIff
	KindArrow
	KindBiArrow
	KindLeftArrow
	KindAnd
	KindOr
	KindNot
	KindTop
	KindBottom
	KindTurnstile
	KindModels

	KindEq
	KindNeq
	KindLt
	KindGt
	KindLe
	KindGe
	KindEquiv
	KindApprox
	KindCong

	KindIn
	KindNotIn
	KindSubset
	KindSuperset
	KindProperSubset
	KindProperSuperset
	KindIntersect
	KindUnion
	KindEmpty
	KindSetMinus

	KindPlus
	KindMinus
	KindStar
	KindSlash
	KindTimes
	KindOplus
	KindOtimes
	KindCompose
	KindDot
	KindCaret
	KindInfinity
	KindOperator

	KindBlockOpen
	KindBlockClose
	KindAngleOpen
	KindAngleClose
	KindLBrace
	KindRBrace
	KindLParen
	KindRParen
	KindLBracket
	KindRBracket

	KindColon
	KindSemicolon
	KindComma
	KindPeriod
	KindAt
	KindPipe
	KindBang
	KindEllipsis

	KindDiamond
	KindSupPlus
	KindSupMinus
	KindNull

	KindSuperscript
	KindDomain
	KindHeader

	kindCount
)

var kindNames = [...]string{
	KindInvalid: "invalid", KindIdent: "ident", KindNumber: "number", KindString: "string", KindEOF: "eof",
	KindForall: "∀", KindExists: "∃", KindNotExists: "∄",
	KindDefine: "≜", KindAssign: "≔", KindLambda: "λ", KindMapsTo: "↦",
	KindImplies: "⇒", KindIff: "⇔", KindArrow: "→", KindBiArrow: "↔", KindLeftArrow: "←",
	KindAnd: "∧", KindOr: "∨", KindNot: "¬", KindTop: "⊤", KindBottom: "⊥", KindTurnstile: "⊢", KindModels: "⊨",
	KindEq: "=", KindNeq: "≠", KindLt: "<", KindGt: ">", KindLe: "≤", KindGe: "≥", KindEquiv: "≡", KindApprox: "≈", KindCong: "≅",
	KindIn: "∈", KindNotIn: "∉", KindSubset: "⊆", KindSuperset: "⊇", KindProperSubset: "⊂", KindProperSuperset: "⊃",
	KindIntersect: "∩", KindUnion: "∪", KindEmpty: "∅", KindSetMinus: "∖",
	KindPlus: "+", KindMinus: "−", KindStar: "*", KindSlash: "/", KindTimes: "×", KindOplus: "⊕", KindOtimes: "⊗",
	KindCompose: "∘", KindDot: "·", KindCaret: "^", KindInfinity: "∞", KindOperator: "operator",
	KindBlockOpen: "⟦", KindBlockClose: "⟧", KindAngleOpen: "⟨", KindAngleClose: "⟩",
	KindLBrace: "{", KindRBrace: "}", KindLParen: "(", KindRParen: ")", KindLBracket: "[", KindRBracket: "]",
	KindColon: ":", KindSemicolon: ";", KindComma: ",", KindPeriod: ".", KindAt: "@", KindPipe: "|", KindBang: "!", KindEllipsis: "…",
	KindDiamond: "◊", KindSupPlus: "⁺", KindSupMinus: "⁻", KindNull: "⊘",
	KindSuperscript: "superscript", KindDomain: "domain", KindHeader: "𝔸",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "invalid"
}

// IsBinding reports whether the kind counts as a binding operator for
// density scoring.
func (k Kind) IsBinding() bool {
	switch k {
	case KindDefine, KindAssign, KindForall, KindExists, KindNotExists, KindLambda,
		KindImplies, KindIff, KindArrow, KindBiArrow,
		KindIn, KindNotIn, KindSubset, KindSuperset, KindProperSubset, KindProperSuperset,
		KindIntersect, KindUnion, KindEmpty:
		return true
	}
	return false
}

// #endregion kind

// #region info
// Info is the registry entry for one Unicode scalar value.
type Info struct {
	Category Category
	Kind     Kind
	Name     string
}

// Registered reports whether the rune was found in the AISP registry.
func (i Info) Registered() bool {
	return i.Category.IsRegistry()
}

// #endregion info
