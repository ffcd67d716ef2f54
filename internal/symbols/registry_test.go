package symbols

import (
	"testing"
	"unicode/utf8"
)

func TestRegistrySortedAndUnique(t *testing.T) {
	for i := 1; i < len(registry); i++ {
		if registry[i-1].r >= registry[i].r {
			t.Fatalf("registry not strictly sorted at %d: %U >= %U", i, registry[i-1].r, registry[i].r)
		}
	}
}

func TestEveryRegisteredSymbolHasOneKind(t *testing.T) {
	for _, e := range registry {
		if e.info.Kind == KindInvalid {
			t.Errorf("%U (%s) has no token kind", e.r, e.info.Name)
		}
		if e.info.Kind >= kindCount {
			t.Errorf("%U (%s) has out-of-range kind %d", e.r, e.info.Name, e.info.Kind)
		}
	}
	for _, s := range ranges {
		if s.info.Kind == KindInvalid {
			t.Errorf("range %U-%U has no token kind", s.lo, s.hi)
		}
	}
}

func TestLookupIsDeterministic(t *testing.T) {
	for r := rune(0); r < 0x2400; r++ {
		if !utf8.ValidRune(r) {
			continue
		}
		if Lookup(r) != Lookup(r) {
			t.Fatalf("lookup of %U not stable", r)
		}
	}
}

func TestSizeNearFiveHundred(t *testing.T) {
	n := Size()
	if n < 400 || n > 600 {
		t.Fatalf("registry size %d outside expected band", n)
	}
}

func TestLookupKnownSymbols(t *testing.T) {
	cases := []struct {
		r    rune
		kind Kind
		cat  Category
	}{
		{'∀', KindForall, Quantifier},
		{'∃', KindExists, Quantifier},
		{'≜', KindDefine, Binder},
		{'≔', KindAssign, Binder},
		{'λ', KindLambda, Binder},
		{'⇒', KindImplies, Logic},
		{'∈', KindIn, Relation},
		{'∩', KindIntersect, SetOp},
		{'⟦', KindBlockOpen, Delimiter},
		{'◊', KindDiamond, Tier},
		{'⁺', KindSupPlus, Tier},
		{'ℕ', KindDomain, Domain},
		{'𝔸', KindHeader, Header},
		{'δ', KindIdent, Greek},
		{'x', KindIdent, Identifier},
		{'7', KindNumber, Digit},
		{'⨀', KindInvalid, Prose},
		{'é', KindInvalid, Prose},
	}
	for _, tc := range cases {
		got := Lookup(tc.r)
		if got.Kind != tc.kind || got.Category != tc.cat {
			t.Errorf("Lookup(%q) = %s/%s, want %s/%s", tc.r, got.Kind, got.Category, tc.kind, tc.cat)
		}
	}
}

func TestIsAISPExcludesASCII(t *testing.T) {
	if IsAISP('=') {
		t.Fatal("ASCII '=' must not count as an AISP symbol")
	}
	if !IsAISP('≜') {
		t.Fatal("≜ must count as an AISP symbol")
	}
}

func TestBindingKinds(t *testing.T) {
	for _, k := range []Kind{KindDefine, KindForall, KindLambda, KindImplies, KindIn, KindUnion} {
		if !k.IsBinding() {
			t.Errorf("%s should be binding", k)
		}
	}
	for _, k := range []Kind{KindAnd, KindEq, KindComma, KindIdent} {
		if k.IsBinding() {
			t.Errorf("%s should not be binding", k)
		}
	}
}
