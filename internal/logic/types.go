package logic

import "fmt"

// #region truth-value
// TruthValue is the three-valued outcome of every verification step.
type TruthValue int

const (
	Unknown TruthValue = iota
	True
	False
)

func (v TruthValue) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unknown"
}

func (v TruthValue) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *TruthValue) UnmarshalText(b []byte) error {
	switch string(b) {
	case "true":
		*v = True
	case "false":
		*v = False
	case "unknown", "":
		*v = Unknown
	default:
		return fmt.Errorf("invalid truth value %q", b)
	}
	return nil
}

// Definite reports whether v is True or False.
func (v TruthValue) Definite() bool { return v != Unknown }

// Not negates a definite value and leaves Unknown alone.
func (v TruthValue) Not() TruthValue {
	switch v {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// #endregion truth-value

// #region sort
// Sort is an SMT-LIB sort name.
type Sort string

const (
	SortBool Sort = "Bool"
	SortInt  Sort = "Int"
	SortReal Sort = "Real"
	// SortU holds every non-numeric object of a document.
	SortU Sort = "U"
	// SortSet holds sets of U.
	SortSet Sort = "Set"
)

// Numeric reports whether s is Int or Real.
func (s Sort) Numeric() bool { return s == SortInt || s == SortReal }

// Builtin reports whether the sort needs no declaration.
func (s Sort) Builtin() bool { return s == SortBool || s == SortInt || s == SortReal }

// #endregion sort

// #region named
// Named is a formula with an assertion label, so it can appear in an unsat
// core.
type Named struct {
	Name string
	F    Formula
}

// Signature declares an uninterpreted function, predicate or constant.
type Signature struct {
	Name   string
	Args   []Sort
	Result Sort
}

// #endregion named
