package translate

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/aisp-verify/internal/logic"
)

// #region errors
var (
	ErrUnsupported     = errors.New("unsupported construct")
	ErrSortMismatch    = errors.New("sort mismatch")
	ErrSelfReferential = errors.New("self-referential claim")
)

// Error locates a translation failure. Unwrap yields one of the sentinels
// above.
type Error struct {
	Kind   error
	Offset int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("translate at byte %d: %v: %s", e.Offset, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func unsupported(off int, format string, args ...any) *Error {
	return &Error{Kind: ErrUnsupported, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func mismatch(off int, format string, args ...any) *Error {
	return &Error{Kind: ErrSortMismatch, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

// #endregion errors

// #region rule
// Rule is one translated statement with its assertion label.
type Rule struct {
	Name    string
	Index   int
	Offset  int
	Source  string
	Formula logic.Formula
}

// Named returns the rule as a labelled assertion.
func (r Rule) Named() logic.Named { return logic.Named{Name: r.Name, F: r.Formula} }

// Gap is a statement that could not be translated.
type Gap struct {
	Name   string
	Index  int
	Offset int
	Source string
	Err    error
}

// #endregion rule

// #region type-table
type typeKind int

const (
	typeNumeric typeKind = iota // alias of a builtin numeric sort
	typeEnum
	typeUnion
	typeAlias
	typeOpaque
)

// typeInfo describes one name declared in the Types block.
type typeInfo struct {
	Name    string
	Kind    typeKind
	Sort    logic.Sort
	Guard   string // unary predicate constraining members; empty for none
	Members []string
	Parts   []string
}

// #endregion type-table
