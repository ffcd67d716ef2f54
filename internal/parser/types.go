package parser

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// #region error-kind
// ErrorKind classifies structural parse failures.
type ErrorKind string

const (
	KindUnbalancedDelimiter  ErrorKind = "unbalanced_delimiter"
	KindMissingRequiredBlock ErrorKind = "missing_required_block"
	KindEmptyRequiredBlock   ErrorKind = "empty_required_block"
	KindDuplicateBlock       ErrorKind = "duplicate_block"
	KindUnexpectedToken      ErrorKind = "unexpected_token"
	KindMissingHeader        ErrorKind = "missing_header"
	KindCyclicDefinition     ErrorKind = "cyclic_definition"
	KindUnsupportedBlock     ErrorKind = "unsupported_block"
)

var (
	ErrUnbalancedDelimiter  = errors.New("unbalanced delimiter")
	ErrMissingRequiredBlock = errors.New("missing required block")
	ErrEmptyRequiredBlock   = errors.New("empty required block")
	ErrDuplicateBlock       = errors.New("duplicate block")
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrMissingHeader        = errors.New("missing header")
	ErrCyclicDefinition     = errors.New("cyclic definition")
	ErrUnsupportedBlock     = errors.New("unsupported block")
)

var sentinels = map[ErrorKind]error{
	KindUnbalancedDelimiter:  ErrUnbalancedDelimiter,
	KindMissingRequiredBlock: ErrMissingRequiredBlock,
	KindEmptyRequiredBlock:   ErrEmptyRequiredBlock,
	KindDuplicateBlock:       ErrDuplicateBlock,
	KindUnexpectedToken:      ErrUnexpectedToken,
	KindMissingHeader:        ErrMissingHeader,
	KindCyclicDefinition:     ErrCyclicDefinition,
	KindUnsupportedBlock:     ErrUnsupportedBlock,
}

// #endregion error-kind

// #region error
// Error is a structural parse failure. Block is set when the failure is
// attributable to one block.
type Error struct {
	Kind   ErrorKind
	Offset int
	Block  ast.BlockTag
	Msg    string
}

func (e *Error) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("parse error in %s block at byte %d: %s", e.Block, e.Offset, e.Msg)
	}
	return fmt.Sprintf("parse error at byte %d: %s", e.Offset, e.Msg)
}

func (e *Error) Unwrap() error {
	return sentinels[e.Kind]
}

// #endregion error
