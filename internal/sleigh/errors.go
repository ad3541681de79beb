// Package sleigh loads compiled SLA/processor-spec files and decodes
// instructions against them. It mirrors the decoding pipeline of a SLEIGH
// disassembler: a tagged-element-tree loader, a symbol table and decision
// tree per subtable, and a recursive disassembly walk (one nested call per
// subtable operand; there is no explicit work stack).
package sleigh

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of ways loading or disassembling can fail.
type ErrorKind int

const (
	// Malformed covers structurally invalid .sla/.pspec input: a bad magic,
	// an unexpected element where another was required, a decision-tree
	// size invariant violation.
	Malformed ErrorKind = iota
	// PatternNotFound is returned when constructor resolution exhausts a
	// decision-tree leaf's pairs without a match.
	PatternNotFound
	// Unsupported covers constructs this loader recognizes but does not
	// decode (e.g. a cross-frame operand reference).
	Unsupported
	Generic
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed sleigh data"
	case PatternNotFound:
		return "pattern not found"
	case Unsupported:
		return "unsupported"
	default:
		return "generic error"
	}
}

// Error is the error type every exported sleigh operation returns.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is an
// *Error, along with whether one was found.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
