// Package debugger implements a ptrace-based process debugger core: thread
// and breakpoint tables, a register cache keyed by SLEIGH address, and a
// reactor/actor split between a dedicated debug thread and arbitrary caller
// threads. See SPEC_FULL.md §4.4 for the full contract.
package debugger

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of ways a debugger operation can fail. Memory
// and disassembly sub-errors are collapsed to MemoryAccessFailed and
// DisassemblyFailed at this boundary rather than leaking memview/sleigh
// error kinds to callers.
type ErrorKind int

const (
	InvalidArguments ErrorKind = iota
	ForkFailed
	AlreadyRunning
	NotStopped
	DisassemblyFailed
	MemoryAccessFailed
	InternalError
	InvalidRegister
	InvalidThread
	InvalidBreakpoint
	NoThreads
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArguments:
		return "invalid arguments"
	case ForkFailed:
		return "fork failed"
	case AlreadyRunning:
		return "already running"
	case NotStopped:
		return "not stopped"
	case DisassemblyFailed:
		return "disassembly failed"
	case MemoryAccessFailed:
		return "memory access failed"
	case InternalError:
		return "internal error"
	case InvalidRegister:
		return "invalid register"
	case InvalidThread:
		return "invalid thread"
	case InvalidBreakpoint:
		return "invalid breakpoint"
	case NoThreads:
		return "no threads"
	default:
		return "unknown debugger error"
	}
}

// Error is the single error type every exported debugger operation returns.
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
