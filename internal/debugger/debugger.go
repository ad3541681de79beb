package debugger

import (
	"context"

	"github.com/greyforge/core/internal/memview"
	"github.com/greyforge/core/internal/sleigh"
)

// JournalSink receives best-effort debugger lifecycle notifications. A
// journal write error must never fail or block the debugger operation that
// produced it (SPEC_FULL.md §4.4 "Ambient addition"); callers that want that
// guarantee should have Record itself swallow and log its own errors. The
// session-layer internal/journal package implements this interface; it is
// declared here, not imported, so this package never depends on the
// ambient/session layer.
type JournalSink interface {
	Record(kind string, tid int32, addr uint64, detail string)
}

// Debugger is the process-level debugging core: thread lifecycle, register
// and memory access, and breakpoint management. Implementations dispatch
// operations that require the host OS's tracer thread identity to a single
// dedicated debug thread per spec.md §5; everything else may run on the
// calling goroutine.
type Debugger interface {
	// Launch forks the target process, traces it through its first stop,
	// and starts the debug-thread reactor. args[0], if present, overrides
	// the conventional argv[0] (defaulting to path's base name).
	Launch(ctx context.Context, path string, args []string) error

	// Close stops the debug-thread reactor and releases its resources. It
	// does not kill the traced process.
	Close() error

	Flags() DebuggerFlags
	SetFlags(DebuggerFlags)

	// WaitNextEvent returns the next pending debugger event. With
	// noBlock, it returns NoEvent immediately if none is pending;
	// otherwise it blocks until one is available (spec.md §5,
	// "Cancellation & timeouts: not supported").
	WaitNextEvent(noBlock bool) (DebuggerEvent, error)

	// AddEventFD registers an additional file descriptor the reactor
	// should watch; a ready read surfaces as UserEvent(id).
	AddEventFD(fd int) (id uint32, err error)
	RemoveEventFD(id uint32) error

	ListThreads() []ThreadInfo
	CurrentThread() (ThreadInfo, bool)

	// Step single-steps the selected thread, transparently stepping over
	// a breakpoint's trap byte first if the thread is stopped there.
	Step(ti ThreadIndex) error
	ContOne(ti ThreadIndex) error
	ContAll() error

	ReadRegisterByName(ti ThreadIndex, name string) ([]byte, error)
	WriteRegisterByName(ti ThreadIndex, name string, value []byte) error
	RegisterInfos() []RegisterInfo

	// DisassembleOne decodes the single instruction at the selected
	// thread's current program counter, as observed through the
	// breakpoint overlay (so a trap byte never corrupts the decode).
	DisassembleOne(ti ThreadIndex) (*sleigh.DisasmDispInstruction, error)

	ReadBytes(addr uint64, dst []byte) error
	WriteBytes(addr uint64, src []byte) error

	AddBreakpoint(addr uint64) (id uint32, err error)
	RemoveBreakpoint(id uint32) error
	ListBreakpoints() []BreakpointEntry

	// MemoryView returns a raw (non-breakpoint-overlaid) view of the
	// traced process's address space.
	MemoryView() memview.View
}
