//go:build !linux

package debugger

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/greyforge/core/internal/memview"
	"github.com/greyforge/core/internal/sleigh"
)

// PtraceDebugger is unavailable outside Linux: ptrace(2)'s semantics (and
// this package's epoll/eventfd reactor) are Linux-specific. Every method
// that returns an error reports the host OS by name; the others return
// zero values. This mirrors
// internal/watcher/process_watcher_other.go's stub shape.
type PtraceDebugger struct{}

func NewPtraceDebugger(logger *slog.Logger, disasm *sleigh.Disasm, regs *RegisterTable, journal JournalSink) *PtraceDebugger {
	return &PtraceDebugger{}
}

var _ Debugger = (*PtraceDebugger)(nil)

func notSupported() error {
	return NewError(InternalError, "debugger: not supported on %s", runtime.GOOS)
}

func (d *PtraceDebugger) Launch(ctx context.Context, path string, args []string) error {
	return notSupported()
}
func (d *PtraceDebugger) Close() error { return nil }

func (d *PtraceDebugger) Flags() DebuggerFlags     { return 0 }
func (d *PtraceDebugger) SetFlags(f DebuggerFlags) {}

func (d *PtraceDebugger) WaitNextEvent(noBlock bool) (DebuggerEvent, error) {
	return DebuggerEvent{}, notSupported()
}

func (d *PtraceDebugger) AddEventFD(fd int) (uint32, error) { return 0, notSupported() }
func (d *PtraceDebugger) RemoveEventFD(id uint32) error     { return notSupported() }

func (d *PtraceDebugger) ListThreads() []ThreadInfo             { return nil }
func (d *PtraceDebugger) CurrentThread() (ThreadInfo, bool)     { return ThreadInfo{}, false }

func (d *PtraceDebugger) Step(ti ThreadIndex) error    { return notSupported() }
func (d *PtraceDebugger) ContOne(ti ThreadIndex) error { return notSupported() }
func (d *PtraceDebugger) ContAll() error               { return notSupported() }

func (d *PtraceDebugger) ReadRegisterByName(ti ThreadIndex, name string) ([]byte, error) {
	return nil, notSupported()
}
func (d *PtraceDebugger) WriteRegisterByName(ti ThreadIndex, name string, value []byte) error {
	return notSupported()
}
func (d *PtraceDebugger) RegisterInfos() []RegisterInfo { return nil }

func (d *PtraceDebugger) DisassembleOne(ti ThreadIndex) (*sleigh.DisasmDispInstruction, error) {
	return nil, notSupported()
}

func (d *PtraceDebugger) ReadBytes(addr uint64, dst []byte) error  { return notSupported() }
func (d *PtraceDebugger) WriteBytes(addr uint64, src []byte) error { return notSupported() }

func (d *PtraceDebugger) AddBreakpoint(addr uint64) (uint32, error) { return 0, notSupported() }
func (d *PtraceDebugger) RemoveBreakpoint(id uint32) error          { return notSupported() }
func (d *PtraceDebugger) ListBreakpoints() []BreakpointEntry        { return nil }

func (d *PtraceDebugger) MemoryView() memview.View { return nil }
