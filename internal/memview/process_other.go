//go:build !linux

package memview

import "log/slog"

// ProcessMemory is unavailable on this platform: the debugger core's process
// lifecycle (fork/traceme/ptrace, see SPEC_FULL.md §4.4) is Linux-specific,
// matching spec.md's scope. NewProcessMemory always returns a view whose
// every operation fails with NotLoaded.
type ProcessMemory struct {
	pid    int
	logger *slog.Logger
}

// NewProcessMemory returns a stub view; pid is recorded only for error
// messages. logger may be nil.
func NewProcessMemory(pid int, logger *slog.Logger) *ProcessMemory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessMemory{pid: pid, logger: logger}
}

func (p *ProcessMemory) UsingProcMem() bool          { return false }
func (p *ProcessMemory) MaxAddress() uint64          { return Unbounded }
func (p *ProcessMemory) CanReadWhileRunning() bool   { return false }
func (p *ProcessMemory) CanWriteWhileRunning() bool  { return false }

func (p *ProcessMemory) ReadBytes(cursor uint64, dst []byte) error {
	return NewError(NotLoaded, "process memory tracing is not supported on this platform (pid=%d)", p.pid)
}

func (p *ProcessMemory) WriteBytes(cursor uint64, src []byte) error {
	return NewError(NotLoaded, "process memory tracing is not supported on this platform (pid=%d)", p.pid)
}

var _ View = (*ProcessMemory)(nil)
