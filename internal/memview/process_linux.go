//go:build linux

package memview

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// wordSize is the width of a ptrace PEEKTEXT/POKETEXT word on this platform.
const wordSize = 8

// ProcessMemory is a MemoryView over a traced process's address space. It
// prefers opening /proc/<pid>/mem directly, which lets reads cross page
// boundaries in one syscall and does not require the caller's native thread
// to be the tracer; when that file cannot be opened it falls back to
// word-at-a-time PTRACE_PEEKTEXT/PTRACE_POKETEXT requests, which do require
// running on the thread that holds the ptrace attachment (see
// SPEC_FULL.md §5's proxyable/proxied classification).
type ProcessMemory struct {
	pid    int
	mu     sync.Mutex
	file   *os.File // non-nil when /proc/<pid>/mem is usable
	logger *slog.Logger
}

// NewProcessMemory opens a view over pid's address space. logger may be nil.
func NewProcessMemory(pid int, logger *slog.Logger) *ProcessMemory {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		logger.Debug("process memory: /proc/<pid>/mem unavailable, falling back to PTRACE_PEEKTEXT/POKETEXT",
			slog.Int("pid", pid), slog.Any("error", err))
		f = nil
	}
	return &ProcessMemory{pid: pid, file: f, logger: logger}
}

// UsingProcMem reports whether this view is backed by /proc/<pid>/mem rather
// than the word-at-a-time ptrace fallback.
func (p *ProcessMemory) UsingProcMem() bool { return p.file != nil }

func (p *ProcessMemory) MaxAddress() uint64 { return Unbounded }

// CanReadWhileRunning is true only when /proc/<pid>/mem is open: the
// word-at-a-time fallback requires issuing PTRACE_PEEKTEXT from the thread
// that owns the ptrace attachment.
func (p *ProcessMemory) CanReadWhileRunning() bool { return p.file != nil }

// CanWriteWhileRunning is always false: breakpoint insertion and register
// refresh must serialize with other process-memory mutation regardless of
// backing (SPEC_FULL.md §5's shared-resource policy).
func (p *ProcessMemory) CanWriteWhileRunning() bool { return false }

func (p *ProcessMemory) ReadBytes(cursor uint64, dst []byte) error {
	if p.file != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		n, err := p.file.ReadAt(dst, int64(cursor))
		if err != nil || n != len(dst) {
			return NewError(ReadAccessDenied, "read %d bytes at %#x from /proc/%d/mem: %v", len(dst), cursor, p.pid, err)
		}
		return nil
	}
	return p.readPeek(cursor, dst)
}

func (p *ProcessMemory) WriteBytes(cursor uint64, src []byte) error {
	if p.file != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		n, err := p.file.WriteAt(src, int64(cursor))
		if err != nil || n != len(src) {
			return NewError(WriteAccessDenied, "write %d bytes at %#x to /proc/%d/mem: %v", len(src), cursor, p.pid, err)
		}
		return nil
	}
	return p.writePoke(cursor, src)
}

// readPeek reads len(dst) bytes starting at cursor using PTRACE_PEEKTEXT,
// one word at a time, trimming the final word to the remaining byte count.
func (p *ProcessMemory) readPeek(cursor uint64, dst []byte) error {
	bytesLeft := len(dst)
	addr := cursor
	pos := 0
	var buf [wordSize]byte
	for bytesLeft > 0 {
		if _, err := unix.PtracePeekText(p.pid, uintptr(addr), buf[:]); err != nil {
			return NewError(ReadAccessDenied, "PTRACE_PEEKTEXT pid=%d addr=%#x: %v", p.pid, addr, err)
		}
		n := wordSize
		if bytesLeft < n {
			n = bytesLeft
		}
		copy(dst[pos:pos+n], buf[:n])
		bytesLeft -= n
		pos += n
		addr += uint64(n)
	}
	return nil
}

// writePoke writes src starting at cursor using PTRACE_POKETEXT. A final
// partial word is read-modify-written so that bytes beyond len(src) within
// that word are preserved.
func (p *ProcessMemory) writePoke(cursor uint64, src []byte) error {
	bytesLeft := len(src)
	addr := cursor
	pos := 0
	for bytesLeft > 0 {
		if bytesLeft >= wordSize {
			if _, err := unix.PtracePokeText(p.pid, uintptr(addr), src[pos:pos+wordSize]); err != nil {
				return NewError(WriteAccessDenied, "PTRACE_POKETEXT pid=%d addr=%#x: %v", p.pid, addr, err)
			}
			bytesLeft -= wordSize
			pos += wordSize
			addr += wordSize
			continue
		}

		// Partial final word: read-modify-write so we don't clobber the
		// tail bytes that lie past the requested write.
		var orig [wordSize]byte
		if _, err := unix.PtracePeekText(p.pid, uintptr(addr), orig[:]); err != nil {
			return NewError(ReadAccessDenied, "PTRACE_PEEKTEXT (rmw) pid=%d addr=%#x: %v", p.pid, addr, err)
		}
		merged := orig
		copy(merged[:bytesLeft], src[pos:pos+bytesLeft])
		if _, err := unix.PtracePokeText(p.pid, uintptr(addr), merged[:]); err != nil {
			return NewError(WriteAccessDenied, "PTRACE_POKETEXT (rmw) pid=%d addr=%#x: %v", p.pid, addr, err)
		}
		bytesLeft = 0
	}
	return nil
}

var _ View = (*ProcessMemory)(nil)
