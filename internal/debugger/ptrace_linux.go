//go:build linux

package debugger

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"

	"github.com/greyforge/core/internal/memview"
	"github.com/greyforge/core/internal/sleigh"
)

// x86TrapByte is the INT3 opcode used as a software breakpoint trap on this
// architecture family.
const x86TrapByte = 0xcc

// si_code values decoded by decodeSiCode, from <asm-generic/siginfo.h>.
// SI_KERNEL is not otherwise exported by golang.org/x/sys/unix.
const (
	siKernel  = 0x80
	trapBrkpt = 1
	trapTrace = 2
)

// ntPrfpregset is NT_PRFPREGSET (linux/elfcore.h), the PTRACE_GETREGSET note
// type for the legacy x87/SSE register file.
const ntPrfpregset = 2

type commandKind int

const (
	cmdStep commandKind = iota
	cmdContOne
	cmdContAll
	cmdAddBreakpoint
	cmdRemoveBreakpoint
	cmdRefreshRegisters
	cmdReadBytes
	cmdWriteBytes
	cmdWriteRegister
)

// command is a proxied operation sent from a command thread to the debug
// thread over a capacity-1 channel, per spec.md §5's ordering guarantee:
// the next command cannot be submitted until the previous has responded.
type command struct {
	kind   commandKind
	ti     ThreadIndex
	addr   uint64
	length int
	name   string
	data   []byte
	resp   chan commandResult
}

type commandResult struct {
	err  error
	id   uint32
	data []byte
}

// PtraceDebugger is the Linux ptrace backend. It owns a dedicated debug
// thread (an OS-thread-locked goroutine) that runs an epoll reactor over an
// action event-fd (command delivery) and a SIGCHLD event-fd, matching
// spec.md §5 exactly except for the SIGCHLD bridge itself: a true
// async-signal-safe C-style handler cannot be installed from pure Go (the
// runtime owns signal delivery), so a dedicated goroutine receiving from
// signal.Notify and writing the event-fd stands in for it. See DESIGN.md.
type PtraceDebugger struct {
	logger  *slog.Logger
	journal JournalSink
	disasm  *sleigh.Disasm
	regs    *RegisterTable

	mu              sync.Mutex
	cond            *sync.Cond
	threads         map[int32]*threadState
	curThread       int32
	breakpoints     *BreakpointTable
	flags           DebuggerFlags
	pendingEvents   []DebuggerEvent
	userFDIDs       map[int]uint32
	nextUserEventID uint32

	mem *memview.ProcessMemory
	pid int

	epfd, actionFD, sigchldFD int

	cmdCh  chan command
	sendMu sync.Mutex

	regGroup singleflight.Group

	eg       *errgroup.Group
	egCtx    context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPtraceDebugger builds an unlaunched debugger. disasm must already be
// constructed from the architecture's .sla/.pspec files (see sleigh.New,
// sleigh.GetInitialCtx); regs should come from BuildRegisterTable against
// the same pspec. journal may be nil.
func NewPtraceDebugger(logger *slog.Logger, disasm *sleigh.Disasm, regs *RegisterTable, journal JournalSink) *PtraceDebugger {
	if logger == nil {
		logger = slog.Default()
	}
	d := &PtraceDebugger{
		logger:      logger,
		journal:     journal,
		disasm:      disasm,
		regs:        regs,
		threads:     make(map[int32]*threadState),
		breakpoints: newBreakpointTable(),
		userFDIDs:   make(map[int]uint32),
		cmdCh:       make(chan command, 1),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

var _ Debugger = (*PtraceDebugger)(nil)

// --- Lifecycle ---

func (d *PtraceDebugger) Launch(ctx context.Context, path string, args []string) error {
	d.mu.Lock()
	if d.pid != 0 {
		d.mu.Unlock()
		return NewError(AlreadyRunning, "debugger already launched pid %d", d.pid)
	}
	d.mu.Unlock()

	argv := args
	if len(argv) == 0 {
		argv = []string{filepath.Base(path)}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	eg, egCtx := errgroup.WithContext(runCtx)
	d.eg = eg
	d.egCtx = egCtx

	ready := make(chan error, 1)
	eg.Go(func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		return d.debugThreadMain(runCtx, path, argv, ready)
	})

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			return err
		}
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
	return nil
}

func (d *PtraceDebugger) Close() error {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
	})
	if d.eg != nil {
		_ = d.eg.Wait()
	}
	return nil
}

// debugThreadMain forks the traced child, performs the initial traceme
// stop, wires up the epoll reactor, and runs it until ctx is cancelled.
// It must run on a locked OS thread: every ptrace(2) call after this point
// must originate from the thread that attached (implicitly, via
// PTRACE_TRACEME in the child before execve).
func (d *PtraceDebugger) debugThreadMain(ctx context.Context, path string, argv []string, ready chan<- error) error {
	cmd := &exec.Cmd{Path: path, Args: argv, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		ready <- NewError(ForkFailed, "start %s: %v", path, err)
		return nil
	}
	pid := cmd.Process.Pid

	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(pid, &ws, 0, nil); err != nil {
		ready <- NewError(ForkFailed, "initial wait for pid %d: %v", pid, err)
		return nil
	}
	_ = unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACESYSGOOD|unix.PTRACE_O_TRACEEXIT)

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		ready <- NewError(InternalError, "epoll_create1: %v", err)
		return nil
	}
	defer unix.Close(epfd)

	actionFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		ready <- NewError(InternalError, "action eventfd: %v", err)
		return nil
	}
	defer unix.Close(actionFD)

	sigchldFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		ready <- NewError(InternalError, "sigchld eventfd: %v", err)
		return nil
	}
	defer unix.Close(sigchldFD)

	for _, fd := range []int{actionFD, sigchldFD} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			ready <- NewError(InternalError, "epoll_ctl add fd %d: %v", fd, err)
			return nil
		}
	}

	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, syscall.SIGCHLD)
	defer signal.Stop(sigCh)
	go bridgeSigchld(ctx, sigCh, sigchldFD)

	d.mu.Lock()
	d.pid = pid
	d.mem = memview.NewProcessMemory(pid, d.logger)
	d.threads[int32(pid)] = newThreadState(int32(pid), FirstStop, d.regs.CacheSize)
	d.curThread = int32(pid)
	d.epfd, d.actionFD, d.sigchldFD = epfd, actionFD, sigchldFD
	d.mu.Unlock()

	d.logger.Info("debugger launched", slog.Int("pid", pid), slog.String("path", path))
	d.journalRecord("launch", int32(pid), 0, path)

	ready <- nil

	return d.reactorLoop(ctx, epfd, actionFD, sigchldFD)
}

// bridgeSigchld forwards Go's (necessarily non-async-signal-safe) runtime
// signal delivery into the reactor's SIGCHLD event-fd. See the
// PtraceDebugger doc comment for why this substitutes for the source's
// process-wide async-signal-safe handler.
func bridgeSigchld(ctx context.Context, sigCh <-chan os.Signal, sigchldFD int) {
	var token [8]byte
	binary.LittleEndian.PutUint64(token[:], 1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			_, _ = unix.Write(sigchldFD, token[:])
		}
	}
}

// --- Reactor ---

func (d *PtraceDebugger) reactorLoop(ctx context.Context, epfd, actionFD, sigchldFD int) error {
	events := make([]unix.EpollEvent, 8)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := unix.EpollWait(epfd, events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return NewError(InternalError, "epoll_wait: %v", err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case actionFD:
				drainEventfd(actionFD)
				d.runOneCommand()
			case sigchldFD:
				drainEventfd(sigchldFD)
				d.drainWaitpid()
			default:
				drainEventfd(fd)
				d.deliverUserEvent(fd)
			}
		}
	}
}

func drainEventfd(fd int) {
	var buf [8]byte
	_, _ = unix.Read(fd, buf[:])
}

func (d *PtraceDebugger) runOneCommand() {
	select {
	case cmd := <-d.cmdCh:
		cmd.resp <- d.handleCommand(cmd)
	default:
		// The action fd can be signaled once more than there are commands
		// to drain if a send and a spurious epoll wakeup race; nothing to
		// do in that case.
	}
}

func (d *PtraceDebugger) handleCommand(cmd command) commandResult {
	switch cmd.kind {
	case cmdStep:
		return commandResult{err: d.doStep(cmd.ti)}
	case cmdContOne:
		return commandResult{err: d.doCont(cmd.ti, resumeOne)}
	case cmdContAll:
		return commandResult{err: d.doCont(ThreadIndex{}, resumeAll)}
	case cmdAddBreakpoint:
		id, err := d.doAddBreakpoint(cmd.addr)
		return commandResult{id: id, err: err}
	case cmdRemoveBreakpoint:
		return commandResult{err: d.doRemoveBreakpoint(uint32(cmd.addr))}
	case cmdRefreshRegisters:
		return commandResult{err: d.doRefreshRegisters(cmd.ti)}
	case cmdReadBytes:
		data, err := d.doReadBytesPtrace(cmd.addr, cmd.length)
		return commandResult{data: data, err: err}
	case cmdWriteBytes:
		return commandResult{err: d.doWriteBytesPtrace(cmd.addr, cmd.data)}
	case cmdWriteRegister:
		return commandResult{err: d.doWriteRegister(cmd.ti, cmd.name, cmd.data)}
	default:
		return commandResult{err: NewError(InternalError, "unknown command kind %d", cmd.kind)}
	}
}

func (d *PtraceDebugger) deliverUserEvent(fd int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.userFDIDs[fd]; ok {
		d.queueEventLocked(DebuggerEvent{Kind: UserEvent, Code: id})
	}
}

func (d *PtraceDebugger) queueEventLocked(evt DebuggerEvent) {
	d.pendingEvents = append(d.pendingEvents, evt)
	d.cond.Broadcast()
}

// --- waitpid draining & si_code decoding ---

func (d *PtraceDebugger) drainWaitpid() {
	for {
		var ws syscall.WaitStatus
		wpid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil || wpid <= 0 {
			return
		}
		d.handleWaitStatus(int32(wpid), ws)
	}
}

func (d *PtraceDebugger) handleWaitStatus(tid int32, ws syscall.WaitStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()

	th, known := d.threads[tid]
	if !known {
		th = newThreadState(tid, Running, d.regs.CacheSize)
		d.threads[tid] = th
		d.queueEventLocked(DebuggerEvent{Kind: ThreadSpawned, Pid: tid})
	}

	if ws.Exited() || ws.Signaled() {
		delete(d.threads, tid)
		d.queueEventLocked(DebuggerEvent{Kind: ThreadKilled, Pid: tid, Code: uint32(ws.ExitStatus())})
		d.journalRecord("thread-killed", tid, 0, "")
		return
	}
	if !ws.Stopped() {
		return
	}

	sig := ws.StopSignal()
	pause, kind := StoppedUnknownReason, MiscSignalReceived
	if sig == syscall.SIGTRAP {
		pause, kind = decodeSiCode(tid)
	}

	priorPause := th.pause
	th.pause = pause

	if isSteppingOverBreakpoint(priorPause) && kind == StepComplete {
		d.finishStepOverBreakpointLocked(th, priorPause)
		return
	}

	d.queueEventLocked(DebuggerEvent{Kind: kind, Pid: tid, Code: uint32(sig)})
	d.journalRecord("thread-stopped", tid, 0, pause.String())
}

func isSteppingOverBreakpoint(p PauseState) bool {
	return p == SteppingBp || p == SteppingBpContOne || p == SteppingBpContAll
}

// decodeSiCode implements spec.md §4.4's si_code decoding table for
// SIGTRAP stops on x86-64 Linux.
func decodeSiCode(tid int32) (PauseState, EventKind) {
	var info unix.Siginfo
	if err := unix.PtraceGetSiginfo(int(tid), &info); err != nil {
		return StoppedUnknownReason, MiscSignalReceived
	}
	switch int32(info.Code) {
	case siKernel:
		return SwBreakpointHit, BreakpointHit
	case trapBrkpt:
		return SyscallHitEnd, StepCompleteSyscall
	case trapTrace:
		return StepCompleted, StepComplete
	default:
		return StoppedUnknownReason, MiscSignalReceived
	}
}

// finishStepOverBreakpointLocked restores a breakpoint's trap byte after the
// single-step issued to clear it completes, then either surfaces the step
// as a normal StepComplete (a caller-requested plain step) or silently
// resumes the thread(s) the original continue intended (spec.md §4.4 step 2).
func (d *PtraceDebugger) finishStepOverBreakpointLocked(th *threadState, priorPause PauseState) {
	bpID := th.steppingBreakpointID
	th.steppingBreakpointID = -1
	if bp, ok := d.breakpoints.Get(uint32(bpID)); ok {
		if err := d.mem.WriteBytes(bp.Addr, []byte{bp.TrapByte}); err != nil {
			d.logger.Warn("debugger: failed to restore breakpoint trap byte after step",
				slog.Uint64("addr", bp.Addr), slog.Any("error", err))
		}
	}

	resumeThread := func(other *threadState) {
		other.pause = Running
		other.regCache.dirty = true
		if err := unix.PtraceCont(int(other.tid), 0); err != nil {
			d.logger.Warn("debugger: auto-resume after step-over-breakpoint failed",
				slog.Int("tid", int(other.tid)), slog.Any("error", err))
		}
	}

	switch priorPause {
	case SteppingBp:
		th.pause = StepCompleted
		d.queueEventLocked(DebuggerEvent{Kind: StepComplete, Pid: th.tid})
	case SteppingBpContOne, SteppingBpContAll:
		// doCont already issued PTRACE_CONT directly to every other thread
		// that wasn't parked at a breakpoint; this thread is the only one
		// that needed the step-then-resume detour, for both ContOne and
		// ContAll.
		resumeThread(th)
	}
}

// --- Proxied operations (executed on the debug thread) ---

func (d *PtraceDebugger) resolveThreadLocked(ti ThreadIndex) (*threadState, error) {
	tid := ti.TID
	if ti.Current {
		tid = d.curThread
	}
	th, ok := d.threads[tid]
	if !ok {
		return nil, NewError(InvalidThread, "no such thread %d", tid)
	}
	return th, nil
}

func (d *PtraceDebugger) pcLocked(th *threadState) (uint64, error) {
	if d.regs.ProgramCounter < 0 {
		return 0, NewError(InvalidRegister, "no program-counter register declared")
	}
	if th.regCache.dirty {
		if err := d.refreshRegsLocked(th); err != nil {
			return 0, err
		}
	}
	info := d.regs.Infos[d.regs.ProgramCounter]
	b := th.regCache.read(info.Addr, info.Size)
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (d *PtraceDebugger) refreshRegsLocked(th *threadState) error {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(int(th.tid), &regs); err != nil {
		return NewError(MemoryAccessFailed, "PTRACE_GETREGS tid=%d: %v", th.tid, err)
	}
	// Architecture-specific adjustment: after a software-breakpoint hit,
	// the kernel leaves the PC one byte past the trap; callers expect it
	// to read as the breakpoint's own address.
	if th.pause == SwBreakpointHit {
		regs.Rip--
	}
	raw := (*[unsafe.Sizeof(unix.PtraceRegs{})]byte)(unsafe.Pointer(&regs))[:]
	for _, info := range d.regs.Infos {
		if info.Kind == FloatingPoint {
			continue
		}
		th.regCache.write(info.Addr, raw[info.HostOffset:info.HostOffset+info.Size])
	}

	var fpregs [512]byte
	iov := unix.Iovec{Base: &fpregs[0], Len: uint64(len(fpregs))}
	if err := unix.PtraceGetRegSet(int(th.tid), ntPrfpregset, &iov); err == nil {
		for _, info := range d.regs.Infos {
			if info.Kind != FloatingPoint {
				continue
			}
			th.regCache.write(info.Addr, fpregs[info.HostOffset:info.HostOffset+info.Size])
		}
	}

	th.regCache.dirty = false
	return nil
}

func (d *PtraceDebugger) doStep(ti ThreadIndex) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	th, err := d.resolveThreadLocked(ti)
	if err != nil {
		return err
	}

	if th.pause == SwBreakpointHit {
		pc, err := d.pcLocked(th)
		if err != nil {
			return err
		}
		bp, ok := d.breakpoints.FindByAddr(pc)
		if !ok {
			return NewError(InternalError, "thread %d stopped at breakpoint but none found at %#x", th.tid, pc)
		}
		if err := d.mem.WriteBytes(bp.Addr, []byte{bp.OrigByte}); err != nil {
			return NewError(MemoryAccessFailed, "restore original byte at %#x: %v", bp.Addr, err)
		}
		th.steppingBreakpointID = int32(bp.ID)
		th.resume = resumeNone
		th.pause = SteppingBp
	} else {
		th.pause = Running
	}
	th.regCache.dirty = true
	if err := unix.PtraceSingleStep(int(th.tid)); err != nil {
		return NewError(InternalError, "PTRACE_SINGLESTEP tid=%d: %v", th.tid, err)
	}
	return nil
}

func (d *PtraceDebugger) doCont(ti ThreadIndex, intent resumeIntent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.threads) == 0 {
		return NewError(NoThreads, "no threads to continue")
	}

	var targets []*threadState
	if intent == resumeAll {
		for _, th := range d.threads {
			targets = append(targets, th)
		}
	} else {
		th, err := d.resolveThreadLocked(ti)
		if err != nil {
			return err
		}
		targets = []*threadState{th}
	}

	for _, th := range targets {
		if th.pause == SwBreakpointHit {
			pc, err := d.pcLocked(th)
			if err != nil {
				return err
			}
			bp, ok := d.breakpoints.FindByAddr(pc)
			if !ok {
				return NewError(InternalError, "thread %d stopped at breakpoint but none found at %#x", th.tid, pc)
			}
			if err := d.mem.WriteBytes(bp.Addr, []byte{bp.OrigByte}); err != nil {
				return NewError(MemoryAccessFailed, "restore original byte at %#x: %v", bp.Addr, err)
			}
			th.steppingBreakpointID = int32(bp.ID)
			th.resume = intent
			if intent == resumeAll {
				th.pause = SteppingBpContAll
			} else {
				th.pause = SteppingBpContOne
			}
			th.regCache.dirty = true
			if err := unix.PtraceSingleStep(int(th.tid)); err != nil {
				return NewError(InternalError, "PTRACE_SINGLESTEP tid=%d: %v", th.tid, err)
			}
			continue
		}
		th.pause = Running
		th.regCache.dirty = true
		if err := unix.PtraceCont(int(th.tid), 0); err != nil {
			return NewError(InternalError, "PTRACE_CONT tid=%d: %v", th.tid, err)
		}
	}
	return nil
}

func (d *PtraceDebugger) doAddBreakpoint(addr uint64) (uint32, error) {
	orig := make([]byte, 1)
	if err := d.mem.ReadBytes(addr, orig); err != nil {
		return 0, NewError(MemoryAccessFailed, "read original byte at %#x: %v", addr, err)
	}
	if err := d.mem.WriteBytes(addr, []byte{x86TrapByte}); err != nil {
		return 0, NewError(MemoryAccessFailed, "write trap byte at %#x: %v", addr, err)
	}
	id, err := d.breakpoints.Add(addr, orig[0], x86TrapByte)
	if err != nil {
		// The table insert failed after the trap byte was already written;
		// restore the original so the process isn't left with a stray
		// trap (spec.md §7's propagation policy calls this case out).
		_ = d.mem.WriteBytes(addr, orig)
		return 0, err
	}
	d.journalRecord("breakpoint-added", 0, addr, "")
	return id, nil
}

func (d *PtraceDebugger) doRemoveBreakpoint(id uint32) error {
	entry, ok := d.breakpoints.Get(id)
	if !ok {
		return NewError(InvalidBreakpoint, "no breakpoint with id %d", id)
	}
	cur := make([]byte, 1)
	if err := d.mem.ReadBytes(entry.Addr, cur); err != nil {
		return NewError(MemoryAccessFailed, "read current byte at %#x: %v", entry.Addr, err)
	}
	if cur[0] != entry.TrapByte {
		return NewError(InvalidBreakpoint, "address %#x no longer holds breakpoint %d's trap byte", entry.Addr, id)
	}
	if err := d.mem.WriteBytes(entry.Addr, []byte{entry.OrigByte}); err != nil {
		return NewError(MemoryAccessFailed, "restore original byte at %#x: %v", entry.Addr, err)
	}
	if _, err := d.breakpoints.Remove(id); err != nil {
		return err
	}
	d.journalRecord("breakpoint-removed", 0, entry.Addr, "")
	return nil
}

func (d *PtraceDebugger) doRefreshRegisters(ti ThreadIndex) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	th, err := d.resolveThreadLocked(ti)
	if err != nil {
		return err
	}
	return d.refreshRegsLocked(th)
}

func (d *PtraceDebugger) doWriteRegister(ti ThreadIndex, name string, value []byte) error {
	info, ok := d.regs.GetByName(name)
	if !ok {
		return NewError(InvalidRegister, "no such register %q", name)
	}
	if uint32(len(value)) != info.Size {
		return NewError(InvalidArguments, "register %q is %d bytes, got %d", name, info.Size, len(value))
	}

	d.mu.Lock()
	th, err := d.resolveThreadLocked(ti)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if info.Kind == FloatingPoint {
		var fpregs [512]byte
		iov := unix.Iovec{Base: &fpregs[0], Len: uint64(len(fpregs))}
		if err := unix.PtraceGetRegSet(int(th.tid), ntPrfpregset, &iov); err != nil {
			return NewError(MemoryAccessFailed, "PTRACE_GETREGSET NT_PRFPREGSET tid=%d: %v", th.tid, err)
		}
		copy(fpregs[info.HostOffset:info.HostOffset+info.Size], value)
		if err := unix.PtraceSetRegSet(int(th.tid), ntPrfpregset, &iov); err != nil {
			return NewError(MemoryAccessFailed, "PTRACE_SETREGSET NT_PRFPREGSET tid=%d: %v", th.tid, err)
		}
	} else {
		var regs unix.PtraceRegs
		if err := unix.PtraceGetRegs(int(th.tid), &regs); err != nil {
			return NewError(MemoryAccessFailed, "PTRACE_GETREGS tid=%d: %v", th.tid, err)
		}
		raw := (*[unsafe.Sizeof(unix.PtraceRegs{})]byte)(unsafe.Pointer(&regs))[:]
		copy(raw[info.HostOffset:info.HostOffset+info.Size], value)
		if err := unix.PtraceSetRegs(int(th.tid), &regs); err != nil {
			return NewError(MemoryAccessFailed, "PTRACE_SETREGS tid=%d: %v", th.tid, err)
		}
	}

	d.mu.Lock()
	th.regCache.dirty = true
	d.mu.Unlock()
	return nil
}

func (d *PtraceDebugger) doReadBytesPtrace(addr uint64, length int) ([]byte, error) {
	buf := make([]byte, length)
	if err := d.mem.ReadBytes(addr, buf); err != nil {
		return nil, NewError(MemoryAccessFailed, "%v", err)
	}
	return buf, nil
}

func (d *PtraceDebugger) doWriteBytesPtrace(addr uint64, data []byte) error {
	if err := d.mem.WriteBytes(addr, data); err != nil {
		return NewError(MemoryAccessFailed, "%v", err)
	}
	return nil
}

// --- Command dispatch from arbitrary caller threads ---

func (d *PtraceDebugger) sendCommand(cmd command) error {
	_, err := d.sendCommandResult(cmd)
	return err
}

func (d *PtraceDebugger) sendCommandResult(cmd command) (commandResult, error) {
	if d.egCtx == nil {
		return commandResult{}, NewError(NotStopped, "debugger has not been launched")
	}

	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	resp := make(chan commandResult, 1)
	cmd.resp = resp
	select {
	case d.cmdCh <- cmd:
	case <-d.egCtx.Done():
		return commandResult{}, NewError(InternalError, "debugger is not running")
	}

	var token [8]byte
	binary.LittleEndian.PutUint64(token[:], 1)
	if _, err := unix.Write(d.actionFD, token[:]); err != nil {
		return commandResult{}, NewError(InternalError, "signal action eventfd: %v", err)
	}

	select {
	case res := <-resp:
		return res, res.err
	case <-d.egCtx.Done():
		return commandResult{}, NewError(InternalError, "debugger is not running")
	}
}

// --- Public API ---

func (d *PtraceDebugger) Flags() DebuggerFlags {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags
}

func (d *PtraceDebugger) SetFlags(f DebuggerFlags) {
	d.mu.Lock()
	d.flags = f
	d.mu.Unlock()
}

func (d *PtraceDebugger) WaitNextEvent(noBlock bool) (DebuggerEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.pendingEvents) == 0 {
		if noBlock {
			return DebuggerEvent{Kind: NoEvent}, nil
		}
		d.cond.Wait()
	}
	evt := d.pendingEvents[0]
	d.pendingEvents = d.pendingEvents[1:]
	return evt, nil
}

func (d *PtraceDebugger) AddEventFD(fd int) (uint32, error) {
	d.mu.Lock()
	d.nextUserEventID++
	id := d.nextUserEventID
	d.userFDIDs[fd] = id
	d.mu.Unlock()

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return 0, NewError(InternalError, "epoll_ctl add user fd %d: %v", fd, err)
	}
	return id, nil
}

func (d *PtraceDebugger) RemoveEventFD(id uint32) error {
	d.mu.Lock()
	var fd int
	found := false
	for f, i := range d.userFDIDs {
		if i == id {
			fd, found = f, true
			break
		}
	}
	if found {
		delete(d.userFDIDs, fd)
	}
	d.mu.Unlock()
	if !found {
		return NewError(InvalidArguments, "no user event with id %d", id)
	}
	if err := unix.EpollCtl(d.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return NewError(InternalError, "epoll_ctl del user fd %d: %v", fd, err)
	}
	return nil
}

func (d *PtraceDebugger) ListThreads() []ThreadInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ThreadInfo, 0, len(d.threads))
	for _, th := range d.threads {
		out = append(out, th.snapshot())
	}
	return out
}

func (d *PtraceDebugger) CurrentThread() (ThreadInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	th, ok := d.threads[d.curThread]
	if !ok {
		return ThreadInfo{}, false
	}
	return th.snapshot(), true
}

func (d *PtraceDebugger) Step(ti ThreadIndex) error     { return d.sendCommand(command{kind: cmdStep, ti: ti}) }
func (d *PtraceDebugger) ContOne(ti ThreadIndex) error  { return d.sendCommand(command{kind: cmdContOne, ti: ti}) }
func (d *PtraceDebugger) ContAll() error                { return d.sendCommand(command{kind: cmdContAll}) }

func (d *PtraceDebugger) AddBreakpoint(addr uint64) (uint32, error) {
	res, err := d.sendCommandResult(command{kind: cmdAddBreakpoint, addr: addr})
	return res.id, err
}

func (d *PtraceDebugger) RemoveBreakpoint(id uint32) error {
	return d.sendCommand(command{kind: cmdRemoveBreakpoint, addr: uint64(id)})
}

// ListBreakpoints returns every installed breakpoint for introspection. It
// reads the table directly rather than dispatching to the debug thread:
// BreakpointTable has its own lock and no command needs the tracer's
// identity to answer this.
func (d *PtraceDebugger) ListBreakpoints() []BreakpointEntry {
	return d.breakpoints.All()
}

func (d *PtraceDebugger) RegisterInfos() []RegisterInfo { return d.regs.Infos }

func (d *PtraceDebugger) ReadRegisterByName(ti ThreadIndex, name string) ([]byte, error) {
	info, ok := d.regs.GetByName(name)
	if !ok {
		return nil, NewError(InvalidRegister, "no such register %q", name)
	}

	d.mu.Lock()
	th, err := d.resolveThreadLocked(ti)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	dirty := th.regCache.dirty
	tid := th.tid
	d.mu.Unlock()

	if dirty {
		key := fmt.Sprintf("%d", tid)
		_, err, _ := d.regGroup.Do(key, func() (any, error) {
			return nil, d.sendCommand(command{kind: cmdRefreshRegisters, ti: SpecificThreadIndex(tid)})
		})
		if err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	th, err = d.resolveThreadLocked(SpecificThreadIndex(tid))
	if err != nil {
		return nil, err
	}
	return th.regCache.read(info.Addr, info.Size), nil
}

func (d *PtraceDebugger) WriteRegisterByName(ti ThreadIndex, name string, value []byte) error {
	return d.sendCommand(command{kind: cmdWriteRegister, ti: ti, name: name, data: value})
}

func (d *PtraceDebugger) ReadBytes(addr uint64, dst []byte) error {
	if d.mem.CanReadWhileRunning() {
		return d.mem.ReadBytes(addr, dst)
	}
	res, err := d.sendCommandResult(command{kind: cmdReadBytes, addr: addr, length: len(dst)})
	if err != nil {
		return err
	}
	copy(dst, res.data)
	return nil
}

func (d *PtraceDebugger) WriteBytes(addr uint64, src []byte) error {
	return d.sendCommand(command{kind: cmdWriteBytes, addr: addr, data: src})
}

func (d *PtraceDebugger) pcName() string {
	if d.regs.ProgramCounter < 0 {
		return ""
	}
	return d.regs.Infos[d.regs.ProgramCounter].Name
}

func (d *PtraceDebugger) DisassembleOne(ti ThreadIndex) (*sleigh.DisasmDispInstruction, error) {
	d.mu.Lock()
	th, err := d.resolveThreadLocked(ti)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	pcBytes, err := d.ReadRegisterByName(SpecificThreadIndex(th.tid), d.pcName())
	if err != nil {
		return nil, NewError(DisassemblyFailed, "read program counter: %v", err)
	}
	var pc uint64
	for i := len(pcBytes) - 1; i >= 0; i-- {
		pc = pc<<8 | uint64(pcBytes[i])
	}

	view := NewBreakpointOverlay(d.mem, d.breakpoints)
	inst, err := d.disasm.DisasmDisplay(view, pc)
	if err != nil {
		return nil, NewError(DisassemblyFailed, "%v", err)
	}
	return inst, nil
}

func (d *PtraceDebugger) MemoryView() memview.View { return d.mem }

func (d *PtraceDebugger) journalRecord(kind string, tid int32, addr uint64, detail string) {
	if d.journal == nil {
		return
	}
	d.journal.Record(kind, tid, addr, detail)
}
