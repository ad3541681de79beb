package debugger

// PauseState is the closed set of reasons a thread may be stopped, decoded
// from the SIGTRAP si_code on the architectures this core targets (x86-64
// Linux). See decodeSiCode in ptrace_linux.go for the decode table.
type PauseState int

const (
	// Running means the thread has been resumed and no stop has been
	// observed for it yet.
	Running PauseState = iota
	// FirstStop is the initial traceme stop delivered right after execv.
	FirstStop
	// SwBreakpointHit is a stop at a software breakpoint's trap
	// instruction; the reported program counter has already been adjusted
	// to the breakpoint's address.
	SwBreakpointHit
	// SyscallHitEnd is a syscall-exit stop (PTRACE_O_TRACESYSGOOD).
	SyscallHitEnd
	// StepCompleted is a single-step stop (TRAP_TRACE).
	StepCompleted
	// StoppedUnknownReason covers any SIGTRAP whose si_code does not match
	// a known case, or any non-SIGTRAP stop signal.
	StoppedUnknownReason
	// SteppingBp is a single-step issued to clear a breakpoint's trap byte
	// before a caller-requested step completes normally; the resulting
	// StepComplete event is delivered to the caller.
	SteppingBp
	// SteppingBpContOne is the same step-over-breakpoint, but issued
	// because a ContOne was redirected; the resulting StepComplete is
	// suppressed and the thread is auto-resumed.
	SteppingBpContOne
	// SteppingBpContAll is the ContAll analogue of SteppingBpContOne.
	SteppingBpContAll
	// Exited means the thread's process has terminated; it is removed
	// from the thread table shortly after this state is observed.
	Exited
)

func (p PauseState) String() string {
	switch p {
	case Running:
		return "running"
	case FirstStop:
		return "first-stop"
	case SwBreakpointHit:
		return "breakpoint-hit"
	case SyscallHitEnd:
		return "syscall-hit-end"
	case StepCompleted:
		return "step-completed"
	case StoppedUnknownReason:
		return "stopped-unknown-reason"
	case SteppingBp:
		return "stepping-breakpoint"
	case SteppingBpContOne:
		return "stepping-breakpoint-cont-one"
	case SteppingBpContAll:
		return "stepping-breakpoint-cont-all"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// EventKind is the closed set of events WaitNextEvent can report.
type EventKind int

const (
	Failed EventKind = iota
	NoEvent
	UnknownEvent
	BreakpointHit
	StepComplete
	StepCompleteSyscall
	MiscSignalReceived
	ThreadSpawned
	ThreadKilled
	UserEvent
)

func (k EventKind) String() string {
	switch k {
	case Failed:
		return "failed"
	case NoEvent:
		return "no-event"
	case UnknownEvent:
		return "unknown-event"
	case BreakpointHit:
		return "breakpoint-hit"
	case StepComplete:
		return "step-complete"
	case StepCompleteSyscall:
		return "step-complete-syscall"
	case MiscSignalReceived:
		return "misc-signal-received"
	case ThreadSpawned:
		return "thread-spawned"
	case ThreadKilled:
		return "thread-killed"
	case UserEvent:
		return "user-event"
	default:
		return "unknown"
	}
}

// DebuggerFlags is a bitmask of session-wide behavior switches.
type DebuggerFlags uint32

const (
	// FlagNonStop disables the default all-stop behavior: a thread's stop
	// does not imply any other thread should be considered stopped.
	FlagNonStop DebuggerFlags = 1 << iota
)

// DebuggerEvent is one item returned by WaitNextEvent.
type DebuggerEvent struct {
	Kind EventKind
	// Code carries the stop signal number for MiscSignalReceived, the exit
	// code for ThreadKilled, or the id AddEventFD returned for UserEvent.
	Code uint32
	// Pid identifies the thread the event concerns; zero for UserEvent.
	Pid int32
}

// ThreadIndex selects a thread for a per-thread debugger operation: either
// "whichever thread is current" or a specific thread id. Modeled as a tagged
// struct rather than a Go interface, matching this module's convention for
// small closed sum types (see sleigh.Expression, gbf.FieldValue).
type ThreadIndex struct {
	Current bool
	TID     int32
}

// CurrentThreadIndex selects the debugger's current thread.
func CurrentThreadIndex() ThreadIndex { return ThreadIndex{Current: true} }

// SpecificThreadIndex selects a thread by id.
func SpecificThreadIndex(tid int32) ThreadIndex { return ThreadIndex{TID: tid} }
