package debugger

// ThreadInfo is a read-only snapshot of one traced thread's state, as
// returned by ListThreads/CurrentThread. The live copy (threadState) carries
// additional bookkeeping (the register cache, the stepping-breakpoint slot)
// that is not part of the public snapshot.
type ThreadInfo struct {
	TID   int32
	Pause PauseState
}

// resumeIntent records why a thread was put into one of the SteppingBp*
// pause states. Whether the resulting StepComplete event is surfaced or
// suppressed with an auto-resume is decided from that SteppingBp* pause
// state itself (see finishStepOverBreakpointLocked).
type resumeIntent int

const (
	resumeNone resumeIntent = iota
	resumeOne
	resumeAll
)

// threadState is the live, mutable per-thread record kept under the
// debugger's state mutex.
type threadState struct {
	tid   int32
	pause PauseState

	// steppingBreakpointID is the id of the breakpoint whose trap byte was
	// removed to single-step over it, or -1 when no step-over is pending.
	steppingBreakpointID int32
	resume               resumeIntent

	regCache regCache
}

func newThreadState(tid int32, pause PauseState, cacheSize uint32) *threadState {
	return &threadState{
		tid:                  tid,
		pause:                pause,
		steppingBreakpointID: -1,
		regCache:             newRegCache(cacheSize),
	}
}

func (t *threadState) snapshot() ThreadInfo {
	return ThreadInfo{TID: t.tid, Pause: t.pause}
}

// regCache is the chunked register store described in spec.md §4.4
// ("Register cache keying"): a single flat buffer per thread, indexed by
// SLEIGH address, refreshed as a unit whenever dirty.
type regCache struct {
	dirty bool
	data  []byte
}

func newRegCache(size uint32) regCache {
	return regCache{dirty: true, data: make([]byte, size)}
}

func (c *regCache) read(addr, size uint32) []byte {
	out := make([]byte, size)
	copy(out, c.data[addr:addr+size])
	return out
}

func (c *regCache) write(addr uint32, b []byte) {
	copy(c.data[addr:addr+uint32(len(b))], b)
}
