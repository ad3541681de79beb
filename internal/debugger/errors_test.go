package debugger

import (
	"errors"
	"testing"
)

func TestErrorKindRoundTrip(t *testing.T) {
	err := NewError(InvalidThread, "no such thread %d", 42)
	kind, ok := KindOf(err)
	if !ok || kind != InvalidThread {
		t.Fatalf("KindOf(err) = %v, %v, want InvalidThread, true", kind, ok)
	}
	if !IsKind(err, InvalidThread) {
		t.Fatalf("IsKind(err, InvalidThread) = false")
	}
	if IsKind(err, NoThreads) {
		t.Fatalf("IsKind(err, NoThreads) = true, want false")
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	err := NewError(InvalidBreakpoint, "no breakpoint with id %d", 7)
	want := "invalid breakpoint: no breakpoint with id 7"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &Error{Kind: NoThreads}
	if bare.Error() != "no threads" {
		t.Fatalf("Error() with empty message = %q", bare.Error())
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := NewError(MemoryAccessFailed, "short read")
	wrapped := errors.New("context: " + base.Error())
	if _, ok := KindOf(wrapped); ok {
		t.Fatalf("KindOf on a plain wrapped string unexpectedly matched")
	}

	fmtWrapped := errors.Join(errors.New("outer"), base)
	kind, ok := KindOf(fmtWrapped)
	if !ok || kind != MemoryAccessFailed {
		t.Fatalf("KindOf(errors.Join(...)) = %v, %v, want MemoryAccessFailed, true", kind, ok)
	}
}

func TestThreadIndexConstructors(t *testing.T) {
	cur := CurrentThreadIndex()
	if !cur.Current {
		t.Fatalf("CurrentThreadIndex().Current = false")
	}

	specific := SpecificThreadIndex(99)
	if specific.Current || specific.TID != 99 {
		t.Fatalf("SpecificThreadIndex(99) = %+v", specific)
	}
}

func TestRegCacheReadWriteRoundTrip(t *testing.T) {
	c := newRegCache(16)
	if !c.dirty {
		t.Fatalf("newRegCache should start dirty")
	}
	c.write(4, []byte{0xde, 0xad, 0xbe, 0xef})
	got := c.read(4, 4)
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("read(4,4) = % x, want % x", got, want)
		}
	}
	// Bytes outside the written range stay zero.
	if z := c.read(0, 4); z[0] != 0 || z[1] != 0 || z[2] != 0 || z[3] != 0 {
		t.Fatalf("read(0,4) = % x, want zeros", z)
	}
}

func TestThreadStateSnapshot(t *testing.T) {
	th := newThreadState(1234, FirstStop, 32)
	if th.steppingBreakpointID != -1 {
		t.Fatalf("newThreadState: steppingBreakpointID = %d, want -1", th.steppingBreakpointID)
	}
	snap := th.snapshot()
	if snap.TID != 1234 || snap.Pause != FirstStop {
		t.Fatalf("snapshot() = %+v", snap)
	}
}

func TestPauseStateAndEventKindStringsAreNonEmpty(t *testing.T) {
	for p := Running; p <= Exited; p++ {
		if p.String() == "" {
			t.Fatalf("PauseState(%d).String() is empty", p)
		}
	}
	for k := Failed; k <= UserEvent; k++ {
		if k.String() == "" {
			t.Fatalf("EventKind(%d).String() is empty", k)
		}
	}
}
