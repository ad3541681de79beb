package debugger

import (
	"testing"

	"github.com/greyforge/core/internal/memview"
)

func TestBreakpointTableAddRejectsDuplicateAddress(t *testing.T) {
	bt := newBreakpointTable()
	if _, err := bt.Add(0x1000, 0x55, 0xcc); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := bt.Add(0x1000, 0x90, 0xcc)
	if !IsKind(err, InvalidBreakpoint) {
		t.Fatalf("Add duplicate addr: got err %v, want InvalidBreakpoint", err)
	}
}

func TestBreakpointTableFindAndRemove(t *testing.T) {
	bt := newBreakpointTable()
	id1, _ := bt.Add(0x2000, 0x01, 0xcc)
	id2, _ := bt.Add(0x1000, 0x02, 0xcc)
	id3, _ := bt.Add(0x3000, 0x03, 0xcc)

	entry, ok := bt.FindByAddr(0x1000)
	if !ok || entry.ID != id2 || entry.OrigByte != 0x02 {
		t.Fatalf("FindByAddr(0x1000) = %+v, %v", entry, ok)
	}

	if _, ok := bt.FindByAddr(0x1234); ok {
		t.Fatalf("FindByAddr(0x1234) found an entry that was never added")
	}

	removed, err := bt.Remove(id1)
	if err != nil || removed.Addr != 0x2000 {
		t.Fatalf("Remove(id1): %+v, %v", removed, err)
	}

	if _, ok := bt.Get(id1); ok {
		t.Fatalf("Get(id1) still found the entry after Remove")
	}
	if e, ok := bt.Get(id2); !ok || e.Addr != 0x1000 {
		t.Fatalf("Get(id2) after removing id1 = %+v, %v", e, ok)
	}
	if e, ok := bt.Get(id3); !ok || e.Addr != 0x3000 {
		t.Fatalf("Get(id3) after removing id1 = %+v, %v", e, ok)
	}

	if _, err := bt.Remove(id1); !IsKind(err, InvalidBreakpoint) {
		t.Fatalf("Remove(id1) twice: got err %v, want InvalidBreakpoint", err)
	}
}

func TestBreakpointTableInRange(t *testing.T) {
	bt := newBreakpointTable()
	bt.Add(0x100, 0, 0xcc)
	bt.Add(0x105, 0, 0xcc)
	bt.Add(0x110, 0, 0xcc)
	bt.Add(0x200, 0, 0xcc)

	got := bt.InRange(0x100, 0x10)
	if len(got) != 2 || got[0].Addr != 0x100 || got[1].Addr != 0x105 {
		t.Fatalf("InRange(0x100, 0x10) = %+v", got)
	}

	if got := bt.InRange(0x300, 0x10); len(got) != 0 {
		t.Fatalf("InRange(0x300, 0x10) = %+v, want none", got)
	}

	if got := bt.InRange(0x100, 0); got != nil {
		t.Fatalf("InRange with zero length = %+v, want nil", got)
	}
}

func TestBreakpointOverlayReadSubstitutesOriginalByte(t *testing.T) {
	buf := []byte{0x11, 0x22, 0xcc, 0x44, 0x55, 0x66}
	inner := memview.NewStatic(buf)
	bt := newBreakpointTable()
	if _, err := bt.Add(2, 0x33, 0xcc); err != nil {
		t.Fatalf("Add: %v", err)
	}
	overlay := NewBreakpointOverlay(inner, bt)

	dst := make([]byte, len(buf))
	if err := overlay.ReadBytes(0, dst); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	want := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("ReadBytes = % x, want % x", dst, want)
		}
	}

	// The raw (non-overlaid) view still reports the trap byte.
	rawDst := make([]byte, len(buf))
	if err := inner.ReadBytes(0, rawDst); err != nil {
		t.Fatalf("inner ReadBytes: %v", err)
	}
	if rawDst[2] != 0xcc {
		t.Fatalf("raw view byte at breakpoint = %#x, want 0xcc", rawDst[2])
	}
}

func TestBreakpointOverlayWritePassesThrough(t *testing.T) {
	buf := []byte{0, 0, 0xcc, 0}
	inner := memview.NewStatic(buf)
	bt := newBreakpointTable()
	bt.Add(2, 0x33, 0xcc)
	overlay := NewBreakpointOverlay(inner, bt)

	if err := overlay.WriteBytes(0, []byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if buf[0] != 0xaa || buf[1] != 0xbb {
		t.Fatalf("buf after write = % x", buf)
	}
}

func TestBreakpointOverlayDelegatesCapabilities(t *testing.T) {
	inner := memview.NewStatic(make([]byte, 16))
	overlay := NewBreakpointOverlay(inner, newBreakpointTable())
	if overlay.MaxAddress() != inner.MaxAddress() {
		t.Fatalf("MaxAddress mismatch")
	}
	if overlay.CanReadWhileRunning() != inner.CanReadWhileRunning() {
		t.Fatalf("CanReadWhileRunning mismatch")
	}
	if overlay.CanWriteWhileRunning() != inner.CanWriteWhileRunning() {
		t.Fatalf("CanWriteWhileRunning mismatch")
	}
}
