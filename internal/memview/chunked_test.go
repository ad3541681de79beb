package memview_test

import (
	"testing"

	"github.com/greyforge/core/internal/memview"
)

func TestChunkedFreeMemoryWriteThenRead(t *testing.T) {
	c := memview.NewChunkedFreeMemory(16)

	payload := []byte("hello, chunked world")
	const addr = 1000
	if err := c.WriteBytes(addr, payload); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	got := make([]byte, len(payload))
	if err := c.ReadBytes(addr, got); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, payload)
	}
}

func TestChunkedFreeMemorySpansMultipleChunks(t *testing.T) {
	c := memview.NewChunkedFreeMemory(4)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if err := c.WriteBytes(2, payload); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	got := make([]byte, len(payload))
	if err := c.ReadBytes(2, got); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], payload[i])
		}
	}
}

func TestChunkedFreeMemoryReadOutsideValidRangeFails(t *testing.T) {
	c := memview.NewChunkedFreeMemory(16)
	if err := c.WriteBytes(100, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	// Read a region that partially overlaps the written range but extends
	// past it within the same chunk: must fail with EndOfStream, not
	// silently return zero bytes.
	got := make([]byte, 10)
	err := c.ReadBytes(100, got)
	if !memview.IsKind(err, memview.EndOfStream) {
		t.Fatalf("read past valid range: got %v, want EndOfStream", err)
	}
}

func TestChunkedFreeMemoryReadAbsentChunkFails(t *testing.T) {
	c := memview.NewChunkedFreeMemory(16)
	got := make([]byte, 4)
	err := c.ReadBytes(0, got)
	if !memview.IsKind(err, memview.EndOfStream) {
		t.Fatalf("read from never-written chunk: got %v, want EndOfStream", err)
	}
}

func TestChunkedFreeMemoryMaxAddressUnbounded(t *testing.T) {
	c := memview.NewChunkedFreeMemory(16)
	if c.MaxAddress() != memview.Unbounded {
		t.Fatalf("MaxAddress = %d, want Unbounded", c.MaxAddress())
	}
}
