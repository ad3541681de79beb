package gbf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/greyforge/core/internal/memview"
)

func TestChainedBufferViewNonIndexed(t *testing.T) {
	const blockSize = 64
	buf := make([]byte, int(blockSize)*2)

	payload := []byte("HelloWorld")
	buf[blockAddressStatic(0, blockSize)] = byte(ChainedBufData)

	at := bufferAddressStatic(0, blockSize)
	buf[at] = byte(ChainedBufData)
	binary.BigEndian.PutUint32(buf[at+1:], uint32(len(payload)))
	copy(buf[at+5:], payload)

	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}

	cb, err := NewChainedBufferView(f, 0)
	if err != nil {
		t.Fatalf("NewChainedBufferView: %v", err)
	}
	if cb.MaxAddress() != uint64(len(payload)) {
		t.Fatalf("MaxAddress() = %d, want %d", cb.MaxAddress(), len(payload))
	}

	got := make([]byte, len(payload))
	if err := cb.ReadBytes(0, got); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadBytes = %q, want %q", got, payload)
	}
}

func TestChainedBufferViewObfuscatedUnsupported(t *testing.T) {
	const blockSize = 64
	buf := make([]byte, int(blockSize)*2)

	buf[blockAddressStatic(0, blockSize)] = byte(ChainedBufData)
	at := bufferAddressStatic(0, blockSize)
	buf[at] = byte(ChainedBufData)
	binary.BigEndian.PutUint32(buf[at+1:], 0x80000005) // high bit set: obfuscated

	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}

	_, err := NewChainedBufferView(f, 0)
	if err == nil {
		t.Fatalf("NewChainedBufferView: want error, got nil")
	}
	if kind, ok := memview.KindOf(err); !ok || kind != memview.Unsupported {
		t.Fatalf("KindOf(err) = (%v, %v), want (Unsupported, true)", kind, ok)
	}
}

// TestChainedBufferViewIndexed builds a logical 40-byte buffer split across
// two chained data blocks (nid 1 and 2), reached through a single index
// block (nid 0) holding both data block ids plus two unused -1 padding
// slots, matching spec.md's chained-buffer layout.
func TestChainedBufferViewIndexed(t *testing.T) {
	const blockSize = 32
	buf := make([]byte, int(blockSize)*4)

	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i)
	}

	// Index block (root, nid 0): kind, total_size, then
	// next_index_block + 4 data block id slots.
	indexAt := bufferAddressStatic(0, blockSize)
	buf[indexAt] = byte(ChainedBufIndex)
	binary.BigEndian.PutUint32(buf[indexAt+1:], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[indexAt+5:], uint32(int32(-1))) // next_index_block (unused)
	binary.BigEndian.PutUint32(buf[indexAt+9:], 1)                 // data_block_ids[0] = nid 1
	binary.BigEndian.PutUint32(buf[indexAt+13:], 2)                // data_block_ids[1] = nid 2
	binary.BigEndian.PutUint32(buf[indexAt+17:], uint32(int32(-1)))
	binary.BigEndian.PutUint32(buf[indexAt+21:], uint32(int32(-1)))

	// Data block 1: first 26 bytes of the payload, after its 1-byte prefix.
	data1At := bufferAddressStatic(1, blockSize)
	copy(buf[data1At+1:], payload[:26])

	// Data block 2: remaining 14 bytes.
	data2At := bufferAddressStatic(2, blockSize)
	copy(buf[data2At+1:], payload[26:])

	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}

	cb, err := NewChainedBufferView(f, 0)
	if err != nil {
		t.Fatalf("NewChainedBufferView: %v", err)
	}
	if cb.MaxAddress() != uint64(len(payload)) {
		t.Fatalf("MaxAddress() = %d, want %d", cb.MaxAddress(), len(payload))
	}

	got := make([]byte, len(payload))
	if err := cb.ReadBytes(0, got); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadBytes = %v, want %v", got, payload)
	}
}

func TestChainedBufferViewWritesRejected(t *testing.T) {
	const blockSize = 64
	buf := make([]byte, int(blockSize)*2)
	buf[blockAddressStatic(0, blockSize)] = byte(ChainedBufData)
	at := bufferAddressStatic(0, blockSize)
	buf[at] = byte(ChainedBufData)
	binary.BigEndian.PutUint32(buf[at+1:], 4)

	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}

	cb, err := NewChainedBufferView(f, 0)
	if err != nil {
		t.Fatalf("NewChainedBufferView: %v", err)
	}
	err = cb.WriteBytes(0, []byte{1, 2, 3, 4})
	if !memview.IsKind(err, memview.WriteAccessDenied) {
		t.Fatalf("WriteBytes err = %v, want WriteAccessDenied", err)
	}
}
