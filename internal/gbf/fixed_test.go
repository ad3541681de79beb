package gbf

import (
	"encoding/binary"
	"testing"

	"github.com/greyforge/core/internal/memview"
)

// buildFixedLeafBuffer lays out a single LongKeyFixedRec block (no outer
// file header, no interior nodes) holding the given (key, value int32)
// pairs, matching the on-disk shape described in spec.md §6.
func buildFixedLeafBuffer(blockSize int32, entries [][2]int32) []byte {
	buf := make([]byte, 1024)
	startAddr := bufferAddressStatic(0, blockSize)

	buf[blockAddressStatic(0, blockSize)] = byte(LongKeyFixedRec) // outer block tag

	at := startAddr
	buf[at] = byte(LongKeyFixedRec) // node-local kind
	at++
	binary.BigEndian.PutUint32(buf[at:], uint32(len(entries)))
	at += 4
	binary.BigEndian.PutUint32(buf[at:], uint32(int32(-1)))
	at += 4
	binary.BigEndian.PutUint32(buf[at:], uint32(int32(-1)))
	at += 4

	for _, e := range entries {
		binary.BigEndian.PutUint64(buf[at:], uint64(int64(e[0])))
		at += 8
		binary.BigEndian.PutUint32(buf[at:], uint32(e[1]))
		at += 4
	}

	return buf
}

func testSchema() *TableSchema {
	s := NewTableSchema("widgets", "ID", FieldLong, nil)
	s.AddColumn(FieldInt, "Value")
	return s
}

func TestLongFixedNodeNeighborLookup(t *testing.T) {
	const blockSize = 64
	buf := buildFixedLeafBuffer(blockSize, [][2]int32{{10, 100}, {20, 200}, {30, 300}, {40, 400}})
	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}
	schema := testSchema()
	tv := NewTableView(f, schema, 0)

	rec, err := tv.GetRecordAtBeforeLong(25)
	if err != nil {
		t.Fatalf("GetRecordAtBeforeLong(25): %v", err)
	}
	if rec == nil || rec.Key.I64 != 20 {
		t.Fatalf("GetRecordAtBeforeLong(25) = %+v, want key 20", rec)
	}

	rec, err = tv.GetRecordAfterLong(30)
	if err != nil {
		t.Fatalf("GetRecordAfterLong(30): %v", err)
	}
	if rec == nil || rec.Key.I64 != 40 {
		t.Fatalf("GetRecordAfterLong(30) = %+v, want key 40", rec)
	}

	rec, err = tv.GetRecordAfterLong(40)
	if err != nil {
		t.Fatalf("GetRecordAfterLong(40): %v", err)
	}
	if rec != nil {
		t.Fatalf("GetRecordAfterLong(40) = %+v, want none", rec)
	}
}

func TestLongFixedNodeStrictBeforeAfterNeverMatchKey(t *testing.T) {
	const blockSize = 64
	buf := buildFixedLeafBuffer(blockSize, [][2]int32{{10, 100}, {20, 200}, {30, 300}, {40, 400}})
	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}
	schema := testSchema()
	tv := NewTableView(f, schema, 0)

	for _, key := range []int64{10, 20, 30, 40} {
		before, err := tv.GetRecordBeforeLong(key)
		if err != nil {
			t.Fatalf("GetRecordBeforeLong(%d): %v", key, err)
		}
		if before != nil && before.Key.I64 == key {
			t.Errorf("GetRecordBeforeLong(%d) returned exact match %+v", key, before)
		}

		after, err := tv.GetRecordAfterLong(key)
		if err != nil {
			t.Fatalf("GetRecordAfterLong(%d): %v", key, err)
		}
		if after != nil && after.Key.I64 == key {
			t.Errorf("GetRecordAfterLong(%d) returned exact match %+v", key, after)
		}
	}
}

func TestLongFixedNodeAtBeforeAtAfterPreferExact(t *testing.T) {
	const blockSize = 64
	buf := buildFixedLeafBuffer(blockSize, [][2]int32{{10, 100}, {20, 200}, {30, 300}, {40, 400}})
	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}
	schema := testSchema()
	tv := NewTableView(f, schema, 0)

	rec, err := tv.GetRecordAtBeforeLong(20)
	if err != nil {
		t.Fatalf("GetRecordAtBeforeLong(20): %v", err)
	}
	if rec == nil || rec.Key.I64 != 20 {
		t.Fatalf("GetRecordAtBeforeLong(20) = %+v, want exact key 20", rec)
	}

	rec, err = tv.GetRecordAtAfterLong(30)
	if err != nil {
		t.Fatalf("GetRecordAtAfterLong(30): %v", err)
	}
	if rec == nil || rec.Key.I64 != 30 {
		t.Fatalf("GetRecordAtAfterLong(30) = %+v, want exact key 30", rec)
	}
}

func TestTableViewIterationVisitsAllInOrder(t *testing.T) {
	const blockSize = 64
	buf := buildFixedLeafBuffer(blockSize, [][2]int32{{10, 100}, {20, 200}, {30, 300}, {40, 400}})
	v := memview.NewStatic(buf)
	f := &File{BlockSize: blockSize, mv: v}
	schema := testSchema()
	tv := NewTableView(f, schema, 0)

	it, err := NewTableViewIterator(tv, minInt64)
	if err != nil {
		t.Fatalf("NewTableViewIterator: %v", err)
	}

	var keys []int64
	for {
		rec, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if rec == nil {
			break
		}
		keys = append(keys, rec.Key.I64)
	}

	want := []int64{10, 20, 30, 40}
	if len(keys) != len(want) {
		t.Fatalf("got %v keys, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}
