package gbf

import (
	"testing"

	"github.com/greyforge/core/internal/memview"
)

func sparseSchema() *TableSchema {
	s := NewTableSchema("widgets", "ID", FieldLong, map[int32]struct{}{1: {}})
	s.AddColumn(FieldInt, "A")
	s.AddColumn(FieldInt, "B") // sparse: may be omitted per record
	s.AddColumn(FieldInt, "C")
	return s
}

func TestReadRecordSparseColumnPresent(t *testing.T) {
	// Required columns A, C inline; sparse column B supplied via the
	// trailer (field index 1, value 20).
	buf := []byte{
		0, 0, 0, 10, // A = 10
		0, 0, 0, 30, // C = 30
		1,          // sparse field count
		1,          // field index 1 (B)
		0, 0, 0, 20, // value = 20
	}
	v := memview.NewStatic(buf)
	schema := sparseSchema()

	var at uint64
	rec, err := schema.ReadRecord(LongValue(1), v, &at)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if at != uint64(len(buf)) {
		t.Fatalf("cursor ended at %d, want %d", at, len(buf))
	}

	a, _ := rec.GetInt(0)
	b, _ := rec.GetInt(1)
	c, _ := rec.GetInt(2)
	if a != 10 || b != 20 || c != 30 {
		t.Fatalf("got (A=%d, B=%d, C=%d), want (10, 20, 30)", a, b, c)
	}
}

func TestReadRecordSparseColumnOmitted(t *testing.T) {
	// Sparse column B is absent from this record entirely: no trailer
	// entry at all, so it should decode to its zero value.
	buf := []byte{
		0, 0, 0, 10, // A = 10
		0, 0, 0, 30, // C = 30
		0, // sparse field count = 0
	}
	v := memview.NewStatic(buf)
	schema := sparseSchema()

	var at uint64
	rec, err := schema.ReadRecord(LongValue(1), v, &at)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}

	a, _ := rec.GetInt(0)
	b, _ := rec.GetInt(1)
	c, _ := rec.GetInt(2)
	if a != 10 || b != 0 || c != 30 {
		t.Fatalf("got (A=%d, B=%d, C=%d), want (10, 0, 30)", a, b, c)
	}
}
