package gbf_test

import (
	"encoding/binary"
	"testing"

	"github.com/greyforge/core/internal/gbf"
	"github.com/greyforge/core/internal/memview"
)

// masterRow describes one row to encode into a synthetic master table, in
// the shape gbf.Open expects to find at the db-parms root buffer id.
type masterRow struct {
	tableName   string
	rootBuffer  int32
	keyType     byte
	fieldTypes  []byte
	fieldNames  string // "<key>;<col1>;<col2>;" on disk
	indexColumn int32
	maxKey      int64
	recordCount int32
}

func encodeMasterRow(r masterRow) []byte {
	buf := make([]byte, 0, 64)
	buf = appendString(buf, r.tableName)
	buf = appendI32(buf, 1) // SchemaVersion
	buf = appendI32(buf, r.rootBuffer)
	buf = append(buf, r.keyType)
	buf = appendBytesField(buf, r.fieldTypes)
	buf = appendString(buf, r.fieldNames)
	buf = appendI32(buf, r.indexColumn)
	buf = appendI64(buf, r.maxKey)
	buf = appendI32(buf, r.recordCount)
	return buf
}

func appendI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendI64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendI32(buf, int32(len(s)))
	return append(buf, s...)
}

func appendBytesField(buf []byte, b []byte) []byte {
	buf = appendI32(buf, int32(len(b)))
	return append(buf, b...)
}

// buildGbfFile assembles a minimal well-formed GBF file: a header, a
// block-0 db-parms chained-buffer block, and a block-1 master table stored
// as a single LongKeyVarRec leaf listing rows.
func buildGbfFile(blockSize int32, rows []masterRow) []byte {
	const blockCount = 2
	total := make([]byte, int(blockSize)*(blockCount+1))

	// Header.
	binary.BigEndian.PutUint64(total[0:], 0x736c6100)
	binary.BigEndian.PutUint64(total[8:], 1)
	binary.BigEndian.PutUint32(total[16:], 1) // format_version
	binary.BigEndian.PutUint32(total[20:], uint32(blockSize))
	binary.BigEndian.PutUint32(total[24:], 0) // first_free_buffer_idx

	// Block 0: db parms (chained-buffer data tag), root buffer id = 1.
	block0Addr := uint64(blockSize) * 1
	total[block0Addr] = 9 // ChainedBufData
	dbParmsAt := block0Addr + 5
	total[dbParmsAt] = 1 // node_code (unchecked)
	binary.BigEndian.PutUint32(total[dbParmsAt+1:], 13) // data_len = 1 + 4*3
	total[dbParmsAt+5] = 1                               // version
	binary.BigEndian.PutUint32(total[dbParmsAt+6:], 1)   // master root buffer id
	binary.BigEndian.PutUint32(total[dbParmsAt+10:], 0)  // db id high
	binary.BigEndian.PutUint32(total[dbParmsAt+14:], 0)  // db id low

	// Block 1: master table, a single LongKeyVarRec leaf.
	block1Addr := uint64(blockSize) * 2
	total[block1Addr] = 1 // outer tag: LongKeyVarRec
	nodeStart := block1Addr + 5

	records := make([][]byte, len(rows))
	for i, r := range rows {
		records[i] = encodeMasterRow(r)
	}

	entryTableLen := uint64(13 + len(rows)*12)
	recordsStart := entryTableLen

	at := nodeStart
	total[at] = 1 // node-local kind
	at++
	binary.BigEndian.PutUint32(total[at:], uint32(len(rows)))
	at += 4
	binary.BigEndian.PutUint32(total[at:], uint32(int32(-1))) // prev leaf
	at += 4
	binary.BigEndian.PutUint32(total[at:], uint32(int32(-1))) // next leaf
	at += 4

	recOff := recordsStart
	for i, rec := range records {
		binary.BigEndian.PutUint64(total[at:], uint64(int64(i))) // key = row index
		at += 8
		binary.BigEndian.PutUint32(total[at:], uint32(recOff))
		at += 4
		recOff += uint64(len(rec))
	}

	dataAt := nodeStart + recordsStart
	for _, rec := range records {
		copy(total[dataAt:], rec)
		dataAt += uint64(len(rec))
	}

	return total
}

func TestOpenMasterTableGroupsBaseAndIndexTables(t *testing.T) {
	const blockSize = 512
	rows := []masterRow{
		{
			tableName:   "Metadata",
			rootBuffer:  7,
			keyType:     byte(gbf.FieldLong),
			fieldTypes:  []byte{byte(gbf.FieldInt)},
			fieldNames:  "ID;Value;",
			indexColumn: -1,
		},
		{
			tableName:   "Symbols",
			rootBuffer:  13,
			keyType:     byte(gbf.FieldLong),
			fieldTypes:  []byte{byte(gbf.FieldString), byte(gbf.FieldLong)},
			fieldNames:  "Key;Name;Address;",
			indexColumn: -1,
		},
		{
			tableName:   "Symbols",
			rootBuffer:  14,
			keyType:     byte(gbf.FieldLong),
			fieldTypes:  []byte{byte(gbf.FieldLong)},
			fieldNames:  "Key;Address;",
			indexColumn: 1,
		},
	}

	buf := buildGbfFile(blockSize, rows)
	v := memview.NewStatic(buf)

	f, err := gbf.Open(v, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	names := f.Catalog.Tables()
	if len(names) != 2 {
		t.Fatalf("Tables() = %v, want 2 base tables", names)
	}

	metadata, ok := f.Catalog.Table("Metadata")
	if !ok {
		t.Fatalf("Metadata table not found")
	}
	if metadata.RootNid != 7 {
		t.Errorf("Metadata.RootNid = %d, want 7", metadata.RootNid)
	}
	if len(metadata.IndexTableDefs) != 0 {
		t.Errorf("Metadata has %d index tables, want 0", len(metadata.IndexTableDefs))
	}

	symbols, ok := f.Catalog.Table("Symbols")
	if !ok {
		t.Fatalf("Symbols table not found")
	}
	if symbols.RootNid != 13 {
		t.Errorf("Symbols.RootNid = %d, want 13", symbols.RootNid)
	}
	if len(symbols.IndexTableDefs) != 1 {
		t.Fatalf("Symbols has %d index tables, want 1", len(symbols.IndexTableDefs))
	}
	if symbols.IndexTableDefs[0].RootNid != 14 {
		t.Errorf("Symbols index RootNid = %d, want 14", symbols.IndexTableDefs[0].RootNid)
	}
}

func TestOpenRejectsIndexTableBeforeBaseTable(t *testing.T) {
	const blockSize = 512
	rows := []masterRow{
		{
			tableName:   "Symbols",
			rootBuffer:  14,
			keyType:     byte(gbf.FieldLong),
			fieldTypes:  []byte{byte(gbf.FieldLong)},
			fieldNames:  "Key;Address;",
			indexColumn: 1, // index row, but no base row for "Symbols" precedes it
		},
	}

	buf := buildGbfFile(blockSize, rows)
	v := memview.NewStatic(buf)

	_, err := gbf.Open(v, 0)
	if err == nil {
		t.Fatalf("Open: want error, got nil")
	}
}
