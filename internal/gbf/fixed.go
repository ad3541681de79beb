package gbf

import "github.com/greyforge/core/internal/memview"

// LongFixedNode is a LongKeyFixedRec leaf block: entries are (key i64,
// fixed-width value)[entry_count], plus previous/next leaf links for
// forward and backward neighbor traversal.
type LongFixedNode struct {
	file         *File
	EntryCount   int32
	PrevLeafNid  int32
	NextLeafNid  int32
	startAddr    uint64
	valueLen     int32
}

const (
	fixedHdrKindLen       = 1
	fixedHdrEntryCountLen = 4
	fixedHdrPrevLeafLen   = 4
	fixedHdrNextLeafLen   = 4
	fixedHdrLen           = fixedHdrKindLen + fixedHdrEntryCountLen + fixedHdrPrevLeafLen + fixedHdrNextLeafLen
	fixedKeyLen           = 8
)

func newLongFixedNode(f *File, nid int32, valueLen int32) (*LongFixedNode, error) {
	at := f.bufferAddress(nid)
	startAddr := at

	kind, err := readU8(f.mv, &at)
	if err != nil {
		return nil, err
	}
	if NodeKind(kind) != LongKeyFixedRec {
		return nil, memview.NewError(memview.Generic, "unexpected block kind %d while reading long-key fixed-record node", kind)
	}

	entryCount, err := readI32(f.mv, &at)
	if err != nil {
		return nil, err
	}
	prevLeaf, err := readI32(f.mv, &at)
	if err != nil {
		return nil, err
	}
	nextLeaf, err := readI32(f.mv, &at)
	if err != nil {
		return nil, err
	}

	return &LongFixedNode{
		file:        f,
		EntryCount:  entryCount,
		PrevLeafNid: prevLeaf,
		NextLeafNid: nextLeaf,
		startAddr:   startAddr,
		valueLen:    valueLen,
	}, nil
}

func (n *LongFixedNode) entryOffset(index int32) uint64 {
	return n.startAddr + fixedHdrLen + uint64(index)*(fixedKeyLen+uint64(n.valueLen))
}

func (n *LongFixedNode) keyAt(index int32) (int64, error) {
	at := n.entryOffset(index)
	return readI64(n.file.mv, &at)
}

func (n *LongFixedNode) valueAddrAt(index int32) uint64 {
	return n.entryOffset(index) + fixedKeyLen
}

func (n *LongFixedNode) findKeyIndex(key int64) (searchMatch, error) {
	return findKeyIndexFull(n.EntryCount, key, n.keyAt)
}

// entryByIndex decodes the record at index, always reading its real stored
// key rather than trusting a caller-supplied search key.
func (n *LongFixedNode) entryByIndex(schema *TableSchema, index int32) (*Record, error) {
	key, err := n.keyAt(index)
	if err != nil {
		return nil, err
	}
	at := n.valueAddrAt(index)
	rec, err := schema.ReadRecord(LongValue(key), n.file.mv, &at)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (n *LongFixedNode) prevNode() (*LongFixedNode, error) {
	if n.PrevLeafNid == -1 {
		return nil, nil
	}
	prev, err := newLongFixedNode(n.file, n.PrevLeafNid, n.valueLen)
	if err != nil {
		return nil, err
	}
	if prev.EntryCount < 1 {
		return nil, nil
	}
	return prev, nil
}

func (n *LongFixedNode) nextNode() (*LongFixedNode, error) {
	if n.NextLeafNid == -1 {
		return nil, nil
	}
	next, err := newLongFixedNode(n.file, n.NextLeafNid, n.valueLen)
	if err != nil {
		return nil, err
	}
	if next.EntryCount < 1 {
		return nil, nil
	}
	return next, nil
}

func (n *LongFixedNode) GetEntry(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	if !m.found {
		return nil, nil
	}
	return n.entryByIndex(schema, m.index)
}

func (n *LongFixedNode) GetEntryBefore(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	// Strict: an exact match's predecessor, or a miss's insertion-point
	// predecessor — both are index-1.
	resultIndex := m.index - 1
	if resultIndex < 0 {
		prev, err := n.prevNode()
		if err != nil || prev == nil {
			return nil, err
		}
		return prev.entryByIndex(schema, prev.EntryCount-1)
	}
	return n.entryByIndex(schema, resultIndex)
}

func (n *LongFixedNode) GetEntryAtBefore(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	if m.found {
		return n.entryByIndex(schema, m.index)
	}
	resultIndex := m.index - 1
	if resultIndex < 0 {
		prev, err := n.prevNode()
		if err != nil || prev == nil {
			return nil, err
		}
		return prev.entryByIndex(schema, prev.EntryCount-1)
	}
	return n.entryByIndex(schema, resultIndex)
}

func (n *LongFixedNode) GetEntryAfter(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	resultIndex := m.index
	if m.found {
		resultIndex = m.index + 1
	}
	if resultIndex >= n.EntryCount {
		next, err := n.nextNode()
		if err != nil || next == nil {
			return nil, err
		}
		return next.entryByIndex(schema, 0)
	}
	return n.entryByIndex(schema, resultIndex)
}

func (n *LongFixedNode) GetEntryAtAfter(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	if m.found {
		return n.entryByIndex(schema, m.index)
	}
	resultIndex := m.index
	if resultIndex >= n.EntryCount {
		next, err := n.nextNode()
		if err != nil || next == nil {
			return nil, err
		}
		return next.entryByIndex(schema, 0)
	}
	return n.entryByIndex(schema, resultIndex)
}

// LongFixedIterator walks forward across leaf-chain boundaries in ascending
// key order, starting at a given (node, index) position.
type LongFixedIterator struct {
	node   *LongFixedNode
	index  int32
	schema *TableSchema
	done   bool
}

func newLongFixedIterator(node *LongFixedNode, index int32, schema *TableSchema) *LongFixedIterator {
	return &LongFixedIterator{node: node, index: index, schema: schema}
}

// Next returns the next record, or (nil, nil) once iteration is exhausted.
func (it *LongFixedIterator) Next() (*Record, error) {
	if it.done {
		return nil, nil
	}

	entry, err := it.node.entryByIndex(it.schema, it.index)
	if err != nil {
		it.done = true
		return nil, err
	}

	if it.index+1 < it.node.EntryCount {
		it.index++
	} else if it.node.NextLeafNid == -1 {
		it.done = true
	} else {
		next, err := newLongFixedNode(it.node.file, it.node.NextLeafNid, it.node.valueLen)
		if err != nil {
			it.done = true
			return nil, err
		}
		if next.EntryCount < 1 {
			it.done = true
		} else {
			it.node = next
			it.index = 0
		}
	}

	return entry, nil
}
