package gbf

import "github.com/greyforge/core/internal/memview"

// LongVarNode is a LongKeyVarRec leaf block for tables whose records are
// variable length (they contain at least one String/Bytes column). Its
// entries are a sorted (key i64, record_offset u32) index, mirroring
// LongInteriorNode's entry shape; record_offset is relative to the node's
// buffer start and locates the variable-length record bytes, which are
// decoded the same way LongFixedNode's fixed-width values are.
type LongVarNode struct {
	file        *File
	EntryCount  int32
	PrevLeafNid int32
	NextLeafNid int32
	startAddr   uint64
}

const (
	varHdrKindLen       = 1
	varHdrEntryCountLen = 4
	varHdrPrevLeafLen   = 4
	varHdrNextLeafLen   = 4
	varHdrLen           = varHdrKindLen + varHdrEntryCountLen + varHdrPrevLeafLen + varHdrNextLeafLen
	varKeyLen           = 8
	varOffsetLen        = 4
	varEntryLen         = varKeyLen + varOffsetLen
)

func newLongVarNode(f *File, nid int32) (*LongVarNode, error) {
	at := f.bufferAddress(nid)
	startAddr := at

	kind, err := readU8(f.mv, &at)
	if err != nil {
		return nil, err
	}
	if NodeKind(kind) != LongKeyVarRec {
		return nil, memview.NewError(memview.Generic, "unexpected block kind %d while reading long-key var-record node", kind)
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

	return &LongVarNode{file: f, EntryCount: entryCount, PrevLeafNid: prevLeaf, NextLeafNid: nextLeaf, startAddr: startAddr}, nil
}

func (n *LongVarNode) entryOffset(index int32) uint64 {
	return n.startAddr + varHdrLen + uint64(index)*varEntryLen
}

func (n *LongVarNode) keyAt(index int32) (int64, error) {
	at := n.entryOffset(index)
	return readI64(n.file.mv, &at)
}

func (n *LongVarNode) recordAddrAt(index int32) (uint64, error) {
	at := n.entryOffset(index) + varKeyLen
	off, err := readU32(n.file.mv, &at)
	if err != nil {
		return 0, err
	}
	return n.startAddr + uint64(off), nil
}

func (n *LongVarNode) findKeyIndex(key int64) (searchMatch, error) {
	return findKeyIndexFull(n.EntryCount, key, n.keyAt)
}

func (n *LongVarNode) entryByIndex(schema *TableSchema, index int32) (*Record, error) {
	key, err := n.keyAt(index)
	if err != nil {
		return nil, err
	}
	at, err := n.recordAddrAt(index)
	if err != nil {
		return nil, err
	}
	rec, err := schema.ReadRecord(LongValue(key), n.file.mv, &at)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (n *LongVarNode) prevNode() (*LongVarNode, error) {
	if n.PrevLeafNid == -1 {
		return nil, nil
	}
	prev, err := newLongVarNode(n.file, n.PrevLeafNid)
	if err != nil {
		return nil, err
	}
	if prev.EntryCount < 1 {
		return nil, nil
	}
	return prev, nil
}

func (n *LongVarNode) nextNode() (*LongVarNode, error) {
	if n.NextLeafNid == -1 {
		return nil, nil
	}
	next, err := newLongVarNode(n.file, n.NextLeafNid)
	if err != nil {
		return nil, err
	}
	if next.EntryCount < 1 {
		return nil, nil
	}
	return next, nil
}

func (n *LongVarNode) GetEntry(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
	}
	if !m.found {
		return nil, nil
	}
	return n.entryByIndex(schema, m.index)
}

func (n *LongVarNode) GetEntryBefore(schema *TableSchema, key int64) (*Record, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return nil, err
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

func (n *LongVarNode) GetEntryAtBefore(schema *TableSchema, key int64) (*Record, error) {
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

func (n *LongVarNode) GetEntryAfter(schema *TableSchema, key int64) (*Record, error) {
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

func (n *LongVarNode) GetEntryAtAfter(schema *TableSchema, key int64) (*Record, error) {
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

// LongVarIterator is the var-record analogue of LongFixedIterator.
type LongVarIterator struct {
	node   *LongVarNode
	index  int32
	schema *TableSchema
	done   bool
}

func newLongVarIterator(node *LongVarNode, index int32, schema *TableSchema) *LongVarIterator {
	return &LongVarIterator{node: node, index: index, schema: schema}
}

func (it *LongVarIterator) Next() (*Record, error) {
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
		next, err := newLongVarNode(it.node.file, it.node.NextLeafNid)
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
