package gbf

import "github.com/greyforge/core/internal/memview"

// LongInteriorNode is a LongKeyInterior block: (key, child-block-id) pairs
// sorted by key, where entry 0's key is a sentinel boundary and its value is
// the leftmost child.
type LongInteriorNode struct {
	file       *File
	EntryCount int32
	startAddr  uint64
}

const (
	interiorHdrKindLen       = 1
	interiorHdrEntryCountLen = 4
	interiorHdrLen           = interiorHdrKindLen + interiorHdrEntryCountLen
	interiorKeyLen           = 8
	interiorValueLen         = 4
	interiorEntryLen         = interiorKeyLen + interiorValueLen
)

func newLongInteriorNode(f *File, nid int32) (*LongInteriorNode, error) {
	at := f.bufferAddress(nid)
	startAddr := at

	kind, err := readU8(f.mv, &at)
	if err != nil {
		return nil, err
	}
	if NodeKind(kind) != LongKeyInterior {
		return nil, memview.NewError(memview.Generic, "unexpected block kind %d while reading long-key interior node", kind)
	}

	entryCount, err := readI32(f.mv, &at)
	if err != nil {
		return nil, err
	}

	return &LongInteriorNode{file: f, EntryCount: entryCount, startAddr: startAddr}, nil
}

func (n *LongInteriorNode) entryOffset(index int32) uint64 {
	return n.startAddr + interiorHdrLen + uint64(index)*interiorEntryLen
}

func (n *LongInteriorNode) keyAt(index int32) (int64, error) {
	at := n.entryOffset(index)
	return readI64(n.file.mv, &at)
}

func (n *LongInteriorNode) valueAt(index int32) (int32, error) {
	at := n.entryOffset(index) + interiorKeyLen
	return readI32(n.file.mv, &at)
}

func (n *LongInteriorNode) findKeyIndex(key int64) (searchMatch, error) {
	return findKeyIndexSentinel(n.EntryCount, key, n.keyAt)
}

// descend returns the child block id to follow for key: the exact match's
// child on a hit, or the predecessor child (the one covering keys below the
// insertion point) on a miss.
func (n *LongInteriorNode) descend(key int64) (int32, error) {
	m, err := n.findKeyIndex(key)
	if err != nil {
		return 0, err
	}
	if m.found {
		return n.valueAt(m.index)
	}
	return n.valueAt(m.index - 1)
}
