package gbf

import "github.com/greyforge/core/internal/memview"

// TableView reads one table, rooted at a block whose kind is an interior
// node (or directly a leaf, for a small table).
type TableView struct {
	file    *File
	schema  *TableSchema
	rootNid int32
}

func NewTableView(f *File, schema *TableSchema, rootNid int32) *TableView {
	return &TableView{file: f, schema: schema, rootNid: rootNid}
}

// getLeafNodeLong descends from the root to the leaf block that would hold
// key. Descent has no cycle detection in the on-disk format, so this bounds
// the number of hops by the file's block count: a well-formed tree's height
// never approaches that bound, and a corrupt file that loops surfaces as a
// Generic error instead of hanging.
func (tv *TableView) getLeafNodeLong(key int64) (int32, error) {
	maxDepth := tv.file.BlockCount + 1
	if maxDepth < 1 {
		maxDepth = 1
	}

	curNid := tv.rootNid
	for depth := int32(0); depth <= maxDepth; depth++ {
		kind, err := tv.file.ReadBlockKind(curNid)
		if err != nil {
			return 0, err
		}
		switch NodeKind(kind) {
		case LongKeyInterior:
			interior, err := newLongInteriorNode(tv.file, curNid)
			if err != nil {
				return 0, err
			}
			curNid, err = interior.descend(key)
			if err != nil {
				return 0, err
			}
		case LongKeyFixedRec, LongKeyVarRec:
			return curNid, nil
		default:
			return 0, memview.NewError(memview.Generic, "unexpected block kind %d while finding long leaf node", kind)
		}
	}
	return 0, memview.NewError(memview.Generic, "exceeded maximum B+tree descent depth (%d); file may be corrupt", maxDepth)
}

func (tv *TableView) GetRecordAtLong(key int64) (*Record, error) {
	return tv.dispatch(key, func(n *LongFixedNode) (*Record, error) { return n.GetEntry(tv.schema, key) },
		func(n *LongVarNode) (*Record, error) { return n.GetEntry(tv.schema, key) })
}

func (tv *TableView) GetRecordBeforeLong(key int64) (*Record, error) {
	return tv.dispatch(key, func(n *LongFixedNode) (*Record, error) { return n.GetEntryBefore(tv.schema, key) },
		func(n *LongVarNode) (*Record, error) { return n.GetEntryBefore(tv.schema, key) })
}

func (tv *TableView) GetRecordAtBeforeLong(key int64) (*Record, error) {
	return tv.dispatch(key, func(n *LongFixedNode) (*Record, error) { return n.GetEntryAtBefore(tv.schema, key) },
		func(n *LongVarNode) (*Record, error) { return n.GetEntryAtBefore(tv.schema, key) })
}

func (tv *TableView) GetRecordAfterLong(key int64) (*Record, error) {
	return tv.dispatch(key, func(n *LongFixedNode) (*Record, error) { return n.GetEntryAfter(tv.schema, key) },
		func(n *LongVarNode) (*Record, error) { return n.GetEntryAfter(tv.schema, key) })
}

func (tv *TableView) GetRecordAtAfterLong(key int64) (*Record, error) {
	return tv.dispatch(key, func(n *LongFixedNode) (*Record, error) { return n.GetEntryAtAfter(tv.schema, key) },
		func(n *LongVarNode) (*Record, error) { return n.GetEntryAtAfter(tv.schema, key) })
}

func (tv *TableView) dispatch(
	key int64,
	onFixed func(*LongFixedNode) (*Record, error),
	onVar func(*LongVarNode) (*Record, error),
) (*Record, error) {
	leafNid, err := tv.getLeafNodeLong(key)
	if err != nil {
		return nil, err
	}
	kind, err := tv.file.ReadBlockKind(leafNid)
	if err != nil {
		return nil, err
	}
	switch NodeKind(kind) {
	case LongKeyVarRec:
		n, err := newLongVarNode(tv.file, leafNid)
		if err != nil {
			return nil, err
		}
		return onVar(n)
	case LongKeyFixedRec:
		n, err := newLongFixedNode(tv.file, leafNid, tv.schema.ValueLen())
		if err != nil {
			return nil, err
		}
		return onFixed(n)
	default:
		return nil, memview.NewError(memview.Generic, "unexpected block kind %d while finding record", kind)
	}
}

// TableViewIterator walks a table's records in ascending key order, starting
// at the first record whose key is >= key.
type TableViewIterator struct {
	fixed *LongFixedIterator
	var_  *LongVarIterator
}

func NewTableViewIterator(tv *TableView, key int64) (*TableViewIterator, error) {
	leafNid, err := tv.getLeafNodeLong(key)
	if err != nil {
		return nil, err
	}
	kind, err := tv.file.ReadBlockKind(leafNid)
	if err != nil {
		return nil, err
	}

	switch NodeKind(kind) {
	case LongKeyVarRec:
		node, err := newLongVarNode(tv.file, leafNid)
		if err != nil {
			return nil, err
		}
		if node.EntryCount == 0 {
			return &TableViewIterator{}, nil
		}
		m, err := node.findKeyIndex(key)
		if err != nil {
			return nil, err
		}
		idx := m.index
		if idx < 0 {
			idx = 0
		}
		if idx >= node.EntryCount {
			if node, err = node.nextNode(); err != nil {
				return nil, err
			} else if node == nil {
				return &TableViewIterator{}, nil
			}
			idx = 0
		}
		return &TableViewIterator{var_: newLongVarIterator(node, idx, tv.schema)}, nil
	case LongKeyFixedRec:
		node, err := newLongFixedNode(tv.file, leafNid, tv.schema.ValueLen())
		if err != nil {
			return nil, err
		}
		if node.EntryCount == 0 {
			return &TableViewIterator{}, nil
		}
		m, err := node.findKeyIndex(key)
		if err != nil {
			return nil, err
		}
		idx := m.index
		if idx < 0 {
			idx = 0
		}
		if idx >= node.EntryCount {
			if node, err = node.nextNode(); err != nil {
				return nil, err
			} else if node == nil {
				return &TableViewIterator{}, nil
			}
			idx = 0
		}
		return &TableViewIterator{fixed: newLongFixedIterator(node, idx, tv.schema)}, nil
	default:
		return nil, memview.NewError(memview.Generic, "unsupported block kind %d while iterating records", kind)
	}
}

// Next returns the next record in ascending key order, or (nil, nil) when
// iteration is exhausted.
func (it *TableViewIterator) Next() (*Record, error) {
	switch {
	case it.fixed != nil:
		return it.fixed.Next()
	case it.var_ != nil:
		return it.var_.Next()
	default:
		return nil, nil
	}
}
