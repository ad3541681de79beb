package sleigh

// VarnodeSym is a fixed, named storage location: a byte offset and size
// within one address space.
type VarnodeSym struct {
	Space  SpaceInfo
	Offset uint32
	Size   int32
}

func newVarnodeSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	vn := &VarnodeSym{
		Space:  elem.AsSpace(AttrSpace),
		Offset: uint32(elem.AsUintOr(AttrOff, 0)),
		Size:   int32(elem.AsIntOr(AttrSize, 0)),
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymVarnode, Varnode: vn}, nil
}
