package sleigh

// UseropSym names a user-defined pcode operation by its table index.
type UseropSym struct {
	Index int32
}

func newUseropSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	uo := &UseropSym{Index: int32(elem.AsIntOr(AttrIndex, 0))}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymUserop, Userop: uo}, nil
}
