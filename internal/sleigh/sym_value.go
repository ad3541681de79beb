package sleigh

// ValueSym interprets its operand's pattern bits as a plain signed integer
// via Patexp.
type ValueSym struct {
	Patexp *Expression
}

func newValueSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return Symbol{}, err
	}
	child, ok, err := it.Next()
	if err != nil {
		return Symbol{}, err
	}
	if !ok {
		return Symbol{}, NewError(Malformed, "value symbol missing pattern expression")
	}
	patexp, err := NewExpression(reader, &child)
	if err != nil {
		return Symbol{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymValue, Value: &ValueSym{Patexp: patexp}}, nil
}
