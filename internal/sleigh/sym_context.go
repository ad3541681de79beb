package sleigh

// ContextSym binds a bit range of the context vector to a name, optionally
// marked as a flow-control-relevant field.
//
// The reference source reads this flag by re-querying the Varnode
// attribute rather than a dedicated one — almost certainly a copy/paste
// slip, since every sibling attribute here (Low, High) has its own
// dedicated id. This reads the dedicated Flow attribute instead.
type ContextSym struct {
	Varnode uint32
	Low     int32
	High    int32
	Flow    bool
	Patexp  *Expression
}

func newContextSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	cs := &ContextSym{
		Varnode: uint32(elem.AsUintOr(AttrVarnode, 0)),
		Low:     int32(elem.AsIntOr(AttrLow, 0)),
		High:    int32(elem.AsIntOr(AttrHigh, 0)),
		Flow:    elem.AsBoolOr(AttrFlow, false),
	}

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
		return Symbol{}, NewError(Malformed, "context symbol missing pattern expression")
	}
	patexp, err := NewExpression(reader, &child)
	if err != nil {
		return Symbol{}, err
	}
	cs.Patexp = patexp
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymContext, Context: cs}, nil
}
