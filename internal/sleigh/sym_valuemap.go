package sleigh

// ValuemapSym maps its operand's raw pattern value through a lookup table
// of explicit integers, rather than interpreting the bits directly.
type ValuemapSym struct {
	Patexp *Expression
	Values []int64
}

func newValuemapSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
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
		return Symbol{}, NewError(Malformed, "valuemap symbol missing pattern expression")
	}
	patexp, err := NewExpression(reader, &child)
	if err != nil {
		return Symbol{}, err
	}

	var values []int64
	for {
		child, ok, err := it.Next()
		if err != nil {
			return Symbol{}, err
		}
		if !ok {
			break
		}
		if child.ID != ElemValuetab {
			return Symbol{}, NewError(Malformed, "expected valuetab element")
		}
		v := child.AsIntOr(AttrVal, 0)
		if err := reader.SeekElemChildrenStart(&child); err != nil {
			return Symbol{}, err
		}
		if err := reader.ReadElemEnd(child.ID); err != nil {
			return Symbol{}, err
		}
		values = append(values, v)
	}

	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymValuemap, Valuemap: &ValuemapSym{Patexp: patexp, Values: values}}, nil
}
