package sleigh

// SubtableSym is a nonterminal of the instruction grammar: a list of
// candidate constructors plus the decision tree used to pick among them
// during disassembly.
type SubtableSym struct {
	Ctors    []Constructor
	Decision Decision
}

func newSubtableSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	numCt := int(elem.AsIntOr(AttrNumct, 0))

	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return Symbol{}, err
	}

	st := &SubtableSym{}
	for i := 0; i < numCt; i++ {
		child, ok, err := it.Next()
		if err != nil {
			return Symbol{}, err
		}
		if !ok || child.ID != ElemConstructor {
			return Symbol{}, NewError(Malformed, "subtable symbol missing constructor %d of %d", i, numCt)
		}
		ctor, err := newConstructor(reader, &child)
		if err != nil {
			return Symbol{}, err
		}
		st.Ctors = append(st.Ctors, ctor)
	}

	decElem, ok, err := it.Next()
	if err != nil {
		return Symbol{}, err
	}
	if !ok || decElem.ID != ElemDecision {
		return Symbol{}, NewError(Malformed, "subtable symbol missing decision tree")
	}
	decision, err := newDecision(reader, &decElem)
	if err != nil {
		return Symbol{}, err
	}
	st.Decision = decision

	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}

	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymSubtable, Subtable: st}, nil
}
