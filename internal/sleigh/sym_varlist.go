package sleigh

import "math"

// varlistNullVar marks a varlist entry with no backing varnode symbol.
const varlistNullVar = uint32(math.MaxUint32)

// VarlistSym maps its operand's raw pattern value to one of a fixed list
// of varnode symbols (e.g. a register file indexed by encoding).
type VarlistSym struct {
	Patexp *Expression
	VarIds []uint32
}

func newVarlistSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
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
		return Symbol{}, NewError(Malformed, "varlist symbol missing pattern expression")
	}
	patexp, err := NewExpression(reader, &child)
	if err != nil {
		return Symbol{}, err
	}

	var varIds []uint32
	for {
		child, ok, err := it.Next()
		if err != nil {
			return Symbol{}, err
		}
		if !ok {
			break
		}
		if child.ID != ElemVar {
			return Symbol{}, NewError(Malformed, "expected var element")
		}
		id := varlistNullVar
		if !child.IsNull(AttrId) {
			id = uint32(child.AsUintOr(AttrId, uint64(varlistNullVar)))
		}
		if err := reader.SeekElemChildrenStart(&child); err != nil {
			return Symbol{}, err
		}
		if err := reader.ReadElemEnd(child.ID); err != nil {
			return Symbol{}, err
		}
		varIds = append(varIds, id)
	}

	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymVarlist, Varlist: &VarlistSym{Patexp: patexp, VarIds: varIds}}, nil
}
