package sleigh

// noSymbol marks an OperandSym with no subsymbol (a purely static operand).
const noSymbol uint32 = 0xffffffff

// OperandSym is one operand slot of a constructor: either a reference to
// another symbol (a subtable, value, varlist, valuemap, or varnode symbol)
// or a purely static pattern expression.
type OperandSym struct {
	Hand       int32
	RelOffset  int32
	OffsetBase int32
	MinLength  int32
	Subsym     uint32
	Code       bool
	LocalExp   *Expression
	DefExp     *Expression
}

func newOperandSym(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	op := &OperandSym{
		Hand:       int32(elem.AsIntOr(AttrIndex, 0)),
		OffsetBase: int32(elem.AsIntOr(AttrBase, -1)),
		MinLength:  int32(elem.AsIntOr(AttrMinlen, 0)),
		Subsym:     noSymbol,
		Code:       elem.AsBoolOr(AttrCode, false),
	}
	if !elem.IsNull(AttrSubsym) {
		op.Subsym = uint32(elem.AsUintOr(AttrSubsym, noSymbol))
	}
	if !elem.IsNull(AttrOff) {
		op.RelOffset = int32(elem.AsIntOr(AttrOff, 0))
	}

	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return Symbol{}, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return Symbol{}, err
		}
		if !ok {
			break
		}
		exp, err := NewExpression(reader, &child)
		if err != nil {
			return Symbol{}, err
		}
		if op.LocalExp == nil {
			op.LocalExp = exp
		} else {
			op.DefExp = exp
		}
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}

	if op.LocalExp != nil && op.DefExp == nil {
		op.DefExp = op.LocalExp
	}

	return Symbol{ID: uint32(elem.AsUintOr(AttrId, 0)), Kind: SymOperand, Operand: op}, nil
}
