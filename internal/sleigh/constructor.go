package sleigh

// ConstructorPrintElement is one piece of a constructor's print template: a
// literal to emit verbatim, or a reference to one of the constructor's
// declared operands (Operand holds that operand's symbol id, the same value
// newConstructor appends to OperandIds).
type ConstructorPrintElement struct {
	IsOperand bool
	Operand   int32
	Literal   string
}

// Constructor is one syntax-tree production within a subtable: a print
// template, the operand symbols it references, the context mutations it
// applies on entry, and the semantic/display template it builds.
type Constructor struct {
	Parent        uint32
	First         int32
	MinLength     int32
	Source        int32
	Line          int32
	OperandIds    []uint32
	PrintElements []ConstructorPrintElement
	ContextOps    []ContextOpTpl
	Template      *ConstructorTpl
}

func newConstructorPrintElement(reader *SlaBinReader, elem *SlaElement) (ConstructorPrintElement, error) {
	switch elem.ID {
	case ElemOper:
		idx := int32(elem.AsIntOr(AttrId, 0))
		if err := reader.SeekElemChildrenStart(elem); err != nil {
			return ConstructorPrintElement{}, err
		}
		if err := reader.ReadElemEnd(elem.ID); err != nil {
			return ConstructorPrintElement{}, err
		}
		return ConstructorPrintElement{IsOperand: true, Operand: idx}, nil
	case ElemPrint:
		lit := elem.AsStrOr(AttrPiece, "")
		if err := reader.SeekElemChildrenStart(elem); err != nil {
			return ConstructorPrintElement{}, err
		}
		if err := reader.ReadElemEnd(elem.ID); err != nil {
			return ConstructorPrintElement{}, err
		}
		return ConstructorPrintElement{IsOperand: false, Literal: lit}, nil
	default:
		return ConstructorPrintElement{}, NewError(Malformed, "unsupported print element %d", elem.ID)
	}
}

// ContextOpTpl mutates one word-aligned bit range of the context vector on
// entry into a constructor's frame, evaluating Expression against this
// constructor's own operand frame.
type ContextOpTpl struct {
	WordStart  int32
	BitShift   int32
	Mask       uint32
	Expression *Expression
}

func newContextOpTpl(reader *SlaBinReader, elem *SlaElement) (ContextOpTpl, error) {
	op := ContextOpTpl{
		WordStart: int32(elem.AsIntOr(AttrI, 0)),
		BitShift:  int32(elem.AsIntOr(AttrShift, 0)),
		Mask:      uint32(elem.AsUintOr(AttrMask, 0)),
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return ContextOpTpl{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return ContextOpTpl{}, err
	}
	child, ok, err := it.Next()
	if err != nil {
		return ContextOpTpl{}, err
	}
	if !ok {
		return ContextOpTpl{}, NewError(Malformed, "context_op missing expression")
	}
	exp, err := NewExpression(reader, &child)
	if err != nil {
		return ContextOpTpl{}, err
	}
	op.Expression = exp
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return ContextOpTpl{}, err
	}
	return op, nil
}

// ConstTplType is the closed set of semantic-template constant shapes.
type ConstTplType int

const (
	ConstReal ConstTplType = iota
	ConstHandle
	ConstStart
	ConstNext
	ConstNext2
	ConstCurspace
	ConstCurspaceSize
	ConstSpaceid
	ConstRelative
	ConstFlowref
	ConstFlowrefSize
	ConstFlowdest
	ConstFlowdestSize
)

// ConstTplHandleType selects which field of a referenced operand's runtime
// handle a ConstHandle constant reads.
type ConstTplHandleType int

const (
	HandleSpace ConstTplHandleType = iota
	HandleOffset
	HandleSize
	HandleOffsetPlus
)

// ConstTpl is one operand slot of a VarNodeTpl or OpTpl: either a literal
// value, a reference to a handle field of another operand, or one of a
// small set of well-known runtime values (current address, next
// instruction address, current space, ...).
type ConstTpl struct {
	Type        ConstTplType
	Value       int64
	HandleIndex int32
	HandleType  ConstTplHandleType
	HandlePlus  int64
	SpaceID     int32
}

func newConstTpl(reader *SlaBinReader, elem *SlaElement) (ConstTpl, error) {
	ct := ConstTpl{Value: elem.AsIntOr(AttrVal, 0)}
	switch elem.ID {
	case ElemConstReal:
		ct.Type = ConstReal
	case ElemConstStart:
		ct.Type = ConstStart
	case ElemConstNext:
		ct.Type = ConstNext
	case ElemConstNext2:
		ct.Type = ConstNext2
	case ElemConstCurspace:
		ct.Type = ConstCurspace
	case ElemConstCurspaceSize:
		ct.Type = ConstCurspaceSize
	case ElemConstSpaceid:
		ct.Type = ConstSpaceid
		ct.SpaceID = int32(elem.AsIntOr(AttrSpace, 0))
	case ElemConstRelative:
		ct.Type = ConstRelative
	case ElemConstFlowref:
		ct.Type = ConstFlowref
	case ElemConstFlowrefSize:
		ct.Type = ConstFlowrefSize
	case ElemConstFlowdest:
		ct.Type = ConstFlowdest
	case ElemConstFlowdestSize:
		ct.Type = ConstFlowdestSize
	case ElemConstHandle:
		ct.Type = ConstHandle
		ct.HandleIndex = int32(elem.AsIntOr(AttrIndex, 0))
		ct.HandleType = ConstTplHandleType(elem.AsIntOr(AttrS, 0))
		ct.HandlePlus = elem.AsIntOr(AttrPlus, 0)
	default:
		return ConstTpl{}, NewError(Malformed, "unsupported const_tpl element %d", elem.ID)
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return ConstTpl{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return ConstTpl{}, err
	}
	return ct, nil
}

// VarNodeTpl is a templated storage location: a space, offset, and size,
// each a ConstTpl so they may reference runtime handle values.
type VarNodeTpl struct {
	Space  ConstTpl
	Offset ConstTpl
	Size   ConstTpl
}

func newVarNodeTpl(reader *SlaBinReader, elem *SlaElement) (VarNodeTpl, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return VarNodeTpl{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return VarNodeTpl{}, err
	}
	var parts [3]ConstTpl
	for i := 0; i < 3; i++ {
		child, ok, err := it.Next()
		if err != nil {
			return VarNodeTpl{}, err
		}
		if !ok {
			return VarNodeTpl{}, NewError(Malformed, "varnode_tpl missing operand %d", i)
		}
		ct, err := newConstTpl(reader, &child)
		if err != nil {
			return VarNodeTpl{}, err
		}
		parts[i] = ct
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return VarNodeTpl{}, err
	}
	return VarNodeTpl{Space: parts[0], Offset: parts[1], Size: parts[2]}, nil
}

// HandleTpl is a constructor's own output handle template.
type HandleTpl struct {
	Space      ConstTpl
	Size       ConstTpl
	PtrSpace   ConstTpl
	PtrOffset  ConstTpl
	TempSpace  ConstTpl
	TempOffset ConstTpl
}

func newHandleTpl(reader *SlaBinReader, elem *SlaElement) (*HandleTpl, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return nil, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return nil, err
	}
	var parts []ConstTpl
	for {
		child, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		ct, err := newConstTpl(reader, &child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ct)
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return nil, err
	}
	h := &HandleTpl{}
	for i, ct := range parts {
		switch i {
		case 0:
			h.Space = ct
		case 1:
			h.Size = ct
		case 2:
			h.PtrSpace = ct
		case 3:
			h.PtrOffset = ct
		case 4:
			h.TempSpace = ct
		case 5:
			h.TempOffset = ct
		}
	}
	return h, nil
}

// OpTpl is one pcode operation template within a constructor's semantic
// section: an opcode plus an output varnode template (if any) and input
// varnode templates.
type OpTpl struct {
	Opcode int32
	Output *VarNodeTpl
	Inputs []VarNodeTpl
}

func newOpTpl(reader *SlaBinReader, elem *SlaElement) (OpTpl, error) {
	op := OpTpl{Opcode: int32(elem.AsIntOr(AttrCode, 0))}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return OpTpl{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return OpTpl{}, err
	}
	first := true
	for {
		child, ok, err := it.Next()
		if err != nil {
			return OpTpl{}, err
		}
		if !ok {
			break
		}
		if first && child.ID == ElemNull {
			if err := reader.SeekElemChildrenStart(&child); err != nil {
				return OpTpl{}, err
			}
			if err := reader.ReadElemEnd(child.ID); err != nil {
				return OpTpl{}, err
			}
			first = false
			continue
		}
		vn, err := newVarNodeTpl(reader, &child)
		if err != nil {
			return OpTpl{}, err
		}
		if first {
			op.Output = &vn
		} else {
			op.Inputs = append(op.Inputs, vn)
		}
		first = false
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return OpTpl{}, err
	}
	return op, nil
}

// ConstructorTpl is a constructor's compiled semantic/display section: the
// output handle it produces (if it produces one) and the ordered pcode
// operations that implement it.
type ConstructorTpl struct {
	Handle *HandleTpl
	Ops    []OpTpl
}

func newConstructorTpl(reader *SlaBinReader, elem *SlaElement) (*ConstructorTpl, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return nil, err
	}
	tpl := &ConstructorTpl{}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return nil, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch child.ID {
		case ElemNull:
			if err := reader.SeekElemChildrenStart(&child); err != nil {
				return nil, err
			}
			if err := reader.ReadElemEnd(child.ID); err != nil {
				return nil, err
			}
		case ElemHandleTpl:
			h, err := newHandleTpl(reader, &child)
			if err != nil {
				return nil, err
			}
			tpl.Handle = h
		case ElemOpTpl:
			op, err := newOpTpl(reader, &child)
			if err != nil {
				return nil, err
			}
			tpl.Ops = append(tpl.Ops, op)
		default:
			return nil, NewError(Malformed, "unsupported constructor template child %d", child.ID)
		}
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return nil, err
	}
	return tpl, nil
}

// newConstructor parses one constructor element from within a subtable
// symbol's body.
func newConstructor(reader *SlaBinReader, elem *SlaElement) (Constructor, error) {
	c := Constructor{
		Parent:    uint32(elem.AsUintOr(AttrParent, 0)),
		First:     int32(elem.AsIntOr(AttrFirst, 0)),
		MinLength: int32(elem.AsIntOr(AttrLength, 0)),
		Source:    int32(elem.AsIntOr(AttrSource, 0)),
		Line:      int32(elem.AsIntOr(AttrLine, 0)),
	}

	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Constructor{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return Constructor{}, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return Constructor{}, err
		}
		if !ok {
			break
		}
		switch child.ID {
		case ElemOper, ElemPrint:
			pe, err := newConstructorPrintElement(reader, &child)
			if err != nil {
				return Constructor{}, err
			}
			if pe.IsOperand {
				c.OperandIds = append(c.OperandIds, uint32(pe.Operand))
			}
			c.PrintElements = append(c.PrintElements, pe)
		case ElemOpprint:
			idx := uint32(child.AsUintOr(AttrId, 0))
			if err := reader.SeekElemChildrenStart(&child); err != nil {
				return Constructor{}, err
			}
			if err := reader.ReadElemEnd(child.ID); err != nil {
				return Constructor{}, err
			}
			c.OperandIds = append(c.OperandIds, idx)
		case ElemContextOp:
			op, err := newContextOpTpl(reader, &child)
			if err != nil {
				return Constructor{}, err
			}
			c.ContextOps = append(c.ContextOps, op)
		case ElemConstructTpl:
			tpl, err := newConstructorTpl(reader, &child)
			if err != nil {
				return Constructor{}, err
			}
			c.Template = tpl
		default:
			return Constructor{}, NewError(Malformed, "unsupported constructor child element %d", child.ID)
		}
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Constructor{}, err
	}
	return c, nil
}
