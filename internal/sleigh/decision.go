package sleigh

// DisjointPatternKind distinguishes which storage a disjoint pattern's
// mask/value pairs are checked against.
type DisjointPatternKind int

const (
	PatternInstruction DisjointPatternKind = iota
	PatternContext
	PatternCombine
)

// PatBlock is a sequence of big-endian 32-bit (mask, value) pairs checked
// against four-byte-aligned words starting at Offset.
type PatBlock struct {
	Offset        int32
	NonZero       int32
	MaskValuePairs []uint32 // interleaved mask, value, mask, value, ...
}

func newPatBlock(reader *SlaBinReader, elem *SlaElement) (PatBlock, error) {
	pb := PatBlock{
		Offset:  int32(elem.AsIntOr(AttrOff, 0)),
		NonZero: int32(elem.AsIntOr(AttrNonzero, 0)),
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return PatBlock{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return PatBlock{}, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return PatBlock{}, err
		}
		if !ok {
			break
		}
		if child.ID != ElemMaskWord {
			return PatBlock{}, NewError(Malformed, "expected mask word element")
		}
		mask := uint32(child.AsUintOr(AttrMask, 0))
		value := uint32(child.AsUintOr(AttrVal, 0))
		if err := reader.SeekElemChildrenStart(&child); err != nil {
			return PatBlock{}, err
		}
		if err := reader.ReadElemEnd(child.ID); err != nil {
			return PatBlock{}, err
		}
		pb.MaskValuePairs = append(pb.MaskValuePairs, mask, value)
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return PatBlock{}, err
	}
	return pb, nil
}

func (pb *PatBlock) matches(readWordAt func(off int32) uint32) bool {
	for i := 0; i*2+1 < len(pb.MaskValuePairs); i++ {
		mask := pb.MaskValuePairs[i*2]
		value := pb.MaskValuePairs[i*2+1]
		word := readWordAt(pb.Offset + int32(4*i))
		if word&mask != value {
			return false
		}
	}
	return true
}

// DisjointPattern is the leaf-level instruction/context matcher a decision
// pair tests: an instruction-byte pattern, a context pattern, or a
// combination of both (context AND instruction).
type DisjointPattern struct {
	Kind        DisjointPatternKind
	Instruction PatBlock
	Context     PatBlock
}

func newDisjointPattern(reader *SlaBinReader, elem *SlaElement) (DisjointPattern, error) {
	switch elem.ID {
	case ElemInstructPat:
		pb, err := newPatBlockWrapped(reader, elem)
		if err != nil {
			return DisjointPattern{}, err
		}
		return DisjointPattern{Kind: PatternInstruction, Instruction: pb}, nil
	case ElemContextPat:
		pb, err := newPatBlockWrapped(reader, elem)
		if err != nil {
			return DisjointPattern{}, err
		}
		return DisjointPattern{Kind: PatternContext, Context: pb}, nil
	case ElemCombinePat:
		if err := reader.SeekElemChildrenStart(elem); err != nil {
			return DisjointPattern{}, err
		}
		it, err := reader.ReadElemChildren(elem.EPos)
		if err != nil {
			return DisjointPattern{}, err
		}
		ctxElem, ok, err := it.Next()
		if err != nil {
			return DisjointPattern{}, err
		}
		if !ok || ctxElem.ID != ElemContextPat {
			return DisjointPattern{}, NewError(Malformed, "combine pattern missing context pattern")
		}
		ctxPb, err := newPatBlockWrapped(reader, &ctxElem)
		if err != nil {
			return DisjointPattern{}, err
		}
		insElem, ok, err := it.Next()
		if err != nil {
			return DisjointPattern{}, err
		}
		if !ok || insElem.ID != ElemInstructPat {
			return DisjointPattern{}, NewError(Malformed, "combine pattern missing instruction pattern")
		}
		insPb, err := newPatBlockWrapped(reader, &insElem)
		if err != nil {
			return DisjointPattern{}, err
		}
		if err := reader.ReadElemEnd(elem.ID); err != nil {
			return DisjointPattern{}, err
		}
		return DisjointPattern{Kind: PatternCombine, Context: ctxPb, Instruction: insPb}, nil
	default:
		return DisjointPattern{}, NewError(Malformed, "unsupported disjoint pattern element %d", elem.ID)
	}
}

// newPatBlockWrapped reads the single PatBlock child nested under an
// InstructionPattern/ContextPattern wrapper element.
func newPatBlockWrapped(reader *SlaBinReader, elem *SlaElement) (PatBlock, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return PatBlock{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return PatBlock{}, err
	}
	child, ok, err := it.Next()
	if err != nil {
		return PatBlock{}, err
	}
	if !ok || child.ID != ElemPatBlock {
		return PatBlock{}, NewError(Malformed, "expected pat_block element")
	}
	pb, err := newPatBlock(reader, &child)
	if err != nil {
		return PatBlock{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return PatBlock{}, err
	}
	return pb, nil
}

func (dp *DisjointPattern) IsMatch(readInsWord, readCtxWord func(off int32) uint32) bool {
	switch dp.Kind {
	case PatternInstruction:
		return dp.Instruction.matches(readInsWord)
	case PatternContext:
		return dp.Context.matches(readCtxWord)
	case PatternCombine:
		return dp.Context.matches(readCtxWord) && dp.Instruction.matches(readInsWord)
	default:
		return false
	}
}

// DecisionPair maps one disjoint pattern to the constructor it selects.
type DecisionPair struct {
	CtorID  int32
	Pattern DisjointPattern
}

func newDecisionPair(reader *SlaBinReader, elem *SlaElement) (DecisionPair, error) {
	ctorID := int32(elem.AsIntOr(AttrId, -1))
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return DecisionPair{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return DecisionPair{}, err
	}
	child, ok, err := it.Next()
	if err != nil {
		return DecisionPair{}, err
	}
	if !ok {
		return DecisionPair{}, NewError(Malformed, "decision pair missing pattern")
	}
	pattern, err := newDisjointPattern(reader, &child)
	if err != nil {
		return DecisionPair{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return DecisionPair{}, err
	}
	return DecisionPair{CtorID: ctorID, Pattern: pattern}, nil
}

// Decision is one node of a subtable's decision tree: an internal node
// dispatches on a fixed bit range of either the context or instruction
// bytes (Context selects which) and descends into the matching child;
// a leaf (Size == 0) holds an ordered list of pairs, the first matching
// pattern winning.
type Decision struct {
	Context  bool
	Start    int32
	Size     int32
	Children []Decision
	Pairs    []DecisionPair
}

func newDecision(reader *SlaBinReader, elem *SlaElement) (Decision, error) {
	d := Decision{
		Context: elem.AsBoolOr(AttrContext, false),
		Start:   int32(elem.AsIntOr(AttrStartbit, 0)),
		Size:    int32(elem.AsIntOr(AttrSize, 0)),
	}

	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Decision{}, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return Decision{}, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			break
		}
		switch child.ID {
		case ElemDecision:
			sub, err := newDecision(reader, &child)
			if err != nil {
				return Decision{}, err
			}
			d.Children = append(d.Children, sub)
		case ElemPair:
			pair, err := newDecisionPair(reader, &child)
			if err != nil {
				return Decision{}, err
			}
			d.Pairs = append(d.Pairs, pair)
		default:
			return Decision{}, NewError(Malformed, "unsupported decision child element %d", child.ID)
		}
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Decision{}, err
	}

	if d.Size != 0 {
		want := 1 << uint(d.Size)
		if len(d.Children) != want {
			return Decision{}, NewError(Malformed, "decision node has %d children, want %d for size %d", len(d.Children), want, d.Size)
		}
	}

	return d, nil
}
