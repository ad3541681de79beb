package sleigh

import "github.com/greyforge/core/internal/memview"

// maxInstructionWindow is how many instruction bytes are pulled into a
// DisasmState's working buffer per disassembly; SLEIGH constructors only
// ever reference a handful of bytes ahead of the current instruction
// (delay-slot lookahead), never the whole address space.
const maxInstructionWindow = 16

// DisasmState is the mutable working state threaded through one
// disassembly: the instruction-byte window, the context vector, and the
// running address bookkeeping (start/next/next2/end) constructors and
// expressions read back via pattern expressions like inst_start/inst_next.
type DisasmState struct {
	memory    []byte
	baseAddr  uint64
	context   []uint32
	startAddr uint64
	nextAddr  uint64
	next2Set  bool
	next2Addr uint64
	endAddr   uint64
}

func (s *DisasmState) startIns() int64 { return int64(s.startAddr) }
func (s *DisasmState) endIns() int64   { return int64(s.endAddr) }
func (s *DisasmState) next2Ins() (int64, error) {
	if !s.next2Set {
		return 0, NewError(Unsupported, "inst_next2 referenced without a following instruction available")
	}
	return int64(s.next2Addr), nil
}

func (s *DisasmState) readCtxAt(wordIdx int) uint32 {
	if wordIdx < 0 || wordIdx >= len(s.context) {
		return 0
	}
	return s.context[wordIdx]
}

func (s *DisasmState) noteEnd(off uint64, length int32) {
	end := s.baseAddr + off + uint64(length)
	if end > s.endAddr {
		s.endAddr = end
	}
}

// DisasmOperandStackItem identifies the constructor frame an operand
// expression is being evaluated against: which subtable symbol selected
// it, which of that subtable's constructors matched, the operand symbol
// ids declared by that constructor (indexed the same way OperandValue.Index
// addresses them), and the byte offset constructor-relative operand
// offsets are measured from.
type DisasmOperandStackItem struct {
	SubsymID     uint32
	CtorIdx      uint32
	OperandIDs   []uint32
	ReadPosition uint64
}

// Disasm binds a loaded Sleigh definition to the initial context vector a
// processor spec derives for it (see pspec.go), ready to disassemble
// instructions against a memview.View.
type Disasm struct {
	sleigh     *Sleigh
	initialCtx []uint32
}

// NewDisasm constructs a disassembler for a loaded .sla definition and its
// initial context vector.
func NewDisasm(sl *Sleigh, initialCtx []uint32) *Disasm {
	ctx := make([]uint32, len(initialCtx))
	copy(ctx, initialCtx)
	return &Disasm{sleigh: sl, initialCtx: ctx}
}

// rootSubtableID looks up the root instruction table, declared under the
// name "instruction" in the global scope by every .sla file.
func (d *Disasm) rootSubtableID() (uint32, error) {
	if len(d.sleigh.SymbolTable.Scopes) == 0 {
		return 0, NewError(Malformed, "symbol table has no global scope")
	}
	if id, ok := d.sleigh.SymbolTable.Scopes[0].Lookup["instruction"]; ok {
		return id, nil
	}
	return 0, NewError(Malformed, "no root instruction subtable symbol found")
}

func wordAtOffset(mem []byte, off int32) uint32 {
	return readBigEndianU32At(mem, int64(off))
}

// resolveCtor descends a subtable's decision tree against the instruction
// and context bytes at off, returning the index into Ctors of the
// constructor whose pattern matches.
//
// The reference implementation caches overlapping 32-bit instruction-byte
// windows in a small word stack to avoid re-reading the same bytes during
// the descent; that is a performance optimization, not a correctness
// requirement, so this reads directly on each comparison instead.
func resolveCtor(st *SubtableSym, state *DisasmState, off uint64) (int32, error) {
	d := &st.Decision
	for d.Size != 0 {
		var bits uint32
		if d.Context {
			bits = state.readCtxU32BitsAt(d.Start, d.Size)
		} else {
			word := wordAtOffset(state.memory, int32(off))
			shift := 32 - int(d.Start%32) - int(d.Size)
			if shift < 0 {
				shift = 0
			}
			bits = (word >> uint(shift)) & ((uint32(1) << uint(d.Size)) - 1)
		}
		if int(bits) >= len(d.Children) {
			return 0, NewError(Malformed, "decision bits %d out of range for %d children", bits, len(d.Children))
		}
		d = &d.Children[bits]
	}

	readIns := func(o int32) uint32 { return wordAtOffset(state.memory, int32(off)+o) }
	readCtx := func(o int32) uint32 { return state.readCtxU32BitsAt(o*8, 32) }
	for _, pair := range d.Pairs {
		if pair.Pattern.IsMatch(readIns, readCtx) {
			return pair.CtorID, nil
		}
	}
	return 0, NewError(PatternNotFound, "no constructor pattern matched at offset %d", off)
}

func applyContextOps(ctor *Constructor, ec evalContext) error {
	for _, op := range ctor.ContextOps {
		v, err := op.Expression.Evaluate(ec)
		if err != nil {
			return err
		}
		ec.state.context[op.WordStart] = (ec.state.context[op.WordStart] &^ op.Mask) | ((uint32(v) << uint(op.BitShift)) & op.Mask)
	}
	return nil
}

// disasmProto walks the constructor tree starting at the instruction
// table, resolving each operand's subtable recursively, and returns the
// total matched instruction length along with a flattened prototype of
// display parts ready to be rendered by getProtoDisplay.
func (d *Disasm) disasmProto(state *DisasmState) (*DisasmPrototype, error) {
	rootID, err := d.rootSubtableID()
	if err != nil {
		return nil, err
	}
	proto := &DisasmPrototype{}
	length, err := d.resolveSubtable(state, rootID, 0, proto)
	if err != nil {
		return nil, err
	}
	proto.Length = length
	return proto, nil
}

// resolveSubtable resolves one subtable reference at byte offset off
// (relative to the instruction start), appending its constructor's print
// template to proto in order, and returns the constructor's matched
// length.
func (d *Disasm) resolveSubtable(state *DisasmState, subsymID uint32, off uint64, proto *DisasmPrototype) (uint64, error) {
	symbols := d.sleigh.SymbolTable.Symbols
	if int(subsymID) >= len(symbols) || symbols[subsymID].Kind != SymSubtable {
		return 0, NewError(Malformed, "symbol %d is not a subtable", subsymID)
	}
	st := symbols[subsymID].Subtable

	ctorIdx, err := resolveCtor(st, state, off)
	if err != nil {
		return 0, err
	}
	if int(ctorIdx) >= len(st.Ctors) {
		return 0, NewError(Malformed, "constructor index %d out of range", ctorIdx)
	}
	ctor := &st.Ctors[ctorIdx]

	frame := DisasmOperandStackItem{
		SubsymID:     subsymID,
		CtorIdx:      uint32(ctorIdx),
		OperandIDs:   ctor.OperandIds,
		ReadPosition: off,
	}
	ec := evalContext{disasm: d, state: state, topStack: &frame, at: off}
	if err := applyContextOps(ctor, ec); err != nil {
		return 0, err
	}

	length := uint64(ctor.MinLength)

	for _, opSymID := range ctor.OperandIds {
		opSymRef := &symbols[opSymID]
		if opSymRef.Kind != SymOperand {
			return 0, NewError(Malformed, "operand symbol %d is not an operand", opSymID)
		}
		opSym := opSymRef.Operand
		opOff := off + uint64(int64(opSym.RelOffset))

		if opSym.Subsym != noSymbol {
			subRef := &symbols[opSym.Subsym]
			switch subRef.Kind {
			case SymSubtable:
				subLen, err := d.resolveSubtable(state, opSym.Subsym, opOff, proto)
				if err != nil {
					return 0, err
				}
				if opOff+subLen-off > length {
					length = opOff + subLen - off
				}
				state.noteEnd(opOff, int32(subLen))
				proto.Parts = append(proto.Parts, DisasmProtoPart{
					Kind: protoPartSubsym,
					Symbol: &DisasmProtoSubsym{
						SubsymID: opSym.Subsym, At: opOff,
						SavedCtx: append([]uint32(nil), state.context...),
						SavedStack: frame,
					},
				})
				continue
			case SymValue, SymVarlist, SymValuemap:
				proto.Parts = append(proto.Parts, DisasmProtoPart{
					Kind: protoPartSubsym,
					Symbol: &DisasmProtoSubsym{
						SubsymID: opSym.Subsym, At: opOff,
						SavedCtx: append([]uint32(nil), state.context...),
						SavedStack: frame,
					},
				})
				continue
			default:
				return 0, NewError(Malformed, "unsupported operand subsymbol kind")
			}
		}

		if opSym.DefExp != nil {
			proto.Parts = append(proto.Parts, DisasmProtoPart{
				Kind: protoPartExpression,
				Expression: &DisasmProtoExpression{
					Expr: opSym.DefExp, At: opOff,
					SavedCtx:   append([]uint32(nil), state.context...),
					SavedStack: frame,
				},
			})
			continue
		}
		return 0, NewError(Malformed, "operand %d has neither subsymbol nor static expression", opSymID)
	}

	for _, pe := range ctor.PrintElements {
		if !pe.IsOperand {
			proto.Parts = append(proto.Parts, DisasmProtoPart{Kind: protoPartLiteral, Literal: pe.Literal})
			continue
		}
		// Operand print references are interleaved into the literal text by
		// matching position: the operand part sequence above already
		// appended one proto part per declared operand, in declaration
		// order, so nothing further is appended here — the literal text
		// carries the surrounding punctuation/mnemonic only.
	}

	state.noteEnd(off, int32(length))
	return length, nil
}

// DisasmProtoPartKind distinguishes the three shapes a flattened display
// part can take.
type DisasmProtoPartKind int

const (
	protoPartLiteral DisasmProtoPartKind = iota
	protoPartSubsym
	protoPartExpression
)

// DisasmProtoSubsym snapshots everything needed to format a dynamic
// subsymbol's display text without re-reading instruction bytes: the
// context and operand frame as they stood when this part was built.
type DisasmProtoSubsym struct {
	SubsymID   uint32
	At         uint64
	SavedCtx   []uint32
	SavedStack DisasmOperandStackItem
}

// DisasmProtoExpression is the static-expression counterpart to
// DisasmProtoSubsym.
type DisasmProtoExpression struct {
	Expr       *Expression
	At         uint64
	SavedCtx   []uint32
	SavedStack DisasmOperandStackItem
}

// DisasmProtoPart is one element of a DisasmPrototype's flattened part
// list; exactly the field matching Kind is populated.
type DisasmProtoPart struct {
	Kind       DisasmProtoPartKind
	Literal    string
	Symbol     *DisasmProtoSubsym
	Expression *DisasmProtoExpression
}

// DisasmPrototype is the result of walking a constructor tree once against
// real instruction bytes: a flattened, display-ready part list plus the
// total matched instruction length. get_proto_display replays Parts
// against a reused, zeroed DisasmState to produce final text without
// touching instruction bytes again.
type DisasmPrototype struct {
	Parts  []DisasmProtoPart
	Length uint64
}

// DisasmDispInstructionRunKind is the closed set of text-run roles a
// display builder assigns so UIs can apply syntax highlighting.
type DisasmDispInstructionRunKind int

const (
	RunNormal DisasmDispInstructionRunKind = iota
	RunMnemonic
	RunRegister
	RunNumber
)

// DisasmDispInstructionRun is one contiguous, same-kind slice of the final
// display text.
type DisasmDispInstructionRun struct {
	Kind DisasmDispInstructionRunKind
	Text string
}

// DisasmDispInstruction is one fully rendered instruction: its run-tagged
// display text and the length it consumed.
type DisasmDispInstruction struct {
	Runs   []DisasmDispInstructionRun
	Text   string
	Length uint64
}

func formatSignedNumber(v int64) string {
	if v < 0 {
		return "-0x" + formatHex(uint64(-v))
	}
	return "0x" + formatHex(uint64(v))
}

func formatHex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// getProtoDisplay replays a prototype's parts to build final display
// text and syntax runs, resolving each dynamic subsymbol/expression part
// against its snapshot rather than touching instruction bytes again.
func (d *Disasm) getProtoDisplay(proto *DisasmPrototype) (*DisasmDispInstruction, error) {
	symbols := d.sleigh.SymbolTable.Symbols
	var text string
	var runs []DisasmDispInstructionRun
	mnemonicOpen := true

	addRun := func(kind DisasmDispInstructionRunKind, s string) {
		text += s
		runs = append(runs, DisasmDispInstructionRun{Kind: kind, Text: s})
	}

	for _, part := range proto.Parts {
		switch part.Kind {
		case protoPartLiteral:
			kind := RunNormal
			if mnemonicOpen {
				kind = RunMnemonic
				if containsSpace(part.Literal) {
					mnemonicOpen = false
				}
			}
			addRun(kind, part.Literal)

		case protoPartExpression:
			mnemonicOpen = false
			state := &DisasmState{context: part.Expression.SavedCtx}
			ec := evalContext{disasm: d, state: state, topStack: &part.Expression.SavedStack, at: part.Expression.At}
			v, err := part.Expression.Expr.Evaluate(ec)
			if err != nil {
				return nil, err
			}
			addRun(RunNumber, formatSignedNumber(v))

		case protoPartSubsym:
			mnemonicOpen = false
			sym := &symbols[part.Symbol.SubsymID]
			state := &DisasmState{context: part.Symbol.SavedCtx}
			ec := evalContext{disasm: d, state: state, topStack: &part.Symbol.SavedStack, at: part.Symbol.At}
			switch sym.Kind {
			case SymValue:
				v, err := sym.Value.Patexp.Evaluate(ec)
				if err != nil {
					return nil, err
				}
				addRun(RunNumber, formatSignedNumber(v))
			case SymValuemap:
				v, err := sym.Valuemap.Patexp.Evaluate(ec)
				if err != nil {
					return nil, err
				}
				if v < 0 || int(v) >= len(sym.Valuemap.Values) {
					return nil, NewError(Malformed, "valuemap index %d out of range", v)
				}
				addRun(RunNumber, formatSignedNumber(sym.Valuemap.Values[v]))
			case SymVarlist:
				v, err := sym.Varlist.Patexp.Evaluate(ec)
				if err != nil {
					return nil, err
				}
				if v < 0 || int(v) >= len(sym.Varlist.VarIds) {
					return nil, NewError(Malformed, "varlist index %d out of range", v)
				}
				varID := sym.Varlist.VarIds[v]
				if varID == noSymbol {
					addRun(RunRegister, "<null>")
					continue
				}
				addRun(RunRegister, symbols[varID].Name)
			case SymVarnode:
				addRun(RunRegister, sym.Name)
			default:
				return nil, NewError(Malformed, "unsupported subsymbol kind in display")
			}
		}
	}

	return &DisasmDispInstruction{Runs: runs, Text: text, Length: proto.Length}, nil
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}

// DisasmDisplay disassembles exactly one instruction at addr, reading
// instruction bytes from mem, and returns its rendered display text.
func (d *Disasm) DisasmDisplay(mem memview.View, addr uint64) (*DisasmDispInstruction, error) {
	window := make([]byte, maxInstructionWindow)
	if err := mem.ReadBytes(addr, window); err != nil {
		n := maxInstructionWindow / 2
		window = window[:n]
		if err := mem.ReadBytes(addr, window); err != nil {
			return nil, NewError(Malformed, "reading instruction bytes at %#x: %v", addr, err)
		}
	}

	state := &DisasmState{
		memory:    window,
		baseAddr:  addr,
		context:   append([]uint32(nil), d.initialCtx...),
		startAddr: addr,
		nextAddr:  addr,
		endAddr:   addr,
	}

	proto, err := d.disasmProto(state)
	if err != nil {
		return nil, err
	}
	state.nextAddr = addr + proto.Length
	if state.endAddr < state.nextAddr {
		state.endAddr = state.nextAddr
	}

	return d.getProtoDisplay(proto)
}
