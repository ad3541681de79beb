package sleigh

// SymbolKind is the closed set of symbol shapes a scope entry can hold.
type SymbolKind int

const (
	SymNone SymbolKind = iota
	SymOperand
	SymVarnode
	SymUserop
	SymValue
	SymContext
	SymEnd
	SymEpsilon
	SymNameSym
	SymNext2
	SymStart
	SymSubtable
	SymValuemap
	SymVarlist
)

// Symbol is one entry of the flat symbol table. Exactly the pointer field
// matching Kind is populated; End/Epsilon/Name/Next2/Start carry no payload
// of their own.
type Symbol struct {
	Name  string
	ID    uint32
	Scope uint32
	Kind  SymbolKind

	Operand  *OperandSym
	Varnode  *VarnodeSym
	Userop   *UseropSym
	Value    *ValueSym
	Context  *ContextSym
	Subtable *SubtableSym
	Valuemap *ValuemapSym
	Varlist  *VarlistSym
}

// Scope is one symbol-table namespace, mapping declared names to indices
// into the table's flat Symbols slice.
type Scope struct {
	ID     uint32
	Parent uint32
	Lookup map[string]uint32
}

func newScope(reader *SlaBinReader, elem *SlaElement) (Scope, error) {
	id := uint32(elem.AsUintOr(AttrId, 0))
	parent := uint32(elem.AsUintOr(AttrName, 0))
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Scope{}, err
	}
	return Scope{ID: id, Parent: parent, Lookup: make(map[string]uint32)}, nil
}

func (s *Scope) addSymbol(name string, idx uint32) {
	s.Lookup[name] = idx
}

// SymbolTable is the full flat symbol vector plus its per-scope name maps,
// parsed in three passes: scopes, then symbol name/scope "heads" (a FIFO
// queue), then symbol bodies matched back to their head in pop order. The
// ordering is load-bearing: the encoder interleaves scopes, then all heads,
// then all bodies, and nothing else identifies which head belongs to which
// body except queue position.
type SymbolTable struct {
	Scopes  []Scope
	Symbols []Symbol
}

type symbolHead struct {
	name  string
	scope uint32
}

func newSymbolTable(reader *SlaBinReader, elem *SlaElement) (SymbolTable, error) {
	scopeSize := int(elem.AsIntOr(AttrScopesize, 0))
	symbolSize := int(elem.AsIntOr(AttrSymbolsize, 0))
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return SymbolTable{}, err
	}

	scopesLeft := scopeSize
	symbolHeadsLeft := symbolSize
	symbolsLeft := symbolSize

	scopes := make([]Scope, 0, scopeSize)
	symbols := make([]Symbol, 0, symbolSize)
	var heads []symbolHead

	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return SymbolTable{}, err
	}
	for {
		child, ok, err := it.Next()
		if err != nil {
			return SymbolTable{}, err
		}
		if !ok {
			break
		}

		switch {
		case scopesLeft > 0:
			scopesLeft--
			if child.ID != ElemScope {
				return SymbolTable{}, NewError(Malformed, "expected scope element")
			}
			sc, err := newScope(reader, &child)
			if err != nil {
				return SymbolTable{}, err
			}
			scopes = append(scopes, sc)

		case symbolHeadsLeft > 0:
			symbolHeadsLeft--
			name := child.AsStrOr(AttrName, "")
			scope := uint32(child.AsUintOr(AttrScope, 0))
			heads = append(heads, symbolHead{name: name, scope: scope})
			if err := reader.SeekElemChildrenStart(&child); err != nil {
				return SymbolTable{}, err
			}
			if err := reader.ReadElemEnd(child.ID); err != nil {
				return SymbolTable{}, err
			}

		case symbolsLeft > 0:
			symbolsLeft--
			sym, err := parseSymbolBody(reader, &child)
			if err != nil {
				return SymbolTable{}, err
			}
			if len(heads) == 0 {
				return SymbolTable{}, NewError(Malformed, "symbol heads exhausted before symbol bodies")
			}
			head := heads[0]
			heads = heads[1:]
			sym.Name = head.name
			sym.Scope = head.scope

			if int(sym.Scope) >= len(scopes) {
				return SymbolTable{}, NewError(Malformed, "symbol scope %d out of range", sym.Scope)
			}
			scopes[sym.Scope].addSymbol(sym.Name, uint32(len(symbols)))
			symbols = append(symbols, sym)

		default:
			return SymbolTable{}, NewError(Malformed, "unexpected element while all scopes and symbols were read")
		}
	}

	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return SymbolTable{}, err
	}
	return SymbolTable{Scopes: scopes, Symbols: symbols}, nil
}

func parseSymbolBody(reader *SlaBinReader, elem *SlaElement) (Symbol, error) {
	switch elem.ID {
	case ElemOperandSym:
		return newOperandSym(reader, elem)
	case ElemVarnodeSym:
		return newVarnodeSym(reader, elem)
	case ElemUserop:
		return newUseropSym(reader, elem)
	case ElemValueSym:
		return newValueSym(reader, elem)
	case ElemContextSym:
		return newContextSym(reader, elem)
	case ElemEndSym:
		return newSimpleSym(reader, elem, SymEnd)
	case ElemNext2Sym:
		return newSimpleSym(reader, elem, SymNext2)
	case ElemStartSym:
		return newSimpleSym(reader, elem, SymStart)
	case ElemSubtableSym:
		return newSubtableSym(reader, elem)
	case ElemValuemapSym:
		return newValuemapSym(reader, elem)
	case ElemVarlistSym:
		return newVarlistSym(reader, elem)
	default:
		return Symbol{}, NewError(Malformed, "symbol kind %d not supported", elem.ID)
	}
}

func newSimpleSym(reader *SlaBinReader, elem *SlaElement, kind SymbolKind) (Symbol, error) {
	id := uint32(elem.AsUintOr(AttrId, 0))
	scope := uint32(elem.AsUintOr(AttrScope, 0))
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Symbol{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Symbol{}, err
	}
	return Symbol{ID: id, Scope: scope, Kind: kind}, nil
}
