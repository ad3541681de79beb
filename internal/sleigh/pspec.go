package sleigh

import "encoding/xml"

// PspecConstSetEntry binds one literal context value to the bit range of a
// named context field, applied when a processor spec declares a context
// set for the program's entry register state.
type PspecConstSetEntry struct {
	Name string `xml:"name,attr"`
	Val  int64  `xml:"val,attr"`
}

// PspecConstSet is one <context_set> block: every field assignment that
// applies at the given entry/space point.
type PspecConstSet struct {
	Space   string                `xml:"space,attr"`
	Entries []PspecConstSetEntry `xml:"set"`
}

// PspecRegister names one varnode as a machine register visible to the
// debugger core, independent of its SLEIGH display name.
type PspecRegister struct {
	Name  string `xml:"name,attr"`
	Group string `xml:"group,attr"`
}

// Pspec is a decoded processor-spec (.pspec) file: the program counter
// register name, the initial context field assignments, and the declared
// register list.
type Pspec struct {
	ProgramCounter string
	ConstSets      []PspecConstSet
	Registers      []PspecRegister
}

type pspecXMLDoc struct {
	XMLName xml.Name `xml:"processor_spec"`
	Properties struct {
		Entries []struct {
			Key   string `xml:"key,attr"`
			Value string `xml:"value,attr"`
		} `xml:"property"`
	} `xml:"properties"`
	ProgramCounter struct {
		Register string `xml:"register,attr"`
	} `xml:"programcounter"`
	ContextData struct {
		ContextSets []PspecContextSetXML `xml:"context_set"`
	} `xml:"context_data"`
	RegisterData struct {
		Registers []PspecRegister `xml:"register"`
	} `xml:"register_data"`
}

// PspecContextSetXML mirrors one <context_set> element's wire shape.
type PspecContextSetXML struct {
	Space   string                `xml:"space,attr"`
	Entries []PspecConstSetEntry `xml:"set"`
}

// ParsePspec decodes a processor-spec XML document.
func ParsePspec(data []byte) (*Pspec, error) {
	var doc pspecXMLDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, NewError(Malformed, "decoding pspec xml: %v", err)
	}

	p := &Pspec{
		ProgramCounter: doc.ProgramCounter.Register,
		Registers:      doc.RegisterData.Registers,
	}
	for _, cs := range doc.ContextData.ContextSets {
		p.ConstSets = append(p.ConstSets, PspecConstSet{Space: cs.Space, Entries: cs.Entries})
	}
	return p, nil
}

// GetInitialCtx resolves this pspec's context_set assignments against sl's
// symbol table, producing the context vector a Disasm should start every
// instruction decode from. Unlike a constructor's context_op (which masks
// its value into a single 32-bit word), this walks bit ranges one bit at a
// time: context_set
// entries routinely span context-symbol boundaries that don't line up with
// word boundaries.
func (p *Pspec) GetInitialCtx(sl *Sleigh) ([]uint32, error) {
	ctx := make([]uint32, sl.GetContextSize())

	for _, set := range p.ConstSets {
		for _, entry := range set.Entries {
			sym, ok := lookupContextSymbol(sl, entry.Name)
			if !ok {
				return nil, NewError(Malformed, "pspec references unknown context field %q", entry.Name)
			}
			ctx = writeCtxU32BitsRange(ctx, sym.Low, sym.High, uint32(entry.Val))
		}
	}
	return ctx, nil
}

func lookupContextSymbol(sl *Sleigh, name string) (*ContextSym, bool) {
	for i := range sl.SymbolTable.Scopes {
		if idx, ok := sl.SymbolTable.Scopes[i].Lookup[name]; ok {
			sym := &sl.SymbolTable.Symbols[idx]
			if sym.Kind == SymContext {
				return sym.Context, true
			}
		}
	}
	return nil, false
}
