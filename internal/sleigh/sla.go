package sleigh

import (
	"bytes"
	"compress/zlib"
	"io"
)

var slaMagic = [3]byte{0x73, 0x6c, 0x61}

// minSlaVersion is the lowest .sla format version this loader accepts.
// Ghidra's own loader historically rejected anything but an exact version
// match; this loader is intentionally more permissive.
const minSlaVersion = 4

// SourceFile is one entry of a .sla file's source-file table, used only to
// resolve Constructor.Source indices for diagnostics.
type SourceFile struct {
	Name  string
	Index int32
}

func newSourceFile(reader *SlaBinReader, elem *SlaElement) (SourceFile, error) {
	sf := SourceFile{
		Name:  elem.AsStrOr(AttrName, ""),
		Index: int32(elem.AsIntOr(AttrIndex, 0)),
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return SourceFile{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return SourceFile{}, err
	}
	return sf, nil
}

// AddrSpaceType is the closed set of address-space kinds declared in a
// .sla file's space table.
type AddrSpaceType int

const (
	AddrSpaceConstant AddrSpaceType = iota
	AddrSpaceProcessor
	AddrSpaceSpaceBase
	AddrSpaceInternal
	AddrSpaceFSpec
	AddrSpaceIop
	AddrSpaceJoin
)

// Space is one declared address space: a name, byte size, and delay slot
// depth, plus whether it is the physically addressable default space.
type Space struct {
	Type      AddrSpaceType
	Name      string
	Index     int32
	Size      int32
	WordSize  int32
	Delay     int32
	Physical  bool
}

func newSpace(reader *SlaBinReader, elem *SlaElement, typ AddrSpaceType) (Space, error) {
	sp := Space{
		Type:     typ,
		Name:     elem.AsStrOr(AttrName, ""),
		Index:    int32(elem.AsIntOr(AttrIndex, 0)),
		Size:     int32(elem.AsIntOr(AttrSize, 0)),
		WordSize: int32(elem.AsIntOr(AttrDelay, 1)),
		Delay:    int32(elem.AsIntOr(AttrDelay, 0)),
		Physical: elem.AsBoolOr(AttrPhysical, false),
	}
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return Space{}, err
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return Space{}, err
	}
	return sp, nil
}

// Sleigh is a fully loaded and decoded .sla file: its declared address
// spaces, source file table, and the symbol table driving disassembly.
type Sleigh struct {
	Version      int32
	BigEndian    bool
	Align        int32
	UniqBase     uint64
	MaxDelay     int32
	UniqMask     uint32
	NumSections  uint32
	SourceFiles  []SourceFile
	DefaultSpace string
	Spaces       []Space
	SymbolTable  SymbolTable
}

// New decompresses and decodes a complete .sla file.
func New(data []byte) (*Sleigh, error) {
	if len(data) < 4 || data[0] != slaMagic[0] || data[1] != slaMagic[1] || data[2] != slaMagic[2] {
		return nil, NewError(Malformed, "missing .sla magic bytes")
	}
	version := int32(data[3])
	if version < minSlaVersion {
		return nil, NewError(Malformed, "unsupported .sla version %d, need >= %d", version, minSlaVersion)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, NewError(Malformed, "decompressing .sla body: %v", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, NewError(Malformed, "decompressing .sla body: %v", err)
	}

	reader := NewSlaBinReader(body)
	root, err := reader.ReadElemStart(ElemSleigh)
	if err != nil {
		return nil, err
	}

	sl := &Sleigh{
		Version:     version,
		BigEndian:   root.AsBoolOr(AttrBigendian, false),
		Align:       int32(root.AsIntOr(AttrAlign, 1)),
		UniqBase:    root.AsUintOr(AttrUniqbase, 0),
		MaxDelay:    int32(root.AsIntOr(AttrMaxdelay, 0)),
		UniqMask:    uint32(root.AsUintOr(AttrUniqmask, 0)),
		NumSections: uint32(root.AsUintOr(AttrNumsections, 0)),
	}

	if err := reader.SeekElemChildrenStart(&root); err != nil {
		return nil, err
	}
	it, err := reader.ReadElemChildren(root.EPos)
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
		case ElemSourcefiles:
			files, err := parseSourceFiles(reader, &child)
			if err != nil {
				return nil, err
			}
			sl.SourceFiles = files
		case ElemSpaces:
			spaces, defaultSpace, err := parseSpaces(reader, &child)
			if err != nil {
				return nil, err
			}
			sl.Spaces = spaces
			sl.DefaultSpace = defaultSpace
		case ElemSymbolTable:
			st, err := newSymbolTable(reader, &child)
			if err != nil {
				return nil, err
			}
			sl.SymbolTable = st
		default:
			if err := reader.SeekElemChildrenStart(&child); err != nil {
				return nil, err
			}
			if err := reader.SeekElemChildrenEnd(&child); err != nil {
				return nil, err
			}
		}
	}
	if err := reader.ReadElemEnd(root.ID); err != nil {
		return nil, err
	}

	return sl, nil
}

func parseSourceFiles(reader *SlaBinReader, elem *SlaElement) ([]SourceFile, error) {
	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return nil, err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return nil, err
	}
	var files []SourceFile
	for {
		child, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if child.ID != ElemSourcefile {
			return nil, NewError(Malformed, "expected sourcefile element")
		}
		sf, err := newSourceFile(reader, &child)
		if err != nil {
			return nil, err
		}
		files = append(files, sf)
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return nil, err
	}
	return files, nil
}

func parseSpaces(reader *SlaBinReader, elem *SlaElement) ([]Space, string, error) {
	defaultSpace := elem.AsStrOr(AttrDefaultspace, "")

	if err := reader.SeekElemChildrenStart(elem); err != nil {
		return nil, "", err
	}
	it, err := reader.ReadElemChildren(elem.EPos)
	if err != nil {
		return nil, "", err
	}
	var spaces []Space
	for {
		child, ok, err := it.Next()
		if err != nil {
			return nil, "", err
		}
		if !ok {
			break
		}
		var typ AddrSpaceType
		switch child.ID {
		case ElemSpace:
			typ = AddrSpaceProcessor
		case ElemSpaceUnique:
			typ = AddrSpaceInternal
		case ElemSpaceOther:
			typ = AddrSpaceConstant
		default:
			return nil, "", NewError(Malformed, "unsupported space element %d", child.ID)
		}
		sp, err := newSpace(reader, &child, typ)
		if err != nil {
			return nil, "", err
		}
		spaces = append(spaces, sp)
	}
	if err := reader.ReadElemEnd(elem.ID); err != nil {
		return nil, "", err
	}
	return spaces, defaultSpace, nil
}

// GetContextSize returns the size in 32-bit words of the context vector
// this file's symbol table addresses, derived from the highest context
// symbol bit range declared.
func (s *Sleigh) GetContextSize() int32 {
	var maxWord int32
	for i := range s.SymbolTable.Symbols {
		sym := &s.SymbolTable.Symbols[i]
		if sym.Kind != SymContext || sym.Context == nil {
			continue
		}
		word := sym.Context.High/32 + 1
		if word > maxWord {
			maxWord = word
		}
	}
	return maxWord
}

// LookupVarnode returns the varnode symbol declared under name in any scope,
// searching scopes in declaration order (the register scope is global, so in
// practice this is scope 0). Used to resolve a processor-spec register name
// to its SLEIGH storage offset and size.
func (s *Sleigh) LookupVarnode(name string) (*VarnodeSym, bool) {
	for i := range s.SymbolTable.Scopes {
		idx, ok := s.SymbolTable.Scopes[i].Lookup[name]
		if !ok {
			continue
		}
		sym := &s.SymbolTable.Symbols[idx]
		if sym.Kind == SymVarnode && sym.Varnode != nil {
			return sym.Varnode, true
		}
	}
	return nil, false
}

// GetVarnodesByOffset groups every varnode symbol's table index by its
// storage offset, for register-name lookup from a raw address.
func (s *Sleigh) GetVarnodesByOffset() map[uint32][]uint32 {
	out := make(map[uint32][]uint32)
	for i := range s.SymbolTable.Symbols {
		sym := &s.SymbolTable.Symbols[i]
		if sym.Kind != SymVarnode || sym.Varnode == nil {
			continue
		}
		out[sym.Varnode.Offset] = append(out[sym.Varnode.Offset], uint32(i))
	}
	return out
}
