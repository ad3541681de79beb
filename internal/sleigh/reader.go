package sleigh

import "unicode/utf8"

// SpaceType is the closed set of address-space kinds a SpaceInfo attribute
// can select, decoded from either a BasicAddressSpace (always AddressSpace)
// or SpecialAddressSpace (a small code table) attribute value.
type SpaceType int

const (
	SpaceNone SpaceType = iota
	SpaceAddress
	SpaceStack
	SpaceJoin
	SpaceFSpec
	SpaceIop
	SpaceBase
)

// SpaceInfo names an address space either directly (AddressSpace, by table
// index) or by a well-known special-space code.
type SpaceInfo struct {
	Type  SpaceType
	Index int32
}

// attrValueKind tags which field of SlaAttribute is meaningful.
type attrValueKind int

const (
	attrValNull attrValueKind = iota
	attrValBool
	attrValInt
	attrValUInt
	attrValString
	attrValSpace
)

// SlaAttribute is one decoded (id, kind, value) triple read from an
// element's attribute block.
type SlaAttribute struct {
	ID    AttributeId
	Kind  AttributeKind
	vkind attrValueKind
	b     bool
	i     int64
	u     uint64
	s     string
	sp    SpaceInfo
}

// SlaElement is one decoded element tag: a start tag carries its attribute
// map and the byte offsets needed to navigate to its children or skip past
// them; an end tag carries only its id.
type SlaElement struct {
	Start bool
	ID    ElementId
	SPos  uint64 // offset of the tag's first byte
	APos  uint64 // offset where attribute bytes begin (start tags only)
	EPos  uint64 // offset just past the tag (attributes, for start tags)
	Attrs map[AttributeId]SlaAttribute
}

func (e *SlaElement) attr(id AttributeId) (SlaAttribute, bool) {
	a, ok := e.Attrs[id]
	return a, ok
}

// IsNull reports whether attr is absent or explicitly null on e.
func (e *SlaElement) IsNull(attr AttributeId) bool {
	a, ok := e.attr(attr)
	return !ok || a.vkind == attrValNull
}

func (e *SlaElement) AsBoolOr(attr AttributeId, def bool) bool {
	if a, ok := e.attr(attr); ok && a.vkind == attrValBool {
		return a.b
	}
	return def
}

func (e *SlaElement) AsIntOr(attr AttributeId, def int64) int64 {
	if a, ok := e.attr(attr); ok && a.vkind == attrValInt {
		return a.i
	}
	return def
}

func (e *SlaElement) AsUintOr(attr AttributeId, def uint64) uint64 {
	if a, ok := e.attr(attr); ok && a.vkind == attrValUInt {
		return a.u
	}
	return def
}

func (e *SlaElement) AsStrOr(attr AttributeId, def string) string {
	if a, ok := e.attr(attr); ok && a.vkind == attrValString {
		return a.s
	}
	return def
}

func (e *SlaElement) AsSpace(attr AttributeId) SpaceInfo {
	if a, ok := e.attr(attr); ok && a.vkind == attrValSpace {
		return a.sp
	}
	return SpaceInfo{Type: SpaceNone, Index: -1}
}

// SlaBinReader walks the decompressed tagged-element-tree body of a .sla
// file. It holds a single cursor shared by every child reader/iterator
// derived from it, matching the original's Cell<usize>-backed position.
type SlaBinReader struct {
	buf []byte
	pos uint64
}

func NewSlaBinReader(buf []byte) *SlaBinReader {
	return &SlaBinReader{buf: buf}
}

func (r *SlaBinReader) Pos() uint64 { return r.pos }

// seek repositions the cursor. It only checks that the *current* position
// is still within bounds before moving, not the destination — a quirk
// carried over unchanged from the reference reader.
func (r *SlaBinReader) seek(pos uint64) error {
	if r.pos >= uint64(len(r.buf)) {
		return NewError(Malformed, "reader cursor outside buffer bounds")
	}
	r.pos = pos
	return nil
}

func (r *SlaBinReader) readU8() (byte, error) {
	if r.pos >= uint64(len(r.buf)) {
		return 0, NewError(Malformed, "read past end of sla buffer")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *SlaBinReader) peekU8() (byte, error) {
	if r.pos >= uint64(len(r.buf)) {
		return 0, NewError(Malformed, "peek past end of sla buffer")
	}
	return r.buf[r.pos], nil
}

func getElementType(b1 byte) byte     { return (b1 >> 6) & 3 }
func isExtendedElem(b1 byte) bool     { return (b1>>5)&1 != 0 }
func getElementID(b1 byte) uint16     { return uint16(b1 & 31) }
func getElementIDExt(b1, b1e byte) uint16 {
	return uint16(b1&31) | uint16(b1e&127)
}
func getAttributeType(b2 byte) byte { return (b2 >> 4) & 15 }
func getAttributeSize(b2 byte) byte { return b2 & 15 }

const maxElementID = uint16(ElemPair)

func elementIDFromU16(v uint16) ElementId {
	if v <= maxElementID {
		return ElementId(v)
	}
	return ElemNone
}

const maxAttributeID = uint16(AttrFlow)

func attributeIDFromU16(v uint16) AttributeId {
	if v <= maxAttributeID {
		return AttributeId(v)
	}
	return AttrNone
}

func attributeKindFromU8(v byte) AttributeKind {
	switch AttributeKind(v) {
	case AttrKindBoolean, AttrKindPositiveSignedInteger, AttrKindNegativeSignedInteger,
		AttrKindUnsignedInteger, AttrKindString, AttrKindBasicAddressSpace, AttrKindSpecialAddressSpace:
		return AttributeKind(v)
	default:
		return AttrKindNone
	}
}

func (r *SlaBinReader) readSizedInt(size byte) (int64, error) {
	var res int64
	for i := byte(0); i < size; i++ {
		b, err := r.readU8()
		if err != nil {
			return 0, err
		}
		res = (res << 7) | int64(b&127)
	}
	return res, nil
}

func (r *SlaBinReader) readAttr() (SlaAttribute, error) {
	b1, err := r.readU8()
	if err != nil {
		return SlaAttribute{}, err
	}
	if getElementType(b1) != 3 {
		return SlaAttribute{}, NewError(Malformed, "expected an attribute tag")
	}

	var rawID uint16
	if isExtendedElem(b1) {
		b1e, err := r.readU8()
		if err != nil {
			return SlaAttribute{}, err
		}
		rawID = getElementIDExt(b1, b1e)
	} else {
		rawID = getElementID(b1)
	}
	attrID := attributeIDFromU16(rawID)

	b2, err := r.readU8()
	if err != nil {
		return SlaAttribute{}, err
	}
	kind := attributeKindFromU8(getAttributeType(b2))
	size := getAttributeSize(b2)

	attr := SlaAttribute{ID: attrID, Kind: kind}
	switch kind {
	case AttrKindBoolean:
		attr.vkind = attrValBool
		attr.b = size != 0
	case AttrKindPositiveSignedInteger:
		v, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		attr.vkind = attrValInt
		attr.i = v
	case AttrKindNegativeSignedInteger:
		v, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		attr.vkind = attrValInt
		attr.i = -v
	case AttrKindUnsignedInteger:
		v, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		attr.vkind = attrValUInt
		attr.u = uint64(v)
	case AttrKindString:
		strLen, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		if strLen < 0 || r.pos+uint64(strLen) > uint64(len(r.buf)) {
			return SlaAttribute{}, NewError(Malformed, "string attribute length %d out of bounds", strLen)
		}
		raw := r.buf[r.pos : r.pos+uint64(strLen)]
		if !utf8.Valid(raw) {
			return SlaAttribute{}, NewError(Malformed, "string attribute is not valid utf-8")
		}
		attr.vkind = attrValString
		attr.s = string(raw)
		r.pos += uint64(strLen)
	case AttrKindBasicAddressSpace:
		v, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		attr.vkind = attrValSpace
		attr.sp = SpaceInfo{Type: SpaceAddress, Index: int32(v)}
	case AttrKindSpecialAddressSpace:
		v, err := r.readSizedInt(size)
		if err != nil {
			return SlaAttribute{}, err
		}
		st := SpaceNone
		switch v {
		case 0:
			st = SpaceStack
		case 1:
			st = SpaceJoin
		case 2:
			st = SpaceFSpec
		case 3:
			st = SpaceIop
		case 4:
			st = SpaceBase
		}
		attr.vkind = attrValSpace
		attr.sp = SpaceInfo{Type: st, Index: 0}
	default:
		attr.vkind = attrValNull
	}
	return attr, nil
}

// ReadElem decodes one element tag (start or end) at the cursor.
func (r *SlaBinReader) ReadElem() (SlaElement, error) {
	startPos := r.pos

	b1, err := r.readU8()
	if err != nil {
		return SlaElement{}, err
	}
	elemType := getElementType(b1)
	if elemType != 1 && elemType != 2 {
		return SlaElement{}, NewError(Malformed, "expected an element tag at %#x", startPos)
	}

	var rawID uint16
	if isExtendedElem(b1) {
		b1e, err := r.readU8()
		if err != nil {
			return SlaElement{}, err
		}
		rawID = getElementIDExt(b1, b1e)
	} else {
		rawID = getElementID(b1)
	}
	elemID := elementIDFromU16(rawID)

	if elemType != 1 {
		endPos := r.pos
		return SlaElement{Start: false, ID: elemID, SPos: startPos, APos: endPos, EPos: endPos}, nil
	}

	attrPos := r.pos
	attrs := make(map[AttributeId]SlaAttribute)
	for {
		b, err := r.peekU8()
		if err != nil {
			return SlaElement{}, err
		}
		if getElementType(b) != 3 {
			break
		}
		attr, err := r.readAttr()
		if err != nil {
			return SlaElement{}, err
		}
		attrs[attr.ID] = attr
	}
	endPos := r.pos

	return SlaElement{Start: true, ID: elemID, SPos: startPos, APos: attrPos, EPos: endPos, Attrs: attrs}, nil
}

// ReadElemStart reads one element, asserting it is a start tag of checkID.
func (r *SlaBinReader) ReadElemStart(checkID ElementId) (SlaElement, error) {
	elem, err := r.ReadElem()
	if err != nil {
		return SlaElement{}, err
	}
	if elem.ID != checkID || !elem.Start {
		return SlaElement{}, NewError(Malformed, "expected start of element %d, got %d (start=%v)", checkID, elem.ID, elem.Start)
	}
	return elem, nil
}

// ReadElemEnd reads one element, asserting it is an end tag of checkID.
func (r *SlaBinReader) ReadElemEnd(checkID ElementId) error {
	elem, err := r.ReadElem()
	if err != nil {
		return err
	}
	if elem.ID != checkID || elem.Start {
		return NewError(Malformed, "expected end of element %d, got %d (start=%v)", checkID, elem.ID, elem.Start)
	}
	return nil
}

// SeekElemChildrenStart positions the cursor at the first child of elem.
func (r *SlaBinReader) SeekElemChildrenStart(elem *SlaElement) error {
	return r.seek(elem.EPos)
}

// ElemIter lazily walks an element's children: each Next call parses one
// child element if the cursor sits on a start tag, or reports exhaustion
// when it sits on the owning element's end tag.
type ElemIter struct {
	r *SlaBinReader
}

// ReadElemChildren seeks to epos and returns an iterator over the children
// found there.
func (r *SlaBinReader) ReadElemChildren(epos uint64) (*ElemIter, error) {
	if err := r.seek(epos); err != nil {
		return nil, err
	}
	return &ElemIter{r: r}, nil
}

// Next returns the next child element, or ok=false once the end tag of the
// enclosing element is reached.
func (it *ElemIter) Next() (elem SlaElement, ok bool, err error) {
	b, err := it.r.peekU8()
	if err != nil {
		return SlaElement{}, false, err
	}
	switch getElementType(b) {
	case 1:
		e, err := it.r.ReadElem()
		if err != nil {
			return SlaElement{}, false, err
		}
		return e, true, nil
	case 2:
		return SlaElement{}, false, nil
	default:
		return SlaElement{}, false, NewError(Malformed, "expected an element tag while iterating children")
	}
}

// SeekElemChildrenEnd skips past every remaining descendant of elem,
// leaving the cursor positioned just after elem's own end tag.
func (r *SlaBinReader) SeekElemChildrenEnd(elem *SlaElement) error {
	idStack := []ElementId{elem.ID}
	for {
		b, err := r.peekU8()
		if err != nil {
			return err
		}
		switch getElementType(b) {
		case 2:
			if len(idStack) > 1 {
				if err := r.ReadElemEnd(idStack[len(idStack)-1]); err != nil {
					return err
				}
				idStack = idStack[:len(idStack)-1]
			} else {
				return nil
			}
		case 1:
			e, err := r.ReadElem()
			if err != nil {
				return err
			}
			idStack = append(idStack, e.ID)
		default:
			return NewError(Malformed, "expected an element tag while skipping children")
		}
	}
}
