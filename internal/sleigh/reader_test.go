package sleigh

import "testing"

func TestReadSizedIntAccumulatesSevenBitsPerByte(t *testing.T) {
	// 0x01 0x7f encodes (1<<7)|0x7f = 0xff across two bytes.
	r := NewSlaBinReader([]byte{0x01, 0x7f})
	v, err := r.readSizedInt(2)
	if err != nil {
		t.Fatalf("readSizedInt: %v", err)
	}
	if v != 0xff {
		t.Fatalf("got %d, want 255", v)
	}
}

func TestGetElementIDExtUsesBitwiseOr(t *testing.T) {
	// base id bits (low 5 of b1) and extension bits (low 7 of b1e) combine
	// with a plain OR, not a shift, matching the reference decoder.
	got := getElementIDExt(0b00000011, 0b00000100)
	if got != 0b0000111 {
		t.Fatalf("got %#b, want %#b", got, 0b0000111)
	}
}

func TestSeekOnlyValidatesCurrentPosition(t *testing.T) {
	r := NewSlaBinReader([]byte{1, 2, 3})
	r.pos = 1
	// Destination far past the buffer is accepted because only the
	// current position is checked, not where we're headed.
	if err := r.seek(1000); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if r.pos != 1000 {
		t.Fatalf("pos = %d, want 1000", r.pos)
	}
}

func TestSeekRejectsFromOutOfBoundsPosition(t *testing.T) {
	r := NewSlaBinReader([]byte{1, 2, 3})
	r.pos = 5
	if err := r.seek(0); err == nil {
		t.Fatal("expected error seeking from an out-of-bounds position")
	}
}

func buildStartTag(id ElementId, extra ...byte) []byte {
	out := []byte{0b01000000 | byte(id)}
	out = append(out, extra...)
	return out
}

func buildEndTag(id ElementId) []byte {
	return []byte{0b10000000 | byte(id)}
}

func TestReadElemRoundTripsStartAndEnd(t *testing.T) {
	data := append(buildStartTag(ElemSpace), buildEndTag(ElemSpace)...)
	r := NewSlaBinReader(data)

	start, err := r.ReadElem()
	if err != nil {
		t.Fatalf("read start: %v", err)
	}
	if !start.Start || start.ID != ElemSpace {
		t.Fatalf("got %+v", start)
	}

	end, err := r.ReadElem()
	if err != nil {
		t.Fatalf("read end: %v", err)
	}
	if end.Start || end.ID != ElemSpace {
		t.Fatalf("got %+v", end)
	}
}

func TestReadAttrBooleanUsesSizeAsTruth(t *testing.T) {
	// attribute tag byte: type=3(attr), extended=0, id bits = AttrCode
	b1 := byte(0b11000000) | byte(AttrCode)
	b2 := byte(AttrKindBoolean<<4) | 1
	r := NewSlaBinReader([]byte{b1, b2})
	attr, err := r.readAttr()
	if err != nil {
		t.Fatalf("readAttr: %v", err)
	}
	if attr.vkind != attrValBool || !attr.b {
		t.Fatalf("got %+v, want true boolean", attr)
	}
}

func TestReadAttrNegativeSignedIntegerNegatesValue(t *testing.T) {
	b1 := byte(0b11000000) | byte(AttrVal)
	b2 := byte(AttrKindNegativeSignedInteger<<4) | 1
	r := NewSlaBinReader([]byte{b1, b2, 5})
	attr, err := r.readAttr()
	if err != nil {
		t.Fatalf("readAttr: %v", err)
	}
	if attr.vkind != attrValInt || attr.i != -5 {
		t.Fatalf("got %+v, want -5", attr)
	}
}

func TestReadAttrStringRejectsInvalidUTF8(t *testing.T) {
	b1 := byte(0b11000000) | byte(AttrName)
	b2 := byte(AttrKindString<<4) | 1
	r := NewSlaBinReader([]byte{b1, b2, 1, 0xff})
	if _, err := r.readAttr(); err == nil {
		t.Fatal("expected error decoding invalid utf-8 string attribute")
	}
}

func TestElemIterStopsAtEndTagWithoutConsumingIt(t *testing.T) {
	data := append(buildStartTag(ElemSpace), buildEndTag(ElemSpace)...)
	data = append(buildStartTag(ElemSpaces), data...)
	data = append(data, buildEndTag(ElemSpaces)...)

	r := NewSlaBinReader(data)
	root, err := r.ReadElemStart(ElemSpaces)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if err := r.SeekElemChildrenStart(&root); err != nil {
		t.Fatalf("seek children: %v", err)
	}
	it, err := r.ReadElemChildren(root.EPos)
	if err != nil {
		t.Fatalf("children iter: %v", err)
	}
	child, ok, err := it.Next()
	if err != nil || !ok || child.ID != ElemSpace {
		t.Fatalf("got child=%+v ok=%v err=%v", child, ok, err)
	}
	if err := r.ReadElemEnd(ElemSpace); err != nil {
		t.Fatalf("read child end: %v", err)
	}
	_, ok, err = it.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ok {
		t.Fatal("expected iterator exhaustion at the enclosing end tag")
	}
	if err := r.ReadElemEnd(ElemSpaces); err != nil {
		t.Fatalf("read root end: %v", err)
	}
}
