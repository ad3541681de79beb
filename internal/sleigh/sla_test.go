package sleigh

import "testing"

func TestNewRejectsBadMagic(t *testing.T) {
	_, err := New([]byte{0, 0, 0, 4})
	if !IsKind(err, Malformed) {
		t.Fatalf("got %v, want Malformed", err)
	}
}

func TestNewRejectsVersionBelowFour(t *testing.T) {
	// Version 3 must be rejected, matching the documented floor; this only
	// checks the header gate, since a version-4 body still needs a real
	// zlib-compressed tree to decode past it.
	data := []byte{slaMagic[0], slaMagic[1], slaMagic[2], 3}
	_, err := New(data)
	if !IsKind(err, Malformed) {
		t.Fatalf("got %v, want Malformed for version below the floor", err)
	}
}

func TestNewRejectsTruncatedHeader(t *testing.T) {
	_, err := New([]byte{slaMagic[0], slaMagic[1]})
	if !IsKind(err, Malformed) {
		t.Fatalf("got %v, want Malformed for a truncated header", err)
	}
}
