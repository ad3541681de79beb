package memview

// Static is a MemoryView backed by a fixed, fully in-memory byte buffer. It
// is the simplest backing: reads and writes bounds-check directly against
// the buffer's length.
type Static struct {
	buf []byte
}

// NewStatic wraps buf. The returned view shares buf's backing array; callers
// that need an independent copy should clone buf first.
func NewStatic(buf []byte) *Static {
	return &Static{buf: buf}
}

func (s *Static) MaxAddress() uint64 { return uint64(len(s.buf)) }

func (s *Static) CanReadWhileRunning() bool  { return true }
func (s *Static) CanWriteWhileRunning() bool { return true }

func (s *Static) ReadBytes(cursor uint64, dst []byte) error {
	end := cursor + uint64(len(dst))
	if cursor > uint64(len(s.buf)) || end > uint64(len(s.buf)) {
		return NewError(EndOfStream, "read [%d,%d) exceeds buffer length %d", cursor, end, len(s.buf))
	}
	copy(dst, s.buf[cursor:end])
	return nil
}

func (s *Static) WriteBytes(cursor uint64, src []byte) error {
	end := cursor + uint64(len(src))
	if cursor > uint64(len(s.buf)) || end > uint64(len(s.buf)) {
		return NewError(EndOfStream, "write [%d,%d) exceeds buffer length %d", cursor, end, len(s.buf))
	}
	copy(s.buf[cursor:end], src)
	return nil
}

var _ View = (*Static)(nil)
