// Package memview provides the random-access byte-addressable view that the
// disassembler, debugger, and GBF database reader all read and write
// through. A View is a small interface of byte operations; typed
// integer/float helpers are derived from it so that every concrete backing
// gets them for free.
package memview

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Endianness selects byte order for typed reads and writes.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Bitness is a register or address-space word width.
type Bitness int

const (
	Bit8 Bitness = iota
	Bit16
	Bit32
	Bit64
)

// Bytes returns the width of b in bytes.
func (b Bitness) Bytes() int {
	switch b {
	case Bit8:
		return 1
	case Bit16:
		return 2
	case Bit32:
		return 4
	case Bit64:
		return 8
	default:
		return 0
	}
}

// ErrorKind is the closed set of ways a View operation can fail.
type ErrorKind int

const (
	// EndOfStream is returned when a read would advance past MaxAddress.
	EndOfStream ErrorKind = iota
	ReadAccessDenied
	WriteAccessDenied
	NotLoaded
	InvalidParameter
	// Unsupported covers backing-specific structures this core recognizes
	// but deliberately does not decode (e.g. an obfuscated chained buffer).
	// See SPEC_FULL.md §9 ("Open Question resolutions").
	Unsupported
	Generic
)

func (k ErrorKind) String() string {
	switch k {
	case EndOfStream:
		return "end of stream"
	case ReadAccessDenied:
		return "read access denied"
	case WriteAccessDenied:
		return "write access denied"
	case NotLoaded:
		return "not loaded"
	case InvalidParameter:
		return "invalid parameter"
	case Unsupported:
		return "unsupported"
	default:
		return "generic"
	}
}

// Error is the single error type every View operation fails with.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *Error, along with whether one was found.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Unbounded is the sentinel MaxAddress for sources with no fixed upper
// bound, such as a live process's address space.
const Unbounded uint64 = math.MaxUint64

// View is the project's abstract random-access byte interface.
type View interface {
	// ReadBytes reads exactly len(dst) bytes starting at cursor into dst.
	// A read that would advance past MaxAddress fails with EndOfStream and
	// leaves dst's contents unspecified.
	ReadBytes(cursor uint64, dst []byte) error

	// WriteBytes writes all of src starting at cursor.
	WriteBytes(cursor uint64, src []byte) error

	// MaxAddress returns one past the highest legal address, or Unbounded.
	MaxAddress() uint64

	// CanReadWhileRunning reports whether reads may be served without
	// dispatching to the owning thread of a live traced process.
	CanReadWhileRunning() bool

	// CanWriteWhileRunning is the write analogue of CanReadWhileRunning.
	CanWriteWhileRunning() bool
}

// --- Typed helpers, derived from the byte-oriented core. ---

func readN(v View, cursor uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := v.ReadBytes(cursor, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func ReadU8(v View, cursor uint64) (uint8, error) {
	b, err := readN(v, cursor, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadI8(v View, cursor uint64) (int8, error) {
	u, err := ReadU8(v, cursor)
	return int8(u), err
}

func ReadU16(v View, cursor uint64, e Endianness) (uint16, error) {
	b, err := readN(v, cursor, 2)
	if err != nil {
		return 0, err
	}
	return e.order().Uint16(b), nil
}

func ReadI16(v View, cursor uint64, e Endianness) (int16, error) {
	u, err := ReadU16(v, cursor, e)
	return int16(u), err
}

func ReadU32(v View, cursor uint64, e Endianness) (uint32, error) {
	b, err := readN(v, cursor, 4)
	if err != nil {
		return 0, err
	}
	return e.order().Uint32(b), nil
}

func ReadI32(v View, cursor uint64, e Endianness) (int32, error) {
	u, err := ReadU32(v, cursor, e)
	return int32(u), err
}

func ReadU64(v View, cursor uint64, e Endianness) (uint64, error) {
	b, err := readN(v, cursor, 8)
	if err != nil {
		return 0, err
	}
	return e.order().Uint64(b), nil
}

func ReadI64(v View, cursor uint64, e Endianness) (int64, error) {
	u, err := ReadU64(v, cursor, e)
	return int64(u), err
}

func ReadF32(v View, cursor uint64, e Endianness) (float32, error) {
	u, err := ReadU32(v, cursor, e)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func ReadF64(v View, cursor uint64, e Endianness) (float64, error) {
	u, err := ReadU64(v, cursor, e)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func WriteU8(v View, cursor uint64, val uint8) error {
	return v.WriteBytes(cursor, []byte{val})
}

func WriteI8(v View, cursor uint64, val int8) error {
	return WriteU8(v, cursor, uint8(val))
}

func WriteU16(v View, cursor uint64, e Endianness, val uint16) error {
	b := make([]byte, 2)
	e.order().PutUint16(b, val)
	return v.WriteBytes(cursor, b)
}

func WriteI16(v View, cursor uint64, e Endianness, val int16) error {
	return WriteU16(v, cursor, e, uint16(val))
}

func WriteU32(v View, cursor uint64, e Endianness, val uint32) error {
	b := make([]byte, 4)
	e.order().PutUint32(b, val)
	return v.WriteBytes(cursor, b)
}

func WriteI32(v View, cursor uint64, e Endianness, val int32) error {
	return WriteU32(v, cursor, e, uint32(val))
}

func WriteU64(v View, cursor uint64, e Endianness, val uint64) error {
	b := make([]byte, 8)
	e.order().PutUint64(b, val)
	return v.WriteBytes(cursor, b)
}

func WriteI64(v View, cursor uint64, e Endianness, val int64) error {
	return WriteU64(v, cursor, e, uint64(val))
}

func WriteF32(v View, cursor uint64, e Endianness, val float32) error {
	return WriteU32(v, cursor, e, math.Float32bits(val))
}

func WriteF64(v View, cursor uint64, e Endianness, val float64) error {
	return WriteU64(v, cursor, e, math.Float64bits(val))
}
