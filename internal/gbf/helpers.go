package gbf

import "github.com/greyforge/core/internal/memview"

// readString reads a length-prefixed UTF-8 string: i32 byte length followed
// by that many bytes.
func readString(v memview.View, at *uint64) (string, error) {
	strLen, err := readI32(v, at)
	if err != nil {
		return "", err
	}
	if strLen < 0 {
		return "", memview.NewError(memview.Generic, "invalid string length %d", strLen)
	}
	if uint64(strLen)+*at >= v.MaxAddress() {
		return "", memview.NewError(memview.EndOfStream, "string of length %d at %#x exceeds view bounds", strLen, *at)
	}

	b, err := readBytes(v, at, strLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readByteString reads a length-prefixed byte blob, where a length of -1
// denotes a null value (reported as ok=false).
func readByteString(v memview.View, at *uint64) ([]byte, bool, error) {
	bytesLen, err := readI32(v, at)
	if err != nil {
		return nil, false, err
	}
	if bytesLen == -1 {
		return nil, false, nil
	}
	if bytesLen < 0 {
		return nil, false, memview.NewError(memview.Generic, "invalid bytestring length %d", bytesLen)
	}
	if uint64(bytesLen)+*at >= v.MaxAddress() {
		return nil, false, memview.NewError(memview.EndOfStream, "bytestring of length %d at %#x exceeds view bounds", bytesLen, *at)
	}

	b, err := readBytes(v, at, bytesLen)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}
