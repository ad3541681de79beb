// Package gbf reads the hierarchical B+tree "GBF" on-disk table format
// through a memview.View, exposing a queryable, iterable catalog of tables.
package gbf

import "github.com/greyforge/core/internal/memview"

// GBF is always big-endian. These helpers read one field from v at *at and
// advance the cursor past it, matching the format's sequential field layout.

func readU8(v memview.View, at *uint64) (uint8, error) {
	b, err := memview.ReadU8(v, *at)
	if err != nil {
		return 0, err
	}
	*at++
	return b, nil
}

func readI32(v memview.View, at *uint64) (int32, error) {
	n, err := memview.ReadI32(v, *at, memview.BigEndian)
	if err != nil {
		return 0, err
	}
	*at += 4
	return n, nil
}

func readU32(v memview.View, at *uint64) (uint32, error) {
	n, err := memview.ReadU32(v, *at, memview.BigEndian)
	if err != nil {
		return 0, err
	}
	*at += 4
	return n, nil
}

func readI64(v memview.View, at *uint64) (int64, error) {
	n, err := memview.ReadI64(v, *at, memview.BigEndian)
	if err != nil {
		return 0, err
	}
	*at += 8
	return n, nil
}

func readU64(v memview.View, at *uint64) (uint64, error) {
	n, err := memview.ReadU64(v, *at, memview.BigEndian)
	if err != nil {
		return 0, err
	}
	*at += 8
	return n, nil
}

func readBytes(v memview.View, at *uint64, n int32) ([]byte, error) {
	buf := make([]byte, n)
	if err := v.ReadBytes(*at, buf); err != nil {
		return nil, err
	}
	*at += uint64(n)
	return buf, nil
}
