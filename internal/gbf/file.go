package gbf

import "github.com/greyforge/core/internal/memview"

// blockPrefixSize is the per-block node-kind tag byte plus the 4-byte
// storage prefix that precedes every block's buffer.
const blockPrefixSize = 1 + 4

// File is the root handle onto a GBF database: its header, parsed db
// parameters, and a Catalog of the tables its master table describes.
type File struct {
	Magic              uint64
	FileID              int64
	FormatVersion      int32
	BlockSize          int32
	BlockCount         int32
	FirstFreeBufferIdx int32
	DbParms            DbParms
	Catalog            *Catalog

	mv memview.View
}

// Open parses a GBF file's header, its block-0 db parameters, and its
// master table, starting at cursor.
func Open(mv memview.View, cursor uint64) (*File, error) {
	at := cursor

	magic, err := readU64(mv, &at)
	if err != nil {
		return nil, err
	}
	fileID, err := readI64(mv, &at)
	if err != nil {
		return nil, err
	}
	formatVersion, err := readI32(mv, &at)
	if err != nil {
		return nil, err
	}
	blockSize, err := readI32(mv, &at)
	if err != nil {
		return nil, err
	}
	firstFreeBufferIdx, err := readI32(mv, &at)
	if err != nil {
		return nil, err
	}

	const dbParmsBlockIdx = 0
	dbParmsKind, err := readBlockKindStatic(mv, dbParmsBlockIdx, blockSize)
	if err != nil {
		return nil, err
	}
	if NodeKind(dbParmsKind) != ChainedBufData {
		return nil, memview.NewError(memview.Generic, "expected block kind %d (chained-buffer data), found %d", ChainedBufData, dbParmsKind)
	}

	atDbParms := bufferAddressStatic(dbParmsBlockIdx, blockSize)
	dbParms, err := readDbParms(mv, &atDbParms)
	if err != nil {
		return nil, err
	}

	mvSize := mv.MaxAddress()
	var blockCount int32
	if mvSize != memview.Unbounded {
		if mvSize%uint64(blockSize) != 0 {
			return nil, memview.NewError(memview.Generic, "invalid padding for size %d (expected %d bytes of alignment)", mvSize, blockSize)
		}
		blockCount = int32(mvSize/uint64(blockSize)) - 1
	}

	f := &File{
		Magic:              magic,
		FileID:             fileID,
		FormatVersion:      formatVersion,
		BlockSize:          blockSize,
		BlockCount:         blockCount,
		FirstFreeBufferIdx: firstFreeBufferIdx,
		DbParms:            dbParms,
		mv:                 mv,
	}

	rootNid := dbParms.Values[MasterTableRootBufferIDParm]
	catalog, err := newCatalog(f, rootNid)
	if err != nil {
		return nil, err
	}
	f.Catalog = catalog

	return f, nil
}

func (f *File) ReadBlockKind(blockID int32) (uint8, error) {
	return readBlockKindStatic(f.mv, blockID, f.BlockSize)
}

func readBlockKindStatic(mv memview.View, blockID int32, blockSize int32) (uint8, error) {
	at := blockAddressStatic(blockID, blockSize)
	return readU8(mv, &at)
}

func (f *File) blockAddress(blockID int32) uint64 {
	return blockAddressStatic(blockID, f.BlockSize)
}

func blockAddressStatic(blockID int32, blockSize int32) uint64 {
	return uint64(blockID+1) * uint64(blockSize)
}

func (f *File) bufferAddress(blockID int32) uint64 {
	return bufferAddressStatic(blockID, f.BlockSize)
}

func bufferAddressStatic(blockID int32, blockSize int32) uint64 {
	return blockAddressStatic(blockID, blockSize) + blockPrefixSize
}

func (f *File) bufferSize() uint64 {
	return uint64(f.BlockSize) - blockPrefixSize
}
