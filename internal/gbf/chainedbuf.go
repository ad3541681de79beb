package gbf

import "github.com/greyforge/core/internal/memview"

// ChainedBufferView is a memview.View over one ChainedBuffer: a logical
// buffer stored across one or more chained-buffer blocks, optionally
// fronted by an index block chaining further index blocks together. It is
// read-only: writing a chained buffer is not implemented by this reader.
type ChainedBufferView struct {
	file       *File
	bufferSize int32
	indexed    bool
	bufferMap  []int32 // data block id per logical data segment, -1 for holes
}

// NewChainedBufferView opens the chained buffer rooted at block nid.
func NewChainedBufferView(f *File, nid int32) (*ChainedBufferView, error) {
	at := f.bufferAddress(nid)

	kind, err := readU8(f.mv, &at)
	if err != nil {
		return nil, err
	}

	obfBufferSize, err := readU32(f.mv, &at)
	if err != nil {
		return nil, err
	}
	bufferSize := int32(obfBufferSize & 0x7fffffff)
	obfuscated := obfBufferSize&0x80000000 != 0
	if obfuscated {
		return nil, memview.NewError(memview.Unsupported, "obfuscated chained buffer (nid=%d) is not supported", nid)
	}

	switch NodeKind(kind) {
	case ChainedBufData:
		return &ChainedBufferView{file: f, bufferSize: bufferSize, indexed: false, bufferMap: []int32{nid}}, nil

	case ChainedBufIndex:
		gbfBufferSize := f.bufferSize()
		chainDataLen := gbfBufferSize - chainDataPrefixLen(true)
		chainIndexLen := gbfBufferSize - 1 - 4 - 4
		indexesPerBuffer := chainIndexLen / 4

		// Number of data segments the logical buffer is split across, and
		// the number of index blocks needed to hold that many data block
		// ids (each index block holds indexesPerBuffer id slots, chaining
		// to the next one via next_index_block).
		dataSegCount := ((uint64(bufferSize) - 1) / chainDataLen) + 1
		indexBlockCount := ((dataSegCount - 1) / indexesPerBuffer) + 1

		var bufferMap []int32
		atChain := at
		lastIndex := indexBlockCount - 1

		for i := uint64(0); i < indexBlockCount; i++ {
			nextBufferIdx, err := readI32(f.mv, &atChain)
			if err != nil {
				return nil, err
			}
			for j := uint64(0); j < indexesPerBuffer; j++ {
				id, err := readI32(f.mv, &atChain)
				if err != nil {
					return nil, err
				}
				bufferMap = append(bufferMap, id)
			}

			if i != lastIndex {
				atChain = f.bufferAddress(nextBufferIdx)
				atChain += 1 + 4 + 4 // skip kind + obf_buffer_size/next-index-block fields
			}
		}

		return &ChainedBufferView{file: f, bufferSize: bufferSize, indexed: true, bufferMap: bufferMap}, nil

	default:
		return nil, memview.NewError(memview.Generic, "unexpected block kind %d while reading chained buffer", kind)
	}
}

func chainDataPrefixLen(indexed bool) uint64 {
	if indexed {
		return 1 // indexed chain data blocks carry no obf_buffer_size field
	}
	return 1 + 4
}

func (c *ChainedBufferView) chainDataLen() uint64 {
	return c.file.bufferSize() - chainDataPrefixLen(c.indexed)
}

func (c *ChainedBufferView) MaxAddress() uint64           { return uint64(c.bufferSize) }
func (c *ChainedBufferView) CanReadWhileRunning() bool    { return true }
func (c *ChainedBufferView) CanWriteWhileRunning() bool   { return true }

func (c *ChainedBufferView) ReadBytes(cursor uint64, dst []byte) error {
	count := len(dst)
	if count == 0 {
		return nil
	}
	if cursor+uint64(count)-1 >= uint64(c.bufferSize) {
		return memview.NewError(memview.EndOfStream, "read past chained buffer bounds (size %d)", c.bufferSize)
	}

	chainDataLen := c.chainDataLen()
	outOff := 0
	index := int(cursor / chainDataLen)
	bufOff := int(cursor % chainDataLen)
	remaining := count

	for remaining > 0 {
		n, err := c.readFromSegment(index, bufOff, dst, outOff, remaining)
		if err != nil {
			return err
		}
		index++
		outOff += n
		remaining -= n
		bufOff = 0
	}
	return nil
}

func (c *ChainedBufferView) readFromSegment(index, bufOff int, dst []byte, outOff, remaining int) (int, error) {
	chainDataLen := int(c.chainDataLen())
	spaceLeft := chainDataLen - bufOff
	n := remaining
	if spaceLeft < n {
		n = spaceLeft
	}

	if index < 0 || index >= len(c.bufferMap) {
		return 0, memview.NewError(memview.Generic, "chained buffer segment %d out of bounds (%d segments)", index, len(c.bufferMap))
	}

	bufferID := c.bufferMap[index]
	if bufferID < 0 {
		for i := 0; i < n; i++ {
			dst[outOff+i] = 0
		}
		return n, nil
	}

	readAddr := c.file.bufferAddress(bufferID) + chainDataPrefixLen(c.indexed)
	if err := c.file.mv.ReadBytes(readAddr, dst[outOff:outOff+n]); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *ChainedBufferView) WriteBytes(cursor uint64, src []byte) error {
	return memview.NewError(memview.WriteAccessDenied, "writing to a chained buffer is not supported")
}

var _ memview.View = (*ChainedBufferView)(nil)
