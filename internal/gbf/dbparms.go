package gbf

import "github.com/greyforge/core/internal/memview"

// DbParms is the fixed set of database-wide parameters stored in block 0's
// buffer, tagged as a chained-buffer data block.
type DbParms struct {
	NodeCode uint8
	DataLen  int32
	Version  uint8
	Values   []int32
}

// Indices into DbParms.Values.
const (
	MasterTableRootBufferIDParm = 0
	DatabaseIDHighParm          = 1
	DatabaseIDLowParm           = 2
)

func readDbParms(v memview.View, at *uint64) (DbParms, error) {
	nodeCode, err := readU8(v, at)
	if err != nil {
		return DbParms{}, err
	}
	dataLen, err := readI32(v, at)
	if err != nil {
		return DbParms{}, err
	}
	version, err := readU8(v, at)
	if err != nil {
		return DbParms{}, err
	}

	valuesCount := (dataLen - 1) / 4
	if valuesCount < 3 {
		return DbParms{}, memview.NewError(memview.Generic, "expected at least 3 db parms, found %d", valuesCount)
	}

	values := make([]int32, valuesCount)
	for i := range values {
		v32, err := readI32(v, at)
		if err != nil {
			return DbParms{}, err
		}
		values[i] = v32
	}

	return DbParms{NodeCode: nodeCode, DataLen: dataLen, Version: version, Values: values}, nil
}
