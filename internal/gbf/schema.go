package gbf

import "github.com/greyforge/core/internal/memview"

// TableSchema describes one table's key and columns: their kinds, names,
// and (for tables using the sparse-column extension) which column indices
// may be omitted from a given record.
type TableSchema struct {
	Name          string
	KeyName       string
	KeyKind       FieldKind
	SparseColumns map[int32]struct{} // nil means no sparse extension
	Kinds         []FieldKind
	Names         []string
}

func NewTableSchema(name, keyName string, keyKind FieldKind, sparseColumns map[int32]struct{}) *TableSchema {
	return &TableSchema{Name: name, KeyName: keyName, KeyKind: keyKind, SparseColumns: sparseColumns}
}

func (s *TableSchema) AddColumn(kind FieldKind, name string) {
	s.Kinds = append(s.Kinds, kind)
	s.Names = append(s.Names, name)
}

// ValueLen returns the fixed byte width of one record's column data, or -1
// if any column is variable length.
func (s *TableSchema) ValueLen() int32 {
	var total int32
	for _, k := range s.Kinds {
		l := k.Len()
		if l < 0 {
			return -1
		}
		total += l
	}
	return total
}

func (s *TableSchema) ColumnIndex(name string) (int, bool) {
	for i, n := range s.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ReadRecord decodes one record's columns starting at *at, advancing the
// cursor past them. Sparse tables read only their required columns up
// front, then a trailer listing which optional columns follow.
func (s *TableSchema) ReadRecord(key FieldValue, v memview.View, at *uint64) (Record, error) {
	values := make([]FieldValue, len(s.Kinds))

	if s.SparseColumns != nil {
		for i, kind := range s.Kinds {
			if _, sparse := s.SparseColumns[int32(i)]; sparse {
				values[i] = defaultFieldValue(kind)
				continue
			}
			val, err := readFieldValue(kind, v, at)
			if err != nil {
				return Record{}, err
			}
			values[i] = val
		}

		sparseFieldCount, err := readU8(v, at)
		if err != nil {
			return Record{}, err
		}
		for i := uint8(0); i < sparseFieldCount; i++ {
			fieldIdx, err := readU8(v, at)
			if err != nil {
				return Record{}, err
			}
			if int(fieldIdx) >= len(s.Kinds) {
				return Record{}, memview.NewError(memview.Generic, "sparse field index %d out of bounds (%d columns)", fieldIdx, len(s.Kinds))
			}
			val, err := readFieldValue(s.Kinds[fieldIdx], v, at)
			if err != nil {
				return Record{}, err
			}
			values[fieldIdx] = val
		}
	} else {
		for i, kind := range s.Kinds {
			val, err := readFieldValue(kind, v, at)
			if err != nil {
				return Record{}, err
			}
			values[i] = val
		}
	}

	return Record{Key: key, Values: values}, nil
}

func readFieldValue(kind FieldKind, v memview.View, at *uint64) (FieldValue, error) {
	switch kind {
	case FieldBoolean:
		b, err := readU8(v, at)
		return BooleanValue(b != 0), err
	case FieldByte:
		b, err := readU8(v, at)
		return ByteValue(int8(b)), err
	case FieldShort:
		n, err := memview.ReadI16(v, *at, memview.BigEndian)
		if err != nil {
			return FieldValue{}, err
		}
		*at += 2
		return ShortValue(n), nil
	case FieldInt:
		n, err := readI32(v, at)
		return IntValue(n), err
	case FieldLong:
		n, err := readI64(v, at)
		return LongValue(n), err
	case FieldString:
		s, err := readString(v, at)
		return StringValue(s), err
	case FieldBytes:
		b, ok, err := readByteString(v, at)
		if err != nil {
			return FieldValue{}, err
		}
		if !ok {
			b = nil
		}
		return BytesValue(b), nil
	default:
		return FieldValue{}, memview.NewError(memview.Generic, "unknown field kind %v", kind)
	}
}
