package gbf

import "github.com/greyforge/core/internal/memview"

// FieldKind is the closed set of column types a table schema can declare.
// The low nibble of the on-disk byte carries the kind; the high nibble is
// reserved for indexed-field flags this reader does not yet interpret.
type FieldKind uint8

const (
	FieldByte FieldKind = iota
	FieldShort
	FieldInt
	FieldLong
	FieldString
	FieldBytes
	FieldBoolean
)

// FieldKindFromByte decodes the low nibble of a schema's on-disk field-type
// byte, reporting false for a value with no known kind.
func FieldKindFromByte(b uint8) (FieldKind, bool) {
	switch b & 0xf {
	case uint8(FieldBoolean):
		return FieldBoolean, true
	case uint8(FieldByte):
		return FieldByte, true
	case uint8(FieldShort):
		return FieldShort, true
	case uint8(FieldInt):
		return FieldInt, true
	case uint8(FieldLong):
		return FieldLong, true
	case uint8(FieldString):
		return FieldString, true
	case uint8(FieldBytes):
		return FieldBytes, true
	default:
		return 0, false
	}
}

// Len returns the field's fixed on-disk width, or -1 if it is variable
// length (String, Bytes).
func (k FieldKind) Len() int32 {
	switch k {
	case FieldBoolean, FieldByte:
		return 1
	case FieldShort:
		return 2
	case FieldInt:
		return 4
	case FieldLong:
		return 8
	default:
		return -1
	}
}

// FieldValue holds one decoded column or key value. Exactly the member
// matching Kind is meaningful.
type FieldValue struct {
	Kind FieldKind
	Bool bool
	I8   int8
	I16  int16
	I32  int32
	I64  int64
	Str  string
	Buf  []byte
}

func BooleanValue(v bool) FieldValue { return FieldValue{Kind: FieldBoolean, Bool: v} }
func ByteValue(v int8) FieldValue    { return FieldValue{Kind: FieldByte, I8: v} }
func ShortValue(v int16) FieldValue  { return FieldValue{Kind: FieldShort, I16: v} }
func IntValue(v int32) FieldValue    { return FieldValue{Kind: FieldInt, I32: v} }
func LongValue(v int64) FieldValue   { return FieldValue{Kind: FieldLong, I64: v} }
func StringValue(v string) FieldValue { return FieldValue{Kind: FieldString, Str: v} }
func BytesValue(v []byte) FieldValue  { return FieldValue{Kind: FieldBytes, Buf: v} }

func defaultFieldValue(k FieldKind) FieldValue {
	switch k {
	case FieldBoolean:
		return BooleanValue(false)
	case FieldByte:
		return ByteValue(0)
	case FieldShort:
		return ShortValue(0)
	case FieldInt:
		return IntValue(0)
	case FieldLong:
		return LongValue(0)
	case FieldString:
		return StringValue("")
	default:
		return BytesValue(nil)
	}
}

// Record is one key/value row decoded against a TableSchema.
type Record struct {
	Key    FieldValue
	Values []FieldValue
}

func (r Record) valueOrErr(index int) (*FieldValue, error) {
	if index < 0 || index >= len(r.Values) {
		return nil, memview.NewError(memview.Generic, "out of bounds record access at column %d", index)
	}
	return &r.Values[index], nil
}

// GetBoolean widens Boolean/Byte/Short/Int/Long to a truth value.
func (r Record) GetBoolean(index int) (bool, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return false, err
	}
	switch v.Kind {
	case FieldBoolean:
		return v.Bool, nil
	case FieldByte:
		return v.I8 != 0, nil
	case FieldShort:
		return v.I16 != 0, nil
	case FieldInt:
		return v.I32 != 0, nil
	case FieldLong:
		return v.I64 != 0, nil
	default:
		return false, memview.NewError(memview.Generic, "unexpected field type %v for GetBoolean", v.Kind)
	}
}

// GetByte narrows Byte/Short/Int/Long to a signed 8-bit value.
func (r Record) GetByte(index int) (int8, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case FieldByte:
		return v.I8, nil
	case FieldShort:
		return int8(v.I16), nil
	case FieldInt:
		return int8(v.I32), nil
	case FieldLong:
		return int8(v.I64), nil
	default:
		return 0, memview.NewError(memview.Generic, "unexpected field type %v for GetByte", v.Kind)
	}
}

// GetShort narrows/widens Byte/Short/Int/Long to a signed 16-bit value.
func (r Record) GetShort(index int) (int16, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case FieldShort:
		return v.I16, nil
	case FieldByte:
		return int16(v.I8), nil
	case FieldInt:
		return int16(v.I32), nil
	case FieldLong:
		return int16(v.I64), nil
	default:
		return 0, memview.NewError(memview.Generic, "unexpected field type %v for GetShort", v.Kind)
	}
}

// GetInt narrows/widens Byte/Short/Int/Long to a signed 32-bit value.
func (r Record) GetInt(index int) (int32, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case FieldInt:
		return v.I32, nil
	case FieldByte:
		return int32(v.I8), nil
	case FieldShort:
		return int32(v.I16), nil
	case FieldLong:
		return int32(v.I64), nil
	default:
		return 0, memview.NewError(memview.Generic, "unexpected field type %v for GetInt", v.Kind)
	}
}

// GetLong widens Byte/Short/Int/Long to a signed 64-bit value.
func (r Record) GetLong(index int) (int64, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case FieldLong:
		return v.I64, nil
	case FieldByte:
		return int64(v.I8), nil
	case FieldShort:
		return int64(v.I16), nil
	case FieldInt:
		return int64(v.I32), nil
	default:
		return 0, memview.NewError(memview.Generic, "unexpected field type %v for GetLong", v.Kind)
	}
}

func (r Record) GetString(index int) (string, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return "", err
	}
	if v.Kind != FieldString {
		return "", memview.NewError(memview.Generic, "unexpected field type %v for GetString", v.Kind)
	}
	return v.Str, nil
}

func (r Record) GetBytes(index int) ([]byte, error) {
	v, err := r.valueOrErr(index)
	if err != nil {
		return nil, err
	}
	if v.Kind != FieldBytes {
		return nil, memview.NewError(memview.Generic, "unexpected field type %v for GetBytes", v.Kind)
	}
	return v.Buf, nil
}
