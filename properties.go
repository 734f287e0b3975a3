package feature

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
)

// FlatGeobuf property buffers are a sequence of
// [uint16 column index][value] pairs. Fixed-width values are little
// endian; String, Json, DateTime and Binary values carry a uint32 byte
// length prefix. Null values are omitted.

// kindOfColumnType maps a FlatGeobuf column type to the Value kind it
// decodes to. Json columns report String; array documents decode to
// list values.
func kindOfColumnType(t flattypes.ColumnType) (Kind, error) {
	switch t {
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte,
		flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort, flattypes.ColumnTypeInt:
		return KindInteger, nil
	case flattypes.ColumnTypeUInt, flattypes.ColumnTypeLong:
		return KindInteger64, nil
	case flattypes.ColumnTypeULong, flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
		return KindReal, nil
	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson:
		return KindString, nil
	case flattypes.ColumnTypeDateTime:
		return KindDateTime, nil
	}
	return KindInvalid, fmt.Errorf("%w: %s", ErrUnsupportedColumn, flattypes.EnumNamesColumnType[t])
}

// columnTypeOf picks the FlatGeobuf column type used to write col.
func columnTypeOf(col Column) (flattypes.ColumnType, error) {
	if col.Type != "" {
		if t, ok := flattypes.EnumValuesColumnType[col.Type]; ok {
			return t, nil
		}
	}
	switch col.Kind {
	case KindInteger:
		return flattypes.ColumnTypeInt, nil
	case KindInteger64:
		return flattypes.ColumnTypeLong, nil
	case KindReal:
		return flattypes.ColumnTypeDouble, nil
	case KindString:
		return flattypes.ColumnTypeString, nil
	case KindDate, KindDateTime:
		return flattypes.ColumnTypeDateTime, nil
	case KindIntegerList, KindInteger64List, KindRealList, KindStringList:
		return flattypes.ColumnTypeJson, nil
	}
	return 0, fmt.Errorf("%w: column %q of kind %s", ErrUnsupportedColumn, col.Name, col.Kind)
}

// propertyValue is one non-null property of a record being written.
type propertyValue struct {
	index int
	value Value
}

// encodeProperties encodes values against the column types.
func encodeProperties(values []propertyValue, types []flattypes.ColumnType) ([]byte, error) {
	var buf bytes.Buffer
	for _, pv := range values {
		if pv.index < 0 || pv.index >= len(types) || pv.index > math.MaxUint16 {
			return nil, fmt.Errorf("%w: column index %d", ErrInvalidData, pv.index)
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(pv.index))
		if err := writePropertyValue(&buf, pv.value, types[pv.index]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writePropertyValue writes v as a value of column type t.
func writePropertyValue(buf *bytes.Buffer, v Value, t flattypes.ColumnType) error {
	mismatch := func() error {
		return fmt.Errorf("%w: cannot write %s as %s", ErrInvalidData, v, flattypes.EnumNamesColumnType[t])
	}
	le := binary.LittleEndian

	switch t {
	case flattypes.ColumnTypeBool:
		n, ok := intOf(v)
		if !ok {
			return mismatch()
		}
		if n != 0 {
			n = 1
		}
		buf.WriteByte(byte(n))

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		n, ok := intOf(v)
		if !ok || !fitsColumn(n, t) {
			return mismatch()
		}
		buf.WriteByte(byte(n))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		n, ok := intOf(v)
		if !ok || !fitsColumn(n, t) {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint16(n))

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		n, ok := intOf(v)
		if !ok || !fitsColumn(n, t) {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint32(n))

	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		n, ok := intOf(v)
		if !ok {
			f, isReal := v.v.(float64)
			if !isReal || t != flattypes.ColumnTypeULong || f < 0 || f >= math.MaxUint64 {
				return mismatch()
			}
			_ = binary.Write(buf, le, uint64(f))
			return nil
		}
		if !fitsColumn(n, t) {
			return mismatch()
		}
		_ = binary.Write(buf, le, uint64(n))

	case flattypes.ColumnTypeFloat:
		f, ok := floatOf(v)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, math.Float32bits(float32(f)))

	case flattypes.ColumnTypeDouble:
		f, ok := floatOf(v)
		if !ok {
			return mismatch()
		}
		_ = binary.Write(buf, le, math.Float64bits(f))

	case flattypes.ColumnTypeString:
		s, ok := v.v.(string)
		if !ok {
			return mismatch()
		}
		writeSized(buf, []byte(s))

	case flattypes.ColumnTypeJson:
		switch v.kind {
		case KindString:
			writeSized(buf, []byte(v.v.(string)))
		case KindIntegerList, KindInteger64List, KindRealList, KindStringList:
			b, err := json.Marshal(v.v)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidData, err)
			}
			writeSized(buf, b)
		default:
			return mismatch()
		}

	case flattypes.ColumnTypeDateTime:
		switch v.kind {
		case KindDate:
			writeSized(buf, []byte(v.v.(time.Time).Format(DateLayout)))
		case KindDateTime:
			writeSized(buf, []byte(v.v.(time.Time).Format(time.RFC3339Nano)))
		case KindString:
			writeSized(buf, []byte(v.v.(string)))
		default:
			return mismatch()
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedColumn, flattypes.EnumNamesColumnType[t])
	}
	return nil
}

// fitsColumn reports whether n is within the range of integer column t.
func fitsColumn(n int64, t flattypes.ColumnType) bool {
	switch t {
	case flattypes.ColumnTypeByte:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case flattypes.ColumnTypeUByte:
		return n >= 0 && n <= math.MaxUint8
	case flattypes.ColumnTypeShort:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case flattypes.ColumnTypeUShort:
		return n >= 0 && n <= math.MaxUint16
	case flattypes.ColumnTypeInt:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case flattypes.ColumnTypeUInt:
		return n >= 0 && n <= math.MaxUint32
	case flattypes.ColumnTypeULong:
		return n >= 0
	}
	return true
}

func writeSized(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

// decodeProperties decodes a property buffer into column index -> value.
func decodeProperties(data []byte, types []flattypes.ColumnType) (map[int]Value, error) {
	props := make(map[int]Value)
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index at %d", ErrInvalidData, offset)
		}
		col := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if col >= len(types) {
			return nil, fmt.Errorf("%w: column index %d out of range", ErrInvalidData, col)
		}

		v, n, err := readPropertyValue(data[offset:], types[col])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", col, err)
		}
		offset += n
		props[col] = v
	}
	return props, nil
}

// readPropertyValue reads one value of type t. Returns the value and
// the number of bytes consumed.
func readPropertyValue(data []byte, t flattypes.ColumnType) (Value, int, error) {
	need := func(n int) error {
		if len(data) < n {
			return fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidData, n, len(data))
		}
		return nil
	}
	le := binary.LittleEndian

	switch t {
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return Value{}, 0, err
		}
		switch t {
		case flattypes.ColumnTypeBool:
			if data[0] != 0 {
				return IntegerValue(1), 1, nil
			}
			return IntegerValue(0), 1, nil
		case flattypes.ColumnTypeByte:
			return IntegerValue(int32(int8(data[0]))), 1, nil
		}
		return IntegerValue(int32(data[0])), 1, nil

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return Value{}, 0, err
		}
		u := le.Uint16(data)
		if t == flattypes.ColumnTypeShort {
			return IntegerValue(int32(int16(u))), 2, nil
		}
		return IntegerValue(int32(u)), 2, nil

	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return Value{}, 0, err
		}
		return IntegerValue(int32(le.Uint32(data))), 4, nil

	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return Value{}, 0, err
		}
		return Integer64Value(int64(le.Uint32(data))), 4, nil

	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return Value{}, 0, err
		}
		return Integer64Value(int64(le.Uint64(data))), 8, nil

	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return Value{}, 0, err
		}
		return RealValue(float64(le.Uint64(data))), 8, nil

	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return Value{}, 0, err
		}
		return RealValue(float64(math.Float32frombits(le.Uint32(data)))), 4, nil

	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return Value{}, 0, err
		}
		return RealValue(math.Float64frombits(le.Uint64(data))), 8, nil

	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson, flattypes.ColumnTypeDateTime:
		if err := need(4); err != nil {
			return Value{}, 0, err
		}
		size := int(le.Uint32(data))
		if err := need(4 + size); err != nil {
			return Value{}, 0, err
		}
		s := string(data[4 : 4+size])
		v, err := textValue(s, t)
		if err != nil {
			return Value{}, 0, err
		}
		return v, 4 + size, nil

	case flattypes.ColumnTypeBinary:
		// Skipped; the zero Value marks the field unreadable.
		if err := need(4); err != nil {
			return Value{}, 0, err
		}
		size := int(le.Uint32(data))
		if err := need(4 + size); err != nil {
			return Value{}, 0, err
		}
		return Value{}, 4 + size, nil
	}
	return Value{}, 0, fmt.Errorf("%w: %s", ErrUnsupportedColumn, flattypes.EnumNamesColumnType[t])
}

// textValue interprets the payload of a length-prefixed column.
func textValue(s string, t flattypes.ColumnType) (Value, error) {
	switch t {
	case flattypes.ColumnTypeDateTime:
		if len(s) == len(DateLayout) {
			if d, err := time.Parse(DateLayout, s); err == nil {
				return DateValue(d), nil
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: datetime %q", ErrInvalidData, s)
		}
		return DateTimeValue(ts), nil

	case flattypes.ColumnTypeJson:
		var items []any
		if len(s) > 0 && s[0] == '[' && json.Unmarshal([]byte(s), &items) == nil {
			if v, ok, err := listOf(items); err == nil && ok {
				return v, nil
			}
		}
	}
	return StringValue(s), nil
}

func intOf(v Value) (int64, bool) {
	switch n := v.v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func floatOf(v Value) (float64, bool) {
	switch n := v.v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
