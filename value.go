package feature

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindIntegerList
	KindInteger64
	KindInteger64List
	KindReal
	KindRealList
	KindString
	KindStringList
	KindDate
	KindDateTime
)

var kindNames = [...]string{
	KindInvalid:       "Invalid",
	KindInteger:       "Integer",
	KindIntegerList:   "IntegerList",
	KindInteger64:     "Integer64",
	KindInteger64List: "Integer64List",
	KindReal:          "Real",
	KindRealList:      "RealList",
	KindString:        "String",
	KindStringList:    "StringList",
	KindDate:          "Date",
	KindDateTime:      "DateTime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// DateLayout is the textual form of a KindDate value.
const DateLayout = "2006-01-02"

// Value is a raw field value as exposed by a record source. The zero
// Value has KindInvalid.
type Value struct {
	kind Kind
	v    any
}

// Constructors for each Value kind.
func IntegerValue(v int32) Value         { return Value{KindInteger, v} }
func IntegerListValue(v []int32) Value   { return Value{KindIntegerList, v} }
func Integer64Value(v int64) Value       { return Value{KindInteger64, v} }
func Integer64ListValue(v []int64) Value { return Value{KindInteger64List, v} }
func RealValue(v float64) Value          { return Value{KindReal, v} }
func RealListValue(v []float64) Value    { return Value{KindRealList, v} }
func StringValue(v string) Value         { return Value{KindString, v} }
func StringListValue(v []string) Value   { return Value{KindStringList, v} }
func DateTimeValue(v time.Time) Value    { return Value{KindDateTime, v} }

// DateValue truncates t to its calendar day in UTC.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{KindDate, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the payload of v: int32, []int32, int64, []int64,
// float64, []float64, string, []string or time.Time.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return "Invalid"
	case KindString:
		return "String(" + strconv.Quote(v.v.(string)) + ")"
	case KindDate:
		return "Date(" + v.v.(time.Time).Format(DateLayout) + ")"
	case KindDateTime:
		return "DateTime(" + v.v.(time.Time).Format(time.RFC3339Nano) + ")"
	default:
		return fmt.Sprintf("%s(%v)", v.kind, v.v)
	}
}

// valueOf converts a Go value into a Value. Booleans become integers,
// json-decoded numbers (float64) stay real and homogeneous []any slices
// become lists.
func valueOf(x any) (Value, bool, error) {
	switch v := x.(type) {
	case nil:
		return Value{}, false, nil
	case Value:
		return v, v.kind != KindInvalid, nil
	case bool:
		if v {
			return IntegerValue(1), true, nil
		}
		return IntegerValue(0), true, nil
	case int8:
		return IntegerValue(int32(v)), true, nil
	case int16:
		return IntegerValue(int32(v)), true, nil
	case int32:
		return IntegerValue(v), true, nil
	case uint8:
		return IntegerValue(int32(v)), true, nil
	case uint16:
		return IntegerValue(int32(v)), true, nil
	case int:
		if int64(v) >= -1<<31 && int64(v) < 1<<31 {
			return IntegerValue(int32(v)), true, nil
		}
		return Integer64Value(int64(v)), true, nil
	case int64:
		return Integer64Value(v), true, nil
	case uint32:
		return Integer64Value(int64(v)), true, nil
	case float32:
		return RealValue(float64(v)), true, nil
	case float64:
		return RealValue(v), true, nil
	case string:
		return StringValue(v), true, nil
	case time.Time:
		return DateTimeValue(v), true, nil
	case []int32:
		return IntegerListValue(v), true, nil
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return Integer64ListValue(out), true, nil
	case []int64:
		return Integer64ListValue(v), true, nil
	case []float64:
		return RealListValue(v), true, nil
	case []string:
		return StringListValue(v), true, nil
	case []any:
		return listOf(v)
	}
	return Value{}, false, fmt.Errorf("%w: %T", ErrInvalidData, x)
}

// listOf converts a homogeneous []any of strings or numbers. Numbers
// produce a RealList unless every element is integral.
func listOf(items []any) (Value, bool, error) {
	if len(items) == 0 {
		return StringListValue([]string{}), true, nil
	}
	switch items[0].(type) {
	case string:
		out := make([]string, len(items))
		for i, it := range items {
			s, ok := it.(string)
			if !ok {
				return Value{}, false, fmt.Errorf("%w: mixed list element %T", ErrInvalidData, it)
			}
			out[i] = s
		}
		return StringListValue(out), true, nil
	case float64, int, int64, int32:
		reals := make([]float64, len(items))
		integral := true
		for i, it := range items {
			f, ok := toFloat64(it)
			if !ok {
				return Value{}, false, fmt.Errorf("%w: mixed list element %T", ErrInvalidData, it)
			}
			reals[i] = f
			if f != float64(int64(f)) {
				integral = false
			}
		}
		if !integral {
			return RealListValue(reals), true, nil
		}
		ints := make([]int64, len(reals))
		for i, f := range reals {
			ints[i] = int64(f)
		}
		return Integer64ListValue(ints), true, nil
	}
	return Value{}, false, fmt.Errorf("%w: list element %T", ErrInvalidData, items[0])
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}
