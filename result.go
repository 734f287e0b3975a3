package feature

import "time"

type resultState uint8

const (
	stateValue resultState = iota
	stateNull
	stateError
)

// FieldResult is the outcome of fetching one field from one record:
// a value, an explicit null, or an error. Null is distinct from both a
// missing field (an error) and a zero value.
type FieldResult struct {
	state resultState
	value Value
	err   error
	name  string
}

// Some returns a FieldResult holding v.
func Some(v Value) FieldResult { return FieldResult{state: stateValue, value: v} }

// Null returns a null FieldResult.
func Null() FieldResult { return FieldResult{state: stateNull} }

// Failed returns a FieldResult holding err. A nil err is reported as a
// source error.
func Failed(err error) FieldResult {
	if err == nil {
		err = ErrSource
	}
	return FieldResult{state: stateError, err: err}
}

// resultOf adapts a source's (value, present, error) triple.
func resultOf(v Value, ok bool, err error) FieldResult {
	switch {
	case err != nil:
		return Failed(SourceError(err))
	case !ok:
		return Null()
	default:
		return Some(v)
	}
}

func (r FieldResult) named(name string) FieldResult {
	r.name = name
	return r
}

// Name returns the declared field name r was fetched for, if any.
func (r FieldResult) Name() string { return r.name }

// IsNull and IsError report the state of r.
func (r FieldResult) IsNull() bool  { return r.state == stateNull }
func (r FieldResult) IsError() bool { return r.state == stateError }

// Err returns the error held by r, or nil.
func (r FieldResult) Err() error {
	if r.state != stateError {
		return nil
	}
	if fe, ok := r.err.(*Error); ok {
		return fe.withField(r.name)
	}
	return r.err
}

func (r FieldResult) String() string {
	switch r.state {
	case stateNull:
		return "Null"
	case stateError:
		return "Error(" + r.err.Error() + ")"
	default:
		return "Some(" + r.value.String() + ")"
	}
}

// IntoRequired returns the value, failing with ErrNullField on null.
func (r FieldResult) IntoRequired() (Value, error) {
	v, ok, err := r.IntoOptional()
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, NullFieldError(r.name)
	}
	return v, nil
}

// IntoOptional returns the value and true, or false on null.
func (r FieldResult) IntoOptional() (Value, bool, error) {
	switch r.state {
	case stateNull:
		return Value{}, false, nil
	case stateError:
		return Value{}, false, r.Err()
	default:
		return r.value, true, nil
	}
}

func required[T any](r FieldResult, k Kind) (T, error) {
	var zero T
	v, err := r.IntoRequired()
	if err != nil {
		return zero, err
	}
	return extract[T](r.name, v, k)
}

func optional[T any](r FieldResult, k Kind) (*T, error) {
	v, ok, err := r.IntoOptional()
	if err != nil || !ok {
		return nil, err
	}
	out, err := extract[T](r.name, v, k)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func extract[T any](name string, v Value, k Kind) (T, error) {
	var zero T
	if v.kind != k {
		return zero, InvalidFieldValueError(name, "expected %s, found %s", k, v)
	}
	out, ok := v.v.(T)
	if !ok {
		return zero, InvalidFieldValueError(name, "expected %s, found payload %T", k, v.v)
	}
	return out, nil
}

// As converts r to T, requiring a non-null value tagged k.
func As[T any](r FieldResult, k Kind) (T, error) { return required[T](r, k) }

// AsOptional converts r to *T, mapping null to nil.
func AsOptional[T any](r FieldResult, k Kind) (*T, error) { return optional[T](r, k) }

// TryIntoInt returns an Integer value. Null fails with ErrNullField and
// any other kind with ErrInvalidFieldValue.
func (r FieldResult) TryIntoInt() (int32, error) {
	return required[int32](r, KindInteger)
}

// TryIntoIntOpt is TryIntoInt with null mapped to nil.
func (r FieldResult) TryIntoIntOpt() (*int32, error) {
	return optional[int32](r, KindInteger)
}

// TryIntoInt64 returns an Integer64 value.
func (r FieldResult) TryIntoInt64() (int64, error) {
	return required[int64](r, KindInteger64)
}

// TryIntoInt64Opt is TryIntoInt64 with null mapped to nil.
func (r FieldResult) TryIntoInt64Opt() (*int64, error) {
	return optional[int64](r, KindInteger64)
}

// TryIntoReal returns a Real value.
func (r FieldResult) TryIntoReal() (float64, error) {
	return required[float64](r, KindReal)
}

// TryIntoRealOpt is TryIntoReal with null mapped to nil.
func (r FieldResult) TryIntoRealOpt() (*float64, error) {
	return optional[float64](r, KindReal)
}

// TryIntoString returns a String value.
func (r FieldResult) TryIntoString() (string, error) {
	return required[string](r, KindString)
}

// TryIntoStringOpt is TryIntoString with null mapped to nil.
func (r FieldResult) TryIntoStringOpt() (*string, error) {
	return optional[string](r, KindString)
}

// TryIntoIntList returns an IntegerList value.
func (r FieldResult) TryIntoIntList() ([]int32, error) {
	return required[[]int32](r, KindIntegerList)
}

// TryIntoIntListOpt is TryIntoIntList with null mapped to nil.
func (r FieldResult) TryIntoIntListOpt() (*[]int32, error) {
	return optional[[]int32](r, KindIntegerList)
}

// TryIntoInt64List returns an Integer64List value.
func (r FieldResult) TryIntoInt64List() ([]int64, error) {
	return required[[]int64](r, KindInteger64List)
}

// TryIntoInt64ListOpt is TryIntoInt64List with null mapped to nil.
func (r FieldResult) TryIntoInt64ListOpt() (*[]int64, error) {
	return optional[[]int64](r, KindInteger64List)
}

// TryIntoRealList returns a RealList value.
func (r FieldResult) TryIntoRealList() ([]float64, error) {
	return required[[]float64](r, KindRealList)
}

// TryIntoRealListOpt is TryIntoRealList with null mapped to nil.
func (r FieldResult) TryIntoRealListOpt() (*[]float64, error) {
	return optional[[]float64](r, KindRealList)
}

// TryIntoStringList returns a StringList value.
func (r FieldResult) TryIntoStringList() ([]string, error) {
	return required[[]string](r, KindStringList)
}

// TryIntoStringListOpt is TryIntoStringList with null mapped to nil.
func (r FieldResult) TryIntoStringListOpt() (*[]string, error) {
	return optional[[]string](r, KindStringList)
}

// TryIntoDate returns a Date value at midnight UTC.
func (r FieldResult) TryIntoDate() (time.Time, error) {
	return required[time.Time](r, KindDate)
}

// TryIntoDateOpt is TryIntoDate with null mapped to nil.
func (r FieldResult) TryIntoDateOpt() (*time.Time, error) {
	return optional[time.Time](r, KindDate)
}

// TryIntoDateTime returns a DateTime value in its original zone.
func (r FieldResult) TryIntoDateTime() (time.Time, error) {
	return required[time.Time](r, KindDateTime)
}

// TryIntoDateTimeOpt is TryIntoDateTime with null mapped to nil.
func (r FieldResult) TryIntoDateTimeOpt() (*time.Time, error) {
	return optional[time.Time](r, KindDateTime)
}
