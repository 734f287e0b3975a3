// Package feature decodes loosely-typed geospatial records into
// strongly-typed Go values.
//
// A consumer declares, once per target type, which named fields it needs
// and how to assemble them (a Decoder). The package resolves the field
// names against a record source, fetches every field as a FieldResult
// (a value, an explicit null or an error) and hands the results, in
// declared order, to the Decoder together with the record's identifier
// and geometry. Nulls and type mismatches surface as distinct errors
// instead of zero values.
//
// Record sources are abstracted by the Feature, Layer and Dataset
// interfaces. FlatGeobuf files (Reader) and GeoJSON feature collections
// (MemoryLayer) are provided.
package feature

import (
	"errors"
	"fmt"
	"strconv"
)

// Common errors returned by this package.
var (
	ErrSource            = errors.New("feature: source error")
	ErrNullField         = errors.New("feature: field is null")
	ErrInvalidFieldValue = errors.New("feature: invalid field value")

	ErrFieldNotFound      = errors.New("feature: field not found")
	ErrLayerNotFound      = errors.New("feature: layer not found")
	ErrInvalidDeclaration = errors.New("feature: invalid field declaration")
	ErrNoIndex            = errors.New("feature: file has no spatial index")
	ErrUnsupportedColumn  = errors.New("feature: unsupported column type")
	ErrInvalidData        = errors.New("feature: invalid data")
	ErrNilGeometry        = errors.New("feature: nil geometry")
)

// ErrorKind classifies an Error.
type ErrorKind uint8

const (
	// KindSource is a failure of the underlying record source: an unknown
	// field name, an unreadable value or a broken iteration.
	KindSource ErrorKind = iota + 1
	// KindNullField is a required field holding null.
	KindNullField
	// KindInvalidFieldValue is a value of the wrong type.
	KindInvalidFieldValue
)

func (k ErrorKind) String() string {
	switch k {
	case KindSource:
		return "source error"
	case KindNullField:
		return "null field"
	case KindInvalidFieldValue:
		return "invalid field value"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindSource:
		return ErrSource
	case KindNullField:
		return ErrNullField
	case KindInvalidFieldValue:
		return ErrInvalidFieldValue
	}
	return nil
}

// Error is the error shared by every field-level failure. Consumers
// wrap it in their own error types; errors.Is matches it against
// ErrSource, ErrNullField and ErrInvalidFieldValue according to Kind.
//
// An Error is never mutated after construction, so a single value may be
// handed to many records.
type Error struct {
	Kind   ErrorKind
	Field  string // declared field name, empty when unknown
	Detail string // human-readable description
	Err    error  // underlying cause, for KindSource
}

func (e *Error) Error() string {
	msg := "feature: " + e.Kind.String()
	if e.Field != "" {
		msg += " in field " + strconv.Quote(e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// SourceError wraps a record source failure.
func SourceError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindSource {
		return fe
	}
	return &Error{Kind: KindSource, Err: err}
}

// NullFieldError reports a null in a required field.
func NullFieldError(field string) *Error {
	return &Error{Kind: KindNullField, Field: field}
}

// InvalidFieldValueError reports a value that cannot become the
// requested type.
func InvalidFieldValueError(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFieldValue, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// withField returns a copy of e naming field, or e itself when it
// already names one.
func (e *Error) withField(field string) *Error {
	if e.Field != "" || field == "" {
		return e
	}
	c := *e
	c.Field = field
	return &c
}

// FID is an optional record identifier.
type FID struct {
	ID    uint64
	Valid bool
}

// SomeFID returns a valid FID.
func SomeFID(id uint64) FID { return FID{ID: id, Valid: true} }

// Get returns the identifier and whether it is present.
func (f FID) Get() (uint64, bool) { return f.ID, f.Valid }

func (f FID) String() string {
	if !f.Valid {
		return "<none>"
	}
	return strconv.FormatUint(f.ID, 10)
}

// RecordError is returned by FromLayer when a record fails to decode.
type RecordError struct {
	Index int // position in source iteration order
	FID   FID
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("feature: record %d (fid %s): %v", e.Index, e.FID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
