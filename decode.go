package feature

import (
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// Decoder describes how records become values of type T.
//
// Fields lists the field names to fetch. Read receives one FieldResult
// per declared field, in declared order, so fields[i] always belongs to
// Fields()[i] and len(fields) == len(Fields()). Read decides which nulls
// and errors are acceptable; it must not retain fields.
type Decoder[T any] interface {
	Fields() []string
	Read(fid FID, fields []FieldResult, geom orb.Geometry) (T, error)
}

// ReadFunc is the signature of Decoder.Read.
type ReadFunc[T any] func(fid FID, fields []FieldResult, geom orb.Geometry) (T, error)

type definedDecoder[T any] struct {
	fields []string
	read   ReadFunc[T]
}

func (d definedDecoder[T]) Fields() []string { return d.fields }

func (d definedDecoder[T]) Read(fid FID, fields []FieldResult, geom orb.Geometry) (T, error) {
	return d.read(fid, fields, geom)
}

// Define returns a Decoder built from a field list and a read function.
func Define[T any](fields []string, read ReadFunc[T]) Decoder[T] {
	return definedDecoder[T]{fields: append([]string(nil), fields...), read: read}
}

// DecodeOptions configures FromFeature and FromLayer.
type DecodeOptions struct {
	Logger *zap.Logger
}

// DefaultDecodeOptions returns options with a no-op logger.
func DefaultDecodeOptions() *DecodeOptions {
	return &DecodeOptions{Logger: zap.NewNop()}
}

func (o *DecodeOptions) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// declaredFields validates the decoder's field list. A name may repeat;
// each position still gets its own outcome.
func declaredFields(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidDeclaration)
	}
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("%w: empty name at position %d", ErrInvalidDeclaration, i)
		}
	}
	return names, nil
}

// unresolved is the outcome of a field name that did not resolve.
func unresolved(name string, err error) FieldResult {
	return Failed(&Error{Kind: KindSource, Field: name, Err: err}).named(name)
}

// FromFeature decodes a single record. Field names are resolved against
// the record on every call; a name that does not resolve yields a failed
// FieldResult rather than aborting.
func FromFeature[T any](f Feature, d Decoder[T], opts *DecodeOptions) (T, error) {
	var zero T
	names, err := declaredFields(d.Fields())
	if err != nil {
		return zero, err
	}
	log := opts.logger()

	fields := make([]FieldResult, len(names))
	for i, name := range names {
		idx, err := f.FieldIndex(name)
		if err != nil {
			log.Debug("field not resolved", zap.String("field", name), zap.Error(err))
			fields[i] = unresolved(name, err)
			continue
		}
		fields[i] = resultOf(f.Field(idx)).named(name)
	}
	return d.Read(f.FID(), fields, f.Geometry())
}

// FromLayer decodes every record of a layer in iteration order.
//
// Field names are resolved once against the layer schema; an unresolved
// name produces the same failed FieldResult for every record. The first
// record whose Read fails aborts the batch with a *RecordError and no
// partial result is returned.
func FromLayer[T any](l Layer, d Decoder[T], opts *DecodeOptions) ([]T, error) {
	names, err := declaredFields(d.Fields())
	if err != nil {
		return nil, err
	}
	log := opts.logger().With(zap.String("layer", l.Name()))

	indexes := make([]int, len(names))
	failures := make([]FieldResult, len(names))
	for i, name := range names {
		idx, err := l.FieldIndex(name)
		if err != nil {
			log.Debug("field not resolved", zap.String("field", name), zap.Error(err))
			indexes[i] = -1
			failures[i] = unresolved(name, err)
			continue
		}
		indexes[i] = idx
	}

	it := l.Features()
	defer it.Close()

	var out []T
	for n := 0; it.Next(); n++ {
		f := it.Feature()
		fields := make([]FieldResult, len(names))
		for i, idx := range indexes {
			if idx < 0 {
				fields[i] = failures[i]
				continue
			}
			fields[i] = resultOf(f.Field(idx)).named(names[i])
		}

		v, err := d.Read(f.FID(), fields, f.Geometry())
		if err != nil {
			log.Debug("record rejected", zap.Int("index", n), zap.Stringer("fid", f.FID()), zap.Error(err))
			return nil, &RecordError{Index: n, FID: f.FID(), Err: err}
		}
		out = append(out, v)
	}
	if err := it.Err(); err != nil {
		return nil, SourceError(err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
