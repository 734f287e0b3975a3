package feature

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// Column describes one field of a layer schema.
type Column struct {
	Name     string
	Kind     Kind
	Type     string // source-native type name, e.g. "Json"; may be empty
	Nullable bool
}

// Feature is one record of a layer.
type Feature interface {
	// FieldIndex resolves a field name against the record's schema.
	FieldIndex(name string) (int, error)
	// Field fetches the raw value at index. ok is false for null.
	Field(index int) (v Value, ok bool, err error)
	FID() FID
	// Geometry returns the record geometry, or nil.
	Geometry() orb.Geometry
}

// Layer is a homogeneous collection of records sharing one schema.
type Layer interface {
	Name() string
	Columns() []Column
	FieldIndex(name string) (int, error)
	// Features returns a new single-pass iterator in the layer's
	// natural order.
	Features() Features
}

// Features iterates the records of a layer:
//
//	it := layer.Features()
//	defer it.Close()
//	for it.Next() {
//		f := it.Feature()
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
type Features interface {
	Next() bool
	Feature() Feature
	Err() error
	Close() error
}

// Dataset is a set of layers.
type Dataset interface {
	LayerCount() int
	Layer(ref LayerRef) (Layer, error)
}

// LayerRef selects a dataset layer by name or by index.
type LayerRef struct {
	name  string
	index int
	byIdx bool
}

// LayerByName and LayerByIndex select a layer by name or position.
func LayerByName(name string) LayerRef { return LayerRef{name: name} }
func LayerByIndex(i int) LayerRef      { return LayerRef{index: i, byIdx: true} }

func (r LayerRef) String() string {
	if r.byIdx {
		return "#" + strconv.Itoa(r.index)
	}
	return strconv.Quote(r.name)
}

// resolve finds r among layers.
func (r LayerRef) resolve(layers []Layer) (Layer, error) {
	if r.byIdx {
		if r.index < 0 || r.index >= len(layers) {
			return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, r)
		}
		return layers[r.index], nil
	}
	for _, l := range layers {
		if l.Name() == r.name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, r)
}

// schema resolves field names by column position.
type schema []Column

func (s schema) FieldIndex(name string) (int, error) {
	for i, c := range s {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// sliceFeatures iterates an in-memory slice.
type sliceFeatures struct {
	items []Feature
	pos   int
	cur   Feature
}

func (s *sliceFeatures) Next() bool {
	if s.pos >= len(s.items) {
		s.cur = nil
		return false
	}
	s.cur = s.items[s.pos]
	s.pos++
	return true
}

func (s *sliceFeatures) Feature() Feature { return s.cur }
func (s *sliceFeatures) Err() error       { return nil }

func (s *sliceFeatures) Close() error {
	s.items, s.cur = nil, nil
	return nil
}
