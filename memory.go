package feature

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// jsonColumnType marks a column whose values are JSON documents.
const jsonColumnType = "Json"

// MemoryLayer is a Layer over a GeoJSON feature collection.
//
// The schema is inferred from feature properties: columns appear in the
// order they are first seen, with the keys of each feature taken in
// sorted order. A property missing from a feature, or set to null, reads
// as null. Numeric feature IDs become FIDs.
//
// Objects, lists that are not homogeneous strings or numbers, and
// columns mixing incompatible kinds become String columns of Type
// "Json" holding each value's JSON encoding.
type MemoryLayer struct {
	name     string
	columns  schema
	features []*geojson.Feature
}

// inference tracks what a column has held besides plain kinds.
type inference struct {
	json      bool
	emptyList bool
}

// NewMemoryLayer builds a layer named name from fc. It fails only when
// a property value cannot be encoded at all.
func NewMemoryLayer(name string, fc *geojson.FeatureCollection) (*MemoryLayer, error) {
	l := &MemoryLayer{name: name}
	if fc == nil {
		return l, nil
	}

	positions := make(map[string]int)
	var seen []inference
	for i, f := range fc.Features {
		if f == nil {
			return nil, fmt.Errorf("%w: nil feature at %d", ErrInvalidData, i)
		}
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v, ok, isJSON, err := inferValue(f.Properties[k])
			if err != nil {
				return nil, fmt.Errorf("feature %d property %q: %w", i, k, err)
			}
			pos, known := positions[k]
			if !known {
				pos = len(l.columns)
				positions[k] = pos
				l.columns = append(l.columns, Column{Name: k, Nullable: true})
				seen = append(seen, inference{})
			}
			inf := &seen[pos]
			switch {
			case !ok || inf.json:
				continue
			case isJSON:
				inf.json = true
				continue
			case isEmptyList(v):
				// Says nothing about the element kind.
				inf.emptyList = true
				continue
			}
			kind, err := promoteKind(l.columns[pos].Kind, v.Kind())
			if err != nil {
				inf.json = true
				continue
			}
			l.columns[pos].Kind = kind
		}
	}

	for i := range l.columns {
		c, inf := &l.columns[i], seen[i]
		switch {
		case inf.json, inf.emptyList && c.Kind != KindInvalid && !isListKind(c.Kind):
			c.Kind, c.Type = KindString, jsonColumnType
		case c.Kind == KindInvalid && inf.emptyList:
			c.Kind = KindStringList
		case c.Kind == KindInvalid:
			// Only ever null.
			c.Kind = KindString
		}
	}
	l.features = fc.Features
	return l, nil
}

// inferValue is valueOf with a JSON fallback for values that have no
// Value kind: objects, heterogeneous lists and unknown Go types.
func inferValue(x any) (v Value, ok, isJSON bool, err error) {
	switch x.(type) {
	case nil:
		return Value{}, false, false, nil
	case map[string]any, geojson.Properties:
		v, err = jsonText(x)
		return v, err == nil, true, err
	}
	if v, ok, err = valueOf(x); err == nil {
		return v, ok, false, nil
	}
	v, err = jsonText(x)
	return v, err == nil, true, err
}

// jsonText returns the JSON encoding of x as a String value.
func jsonText(x any) (Value, error) {
	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return StringValue(string(b)), nil
}

func isListKind(k Kind) bool {
	switch k {
	case KindIntegerList, KindInteger64List, KindRealList, KindStringList:
		return true
	}
	return false
}

func isEmptyList(v Value) bool {
	switch l := v.v.(type) {
	case []int32:
		return len(l) == 0
	case []int64:
		return len(l) == 0
	case []float64:
		return len(l) == 0
	case []string:
		return len(l) == 0
	}
	return false
}

// promoteKind reconciles two kinds seen in one column. Integer widens to
// Integer64 and both widen to Real, as do their lists.
func promoteKind(a, b Kind) (Kind, error) {
	if a == KindInvalid || a == b {
		return b, nil
	}
	rank := map[Kind]int{KindInteger: 1, KindInteger64: 2, KindReal: 3}
	listRank := map[Kind]int{KindIntegerList: 1, KindInteger64List: 2, KindRealList: 3}
	if ra, rb := rank[a], rank[b]; ra > 0 && rb > 0 {
		return maxRank(a, b, ra, rb), nil
	}
	if ra, rb := listRank[a], listRank[b]; ra > 0 && rb > 0 {
		return maxRank(a, b, ra, rb), nil
	}
	if (a == KindDate && b == KindDateTime) || (a == KindDateTime && b == KindDate) {
		return KindDateTime, nil
	}
	return KindInvalid, fmt.Errorf("%w: mixed %s and %s", ErrInvalidData, a, b)
}

func maxRank(a, b Kind, ra, rb int) Kind {
	if ra >= rb {
		return a
	}
	return b
}

func (l *MemoryLayer) Name() string { return l.name }

func (l *MemoryLayer) Columns() []Column { return append([]Column(nil), l.columns...) }

func (l *MemoryLayer) FieldIndex(name string) (int, error) { return l.columns.FieldIndex(name) }

// Len returns the number of features.
func (l *MemoryLayer) Len() int { return len(l.features) }

// Feature returns the i-th record.
func (l *MemoryLayer) Feature(i int) Feature {
	return &memoryFeature{layer: l, f: l.features[i]}
}

func (l *MemoryLayer) Features() Features {
	items := make([]Feature, len(l.features))
	for i := range l.features {
		items[i] = l.Feature(i)
	}
	return &sliceFeatures{items: items}
}

type memoryFeature struct {
	layer *MemoryLayer
	f     *geojson.Feature
}

func (m *memoryFeature) FieldIndex(name string) (int, error) {
	return m.layer.columns.FieldIndex(name)
}

func (m *memoryFeature) Field(index int) (Value, bool, error) {
	if index < 0 || index >= len(m.layer.columns) {
		return Value{}, false, fmt.Errorf("%w: field index %d out of range", ErrFieldNotFound, index)
	}
	col := m.layer.columns[index]
	raw := m.f.Properties[col.Name]
	if col.Type == jsonColumnType {
		if raw == nil {
			return Value{}, false, nil
		}
		v, err := jsonText(raw)
		return v, err == nil, err
	}
	v, ok, err := valueOf(raw)
	if err != nil || !ok {
		return Value{}, false, err
	}
	return widen(v, col.Kind), true, nil
}

// widen converts v to a promoted column kind.
func widen(v Value, to Kind) Value {
	if v.kind == to {
		return v
	}
	if isEmptyList(v) {
		switch to {
		case KindIntegerList:
			return IntegerListValue([]int32{})
		case KindInteger64List:
			return Integer64ListValue([]int64{})
		case KindRealList:
			return RealListValue([]float64{})
		}
		return v
	}
	switch to {
	case KindInteger64:
		if n, ok := v.v.(int32); ok {
			return Integer64Value(int64(n))
		}
	case KindReal:
		switch n := v.v.(type) {
		case int32:
			return RealValue(float64(n))
		case int64:
			return RealValue(float64(n))
		}
	case KindInteger64List:
		if ns, ok := v.v.([]int32); ok {
			out := make([]int64, len(ns))
			for i, n := range ns {
				out[i] = int64(n)
			}
			return Integer64ListValue(out)
		}
	case KindRealList:
		out := make([]float64, 0)
		switch ns := v.v.(type) {
		case []int32:
			for _, n := range ns {
				out = append(out, float64(n))
			}
			return RealListValue(out)
		case []int64:
			for _, n := range ns {
				out = append(out, float64(n))
			}
			return RealListValue(out)
		}
	case KindDateTime:
		if v.kind == KindDate {
			return DateTimeValue(v.v.(time.Time))
		}
	}
	return v
}

func (m *memoryFeature) FID() FID {
	switch id := m.f.ID.(type) {
	case float64:
		if id >= 0 && id == float64(uint64(id)) {
			return SomeFID(uint64(id))
		}
	case int:
		if id >= 0 {
			return SomeFID(uint64(id))
		}
	case int64:
		if id >= 0 {
			return SomeFID(uint64(id))
		}
	case uint64:
		return SomeFID(id)
	}
	return FID{}
}

func (m *memoryFeature) Geometry() orb.Geometry { return m.f.Geometry }

// MemoryDataset is a Dataset of in-memory layers.
type MemoryDataset struct {
	layers []Layer
}

// NewMemoryDataset returns a dataset holding layers in order.
func NewMemoryDataset(layers ...Layer) *MemoryDataset {
	return &MemoryDataset{layers: layers}
}

func (d *MemoryDataset) LayerCount() int { return len(d.layers) }

func (d *MemoryDataset) Layer(ref LayerRef) (Layer, error) { return ref.resolve(d.layers) }
