// Package fieldspec compiles YAML field declarations into decoders that
// produce generic rows.
//
//	layer: countries
//	require_geometry: true
//	fields:
//	  - name: NAME
//	    type: string
//	    required: true
//	  - name: POP_EST
//	    type: real
package fieldspec

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	feature "github.com/tingold/orb-feature"
)

var (
	ErrInvalidSpec = errors.New("fieldspec: invalid spec")
	ErrNoGeometry  = errors.New("fieldspec: record has no geometry")
)

// types maps spec type names to value kinds.
var types = map[string]feature.Kind{
	"int":         feature.KindInteger,
	"int_list":    feature.KindIntegerList,
	"int64":       feature.KindInteger64,
	"int64_list":  feature.KindInteger64List,
	"real":        feature.KindReal,
	"real_list":   feature.KindRealList,
	"string":      feature.KindString,
	"string_list": feature.KindStringList,
	"date":        feature.KindDate,
	"datetime":    feature.KindDateTime,
}

// Field declares one field to decode.
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// Spec is a YAML field declaration.
type Spec struct {
	Layer           string  `yaml:"layer"`
	LayerIndex      *int    `yaml:"layer_index"`
	RequireGeometry bool    `yaml:"require_geometry"`
	Fields          []Field `yaml:"fields"`
}

// Load reads and validates a spec file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a spec document.
func Parse(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field types and names.
func (s *Spec) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSpec)
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidSpec, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSpec, f.Name)
		}
		seen[f.Name] = true
		if _, ok := types[f.Type]; !ok {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSpec, f.Name, f.Type)
		}
	}
	if s.Layer != "" && s.LayerIndex != nil {
		return fmt.Errorf("%w: layer and layer_index are exclusive", ErrInvalidSpec)
	}
	return nil
}

// LayerRef selects the layer named by s, defaulting to the first.
func (s *Spec) LayerRef() feature.LayerRef {
	switch {
	case s.Layer != "":
		return feature.LayerByName(s.Layer)
	case s.LayerIndex != nil:
		return feature.LayerByIndex(*s.LayerIndex)
	}
	return feature.LayerByIndex(0)
}

// Names returns the declared field names in order.
func (s *Spec) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Row is a decoded record. Values follow the declared field order; a
// nil entry is a null optional field.
type Row struct {
	FID      feature.FID
	Values   []any
	Geometry orb.Geometry
}

// Decoder returns a decoder producing rows.
func (s *Spec) Decoder() feature.Decoder[Row] {
	return feature.Define(s.Names(), s.read)
}

func (s *Spec) read(fid feature.FID, fields []feature.FieldResult, geom orb.Geometry) (Row, error) {
	if s.RequireGeometry && geom == nil {
		return Row{}, ErrNoGeometry
	}
	row := Row{FID: fid, Values: make([]any, len(fields)), Geometry: geom}
	for i, f := range s.Fields {
		kind := types[f.Type]
		if f.Required {
			v, err := feature.As[any](fields[i], kind)
			if err != nil {
				return Row{}, err
			}
			row.Values[i] = v
			continue
		}
		v, err := feature.AsOptional[any](fields[i], kind)
		if err != nil {
			return Row{}, err
		}
		if v != nil {
			row.Values[i] = *v
		}
	}
	return row, nil
}

// GeoJSON converts rows to a feature collection keyed by field name.
func (s *Spec) GeoJSON(rows []Row) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f := geojson.NewFeature(r.Geometry)
		if id, ok := r.FID.Get(); ok {
			f.ID = id
		}
		for i, field := range s.Fields {
			f.Properties[field.Name] = r.Values[i]
		}
		fc.Append(f)
	}
	return fc
}
