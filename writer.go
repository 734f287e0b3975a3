package feature

import (
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// WriteOptions configures FlatGeobuf writing.
type WriteOptions struct {
	Name         string // Layer name, defaults to the source layer's name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (optional)
}

// DefaultWriteOptions returns default options for writing FlatGeobuf files.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		IncludeIndex: true,
	}
}

// encodedRecord is a record ready for the FlatGeobuf writer.
type encodedRecord struct {
	geom  orb.Geometry
	props []byte
}

// WriteLayer writes every record of l to w, using l's columns as the
// file schema. Records without geometry are skipped. Without an index
// the FlatGeobuf file cannot be read back by this package.
func WriteLayer(w io.Writer, l Layer, opts *WriteOptions) error {
	if opts == nil {
		opts = DefaultWriteOptions()
	}

	columns := l.Columns()
	types := make([]flattypes.ColumnType, len(columns))
	for i, c := range columns {
		t, err := columnTypeOf(c)
		if err != nil {
			return err
		}
		types[i] = t
	}

	var (
		records []encodedRecord
		geoms   []orb.Geometry
	)
	it := l.Features()
	defer it.Close()
	for n := 0; it.Next(); n++ {
		f := it.Feature()
		g := f.Geometry()
		if g == nil || geometryTypeOf(g) == flattypes.GeometryTypeUnknown {
			continue
		}

		var values []propertyValue
		for i := range columns {
			v, ok, err := f.Field(i)
			if err != nil {
				return fmt.Errorf("record %d field %q: %w", n, columns[i].Name, err)
			}
			if ok {
				values = append(values, propertyValue{index: i, value: v})
			}
		}
		props, err := encodeProperties(values, types)
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		records = append(records, encodedRecord{geom: g, props: props})
		geoms = append(geoms, g)
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNilGeometry
	}

	name := opts.Name
	if name == "" {
		name = l.Name()
	}

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(layerGeometryType(geoms))
	if name != "" {
		header.SetName(name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}

	if len(columns) > 0 {
		cols := make([]*writer.Column, len(columns))
		for i, c := range columns {
			col := writer.NewColumn(builder)
			col.SetName(c.Name)
			col.SetTitle(c.Name) // Set title to match name for JS library compatibility
			col.SetType(types[i])
			col.SetNullable(c.Nullable)
			cols[i] = col
		}
		header.SetColumns(cols)
	}

	if c := opts.CRS; c != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if c.Code > 0 {
			crs.SetCode(int32(c.Code))
		}
		if c.Name != "" {
			crs.SetName(c.Name)
		}
		// WKT is stored in the description when there is none.
		switch {
		case c.Description != "":
			crs.SetDescription(c.Description)
		case c.WKT != "":
			crs.SetDescription(c.WKT)
		}
		header.SetCrs(crs)
	}

	gen := &recordGenerator{records: records}
	_, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w)
	return err
}

// WriteFeatures writes a FeatureCollection to FlatGeobuf format with a
// schema inferred by NewMemoryLayer.
func WriteFeatures(w io.Writer, fc *geojson.FeatureCollection, opts *WriteOptions) error {
	if fc == nil || len(fc.Features) == 0 {
		return ErrNilGeometry
	}
	var name string
	if opts != nil {
		name = opts.Name
	}
	l, err := NewMemoryLayer(name, fc)
	if err != nil {
		return err
	}
	return WriteLayer(w, l, opts)
}

// Write writes geometries without properties.
func Write(w io.Writer, geometries []orb.Geometry, opts *WriteOptions) error {
	fc := geojson.NewFeatureCollection()
	for _, g := range geometries {
		fc.Append(geojson.NewFeature(g))
	}
	return WriteFeatures(w, fc, opts)
}

// recordGenerator feeds encoded records to the FlatGeobuf writer.
type recordGenerator struct {
	records []encodedRecord
	index   int
}

func (g *recordGenerator) Generate() *writer.Feature {
	if g.index >= len(g.records) {
		return nil
	}
	rec := g.records[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	feature := writer.NewFeature(builder)
	feature.SetGeometry(geometryToFGB(rec.geom, builder))
	if len(rec.props) > 0 {
		feature.SetProperties(rec.props)
	}
	return feature
}
