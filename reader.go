package feature

import (
	"fmt"
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text representation
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name        string // Column name
	Type        string // Column type ("Bool", "Int", "Long", "Double", "String", "Json", etc.)
	Title       string // Column title (human-readable)
	Description string // Column description
	Nullable    bool   // Whether the column can contain null values
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string       // Layer name
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Point", "Polygon", "Unknown", etc.)
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system
	HasIndex      bool         // Whether the file has a spatial index
	Columns       []ColumnInfo // Property column schema
}

// Reader exposes a FlatGeobuf file as a single-layer Dataset. It is also
// the Layer itself.
//
// Records are only reachable through the packed spatial index, so
// iterating a file written without one fails with ErrNoIndex.
type Reader struct {
	fgb      *flatgeobuf.FlatGeoBuf
	header   *Header
	columns  schema
	types    []flattypes.ColumnType
	geomType flattypes.GeometryType
}

// NewReader opens a FlatGeobuf file. The file is memory-mapped.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return newReader(fgb)
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return newReader(fgb)
}

func newReader(fgb *flatgeobuf.FlatGeoBuf) (*Reader, error) {
	h := fgb.Header()
	if h == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}

	r := &Reader{
		fgb:      fgb,
		geomType: h.GeometryType(),
		header: &Header{
			Name:          string(h.Name()),
			Description:   string(h.Description()),
			GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
			FeaturesCount: h.FeaturesCount(),
			HasIndex:      h.IndexNodeSize() > 0,
		},
	}

	if h.EnvelopeLength() >= 4 {
		r.header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		r.header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) {
			return nil, fmt.Errorf("%w: unreadable column %d", ErrInvalidData, i)
		}
		info := ColumnInfo{
			Name:        string(col.Name()),
			Type:        flattypes.EnumNamesColumnType[col.Type()],
			Title:       string(col.Title()),
			Description: string(col.Description()),
			Nullable:    col.Nullable(),
		}
		r.header.Columns = append(r.header.Columns, info)

		// Unsupported columns stay in the schema so indexes line up;
		// reading them fails per field.
		kind, _ := kindOfColumnType(col.Type())
		r.columns = append(r.columns, Column{
			Name:     info.Name,
			Kind:     kind,
			Type:     info.Type,
			Nullable: info.Nullable,
		})
		r.types = append(r.types, col.Type())
	}
	return r, nil
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header { return r.header }

func (r *Reader) Name() string { return r.header.Name }

func (r *Reader) Columns() []Column { return append([]Column(nil), r.columns...) }

func (r *Reader) FieldIndex(name string) (int, error) { return r.columns.FieldIndex(name) }

// LayerCount is always 1.
func (r *Reader) LayerCount() int { return 1 }

// Layer returns r for index 0 or the header's layer name.
func (r *Reader) Layer(ref LayerRef) (Layer, error) { return ref.resolve([]Layer{r}) }

// Features iterates every record. FIDs are positions in that order.
func (r *Reader) Features() Features {
	if !r.header.HasIndex {
		return &fgbFeatures{err: ErrNoIndex}
	}
	b := orb.Bound{
		Min: orb.Point{-math.MaxFloat64, -math.MaxFloat64},
		Max: orb.Point{math.MaxFloat64, math.MaxFloat64},
	}
	if env := r.header.Envelope; env != [4]float64{} {
		b = orb.Bound{Min: orb.Point{env[0], env[1]}, Max: orb.Point{env[2], env[3]}}
	}
	return r.search(b, true)
}

// Search returns the records whose bounding boxes intersect bounds, as
// a Layer sharing r's schema. Search results carry no FID.
func (r *Reader) Search(bounds orb.Bound) (Layer, error) {
	if !r.header.HasIndex {
		return nil, ErrNoIndex
	}
	return &searchLayer{Reader: r, bounds: bounds}, nil
}

func (r *Reader) search(b orb.Bound, withFID bool) Features {
	if r.fgb == nil {
		return &fgbFeatures{err: fmt.Errorf("%w: reader closed", ErrSource)}
	}
	found, err := r.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return &fgbFeatures{err: err}
	}
	return &fgbFeatures{reader: r, items: found, withFID: withFID}
}

// Close releases the reader. The underlying library has no explicit
// close; dropping the reference lets the mapping be collected.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

// searchLayer is a spatially filtered view of a Reader.
type searchLayer struct {
	*Reader
	bounds orb.Bound
}

func (s *searchLayer) Features() Features { return s.Reader.search(s.bounds, false) }

type fgbFeatures struct {
	reader  *Reader
	items   []*flattypes.Feature
	withFID bool
	pos     int
	cur     Feature
	err     error
}

func (it *fgbFeatures) Next() bool {
	if it.err != nil || it.pos >= len(it.items) {
		it.cur = nil
		return false
	}
	f := &fgbFeature{reader: it.reader, f: it.items[it.pos]}
	if it.withFID {
		f.fid = SomeFID(uint64(it.pos))
	}
	it.cur = f
	it.pos++
	return true
}

func (it *fgbFeatures) Feature() Feature { return it.cur }
func (it *fgbFeatures) Err() error       { return it.err }

func (it *fgbFeatures) Close() error {
	it.items, it.cur = nil, nil
	return nil
}

type fgbFeature struct {
	reader  *Reader
	f       *flattypes.Feature
	fid     FID
	decoded bool
	props   map[int]Value
	err     error
}

func (f *fgbFeature) FieldIndex(name string) (int, error) { return f.reader.FieldIndex(name) }

func (f *fgbFeature) Field(index int) (Value, bool, error) {
	if index < 0 || index >= len(f.reader.columns) {
		return Value{}, false, fmt.Errorf("%w: field index %d out of range", ErrFieldNotFound, index)
	}
	if !f.decoded {
		f.decoded = true
		n := f.f.PropertiesLength()
		data := make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = byte(f.f.Properties(i))
		}
		f.props, f.err = decodeProperties(data, f.reader.types)
	}
	if f.err != nil {
		return Value{}, false, f.err
	}

	v, ok := f.props[index]
	if !ok {
		return Value{}, false, nil
	}
	if v.Kind() == KindInvalid {
		return Value{}, false, fmt.Errorf("%w: column %q of type %s",
			ErrUnsupportedColumn, f.reader.columns[index].Name, f.reader.columns[index].Type)
	}
	return v, true, nil
}

func (f *fgbFeature) FID() FID { return f.fid }

func (f *fgbFeature) Geometry() orb.Geometry {
	var g flattypes.Geometry
	return geometryFromFGB(f.f.Geometry(&g), f.reader.geomType)
}
