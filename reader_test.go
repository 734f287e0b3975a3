package feature

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errNoGeometry = errors.New("country has no geometry")
	errNoFID      = errors.New("country has no fid")
)

type country struct {
	ID      uint64
	Name    string
	ISOA2   *string
	ISOA3   string
	PopEst  *float64
	PopYear int32
	Geom    orb.Geometry
}

// countryDecoder implements Decoder without Define.
type countryDecoder struct{}

func (countryDecoder) Fields() []string {
	return []string{"NAME", "ISO_A2", "ISO_A3", "POP_EST", "POP_YEAR"}
}

func (countryDecoder) Read(fid FID, fields []FieldResult, geom orb.Geometry) (c country, err error) {
	id, ok := fid.Get()
	if !ok {
		return c, errNoFID
	}
	if geom == nil {
		return c, errNoGeometry
	}
	c.ID, c.Geom = id, geom

	if c.Name, err = fields[0].TryIntoString(); err != nil {
		return c, fmt.Errorf("country: %w", err)
	}
	if c.ISOA2, err = fields[1].TryIntoStringOpt(); err != nil {
		return c, fmt.Errorf("country: %w", err)
	}
	if c.ISOA3, err = fields[2].TryIntoString(); err != nil {
		return c, fmt.Errorf("country: %w", err)
	}
	if c.PopEst, err = fields[3].TryIntoRealOpt(); err != nil {
		return c, fmt.Errorf("country: %w", err)
	}
	if c.PopYear, err = fields[4].TryIntoInt(); err != nil {
		return c, fmt.Errorf("country: %w", err)
	}
	return c, nil
}

// writeFixture writes l to a temporary FlatGeobuf file.
func writeFixture(t *testing.T, l Layer, opts *WriteOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.fgb")
	file, err := os.Create(path)
	require.NoError(t, err)

	err = WriteLayer(file, l, opts)
	_ = file.Close()
	require.NoError(t, err)
	return path
}

func openCountries(t *testing.T) *Reader {
	t.Helper()
	l, err := NewMemoryLayer("countries", countriesCollection())
	require.NoError(t, err)
	opts := DefaultWriteOptions()
	opts.CRS = WGS84()

	r, err := NewReader(writeFixture(t, l, opts))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewReaderFromData_Invalid(t *testing.T) {
	_, err := NewReaderFromData([]byte("not a flatgeobuf"))
	assert.Error(t, err)

	_, err = NewReaderFromData([]byte{})
	assert.Error(t, err)
}

func TestNewReader_NonExistent(t *testing.T) {
	_, err := NewReader("/nonexistent/path/to/file.fgb")
	assert.Error(t, err)
}

func TestReader_Header(t *testing.T) {
	r := openCountries(t)
	h := r.Header()
	require.NotNil(t, h)

	assert.Equal(t, "countries", h.Name)
	assert.Equal(t, "Unknown", h.GeometryType, "polygons mixed with a point")
	assert.True(t, h.HasIndex)
	require.NotNil(t, h.CRS)
	assert.Equal(t, 4326, h.CRS.Code)

	types := make(map[string]string)
	for _, c := range h.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, map[string]string{
		"ISO_A2": "String", "ISO_A3": "String", "NAME": "String", "POP_EST": "Double", "POP_YEAR": "Int",
	}, types)
}

func TestReader_Schema(t *testing.T) {
	r := openCountries(t)

	assert.Equal(t, "countries", r.Name())
	assert.Equal(t, 1, r.LayerCount())

	idx, err := r.FieldIndex("POP_YEAR")
	require.NoError(t, err)
	assert.Equal(t, KindInteger, r.Columns()[idx].Kind)
	assert.Equal(t, "Int", r.Columns()[idx].Type)

	_, err = r.FieldIndex("GDP_MD")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	l, err := r.Layer(LayerByName("countries"))
	require.NoError(t, err)
	assert.Same(t, r, l)
	_, err = r.Layer(LayerByIndex(1))
	assert.ErrorIs(t, err, ErrLayerNotFound)
}

func TestReader_FromLayer(t *testing.T) {
	r := openCountries(t)

	countries, err := FromLayer[country](r, countryDecoder{}, nil)
	require.NoError(t, err)
	require.Len(t, countries, 3)

	byName := make(map[string]country)
	fids := make([]int, 0, len(countries))
	for _, c := range countries {
		byName[c.Name] = c
		fids = append(fids, int(c.ID))
	}
	sort.Ints(fids)
	assert.Equal(t, []int{0, 1, 2}, fids, "FIDs are scan positions")

	se := byName["Sweden"]
	assert.Equal(t, "SWE", se.ISOA3)
	require.NotNil(t, se.ISOA2)
	assert.Equal(t, "SE", *se.ISOA2)
	require.NotNil(t, se.PopEst)
	assert.Equal(t, 10285453.0, *se.PopEst)
	assert.Equal(t, int32(2019), se.PopYear)
	assert.Equal(t, orb.Polygon{{{11, 55}, {24, 55}, {24, 69}, {11, 69}, {11, 55}}}, se.Geom)

	assert.Nil(t, byName["Denmark"].PopEst, "null survives the round trip")
	assert.Nil(t, byName["N. Cyprus"].ISOA2, "missing property is null")
	assert.Equal(t, orb.Point{33, 35}, byName["N. Cyprus"].Geom)
}

func TestReader_RequiredNull(t *testing.T) {
	r := openCountries(t)

	dec := Define([]string{"NAME", "ISO_A2"}, func(_ FID, f []FieldResult, _ orb.Geometry) (string, error) {
		return f[1].TryIntoString()
	})
	_, err := FromLayer[string](r, dec, nil)
	assert.ErrorIs(t, err, ErrNullField)
	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.True(t, re.FID.Valid)
}

func TestReader_Search(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			f := geojson.NewFeature(orb.Point{float64(x), float64(y)})
			f.Properties = geojson.Properties{"x": x, "y": y}
			fc.Append(f)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFeatures(&buf, fc, &WriteOptions{Name: "grid", IncludeIndex: true}))

	r, err := NewReaderFromData(buf.Bytes())
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	sub, err := r.Search(orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{4, 4}})
	require.NoError(t, err)

	type cell struct{ X, Y int32 }
	cells, err := FromLayer[cell](sub, Define([]string{"x", "y"},
		func(fid FID, f []FieldResult, _ orb.Geometry) (cell, error) {
			if fid.Valid {
				t.Errorf("search results carry no FID, got %s", fid)
			}
			x, err := f[0].TryIntoInt()
			if err != nil {
				return cell{}, err
			}
			y, err := f[1].TryIntoInt()
			return cell{x, y}, err
		}), nil)
	require.NoError(t, err)
	require.NotEmpty(t, cells)
	for _, c := range cells {
		assert.True(t, c.X >= 2 && c.X <= 4 && c.Y >= 2 && c.Y <= 4, "cell %v outside bounds", c)
	}

	all, err := FromLayer[cell](r, Define([]string{"x", "y"},
		func(_ FID, f []FieldResult, _ orb.Geometry) (cell, error) { return cell{}, nil }), nil)
	require.NoError(t, err)
	assert.Len(t, all, 100)
}

func TestReader_NoIndex(t *testing.T) {
	var buf bytes.Buffer
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	require.NoError(t, WriteFeatures(&buf, fc, &WriteOptions{IncludeIndex: false}))

	r, err := NewReaderFromData(buf.Bytes())
	require.NoError(t, err)
	assert.False(t, r.Header().HasIndex)

	_, err = r.Search(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})
	assert.ErrorIs(t, err, ErrNoIndex)

	dec := Define([]string{"x"}, func(FID, []FieldResult, orb.Geometry) (int, error) { return 0, nil })
	_, err = FromLayer[int](r, dec, nil)
	assert.ErrorIs(t, err, ErrNoIndex)
	assert.ErrorIs(t, err, ErrSource)
}

func TestReader_DatesAndLists(t *testing.T) {
	day := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	f := geojson.NewFeature(orb.Point{1, 1})
	f.Properties = geojson.Properties{
		"founded": DateValue(day),
		"updated": stamp,
		"tags":    []string{"capital", "port"},
		"codes":   []int64{46, 752},
		"big":     int64(1) << 40,
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	l, err := NewMemoryLayer("misc", fc)
	require.NoError(t, err)

	r, err := NewReader(writeFixture(t, l, nil))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	type misc struct {
		founded, updated time.Time
		tags             []string
		codes            []int64
		big              int64
	}
	got, err := FromLayer[misc](r, Define([]string{"founded", "updated", "tags", "codes", "big"},
		func(_ FID, f []FieldResult, _ orb.Geometry) (m misc, err error) {
			if m.founded, err = f[0].TryIntoDate(); err != nil {
				return
			}
			if m.updated, err = f[1].TryIntoDateTime(); err != nil {
				return
			}
			if m.tags, err = f[2].TryIntoStringList(); err != nil {
				return
			}
			if m.codes, err = f[3].TryIntoInt64List(); err != nil {
				return
			}
			m.big, err = f[4].TryIntoInt64()
			return
		}), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.True(t, got[0].founded.Equal(day))
	assert.True(t, got[0].updated.Equal(stamp))
	assert.Equal(t, []string{"capital", "port"}, got[0].tags)
	assert.Equal(t, []int64{46, 752}, got[0].codes)
	assert.Equal(t, int64(1)<<40, got[0].big)
}
