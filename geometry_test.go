package feature

import (
	"bytes"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryTypeOf(t *testing.T) {
	tests := []struct {
		name     string
		geom     orb.Geometry
		expected flattypes.GeometryType
	}{
		{"Point", orb.Point{1, 2}, flattypes.GeometryTypePoint},
		{"MultiPoint", orb.MultiPoint{{1, 2}, {3, 4}}, flattypes.GeometryTypeMultiPoint},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}, flattypes.GeometryTypeLineString},
		{"MultiLineString", orb.MultiLineString{{{0, 0}, {1, 1}}}, flattypes.GeometryTypeMultiLineString},
		{"Ring", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, flattypes.GeometryTypePolygon},
		{"Polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, flattypes.GeometryTypePolygon},
		{"MultiPolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, flattypes.GeometryTypeMultiPolygon},
		{"Collection", orb.Collection{orb.Point{1, 2}}, flattypes.GeometryTypeGeometryCollection},
		{"Bound", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, flattypes.GeometryTypePolygon},
		{"nil", nil, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, geometryTypeOf(tt.geom))
		})
	}
}

func TestLayerGeometryType(t *testing.T) {
	assert.Equal(t, flattypes.GeometryTypeUnknown, layerGeometryType(nil))
	assert.Equal(t, flattypes.GeometryTypePoint,
		layerGeometryType([]orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}}))
	assert.Equal(t, flattypes.GeometryTypeUnknown,
		layerGeometryType([]orb.Geometry{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}}))
}

func TestFlatten(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 2}},
	}
	xy, ends := flatten(polygonParts(poly)...)

	assert.Len(t, xy, 18)
	assert.Equal(t, []uint32{5, 9}, ends)
	assert.Equal(t, []float64{10, 0}, xy[2:4])
	assert.Equal(t, []float64{2, 2}, xy[10:12])
}

func TestGeometryToFGB(t *testing.T) {
	geoms := map[string]orb.Geometry{
		"Point":           orb.Point{1, 2},
		"LineString":      orb.LineString{{0, 0}, {1, 1}, {2, 2}},
		"MultiLineString": orb.MultiLineString{{{0, 0}, {1, 1}}, {{5, 5}, {6, 6}}},
		"Polygon":         orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		"MultiPolygon": orb.MultiPolygon{
			{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
		},
		"Collection": orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}},
		"Bound":      orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}},
	}
	for name, geom := range geoms {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, geometryToFGB(geom, flatbuffers.NewBuilder(1024)))
		})
	}

	assert.Nil(t, geometryToFGB(nil, flatbuffers.NewBuilder(1024)))
}

// readGeometries writes geoms with an index and reads them back.
func readGeometries(t *testing.T, geoms []orb.Geometry) []orb.Geometry {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, geoms, nil))

	r, err := NewReaderFromData(buf.Bytes())
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var out []orb.Geometry
	it := r.Features()
	defer func() { _ = it.Close() }()
	for it.Next() {
		out = append(out, it.Feature().Geometry())
	}
	require.NoError(t, it.Err())
	return out
}

func TestGeometry_RoundTripPoints(t *testing.T) {
	got := readGeometries(t, []orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}, orb.Point{5, 6}})
	require.Len(t, got, 3)

	seen := make(map[orb.Point]bool)
	for _, g := range got {
		p, ok := g.(orb.Point)
		require.True(t, ok, "got %T", g)
		seen[p] = true
	}
	assert.Equal(t, map[orb.Point]bool{{1, 2}: true, {3, 4}: true, {5, 6}: true}, seen)
}

func TestGeometry_RoundTripPolygons(t *testing.T) {
	got := readGeometries(t, []orb.Geometry{
		orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
		orb.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20}}},
	})
	require.Len(t, got, 2)

	for _, g := range got {
		poly, ok := g.(orb.Polygon)
		require.True(t, ok, "got %T", g)
		require.Len(t, poly, 1)
		assert.Len(t, poly[0], 5)
		b := poly.Bound()
		assert.Equal(t, 10.0, b.Max[0]-b.Min[0])
	}
}
