package fieldspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feature "github.com/tingold/orb-feature"
)

const countriesSpec = `
layer: countries
require_geometry: true
fields:
  - name: NAME
    type: string
    required: true
  - name: POP_EST
    type: real
  - name: POP_YEAR
    type: int
    required: true
`

func countries(t *testing.T) *feature.MemoryLayer {
	t.Helper()
	fc := geojson.NewFeatureCollection()

	se := geojson.NewFeature(orb.Point{18, 59})
	se.ID = float64(110)
	se.Properties = geojson.Properties{"NAME": "Sweden", "POP_EST": 10285453.0, "POP_YEAR": 2019}
	fc.Append(se)

	dk := geojson.NewFeature(orb.Point{12, 55})
	dk.ID = float64(142)
	dk.Properties = geojson.Properties{"NAME": "Denmark", "POP_EST": nil, "POP_YEAR": 2019}
	fc.Append(dk)

	l, err := feature.NewMemoryLayer("countries", fc)
	require.NoError(t, err)
	return l
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(countriesSpec))
	require.NoError(t, err)

	assert.Equal(t, "countries", s.Layer)
	assert.True(t, s.RequireGeometry)
	assert.Equal(t, []string{"NAME", "POP_EST", "POP_YEAR"}, s.Names())
	assert.Equal(t, `"countries"`, s.LayerRef().String())
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":       "fields: [",
		"no fields":       "layer: x\n",
		"unnamed field":   "fields:\n  - type: int\n",
		"duplicate field": "fields:\n  - {name: A, type: int}\n  - {name: A, type: real}\n",
		"unknown type":    "fields:\n  - {name: A, type: blob}\n",
		"layer and index": "layer: x\nlayer_index: 1\nfields:\n  - {name: A, type: int}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestLayerRef(t *testing.T) {
	one := 1
	assert.Equal(t, "#1", (&Spec{LayerIndex: &one}).LayerRef().String())
	assert.Equal(t, "#0", (&Spec{}).LayerRef().String())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(countriesSpec), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Fields, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDecoder(t *testing.T) {
	s, err := Parse([]byte(countriesSpec))
	require.NoError(t, err)

	rows, err := feature.FromLayer(countries(t), s.Decoder(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []any{"Sweden", 10285453.0, int32(2019)}, rows[0].Values)
	assert.Equal(t, []any{"Denmark", nil, int32(2019)}, rows[1].Values)
	assert.Equal(t, feature.SomeFID(142), rows[1].FID)
}

func TestDecoder_RequiredNull(t *testing.T) {
	s, err := Parse([]byte(`
fields:
  - name: POP_EST
    type: real
    required: true
`))
	require.NoError(t, err)

	_, err = feature.FromLayer(countries(t), s.Decoder(), nil)
	assert.ErrorIs(t, err, feature.ErrNullField)

	var rerr *feature.RecordError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Index)
}

func TestDecoder_WrongType(t *testing.T) {
	s, err := Parse([]byte("fields:\n  - {name: NAME, type: int}\n"))
	require.NoError(t, err)

	_, err = feature.FromLayer(countries(t), s.Decoder(), nil)
	assert.ErrorIs(t, err, feature.ErrInvalidFieldValue)
}

func TestDecoder_RequireGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(nil)
	f.Properties = geojson.Properties{"NAME": "Atlantis", "POP_EST": 0.0, "POP_YEAR": 1}
	fc.Append(f)
	l, err := feature.NewMemoryLayer("lost", fc)
	require.NoError(t, err)

	s, err := Parse([]byte(countriesSpec))
	require.NoError(t, err)

	_, err = feature.FromLayer(l, s.Decoder(), nil)
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestGeoJSON(t *testing.T) {
	s, err := Parse([]byte(countriesSpec))
	require.NoError(t, err)

	rows, err := feature.FromLayer(countries(t), s.Decoder(), nil)
	require.NoError(t, err)

	fc := s.GeoJSON(rows)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, uint64(110), fc.Features[0].ID)
	assert.Equal(t, "Sweden", fc.Features[0].Properties["NAME"])
	assert.Nil(t, fc.Features[1].Properties["POP_EST"])
	assert.Equal(t, orb.Point{12, 55}, fc.Features[1].Geometry)
}
