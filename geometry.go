package feature

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryTypeOf returns the FlatGeobuf type an orb geometry is written as.
func geometryTypeOf(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	}
	return flattypes.GeometryTypeUnknown
}

// layerGeometryType is the common type of geoms, or Unknown when mixed.
func layerGeometryType(geoms []orb.Geometry) flattypes.GeometryType {
	t := flattypes.GeometryTypeUnknown
	for i, g := range geoms {
		gt := geometryTypeOf(g)
		if i == 0 {
			t = gt
		} else if gt != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// flatten packs point sequences into interleaved xy and cumulative ends.
func flatten(parts ...[]orb.Point) ([]float64, []uint32) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(parts))
	for _, p := range parts {
		for _, pt := range p {
			xy = append(xy, pt[0], pt[1])
		}
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

func polygonParts(poly orb.Polygon) [][]orb.Point {
	parts := make([][]orb.Point, len(poly))
	for i, r := range poly {
		parts[i] = r
	}
	return parts
}

// geometryToFGB builds the FlatGeobuf form of geom, or nil when geom is
// nil or unsupported.
func geometryToFGB(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	if geom == nil {
		return nil
	}
	if b, ok := geom.(orb.Bound); ok {
		geom = b.ToPolygon()
	}

	g := writer.NewGeometry(builder)
	g.SetType(geometryTypeOf(geom))

	switch v := geom.(type) {
	case orb.Point:
		g.SetXY([]float64{v[0], v[1]})
	case orb.MultiPoint:
		xy, _ := flatten(v)
		g.SetXY(xy)
	case orb.LineString:
		xy, _ := flatten(v)
		g.SetXY(xy)
	case orb.MultiLineString:
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flatten(parts...)
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.Ring:
		xy, ends := flatten(v)
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.Polygon:
		xy, ends := flatten(polygonParts(v)...)
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			parts = append(parts, *geometryToFGB(poly, builder))
		}
		g.SetParts(parts)
	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if cg := geometryToFGB(child, builder); cg != nil {
				parts = append(parts, *cg)
			}
		}
		g.SetParts(parts)
	default:
		return nil
	}
	return g
}

// geometryFromFGB converts a FlatGeobuf geometry. Feature geometries
// only carry their own type when the layer type is Unknown, so fallback
// supplies the layer type.
func geometryFromFGB(g *flattypes.Geometry, fallback flattypes.GeometryType) orb.Geometry {
	if g == nil {
		return nil
	}
	t := g.Type()
	if t == flattypes.GeometryTypeUnknown {
		t = fallback
	}

	switch t {
	case flattypes.GeometryTypePoint:
		pts := pointsFromXY(g, 0, g.XyLength()/2)
		if len(pts) == 0 {
			return orb.Point{}
		}
		return pts[0]
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(pointsFromXY(g, 0, g.XyLength()/2))
	case flattypes.GeometryTypeLineString:
		return orb.LineString(pointsFromXY(g, 0, g.XyLength()/2))
	case flattypes.GeometryTypeMultiLineString:
		parts := partsFromEnds(g)
		mls := make(orb.MultiLineString, len(parts))
		for i, p := range parts {
			mls[i] = orb.LineString(p)
		}
		return mls
	case flattypes.GeometryTypePolygon:
		return polygonFromFGB(g)
	case flattypes.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		if n == 0 {
			if poly := polygonFromFGB(g); len(poly) > 0 {
				return orb.MultiPolygon{poly}
			}
			return orb.MultiPolygon{}
		}
		mp := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if poly := polygonFromFGB(&part); len(poly) > 0 {
					mp = append(mp, poly)
				}
			}
		}
		return mp
	case flattypes.GeometryTypeGeometryCollection:
		n := g.PartsLength()
		coll := make(orb.Collection, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if !g.Parts(&part, i) {
				continue
			}
			if child := geometryFromFGB(&part, flattypes.GeometryTypeUnknown); child != nil {
				coll = append(coll, child)
			}
		}
		return coll
	}
	return nil
}

func polygonFromFGB(g *flattypes.Geometry) orb.Polygon {
	parts := partsFromEnds(g)
	poly := make(orb.Polygon, len(parts))
	for i, p := range parts {
		poly[i] = orb.Ring(p)
	}
	return poly
}

// pointsFromXY reads points [from, to) of the xy array.
func pointsFromXY(g *flattypes.Geometry, from, to int) []orb.Point {
	if limit := g.XyLength() / 2; to > limit {
		to = limit
	}
	if from >= to {
		return []orb.Point{}
	}
	pts := make([]orb.Point, 0, to-from)
	for i := from; i < to; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}

// partsFromEnds splits the xy array at the ends offsets. Without ends
// the whole array is a single part.
func partsFromEnds(g *flattypes.Geometry) [][]orb.Point {
	n := g.XyLength() / 2
	if n == 0 {
		return nil
	}
	if g.EndsLength() == 0 {
		return [][]orb.Point{pointsFromXY(g, 0, n)}
	}
	parts := make([][]orb.Point, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := int(g.Ends(i))
		parts = append(parts, pointsFromXY(g, start, end))
		start = end
	}
	return parts
}
