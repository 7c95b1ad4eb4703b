package geo

import (
	"encoding/json"
	"math"
)

// Bounds is [[minLat, minLng], [maxLat, maxLng]], the order map widgets expect.
type Bounds [2][2]float64

func (b Bounds) MinLat() float64 { return b[0][0] }
func (b Bounds) MinLng() float64 { return b[0][1] }
func (b Bounds) MaxLat() float64 { return b[1][0] }
func (b Bounds) MaxLng() float64 { return b[1][1] }

// positions flattens a geometry's coordinates into [lng, lat, ...] tuples.
// Unsupported or undecodable geometries yield nothing.
func positions(g *Geometry) [][]float64 {
	if g == nil {
		return nil
	}
	switch g.Type {
	case "Point":
		var p []float64
		if json.Unmarshal(g.Coordinates, &p) != nil {
			return nil
		}
		return [][]float64{p}
	case "LineString", "MultiPoint":
		var ps [][]float64
		if json.Unmarshal(g.Coordinates, &ps) != nil {
			return nil
		}
		return ps
	case "Polygon", "MultiLineString":
		var rings [][][]float64
		if json.Unmarshal(g.Coordinates, &rings) != nil {
			return nil
		}
		var out [][]float64
		for _, r := range rings {
			out = append(out, r...)
		}
		return out
	case "MultiPolygon":
		var polys [][][][]float64
		if json.Unmarshal(g.Coordinates, &polys) != nil {
			return nil
		}
		var out [][]float64
		for _, poly := range polys {
			for _, r := range poly {
				out = append(out, r...)
			}
		}
		return out
	}
	return nil
}

// ComputeBounds returns the box around every coordinate in fc, or nil when
// there is none. No CRS handling and no antimeridian wrapping.
func ComputeBounds(fc FeatureCollection) *Bounds {
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	found := false

	for _, f := range fc.Features {
		for _, p := range positions(f.Geometry) {
			if len(p) < 2 {
				continue
			}
			lng, lat := p[0], p[1]
			minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
			minLng, maxLng = math.Min(minLng, lng), math.Max(maxLng, lng)
			found = true
		}
	}
	if !found {
		return nil
	}
	return &Bounds{{minLat, minLng}, {maxLat, maxLng}}
}

// ComputeBoundsJSON decodes raw GeoJSON first; undecodable input has no bounds.
func ComputeBoundsJSON(raw []byte) *Bounds {
	if len(raw) == 0 {
		return nil
	}
	fc, err := ParseFeatureCollection(raw)
	if err != nil {
		return nil
	}
	return ComputeBounds(fc)
}

// UnionBounds fits every non-nil box. Nil when all are nil.
func UnionBounds(bs ...*Bounds) *Bounds {
	var out *Bounds
	for _, b := range bs {
		if b == nil {
			continue
		}
		if out == nil {
			c := *b
			out = &c
			continue
		}
		out[0][0] = math.Min(out[0][0], b[0][0])
		out[0][1] = math.Min(out[0][1], b[0][1])
		out[1][0] = math.Max(out[1][0], b[1][0])
		out[1][1] = math.Max(out[1][1], b[1][1])
	}
	return out
}
