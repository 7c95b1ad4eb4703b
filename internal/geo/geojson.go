// Package geo turns uploaded map files into GeoJSON layers and computes the
// viewport that fits them.
package geo

import "encoding/json"

// FeatureCollection is the subset of GeoJSON the portal reads.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry keeps coordinates raw; their nesting depth depends on Type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewFeatureCollection returns an empty collection.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// PointFeature builds a Point feature. GeoJSON order is [lng, lat].
func PointFeature(lng, lat float64, props map[string]any) Feature {
	coords, _ := json.Marshal([]float64{lng, lat})
	if props == nil {
		props = map[string]any{}
	}
	return Feature{
		Type:       "Feature",
		Geometry:   &Geometry{Type: "Point", Coordinates: coords},
		Properties: props,
	}
}

// ParseFeatureCollection decodes raw GeoJSON without validating its schema.
func ParseFeatureCollection(raw []byte) (FeatureCollection, error) {
	var fc FeatureCollection
	err := json.Unmarshal(raw, &fc)
	return fc, err
}
