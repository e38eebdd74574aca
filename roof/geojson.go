package roof

import "encoding/json"

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryLineString GeometryType = "LineString"
	GeometryPolygon    GeometryType = "Polygon"
)

// Geometry represents a GeoJSON geometry object
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`
}

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

func polygonGeometry(poly Polygon) *Geometry {
	ring := make([][2]float64, 0, len(poly)+1)
	for _, g := range poly {
		ring = append(ring, [2]float64{g.Lng, g.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	coords, _ := json.Marshal([][][2]float64{ring})
	return &Geometry{Type: GeometryPolygon, Coordinates: coords}
}

func lineGeometry(start, end GeoPoint) *Geometry {
	coords, _ := json.Marshal([][2]float64{
		{start.Lng, start.Lat},
		{end.Lng, end.Lat},
	})
	return &Geometry{Type: GeometryLineString, Coordinates: coords}
}

// ToGeoJSON exports a measurement result as a FeatureCollection: the
// footprint polygon, each facet polygon, and each typed linear feature,
// with unit-suffixed properties so consumers never guess at units.
func ToGeoJSON(r *MeasurementResult) *FeatureCollection {
	fc := NewFeatureCollection()

	fc.AddFeature(&Feature{
		Type:     "Feature",
		ID:       "footprint",
		Geometry: polygonGeometry(r.Footprint.Polygon),
		Properties: map[string]interface{}{
			"kind":        "footprint",
			"source":      string(r.Footprint.Source),
			"areaSqft":    r.Footprint.AreaSqft,
			"perimeterFt": r.Footprint.PerimeterFt,
			"confidence":  r.Footprint.Confidence,
		},
	})

	for _, f := range r.Facets {
		fc.AddFeature(&Feature{
			Type:     "Feature",
			ID:       f.ID,
			Geometry: polygonGeometry(f.Polygon),
			Properties: map[string]interface{}{
				"kind":           "facet",
				"planAreaSqft":   f.PlanAreaSqft,
				"pitch":          f.Pitch,
				"orientationDeg": f.OrientationDeg,
				"confidence":     f.Confidence,
			},
		})
	}

	for _, lf := range r.LinearFeatures {
		fc.AddFeature(&Feature{
			Type:     "Feature",
			ID:       lf.ID,
			Geometry: lineGeometry(lf.Start, lf.End),
			Properties: map[string]interface{}{
				"kind":       "linear_feature",
				"type":       string(lf.Type),
				"lengthFt":   lf.LengthFt,
				"confidence": lf.Confidence,
			},
		})
	}
	return fc
}
