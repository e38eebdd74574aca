package roof

import "time"

// GeoPoint is a WGS84 coordinate. No datum correction is modeled; within the
// sub-kilometer extent of a single building the local-plane approximation in
// projection.go is accurate to well under a foot.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PixelPoint is an image-space coordinate, origin top-left, y increasing
// downward. It is meaningful only together with the ImageFrame the detection
// ran against.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageFrame is the calibration context for converting between pixel and
// geographic space: the image center, web-map zoom level, and square pixel
// dimension of the fetched tile. Created once per image fetch, never mutated.
type ImageFrame struct {
	CenterLat   float64 `json:"centerLat"`
	CenterLng   float64 `json:"centerLng"`
	ZoomLevel   int     `json:"zoomLevel"`
	PixelSizePx int     `json:"pixelSizePx"`
}

// Polygon is an ordered ring of geographic vertices, implicitly closed (the
// last vertex connects back to the first). Anything with fewer than 3
// vertices is rejected at the adapter boundary and never reaches downstream
// geometry code.
type Polygon []GeoPoint

// FeatureType identifies a structural roof line.
type FeatureType string

const (
	FeatureRidge  FeatureType = "ridge"
	FeatureHip    FeatureType = "hip"
	FeatureValley FeatureType = "valley"
	FeatureEave   FeatureType = "eave"
	FeatureRake   FeatureType = "rake"
)

// Facet is one planar roof surface. Facets are immutable after the adapter
// creates them; corrections produce a new Facet rather than editing in place.
type Facet struct {
	ID             string  `json:"id"`
	Polygon        Polygon `json:"polygon"`
	PlanAreaSqft   float64 `json:"planAreaSqft"`
	Pitch          string  `json:"pitch"` // rise/run, e.g. "6/12"
	OrientationDeg float64 `json:"orientationDeg"`
	Confidence     float64 `json:"confidence"` // 0..1
}

// LinearFeature is a structural roof line with geographic endpoints. Created
// only by the feature extractor or copied from a source adapter's own list.
type LinearFeature struct {
	ID         string      `json:"id"`
	Type       FeatureType `json:"type"`
	Start      GeoPoint    `json:"startGeo"`
	End        GeoPoint    `json:"endGeo"`
	LengthFt   float64     `json:"lengthFt"`
	Confidence float64     `json:"confidence"`
}

// FootprintSource records which provider the resolved footprint came from.
type FootprintSource string

const (
	SourceVisionModel     FootprintSource = "vision_model"
	SourceBuildingInsight FootprintSource = "building_insight_api"
	SourceManualOverride  FootprintSource = "manual_override"
	// SourceFused marks a footprint synthesized from multiple building-insight
	// segments (convex hull over segment corners) rather than taken verbatim.
	SourceFused FootprintSource = "fused"
)

// Footprint is the resolved building outline. Exactly one footprint is
// authoritative per measurement run.
type Footprint struct {
	Polygon     Polygon         `json:"polygon"`
	AreaSqft    float64         `json:"areaSqft"`
	PerimeterFt float64         `json:"perimeterFt"`
	VertexCount int             `json:"vertexCount"`
	Confidence  float64         `json:"confidence"` // 0..1
	Source      FootprintSource `json:"source"`
}

// MaterialQuantities are the derived material counts for the measured roof.
// Everything is rounded up because materials are sold in discrete units.
type MaterialQuantities struct {
	UnderlaymentRolls   int `json:"underlaymentRolls"`
	IceAndWaterShieldFt int `json:"iceAndWaterShieldFt"`
	DripEdgeSticks      int `json:"dripEdgeSticks"`
	StarterStripFt      int `json:"starterStripFt"`
	HipAndRidgeCapFt    int `json:"hipAndRidgeCapFt"`
	ValleyMetalFt       int `json:"valleyMetalFt"`
}

// QualityMetrics are structural QA scores surfaced alongside, but not folded
// into, the overall confidence score.
type QualityMetrics struct {
	// FacetClosure is the fraction of facet polygons whose first and last
	// vertex coincide within the pixel closure tolerance.
	FacetClosure float64 `json:"facetClosureScore"`
	// EdgeContinuity is the fraction of linear features with plausible length.
	EdgeContinuity float64 `json:"edgeContinuityScore"`
}

// MeasurementResult is the engine's sole output. It is immutable once
// returned and safe to share across goroutines.
type MeasurementResult struct {
	JobID                 string                  `json:"jobId"`
	Footprint             Footprint               `json:"footprint"`
	Facets                []Facet                 `json:"facets"`
	LinearFeatures        []LinearFeature         `json:"linearFeatures"`
	TotalAdjustedAreaSqft float64                 `json:"totalAdjustedAreaSqft"`
	TotalSquares          float64                 `json:"totalSquares"`
	PredominantPitch      string                  `json:"predominantPitch"`
	WasteFactor           float64                 `json:"wasteFactor"` // fraction, e.g. 0.10
	LinearTotalsFt        map[FeatureType]float64 `json:"linearTotalsByTypeFt"`
	Materials             MaterialQuantities      `json:"materials"`
	QualityMetrics        QualityMetrics          `json:"qualityMetrics"`
	OverallConfidence     float64                 `json:"overallConfidence"` // 0..100
	ConfidenceRating      string                  `json:"confidenceRating"`
	ManualReviewRequired  bool                    `json:"manualReviewRequired"`
	Anomalies             []Anomaly               `json:"anomalies"`
	RiskLevel             RiskLevel               `json:"riskLevel"`
	Recommendations       []string                `json:"recommendations"`
	EdgeCases             *EdgeCaseReport         `json:"edgeCases,omitempty"`
	MeasuredAt            time.Time               `json:"measuredAt"`
}

// BaselineStats is a reference distribution for one metric, used by the
// anomaly detector's statistical outlier check.
type BaselineStats struct {
	Mean        float64         `json:"mean" yaml:"mean"`
	StdDev      float64         `json:"stdDev" yaml:"stdDev"`
	Percentiles map[int]float64 `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
}
