package roof

import (
	"errors"
	"fmt"
)

// ImageryQuality is a provider's self-reported quality tag.
type ImageryQuality string

const (
	QualityHigh   ImageryQuality = "high"
	QualityMedium ImageryQuality = "medium"
	QualityLow    ImageryQuality = "low"
)

// MeasurementInput carries the already-resolved results of the upstream
// source calls for one measurement run. Any subset of the three sources may
// be present; the engine absorbs absence into confidence scoring rather than
// failing. Retries and network concerns belong to the caller.
type MeasurementInput struct {
	JobID           string                 `json:"jobId,omitempty"`
	ImageFrame      ImageFrame             `json:"imageFrame"`
	VisionModel     *VisionModelResult     `json:"visionModelResult,omitempty"`
	BuildingInsight *BuildingInsightResult `json:"buildingInsightResult,omitempty"`
	ManualOverride  Polygon                `json:"manualOverridePolygon,omitempty"`
	// ImageFeatureTags are free-form keywords from the imagery pipeline
	// ("barn", "dome", ...) consumed by the edge-case classifier.
	ImageFeatureTags []string `json:"imageFeatureTags,omitempty"`
}

// VisionModelResult is the untrusted facet/linear-feature guess from the
// vision inference collaborator. All geometry is in pixel space relative to
// the input's ImageFrame.
type VisionModelResult struct {
	Footprint         []PixelPoint          `json:"footprint,omitempty"`
	Facets            []VisionFacet         `json:"facets"`
	LinearFeatures    []VisionLinearFeature `json:"linearFeatures"`
	OverallConfidence ImageryQuality        `json:"overallConfidence"`
}

// VisionFacet is one detected roof plane in pixel space.
type VisionFacet struct {
	Outline        []PixelPoint `json:"outline"`
	Pitch          string       `json:"pitch,omitempty"`
	OrientationDeg float64      `json:"orientationDeg,omitempty"`
	Confidence     float64      `json:"confidence"`
}

// VisionLinearFeature is a detector-typed structural line in pixel space.
type VisionLinearFeature struct {
	Type       FeatureType `json:"type"`
	Start      PixelPoint  `json:"start"`
	End        PixelPoint  `json:"end"`
	Confidence float64     `json:"confidence"`
}

// BuildingInsightResult is the structured building-insight payload: an
// outer bounding box, optional per-segment geometry with plane attributes,
// and the provider's imagery quality tag.
type BuildingInsightResult struct {
	BoundingBox    LatLngBox      `json:"boundingBox"`
	Segments       []RoofSegment  `json:"segments,omitempty"`
	ImageryQuality ImageryQuality `json:"imageryQuality"`
}

// LatLngBox is an axis-aligned geographic bounding box.
type LatLngBox struct {
	SW GeoPoint `json:"sw"`
	NE GeoPoint `json:"ne"`
}

// RoofSegment is one roof plane reported by the building-insight provider.
// Height is above ground at the plane center and may be zero when the
// provider has no elevation data.
type RoofSegment struct {
	Box            LatLngBox `json:"boundingBox"`
	PitchDegrees   float64   `json:"pitchDegrees"`
	AzimuthDegrees float64   `json:"azimuthDegrees"`
	CenterHeightM  float64   `json:"centerHeightM,omitempty"`
	PlanAreaSqm    float64   `json:"planAreaSqm,omitempty"`
}

// ErrInvalidInput wraps boundary validation failures. These are fatal for
// the single request and never silently coerced.
var ErrInvalidInput = errors.New("invalid measurement input")

// Validate performs boundary validation on the input. Upstream degradation
// (missing sources, low quality) is deliberately not an error here.
func (in *MeasurementInput) Validate() error {
	if err := ValidateFrame(in.ImageFrame); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.ManualOverride != nil {
		if len(in.ManualOverride) < 3 {
			return fmt.Errorf("%w: manual override polygon has %d vertices, need at least 3", ErrInvalidInput, len(in.ManualOverride))
		}
		for i, g := range in.ManualOverride {
			if !isFinite(g.Lat) || !isFinite(g.Lng) {
				return fmt.Errorf("%w: manual override vertex %d is non-finite", ErrInvalidInput, i)
			}
		}
	}
	if in.BuildingInsight != nil {
		b := in.BuildingInsight.BoundingBox
		if !isFinite(b.SW.Lat) || !isFinite(b.SW.Lng) || !isFinite(b.NE.Lat) || !isFinite(b.NE.Lng) {
			return fmt.Errorf("%w: building insight bounding box is non-finite", ErrInvalidInput)
		}
	}
	return nil
}

// Center returns the box's center point.
func (b LatLngBox) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.SW.Lat + b.NE.Lat) / 2,
		Lng: (b.SW.Lng + b.NE.Lng) / 2,
	}
}

// Corners returns the four corner vertices of the box as a polygon, counter
// clockwise from the southwest corner.
func (b LatLngBox) Corners() Polygon {
	return Polygon{
		{Lat: b.SW.Lat, Lng: b.SW.Lng},
		{Lat: b.SW.Lat, Lng: b.NE.Lng},
		{Lat: b.NE.Lat, Lng: b.NE.Lng},
		{Lat: b.NE.Lat, Lng: b.SW.Lng},
	}
}

// Normalized returns a valid quality value, defaulting unknown strings to
// low so that unrecognized provider tags never upgrade trust.
func (q ImageryQuality) Normalized() ImageryQuality {
	switch q {
	case QualityHigh, QualityMedium, QualityLow:
		return q
	default:
		return QualityLow
	}
}
