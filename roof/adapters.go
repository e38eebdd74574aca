package roof

import (
	"fmt"
	"log"
	"math"
)

// facetClosureTolerancePx is the pixel distance within which a facet
// outline's first and last vertex are considered coincident (closed).
const facetClosureTolerancePx = 5.0

// minLinearFeatureFt is the noise floor for detector linear features.
// Anything shorter is discarded.
const minLinearFeatureFt = 3.0

// SourceGeometry is the common shape every provider adapter normalizes
// into: an optional footprint candidate plus facet and linear feature lists
// in geographic space.
type SourceGeometry struct {
	Source             FootprintSource
	FootprintCandidate Polygon
	Facets             []Facet
	LinearFeatures     []LinearFeature
	Quality            ImageryQuality
	// ClosedFacetFraction is the fraction of raw facet outlines that were
	// closed within facetClosureTolerancePx, measured before sanitization.
	// 1.0 when there were no facets to judge.
	ClosedFacetFraction float64
}

// AdaptVisionModel normalizes the vision detector's pixel-space guesses.
// The detector is an untrusted oracle: malformed polygons are dropped with
// a warning, never an error, and the adapter always returns a valid
// (possibly empty) structure.
func AdaptVisionModel(v *VisionModelResult, frame ImageFrame) SourceGeometry {
	sg := SourceGeometry{
		Source:              SourceVisionModel,
		Quality:             QualityLow,
		ClosedFacetFraction: 1.0,
	}
	if v == nil {
		return sg
	}
	sg.Quality = v.OverallConfidence.Normalized()

	if len(v.Footprint) >= 3 {
		if poly, ok := pixelOutlineToPolygon(v.Footprint, frame); ok {
			sg.FootprintCandidate = poly
		} else {
			log.Printf("[vision] dropping footprint candidate: non-finite coordinates")
		}
	}

	closed := 0
	judged := 0
	for i, vf := range v.Facets {
		if len(vf.Outline) < 3 {
			log.Printf("[vision] dropping facet %d: only %d vertices", i, len(vf.Outline))
			continue
		}
		judged++
		if outlineClosed(vf.Outline) {
			closed++
		}
		poly, ok := pixelOutlineToPolygon(vf.Outline, frame)
		if !ok {
			log.Printf("[vision] dropping facet %d: non-finite coordinates", i)
			continue
		}
		pitch := vf.Pitch
		if _, err := ParsePitch(pitch); err != nil {
			pitch = ""
		}
		sg.Facets = append(sg.Facets, Facet{
			ID:             fmt.Sprintf("facet-%d", i+1),
			Polygon:        poly,
			PlanAreaSqft:   PolygonAreaSqft(poly),
			Pitch:          pitch,
			OrientationDeg: vf.OrientationDeg,
			Confidence:     clamp01(vf.Confidence),
		})
	}
	if judged > 0 {
		sg.ClosedFacetFraction = float64(closed) / float64(judged)
	}

	for i, vl := range v.LinearFeatures {
		start := PixelToGeo(vl.Start, frame)
		end := PixelToGeo(vl.End, frame)
		length := GeoDistanceFt(start, end)
		if length < minLinearFeatureFt {
			continue
		}
		if !validFeatureType(vl.Type) {
			log.Printf("[vision] dropping linear feature %d: unknown type %q", i, vl.Type)
			continue
		}
		sg.LinearFeatures = append(sg.LinearFeatures, LinearFeature{
			ID:         fmt.Sprintf("line-%d", i+1),
			Type:       vl.Type,
			Start:      start,
			End:        end,
			LengthFt:   length,
			Confidence: clamp01(vl.Confidence),
		})
	}
	return sg
}

// AdaptBuildingInsight normalizes the structured building-insight payload.
// The footprint candidate is only offered when the provider's imagery
// quality is high or medium; low-quality responses still seed facet
// pitch/azimuth hints for downstream scoring.
func AdaptBuildingInsight(b *BuildingInsightResult) SourceGeometry {
	sg := SourceGeometry{
		Source:              SourceBuildingInsight,
		Quality:             QualityLow,
		ClosedFacetFraction: 1.0,
	}
	if b == nil {
		return sg
	}
	sg.Quality = b.ImageryQuality.Normalized()

	if sg.Quality == QualityHigh || sg.Quality == QualityMedium {
		sg.FootprintCandidate = b.BoundingBox.Corners()
	}

	conf := 0.7
	if sg.Quality == QualityHigh {
		conf = 0.9
	} else if sg.Quality == QualityLow {
		conf = 0.4
	}
	for i, seg := range b.Segments {
		poly := seg.Box.Corners()
		area := seg.PlanAreaSqm * SqftPerSqm
		if area <= 0 {
			area = PolygonAreaSqft(poly)
		}
		sg.Facets = append(sg.Facets, Facet{
			ID:             fmt.Sprintf("segment-%d", i+1),
			Polygon:        poly,
			PlanAreaSqft:   area,
			Pitch:          PitchFromDegrees(seg.PitchDegrees),
			OrientationDeg: seg.AzimuthDegrees,
			Confidence:     conf,
		})
	}
	return sg
}

// AdaptManualOverride wraps an operator-drawn polygon. Manual geometry
// bypasses automated footprint scoring entirely; confidence is fixed at 1.0
// by the resolver.
func AdaptManualOverride(poly Polygon) SourceGeometry {
	sg := SourceGeometry{
		Source:              SourceManualOverride,
		Quality:             QualityHigh,
		ClosedFacetFraction: 1.0,
	}
	if len(poly) >= 3 {
		sg.FootprintCandidate = SanitizePolygon(poly)
	}
	return sg
}

// SanitizePolygon removes adjacent duplicate vertices and a trailing
// repetition of the first vertex. Cheap cleanup per the error-handling
// design; anything structural (self-intersection) is left for scoring.
func SanitizePolygon(poly Polygon) Polygon {
	if len(poly) == 0 {
		return poly
	}
	out := make(Polygon, 0, len(poly))
	for _, g := range poly {
		if len(out) > 0 && out[len(out)-1] == g {
			continue
		}
		out = append(out, g)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func pixelOutlineToPolygon(outline []PixelPoint, frame ImageFrame) (Polygon, bool) {
	poly := make(Polygon, 0, len(outline))
	for _, p := range outline {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return nil, false
		}
		poly = append(poly, PixelToGeo(p, frame))
	}
	poly = SanitizePolygon(poly)
	if len(poly) < 3 {
		return nil, false
	}
	return poly, true
}

func outlineClosed(outline []PixelPoint) bool {
	if len(outline) < 3 {
		return false
	}
	first, last := outline[0], outline[len(outline)-1]
	return math.Hypot(first.X-last.X, first.Y-last.Y) <= facetClosureTolerancePx
}

func validFeatureType(t FeatureType) bool {
	switch t {
	case FeatureRidge, FeatureHip, FeatureValley, FeatureEave, FeatureRake:
		return true
	}
	return false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
