package roof

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Plausibility envelope for a resolved residential footprint. Results
// outside this range are surfaced as a validation failure rather than a
// silent zero-area measurement.
const (
	MinFootprintSqft = 500.0
	MaxFootprintSqft = 50000.0
)

// DefaultOverhangFt is the radial eave-overhang expansion applied to
// automated footprints, which detect wall lines rather than roof edges.
const DefaultOverhangFt = 2.0

// ErrNoFootprint is returned when no source (including manual) offers a
// usable footprint candidate. This is the engine's only hard-fail outcome
// and callers must be able to distinguish it from a low-confidence result.
var ErrNoFootprint = errors.New("no usable footprint candidate from any source")

// ErrImplausibleFootprint is returned when the resolved footprint's area is
// outside the residential envelope.
var ErrImplausibleFootprint = errors.New("footprint area outside plausible envelope")

// ResolveFootprint selects one authoritative footprint from the available
// sources. A manual override wins outright and skips all automated
// resolution, including overhang expansion. Otherwise the building-insight
// candidate is preferred (hulled over segment corners when multiple
// segments are present), with the vision-model candidate as the fallback.
func ResolveFootprint(manual, insight, vision SourceGeometry, insightSegments []RoofSegment, overhangFt float64) (Footprint, error) {
	if manual.FootprintCandidate != nil {
		return makeFootprint(manual.FootprintCandidate, SourceManualOverride, 1.0)
	}

	if insight.FootprintCandidate != nil {
		poly := insight.FootprintCandidate
		source := SourceBuildingInsight
		if len(insightSegments) > 1 {
			var corners []GeoPoint
			for _, seg := range insightSegments {
				corners = append(corners, seg.Box.Corners()...)
			}
			if hull := ConvexHull(corners); len(hull) >= 3 {
				poly = hull
				source = SourceFused
			}
		}
		conf := 0.75
		if insight.Quality == QualityHigh {
			conf = 0.9
		}
		return makeFootprint(ExpandPolygon(poly, overhangFt), source, conf)
	}

	if vision.FootprintCandidate != nil {
		conf := 0.4
		switch vision.Quality {
		case QualityHigh:
			conf = 0.8
		case QualityMedium:
			conf = 0.6
		}
		return makeFootprint(ExpandPolygon(vision.FootprintCandidate, overhangFt), SourceVisionModel, conf)
	}

	return Footprint{}, ErrNoFootprint
}

func makeFootprint(poly Polygon, source FootprintSource, confidence float64) (Footprint, error) {
	fp := Footprint{
		Polygon:     poly,
		AreaSqft:    PolygonAreaSqft(poly),
		PerimeterFt: PolygonPerimeterFt(poly),
		VertexCount: len(poly),
		Confidence:  confidence,
		Source:      source,
	}
	if fp.AreaSqft < MinFootprintSqft || fp.AreaSqft > MaxFootprintSqft {
		return fp, fmt.Errorf("%w: %.0f sq ft (source %s)", ErrImplausibleFootprint, fp.AreaSqft, source)
	}
	return fp, nil
}

// ExpandPolygon moves every vertex radially outward from the polygon
// centroid by the given ground distance, approximating the eave overhang
// that wall-line detections miss. Degenerate vertices sitting on the
// centroid are left in place.
func ExpandPolygon(poly Polygon, overhangFt float64) Polygon {
	if len(poly) < 3 || overhangFt <= 0 {
		return poly
	}
	centroid := PolygonCentroid(poly)
	overhangM := overhangFt / FtPerMeter

	out := make(Polygon, len(poly))
	for i, g := range poly {
		v := localMeters(g, centroid)
		dist := math.Hypot(v[0], v[1])
		if dist == 0 {
			out[i] = g
			continue
		}
		scale := (dist + overhangM) / dist
		out[i] = GeoPoint{
			Lat: centroid.Lat + (g.Lat-centroid.Lat)*scale,
			Lng: centroid.Lng + (g.Lng-centroid.Lng)*scale,
		}
	}
	return out
}

// ConvexHull computes the convex hull of a point set with a Graham scan:
// pivot at the bottom-most (then left-most) point, sort the rest by polar
// angle around it, and pop non-left turns. Returns the hull in counter
// clockwise order, or nil for fewer than 3 distinct points.
func ConvexHull(points []GeoPoint) Polygon {
	pts := dedupePoints(points)
	if len(pts) < 3 {
		return nil
	}

	// Bottom-most point, ties broken left-most.
	pivot := 0
	for i, p := range pts {
		if p.Lat < pts[pivot].Lat || (p.Lat == pts[pivot].Lat && p.Lng < pts[pivot].Lng) {
			pivot = i
		}
	}
	pts[0], pts[pivot] = pts[pivot], pts[0]
	p0 := pts[0]

	rest := pts[1:]
	sort.Slice(rest, func(i, j int) bool {
		c := cross(p0, rest[i], rest[j])
		if c != 0 {
			return c > 0
		}
		// Collinear with the pivot: nearer point first.
		return sqDist(p0, rest[i]) < sqDist(p0, rest[j])
	})

	hull := Polygon{p0}
	for _, p := range rest {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	if len(hull) < 3 {
		return nil
	}
	return hull
}

// cross returns the z component of (b-a) x (c-a) in lng/lat space.
// Positive means a left turn (counter clockwise).
func cross(a, b, c GeoPoint) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

func sqDist(a, b GeoPoint) float64 {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	return dx*dx + dy*dy
}

func dedupePoints(points []GeoPoint) []GeoPoint {
	seen := make(map[GeoPoint]bool, len(points))
	out := make([]GeoPoint, 0, len(points))
	for _, p := range points {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
