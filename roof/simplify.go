package roof

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// areaGrowthEpsilon is the maximum fractional area increase simplification
// may introduce. Simplifying must never balloon the shape; runs that would
// are reverted.
const areaGrowthEpsilon = 0.005

// Simplify removes redundant collinear vertices within toleranceFt and,
// when snapAngles is set, nudges near-right-angle corners to exact
// multiples of 90 degrees to normalize near-rectangular footprints. The
// result never has fewer than 3 vertices and never encloses more than a
// small epsilon of additional area; when either guarantee would be
// violated the offending step is skipped.
func Simplify(poly Polygon, toleranceFt float64, snapAngles bool, angleThresholdDeg float64) Polygon {
	poly = SanitizePolygon(poly)
	if len(poly) < 3 {
		return poly
	}
	baseArea := PolygonAreaSqft(poly)

	out := removeCollinear(poly, toleranceFt)
	if len(out) < 3 || areaBallooned(baseArea, PolygonAreaSqft(out)) {
		out = poly
	}

	if snapAngles && angleThresholdDeg > 0 {
		snapped := snapRightAngles(out, angleThresholdDeg)
		if len(snapped) >= 3 && !areaBallooned(baseArea, PolygonAreaSqft(snapped)) {
			// Snapping can leave a surviving vertex exactly on the line
			// through its neighbors; sweep those so a repeat run returns
			// the same ring.
			cleaned := removeCollinear(snapped, toleranceFt)
			if len(cleaned) >= 3 && !areaBallooned(baseArea, PolygonAreaSqft(cleaned)) {
				snapped = cleaned
			}
			out = snapped
		}
	}
	return out
}

func areaBallooned(before, after float64) bool {
	return after > before*(1+areaGrowthEpsilon)
}

// removeCollinear drops vertices within toleranceFt of the line through
// their neighbors using a Douglas-Peucker pass over the ring projected to
// local meters.
func removeCollinear(poly Polygon, toleranceFt float64) Polygon {
	if toleranceFt <= 0 || len(poly) < 4 {
		return poly
	}
	origin := poly[0]
	ls := make(orb.LineString, 0, len(poly)+1)
	for _, g := range poly {
		ls = append(ls, localMeters(g, origin))
	}
	// Close the ring so the first/last edge pair is judged like any other.
	ls = append(ls, ls[0])

	s := simplify.DouglasPeucker(toleranceFt / FtPerMeter).Simplify(ls.Clone())
	result, ok := s.(orb.LineString)
	if !ok || len(result) < 4 {
		return poly
	}
	// Drop the closing vertex again.
	result = result[:len(result)-1]

	out := make(Polygon, len(result))
	for i, p := range result {
		out[i] = metersToGeo(p, origin)
	}
	return out
}

// snapRightAngles walks the polygon in local meter space, snapping each
// edge direction to the nearest multiple of 90 degrees relative to the
// previous edge when the deviation is within thresholdDeg. Edge lengths are
// preserved. If the walked ring fails to close within a small gap the
// original polygon is returned, since a large gap means the shape was not
// actually near-rectangular.
func snapRightAngles(poly Polygon, thresholdDeg float64) Polygon {
	n := len(poly)
	if n < 3 {
		return poly
	}
	origin := poly[0]
	pts := make([]orb.Point, n)
	for i, g := range poly {
		pts[i] = localMeters(g, origin)
	}

	out := make([]orb.Point, n)
	out[0] = pts[0]
	prevDir := math.Atan2(pts[1][1]-pts[0][1], pts[1][0]-pts[0][0])

	for i := 1; i < n; i++ {
		cur := pts[i]
		segLen := math.Hypot(cur[0]-out[i-1][0], cur[1]-out[i-1][1])

		dir := math.Atan2(cur[1]-out[i-1][1], cur[0]-out[i-1][0])
		snapped := snapToRightAngle(dir, prevDir, thresholdDeg)
		out[i] = orb.Point{
			out[i-1][0] + segLen*math.Cos(snapped),
			out[i-1][1] + segLen*math.Sin(snapped),
		}
		prevDir = snapped
	}

	// The walk preserves lengths but not closure; tolerate a gap of up to
	// 2% of the perimeter before giving up on snapping.
	gap := math.Hypot(out[n-1][0]-out[0][0], out[n-1][1]-out[0][1])
	perim := 0.0
	for i := range out {
		j := (i + 1) % n
		perim += math.Hypot(out[j][0]-out[i][0], out[j][1]-out[i][1])
	}
	lastLen := math.Hypot(pts[0][0]-pts[n-1][0], pts[0][1]-pts[n-1][1])
	if gap > lastLen+perim*0.02 {
		return poly
	}

	snapped := make(Polygon, n)
	for i, p := range out {
		snapped[i] = metersToGeo(p, origin)
	}
	return snapped
}

// snapToRightAngle snaps dir to the nearest multiple of 90 degrees
// relative to ref when within thresholdDeg, otherwise returns dir
// unchanged.
func snapToRightAngle(dir, ref, thresholdDeg float64) float64 {
	delta := dir - ref
	quarter := math.Pi / 2
	nearest := math.Round(delta/quarter) * quarter
	if math.Abs(delta-nearest)*180/math.Pi <= thresholdDeg {
		return ref + nearest
	}
	return dir
}

// metersToGeo is the inverse of localMeters for the same origin.
func metersToGeo(p orb.Point, origin GeoPoint) GeoPoint {
	latRad := origin.Lat * math.Pi / 180
	return GeoPoint{
		Lat: origin.Lat + p[1]/MetersPerDegreeLat,
		Lng: origin.Lng + p[0]/(MetersPerDegreeLat*math.Cos(latRad)),
	}
}
