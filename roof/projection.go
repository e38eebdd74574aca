package roof

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Unit conversion constants for the local-plane approximation. These are
// deliberately simple: within a few hundred meters of the image center the
// equirectangular model is accurate to well under the pixel resolution of
// any aerial tile we consume.
const (
	// MetersPerDegreeLat is the ground distance of one degree of latitude.
	MetersPerDegreeLat = 111320.0
	// SqftPerSqm converts square meters to square feet.
	SqftPerSqm = 10.7639
	// FtPerMeter converts meters to feet.
	FtPerMeter = 3.28084
	// webMercatorBase is the equatorial ground resolution at zoom 0 in
	// meters per pixel (2 * pi * 6378137 / 256).
	webMercatorBase = 156543.03392
)

// ErrInvalidFrame indicates an ImageFrame that cannot be used for
// projection (non-finite center, zero pixel size, or out-of-range zoom).
var ErrInvalidFrame = errors.New("invalid image frame")

// ValidateFrame checks that a frame is usable for pixel<->geo conversion.
func ValidateFrame(frame ImageFrame) error {
	if !isFinite(frame.CenterLat) || !isFinite(frame.CenterLng) {
		return fmt.Errorf("%w: non-finite center (%v, %v)", ErrInvalidFrame, frame.CenterLat, frame.CenterLng)
	}
	if frame.CenterLat < -85 || frame.CenterLat > 85 {
		return fmt.Errorf("%w: center latitude %v outside web-mercator range", ErrInvalidFrame, frame.CenterLat)
	}
	if frame.ZoomLevel < 1 || frame.ZoomLevel > 23 {
		return fmt.Errorf("%w: zoom level %d", ErrInvalidFrame, frame.ZoomLevel)
	}
	if frame.PixelSizePx <= 0 {
		return fmt.Errorf("%w: pixel size %d", ErrInvalidFrame, frame.PixelSizePx)
	}
	return nil
}

// GroundResolutionM returns meters-per-pixel for the frame using the
// standard Web-Mercator ground resolution formula.
func GroundResolutionM(frame ImageFrame) float64 {
	return webMercatorBase * math.Cos(frame.CenterLat*math.Pi/180) / math.Pow(2, float64(frame.ZoomLevel))
}

// PixelToGeo converts an image-space point to a geographic coordinate using
// the frame's center and zoom. The image origin is top-left with y growing
// downward, so positive y offsets decrease latitude.
func PixelToGeo(p PixelPoint, frame ImageFrame) GeoPoint {
	mpp := GroundResolutionM(frame)
	half := float64(frame.PixelSizePx) / 2

	dxM := (p.X - half) * mpp
	dyM := (p.Y - half) * mpp

	latRad := frame.CenterLat * math.Pi / 180
	return GeoPoint{
		Lat: frame.CenterLat - dyM/MetersPerDegreeLat,
		Lng: frame.CenterLng + dxM/(MetersPerDegreeLat*math.Cos(latRad)),
	}
}

// GeoToPixel is the inverse of PixelToGeo for the same frame.
func GeoToPixel(g GeoPoint, frame ImageFrame) PixelPoint {
	mpp := GroundResolutionM(frame)
	half := float64(frame.PixelSizePx) / 2

	latRad := frame.CenterLat * math.Pi / 180
	dxM := (g.Lng - frame.CenterLng) * MetersPerDegreeLat * math.Cos(latRad)
	dyM := (frame.CenterLat - g.Lat) * MetersPerDegreeLat

	return PixelPoint{
		X: half + dxM/mpp,
		Y: half + dyM/mpp,
	}
}

// localMeters projects a geographic point onto the local tangent plane
// anchored at origin, returning an orb.Point in meters east/north.
func localMeters(g, origin GeoPoint) orb.Point {
	latRad := origin.Lat * math.Pi / 180
	x := (g.Lng - origin.Lng) * MetersPerDegreeLat * math.Cos(latRad)
	y := (g.Lat - origin.Lat) * MetersPerDegreeLat
	return orb.Point{x, y}
}

// GeoDistanceFt returns the distance between two geographic points in feet
// on the local-plane approximation anchored at a.
func GeoDistanceFt(a, b GeoPoint) float64 {
	p := localMeters(b, a)
	return math.Hypot(p[0], p[1]) * FtPerMeter
}

// localRing projects a polygon into local meter space anchored at its first
// vertex and closes the ring, producing input suitable for orb's planar
// operations.
func localRing(poly Polygon) orb.Ring {
	if len(poly) == 0 {
		return nil
	}
	origin := poly[0]
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, g := range poly {
		ring = append(ring, localMeters(g, origin))
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// PolygonAreaSqft computes the enclosed area of a geographic polygon in
// square feet by projecting vertices to local meters and applying the
// Shoelace formula (via orb's planar area).
func PolygonAreaSqft(poly Polygon) float64 {
	if len(poly) < 3 {
		return 0
	}
	return math.Abs(planar.Area(localRing(poly))) * SqftPerSqm
}

// PolygonPerimeterFt computes the closed perimeter of a geographic polygon
// in feet.
func PolygonPerimeterFt(poly Polygon) float64 {
	if len(poly) < 2 {
		return 0
	}
	total := 0.0
	for i := range poly {
		total += GeoDistanceFt(poly[i], poly[(i+1)%len(poly)])
	}
	return total
}

// PolygonCentroid returns the vertex centroid of a polygon. Adequate for
// the radial overhang expansion, which only needs a stable interior anchor.
func PolygonCentroid(poly Polygon) GeoPoint {
	if len(poly) == 0 {
		return GeoPoint{}
	}
	var lat, lng float64
	for _, g := range poly {
		lat += g.Lat
		lng += g.Lng
	}
	n := float64(len(poly))
	return GeoPoint{Lat: lat / n, Lng: lng / n}
}

// PointInPolygon reports whether a geographic point lies inside (or on the
// boundary of) the polygon, tested in local meter space.
func PointInPolygon(g GeoPoint, poly Polygon) bool {
	if len(poly) < 3 {
		return false
	}
	origin := poly[0]
	return planar.RingContains(localRing(poly), localMeters(g, origin))
}

// FeetToDegreesLat converts a ground distance in feet to degrees of
// latitude on the local approximation.
func FeetToDegreesLat(ft float64) float64 {
	return ft / FtPerMeter / MetersPerDegreeLat
}

// FeetToDegreesLng converts a ground distance in feet to degrees of
// longitude at the given latitude.
func FeetToDegreesLng(ft, lat float64) float64 {
	return ft / FtPerMeter / (MetersPerDegreeLat * math.Cos(lat*math.Pi/180))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
