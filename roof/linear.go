package roof

import (
	"fmt"
	"math"
)

// segmentAdjacencyTolM is how far apart two roof-segment bounding boxes may
// sit (in meters) while still being considered adjacent. Provider boxes are
// loose; real shared edges frequently show a small gap or overlap.
const segmentAdjacencyTolM = 5.5

// derivedFeatureConfidence is assigned to features inferred from segment
// geometry rather than reported by a detector. The derivation is heuristic
// and both over- and under-detects; downstream scoring absorbs that.
const derivedFeatureConfidence = 0.6

// eaveCandidateConfidence is assigned to outer-boundary eave candidates.
const eaveCandidateConfidence = 0.7

// EdgeClassifier decides the structural type of the shared edge between two
// adjacent roof segments. It exists as a strategy so an elevation-aware
// implementation can replace the azimuth heuristic without touching the
// extraction pipeline.
type EdgeClassifier interface {
	Classify(a, b RoofSegment, edgeMid GeoPoint) FeatureType
}

// AzimuthClassifier is the default classifier. Opposed azimuths (150-210
// degrees apart) make a ridge. A valley requires evidence that the shared
// edge sits below both planes: both segments must carry height data and
// both must slope down toward the edge. Everything else is a hip.
type AzimuthClassifier struct{}

// Classify implements EdgeClassifier.
func (AzimuthClassifier) Classify(a, b RoofSegment, edgeMid GeoPoint) FeatureType {
	diff := math.Abs(math.Mod(a.AzimuthDegrees-b.AzimuthDegrees+360, 360))
	if diff >= 150 && diff <= 210 {
		return FeatureRidge
	}
	if a.CenterHeightM > 0 && b.CenterHeightM > 0 &&
		slopesToward(a, edgeMid) && slopesToward(b, edgeMid) {
		return FeatureValley
	}
	return FeatureHip
}

// slopesToward reports whether the segment's downslope direction (its
// azimuth) points from the plane center toward the given point.
func slopesToward(seg RoofSegment, p GeoPoint) bool {
	center := seg.Box.Center()
	v := localMeters(p, center)
	az := seg.AzimuthDegrees * math.Pi / 180
	// Azimuth is compass bearing: 0 = north (+lat), 90 = east (+lng).
	dot := v[0]*math.Sin(az) + v[1]*math.Cos(az)
	return dot > 0
}

// ExtractFeatures produces the run's linear feature list. Detector-typed
// vision features (already converted and length-filtered by the adapter)
// are taken as given when present; otherwise features are derived pairwise
// from building-insight segment geometry.
func ExtractFeatures(vision SourceGeometry, insight *BuildingInsightResult, classifier EdgeClassifier) []LinearFeature {
	if len(vision.LinearFeatures) > 0 {
		return vision.LinearFeatures
	}
	if insight == nil || len(insight.Segments) == 0 {
		return nil
	}
	if classifier == nil {
		classifier = AzimuthClassifier{}
	}
	return DeriveFromSegments(insight.Segments, insight.BoundingBox, classifier)
}

// DeriveFromSegments derives typed linear features from roof-segment
// bounding boxes: shared edges between adjacent segment pairs, classified
// by the given strategy, plus the four outer boundary edges as eave
// candidates.
func DeriveFromSegments(segments []RoofSegment, outer LatLngBox, classifier EdgeClassifier) []LinearFeature {
	var features []LinearFeature
	n := 0

	for i := 0; i < len(segments); i++ {
		for j := i + 1; j < len(segments); j++ {
			edge, ok := sharedEdge(segments[i].Box, segments[j].Box)
			if !ok {
				continue
			}
			length := GeoDistanceFt(edge[0], edge[1])
			if length < minLinearFeatureFt {
				continue
			}
			mid := GeoPoint{
				Lat: (edge[0].Lat + edge[1].Lat) / 2,
				Lng: (edge[0].Lng + edge[1].Lng) / 2,
			}
			n++
			features = append(features, LinearFeature{
				ID:         fmt.Sprintf("derived-%d", n),
				Type:       classifier.Classify(segments[i], segments[j], mid),
				Start:      edge[0],
				End:        edge[1],
				LengthFt:   length,
				Confidence: derivedFeatureConfidence,
			})
		}
	}

	corners := outer.Corners()
	for i := range corners {
		start := corners[i]
		end := corners[(i+1)%len(corners)]
		length := GeoDistanceFt(start, end)
		if length < minLinearFeatureFt {
			continue
		}
		features = append(features, LinearFeature{
			ID:         fmt.Sprintf("eave-%d", i+1),
			Type:       FeatureEave,
			Start:      start,
			End:        end,
			LengthFt:   length,
			Confidence: eaveCandidateConfidence,
		})
	}
	return features
}

// sharedEdge finds the midline of the overlap region between two boxes
// along whichever axis has the larger overlap extent. Boxes are adjacent
// when they overlap (or fall short) within segmentAdjacencyTolM on both
// axes.
func sharedEdge(a, b LatLngBox) ([2]GeoPoint, bool) {
	midLat := (a.Center().Lat + b.Center().Lat) / 2
	latTol := segmentAdjacencyTolM / MetersPerDegreeLat
	lngTol := segmentAdjacencyTolM / (MetersPerDegreeLat * math.Cos(midLat*math.Pi/180))

	loLat := math.Max(a.SW.Lat, b.SW.Lat)
	hiLat := math.Min(a.NE.Lat, b.NE.Lat)
	loLng := math.Max(a.SW.Lng, b.SW.Lng)
	hiLng := math.Min(a.NE.Lng, b.NE.Lng)

	if hiLat-loLat < -latTol || hiLng-loLng < -lngTol {
		return [2]GeoPoint{}, false
	}

	// Extents in meters so the axis comparison is not distorted by the
	// cos(lat) longitude scaling.
	latExtentM := (hiLat - loLat) * MetersPerDegreeLat
	lngExtentM := (hiLng - loLng) * MetersPerDegreeLat * math.Cos(midLat*math.Pi/180)

	if latExtentM >= lngExtentM {
		// Edge runs north-south along the longitude midline.
		midLng := (loLng + hiLng) / 2
		return [2]GeoPoint{
			{Lat: loLat, Lng: midLng},
			{Lat: hiLat, Lng: midLng},
		}, true
	}
	// Edge runs east-west along the latitude midline.
	mid := (loLat + hiLat) / 2
	return [2]GeoPoint{
		{Lat: mid, Lng: loLng},
		{Lat: mid, Lng: hiLng},
	}, true
}
