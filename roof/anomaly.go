package roof

import (
	"fmt"
	"math"
)

// AnomalyType identifies which plausibility check fired.
type AnomalyType string

const (
	AnomalyStatisticalOutlier AnomalyType = "statistical_outlier"
	AnomalyImpossibleGeometry AnomalyType = "impossible_geometry"
	AnomalyRatioViolation     AnomalyType = "ratio_violation"
	AnomalyMissingComponent   AnomalyType = "missing_component"
	AnomalyInconsistentPitch  AnomalyType = "inconsistent_pitch"
	AnomalyEdgeCrossing       AnomalyType = "edge_crossing"
)

// Severity grades an anomaly.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the aggregate over all anomaly severities.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Anomaly is one typed plausibility finding.
type Anomaly struct {
	Type     AnomalyType `json:"type"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Metric   string      `json:"metric,omitempty"`
	Value    float64     `json:"value,omitempty"`
}

// Baseline metric keys.
const (
	MetricTotalArea   = "totalAreaSqft"
	MetricRidgeLength = "ridgeLengthFt"
	MetricFacetCount  = "facetCount"
)

// minPlausibleRoofSqft is the hard floor below which a total area cannot be
// a roof at all.
const minPlausibleRoofSqft = 10.0

// sizableAreaSqft is the area above which a roof must have some eave
// length for the missing-component check.
const sizableAreaSqft = 500.0

// maxPitchDeviationDeg is the allowed spread of facet pitch angles around
// their mean before the roof is flagged as internally inconsistent.
const maxPitchDeviationDeg = 15.0

// DetectAnomalies runs the six independent plausibility checks. Every
// check is best-effort over whatever inputs exist; absence of data never
// produces an anomaly by itself.
func DetectAnomalies(fp Footprint, facets []Facet, features []LinearFeature, m Measurement, baselines map[string]BaselineStats) []Anomaly {
	var out []Anomaly
	out = append(out, statisticalOutliers(m, baselines)...)
	out = append(out, impossibleGeometry(m, features)...)
	out = append(out, ratioViolations(fp, m)...)
	out = append(out, missingComponents(facets, m)...)
	out = append(out, inconsistentPitch(facets)...)
	out = append(out, edgeCrossings(features)...)
	return out
}

func statisticalOutliers(m Measurement, baselines map[string]BaselineStats) []Anomaly {
	var out []Anomaly
	check := func(metric string, value float64) {
		bs, ok := baselines[metric]
		if !ok || bs.StdDev <= 0 {
			return
		}
		z := (value - bs.Mean) / bs.StdDev
		if math.Abs(z) <= 3 {
			return
		}
		sev := SeverityWarning
		if math.Abs(z) > 4 {
			sev = SeverityError
		}
		out = append(out, Anomaly{
			Type:     AnomalyStatisticalOutlier,
			Severity: sev,
			Message:  fmt.Sprintf("%s %.0f is %.1f standard deviations from baseline mean %.0f", metric, value, z, bs.Mean),
			Metric:   metric,
			Value:    value,
		})
	}
	check(MetricTotalArea, m.TotalAdjustedAreaSqft)
	check(MetricRidgeLength, m.LinearTotalsFt[FeatureRidge])
	return out
}

func impossibleGeometry(m Measurement, features []LinearFeature) []Anomaly {
	var out []Anomaly
	if m.TotalAdjustedAreaSqft < minPlausibleRoofSqft {
		out = append(out, Anomaly{
			Type:     AnomalyImpossibleGeometry,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("total area %.1f sq ft is below the minimum plausible roof (%.0f sq ft)", m.TotalAdjustedAreaSqft, minPlausibleRoofSqft),
			Metric:   MetricTotalArea,
			Value:    m.TotalAdjustedAreaSqft,
		})
	}
	for _, f := range features {
		if f.LengthFt < 0 {
			out = append(out, Anomaly{
				Type:     AnomalyImpossibleGeometry,
				Severity: SeverityError,
				Message:  fmt.Sprintf("linear feature %s has negative length %.1f ft", f.ID, f.LengthFt),
				Value:    f.LengthFt,
			})
		}
	}
	return out
}

func ratioViolations(fp Footprint, m Measurement) []Anomaly {
	var out []Anomaly
	if fp.PerimeterFt > 0 {
		ratio := fp.AreaSqft / fp.PerimeterFt
		if ratio < 0.5 || ratio > 50 {
			out = append(out, Anomaly{
				Type:     AnomalyRatioViolation,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("area/perimeter ratio %.2f outside plausible range [0.5, 50]", ratio),
				Metric:   "areaPerimeterRatio",
				Value:    ratio,
			})
		}
		ridgeRatio := m.LinearTotalsFt[FeatureRidge] / fp.PerimeterFt
		if ridgeRatio > 0.4 {
			out = append(out, Anomaly{
				Type:     AnomalyRatioViolation,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("ridge/perimeter ratio %.2f above 0.4", ridgeRatio),
				Metric:   "ridgePerimeterRatio",
				Value:    ridgeRatio,
			})
		}
	}
	return out
}

func missingComponents(facets []Facet, m Measurement) []Anomaly {
	var out []Anomaly
	if len(facets) > 2 && m.LinearTotalsFt[FeatureHip] == 0 && m.LinearTotalsFt[FeatureRake] == 0 {
		out = append(out, Anomaly{
			Type:     AnomalyMissingComponent,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d facets but no hip or rake lines; gable/hip detection likely failed", len(facets)),
		})
	}
	if m.TotalAdjustedAreaSqft >= sizableAreaSqft && m.LinearTotalsFt[FeatureEave] == 0 {
		out = append(out, Anomaly{
			Type:     AnomalyMissingComponent,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%.0f sq ft of roof with zero eave length", m.TotalAdjustedAreaSqft),
		})
	}
	return out
}

func inconsistentPitch(facets []Facet) []Anomaly {
	var angles []float64
	for _, f := range facets {
		if _, err := ParsePitch(f.Pitch); err == nil {
			angles = append(angles, PitchAngleDegrees(f.Pitch))
		}
	}
	if len(angles) < 2 {
		return nil
	}
	mean := 0.0
	for _, a := range angles {
		mean += a
	}
	mean /= float64(len(angles))

	maxDev := 0.0
	for _, a := range angles {
		if d := math.Abs(a - mean); d > maxDev {
			maxDev = d
		}
	}
	if maxDev <= maxPitchDeviationDeg {
		return nil
	}
	return []Anomaly{{
		Type:     AnomalyInconsistentPitch,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("facet pitch deviates %.1f degrees from the mean (limit %.0f)", maxDev, maxPitchDeviationDeg),
		Metric:   "pitchDeviationDeg",
		Value:    maxDev,
	}}
}

// sharedEndpointTolFt treats segments meeting at a common vertex as joined
// rather than crossing.
const sharedEndpointTolFt = 0.1

func edgeCrossings(features []LinearFeature) []Anomaly {
	var out []Anomaly
	for i := 0; i < len(features); i++ {
		for j := i + 1; j < len(features); j++ {
			if shareEndpoint(features[i], features[j]) {
				continue
			}
			if SegmentsIntersect(features[i].Start, features[i].End, features[j].Start, features[j].End) {
				out = append(out, Anomaly{
					Type:     AnomalyEdgeCrossing,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("linear features %s and %s cross", features[i].ID, features[j].ID),
				})
			}
		}
	}
	return out
}

func shareEndpoint(a, b LinearFeature) bool {
	for _, p := range []GeoPoint{a.Start, a.End} {
		for _, q := range []GeoPoint{b.Start, b.End} {
			if GeoDistanceFt(p, q) <= sharedEndpointTolFt {
				return true
			}
		}
	}
	return false
}

// SegmentsIntersect reports whether segments ab and cd intersect, using the
// standard orientation test with collinear on-segment handling. Projected
// to local meters so degree scaling cannot skew the orientations.
func SegmentsIntersect(a, b, c, d GeoPoint) bool {
	origin := a
	pa := localMeters(a, origin)
	pb := localMeters(b, origin)
	pc := localMeters(c, origin)
	pd := localMeters(d, origin)

	o1 := orientation(pa, pb, pc)
	o2 := orientation(pa, pb, pd)
	o3 := orientation(pc, pd, pa)
	o4 := orientation(pc, pd, pb)

	if o1 != o2 && o3 != o4 {
		return true
	}
	// Collinear overlap cases.
	if o1 == 0 && onSegment(pa, pb, pc) {
		return true
	}
	if o2 == 0 && onSegment(pa, pb, pd) {
		return true
	}
	if o3 == 0 && onSegment(pc, pd, pa) {
		return true
	}
	if o4 == 0 && onSegment(pc, pd, pb) {
		return true
	}
	return false
}

// orientation returns -1, 0, or 1 for clockwise, collinear, or counter
// clockwise ordering of p, q, r.
func orientation(p, q, r [2]float64) int {
	v := (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
	const eps = 1e-9
	if v > eps {
		return 1
	}
	if v < -eps {
		return -1
	}
	return 0
}

// onSegment assumes p, q, r are collinear and reports whether r lies on pq.
func onSegment(p, q, r [2]float64) bool {
	return r[0] >= math.Min(p[0], q[0])-1e-9 && r[0] <= math.Max(p[0], q[0])+1e-9 &&
		r[1] >= math.Min(p[1], q[1])-1e-9 && r[1] <= math.Max(p[1], q[1])+1e-9
}

// AggregateRisk folds anomaly severities into one risk level: any critical
// makes the run critical; more than one error makes it high; any error or
// more than two warnings makes it medium.
func AggregateRisk(anomalies []Anomaly) RiskLevel {
	criticals, errors, warnings := 0, 0, 0
	for _, a := range anomalies {
		switch a.Severity {
		case SeverityCritical:
			criticals++
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	switch {
	case criticals > 0:
		return RiskCritical
	case errors > 1:
		return RiskHigh
	case errors > 0 || warnings > 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Recommend builds the advisory strings for a run. Risk and score each
// contribute at most one recommendation, so the two axes never repeat each
// other.
func Recommend(risk RiskLevel, score float64) []string {
	var recs []string
	switch risk {
	case RiskCritical:
		recs = append(recs, "route to expert review")
	case RiskHigh:
		recs = append(recs, "re-run with manual verification")
	case RiskMedium:
		recs = append(recs, "spot-check flagged anomalies")
	}
	switch {
	case score < 60:
		recs = append(recs, "manual measurement recommended")
	case score < DefaultReviewThreshold:
		recs = append(recs, "verify against source imagery before use")
	}
	return recs
}

// DefaultBaselines are the static residential reference distributions used
// when no tenant-specific history has been loaded.
func DefaultBaselines() map[string]BaselineStats {
	return map[string]BaselineStats{
		MetricTotalArea:   {Mean: 2400, StdDev: 1100},
		MetricRidgeLength: {Mean: 55, StdDev: 30},
		MetricFacetCount:  {Mean: 6, StdDev: 4},
	}
}
