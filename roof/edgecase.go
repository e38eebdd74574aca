package roof

import (
	"math"
	"strings"
)

// Recommended downstream pipelines.
const (
	PipelineStandard    = "standard"
	PipelineSpecialized = "specialized"
	PipelineManual      = "manual"
)

// edgeCaseDetectThreshold is the normalized match score at which a
// topology counts as detected.
const edgeCaseDetectThreshold = 50.0

// GeometrySummary is the compact description of a run's geometry that the
// edge-case patterns match against. ImageKeywords are caller-supplied tags
// from the imagery pipeline and may be empty.
type GeometrySummary struct {
	FacetCount              int
	TriangularFacetFraction float64
	MeanFacetAreaSqft       float64
	MinFacetAreaSqft        float64
	PitchStdDevDeg          float64
	MaxPitchAngleDeg        float64
	DistinctPitchCount      int
	FootprintVertexCount    int
	// FootprintCircularity is 4*pi*area/perimeter^2: 1.0 for a circle,
	// ~0.785 for a square, lower for elongated or jagged outlines.
	FootprintCircularity float64
	HeightSpreadM        float64
	RidgeFt              float64
	ValleyFt             float64
	ImageKeywords        []string
}

// GeometryPredicate is one named geometry test in a pattern.
type GeometryPredicate struct {
	Name string
	Test func(GeometrySummary) bool
}

// EdgeCasePattern describes one known atypical roof topology.
type EdgeCasePattern struct {
	Name       string
	Indicators []string
	Predicates []GeometryPredicate
	Handling   string
}

// EdgeCaseDetection is one detected topology with its normalized match
// confidence.
type EdgeCaseDetection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0..100
	Handling   string  `json:"handling"`
}

// EdgeCaseReport is the classifier's advisory output. It is evaluated
// independently of the numeric confidence score and may contradict it.
type EdgeCaseReport struct {
	Detected             []EdgeCaseDetection `json:"detected"`
	RecommendedPipeline  string              `json:"recommendedPipeline"`
	ConfidenceAdjustment float64             `json:"confidenceAdjustment"`
}

// BuildGeometrySummary condenses resolved geometry into the predicate
// inputs. Segments may be nil when no building-insight data exists.
func BuildGeometrySummary(fp Footprint, facets []Facet, features []LinearFeature, segments []RoofSegment, imageKeywords []string) GeometrySummary {
	s := GeometrySummary{
		FacetCount:           len(facets),
		FootprintVertexCount: fp.VertexCount,
		ImageKeywords:        imageKeywords,
	}

	if fp.PerimeterFt > 0 {
		s.FootprintCircularity = 4 * math.Pi * fp.AreaSqft / (fp.PerimeterFt * fp.PerimeterFt)
	}

	triangular := 0
	var angles []float64
	pitches := make(map[string]bool)
	s.MinFacetAreaSqft = math.MaxFloat64
	for _, f := range facets {
		if len(f.Polygon) == 3 {
			triangular++
		}
		s.MeanFacetAreaSqft += f.PlanAreaSqft
		if f.PlanAreaSqft < s.MinFacetAreaSqft {
			s.MinFacetAreaSqft = f.PlanAreaSqft
		}
		if _, err := ParsePitch(f.Pitch); err == nil {
			pitches[f.Pitch] = true
			a := PitchAngleDegrees(f.Pitch)
			angles = append(angles, a)
			if a > s.MaxPitchAngleDeg {
				s.MaxPitchAngleDeg = a
			}
		}
	}
	if len(facets) > 0 {
		s.TriangularFacetFraction = float64(triangular) / float64(len(facets))
		s.MeanFacetAreaSqft /= float64(len(facets))
	} else {
		s.MinFacetAreaSqft = 0
	}
	s.DistinctPitchCount = len(pitches)
	s.PitchStdDevDeg = stdDev(angles)

	minH, maxH := math.MaxFloat64, -math.MaxFloat64
	for _, seg := range segments {
		if seg.CenterHeightM <= 0 {
			continue
		}
		minH = math.Min(minH, seg.CenterHeightM)
		maxH = math.Max(maxH, seg.CenterHeightM)
	}
	if maxH > minH {
		s.HeightSpreadM = maxH - minH
	}

	totals := LinearTotals(features)
	s.RidgeFt = totals[FeatureRidge]
	s.ValleyFt = totals[FeatureValley]
	return s
}

func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(vals)))
}

// EdgeCaseRegistry returns the known atypical topologies. The registry is
// built once at startup and treated as read-only afterward.
func EdgeCaseRegistry() []EdgeCasePattern {
	return []EdgeCasePattern{
		{
			Name:       "gambrel",
			Indicators: []string{"barn", "gambrel", "dual_slope"},
			Predicates: []GeometryPredicate{
				{"two distinct pitches", func(s GeometrySummary) bool { return s.DistinctPitchCount == 2 }},
				{"pitch spread over 10 degrees", func(s GeometrySummary) bool { return s.PitchStdDevDeg > 10 }},
				{"4 to 8 facets", func(s GeometrySummary) bool { return s.FacetCount >= 4 && s.FacetCount <= 8 }},
			},
			Handling: "measure upper and lower slopes separately; standard pitch table understates the lower slope",
		},
		{
			Name:       "mansard",
			Indicators: []string{"mansard", "french_roof"},
			Predicates: []GeometryPredicate{
				{"very steep perimeter pitch", func(s GeometrySummary) bool { return s.MaxPitchAngleDeg >= 60 }},
				{"perimeter facet ring", func(s GeometrySummary) bool { return s.FacetCount >= 5 }},
			},
			Handling: "near-vertical lower facets behave as wall surface; confirm whether they are in scope",
		},
		{
			Name:       "geodesic_dome",
			Indicators: []string{"dome", "geodesic", "spherical"},
			Predicates: []GeometryPredicate{
				{"many facets", func(s GeometrySummary) bool { return s.FacetCount >= 15 }},
				{"mostly triangular facets", func(s GeometrySummary) bool { return s.TriangularFacetFraction >= 0.5 }},
				{"circular footprint", func(s GeometrySummary) bool {
					return s.FootprintVertexCount >= 8 && s.FootprintCircularity >= 0.6
				}},
			},
			Handling: "planar facet model breaks down; requires specialized dome measurement",
		},
		{
			Name:       "butterfly",
			Indicators: []string{"butterfly", "inverted", "v_shape"},
			Predicates: []GeometryPredicate{
				{"valley dominates ridge", func(s GeometrySummary) bool { return s.ValleyFt > 0 && s.ValleyFt > s.RidgeFt }},
				{"few facets", func(s GeometrySummary) bool { return s.FacetCount >= 2 && s.FacetCount <= 4 }},
			},
			Handling: "central valley carries all drainage; valley metal quantities dominate",
		},
		{
			Name:       "multi_level_complex",
			Indicators: []string{"multi_level", "split_level", "addition"},
			Predicates: []GeometryPredicate{
				{"height spread over 2.5m", func(s GeometrySummary) bool { return s.HeightSpreadM > 2.5 }},
				{"many facets", func(s GeometrySummary) bool { return s.FacetCount >= 10 }},
				{"mixed pitches", func(s GeometrySummary) bool { return s.PitchStdDevDeg > 8 }},
			},
			Handling: "levels shadow each other in imagery; verify lower-roof facets were not occluded",
		},
		{
			Name:       "turret",
			Indicators: []string{"turret", "tower", "conical"},
			Predicates: []GeometryPredicate{
				{"small conical facet cluster", func(s GeometrySummary) bool {
					return s.FacetCount >= 8 && s.TriangularFacetFraction >= 0.3
				}},
				{"tiny facet present", func(s GeometrySummary) bool {
					return s.FacetCount > 0 && s.MinFacetAreaSqft < 60
				}},
			},
			Handling: "conical sections need arc-length material calculation, not planar",
		},
		{
			Name:       "sawtooth",
			Indicators: []string{"sawtooth", "industrial"},
			Predicates: []GeometryPredicate{
				{"repeated parallel rows", func(s GeometrySummary) bool { return s.FacetCount >= 6 && s.DistinctPitchCount <= 2 }},
				{"ridge-heavy", func(s GeometrySummary) bool { return s.RidgeFt > 0 && s.RidgeFt >= s.ValleyFt*2 }},
			},
			Handling: "vertical glazing bands between rows are not roof surface; exclude them",
		},
		{
			Name:       "clerestory",
			Indicators: []string{"clerestory", "window_band", "raised_band"},
			Predicates: []GeometryPredicate{
				{"modest height step", func(s GeometrySummary) bool { return s.HeightSpreadM > 1.5 && s.HeightSpreadM <= 3.5 }},
				{"simple facet layout", func(s GeometrySummary) bool { return s.FacetCount >= 2 && s.FacetCount <= 6 }},
			},
			Handling: "offset planes imply a hidden vertical band; eave totals from the outer box overcount",
		},
	}
}

// ClassifyEdgeCases matches the summary against every registered pattern.
// Match score is 20 points per matched indicator and 30 per passed
// predicate, normalized to 0-100 by the pattern's total possible points.
func ClassifyEdgeCases(s GeometrySummary, registry []EdgeCasePattern) *EdgeCaseReport {
	report := &EdgeCaseReport{RecommendedPipeline: PipelineStandard}

	keywords := make(map[string]bool, len(s.ImageKeywords))
	for _, k := range s.ImageKeywords {
		keywords[strings.ToLower(strings.TrimSpace(k))] = true
	}

	maxConf := 0.0
	for _, pattern := range registry {
		raw := 0.0
		possible := 20.0*float64(len(pattern.Indicators)) + 30.0*float64(len(pattern.Predicates))
		if possible == 0 {
			continue
		}
		for _, ind := range pattern.Indicators {
			if keywords[ind] {
				raw += 20
			}
		}
		for _, pred := range pattern.Predicates {
			if pred.Test(s) {
				raw += 30
			}
		}
		conf := raw / possible * 100
		if conf < edgeCaseDetectThreshold {
			continue
		}
		report.Detected = append(report.Detected, EdgeCaseDetection{
			Name:       pattern.Name,
			Confidence: conf,
			Handling:   pattern.Handling,
		})
		if conf > maxConf {
			maxConf = conf
		}
	}

	switch {
	case len(report.Detected) >= 2:
		// Multiple simultaneous topologies: no specialized pipeline fits.
		report.RecommendedPipeline = PipelineManual
		report.ConfidenceAdjustment = -30
	case maxConf >= 60:
		report.RecommendedPipeline = PipelineSpecialized
		// Scale -10 at confidence 60 to -20 at confidence 100.
		report.ConfidenceAdjustment = -10 - 10*(maxConf-60)/40
	}
	return report
}
