package roof

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default simplifier parameters applied to resolved footprints.
const (
	defaultSimplifyToleranceFt = 0.5
	defaultAngleThresholdDeg   = 10.0
)

// Engine runs the measurement pipeline. It is a pure, synchronous
// computation over already-fetched inputs and is safe to invoke
// concurrently for independent requests: the only shared state is the
// read-only baseline snapshot and the pattern registry, both initialized
// once.
type Engine struct {
	Baselines  *BaselineStore
	Classifier EdgeClassifier
	Registry   []EdgeCasePattern

	OverhangFt          float64
	ReviewThreshold     float64
	SimplifyToleranceFt float64
	SnapAngles          bool
	AngleThresholdDeg   float64
}

// NewEngine creates an engine with default parameters and baselines.
func NewEngine() *Engine {
	return &Engine{
		Baselines:           NewBaselineStore(nil),
		Classifier:          AzimuthClassifier{},
		Registry:            EdgeCaseRegistry(),
		OverhangFt:          DefaultOverhangFt,
		ReviewThreshold:     DefaultReviewThreshold,
		SimplifyToleranceFt: defaultSimplifyToleranceFt,
		SnapAngles:          true,
		AngleThresholdDeg:   defaultAngleThresholdDeg,
	}
}

// Measure converts one request's source results into a validated
// MeasurementResult. It hard-fails only on invalid input or when no source
// offers a usable footprint; all upstream degradation is absorbed into
// confidence scoring and anomaly flags.
func (e *Engine) Measure(in *MeasurementInput) (*MeasurementResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	manual := AdaptManualOverride(in.ManualOverride)
	insight := AdaptBuildingInsight(in.BuildingInsight)
	vision := AdaptVisionModel(in.VisionModel, in.ImageFrame)

	var segments []RoofSegment
	if in.BuildingInsight != nil {
		segments = in.BuildingInsight.Segments
	}

	fp, err := ResolveFootprint(manual, insight, vision, segments, e.OverhangFt)
	if err != nil {
		return nil, fmt.Errorf("resolving footprint: %w", err)
	}

	// Normalize the footprint outline before any downstream geometric work.
	// Manual polygons are the operator's exact intent and are left alone.
	if fp.Source != SourceManualOverride {
		simplified := Simplify(fp.Polygon, e.SimplifyToleranceFt, e.SnapAngles, e.AngleThresholdDeg)
		fp.Polygon = simplified
		fp.AreaSqft = PolygonAreaSqft(simplified)
		fp.PerimeterFt = PolygonPerimeterFt(simplified)
		fp.VertexCount = len(simplified)
	}

	// Vision facets are the primary plane detection; insight segments fill
	// in when the detector produced nothing.
	facets := vision.Facets
	if len(facets) == 0 {
		facets = insight.Facets
	}

	features := ExtractFeatures(vision, in.BuildingInsight, e.Classifier)

	m := Calculate(fp, facets, features)

	var insightAreaSqft float64
	hasInsightRef := false
	if insight.FootprintCandidate != nil {
		ref := in.BuildingInsight.BoundingBox.Corners()
		// Automated footprints carry the eave-overhang expansion, so the
		// reference gets the same expansion; the variance penalty then
		// measures source disagreement, not the overhang itself.
		if fp.Source != SourceManualOverride {
			ref = ExpandPolygon(ref, e.OverhangFt)
		}
		insightAreaSqft = PolygonAreaSqft(ref)
		hasInsightRef = insightAreaSqft > 0
	}

	facetSum := 0.0
	for _, a := range m.FacetAdjustedSqft {
		facetSum += a
	}

	report := ScoreConfidence(ScoreInputs{
		DetectorConfidence:   vision.Quality,
		InsightQuality:       insight.Quality,
		HasInsightReference:  hasInsightRef,
		InsightAreaSqft:      insightAreaSqft,
		ComputedAreaSqft:     fp.AreaSqft,
		Complexity:           m.Complexity,
		FacetAdjustedSumSqft: facetSum,
		ReportedTotalSqft:    m.TotalAdjustedAreaSqft,
		ReviewThreshold:      e.ReviewThreshold,
	})

	anomalies := DetectAnomalies(fp, facets, features, m, e.Baselines.Snapshot())
	risk := AggregateRisk(anomalies)

	summary := BuildGeometrySummary(fp, facets, features, segments, in.ImageFeatureTags)
	edgeCases := ClassifyEdgeCases(summary, e.Registry)

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	return &MeasurementResult{
		JobID:                 jobID,
		Footprint:             fp,
		Facets:                facets,
		LinearFeatures:        features,
		TotalAdjustedAreaSqft: m.TotalAdjustedAreaSqft,
		TotalSquares:          m.TotalSquares,
		PredominantPitch:      m.PredominantPitch,
		WasteFactor:           m.WasteFactor,
		LinearTotalsFt:        m.LinearTotalsFt,
		Materials:             m.Materials,
		QualityMetrics: QualityMetrics{
			FacetClosure:   vision.ClosedFacetFraction,
			EdgeContinuity: EdgeContinuityScore(features),
		},
		OverallConfidence:    report.Score,
		ConfidenceRating:     report.Rating,
		ManualReviewRequired: report.ManualReviewRequired,
		Anomalies:            anomalies,
		RiskLevel:            risk,
		Recommendations:      Recommend(risk, report.Score),
		EdgeCases:            edgeCases,
		MeasuredAt:           time.Now().UTC(),
	}, nil
}
