package roof

import "math"

// Rating bands for the overall confidence score.
const (
	RatingExcellent = "EXCELLENT"
	RatingGood      = "GOOD"
	RatingFair      = "FAIR"
	RatingPoor      = "POOR"
)

// DefaultReviewThreshold is the score below which a measurement is routed
// to a human reviewer.
const DefaultReviewThreshold = 75.0

// plausible length window for the edge-continuity QA score.
const (
	minPlausibleEdgeFt = 3.0
	maxPlausibleEdgeFt = 100.0
)

// Penalty is one independently computed confidence deduction, kept for
// audit alongside the final score.
type Penalty struct {
	Reason string  `json:"reason"`
	Points float64 `json:"points"`
}

// ConfidenceReport is the QA engine's output.
type ConfidenceReport struct {
	Score                float64   `json:"score"` // 0..100
	Rating               string    `json:"rating"`
	ManualReviewRequired bool      `json:"manualReviewRequired"`
	Penalties            []Penalty `json:"penalties"`
}

// ScoreInputs carries everything the confidence engine needs from the
// pipeline and the raw source metadata.
type ScoreInputs struct {
	// DetectorConfidence is the vision model's self-reported tier.
	DetectorConfidence ImageryQuality
	// InsightQuality is the building-insight provider's imagery tier.
	InsightQuality ImageryQuality
	// HasInsightReference is true when an independent building-insight
	// footprint exists to check the computed area against.
	HasInsightReference bool
	// InsightAreaSqft is the independent reference footprint's flat area.
	InsightAreaSqft float64
	// ComputedAreaSqft is the resolved footprint's flat area.
	ComputedAreaSqft float64
	Complexity       Complexity
	// FacetAdjustedSumSqft and ReportedTotalSqft feed the internal
	// consistency check. Both zero skips the check.
	FacetAdjustedSumSqft float64
	ReportedTotalSqft    float64
	// ReviewThreshold overrides DefaultReviewThreshold when positive.
	ReviewThreshold float64
}

// ScoreConfidence starts at 100 and subtracts independently computed,
// individually capped penalties, flooring at 0.
func ScoreConfidence(in ScoreInputs) ConfidenceReport {
	var penalties []Penalty
	add := func(reason string, points float64) {
		if points > 0 {
			penalties = append(penalties, Penalty{Reason: reason, Points: points})
		}
	}

	switch in.DetectorConfidence.Normalized() {
	case QualityLow:
		add("detector confidence low", 25)
	case QualityMedium:
		add("detector confidence medium", 12)
	}

	if in.InsightQuality.Normalized() == QualityLow {
		add("source imagery quality below threshold", 15)
	}

	if in.HasInsightReference && in.InsightAreaSqft > 0 {
		variance := math.Abs(in.ComputedAreaSqft-in.InsightAreaSqft) / in.InsightAreaSqft
		switch {
		case variance > 0.25:
			add("cross-source area variance above 25%", 30)
		case variance > 0.15:
			add("cross-source area variance above 15%", 20)
		case variance > 0.10:
			add("cross-source area variance above 10%", 10)
		}
	} else {
		add("no independent source to verify area", 15)
	}

	switch in.Complexity {
	case ComplexityVeryComplex:
		add("very complex geometry", 15)
	case ComplexityComplex:
		add("complex geometry", 10)
	case ComplexityModerate:
		add("moderately complex geometry", 5)
	}

	if in.FacetAdjustedSumSqft > 0 && in.ReportedTotalSqft > 0 {
		relErr := math.Abs(in.FacetAdjustedSumSqft-in.ReportedTotalSqft) / in.ReportedTotalSqft
		if relErr > 0.05 {
			add("facet areas inconsistent with reported total", 10)
		}
	}

	score := 100.0
	for _, p := range penalties {
		score -= p.Points
	}
	if score < 0 {
		score = 0
	}

	threshold := in.ReviewThreshold
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}

	return ConfidenceReport{
		Score:                score,
		Rating:               ratingFor(score),
		ManualReviewRequired: score < threshold,
		Penalties:            penalties,
	}
}

func ratingFor(score float64) string {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 75:
		return RatingGood
	case score >= 60:
		return RatingFair
	default:
		return RatingPoor
	}
}

// EdgeContinuityScore is the fraction of linear features with a plausible
// length. Empty input scores 1.0: nothing to distrust.
func EdgeContinuityScore(features []LinearFeature) float64 {
	if len(features) == 0 {
		return 1.0
	}
	ok := 0
	for _, f := range features {
		if f.LengthFt >= minPlausibleEdgeFt && f.LengthFt <= maxPlausibleEdgeFt {
			ok++
		}
	}
	return float64(ok) / float64(len(features))
}
