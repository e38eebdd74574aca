package roof

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SquareSqft is one roofing square.
const SquareSqft = 100.0

// Complexity buckets drive both the waste factor and one of the confidence
// penalties, so the thresholds live in one place.
type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

// ParsePitch parses a rise/run pitch string such as "6/12". Run must be
// positive; rise may be fractional ("4.5/12").
func ParsePitch(s string) (riseOverRun float64, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("pitch %q: want rise/run", s)
	}
	rise, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("pitch %q: bad rise: %w", s, err)
	}
	run, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("pitch %q: bad run: %w", s, err)
	}
	if run <= 0 || rise < 0 {
		return 0, fmt.Errorf("pitch %q: out of range", s)
	}
	return rise / run, nil
}

// PitchMultiplier returns the secant-of-pitch-angle factor converting plan
// area to sloped surface area: sqrt(1 + (rise/run)^2). Empty or unparseable
// pitch yields 1.0 (flat).
func PitchMultiplier(pitch string) float64 {
	r, err := ParsePitch(pitch)
	if err != nil {
		return 1.0
	}
	return math.Sqrt(1 + r*r)
}

// PitchAngleDegrees returns atan(rise/run) in degrees, or 0 for an
// unparseable pitch.
func PitchAngleDegrees(pitch string) float64 {
	r, err := ParsePitch(pitch)
	if err != nil {
		return 0
	}
	return math.Atan(r) * 180 / math.Pi
}

// PitchFromDegrees converts a plane pitch angle to the nearest conventional
// rise-over-12 string.
func PitchFromDegrees(deg float64) string {
	if deg <= 0 {
		return "0/12"
	}
	rise := math.Round(math.Tan(deg*math.Pi/180) * 12)
	if rise > 24 {
		rise = 24
	}
	return fmt.Sprintf("%d/12", int(rise))
}

// PredominantPitch returns the modal pitch string across facets, ties
// broken by first occurrence. Facets without a usable pitch are skipped;
// the empty string is returned when no facet carries one.
func PredominantPitch(facets []Facet) string {
	counts := make(map[string]int)
	var order []string
	for _, f := range facets {
		if _, err := ParsePitch(f.Pitch); err != nil {
			continue
		}
		if counts[f.Pitch] == 0 {
			order = append(order, f.Pitch)
		}
		counts[f.Pitch]++
	}
	best := ""
	bestCount := 0
	for _, p := range order {
		if counts[p] > bestCount {
			best = p
			bestCount = counts[p]
		}
	}
	return best
}

// ClassifyComplexity buckets geometric complexity by facet count and total
// hip+valley length.
func ClassifyComplexity(facetCount int, hipValleyFt float64) Complexity {
	switch {
	case facetCount >= 15 || hipValleyFt > 200:
		return ComplexityVeryComplex
	case facetCount >= 10 || hipValleyFt > 120:
		return ComplexityComplex
	case facetCount >= 6 || hipValleyFt > 60:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

// WasteFactor returns the extra-material fraction for a complexity bucket.
func WasteFactor(c Complexity) float64 {
	switch c {
	case ComplexityVeryComplex:
		return 0.20
	case ComplexityComplex:
		return 0.15
	case ComplexityModerate:
		return 0.12
	default:
		return 0.10
	}
}

// LinearTotals sums feature lengths by type.
func LinearTotals(features []LinearFeature) map[FeatureType]float64 {
	totals := map[FeatureType]float64{
		FeatureRidge:  0,
		FeatureHip:    0,
		FeatureValley: 0,
		FeatureEave:   0,
		FeatureRake:   0,
	}
	for _, f := range features {
		totals[f.Type] += f.LengthFt
	}
	return totals
}

// Measurement is the calculator's output, folded into the final
// MeasurementResult by the engine.
type Measurement struct {
	TotalAdjustedAreaSqft float64
	TotalSquares          float64
	PredominantPitch      string
	Complexity            Complexity
	WasteFactor           float64
	LinearTotalsFt        map[FeatureType]float64
	Materials             MaterialQuantities
	// FacetAdjustedSqft holds each facet's individually adjusted area, in
	// facet order, for the internal-consistency QA check.
	FacetAdjustedSqft []float64
}

// Calculate converts resolved geometry into pitch-adjusted area and
// material quantities. When no facets are present the footprint's flat area
// times the predominant-pitch multiplier is used as the fallback.
func Calculate(fp Footprint, facets []Facet, features []LinearFeature) Measurement {
	m := Measurement{
		PredominantPitch: PredominantPitch(facets),
		LinearTotalsFt:   LinearTotals(features),
	}

	if len(facets) > 0 {
		for _, f := range facets {
			adj := f.PlanAreaSqft * PitchMultiplier(f.Pitch)
			m.FacetAdjustedSqft = append(m.FacetAdjustedSqft, adj)
			m.TotalAdjustedAreaSqft += adj
		}
	} else {
		m.TotalAdjustedAreaSqft = fp.AreaSqft * PitchMultiplier(m.PredominantPitch)
	}
	m.TotalSquares = m.TotalAdjustedAreaSqft / SquareSqft

	hipValley := m.LinearTotalsFt[FeatureHip] + m.LinearTotalsFt[FeatureValley]
	m.Complexity = ClassifyComplexity(len(facets), hipValley)
	m.WasteFactor = WasteFactor(m.Complexity)

	m.Materials = materialQuantities(m)
	return m
}

// materialQuantities derives discrete material counts. Squares are padded
// by the waste factor before conversion; every quantity rounds up because
// materials are sold in whole units.
func materialQuantities(m Measurement) MaterialQuantities {
	squares := m.TotalSquares * (1 + m.WasteFactor)
	eave := m.LinearTotalsFt[FeatureEave]
	rake := m.LinearTotalsFt[FeatureRake]
	ridge := m.LinearTotalsFt[FeatureRidge]
	hip := m.LinearTotalsFt[FeatureHip]
	valley := m.LinearTotalsFt[FeatureValley]

	return MaterialQuantities{
		// Synthetic underlayment covers 4 squares per roll.
		UnderlaymentRolls: ceilInt(squares / 4),
		// Ice & water shield runs all eaves and valleys.
		IceAndWaterShieldFt: ceilInt(eave + valley),
		// Drip edge in 10 ft sticks along eaves and rakes.
		DripEdgeSticks:   ceilInt((eave + rake) / 10),
		StarterStripFt:   ceilInt(eave),
		HipAndRidgeCapFt: ceilInt(hip + ridge),
		ValleyMetalFt:    ceilInt(valley),
	}
}

func ceilInt(f float64) int {
	if f <= 0 {
		return 0
	}
	return int(math.Ceil(f))
}
