package roof

import (
	"fmt"
	"math"
	"testing"
)

func TestParsePitch(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"6/12", 0.5, false},
		{"12/12", 1.0, false},
		{"0/12", 0.0, false},
		{"4.5/12", 0.375, false},
		{" 8 / 12 ", 8.0 / 12.0, false},
		{"", 0, true},
		{"steep", 0, true},
		{"6/0", 0, true},
		{"-2/12", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePitch(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePitch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParsePitch(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestPitchMultiplier(t *testing.T) {
	tests := []struct {
		pitch string
		want  float64
	}{
		{"0/12", 1.0},
		{"4/12", 1.0541},
		{"6/12", 1.1180},
		{"9/12", 1.25},
		{"12/12", 1.4142},
		{"24/12", 2.2361},
		{"garbage", 1.0}, // unparseable pitch falls back to plan area
	}
	for _, tt := range tests {
		got := PitchMultiplier(tt.pitch)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("PitchMultiplier(%q) = %f, want %f", tt.pitch, got, tt.want)
		}
	}
}

func TestPitchMultiplierMonotonic(t *testing.T) {
	prev := 0.0
	for rise := 0; rise <= 24; rise++ {
		m := PitchMultiplier(fmt.Sprintf("%d/12", rise))
		if m <= prev {
			t.Fatalf("multiplier not strictly increasing at %d/12: %f <= %f", rise, m, prev)
		}
		prev = m
	}
}

func TestPitchFromDegrees(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "0/12"},
		{-5, "0/12"},
		{26.565, "6/12"}, // atan(0.5)
		{45, "12/12"},
		{80, "24/12"}, // capped
	}
	for _, tt := range tests {
		if got := PitchFromDegrees(tt.deg); got != tt.want {
			t.Errorf("PitchFromDegrees(%f) = %q, want %q", tt.deg, got, tt.want)
		}
	}
}

func TestPitchAngleDegrees(t *testing.T) {
	if got := PitchAngleDegrees("12/12"); math.Abs(got-45) > 0.01 {
		t.Errorf("PitchAngleDegrees(12/12) = %f, want 45", got)
	}
	if got := PitchAngleDegrees("bad"); got != 0 {
		t.Errorf("PitchAngleDegrees(bad) = %f, want 0", got)
	}
}

func TestPredominantPitch(t *testing.T) {
	tests := []struct {
		name   string
		facets []Facet
		want   string
	}{
		{
			"modal pitch wins",
			[]Facet{{Pitch: "6/12"}, {Pitch: "4/12"}, {Pitch: "6/12"}},
			"6/12",
		},
		{
			"tie resolved by first occurrence",
			[]Facet{{Pitch: "8/12"}, {Pitch: "4/12"}, {Pitch: "4/12"}, {Pitch: "8/12"}},
			"8/12",
		},
		{
			"unparseable pitches skipped",
			[]Facet{{Pitch: "???"}, {Pitch: ""}, {Pitch: "5/12"}},
			"5/12",
		},
		{
			"no parseable pitch",
			[]Facet{{Pitch: ""}, {Pitch: "flatish"}},
			"",
		},
		{"no facets", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PredominantPitch(tt.facets); got != tt.want {
				t.Errorf("PredominantPitch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		facets      int
		hipValleyFt float64
		want        Complexity
	}{
		{2, 0, ComplexitySimple},
		{5, 59, ComplexitySimple},
		{6, 0, ComplexityModerate},
		{3, 61, ComplexityModerate},
		{10, 0, ComplexityComplex},
		{4, 121, ComplexityComplex},
		{15, 0, ComplexityVeryComplex},
		{4, 201, ComplexityVeryComplex},
	}
	for _, tt := range tests {
		if got := ClassifyComplexity(tt.facets, tt.hipValleyFt); got != tt.want {
			t.Errorf("ClassifyComplexity(%d, %f) = %v, want %v", tt.facets, tt.hipValleyFt, got, tt.want)
		}
	}
}

func TestWasteFactor(t *testing.T) {
	tests := []struct {
		c    Complexity
		want float64
	}{
		{ComplexitySimple, 0.10},
		{ComplexityModerate, 0.12},
		{ComplexityComplex, 0.15},
		{ComplexityVeryComplex, 0.20},
	}
	for _, tt := range tests {
		if got := WasteFactor(tt.c); got != tt.want {
			t.Errorf("WasteFactor(%v) = %f, want %f", tt.c, got, tt.want)
		}
	}
}

func TestLinearTotals(t *testing.T) {
	features := []LinearFeature{
		{Type: FeatureRidge, LengthFt: 40},
		{Type: FeatureRidge, LengthFt: 12},
		{Type: FeatureEave, LengthFt: 80},
		{Type: FeatureValley, LengthFt: 9},
	}
	totals := LinearTotals(features)
	if totals[FeatureRidge] != 52 {
		t.Errorf("ridge total = %f, want 52", totals[FeatureRidge])
	}
	if totals[FeatureEave] != 80 {
		t.Errorf("eave total = %f, want 80", totals[FeatureEave])
	}
	if totals[FeatureHip] != 0 {
		t.Errorf("absent feature type should total 0, got %f", totals[FeatureHip])
	}
}

// A 40x25 single-facet gable at 6/12: plan 1000 sqft, adjusted ~1118 sqft.
func TestCalculateSingleFacet(t *testing.T) {
	fp := Footprint{
		Polygon:     rectanglePolygon(40, 25),
		AreaSqft:    1000,
		PerimeterFt: 130,
		VertexCount: 4,
		Source:      SourceVisionModel,
		Confidence:  0.8,
	}
	facets := []Facet{{ID: "facet-1", PlanAreaSqft: 1000, Pitch: "6/12"}}

	m := Calculate(fp, facets, nil)

	if math.Abs(m.TotalAdjustedAreaSqft-1118.0) > 1 {
		t.Errorf("adjusted area = %f, want ~1118", m.TotalAdjustedAreaSqft)
	}
	if math.Abs(m.TotalSquares-11.18) > 0.01 {
		t.Errorf("squares = %f, want ~11.18", m.TotalSquares)
	}
	if m.PredominantPitch != "6/12" {
		t.Errorf("predominant pitch = %q, want 6/12", m.PredominantPitch)
	}
	if m.Complexity != ComplexitySimple || m.WasteFactor != 0.10 {
		t.Errorf("complexity/waste = %v/%f, want simple/0.10", m.Complexity, m.WasteFactor)
	}
	if len(m.FacetAdjustedSqft) != 1 || math.Abs(m.FacetAdjustedSqft[0]-1118.0) > 1 {
		t.Errorf("per-facet adjusted areas = %v, want [~1118]", m.FacetAdjustedSqft)
	}
}

// Without facets the footprint area is scaled by the predominant-pitch
// multiplier; with no pitch information at all the multiplier is 1.
func TestCalculateFootprintFallback(t *testing.T) {
	fp := Footprint{AreaSqft: 2000, PerimeterFt: 180, VertexCount: 4}

	m := Calculate(fp, nil, nil)
	if m.TotalAdjustedAreaSqft != 2000 {
		t.Errorf("no-pitch fallback area = %f, want 2000 (plan)", m.TotalAdjustedAreaSqft)
	}
	if m.PredominantPitch != "" {
		t.Errorf("predominant pitch = %q, want empty", m.PredominantPitch)
	}
}

func TestMaterialQuantities(t *testing.T) {
	fp := Footprint{AreaSqft: 1000, PerimeterFt: 130, VertexCount: 4}
	facets := []Facet{{PlanAreaSqft: 1000, Pitch: "6/12"}}
	features := []LinearFeature{
		{Type: FeatureEave, LengthFt: 80},
		{Type: FeatureRake, LengthFt: 52},
		{Type: FeatureRidge, LengthFt: 40},
		{Type: FeatureValley, LengthFt: 9.5},
		{Type: FeatureHip, LengthFt: 11},
	}

	m := Calculate(fp, facets, features)
	mat := m.Materials

	// ~11.18 squares * 1.10 waste = ~12.3 squares of shingles,
	// underlayment 1 roll per 4 squares of adjusted coverage.
	if mat.UnderlaymentRolls != 4 {
		t.Errorf("underlayment rolls = %d, want 4", mat.UnderlaymentRolls)
	}
	// eave + valley, rounded up.
	if mat.IceAndWaterShieldFt != 90 {
		t.Errorf("ice & water shield = %d, want 90", mat.IceAndWaterShieldFt)
	}
	// (eave + rake) / 10ft sticks.
	if mat.DripEdgeSticks != 14 {
		t.Errorf("drip edge sticks = %d, want 14", mat.DripEdgeSticks)
	}
	if mat.StarterStripFt != 80 {
		t.Errorf("starter strip = %d, want 80", mat.StarterStripFt)
	}
	if mat.HipAndRidgeCapFt != 51 {
		t.Errorf("hip & ridge cap = %d, want 51", mat.HipAndRidgeCapFt)
	}
	if mat.ValleyMetalFt != 10 {
		t.Errorf("valley metal = %d, want 10", mat.ValleyMetalFt)
	}
}

func TestMaterialQuantitiesZeroRoof(t *testing.T) {
	m := Calculate(Footprint{}, nil, nil)
	mat := m.Materials
	if mat.UnderlaymentRolls != 0 || mat.DripEdgeSticks != 0 || mat.StarterStripFt != 0 {
		t.Errorf("zero roof should need zero materials, got %+v", mat)
	}
}
