package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hearth-labs/roofmetric/roof"
)

// measureRequest builds a minimal valid request: a manual 45x30 ft outline
// over a known frame, no vision or insight payloads.
func measureRequest(jobID string) *roof.MeasurementInput {
	lat, lng := 37.4220, -122.0841
	dLat := roof.FeetToDegreesLat(15)
	dLng := roof.FeetToDegreesLng(22.5, lat)
	return &roof.MeasurementInput{
		JobID: jobID,
		ImageFrame: roof.ImageFrame{
			CenterLat:   lat,
			CenterLng:   lng,
			ZoomLevel:   20,
			PixelSizePx: 1024,
		},
		ManualOverride: roof.Polygon{
			{Lat: lat - dLat, Lng: lng - dLng},
			{Lat: lat - dLat, Lng: lng + dLng},
			{Lat: lat + dLat, Lng: lng + dLng},
			{Lat: lat + dLat, Lng: lng - dLng},
		},
	}
}

// saveRequestToFile writes a request as the JSON the CLI and services accept.
func saveRequestToFile(in *roof.MeasurementInput, path string) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp returned nil")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	opts := AppOptions{
		ConfigFile:   "test-config.yaml",
		InputFile:    "request.json",
		OutputFile:   "result.json",
		SketchFile:   "sketch.svg",
		SketchFormat: "svg",
		GeoJSONFile:  "roof.geojson",
		HttpPort:     8080,
		MqttMode:     true,
		HttpMode:     false,
	}

	app.ApplyOptions(opts)

	if app.ConfigFile != "test-config.yaml" {
		t.Errorf("ConfigFile = %s, want test-config.yaml", app.ConfigFile)
	}
	if app.InputFile != "request.json" {
		t.Errorf("InputFile = %s, want request.json", app.InputFile)
	}
	if app.OutputFile != "result.json" {
		t.Errorf("OutputFile = %s, want result.json", app.OutputFile)
	}
	if app.SketchFile != "sketch.svg" {
		t.Errorf("SketchFile = %s, want sketch.svg", app.SketchFile)
	}
	if app.SketchFormat != "svg" {
		t.Errorf("SketchFormat = %s, want svg", app.SketchFormat)
	}
	if app.GeoJSONFile != "roof.geojson" {
		t.Errorf("GeoJSONFile = %s, want roof.geojson", app.GeoJSONFile)
	}
	if app.HttpPort != 8080 {
		t.Errorf("HttpPort = %d, want 8080", app.HttpPort)
	}
	if !app.MqttMode {
		t.Error("MqttMode should be true")
	}
	if app.HttpMode {
		t.Error("HttpMode should be false")
	}
}

func TestApplyOptions_AllDefaults(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{})

	if app.ConfigFile != "" {
		t.Errorf("ConfigFile = %s, want empty string", app.ConfigFile)
	}
	if app.HttpPort != 0 {
		t.Errorf("HttpPort = %d, want 0", app.HttpPort)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "does-not-exist.yaml")

	config := app.loadConfig()
	if config == nil {
		t.Fatal("loadConfig returned nil for missing file")
	}
	if config.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default 8080", config.HTTPPort)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "httpPort: 9191\nreviewThreshold: 80\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	app := NewApp()
	app.ConfigFile = path

	config := app.loadConfig()
	if config.HTTPPort != 9191 {
		t.Errorf("HTTPPort = %d, want 9191", config.HTTPPort)
	}
	if config.ReviewThreshold != 80 {
		t.Errorf("ReviewThreshold = %f, want 80", config.ReviewThreshold)
	}
}

func TestRunMeasure(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "request.json")
	outputPath := filepath.Join(tmpDir, "result.json")

	if err := saveRequestToFile(measureRequest("app-test-1"), inputPath); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(tmpDir, "no-config.yaml"),
		InputFile:  inputPath,
		OutputFile: outputPath,
	})

	if err := app.RunMeasure(); err != nil {
		t.Fatalf("RunMeasure failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read result file: %v", err)
	}

	var result roof.MeasurementResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Result file is not valid JSON: %v", err)
	}
	if result.JobID != "app-test-1" {
		t.Errorf("JobID = %s, want app-test-1", result.JobID)
	}
	if result.Footprint.Source != roof.SourceManualOverride {
		t.Errorf("Footprint source = %s, want manual", result.Footprint.Source)
	}
	if result.TotalAdjustedAreaSqft < 1300 || result.TotalAdjustedAreaSqft > 1400 {
		t.Errorf("TotalAdjustedAreaSqft = %f, want ~1350", result.TotalAdjustedAreaSqft)
	}
}

func TestRunMeasure_WithExports(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "request.json")
	sketchPath := filepath.Join(tmpDir, "sketch.svg")
	geoJSONPath := filepath.Join(tmpDir, "roof.geojson")

	if err := saveRequestToFile(measureRequest("app-test-2"), inputPath); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   filepath.Join(tmpDir, "no-config.yaml"),
		InputFile:    inputPath,
		OutputFile:   filepath.Join(tmpDir, "result.json"),
		SketchFile:   sketchPath,
		SketchFormat: "svg",
		GeoJSONFile:  geoJSONPath,
	})

	if err := app.RunMeasure(); err != nil {
		t.Fatalf("RunMeasure failed: %v", err)
	}

	sketch, err := os.ReadFile(sketchPath)
	if err != nil {
		t.Fatalf("Failed to read sketch file: %v", err)
	}
	if !strings.Contains(string(sketch), "<svg") {
		t.Error("Sketch file does not look like SVG")
	}

	geoData, err := os.ReadFile(geoJSONPath)
	if err != nil {
		t.Fatalf("Failed to read GeoJSON file: %v", err)
	}
	var fc map[string]interface{}
	if err := json.Unmarshal(geoData, &fc); err != nil {
		t.Fatalf("GeoJSON file is not valid JSON: %v", err)
	}
	if fc["type"] != "FeatureCollection" {
		t.Errorf("GeoJSON type = %v, want FeatureCollection", fc["type"])
	}
}

func TestRunMeasure_MissingInputFile(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(t.TempDir(), "no-config.yaml"),
		InputFile:  "/nonexistent/request.json",
	})

	if err := app.RunMeasure(); err == nil {
		t.Error("expected error for missing input file, got nil")
	}
}

func TestRunMeasure_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "request.json")
	if err := os.WriteFile(inputPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(tmpDir, "no-config.yaml"),
		InputFile:  inputPath,
	})

	err := app.RunMeasure()
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "parsing input JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunMeasure_Unmeasurable(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "request.json")

	// Frame only, no footprint evidence from any source.
	input := measureRequest("app-test-3")
	input.ManualOverride = nil
	if err := saveRequestToFile(input, inputPath); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: filepath.Join(tmpDir, "no-config.yaml"),
		InputFile:  inputPath,
	})

	err := app.RunMeasure()
	if err == nil {
		t.Fatal("expected error for footprint-less request, got nil")
	}
	if !strings.Contains(err.Error(), "measuring") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteSketch_UnknownFormat(t *testing.T) {
	app := NewApp()
	app.SketchFile = filepath.Join(t.TempDir(), "sketch.webp")
	app.SketchFormat = "webp"

	result := &roof.MeasurementResult{JobID: "sketch-test"}
	err := app.writeSketch(result)
	if err == nil {
		t.Fatal("expected error for unknown sketch format, got nil")
	}
	if !strings.Contains(err.Error(), "unknown sketch format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteSketch_PNG(t *testing.T) {
	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "request.json")
	sketchPath := filepath.Join(tmpDir, "sketch.png")

	if err := saveRequestToFile(measureRequest("app-test-4"), inputPath); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   filepath.Join(tmpDir, "no-config.yaml"),
		InputFile:    inputPath,
		OutputFile:   filepath.Join(tmpDir, "result.json"),
		SketchFile:   sketchPath,
		SketchFormat: "png",
	})

	if err := app.RunMeasure(); err != nil {
		t.Fatalf("RunMeasure failed: %v", err)
	}

	info, err := os.Stat(sketchPath)
	if err != nil {
		t.Fatalf("Failed to stat sketch file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PNG sketch file is empty")
	}
}
