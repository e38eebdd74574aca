package roof

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.HTTPPort != 8080 {
		t.Errorf("default HTTP port = %d, want 8080", c.HTTPPort)
	}
	if c.OverhangFt != DefaultOverhangFt {
		t.Errorf("default overhang = %f, want %f", c.OverhangFt, DefaultOverhangFt)
	}
	if c.ReviewThreshold != DefaultReviewThreshold {
		t.Errorf("default review threshold = %f, want %f", c.ReviewThreshold, DefaultReviewThreshold)
	}
	if !c.Simplify.SnapAngles {
		t.Error("angle snapping should default on")
	}
	if c.MQTT.RequestTopic != "roofmetric/requests/#" {
		t.Errorf("default request topic = %q", c.MQTT.RequestTopic)
	}
	if c.MQTT.Broker != "" {
		t.Error("MQTT should be disabled by default")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("missing config error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
httpPort: 9090
overhangFt: 1.5
reviewThreshold: 80
mqtt:
  broker: tcp://broker.local:1883
  requestTopic: roofs/requests/#
  resultPrefix: roofs
simplify:
  toleranceFt: 1.0
  snapAngles: false
baselines:
  totalAreaSqft:
    mean: 3000
    stdDev: 1500
sketch:
  widthPx: 800
  gridSpacingFt: 5
resultCache: /var/cache/roofmetric/results.json
`)

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if c.HTTPPort != 9090 {
		t.Errorf("httpPort = %d, want 9090", c.HTTPPort)
	}
	if c.OverhangFt != 1.5 {
		t.Errorf("overhangFt = %f, want 1.5", c.OverhangFt)
	}
	if c.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("broker = %q", c.MQTT.Broker)
	}
	if c.Simplify.SnapAngles {
		t.Error("snapAngles should be off")
	}
	if c.Baselines["totalAreaSqft"].Mean != 3000 {
		t.Errorf("baseline mean = %f, want 3000", c.Baselines["totalAreaSqft"].Mean)
	}
	if c.Sketch.WidthPx != 800 {
		t.Errorf("sketch width = %d, want 800", c.Sketch.WidthPx)
	}
	if c.ResultCache != "/var/cache/roofmetric/results.json" {
		t.Errorf("resultCache = %q", c.ResultCache)
	}
}

func TestLoadConfigPartialFallsBackToDefaults(t *testing.T) {
	path := writeConfig(t, "httpPort: 9999\n")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if c.HTTPPort != 9999 {
		t.Errorf("httpPort = %d, want 9999", c.HTTPPort)
	}
	if c.OverhangFt != DefaultOverhangFt {
		t.Errorf("unset overhang should keep default, got %f", c.OverhangFt)
	}
	if c.Sketch.WidthPx != 1024 {
		t.Errorf("unset sketch width should keep default, got %d", c.Sketch.WidthPx)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "httpPort: [nope", "parsing config YAML"},
		{"overhang too large", "overhangFt: 25\n", "out of range"},
		{"negative overhang", "overhangFt: -1\n", "out of range"},
		{"threshold out of range", "reviewThreshold: 140\n", "out of range"},
		{"zero stddev baseline", "baselines:\n  totalAreaSqft:\n    mean: 100\n    stdDev: 0\n", "stdDev must be positive"},
		{"broker without topic", "mqtt:\n  broker: tcp://x:1883\n  requestTopic: \"\"\n", "requestTopic is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewEngineFromConfig(t *testing.T) {
	c := DefaultConfig()
	c.OverhangFt = 3
	c.ReviewThreshold = 85
	c.Simplify.ToleranceFt = 2
	c.Simplify.SnapAngles = false
	c.Baselines = map[string]BaselineStats{MetricTotalArea: {Mean: 3000, StdDev: 1500}}

	e := NewEngineFromConfig(c)
	if e.OverhangFt != 3 {
		t.Errorf("engine overhang = %f, want 3", e.OverhangFt)
	}
	if e.ReviewThreshold != 85 {
		t.Errorf("engine review threshold = %f, want 85", e.ReviewThreshold)
	}
	if e.SimplifyToleranceFt != 2 {
		t.Errorf("engine simplify tolerance = %f, want 2", e.SimplifyToleranceFt)
	}
	if e.SnapAngles {
		t.Error("engine snap angles should be off")
	}
	if e.Baselines.Snapshot()[MetricTotalArea].Mean != 3000 {
		t.Error("engine baselines should carry config overrides")
	}

	e = NewEngineFromConfig(nil)
	if e.OverhangFt != DefaultOverhangFt {
		t.Errorf("nil config engine overhang = %f, want default", e.OverhangFt)
	}
}
