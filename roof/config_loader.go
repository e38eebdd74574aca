package roof

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MQTTSettings configures the optional MQTT service mode. An empty broker
// disables MQTT entirely.
type MQTTSettings struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"clientId"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	RequestTopic string `yaml:"requestTopic"`
	ResultPrefix string `yaml:"resultPrefix"`
}

// SimplifySettings configures footprint normalization.
type SimplifySettings struct {
	ToleranceFt       float64 `yaml:"toleranceFt"`
	SnapAngles        bool    `yaml:"snapAngles"`
	AngleThresholdDeg float64 `yaml:"angleThresholdDeg"`
}

// SketchSettings configures diagram rendering.
type SketchSettings struct {
	WidthPx       int     `yaml:"widthPx"`
	GridSpacingFt float64 `yaml:"gridSpacingFt"`
}

// Config is the service configuration loaded from config.yaml.
type Config struct {
	MQTT            MQTTSettings             `yaml:"mqtt"`
	HTTPPort        int                      `yaml:"httpPort"`
	OverhangFt      float64                  `yaml:"overhangFt"`
	ReviewThreshold float64                  `yaml:"reviewThreshold"`
	Simplify        SimplifySettings         `yaml:"simplify"`
	Baselines       map[string]BaselineStats `yaml:"baselines"`
	Sketch          SketchSettings           `yaml:"sketch"`
	// ResultCache is the path of the JSON file recent results are persisted
	// to across restarts. Empty disables persistence.
	ResultCache string `yaml:"resultCache"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:        8080,
		OverhangFt:      DefaultOverhangFt,
		ReviewThreshold: DefaultReviewThreshold,
		Simplify: SimplifySettings{
			ToleranceFt:       defaultSimplifyToleranceFt,
			SnapAngles:        true,
			AngleThresholdDeg: defaultAngleThresholdDeg,
		},
		Sketch: SketchSettings{
			WidthPx:       1024,
			GridSpacingFt: 10,
		},
		MQTT: MQTTSettings{
			RequestTopic: "roofmetric/requests/#",
			ResultPrefix: "roofmetric",
		},
	}
}

// LoadConfig loads and validates configuration from a YAML file. Missing
// optional fields fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.OverhangFt < 0 || config.OverhangFt > 10 {
		return nil, fmt.Errorf("overhangFt %v out of range [0, 10]", config.OverhangFt)
	}
	if config.ReviewThreshold < 0 || config.ReviewThreshold > 100 {
		return nil, fmt.Errorf("reviewThreshold %v out of range [0, 100]", config.ReviewThreshold)
	}
	for metric, bs := range config.Baselines {
		if bs.StdDev <= 0 {
			return nil, fmt.Errorf("baselines.%s: stdDev must be positive", metric)
		}
	}
	if config.MQTT.Broker != "" && config.MQTT.RequestTopic == "" {
		return nil, fmt.Errorf("mqtt.requestTopic is required when a broker is set")
	}
	return config, nil
}

// NewEngineFromConfig builds an engine honoring the config's tuning knobs.
func NewEngineFromConfig(config *Config) *Engine {
	e := NewEngine()
	if config == nil {
		return e
	}
	e.Baselines = NewBaselineStore(config.Baselines)
	if config.OverhangFt > 0 {
		e.OverhangFt = config.OverhangFt
	}
	if config.ReviewThreshold > 0 {
		e.ReviewThreshold = config.ReviewThreshold
	}
	if config.Simplify.ToleranceFt > 0 {
		e.SimplifyToleranceFt = config.Simplify.ToleranceFt
	}
	e.SnapAngles = config.Simplify.SnapAngles
	if config.Simplify.AngleThresholdDeg > 0 {
		e.AngleThresholdDeg = config.Simplify.AngleThresholdDeg
	}
	return e
}
