package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hearth-labs/roofmetric/roof"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *roof.Config
	Engine     *roof.Engine
	Store      *roof.ResultStore
	MQTTClient *roof.MQTTClient
	Publisher  *roof.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	InputFile    string
	OutputFile   string
	SketchFile   string
	SketchFormat string
	GeoJSONFile  string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.InputFile = opts.InputFile
	a.OutputFile = opts.OutputFile
	a.SketchFile = opts.SketchFile
	a.SketchFormat = opts.SketchFormat
	a.GeoJSONFile = opts.GeoJSONFile
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig loads the config file if it exists, falling back to defaults.
// A present-but-invalid config is fatal rather than silently ignored.
func (a *App) loadConfig() *roof.Config {
	if _, err := os.Stat(a.ConfigFile); err != nil {
		log.Printf("No config file at %s, using defaults", a.ConfigFile)
		return roof.DefaultConfig()
	}
	config, err := roof.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v (looked at %s)", err, a.ConfigFile)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	return config
}

// RunMeasure measures a single request JSON file and writes the result.
func (a *App) RunMeasure() error {
	a.Config = a.loadConfig()
	a.Engine = roof.NewEngineFromConfig(a.Config)

	data, err := os.ReadFile(a.InputFile)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	var input roof.MeasurementInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing input JSON: %w", err)
	}

	result, err := a.Engine.Measure(&input)
	if err != nil {
		return fmt.Errorf("measuring %s: %w", a.InputFile, err)
	}

	fmt.Printf("Job %s: %.0f sq ft adjusted (%.1f squares), pitch %s, waste %.0f%%\n",
		result.JobID, result.TotalAdjustedAreaSqft, result.TotalSquares,
		result.PredominantPitch, result.WasteFactor*100)
	fmt.Printf("Footprint: %s, %.0f sq ft, %d vertices\n",
		result.Footprint.Source, result.Footprint.AreaSqft, result.Footprint.VertexCount)
	fmt.Printf("Confidence: %.0f (%s), review required: %v, risk: %s\n",
		result.OverallConfidence, result.ConfidenceRating,
		result.ManualReviewRequired, result.RiskLevel)
	for _, anom := range result.Anomalies {
		fmt.Printf("  [%s] %s: %s\n", anom.Severity, anom.Type, anom.Message)
	}

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if a.OutputFile == "" {
		fmt.Println(string(resultJSON))
	} else {
		if err := os.WriteFile(a.OutputFile, resultJSON, 0644); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
		fmt.Printf("Result written to %s\n", a.OutputFile)
	}

	if a.SketchFile != "" {
		if err := a.writeSketch(result); err != nil {
			return err
		}
		fmt.Printf("Sketch written to %s\n", a.SketchFile)
	}

	if a.GeoJSONFile != "" {
		fc := roof.ToGeoJSON(result)
		geoJSON, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding GeoJSON: %w", err)
		}
		if err := os.WriteFile(a.GeoJSONFile, geoJSON, 0644); err != nil {
			return fmt.Errorf("writing GeoJSON file: %w", err)
		}
		fmt.Printf("GeoJSON written to %s\n", a.GeoJSONFile)
	}

	return nil
}

func (a *App) writeSketch(result *roof.MeasurementResult) error {
	renderer := roof.NewSketchRenderer(result)
	if a.Config != nil && a.Config.Sketch.GridSpacingFt > 0 {
		renderer.GridSpacingFt = a.Config.Sketch.GridSpacingFt
	}

	outFile, err := os.Create(a.SketchFile)
	if err != nil {
		return fmt.Errorf("creating sketch file %s: %w", a.SketchFile, err)
	}
	defer func() {
		if err := outFile.Close(); err != nil {
			log.Printf("Warning: error closing sketch file %s: %v", a.SketchFile, err)
		}
	}()

	switch a.SketchFormat {
	case "svg", "":
		return renderer.RenderToSVG(outFile)
	case "png":
		return renderer.RenderToPNG(outFile)
	default:
		return fmt.Errorf("unknown sketch format %q (must be svg or png)", a.SketchFormat)
	}
}

// RunService starts the combined MQTT and/or HTTP service
func (a *App) RunService() {
	fmt.Println("Starting roofmetric service...")

	config := a.loadConfig()
	a.Config = config
	a.Engine = roof.NewEngineFromConfig(config)

	if config.ResultCache != "" {
		a.Store = roof.NewResultStoreWithCache(roof.DefaultStoreLimit, config.ResultCache)
	} else {
		a.Store = roof.NewResultStore(roof.DefaultStoreLimit)
	}

	port := a.HttpPort
	if port == 0 {
		port = config.HTTPPort
	}

	if a.MqttMode {
		requestHandler := func(jobID string, rawPayload []byte, input *roof.MeasurementInput, err error) {
			if err != nil {
				log.Printf("[MQTT] Error decoding request %s (%d bytes): %v", jobID, len(rawPayload), err)
				return
			}
			if input.JobID == "" {
				input.JobID = jobID
			}

			result, err := a.Engine.Measure(input)
			if err != nil {
				log.Printf("[MQTT] Measurement %s failed: %v", input.JobID, err)
				return
			}
			a.Store.Put(result)

			log.Printf("[MQTT] %s: %.0f sqft adjusted, confidence %.0f (%s), risk %s",
				result.JobID, result.TotalAdjustedAreaSqft,
				result.OverallConfidence, result.ConfidenceRating, result.RiskLevel)

			if a.Publisher != nil {
				if err := a.Publisher.PublishResult(result); err != nil {
					log.Printf("[MQTT] Error publishing result %s: %v", result.JobID, err)
				}
			}
		}

		mqttClient, err := roof.InitMQTT(config.MQTT, requestHandler)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		a.MQTTClient = mqttClient

		if mqttClient == nil {
			log.Fatal("MQTT broker not configured (set mqtt.broker in config.yaml or MQTT_BROKER)")
		}

		a.Publisher = roof.NewPublisher(mqttClient.GetClient(), config.MQTT.ResultPrefix)
		fmt.Println("MQTT result publisher initialized")
	}

	if a.HttpMode {
		httpServer := newHTTPServer(a.Engine, a.Store)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", port)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
			log.Printf("[HTTP] Server stopped unexpectedly")
		}()
	}

	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Printf("  Request topic: %s\n", config.MQTT.RequestTopic)
		prefix := config.MQTT.ResultPrefix
		if prefix == "" {
			prefix = "roofmetric"
		}
		fmt.Printf("  Publishing results to: %s/results/{jobID}\n", prefix)
		fmt.Printf("  Retained summaries: %s/results\n", prefix)
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", port)
		fmt.Println("  GET  /health                    - Health check")
		fmt.Println("  POST /measure                   - Run a measurement request")
		fmt.Println("  GET  /results                   - Recent result summaries")
		fmt.Println("  GET  /results/{id}              - Full measurement result")
		fmt.Println("  GET  /results/{id}/sketch.svg   - Annotated sketch diagram (SVG)")
		fmt.Println("  GET  /results/{id}/sketch.png   - Annotated sketch diagram (PNG)")
		fmt.Println("  GET  /results/{id}/geojson      - Result as GeoJSON")
		fmt.Println("  POST /baseline                  - Update anomaly baseline stats")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
}
