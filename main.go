package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries parsed CLI flags into the App.
type AppOptions struct {
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

// appRunner is the surface main drives; App implements it.
type appRunner interface {
	ApplyOptions(AppOptions)
	RunMeasure() error
	RunService()
}

// run parses args and dispatches to the app. Split out from main so flag
// handling is testable without touching global flag state.
func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("roofmetric", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	inputFile := fs.String("input", "", "Measure a single request JSON file and exit")
	outputFile := fs.String("output", "", "Result JSON path for --input mode (default stdout)")
	sketchFile := fs.String("sketch", "", "Also render a sketch diagram of the result to this file")
	sketchFormat := fs.String("sketch-format", "svg", "Sketch format: svg or png")
	geoJSONFile := fs.String("geojson", "", "Also write the result as GeoJSON to this file")
	mqttMode := fs.Bool("mqtt", false, "Run MQTT service mode for measurement requests")
	httpMode := fs.Bool("http", false, "Enable HTTP measurement API")
	httpPort := fs.Int("http-port", 0, "HTTP server port (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "roofmetric version: %s\n", Version)

	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		InputFile:    *inputFile,
		OutputFile:   *outputFile,
		SketchFile:   *sketchFile,
		SketchFormat: *sketchFormat,
		GeoJSONFile:  *geoJSONFile,
		HttpPort:     *httpPort,
		MqttMode:     *mqttMode,
		HttpMode:     *httpMode,
	})

	if *inputFile != "" {
		return app.RunMeasure()
	}

	if *mqttMode || *httpMode {
		app.RunService()
		return nil
	}

	fmt.Fprintln(out, "roofmetric service starting...")
	fmt.Fprintln(out, "Use --input=request.json to measure a single request and exit")
	fmt.Fprintln(out, "Use --input with --sketch/--geojson to also export diagrams")
	fmt.Fprintln(out, "Use --http to run the HTTP measurement API")
	fmt.Fprintln(out, "Use --mqtt to consume measurement requests over MQTT")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - MQTT settings, tuning knobs, and baseline overrides")
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}
}
