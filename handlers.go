package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hearth-labs/roofmetric/roof"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(engine *roof.Engine, store *roof.ResultStore) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Results   int       `json:"results"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Results:   store.Count(),
		})
	})

	// Measurement endpoint
	mux.HandleFunc("/measure", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var input roof.MeasurementInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid request JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		result, err := engine.Measure(&input)
		if err != nil {
			writeMeasureError(w, err)
			return
		}

		store.Put(result)
		writeJSON(w, http.StatusOK, result)
	})

	// Recent results list
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.List())
	})

	// Per-result endpoints: /results/{id}[/sketch.svg|/sketch.png|/geojson]
	mux.HandleFunc("/results/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/results/"), "/")
		if parts[0] == "" {
			http.NotFound(w, r)
			return
		}

		result := store.Get(parts[0])
		if result == nil {
			http.Error(w, "result not found", http.StatusNotFound)
			return
		}

		if len(parts) == 1 {
			writeJSON(w, http.StatusOK, result)
			return
		}
		if len(parts) > 2 {
			http.NotFound(w, r)
			return
		}

		switch parts[1] {
		case "sketch.svg":
			w.Header().Set("Content-Type", "image/svg+xml")
			w.Header().Set("Cache-Control", "no-cache")
			if err := roof.NewSketchRenderer(result).RenderToSVG(w); err != nil {
				log.Printf("Error rendering sketch SVG for %s: %v", result.JobID, err)
			}
		case "sketch.png":
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Cache-Control", "no-cache")
			if err := roof.NewSketchRenderer(result).RenderToPNG(w); err != nil {
				log.Printf("Error rendering sketch PNG for %s: %v", result.JobID, err)
			}
		case "geojson":
			w.Header().Set("Content-Type", "application/geo+json")
			writeJSON(w, http.StatusOK, roof.ToGeoJSON(result))
		default:
			http.NotFound(w, r)
		}
	})

	// Baseline statistics update
	mux.HandleFunc("/baseline", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var updates map[string]roof.BaselineStats
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, "invalid baseline JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(updates) == 0 {
			http.Error(w, "no baseline metrics supplied", http.StatusBadRequest)
			return
		}

		for metric, stats := range updates {
			if err := engine.Baselines.UpdateBaseline(metric, stats); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, http.StatusOK, engine.Baselines.Snapshot())
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// writeMeasureError maps pipeline failures onto status codes. Bad input and
// an unresolvable footprint are the caller's problem, not a server fault.
func writeMeasureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roof.ErrNoFootprint), errors.Is(err, roof.ErrImplausibleFootprint):
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Error      string `json:"error"`
			Measurable bool   `json:"measurable"`
		}{err.Error(), false})
	case errors.Is(err, roof.ErrInvalidInput), errors.Is(err, roof.ErrInvalidFrame):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("Error measuring request: %v", err)
		http.Error(w, "measurement failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}
