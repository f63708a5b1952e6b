// Package monitor serves sensor status, debug charts and metrics over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/sensorkit/internal/monitoring"
	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/version"
)

// WebServer exposes sensors for inspection. Every handler holds locker
// while it reads a sensor, so the pulse routine and handlers never overlap.
type WebServer struct {
	address  string
	server   *http.Server
	sensors  map[string]*sensor.Sensor
	order    []string
	locker   sync.Locker
	gatherer prometheus.Gatherer
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Sensors []*sensor.Sensor
	// Locker guards every sensor. Required when sensors are pulsed from
	// another goroutine.
	Locker sync.Locker
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:  config.Address,
		sensors:  make(map[string]*sensor.Sensor, len(config.Sensors)),
		locker:   config.Locker,
		gatherer: config.Gatherer,
	}
	if ws.locker == nil {
		ws.locker = &sync.Mutex{}
	}
	if ws.gatherer == nil {
		ws.gatherer = prometheus.DefaultGatherer
	}
	for _, s := range config.Sensors {
		if _, dup := ws.sensors[s.ID()]; dup {
			monitoring.Logf("[Monitor] duplicate sensor id %q ignored", s.ID())
			continue
		}
		ws.sensors[s.ID()] = s
		ws.order = append(ws.order, s.ID())
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Handler returns the route table.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ws.handleHealth)
	mux.HandleFunc("GET /api/sensors", ws.handleSensors)
	mux.HandleFunc("GET /api/sensors/{id}/signals", ws.handleSignals)
	mux.HandleFunc("GET /debug/sensors/{id}/strengths", ws.handleStrengthChart)
	mux.HandleFunc("GET /debug/sensors/{id}/positions", ws.handlePositionChart)
	mux.HandleFunc("GET /debug/sensors/{id}/positions.png", ws.handlePositionPlot)
	mux.Handle("GET /metrics", promhttp.HandlerFor(ws.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("[Monitor] starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("monitor server: %w", err)
	case <-ctx.Done():
	}
	monitoring.Logf("[Monitor] shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("[Monitor] HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("[Monitor] HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("[Monitor] HTTP server routine stopped")
	return nil
}

type sensorStatus struct {
	ID            string     `json:"id"`
	State         string     `json:"state"`
	DetectionMode string     `json:"detection_mode"`
	Detections    int        `json:"detections"`
	Cycle         int        `json:"cycle"`
	Origin        [3]float64 `json:"origin"`
}

type signalView struct {
	Object   string     `json:"object"`
	Tag      string     `json:"tag"`
	Strength float64    `json:"strength"`
	Distance float64    `json:"distance"`
	Center   [3]float64 `json:"center"`
	Size     [3]float64 `json:"size"`
	Inputs   int        `json:"inputs"`
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "sensorkit",
		"version":   version.Version,
		"git_sha":   version.GitSHA,
		"sensors":   len(ws.order),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleSensors(w http.ResponseWriter, r *http.Request) {
	ws.locker.Lock()
	out := make([]sensorStatus, 0, len(ws.order))
	for _, id := range ws.order {
		out = append(out, status(ws.sensors[id]))
	}
	ws.locker.Unlock()
	ws.writeJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleSignals(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.sensor(w, r)
	if !ok {
		return
	}
	ws.locker.Lock()
	views := signalViews(s)
	ws.locker.Unlock()
	ws.writeJSON(w, http.StatusOK, views)
}

// sensor resolves the {id} path value, writing a 404 when unknown.
func (ws *WebServer) sensor(w http.ResponseWriter, r *http.Request) (*sensor.Sensor, bool) {
	id := r.PathValue("id")
	s, ok := ws.sensors[id]
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown sensor %q", id))
	}
	return s, ok
}

func status(s *sensor.Sensor) sensorStatus {
	o := s.Origin()
	return sensorStatus{
		ID:            s.ID(),
		State:         s.State().String(),
		DetectionMode: string(s.DetectionMode()),
		Detections:    s.Count(),
		Cycle:         s.Cycle(),
		Origin:        [3]float64{o.X, o.Y, o.Z},
	}
}

// signalViews lists the sensor's signals nearest first. Callers hold the
// sensor lock.
func signalViews(s *sensor.Sensor) []signalView {
	world := s.World()
	origin := s.Origin()
	sigs := s.GetSignalsByDistance(nil, nil)
	out := make([]signalView, 0, len(sigs))
	for _, sig := range sigs {
		wb := sig.WorldBounds(world)
		out = append(out, signalView{
			Object:   sig.Object.String(),
			Tag:      world.Tag(sig.Object),
			Strength: sig.Strength,
			Distance: sig.DistanceTo(world, origin),
			Center:   [3]float64{wb.Center.X, wb.Center.Y, wb.Center.Z},
			Size:     [3]float64{wb.Size.X, wb.Size.Y, wb.Size.Z},
			Inputs:   len(s.GetDetectedInputs(sig.Object, nil)),
		})
	}
	return out
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("[Monitor] JSON encoding error: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}
