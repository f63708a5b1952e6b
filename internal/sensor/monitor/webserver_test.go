package monitor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

type fixture struct {
	world  *entity.Registry
	sensor *sensor.Sensor
	near   entity.Handle
	far    entity.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	world := entity.NewRegistry()
	f := &fixture{
		world: world,
		near:  world.Create(entity.Spec{Position: r3.Vec{X: 1}, Tag: "near"}),
		far:   world.Create(entity.Spec{Position: r3.Vec{X: 4, Y: 3}, Tag: "far"}),
	}
	s, err := sensor.New(sensor.Config{ID: "front", World: world})
	require.NoError(t, err)
	f.sensor = s
	return f
}

func (f *fixture) detectBoth() {
	f.sensor.UpdateSignals([]signal.Signal{
		{Object: f.far, Strength: 0.9},
		{Object: f.near, Strength: 0.4},
	})
}

func newTestServer(t *testing.T, f *fixture, reg *prometheus.Registry) *httptest.Server {
	t.Helper()
	ws := NewWebServer(WebServerConfig{Sensors: []*sensor.Sensor{f.sensor}, Gatherer: reg})
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, newFixture(t), prometheus.NewRegistry())

	resp, body := get(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "dev", got["version"])
	assert.EqualValues(t, 1, got["sensors"])
}

func TestSensorsList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.detectBoth()
	srv := newTestServer(t, f, prometheus.NewRegistry())

	resp, body := get(t, srv.URL+"/api/sensors")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []sensorStatus
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "front", got[0].ID)
	assert.Equal(t, "active", got[0].State)
	assert.Equal(t, "colliders", got[0].DetectionMode)
	assert.Equal(t, 2, got[0].Detections)
	assert.Equal(t, 1, got[0].Cycle)
}

func TestSignalsNearestFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.detectBoth()
	srv := newTestServer(t, f, prometheus.NewRegistry())

	resp, body := get(t, srv.URL+"/api/sensors/front/signals")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []signalView
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Tag)
	assert.InDelta(t, 1.0, got[0].Distance, 1e-9)
	assert.Equal(t, "far", got[1].Tag)
	assert.InDelta(t, 5.0, got[1].Distance, 1e-9)
	assert.InDelta(t, 0.9, got[1].Strength, 1e-9)
	assert.Equal(t, [3]float64{4, 3, 0}, got[1].Center)
	assert.Equal(t, 1, got[1].Inputs)
}

func TestUnknownSensor(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, newFixture(t), prometheus.NewRegistry())

	for _, path := range []string{
		"/api/sensors/rear/signals",
		"/debug/sensors/rear/strengths",
		"/debug/sensors/rear/positions",
		"/debug/sensors/rear/positions.png",
	} {
		resp, body := get(t, srv.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Contains(t, string(body), "unknown sensor", path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, newFixture(t), prometheus.NewRegistry())

	resp, err := http.Post(srv.URL+"/api/sensors", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCharts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.detectBoth()
	srv := newTestServer(t, f, prometheus.NewRegistry())

	for _, path := range []string{"/debug/sensors/front/strengths", "/debug/sensors/front/positions"} {
		resp, body := get(t, srv.URL+path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html", path)
		assert.Contains(t, string(body), "echarts", path)
	}
}

func TestPositionPlot(t *testing.T) {
	t.Parallel()
	pngMagic := []byte("\x89PNG\r\n\x1a\n")

	t.Run("with detections", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.detectBoth()
		srv := newTestServer(t, f, prometheus.NewRegistry())

		resp, body := get(t, srv.URL+"/debug/sensors/front/positions.png")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(body, pngMagic))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, newFixture(t), prometheus.NewRegistry())

		resp, body := get(t, srv.URL+"/debug/sensors/front/positions.png")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, bytes.HasPrefix(body, pngMagic))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Watch(f.sensor)
	f.detectBoth()
	m.RecordPulse(f.sensor)
	srv := newTestServer(t, f, reg)

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sensorkit_outputs{sensor="front"} 2`)
	assert.Contains(t, string(body), `sensorkit_pulses_total{sensor="front"} 1`)
}
