package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

const metricsNamespace = "sensorkit"

// Event kinds recorded in SignalEvents.
const (
	EventAdded   = "added"
	EventChanged = "changed"
	EventLost    = "lost"
	EventSome    = "some"
	EventNone    = "none"
)

// Metrics holds the Prometheus collectors for a set of sensors.
type Metrics struct {
	// SignalEvents counts listener events. Labels: sensor, kind.
	SignalEvents *prometheus.CounterVec
	// Outputs is the current detection count. Labels: sensor.
	Outputs *prometheus.GaugeVec
	// Pulses counts completed pulses. Labels: sensor.
	Pulses *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignalEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "signal_events_total",
			Help:      "Detection events by sensor and kind",
		}, []string{"sensor", "kind"}),
		Outputs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "outputs",
			Help:      "Current number of detections per sensor",
		}, []string{"sensor"}),
		Pulses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pulses_total",
			Help:      "Completed sensor pulses",
		}, []string{"sensor"}),
	}
}

// Watch subscribes to s and keeps its series current. The returned function
// stops watching.
func (m *Metrics) Watch(s *sensor.Sensor) (unsubscribe func()) {
	id := s.ID()
	events := func(kind string) prometheus.Counter { return m.SignalEvents.WithLabelValues(id, kind) }
	outputs := m.Outputs.WithLabelValues(id)
	outputs.Set(float64(s.Count()))

	return s.Subscribe(sensor.Listener{
		OnSignalAdded: func(signal.Signal) {
			events(EventAdded).Inc()
			outputs.Inc()
		},
		OnSignalChanged: func(_, _ signal.Signal) { events(EventChanged).Inc() },
		OnLostDetection: func(entity.Handle) {
			events(EventLost).Inc()
			outputs.Dec()
		},
		OnSomeDetection: func() { events(EventSome).Inc() },
		OnNoDetection:   func() { events(EventNone).Inc() },
	})
}

// RecordPulse counts one pulse of s and resyncs its detection gauge.
func (m *Metrics) RecordPulse(s *sensor.Sensor) {
	m.Pulses.WithLabelValues(s.ID()).Inc()
	m.Outputs.WithLabelValues(s.ID()).Set(float64(s.Count()))
}
