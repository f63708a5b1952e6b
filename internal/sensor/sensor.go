package sensor

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/monitoring"
	"github.com/banshee-data/sensorkit/internal/sensor/accumulator"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

// DetectionMode selects what a sensor reports.
type DetectionMode string

const (
	// Colliders reports the entity that produced each raw signal.
	Colliders DetectionMode = "colliders"
	// RigidBodies reports the owning body of each collider.
	RigidBodies DetectionMode = "rigid_bodies"
)

// State is the sensor's some/none state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Detector produces the raw signals for one pulse, appending to into.
type Detector interface {
	Detect(into []signal.Signal) []signal.Signal
}

// Snapshot is the persisted form of a sensor's pipeline.
type Snapshot = []accumulator.State[entity.Handle, signal.Signal]

// Config describes a sensor at construction time.
type Config struct {
	ID    string
	World entity.Lookup
	// Origin returns the sensor position used by distance queries. Nil means
	// the world origin.
	Origin        func() r3.Vec
	Filter        *signal.Filter
	DetectionMode DetectionMode
	// Processors run after body mapping, in order.
	Processors []signal.Processor
	// Detector is optional; without one Pulse is a no-op.
	Detector Detector
}

// Listener receives detection events. Nil fields are skipped.
type Listener struct {
	OnDetected      func(h entity.Handle)
	OnLostDetection func(h entity.Handle)
	OnSomeDetection func()
	OnNoDetection   func()
	OnSignalAdded   func(s signal.Signal)
	OnSignalChanged func(prev, next signal.Signal)
	OnSignalLost    func(s signal.Signal)
}

// Sensor answers detection queries over one signal pipeline.
type Sensor struct {
	id        string
	world     entity.Lookup
	origin    func() r3.Vec
	pipeline  *signal.Pipeline
	mapToBody *signal.MapToBody
	detector  Detector
	state     State

	// Scratch buffers, overwritten by the next call that uses them.
	raw        []signal.Signal
	all        []signal.Signal
	signals    []signal.Signal
	detections []entity.Handle
}

// New builds a sensor from cfg.
func New(cfg Config) (*Sensor, error) {
	if cfg.World == nil {
		return nil, errors.New("sensor: world is required")
	}
	switch cfg.DetectionMode {
	case "":
		cfg.DetectionMode = Colliders
	case Colliders, RigidBodies:
	default:
		return nil, errors.New("sensor: unknown detection mode " + string(cfg.DetectionMode))
	}
	if cfg.Origin == nil {
		cfg.Origin = func() r3.Vec { return r3.Vec{} }
	}

	s := &Sensor{
		id:        cfg.ID,
		world:     cfg.World,
		origin:    cfg.Origin,
		detector:  cfg.Detector,
		mapToBody: &signal.MapToBody{World: cfg.World, Enabled: cfg.DetectionMode == RigidBodies},
	}
	processors := append([]signal.Processor{s.mapToBody}, cfg.Processors...)
	s.pipeline = signal.NewPipeline(cfg.World, cfg.Filter, processors...)
	s.pipeline.Subscribe(accumulator.Observer[signal.Signal]{
		OnSome: func() { s.setState(Active) },
		OnNone: func() { s.setState(Idle) },
	})
	return s, nil
}

// ID returns the sensor id.
func (s *Sensor) ID() string { return s.id }

// World returns the entity source the sensor resolves handles against.
func (s *Sensor) World() entity.Lookup { return s.world }

// Origin returns the current sensor position.
func (s *Sensor) Origin() r3.Vec { return s.origin() }

// Filter returns the live signal filter.
func (s *Sensor) Filter() *signal.Filter { return s.pipeline.Filter() }

// State returns Active while at least one detection exists.
func (s *Sensor) State() State { return s.state }

// Count returns the number of live detections.
func (s *Sensor) Count() int { return s.pipeline.Count() }

// Cycle returns the number of completed update cycles.
func (s *Sensor) Cycle() int { return s.pipeline.Cycle() }

// DetectionMode returns the current mode.
func (s *Sensor) DetectionMode() DetectionMode {
	if s.mapToBody.Enabled {
		return RigidBodies
	}
	return Colliders
}

// SetDetectionMode switches between collider and body detection. Existing
// detections are remapped on the next update.
func (s *Sensor) SetDetectionMode(mode DetectionMode) {
	s.mapToBody.Enabled = mode == RigidBodies
}

// AddProcessor appends proc to the signal processor chain.
func (s *Sensor) AddProcessor(proc signal.Processor) {
	s.pipeline.AddProcessor(proc)
}

// Subscribe registers l and returns a function that removes it.
func (s *Sensor) Subscribe(l Listener) (unsubscribe func()) {
	return s.pipeline.Subscribe(accumulator.Observer[signal.Signal]{
		OnAdd: func(sig signal.Signal) {
			if l.OnSignalAdded != nil {
				l.OnSignalAdded(sig)
			}
			if l.OnDetected != nil {
				l.OnDetected(sig.Object)
			}
		},
		OnChange: func(prev, next signal.Signal) {
			if l.OnSignalChanged != nil {
				l.OnSignalChanged(prev, next)
			}
		},
		OnRemove: func(sig signal.Signal) {
			if l.OnSignalLost != nil {
				l.OnSignalLost(sig)
			}
			if l.OnLostDetection != nil {
				l.OnLostDetection(sig.Object)
			}
		},
		OnSome: l.OnSomeDetection,
		OnNone: l.OnNoDetection,
	})
}

// UpdateSignals replaces the full raw signal set for this cycle.
func (s *Sensor) UpdateSignals(next []signal.Signal) {
	s.pipeline.UpdateAllInputs(next)
}

// UpdateSignalImmediate adds or refreshes one raw signal.
func (s *Sensor) UpdateSignalImmediate(sig signal.Signal) {
	s.pipeline.UpdateInput(sig)
}

// LostSignalImmediate drops the raw signal produced by h.
func (s *Sensor) LostSignalImmediate(h entity.Handle) {
	s.pipeline.RemoveInput(h)
}

// Clear removes every detection, firing the lost events.
func (s *Sensor) Clear() {
	s.pipeline.UpdateAllInputs(nil)
}

// Pulse runs the attached detector and applies its output as one cycle.
func (s *Sensor) Pulse() {
	if s.detector == nil {
		monitoring.Debugf("[Sensor] %s: pulse without a detector", s.id)
		return
	}
	s.raw = s.detector.Detect(s.raw[:0])
	s.pipeline.UpdateAllInputs(s.raw)
}

// Export returns the pipeline state for persistence.
func (s *Sensor) Export() Snapshot {
	return s.pipeline.Export()
}

// Rebuild restores a previously exported pipeline without firing events.
func (s *Sensor) Rebuild(snap Snapshot) {
	s.pipeline.Rebuild(snap)
	if s.pipeline.Count() > 0 {
		s.state = Active
	} else {
		s.state = Idle
	}
}

func (s *Sensor) setState(state State) {
	if s.state == state {
		return
	}
	s.state = state
	monitoring.Debugf("[Sensor] %s: %s", s.id, state)
}
