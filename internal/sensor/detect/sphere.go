// Package detect holds reference detectors that turn world state into raw
// signals for a sensor pulse.
package detect

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

// World is an entity source that can be enumerated.
type World interface {
	entity.Lookup
	Each(fn func(h entity.Handle))
}

// Sphere reports every detectable entity within Radius of the origin.
// Strength falls off linearly from 1 at the origin to 0 at Radius.
type Sphere struct {
	World  World
	Origin func() r3.Vec
	Radius float64
	// Detectable limits detection to some entities. Nil detects all.
	Detectable func(h entity.Handle) bool
}

// Detect appends one point-sized signal per entity in range.
func (s *Sphere) Detect(into []signal.Signal) []signal.Signal {
	if s.Radius <= 0 {
		return into
	}
	var origin r3.Vec
	if s.Origin != nil {
		origin = s.Origin()
	}

	s.World.Each(func(h entity.Handle) {
		if s.Detectable != nil && !s.Detectable(h) {
			return
		}
		d := r3.Norm(r3.Sub(s.World.Position(h), origin))
		if d > s.Radius {
			return
		}
		into = append(into, signal.Signal{
			Object:   h,
			Strength: 1 - d/s.Radius,
		})
	})
	return into
}
