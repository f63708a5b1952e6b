package signal

import "github.com/banshee-data/sensorkit/internal/sensor/entity"

// Processor is one step of the chain applied to raw signals. Returning false
// rejects the signal.
type Processor interface {
	Process(s Signal) (Signal, bool)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(s Signal) (Signal, bool)

func (f ProcessorFunc) Process(s Signal) (Signal, bool) { return f(s) }

// MapToBody redirects a collider's signal onto its owning body when
// Enabled. Colliders without a body pass through unchanged.
type MapToBody struct {
	World   entity.Lookup
	Enabled bool
}

func (m *MapToBody) Process(s Signal) (Signal, bool) {
	if !m.Enabled {
		return s, true
	}
	body := m.World.Body(s.Object)
	if body.IsZero() {
		return s, true
	}
	return Rebase(m.World, s, body), true
}

// MapToProxy redirects a signal onto the entity's designated proxy.
type MapToProxy struct {
	World entity.Lookup
}

func (m *MapToProxy) Process(s Signal) (Signal, bool) {
	proxy := m.World.Proxy(s.Object)
	if proxy.IsZero() {
		return s, true
	}
	return Rebase(m.World, s, proxy), true
}
