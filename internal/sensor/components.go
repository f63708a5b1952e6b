package sensor

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

// DetectedComponents returns the components of every detected object that
// has one in store, in detection order. into is overwritten.
func DetectedComponents[C any](s *Sensor, store *entity.Components[C], match Match, into []C) []C {
	return components(store, s.collect(match, nil), into)
}

// DetectedComponentsByDistance is DetectedComponents ordered nearest the
// sensor first.
func DetectedComponentsByDistance[C any](s *Sensor, store *entity.Components[C], match Match, into []C) []C {
	return components(store, s.GetSignalsByDistance(match, nil), into)
}

// DetectedComponentsByDistanceToPoint is DetectedComponents ordered nearest
// point first.
func DetectedComponentsByDistanceToPoint[C any](s *Sensor, store *entity.Components[C], point r3.Vec, match Match, into []C) []C {
	return components(store, s.GetSignalsByDistanceToPoint(point, match, nil), into)
}

// DetectedComponentsBySignalStrength is DetectedComponents ordered strongest
// first.
func DetectedComponentsBySignalStrength[C any](s *Sensor, store *entity.Components[C], match Match, into []C) []C {
	return components(store, s.GetSignalsBySignalStrength(match, nil), into)
}

// NearestComponent returns the component of the nearest detected object
// that has one.
func NearestComponent[C any](s *Sensor, store *entity.Components[C], match Match) (C, bool) {
	return NearestComponentToPoint(s, store, s.origin(), match)
}

// NearestComponentToPoint returns the component of the detected object
// nearest point that has one.
func NearestComponentToPoint[C any](s *Sensor, store *entity.Components[C], point r3.Vec, match Match) (C, bool) {
	sig, ok := s.GetNearestSignalToPoint(point, withComponent(store, match))
	if !ok {
		var zero C
		return zero, false
	}
	return store.Get(sig.Object)
}

// StrongestComponent returns the component of the strongest detected object
// that has one.
func StrongestComponent[C any](s *Sensor, store *entity.Components[C], match Match) (C, bool) {
	sig, ok := s.GetStrongestSignal(withComponent(store, match))
	if !ok {
		var zero C
		return zero, false
	}
	return store.Get(sig.Object)
}

func withComponent[C any](store *entity.Components[C], match Match) Match {
	return func(sig signal.Signal) bool {
		if _, ok := store.Get(sig.Object); !ok {
			return false
		}
		return match == nil || match(sig)
	}
}

func components[C any](store *entity.Components[C], sigs []signal.Signal, into []C) []C {
	into = into[:0]
	for _, sig := range sigs {
		if c, ok := store.Get(sig.Object); ok {
			into = append(into, c)
		}
	}
	return into
}
