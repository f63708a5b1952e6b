package sensor

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

// Match selects signals in a query. A nil Match selects everything.
type Match func(s signal.Signal) bool

// WithTag selects signals whose object carries tag.
func WithTag(world entity.Lookup, tag string) Match {
	return func(s signal.Signal) bool { return world.Tag(s.Object) == tag }
}

// Every query taking an into slice overwrites it and returns the result.
// A nil into uses a sensor-owned buffer that the next query overwrites.

// GetSignals returns the detected signals in detection order.
func (s *Sensor) GetSignals(match Match, into []signal.Signal) []signal.Signal {
	return s.collect(match, into)
}

// GetSignalsWithTag returns the detected signals whose object has tag.
func (s *Sensor) GetSignalsWithTag(tag string, into []signal.Signal) []signal.Signal {
	return s.collect(WithTag(s.world, tag), into)
}

// GetSignalsByDistance returns the detected signals nearest the sensor
// first.
func (s *Sensor) GetSignalsByDistance(match Match, into []signal.Signal) []signal.Signal {
	return s.GetSignalsByDistanceToPoint(s.origin(), match, into)
}

// GetSignalsByDistanceToPoint returns the detected signals nearest point
// first.
func (s *Sensor) GetSignalsByDistanceToPoint(point r3.Vec, match Match, into []signal.Signal) []signal.Signal {
	out := s.collect(match, into)
	sortByDistance(s.world, point, out)
	return out
}

// GetSignalsBySignalStrength returns the detected signals strongest first.
func (s *Sensor) GetSignalsBySignalStrength(match Match, into []signal.Signal) []signal.Signal {
	out := s.collect(match, into)
	sortByStrength(out)
	return out
}

// GetDetections returns the detected objects in detection order.
func (s *Sensor) GetDetections(match Match, into []entity.Handle) []entity.Handle {
	return s.objects(s.collect(match, nil), into)
}

// GetDetectionsByDistance returns the detected objects nearest the sensor
// first.
func (s *Sensor) GetDetectionsByDistance(match Match, into []entity.Handle) []entity.Handle {
	return s.objects(s.GetSignalsByDistance(match, nil), into)
}

// GetDetectionsByDistanceToPoint returns the detected objects nearest point
// first.
func (s *Sensor) GetDetectionsByDistanceToPoint(point r3.Vec, match Match, into []entity.Handle) []entity.Handle {
	return s.objects(s.GetSignalsByDistanceToPoint(point, match, nil), into)
}

// GetDetectionsBySignalStrength returns the detected objects strongest
// first.
func (s *Sensor) GetDetectionsBySignalStrength(match Match, into []entity.Handle) []entity.Handle {
	return s.objects(s.GetSignalsBySignalStrength(match, nil), into)
}

// GetNearestSignal returns the signal nearest the sensor.
func (s *Sensor) GetNearestSignal(match Match) (signal.Signal, bool) {
	return s.GetNearestSignalToPoint(s.origin(), match)
}

// GetNearestSignalToPoint returns the signal nearest point. Ties go to the
// earlier detection.
func (s *Sensor) GetNearestSignalToPoint(point r3.Vec, match Match) (signal.Signal, bool) {
	var best signal.Signal
	bestDist, found := 0.0, false
	for _, sig := range s.collect(match, nil) {
		d := sig.DistanceTo(s.world, point)
		if !found || d < bestDist {
			best, bestDist, found = sig, d, true
		}
	}
	return best, found
}

// GetStrongestSignal returns the signal with the highest strength. Ties go
// to the earlier detection.
func (s *Sensor) GetStrongestSignal(match Match) (signal.Signal, bool) {
	var best signal.Signal
	found := false
	for _, sig := range s.collect(match, nil) {
		if !found || sig.Strength > best.Strength {
			best, found = sig, true
		}
	}
	return best, found
}

// GetNearestDetection returns the object nearest the sensor, or
// entity.None.
func (s *Sensor) GetNearestDetection(match Match) entity.Handle {
	sig, _ := s.GetNearestSignal(match)
	return sig.Object
}

// GetNearestDetectionToPoint returns the object nearest point, or
// entity.None.
func (s *Sensor) GetNearestDetectionToPoint(point r3.Vec, match Match) entity.Handle {
	sig, _ := s.GetNearestSignalToPoint(point, match)
	return sig.Object
}

// GetStrongestDetection returns the object with the strongest signal, or
// entity.None.
func (s *Sensor) GetStrongestDetection(match Match) entity.Handle {
	sig, _ := s.GetStrongestSignal(match)
	return sig.Object
}

// IsDetected reports whether h is currently detected.
func (s *Sensor) IsDetected(h entity.Handle) bool {
	return s.pipeline.Contains(h)
}

// TryGetSignal returns the combined signal for h.
func (s *Sensor) TryGetSignal(h entity.Handle) (signal.Signal, bool) {
	return s.pipeline.Output(h)
}

// GetSignal returns the combined signal for h, or the zero Signal.
func (s *Sensor) GetSignal(h entity.Handle) signal.Signal {
	sig, _ := s.pipeline.Output(h)
	return sig
}

// GetDetectedInputs returns the raw inputs that make up the detection of
// target. When nothing maps onto target but target is itself a raw input,
// the result is target alone.
func (s *Sensor) GetDetectedInputs(target entity.Handle, into []entity.Handle) []entity.Handle {
	scratch := into == nil
	if scratch {
		into = s.detections
	}
	into = s.pipeline.InputKeys(target, into[:0])
	if len(into) == 0 && s.pipeline.IsInput(target) {
		into = append(into, target)
	}
	if scratch {
		s.detections = into
	}
	return into
}

func (s *Sensor) collect(match Match, into []signal.Signal) []signal.Signal {
	s.all = s.pipeline.Outputs(s.all[:0])

	scratch := into == nil
	if scratch {
		into = s.signals
	}
	into = into[:0]
	for _, sig := range s.all {
		if match == nil || match(sig) {
			into = append(into, sig)
		}
	}
	if scratch {
		s.signals = into
	}
	return into
}

func (s *Sensor) objects(sigs []signal.Signal, into []entity.Handle) []entity.Handle {
	scratch := into == nil
	if scratch {
		into = s.detections
	}
	into = into[:0]
	for _, sig := range sigs {
		into = append(into, sig.Object)
	}
	if scratch {
		s.detections = into
	}
	return into
}

func sortByDistance(world entity.Lookup, point r3.Vec, sigs []signal.Signal) {
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].DistanceTo(world, point) < sigs[j].DistanceTo(world, point)
	})
}

func sortByStrength(sigs []signal.Signal) {
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].Strength > sigs[j].Strength
	})
}
