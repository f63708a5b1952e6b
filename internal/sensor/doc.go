// Package sensor is the consumer-facing detection API.
//
// A Sensor wraps one signal.Pipeline, answers ordered and filtered queries
// over its current output set, and re-exposes pipeline notifications as
// detection events. Signals arrive either from the host (UpdateSignals and
// the immediate variants) or from an attached Detector via Pulse.
//
// Sub-packages, leaves first:
//
//	entity       generational handles and the entity registry
//	accumulator  generic accumulation and diffing engine
//	signal       Signal values, filters, processors and the signal pipeline
//	detect       reference detectors producing raw signals
//	pulse        scheduling of Pulse calls
//	storage      snapshot persistence
//	monitor      HTTP status, charts, metrics and gRPC health
//
// A Sensor is not safe for concurrent use. Hosts that pulse from one
// goroutine and query from another serialise through a shared sync.Locker.
package sensor
