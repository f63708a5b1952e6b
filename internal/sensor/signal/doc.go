// Package signal specialises the accumulator engine for detection records.
//
// Responsibilities: the Signal value and its local Bounds, the Filter
// predicate bundle (ignore list and tag allow-list), the Processor chain
// that remaps raw detections onto the entity they should count against, and
// Pipeline, which wires all of it into an accumulator.Pipeline keyed by
// entity.Handle.
//
// Dependency rule: signal imports accumulator and entity only.
package signal
