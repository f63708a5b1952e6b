// Package accumulator is the generic incremental aggregation engine behind
// every sensor.
//
// Responsibilities: per-target accumulation of raw inputs with lazy
// combination (Accumulator), free-list recycling of accumulators (Cache), and
// the cycle-based remapping and diffing engine that turns repeated input sets
// into add/change/remove/some/none notifications (Pipeline).
//
// The engine knows nothing about signals; value-specific behaviour arrives
// through the Value constraint and the Hooks strategy. A Pipeline is
// single-threaded and synchronous: all mutation and all observer callbacks
// happen inside the caller's Update* call. Calling an Update* method from an
// observer callback is not supported; such calls are rejected.
package accumulator
