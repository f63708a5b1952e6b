// Package entity owns the target identities the sensor pipeline reasons about.
//
// Responsibilities: generational handle allocation, liveness checks, and the
// per-entity attributes the signal processors consult (world position, tag,
// owning body, signal proxy). Key types: Handle, Registry, Lookup.
//
// Dependency rule: entity is a leaf; it must not import any other sensor
// package.
package entity
