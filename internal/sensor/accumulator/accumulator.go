package accumulator

import "slices"

// Value is implemented by values an Accumulator can merge.
// Combine must be commutative and associative for the output to be
// independent of input order.
type Value[V any] interface {
	Equal(other V) bool
	Combine(other V) V
}

// Accumulator owns every raw input currently attributed to one target and
// lazily folds them into a single output.
//
// sourceKeys and values are index-correlated and never hold a duplicate key.
// The cached output is only trusted while dirty is false.
type Accumulator[K comparable, V Value[V]] struct {
	target     K
	sourceKeys []K
	values     []V

	output V
	dirty  bool

	// previousOutput is the output as it stood at the start of
	// lastUpdateCycle.
	previousOutput  V
	lastUpdateCycle int
}

// State is the persisted form of an Accumulator.
type State[K comparable, V any] struct {
	Target          K
	SourceKeys      []K
	Values          []V
	PreviousOutput  V
	LastUpdateCycle int
}

// Spawn resets the accumulator and assigns its output target. Stamping the
// spawn cycle means inputs added in the same cycle do not snapshot a
// previous output: a new target has none.
func (a *Accumulator[K, V]) Spawn(target K, cycle int) {
	a.Dispose()
	a.target = target
	a.lastUpdateCycle = cycle
}

// OutputTarget returns the target this accumulator is about.
func (a *Accumulator[K, V]) OutputTarget() K { return a.target }

// Len returns the number of raw inputs.
func (a *Accumulator[K, V]) Len() int { return len(a.sourceKeys) }

// SourceKeys returns the source keys feeding this accumulator. The slice is
// owned by the accumulator.
func (a *Accumulator[K, V]) SourceKeys() []K { return a.sourceKeys }

// Values returns the raw input values, index-correlated with SourceKeys.
func (a *Accumulator[K, V]) Values() []V { return a.values }

// LastUpdateCycle returns the cycle of the most recent state change.
func (a *Accumulator[K, V]) LastUpdateCycle() int { return a.lastUpdateCycle }

// PreviousOutput returns the output at the start of the last cycle that
// changed this accumulator.
func (a *Accumulator[K, V]) PreviousOutput() V { return a.previousOutput }

// UpdateInput upserts the value for key. It returns false, and leaves the
// accumulator untouched, when key already holds an equal value.
func (a *Accumulator[K, V]) UpdateInput(key K, value V, cycle int) bool {
	i := slices.Index(a.sourceKeys, key)
	if i >= 0 && a.values[i].Equal(value) {
		return false
	}

	a.snapshot(cycle)
	if i >= 0 {
		a.values[i] = value
	} else {
		a.sourceKeys = append(a.sourceKeys, key)
		a.values = append(a.values, value)
	}
	a.dirty = true
	return true
}

// RemoveInput drops the value for key and reports whether one was present.
func (a *Accumulator[K, V]) RemoveInput(key K, cycle int) bool {
	i := slices.Index(a.sourceKeys, key)
	if i < 0 {
		return false
	}

	a.snapshot(cycle)
	var zeroK K
	var zeroV V
	a.sourceKeys[i], a.values[i] = zeroK, zeroV
	a.sourceKeys = slices.Delete(a.sourceKeys, i, i+1)
	a.values = slices.Delete(a.values, i, i+1)
	a.dirty = true
	return true
}

// Output returns the combination of all inputs, folding left to right when
// the cache is dirty.
func (a *Accumulator[K, V]) Output() V {
	if !a.dirty {
		return a.output
	}

	var out V
	for i, v := range a.values {
		if i == 0 {
			out = v
			continue
		}
		out = out.Combine(v)
	}
	a.output = out
	a.dirty = false
	return a.output
}

// Dispose clears every input and the cached outputs. Called when the
// accumulator goes back to the pool.
func (a *Accumulator[K, V]) Dispose() {
	var zeroK K
	var zeroV V
	clear(a.sourceKeys)
	clear(a.values)
	a.sourceKeys = a.sourceKeys[:0]
	a.values = a.values[:0]
	a.target = zeroK
	a.output = zeroV
	a.previousOutput = zeroV
	a.dirty = false
	a.lastUpdateCycle = 0
}

// State copies the accumulator into its persisted form.
func (a *Accumulator[K, V]) State() State[K, V] {
	return State[K, V]{
		Target:          a.target,
		SourceKeys:      slices.Clone(a.sourceKeys),
		Values:          slices.Clone(a.values),
		PreviousOutput:  a.previousOutput,
		LastUpdateCycle: a.lastUpdateCycle,
	}
}

// Restore replaces the accumulator's contents with s.
func (a *Accumulator[K, V]) Restore(s State[K, V]) {
	Assertf(len(s.SourceKeys) == len(s.Values),
		"restored accumulator has %d keys but %d values", len(s.SourceKeys), len(s.Values))

	a.Dispose()
	a.target = s.Target
	n := min(len(s.SourceKeys), len(s.Values))
	for i := 0; i < n; i++ {
		key := s.SourceKeys[i]
		if slices.Contains(a.sourceKeys, key) {
			Assertf(false, "restored accumulator has duplicate source key %v", key)
			continue
		}
		a.sourceKeys = append(a.sourceKeys, key)
		a.values = append(a.values, s.Values[i])
	}
	a.previousOutput = s.PreviousOutput
	a.lastUpdateCycle = s.LastUpdateCycle
	a.dirty = true
}

func (a *Accumulator[K, V]) snapshot(cycle int) {
	if a.lastUpdateCycle == cycle {
		return
	}
	a.previousOutput = a.Output()
	a.lastUpdateCycle = cycle
}
