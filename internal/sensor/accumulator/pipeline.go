package accumulator

import (
	"fmt"
	"slices"
)

// Hooks supplies the value-specific behaviour of a Pipeline.
type Hooks[K comparable, V any] interface {
	// Target returns the key a value is about.
	Target(v V) K
	// Valid reports whether k still refers to something live.
	Valid(k K) bool
	// Process transforms a raw value. Returning false rejects it.
	Process(v V) (V, bool)
}

// Pipeline maps raw inputs (keyed by their own target) through Hooks.Process
// onto output accumulators (keyed by the processed target), and reports how
// the output set differs from the previous cycle.
//
// Every key in inputMap is a source key of the accumulator it maps to, and
// every accumulator in outputMap is keyed by its own output target.
type Pipeline[K comparable, V Value[V]] struct {
	hooks Hooks[K, V]
	cache *Cache[*Accumulator[K, V]]

	inputMap  map[K]*Accumulator[K, V]
	outputMap map[K]*Accumulator[K, V]
	// outputs holds outputMap's accumulators in target creation order.
	outputs []*Accumulator[K, V]

	added    accSet[K, V]
	changed  accSet[K, V]
	removed  []V
	toRemove map[K]struct{}
	scratch  []K

	cycle       int
	prevCount   int
	playing     bool
	subscribers observers[V]
}

// NewPipeline returns an empty pipeline driven by hooks.
func NewPipeline[K comparable, V Value[V]](hooks Hooks[K, V]) *Pipeline[K, V] {
	return &Pipeline[K, V]{
		hooks: hooks,
		cache: NewCache(
			func() *Accumulator[K, V] { return &Accumulator[K, V]{} },
			func(a *Accumulator[K, V]) { a.Dispose() },
		),
		inputMap:  make(map[K]*Accumulator[K, V]),
		outputMap: make(map[K]*Accumulator[K, V]),
		added:     newAccSet[K, V](),
		changed:   newAccSet[K, V](),
		toRemove:  make(map[K]struct{}),
	}
}

// Subscribe registers obs. Observers are invoked in subscription order.
func (p *Pipeline[K, V]) Subscribe(obs Observer[V]) (unsubscribe func()) {
	return p.subscribers.subscribe(obs)
}

// Cycle returns the number of completed update cycles.
func (p *Pipeline[K, V]) Cycle() int { return p.cycle }

// PooledAccumulators returns the number of accumulators waiting for reuse.
func (p *Pipeline[K, V]) PooledAccumulators() int { return p.cache.Len() }

// UpdateAllInputs replaces the full raw input set. Inputs missing from next
// but mapped from a previous cycle are removed. One event batch plays at the
// end.
func (p *Pipeline[K, V]) UpdateAllInputs(next []V) {
	if !p.begin("UpdateAllInputs") {
		return
	}

	clear(p.toRemove)
	for k := range p.inputMap {
		p.toRemove[k] = struct{}{}
	}
	for _, v := range next {
		delete(p.toRemove, p.hooks.Target(v))
		p.updateInput(v)
	}

	// Walk the outputs rather than the map so removal events come out in a
	// stable order.
	p.scratch = p.scratch[:0]
	for _, acc := range p.outputs {
		for _, k := range acc.sourceKeys {
			if _, ok := p.toRemove[k]; ok {
				p.scratch = append(p.scratch, k)
			}
		}
	}
	Assertf(len(p.scratch) == len(p.toRemove),
		"%d stale inputs but only %d reachable from outputs", len(p.toRemove), len(p.scratch))
	for _, k := range p.scratch {
		p.removeInput(k)
	}
	clear(p.toRemove)

	p.playEvents()
}

// UpdateInput adds or refreshes a single raw input and plays one event batch.
func (p *Pipeline[K, V]) UpdateInput(v V) {
	if !p.begin("UpdateInput") {
		return
	}
	p.updateInput(v)
	p.playEvents()
}

// RemoveInput drops a single raw input and plays one event batch.
func (p *Pipeline[K, V]) RemoveInput(key K) {
	if !p.begin("RemoveInput") {
		return
	}
	p.removeInput(key)
	p.playEvents()
}

// Output returns the combined output for target. Destroyed targets report
// false even if they are still mapped.
func (p *Pipeline[K, V]) Output(target K) (V, bool) {
	acc, ok := p.outputMap[target]
	if !ok || !p.hooks.Valid(target) {
		var zero V
		return zero, false
	}
	return acc.Output(), true
}

// Contains reports whether target currently has a live output.
func (p *Pipeline[K, V]) Contains(target K) bool {
	_, ok := p.Output(target)
	return ok
}

// IsInput reports whether key is currently mapped as a raw input.
func (p *Pipeline[K, V]) IsInput(key K) bool {
	_, ok := p.inputMap[key]
	return ok
}

// InputKeys appends the source keys feeding target to into.
func (p *Pipeline[K, V]) InputKeys(target K, into []K) []K {
	if acc, ok := p.outputMap[target]; ok {
		into = append(into, acc.sourceKeys...)
	}
	return into
}

// Outputs appends every live output to into, in target creation order.
func (p *Pipeline[K, V]) Outputs(into []V) []V {
	for _, acc := range p.outputs {
		if p.hooks.Valid(acc.target) {
			into = append(into, acc.Output())
		}
	}
	return into
}

// Targets appends every live output target to into, in creation order.
func (p *Pipeline[K, V]) Targets(into []K) []K {
	for _, acc := range p.outputs {
		if p.hooks.Valid(acc.target) {
			into = append(into, acc.target)
		}
	}
	return into
}

// Count returns the number of live outputs.
func (p *Pipeline[K, V]) Count() int {
	n := 0
	for _, acc := range p.outputs {
		if p.hooks.Valid(acc.target) {
			n++
		}
	}
	return n
}

// Export returns the persisted form of every accumulator, in target
// creation order.
func (p *Pipeline[K, V]) Export() []State[K, V] {
	out := make([]State[K, V], 0, len(p.outputs))
	seen := make(map[*Accumulator[K, V]]struct{}, len(p.outputs))
	for _, acc := range p.outputs {
		seen[acc] = struct{}{}
		out = append(out, acc.State())
	}
	for k, acc := range p.inputMap {
		if _, ok := seen[acc]; !ok {
			Assertf(false, "input %v maps to an accumulator missing from the output map", k)
			seen[acc] = struct{}{}
			out = append(out, acc.State())
		}
	}
	return out
}

// Rebuild replaces all pipeline state with states. No events fire; the
// some/none baseline becomes the restored live output count.
func (p *Pipeline[K, V]) Rebuild(states []State[K, V]) {
	if !p.begin("Rebuild") {
		return
	}

	for _, acc := range p.outputs {
		p.cache.Dispose(acc)
	}
	clear(p.inputMap)
	clear(p.outputMap)
	clear(p.outputs)
	p.outputs = p.outputs[:0]
	p.added.reset()
	p.changed.reset()
	clear(p.removed)
	p.removed = p.removed[:0]

	latest := p.cycle - 1
	for _, s := range states {
		if _, dup := p.outputMap[s.Target]; dup {
			Assertf(false, "rebuild list holds target %v twice", s.Target)
			continue
		}
		if min(len(s.SourceKeys), len(s.Values)) == 0 {
			Assertf(false, "rebuild list holds target %v with no inputs", s.Target)
			continue
		}
		acc := p.cache.Get()
		acc.Restore(s)
		p.outputMap[acc.target] = acc
		p.outputs = append(p.outputs, acc)
		for _, k := range acc.sourceKeys {
			Assertf(p.inputMap[k] == nil, "rebuild list maps input %v twice", k)
			p.inputMap[k] = acc
		}
		latest = max(latest, acc.lastUpdateCycle)
	}

	// Restored accumulators must take a fresh snapshot on their next change.
	p.cycle = latest + 1
	p.prevCount = p.Count()
}

// CheckInvariants verifies the map bookkeeping and returns the first
// inconsistency found.
func (p *Pipeline[K, V]) CheckInvariants() error {
	if len(p.outputs) != len(p.outputMap) {
		return fmt.Errorf("output order holds %d accumulators, output map %d", len(p.outputs), len(p.outputMap))
	}
	for target, acc := range p.outputMap {
		if acc.target != target {
			return fmt.Errorf("output map key %v holds accumulator for %v", target, acc.target)
		}
		if acc.Len() == 0 {
			return fmt.Errorf("output %v has no inputs", target)
		}
		if len(acc.sourceKeys) != len(acc.values) {
			return fmt.Errorf("output %v has %d keys but %d values", target, len(acc.sourceKeys), len(acc.values))
		}
		for _, k := range acc.sourceKeys {
			if p.inputMap[k] != acc {
				return fmt.Errorf("source key %v of output %v is not mapped back to it", k, target)
			}
		}
	}
	for k, acc := range p.inputMap {
		if !slices.Contains(acc.sourceKeys, k) {
			return fmt.Errorf("input %v maps to output %v which does not hold it", k, acc.target)
		}
		if p.outputMap[acc.target] != acc {
			return fmt.Errorf("input %v maps to output %v which is not in the output map", k, acc.target)
		}
	}
	return nil
}

func (p *Pipeline[K, V]) begin(op string) bool {
	if p.playing {
		Assertf(false, "%s called while events are playing", op)
		return false
	}
	return true
}

func (p *Pipeline[K, V]) updateInput(v V) {
	key := p.hooks.Target(v)
	if !p.hooks.Valid(key) {
		// A raw input whose own object is gone counts as lost.
		p.removeInput(key)
		return
	}

	processed, ok := p.hooks.Process(v)
	if !ok || !p.hooks.Valid(p.hooks.Target(processed)) {
		p.removeInput(key)
		return
	}
	p.updateProcessed(key, processed)
}

func (p *Pipeline[K, V]) removeInput(key K) {
	acc, ok := p.inputMap[key]
	if !ok {
		return
	}
	delete(p.inputMap, key)
	p.removeFromMap(key, acc)
}

func (p *Pipeline[K, V]) updateProcessed(key K, processed V) {
	target := p.hooks.Target(processed)
	if acc, ok := p.inputMap[key]; ok {
		if acc.target == target {
			if acc.UpdateInput(key, processed, p.cycle) {
				p.markChanged(acc)
			}
			return
		}
		// The input now resolves to a different output.
		delete(p.inputMap, key)
		p.removeFromMap(key, acc)
	}
	p.newProcessed(key, processed)
}

func (p *Pipeline[K, V]) newProcessed(key K, processed V) {
	target := p.hooks.Target(processed)
	acc, ok := p.outputMap[target]
	if !ok {
		acc = p.cache.Get()
		acc.Spawn(target, p.cycle)
		p.outputMap[target] = acc
		p.outputs = append(p.outputs, acc)
		p.added.add(acc)
	}
	p.inputMap[key] = acc
	// A source joining an existing target is not reported; the new value
	// shows up in the next change or in Output.
	acc.UpdateInput(key, processed, p.cycle)
}

func (p *Pipeline[K, V]) removeFromMap(key K, acc *Accumulator[K, V]) {
	removed := acc.RemoveInput(key, p.cycle)
	Assertf(removed, "input %v was mapped to output %v but not held by it", key, acc.target)
	if acc.Len() > 0 {
		if removed {
			p.markChanged(acc)
		}
		return
	}

	p.changed.remove(acc)
	if p.added.has(acc) {
		// Created and emptied within one cycle: nothing to report.
		p.added.remove(acc)
	} else {
		p.removed = append(p.removed, acc.PreviousOutput())
	}
	delete(p.outputMap, acc.target)
	if i := slices.Index(p.outputs, acc); i >= 0 {
		p.outputs[i] = nil
		p.outputs = slices.Delete(p.outputs, i, i+1)
	}
	p.cache.Dispose(acc)
}

func (p *Pipeline[K, V]) markChanged(acc *Accumulator[K, V]) {
	if p.added.has(acc) {
		return
	}
	p.changed.add(acc)
}

func (p *Pipeline[K, V]) playEvents() {
	p.playing = true
	defer func() { p.playing = false }()

	for _, acc := range p.changed.items {
		prev := acc.PreviousOutput()
		if p.hooks.Valid(p.hooks.Target(prev)) {
			p.subscribers.changed(prev, acc.Output())
		}
	}
	for _, v := range p.removed {
		p.subscribers.removed(v)
	}
	for _, acc := range p.added.items {
		p.subscribers.added(acc.Output())
	}

	count := p.Count()
	switch {
	case p.prevCount == 0 && count > 0:
		p.subscribers.some()
	case p.prevCount > 0 && count == 0:
		p.subscribers.none()
	}
	p.prevCount = count

	p.added.reset()
	p.changed.reset()
	clear(p.removed)
	p.removed = p.removed[:0]
	p.cycle++
}

// accSet is an insertion-ordered set of accumulators.
type accSet[K comparable, V Value[V]] struct {
	items []*Accumulator[K, V]
	index map[*Accumulator[K, V]]struct{}
}

func newAccSet[K comparable, V Value[V]]() accSet[K, V] {
	return accSet[K, V]{index: make(map[*Accumulator[K, V]]struct{})}
}

func (s *accSet[K, V]) add(acc *Accumulator[K, V]) {
	if _, ok := s.index[acc]; ok {
		return
	}
	s.index[acc] = struct{}{}
	s.items = append(s.items, acc)
}

func (s *accSet[K, V]) has(acc *Accumulator[K, V]) bool {
	_, ok := s.index[acc]
	return ok
}

func (s *accSet[K, V]) remove(acc *Accumulator[K, V]) {
	if _, ok := s.index[acc]; !ok {
		return
	}
	delete(s.index, acc)
	if i := slices.Index(s.items, acc); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
}

func (s *accSet[K, V]) reset() {
	clear(s.index)
	clear(s.items)
	s.items = s.items[:0]
}
