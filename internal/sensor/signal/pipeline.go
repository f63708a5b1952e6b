package signal

import (
	"github.com/banshee-data/sensorkit/internal/sensor/accumulator"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
)

// Pipeline is an accumulator pipeline over signals. Raw signals are keyed by
// the collider that produced them; outputs are keyed by the entity the
// processor chain resolves them to.
type Pipeline struct {
	*accumulator.Pipeline[entity.Handle, Signal]

	world      entity.Lookup
	filter     *Filter
	processors []Processor
}

// NewPipeline builds a pipeline over world. A nil filter passes everything.
func NewPipeline(world entity.Lookup, filter *Filter, processors ...Processor) *Pipeline {
	if filter == nil {
		filter = NewFilter()
	}
	p := &Pipeline{
		world:      world,
		filter:     filter,
		processors: processors,
	}
	p.Pipeline = accumulator.NewPipeline[entity.Handle, Signal](signalHooks{p})
	return p
}

// World returns the entity source the pipeline resolves handles against.
func (p *Pipeline) World() entity.Lookup { return p.world }

// Filter returns the live filter. Changes apply from the next update.
func (p *Pipeline) Filter() *Filter { return p.filter }

// AddProcessor appends proc to the chain.
func (p *Pipeline) AddProcessor(proc Processor) {
	p.processors = append(p.processors, proc)
}

// Processors returns the chain in registration order.
func (p *Pipeline) Processors() []Processor { return p.processors }

func (p *Pipeline) process(raw Signal) (Signal, bool) {
	if !p.filter.TestInput(raw.Object, p.world.Body(raw.Object)) {
		return raw, false
	}

	s := raw
	for _, proc := range p.processors {
		var ok bool
		if s, ok = proc.Process(s); !ok {
			return raw, false
		}
		if !p.world.Alive(s.Object) {
			return raw, false
		}
	}

	if !p.filter.TestInput(s.Object, p.world.Body(s.Object)) {
		return raw, false
	}
	if !p.filter.IsPassingTagFilter(p.world, s.Object) {
		return raw, false
	}
	return s, true
}

type signalHooks struct{ p *Pipeline }

func (h signalHooks) Target(s Signal) entity.Handle   { return s.Object }
func (h signalHooks) Valid(t entity.Handle) bool      { return h.p.world.Alive(t) }
func (h signalHooks) Process(s Signal) (Signal, bool) { return h.p.process(s) }
