package entity

import "gonum.org/v1/gonum/spatial/r3"

// Lookup is the read side of a Registry. Signal processors, filters and
// sensors accept a Lookup so they can run against any entity source.
type Lookup interface {
	// Alive reports whether h still refers to a live entity.
	Alive(h Handle) bool
	// Position returns the world position of h, or the zero vector if h is dead.
	Position(h Handle) r3.Vec
	// Tag returns the tag of h, or "" if h is dead.
	Tag(h Handle) string
	// Body returns the owning body of h, or None.
	Body(h Handle) Handle
	// Proxy returns the signal proxy of h, or None.
	Proxy(h Handle) Handle
}

// Spec describes an entity at creation time.
type Spec struct {
	Position r3.Vec
	Tag      string
	Body     Handle // owning body, e.g. the rigid body a collider is attached to
	Proxy    Handle // entity that receives this entity's signals
}

type slot struct {
	generation uint32
	alive      bool
	position   r3.Vec
	tag        string
	body       Handle
	proxy      Handle
}

// Registry manages entity allocation with generational indices and a free
// list of slot indices. Slot 0 is reserved so that no live entity ever has
// the zero handle. A Registry is not safe for concurrent use.
type Registry struct {
	slots    []slot
	freeList []uint32
	live     int
	order    []Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots:    make([]slot, 1, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Create allocates a new entity. Recycled slots keep their bumped generation.
func (r *Registry) Create(spec Spec) Handle {
	var idx uint32
	if n := len(r.freeList); n > 0 {
		idx = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{generation: 1})
	}

	s := &r.slots[idx]
	s.alive = true
	s.position = spec.Position
	s.tag = spec.Tag
	s.body = spec.Body
	s.proxy = spec.Proxy
	r.live++

	h := NewHandle(idx, s.generation)
	r.order = append(r.order, h)
	return h
}

// Destroy invalidates h. Destroying a dead or stale handle is a no-op.
func (r *Registry) Destroy(h Handle) {
	s := r.get(h)
	if s == nil {
		return
	}
	*s = slot{generation: s.generation + 1}
	if s.generation == 0 {
		s.generation = 1 // never hand out generation 0 after wraparound
	}
	r.freeList = append(r.freeList, h.Index())
	r.live--
}

// Alive reports whether h refers to a live entity.
func (r *Registry) Alive(h Handle) bool {
	return r.get(h) != nil
}

// Len returns the number of live entities.
func (r *Registry) Len() int { return r.live }

// Position returns the world position of h.
func (r *Registry) Position(h Handle) r3.Vec {
	if s := r.get(h); s != nil {
		return s.position
	}
	return r3.Vec{}
}

// SetPosition moves h. Dead handles are ignored.
func (r *Registry) SetPosition(h Handle, p r3.Vec) {
	if s := r.get(h); s != nil {
		s.position = p
	}
}

// Tag returns the tag of h.
func (r *Registry) Tag(h Handle) string {
	if s := r.get(h); s != nil {
		return s.tag
	}
	return ""
}

// SetTag retags h.
func (r *Registry) SetTag(h Handle, tag string) {
	if s := r.get(h); s != nil {
		s.tag = tag
	}
}

// Body returns the owning body of h.
func (r *Registry) Body(h Handle) Handle {
	if s := r.get(h); s != nil {
		return s.body
	}
	return None
}

// SetBody attaches h to a new owning body (None detaches it).
func (r *Registry) SetBody(h, body Handle) {
	if s := r.get(h); s != nil {
		s.body = body
	}
}

// Proxy returns the signal proxy of h.
func (r *Registry) Proxy(h Handle) Handle {
	if s := r.get(h); s != nil {
		return s.proxy
	}
	return None
}

// SetProxy redirects signals about h to proxy (None clears it).
func (r *Registry) SetProxy(h, proxy Handle) {
	if s := r.get(h); s != nil {
		s.proxy = proxy
	}
}

// Each calls fn for every live entity in creation order.
func (r *Registry) Each(fn func(Handle)) {
	kept := r.order[:0]
	for _, h := range r.order {
		if r.get(h) == nil {
			continue
		}
		kept = append(kept, h)
	}
	r.order = kept
	for _, h := range r.order {
		fn(h)
	}
}

func (r *Registry) get(h Handle) *slot {
	idx := h.Index()
	if idx == 0 || int(idx) >= len(r.slots) {
		return nil
	}
	s := &r.slots[idx]
	if !s.alive || s.generation != h.Generation() {
		return nil
	}
	return s
}
