package accumulator

// Observer receives pipeline notifications. Nil fields are skipped.
type Observer[V any] struct {
	OnAdd    func(v V)
	OnChange func(prev, next V)
	OnRemove func(v V)
	OnSome   func()
	OnNone   func()
}

type subscription[V any] struct {
	id  uint64
	obs Observer[V]
}

type observers[V any] struct {
	nextID uint64
	subs   []subscription[V]
}

func (o *observers[V]) subscribe(obs Observer[V]) func() {
	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscription[V]{id: id, obs: obs})
	return func() {
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshot returns the current subscriber list so callbacks may unsubscribe
// while a dispatch is in progress.
func (o *observers[V]) snapshot() []subscription[V] {
	return o.subs
}

func (o *observers[V]) added(v V) {
	for _, s := range o.snapshot() {
		if s.obs.OnAdd != nil {
			s.obs.OnAdd(v)
		}
	}
}

func (o *observers[V]) changed(prev, next V) {
	for _, s := range o.snapshot() {
		if s.obs.OnChange != nil {
			s.obs.OnChange(prev, next)
		}
	}
}

func (o *observers[V]) removed(v V) {
	for _, s := range o.snapshot() {
		if s.obs.OnRemove != nil {
			s.obs.OnRemove(v)
		}
	}
}

func (o *observers[V]) some() {
	for _, s := range o.snapshot() {
		if s.obs.OnSome != nil {
			s.obs.OnSome()
		}
	}
}

func (o *observers[V]) none() {
	for _, s := range o.snapshot() {
		if s.obs.OnNone != nil {
			s.obs.OnNone()
		}
	}
}
