package entity

// Components is a typed store of per-entity data keyed by Handle. It does not
// track liveness; callers pair it with a Lookup and treat dead handles as
// missing.
type Components[C any] struct {
	data map[Handle]C
}

// NewComponents returns an empty store.
func NewComponents[C any]() *Components[C] {
	return &Components[C]{data: make(map[Handle]C)}
}

func (s *Components[C]) Set(h Handle, c C) { s.data[h] = c }

func (s *Components[C]) Get(h Handle) (C, bool) {
	c, ok := s.data[h]
	return c, ok
}

func (s *Components[C]) Remove(h Handle) { delete(s.data, h) }
func (s *Components[C]) Len() int        { return len(s.data) }
