package entity

import "fmt"

// Handle encodes a 32-bit slot index in the lower bits and a 32-bit
// generation in the upper bits. Destroying an entity bumps the slot's
// generation, so every handle issued before the destroy stops being Alive.
// The zero Handle is the null target.
type Handle uint64

// None is the null target.
const None Handle = 0

// NewHandle packs a slot index and generation.
func NewHandle(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == None }

func (h Handle) String() string {
	if h.IsZero() {
		return "entity(none)"
	}
	return fmt.Sprintf("entity(%d@%d)", h.Index(), h.Generation())
}
