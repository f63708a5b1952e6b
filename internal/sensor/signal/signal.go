package signal

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
)

// Bounds is an axis-aligned box expressed relative to an entity's world
// position, so it stays valid while the entity moves.
type Bounds struct {
	Center r3.Vec
	Size   r3.Vec
}

// Box returns the min/max corners of b.
func (b Bounds) Box() r3.Box {
	half := r3.Scale(0.5, b.Size)
	return r3.Box{Min: r3.Sub(b.Center, half), Max: r3.Add(b.Center, half)}
}

// BoundsFromBox converts min/max corners back to centre/size form.
func BoundsFromBox(box r3.Box) Bounds {
	return Bounds{
		Center: r3.Scale(0.5, r3.Add(box.Min, box.Max)),
		Size:   r3.Sub(box.Max, box.Min),
	}
}

// Translate shifts b by offset.
func (b Bounds) Translate(offset r3.Vec) Bounds {
	b.Center = r3.Add(b.Center, offset)
	return b
}

// Union returns the smallest box enclosing both b and o. Both must be in the
// same frame.
func (b Bounds) Union(o Bounds) Bounds {
	x, y := b.Box(), o.Box()
	return BoundsFromBox(r3.Box{
		Min: r3.Vec{X: math.Min(x.Min.X, y.Min.X), Y: math.Min(x.Min.Y, y.Min.Y), Z: math.Min(x.Min.Z, y.Min.Z)},
		Max: r3.Vec{X: math.Max(x.Max.X, y.Max.X), Y: math.Max(x.Max.Y, y.Max.Y), Z: math.Max(x.Max.Z, y.Max.Z)},
	})
}

// Signal is one detection record about Object.
type Signal struct {
	Object   entity.Handle
	Strength float64
	// Shape is local to Object's world position.
	Shape Bounds
}

// Equal reports whether object, strength and shape all match.
func (s Signal) Equal(o Signal) bool { return s == o }

// Combine merges two signals about the same object: the strongest strength
// and the box enclosing both shapes, which share the object's frame.
func (s Signal) Combine(o Signal) Signal {
	return Signal{
		Object:   s.Object,
		Strength: math.Max(s.Strength, o.Strength),
		Shape:    s.Shape.Union(o.Shape),
	}
}

// WorldBounds returns the shape in world space.
func (s Signal) WorldBounds(world entity.Lookup) Bounds {
	return s.Shape.Translate(world.Position(s.Object))
}

// DistanceTo returns the distance from point to the world-space centre of
// the shape.
func (s Signal) DistanceTo(world entity.Lookup, point r3.Vec) float64 {
	return r3.Norm(r3.Sub(s.WorldBounds(world).Center, point))
}

// Rebase re-expresses s about target, keeping its world-space shape.
func Rebase(world entity.Lookup, s Signal, target entity.Handle) Signal {
	wb := s.WorldBounds(world)
	s.Object = target
	s.Shape = wb.Translate(r3.Scale(-1, world.Position(target)))
	return s
}
