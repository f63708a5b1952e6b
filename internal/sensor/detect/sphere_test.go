package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
)

func TestSphereDetect(t *testing.T) {
	t.Parallel()
	world := entity.NewRegistry()
	centre := world.Create(entity.Spec{Position: r3.Vec{X: 1}})
	half := world.Create(entity.Spec{Position: r3.Vec{X: 1, Y: 5}})
	edge := world.Create(entity.Spec{Position: r3.Vec{X: 11}})
	world.Create(entity.Spec{Position: r3.Vec{X: 12}})

	s := &Sphere{World: world, Origin: func() r3.Vec { return r3.Vec{X: 1} }, Radius: 10}
	got := s.Detect(nil)
	require.Len(t, got, 3)
	assert.Equal(t, signal.Signal{Object: centre, Strength: 1}, got[0])
	assert.Equal(t, half, got[1].Object)
	assert.InDelta(t, 0.5, got[1].Strength, 1e-9)
	assert.Equal(t, edge, got[2].Object)
	assert.InDelta(t, 0, got[2].Strength, 1e-9)
	assert.Equal(t, signal.Bounds{}, got[1].Shape, "shapes are points local to the entity")
}

func TestSphereDetectAppendsAndFilters(t *testing.T) {
	t.Parallel()
	world := entity.NewRegistry()
	a := world.Create(entity.Spec{Tag: "keep"})
	world.Create(entity.Spec{Tag: "skip"})

	s := &Sphere{
		World:      world,
		Radius:     1,
		Detectable: func(h entity.Handle) bool { return world.Tag(h) == "keep" },
	}
	prefix := []signal.Signal{{Strength: 7}}
	got := s.Detect(prefix)
	require.Len(t, got, 2)
	assert.Equal(t, 7.0, got[0].Strength)
	assert.Equal(t, a, got[1].Object)

	s.Radius = 0
	assert.Empty(t, s.Detect(nil))
}
