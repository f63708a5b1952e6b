package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/detect"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/storage/sqlite"
)

func newSimSensor(t *testing.T) (*simulation, *sensor.Sensor) {
	t.Helper()
	world := entity.NewRegistry()
	sim := newSimulation(world, 4, 10)
	s, err := sensor.New(sensor.Config{
		ID:       "sim",
		World:    world,
		Detector: &detect.Sphere{World: world, Radius: 10, Detectable: sim.isCollider},
	})
	require.NoError(t, err)
	sim.sensor = s
	return sim, s
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, empty := newSimSensor(t)
	require.NoError(t, restore(store, empty))
	assert.Equal(t, 0, empty.Count())
	assert.Equal(t, 0, empty.Cycle())

	sim, src := newSimSensor(t)
	sim.Pulse()
	sim.Pulse()
	require.NoError(t, persist(store, src.ID(), src.Cycle(), src.Export()))

	// A second process recreates the world in the same order.
	_, dst := newSimSensor(t)
	require.NoError(t, restore(store, dst))
	assert.Equal(t, src.Count(), dst.Count())
	assert.Equal(t, src.GetDetections(nil, nil), dst.GetDetections(nil, nil))
}

func TestRestoreReportsStoreErrors(t *testing.T) {
	t.Parallel()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, s := newSimSensor(t)
	assert.Error(t, restore(store, s))
}
