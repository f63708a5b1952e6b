package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
	"github.com/banshee-data/sensorkit/internal/timeutil"
)

func openTestStore(t *testing.T) (*SnapshotStore, *timeutil.MockClock) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	s.SetClock(clock)
	return s, clock
}

// populatedSensor returns a rigid-body sensor tracking one two-collider
// body and one standalone entity.
func populatedSensor(t *testing.T) (*sensor.Sensor, *entity.Registry) {
	t.Helper()
	world := entity.NewRegistry()
	body := world.Create(entity.Spec{Position: r3.Vec{X: 4}})
	left := world.Create(entity.Spec{Position: r3.Vec{X: 3}, Body: body})
	right := world.Create(entity.Spec{Position: r3.Vec{X: 5}, Body: body})
	solo := world.Create(entity.Spec{Position: r3.Vec{Y: 2}})

	s, err := sensor.New(sensor.Config{ID: "front", World: world, DetectionMode: sensor.RigidBodies})
	require.NoError(t, err)
	s.UpdateSignals([]signal.Signal{
		{Object: left, Strength: 0.3, Shape: signal.Bounds{Size: r3.Vec{X: 1, Y: 1, Z: 1}}},
		{Object: right, Strength: 0.6},
		{Object: solo, Strength: 0.8},
	})
	s.UpdateSignals([]signal.Signal{
		{Object: left, Strength: 0.4, Shape: signal.Bounds{Size: r3.Vec{X: 1, Y: 1, Z: 1}}},
		{Object: right, Strength: 0.6},
		{Object: solo, Strength: 0.8},
	})
	return s, world
}

func TestOpenMigrates(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	require.NoError(t, s.MigrateUp())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	store, clock := openTestStore(t)
	src, world := populatedSensor(t)
	ctx := context.Background()

	snap := src.Export()
	id, err := store.Save(ctx, src.ID(), src.Cycle(), snap)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "front", rec.SensorID)
	assert.Equal(t, 2, rec.Cycle)
	assert.Equal(t, 2, rec.Accumulators)
	assert.True(t, clock.Now().Equal(rec.CreatedAt))
	if diff := cmp.Diff(snap, rec.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-saved +loaded):\n%s", diff)
	}

	dst, err := sensor.New(sensor.Config{ID: "front", World: world, DetectionMode: sensor.RigidBodies})
	require.NoError(t, err)
	dst.Rebuild(rec.Snapshot)
	assert.Equal(t, src.GetSignals(nil, nil), dst.GetSignals(nil, nil))
}

func TestLatestAndList(t *testing.T) {
	t.Parallel()
	store, clock := openTestStore(t)
	src, _ := populatedSensor(t)
	ctx := context.Background()

	_, err := store.Latest(ctx, "front")
	require.True(t, errors.Is(err, ErrSnapshotNotFound))

	first, err := store.Save(ctx, "front", 1, src.Export())
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := store.Save(ctx, "front", 2, nil)
	require.NoError(t, err)
	_, err = store.Save(ctx, "rear", 9, src.Export())
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "front")
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Empty(t, latest.Snapshot)

	infos, err := store.List(ctx, "front")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, second, infos[0].ID)
	assert.Equal(t, first, infos[1].ID)
	assert.Equal(t, 2, infos[1].Accumulators)
}

func TestDeleteAndPrune(t *testing.T) {
	t.Parallel()
	store, clock := openTestStore(t)
	src, _ := populatedSensor(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := store.Save(ctx, "front", i, src.Export())
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Second)
	}

	require.NoError(t, store.Delete(ctx, ids[0]))
	assert.True(t, errors.Is(store.Delete(ctx, ids[0]), ErrSnapshotNotFound))
	_, err := store.Load(ctx, ids[0])
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	n, err := store.Prune(ctx, "front", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	infos, err := store.List(ctx, "front")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, ids[3], infos[0].ID)

	// Cascades removed the child rows.
	var inputs int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM sensor_snapshot_inputs`).Scan(&inputs))
	assert.Equal(t, 3, inputs)
}

func TestSaveValidates(t *testing.T) {
	t.Parallel()
	store, _ := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "", 0, nil)
	require.Error(t, err)

	bad := sensor.Snapshot{{Target: entity.NewHandle(1, 0), SourceKeys: []entity.Handle{1, 2}}}
	_, err = store.Save(ctx, "front", 0, bad)
	require.Error(t, err)

	infos, err := store.List(ctx, "front")
	require.NoError(t, err)
	assert.Empty(t, infos, "failed save leaves nothing behind")
}

func TestHandleEncodingKeepsHighBits(t *testing.T) {
	t.Parallel()
	h := entity.NewHandle(7, 0xFFFFFFFF)
	assert.Equal(t, h, handleFromDB(handleToDB(h)))
}
