package accumulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// level is a minimal Value: max wins, target is carried through.
type level struct {
	Obj   int
	Level int
}

func (l level) Equal(o level) bool { return l == o }

func (l level) Combine(o level) level {
	if o.Level > l.Level {
		l.Level = o.Level
	}
	return l
}

func TestAccumulatorUpdateAndOutput(t *testing.T) {
	t.Parallel()

	var a Accumulator[int, level]
	a.Spawn(9, 1)
	assert.Equal(t, 9, a.OutputTarget())
	assert.Equal(t, 0, a.Len())

	require.True(t, a.UpdateInput(1, level{Obj: 9, Level: 3}, 1))
	require.True(t, a.UpdateInput(2, level{Obj: 9, Level: 7}, 1))
	assert.Equal(t, level{Obj: 9, Level: 7}, a.Output())
	assert.Equal(t, []int{1, 2}, a.SourceKeys())
	assert.Len(t, a.Values(), 2)

	// Same cycle as spawn: nothing to snapshot.
	assert.Equal(t, level{}, a.PreviousOutput())

	assert.False(t, a.UpdateInput(2, level{Obj: 9, Level: 7}, 2), "equal value is a no-op")
	assert.Equal(t, 1, a.LastUpdateCycle(), "no-op must not take a snapshot")

	require.True(t, a.RemoveInput(2, 2))
	assert.Equal(t, level{Obj: 9, Level: 7}, a.PreviousOutput())
	assert.Equal(t, level{Obj: 9, Level: 3}, a.Output())
	assert.False(t, a.RemoveInput(2, 2))
}

func TestAccumulatorSnapshotOncePerCycle(t *testing.T) {
	t.Parallel()

	var a Accumulator[int, level]
	a.Spawn(1, 0)
	a.UpdateInput(1, level{Obj: 1, Level: 1}, 0)

	a.UpdateInput(1, level{Obj: 1, Level: 2}, 1)
	a.UpdateInput(1, level{Obj: 1, Level: 3}, 1)
	assert.Equal(t, level{Obj: 1, Level: 1}, a.PreviousOutput(), "snapshot is taken before the first change of the cycle")

	a.UpdateInput(1, level{Obj: 1, Level: 4}, 2)
	assert.Equal(t, level{Obj: 1, Level: 3}, a.PreviousOutput())
}

func TestAccumulatorStateRoundTrip(t *testing.T) {
	t.Parallel()

	var a Accumulator[int, level]
	a.Spawn(5, 0)
	a.UpdateInput(1, level{Obj: 5, Level: 2}, 0)
	a.UpdateInput(2, level{Obj: 5, Level: 6}, 3)

	var b Accumulator[int, level]
	b.Restore(a.State())
	assert.Equal(t, a.OutputTarget(), b.OutputTarget())
	assert.Equal(t, a.SourceKeys(), b.SourceKeys())
	assert.Equal(t, a.Output(), b.Output())
	assert.Equal(t, a.PreviousOutput(), b.PreviousOutput())
	assert.Equal(t, 3, b.LastUpdateCycle())

	// The exported state is a copy.
	s := a.State()
	s.SourceKeys[0] = 99
	assert.Equal(t, 1, a.SourceKeys()[0])
}

func TestAccumulatorDispose(t *testing.T) {
	t.Parallel()

	var a Accumulator[int, level]
	a.Spawn(5, 0)
	a.UpdateInput(1, level{Obj: 5, Level: 2}, 0)
	a.UpdateInput(1, level{Obj: 5, Level: 3}, 1)
	a.Dispose()

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, a.OutputTarget())
	assert.Equal(t, level{}, a.Output())
	assert.Equal(t, level{}, a.PreviousOutput())
}

func TestCacheReuse(t *testing.T) {
	t.Parallel()

	built, resets := 0, 0
	c := NewCache(
		func() *[]int { built++; s := make([]int, 0, 4); return &s },
		func(s *[]int) { resets++; *s = (*s)[:0] },
	)

	x := c.Get()
	*x = append(*x, 1, 2)
	c.Dispose(x)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, resets)

	y := c.Get()
	assert.Same(t, x, y)
	assert.Empty(t, *y)
	assert.Equal(t, 0, c.Len())

	c.Get()
	assert.Equal(t, 2, built)
}
