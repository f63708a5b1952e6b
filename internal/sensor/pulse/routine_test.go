package pulse

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensorkit/internal/timeutil"
)

type countingPulser struct {
	n atomic.Int64
}

func (p *countingPulser) Pulse() { p.n.Add(1) }

// trackingLocker records whether it is held.
type trackingLocker struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (l *trackingLocker) Lock()   { l.mu.Lock(); l.held.Store(true) }
func (l *trackingLocker) Unlock() { l.held.Store(false); l.mu.Unlock() }

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"manual", "each_cycle", "fixed_interval"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("sometimes")
	require.Error(t, err)
}

func TestRunManualReturnsImmediately(t *testing.T) {
	t.Parallel()
	p := &countingPulser{}
	r := NewRoutine(p, Manual, time.Second, time.Millisecond)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int64(0), p.n.Load())

	r.PulseNow()
	assert.Equal(t, int64(1), p.n.Load())
}

func TestRunRejectsBadSettings(t *testing.T) {
	t.Parallel()

	r := NewRoutine(&countingPulser{}, FixedInterval, 0, time.Second)
	require.Error(t, r.Run(context.Background()))

	r = NewRoutine(&countingPulser{}, Mode("bogus"), time.Second, time.Second)
	require.Error(t, r.Run(context.Background()))
}

func runWithMockClock(t *testing.T, r *Routine) (*timeutil.MockClock, context.CancelFunc, <-chan error) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	r.Clock = clock
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return clock.ActiveTickers() == 1 }, time.Second, time.Millisecond)
	return clock, cancel, done
}

func TestRunFixedInterval(t *testing.T) {
	t.Parallel()
	p := &countingPulser{}
	locker := &trackingLocker{}
	r := NewRoutine(p, FixedInterval, 2*time.Second, time.Millisecond)
	r.Locker = locker

	var heldDuringCallback atomic.Bool
	var lastAt atomic.Int64
	r.OnPulsed(func(at time.Time) {
		heldDuringCallback.Store(locker.held.Load())
		lastAt.Store(at.Unix())
	})

	clock, cancel, done := runWithMockClock(t, r)

	clock.Advance(time.Second)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return p.n.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(2), lastAt.Load())

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return p.n.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, heldDuringCallback.Load())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, clock.ActiveTickers())
}

func TestRunEachCycleUsesCycleInterval(t *testing.T) {
	t.Parallel()
	p := &countingPulser{}
	r := NewRoutine(p, EachCycle, time.Hour, 50*time.Millisecond)

	clock, cancel, done := runWithMockClock(t, r)
	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return p.n.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestSettersApplyOnNextRun(t *testing.T) {
	t.Parallel()
	r := NewRoutine(&countingPulser{}, EachCycle, time.Second, time.Second)
	r.SetMode(Manual)
	r.SetInterval(3 * time.Second)
	assert.Equal(t, Manual, r.Mode())
	require.NoError(t, r.Run(context.Background()))
}
