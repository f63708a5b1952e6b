// Package pulse schedules Pulse calls on a sensor.
package pulse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/sensorkit/internal/monitoring"
	"github.com/banshee-data/sensorkit/internal/timeutil"
)

// Mode selects when a Routine pulses.
type Mode string

const (
	// Manual never pulses on its own; the host calls PulseNow.
	Manual Mode = "manual"
	// EachCycle pulses once per host cycle.
	EachCycle Mode = "each_cycle"
	// FixedInterval pulses every Interval.
	FixedInterval Mode = "fixed_interval"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Manual, EachCycle, FixedInterval:
		return m, nil
	}
	return "", fmt.Errorf("unknown pulse mode %q", s)
}

// Pulser is anything that can run one detection cycle.
type Pulser interface {
	Pulse()
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// Routine drives a Pulser from a clock.
type Routine struct {
	Pulser Pulser
	Clock  timeutil.Clock
	// Locker is held for the duration of each pulse and its callbacks.
	Locker sync.Locker

	mu            sync.Mutex
	mode          Mode
	interval      time.Duration
	cycleInterval time.Duration
	onPulsed      []func(at time.Time)
}

// NewRoutine returns a routine pulsing p every cycleInterval in EachCycle
// mode or every interval in FixedInterval mode.
func NewRoutine(p Pulser, mode Mode, interval, cycleInterval time.Duration) *Routine {
	return &Routine{
		Pulser:        p,
		mode:          mode,
		interval:      interval,
		cycleInterval: cycleInterval,
	}
}

// Mode returns the configured mode.
func (r *Routine) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode changes the mode. It takes effect at the next Run.
func (r *Routine) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

// SetInterval changes the fixed pulse interval. It takes effect at the
// next Run.
func (r *Routine) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
}

// OnPulsed registers fn to run after every pulse, under Locker.
func (r *Routine) OnPulsed(fn func(at time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPulsed = append(r.onPulsed, fn)
}

// PulseNow pulses immediately regardless of mode.
func (r *Routine) PulseNow() {
	r.pulse(r.clock().Now())
}

// Run pulses until ctx is cancelled. In Manual mode it returns at once.
func (r *Routine) Run(ctx context.Context) error {
	r.mu.Lock()
	mode := r.mode
	period := r.interval
	if mode == EachCycle {
		period = r.cycleInterval
	}
	r.mu.Unlock()

	switch mode {
	case Manual:
		monitoring.Debugf("[Pulse] manual mode, not scheduling pulses")
		return nil
	case EachCycle, FixedInterval:
	default:
		return fmt.Errorf("unknown pulse mode %q", mode)
	}
	if period <= 0 {
		return fmt.Errorf("pulse mode %s needs a positive interval, got %v", mode, period)
	}

	ticker := r.clock().NewTicker(period)
	defer ticker.Stop()
	monitoring.Logf("[Pulse] pulsing in %s mode every %v", mode, period)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[Pulse] stopped")
			return nil
		case at := <-ticker.C():
			r.pulse(at)
		}
	}
}

func (r *Routine) pulse(at time.Time) {
	r.mu.Lock()
	callbacks := r.onPulsed
	r.mu.Unlock()

	l := r.Locker
	if l == nil {
		l = noopLocker{}
	}
	l.Lock()
	defer l.Unlock()

	r.Pulser.Pulse()
	for _, fn := range callbacks {
		fn(at)
	}
}

func (r *Routine) clock() timeutil.Clock {
	if r.Clock == nil {
		return timeutil.RealClock{}
	}
	return r.Clock
}
