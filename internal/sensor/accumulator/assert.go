package accumulator

import (
	"fmt"
	"sync/atomic"

	"github.com/banshee-data/sensorkit/internal/monitoring"
)

var debugAssertions atomic.Bool

// SetDebugAssertions makes Assertf panic instead of logging. Tests and
// debug builds turn this on so remap-chain bugs fail loudly.
func SetDebugAssertions(enabled bool) {
	debugAssertions.Store(enabled)
}

// DebugAssertions reports whether invariant violations panic.
func DebugAssertions() bool {
	return debugAssertions.Load()
}

// Assertf reports an invariant violation when cond is false.
func Assertf(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if debugAssertions.Load() {
		panic("accumulator invariant violated: " + msg)
	}
	monitoring.Logf("[Accumulator] invariant violated: %s", msg)
}
