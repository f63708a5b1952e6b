package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("[Sensor] %d outputs", 3)
	assert.Equal(t, []string{"[Sensor] 3 outputs"}, got)

	// nil installs a no-op logger
	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, got, 1)
}

func TestDebugf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	SetDebug(false)
	Debugf("cycle %d", 1)
	assert.Empty(t, got)
	assert.False(t, DebugEnabled())

	SetDebug(true)
	Debugf("cycle %d", 2)
	assert.Equal(t, []string{"[debug] cycle 2"}, got)
	assert.True(t, DebugEnabled())
}
