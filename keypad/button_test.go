package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/core"
	"segpad/sim"
)

const buttonPin core.GPIOPin = 15

func TestButtonPolling(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	b, err := NewButton(bench, buttonPin, true, 0)
	require.NoError(t, err)

	assert.False(t, b.Pressed())

	bench.Drive(buttonPin, false)
	assert.True(t, b.Down())
	assert.True(t, b.Pressed())
	assert.False(t, b.Pressed(), "held is not a new press")

	bench.Drive(buttonPin, true)
	assert.False(t, b.Pressed())

	core.AdvanceTime(100000) // bounce inside the window
	bench.Drive(buttonPin, false)
	assert.False(t, b.Pressed())

	bench.Drive(buttonPin, true)
	b.Pressed()
	core.AdvanceTime(200000)
	bench.Drive(buttonPin, false)
	assert.True(t, b.Pressed())
}

func TestButtonActiveHigh(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	b, err := NewButton(bench, buttonPin, false, 0)
	require.NoError(t, err)

	assert.False(t, b.Down(), "pull-down reads released")
	bench.Drive(buttonPin, true)
	assert.True(t, b.Pressed())
}

func TestButtonInterrupt(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	b, err := NewButton(bench, buttonPin, true, 0)
	require.NoError(t, err)
	require.NoError(t, b.Attach(bench))

	bench.Drive(buttonPin, false)
	bench.Drive(buttonPin, true)
	bench.Drive(buttonPin, false) // bounce
	bench.Drive(buttonPin, true)

	assert.True(t, b.Pressed())
	assert.False(t, b.Pressed(), "one latched press")

	core.AdvanceTime(DefaultDebounce)
	bench.Drive(buttonPin, false)
	assert.True(t, b.Pressed())
}
