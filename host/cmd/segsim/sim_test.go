package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/config"
	"segpad/core"
)

func newSim(t *testing.T, b *config.Board, telemetry bool) (*Sim, *bytes.Buffer) {
	t.Helper()
	core.SetClockSource(nil)
	core.SetTime(0)
	core.ResetTimers()
	core.ClearTrace()

	out := &bytes.Buffer{}
	s, err := NewSim(b, out, telemetry, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
		core.ResetTimers()
	})
	return s, out
}

func TestTypeAndShow(t *testing.T) {
	s, out := newSim(t, config.Default(), false)

	require.NoError(t, s.Exec(`type "12"`))
	buffer, lit := s.Display()
	assert.Equal(t, "222", buffer)
	assert.Equal(t, "222", lit)

	require.NoError(t, s.Exec("show"))
	assert.Contains(t, out.String(), "buffer [222]")

	out.Reset()
	require.NoError(t, s.Exec("stats"))
	assert.Contains(t, out.String(), "keypad: 2 accepted")
}

func TestHoldAndTick(t *testing.T) {
	s, _ := newSim(t, config.Default(), false)

	require.NoError(t, s.Exec("hold # 30"))
	require.NoError(t, s.Exec("tick 40"))
	buffer, _ := s.Display()
	assert.Equal(t, "   ", buffer, "# clears the display")
	assert.Equal(t, uint32(40), core.TimerToMS(core.GetTime()))
}

func TestThermometerInput(t *testing.T) {
	b := config.Default()
	b.Exercise = config.ExerciseThermometer
	s, _ := newSim(t, b, false)

	require.NoError(t, s.Exec("temp 24"))
	require.NoError(t, s.Exec("tick 300"))
	buffer, _ := s.Display()
	assert.Equal(t, " 24", buffer)
}

func TestTelemetryReachesMonitor(t *testing.T) {
	s, out := newSim(t, config.Default(), true)

	require.NoError(t, s.Exec("type 7"))
	assert.Eventually(t, func() bool {
		return s.mon.State().Keys == "7"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Exec("show"))
	assert.Contains(t, out.String(), `keys "7"`)
}

func TestExecErrors(t *testing.T) {
	s, _ := newSim(t, config.Default(), false)

	assert.ErrorIs(t, s.Exec("quit"), errQuit)
	assert.NoError(t, s.Exec("   "))
	assert.Error(t, s.Exec("press"))
	assert.Error(t, s.Exec("press Z"), "not on the keypad")
	assert.Error(t, s.Exec("press 12"))
	assert.Error(t, s.Exec("hold 1 soon"))
	assert.Error(t, s.Exec("temp -3"))
	assert.Error(t, s.Exec("button 22 sideways"))
	assert.Error(t, s.Exec(`press "1`), "unterminated quote")
	assert.Error(t, s.Exec("frobnicate"))
}

func TestCloseStopsRealtimeLoop(t *testing.T) {
	s, _ := newSim(t, config.Default(), false)
	t.Cleanup(func() { core.SetClockSource(nil) })

	s.GoLive()
	assert.Eventually(t, func() bool { return s.sys.Loop.Steps() > 0 }, 2*time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Exec("tick"), errLive)

	s.Close()
	assert.True(t, s.sys.Loop.Stopped())
	steps := s.sys.Loop.Steps()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, steps, s.sys.Loop.Steps())
}
