package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/core"
	"segpad/display"
	"segpad/keypad"
	"segpad/segment"
	"segpad/sim"
)

func resetCore(t *testing.T) {
	t.Helper()
	core.SetClockSource(nil)
	core.SetTime(0)
	core.ResetTimers()
	core.ClearTrace()
	t.Cleanup(core.ResetTimers)
}

func push(q *keypad.Queue, syms string) {
	for _, r := range syms {
		q.Push(keypad.KeyEvent{Symbol: r})
	}
}

func digits(t *testing.T, buf *display.Buffer) string {
	t.Helper()
	out := make([]rune, 0, buf.Len())
	for _, c := range buf.Snapshot() {
		if c == segment.Blank {
			out = append(out, ' ')
			continue
		}
		if c == segment.Dash {
			out = append(out, '-')
			continue
		}
		v, ok := c.Value()
		require.True(t, ok, "code %#x is not a digit", c)
		out = append(out, rune("0123456789ABCDEF"[v]))
	}
	return string(out)
}

func TestDispatcher(t *testing.T) {
	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)

	var got, seen []rune
	d.On('1', func(ev keypad.KeyEvent) { got = append(got, ev.Symbol) })
	d.OnKeys("AB", func(ev keypad.KeyEvent) { got = append(got, ev.Symbol+1) })
	d.Observe(func(ev keypad.KeyEvent) { seen = append(seen, ev.Symbol) })

	push(q, "1A9B")
	assert.Equal(t, 3, d.Poll())
	assert.Equal(t, []rune{'1', 'B', 'C'}, got)
	assert.Equal(t, []rune{'1', 'A', '9', 'B'}, seen)
	assert.Equal(t, uint32(1), d.Ignored())

	d.Default(func(ev keypad.KeyEvent) { got = append(got, '?') })
	push(q, "9")
	d.Poll()
	assert.Equal(t, '?', got[len(got)-1])
	assert.Equal(t, uint32(4), d.Handled())
}

func TestDispatcherTimer(t *testing.T) {
	resetCore(t)
	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)
	var n int
	d.Default(func(keypad.KeyEvent) { n++ })
	d.Start(core.TimerFromMS(50))

	push(q, "12")
	core.AdvanceTime(core.TimerFromMS(49))
	core.ProcessTimers()
	assert.Zero(t, n, "polled at its own period")

	core.AdvanceTime(core.TimerFromMS(1))
	core.ProcessTimers()
	assert.Equal(t, 2, n)

	d.Stop()
	push(q, "3")
	core.AdvanceTime(core.TimerFromMS(100))
	core.ProcessTimers()
	assert.Equal(t, 2, n)
}

func TestKeyEcho(t *testing.T) {
	buf := display.NewBuffer(3)
	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)
	k := NewKeyEcho(buf)
	Run(k, d)
	assert.Equal(t, "---", digits(t, buf))

	push(q, "7")
	d.Poll()
	assert.Equal(t, "777", digits(t, buf))

	push(q, "#")
	d.Poll()
	assert.Equal(t, "   ", digits(t, buf))

	push(q, "D")
	d.Poll()
	assert.Equal(t, "DDD", digits(t, buf))
	assert.Equal(t, 'D', k.Last())
}

func TestCounter(t *testing.T) {
	resetCore(t)
	buf := display.NewBuffer(3)
	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)
	c := NewCounter(buf)
	Run(c, d)

	core.ProcessTimers()
	assert.Equal(t, "  0", digits(t, buf))

	for i := 1; i <= 15; i++ {
		core.AdvanceTime(core.TimerFromMS(1000))
		core.ProcessTimers()
	}
	assert.Equal(t, "  F", digits(t, buf))

	core.AdvanceTime(core.TimerFromMS(1000))
	core.ProcessTimers()
	assert.Equal(t, "  0", digits(t, buf), "wraps after F")

	push(q, "0")
	d.Poll()
	assert.Equal(t, 0, c.Value())
}

func TestBanner(t *testing.T) {
	buf := display.NewBuffer(6)
	Run(NewBanner(buf, "JESUS4"), NewDispatcher(keypad.NewQueue(1, keypad.DropOldest)))

	want := []segment.Code{0x1E, 0x79, 0x6D, 0x3E, 0x6D, 0x66}
	assert.Equal(t, want, buf.Snapshot())
}

func TestBlinker(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	b, err := NewBlinker(bench, 25, DefaultBlinkOn, DefaultBlinkOff)
	require.NoError(t, err)
	Run(b, NewDispatcher(keypad.NewQueue(1, keypad.DropOldest)))

	core.ProcessTimers()
	assert.True(t, bench.Level(25))

	core.AdvanceTime(DefaultBlinkOn - 1)
	core.ProcessTimers()
	assert.True(t, bench.Level(25))

	core.AdvanceTime(1)
	core.ProcessTimers()
	assert.False(t, bench.Level(25), "off after the on time")

	core.AdvanceTime(DefaultBlinkOff)
	core.ProcessTimers()
	assert.True(t, bench.Level(25), "on again after the off time")

	_, err = NewBlinker(bench, 25, 0, 10)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

type failing struct{ n int }

func (f *failing) Name() string       { return "failing" }
func (f *failing) Bind(d *Dispatcher) {}
func (f *failing) Period() uint32     { return 1000 }
func (f *failing) Update() error {
	f.n++
	return errors.New("sensor gone")
}

func TestRunnerKeepsGoingOnErrors(t *testing.T) {
	resetCore(t)
	f := &failing{}
	r := Run(f, NewDispatcher(keypad.NewQueue(1, keypad.DropOldest)))

	for i := 0; i < 5; i++ {
		core.ProcessTimers()
		core.AdvanceTime(1000)
	}
	assert.Equal(t, 5, f.n)
	assert.Equal(t, uint32(5), r.Errors())

	r.Stop()
	core.AdvanceTime(5000)
	core.ProcessTimers()
	assert.Equal(t, 5, f.n)
}

func TestRegisterRTC(t *testing.T) {
	bench := sim.NewBench()
	want := time.Date(2024, time.March, 9, 21, 45, 7, 0, time.UTC)
	bench.SetRTC(want)

	rtc := RegisterRTC{I2C: bench, Addr: sim.DS3231Address}
	got, err := rtc.ReadTime()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	bench.DetachDevice(sim.DS3231Address)
	_, err = rtc.ReadTime()
	assert.Error(t, err)
}

func TestHour24(t *testing.T) {
	assert.Equal(t, 21, hour24(0x21))
	assert.Equal(t, 0, hour24(0x40|0x12))      // 12 AM
	assert.Equal(t, 12, hour24(0x40|0x20|0x12)) // 12 PM
	assert.Equal(t, 21, hour24(0x40|0x20|0x09)) // 9 PM
	assert.Equal(t, 9, hour24(0x40|0x09))       // 9 AM
}

func TestLoopStop(t *testing.T) {
	resetCore(t)
	q := keypad.NewQueue(4, keypad.DropOldest)
	d := NewDispatcher(q)
	loop := &Loop{Dispatcher: d, Delay: 1000}

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	assert.Eventually(t, func() bool { return loop.Steps() > 0 }, time.Second, time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop kept running after Stop")
	}
	assert.True(t, loop.Stopped())

	steps := loop.Steps()
	require.NoError(t, loop.Run(), "a stopped loop returns at once")
	assert.Equal(t, steps, loop.Steps())
}
