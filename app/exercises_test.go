package app

import (
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

const (
	thermoChannel core.ADCChannelID = 2
	alarmPin      core.GPIOPin      = 26
)

func TestRawToCelsius(t *testing.T) {
	assert.InDelta(t, 0, RawToCelsius(0), 0.001)
	assert.InDelta(t, 330, RawToCelsius(core.ADCMax), 0.001)
	assert.InDelta(t, 25, RawToCelsius(310), 0.05)
	assert.InDelta(t, 212, CelsiusToFahrenheit(100), 0.001)
	assert.InDelta(t, -40, CelsiusToFahrenheit(-40), 0.001)
}

func TestThermometerUnits(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	buf := display.NewBuffer(3)
	th, err := NewThermometer(bench, bench, buf, ThermometerConfig{Channel: thermoChannel, Threshold: 100})
	require.NoError(t, err)

	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)
	th.Bind(d)

	bench.SetMillivolts(thermoChannel, 250) // 25C
	require.NoError(t, th.Update())
	assert.Equal(t, " 25", digits(t, buf))

	push(q, "2")
	d.Poll()
	require.NoError(t, th.Update())
	assert.True(t, th.Fahrenheit())
	assert.Equal(t, " 77", digits(t, buf))

	push(q, "1")
	d.Poll()
	require.NoError(t, th.Update())
	assert.Equal(t, " 25", digits(t, buf))
	assert.False(t, th.Alarm())
}

func TestThermometerAlarm(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	buf := display.NewBuffer(3)
	th, err := NewThermometer(bench, bench, buf, ThermometerConfig{
		Channel:   thermoChannel,
		AlarmPin:  alarmPin,
		UseAlarm:  true,
		Threshold: 30,
	})
	require.NoError(t, err)
	assert.False(t, bench.Level(alarmPin))

	bench.SetMillivolts(thermoChannel, 350) // 35C
	require.NoError(t, th.Update())
	assert.True(t, th.Alarm())
	assert.True(t, bench.Level(alarmPin))
	assert.Equal(t, " 35", digits(t, buf))

	require.NoError(t, th.Update())
	assert.False(t, bench.Level(alarmPin), "alarm blinks")
	assert.Equal(t, "   ", digits(t, buf))

	bench.SetMillivolts(thermoChannel, 200)
	require.NoError(t, th.Update())
	assert.False(t, th.Alarm())
	assert.False(t, bench.Level(alarmPin))
	assert.Equal(t, " 20", digits(t, buf))
}

func TestThermometerNoChannel(t *testing.T) {
	bench := sim.NewBench()
	th, err := NewThermometer(bench, bench, display.NewBuffer(3), ThermometerConfig{Channel: 1})
	require.NoError(t, err)
	bench2 := sim.NewBench()
	th.adc = bench2 // channel never configured there
	assert.ErrorIs(t, th.Update(), sim.ErrNoChannel)
}

func TestClock(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	bench.SetRTC(time.Date(2024, time.March, 9, 21, 45, 7, 0, time.UTC))

	button, err := keypad.NewButton(bench, 40, true, 0)
	require.NoError(t, err)

	buf := display.NewBuffer(6)
	c, err := NewClock(RegisterRTC{I2C: bench, Addr: sim.DS3231Address}, buf, button)
	require.NoError(t, err)
	assert.Equal(t, ClockButtonPoll, c.Period())

	require.NoError(t, c.Update())
	assert.Equal(t, "214507", digits(t, buf))

	q := keypad.NewQueue(10, keypad.DropOldest)
	d := NewDispatcher(q)
	c.Bind(d)
	push(q, "#")
	d.Poll()
	require.NoError(t, c.Update())
	assert.True(t, c.ShowingDate())
	assert.Equal(t, "090324", digits(t, buf))

	// Button switches back; the RTC is only re-read at the refresh period
	bench.SetRTC(time.Date(2024, time.March, 9, 21, 45, 8, 0, time.UTC))
	core.AdvanceTime(ClockButtonPoll)
	bench.Drive(40, false)
	require.NoError(t, c.Update())
	assert.False(t, c.ShowingDate())
	assert.Equal(t, "214508", digits(t, buf))

	bench.SetRTC(time.Date(2024, time.March, 9, 21, 45, 9, 0, time.UTC))
	core.AdvanceTime(ClockButtonPoll)
	require.NoError(t, c.Update())
	assert.Equal(t, "214508", digits(t, buf), "inside the refresh period")

	core.AdvanceTime(ClockRefresh)
	require.NoError(t, c.Update())
	assert.Equal(t, "214509", digits(t, buf))

	bench.DetachDevice(sim.DS3231Address)
	core.AdvanceTime(ClockRefresh)
	assert.Error(t, c.Update())
	assert.Equal(t, "------", digits(t, buf))

	_, err = NewClock(RegisterRTC{I2C: bench}, display.NewBuffer(3), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestServoControl(t *testing.T) {
	bench := sim.NewBench()
	buf := display.NewBuffer(3)
	s, err := NewServoControl(bench, 14, buf, 0, 0, ServoButtons{})
	require.NoError(t, err)
	assert.Equal(t, 90, s.Angle())
	assert.Equal(t, uint32(1500), bench.PulseWidth(14))
	assert.Equal(t, " 90", digits(t, buf))
	assert.Zero(t, s.Period(), "no buttons, key driven only")

	q := keypad.NewQueue(20, keypad.DropOldest)
	d := NewDispatcher(q)
	s.Bind(d)

	push(q, "AAAAAAAAAAAA")
	d.Poll()
	assert.Equal(t, 180, s.Angle(), "clamped")
	assert.Equal(t, uint32(2500), bench.PulseWidth(14))
	assert.Equal(t, "180", digits(t, buf))

	push(q, "*B")
	d.Poll()
	assert.Equal(t, 0, s.Angle())
	assert.Equal(t, uint32(500), bench.PulseWidth(14))

	push(q, "AC")
	d.Poll()
	assert.Equal(t, 90, s.Angle())

	_, err = NewServoControl(bench, 14, buf, 2500, 500, ServoButtons{})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestServoButtons(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	up, err := keypad.NewButton(bench, 0, true, 0)
	require.NoError(t, err)
	down, err := keypad.NewButton(bench, 2, true, 0)
	require.NoError(t, err)

	buf := display.NewBuffer(3)
	s, err := NewServoControl(bench, 14, buf, 0, 0, ServoButtons{Up: up, Down: down})
	require.NoError(t, err)
	assert.NotZero(t, s.Period())

	bench.Drive(0, false)
	require.NoError(t, s.Update())
	assert.Equal(t, 100, s.Angle())

	require.NoError(t, s.Update())
	assert.Equal(t, 100, s.Angle(), "one step per press")

	bench.Drive(0, true)
	bench.Drive(2, false)
	require.NoError(t, s.Update())
	assert.Equal(t, 90, s.Angle())
}

func TestServoButtonsPolledTogether(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()
	up, err := keypad.NewButton(bench, 0, true, 0)
	require.NoError(t, err)
	down, err := keypad.NewButton(bench, 2, true, 0)
	require.NoError(t, err)
	preset, err := keypad.NewButton(bench, 4, true, 0)
	require.NoError(t, err)

	buf := display.NewBuffer(3)
	s, err := NewServoControl(bench, 14, buf, 0, 0, ServoButtons{Up: up, Down: down, Preset: preset})
	require.NoError(t, err)

	bench.Drive(0, false)
	bench.Drive(2, false)
	require.NoError(t, s.Update())
	assert.Equal(t, 90, s.Angle(), "up and down cancel")

	bench.Drive(0, true)
	require.NoError(t, s.Update())
	assert.Equal(t, 90, s.Angle(), "held down button already counted")

	bench.Drive(2, true)
	require.NoError(t, s.Set(0))
	core.AdvanceTime(core.TimerFromMS(250))
	bench.Drive(0, false)
	bench.Drive(4, false)
	require.NoError(t, s.Update())
	assert.Equal(t, ServoPreset, s.Angle(), "preset wins over a step")

	bench.Drive(0, true)
	bench.Drive(4, true)
	core.AdvanceTime(core.TimerFromMS(250))
	bench.Drive(2, false)
	require.NoError(t, s.Update())
	assert.Equal(t, 80, s.Angle())
}

type recorder struct {
	keys     []rune
	frames   [][]segment.Code
	warnings []error
}

func (r *recorder) ReportKey(ev keypad.KeyEvent) error {
	r.keys = append(r.keys, ev.Symbol)
	return nil
}

func (r *recorder) ReportDisplay(codes []segment.Code) error {
	r.frames = append(r.frames, codes)
	return nil
}

func (r *recorder) ReportWarning(err error) error {
	r.warnings = append(r.warnings, err)
	return nil
}

func TestCooperativeLoop(t *testing.T) {
	resetCore(t)
	bench := sim.NewBench()

	rows := []core.GPIOPin{20, 21, 22, 23}
	cols := []core.GPIOPin{24, 25, 26, 27}
	bench.WireMatrix(rows, cols)

	segPins := []core.GPIOPin{0, 1, 2, 3, 4, 5, 6}
	digitPins := []core.GPIOPin{10, 11, 12}
	probe := bench.ProbeDisplay(segPins, digitPins, false, false)

	buf := display.NewBuffer(3)
	mux, err := display.NewMultiplexer(bench, buf, display.Config{
		SegmentPins: segPins,
		DigitPins:   digitPins,
		DigitCount:  3,
		Dwell:       2000,
	})
	require.NoError(t, err)

	q := keypad.NewQueue(keypad.DefaultQueueCapacity, keypad.DropOldest)
	scanner, err := keypad.NewPollingScanner(bench, q, keypad.ScannerConfig{
		RowPins:        rows,
		ColPins:        cols,
		KeyMap:         keypad.PhoneLayout,
		MaxReleaseWait: 100000,
	})
	require.NoError(t, err)

	d := NewDispatcher(q)
	rep := &recorder{}
	loop := &Loop{Mux: mux, Scanner: scanner, Dispatcher: d, Reporter: rep, Delay: 2000}
	loop.Wire(d)
	Run(NewKeyEcho(buf), d)
	probe.Reset()

	bench.Tap(1, 1, 5000) // '5'
	for i := 0; i < 6; i++ {
		require.NoError(t, loop.Step())
		core.Delay(loop.Delay)
	}
	assert.Equal(t, "555", digits(t, buf))
	assert.Equal(t, []rune{'5'}, rep.keys)
	assert.Zero(t, probe.Overlaps())

	f5 := segment.MustHex(5)
	assert.Equal(t, []segment.Code{f5, f5, f5}, probe.Frame())
	require.NotEmpty(t, rep.frames)
	assert.Equal(t, []segment.Code{f5, f5, f5}, rep.frames[len(rep.frames)-1])

	bench.Press(3, 3) // 'D' stuck
	require.NoError(t, loop.Step())
	require.Len(t, rep.warnings, 1)
	assert.ErrorIs(t, rep.warnings[0], core.ErrStuckKey)
	assert.Equal(t, uint32(7), loop.Steps())
}
