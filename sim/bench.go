// Package sim is a simulated bench for host builds: it implements the core
// HAL interfaces over in-memory pins, wires a key matrix between column
// outputs and row inputs, fires edge interrupts, and watches display lines.
//
// Time comes from the core clock, so tests drive it with core.SetTime and
// core.AdvanceTime, and the simulator with core.SetClockSource.
package sim

import (
	"errors"
	"sync"

	"segpad/core"
)

var (
	ErrUnconfigured = errors.New("sim: pin not configured")
	ErrNotOutput    = errors.New("sim: pin is not an output")
	ErrNoDevice     = errors.New("sim: no device at address")
	ErrNoChannel    = errors.New("sim: ADC channel not configured")
)

type pinMode uint8

const (
	modeUnset pinMode = iota
	modeOutput
	modeInputPullUp
	modeInputPullDown
)

type pinState struct {
	mode    pinMode
	driven  bool  // Output level
	forced  *bool // External level on an input (buttons, sensors)
	last    bool  // Level seen by the edge detector
	edge    core.Edge
	handler core.EdgeHandler
}

type firing struct {
	pin     core.GPIOPin
	handler core.EdgeHandler
}

// Bench is a simulated board. The zero value is not usable; call NewBench.
type Bench struct {
	mu     sync.Mutex
	pins   map[core.GPIOPin]*pinState
	matrix *Matrix
	probe  *Probe

	adc    map[core.ADCChannelID]core.ADCValue
	adcOn  map[core.ADCChannelID]bool
	i2c    map[core.I2CAddress][]byte
	pulses map[core.PWMPin]uint32
}

// NewBench returns an empty bench
func NewBench() *Bench {
	return &Bench{
		pins:   make(map[core.GPIOPin]*pinState),
		adc:    make(map[core.ADCChannelID]core.ADCValue),
		adcOn:  make(map[core.ADCChannelID]bool),
		i2c:    make(map[core.I2CAddress][]byte),
		pulses: make(map[core.PWMPin]uint32),
	}
}

// Install registers the bench as every core HAL driver
func (b *Bench) Install() {
	core.SetGPIODriver(b)
	core.SetInterruptDriver(b)
	core.SetADCDriver(b)
	core.SetI2CDriver(b)
	core.SetPWMDriver(b)
}

func (b *Bench) state(pin core.GPIOPin) *pinState {
	st, ok := b.pins[pin]
	if !ok {
		st = &pinState{}
		b.pins[pin] = st
	}
	return st
}

func (b *Bench) configure(pin core.GPIOPin, mode pinMode) []firing {
	b.mu.Lock()
	st := b.state(pin)
	st.mode = mode
	st.last = b.levelLocked(pin)
	fire := b.collectEdgesLocked()
	b.mu.Unlock()
	return fire
}

// ConfigureOutput implements core.GPIODriver
func (b *Bench) ConfigureOutput(pin core.GPIOPin) error {
	b.dispatch(b.configure(pin, modeOutput))
	return nil
}

// ConfigureInputPullUp implements core.GPIODriver
func (b *Bench) ConfigureInputPullUp(pin core.GPIOPin) error {
	b.dispatch(b.configure(pin, modeInputPullUp))
	return nil
}

// ConfigureInputPullDown implements core.GPIODriver
func (b *Bench) ConfigureInputPullDown(pin core.GPIOPin) error {
	b.dispatch(b.configure(pin, modeInputPullDown))
	return nil
}

// SetPin implements core.GPIODriver
func (b *Bench) SetPin(pin core.GPIOPin, value bool) error {
	b.mu.Lock()
	st, ok := b.pins[pin]
	if !ok || st.mode == modeUnset {
		b.mu.Unlock()
		return ErrUnconfigured
	}
	if st.mode != modeOutput {
		b.mu.Unlock()
		return ErrNotOutput
	}
	changed := st.driven != value
	st.driven = value
	if changed && b.probe != nil {
		b.probe.observe(b, pin)
	}
	fire := b.collectEdgesLocked()
	b.mu.Unlock()

	b.dispatch(fire)
	return nil
}

// GetPin implements core.GPIODriver
func (b *Bench) GetPin(pin core.GPIOPin) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if st, ok := b.pins[pin]; !ok || st.mode == modeUnset {
		return false, ErrUnconfigured
	}
	return b.levelLocked(pin), nil
}

// ReadPin implements core.GPIODriver
func (b *Bench) ReadPin(pin core.GPIOPin) bool {
	v, _ := b.GetPin(pin)
	return v
}

// SetEdgeInterrupt implements core.InterruptDriver
func (b *Bench) SetEdgeInterrupt(pin core.GPIOPin, edge core.Edge, handler core.EdgeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.pins[pin]
	if !ok || st.mode == modeUnset {
		return ErrUnconfigured
	}
	st.edge = edge
	st.handler = handler
	st.last = b.levelLocked(pin)
	return nil
}

// Drive forces the level of an input pin, like a push button or a sensor
// output. Float returns it to its pull.
func (b *Bench) Drive(pin core.GPIOPin, level bool) {
	b.mu.Lock()
	st := b.state(pin)
	st.forced = &level
	fire := b.collectEdgesLocked()
	b.mu.Unlock()
	b.dispatch(fire)
}

// Float removes a forced input level
func (b *Bench) Float(pin core.GPIOPin) {
	b.mu.Lock()
	b.state(pin).forced = nil
	fire := b.collectEdgesLocked()
	b.mu.Unlock()
	b.dispatch(fire)
}

// Level returns the current electrical level of any pin
func (b *Bench) Level(pin core.GPIOPin) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levelLocked(pin)
}

// Sync re-evaluates time-dependent inputs (timed key holds) and fires
// any edges they produce. The simulator calls it from its clock loop.
func (b *Bench) Sync() {
	b.mu.Lock()
	fire := b.collectEdgesLocked()
	b.mu.Unlock()
	b.dispatch(fire)
}

func (b *Bench) levelLocked(pin core.GPIOPin) bool {
	st, ok := b.pins[pin]
	if !ok {
		return false
	}
	switch st.mode {
	case modeOutput:
		return st.driven
	case modeUnset:
		return false
	}
	if st.forced != nil {
		return *st.forced
	}
	if b.matrix != nil {
		if low, wired := b.matrix.rowPulledLow(b, pin); wired && low {
			return false
		}
	}
	return st.mode == modeInputPullUp
}

// collectEdgesLocked compares every interrupt-enabled pin with its last
// level and returns the handlers to run once the lock is released
func (b *Bench) collectEdgesLocked() []firing {
	var fire []firing
	for pin, st := range b.pins {
		if st.handler == nil {
			continue
		}
		level := b.levelLocked(pin)
		if level == st.last {
			continue
		}
		st.last = level
		switch {
		case st.edge == core.EdgeBoth,
			st.edge == core.EdgeFalling && !level,
			st.edge == core.EdgeRising && level:
			fire = append(fire, firing{pin: pin, handler: st.handler})
		}
	}
	return fire
}

func (b *Bench) dispatch(fire []firing) {
	for _, f := range fire {
		f.handler(f.pin)
	}
}
