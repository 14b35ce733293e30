// Package display drives a multi-digit 7-segment display by time-division
// multiplexing: the segment lines are shared, and one digit-select line is
// active at a time, fast enough for persistence of vision.
package display

import (
	"strconv"
	"sync/atomic"

	"segpad/core"
	"segpad/segment"
)

const (
	// MaxFramePeriod is the longest full cycle over all digits that still
	// refreshes at 60Hz
	MaxFramePeriod = 16667

	// MaxDigits bounds the digit count
	MaxDigits = 8
)

// SegmentBus puts one segment pattern on the shared segment lines
type SegmentBus interface {
	WriteSegments(c segment.Code) error
}

// Config describes the display wiring
type Config struct {
	SegmentPins      []core.GPIOPin // Segment lines, index = segment bit (A..G[, DP])
	DigitPins        []core.GPIOPin // Digit-select lines, left to right
	DigitCount       int            // Digits in use, <= len(DigitPins)
	Dwell            uint32         // Ticks each digit stays lit
	SegmentActiveLow bool           // Common anode segment drive
	DigitActiveLow   bool           // Select transistor switches on low
	Bus              SegmentBus     // Optional; defaults to one GPIO per segment
	Trace            bool           // Record every digit select in the trace ring
}

// Validate checks the configuration without touching hardware
func (c Config) Validate() error {
	if c.DigitCount < 1 || c.DigitCount > MaxDigits {
		return core.NewConfigError("display", "digit count", "must be 1.."+strconv.Itoa(MaxDigits))
	}
	if c.DigitCount > len(c.DigitPins) {
		return core.NewConfigError("display", "digit count",
			strconv.Itoa(c.DigitCount)+" digits but "+strconv.Itoa(len(c.DigitPins))+" select lines")
	}
	if c.Bus == nil && (len(c.SegmentPins) < 7 || len(c.SegmentPins) > segment.Segments) {
		return core.NewConfigError("display", "segment pins", "need 7 or 8 lines")
	}
	if c.Dwell == 0 {
		return core.NewConfigError("display", "dwell", "must be non-zero")
	}
	if uint64(c.Dwell)*uint64(c.DigitCount) > MaxFramePeriod {
		return core.NewConfigError("display", "dwell",
			"frame of "+strconv.Itoa(int(c.Dwell)*c.DigitCount)+" ticks refreshes below 60Hz")
	}
	seen := make(map[core.GPIOPin]bool)
	for _, pin := range append(append([]core.GPIOPin(nil), c.SegmentPins...), c.DigitPins...) {
		if seen[pin] {
			return core.NewConfigError("display", "pins", "pin "+strconv.Itoa(int(pin))+" used twice")
		}
		seen[pin] = true
	}
	return nil
}

// Stats counts multiplexer activity
type Stats struct {
	Ticks      uint32
	Frames     uint32
	StaleReads uint32
	Errors     uint32
}

// Multiplexer lights one digit per tick from a Buffer
type Multiplexer struct {
	gpio core.GPIODriver
	buf  *Buffer
	cfg  Config
	bus  SegmentBus

	current int32 // Lit digit; starts at 0 with every line off
	timer   core.Timer

	ticks  uint32
	frames uint32
	stale  uint32
	errors uint32

	staleDigit int32
	staleGen   uint32
	staleTaken uint32
}

// NewMultiplexer validates cfg, configures the segment and digit lines as
// outputs and switches every digit off. It returns a
// *core.ConfigurationError when the wiring cannot drive DigitCount digits.
func NewMultiplexer(gpio core.GPIODriver, buf *Buffer, cfg Config) (*Multiplexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if buf == nil || buf.Len() != cfg.DigitCount {
		return nil, core.NewConfigError("display", "buffer", "length must equal digit count")
	}

	m := &Multiplexer{
		gpio: gpio,
		buf:  buf,
		cfg:  cfg,
		bus:  cfg.Bus,
	}

	if m.bus == nil {
		bus, err := NewGPIOBus(gpio, cfg.SegmentPins, cfg.SegmentActiveLow)
		if err != nil {
			return nil, err
		}
		m.bus = bus
	}

	for _, pin := range cfg.DigitPins {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	if err := m.blank(); err != nil {
		return nil, err
	}
	if err := m.bus.WriteSegments(segment.Blank); err != nil {
		return nil, err
	}

	return m, nil
}

// RefreshTick moves to the next digit. The order is fixed: every select
// line off, then the new pattern on the bus, then the one select line on.
// Writing the pattern while the previous digit is still selected would
// flash it on the wrong digit.
func (m *Multiplexer) RefreshTick() error {
	next := int(atomic.LoadInt32(&m.current)) + 1
	if next >= m.cfg.DigitCount {
		next = 0
	}

	if err := m.blank(); err != nil {
		return err
	}

	code, gen, torn := m.buf.read(next)
	if torn {
		atomic.StoreInt32(&m.staleDigit, int32(next))
		atomic.StoreUint32(&m.staleGen, gen)
		atomic.AddUint32(&m.stale, 1)
		core.RecordTrace(core.EvtStaleRead, uint8(next), gen, 0)
	}
	if err := m.bus.WriteSegments(code); err != nil {
		return err
	}

	if err := m.gpio.SetPin(m.cfg.DigitPins[next], !m.cfg.DigitActiveLow); err != nil {
		return err
	}

	atomic.StoreInt32(&m.current, int32(next))
	atomic.AddUint32(&m.ticks, 1)
	if next == m.cfg.DigitCount-1 {
		atomic.AddUint32(&m.frames, 1)
	}
	if m.cfg.Trace {
		core.RecordTrace(core.EvtDigitSelect, uint8(next), uint32(code), 0)
	}
	return nil
}

// blank switches every digit-select line off
func (m *Multiplexer) blank() error {
	off := m.cfg.DigitActiveLow
	for _, pin := range m.cfg.DigitPins {
		if err := m.gpio.SetPin(pin, off); err != nil {
			return err
		}
	}
	return nil
}

// Start refreshes from a recurring core timer every Dwell ticks
func (m *Multiplexer) Start() {
	core.ScheduleRecurring(&m.timer, m.cfg.Dwell, m.tick)
}

func (m *Multiplexer) tick() {
	if err := m.RefreshTick(); err != nil {
		atomic.AddUint32(&m.errors, 1)
	}
}

// Stop cancels the refresh timer and switches the display off
func (m *Multiplexer) Stop() error {
	core.CancelTimer(&m.timer)
	return m.blank()
}

// Active returns the digit position lit by the last tick
func (m *Multiplexer) Active() int {
	return int(atomic.LoadInt32(&m.current))
}

// DigitCount returns the number of multiplexed digits
func (m *Multiplexer) DigitCount() int {
	return m.cfg.DigitCount
}

// Buffer returns the buffer being displayed
func (m *Multiplexer) Buffer() *Buffer {
	return m.buf
}

// Stats returns activity counters
func (m *Multiplexer) Stats() Stats {
	return Stats{
		Ticks:      atomic.LoadUint32(&m.ticks),
		Frames:     atomic.LoadUint32(&m.frames),
		StaleReads: atomic.LoadUint32(&m.stale),
		Errors:     atomic.LoadUint32(&m.errors),
	}
}

// TakeStaleRead returns a warning for the latest torn frame lit since the
// previous call, or nil. Call it from the main loop, not from the timer.
func (m *Multiplexer) TakeStaleRead() *core.StaleReadWarning {
	count := atomic.LoadUint32(&m.stale)
	if count == atomic.SwapUint32(&m.staleTaken, count) {
		return nil
	}
	return &core.StaleReadWarning{
		Digit:      int(atomic.LoadInt32(&m.staleDigit)),
		Generation: atomic.LoadUint32(&m.staleGen),
	}
}

// GPIOBus drives one GPIO per segment line
type GPIOBus struct {
	gpio      core.GPIODriver
	pins      []core.GPIOPin
	activeLow bool
}

// NewGPIOBus configures pins as outputs; pins[i] carries segment bit i
func NewGPIOBus(gpio core.GPIODriver, pins []core.GPIOPin, activeLow bool) (*GPIOBus, error) {
	for _, pin := range pins {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	return &GPIOBus{gpio: gpio, pins: pins, activeLow: activeLow}, nil
}

// WriteSegments sets each segment line from the code bits
func (b *GPIOBus) WriteSegments(c segment.Code) error {
	for i, pin := range b.pins {
		if err := b.gpio.SetPin(pin, c.Lit(i) != b.activeLow); err != nil {
			return err
		}
	}
	return nil
}
