package keypad

import (
	"sync/atomic"

	"segpad/core"
)

// MaxInterruptKeys bounds the matrix size for the interrupt scanner, which
// keeps held-key state in one word
const MaxInterruptKeys = 32

// InterruptScanner rotates the active column from a recurring timer and
// resolves keys in row falling-edge handlers.
//
// The active column is written only by RotateColumn and read only by the
// row handler, which loads it once and never recomputes it. The rotation
// includes an idle slot with every column released.
type InterruptScanner struct {
	gpio  core.GPIODriver
	queue *Queue
	cfg   ScannerConfig
	deb   *Debouncer
	cols  uint32

	active uint32 // Column being driven; cols means idle
	down   uint32 // Bit per key seen pressed and not yet seen released
	timer  core.Timer

	accepted uint32
	spurious uint32
}

// NewInterruptScanner validates cfg, configures the matrix and installs a
// falling-edge handler on every row. The queue must not use Block, since
// the handlers run in interrupt context.
func NewInterruptScanner(gpio core.GPIODriver, irq core.InterruptDriver, queue *Queue, cfg ScannerConfig) (*InterruptScanner, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if queue.Policy() == Block {
		return nil, core.NewConfigError("keypad", "overflow policy", "interrupt handlers cannot block on a full queue")
	}
	if cfg.KeyMap.Size() > MaxInterruptKeys {
		return nil, core.NewConfigError("keypad", "keymap", "interrupt scanning supports at most 32 keys")
	}
	if err := configureMatrix(gpio, cfg); err != nil {
		return nil, err
	}

	s := &InterruptScanner{
		gpio:   gpio,
		queue:  queue,
		cfg:    cfg,
		deb:    NewDebouncer(cfg.KeyMap.Size(), cfg.Debounce, cfg.DebounceMode),
		cols:   uint32(len(cfg.ColPins)),
		active: uint32(len(cfg.ColPins)),
	}
	for _, pin := range cfg.RowPins {
		if err := irq.SetEdgeInterrupt(pin, core.EdgeFalling, s.handleRow); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start rotates columns every RotatePeriod ticks
func (s *InterruptScanner) Start() {
	core.ScheduleRecurring(&s.timer, s.cfg.RotatePeriod, s.RotateColumn)
}

// Stop cancels rotation and releases every column
func (s *InterruptScanner) Stop() {
	core.CancelTimer(&s.timer)
	atomic.StoreUint32(&s.active, s.cols)
	for _, pin := range s.cfg.ColPins {
		s.gpio.SetPin(pin, true)
	}
}

// RotateColumn releases the current column, publishes the next index and
// then drives that column low. Publishing first means an edge raised by
// the new column already sees its index.
func (s *InterruptScanner) RotateColumn() {
	prev := atomic.LoadUint32(&s.active)
	next := prev + 1
	if next > s.cols {
		next = 0
	}

	if prev < s.cols {
		s.gpio.SetPin(s.cfg.ColPins[prev], true)
	}
	atomic.StoreUint32(&s.active, next)
	if next == s.cols {
		return
	}
	s.gpio.SetPin(s.cfg.ColPins[next], false)
	if s.cfg.Trace {
		core.RecordTrace(core.EvtColumnSelect, uint8(next), 0, 0)
	}
	s.clearReleased(int(next))
}

// clearReleased forgets held keys of col whose row reads high again, so
// their next press raises an event
func (s *InterruptScanner) clearReleased(col int) {
	down := atomic.LoadUint32(&s.down)
	if down == 0 {
		return
	}
	for row, pin := range s.cfg.RowPins {
		bit := uint32(1) << uint(s.cfg.KeyMap.Index(row, col))
		if down&bit != 0 && s.gpio.ReadPin(pin) {
			clearBit(&s.down, bit)
		}
	}
}

// handleRow runs in interrupt context: no blocking, no logging
func (s *InterruptScanner) handleRow(pin core.GPIOPin) {
	col := atomic.LoadUint32(&s.active)

	row := -1
	for i, p := range s.cfg.RowPins {
		if p == pin {
			row = i
			break
		}
	}
	if row < 0 {
		return
	}
	if col >= s.cols {
		atomic.AddUint32(&s.spurious, 1)
		core.RecordTrace(core.EvtSpuriousEdge, uint8(row), 0, 0)
		return
	}

	key := s.cfg.KeyMap.Index(row, int(col))
	bit := uint32(1) << uint(key)
	if !setBit(&s.down, bit) {
		return
	}

	sym, _ := s.cfg.KeyMap.At(row, int(col))
	now := core.GetTime()
	if !s.deb.Accept(key, now) {
		core.RecordTrace(core.EvtKeyBounced, uint8(row), uint32(sym), col)
		return
	}

	s.queue.Push(KeyEvent{Symbol: sym, Row: row, Col: int(col), At: now})
	atomic.AddUint32(&s.accepted, 1)
	core.RecordTrace(core.EvtKeyAccepted, uint8(row), uint32(sym), col)
}

// ActiveColumn returns the column being driven, or -1 in the idle slot
func (s *InterruptScanner) ActiveColumn() int {
	col := atomic.LoadUint32(&s.active)
	if col >= s.cols {
		return -1
	}
	return int(col)
}

// Stats returns activity counters
func (s *InterruptScanner) Stats() Stats {
	return Stats{
		Accepted: atomic.LoadUint32(&s.accepted),
		Bounced:  s.deb.Rejected(),
		Spurious: atomic.LoadUint32(&s.spurious),
	}
}

// setBit sets bit and reports whether it was clear before
func setBit(word *uint32, bit uint32) bool {
	for {
		old := atomic.LoadUint32(word)
		if old&bit != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(word, old, old|bit) {
			return true
		}
	}
}

func clearBit(word *uint32, bit uint32) {
	for {
		old := atomic.LoadUint32(word)
		if atomic.CompareAndSwapUint32(word, old, old&^bit) {
			return
		}
	}
}
