package keypad

import (
	"sync/atomic"

	"segpad/core"
)

// PollingScanner scans the matrix from the main loop. After an accepted
// press it waits for the key to be released so a held key produces one
// event. The wait is bounded; a key still down at the bound is reported
// stuck and ignored until it is seen released.
//
// With a Block queue the scanner never waits on the queue: an event that
// does not fit is held back and the pass ends, and the next Scan delivers
// it before sampling again. The loop that calls Scan is usually the one
// that drains the queue.
type PollingScanner struct {
	gpio  core.GPIODriver
	queue *Queue
	cfg   ScannerConfig
	deb   *Debouncer

	stuck   []bool
	warn    func(error)
	pending *KeyEvent // Held back from a full Block queue

	accepted uint32
	stuckN   uint32
}

// NewPollingScanner validates cfg and configures the matrix pins
func NewPollingScanner(gpio core.GPIODriver, queue *Queue, cfg ScannerConfig) (*PollingScanner, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := configureMatrix(gpio, cfg); err != nil {
		return nil, err
	}
	return &PollingScanner{
		gpio:  gpio,
		queue: queue,
		cfg:   cfg,
		deb:   NewDebouncer(cfg.KeyMap.Size(), cfg.Debounce, cfg.DebounceMode),
		stuck: make([]bool, cfg.KeyMap.Size()),
	}, nil
}

// OnWarning sets a callback for recoverable scan warnings
// (*core.StuckKeyWarning). It runs on the scanning goroutine.
func (s *PollingScanner) OnWarning(fn func(error)) {
	s.warn = fn
}

// Scan makes one pass over every column and returns the number of events
// queued. Errors come only from the pins or a failing queue.
func (s *PollingScanner) Scan() (int, error) {
	n := 0
	if s.pending != nil {
		if s.queue.TryPush(*s.pending) != nil {
			return 0, nil
		}
		s.pending = nil
		n++
	}
	for col, colPin := range s.cfg.ColPins {
		if err := s.gpio.SetPin(colPin, false); err != nil {
			return n, err
		}
		if s.cfg.Trace {
			core.RecordTrace(core.EvtColumnSelect, uint8(col), 0, 0)
		}
		if s.cfg.Settle > 0 {
			core.Delay(s.cfg.Settle)
		}

		for row, rowPin := range s.cfg.RowPins {
			ok, err := s.sample(row, col, rowPin)
			if err != nil {
				s.gpio.SetPin(colPin, true)
				return n, err
			}
			if ok {
				n++
			}
			if s.pending != nil {
				return n, s.gpio.SetPin(colPin, true)
			}
		}

		if err := s.gpio.SetPin(colPin, true); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *PollingScanner) sample(row, col int, rowPin core.GPIOPin) (bool, error) {
	key := s.cfg.KeyMap.Index(row, col)
	if s.gpio.ReadPin(rowPin) {
		s.stuck[key] = false
		return false, nil
	}
	if s.stuck[key] {
		return false, nil
	}

	sym, _ := s.cfg.KeyMap.At(row, col)
	now := core.GetTime()
	if !s.deb.Accept(key, now) {
		core.RecordTrace(core.EvtKeyBounced, uint8(row), uint32(sym), uint32(col))
		return false, nil
	}

	if err := s.enqueue(KeyEvent{Symbol: sym, Row: row, Col: col, At: now}); err != nil {
		return false, err
	}
	atomic.AddUint32(&s.accepted, 1)
	core.RecordTrace(core.EvtKeyAccepted, uint8(row), uint32(sym), uint32(col))

	s.waitRelease(row, col, rowPin, sym)
	return s.pending == nil, nil
}

func (s *PollingScanner) enqueue(ev KeyEvent) error {
	if s.queue.Policy() != Block {
		return s.queue.Push(ev)
	}
	if s.queue.TryPush(ev) != nil {
		s.pending = &ev
	}
	return nil
}

// Pending reports whether an event is held back from a full queue
func (s *PollingScanner) Pending() bool { return s.pending != nil }

// waitRelease polls the row until it reads high again or MaxReleaseWait
// passes
func (s *PollingScanner) waitRelease(row, col int, rowPin core.GPIOPin, sym rune) {
	start := core.GetTime()
	for !s.gpio.ReadPin(rowPin) {
		waited := core.Elapsed(start)
		if waited >= s.cfg.MaxReleaseWait {
			s.stuck[s.cfg.KeyMap.Index(row, col)] = true
			atomic.AddUint32(&s.stuckN, 1)
			core.RecordTrace(core.EvtKeyStuck, uint8(row), uint32(sym), waited)

			w := &core.StuckKeyWarning{Symbol: sym, Row: row, Col: col, Waited: waited}
			core.Logger().Warn("stuck key",
				"key", string(sym), "row", row, "col", col, "waited_ms", core.TimerToMS(waited))
			if s.warn != nil {
				s.warn(w)
			}
			return
		}
		core.Delay(s.cfg.ReleasePoll)
	}
}

// Stats returns activity counters
func (s *PollingScanner) Stats() Stats {
	return Stats{
		Accepted: atomic.LoadUint32(&s.accepted),
		Bounced:  s.deb.Rejected(),
		Stuck:    atomic.LoadUint32(&s.stuckN),
	}
}

// Debouncer returns the scanner's debounce state
func (s *PollingScanner) Debouncer() *Debouncer { return s.deb }
