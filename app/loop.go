package app

import (
	"sync/atomic"

	"segpad/core"
	"segpad/display"
	"segpad/keypad"
	"segpad/segment"
)

// Scanner is a keypad scanner driven from the main loop
type Scanner interface {
	Scan() (int, error)
}

// Reporter receives what the board does, for telemetry
type Reporter interface {
	ReportKey(ev keypad.KeyEvent) error
	ReportDisplay(codes []segment.Code) error
	ReportWarning(err error) error
}

// Loop is the single-threaded control loop: refresh one digit, scan the
// keypad, dispatch events, run due timers, then wait.
//
// With TimedMux the multiplexer refreshes from its own core timer and the
// loop only reports its frames. In interrupt mode Scanner is nil.
type Loop struct {
	Mux        *display.Multiplexer
	TimedMux   bool
	Scanner    Scanner
	Dispatcher *Dispatcher
	Reporter   Reporter
	Delay      uint32 // Wait between steps in microseconds

	lastGen uint32
	steps   uint32
	stopped uint32
}

// Step runs one iteration without the trailing delay
func (l *Loop) Step() error {
	if l.Mux != nil && !l.TimedMux {
		if err := l.Mux.RefreshTick(); err != nil {
			return err
		}
	}
	if l.Scanner != nil {
		if _, err := l.Scanner.Scan(); err != nil {
			return err
		}
	}
	if l.Dispatcher != nil {
		l.Dispatcher.Poll()
	}
	core.ProcessTimers()
	l.report()
	atomic.AddUint32(&l.steps, 1)
	return nil
}

func (l *Loop) report() {
	if l.Mux == nil {
		return
	}
	if w := l.Mux.TakeStaleRead(); w != nil {
		core.Logger().Debug("stale display read", "digit", w.Digit, "generation", w.Generation)
		if l.Reporter != nil {
			l.Reporter.ReportWarning(w)
		}
	}
	if l.Reporter == nil {
		return
	}
	buf := l.Mux.Buffer()
	gen := buf.Generation()
	if gen&1 == 1 || (gen == l.lastGen && l.Steps() > 0) {
		return
	}
	l.lastGen = gen
	l.Reporter.ReportDisplay(buf.Snapshot())
}

// Run steps until Stop is called, then returns nil. A failed step means
// the pins are misbehaving and the loop cannot safely continue, so Run
// returns its error.
func (l *Loop) Run() error {
	for !l.Stopped() {
		if err := l.Step(); err != nil {
			core.Logger().Error("control loop stopped", "err", err)
			core.DumpTrace()
			return err
		}
		if l.Delay > 0 {
			core.Delay(l.Delay)
		}
	}
	return nil
}

// Stop makes Run return after the current step. It may be called from
// another goroutine; a stopped loop stays stopped.
func (l *Loop) Stop() {
	atomic.StoreUint32(&l.stopped, 1)
}

// Stopped reports whether Stop was called
func (l *Loop) Stopped() bool {
	return atomic.LoadUint32(&l.stopped) == 1
}

// Steps returns the number of completed iterations
func (l *Loop) Steps() uint32 { return atomic.LoadUint32(&l.steps) }

// Wire connects the reporter to d and to a polling scanner. d is passed
// in because a board running on timers drains it outside the loop.
func (l *Loop) Wire(d *Dispatcher) {
	if l.Reporter == nil {
		return
	}
	if d != nil {
		d.Observe(func(ev keypad.KeyEvent) { l.Reporter.ReportKey(ev) })
	}
	if ps, ok := l.Scanner.(*keypad.PollingScanner); ok {
		ps.OnWarning(func(err error) { l.Reporter.ReportWarning(err) })
	}
}
