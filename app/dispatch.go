// Package app holds the per-exercise logic that sits between the keypad
// and the display: key events in, display buffer updates out.
package app

import (
	"sync/atomic"

	"segpad/core"
	"segpad/keypad"
)

// Action handles one key event
type Action func(ev keypad.KeyEvent)

// Dispatcher drains the key queue on its own schedule and routes each
// event to the action bound to its symbol
type Dispatcher struct {
	queue    *keypad.Queue
	actions  map[rune]Action
	fallback Action
	observe  []func(keypad.KeyEvent)
	timer    core.Timer

	handled uint32
	ignored uint32
}

// NewDispatcher returns a dispatcher with no bindings
func NewDispatcher(q *keypad.Queue) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		actions: make(map[rune]Action),
	}
}

// On binds an action to a symbol, replacing any earlier binding
func (d *Dispatcher) On(sym rune, a Action) *Dispatcher {
	d.actions[sym] = a
	return d
}

// OnKeys binds one action to every symbol in syms
func (d *Dispatcher) OnKeys(syms string, a Action) *Dispatcher {
	for _, sym := range syms {
		d.actions[sym] = a
	}
	return d
}

// Default sets the action for symbols with no binding
func (d *Dispatcher) Default(a Action) *Dispatcher {
	d.fallback = a
	return d
}

// Observe registers a callback that sees every event before dispatch
func (d *Dispatcher) Observe(fn func(keypad.KeyEvent)) {
	d.observe = append(d.observe, fn)
}

// Poll dispatches every queued event and returns how many it handled
func (d *Dispatcher) Poll() int {
	n := 0
	for {
		ev, ok := d.queue.Pop()
		if !ok {
			return n
		}
		for _, fn := range d.observe {
			fn(ev)
		}
		a, ok := d.actions[ev.Symbol]
		if !ok {
			a = d.fallback
		}
		if a == nil {
			atomic.AddUint32(&d.ignored, 1)
			continue
		}
		a(ev)
		atomic.AddUint32(&d.handled, 1)
		n++
	}
}

// Start polls every period ticks from a core timer
func (d *Dispatcher) Start(period uint32) {
	core.ScheduleRecurring(&d.timer, period, func() { d.Poll() })
}

// Stop cancels the polling timer
func (d *Dispatcher) Stop() {
	core.CancelTimer(&d.timer)
}

// Handled returns the number of events given to an action
func (d *Dispatcher) Handled() uint32 { return atomic.LoadUint32(&d.handled) }

// Ignored returns the number of events with no action
func (d *Dispatcher) Ignored() uint32 { return atomic.LoadUint32(&d.ignored) }
