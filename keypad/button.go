package keypad

import (
	"sync/atomic"

	"segpad/core"
)

// Button is a single debounced push button, wired either to ground with a
// pull-up (active low) or to the supply with a pull-down.
type Button struct {
	gpio      core.GPIODriver
	pin       core.GPIOPin
	activeLow bool
	deb       *Debouncer

	wasDown  bool
	attached bool
	pending  uint32
}

// NewButton configures pin as an input with the matching pull resistor.
// window is the debounce window in ticks; 0 uses DefaultDebounce.
func NewButton(gpio core.GPIODriver, pin core.GPIOPin, activeLow bool, window uint32) (*Button, error) {
	if window == 0 {
		window = DefaultDebounce
	}
	var err error
	if activeLow {
		err = gpio.ConfigureInputPullUp(pin)
	} else {
		err = gpio.ConfigureInputPullDown(pin)
	}
	if err != nil {
		return nil, err
	}
	return &Button{
		gpio:      gpio,
		pin:       pin,
		activeLow: activeLow,
		deb:       NewDebouncer(1, window, PerKey),
	}, nil
}

// Down reports the raw button level
func (b *Button) Down() bool {
	return b.gpio.ReadPin(b.pin) != b.activeLow
}

// Attach switches the button to interrupt mode: presses are caught by an
// edge handler and latched until Pressed collects them
func (b *Button) Attach(irq core.InterruptDriver) error {
	edge := core.EdgeRising
	if b.activeLow {
		edge = core.EdgeFalling
	}
	if err := irq.SetEdgeInterrupt(b.pin, edge, b.handleEdge); err != nil {
		return err
	}
	b.attached = true
	return nil
}

func (b *Button) handleEdge(core.GPIOPin) {
	if b.deb.Accept(0, core.GetTime()) {
		atomic.StoreUint32(&b.pending, 1)
	}
}

// Pressed reports a new debounced press since the last call. In polling
// mode a press is the transition from released to pressed.
func (b *Button) Pressed() bool {
	if b.attached {
		return atomic.SwapUint32(&b.pending, 0) == 1
	}

	down := b.Down()
	edge := down && !b.wasDown
	b.wasDown = down
	if !edge {
		return false
	}
	return b.deb.Accept(0, core.GetTime())
}
