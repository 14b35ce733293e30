package app

import (
	"segpad/core"
	"segpad/display"
	"segpad/keypad"
	"segpad/segment"
)

// KeyEcho shows the last key pressed on every digit. '*' shows a dash
// and '#' blanks the display.
type KeyEcho struct {
	buf  *display.Buffer
	last rune
}

// NewKeyEcho starts with a dash on every digit
func NewKeyEcho(buf *display.Buffer) *KeyEcho {
	return &KeyEcho{buf: buf, last: '*'}
}

func (k *KeyEcho) Name() string   { return "keyecho" }
func (k *KeyEcho) Period() uint32 { return 0 }

func (k *KeyEcho) Bind(d *Dispatcher) {
	d.Default(func(ev keypad.KeyEvent) {
		k.last = ev.Symbol
		k.Update()
	})
}

func (k *KeyEcho) Update() error {
	switch k.last {
	case '*':
		k.buf.Fill(segment.Dash)
	case '#':
		k.buf.Clear()
	default:
		c, _ := segment.ForRune(k.last)
		k.buf.Fill(c)
	}
	return nil
}

// Last returns the last key shown
func (k *KeyEcho) Last() rune { return k.last }

// Counter steps through 0..F, one value per period. '0' restarts it.
type Counter struct {
	buf    *display.Buffer
	value  int
	period uint32
}

// NewCounter counts once per second
func NewCounter(buf *display.Buffer) *Counter {
	return &Counter{buf: buf, period: core.TimerFromMS(1000)}
}

func (c *Counter) Name() string   { return "counter" }
func (c *Counter) Period() uint32 { return c.period }

func (c *Counter) Bind(d *Dispatcher) {
	d.On('0', func(keypad.KeyEvent) { c.value = 0 })
}

func (c *Counter) Update() error {
	err := c.buf.SetHex(c.value)
	c.value = (c.value + 1) % 16
	return err
}

// Value returns the next value to be shown
func (c *Counter) Value() int { return c.value }

// Banner shows fixed text
type Banner struct {
	buf  *display.Buffer
	text string
}

// NewBanner returns a banner for text
func NewBanner(buf *display.Buffer, text string) *Banner {
	return &Banner{buf: buf, text: text}
}

func (b *Banner) Name() string       { return "banner" }
func (b *Banner) Period() uint32     { return 0 }
func (b *Banner) Bind(d *Dispatcher) {}
func (b *Banner) Update() error      { return b.buf.SetText(b.text) }

// Blinker toggles an LED with independent on and off times
type Blinker struct {
	gpio core.GPIODriver
	pin  core.GPIOPin
	on   uint32
	off  uint32
	lit  bool
}

// Default blink times, in microseconds
const (
	DefaultBlinkOn  = 833
	DefaultBlinkOff = 7500
)

// NewBlinker configures pin as an output, initially off
func NewBlinker(gpio core.GPIODriver, pin core.GPIOPin, on, off uint32) (*Blinker, error) {
	if on == 0 || off == 0 {
		return nil, core.NewConfigError("blinker", "period", "on and off times must be non-zero")
	}
	if err := gpio.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := gpio.SetPin(pin, false); err != nil {
		return nil, err
	}
	return &Blinker{gpio: gpio, pin: pin, on: on, off: off}, nil
}

func (b *Blinker) Name() string       { return "blinker" }
func (b *Blinker) Bind(d *Dispatcher) {}

// Period is the time until the next toggle
func (b *Blinker) Period() uint32 {
	if b.lit {
		return b.on
	}
	return b.off
}

func (b *Blinker) Update() error {
	b.lit = !b.lit
	return b.gpio.SetPin(b.pin, b.lit)
}

// Lit reports the LED state
func (b *Blinker) Lit() bool { return b.lit }
