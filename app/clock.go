package app

import (
	"errors"
	"time"

	"segpad/core"
	"segpad/display"
	"segpad/keypad"
	"segpad/segment"
)

// RTC is a real-time clock source. tinygo.org/x/drivers/ds3231 devices
// satisfy it directly.
type RTC interface {
	ReadTime() (time.Time, error)
}

var errShortRead = errors.New("rtc: short register read")

// RegisterRTC reads a DS3231-compatible clock through the core I2C driver:
// seven BCD registers from 0x00 (seconds, minutes, hours, weekday, day,
// month/century, year).
type RegisterRTC struct {
	I2C  core.I2CDriver
	Bus  core.I2CBusID
	Addr core.I2CAddress
}

// ReadTime implements RTC
func (r RegisterRTC) ReadTime() (time.Time, error) {
	regs, err := r.I2C.ReadRegisters(r.Bus, r.Addr, 0x00, 7)
	if err != nil {
		return time.Time{}, err
	}
	if len(regs) < 7 {
		return time.Time{}, errShortRead
	}
	sec := fromBCD(regs[0] & 0x7F)
	minute := fromBCD(regs[1] & 0x7F)
	hour := hour24(regs[2])
	day := fromBCD(regs[4] & 0x3F)
	month := fromBCD(regs[5] & 0x1F)
	year := 2000 + fromBCD(regs[6])
	if regs[5]&0x80 != 0 {
		year += 100
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC), nil
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// hour24 decodes the hours register in either 12 or 24 hour mode
func hour24(b byte) int {
	if b&0x40 == 0 {
		return fromBCD(b & 0x3F)
	}
	h := fromBCD(b & 0x1F)
	pm := b&0x20 != 0
	switch {
	case h == 12 && !pm:
		return 0
	case h != 12 && pm:
		return h + 12
	}
	return h
}

// Clock shows HHMMSS or DDMMYY on six digits. The button or the '#' key
// switches between time and date.
type Clock struct {
	rtc    RTC
	buf    *display.Buffer
	button *keypad.Button

	showDate bool
	refresh  uint32
	last     uint32
	drawn    bool
	now      time.Time
}

// Clock timing in ticks
var (
	ClockRefresh    = core.TimerFromMS(500)
	ClockButtonPoll = core.TimerFromMS(20)
)

// NewClock returns a clock on buf. button may be nil.
func NewClock(rtc RTC, buf *display.Buffer, button *keypad.Button) (*Clock, error) {
	if buf.Len() < 6 {
		return nil, core.NewConfigError("clock", "digit count", "needs six digits")
	}
	return &Clock{rtc: rtc, buf: buf, button: button, refresh: ClockRefresh}, nil
}

func (c *Clock) Name() string { return "clock" }

// Period polls the button often and the RTC at the refresh period
func (c *Clock) Period() uint32 {
	if c.button != nil {
		return ClockButtonPoll
	}
	return c.refresh
}

func (c *Clock) Bind(d *Dispatcher) {
	d.On('#', func(keypad.KeyEvent) { c.Toggle() })
}

// Toggle switches between time and date and redraws on the next update
func (c *Clock) Toggle() {
	c.showDate = !c.showDate
	c.drawn = false
}

// ShowingDate reports the current mode
func (c *Clock) ShowingDate() bool { return c.showDate }

func (c *Clock) Update() error {
	if c.button != nil && c.button.Pressed() {
		c.Toggle()
	}
	now := core.GetTime()
	if c.drawn && core.Elapsed(c.last) < c.refresh {
		return nil
	}
	c.last = now

	t, err := c.rtc.ReadTime()
	if err != nil {
		c.buf.Fill(segment.Dash)
		c.drawn = true
		return err
	}
	c.now = t
	c.drawn = true

	a, b, d := t.Hour(), t.Minute(), t.Second()
	if c.showDate {
		a, b, d = t.Day(), int(t.Month()), t.Year()%100
	}
	return c.buf.SetDigits(a/10, a%10, b/10, b%10, d/10, d%10)
}

// Time returns the last time read from the RTC
func (c *Clock) Time() time.Time { return c.now }
