package app

import (
	"segpad/core"
	"segpad/display"
	"segpad/keypad"
)

// Servo limits
const (
	ServoStep   = 10
	ServoPreset = 90
	ServoMax    = 180

	DefaultServoMinPulse = 500
	DefaultServoMaxPulse = 2500
)

// ServoButtons are the optional push buttons of the servo exercise
type ServoButtons struct {
	Up     *keypad.Button
	Down   *keypad.Button
	Preset *keypad.Button
}

// ServoControl moves a hobby servo in 10 degree steps and shows the angle.
// Keys: 'A' up, 'B' down, 'C' back to 90, '*' to 0, '#' to 180.
type ServoControl struct {
	pwm     core.PWMDriver
	pin     core.PWMPin
	buf     *display.Buffer
	buttons ServoButtons

	minPulse uint32
	maxPulse uint32
	angle    int
}

// NewServoControl configures the servo output and moves it to 90 degrees.
// Zero pulse bounds use 500..2500us.
func NewServoControl(pwm core.PWMDriver, pin core.PWMPin, buf *display.Buffer, minPulse, maxPulse uint32, buttons ServoButtons) (*ServoControl, error) {
	if minPulse == 0 {
		minPulse = DefaultServoMinPulse
	}
	if maxPulse == 0 {
		maxPulse = DefaultServoMaxPulse
	}
	if minPulse >= maxPulse {
		return nil, core.NewConfigError("servo", "pulse range", "min must be below max")
	}
	if err := pwm.ConfigureServo(pin); err != nil {
		return nil, err
	}
	s := &ServoControl{
		pwm:      pwm,
		pin:      pin,
		buf:      buf,
		buttons:  buttons,
		minPulse: minPulse,
		maxPulse: maxPulse,
	}
	if err := s.Set(ServoPreset); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ServoControl) Name() string { return "servo" }

// Period polls the buttons when there are any
func (s *ServoControl) Period() uint32 {
	if s.buttons.Up == nil && s.buttons.Down == nil && s.buttons.Preset == nil {
		return 0
	}
	return core.TimerFromMS(20)
}

func (s *ServoControl) Bind(d *Dispatcher) {
	d.On('A', func(keypad.KeyEvent) { s.Step(ServoStep) })
	d.On('B', func(keypad.KeyEvent) { s.Step(-ServoStep) })
	d.On('C', func(keypad.KeyEvent) { s.Set(ServoPreset) })
	d.On('*', func(keypad.KeyEvent) { s.Set(0) })
	d.On('#', func(keypad.KeyEvent) { s.Set(ServoMax) })
}

// Update polls every button, so each one sees its own press edge. Preset
// wins over a step; Up and Down together cancel out.
func (s *ServoControl) Update() error {
	up := pressed(s.buttons.Up)
	down := pressed(s.buttons.Down)
	preset := pressed(s.buttons.Preset)

	if preset {
		return s.Set(ServoPreset)
	}
	delta := 0
	if up {
		delta += ServoStep
	}
	if down {
		delta -= ServoStep
	}
	if delta != 0 {
		return s.Step(delta)
	}
	return s.buf.SetNumber(s.angle)
}

func pressed(b *keypad.Button) bool {
	return b != nil && b.Pressed()
}

// Step moves by delta degrees, clamped to 0..180
func (s *ServoControl) Step(delta int) error {
	return s.Set(s.angle + delta)
}

// Set moves to angle degrees, clamped to 0..180
func (s *ServoControl) Set(angle int) error {
	if angle < 0 {
		angle = 0
	}
	if angle > ServoMax {
		angle = ServoMax
	}
	s.angle = angle
	if err := s.pwm.SetPulseWidth(s.pin, s.Pulse()); err != nil {
		return err
	}
	return s.buf.SetNumber(angle)
}

// Angle returns the commanded angle
func (s *ServoControl) Angle() int { return s.angle }

// Pulse returns the pulse width for the current angle
func (s *ServoControl) Pulse() uint32 {
	return s.minPulse + (s.maxPulse-s.minPulse)*uint32(s.angle)/ServoMax
}
