//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/servo"

	"segpad/core"
)

var errServoNotConfigured = errors.New("servo: pin not configured")

// ServoDriver implements core.PWMDriver with the TinyGo servo driver.
// RP2040 has 8 PWM slices of 2 channels; GPIO N sits on slice (N>>1)&7.
type ServoDriver struct {
	servos map[core.PWMPin]servo.Servo
}

// NewServoDriver creates an empty driver
func NewServoDriver() *ServoDriver {
	return &ServoDriver{servos: make(map[core.PWMPin]servo.Servo)}
}

// ConfigureServo sets up the pin's PWM slice for a 50Hz pulse train
func (d *ServoDriver) ConfigureServo(pin core.PWMPin) error {
	s, err := servo.New(pwmSlice(uint8((uint32(pin)>>1)&0x7)), machine.Pin(pin))
	if err != nil {
		return err
	}
	d.servos[pin] = s
	return nil
}

// SetPulseWidth sets the high time of each period in microseconds
func (d *ServoDriver) SetPulseWidth(pin core.PWMPin, micros uint32) error {
	s, ok := d.servos[pin]
	if !ok {
		return errServoNotConfigured
	}
	s.SetMicroseconds(int16(micros))
	return nil
}

// pwmSlice returns the PWM peripheral of a slice. TinyGo's *pwmGroup is
// unexported, so it travels as a servo.PWM.
func pwmSlice(slice uint8) servo.PWM {
	switch slice {
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	}
	return machine.PWM0
}
