//go:build rp2040

package main

import (
	"errors"
	"machine"

	"segpad/core"
)

var errPinNotConfigured = errors.New("gpio: pin not configured")

// RPGPIODriver implements core.GPIODriver and core.InterruptDriver for RP2040
type RPGPIODriver struct {
	// Configured pins; reconfiguring a pin changes its mode
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return errPinNotConfigured
	}
	machinePin.Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, errPinNotConfigured
	}
	return machinePin.Get(), nil
}

func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	value, _ := d.GetPin(pin)
	return value
}

// SetEdgeInterrupt routes a GPIO bank interrupt to handler. The closure is
// built here, outside interrupt context.
func (d *RPGPIODriver) SetEdgeInterrupt(pin core.GPIOPin, edge core.Edge, handler core.EdgeHandler) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return errPinNotConfigured
	}
	if handler == nil {
		return machinePin.SetInterrupt(0, nil)
	}

	change := machine.PinToggle
	switch edge {
	case core.EdgeFalling:
		change = machine.PinFalling
	case core.EdgeRising:
		change = machine.PinRising
	}
	return machinePin.SetInterrupt(change, func(p machine.Pin) {
		handler(core.GPIOPin(p))
	})
}
