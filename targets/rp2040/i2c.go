//go:build rp2040

package main

import (
	"errors"
	"machine"
	"sync"

	"segpad/core"
)

var (
	errI2CBus           = errors.New("unsupported I2C bus ID")
	errI2CNotConfigured = errors.New("I2C bus not configured")
)

// RPI2CDriver implements core.I2CDriver using TinyGo's machine.I2C.
type RPI2CDriver struct {
	mu sync.Mutex

	// Configured buses; RP2040 has I2C0 and I2C1
	buses map[core.I2CBusID]*machine.I2C
}

// NewRPI2CDriver constructs the driver
func NewRPI2CDriver() *RPI2CDriver {
	return &RPI2CDriver{
		buses: make(map[core.I2CBusID]*machine.I2C),
	}
}

// ConfigureBus initializes a specific I2C bus with the given frequency.
// A bus that is already up only changes its baud rate.
func (d *RPI2CDriver) ConfigureBus(bus core.I2CBusID, frequencyHz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i2c, ok := d.buses[bus]; ok {
		return i2c.SetBaudRate(frequencyHz)
	}

	var i2c *machine.I2C
	switch bus {
	case 0:
		// Default pins: SDA=GP4, SCL=GP5
		i2c = machine.I2C0
	case 1:
		// Default pins: SDA=GP6, SCL=GP7
		i2c = machine.I2C1
	default:
		return errI2CBus
	}

	if err := i2c.Configure(machine.I2CConfig{Frequency: frequencyHz}); err != nil {
		return err
	}
	d.buses[bus] = i2c
	return nil
}

// ReadRegisters writes the register address, then reads count bytes with
// a repeated start in between.
func (d *RPI2CDriver) ReadRegisters(bus core.I2CBusID, addr core.I2CAddress, reg uint8, count int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i2c, ok := d.buses[bus]
	if !ok {
		return nil, errI2CNotConfigured
	}

	buf := make([]byte, count)
	if err := i2c.Tx(uint16(addr), []byte{reg}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MachineBus returns the underlying machine.I2C of a configured bus, for
// TinyGo drivers that talk to the bus themselves.
func (d *RPI2CDriver) MachineBus(bus core.I2CBusID) (*machine.I2C, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i2c, ok := d.buses[bus]
	if !ok {
		return nil, errI2CNotConfigured
	}
	return i2c, nil
}
