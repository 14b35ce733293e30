//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/ds3231"
)

var errNoRTC = errors.New("ds3231: no device on the bus")

// DS3231 adapts the TinyGo DS3231 driver to app.RTC
type DS3231 struct {
	dev ds3231.Device
}

// NewDS3231 probes the clock at addr and starts its oscillator if it was
// stopped
func NewDS3231(bus *machine.I2C, addr uint8) (*DS3231, error) {
	dev := ds3231.New(bus)
	dev.Address = uint16(addr)
	if !dev.Configure() {
		return nil, errNoRTC
	}
	if !dev.IsRunning() {
		if err := dev.SetRunning(true); err != nil {
			return nil, err
		}
	}
	return &DS3231{dev: dev}, nil
}

// ReadTime implements app.RTC
func (r *DS3231) ReadTime() (time.Time, error) {
	return r.dev.ReadTime()
}
