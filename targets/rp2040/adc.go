//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"sync"

	"segpad/core"
)

// Channel 4 is the internal temperature sensor
const adcTempChannel = 4

var errADCChannel = errors.New("unsupported ADC channel")

// RpAdcDriver implements core.ADCDriver using TinyGo's machine.ADC.
type RpAdcDriver struct {
	mu   sync.Mutex
	init bool

	// Per-channel TinyGo ADC handles for the external channels 0-3
	channels map[core.ADCChannelID]*machine.ADC
}

// NewRPAdcDriver constructs the driver. The converter is powered up by the
// first ConfigureChannel.
func NewRPAdcDriver() *RpAdcDriver {
	return &RpAdcDriver{
		channels: make(map[core.ADCChannelID]*machine.ADC),
	}
}

// rawInternalTemp returns the 12-bit raw ADC value from the internal temp sensor (0–4095).
func rawInternalTemp() uint16 {
	// Enable temperature sensor
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)

	rp.ADC.CS.ReplaceBits(
		uint32(adcTempChannel)<<rp.ADC_CS_AINSEL_Pos,
		rp.ADC_CS_AINSEL_Msk,
		0,
	)

	// Start a single conversion and wait for it
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}

	return uint16(rp.ADC.RESULT.Get())
}

// ConfigureChannel sets up a specific ADC channel (pin mux, etc.).
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.init {
		machine.InitADC()
		d.init = true
	}
	if ch == adcTempChannel {
		return nil
	}
	if _, ok := d.channels[ch]; ok {
		return nil
	}

	var adc machine.ADC
	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	default:
		return errADCChannel
	}

	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = &adc
	return nil
}

// ReadAnalog returns a 12-bit reading (0-4095). TinyGo scales samples to
// 16 bits, so they are shifted back down.
func (d *RpAdcDriver) ReadAnalog(ch core.ADCChannelID) (core.ADCValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch == adcTempChannel {
		return core.ADCValue(rawInternalTemp()), nil
	}

	adc, ok := d.channels[ch]
	if !ok {
		return 0, errADCChannel
	}
	return core.ADCValue(adc.Get() >> 4), nil
}
