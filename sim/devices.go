package sim

import (
	"time"

	"segpad/core"
)

// ConfigureChannel implements core.ADCDriver
func (b *Bench) ConfigureChannel(ch core.ADCChannelID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcOn[ch] = true
	return nil
}

// ReadAnalog implements core.ADCDriver
func (b *Bench) ReadAnalog(ch core.ADCChannelID) (core.ADCValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.adcOn[ch] {
		return 0, ErrNoChannel
	}
	return b.adc[ch], nil
}

// SetAnalog sets the raw reading of an ADC channel
func (b *Bench) SetAnalog(ch core.ADCChannelID, v core.ADCValue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v > core.ADCMax {
		v = core.ADCMax
	}
	b.adc[ch] = v
}

// SetMillivolts sets an ADC channel from a voltage against a 3.3V reference
func (b *Bench) SetMillivolts(ch core.ADCChannelID, mv uint32) {
	b.SetAnalog(ch, core.ADCValue(mv*core.ADCMax/3300))
}

// ConfigureBus implements core.I2CDriver
func (b *Bench) ConfigureBus(bus core.I2CBusID, frequencyHz uint32) error {
	return nil
}

// ReadRegisters implements core.I2CDriver. Reads past the end of a
// device's register file wrap to register 0, like the DS3231 pointer.
func (b *Bench) ReadRegisters(bus core.I2CBusID, addr core.I2CAddress, reg uint8, count int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs, ok := b.i2c[addr]
	if !ok || len(regs) == 0 {
		return nil, ErrNoDevice
	}
	out := make([]byte, count)
	for i := range out {
		out[i] = regs[(int(reg)+i)%len(regs)]
	}
	return out, nil
}

// AttachDevice places a register file at an I2C address
func (b *Bench) AttachDevice(addr core.I2CAddress, regs []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.i2c[addr] = append([]byte(nil), regs...)
}

// DetachDevice removes the device at addr
func (b *Bench) DetachDevice(addr core.I2CAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.i2c, addr)
}

// DS3231Address is the fixed bus address of the DS3231 RTC
const DS3231Address core.I2CAddress = 0x68

// SetRTC loads t into a simulated DS3231 at its fixed address
func (b *Bench) SetRTC(t time.Time) {
	regs := make([]byte, 0x13)
	regs[0] = bcd(t.Second())
	regs[1] = bcd(t.Minute())
	regs[2] = bcd(t.Hour()) // 24 hour mode
	regs[3] = byte(t.Weekday()) + 1
	regs[4] = bcd(t.Day())
	regs[5] = bcd(int(t.Month()))
	regs[6] = bcd(t.Year() % 100)
	if t.Year() >= 2100 {
		regs[5] |= 0x80
	}
	b.AttachDevice(DS3231Address, regs)
}

func bcd(v int) byte {
	return byte(v/10<<4 | v%10)
}

// ConfigureServo implements core.PWMDriver
func (b *Bench) ConfigureServo(pin core.PWMPin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulses[pin] = 0
	return nil
}

// SetPulseWidth implements core.PWMDriver
func (b *Bench) SetPulseWidth(pin core.PWMPin, micros uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pulses[pin]; !ok {
		return ErrUnconfigured
	}
	b.pulses[pin] = micros
	return nil
}

// PulseWidth returns the last pulse width set on a servo pin
func (b *Bench) PulseWidth(pin core.PWMPin) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pulses[pin]
}
