package app

import (
	"github.com/chewxy/math32"

	"segpad/core"
	"segpad/display"
	"segpad/keypad"
)

// LM35 output scale and the ADC reference
const (
	lm35MillivoltsPerDegree = 10
	adcReferenceMillivolts  = 3300
)

// ThermometerConfig wires an LM35 temperature sensor
type ThermometerConfig struct {
	Channel   core.ADCChannelID
	AlarmPin  core.GPIOPin
	UseAlarm  bool
	Threshold float32 // Celsius; the alarm fires above it
	Period    uint32  // Sampling period in ticks
}

// Thermometer samples an LM35 and shows the temperature in Celsius or
// Fahrenheit ('1' and '2'). Above the threshold the alarm output and the
// display blink.
type Thermometer struct {
	adc  core.ADCDriver
	gpio core.GPIODriver
	buf  *display.Buffer
	cfg  ThermometerConfig

	celsius    float32
	fahrenheit bool
	alarm      bool
	blink      bool
}

// NewThermometer configures the ADC channel and the alarm output
func NewThermometer(adc core.ADCDriver, gpio core.GPIODriver, buf *display.Buffer, cfg ThermometerConfig) (*Thermometer, error) {
	if cfg.Period == 0 {
		cfg.Period = core.TimerFromMS(250)
	}
	if err := adc.ConfigureChannel(cfg.Channel); err != nil {
		return nil, err
	}
	if cfg.UseAlarm {
		if err := gpio.ConfigureOutput(cfg.AlarmPin); err != nil {
			return nil, err
		}
		if err := gpio.SetPin(cfg.AlarmPin, false); err != nil {
			return nil, err
		}
	}
	return &Thermometer{adc: adc, gpio: gpio, buf: buf, cfg: cfg}, nil
}

func (t *Thermometer) Name() string   { return "thermometer" }
func (t *Thermometer) Period() uint32 { return t.cfg.Period }

func (t *Thermometer) Bind(d *Dispatcher) {
	d.On('1', func(keypad.KeyEvent) { t.fahrenheit = false })
	d.On('2', func(keypad.KeyEvent) { t.fahrenheit = true })
}

// Update samples the sensor and redraws the display
func (t *Thermometer) Update() error {
	raw, err := t.adc.ReadAnalog(t.cfg.Channel)
	if err != nil {
		return err
	}
	t.celsius = RawToCelsius(raw)

	alarm := t.celsius > t.cfg.Threshold
	if alarm != t.alarm {
		core.Logger().Info("temperature alarm", "on", alarm, "celsius", t.celsius)
	}
	t.alarm = alarm

	if t.alarm {
		t.blink = !t.blink
	} else {
		t.blink = false
	}
	if t.cfg.UseAlarm {
		if err := t.gpio.SetPin(t.cfg.AlarmPin, t.blink); err != nil {
			return err
		}
	}

	if t.alarm && !t.blink {
		t.buf.Clear()
		return nil
	}
	return t.buf.SetNumber(t.Display())
}

// Display returns the whole-degree value shown in the current unit
func (t *Thermometer) Display() int {
	v := t.celsius
	if t.fahrenheit {
		v = CelsiusToFahrenheit(v)
	}
	return int(math32.Floor(v + 0.5))
}

// Celsius returns the last reading
func (t *Thermometer) Celsius() float32 { return t.celsius }

// Fahrenheit reports the display unit
func (t *Thermometer) Fahrenheit() bool { return t.fahrenheit }

// Alarm reports whether the last reading was above the threshold
func (t *Thermometer) Alarm() bool { return t.alarm }

// RawToCelsius converts a 12-bit LM35 reading against a 3.3V reference
func RawToCelsius(raw core.ADCValue) float32 {
	mv := math32.Min(float32(raw), core.ADCMax) * adcReferenceMillivolts / core.ADCMax
	return mv / lm35MillivoltsPerDegree
}

// CelsiusToFahrenheit converts a temperature
func CelsiusToFahrenheit(c float32) float32 {
	return c*9/5 + 32
}
