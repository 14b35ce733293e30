// Package config describes a board: which exercise runs, how the display
// and keypad are wired, and the timing of every periodic activity.
//
// Firmware builds use Default; host tools may Load a YAML file on top of it.
package config

import (
	"strconv"
	"time"

	"segpad/core"
	"segpad/display"
	"segpad/keypad"
)

// Exercise names
const (
	ExerciseKeyEcho     = "keyecho"
	ExerciseThermometer = "thermometer"
	ExerciseClock       = "clock"
	ExerciseServo       = "servo"
	ExerciseCounter     = "counter"
	ExerciseBlinker     = "blinker"
	ExerciseBanner      = "banner"
)

// Exercises lists every known exercise
var Exercises = []string{
	ExerciseKeyEcho,
	ExerciseThermometer,
	ExerciseClock,
	ExerciseServo,
	ExerciseCounter,
	ExerciseBlinker,
	ExerciseBanner,
}

// NoPin marks an optional pin that is not wired
const NoPin = -1

// Board is the complete board configuration
type Board struct {
	Exercise  string          `yaml:"exercise"`
	Mode      string          `yaml:"mode"` // "cooperative" or "timers"
	Display   DisplayConfig   `yaml:"display"`
	Keypad    KeypadConfig    `yaml:"keypad"`
	Sensor    SensorConfig    `yaml:"sensor"`
	RTC       RTCConfig       `yaml:"rtc"`
	Servo     ServoConfig     `yaml:"servo"`
	Blinker   BlinkerConfig   `yaml:"blinker"`
	Buttons   ButtonConfig    `yaml:"buttons"`
	Banner    string          `yaml:"banner"`
	Loop      LoopConfig      `yaml:"loop"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DisplayConfig wires the multiplexed display
type DisplayConfig struct {
	SegmentPins      []int         `yaml:"segment_pins"` // A..G[, DP]
	DigitPins        []int         `yaml:"digit_pins"`   // Left to right
	Digits           int           `yaml:"digits"`
	Dwell            time.Duration `yaml:"dwell"` // Per digit
	SegmentActiveLow bool          `yaml:"segment_active_low"`
	DigitActiveLow   bool          `yaml:"digit_active_low"`
	Bus              string        `yaml:"bus"` // "gpio" or "pio"
	Trace            bool          `yaml:"trace"`
}

// KeypadConfig wires the key matrix
type KeypadConfig struct {
	Strategy       string        `yaml:"strategy"` // "poll" or "interrupt"
	RowPins        []int         `yaml:"row_pins"`
	ColPins        []int         `yaml:"col_pins"`
	Layout         []string      `yaml:"layout"`
	Debounce       time.Duration `yaml:"debounce"`
	DebounceMode   string        `yaml:"debounce_mode"` // "per-key" or "global"
	QueueCapacity  int           `yaml:"queue_capacity"`
	Overflow       string        `yaml:"overflow"` // "drop-oldest" or "block"
	ReleasePoll    time.Duration `yaml:"release_poll"`
	MaxReleaseWait time.Duration `yaml:"max_release_wait"`
	RotatePeriod   time.Duration `yaml:"rotate_period"`
	Trace          bool          `yaml:"trace"`
}

// SensorConfig wires the LM35 thermometer
type SensorConfig struct {
	Channel    uint8         `yaml:"channel"`
	AlarmPin   int           `yaml:"alarm_pin"`
	ThresholdC float32       `yaml:"threshold_c"`
	Period     time.Duration `yaml:"period"`
}

// RTCConfig locates the DS3231
type RTCConfig struct {
	Bus         uint8  `yaml:"bus"`
	Address     uint8  `yaml:"address"`
	FrequencyHz uint32 `yaml:"frequency_hz"`
}

// ServoConfig wires the servo output
type ServoConfig struct {
	Pin      int    `yaml:"pin"`
	MinPulse uint32 `yaml:"min_pulse_us"`
	MaxPulse uint32 `yaml:"max_pulse_us"`
}

// BlinkerConfig wires the blinking LED
type BlinkerConfig struct {
	Pin int           `yaml:"pin"`
	On  time.Duration `yaml:"on"`
	Off time.Duration `yaml:"off"`
}

// ButtonConfig wires the discrete push buttons; NoPin leaves one out
type ButtonConfig struct {
	Mode      int  `yaml:"mode"` // Clock time/date toggle
	Up        int  `yaml:"up"`
	Down      int  `yaml:"down"`
	Preset    int  `yaml:"preset"`
	ActiveLow bool `yaml:"active_low"`
	Interrupt bool `yaml:"interrupt"`
}

// LoopConfig sets the main loop timing
type LoopConfig struct {
	Delay    time.Duration `yaml:"delay"`    // Cooperative step delay
	Dispatch time.Duration `yaml:"dispatch"` // Key dispatch period with timers
}

// TelemetryConfig controls the status stream to the host
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"` // Host side serial device
	Baud    int    `yaml:"baud"`
}

// Default returns the three digit, 4x4 keypad board of the exercises on
// Raspberry Pi Pico pins
func Default() *Board {
	return &Board{
		Exercise: ExerciseKeyEcho,
		Mode:     "cooperative",
		Display: DisplayConfig{
			SegmentPins: []int{0, 1, 2, 3, 4, 5, 6, 7},
			DigitPins:   []int{8, 9, 10, 11, 12, 13},
			Digits:      3,
			Dwell:       2 * time.Millisecond,
			Bus:         "gpio",
		},
		Keypad: KeypadConfig{
			Strategy:       "poll",
			RowPins:        []int{14, 15, 16, 17},
			ColPins:        []int{18, 19, 20, 21},
			Layout:         keypad.PhoneLayout.Layout(),
			Debounce:       200 * time.Millisecond,
			DebounceMode:   "per-key",
			QueueCapacity:  keypad.DefaultQueueCapacity,
			Overflow:       "drop-oldest",
			ReleasePoll:    time.Millisecond,
			MaxReleaseWait: 2 * time.Second,
			RotatePeriod:   time.Millisecond,
		},
		Sensor: SensorConfig{
			Channel:    2, // GP28
			AlarmPin:   25,
			ThresholdC: 30,
			Period:     250 * time.Millisecond,
		},
		RTC: RTCConfig{
			Bus:         1,
			Address:     0x68,
			FrequencyHz: 100000,
		},
		Servo: ServoConfig{
			Pin:      22,
			MinPulse: 500,
			MaxPulse: 2500,
		},
		Blinker: BlinkerConfig{
			Pin: 25,
			On:  833 * time.Microsecond,
			Off: 7500 * time.Microsecond,
		},
		Buttons: ButtonConfig{
			Mode:      22,
			Up:        NoPin,
			Down:      NoPin,
			Preset:    NoPin,
			ActiveLow: true,
		},
		Banner: "JESUS4",
		Loop: LoopConfig{
			Delay:    time.Millisecond,
			Dispatch: 10 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Port:    "/dev/ttyACM0",
			Baud:    115200,
		},
	}
}

// Micros converts a duration to core clock ticks
func Micros(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return core.TimerFromUS(uint32(d / time.Microsecond))
}

func pins(in []int) []core.GPIOPin {
	out := make([]core.GPIOPin, len(in))
	for i, p := range in {
		out[i] = core.GPIOPin(p)
	}
	return out
}

// MultiplexerConfig converts the display section. The segment bus is left
// to the caller.
func (b *Board) MultiplexerConfig() display.Config {
	return display.Config{
		SegmentPins:      pins(b.Display.SegmentPins),
		DigitPins:        pins(b.Display.DigitPins),
		DigitCount:       b.Display.Digits,
		Dwell:            Micros(b.Display.Dwell),
		SegmentActiveLow: b.Display.SegmentActiveLow,
		DigitActiveLow:   b.Display.DigitActiveLow,
		Trace:            b.Display.Trace,
	}
}

// ScannerConfig converts the keypad section
func (b *Board) ScannerConfig() (keypad.ScannerConfig, error) {
	km, err := keypad.NewKeyMap(b.Keypad.Layout...)
	if err != nil {
		return keypad.ScannerConfig{}, err
	}
	mode := keypad.PerKey
	switch b.Keypad.DebounceMode {
	case "", "per-key":
	case "global":
		mode = keypad.Global
	default:
		return keypad.ScannerConfig{}, core.NewConfigError("keypad", "debounce mode", "unknown mode "+b.Keypad.DebounceMode)
	}
	return keypad.ScannerConfig{
		RowPins:        pins(b.Keypad.RowPins),
		ColPins:        pins(b.Keypad.ColPins),
		KeyMap:         km,
		Debounce:       Micros(b.Keypad.Debounce),
		DebounceMode:   mode,
		ReleasePoll:    Micros(b.Keypad.ReleasePoll),
		MaxReleaseWait: Micros(b.Keypad.MaxReleaseWait),
		RotatePeriod:   Micros(b.Keypad.RotatePeriod),
		Trace:          b.Keypad.Trace,
	}, nil
}

// Queue builds the key event queue
func (b *Board) Queue() (*keypad.Queue, error) {
	policy, err := keypad.ParseOverflowPolicy(b.Keypad.Overflow)
	if err != nil {
		return nil, err
	}
	return keypad.NewQueue(b.Keypad.QueueCapacity, policy), nil
}

// Strategy returns the keypad scanning strategy
func (b *Board) Strategy() (keypad.Strategy, error) {
	return keypad.ParseStrategy(b.Keypad.Strategy)
}

// Cooperative reports whether one loop drives everything
func (b *Board) Cooperative() bool {
	return b.Mode != "timers"
}

// Validate checks the whole board. Every error is a
// *core.ConfigurationError.
func (b *Board) Validate() error {
	if !known(b.Exercise) {
		return core.NewConfigError("board", "exercise", "unknown exercise "+b.Exercise)
	}
	if b.Mode != "cooperative" && b.Mode != "timers" {
		return core.NewConfigError("board", "mode", "must be cooperative or timers")
	}
	if b.Display.Bus != "gpio" && b.Display.Bus != "pio" {
		return core.NewConfigError("display", "bus", "must be gpio or pio")
	}
	if err := b.MultiplexerConfig().Validate(); err != nil {
		return err
	}

	sc, err := b.ScannerConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	strategy, err := b.Strategy()
	if err != nil {
		return err
	}
	policy, err := keypad.ParseOverflowPolicy(b.Keypad.Overflow)
	if err != nil {
		return err
	}
	if strategy == keypad.Interrupt && policy == keypad.Block {
		return core.NewConfigError("keypad", "overflow policy", "interrupt scanning needs drop-oldest")
	}
	if strategy == keypad.Polling && !b.Cooperative() && policy == keypad.Block {
		return core.NewConfigError("keypad", "overflow policy", "a timer-driven scan cannot block")
	}

	used := make(map[int]string)
	claim := func(owner string, list ...int) error {
		for _, p := range list {
			if p == NoPin {
				continue
			}
			if prev, ok := used[p]; ok && prev != owner {
				return core.NewConfigError("board", "pins",
					"pin "+strconv.Itoa(p)+" used by "+prev+" and "+owner)
			}
			used[p] = owner
		}
		return nil
	}
	if err := claim("display", b.Display.SegmentPins...); err != nil {
		return err
	}
	if err := claim("display", b.Display.DigitPins...); err != nil {
		return err
	}
	if err := claim("keypad", b.Keypad.RowPins...); err != nil {
		return err
	}
	if err := claim("keypad", b.Keypad.ColPins...); err != nil {
		return err
	}

	switch b.Exercise {
	case ExerciseThermometer:
		return claim("alarm", b.Sensor.AlarmPin)
	case ExerciseClock:
		if b.Display.Digits < 6 {
			return core.NewConfigError("clock", "digit count", "needs six digits")
		}
		return claim("button", b.Buttons.Mode)
	case ExerciseServo:
		if b.Servo.MinPulse >= b.Servo.MaxPulse {
			return core.NewConfigError("servo", "pulse range", "min must be below max")
		}
		if err := claim("servo", b.Servo.Pin); err != nil {
			return err
		}
		return claim("button", b.Buttons.Up, b.Buttons.Down, b.Buttons.Preset)
	case ExerciseBlinker:
		if b.Blinker.On <= 0 || b.Blinker.Off <= 0 {
			return core.NewConfigError("blinker", "period", "on and off times must be positive")
		}
		return claim("blinker", b.Blinker.Pin)
	}
	return nil
}

func known(name string) bool {
	for _, e := range Exercises {
		if e == name {
			return true
		}
	}
	return false
}
