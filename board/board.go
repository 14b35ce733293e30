// Package board assembles the display, keypad, dispatcher and exercise
// described by a config.Board on top of a set of platform drivers.
package board

import (
	"segpad/app"
	"segpad/config"
	"segpad/core"
	"segpad/display"
	"segpad/keypad"
	"segpad/protocol"
)

// Hardware bundles the platform drivers. Only the drivers the configured
// exercise needs must be set.
type Hardware struct {
	GPIO core.GPIODriver
	IRQ  core.InterruptDriver
	ADC  core.ADCDriver
	I2C  core.I2CDriver
	PWM  core.PWMDriver

	SegmentBus display.SegmentBus // Display bus "pio"
	RTC        app.RTC            // Replaces raw DS3231 register reads
	Reporter   app.Reporter       // Telemetry; may be nil
}

// System is an assembled board
type System struct {
	Board      *config.Board
	Buffer     *display.Buffer
	Mux        *display.Multiplexer
	Queue      *keypad.Queue
	Poller     *keypad.PollingScanner   // Polling strategy
	IRQScanner *keypad.InterruptScanner // Interrupt strategy
	Dispatcher *app.Dispatcher
	Exercise   app.Exercise
	Runner     *app.Runner
	Loop       *app.Loop
}

// Stats collects the counters of every component
type Stats struct {
	Display    display.Stats
	Keypad     keypad.Stats
	Dropped    uint32
	Handled    uint32
	Ignored    uint32
	Steps      uint32
	UpdateErrs uint32
}

// Assemble validates b and builds every component. Nothing runs until
// Start.
func Assemble(b *config.Board, hw Hardware) (*System, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if hw.GPIO == nil {
		return nil, missing("gpio")
	}

	s := &System{Board: b, Buffer: display.NewBuffer(b.Display.Digits)}

	mc := b.MultiplexerConfig()
	if b.Display.Bus == "pio" {
		if hw.SegmentBus == nil {
			return nil, core.NewConfigError("display", "bus", "no PIO segment bus on this target")
		}
		mc.Bus = hw.SegmentBus
	}
	mux, err := display.NewMultiplexer(hw.GPIO, s.Buffer, mc)
	if err != nil {
		return nil, err
	}
	s.Mux = mux

	if s.Queue, err = b.Queue(); err != nil {
		return nil, err
	}
	sc, err := b.ScannerConfig()
	if err != nil {
		return nil, err
	}
	strategy, err := b.Strategy()
	if err != nil {
		return nil, err
	}
	switch strategy {
	case keypad.Interrupt:
		if hw.IRQ == nil {
			return nil, missing("interrupt")
		}
		s.IRQScanner, err = keypad.NewInterruptScanner(hw.GPIO, hw.IRQ, s.Queue, sc)
	default:
		s.Poller, err = keypad.NewPollingScanner(hw.GPIO, s.Queue, sc)
	}
	if err != nil {
		return nil, err
	}

	s.Dispatcher = app.NewDispatcher(s.Queue)
	if s.Exercise, err = newExercise(b, hw, s.Buffer); err != nil {
		return nil, err
	}

	s.Loop = &app.Loop{
		Mux:      s.Mux,
		TimedMux: !b.Cooperative(),
		Reporter: hw.Reporter,
		Delay:    config.Micros(b.Loop.Delay),
	}
	if s.Poller != nil {
		s.Loop.Scanner = s.Poller
	}
	if b.Cooperative() {
		s.Loop.Dispatcher = s.Dispatcher
	}
	s.Loop.Wire(s.Dispatcher)

	core.Logger().Info("board assembled",
		"exercise", s.Exercise.Name(),
		"digits", b.Display.Digits,
		"strategy", strategy.String(),
		"mode", b.Mode,
	)
	return s, nil
}

func missing(driver string) error {
	return core.NewConfigError("board", "drivers", "no "+driver+" driver on this target")
}

func newExercise(b *config.Board, hw Hardware, buf *display.Buffer) (app.Exercise, error) {
	switch b.Exercise {
	case config.ExerciseKeyEcho:
		return app.NewKeyEcho(buf), nil

	case config.ExerciseCounter:
		return app.NewCounter(buf), nil

	case config.ExerciseBanner:
		return app.NewBanner(buf, b.Banner), nil

	case config.ExerciseBlinker:
		return app.NewBlinker(hw.GPIO, core.GPIOPin(b.Blinker.Pin),
			config.Micros(b.Blinker.On), config.Micros(b.Blinker.Off))

	case config.ExerciseThermometer:
		if hw.ADC == nil {
			return nil, missing("adc")
		}
		return app.NewThermometer(hw.ADC, hw.GPIO, buf, app.ThermometerConfig{
			Channel:   core.ADCChannelID(b.Sensor.Channel),
			AlarmPin:  core.GPIOPin(b.Sensor.AlarmPin),
			UseAlarm:  b.Sensor.AlarmPin != config.NoPin,
			Threshold: b.Sensor.ThresholdC,
			Period:    config.Micros(b.Sensor.Period),
		})

	case config.ExerciseClock:
		rtc := hw.RTC
		if rtc == nil {
			if hw.I2C == nil {
				return nil, missing("i2c")
			}
			bus := core.I2CBusID(b.RTC.Bus)
			if err := hw.I2C.ConfigureBus(bus, b.RTC.FrequencyHz); err != nil {
				return nil, err
			}
			rtc = app.RegisterRTC{I2C: hw.I2C, Bus: bus, Addr: core.I2CAddress(b.RTC.Address)}
		}
		mode, err := button(b, hw, b.Buttons.Mode)
		if err != nil {
			return nil, err
		}
		return app.NewClock(rtc, buf, mode)

	case config.ExerciseServo:
		if hw.PWM == nil {
			return nil, missing("pwm")
		}
		var buttons app.ServoButtons
		var err error
		if buttons.Up, err = button(b, hw, b.Buttons.Up); err != nil {
			return nil, err
		}
		if buttons.Down, err = button(b, hw, b.Buttons.Down); err != nil {
			return nil, err
		}
		if buttons.Preset, err = button(b, hw, b.Buttons.Preset); err != nil {
			return nil, err
		}
		return app.NewServoControl(hw.PWM, core.PWMPin(b.Servo.Pin), buf,
			b.Servo.MinPulse, b.Servo.MaxPulse, buttons)
	}
	return nil, core.NewConfigError("board", "exercise", "unknown exercise "+b.Exercise)
}

// button returns nil for NoPin
func button(b *config.Board, hw Hardware, pin int) (*keypad.Button, error) {
	if pin == config.NoPin {
		return nil, nil
	}
	btn, err := keypad.NewButton(hw.GPIO, core.GPIOPin(pin), b.Buttons.ActiveLow, config.Micros(b.Keypad.Debounce))
	if err != nil {
		return nil, err
	}
	if b.Buttons.Interrupt {
		if hw.IRQ == nil {
			return nil, missing("interrupt")
		}
		if err := btn.Attach(hw.IRQ); err != nil {
			return nil, err
		}
	}
	return btn, nil
}

// Start binds the exercise and starts every timer-driven component
func (s *System) Start() {
	if !s.Board.Cooperative() {
		s.Mux.Start()
		s.Dispatcher.Start(config.Micros(s.Board.Loop.Dispatch))
	}
	if s.IRQScanner != nil {
		s.IRQScanner.Start()
	}
	s.Runner = app.Run(s.Exercise, s.Dispatcher)
}

// Stop cancels every timer and switches the display off
func (s *System) Stop() error {
	s.Loop.Stop()
	if s.Runner != nil {
		s.Runner.Stop()
	}
	if s.IRQScanner != nil {
		s.IRQScanner.Stop()
	}
	s.Dispatcher.Stop()
	return s.Mux.Stop()
}

// Run starts the board and runs the control loop until Stop or a failed
// step
func (s *System) Run() error {
	s.Start()
	return s.Loop.Run()
}

// Stats returns a snapshot of every counter
func (s *System) Stats() Stats {
	st := Stats{
		Display: s.Mux.Stats(),
		Dropped: s.Queue.Dropped(),
		Handled: s.Dispatcher.Handled(),
		Ignored: s.Dispatcher.Ignored(),
		Steps:   s.Loop.Steps(),
	}
	switch {
	case s.Poller != nil:
		st.Keypad = s.Poller.Stats()
	case s.IRQScanner != nil:
		st.Keypad = s.IRQScanner.Stats()
	}
	if s.Runner != nil {
		st.UpdateErrs = s.Runner.Errors()
	}
	return st
}

// Report converts the counters for telemetry
func (st Stats) Report() protocol.StatsReport {
	return protocol.StatsReport{
		Ticks:      st.Display.Ticks,
		Frames:     st.Display.Frames,
		StaleReads: st.Display.StaleReads,
		Accepted:   st.Keypad.Accepted,
		Bounced:    st.Keypad.Bounced,
		Stuck:      st.Keypad.Stuck,
		Spurious:   st.Keypad.Spurious,
		Dropped:    st.Dropped,
		Handled:    st.Handled,
	}
}

// Identify describes the board for the host
func (s *System) Identify() protocol.IdentifyReport {
	return protocol.IdentifyReport{
		Version:  protocol.Version,
		Exercise: s.Exercise.Name(),
		Digits:   s.Board.Display.Digits,
		Rows:     len(s.Board.Keypad.RowPins),
		Cols:     len(s.Board.Keypad.ColPins),
	}
}
