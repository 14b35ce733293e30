//go:build rp2040

package main

import (
	"log/slog"
	"machine"
	"time"

	"segpad/board"
	"segpad/config"
	"segpad/core"
	"segpad/protocol"
)

// Telemetry stats interval in milliseconds
const statsPeriodMS = 1000

var (
	statsTimer core.Timer
	panics     uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	// Logs go to the UART console; USB carries telemetry
	machine.DefaultUART.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetLogger(slog.New(slog.NewTextHandler(machine.DefaultUART, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	link := InitUSB()
	InitClock()

	b := config.Default()
	sys, tel, err := setup(b, link)
	if err != nil {
		halt(err)
	}

	if tel != nil {
		tel.Send(sys.Identify())
		core.ScheduleRecurring(&statsTimer, core.TimerFromMS(statsPeriodMS), func() {
			tel.Send(sys.Stats().Report())
		})
	}

	sys.Start()
	for {
		err := run(sys)
		if err == nil {
			continue
		}
		// A failed step means the pins misbehave; switch the display off
		// and stop
		sys.Stop()
		halt(err)
	}
}

// setup registers the drivers and assembles the board
func setup(b *config.Board, link *usbLink) (*board.System, *protocol.Telemetry, error) {
	gpio := NewRPGPIODriver()
	adc := NewRPAdcDriver()
	i2c := NewRPI2CDriver()
	servos := NewServoDriver()

	core.SetGPIODriver(gpio)
	core.SetInterruptDriver(gpio)
	core.SetADCDriver(adc)
	core.SetI2CDriver(i2c)
	core.SetPWMDriver(servos)

	hw := board.Hardware{GPIO: gpio, IRQ: gpio, ADC: adc, I2C: i2c, PWM: servos}

	if b.Display.Bus == "pio" {
		bus, err := NewPIOSegmentBus(0, 0, b.MultiplexerConfig().SegmentPins, b.Display.SegmentActiveLow)
		if err != nil {
			return nil, nil, err
		}
		hw.SegmentBus = bus
	}

	if b.Exercise == config.ExerciseClock {
		bus := core.I2CBusID(b.RTC.Bus)
		if err := i2c.ConfigureBus(bus, b.RTC.FrequencyHz); err != nil {
			return nil, nil, err
		}
		mb, err := i2c.MachineBus(bus)
		if err != nil {
			return nil, nil, err
		}
		rtc, err := NewDS3231(mb, b.RTC.Address)
		if err != nil {
			// Raw register reads report the failure on every refresh
			core.Logger().Warn("ds3231 driver unavailable", "err", err)
		} else {
			hw.RTC = rtc
		}
	}

	var tel *protocol.Telemetry
	if b.Telemetry.Enabled {
		tel = protocol.NewTelemetry(link)
		hw.Reporter = tel
	}

	sys, err := board.Assemble(b, hw)
	if err != nil {
		if bus, ok := hw.SegmentBus.(*PIOSegmentBus); ok {
			bus.Close()
		}
		return nil, nil, err
	}
	return sys, tel, nil
}

// run steps the control loop, turning a panic into a retry
func run(sys *board.System) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panics++
			core.Logger().Error("control loop panic", "count", panics, "uptime_us", GetHardwareUptime())
			core.DumpTrace()
			err = nil
		}
	}()
	return sys.Loop.Run()
}

// halt reports err forever; a bad board needs reflashing, not a reset loop
func halt(err error) {
	for {
		core.Logger().Error("board stopped", "err", err)
		time.Sleep(5 * time.Second)
	}
}
