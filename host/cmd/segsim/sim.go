package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/shlex"

	"segpad/board"
	"segpad/config"
	"segpad/core"
	"segpad/host/monitor"
	"segpad/keypad"
	"segpad/protocol"
	"segpad/segment"
	"segpad/sim"
)

var (
	errQuit = errors.New("quit")
	errLive = errors.New("the clock is live; tick only works on the manual clock")
)

// Sim is a board assembled on a simulated bench
type Sim struct {
	board  *config.Board
	bench  *sim.Bench
	probe  *sim.Probe
	sys    *board.System
	keymap *keypad.KeyMap
	out    io.Writer

	mon     *monitor.Monitor
	stopMon context.CancelFunc

	live     atomic.Bool
	closed   atomic.Bool
	loopDone chan struct{}
	rtcStart time.Time
	started  uint32
}

func pins(in []int) []core.GPIOPin {
	out := make([]core.GPIOPin, len(in))
	for i, p := range in {
		out[i] = core.GPIOPin(p)
	}
	return out
}

// NewSim wires the bench for b, assembles the board and starts it. With
// telemetry the board's reports are decoded by an in-process monitor.
func NewSim(b *config.Board, out io.Writer, telemetry bool, log *slog.Logger) (*Sim, error) {
	s := &Sim{
		board:    b,
		bench:    sim.NewBench(),
		out:      out,
		rtcStart: time.Now().Truncate(time.Second),
		started:  core.GetTime(),
	}

	s.bench.WireMatrix(pins(b.Keypad.RowPins), pins(b.Keypad.ColPins))
	if b.Display.Digits <= len(b.Display.DigitPins) {
		s.probe = s.bench.ProbeDisplay(
			pins(b.Display.SegmentPins),
			pins(b.Display.DigitPins[:b.Display.Digits]),
			b.Display.SegmentActiveLow,
			b.Display.DigitActiveLow,
		)
	}
	s.bench.SetMillivolts(core.ADCChannelID(b.Sensor.Channel), 250)
	s.bench.SetRTC(s.rtcStart)

	hw := board.Hardware{GPIO: s.bench, IRQ: s.bench, ADC: s.bench, I2C: s.bench, PWM: s.bench}
	if telemetry {
		pr, pw := io.Pipe()
		s.mon = monitor.New(pr, log)
		ctx, cancel := context.WithCancel(context.Background())
		s.stopMon = cancel
		go s.mon.Run(ctx, nil)
		hw.Reporter = protocol.NewTelemetry(pw)
	}

	sys, err := board.Assemble(b, hw)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.sys = sys

	sc, err := b.ScannerConfig()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.keymap = sc.KeyMap

	if tel, ok := hw.Reporter.(*protocol.Telemetry); ok {
		go tel.Send(sys.Identify())
	}
	sys.Start()
	return s, nil
}

// GoLive switches to the wall clock and runs the control loop in the
// background
func (s *Sim) GoLive() {
	s.live.Store(true)
	s.started = 0
	core.SetClockSource(core.WallClock())
	go func() {
		for i := 0; s.live.Load(); i++ {
			s.bench.Sync()
			if i%250 == 0 {
				s.syncRTC()
			}
			time.Sleep(time.Millisecond)
		}
	}()
	s.loopDone = make(chan struct{})
	go func() {
		defer close(s.loopDone)
		if err := s.sys.Loop.Run(); err != nil {
			fmt.Fprintf(s.out, "control loop stopped: %v\n", err)
		}
	}()
}

// Close stops the board and the monitor
func (s *Sim) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.live.Store(false)
	if s.sys != nil {
		s.sys.Loop.Stop()
		if s.loopDone != nil {
			<-s.loopDone
		}
		s.sys.Stop()
	}
	if s.mon != nil {
		s.stopMon()
		s.mon.Close()
	}
}

// Exec runs one command line. It returns errQuit for quit.
func (s *Sim) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		s.help()
		return nil

	case "press", "release":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <key>", cmd)
		}
		row, col, err := s.key(args[0])
		if err != nil {
			return err
		}
		if cmd == "press" {
			s.bench.Press(row, col)
		} else {
			s.bench.Release(row, col)
		}
		return nil

	case "hold":
		if len(args) != 2 {
			return fmt.Errorf("usage: hold <key> <ms>")
		}
		row, col, err := s.key(args[0])
		if err != nil {
			return err
		}
		ms, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad duration %q: %w", args[1], err)
		}
		s.bench.Tap(row, col, core.TimerFromMS(uint32(ms)))
		return nil

	case "type":
		if len(args) != 1 {
			return fmt.Errorf("usage: type <keys>")
		}
		return s.typeKeys(args[0])

	case "tick":
		ms := uint64(10)
		if len(args) > 0 {
			if ms, err = strconv.ParseUint(args[0], 10, 32); err != nil {
				return fmt.Errorf("bad duration %q: %w", args[0], err)
			}
		}
		return s.Tick(uint32(ms))

	case "show":
		s.show()
		return nil

	case "temp":
		if len(args) != 1 {
			return fmt.Errorf("usage: temp <celsius>")
		}
		c, err := strconv.ParseFloat(args[0], 32)
		if err != nil || c < 0 {
			return fmt.Errorf("bad temperature %q", args[0])
		}
		s.bench.SetMillivolts(core.ADCChannelID(s.board.Sensor.Channel), uint32(c*10))
		return nil

	case "button":
		if len(args) != 2 || (args[1] != "down" && args[1] != "up") {
			return fmt.Errorf("usage: button <pin> <down|up>")
		}
		pin, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad pin %q", args[0])
		}
		down := args[1] == "down"
		level := down
		if s.board.Buttons.ActiveLow {
			level = !down
		}
		s.bench.Drive(core.GPIOPin(pin), level)
		return nil

	case "stats":
		s.stats()
		return nil

	case "trace":
		s.trace()
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", args[0])
}

func (s *Sim) key(sym string) (row, col int, err error) {
	r := []rune(sym)
	if len(r) != 1 {
		return 0, 0, fmt.Errorf("key %q: one symbol expected", sym)
	}
	row, col, ok := s.keymap.Find(r[0])
	if !ok {
		return 0, 0, fmt.Errorf("key %q is not on the keypad", sym)
	}
	return row, col, nil
}

// typeKeys taps each key in turn, letting the debounce window pass
// between them
func (s *Sim) typeKeys(keys string) error {
	gap := uint32(s.board.Keypad.Debounce/time.Millisecond) + 50
	for _, r := range keys {
		row, col, err := s.key(string(r))
		if err != nil {
			return err
		}
		s.bench.Tap(row, col, core.TimerFromMS(20))
		if s.live.Load() {
			time.Sleep(time.Duration(gap) * time.Millisecond)
			continue
		}
		if err := s.Tick(gap); err != nil {
			return err
		}
	}
	return nil
}

// Tick runs the board for ms of manual clock time
func (s *Sim) Tick(ms uint32) error {
	if s.live.Load() {
		return errLive
	}
	step := s.sys.Loop.Delay
	if step == 0 {
		step = core.TimerFromMS(1)
	}
	end := core.GetTime() + core.TimerFromMS(ms)
	for core.TimeBefore(core.GetTime(), end) {
		if err := s.sys.Loop.Step(); err != nil {
			return err
		}
		core.Delay(step)
		s.bench.Sync()
		s.syncRTC()
	}
	return nil
}

// syncRTC keeps the simulated DS3231 running with the core clock
func (s *Sim) syncRTC() {
	elapsed := time.Duration(core.TimerToUS(core.GetTime()-s.started)) * time.Microsecond
	s.bench.SetRTC(s.rtcStart.Add(elapsed))
}

// Display returns what the buffer holds and what the probe saw lit
func (s *Sim) Display() (buffer, lit string) {
	buffer = segment.Render(s.sys.Buffer.Snapshot())
	if s.probe != nil {
		lit = segment.Render(s.probe.Frame())
	}
	return buffer, lit
}

func (s *Sim) show() {
	buffer, lit := s.Display()
	fmt.Fprintf(s.out, "buffer [%s]  lit [%s]  t=%dms\n", buffer, lit, core.TimerToMS(core.GetTime()))
	if s.probe != nil && (s.probe.Overlaps() > 0 || s.probe.Ghosts() > 0) {
		fmt.Fprintf(s.out, "hazards: %d overlaps, %d ghosts\n", s.probe.Overlaps(), s.probe.Ghosts())
	}
	if s.mon != nil {
		st := s.mon.State()
		fmt.Fprintf(s.out, "telemetry [%s]  keys %q  warnings %d\n", st.Display, st.Keys, len(st.Warnings))
		for _, w := range st.Warnings {
			fmt.Fprintf(s.out, "  %s\n", w)
		}
	}
}

func (s *Sim) stats() {
	st := s.sys.Stats()
	fmt.Fprintf(s.out, "display: %d ticks, %d frames, %d stale reads\n",
		st.Display.Ticks, st.Display.Frames, st.Display.StaleReads)
	fmt.Fprintf(s.out, "keypad: %d accepted, %d bounced, %d stuck, %d spurious\n",
		st.Keypad.Accepted, st.Keypad.Bounced, st.Keypad.Stuck, st.Keypad.Spurious)
	fmt.Fprintf(s.out, "queue: %d dropped; dispatch: %d handled, %d ignored\n",
		st.Dropped, st.Handled, st.Ignored)
	fmt.Fprintf(s.out, "loop: %d steps; %s: %d failed updates\n",
		st.Steps, s.sys.Exercise.Name(), st.UpdateErrs)
}

func (s *Sim) trace() {
	events := core.TraceSnapshot()
	if len(events) == 0 {
		fmt.Fprintln(s.out, "trace is empty")
		return
	}
	for _, e := range events {
		fmt.Fprintf(s.out, "%10d %-9s arg=%d v1=%d v2=%d\n",
			e.Clock, core.TraceKindName(e.Kind), e.Arg, e.Value1, e.Value2)
	}
}

func (s *Sim) help() {
	fmt.Fprintln(s.out, strings.TrimSpace(`
Commands:
  press <key>             close a key until release
  release <key>           open a key
  hold <key> <ms>         close a key for ms
  type <keys>             tap keys one after another
  tick [ms]               run the board for ms (default 10)
  show                    buffer, lit digits and telemetry
  temp <celsius>          set the LM35 input
  button <pin> <down|up>  push or let go of a button
  stats                   component counters
  trace                   dump the trace ring
  quit                    leave`))
}
