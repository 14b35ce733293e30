package keypad

import (
	"strconv"

	"segpad/core"
)

// Strategy selects how the matrix is scanned
type Strategy uint8

const (
	// Polling drives each column in turn from the main loop and blocks
	// until an accepted key is released
	Polling Strategy = iota
	// Interrupt rotates the active column from a timer and reads keys in
	// row falling-edge handlers
	Interrupt
)

func (s Strategy) String() string {
	if s == Interrupt {
		return "interrupt"
	}
	return "poll"
}

// ParseStrategy accepts "poll" and "interrupt"
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "poll":
		return Polling, nil
	case "interrupt":
		return Interrupt, nil
	}
	return Polling, core.NewConfigError("keypad", "strategy", "unknown strategy "+s)
}

// Defaults, in microseconds
const (
	DefaultReleasePoll    = 1000
	DefaultMaxReleaseWait = 2000000
	DefaultRotatePeriod   = 1000
)

// ScannerConfig describes the matrix wiring and timing
type ScannerConfig struct {
	RowPins []core.GPIOPin
	ColPins []core.GPIOPin
	KeyMap  *KeyMap

	Debounce     uint32 // Window in ticks; 0 uses DefaultDebounce
	DebounceMode DebounceMode

	Settle         uint32 // Polling: delay after selecting a column before sampling
	ReleasePoll    uint32 // Polling: interval between release checks
	MaxReleaseWait uint32 // Polling: bound before a key is reported stuck

	RotatePeriod uint32 // Interrupt: column rotation period

	Trace bool // Record column selects in the trace ring
}

func (c *ScannerConfig) applyDefaults() {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.ReleasePoll == 0 {
		c.ReleasePoll = DefaultReleasePoll
	}
	if c.MaxReleaseWait == 0 {
		c.MaxReleaseWait = DefaultMaxReleaseWait
	}
	if c.RotatePeriod == 0 {
		c.RotatePeriod = DefaultRotatePeriod
	}
}

// Validate checks the wiring against the key map
func (c ScannerConfig) Validate() error {
	if c.KeyMap == nil {
		return core.NewConfigError("keypad", "keymap", "missing")
	}
	if len(c.RowPins) != c.KeyMap.Rows() {
		return core.NewConfigError("keypad", "row pins",
			strconv.Itoa(len(c.RowPins))+" pins for "+strconv.Itoa(c.KeyMap.Rows())+" rows")
	}
	if len(c.ColPins) != c.KeyMap.Cols() {
		return core.NewConfigError("keypad", "column pins",
			strconv.Itoa(len(c.ColPins))+" pins for "+strconv.Itoa(c.KeyMap.Cols())+" columns")
	}
	seen := make(map[core.GPIOPin]bool)
	for _, pin := range append(append([]core.GPIOPin(nil), c.RowPins...), c.ColPins...) {
		if seen[pin] {
			return core.NewConfigError("keypad", "pins", "pin "+strconv.Itoa(int(pin))+" used twice")
		}
		seen[pin] = true
	}
	return nil
}

// Stats counts scanner activity
type Stats struct {
	Accepted uint32
	Bounced  uint32
	Stuck    uint32
	Spurious uint32
}

// configureMatrix sets columns as idle-high outputs and rows as pulled-up
// inputs
func configureMatrix(gpio core.GPIODriver, cfg ScannerConfig) error {
	for _, pin := range cfg.ColPins {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return err
		}
		if err := gpio.SetPin(pin, true); err != nil {
			return err
		}
	}
	for _, pin := range cfg.RowPins {
		if err := gpio.ConfigureInputPullUp(pin); err != nil {
			return err
		}
	}
	return nil
}
