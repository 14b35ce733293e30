package keypad

import "sync/atomic"

// DebounceMode selects what a debounce window applies to
type DebounceMode uint8

const (
	// PerKey rejects a press only if the same key was accepted recently
	PerKey DebounceMode = iota
	// Global rejects any press shortly after any accepted press
	Global
)

func (m DebounceMode) String() string {
	if m == Global {
		return "global"
	}
	return "per-key"
}

// DefaultDebounce is the debounce window in microseconds
const DefaultDebounce = 200000

// Debouncer remembers when presses were last accepted. It belongs to one
// scanner and is only touched from that scanner's detection path.
type Debouncer struct {
	window uint32
	mode   DebounceMode

	last    []uint32
	seen    []bool
	lastAny uint32
	seenAny bool

	rejected uint32
}

// NewDebouncer tracks keys keys with a window in core clock ticks
func NewDebouncer(keys int, window uint32, mode DebounceMode) *Debouncer {
	if keys < 1 {
		keys = 1
	}
	return &Debouncer{
		window: window,
		mode:   mode,
		last:   make([]uint32, keys),
		seen:   make([]bool, keys),
	}
}

// Accept reports whether a press of key at now is outside the window and
// records it if so. Rejected presses are counted and otherwise forgotten.
func (d *Debouncer) Accept(key int, now uint32) bool {
	if d.mode == Global {
		if d.seenAny && now-d.lastAny < d.window {
			atomic.AddUint32(&d.rejected, 1)
			return false
		}
		d.lastAny, d.seenAny = now, true
		return true
	}

	if key < 0 || key >= len(d.last) {
		return false
	}
	if d.seen[key] && now-d.last[key] < d.window {
		atomic.AddUint32(&d.rejected, 1)
		return false
	}
	d.last[key], d.seen[key] = now, true
	return true
}

// Rejected returns the number of presses dropped inside the window
func (d *Debouncer) Rejected() uint32 {
	return atomic.LoadUint32(&d.rejected)
}

// Window returns the debounce window in ticks
func (d *Debouncer) Window() uint32 { return d.window }

// Mode returns the debounce mode
func (d *Debouncer) Mode() DebounceMode { return d.mode }

// Reset forgets every accepted press
func (d *Debouncer) Reset() {
	for i := range d.seen {
		d.seen[i] = false
	}
	d.seenAny = false
}
