package sim

import (
	"segpad/core"
	"segpad/segment"
)

// Lit is one digit being switched on
type Lit struct {
	Digit int
	Code  segment.Code
	At    uint32
}

// Probe watches display lines on the bench. It records every digit that
// lights and the pattern on the segment lines at that moment, and counts
// wiring hazards: two digits selected at once, and segments changing
// while a digit is selected.
type Probe struct {
	bench          *Bench
	segPins        []core.GPIOPin
	digitPins      []core.GPIOPin
	segActiveLow   bool
	digitActiveLow bool
	segIdx         map[core.GPIOPin]int
	digitIdx       map[core.GPIOPin]int

	history  []Lit
	frame    []segment.Code
	overlaps int
	ghosts   int
}

// ProbeDisplay attaches a display probe to the bench
func (b *Bench) ProbeDisplay(segPins, digitPins []core.GPIOPin, segActiveLow, digitActiveLow bool) *Probe {
	p := &Probe{
		bench:          b,
		segPins:        segPins,
		digitPins:      digitPins,
		segActiveLow:   segActiveLow,
		digitActiveLow: digitActiveLow,
		segIdx:         make(map[core.GPIOPin]int, len(segPins)),
		digitIdx:       make(map[core.GPIOPin]int, len(digitPins)),
		frame:          make([]segment.Code, len(digitPins)),
	}
	for i, pin := range segPins {
		p.segIdx[pin] = i
	}
	for i, pin := range digitPins {
		p.digitIdx[pin] = i
	}
	b.mu.Lock()
	b.probe = p
	b.mu.Unlock()
	return p
}

func (p *Probe) digitOn(b *Bench, pin core.GPIOPin) bool {
	st, ok := b.pins[pin]
	if !ok || st.mode != modeOutput {
		return false
	}
	return st.driven != p.digitActiveLow
}

func (p *Probe) segmentsLocked(b *Bench) segment.Code {
	var c segment.Code
	for i, pin := range p.segPins {
		st, ok := b.pins[pin]
		if ok && st.mode == modeOutput && st.driven != p.segActiveLow {
			c |= 1 << uint(i)
		}
	}
	return c
}

func (p *Probe) activeLocked(b *Bench) []int {
	var on []int
	for i, pin := range p.digitPins {
		if p.digitOn(b, pin) {
			on = append(on, i)
		}
	}
	return on
}

// observe runs under the bench lock after an output changed
func (p *Probe) observe(b *Bench, pin core.GPIOPin) {
	active := p.activeLocked(b)
	if len(active) > 1 {
		p.overlaps++
	}
	if d, ok := p.digitIdx[pin]; ok && p.digitOn(b, pin) {
		lit := Lit{Digit: d, Code: p.segmentsLocked(b), At: core.GetTime()}
		if len(p.history) >= HistoryLimit {
			p.history = append(p.history[:0], p.history[HistoryLimit/2:]...)
		}
		p.history = append(p.history, lit)
		p.frame[d] = lit.Code
		return
	}
	if _, ok := p.segIdx[pin]; ok && len(active) > 0 {
		p.ghosts++
	}
}

// HistoryLimit bounds the recorded history; the older half is dropped
// when it fills
const HistoryLimit = 4096

// History returns the digits lit so far, oldest first
func (p *Probe) History() []Lit {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return append([]Lit(nil), p.history...)
}

// Active returns the digit positions currently selected
func (p *Probe) Active() []int {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return p.activeLocked(p.bench)
}

// Segments returns the pattern on the segment lines
func (p *Probe) Segments() segment.Code {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return p.segmentsLocked(p.bench)
}

// Overlaps counts moments with more than one digit selected
func (p *Probe) Overlaps() int {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return p.overlaps
}

// Ghosts counts segment line changes while a digit was selected
func (p *Probe) Ghosts() int {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return p.ghosts
}

// Frame returns the last code seen on each digit, blank if never lit
func (p *Probe) Frame() []segment.Code {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	return append([]segment.Code(nil), p.frame...)
}

// Reset forgets the history and counters
func (p *Probe) Reset() {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()
	p.history = nil
	p.frame = make([]segment.Code, len(p.digitPins))
	p.overlaps = 0
	p.ghosts = 0
}
