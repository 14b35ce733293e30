//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"segpad/core"
	"segpad/segment"
)

// PIO program for the segment lines: every pulled word puts its low eight
// bits on eight consecutive pins in one cycle, so no segment is ever seen
// half-updated.
func buildSegmentProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),         // 0: pull block
		asm.Out(rp2pio.OutDestPins, 8).Encode(), // 1: out pins, 8
		// .wrap
	}
}

const segmentPIOOrigin = -1 // Any free offset; the program has no jumps

// PIOSegmentBus implements display.SegmentBus on a PIO state machine
type PIOSegmentBus struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	base      machine.Pin
	activeLow bool
}

// NewPIOSegmentBus loads the program and hands pins to the state machine.
// The segment pins must be consecutive, bit 0 on the lowest.
func NewPIOSegmentBus(pioNum, smNum uint8, pins []core.GPIOPin, activeLow bool) (*PIOSegmentBus, error) {
	if len(pins) == 0 || len(pins) > segment.Segments {
		return nil, core.NewConfigError("display", "segment pins", "PIO bus drives 1 to 8 lines")
	}
	for i := 1; i < len(pins); i++ {
		if pins[i] != pins[0]+core.GPIOPin(i) {
			return nil, core.NewConfigError("display", "segment pins", "PIO bus needs consecutive pins")
		}
	}

	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	b := &PIOSegmentBus{
		pio:       pioHW,
		sm:        pioHW.StateMachine(smNum),
		base:      machine.Pin(pins[0]),
		activeLow: activeLow,
	}

	// Claim the state machine before loading
	b.sm.TryClaim()

	program := buildSegmentProgram()
	offset, err := b.pio.AddProgram(program, segmentPIOOrigin)
	if err != nil {
		return nil, err
	}

	n := uint8(len(pins))
	for i := uint8(0); i < n; i++ {
		(b.base + machine.Pin(i)).Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(b.base, n)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	// Pin directions must follow Init
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.base, n, true)
	b.sm.SetPinsConsecutive(b.base, n, activeLow)
	b.sm.SetEnabled(true)
	return b, nil
}

// WriteSegments implements display.SegmentBus
func (b *PIOSegmentBus) WriteSegments(c segment.Code) error {
	word := uint32(c)
	if b.activeLow {
		word = ^word & 0xFF
	}
	for b.sm.IsTxFIFOFull() {
		// One word drains in a few cycles
	}
	b.sm.TxPut(word)
	return nil
}

// Close stops the state machine and drops queued patterns
func (b *PIOSegmentBus) Close() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
}
