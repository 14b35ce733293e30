package protocol

import (
	"errors"
	"io"
	"sync"

	"segpad/core"
	"segpad/keypad"
	"segpad/segment"
)

// Telemetry encodes board activity as frames on a byte stream. It
// satisfies app.Reporter.
type Telemetry struct {
	mu      sync.Mutex
	w       io.Writer
	scratch ScratchOutput
	enc     *Encoder
	sent    uint32
	errors  uint32
}

// NewTelemetry writes frames to w, typically a UART
func NewTelemetry(w io.Writer) *Telemetry {
	t := &Telemetry{w: w}
	t.enc = NewEncoder(&t.scratch)
	return t
}

// Send encodes r as one frame and writes it
func (t *Telemetry) Send(r Report) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scratch.Reset()
	t.enc.SendMessage(r.ID(), func(output OutputBuffer) {
		EncodeArgs(output, r)
	})

	if _, err := t.w.Write(t.scratch.Result()); err != nil {
		t.errors++
		return err
	}
	t.sent++
	return nil
}

func (t *Telemetry) ReportKey(ev keypad.KeyEvent) error {
	return t.Send(KeyReport{Symbol: ev.Symbol, Row: ev.Row, Col: ev.Col, At: ev.At})
}

func (t *Telemetry) ReportDisplay(codes []segment.Code) error {
	return t.Send(DisplayReport{Codes: codes})
}

// ReportWarning maps the core warning types onto warning kinds; anything
// else is sent as text
func (t *Telemetry) ReportWarning(err error) error {
	var stuck *core.StuckKeyWarning
	var stale *core.StaleReadWarning
	switch {
	case errors.As(err, &stuck):
		return t.Send(WarningReport{
			Kind:   WarnStuckKey,
			Symbol: stuck.Symbol,
			Row:    stuck.Row,
			Col:    stuck.Col,
			Waited: stuck.Waited,
		})
	case errors.As(err, &stale):
		return t.Send(WarningReport{
			Kind:       WarnStaleRead,
			Digit:      stale.Digit,
			Generation: stale.Generation,
		})
	}
	return t.Send(WarningReport{Kind: WarnOther, Text: err.Error()})
}

// Counts returns frames written and failed writes
func (t *Telemetry) Counts() (sent, failed uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.errors
}
