package protocol

import (
	"errors"
	"fmt"

	"segpad/segment"
)

// ErrUnknownMessage is returned by Decode for an id it does not know
var ErrUnknownMessage = errors.New("unknown message")

// Report is one decoded telemetry message
type Report interface {
	ID() MsgID
}

// IdentifyReport is sent once at start
type IdentifyReport struct {
	Version  string
	Exercise string
	Digits   int
	Rows     int
	Cols     int
}

// KeyReport is an accepted key press
type KeyReport struct {
	Symbol rune
	Row    int
	Col    int
	At     uint32
}

// DisplayReport is the buffer content after a completed write
type DisplayReport struct {
	Codes []segment.Code
}

// WarningReport is a recoverable fault
type WarningReport struct {
	Kind       uint8
	Symbol     rune
	Row        int
	Col        int
	Waited     uint32 // WarnStuckKey
	Digit      int    // WarnStaleRead
	Generation uint32 // WarnStaleRead
	Text       string // WarnOther
}

// StatsReport carries the board counters
type StatsReport struct {
	Ticks      uint32
	Frames     uint32
	StaleReads uint32
	Accepted   uint32
	Bounced    uint32
	Stuck      uint32
	Spurious   uint32
	Dropped    uint32
	Handled    uint32
}

func (IdentifyReport) ID() MsgID { return MsgIdentify }
func (KeyReport) ID() MsgID      { return MsgKey }
func (DisplayReport) ID() MsgID  { return MsgDisplay }
func (WarningReport) ID() MsgID  { return MsgWarning }
func (StatsReport) ID() MsgID    { return MsgStats }

func (w WarningReport) String() string {
	switch w.Kind {
	case WarnStuckKey:
		return fmt.Sprintf("stuck key %c at row %d col %d after %dus", w.Symbol, w.Row, w.Col, w.Waited)
	case WarnStaleRead:
		return fmt.Sprintf("stale read on digit %d at generation %d", w.Digit, w.Generation)
	}
	return w.Text
}

func (r *StatsReport) fields() []*uint32 {
	return []*uint32{
		&r.Ticks, &r.Frames, &r.StaleReads,
		&r.Accepted, &r.Bounced, &r.Stuck, &r.Spurious,
		&r.Dropped, &r.Handled,
	}
}

// Encode writes the message id and arguments of r
func Encode(output OutputBuffer, r Report) {
	EncodeVLQUint(output, uint32(r.ID()))
	EncodeArgs(output, r)
}

// EncodeArgs writes the arguments of r without the id
func EncodeArgs(output OutputBuffer, r Report) {
	switch r := r.(type) {
	case IdentifyReport:
		EncodeVLQString(output, r.Version)
		EncodeVLQString(output, r.Exercise)
		EncodeVLQUint(output, uint32(r.Digits))
		EncodeVLQUint(output, uint32(r.Rows))
		EncodeVLQUint(output, uint32(r.Cols))

	case KeyReport:
		EncodeVLQUint(output, uint32(r.Symbol))
		EncodeVLQUint(output, uint32(r.Row))
		EncodeVLQUint(output, uint32(r.Col))
		EncodeVLQUint(output, r.At)

	case DisplayReport:
		codes := make([]byte, len(r.Codes))
		for i, c := range r.Codes {
			codes[i] = byte(c)
		}
		EncodeVLQBytes(output, codes)

	case WarningReport:
		output.Output([]byte{r.Kind})
		switch r.Kind {
		case WarnStuckKey:
			EncodeVLQUint(output, uint32(r.Symbol))
			EncodeVLQUint(output, uint32(r.Row))
			EncodeVLQUint(output, uint32(r.Col))
			EncodeVLQUint(output, r.Waited)
		case WarnStaleRead:
			EncodeVLQUint(output, uint32(r.Digit))
			EncodeVLQUint(output, r.Generation)
		default:
			text := r.Text
			if len(text) > MaxWarningText {
				text = text[:MaxWarningText]
			}
			EncodeVLQString(output, text)
		}

	case StatsReport:
		for _, f := range r.fields() {
			EncodeVLQUint(output, *f)
		}
	}
}

// MaxWarningText bounds free-form warning text so a frame always fits
const MaxWarningText = 40

// Decode parses a frame payload
func Decode(msg *Message) (Report, error) {
	data := msg.Payload
	id, err := DecodeVLQUint(&data)
	if err != nil {
		return nil, err
	}

	d := &decoder{data: data}
	var r Report
	switch MsgID(id) {
	case MsgIdentify:
		r = IdentifyReport{
			Version:  d.str(),
			Exercise: d.str(),
			Digits:   int(d.uint()),
			Rows:     int(d.uint()),
			Cols:     int(d.uint()),
		}

	case MsgKey:
		r = KeyReport{
			Symbol: rune(d.uint()),
			Row:    int(d.uint()),
			Col:    int(d.uint()),
			At:     d.uint(),
		}

	case MsgDisplay:
		raw := d.bytes()
		codes := make([]segment.Code, len(raw))
		for i, b := range raw {
			codes[i] = segment.Code(b)
		}
		r = DisplayReport{Codes: codes}

	case MsgWarning:
		w := WarningReport{Kind: d.byte()}
		switch w.Kind {
		case WarnStuckKey:
			w.Symbol = rune(d.uint())
			w.Row = int(d.uint())
			w.Col = int(d.uint())
			w.Waited = d.uint()
		case WarnStaleRead:
			w.Digit = int(d.uint())
			w.Generation = d.uint()
		default:
			w.Text = d.str()
		}
		r = w

	case MsgStats:
		var s StatsReport
		for _, f := range s.fields() {
			*f = d.uint()
		}
		r = s

	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
	}

	if d.err != nil {
		return nil, fmt.Errorf("decode %s: %w", MsgID(id), d.err)
	}
	return r, nil
}

// decoder keeps the first error so field lists read straight through
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) uint() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := DecodeVLQUint(&d.data)
	d.err = err
	return v
}

func (d *decoder) byte() uint8 {
	if d.err != nil {
		return 0
	}
	if len(d.data) == 0 {
		d.err = ErrBufferTooSmall
		return 0
	}
	b := d.data[0]
	d.data = d.data[1:]
	return b
}

func (d *decoder) bytes() []byte {
	if d.err != nil {
		return nil
	}
	b, err := DecodeVLQBytes(&d.data)
	d.err = err
	return b
}

func (d *decoder) str() string {
	return string(d.bytes())
}
