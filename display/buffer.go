package display

import (
	"errors"
	"sync/atomic"

	"segpad/segment"
)

var (
	// ErrOverflow is returned when a value has more digits than the display
	ErrOverflow = errors.New("display: value does not fit")

	// ErrUnrenderable is returned when text contains characters with no
	// seven-segment form. They are shown blank.
	ErrUnrenderable = errors.New("display: character has no segment form")

	errIndex = errors.New("display: digit index out of range")
)

// Buffer holds one segment code per digit position, left to right.
//
// Slots are word-sized and accessed atomically, so a single-digit update
// is never torn. Multi-digit writes bump a generation counter before and
// after (odd while writing) so the multiplexer can tell when it lit a
// digit from a half-written frame. That is tolerated for one refresh.
//
// There is one producer (application logic) and one consumer (the
// multiplexer). Concurrent producers must serialize among themselves.
type Buffer struct {
	slots []uint32
	gen   uint32
}

// NewBuffer returns a blank buffer for the given number of digits
func NewBuffer(digits int) *Buffer {
	if digits < 0 {
		digits = 0
	}
	return &Buffer{slots: make([]uint32, digits)}
}

// Len returns the number of digit positions
func (b *Buffer) Len() int {
	return len(b.slots)
}

// Set replaces a single digit
func (b *Buffer) Set(i int, c segment.Code) error {
	if i < 0 || i >= len(b.slots) {
		return errIndex
	}
	atomic.StoreUint32(&b.slots[i], uint32(c))
	return nil
}

// Get returns a single digit
func (b *Buffer) Get(i int) (segment.Code, error) {
	if i < 0 || i >= len(b.slots) {
		return segment.Blank, errIndex
	}
	return segment.Code(atomic.LoadUint32(&b.slots[i])), nil
}

// Snapshot copies the whole buffer
func (b *Buffer) Snapshot() []segment.Code {
	out := make([]segment.Code, len(b.slots))
	for i := range b.slots {
		out[i] = segment.Code(atomic.LoadUint32(&b.slots[i]))
	}
	return out
}

// Generation returns the write generation; odd while a write is in progress
func (b *Buffer) Generation() uint32 {
	return atomic.LoadUint32(&b.gen)
}

// Write replaces the leading digits with codes as one frame.
// Extra codes are ignored; missing ones leave the tail untouched.
func (b *Buffer) Write(codes []segment.Code) {
	atomic.AddUint32(&b.gen, 1)
	for i := 0; i < len(codes) && i < len(b.slots); i++ {
		atomic.StoreUint32(&b.slots[i], uint32(codes[i]))
	}
	atomic.AddUint32(&b.gen, 1)
}

// Fill sets every digit to c
func (b *Buffer) Fill(c segment.Code) {
	codes := make([]segment.Code, len(b.slots))
	for i := range codes {
		codes[i] = c
	}
	b.Write(codes)
}

// Clear blanks every digit
func (b *Buffer) Clear() {
	b.Fill(segment.Blank)
}

// SetNumber shows n right-aligned with leading blanks. A value that does
// not fit shows dashes on every digit and returns ErrOverflow.
func (b *Buffer) SetNumber(n int) error {
	return b.setRadix(n, 10)
}

// SetHex shows v right-aligned in hexadecimal
func (b *Buffer) SetHex(v int) error {
	return b.setRadix(v, 16)
}

func (b *Buffer) setRadix(n, radix int) error {
	width := len(b.slots)
	codes := make([]segment.Code, width)

	// Magnitude in uint64 so the most negative int does not overflow
	negative := n < 0
	u := uint64(n)
	if negative {
		u = uint64(-(n + 1)) + 1
	}
	r := uint64(radix)

	pos := width - 1
	for {
		if pos < 0 {
			b.Fill(segment.Dash)
			return ErrOverflow
		}
		codes[pos] = segment.MustHex(int(u % r))
		pos--
		u /= r
		if u == 0 {
			break
		}
	}
	if negative {
		if pos < 0 {
			b.Fill(segment.Dash)
			return ErrOverflow
		}
		codes[pos] = segment.Dash
	}

	b.Write(codes)
	return nil
}

// SetDigits shows the decimal digits 0..9 left to right, one per position
func (b *Buffer) SetDigits(digits ...int) error {
	codes := make([]segment.Code, 0, len(digits))
	for _, d := range digits {
		c, err := segment.Digit(d)
		if err != nil {
			return err
		}
		codes = append(codes, c)
	}
	if len(codes) > len(b.slots) {
		return ErrOverflow
	}
	b.Write(codes)
	return nil
}

// SetText shows s left-aligned. A '.' lights the decimal point of the
// previous character instead of taking a position. Text longer than the
// display is truncated and returns ErrOverflow.
func (b *Buffer) SetText(s string) error {
	codes := make([]segment.Code, 0, len(b.slots))
	var err error
	for _, r := range s {
		if r == '.' && len(codes) > 0 && !codes[len(codes)-1].Lit(7) {
			codes[len(codes)-1] = codes[len(codes)-1].WithDot()
			continue
		}
		if len(codes) == len(b.slots) {
			err = ErrOverflow
			break
		}
		if r == '.' {
			codes = append(codes, segment.Blank.WithDot())
			continue
		}
		c, ok := segment.ForRune(r)
		if !ok && err == nil {
			err = ErrUnrenderable
		}
		codes = append(codes, c)
	}
	for len(codes) < len(b.slots) {
		codes = append(codes, segment.Blank)
	}
	b.Write(codes)
	return err
}

// read loads one digit for the multiplexer and reports whether it may
// belong to a frame that was being rewritten.
func (b *Buffer) read(i int) (segment.Code, uint32, bool) {
	g1 := atomic.LoadUint32(&b.gen)
	c := segment.Code(atomic.LoadUint32(&b.slots[i]))
	g2 := atomic.LoadUint32(&b.gen)
	return c, g2, g1&1 == 1 || g1 != g2
}
