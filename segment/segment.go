// Package segment defines 7-segment character codes.
//
// A Code is a bit pattern where bit i drives segment i:
//
//	 --A--
//	|     |
//	F     B
//	|     |
//	 --G--
//	|     |
//	E     C
//	|     |
//	 --D--  .DP
//
// Lookups are bounds checked; out-of-range input returns ErrOutOfRange
// rather than reading past a table.
package segment

import "errors"

// Code is the segment pattern for one digit position
type Code uint8

// Segment bits
const (
	SegA Code = 1 << iota
	SegB
	SegC
	SegD
	SegE
	SegF
	SegG
	SegDP
)

// Special codes
const (
	Blank Code = 0
	Dash  Code = SegG
	Under Code = SegD
	All   Code = 0xFF
)

// Segments is the number of segment lines including the decimal point
const Segments = 8

var ErrOutOfRange = errors.New("segment: value out of range")

var hexDigits = [16]Code{
	0x3F, // 0
	0x06, // 1
	0x5B, // 2
	0x4F, // 3
	0x66, // 4
	0x6D, // 5
	0x7D, // 6
	0x07, // 7
	0x7F, // 8
	0x6F, // 9
	0x77, // A
	0x7C, // b
	0x39, // C
	0x5E, // d
	0x79, // E
	0x71, // F
}

// letters beyond the hex range that read unambiguously on seven segments
var letters = map[rune]Code{
	'G': 0x3D,
	'H': 0x76,
	'I': 0x30,
	'J': 0x1E,
	'L': 0x38,
	'N': 0x54,
	'O': 0x3F,
	'P': 0x73,
	'R': 0x50,
	'S': 0x6D,
	'T': 0x78,
	'U': 0x3E,
	'Y': 0x6E,
}

// Hex returns the code for a value 0..15
func Hex(v int) (Code, error) {
	if v < 0 || v >= len(hexDigits) {
		return Blank, ErrOutOfRange
	}
	return hexDigits[v], nil
}

// Digit returns the code for a decimal digit 0..9
func Digit(d int) (Code, error) {
	if d < 0 || d > 9 {
		return Blank, ErrOutOfRange
	}
	return hexDigits[d], nil
}

// MustHex is Hex for compile-time constants. It panics on bad input.
func MustHex(v int) Code {
	c, err := Hex(v)
	if err != nil {
		panic(err)
	}
	return c
}

// ForRune returns the code that renders r, case-insensitively.
// The second result is false when r has no readable rendering.
func ForRune(r rune) (Code, bool) {
	switch {
	case r >= '0' && r <= '9':
		return hexDigits[r-'0'], true
	case r >= 'a' && r <= 'z':
		r -= 'a' - 'A'
	}
	if r >= 'A' && r <= 'F' {
		return hexDigits[10+r-'A'], true
	}
	if c, ok := letters[r]; ok {
		return c, true
	}
	switch r {
	case ' ':
		return Blank, true
	case '-':
		return Dash, true
	case '_':
		return Under, true
	}
	return Blank, false
}

// WithDot returns c with the decimal point lit
func (c Code) WithDot() Code {
	return c | SegDP
}

// Lit reports whether segment bit seg is on
func (c Code) Lit(seg int) bool {
	if seg < 0 || seg >= Segments {
		return false
	}
	return c&(1<<uint(seg)) != 0
}

// Value returns the hex value that c renders, ignoring the decimal point
func (c Code) Value() (int, bool) {
	c &^= SegDP
	for v, h := range hexDigits {
		if h == c {
			return v, true
		}
	}
	return 0, false
}

// BitOrder is the wiring convention that maps Code bits to bus lines
type BitOrder uint8

const (
	// OrderAtoG puts segment A on bit 0 (0 renders as 0x3F)
	OrderAtoG BitOrder = iota
	// OrderGtoA puts segment A on bit 6 (0 renders as 0x7E)
	OrderGtoA
)

// Encode converts c to the bus byte for the given wiring
func (o BitOrder) Encode(c Code) uint8 {
	if o == OrderAtoG {
		return uint8(c)
	}
	var out uint8
	for seg := 0; seg < 7; seg++ {
		if c.Lit(seg) {
			out |= 1 << uint(6-seg)
		}
	}
	if c.Lit(7) {
		out |= 1 << 7
	}
	return out
}

// Decode converts a bus byte in the given wiring back to a Code
func (o BitOrder) Decode(b uint8) Code {
	if o == OrderAtoG {
		return Code(b)
	}
	var c Code
	for seg := 0; seg < 7; seg++ {
		if b&(1<<uint(6-seg)) != 0 {
			c |= 1 << uint(seg)
		}
	}
	if b&(1<<7) != 0 {
		c |= SegDP
	}
	return c
}

const hexRunes = "0123456789AbCdEF"

// Rune returns the character c reads as, hex digits first, or '?' for a
// pattern with no reading. The decimal point is ignored.
func (c Code) Rune() rune {
	if v, ok := c.Value(); ok {
		return rune(hexRunes[v])
	}
	switch c &^ SegDP {
	case Blank:
		return ' '
	case Dash:
		return '-'
	case Under:
		return '_'
	}
	for r, l := range letters {
		if l == c&^SegDP {
			return r
		}
	}
	return '?'
}

// Render returns the text a row of codes reads as, with a '.' after each
// lit decimal point
func Render(codes []Code) string {
	out := make([]rune, 0, 2*len(codes))
	for _, c := range codes {
		out = append(out, c.Rune())
		if c&SegDP != 0 {
			out = append(out, '.')
		}
	}
	return string(out)
}
