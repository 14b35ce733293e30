package display

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/segment"
)

func hex(v int) segment.Code { return segment.MustHex(v) }

func TestBufferSetGet(t *testing.T) {
	b := NewBuffer(3)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []segment.Code{segment.Blank, segment.Blank, segment.Blank}, b.Snapshot())

	require.NoError(t, b.Set(1, hex(7)))
	c, err := b.Get(1)
	require.NoError(t, err)
	assert.Equal(t, hex(7), c)

	assert.Error(t, b.Set(3, hex(1)))
	assert.Error(t, b.Set(-1, hex(1)))
	_, err = b.Get(3)
	assert.Error(t, err)
}

func TestBufferSetNumber(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []segment.Code
		err  error
	}{
		{"zero", 0, []segment.Code{segment.Blank, segment.Blank, hex(0)}, nil},
		{"two digits", 42, []segment.Code{segment.Blank, hex(4), hex(2)}, nil},
		{"full width", 999, []segment.Code{hex(9), hex(9), hex(9)}, nil},
		{"negative", -5, []segment.Code{segment.Blank, segment.Dash, hex(5)}, nil},
		{"too wide", 1000, []segment.Code{segment.Dash, segment.Dash, segment.Dash}, ErrOverflow},
		{"negative too wide", -100, []segment.Code{segment.Dash, segment.Dash, segment.Dash}, ErrOverflow},
		{"most negative", math.MinInt, []segment.Code{segment.Dash, segment.Dash, segment.Dash}, ErrOverflow},
		{"most positive", math.MaxInt, []segment.Code{segment.Dash, segment.Dash, segment.Dash}, ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(3)
			err := b.SetNumber(tt.n)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, b.Snapshot())
		})
	}
}

func TestBufferSetHex(t *testing.T) {
	b := NewBuffer(4)
	require.NoError(t, b.SetHex(0xBEEF))
	assert.Equal(t, []segment.Code{hex(0xB), hex(0xE), hex(0xE), hex(0xF)}, b.Snapshot())

	require.NoError(t, b.SetHex(0xA))
	assert.Equal(t, []segment.Code{segment.Blank, segment.Blank, segment.Blank, hex(0xA)}, b.Snapshot())
}

func TestBufferSetDigits(t *testing.T) {
	b := NewBuffer(3)
	require.NoError(t, b.SetDigits(1, 2, 3))
	assert.Equal(t, []segment.Code{hex(1), hex(2), hex(3)}, b.Snapshot())

	assert.ErrorIs(t, b.SetDigits(1, 2, 3, 4), ErrOverflow)
	assert.ErrorIs(t, b.SetDigits(10), segment.ErrOutOfRange)
	assert.Equal(t, []segment.Code{hex(1), hex(2), hex(3)}, b.Snapshot(), "failed writes leave the buffer alone")
}

func TestBufferSetText(t *testing.T) {
	h, _ := segment.ForRune('H')
	i, _ := segment.ForRune('I')

	b := NewBuffer(3)
	require.NoError(t, b.SetText("HI."))
	assert.Equal(t, []segment.Code{h, i.WithDot(), segment.Blank}, b.Snapshot())

	require.NoError(t, b.SetText("1.."))
	assert.Equal(t, []segment.Code{hex(1).WithDot(), segment.Blank.WithDot(), segment.Blank}, b.Snapshot())

	assert.ErrorIs(t, b.SetText("ABCD"), ErrOverflow)
	assert.Equal(t, []segment.Code{hex(0xA), hex(0xB), hex(0xC)}, b.Snapshot())

	assert.ErrorIs(t, b.SetText("1W"), ErrUnrenderable)
	assert.Equal(t, []segment.Code{hex(1), segment.Blank, segment.Blank}, b.Snapshot())
}

func TestBufferGeneration(t *testing.T) {
	b := NewBuffer(2)
	g := b.Generation()
	b.Write([]segment.Code{hex(1), hex(2)})
	assert.Equal(t, g+2, b.Generation())
	assert.Zero(t, b.Generation()&1, "generation is even between writes")

	b.Clear()
	assert.Equal(t, g+4, b.Generation())

	// Single digit updates are atomic on their own
	require.NoError(t, b.Set(0, hex(3)))
	assert.Equal(t, g+4, b.Generation())
}

func TestBufferTornRead(t *testing.T) {
	b := NewBuffer(2)
	b.Write([]segment.Code{hex(1), hex(2)})

	_, _, torn := b.read(0)
	assert.False(t, torn)

	b.gen++ // writer is between its two bumps
	c, _, torn := b.read(1)
	assert.True(t, torn)
	assert.Equal(t, hex(2), c)
}
