package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFrame(enc *Encoder, sym rune) {
	enc.SendMessage(MsgKey, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(sym))
	})
}

func decodeAll(t *testing.T, d *Decoder, data []byte) []*Message {
	t.Helper()
	var msgs []*Message
	d.Receive(NewSliceInputBuffer(data), func(m *Message) { msgs = append(msgs, m) })
	return msgs
}

func TestEncodeFrame(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	assert.Equal(t, uint8(MessageDest), enc.Sequence())

	keyFrame(enc, 'A')
	frame := append([]byte(nil), out.Result()...)

	require.Len(t, frame, 7)
	assert.Equal(t, byte(7), frame[MessagePositionLen])
	assert.Equal(t, byte(MessageDest), frame[MessagePositionSeq])
	assert.Equal(t, []byte{byte(MsgKey), 'A'}, frame[2:4])
	crc := CRC16(frame[:4])
	assert.Equal(t, []byte{byte(crc >> 8), byte(crc), MessageValueSync}, frame[4:])

	out.Reset()
	keyFrame(enc, 'B')
	assert.Equal(t, byte(MessageDest+1), out.Result()[MessagePositionSeq])
}

func TestSequenceWraps(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	for i := 0; i < 16; i++ {
		out.Reset()
		keyFrame(enc, '1')
	}
	assert.Equal(t, byte(MessageDest|0x0F), out.Result()[MessagePositionSeq])
	assert.Equal(t, uint8(MessageDest), enc.Sequence())
}

func TestEncodeFrameCutShort(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	enc.EncodeFrame(func(output OutputBuffer) {
		output.Output(make([]byte, 100))
	})
	require.Len(t, out.Result(), MessageLengthMax)

	msgs := decodeAll(t, NewDecoder(), out.Result())
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Payload, MessagePayloadMax)
}

func TestDecoderRoundTrip(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	for _, sym := range "147" {
		keyFrame(enc, sym)
	}

	d := NewDecoder()
	msgs := decodeAll(t, d, out.Result())
	require.Len(t, msgs, 3)
	for i, sym := range "147" {
		assert.Equal(t, []byte{byte(MsgKey), byte(sym)}, msgs[i].Payload)
		assert.Equal(t, uint8(MessageDest+i), msgs[i].Sequence)
	}
	assert.Equal(t, DecoderStats{Frames: 3}, d.Stats())
}

func TestDecoderPartialFrame(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	keyFrame(enc, '9')
	frame := out.Result()

	fifo := NewFifoBuffer(64)
	d := NewDecoder()
	var got int
	count := func(*Message) { got++ }

	fifo.Write(frame[:4])
	d.Receive(fifo, count)
	assert.Zero(t, got)
	assert.Equal(t, 4, fifo.Available(), "partial frame kept")

	fifo.Write(frame[4:])
	d.Receive(fifo, count)
	assert.Equal(t, 1, got)
	assert.Zero(t, fifo.Available())
}

func TestDecoderResync(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	keyFrame(enc, '1')
	bad := append([]byte(nil), out.Result()...)
	bad[3] ^= 0xFF // payload no longer matches the CRC

	out.Reset()
	keyFrame(enc, '2')
	good := out.Result()

	stream := append([]byte{0x01, 0x02, 0x03}, bad...)
	stream = append(stream, good...)

	d := NewDecoder()
	msgs := decodeAll(t, d, stream)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte('2'), msgs[0].Payload[1])

	st := d.Stats()
	assert.NotZero(t, st.BadFrames)
	assert.NotZero(t, st.Skipped)
}

func TestDecoderCountsLostFrames(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	var frames [][]byte
	for i := 0; i < 5; i++ {
		out.Reset()
		keyFrame(enc, '0'+rune(i))
		frames = append(frames, append([]byte(nil), out.Result()...))
	}

	var stream []byte
	for i, f := range frames {
		if i == 1 || i == 2 {
			continue
		}
		stream = append(stream, f...)
	}

	d := NewDecoder()
	assert.Len(t, decodeAll(t, d, stream), 3)
	assert.Equal(t, uint32(2), d.Stats().Lost)

	d.Reset()
	decodeAll(t, d, frames[0])
	assert.Equal(t, uint32(2), d.Stats().Lost, "a restart is not a loss")
}
