package protocol

import "sync/atomic"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Message is one decoded frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}

// Encoder writes frames to an output buffer
type Encoder struct {
	output OutputBuffer
	seq    uint32 // Low 4 bits used
}

// NewEncoder creates an Encoder writing to output
func NewEncoder(output OutputBuffer) *Encoder {
	return &Encoder{output: output}
}

// EncodeFrame wraps the bytes written by frameData in a frame. A payload
// longer than MessagePayloadMax is cut short.
func (e *Encoder) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := e.output.CurPosition()

	seq := uint8(atomic.AddUint32(&e.seq, 1)-1)&MessageSeqMask | MessageDest
	e.output.Output([]byte{0, seq})

	frameData(e.output)

	length := len(e.output.DataSince(cursor)) + MessageTrailerSize
	if length > MessageLengthMax {
		length = MessageLengthMax
	}
	e.output.Update(cursor, uint8(length))

	frame := e.output.DataSince(cursor)
	crc := CRC16(frame[:length-MessageTrailerSize])
	e.output.Truncate(cursor + length - MessageTrailerSize)
	e.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}

// SendMessage encodes one message with its arguments
func (e *Encoder) SendMessage(id MsgID, args func(output OutputBuffer)) {
	e.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(id))
		if args != nil {
			args(output)
		}
	})
}

// Sequence returns the sequence byte of the next frame
func (e *Encoder) Sequence() uint8 {
	return uint8(atomic.LoadUint32(&e.seq))&MessageSeqMask | MessageDest
}

// DecoderStats counts framing problems
type DecoderStats struct {
	Frames    uint32
	Lost      uint32 // Frames missing from the sequence
	BadFrames uint32 // Length, sequence, sync or CRC failures
	Skipped   uint32 // Bytes discarded while resynchronizing
}

// Decoder splits a byte stream into frames, resynchronizing on the sync
// byte after any damage
type Decoder struct {
	synchronized bool
	started      bool
	expected     uint8
	stats        DecoderStats
}

// NewDecoder creates a synchronized decoder
func NewDecoder() *Decoder {
	return &Decoder{synchronized: true}
}

// Receive decodes every complete frame in input, calls fn for each and
// pops the consumed bytes. A partial frame stays in input.
func (d *Decoder) Receive(input InputBuffer, fn func(*Message)) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				d.stats.Skipped += uint32(syncPos + 1)
				data = data[syncPos+1:]
				d.synchronized = true
			} else {
				d.stats.Skipped += uint32(len(data))
				data = nil
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		payload := make([]byte, msgLen-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		msg := &Message{
			Length:   uint8(msgLen),
			Sequence: seq,
			Payload:  payload,
			CRC:      frameCRC,
		}
		data = data[msgLen:]

		if d.started {
			d.stats.Lost += uint32((seq - d.expected) & MessageSeqMask)
		}
		d.started = true
		d.expected = (seq+1)&MessageSeqMask | MessageDest
		d.stats.Frames++

		if fn != nil {
			fn(msg)
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// desync drops the frame start so the scan restarts at the next sync byte
func (d *Decoder) desync() {
	d.synchronized = false
	d.stats.BadFrames++
}

// Stats returns the framing counters
func (d *Decoder) Stats() DecoderStats { return d.stats }

// Reset forgets the sequence, as after the board restarts
func (d *Decoder) Reset() {
	d.synchronized = true
	d.started = false
}
