// Package protocol frames board telemetry for the host.
//
// Every frame is [len][seq][payload][crc16 hi][crc16 lo][0x7E]. The
// payload is one message: a VLQ message id followed by VLQ arguments.
// The board only sends; the host detects lost frames from gaps in the
// 4-bit sequence.
package protocol

// Version is reported in the identify message
const Version = "0.3.0"

// MsgID identifies a telemetry message
type MsgID uint16

const (
	MsgIdentify MsgID = iota + 1 // version string
	MsgKey                       // symbol, row, col, at
	MsgDisplay                   // generation, segment codes
	MsgWarning                   // kind, kind specific fields
	MsgStats                     // counters
)

func (id MsgID) String() string {
	switch id {
	case MsgIdentify:
		return "identify"
	case MsgKey:
		return "key"
	case MsgDisplay:
		return "display"
	case MsgWarning:
		return "warning"
	case MsgStats:
		return "stats"
	}
	return "unknown"
}

// Warning kinds
const (
	WarnOther uint8 = iota
	WarnStuckKey
	WarnStaleRead
)
