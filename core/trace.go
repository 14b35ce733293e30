package core

// TraceEvent captures a timing-critical event for post-mortem analysis
type TraceEvent struct {
	Kind   uint8  // Event kind code
	Arg    uint8  // Digit, column or row index
	Clock  uint32 // System clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event kind codes
const (
	EvtDigitSelect   = 1 // Multiplexer lit a digit (arg=digit, v1=code)
	EvtColumnSelect  = 2 // Keypad column driven (arg=column, idle=column count)
	EvtKeyAccepted   = 3 // Key event queued (arg=row, v1=symbol, v2=column)
	EvtKeyBounced    = 4 // Press rejected by debounce (arg=row, v1=symbol, v2=column)
	EvtKeyStuck      = 5 // Release wait timed out (arg=row, v1=symbol, v2=waited ticks)
	EvtQueueOverflow = 6 // Oldest event evicted (v1=evicted symbol, v2=total drops)
	EvtStaleRead     = 7 // Torn display frame (arg=digit, v1=generation)
	EvtSpuriousEdge  = 8 // Row edge while no column was active (arg=row)
)

const (
	TraceRingSize = 64 // Keep last 64 events for post-mortem
)

var (
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8        // Next write position
	traceEnabled  bool  = true // Always capture by default
)

// SetTraceEnabled turns event capture on or off
func SetTraceEnabled(enabled bool) {
	state := DisableInterrupts()
	traceEnabled = enabled
	RestoreInterrupts(state)
}

// RecordTrace captures an event in the ring buffer.
// Safe from interrupt context; must not be called inside a critical section.
func RecordTrace(kind, arg uint8, value1, value2 uint32) {
	clock := GetTime()
	state := DisableInterrupts()
	if traceEnabled {
		idx := traceRingHead
		traceRing[idx] = TraceEvent{
			Kind:   kind,
			Arg:    arg,
			Clock:  clock,
			Value1: value1,
			Value2: value2,
		}
		traceRingHead = (idx + 1) % TraceRingSize
	}
	RestoreInterrupts(state)
}

// TraceSnapshot returns the captured events, oldest first
func TraceSnapshot() []TraceEvent {
	state := DisableInterrupts()
	ring := traceRing
	start := traceRingHead
	RestoreInterrupts(state)

	events := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := ring[(start+i)%TraceRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// TraceKindName returns a short label for an event kind
func TraceKindName(kind uint8) string {
	switch kind {
	case EvtDigitSelect:
		return "DIGIT"
	case EvtColumnSelect:
		return "COLUMN"
	case EvtKeyAccepted:
		return "KEY"
	case EvtKeyBounced:
		return "BOUNCE"
	case EvtKeyStuck:
		return "STUCK!"
	case EvtQueueOverflow:
		return "OVERFLOW!"
	case EvtStaleRead:
		return "STALE"
	case EvtSpuriousEdge:
		return "SPURIOUS"
	default:
		return "UNKNOWN"
	}
}

// DumpTrace writes the trace ring to the logger (call on shutdown/error).
// Call from task context only.
func DumpTrace() {
	events := TraceSnapshot()
	logger.Info("[TRACE] === Trace Ring Dump ===")
	for _, evt := range events {
		logger.Info("[TRACE] " + TraceKindName(evt.Kind) +
			" arg=" + itoa(int(evt.Arg)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	logger.Info("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	state := DisableInterrupts()
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
	RestoreInterrupts(state)
}
