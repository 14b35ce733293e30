package keypad

import (
	"segpad/core"
)

// KeyEvent is one accepted key press
type KeyEvent struct {
	Symbol rune
	Row    int
	Col    int
	At     uint32 // core clock at detection
}

// OverflowPolicy decides what a full queue does with a new event
type OverflowPolicy uint8

const (
	// DropOldest evicts the oldest queued event to make room. Evictions
	// are counted and traced. Safe from interrupt context.
	DropOldest OverflowPolicy = iota

	// Block makes Push wait until the consumer frees a slot. Only for
	// producers running outside interrupt context.
	Block
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case Block:
		return "block"
	}
	return "unknown"
}

// ParseOverflowPolicy accepts the names printed by String
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "drop-oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	}
	return DropOldest, core.NewConfigError("keypad", "overflow policy", "unknown policy "+s)
}

// DefaultQueueCapacity matches the inbox size used across the exercises
const DefaultQueueCapacity = 10

// Queue is a bounded FIFO of key events between a scanner and the
// application. Enqueue and dequeue run inside the core critical section,
// so an interrupt handler may push while the main loop pops.
type Queue struct {
	ring    []KeyEvent
	head    int
	count   int
	policy  OverflowPolicy
	dropped uint32
	space   chan struct{}
}

// NewQueue returns an empty queue. A capacity below 1 uses
// DefaultQueueCapacity.
func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ring:   make([]KeyEvent, capacity),
		policy: policy,
		space:  make(chan struct{}, 1),
	}
}

// Policy returns the overflow policy
func (q *Queue) Policy() OverflowPolicy { return q.policy }

// Cap returns the capacity
func (q *Queue) Cap() int { return len(q.ring) }

// TryPush enqueues e or returns core.ErrBackpressure when the queue is full,
// regardless of policy
func (q *Queue) TryPush(e KeyEvent) error {
	state := core.DisableInterrupts()
	ok := q.pushLocked(e)
	core.RestoreInterrupts(state)
	if !ok {
		return core.ErrBackpressure
	}
	return nil
}

// Push enqueues e, applying the overflow policy when full. With
// DropOldest it never fails; with Block it waits for Pop.
func (q *Queue) Push(e KeyEvent) error {
	for {
		state := core.DisableInterrupts()
		if q.pushLocked(e) {
			core.RestoreInterrupts(state)
			return nil
		}
		if q.policy == DropOldest {
			evicted := q.ring[q.head]
			q.head = (q.head + 1) % len(q.ring)
			q.count--
			q.pushLocked(e)
			q.dropped++
			dropped := q.dropped
			core.RestoreInterrupts(state)
			core.RecordTrace(core.EvtQueueOverflow, 0, uint32(evicted.Symbol), dropped)
			return nil
		}
		core.RestoreInterrupts(state)
		<-q.space
	}
}

func (q *Queue) pushLocked(e KeyEvent) bool {
	if q.count == len(q.ring) {
		return false
	}
	q.ring[(q.head+q.count)%len(q.ring)] = e
	q.count++
	return true
}

// Pop removes the oldest event. ok is false when the queue is empty.
func (q *Queue) Pop() (e KeyEvent, ok bool) {
	state := core.DisableInterrupts()
	if q.count > 0 {
		e = q.ring[q.head]
		q.ring[q.head] = KeyEvent{}
		q.head = (q.head + 1) % len(q.ring)
		q.count--
		ok = true
	}
	core.RestoreInterrupts(state)

	if ok {
		select {
		case q.space <- struct{}{}:
		default:
		}
	}
	return e, ok
}

// Drain pops every queued event, oldest first
func (q *Queue) Drain() []KeyEvent {
	var out []KeyEvent
	for {
		e, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	state := core.DisableInterrupts()
	n := q.count
	core.RestoreInterrupts(state)
	return n
}

// Dropped returns how many events DropOldest has evicted
func (q *Queue) Dropped() uint32 {
	state := core.DisableInterrupts()
	n := q.dropped
	core.RestoreInterrupts(state)
	return n
}
