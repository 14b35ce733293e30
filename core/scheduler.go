package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer

	queued    bool
	cancelled bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var timerList *Timer

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	t.cancelled = false
	if t.queued {
		removeTimer(t)
	}
	insertTimer(t)
}

// CancelTimer removes a timer from the schedule. A handler that is running
// while the timer is cancelled will not be rescheduled.
func CancelTimer(t *Timer) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	t.cancelled = true
	if t.queued {
		removeTimer(t)
	}
}

// ScheduleRecurring calls fn every period ticks, first at now+period.
// A caller that falls more than one period behind skips the missed
// slots instead of firing them back to back.
func ScheduleRecurring(t *Timer, period uint32, fn func()) {
	if period == 0 {
		period = 1
	}
	t.Handler = func(t *Timer) uint8 {
		fn()
		t.WakeTime += period
		if now := GetTime(); TimeBefore(t.WakeTime, now) {
			t.WakeTime = now + period
		}
		return SF_RESCHEDULE
	}
	t.WakeTime = GetTime() + period
	ScheduleTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	t.queued = true
	if timerList == nil || TimeBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !TimeBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

func removeTimer(t *Timer) {
	t.queued = false
	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return
	}
	for current := timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// popDue detaches the first timer due at now, or returns nil
func popDue(now uint32) *Timer {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	if timerList == nil || TimeBefore(now, timerList.WakeTime) {
		return nil
	}
	t := timerList
	timerList = t.Next
	t.Next = nil
	t.queued = false
	return t
}

// TimerDispatch processes due timers. Handlers run outside the critical
// section so they may enqueue events or reschedule other timers.
func TimerDispatch(now uint32) {
	for {
		t := popDue(now)
		if t == nil {
			return
		}

		result := t.Handler(t)

		if result == SF_RESCHEDULE {
			state := DisableInterrupts()
			if !t.cancelled && !t.queued {
				insertTimer(t)
			}
			RestoreInterrupts(state)
		}
	}
}

// NextWake returns the wake time of the earliest pending timer
func NextWake() (uint32, bool) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	if timerList == nil {
		return 0, false
	}
	return timerList.WakeTime, true
}

// ResetTimers drops every pending timer (tests and firmware restart)
func ResetTimers() {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	for t := timerList; t != nil; {
		next := t.Next
		t.Next = nil
		t.queued = false
		t = next
	}
	timerList = nil
}
