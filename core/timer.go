package core

// Timer frequency: one tick per microsecond, matching the RP2040 timer
const (
	TimerFreq = 1000000
)

var bootTime uint32 // Time at boot for uptime calculation

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// AdvanceTime moves the system time forward by delta ticks
func AdvanceTime(delta uint32) {
	setSystemTicks(getSystemTicks() + delta)
}

// GetUptime returns ticks elapsed since TimerInit
func GetUptime() uint32 {
	return GetTime() - bootTime
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return us * (TimerFreq / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * (TimerFreq / 1000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return ticks / (TimerFreq / 1000000)
}

// TimerToMS converts timer ticks to milliseconds
func TimerToMS(ticks uint32) uint32 {
	return ticks / (TimerFreq / 1000)
}

// Elapsed returns the ticks since an earlier timestamp.
// Correct across one counter wrap.
func Elapsed(since uint32) uint32 {
	return GetTime() - since
}

// TimeBefore reports whether a is earlier than b on the wrapping clock
func TimeBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// TimerInit initializes the system timer
func TimerInit() {
	bootTime = GetTime()
}

// ProcessTimers runs every timer that is due at the current time
func ProcessTimers() {
	TimerDispatch(GetTime())
}

// Delay waits for the given number of microseconds.
// On host builds with the manual clock it advances virtual time instead.
func Delay(us uint32) {
	delay(us)
}
