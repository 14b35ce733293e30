//go:build tinygo

package core

import (
	"sync/atomic"
	"time"
)

var (
	systemTicksValue uint32
	clockSource      func() uint32
)

// SetClockSource makes GetTime read the hardware counter directly.
// Call once from target init before any timers are scheduled.
func SetClockSource(fn func() uint32) {
	clockSource = fn
}

// getSystemTicks returns the current system ticks
func getSystemTicks() uint32 {
	if clockSource != nil {
		return clockSource()
	}
	return atomic.LoadUint32(&systemTicksValue)
}

// setSystemTicks sets the system ticks
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}

func delay(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
