//go:build !tinygo

package core

import (
	"sync/atomic"
	"time"
)

var (
	systemTicks uint32
	clockSource atomic.Value // func() uint32
)

// SetClockSource replaces the manual clock with a live time source.
// Pass nil to return to the manual clock driven by SetTime/AdvanceTime.
func SetClockSource(fn func() uint32) {
	clockSource.Store(fn)
}

// WallClock returns a source that counts microseconds since it was created
func WallClock() func() uint32 {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Microseconds())
	}
}

func liveClock() func() uint32 {
	fn, _ := clockSource.Load().(func() uint32)
	return fn
}

// getSystemTicks returns the current system ticks (regular Go implementation)
func getSystemTicks() uint32 {
	if fn := liveClock(); fn != nil {
		return fn()
	}
	return atomic.LoadUint32(&systemTicks)
}

// setSystemTicks sets the system ticks (regular Go implementation)
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

func delay(us uint32) {
	if liveClock() != nil {
		time.Sleep(time.Duration(us) * time.Microsecond)
		return
	}
	AdvanceTime(TimerFromUS(us))
}
