//go:build !tinygo

package core

import "sync"

// InterruptState is a placeholder for interrupt state on regular Go
type InterruptState uintptr

// On regular Go "interrupts" are goroutines (the simulator), so the
// critical section is a process-wide mutex. It is not reentrant: never
// call out to user code while holding it.
var criticalMu sync.Mutex

// DisableInterrupts enters the critical section
func DisableInterrupts() InterruptState {
	criticalMu.Lock()
	return 0
}

// RestoreInterrupts leaves the critical section
func RestoreInterrupts(state InterruptState) {
	criticalMu.Unlock()
}
