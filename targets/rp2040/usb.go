//go:build rp2040

package main

import (
	"machine"

	"segpad/core"
)

// Writes that fail in a row before the host is considered gone
const maxWriteFailures = 10

// Retry interval while disconnected, in dropped writes
const reconnectProbe = 100

// usbLink carries telemetry over the USB CDC serial port. Frames written
// while no host listens are dropped instead of backing up the loop.
type usbLink struct {
	failures     uint32
	disconnected bool
	dropped      uint32
}

// InitUSB configures machine.Serial, which is USB CDC on RP2040
func InitUSB() *usbLink {
	machine.Serial.Configure(machine.UARTConfig{})
	return &usbLink{}
}

// Write implements io.Writer. It never returns an error while the host
// is away, so telemetry stays quiet about a missing cable.
func (u *usbLink) Write(p []byte) (int, error) {
	if u.disconnected {
		u.dropped++
		if u.dropped%reconnectProbe != 0 {
			return len(p), nil
		}
	}

	written := 0
	for written < len(p) {
		n, err := machine.Serial.Write(p[written:])
		if err != nil || n == 0 {
			u.failures++
			if u.failures > maxWriteFailures && !u.disconnected {
				u.disconnected = true
				core.Logger().Warn("telemetry host gone")
			}
			return len(p), nil
		}
		written += n
	}

	if u.disconnected {
		core.Logger().Info("telemetry host back", "dropped", u.dropped)
	}
	u.failures = 0
	u.disconnected = false
	u.dropped = 0
	return written, nil
}
